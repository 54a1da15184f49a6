package backend

import (
	"context"

	"github.com/darshil0/ai-testing/internal/model"
)

// SimulatedResponse is what every simulated model answers.
const SimulatedResponse = "Simulated response."

// Simulated answers every prompt with a fixed response and fixed usage,
// for dry runs without credentials.
type Simulated struct {
	model string
}

func NewSimulated(name string) *Simulated {
	return &Simulated{model: name}
}

func (s *Simulated) Provider() string { return model.Simulated }
func (s *Simulated) Model() string    { return s.model }

func (s *Simulated) Call(ctx context.Context, _ string, p model.Params) (model.Completion, error) {
	if err := ctx.Err(); err != nil {
		return model.Completion{}, err
	}
	_, span := startSpan(ctx, model.Simulated, s.model, p)
	c := model.Completion{Text: SimulatedResponse, InputTokens: 10, OutputTokens: 5}
	endSpan(span, c, nil)
	span.End()
	return c, nil
}
