package backend

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/darshil0/ai-testing/internal/model"
)

// Gemini calls the Gemini API through the genai SDK.
type Gemini struct {
	client *genai.Client
	model  string
}

type GeminiConfig struct {
	APIKey string
	Model  string
}

func NewGemini(ctx context.Context, cfg GeminiConfig) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	return &Gemini{client: client, model: cfg.Model}, nil
}

func (g *Gemini) Provider() string { return model.Gemini }
func (g *Gemini) Model() string    { return g.model }

func (g *Gemini) Call(ctx context.Context, prompt string, p model.Params) (c model.Completion, err error) {
	ctx, span := startSpan(ctx, model.Gemini, g.model, p)
	defer func() { endSpan(span, c, err); span.End() }()

	cfg := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(p.Temperature)),
	}
	if p.MaxTokens > 0 {
		cfg.MaxOutputTokens = int32(p.MaxTokens)
	}
	contents := []*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return model.Completion{}, wrap(model.Gemini, g.model, err)
	}

	c = model.Completion{Text: result.Text()}
	if u := result.UsageMetadata; u != nil && (u.PromptTokenCount > 0 || u.CandidatesTokenCount > 0) {
		c.InputTokens = int(u.PromptTokenCount)
		c.OutputTokens = int(u.CandidatesTokenCount)
	} else {
		c.InputTokens = estimateTokens(prompt)
		c.OutputTokens = estimateTokens(c.Text)
	}
	return c, nil
}
