// Package judge scores model responses with a second model acting as judge.
package judge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/retry"
)

var tracer = otel.Tracer("github.com/darshil0/ai-testing/internal/judge")

type Options struct {
	Backend model.Backend
	Params  model.Params
	Retry   retry.Config
	// Retryable classifies backend errors; nil retries nothing.
	Retryable func(error) bool
	// Samples is how many times the judge is asked; the median score wins.
	Samples int
	Timeout time.Duration
}

type Scorer struct {
	opts Options
}

func New(opts Options) *Scorer {
	if opts.Samples < 1 {
		opts.Samples = 1
	}
	if opts.Retryable == nil {
		opts.Retryable = func(error) bool { return false }
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	return &Scorer{opts: opts}
}

// Score judges response against expectations. A nil score with a nil error
// means the judge answered but no score could be parsed; reasoning says why.
// The error is only set when every judge call failed.
func (s *Scorer) Score(ctx context.Context, response string, expectations []string, persona Persona) (*float64, string, error) {
	return s.ScoreTask(ctx, "", response, expectations, persona)
}

// ScoreTask is Score with the original request included in the judge prompt.
func (s *Scorer) ScoreTask(ctx context.Context, prompt, response string, expectations []string, persona Persona) (*float64, string, error) {
	judgeID := s.opts.Backend.Provider() + ":" + s.opts.Backend.Model()
	ctx, span := tracer.Start(ctx, "judge "+judgeID,
		trace.WithAttributes(
			attribute.String("judge.persona", string(persona)),
			attribute.String("judge.model", judgeID),
			attribute.Int("judge.samples", s.opts.Samples),
		),
	)
	defer span.End()

	judgePrompt := BuildPrompt(persona, prompt, response, expectations)

	var (
		verdicts []Verdict
		lastErr  error
	)
	for i := range s.opts.Samples {
		raw, err := s.call(ctx, judgeID, judgePrompt)
		if err != nil {
			lastErr = err
			clog.WarnContextf(ctx, "judge sample %d/%d failed: %v", i+1, s.opts.Samples, err)
			continue
		}
		verdicts = append(verdicts, ParseVerdict(raw))
	}
	if len(verdicts) == 0 {
		span.RecordError(lastErr)
		span.SetStatus(codes.Error, lastErr.Error())
		return nil, "", fmt.Errorf("judge %s: %w", judgeID, lastErr)
	}

	v := combine(verdicts)
	if v.Score != nil {
		span.SetAttributes(attribute.Float64("judge.score", *v.Score))
	} else {
		span.SetAttributes(attribute.Bool("judge.parse_failed", true))
	}
	return v.Score, v.Reasoning, nil
}

func (s *Scorer) call(ctx context.Context, judgeID, prompt string) (string, error) {
	c, err := retry.Do(ctx, s.opts.Retry, "judge "+judgeID, s.opts.Retryable, func(ctx context.Context) (model.Completion, error) {
		if s.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, s.opts.Timeout)
			defer cancel()
		}
		return s.opts.Backend.Call(ctx, prompt, s.opts.Params)
	})
	return c.Text, err
}

// combine takes the median of the parsed scores and the reasoning of the
// sample nearest to it. With no parsed score the first verdict stands.
func combine(vs []Verdict) Verdict {
	var scored []Verdict
	var scores []float64
	for _, v := range vs {
		if v.Score != nil {
			scored = append(scored, v)
			scores = append(scores, *v.Score)
		}
	}
	if len(scored) == 0 {
		return vs[0]
	}
	if len(scored) == 1 {
		return scored[0]
	}

	m := MedianScore(scores)
	best := scored[0]
	for _, v := range scored[1:] {
		if math.Abs(*v.Score-m) < math.Abs(*best.Score-m) {
			best = v
		}
	}
	return Verdict{Score: &m, Reasoning: best.Reasoning, Structured: best.Structured}
}

// MedianScore returns the median of scores, or 0 for none.
func MedianScore(scores []float64) float64 {
	if len(scores) == 0 {
		return 0.0
	}
	sorted := make([]float64, len(scores))
	copy(sorted, scores)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
