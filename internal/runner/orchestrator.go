// Package runner evaluates every test case against every model, through a
// bounded worker pool or one pair at a time.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chainguard-dev/clog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/darshil0/ai-testing/internal/judge"
	"github.com/darshil0/ai-testing/internal/model"
	"github.com/darshil0/ai-testing/internal/pii"
	"github.com/darshil0/ai-testing/internal/pricing"
	"github.com/darshil0/ai-testing/internal/result"
	"github.com/darshil0/ai-testing/internal/retry"
	"github.com/darshil0/ai-testing/internal/telemetry"
	"github.com/darshil0/ai-testing/internal/testcase"
)

type Mode string

const (
	Parallel   Mode = "parallel"
	Sequential Mode = "sequential"
)

// ErrNoBackend marks pairs whose model has no usable backend.
var ErrNoBackend = errors.New("no backend")

type Options struct {
	// Backends is keyed by model.Identifier.String().
	Backends map[string]model.Backend
	// BackendErrors explains why a model has no backend, by the same key.
	BackendErrors map[string]error

	Judge   *judge.Scorer
	Scanner *pii.Scanner
	Pricing *pricing.Table

	Retry     retry.Config
	Retryable func(error) bool

	MaxWorkers int
	Params     model.Params
	// Timeout bounds each backend attempt; zero means no per-call limit.
	Timeout time.Duration

	Collection *result.Collection
	Metrics    *telemetry.Metrics
	Tracer     trace.Tracer
	RunID      string
}

type Orchestrator struct {
	opts Options
}

func NewOrchestrator(opts Options) *Orchestrator {
	if opts.MaxWorkers < 1 {
		opts.MaxWorkers = 1
	}
	if opts.Retryable == nil {
		opts.Retryable = func(error) bool { return false }
	}
	if opts.Retry.MaxAttempts < 1 {
		opts.Retry.MaxAttempts = 1
	}
	if opts.Collection == nil {
		opts.Collection = result.NewCollection()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer("github.com/darshil0/ai-testing/internal/runner")
	}
	return &Orchestrator{opts: opts}
}

// Collection is where every result of Run is appended.
func (o *Orchestrator) Collection() *result.Collection {
	return o.opts.Collection
}

// Run evaluates the cross product of testCases and models and returns one
// result per pair, test case major. A pair that fails is recorded as an
// error result; it never stops the others.
func (o *Orchestrator) Run(ctx context.Context, testCases []testcase.TestCase, models []model.Identifier, persona judge.Persona, mode Mode) []result.EvaluationResult {
	type pair struct {
		tc testcase.TestCase
		id model.Identifier
	}
	pairs := make([]pair, 0, len(testCases)*len(models))
	for _, tc := range testCases {
		for _, id := range models {
			pairs = append(pairs, pair{tc: tc, id: id})
		}
	}

	workers := o.opts.MaxWorkers
	if mode == Sequential {
		workers = 1
	}
	clog.FromContext(ctx).With("pairs", len(pairs)).
		With("mode", string(mode)).
		With("workers", workers).
		Info("starting evaluation")

	results := make([]result.EvaluationResult, len(pairs))
	jobs := make([]Job, len(pairs))
	for i, p := range pairs {
		jobs[i] = func(ctx context.Context) {
			defer func() {
				if v := recover(); v != nil {
					r := o.panicked(ctx, p.tc, p.id, v)
					results[i] = r
					o.opts.Collection.Append(r)
				}
			}()
			r := o.evaluate(ctx, p.tc, p.id, persona)
			results[i] = r
			o.opts.Collection.Append(r)
		}
	}
	RunPool(ctx, workers, jobs)
	return results
}

// evaluate runs one pair: model call, then judge, PII scan and cost.
func (o *Orchestrator) evaluate(ctx context.Context, tc testcase.TestCase, id model.Identifier, persona judge.Persona) result.EvaluationResult {
	modelID := id.String()
	ctx, span := o.opts.Tracer.Start(ctx, "evaluate "+tc.Name,
		trace.WithAttributes(
			attribute.String("eval.test_case", tc.Name),
			attribute.String("eval.category", tc.Category),
			attribute.String("eval.model", modelID),
		),
	)
	defer span.End()
	log := clog.FromContext(ctx).With("test_case", tc.Name).With("model", modelID)

	r := result.EvaluationResult{
		TestCaseName: tc.Name,
		Category:     tc.Category,
		Difficulty:   tc.Difficulty,
		ModelType:    modelID,
		Prompt:       tc.Prompt,
		PIITypes:     []string{},
		RunID:        o.opts.RunID,
		Metadata:     tc.Metadata,
	}

	start := time.Now()
	c, err := o.call(ctx, id, tc.Prompt)
	r.DurationSeconds = time.Since(start).Seconds()
	if err != nil {
		log.With("error", err.Error()).Warn("model call failed")
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		r.Error = err.Error()
		r.Timestamp = time.Now().UTC()
		o.opts.Metrics.ObserveEvaluation(modelID, "error")
		return r
	}
	r.Response = c.Text
	r.TokensInput = c.InputTokens
	r.TokensOutput = c.OutputTokens

	if o.opts.Judge != nil {
		score, reasoning, err := o.opts.Judge.ScoreTask(ctx, tc.Prompt, c.Text, tc.Expectations, persona)
		if err != nil {
			log.With("error", err.Error()).Warn("judge failed")
			r.JudgeReasoning = "judge error: " + err.Error()
		} else {
			r.JudgeScore = score
			r.JudgeReasoning = reasoning
		}
	} else {
		r.JudgeReasoning = "no judge configured"
	}

	if found, types := o.opts.Scanner.Scan(c.Text); found {
		r.PIIFound = true
		r.PIITypes = types
	}
	r.EstimatedCost = o.opts.Pricing.Estimate(ctx, c.InputTokens, c.OutputTokens, id)
	r.Timestamp = time.Now().UTC()

	o.record(&r)
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", r.TokensInput),
		attribute.Int("gen_ai.usage.output_tokens", r.TokensOutput),
		attribute.Bool("eval.pii_found", r.PIIFound),
	)
	log.With("duration", r.DurationSeconds).Debug("pair evaluated")
	return r
}

// panicked turns a panic inside evaluate into an error result for the pair.
func (o *Orchestrator) panicked(ctx context.Context, tc testcase.TestCase, id model.Identifier, v any) result.EvaluationResult {
	modelID := id.String()
	clog.FromContext(ctx).With("test_case", tc.Name).
		With("model", modelID).
		With("panic", fmt.Sprint(v)).
		Error("evaluation panicked")
	o.opts.Metrics.ObserveEvaluation(modelID, "error")
	return result.EvaluationResult{
		TestCaseName: tc.Name,
		Category:     tc.Category,
		Difficulty:   tc.Difficulty,
		ModelType:    modelID,
		Prompt:       tc.Prompt,
		PIITypes:     []string{},
		Timestamp:    time.Now().UTC(),
		Error:        fmt.Sprintf("panic: %v", v),
		RunID:        o.opts.RunID,
		Metadata:     tc.Metadata,
	}
}

// call invokes the model with retries. Each attempt gets its own timeout.
func (o *Orchestrator) call(ctx context.Context, id model.Identifier, prompt string) (model.Completion, error) {
	b, ok := o.opts.Backends[id.String()]
	if !ok || b == nil {
		if err := o.opts.BackendErrors[id.String()]; err != nil {
			return model.Completion{}, fmt.Errorf("%w for %s: %w", ErrNoBackend, id, err)
		}
		return model.Completion{}, fmt.Errorf("%w for %s", ErrNoBackend, id)
	}

	ctx = retry.WithRetryHook(ctx, func(string) {
		o.opts.Metrics.IncRetry(id.Provider)
	})
	return retry.Do(ctx, o.opts.Retry, "call "+id.String(), o.opts.Retryable, func(ctx context.Context) (model.Completion, error) {
		if o.opts.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, o.opts.Timeout)
			defer cancel()
		}
		return b.Call(ctx, prompt, o.opts.Params)
	})
}

func (o *Orchestrator) record(r *result.EvaluationResult) {
	m := o.opts.Metrics
	m.ObserveEvaluation(r.ModelType, "ok")
	m.AddTokens(r.ModelType, r.TokensInput, r.TokensOutput)
	m.AddCost(r.ModelType, r.EstimatedCost)
	if r.JudgeScore != nil {
		m.ObserveJudgeScore(r.ModelType, *r.JudgeScore)
	}
	for _, t := range r.PIITypes {
		m.IncPII(r.ModelType, t)
	}
}
