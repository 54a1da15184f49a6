package backend

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/darshil0/ai-testing/internal/model"
)

var tracer = otel.Tracer("github.com/darshil0/ai-testing/internal/backend")

// startSpan opens a GenAI client span named "chat <model>".
func startSpan(ctx context.Context, provider, modelName string, p model.Params) (context.Context, trace.Span) {
	return tracer.Start(ctx, "chat "+modelName,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("gen_ai.operation.name", "chat"),
			attribute.String("gen_ai.provider.name", provider),
			attribute.String("gen_ai.request.model", modelName),
			attribute.Int("gen_ai.request.max_tokens", p.MaxTokens),
			attribute.Float64("gen_ai.request.temperature", p.Temperature),
		),
	)
}

func endSpan(span trace.Span, c model.Completion, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.String("error.type", "api_error"))
		return
	}
	span.SetAttributes(
		attribute.Int("gen_ai.usage.input_tokens", c.InputTokens),
		attribute.Int("gen_ai.usage.output_tokens", c.OutputTokens),
	)
}
