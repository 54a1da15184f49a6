// Package telemetry sets up trace export and the run's prometheus metrics.
//
// Traces go to an OTLP/HTTP endpoint when one is configured (config file or
// OTEL_EXPORTER_OTLP_ENDPOINT); otherwise the tracer is a no-op. Headers
// such as Langfuse basic auth come from OTEL_EXPORTER_OTLP_HEADERS.
package telemetry

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const serviceName = "aieval"

// Version is overridden by the linker.
var Version = "dev"

type Config struct {
	Endpoint string // OTLP base URL, e.g. "http://localhost:4318"
	Headers  string // "key=value,key2=value2"
}

type Telemetry struct {
	tp *sdktrace.TracerProvider

	Tracer trace.Tracer
}

// ParseHeaders parses the OTEL_EXPORTER_OTLP_HEADERS format.
func ParseHeaders(raw string) map[string]string {
	headers := make(map[string]string)
	if raw == "" {
		return headers
	}
	for _, pair := range strings.Split(raw, ",") {
		pair = strings.TrimSpace(pair)
		if idx := strings.IndexByte(pair, '='); idx > 0 {
			key := strings.TrimSpace(pair[:idx])
			val := strings.TrimSpace(pair[idx+1:])
			if key != "" {
				headers[key] = val
			}
		}
	}
	return headers
}

// Init installs an OTLP/HTTP tracer provider. With an empty endpoint the
// returned Telemetry is a no-op and Shutdown does nothing.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	t := &Telemetry{}

	if cfg.Endpoint != "" {
		res, err := resource.New(ctx,
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
				semconv.ServiceVersion(Version),
			),
			resource.WithHost(),
		)
		if err != nil {
			return nil, fmt.Errorf("otel resource: %w", err)
		}

		// WithEndpoint takes host:port; the base path keeps any proxy prefix.
		u, err := url.Parse(cfg.Endpoint)
		if err != nil {
			return nil, fmt.Errorf("otel: invalid endpoint URL %q: %w", cfg.Endpoint, err)
		}
		if u.Host == "" {
			return nil, fmt.Errorf("otel: endpoint %q has no host", cfg.Endpoint)
		}
		basePath := strings.TrimRight(u.Path, "/")

		opts := []otlptracehttp.Option{
			otlptracehttp.WithEndpoint(u.Host),
			otlptracehttp.WithURLPath(basePath + "/v1/traces"),
		}
		if u.Scheme == "http" {
			opts = append(opts, otlptracehttp.WithInsecure())
		}
		if headers := ParseHeaders(cfg.Headers); len(headers) > 0 {
			opts = append(opts, otlptracehttp.WithHeaders(headers))
		}

		exp, err := otlptracehttp.New(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("otel trace exporter: %w", err)
		}
		t.tp = sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exp),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(t.tp)
	}

	t.Tracer = otel.Tracer(serviceName)
	return t, nil
}

// Enabled reports whether spans are exported anywhere.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.tp != nil
}

// Shutdown flushes pending spans.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if t == nil || t.tp == nil {
		return nil
	}
	return t.tp.Shutdown(ctx)
}
