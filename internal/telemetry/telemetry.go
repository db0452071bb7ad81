// Package telemetry exports trace spans for agent turns and tool calls over
// OTLP. Tracing is off unless an endpoint is configured; the noop tracer
// costs nothing when disabled.
package telemetry

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// Tracer records agent turns and the tool calls inside them.
type Tracer interface {
	// StartTurn opens a span for one user turn. The returned context carries
	// the span for nesting tool-call spans under it.
	StartTurn(ctx context.Context, sessionID string) (context.Context, func())
	// StartToolCall opens a span for one tool invocation. The returned
	// finish func records the error, if any, and ends the span.
	StartToolCall(ctx context.Context, toolName, toolUseID string) (context.Context, func(err error))
	// Shutdown flushes buffered spans.
	Shutdown(ctx context.Context) error
}

// Config controls the OTLP exporter.
type Config struct {
	Enabled     bool
	Endpoint    string
	Insecure    bool
	ServiceName string
	SampleRate  float64
}

// ConfigFromEnv reads exporter settings from the environment. Tracing is
// enabled when OPENAGENT_OTLP_ENDPOINT is set.
func ConfigFromEnv() Config {
	cfg := Config{
		Endpoint:    os.Getenv("OPENAGENT_OTLP_ENDPOINT"),
		ServiceName: os.Getenv("OPENAGENT_OTLP_SERVICE"),
		SampleRate:  1.0,
	}
	cfg.Enabled = cfg.Endpoint != ""
	if v := os.Getenv("OPENAGENT_OTLP_INSECURE"); v != "" {
		cfg.Insecure, _ = strconv.ParseBool(v)
	}
	if v := os.Getenv("OPENAGENT_OTLP_SAMPLE_RATE"); v != "" {
		if rate, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.SampleRate = rate
		}
	}
	return cfg
}

// NewTracer builds a Tracer from cfg, returning the noop tracer when
// tracing is disabled.
func NewTracer(cfg Config) (Tracer, error) {
	if !cfg.Enabled {
		return NoopTracer{}, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "openagent"
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptrace.New(context.Background(), otlptracehttp.NewClient(opts...))
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SampleRate)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(provider)

	return &otelTracer{
		provider: provider,
		tracer:   provider.Tracer(cfg.ServiceName),
	}, nil
}

type otelTracer struct {
	provider *sdktrace.TracerProvider
	tracer   trace.Tracer
}

func (t *otelTracer) StartTurn(ctx context.Context, sessionID string) (context.Context, func()) {
	ctx, span := t.tracer.Start(ctx, "agent.turn",
		trace.WithAttributes(attribute.String("session.id", sessionID)),
	)
	return ctx, func() { span.End() }
}

func (t *otelTracer) StartToolCall(ctx context.Context, toolName, toolUseID string) (context.Context, func(error)) {
	ctx, span := t.tracer.Start(ctx, "tool.call",
		trace.WithAttributes(
			attribute.String("tool.name", toolName),
			attribute.String("tool.use_id", toolUseID),
		),
	)
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (t *otelTracer) Shutdown(ctx context.Context) error {
	return t.provider.Shutdown(ctx)
}

// NoopTracer discards all spans.
type NoopTracer struct{}

func (NoopTracer) StartTurn(ctx context.Context, _ string) (context.Context, func()) {
	return ctx, func() {}
}

func (NoopTracer) StartToolCall(ctx context.Context, _, _ string) (context.Context, func(error)) {
	return ctx, func(error) {}
}

func (NoopTracer) Shutdown(context.Context) error { return nil }
