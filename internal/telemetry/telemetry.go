package telemetry

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const (
	// Service information
	ServiceName    = "ma-health-forecaster"
	ServiceVersion = "1.0.0"
)

// Provider owns the tracer provider lifecycle.
type Provider struct {
	tp *sdktrace.TracerProvider
}

// Init sets up the global tracer provider with a stdout span exporter.
// A disabled provider is valid and shuts down cleanly.
func Init(enabled bool, w io.Writer) (*Provider, error) {
	if !enabled {
		return &Provider{}, nil
	}

	exporter, err := stdouttrace.New(
		stdouttrace.WithWriter(w),
		stdouttrace.WithPrettyPrint(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
	)
	otel.SetTracerProvider(tp)
	return &Provider{tp: tp}, nil
}

// Shutdown flushes pending spans and stops the provider.
func (p *Provider) Shutdown(ctx context.Context) error {
	if p.tp == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return p.tp.Shutdown(ctx)
}

// Tracer returns the named tracer from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(ServiceName)
}

// PipelineTracer traces the forecast pipeline stages so a slow or failing
// run can be broken down by stage.
type PipelineTracer struct {
	tracer trace.Tracer
}

// NewPipelineTracer creates a pipeline tracer on the global provider.
func NewPipelineTracer() *PipelineTracer {
	return &PipelineTracer{tracer: Tracer()}
}

// StartStage opens a span for one pipeline stage of a forecast run.
func (pt *PipelineTracer) StartStage(ctx context.Context, stage string, requestID string) (context.Context, trace.Span) {
	ctx, span := pt.tracer.Start(ctx, stage)
	span.SetAttributes(attribute.String("request_id", requestID))
	return ctx, span
}

// RecordModel tags the active span with the selected model order.
func (pt *PipelineTracer) RecordModel(span trace.Span, family string, p, d, q int) {
	span.SetAttributes(
		attribute.String("model_family", family),
		attribute.Int("order_p", p),
		attribute.Int("order_d", d),
		attribute.Int("order_q", q),
	)
}

// RecordOutcome tags the active span with the run outcome.
func (pt *PipelineTracer) RecordOutcome(span trace.Span, healthScore string, passed bool) {
	span.SetAttributes(
		attribute.String("health_score", healthScore),
		attribute.Bool("validation_passed", passed),
	)
}
