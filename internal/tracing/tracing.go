// Package tracing installs the OpenTelemetry tracer provider used by the
// navigation, pathing and lessons spans.
package tracing

import (
	"context"
	"io"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.27.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/abhisek/learnfast/internal/logger"
)

// Config selects the span exporter. Tracing is off unless Exporter is set.
type Config struct {
	// Exporter is "" (disabled) or "stdout".
	Exporter    string  `yaml:"exporter" validate:"omitempty,oneof=stdout"`
	SampleRatio float64 `yaml:"sample_ratio" validate:"gte=0,lte=1"`

	// Version is reported as service.version.
	Version string `yaml:"-"`
	// Writer receives stdout-exported spans; nil means stderr.
	Writer io.Writer `yaml:"-"`
}

// DefaultConfig returns tracing disabled with full sampling once enabled.
func DefaultConfig() Config {
	return Config{SampleRatio: 1}
}

// Enabled reports whether an exporter is configured.
func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Exporter) != ""
}

// Init installs a global tracer provider and returns its shutdown func,
// which flushes pending spans. With tracing disabled the global no-op
// provider stays in place and shutdown does nothing.
func Init(ctx context.Context, cfg Config, log *logger.Logger) (func(context.Context) error, error) {
	noop := func(context.Context) error { return nil }
	if !cfg.Enabled() {
		return noop, nil
	}
	log = logger.OrNop(log)

	w := cfg.Writer
	if w == nil {
		w = os.Stderr
	}
	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceNameKey.String("learnfast"),
			semconv.ServiceVersionKey.String(cfg.Version),
			attribute.String("service.component", "cli"),
		),
	)
	if err != nil {
		log.Warn("otel resource init failed (continuing)", "error", err)
	}

	tp := sdktrace.NewTracerProvider(
		// Synchronous export: a CLI run is short and must not lose spans.
		sdktrace.WithSyncer(exporter),
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Debug("otel tracing initialized", "exporter", cfg.Exporter, "sample_ratio", cfg.SampleRatio)
	return tp.Shutdown, nil
}

// Finish records err on span, if any, and ends it.
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
