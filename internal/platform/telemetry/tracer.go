package telemetry

import (
	"context"
	"io"
	"os"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

const ServiceName = "claimcoder"

// Setup installs the global tracer provider. When tracing is disabled the
// no-op provider stays in place and the returned shutdown does nothing.
func Setup(enabled bool, logger zerolog.Logger) (func(context.Context) error, error) {
	return SetupWithWriter(enabled, os.Stdout, logger)
}

// SetupWithWriter is Setup with the span export destination supplied.
func SetupWithWriter(enabled bool, w io.Writer, logger zerolog.Logger) (func(context.Context) error, error) {
	if !enabled {
		return func(context.Context) error { return nil }, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w))
	if err != nil {
		return nil, err
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes("", semconv.ServiceName(ServiceName)),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	logger.Info().Str("service", ServiceName).Msg("tracing enabled")
	return tp.Shutdown, nil
}
