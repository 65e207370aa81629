// Package telemetry installs the global OpenTelemetry tracer provider.
package telemetry

import (
	"context"

	"booth-waitlist/pkg/utils"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.uber.org/zap"
)

type ShutdownFunc func(context.Context) error

func noop(context.Context) error { return nil }

// Setup exports spans over OTLP gRPC when an endpoint is configured. Without
// one the global no-op provider stays in place.
func Setup(config utils.TelemetryConfig, log *zap.Logger) ShutdownFunc {
	if config.OTLPEndpoint == "" {
		log.Info("Tracing disabled, no OTLP endpoint configured")
		return noop
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(config.OTLPEndpoint)}
	if config.OTLPInsecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		log.Error("Failed to create OTLP exporter", zap.Error(err))
		return noop
	}

	res, err := resource.New(context.Background(), resource.WithAttributes(semconv.ServiceName(config.ServiceName)))
	if err != nil {
		log.Warn("Failed to build telemetry resource", zap.Error(err))
	}

	provider := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	log.Info("Tracing enabled", zap.String("endpoint", config.OTLPEndpoint))
	return provider.Shutdown
}
