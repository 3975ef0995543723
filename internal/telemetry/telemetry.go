// Package telemetry wires the OpenTelemetry tracer and meter providers; the
// tracer provider backs mlog.Span, while the batch/pool/cache metrics are
// in-process counters that do not report through the meter provider. It is
// grounded on the teacher's
// common/mopentelemetry.Telemetry lifecycle (NewResource/InitializeTelemetry/
// ShutdownTelemetry), trimmed to the providers the pack's go.mod actually
// carries — no OTLP exporter package is in the dependency list, so spans and
// metrics are held in-process (accessible via the returned providers) rather
// than shipped to a collector.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Config names the service for resource attribution.
type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
}

// Telemetry owns the process-wide tracer and meter providers.
type Telemetry struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
}

// Init builds and globally registers the tracer and meter providers.
func Init(cfg Config) (*Telemetry, error) {
	resource, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			semconv.DeploymentEnvironment(cfg.Environment),
		),
	)
	if err != nil {
		return nil, err
	}

	tp := sdktrace.NewTracerProvider(sdktrace.WithResource(resource))
	otel.SetTracerProvider(tp)

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithResource(resource))
	otel.SetMeterProvider(mp)

	return &Telemetry{TracerProvider: tp, MeterProvider: mp}, nil
}

// Shutdown flushes and releases both providers, bounded by ctx.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	if err := t.TracerProvider.Shutdown(ctx); err != nil {
		return err
	}

	return t.MeterProvider.Shutdown(ctx)
}
