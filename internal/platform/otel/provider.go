// Package otel wires opt-in OpenTelemetry tracing for host and client
// processes.
package otel

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// Setup registers a global tracer provider exporting to the OTLP/HTTP
// endpoint named by TABLETALLY_OTEL_ENDPOINT.
//
// Tracing stays off unless an endpoint is configured; setting
// TABLETALLY_OTEL_ENABLED to "false" forces it off regardless. Collectors on
// a LAN rarely carry certificates, so TABLETALLY_OTEL_INSECURE=true skips
// TLS. The returned shutdown function flushes pending spans and should be
// deferred by the caller; when tracing is off it is a no-op.
func Setup(ctx context.Context, processName string) (shutdown func(context.Context) error, err error) {
	noop := func(context.Context) error { return nil }

	endpoint := strings.TrimSpace(os.Getenv("TABLETALLY_OTEL_ENDPOINT"))
	if endpoint == "" || strings.EqualFold(os.Getenv("TABLETALLY_OTEL_ENABLED"), "false") {
		return noop, nil
	}

	opts := []otlptracehttp.Option{otlptracehttp.WithEndpointURL(endpoint)}
	if strings.EqualFold(os.Getenv("TABLETALLY_OTEL_INSECURE"), "true") {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return noop, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(processName)),
	)
	if err != nil {
		return noop, err
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.TraceContext{})

	return tp.Shutdown, nil
}
