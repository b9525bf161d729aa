// Package telemetry provides the OpenTelemetry tracing helpers shared
// by the model adapters, the orchestrator, and the HTTP surface.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdkresource "go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName       = "github.com/pbulbule13/vinegar"
	maxAttributeLen  = 256
	redactedValue    = "[redacted]"
	sensitiveMarkers = "key,token,secret,password,authorization"
)

// Setup installs a trace provider exporting OTLP over HTTP to endpoint.
// The returned shutdown func flushes pending spans. An empty endpoint
// leaves the global no-op provider in place.
func Setup(ctx context.Context, serviceName, endpoint string) (func(context.Context) error, error) {
	if strings.TrimSpace(endpoint) == "" {
		return func(context.Context) error { return nil }, nil
	}
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, fmt.Errorf("telemetry: create exporter: %w", err)
	}
	res, err := sdkresource.Merge(
		sdkresource.Default(),
		sdkresource.NewWithAttributes(semconv.SchemaURL, semconv.ServiceName(serviceName)),
	)
	if err != nil {
		return nil, fmt.Errorf("telemetry: build resource: %w", err)
	}
	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)
	return provider.Shutdown, nil
}

// StartSpan begins a span on the module tracer.
func StartSpan(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name, opts...)
}

// EndSpan records err (when non-nil) and ends the span.
func EndSpan(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// SanitizeAttributes truncates oversized values and redacts attributes
// whose keys look credential-bearing before they leave the process.
func SanitizeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, kv := range attrs {
		if isSensitiveKey(string(kv.Key)) {
			out = append(out, attribute.String(string(kv.Key), redactedValue))
			continue
		}
		if kv.Value.Type() == attribute.STRING {
			if v := kv.Value.AsString(); len(v) > maxAttributeLen {
				out = append(out, attribute.String(string(kv.Key), v[:maxAttributeLen]))
				continue
			}
		}
		out = append(out, kv)
	}
	return out
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, marker := range strings.Split(sensitiveMarkers, ",") {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
