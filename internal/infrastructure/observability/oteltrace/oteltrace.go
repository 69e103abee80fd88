package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type tracer struct{ t trace.Tracer }

// New returns a tracer backed by the global OpenTelemetry provider. Spans are
// dropped until a TracerProvider with an exporter is installed via otel.SetTracerProvider.
func New(name string) observability.Tracer {
	if name == "" {
		name = "minishop-assistant"
	}
	return &tracer{t: otel.Tracer(name)}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}
