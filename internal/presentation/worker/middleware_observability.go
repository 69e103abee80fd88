package workerpresentation

import (
	"context"

	domoutbox "github.com/Zhima-Mochi/minishop-assistant/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
)

// WithEventContext injects an event-scoped logger for background executions.
// Dynamic fields only: trace_id/span_id (if valid), event_id (generated if empty),
// plus caller-provided low-cardinality attributes (e.g. "event", "sink").
func WithEventContext(
	ctx context.Context,
	base observability.Logger,
	traceID trace.TraceID,
	spanID trace.SpanID,
	attrs map[string]string, // keep this low-cardinality: event name, sink, topic
) context.Context {
	if base == nil {
		base = observability.NopLogger()
	}

	fields := make([]observability.Field, 0, 4+len(attrs))

	evtID := attrs["event_id"]
	if evtID == "" {
		evtID = uuid.NewString()
	}
	fields = append(fields, observability.F("event_id", evtID))

	if traceID.IsValid() {
		fields = append(fields, observability.F("trace_id", traceID.String()))
	}
	if spanID.IsValid() {
		fields = append(fields, observability.F("span_id", spanID.String()))
	}

	for k, v := range attrs {
		if k == "event_id" || v == "" {
			continue
		}
		fields = append(fields, observability.F(k, v))
	}

	return logctx.With(ctx, base.With(fields...))
}

// EventDecorator adapts WithEventContext to the event bus. The logger already
// on ctx (or base) is enriched with the event's identity.
func EventDecorator(base observability.Logger) func(context.Context, domoutbox.Event) context.Context {
	return func(ctx context.Context, e domoutbox.Event) context.Context {
		attrs := map[string]string{"event": e.EventName()}
		if id, ok := e.(domoutbox.Identified); ok {
			attrs["event_id"] = id.ID()
		}
		sc := trace.SpanContextFromContext(ctx)
		return WithEventContext(ctx, logctx.FromOr(ctx, base), sc.TraceID(), sc.SpanID(), attrs)
	}
}
