package workerpresentation

import (
	"context"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability/logctx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
)

type captureLogger struct {
	fields []observability.Field
}

func (c *captureLogger) With(fields ...observability.Field) observability.Logger {
	return &captureLogger{fields: append(append([]observability.Field(nil), c.fields...), fields...)}
}
func (c *captureLogger) Debug(string, ...observability.Field) {}
func (c *captureLogger) Info(string, ...observability.Field)  {}
func (c *captureLogger) Warn(string, ...observability.Field)  {}
func (c *captureLogger) Error(string, ...observability.Field) {}

func fieldMap(l observability.Logger) map[string]any {
	out := map[string]any{}
	for _, f := range l.(*captureLogger).fields {
		out[f.Key] = f.Value
	}
	return out
}

func TestEventDecorator_BindsEventIdentity(t *testing.T) {
	decorate := EventDecorator(&captureLogger{})
	ctx := decorate(context.Background(), cart.CheckoutCompletedEvent{EventID: "evt-1"})

	logger := logctx.From(ctx)
	require.NotNil(t, logger)
	fields := fieldMap(logger)
	assert.Equal(t, "evt-1", fields["event_id"])
	assert.Equal(t, "checkout.completed", fields["event"])
	assert.NotContains(t, fields, "trace_id")
}

func TestWithEventContext_GeneratesIDAndAddsTrace(t *testing.T) {
	tid := trace.TraceID{1}
	sid := trace.SpanID{2}
	ctx := WithEventContext(context.Background(), &captureLogger{}, tid, sid, map[string]string{"sink": "kafka", "empty": ""})

	fields := fieldMap(logctx.From(ctx))
	assert.NotEmpty(t, fields["event_id"])
	assert.Equal(t, tid.String(), fields["trace_id"])
	assert.Equal(t, sid.String(), fields["span_id"])
	assert.Equal(t, "kafka", fields["sink"])
	assert.NotContains(t, fields, "empty")
}
