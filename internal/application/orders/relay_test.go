package orders

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-assistant/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	handlers map[string]domoutbox.Handler
}

func (c *captureSubscriber) Subscribe(name string, h domoutbox.Handler) {
	if c.handlers == nil {
		c.handlers = map[string]domoutbox.Handler{}
	}
	c.handlers[name] = h
}

type captureSink struct {
	sent []Message
	err  error
}

func (s *captureSink) Send(_ context.Context, msg Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *captureSink) Close() error { return nil }

type otherEvent struct{}

func (otherEvent) EventName() string { return "checkout.completed" }

func TestRelay_ForwardsCheckoutCompleted(t *testing.T) {
	sub := &captureSubscriber{}
	sink := &captureSink{}
	NewRelay(sub, sink, observability.Nop()).Start()

	h, ok := sub.handlers["checkout.completed"]
	require.True(t, ok)

	evt := cart.CheckoutCompletedEvent{EventID: "evt-1", SessionID: "s1", PaymentMethod: "Cash on Delivery", Total: 360}
	require.NoError(t, h(context.Background(), evt))

	require.Len(t, sink.sent, 1)
	msg := sink.sent[0]
	assert.Equal(t, "s1", msg.Key)
	assert.Equal(t, "checkout.completed", msg.EventType)

	var decoded cart.CheckoutCompletedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "s1", decoded.SessionID)
	assert.InDelta(t, 360, decoded.Total, 1e-9)
}

func TestRelay_KeysBySessionThenEventID(t *testing.T) {
	sub := &captureSubscriber{}
	sink := &captureSink{}
	NewRelay(sub, sink, observability.Nop()).Start()
	h := sub.handlers["checkout.completed"]

	require.NoError(t, h(context.Background(), cart.CheckoutCompletedEvent{EventID: "evt-1", SessionID: "s1"}))
	require.NoError(t, h(context.Background(), cart.CheckoutCompletedEvent{EventID: "evt-2", SessionID: "s1"}))
	require.NoError(t, h(context.Background(), cart.CheckoutCompletedEvent{EventID: "evt-3"}))

	require.Len(t, sink.sent, 3)
	assert.Equal(t, "s1", sink.sent[0].Key)
	assert.Equal(t, sink.sent[0].Key, sink.sent[1].Key)
	assert.Equal(t, "evt-3", sink.sent[2].Key)
}

func TestRelay_IgnoresForeignPayloads(t *testing.T) {
	sub := &captureSubscriber{}
	sink := &captureSink{}
	NewRelay(sub, sink, observability.Nop()).Start()

	require.NoError(t, sub.handlers["checkout.completed"](context.Background(), otherEvent{}))
	assert.Empty(t, sink.sent)
}

func TestRelay_SinkFailure(t *testing.T) {
	sub := &captureSubscriber{}
	sink := &captureSink{err: errors.New("broker down")}
	NewRelay(sub, sink, observability.Nop()).Start()

	err := sub.handlers["checkout.completed"](context.Background(), cart.CheckoutCompletedEvent{SessionID: "s1"})
	assert.ErrorContains(t, err, "broker down")
}

func TestLogSink(t *testing.T) {
	s := NewLogSink(nil)
	assert.NoError(t, s.Send(context.Background(), Message{Key: "k", EventType: "checkout.completed"}))
	assert.NoError(t, s.Close())
}
