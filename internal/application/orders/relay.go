package orders

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-assistant/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	relayService         = "order-relay"
	useCaseRelayCheckout = "orders.relay_checkout_completed"
)

// Message is one event ready for an external sink.
type Message struct {
	Key       string
	EventType string
	Value     []byte
}

// Sink delivers relayed events outside the process.
type Sink interface {
	Send(ctx context.Context, msg Message) error
	Close() error
}

// Relay forwards checkout.completed events from the in-process bus to a Sink.
// Failures stay off the shopper's path; the bus logs them.
type Relay struct {
	subscriber domoutbox.Subscriber
	sink       Sink
	probe      application.Probe
}

func NewRelay(subscriber domoutbox.Subscriber, sink Sink, tel observability.Observability) *Relay {
	return &Relay{
		subscriber: subscriber,
		sink:       sink,
		probe:      application.NewProbe(tel, relayService),
	}
}

func (r *Relay) Start() {
	if r.subscriber == nil || r.sink == nil {
		return
	}
	r.subscriber.Subscribe(cart.CheckoutCompletedEvent{}.EventName(), r.handleCheckoutCompleted)
}

func (r *Relay) handleCheckoutCompleted(ctx context.Context, e domoutbox.Event) (err error) {
	evt, ok := e.(cart.CheckoutCompletedEvent)
	if !ok {
		return nil
	}

	ctx, run := r.probe.Begin(ctx, useCaseRelayCheckout, "RelayCheckoutCompleted",
		attribute.String("event", e.EventName()),
		attribute.String("event.id", evt.EventID),
	)
	defer func() { run.End(err) }()
	run.Note(observability.F("event_id", evt.EventID))

	value, err := json.Marshal(evt)
	if err != nil {
		run.Fail("ENCODE_FAILED")
		return fmt.Errorf("orders: encode %s: %w", e.EventName(), err)
	}

	// One session's events share a key, so they land on one partition in order.
	key := evt.SessionID
	if key == "" {
		key = evt.EventID
	}
	if err := r.sink.Send(ctx, Message{Key: key, EventType: e.EventName(), Value: value}); err != nil {
		run.Fail("SINK_SEND_FAILED")
		return fmt.Errorf("orders: relay %s: %w", e.EventName(), err)
	}
	return nil
}

// LogSink records events in the log when no broker is configured.
type LogSink struct {
	log observability.Logger
}

func NewLogSink(logger observability.Logger) *LogSink {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogSink{log: logger.With(observability.F("component", "order_log_sink"))}
}

func (s *LogSink) Send(_ context.Context, msg Message) error {
	s.log.Info("order_event_relayed",
		observability.F("event", msg.EventType),
		observability.F("key", msg.Key),
		observability.F("bytes", len(msg.Value)),
	)
	return nil
}

func (s *LogSink) Close() error { return nil }
