package cart

import (
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/outbox"
)

var _ outbox.Identified = CheckoutCompletedEvent{}

// CheckoutCompletedEvent is emitted after the billing service accepted an order.
type CheckoutCompletedEvent struct {
	EventID       string         `json:"event_id"`
	SessionID     string         `json:"session_id"`
	CustomerName  string         `json:"customer_name"`
	CustomerPhone string         `json:"customer_phone"`
	PaymentMethod string         `json:"payment_method"`
	Lines         []Line         `json:"lines"`
	Total         float64        `json:"total"`
	Bill          map[string]any `json:"bill"`
	OccurredAt    time.Time      `json:"occurred_at"`
}

func (CheckoutCompletedEvent) EventName() string { return "checkout.completed" }

func (e CheckoutCompletedEvent) ID() string { return e.EventID }
