package billing

import (
	"context"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
)

// Order is the snapshot sent to the billing collaborator.
type Order struct {
	User  session.User `json:"user"`
	Items []cart.Line  `json:"items"`
}

// Bill is opaque to the shop; it is relayed to the shopper as returned.
type Bill map[string]any

type Service interface {
	CreateBill(ctx context.Context, order Order) (Bill, error)
}
