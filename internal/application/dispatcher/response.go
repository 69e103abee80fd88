package dispatcher

import (
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
)

const (
	GreetingText  = "Assalamoalikum! 🙏\n🤖: Welcome! Please login to continue shopping.\n🤖: What's your name?"
	EmptyCartText = "🛒 Your cart is empty."
	LogoutText    = "Logged out and cart cleared."
	CheckoutText  = "Checkout successful"
)

type MessageResponse struct {
	Message string `json:"message"`
}

type LoginResponse struct {
	Message string       `json:"message"`
	User    session.User `json:"user"`
}

type CategoriesResponse struct {
	Categories []string `json:"categories"`
}

type ItemsResponse struct {
	Category string         `json:"category"`
	Items    []catalog.Item `json:"items"`
}

type AddToCartResponse struct {
	Message  string `json:"message"`
	Item     string `json:"item"`
	Quantity int    `json:"quantity"`
}

type CartResponse struct {
	Message string          `json:"message,omitempty"`
	Items   []cart.ViewLine `json:"items,omitempty"`
	Total   float64         `json:"total"`
	Empty   bool            `json:"empty"`
}

type CheckoutResponse struct {
	Message       string                `json:"message"`
	PaymentMethod session.PaymentMethod `json:"payment_method"`
	Bill          billing.Bill          `json:"bill"`
}
