package conversation

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
)

func render(resp any) string {
	switch r := resp.(type) {
	case dispatcher.MessageResponse:
		return r.Message
	case dispatcher.LoginResponse:
		return "✅ " + r.Message
	case dispatcher.CategoriesResponse:
		return renderCategories(r.Categories)
	case dispatcher.ItemsResponse:
		return renderItems(r.Category, r.Items)
	case dispatcher.AddToCartResponse:
		return "🛒 " + r.Message
	case dispatcher.CartResponse:
		return renderCart(r)
	case dispatcher.CheckoutResponse:
		return renderCheckout(r)
	case nil:
		return ""
	default:
		return fmt.Sprint(r)
	}
}

func renderCategories(names []string) string {
	var b strings.Builder
	b.WriteString("📂 Available categories:")
	for _, n := range names {
		b.WriteString("\n• " + n)
	}
	b.WriteString("\nType a category name to see its items.")
	return b.String()
}

func renderItems(category string, items []catalog.Item) string {
	if len(items) == 0 {
		return fmt.Sprintf("No items available in %s right now.", category)
	}
	var b strings.Builder
	fmt.Fprintf(&b, "🛍️ Items in %s:", category)
	for i, it := range items {
		fmt.Fprintf(&b, "\n%d. %s - Rs %s", i+1, it.Name, price(it.Price))
	}
	b.WriteString("\nType 'add <qty> <item>' or '<item> <qty>' to add to your cart.")
	return b.String()
}

func renderCart(r dispatcher.CartResponse) string {
	if r.Empty {
		return dispatcher.EmptyCartText
	}
	var b strings.Builder
	b.WriteString("🛒 Your cart:")
	for _, l := range r.Items {
		fmt.Fprintf(&b, "\n• %s x %d @ Rs %s = Rs %s", l.Name, l.Quantity, price(l.Price), price(l.Subtotal))
	}
	fmt.Fprintf(&b, "\nTotal: Rs %s", price(r.Total))
	return b.String()
}

func renderCheckout(r dispatcher.CheckoutResponse) string {
	var b strings.Builder
	fmt.Fprintf(&b, "✅ %s! Payment method: %s", r.Message, r.PaymentMethod)
	if len(r.Bill) > 0 {
		b.WriteString("\n🧾 Bill:")
		writeBill(&b, r.Bill)
	}
	return b.String()
}

func writeBill(b *strings.Builder, bill billing.Bill) {
	keys := make([]string, 0, len(bill))
	for k := range bill {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "\n  %s: %v", k, bill[k])
	}
}

func price(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
