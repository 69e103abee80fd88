package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/store"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	dispatcherService = "dispatcher"

	ActionGreet          = "greet"
	ActionLogin          = "login"
	ActionListCategories = "list_categories"
	ActionListItems      = "list_items"
	ActionAddToCart      = "add_to_cart"
	ActionShowCart       = "show_cart"
	ActionCheckout       = "checkout"
	ActionLogout         = "logout"
)

// Actions lists every supported action name.
var Actions = []string{
	ActionGreet, ActionLogin, ActionListCategories, ActionListItems,
	ActionAddToCart, ActionShowCart, ActionCheckout, ActionLogout,
}

// Request is one action call. Payload must be a JSON object or absent.
type Request struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Store is the session and cart state the dispatcher mutates.
type Store interface {
	Login(ctx context.Context, sid string, d session.Details) (*session.User, error)
	Logout(ctx context.Context, sid string) error
	AddItem(ctx context.Context, sid string, in store.AddItemInput) (*store.AddItemResult, error)
	ViewCart(ctx context.Context, sid string) (cart.View, error)
	Checkout(ctx context.Context, sid string, paymentMethod string) (*store.CheckoutResult, error)
}

// Catalog is the read side of the external catalog.
type Catalog interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListItems(ctx context.Context, category string) ([]catalog.Item, error)
}

type handler func(ctx context.Context, run *application.Run, sid string, p *payload) (any, error)

// Dispatcher maps (action, payload) pairs onto store operations and catalog reads.
type Dispatcher struct {
	store   Store
	catalog Catalog
	probe   application.Probe
	table   map[string]handler
}

func New(st Store, cat Catalog, tel observability.Observability) *Dispatcher {
	d := &Dispatcher{
		store:   st,
		catalog: cat,
		probe:   application.NewProbe(tel, dispatcherService),
	}
	d.table = map[string]handler{
		ActionGreet:          d.greet,
		ActionLogin:          d.login,
		ActionListCategories: d.listCategories,
		ActionListItems:      d.listItems,
		ActionAddToCart:      d.addToCart,
		ActionShowCart:       d.showCart,
		ActionCheckout:       d.checkout,
		ActionLogout:         d.logout,
	}
	return d
}

// NormalizeAction lower-cases and trims an action name.
func NormalizeAction(action string) string {
	return strings.ToLower(strings.TrimSpace(action))
}

// Dispatch runs req for session sid. Failures are always *shoperr.Error
// unless the session repository itself failed.
func (d *Dispatcher) Dispatch(ctx context.Context, sid string, req Request) (_ any, err error) {
	action := NormalizeAction(req.Action)
	h, known := d.table[action]
	useCase := "dispatch." + action
	if !known {
		useCase = "dispatch.unknown"
	}

	ctx, run := d.probe.Begin(ctx, useCase, "Dispatch",
		attribute.String("action", action),
		attribute.String("session.id", sid),
	)
	defer func() {
		if err != nil {
			run.Fail(strings.ToUpper(string(shoperr.KindOf(err))))
		}
		run.End(err)
	}()

	if !known {
		return nil, shoperr.InvalidAction("invalid action")
	}
	p, err := parsePayload(req.Payload)
	if err != nil {
		return nil, err
	}
	return h(ctx, run, sid, p)
}

func (d *Dispatcher) greet(context.Context, *application.Run, string, *payload) (any, error) {
	return MessageResponse{Message: GreetingText}, nil
}

func (d *Dispatcher) login(ctx context.Context, _ *application.Run, sid string, p *payload) (any, error) {
	details := session.Details{
		Name:    p.Text("name"),
		Phone:   p.Text("phone"),
		Address: p.Text("address"),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	user, err := d.store.Login(ctx, sid, details)
	if err != nil {
		return nil, err
	}
	return LoginResponse{Message: fmt.Sprintf("Welcome %s!", user.Name), User: *user}, nil
}

func (d *Dispatcher) listCategories(ctx context.Context, _ *application.Run, _ string, _ *payload) (any, error) {
	names, err := d.catalog.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, shoperr.Upstream("categories service unavailable", shoperr.ErrEmptyResult)
	}
	return CategoriesResponse{Categories: names}, nil
}

// listItems stays available when the catalog fails: the shopper sees an
// empty list and the degradation is logged and counted.
func (d *Dispatcher) listItems(ctx context.Context, run *application.Run, _ string, p *payload) (any, error) {
	category := strings.TrimSpace(p.Text("category_name"))
	if err := p.Err(); err != nil {
		return nil, err
	}
	if category == "" {
		return nil, shoperr.Validation(shoperr.FieldError{Field: "category_name", Message: "missing in payload"})
	}

	items, err := d.catalog.ListItems(ctx, category)
	if err != nil {
		run.Degrade("CATALOG_UNAVAILABLE")
		run.Note(observability.F("category", category))
		run.Logger().Warn("list_items_degraded",
			observability.F("category", category),
			observability.F("error", err.Error()),
		)
		items = nil
	}
	if items == nil {
		items = []catalog.Item{}
	}
	return ItemsResponse{Category: category, Items: items}, nil
}

func (d *Dispatcher) addToCart(ctx context.Context, _ *application.Run, sid string, p *payload) (any, error) {
	in := store.AddItemInput{
		Name:      p.Text("name"),
		Quantity:  p.Int("quantity"),
		UnitPrice: p.Number("price"),
	}
	if err := p.Err(); err != nil {
		return nil, err
	}
	res, err := d.store.AddItem(ctx, sid, in)
	if err != nil {
		return nil, err
	}
	msg := fmt.Sprintf("Updated %s quantity to %d", res.Name, res.Quantity)
	if res.Created {
		msg = fmt.Sprintf("Added %d x %s to cart", res.Quantity, res.Name)
	}
	return AddToCartResponse{Message: msg, Item: res.Name, Quantity: res.Quantity}, nil
}

func (d *Dispatcher) showCart(ctx context.Context, _ *application.Run, sid string, _ *payload) (any, error) {
	view, err := d.store.ViewCart(ctx, sid)
	if err != nil {
		return nil, err
	}
	if view.Empty {
		return CartResponse{Message: EmptyCartText, Empty: true}, nil
	}
	return CartResponse{Items: view.Lines, Total: view.Total}, nil
}

func (d *Dispatcher) checkout(ctx context.Context, _ *application.Run, sid string, p *payload) (any, error) {
	method := p.Text("payment_method")
	if err := p.Err(); err != nil {
		return nil, err
	}
	res, err := d.store.Checkout(ctx, sid, method)
	if err != nil {
		return nil, err
	}
	return CheckoutResponse{Message: CheckoutText, PaymentMethod: res.PaymentMethod, Bill: res.Bill}, nil
}

func (d *Dispatcher) logout(ctx context.Context, _ *application.Run, sid string, _ *payload) (any, error) {
	if err := d.store.Logout(ctx, sid); err != nil {
		return nil, err
	}
	return MessageResponse{Message: LogoutText}, nil
}
