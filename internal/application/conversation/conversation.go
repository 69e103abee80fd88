// Package conversation drives the chat UI: a login prompt sequence followed
// by free-text shopping commands. Every state change goes through the
// dispatcher; this package only keeps track of where the shopper is.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/assistant"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/dialog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/pkg/fuzzy"

	"go.opentelemetry.io/otel/attribute"
)

const (
	conversationService = "conversation"
	useCaseRespond      = "conversation.respond"

	promptPhone   = "📞 Please enter your phone number (e.g. 03001234567)."
	promptAddress = "🏠 Please enter your delivery address."
	promptPayment = "💳 Choose a payment method:\n1. Cash on Delivery\n2. Online Transfer"
	notUnderstood = "🤔 Sorry, I didn't get that. Type 'help' to see what I can do."

	HelpText = "You can type:\n" +
		"• a category name to see its items\n" +
		"• 'add <qty> <item>' or '<item> <qty>' to add an item from the last category\n" +
		"• 'categories' to list categories\n" +
		"• 'cart' to see your cart\n" +
		"• 'checkout' to place the order\n" +
		"• 'logout' to sign out"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, sid string, req dispatcher.Request) (any, error)
}

// Assistant handles free text the command parser does not recognise.
type Assistant interface {
	Enabled() bool
	Handle(ctx context.Context, sid, message string) (*assistant.Result, error)
}

type Conversation struct {
	dispatcher Dispatcher
	assistant  Assistant
	states     dialog.Repository
	matcher    *fuzzy.Matcher
	probe      application.Probe

	// Respond calls are serialized; the chat UI drives one shopper at a time.
	mu sync.Mutex
}

// New wires a conversation. assistant may be nil.
func New(d Dispatcher, a Assistant, states dialog.Repository, matcher *fuzzy.Matcher, tel observability.Observability) *Conversation {
	if matcher == nil {
		matcher = fuzzy.New(fuzzy.DefaultThreshold, fuzzy.Best)
	}
	return &Conversation{
		dispatcher: d,
		assistant:  a,
		states:     states,
		matcher:    matcher,
		probe:      application.NewProbe(tel, conversationService),
	}
}

// Respond consumes one shopper message for session sid and returns the reply.
// Shopper-facing failures are folded into the reply; the returned error is
// reserved for broken infrastructure.
func (c *Conversation) Respond(ctx context.Context, sid, text string) (_ string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx, run := c.probe.Begin(ctx, useCaseRespond, "Respond", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	st, err := c.states.Get(ctx, sid)
	if errors.Is(err, dialog.ErrNotFound) {
		st, err = &dialog.State{}, nil
	}
	if err != nil {
		run.Fail("STATE_LOAD_FAILED")
		return "", fmt.Errorf("conversation: load state: %w", err)
	}
	run.Note(observability.F("login_step", int(st.Step)))

	reply, err := c.step(ctx, sid, st, strings.TrimSpace(text))
	if err != nil {
		return "", err
	}
	if err := c.states.Save(ctx, sid, st); err != nil {
		run.Fail("STATE_SAVE_FAILED")
		return "", fmt.Errorf("conversation: save state: %w", err)
	}
	return reply, nil
}

func (c *Conversation) step(ctx context.Context, sid string, st *dialog.State, text string) (string, error) {
	switch st.Step {
	case dialog.StepNotStarted:
		return c.greet(ctx, sid, st)
	case dialog.StepAwaitingName:
		if text == "" {
			return "Please enter your name.", nil
		}
		st.Draft.Name = text
		st.Step = dialog.StepAwaitingPhone
		return fmt.Sprintf("Nice to meet you, %s!\n%s", text, promptPhone), nil
	case dialog.StepAwaitingPhone:
		phone, ok := session.PhoneStrict.NormalizePhone(text)
		if !ok {
			return "❌ Invalid phone number. It must start with 03 and have 10 or 11 digits.\n" + promptPhone, nil
		}
		st.Draft.Phone = phone
		st.Step = dialog.StepAwaitingAddress
		return promptAddress, nil
	case dialog.StepAwaitingAddress:
		if text == "" {
			return promptAddress, nil
		}
		st.Draft.Address = text
		return c.login(ctx, sid, st)
	default:
		return c.shop(ctx, sid, st, text)
	}
}

func (c *Conversation) greet(ctx context.Context, sid string, st *dialog.State) (string, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionGreet, nil)
	if err != nil {
		return c.failure(st, err)
	}
	st.Reset()
	st.Step = dialog.StepAwaitingName
	return render(resp), nil
}

func (c *Conversation) login(ctx context.Context, sid string, st *dialog.State) (string, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionLogin, map[string]any{
		"name":    st.Draft.Name,
		"phone":   st.Draft.Phone,
		"address": st.Draft.Address,
	})
	if err != nil {
		if shoperr.KindOf(err) == shoperr.KindValidation {
			st.Reset()
			st.Step = dialog.StepAwaitingName
			return "❌ " + shoperr.MessageOf(err) + "\nLet's start again. What's your name?", nil
		}
		return c.failure(st, err)
	}
	st.Step = dialog.StepLoggedIn
	st.Draft = session.Details{}
	return render(resp) + "\n\n" + c.categories(ctx, sid, st), nil
}

func (c *Conversation) shop(ctx context.Context, sid string, st *dialog.State, text string) (string, error) {
	if st.AwaitingPayment {
		return c.pay(ctx, sid, st, text)
	}

	lower := strings.ToLower(text)
	switch lower {
	case "":
		return notUnderstood, nil
	case "help", "?":
		return HelpText, nil
	case "categories", "category", "menu":
		return c.categories(ctx, sid, st), nil
	case "cart", "show cart", "view cart":
		resp, err := c.dispatch(ctx, sid, dispatcher.ActionShowCart, nil)
		if err != nil {
			return c.failure(st, err)
		}
		return render(resp), nil
	case "checkout":
		return c.beginCheckout(ctx, sid, st)
	case "logout", "log out":
		resp, err := c.dispatch(ctx, sid, dispatcher.ActionLogout, nil)
		if err != nil {
			return c.failure(st, err)
		}
		st.Reset()
		st.Step = dialog.StepAwaitingName
		return render(resp) + "\n\n" + dispatcher.GreetingText, nil
	}

	if name, qty, explicit := parseAdd(text); explicit || st.Pending != nil {
		if item, ok := c.resolveItem(st, name); ok {
			return c.add(ctx, sid, st, item, qty)
		}
		if explicit {
			if st.Pending == nil {
				return "Pick a category first, then add items from it.", nil
			}
			return fmt.Sprintf("❌ %q is not in %s. %s", name, st.Pending.Category, renderItems(st.Pending.Category, st.Pending.Items)), nil
		}
	}

	if reply, ok, err := c.selectCategory(ctx, sid, st, text); ok || err != nil {
		return reply, err
	}

	if c.assistant != nil && c.assistant.Enabled() {
		return c.ask(ctx, sid, st, text)
	}
	return notUnderstood, nil
}

func (c *Conversation) categories(ctx context.Context, sid string, st *dialog.State) string {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionListCategories, nil)
	if err != nil {
		reply, _ := c.failure(st, err)
		return reply
	}
	return render(resp)
}

func (c *Conversation) selectCategory(ctx context.Context, sid string, st *dialog.State, text string) (string, bool, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionListCategories, nil)
	if err != nil {
		// Without categories only the assistant can still help.
		c.probe.Logger(ctx).Warn("category_lookup_failed", observability.F("error", err.Error()))
		return "", false, nil
	}
	cats, _ := resp.(dispatcher.CategoriesResponse)
	category, ok := c.matcher.Match(text, cats.Categories)
	if !ok {
		return "", false, nil
	}
	return c.showItems(ctx, sid, st, category)
}

func (c *Conversation) showItems(ctx context.Context, sid string, st *dialog.State, category string) (string, bool, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionListItems, map[string]any{"category_name": category})
	if err != nil {
		reply, ferr := c.failure(st, err)
		return reply, true, ferr
	}
	items, _ := resp.(dispatcher.ItemsResponse)
	st.Pending = &dialog.PendingCategorySelection{Category: items.Category, Items: items.Items}
	return render(items), true, nil
}

func (c *Conversation) resolveItem(st *dialog.State, name string) (catalog.Item, bool) {
	if st.Pending == nil || name == "" {
		return catalog.Item{}, false
	}
	names := make([]string, len(st.Pending.Items))
	for i, it := range st.Pending.Items {
		names[i] = it.Name
	}
	match, ok := c.matcher.Match(name, names)
	if !ok {
		return catalog.Item{}, false
	}
	for _, it := range st.Pending.Items {
		if it.Name == match {
			return it, true
		}
	}
	return catalog.Item{}, false
}

func (c *Conversation) add(ctx context.Context, sid string, st *dialog.State, item catalog.Item, qty int) (string, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionAddToCart, map[string]any{
		"name":     item.Name,
		"quantity": qty,
		"price":    item.Price,
	})
	if err != nil {
		return c.failure(st, err)
	}
	return render(resp), nil
}

func (c *Conversation) beginCheckout(ctx context.Context, sid string, st *dialog.State) (string, error) {
	resp, err := c.dispatch(ctx, sid, dispatcher.ActionShowCart, nil)
	if err != nil {
		return c.failure(st, err)
	}
	if cartResp, ok := resp.(dispatcher.CartResponse); ok && cartResp.Empty {
		return dispatcher.EmptyCartText + " Add something before checking out.", nil
	}
	st.AwaitingPayment = true
	return render(resp) + "\n\n" + promptPayment, nil
}

func (c *Conversation) pay(ctx context.Context, sid string, st *dialog.State, text string) (string, error) {
	method := text
	switch strings.ToLower(text) {
	case "1":
		method = string(session.PaymentCashOnDelivery)
	case "2":
		method = string(session.PaymentOnlineTransfer)
	case "cancel", "back":
		st.AwaitingPayment = false
		return "Checkout cancelled. Your cart is unchanged.", nil
	}

	resp, err := c.dispatch(ctx, sid, dispatcher.ActionCheckout, map[string]any{"payment_method": method})
	if err != nil {
		if shoperr.KindOf(err) == shoperr.KindValidation {
			return "❌ Please choose 1 or 2, or type 'cancel'.\n" + promptPayment, nil
		}
		st.AwaitingPayment = false
		return c.failure(st, err)
	}
	st.AwaitingPayment = false
	st.Pending = nil
	return render(resp), nil
}

func (c *Conversation) ask(ctx context.Context, sid string, st *dialog.State, text string) (string, error) {
	res, err := c.assistant.Handle(ctx, sid, text)
	if err != nil {
		if shoperr.Unavailable(err) {
			return notUnderstood, nil
		}
		return c.failure(st, err)
	}
	switch res.Action {
	case dispatcher.ActionLogout:
		st.Reset()
		st.Step = dialog.StepAwaitingName
		return render(res.Response) + "\n\n" + dispatcher.GreetingText, nil
	case dispatcher.ActionListItems:
		if items, ok := res.Response.(dispatcher.ItemsResponse); ok {
			st.Pending = &dialog.PendingCategorySelection{Category: items.Category, Items: items.Items}
		}
	case dispatcher.ActionCheckout:
		st.Pending = nil
	}
	return render(res.Response), nil
}

func (c *Conversation) dispatch(ctx context.Context, sid, action string, payload map[string]any) (any, error) {
	req := dispatcher.Request{Action: action}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("conversation: encode %s payload: %w", action, err)
		}
		req.Payload = raw
	}
	return c.dispatcher.Dispatch(ctx, sid, req)
}

// failure turns a dispatcher error into a reply. Only unclassified errors
// propagate.
func (c *Conversation) failure(st *dialog.State, err error) (string, error) {
	switch shoperr.KindOf(err) {
	case shoperr.KindUnauthorized:
		st.Reset()
		st.Step = dialog.StepAwaitingName
		return "🔒 Your session has ended. Please login again.\n🤖: What's your name?", nil
	case shoperr.KindUpstream:
		return "⚠️ " + shoperr.MessageOf(err) + ". Please try again in a moment.", nil
	case shoperr.KindValidation, shoperr.KindInvalidState, shoperr.KindInvalidAction:
		return "❌ " + shoperr.MessageOf(err), nil
	default:
		return "", err
	}
}

// parseAdd splits "add <qty> <item>", "<item> <qty>" and "<qty> <item>".
// explicit reports the "add" keyword; qty defaults to 1.
func parseAdd(text string) (name string, qty int, explicit bool) {
	fields := strings.Fields(text)
	if len(fields) > 0 && strings.EqualFold(fields[0], "add") {
		explicit = true
		fields = fields[1:]
	}
	qty = 1
	if len(fields) > 1 {
		if n, err := strconv.Atoi(fields[0]); err == nil {
			qty, fields = n, fields[1:]
		} else if n, err := strconv.Atoi(fields[len(fields)-1]); err == nil {
			qty, fields = n, fields[:len(fields)-1]
		}
	}
	return strings.Join(fields, " "), qty, explicit
}
