package conversation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/assistant"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/application/store"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/catalog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/dialog"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/memory"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/pkg/fuzzy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCatalog struct {
	categories []string
	items      map[string][]catalog.Item
}

func (f *fakeCatalog) ListCategories(context.Context) ([]string, error) {
	return f.categories, nil
}

func (f *fakeCatalog) ListItems(_ context.Context, category string) ([]catalog.Item, error) {
	return f.items[category], nil
}

type fakeBilling struct {
	mu     sync.Mutex
	orders []billing.Order
	err    error
}

func (f *fakeBilling) CreateBill(_ context.Context, o billing.Order) (billing.Bill, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.orders = append(f.orders, o)
	return billing.Bill{"bill_id": "B-1"}, nil
}

type fakeAssistant struct {
	result *assistant.Result
	err    error
	calls  int
}

func (f *fakeAssistant) Enabled() bool { return true }

func (f *fakeAssistant) Handle(context.Context, string, string) (*assistant.Result, error) {
	f.calls++
	return f.result, f.err
}

type fixture struct {
	conv     *Conversation
	store    *store.Store
	states   *memory.ConversationRepository
	billing  *fakeBilling
	assist   *fakeAssistant
	sessions *memory.SessionRepository
}

func newFixture(t *testing.T, withAssistant bool) *fixture {
	t.Helper()
	cat := &fakeCatalog{
		categories: []string{"Fruits", "Dry Fruits", "Vegetables"},
		items: map[string][]catalog.Item{
			"Fruits":     {{Name: "Apple", Price: 120}, {Name: "Banana", Price: 60}},
			"Vegetables": {{Name: "Potato", Price: 80}},
		},
	}
	f := &fixture{
		states:   memory.NewConversationRepository(),
		billing:  &fakeBilling{},
		sessions: memory.NewSessionRepository(),
	}
	f.store = store.New(f.sessions, f.billing, observability.Nop())
	d := dispatcher.New(f.store, cat, observability.Nop())

	var a Assistant
	if withAssistant {
		f.assist = &fakeAssistant{}
		a = f.assist
	}
	f.conv = New(d, a, f.states, fuzzy.New(fuzzy.DefaultThreshold, fuzzy.Best), observability.Nop())
	return f
}

func (f *fixture) say(t *testing.T, text string) string {
	t.Helper()
	reply, err := f.conv.Respond(context.Background(), "s1", text)
	require.NoError(t, err)
	return reply
}

func (f *fixture) step(t *testing.T) *dialog.State {
	t.Helper()
	st, err := f.states.Get(context.Background(), "s1")
	require.NoError(t, err)
	return st
}

func (f *fixture) login(t *testing.T) string {
	t.Helper()
	f.say(t, "hi")
	f.say(t, "Ali")
	f.say(t, "0300-1234567")
	return f.say(t, "Lahore")
}

func TestRespond_LoginSequence(t *testing.T) {
	f := newFixture(t, false)

	assert.Equal(t, dispatcher.GreetingText, f.say(t, "hello"))
	assert.Equal(t, dialog.StepAwaitingName, f.step(t).Step)

	assert.Contains(t, f.say(t, "Ali"), "phone")
	assert.Equal(t, dialog.StepAwaitingPhone, f.step(t).Step)

	assert.Contains(t, f.say(t, "12345"), "Invalid phone")
	assert.Equal(t, dialog.StepAwaitingPhone, f.step(t).Step)

	f.say(t, "0300-1234567")
	st := f.step(t)
	assert.Equal(t, dialog.StepAwaitingAddress, st.Step)
	assert.Equal(t, "03001234567", st.Draft.Phone)

	reply := f.say(t, "Lahore")
	assert.Contains(t, reply, "Welcome Ali!")
	assert.Contains(t, reply, "Dry Fruits")
	assert.Equal(t, dialog.StepLoggedIn, f.step(t).Step)
	assert.Empty(t, f.step(t).Draft)

	user, ok, err := f.store.Session(context.Background(), "s1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "03001234567", user.Phone)
}

func TestRespond_CategorySelectionThenAdd(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)

	reply := f.say(t, "fruit")
	assert.Contains(t, reply, "Items in Fruits")
	require.NotNil(t, f.step(t).Pending)
	assert.Equal(t, "Fruits", f.step(t).Pending.Category)

	assert.Contains(t, f.say(t, "add 2 aple"), "Added 2 x Apple to cart")
	assert.Contains(t, f.say(t, "apple 3"), "Updated Apple quantity to 5")
	assert.Contains(t, f.say(t, "Banana"), "Added 1 x Banana to cart")

	view, err := f.store.ViewCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 5*120.0+60, view.Total)

	reply = f.say(t, "vegetables")
	assert.Contains(t, reply, "Potato")
	assert.Equal(t, "Vegetables", f.step(t).Pending.Category)
	assert.Contains(t, f.say(t, "add apple"), "not in Vegetables")
}

func TestRespond_AddWithoutCategory(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)

	assert.Contains(t, f.say(t, "add 2 apple"), "Pick a category first")
}

func TestRespond_CheckoutFlow(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)

	assert.Contains(t, f.say(t, "checkout"), "cart is empty")
	assert.False(t, f.step(t).AwaitingPayment)

	f.say(t, "Fruits")
	f.say(t, "apple 2")

	reply := f.say(t, "checkout")
	assert.Contains(t, reply, "Total: Rs 240")
	assert.Contains(t, reply, "Choose a payment method")
	assert.True(t, f.step(t).AwaitingPayment)

	assert.Contains(t, f.say(t, "bitcoin"), "Please choose 1 or 2")
	assert.True(t, f.step(t).AwaitingPayment)

	reply = f.say(t, "2")
	assert.Contains(t, reply, "Checkout successful")
	assert.Contains(t, reply, "Online Transfer")
	assert.Contains(t, reply, "bill_id: B-1")
	st := f.step(t)
	assert.False(t, st.AwaitingPayment)
	assert.Nil(t, st.Pending)

	require.Len(t, f.billing.orders, 1)
	assert.Equal(t, session.PaymentOnlineTransfer, f.billing.orders[0].User.PaymentMethod)
	assert.Contains(t, f.say(t, "cart"), "cart is empty")
}

func TestRespond_CheckoutUpstreamFailureKeepsCart(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)
	f.say(t, "Fruits")
	f.say(t, "apple")
	f.say(t, "checkout")

	f.billing.err = shoperr.Upstream("billing service unavailable", errors.New("refused"))
	reply := f.say(t, "1")
	assert.Contains(t, reply, "billing service unavailable")
	assert.False(t, f.step(t).AwaitingPayment)

	view, err := f.store.ViewCart(context.Background(), "s1")
	require.NoError(t, err)
	assert.Len(t, view.Lines, 1)
}

func TestRespond_CancelCheckout(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)
	f.say(t, "Fruits")
	f.say(t, "apple")
	f.say(t, "checkout")

	assert.Contains(t, f.say(t, "cancel"), "Checkout cancelled")
	assert.False(t, f.step(t).AwaitingPayment)
	assert.Empty(t, f.billing.orders)
}

func TestRespond_LogoutRestartsLogin(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)

	reply := f.say(t, "logout")
	assert.Contains(t, reply, dispatcher.LogoutText)
	assert.Equal(t, dialog.StepAwaitingName, f.step(t).Step)

	_, ok, err := f.store.Session(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRespond_ExpiredSessionRestartsLogin(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)
	f.say(t, "Fruits")
	require.NoError(t, f.sessions.Delete(context.Background(), "s1"))

	assert.Contains(t, f.say(t, "apple"), "Please login again")
	assert.Equal(t, dialog.StepAwaitingName, f.step(t).Step)
}

func TestRespond_UnknownTextWithoutAssistant(t *testing.T) {
	f := newFixture(t, false)
	f.login(t)

	assert.Equal(t, notUnderstood, f.say(t, "what's the weather"))
	assert.Equal(t, HelpText, f.say(t, "help"))
}

func TestRespond_FallsBackToAssistant(t *testing.T) {
	f := newFixture(t, true)
	f.login(t)

	f.assist.result = &assistant.Result{
		Action: dispatcher.ActionListItems,
		Response: dispatcher.ItemsResponse{
			Category: "Fruits",
			Items:    []catalog.Item{{Name: "Apple", Price: 120}},
		},
	}
	reply := f.say(t, "show me something sweet")
	assert.Equal(t, 1, f.assist.calls)
	assert.Contains(t, reply, "Apple")
	require.NotNil(t, f.step(t).Pending)
	assert.Equal(t, "Fruits", f.step(t).Pending.Category)

	f.assist.result, f.assist.err = nil, shoperr.Upstream("intent classifier unavailable", assistant.ErrNoClassifier)
	assert.Equal(t, notUnderstood, f.say(t, "tell me a joke"))
}

func TestParseAdd(t *testing.T) {
	cases := []struct {
		in       string
		name     string
		qty      int
		explicit bool
	}{
		{"add 2 apple", "apple", 2, true},
		{"add apple", "apple", 1, true},
		{"add green apple 3", "green apple", 3, true},
		{"apple 4", "apple", 4, false},
		{"3 apples", "apples", 3, false},
		{"dry fruits", "dry fruits", 1, false},
		{"apple", "apple", 1, false},
	}
	for _, tc := range cases {
		name, qty, explicit := parseAdd(tc.in)
		assert.Equal(t, tc.name, name, tc.in)
		assert.Equal(t, tc.qty, qty, tc.in)
		assert.Equal(t, tc.explicit, explicit, tc.in)
	}
}
