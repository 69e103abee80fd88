package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	domoutbox "github.com/Zhima-Mochi/minishop-assistant/internal/domain/outbox"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	storeService = "session-store"

	useCaseLogin    = "session.login"
	useCaseLogout   = "session.logout"
	useCaseAddItem  = "cart.add_item"
	useCaseViewCart = "cart.view"
	useCaseCheckout = "cart.checkout"

	publishPeer     = "outbox"
	publishEndpoint = "checkout.completed"
	publishTimeout  = 300 * time.Millisecond
)

var ErrSessionIDRequired = shoperr.Unauthorized("session id is required")

// Store owns every session and cart. Operations on one session ID are
// serialized; different session IDs proceed in parallel.
type Store struct {
	repo      session.Repository
	billing   billing.Service
	publisher domoutbox.Publisher
	ids       IDGenerator
	policy    session.PhonePolicy
	locks     *keyLock
	probe     application.Probe

	extCounter   observability.Counter   // external_requests_total{peer,endpoint,outcome}
	extHistogram observability.Histogram // external_request_duration_seconds{peer,endpoint}
}

type Option func(*Store)

// WithPhonePolicy sets the phone validation applied by Login.
func WithPhonePolicy(p session.PhonePolicy) Option {
	return func(s *Store) { s.policy = p }
}

// WithPublisher publishes checkout.completed after every successful checkout.
func WithPublisher(p domoutbox.Publisher, ids IDGenerator) Option {
	return func(s *Store) {
		s.publisher = p
		s.ids = ids
	}
}

func New(repo session.Repository, bill billing.Service, tel observability.Observability, opts ...Option) *Store {
	_, _, metrics := observability.Parts(tel)
	s := &Store{
		repo:         repo,
		billing:      bill,
		policy:       session.PhoneStandard,
		locks:        newKeyLock(),
		probe:        application.NewProbe(tel, storeService),
		extCounter:   metrics.Counter(observability.MExternalRequests),
		extHistogram: metrics.Histogram(observability.MExternalRequestDuration),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) load(ctx context.Context, sid string) (*session.State, error) {
	st, err := s.repo.Get(ctx, sid)
	if errors.Is(err, session.ErrNotFound) {
		return &session.State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load session: %w", err)
	}
	return st, nil
}

func (s *Store) save(ctx context.Context, sid string, st *session.State) error {
	if err := s.repo.Save(ctx, sid, st); err != nil {
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

// Login validates details, replaces any existing session and clears the cart.
func (s *Store) Login(ctx context.Context, sid string, d session.Details) (_ *session.User, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseLogin, "Login", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	if sid == "" {
		run.Fail("SESSION_ID_REQUIRED")
		return nil, ErrSessionIDRequired
	}
	user, err := session.NewUser(d, s.policy)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}

	defer s.locks.Lock(sid)()

	if err := s.save(ctx, sid, &session.State{User: user}); err != nil {
		run.Fail("REPO_SAVE_FAILED")
		return nil, err
	}
	return user.Clone(), nil
}

// Logout drops the session and its cart. It succeeds when no session exists.
func (s *Store) Logout(ctx context.Context, sid string) (err error) {
	ctx, run := s.probe.Begin(ctx, useCaseLogout, "Logout", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	if sid == "" {
		return nil
	}
	defer s.locks.Lock(sid)()

	if err := s.repo.Delete(ctx, sid); err != nil && !errors.Is(err, session.ErrNotFound) {
		run.Fail("REPO_DELETE_FAILED")
		return fmt.Errorf("store: delete session: %w", err)
	}
	return nil
}

// Session returns the logged-in user of sid, if any.
func (s *Store) Session(ctx context.Context, sid string) (*session.User, bool, error) {
	if sid == "" {
		return nil, false, nil
	}
	defer s.locks.Lock(sid)()

	st, err := s.load(ctx, sid)
	if err != nil {
		return nil, false, err
	}
	if !st.LoggedIn() {
		return nil, false, nil
	}
	return st.User.Clone(), true, nil
}

type AddItemInput struct {
	Name      string
	Quantity  int
	UnitPrice float64
}

type AddItemResult struct {
	Name     string
	Quantity int
	Created  bool
}

// AddItem requires an active session and merges repeated names into one line.
func (s *Store) AddItem(ctx context.Context, sid string, in AddItemInput) (_ *AddItemResult, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseAddItem, "AddItem",
		attribute.String("session.id", sid),
		attribute.String("cart.item", in.Name),
	)
	defer func() { run.End(err) }()

	defer s.locks.Lock(sid)()

	st, err := s.load(ctx, sid)
	if err != nil {
		run.Fail("REPO_LOAD_FAILED")
		return nil, err
	}
	if !st.LoggedIn() {
		run.Fail("NOT_LOGGED_IN")
		return nil, shoperr.Unauthorized("user not logged in")
	}

	next := st.Clone()
	qty, created, err := next.Cart.Add(in.Name, in.Quantity, in.UnitPrice)
	if err != nil {
		run.Fail("VALIDATION_FAILED")
		return nil, err
	}
	if err := s.save(ctx, sid, next); err != nil {
		run.Fail("REPO_SAVE_FAILED")
		return nil, err
	}

	run.Span().SetAttributes(attribute.Int("cart.quantity", qty))
	return &AddItemResult{Name: strings.TrimSpace(in.Name), Quantity: qty, Created: created}, nil
}

// ViewCart never fails for a missing session; it reports an empty cart instead.
func (s *Store) ViewCart(ctx context.Context, sid string) (_ cart.View, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseViewCart, "ViewCart", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	if sid == "" {
		return cart.View{Empty: true}, nil
	}
	defer s.locks.Lock(sid)()

	st, err := s.load(ctx, sid)
	if err != nil {
		run.Fail("REPO_LOAD_FAILED")
		return cart.View{}, err
	}
	return st.Cart.View(), nil
}

type CheckoutResult struct {
	PaymentMethod session.PaymentMethod
	Bill          billing.Bill
}

// Checkout bills the cart and clears it. Nothing changes unless billing succeeds.
func (s *Store) Checkout(ctx context.Context, sid string, paymentMethod string) (_ *CheckoutResult, err error) {
	ctx, run := s.probe.Begin(ctx, useCaseCheckout, "Checkout", attribute.String("session.id", sid))
	defer func() { run.End(err) }()

	defer s.locks.Lock(sid)()

	st, err := s.load(ctx, sid)
	if err != nil {
		run.Fail("REPO_LOAD_FAILED")
		return nil, err
	}
	if !st.LoggedIn() {
		run.Fail("NOT_LOGGED_IN")
		return nil, shoperr.Unauthorized("user not logged in")
	}
	if st.Cart.Empty() {
		run.Fail("CART_EMPTY")
		return nil, shoperr.InvalidState("cart is empty")
	}
	method, err := session.ParsePaymentMethod(paymentMethod)
	if err != nil {
		run.Fail("PAYMENT_METHOD_INVALID")
		return nil, err
	}

	snapshot := st.Clone()
	snapshot.User.PaymentMethod = method
	order := billing.Order{User: *snapshot.User, Items: snapshot.Cart.Lines}

	bill, err := s.billing.CreateBill(ctx, order)
	if err != nil {
		run.Fail("BILLING_FAILED")
		if shoperr.KindOf(err) == shoperr.KindUpstream {
			return nil, fmt.Errorf("store: checkout: %w", err)
		}
		return nil, shoperr.Upstream("billing service failed", err)
	}
	if bill == nil {
		bill = billing.Bill{}
	}

	total := snapshot.Cart.View().Total
	snapshot.Cart.Clear()
	if err := s.save(ctx, sid, snapshot); err != nil {
		run.Fail("REPO_SAVE_FAILED")
		return nil, err
	}

	run.Span().AddEvent("checkout.completed", trace.WithAttributes(
		attribute.String("payment_method", string(method)),
		attribute.Float64("cart.total", total),
	))
	if perr := s.publishCompleted(ctx, sid, order, total, bill); perr != nil {
		run.Status("EVENT_PUBLISH_FAILED")
		run.Note(observability.F("event_publish_error", perr.Error()))
	}

	return &CheckoutResult{PaymentMethod: method, Bill: bill}, nil
}

func (s *Store) publishCompleted(ctx context.Context, sid string, order billing.Order, total float64, bill billing.Bill) error {
	if s.publisher == nil {
		return nil
	}
	evt := cart.CheckoutCompletedEvent{
		SessionID:     sid,
		CustomerName:  order.User.Name,
		CustomerPhone: order.User.Phone,
		PaymentMethod: string(order.User.PaymentMethod),
		Lines:         order.Items,
		Total:         total,
		Bill:          bill,
		OccurredAt:    time.Now().UTC(),
	}
	if s.ids != nil {
		evt.EventID = s.ids.NewID()
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	start := time.Now()
	outcome := "success"

	err := s.publisher.Publish(pubCtx, evt)
	if err != nil {
		outcome = "error"
	}

	s.extCounter.Add(1,
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
		observability.L("outcome", outcome),
	)
	s.extHistogram.Observe(time.Since(start).Seconds(),
		observability.L("peer", publishPeer),
		observability.L("endpoint", publishEndpoint),
	)
	return err
}
