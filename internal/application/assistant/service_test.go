package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/application/dispatcher"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/intent"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	infraobs "github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubClassifier struct {
	in  intent.Intent
	err error
}

func (s stubClassifier) Classify(context.Context, string) (intent.Intent, error) {
	return s.in, s.err
}

type recordingDispatcher struct {
	got []dispatcher.Request
	err error
}

func (r *recordingDispatcher) Dispatch(_ context.Context, _ string, req dispatcher.Request) (any, error) {
	r.got = append(r.got, req)
	if r.err != nil {
		return nil, r.err
	}
	return dispatcher.MessageResponse{Message: "ok " + req.Action}, nil
}

func TestHandle_DispatchesClassifiedIntent(t *testing.T) {
	d := &recordingDispatcher{}
	svc := New(stubClassifier{in: intent.Intent{Action: "Show_Cart", Payload: json.RawMessage(`{}`)}}, d, observability.Nop())

	res, err := svc.Handle(context.Background(), "s1", "what's in my cart?")
	require.NoError(t, err)
	assert.Equal(t, "show_cart", res.Action)
	assert.False(t, res.Fallback)
	require.Len(t, d.got, 1)
	assert.Equal(t, "Show_Cart", d.got[0].Action)
}

func TestHandle_MalformedOutputFallsBackToGreet(t *testing.T) {
	reg := prometheus.NewRegistry()
	tel := infraobs.New(observability.NopTracer(), observability.NopLogger(), prometrics.New("shop", "", reg), nil)

	d := &recordingDispatcher{}
	svc := New(stubClassifier{err: fmt.Errorf("%w: not json", intent.ErrMalformedOutput)}, d, tel)

	res, err := svc.Handle(context.Background(), "s1", "hmm")
	require.NoError(t, err)
	assert.True(t, res.Fallback)
	assert.Equal(t, "greet", res.Action)
	require.Len(t, d.got, 1)
	assert.JSONEq(t, `{}`, string(d.got[0].Payload))

	count, err := testutil.GatherAndCount(reg, "shop_intent_fallback_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestHandle_TransportFailureIsUpstream(t *testing.T) {
	d := &recordingDispatcher{}
	svc := New(stubClassifier{err: errors.New("connection reset")}, d, observability.Nop())

	_, err := svc.Handle(context.Background(), "s1", "hello")
	require.ErrorIs(t, err, shoperr.ErrUpstream)
	assert.Empty(t, d.got)
}

func TestHandle_NoClassifier(t *testing.T) {
	svc := New(nil, &recordingDispatcher{}, observability.Nop())
	assert.False(t, svc.Enabled())

	_, err := svc.Handle(context.Background(), "s1", "hello")
	require.ErrorIs(t, err, shoperr.ErrUpstream)
	assert.True(t, shoperr.Unavailable(err))
}

func TestHandle_EmptyMessage(t *testing.T) {
	svc := New(stubClassifier{}, &recordingDispatcher{}, observability.Nop())
	_, err := svc.Handle(context.Background(), "s1", "   ")
	require.ErrorIs(t, err, shoperr.ErrValidation)
	assert.Equal(t, []string{"message"}, shoperr.FieldsOf(err))
}

func TestHandle_DispatchErrorPropagates(t *testing.T) {
	d := &recordingDispatcher{err: shoperr.InvalidAction("invalid action")}
	svc := New(stubClassifier{in: intent.Intent{Action: "dance"}}, d, observability.Nop())
	_, err := svc.Handle(context.Background(), "s1", "dance for me")
	assert.ErrorIs(t, err, shoperr.ErrInvalidAction)
}
