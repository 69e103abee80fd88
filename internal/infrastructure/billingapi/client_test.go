package billingapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/billing"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/cart"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/session"
	"github.com/Zhima-Mochi/minishop-assistant/internal/domain/shoperr"
	"github.com/Zhima-Mochi/minishop-assistant/internal/infrastructure/httpclient"
	"github.com/Zhima-Mochi/minishop-assistant/internal/observability"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var order = billing.Order{
	User:  session.User{Name: "Ali", Phone: "03001234567", Address: "Lahore", PaymentMethod: session.PaymentCashOnDelivery},
	Items: []cart.Line{{Name: "Apple", Quantity: 3, UnitPrice: 120}},
}

func TestCreateBill_SendsOrderShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]any{
			"name": "Ali", "phone": "03001234567", "address": "Lahore", "payment_method": "Cash on Delivery",
		}, body["user"])
		assert.Equal(t, []any{map[string]any{"name": "Apple", "quantity": 3.0, "price": 120.0}}, body["items"])
		_, _ = w.Write([]byte(`{"bill":{"total":360}}`))
	}))
	defer srv.Close()

	c := New(httpclient.New("billing", httpclient.Config{}, observability.Nop()), srv.URL)
	bill, err := c.CreateBill(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, billing.Bill{"total": 360.0}, bill)
}

func TestCreateBill_MissingBillIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}))
	defer srv.Close()

	c := New(httpclient.New("billing", httpclient.Config{}, observability.Nop()), srv.URL)
	bill, err := c.CreateBill(context.Background(), order)
	require.NoError(t, err)
	assert.Equal(t, billing.Bill{}, bill)
}

func TestCreateBill_Failure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := New(httpclient.New("billing", httpclient.Config{}, observability.Nop()), srv.URL)
	_, err := c.CreateBill(context.Background(), order)
	assert.ErrorIs(t, err, shoperr.ErrUpstream)
}
