package payments

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

const testSecret = "whsec_test"

func signedEvent(t *testing.T, eventType string, object map[string]any) ([]byte, string) {
	t.Helper()
	now := time.Now()
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"created":     now.Unix(),
		"type":        eventType,
		"api_version": "2020-08-27",
		"data":        map[string]any{"object": object},
	})
	require.NoError(t, err)
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    testSecret,
		Timestamp: now,
		Scheme:    "v1",
	})
	return payload, signed.Header
}

func TestParsePaymentIntentSucceeded(t *testing.T) {
	payload, sig := signedEvent(t, "payment_intent.succeeded", map[string]any{
		"id":       "pi_1",
		"object":   "payment_intent",
		"amount":   5000,
		"currency": "usd",
		"metadata": map[string]any{"booking_id": "b-1"},
	})

	evt, ok, err := NewWebhookVerifier(testSecret, 0).Parse(payload, sig)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "evt_1", evt.ID)
	assert.Equal(t, model.BookingID("b-1"), evt.BookingID)
	assert.Equal(t, "pi_1", evt.PaymentIntentID)
	assert.Equal(t, lifecycle.EventPaymentSucceeded, evt.Lifecycle.Kind)
	assert.Equal(t, model.TransactionPayment, evt.Transaction.Type)
	assert.Equal(t, "succeeded", evt.Transaction.Status)
	assert.Equal(t, int64(5000), evt.Transaction.AmountMinor)
	assert.Equal(t, GatewayStripe, evt.Transaction.Gateway)
}

func TestParsePaymentFailedAliases(t *testing.T) {
	for _, typ := range []string{"payment_intent.payment_failed", "payment_intent.failed"} {
		payload, sig := signedEvent(t, typ, map[string]any{
			"id": "pi_2", "object": "payment_intent", "metadata": map[string]any{"booking_id": "b-2"},
		})
		evt, ok, err := NewWebhookVerifier(testSecret, 0).Parse(payload, sig)
		require.NoError(t, err, typ)
		require.True(t, ok, typ)
		assert.Equal(t, lifecycle.EventPaymentFailed, evt.Lifecycle.Kind, typ)
		assert.Equal(t, "failed", evt.Transaction.Status, typ)
	}
}

func TestParsePartialRefund(t *testing.T) {
	payload, sig := signedEvent(t, "charge.refunded", map[string]any{
		"id":              "ch_1",
		"object":          "charge",
		"amount":          5000,
		"amount_refunded": 2000,
		"currency":        "usd",
		"payment_intent":  "pi_1",
		"metadata":        map[string]any{"booking_id": "b-1"},
	})
	evt, ok, err := NewWebhookVerifier(testSecret, 0).Parse(payload, sig)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lifecycle.Event{Kind: lifecycle.EventRefunded, Partial: true}, evt.Lifecycle)
	assert.Equal(t, "pi_1", evt.PaymentIntentID)
	assert.Equal(t, "partially_refunded", evt.Transaction.Status)
	assert.Equal(t, int64(2000), evt.Transaction.AmountMinor)
}

func TestParseDispute(t *testing.T) {
	payload, sig := signedEvent(t, "charge.dispute.created", map[string]any{
		"id": "dp_1", "object": "dispute", "amount": 5000, "currency": "usd", "payment_intent": "pi_9",
	})
	evt, ok, err := NewWebhookVerifier(testSecret, 0).Parse(payload, sig)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, lifecycle.EventChargeback, evt.Lifecycle.Kind)
	assert.Equal(t, "pi_9", evt.PaymentIntentID)
	assert.Empty(t, evt.BookingID)
}

func TestParseIgnoresOtherEvents(t *testing.T) {
	payload, sig := signedEvent(t, "customer.created", map[string]any{"id": "cus_1", "object": "customer"})
	evt, ok, err := NewWebhookVerifier(testSecret, 0).Parse(payload, sig)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "customer.created", evt.Type)
}

func TestParseRejectsBadSignature(t *testing.T) {
	payload, _ := signedEvent(t, "payment_intent.succeeded", map[string]any{"id": "pi_1", "object": "payment_intent"})
	_, _, err := NewWebhookVerifier("whsec_other", 0).Parse(payload, "t=1,v1=deadbeef")
	assert.True(t, errors.Is(err, ErrInvalidSignature))
}

func testBackends(url string) *stripe.Backends {
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(url),
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	return &stripe.Backends{API: backend, Connect: backend, Uploads: backend}
}

func TestCreateCheckoutSendsBookingMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "embedded", r.Form.Get("ui_mode"))
		assert.Equal(t, "b-1", r.Form.Get("metadata[booking_id]"))
		assert.Equal(t, "b-1", r.Form.Get("payment_intent_data[metadata][booking_id]"))
		assert.Equal(t, "acct_1", r.Form.Get("payment_intent_data[transfer_data][destination]"))
		assert.Equal(t, "500", r.Form.Get("payment_intent_data[application_fee_amount]"))
		assert.Equal(t, "5000", r.Form.Get("line_items[0][price_data][unit_amount]"))
		assert.Equal(t, "checkout-b-1", r.Header.Get("Idempotency-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","client_secret":"cs_secret"}`))
	}))
	defer srv.Close()

	gw, err := NewStripeGateway(StripeConfig{
		SecretKey:         "sk_test_x",
		ReturnURL:         "https://suav.example/return",
		ApplicationFeeBPS: 1000,
		Backends:          testBackends(srv.URL),
	})
	require.NoError(t, err)

	sess, err := gw.CreateCheckout(context.Background(), CheckoutRequest{
		BookingID:        "b-1",
		ServiceName:      "Haircut",
		AmountMinor:      5000,
		Currency:         "USD",
		ConnectedAccount: "acct_1",
	})
	require.NoError(t, err)
	assert.Equal(t, CheckoutSession{ID: "cs_test_1", ClientSecret: "cs_secret"}, sess)
}

func TestCheckoutStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions/cs_test_1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_1","object":"checkout.session","status":"complete","payment_status":"paid",
			"customer_details":{"email":"c@example.com"},"metadata":{"booking_id":"b-1"}}`))
	}))
	defer srv.Close()

	gw, err := NewStripeGateway(StripeConfig{SecretKey: "sk_test_x", Backends: testBackends(srv.URL)})
	require.NoError(t, err)
	st, err := gw.CheckoutStatus(context.Background(), "cs_test_1")
	require.NoError(t, err)
	assert.Equal(t, CheckoutStatus{Status: "complete", PaymentStatus: "paid", CustomerEmail: "c@example.com", BookingID: "b-1"}, st)
}

func TestNewStripeGatewayRequiresKey(t *testing.T) {
	_, err := NewStripeGateway(StripeConfig{})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
