package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/bookings"
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/merchants"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
	"github.com/suavhq/suav/services/booking-service/internal/uploads"
)

const (
	webhookSecret = "whsec_test"
	bookingUUID   = "0b6f7c1e-5d2a-4c1b-9e57-3a8f0d6c2b41"
)

type tokenVerifier struct{}

func (tokenVerifier) Verify(_ context.Context, token string) (auth.Identity, error) {
	if token != "good" {
		return auth.Identity{}, errors.New("bad token")
	}
	return auth.Identity{Subject: "cust-1", Email: "ada@example.com"}, nil
}

type stubBookings struct {
	BookingService
	err      error
	replayed bool
	gotDate  clock.Date
	gotMins  int
	gotReq   bookings.CreateRequest
	gotPage  bookings.Page
	gotID    model.BookingID
	gotWho   auth.Identity
}

func (s *stubBookings) Availability(_ context.Context, username string, d clock.Date, mins int) (bookings.Availability, error) {
	s.gotDate, s.gotMins = d, mins
	return bookings.Availability{Username: username}, s.err
}

func (s *stubBookings) Create(_ context.Context, who auth.Identity, req bookings.CreateRequest) (bookings.CreateResponse, bool, error) {
	s.gotReq = req
	if s.err != nil {
		return bookings.CreateResponse{}, false, s.err
	}
	return bookings.CreateResponse{Booking: bookings.BookingView{ID: "bk-1", CustomerID: who.Subject}}, s.replayed, nil
}

func (s *stubBookings) Cancel(_ context.Context, _ auth.Identity, id model.BookingID) (bookings.BookingView, error) {
	s.gotID = id
	return bookings.BookingView{ID: string(id), BookingStatus: "cancelled"}, s.err
}

func (s *stubBookings) CheckoutStatus(_ context.Context, who auth.Identity, _ string) (payments.CheckoutStatus, error) {
	s.gotWho = who
	return payments.CheckoutStatus{Status: "open"}, s.err
}

func (s *stubBookings) ListForCustomer(_ context.Context, _ auth.Identity, p bookings.Page) (bookings.BookingList, error) {
	s.gotPage = p
	return bookings.BookingList{Page: p.Page, PerPage: p.PerPage}, s.err
}

type stubMerchants struct {
	MerchantService
	updated bool
}

func (s *stubMerchants) UpdateSchedule(_ context.Context, _ auth.Identity, _ schedule.Weekly) (merchants.Profile, error) {
	s.updated = true
	return merchants.Profile{ID: "m-1"}, nil
}

func (s *stubMerchants) MerchantID(context.Context, auth.Identity) (model.MerchantID, error) {
	return "m-1", nil
}

func (s *stubMerchants) Delete(context.Context, auth.Identity) error { return nil }

type stubApplier struct {
	events  []payments.Event
	outcome bookings.Outcome
	err     error
}

func (s *stubApplier) ApplyPaymentEvent(_ context.Context, evt payments.Event) (bookings.Outcome, error) {
	s.events = append(s.events, evt)
	return s.outcome, s.err
}

type stubSigner struct{ owner model.MerchantID }

func (s *stubSigner) SignPut(_ context.Context, owner model.MerchantID, key, _ string) (uploads.SignedURL, error) {
	s.owner = owner
	return uploads.SignedURL{URL: "https://bucket/" + key, Method: http.MethodPut, Key: key}, nil
}

type fixture struct {
	mux       *http.ServeMux
	bookings  *stubBookings
	merchants *stubMerchants
	applier   *stubApplier
	signer    *stubSigner
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		mux:       http.NewServeMux(),
		bookings:  &stubBookings{},
		merchants: &stubMerchants{},
		applier:   &stubApplier{outcome: bookings.OutcomeApplied},
		signer:    &stubSigner{},
	}
	Routes{
		Bookings:    NewBookingHandler(f.bookings, logger),
		Merchants:   NewMerchantHandler(f.merchants, logger),
		Webhooks:    NewWebhookHandler(payments.NewWebhookVerifier(webhookSecret, 0), f.applier, logger),
		Uploads:     NewUploadHandler(f.signer, f.merchants, logger),
		RequireAuth: auth.Require(tokenVerifier{}),
	}.Register(f.mux)
	return f
}

func (f *fixture) do(method, target, body string, header ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer good")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func errorKind(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error.Kind
}

func TestAvailabilityRoute(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/v0/booking/availability/studio/2025-01-06/60", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, clock.Date{Year: 2025, Month: time.January, Day: 6}, f.bookings.gotDate)
	assert.Equal(t, 60, f.bookings.gotMins)

	rec = f.do(http.MethodGet, "/api/v0/booking/availability/studio/06-01-2025/60", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "validation_error", errorKind(t, rec))
}

func TestCreateRoute(t *testing.T) {
	f := newFixture()
	body := `{"service_id":"svc-1","appointment_date":"2025-01-06T09:00:00Z"}`

	req := httptest.NewRequest(http.MethodPost, "/api/v0/booking/create", strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	f.bookings.replayed = true
	rec = f.do(http.MethodPost, "/api/v0/booking/create", body, "Idempotency-Key", "k-1")
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "true", rec.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, "k-1", f.bookings.gotReq.IdempotencyKey)
	assert.Equal(t, model.ServiceID("svc-1"), f.bookings.gotReq.ServiceID)

	rec = f.do(http.MethodPost, "/api/v0/booking/create", `{"service_id":"svc-1","appointment_date":"tomorrow"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		kind   string
	}{
		{apperr.Conflict("time slot already booked"), http.StatusConflict, "conflict"},
		{apperr.NotFound("booking not found"), http.StatusNotFound, "not_found"},
		{apperr.Unauthorized("nope"), http.StatusUnauthorized, "unauthorized"},
		{apperr.Upstream(errors.New("stripe down"), "checkout failed"), http.StatusBadGateway, "upstream_error"},
		{errors.New("db exploded"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		f := newFixture()
		f.bookings.err = tc.err
		rec := f.do(http.MethodPut, "/api/v0/booking/cancel/"+bookingUUID, "")
		require.Equal(t, tc.status, rec.Code, tc.err.Error())
		assert.Equal(t, tc.kind, errorKind(t, rec))
		assert.NotContains(t, rec.Body.String(), "db exploded")
	}

	f := newFixture()
	f.bookings.err = apperr.NotModified("already cancelled")
	rec := f.do(http.MethodPut, "/api/v0/booking/cancel/"+bookingUUID, "")
	assert.Equal(t, http.StatusNotModified, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, model.BookingID(bookingUUID), f.bookings.gotID)
}

func TestMalformedBookingIDIsNotFound(t *testing.T) {
	for _, tc := range []struct{ method, path, body string }{
		{http.MethodGet, "/api/v0/booking/abc", ""},
		{http.MethodPost, "/api/v0/booking/request-reschedule/abc", ""},
		{http.MethodPut, "/api/v0/booking/reschedule/abc", `{"appointment_date":"2025-01-06T10:00:00Z"}`},
		{http.MethodPut, "/api/v0/booking/cancel/abc", ""},
		{http.MethodPut, "/api/v0/booking/status/abc", `{"action":"start"}`},
	} {
		f := newFixture()
		rec := f.do(tc.method, tc.path, tc.body)
		require.Equal(t, http.StatusNotFound, rec.Code, tc.path)
		assert.Equal(t, "not_found", errorKind(t, rec))
		assert.Empty(t, f.bookings.gotID, tc.path)
	}
}

func TestCheckoutStatusRequiresToken(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/v0/booking/checkout-status/cs_1", "", "Authorization", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, f.bookings.gotWho.Subject)

	rec = f.do(http.MethodGet, "/api/v0/booking/checkout-status/cs_1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cust-1", f.bookings.gotWho.Subject)
}

func TestPagingQuery(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodGet, "/api/v0/booking/customer/my-bookings?page=2&per_page=5", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookings.Page{Page: 2, PerPage: 5}, f.bookings.gotPage)

	rec = f.do(http.MethodGet, "/api/v0/booking/customer/my-bookings", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, bookings.Page{Page: 1, PerPage: 10}, f.bookings.gotPage)

	rec = f.do(http.MethodGet, "/api/v0/booking/customer/my-bookings?page=x", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func signed(t *testing.T, eventType string, object map[string]any) (string, string) {
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
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    webhookSecret,
		Timestamp: now,
		Scheme:    "v1",
	})
	return string(payload), sp.Header
}

func TestPaymentWebhook(t *testing.T) {
	intent := map[string]any{
		"id":       "pi_1",
		"object":   "payment_intent",
		"amount":   5000,
		"currency": "usd",
		"metadata": map[string]any{"booking_id": "bk-1"},
	}

	f := newFixture()
	body, sig := signed(t, "payment_intent.succeeded", intent)
	rec := f.do(http.MethodPost, "/api/webhooks/payment", body, "Stripe-Signature", sig)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"success"}`, rec.Body.String())
	require.Len(t, f.applier.events, 1)
	assert.Equal(t, model.BookingID("bk-1"), f.applier.events[0].BookingID)

	f.applier.outcome = bookings.OutcomeUnknownBooking
	rec = f.do(http.MethodPost, "/api/webhooks/stripe", body, "Stripe-Signature", sig)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(http.MethodPost, "/api/webhooks/payment", body, "Stripe-Signature", "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	f.applier.err = errors.New("connection reset")
	rec = f.do(http.MethodPost, "/api/webhooks/payment", body, "Stripe-Signature", sig)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	other, otherSig := signed(t, "customer.created", map[string]any{"id": "cus_1", "object": "customer"})
	f.applier.err = nil
	calls := len(f.applier.events)
	rec = f.do(http.MethodPost, "/api/webhooks/payment", other, "Stripe-Signature", otherSig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, f.applier.events, calls)
}

func TestUpdateAvailabilityRejectsMalformedSchedule(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodPut, "/api/v0/merchant/update/availability", `{"timezone":"UTC","daily_schedule":{}}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.False(t, f.merchants.updated)

	raw, err := schedule.Default().MarshalJSON()
	require.NoError(t, err)
	rec = f.do(http.MethodPut, "/api/v0/merchant/update/availability", string(raw))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, f.merchants.updated)
}

func TestMerchantDeleteAndUploads(t *testing.T) {
	f := newFixture()
	rec := f.do(http.MethodDelete, "/api/v0/merchant/delete", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(http.MethodPost, "/api/v0/uploads/signed-url", `{"key":"merchants/m-1/avatar.png","content_type":"image/png"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, model.MerchantID("m-1"), f.signer.owner)
}
