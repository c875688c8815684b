package bookings

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/auth"
	otelx "github.com/suavhq/suav/libs/otel"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/availability"
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const maxDuration = 24 * time.Hour

var tracer = otelx.Tracer("booking-service/bookings")

func (s *Service) start(ctx context.Context, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "bookings."+op)
}

func (s *Service) finish(span trace.Span, op string, err error) {
	if err != nil && !apperr.Is(err, apperr.KindNotModified) {
		span.RecordError(err)
	}
	span.End()
	s.metrics.ObserveOperation(op, outcome(err))
}

func rollback(ctx context.Context, tx pgx.Tx) {
	_ = tx.Rollback(ctx)
}

// Availability lists bookable start times for the merchant behind username over
// the seven dates beginning at startDate.
func (s *Service) Availability(ctx context.Context, username string, startDate clock.Date, durationMinutes int) (res Availability, err error) {
	ctx, span := s.start(ctx, "availability")
	defer func() { s.finish(span, "availability", err) }()

	duration := time.Duration(durationMinutes) * time.Minute
	if duration <= 0 || duration > maxDuration {
		return Availability{}, apperr.Validation("duration_minutes must be between 1 and %d", int(maxDuration/time.Minute))
	}
	m, err := s.merchants.GetByUsername(ctx, s.db, strings.ToLower(strings.TrimSpace(username)))
	if err != nil {
		return Availability{}, storageError(err, "merchant")
	}
	loc, err := m.Schedule.Location()
	if err != nil {
		return Availability{}, apperr.Wrap(apperr.KindInternal, err, "stored schedule is unusable")
	}

	from := clock.Anchor(startDate, clock.TimeOfDay{}, loc).Add(-maxDuration)
	to := clock.Anchor(startDate.AddDays(availability.HorizonDays+1), clock.TimeOfDay{}, loc)
	existing, err := s.bookings.ListActive(ctx, s.db, m.ID, from, to)
	if err != nil {
		return Availability{}, storageError(err, "bookings")
	}

	began := time.Now()
	slots, err := availability.Generate(m.Schedule, duration, startDate, existing, availability.Options{NotBefore: s.now()})
	s.metrics.ObserveSlotGeneration(time.Since(began))
	if err != nil {
		return Availability{}, apperr.Wrap(apperr.KindInternal, err, "slot generation failed")
	}

	out := make(map[string][]clock.TimeOfDay, len(slots))
	for d, ts := range slots {
		out[d.String()] = ts
	}
	return Availability{
		Username:        m.Username,
		Timezone:        loc.String(),
		DurationMinutes: durationMinutes,
		Slots:           out,
	}, nil
}

type CreateRequest struct {
	ServiceID       model.ServiceID
	AppointmentDate time.Time
	CustomerPhone   string
	IdempotencyKey  string
}

// Create books the service for the caller. A request repeated with the same
// idempotency key returns the stored response and replayed is true.
func (s *Service) Create(ctx context.Context, who auth.Identity, req CreateRequest) (resp CreateResponse, replayed bool, err error) {
	ctx, span := s.start(ctx, "create")
	defer func() { s.finish(span, "create", err) }()
	span.SetAttributes(attribute.String("service_id", string(req.ServiceID)))

	if req.ServiceID == "" {
		return CreateResponse{}, false, apperr.Validation("service_id is required")
	}
	if req.AppointmentDate.IsZero() {
		return CreateResponse{}, false, apperr.Validation("appointment_date is required")
	}

	svc, err := s.services.Get(ctx, s.db, req.ServiceID)
	if err != nil {
		return CreateResponse{}, false, storageError(err, "service")
	}
	m, err := s.merchants.Get(ctx, s.db, svc.MerchantID)
	if err != nil {
		return CreateResponse{}, false, storageError(err, "merchant")
	}

	window := clock.NewInterval(req.AppointmentDate, svc.Duration())
	if window.Start.Before(s.now()) {
		return CreateResponse{}, false, apperr.Conflict("appointment_date is in the past")
	}
	if !m.Schedule.Admits(window) {
		return CreateResponse{}, false, apperr.Validation("requested time is outside the merchant's availability")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return CreateResponse{}, false, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	var key storage.IdempotencyRecord
	if req.IdempotencyKey != "" {
		key, err = s.idempotency.Lock(ctx, tx, who.Subject, req.IdempotencyKey)
		if err != nil {
			return CreateResponse{}, false, fmt.Errorf("lock idempotency key: %w", err)
		}
		if key.Completed() {
			if err := json.Unmarshal(key.ResponsePayload, &resp); err != nil {
				return CreateResponse{}, false, fmt.Errorf("decode stored response: %w", err)
			}
			return resp, true, nil
		}
	}

	// Booking writes of one merchant are serialized on the merchant row.
	if _, err := s.merchants.Lock(ctx, tx, m.ID); err != nil {
		return CreateResponse{}, false, storageError(err, "merchant")
	}
	existing, err := s.bookings.ListActive(ctx, tx, m.ID, window.Start, window.End)
	if err != nil {
		return CreateResponse{}, false, storageError(err, "bookings")
	}
	if availability.HasConflict(window, existing) {
		return CreateResponse{}, false, apperr.Conflict("time slot already booked")
	}

	b := model.Booking{
		CustomerID:    who.Subject,
		CustomerEmail: who.Email,
		CustomerPhone: strings.TrimSpace(req.CustomerPhone),
		MerchantID:    m.ID,
		ServiceID:     svc.ID,
		StartTime:     window.Start.UTC(),
		EndTime:       window.End.UTC(),
		AmountMinor:   svc.PriceMinor,
		Currency:      svc.Currency,
	}
	b.SetState(lifecycle.Initial())
	if err := s.bookings.Insert(ctx, tx, &b); err != nil {
		return CreateResponse{}, false, storageError(err, "booking")
	}
	span.SetAttributes(attribute.String("booking_id", string(b.ID)))

	if s.gateway != nil {
		session, err := s.checkout(ctx, b, m, svc)
		if err != nil {
			return CreateResponse{}, false, err
		}
		if err := s.bookings.SetCheckoutSession(ctx, tx, b.ID, session.ID); err != nil {
			return CreateResponse{}, false, storageError(err, "booking")
		}
		b.CheckoutSessionID = session.ID
		resp.Checkout = &session
	}
	resp.Booking = ViewOf(b)

	if err := s.emit(ctx, tx, TopicCreated, b, who.Subject); err != nil {
		return CreateResponse{}, false, fmt.Errorf("outbox: %w", err)
	}

	if req.IdempotencyKey != "" {
		payload, err := json.Marshal(resp)
		if err != nil {
			return CreateResponse{}, false, err
		}
		key.BookingID = string(b.ID)
		key.StatusCode = http.StatusCreated
		key.ResponsePayload = payload
		if err := s.idempotency.Finalize(ctx, tx, key); err != nil {
			return CreateResponse{}, false, fmt.Errorf("finalize idempotency key: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return CreateResponse{}, false, storageError(err, "booking")
	}
	s.logger.InfoContext(ctx, "booking created",
		slog.String("booking_id", string(b.ID)),
		slog.String("merchant_id", string(m.ID)),
		slog.String("customer_id", b.CustomerID),
	)
	return resp, false, nil
}

func (s *Service) checkout(ctx context.Context, b model.Booking, m model.Merchant, svc model.Service) (payments.CheckoutSession, error) {
	began := time.Now()
	session, err := s.gateway.CreateCheckout(ctx, payments.CheckoutRequest{
		BookingID:        string(b.ID),
		CustomerEmail:    b.CustomerEmail,
		ServiceName:      svc.Name,
		Description:      svc.Description,
		AmountMinor:      svc.PriceMinor,
		Currency:         svc.Currency,
		ConnectedAccount: m.PaymentsAccountID,
	})
	s.metrics.ObserveCheckout(time.Since(began))
	if err != nil {
		s.logger.ErrorContext(ctx, "checkout session failed",
			slog.String("booking_id", string(b.ID)),
			slog.Any("err", err),
		)
		return payments.CheckoutSession{}, apperr.Upstream(err, "payment provider rejected the checkout session")
	}
	return session, nil
}

// CheckoutStatus reports the provider's view of a checkout session. Only the
// customer of the booking the session pays for may see it.
func (s *Service) CheckoutStatus(ctx context.Context, who auth.Identity, sessionID string) (st payments.CheckoutStatus, err error) {
	ctx, span := s.start(ctx, "checkout_status")
	defer func() { s.finish(span, "checkout_status", err) }()

	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return payments.CheckoutStatus{}, apperr.Validation("session_id is required")
	}
	if s.gateway == nil {
		return payments.CheckoutStatus{}, apperr.Upstream(payments.ErrNotConfigured, "payments are not configured")
	}
	b, err := s.bookings.GetByCheckoutSession(ctx, s.db, sessionID)
	if err != nil {
		return payments.CheckoutStatus{}, storageError(err, "checkout session")
	}
	if b.CustomerID != who.Subject {
		return payments.CheckoutStatus{}, apperr.Unauthorized("not allowed to view this checkout session")
	}
	st, err = s.gateway.CheckoutStatus(ctx, sessionID)
	if err != nil {
		return payments.CheckoutStatus{}, apperr.Upstream(err, "checkout session lookup failed")
	}
	st.BookingID = string(b.ID)
	return st, nil
}
