package bookings

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/availability"
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"go.opentelemetry.io/otel/attribute"
)

type role int

const (
	roleCustomer role = 1 << iota
	roleMerchant
)

// MerchantAction is a status change only the merchant may request.
type MerchantAction string

const (
	ActionReject   MerchantAction = "reject"
	ActionStart    MerchantAction = "start"
	ActionComplete MerchantAction = "complete"
	ActionNoShow   MerchantAction = "no_show"
)

var merchantActions = map[MerchantAction]lifecycle.EventKind{
	ActionReject:   lifecycle.EventReject,
	ActionStart:    lifecycle.EventStart,
	ActionComplete: lifecycle.EventComplete,
	ActionNoShow:   lifecycle.EventMarkNoShow,
}

// authorize returns the roles who holds on b.
func (s *Service) authorize(ctx context.Context, q pgx.Tx, who auth.Identity, b model.Booking, allowed role) (role, error) {
	var held role
	if b.CustomerID == who.Subject {
		held |= roleCustomer
	}
	if allowed&roleMerchant != 0 {
		m, err := s.merchants.Get(ctx, q, b.MerchantID)
		if err != nil {
			return 0, storageError(err, "merchant")
		}
		if m.OwnerID == who.Subject {
			held |= roleMerchant
		}
	}
	if held&allowed == 0 {
		return 0, apperr.Unauthorized("not allowed to change this booking")
	}
	return held, nil
}

// transition applies evt to booking id inside one transaction and emits topic.
func (s *Service) transition(ctx context.Context, who auth.Identity, id model.BookingID, allowed role, evt lifecycle.Event, topic string) (model.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return model.Booking{}, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	b, err := s.bookings.GetForUpdate(ctx, tx, id)
	if err != nil {
		return model.Booking{}, storageError(err, "booking")
	}
	if _, err := s.authorize(ctx, tx, who, b, allowed); err != nil {
		return model.Booking{}, err
	}
	next, err := lifecycle.Apply(b.State(), evt)
	if err != nil {
		return model.Booking{}, lifecycleError(err)
	}
	if err := s.bookings.UpdateState(ctx, tx, b.ID, next); err != nil {
		return model.Booking{}, storageError(err, "booking")
	}
	b.SetState(next)
	b.UpdatedAt = s.now()
	if err := s.emit(ctx, tx, topic, b, who.Subject); err != nil {
		return model.Booking{}, fmt.Errorf("outbox: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, storageError(err, "booking")
	}
	s.logger.InfoContext(ctx, "booking status changed",
		slog.String("booking_id", string(b.ID)),
		slog.String("event", string(evt.Kind)),
		slog.String("booking_status", string(next.Booking)),
		slog.String("payment_status", string(next.Payment)),
	)
	return b, nil
}

// RequestReschedule lets the merchant ask the customer to pick another time.
func (s *Service) RequestReschedule(ctx context.Context, who auth.Identity, id model.BookingID) (v BookingView, err error) {
	ctx, span := s.start(ctx, "request_reschedule")
	defer func() { s.finish(span, "request_reschedule", err) }()
	span.SetAttributes(attribute.String("booking_id", string(id)))

	b, err := s.transition(ctx, who, id, roleMerchant, lifecycle.On(lifecycle.EventRequestReschedule), TopicRescheduleRequested)
	if err != nil {
		return BookingView{}, err
	}
	return ViewOf(b), nil
}

// Cancel is allowed to the booking's customer and merchant.
func (s *Service) Cancel(ctx context.Context, who auth.Identity, id model.BookingID) (v BookingView, err error) {
	ctx, span := s.start(ctx, "cancel")
	defer func() { s.finish(span, "cancel", err) }()
	span.SetAttributes(attribute.String("booking_id", string(id)))

	b, err := s.transition(ctx, who, id, roleCustomer|roleMerchant, lifecycle.On(lifecycle.EventCancel), TopicCancelled)
	if err != nil {
		return BookingView{}, err
	}
	return ViewOf(b), nil
}

func (s *Service) MerchantAction(ctx context.Context, who auth.Identity, id model.BookingID, action MerchantAction) (v BookingView, err error) {
	ctx, span := s.start(ctx, "merchant_action")
	defer func() { s.finish(span, "merchant_action", err) }()
	span.SetAttributes(attribute.String("booking_id", string(id)), attribute.String("action", string(action)))

	kind, ok := merchantActions[action]
	if !ok {
		return BookingView{}, apperr.Validation("unknown action %q", action)
	}
	b, err := s.transition(ctx, who, id, roleMerchant, lifecycle.On(kind), TopicStatusChanged)
	if err != nil {
		return BookingView{}, err
	}
	return ViewOf(b), nil
}

// ConfirmReschedule moves the booking to newStart. Only the customer may do so.
// The merchant row is locked before the booking row, the same order Create uses.
func (s *Service) ConfirmReschedule(ctx context.Context, who auth.Identity, id model.BookingID, newStart time.Time) (v BookingView, err error) {
	ctx, span := s.start(ctx, "confirm_reschedule")
	defer func() { s.finish(span, "confirm_reschedule", err) }()
	span.SetAttributes(attribute.String("booking_id", string(id)))

	if newStart.IsZero() {
		return BookingView{}, apperr.Validation("appointment_date is required")
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return BookingView{}, fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	current, err := s.bookings.Get(ctx, tx, id)
	if err != nil {
		return BookingView{}, storageError(err, "booking")
	}
	if current.CustomerID != who.Subject {
		return BookingView{}, apperr.Unauthorized("only the customer can pick a new time")
	}
	m, err := s.merchants.Lock(ctx, tx, current.MerchantID)
	if err != nil {
		return BookingView{}, storageError(err, "merchant")
	}
	b, err := s.bookings.GetForUpdate(ctx, tx, id)
	if err != nil {
		return BookingView{}, storageError(err, "booking")
	}

	window := clock.NewInterval(newStart, b.EndTime.Sub(b.StartTime))
	if window.Start.Equal(b.StartTime) && window.End.Equal(b.EndTime) && b.BookingStatus != lifecycle.BookingReschedulePending {
		return BookingView{}, apperr.NotModified("booking already at the requested time")
	}
	if window.Start.Before(s.now()) {
		return BookingView{}, apperr.Conflict("appointment_date is in the past")
	}
	next, err := lifecycle.Apply(b.State(), lifecycle.On(lifecycle.EventConfirmReschedule))
	if err != nil {
		return BookingView{}, lifecycleError(err)
	}
	if !m.Schedule.Admits(window) {
		return BookingView{}, apperr.Validation("requested time is outside the merchant's availability")
	}
	existing, err := s.bookings.ListActive(ctx, tx, m.ID, window.Start, window.End)
	if err != nil {
		return BookingView{}, storageError(err, "bookings")
	}
	if availability.ConflictsExcept(window, existing, b.ID) {
		return BookingView{}, apperr.Conflict("time slot already booked")
	}

	if err := s.bookings.Reschedule(ctx, tx, b.ID, window.Start.UTC(), window.End.UTC(), next); err != nil {
		return BookingView{}, storageError(err, "booking")
	}
	b.StartTime, b.EndTime = window.Start.UTC(), window.End.UTC()
	b.SetState(next)
	b.UpdatedAt = s.now()
	if err := s.emit(ctx, tx, TopicRescheduled, b, who.Subject); err != nil {
		return BookingView{}, fmt.Errorf("outbox: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return BookingView{}, storageError(err, "booking")
	}
	s.logger.InfoContext(ctx, "booking rescheduled",
		slog.String("booking_id", string(b.ID)),
		slog.Time("start_time", b.StartTime),
	)
	return ViewOf(b), nil
}
