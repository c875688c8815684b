package bookings

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
)

// Outcome is what a payment event did to its booking.
type Outcome string

const (
	OutcomeApplied        Outcome = "applied"
	OutcomeDuplicate      Outcome = "duplicate"
	OutcomeUnknownBooking Outcome = "unknown_booking"
	OutcomeNoChange       Outcome = "no_change"
	OutcomeRejected       Outcome = "rejected"
)

// ApplyPaymentEvent records evt and moves the booking's lifecycle. Only storage
// failures are returned as errors; every business outcome is reported as an Outcome.
func (s *Service) ApplyPaymentEvent(ctx context.Context, evt payments.Event) (out Outcome, err error) {
	ctx, span := s.start(ctx, "payment_event")
	defer func() {
		if err == nil {
			span.SetAttributes(attribute.String("outcome", string(out)))
			s.metrics.ObserveWebhook(evt.Type, string(out))
		} else {
			s.metrics.ObserveWebhook(evt.Type, "error")
		}
		s.finish(span, "payment_event", err)
	}()
	span.SetAttributes(attribute.String("event_id", evt.ID), attribute.String("event_type", evt.Type))

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin: %w", err)
	}
	defer rollback(ctx, tx)

	fresh, err := s.payments.RecordProviderEvent(ctx, tx, evt.Gateway, evt.ID, evt.Type)
	if err != nil {
		return "", fmt.Errorf("record provider event: %w", err)
	}
	if !fresh {
		return OutcomeDuplicate, nil
	}

	id := evt.BookingID
	if id != "" {
		// Metadata is caller supplied; a malformed id would abort the transaction.
		if id, err = model.ParseBookingID(string(id)); err != nil {
			return s.commitOutcome(ctx, tx, OutcomeUnknownBooking, evt, evt.BookingID)
		}
	}
	if id == "" && evt.PaymentIntentID != "" {
		id, err = s.payments.BookingForPaymentIntent(ctx, tx, evt.Gateway, evt.PaymentIntentID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return "", fmt.Errorf("resolve payment intent: %w", err)
		}
	}
	if id == "" {
		return s.commitOutcome(ctx, tx, OutcomeUnknownBooking, evt, "")
	}
	b, err := s.bookings.GetForUpdate(ctx, tx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return s.commitOutcome(ctx, tx, OutcomeUnknownBooking, evt, id)
	}
	if err != nil {
		return "", fmt.Errorf("load booking: %w", err)
	}

	t := evt.Transaction
	t.BookingID = b.ID
	if t.Gateway == "" {
		t.Gateway = evt.Gateway
	}
	recorded, err := s.payments.InsertTransaction(ctx, tx, &t)
	if err != nil {
		return "", fmt.Errorf("record transaction: %w", err)
	}
	if !recorded {
		return s.commitOutcome(ctx, tx, OutcomeDuplicate, evt, b.ID)
	}

	prev := b.State()
	next, err := lifecycle.Apply(prev, evt.Lifecycle)
	switch {
	case errors.Is(err, lifecycle.ErrNoChange):
		return s.commitOutcome(ctx, tx, OutcomeNoChange, evt, b.ID)
	case err != nil:
		s.logger.WarnContext(ctx, "payment event rejected by booking lifecycle",
			slog.String("booking_id", string(b.ID)),
			slog.String("event_type", evt.Type),
			slog.String("booking_status", string(prev.Booking)),
			slog.String("payment_status", string(prev.Payment)),
			slog.Any("err", err),
		)
		return s.commitOutcome(ctx, tx, OutcomeRejected, evt, b.ID)
	}

	if err := s.bookings.UpdateState(ctx, tx, b.ID, next); err != nil {
		return "", fmt.Errorf("update booking: %w", err)
	}
	b.SetState(next)
	b.UpdatedAt = s.now()
	for _, topic := range paymentTopics(evt.Lifecycle.Kind, prev, next) {
		if err := s.emit(ctx, tx, topic, b, evt.Gateway); err != nil {
			return "", fmt.Errorf("outbox: %w", err)
		}
	}
	return s.commitOutcome(ctx, tx, OutcomeApplied, evt, b.ID)
}

func (s *Service) commitOutcome(ctx context.Context, tx interface{ Commit(context.Context) error }, out Outcome, evt payments.Event, id model.BookingID) (Outcome, error) {
	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	s.logger.InfoContext(ctx, "payment event processed",
		slog.String("event_id", evt.ID),
		slog.String("event_type", evt.Type),
		slog.String("booking_id", string(id)),
		slog.String("outcome", string(out)),
	)
	return out, nil
}

func paymentTopics(kind lifecycle.EventKind, prev, next lifecycle.State) []string {
	switch kind {
	case lifecycle.EventPaymentSucceeded:
		topics := []string{TopicPaymentReceived}
		if next.Booking == lifecycle.BookingConfirmed && prev.Booking != lifecycle.BookingConfirmed {
			topics = append(topics, TopicConfirmed)
		}
		return topics
	case lifecycle.EventPaymentFailed:
		return []string{TopicPaymentFailed}
	case lifecycle.EventRefunded:
		return []string{TopicRefunded}
	case lifecycle.EventChargeback:
		return []string{TopicChargeback}
	}
	return []string{TopicStatusChanged}
}
