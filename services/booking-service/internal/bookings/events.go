package bookings

import (
	"context"
	"time"

	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

const (
	TopicCreated             = "booking.created.v1"
	TopicConfirmed           = "booking.confirmed.v1"
	TopicPaymentReceived     = "booking.payment_received.v1"
	TopicPaymentFailed       = "booking.payment_failed.v1"
	TopicRescheduleRequested = "booking.reschedule_requested.v1"
	TopicRescheduled         = "booking.rescheduled.v1"
	TopicCancelled           = "booking.cancelled.v1"
	TopicStatusChanged       = "booking.status_changed.v1"
	TopicRefunded            = "booking.refunded.v1"
	TopicChargeback          = "booking.chargeback.v1"
)

// BookingEvent is the payload of every booking.* topic.
type BookingEvent struct {
	BookingID     string    `json:"booking_id"`
	MerchantID    string    `json:"merchant_id"`
	ServiceID     string    `json:"service_id"`
	CustomerID    string    `json:"customer_id"`
	CustomerEmail string    `json:"customer_email,omitempty"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	BookingStatus string    `json:"booking_status"`
	PaymentStatus string    `json:"payment_status"`
	Actor         string    `json:"actor,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func (s *Service) emit(ctx context.Context, q db.Querier, topic string, b model.Booking, actor string) error {
	evt, err := outbox.NewEvent("booking", string(b.ID), topic, BookingEvent{
		BookingID:     string(b.ID),
		MerchantID:    string(b.MerchantID),
		ServiceID:     string(b.ServiceID),
		CustomerID:    b.CustomerID,
		CustomerEmail: b.CustomerEmail,
		CustomerPhone: b.CustomerPhone,
		StartTime:     b.StartTime.UTC(),
		EndTime:       b.EndTime.UTC(),
		BookingStatus: string(b.BookingStatus),
		PaymentStatus: string(b.PaymentStatus),
		Actor:         actor,
		OccurredAt:    s.now().UTC(),
	})
	if err != nil {
		return err
	}
	return s.outbox.Insert(ctx, q, evt)
}
