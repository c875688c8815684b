package notifier

import (
	"fmt"
	"sort"
	"time"
)

const whenLayout = "Mon, 02 Jan 2006 15:04 MST"

type template struct {
	subject string
	body    func(e BookingEvent) string
}

func at(e BookingEvent) string {
	return e.StartTime.UTC().Format(whenLayout)
}

var templates = map[string]template{
	"booking.created.v1": {
		subject: "Booking received",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("We received your booking %s for %s. Complete payment to confirm it.", e.BookingID, at(e))
		},
	},
	"booking.confirmed.v1": {
		subject: "Booking confirmed",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Your booking %s for %s is confirmed.", e.BookingID, at(e))
		},
	},
	"booking.payment_received.v1": {
		subject: "Payment received",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("We received your payment for booking %s.", e.BookingID)
		},
	},
	"booking.payment_failed.v1": {
		subject: "Payment failed",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Payment for booking %s failed. Please try again.", e.BookingID)
		},
	},
	"booking.reschedule_requested.v1": {
		subject: "Please choose a new time",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Your provider asked to move booking %s (%s). Please pick a new time.", e.BookingID, at(e))
		},
	},
	"booking.rescheduled.v1": {
		subject: "Booking rescheduled",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Booking %s now starts %s.", e.BookingID, at(e))
		},
	},
	"booking.cancelled.v1": {
		subject: "Booking cancelled",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Booking %s for %s was cancelled.", e.BookingID, at(e))
		},
	},
	"booking.status_changed.v1": {
		subject: "Booking updated",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("Booking %s is now %s.", e.BookingID, e.BookingStatus)
		},
	},
	"booking.refunded.v1": {
		subject: "Refund issued",
		body: func(e BookingEvent) string {
			return fmt.Sprintf("The payment for booking %s was refunded.", e.BookingID)
		},
	},
}

// Topics lists the booking topics that produce a customer message.
func Topics() []string {
	out := make([]string, 0, len(templates))
	for t := range templates {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// BookingEvent mirrors the payload booking-service writes on booking.* topics.
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
