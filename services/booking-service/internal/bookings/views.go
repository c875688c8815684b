package bookings

import (
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
)

type BookingView struct {
	ID                string    `json:"id"`
	CustomerID        string    `json:"customer_id"`
	CustomerEmail     string    `json:"customer_email,omitempty"`
	CustomerPhone     string    `json:"customer_phone,omitempty"`
	MerchantID        string    `json:"merchant_id"`
	ServiceID         string    `json:"service_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	BookingStatus     string    `json:"booking_status"`
	PaymentStatus     string    `json:"payment_status"`
	CheckoutSessionID string    `json:"checkout_session_id,omitempty"`
	AmountMinor       int64     `json:"amount_minor"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func ViewOf(b model.Booking) BookingView {
	return BookingView{
		ID:                string(b.ID),
		CustomerID:        b.CustomerID,
		CustomerEmail:     b.CustomerEmail,
		CustomerPhone:     b.CustomerPhone,
		MerchantID:        string(b.MerchantID),
		ServiceID:         string(b.ServiceID),
		StartTime:         b.StartTime.UTC(),
		EndTime:           b.EndTime.UTC(),
		BookingStatus:     string(b.BookingStatus),
		PaymentStatus:     string(b.PaymentStatus),
		CheckoutSessionID: b.CheckoutSessionID,
		AmountMinor:       b.AmountMinor,
		Currency:          b.Currency,
		CreatedAt:         b.CreatedAt.UTC(),
		UpdatedAt:         b.UpdatedAt.UTC(),
	}
}

func viewsOf(bs []model.Booking) []BookingView {
	out := make([]BookingView, 0, len(bs))
	for _, b := range bs {
		out = append(out, ViewOf(b))
	}
	return out
}

type TransactionView struct {
	ID              string    `json:"id"`
	Gateway         string    `json:"gateway"`
	Type            string    `json:"type"`
	Status          string    `json:"status"`
	PaymentIntentID string    `json:"payment_intent_id"`
	AmountMinor     int64     `json:"amount_minor"`
	Currency        string    `json:"currency"`
	CreatedAt       time.Time `json:"created_at"`
}

// BookingDetail is a booking with the gateway transactions recorded for it.
type BookingDetail struct {
	BookingView
	Transactions []TransactionView `json:"transactions"`
}

type CreateResponse struct {
	Booking  BookingView               `json:"booking"`
	Checkout *payments.CheckoutSession `json:"checkout,omitempty"`
}

// Availability maps each date of the horizon to its bookable start times.
type Availability struct {
	Username        string                       `json:"username"`
	Timezone        string                       `json:"timezone"`
	DurationMinutes int                          `json:"duration_minutes"`
	Slots           map[string][]clock.TimeOfDay `json:"slots"`
}

type Page struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

const maxPerPage = 100

func (p Page) limitOffset() (int, int) {
	per := p.PerPage
	if per > maxPerPage {
		per = maxPerPage
	}
	return per, (p.Page - 1) * per
}

type BookingList struct {
	Page     int           `json:"page"`
	PerPage  int           `json:"per_page"`
	Bookings []BookingView `json:"bookings"`
}
