package model

import (
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

type (
	MerchantID string
	ServiceID  string
	BookingID  string
)

type Booking struct {
	ID                BookingID
	CustomerID        string
	CustomerEmail     string
	CustomerPhone     string
	MerchantID        MerchantID
	ServiceID         ServiceID
	StartTime         time.Time
	EndTime           time.Time
	BookingStatus     lifecycle.BookingStatus
	PaymentStatus     lifecycle.PaymentStatus
	CheckoutSessionID string
	AmountMinor       int64
	Currency          string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (b Booking) Window() clock.Interval {
	return clock.Interval{Start: b.StartTime, End: b.EndTime}
}

func (b Booking) State() lifecycle.State {
	return lifecycle.State{Booking: b.BookingStatus, Payment: b.PaymentStatus}
}

func (b *Booking) SetState(s lifecycle.State) {
	b.BookingStatus = s.Booking
	b.PaymentStatus = s.Payment
}

type Merchant struct {
	ID                MerchantID
	OwnerID           string
	Username          string
	Name              string
	Email             string
	Profession        string
	Bio               string
	ProfilePublic     bool
	Schedule          schedule.Weekly
	Settings          NotificationSettings
	PaymentsProvider  string
	PaymentsAccountID string
	CreatedAt         time.Time
}

type Service struct {
	ID              ServiceID
	MerchantID      MerchantID
	Name            string
	Description     string
	DurationMinutes int
	PriceMinor      int64
	Currency        string
	CreatedAt       time.Time
}

func (s Service) Duration() time.Duration {
	return time.Duration(s.DurationMinutes) * time.Minute
}

type TransactionType string

const (
	TransactionPayment    TransactionType = "payment"
	TransactionRefund     TransactionType = "refund"
	TransactionChargeback TransactionType = "chargeback"
)

// Transaction is one money movement reported by the payment gateway.
type Transaction struct {
	ID              string
	BookingID       BookingID
	Gateway         string
	Type            TransactionType
	Status          string
	PaymentIntentID string
	AmountMinor     int64
	Currency        string
	Raw             []byte
	CreatedAt       time.Time
}
