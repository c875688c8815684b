package payments

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Event is a provider webhook reduced to what the booking lifecycle needs.
type Event struct {
	ID              string
	Type            string
	Gateway         string
	OccurredAt      time.Time
	BookingID       model.BookingID
	PaymentIntentID string
	Lifecycle       lifecycle.Event
	Transaction     model.Transaction
}

type WebhookVerifier struct {
	secret    string
	tolerance time.Duration
}

func NewWebhookVerifier(secret string, tolerance time.Duration) *WebhookVerifier {
	if tolerance <= 0 {
		tolerance = webhook.DefaultTolerance
	}
	return &WebhookVerifier{secret: secret, tolerance: tolerance}
}

func (v *WebhookVerifier) Configured() bool {
	return v != nil && v.secret != ""
}

// Parse verifies the signature and decodes the event. ok is false for event types
// that do not affect bookings.
func (v *WebhookVerifier) Parse(payload []byte, signature string) (evt Event, ok bool, err error) {
	raw, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                v.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return Event{}, false, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	evt = Event{
		ID:         raw.ID,
		Type:       string(raw.Type),
		Gateway:    GatewayStripe,
		OccurredAt: time.Unix(raw.Created, 0).UTC(),
	}
	if raw.Data == nil {
		return evt, false, nil
	}
	obj := raw.Data.Raw

	switch raw.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed", "payment_intent.failed":
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(obj, &pi); err != nil {
			return evt, false, fmt.Errorf("decode payment intent: %w", err)
		}
		evt.BookingID = model.BookingID(pi.Metadata["booking_id"])
		evt.PaymentIntentID = pi.ID
		evt.Lifecycle = lifecycle.On(lifecycle.EventPaymentFailed)
		status := "failed"
		if raw.Type == "payment_intent.succeeded" {
			evt.Lifecycle = lifecycle.On(lifecycle.EventPaymentSucceeded)
			status = "succeeded"
		}
		evt.Transaction = model.Transaction{
			Type:        model.TransactionPayment,
			Status:      status,
			AmountMinor: pi.Amount,
			Currency:    string(pi.Currency),
		}
	case "charge.refunded":
		var ch stripe.Charge
		if err := json.Unmarshal(obj, &ch); err != nil {
			return evt, false, fmt.Errorf("decode charge: %w", err)
		}
		evt.BookingID = model.BookingID(ch.Metadata["booking_id"])
		if ch.PaymentIntent != nil {
			evt.PaymentIntentID = ch.PaymentIntent.ID
		}
		partial := ch.AmountRefunded < ch.Amount
		evt.Lifecycle = lifecycle.Event{Kind: lifecycle.EventRefunded, Partial: partial}
		status := "refunded"
		if partial {
			status = "partially_refunded"
		}
		evt.Transaction = model.Transaction{
			Type:        model.TransactionRefund,
			Status:      status,
			AmountMinor: ch.AmountRefunded,
			Currency:    string(ch.Currency),
		}
	case "charge.dispute.created":
		var d stripe.Dispute
		if err := json.Unmarshal(obj, &d); err != nil {
			return evt, false, fmt.Errorf("decode dispute: %w", err)
		}
		if d.PaymentIntent != nil {
			evt.PaymentIntentID = d.PaymentIntent.ID
		}
		evt.Lifecycle = lifecycle.On(lifecycle.EventChargeback)
		evt.Transaction = model.Transaction{
			Type:        model.TransactionChargeback,
			Status:      "dispute_created",
			AmountMinor: d.Amount,
			Currency:    string(d.Currency),
		}
	default:
		return evt, false, nil
	}

	evt.Transaction.Gateway = GatewayStripe
	evt.Transaction.PaymentIntentID = evt.PaymentIntentID
	evt.Transaction.BookingID = evt.BookingID
	evt.Transaction.Raw = obj
	return evt, true, nil
}
