package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

type PaymentRepository struct{}

func NewPaymentRepository() *PaymentRepository {
	return &PaymentRepository{}
}

// RecordProviderEvent returns false when the gateway already delivered eventID.
func (r *PaymentRepository) RecordProviderEvent(ctx context.Context, q db.Querier, gateway, eventID, eventType string) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO provider_events (gateway, event_id, event_type)
		VALUES ($1, $2, $3)
		ON CONFLICT (gateway, event_id) DO NOTHING
	`, gateway, eventID, eventType)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

// InsertTransaction returns false when a transaction with the same gateway,
// payment intent and status is already recorded.
func (r *PaymentRepository) InsertTransaction(ctx context.Context, q db.Querier, t *model.Transaction) (bool, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	raw := t.Raw
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO transactions
			(id, booking_id, gateway, transaction_type, status, payment_intent_id, amount_minor, currency, raw)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (gateway, payment_intent_id, status) DO NOTHING
	`, t.ID, string(t.BookingID), t.Gateway, string(t.Type), t.Status, t.PaymentIntentID, t.AmountMinor, t.Currency, raw)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *PaymentRepository) ListTransactions(ctx context.Context, q db.Querier, bookingID model.BookingID) ([]model.Transaction, error) {
	rows, err := q.Query(ctx, `
		SELECT id::text, gateway, transaction_type, status, payment_intent_id, amount_minor, currency, created_at
		FROM transactions
		WHERE booking_id = $1
		ORDER BY created_at ASC
	`, string(bookingID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Transaction
	for rows.Next() {
		var (
			t   model.Transaction
			typ string
		)
		if err := rows.Scan(&t.ID, &t.Gateway, &typ, &t.Status, &t.PaymentIntentID, &t.AmountMinor, &t.Currency, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.BookingID = bookingID
		t.Type = model.TransactionType(typ)
		out = append(out, t)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// BookingForPaymentIntent finds the booking an earlier transaction of the intent belonged to.
func (r *PaymentRepository) BookingForPaymentIntent(ctx context.Context, q db.Querier, gateway, paymentIntentID string) (model.BookingID, error) {
	var id string
	err := q.QueryRow(ctx, `
		SELECT booking_id::text
		FROM transactions
		WHERE gateway = $1 AND payment_intent_id = $2 AND booking_id IS NOT NULL
		ORDER BY created_at ASC
		LIMIT 1
	`, gateway, paymentIntentID).Scan(&id)
	if err != nil {
		return "", translate(err)
	}
	return model.BookingID(id), nil
}
