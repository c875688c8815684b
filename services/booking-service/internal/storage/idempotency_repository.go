package storage

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
)

type IdempotencyRecord struct {
	CustomerID      string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

// Completed reports whether a response was stored for the key.
func (r IdempotencyRecord) Completed() bool {
	return r.BookingID != "" && r.StatusCode > 0
}

type IdempotencyRepository struct{}

func NewIdempotencyRepository() *IdempotencyRepository {
	return &IdempotencyRepository{}
}

// Lock claims key for customerID and holds the row lock until tx ends, so a
// concurrent retry with the same key waits for the first attempt.
func (r *IdempotencyRepository) Lock(ctx context.Context, tx pgx.Tx, customerID, key string) (IdempotencyRecord, error) {
	_, err := tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (customer_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (customer_id, idempotency_key) DO NOTHING
	`, customerID, key)
	if err != nil {
		return IdempotencyRecord{}, err
	}

	var rec IdempotencyRecord
	var responseText string
	err = tx.QueryRow(ctx, `
		SELECT customer_id,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE customer_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, customerID, key).Scan(
		&rec.CustomerID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, translate(err)
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}

func (r *IdempotencyRepository) Finalize(ctx context.Context, q db.Querier, rec IdempotencyRecord) error {
	_, err := q.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE customer_id = $1 AND idempotency_key = $2
	`, rec.CustomerID, rec.IdempotencyKey, rec.BookingID, rec.StatusCode, rec.ResponsePayload)
	return err
}
