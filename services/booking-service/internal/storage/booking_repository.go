package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

type BookingRepository struct{}

func NewBookingRepository() *BookingRepository {
	return &BookingRepository{}
}

const bookingColumns = `
	id::text, customer_id, customer_email, customer_phone, merchant_id::text, service_id::text,
	start_time, end_time, booking_status, payment_status, COALESCE(checkout_session_id, ''),
	amount_minor, currency, created_at, updated_at`

func scanBooking(row pgx.Row) (model.Booking, error) {
	var (
		b                            model.Booking
		id, merchantID, serviceID    string
		bookingStatus, paymentStatus string
	)
	err := row.Scan(
		&id,
		&b.CustomerID,
		&b.CustomerEmail,
		&b.CustomerPhone,
		&merchantID,
		&serviceID,
		&b.StartTime,
		&b.EndTime,
		&bookingStatus,
		&paymentStatus,
		&b.CheckoutSessionID,
		&b.AmountMinor,
		&b.Currency,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		return model.Booking{}, translate(err)
	}
	b.ID = model.BookingID(id)
	b.MerchantID = model.MerchantID(merchantID)
	b.ServiceID = model.ServiceID(serviceID)
	b.BookingStatus = lifecycle.BookingStatus(bookingStatus)
	b.PaymentStatus = lifecycle.PaymentStatus(paymentStatus)
	return b, nil
}

func collectBookings(rows pgx.Rows, err error) ([]model.Booking, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Insert assigns an id when b has none. An overlapping live booking of the same
// merchant is reported as ErrOverlap.
func (r *BookingRepository) Insert(ctx context.Context, q db.Querier, b *model.Booking) error {
	if b.ID == "" {
		b.ID = model.BookingID(uuid.NewString())
	}
	err := q.QueryRow(ctx, `
		INSERT INTO bookings
			(id, customer_id, customer_email, customer_phone, merchant_id, service_id,
			 start_time, end_time, booking_status, payment_status, amount_minor, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at
	`, string(b.ID), b.CustomerID, b.CustomerEmail, b.CustomerPhone, string(b.MerchantID), string(b.ServiceID),
		b.StartTime, b.EndTime, string(b.BookingStatus), string(b.PaymentStatus), b.AmountMinor, b.Currency,
	).Scan(&b.CreatedAt, &b.UpdatedAt)
	return translate(err)
}

func (r *BookingRepository) Get(ctx context.Context, q db.Querier, id model.BookingID) (model.Booking, error) {
	return scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, string(id)))
}

// GetForUpdate locks the booking row until the transaction ends.
func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, id model.BookingID) (model.Booking, error) {
	return scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, string(id)))
}

func (r *BookingRepository) GetByCheckoutSession(ctx context.Context, q db.Querier, sessionID string) (model.Booking, error) {
	return scanBooking(q.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE checkout_session_id = $1`, sessionID))
}

func (r *BookingRepository) UpdateState(ctx context.Context, tx pgx.Tx, id model.BookingID, s lifecycle.State) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET booking_status = $2, payment_status = $3, updated_at = now()
		WHERE id = $1
	`, string(id), string(s.Booking), string(s.Payment))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Reschedule moves the booking window and writes its new state in one statement.
func (r *BookingRepository) Reschedule(ctx context.Context, tx pgx.Tx, id model.BookingID, start, end time.Time, s lifecycle.State) error {
	tag, err := tx.Exec(ctx, `
		UPDATE bookings
		SET start_time = $2, end_time = $3, booking_status = $4, payment_status = $5, updated_at = now()
		WHERE id = $1
	`, string(id), start, end, string(s.Booking), string(s.Payment))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *BookingRepository) SetCheckoutSession(ctx context.Context, tx pgx.Tx, id model.BookingID, sessionID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE bookings SET checkout_session_id = $2, updated_at = now() WHERE id = $1
	`, string(id), sessionID)
	return translate(err)
}

// ListActive returns the merchant's bookings that hold their slot and intersect [from, to).
func (r *BookingRepository) ListActive(ctx context.Context, q db.Querier, merchantID model.MerchantID, from, to time.Time) ([]model.Booking, error) {
	return collectBookings(q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE merchant_id = $1
			AND booking_status <> 'cancelled'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, string(merchantID), from, to))
}

func (r *BookingRepository) ListByCustomer(ctx context.Context, q db.Querier, customerID string, limit, offset int) ([]model.Booking, error) {
	return collectBookings(q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE customer_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, customerID, limit, offset))
}

func (r *BookingRepository) ListByMerchant(ctx context.Context, q db.Querier, merchantID model.MerchantID, limit, offset int) ([]model.Booking, error) {
	return collectBookings(q.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE merchant_id = $1
		ORDER BY start_time DESC
		LIMIT $2 OFFSET $3
	`, string(merchantID), limit, offset))
}
