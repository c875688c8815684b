package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

type ServiceRepository struct{}

func NewServiceRepository() *ServiceRepository {
	return &ServiceRepository{}
}

const serviceColumns = `id::text, merchant_id::text, name, description, duration_minutes, price_minor, currency, created_at`

func scanService(row pgx.Row) (model.Service, error) {
	var (
		s              model.Service
		id, merchantID string
	)
	if err := row.Scan(&id, &merchantID, &s.Name, &s.Description, &s.DurationMinutes, &s.PriceMinor, &s.Currency, &s.CreatedAt); err != nil {
		return model.Service{}, translate(err)
	}
	s.ID = model.ServiceID(id)
	s.MerchantID = model.MerchantID(merchantID)
	return s, nil
}

func (r *ServiceRepository) Insert(ctx context.Context, q db.Querier, s *model.Service) error {
	if s.ID == "" {
		s.ID = model.ServiceID(uuid.NewString())
	}
	err := q.QueryRow(ctx, `
		INSERT INTO services (id, merchant_id, name, description, duration_minutes, price_minor, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`, string(s.ID), string(s.MerchantID), s.Name, s.Description, s.DurationMinutes, s.PriceMinor, s.Currency).Scan(&s.CreatedAt)
	return translate(err)
}

func (r *ServiceRepository) Get(ctx context.Context, q db.Querier, id model.ServiceID) (model.Service, error) {
	return scanService(q.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, string(id)))
}

func (r *ServiceRepository) ListByMerchant(ctx context.Context, q db.Querier, merchantID model.MerchantID) ([]model.Service, error) {
	rows, err := q.Query(ctx, `SELECT `+serviceColumns+` FROM services WHERE merchant_id = $1 ORDER BY created_at ASC`, string(merchantID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return out, nil
}

// Delete removes a service owned by merchantID. Anything else is ErrNotFound.
func (r *ServiceRepository) Delete(ctx context.Context, q db.Querier, id model.ServiceID, merchantID model.MerchantID) error {
	tag, err := q.Exec(ctx, `DELETE FROM services WHERE id = $1 AND merchant_id = $2`, string(id), string(merchantID))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
