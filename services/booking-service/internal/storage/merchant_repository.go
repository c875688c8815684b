package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

type MerchantRepository struct{}

func NewMerchantRepository() *MerchantRepository {
	return &MerchantRepository{}
}

const merchantColumns = `
	id::text, owner_id, username, name, email, profession, bio, profile_public,
	schedule, settings, payments_provider, payments_account_id, created_at`

func scanMerchant(row pgx.Row) (model.Merchant, error) {
	var (
		m                model.Merchant
		id               string
		rawSchedule, raw []byte
	)
	err := row.Scan(&id, &m.OwnerID, &m.Username, &m.Name, &m.Email, &m.Profession, &m.Bio, &m.ProfilePublic,
		&rawSchedule, &raw, &m.PaymentsProvider, &m.PaymentsAccountID, &m.CreatedAt)
	if err != nil {
		return model.Merchant{}, translate(err)
	}
	m.ID = model.MerchantID(id)
	if m.Schedule, err = schedule.Decode(rawSchedule); err != nil {
		return model.Merchant{}, fmt.Errorf("merchant %s schedule: %w", id, err)
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &m.Settings); err != nil {
			return model.Merchant{}, fmt.Errorf("merchant %s settings: %w", id, err)
		}
	}
	return m, nil
}

// ReserveUsername claims username for ownerID. A taken name yields ErrDuplicate.
func (r *MerchantRepository) ReserveUsername(ctx context.Context, q db.Querier, username, ownerID string) error {
	_, err := q.Exec(ctx, `INSERT INTO usernames (username, owner_id) VALUES ($1, $2)`, username, ownerID)
	return translate(err)
}

func (r *MerchantRepository) UsernameTaken(ctx context.Context, q db.Querier, username string) (bool, error) {
	var taken bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM usernames WHERE username = $1)`, username).Scan(&taken)
	return taken, err
}

func (r *MerchantRepository) Insert(ctx context.Context, q db.Querier, m *model.Merchant) error {
	if m.ID == "" {
		m.ID = model.MerchantID(uuid.NewString())
	}
	rawSchedule, err := m.Schedule.MarshalJSON()
	if err != nil {
		return err
	}
	rawSettings, err := json.Marshal(m.Settings)
	if err != nil {
		return err
	}
	err = q.QueryRow(ctx, `
		INSERT INTO merchants
			(id, owner_id, username, name, email, profession, bio, profile_public, schedule, settings,
			 payments_provider, payments_account_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at
	`, string(m.ID), m.OwnerID, m.Username, m.Name, m.Email, m.Profession, m.Bio, m.ProfilePublic,
		rawSchedule, rawSettings, m.PaymentsProvider, m.PaymentsAccountID,
	).Scan(&m.CreatedAt)
	return translate(err)
}

func (r *MerchantRepository) Get(ctx context.Context, q db.Querier, id model.MerchantID) (model.Merchant, error) {
	return scanMerchant(q.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1`, string(id)))
}

func (r *MerchantRepository) GetByOwner(ctx context.Context, q db.Querier, ownerID string) (model.Merchant, error) {
	return scanMerchant(q.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE owner_id = $1`, ownerID))
}

func (r *MerchantRepository) GetByUsername(ctx context.Context, q db.Querier, username string) (model.Merchant, error) {
	return scanMerchant(q.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE username = $1`, username))
}

// Lock takes the merchant row lock that serializes every booking write of that merchant.
func (r *MerchantRepository) Lock(ctx context.Context, tx pgx.Tx, id model.MerchantID) (model.Merchant, error) {
	return scanMerchant(tx.QueryRow(ctx, `SELECT `+merchantColumns+` FROM merchants WHERE id = $1 FOR UPDATE`, string(id)))
}

func (r *MerchantRepository) UpdateSchedule(ctx context.Context, q db.Querier, id model.MerchantID, w schedule.Weekly) error {
	raw, err := w.MarshalJSON()
	if err != nil {
		return err
	}
	tag, err := q.Exec(ctx, `UPDATE merchants SET schedule = $2 WHERE id = $1`, string(id), raw)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MerchantRepository) SetPaymentsAccount(ctx context.Context, q db.Querier, id model.MerchantID, provider, accountID string) error {
	tag, err := q.Exec(ctx, `
		UPDATE merchants SET payments_provider = $2, payments_account_id = $3 WHERE id = $1
	`, string(id), provider, accountID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes the profile and frees its username.
func (r *MerchantRepository) Delete(ctx context.Context, q db.Querier, m model.Merchant) error {
	tag, err := q.Exec(ctx, `DELETE FROM merchants WHERE id = $1`, string(m.ID))
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	_, err = q.Exec(ctx, `DELETE FROM usernames WHERE username = $1 AND owner_id = $2`, m.Username, m.OwnerID)
	return translate(err)
}
