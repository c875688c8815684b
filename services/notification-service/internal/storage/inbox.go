package storage

import (
	"context"

	"github.com/suavhq/suav/libs/db"
)

type InboxRepository struct{}

func NewInboxRepository() *InboxRepository {
	return &InboxRepository{}
}

// Record claims eventID. It returns false when the event was already handled;
// inside a transaction a concurrent claim of the same id waits for the first.
func (r *InboxRepository) Record(ctx context.Context, q db.Querier, eventID, eventType string) (bool, error) {
	tag, err := q.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
		ON CONFLICT (event_id) DO NOTHING
	`, eventID, eventType)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
