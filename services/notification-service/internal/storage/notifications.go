package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/suavhq/suav/libs/db"
)

type Status string

const (
	StatusSent   Status = "sent"
	StatusFailed Status = "failed"
)

// Notification is one send attempt on one channel.
type Notification struct {
	ID            string
	EventID       string
	EventType     string
	BookingID     string
	CustomerID    string
	Channel       string
	Recipient     string
	Provider      string
	Status        Status
	FailureReason string
	CreatedAt     time.Time
}

type NotificationRepository struct{}

func NewNotificationRepository() *NotificationRepository {
	return &NotificationRepository{}
}

func (r *NotificationRepository) Insert(ctx context.Context, q db.Querier, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	return q.QueryRow(ctx, `
		INSERT INTO notifications
			(id, event_id, event_type, booking_id, customer_id, channel, recipient, provider, status, failure_reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`, n.ID, n.EventID, n.EventType, n.BookingID, n.CustomerID, n.Channel, n.Recipient, n.Provider,
		string(n.Status), n.FailureReason,
	).Scan(&n.CreatedAt)
}
