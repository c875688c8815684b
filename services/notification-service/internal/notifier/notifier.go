// Package notifier turns booking events into customer email and SMS messages.
package notifier

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/segmentio/kafka-go"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/kafkax"
	otelx "github.com/suavhq/suav/libs/otel"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/services/notification-service/internal/email"
	"github.com/suavhq/suav/services/notification-service/internal/metrics"
	"github.com/suavhq/suav/services/notification-service/internal/sms"
	"github.com/suavhq/suav/services/notification-service/internal/storage"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	TopicSent   = "notification.sent.v1"
	TopicFailed = "notification.failed.v1"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeInvalid   Outcome = "invalid"
)

type InboxStore interface {
	Record(ctx context.Context, q db.Querier, eventID, eventType string) (bool, error)
}

type LogStore interface {
	Insert(ctx context.Context, q db.Querier, n *storage.Notification) error
}

type EventWriter interface {
	Insert(ctx context.Context, q db.Querier, evt outbox.Event) error
}

type Deps struct {
	DB     db.DB
	Inbox  InboxStore
	Log    LogStore
	Outbox EventWriter
	// Email and SMS may be nil; the channel is then skipped.
	Email email.Sender
	SMS   sms.Sender
	// Recipients ending in FailSuffix are recorded as failed without sending.
	FailSuffix string
	Metrics    *metrics.NotificationMetrics
	Logger     *slog.Logger
	Now        func() time.Time
}

type Notifier struct {
	db         db.DB
	inbox      InboxStore
	log        LogStore
	outbox     EventWriter
	email      email.Sender
	sms        sms.Sender
	failSuffix string
	metrics    *metrics.NotificationMetrics
	logger     *slog.Logger
	now        func() time.Time
}

func New(d Deps) *Notifier {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Notifier{
		db:         d.DB,
		inbox:      d.Inbox,
		log:        d.Log,
		outbox:     d.Outbox,
		email:      d.Email,
		sms:        d.SMS,
		failSuffix: d.FailSuffix,
		metrics:    d.Metrics,
		logger:     d.Logger,
		now:        d.Now,
	}
}

// HandleMessage is the consumer entry point. Only storage failures are
// returned; they leave the event unclaimed so it can be retried.
func (n *Notifier) HandleMessage(ctx context.Context, msg kafka.Message) error {
	_, err := n.Handle(ctx, kafkax.ExtractEventMeta(msg), msg.Value)
	return err
}

// Handle claims the event in the inbox, sends one message per reachable
// channel and records every attempt with its outbox event in one transaction.
func (n *Notifier) Handle(ctx context.Context, meta kafkax.EventMeta, value []byte) (outcome Outcome, err error) {
	ctx, span := otelx.Tracer("notification-service/notifier").Start(ctx, "notifier.handle",
		trace.WithAttributes(attribute.String("event.type", meta.EventType)))
	defer func() {
		if err != nil {
			span.RecordError(err)
		}
		span.SetAttributes(attribute.String("notification.outcome", string(outcome)))
		span.End()
		if err == nil {
			n.metrics.ObserveEvent(meta.EventType, string(outcome))
		}
	}()

	if meta.AggregateType != "" && meta.AggregateType != "booking" {
		return OutcomeSkipped, nil
	}

	var evt BookingEvent
	if err := json.Unmarshal(value, &evt); err != nil || evt.BookingID == "" || meta.EventID == "" {
		n.logger.Error("invalid booking event", "event_id", meta.EventID, "event_type", meta.EventType, "err", err)
		return OutcomeInvalid, nil
	}

	tx, err := n.db.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	fresh, err := n.inbox.Record(ctx, tx, meta.EventID, meta.EventType)
	if err != nil {
		return "", err
	}
	if !fresh {
		n.logger.Info("duplicate event ignored", "event_id", meta.EventID, "event_type", meta.EventType)
		return OutcomeDuplicate, nil
	}

	tmpl, ok := templates[meta.EventType]
	if !ok {
		return OutcomeSkipped, tx.Commit(ctx)
	}

	sent := 0
	for _, ch := range n.channels(evt) {
		rec := storage.Notification{
			EventID:    meta.EventID,
			EventType:  meta.EventType,
			BookingID:  evt.BookingID,
			CustomerID: evt.CustomerID,
			Channel:    ch.name,
			Recipient:  ch.recipient,
			Provider:   ch.provider,
			Status:     storage.StatusSent,
		}
		if n.failSuffix != "" && strings.HasSuffix(ch.recipient, n.failSuffix) {
			rec.Status, rec.FailureReason = storage.StatusFailed, "simulated failure"
		} else if err := ch.send(ctx, tmpl.subject, tmpl.body(evt)); err != nil {
			rec.Status, rec.FailureReason = storage.StatusFailed, err.Error()
		}
		if err := n.record(ctx, tx, &rec); err != nil {
			return "", err
		}
		sent++
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	if sent == 0 {
		n.logger.Info("no reachable channel", "event_type", meta.EventType, "booking_id", evt.BookingID, "customer_id", evt.CustomerID)
		return OutcomeSkipped, nil
	}
	return OutcomeProcessed, nil
}

func (n *Notifier) record(ctx context.Context, tx pgx.Tx, rec *storage.Notification) error {
	if err := n.log.Insert(ctx, tx, rec); err != nil {
		return err
	}
	topic := TopicSent
	if rec.Status == storage.StatusFailed {
		topic = TopicFailed
	}
	evt, err := outbox.NewEvent("notification", rec.BookingID, topic, map[string]any{
		"notification_id": rec.ID,
		"event_id":        rec.EventID,
		"event_type":      rec.EventType,
		"booking_id":      rec.BookingID,
		"customer_id":     rec.CustomerID,
		"channel":         rec.Channel,
		"provider":        rec.Provider,
		"error_reason":    rec.FailureReason,
		"at":              n.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	if err := n.outbox.Insert(ctx, tx, evt); err != nil {
		return err
	}

	n.metrics.ObserveSend(rec.Channel, string(rec.Status))
	if rec.Status == storage.StatusFailed {
		n.logger.Error("notification failed", "booking_id", rec.BookingID, "customer_id", rec.CustomerID,
			"channel", rec.Channel, "reason", rec.FailureReason)
	} else {
		n.logger.Info("notification sent", "booking_id", rec.BookingID, "customer_id", rec.CustomerID,
			"channel", rec.Channel, "provider", rec.Provider)
	}
	return nil
}

type channel struct {
	name      string
	recipient string
	provider  string
	send      func(ctx context.Context, subject, body string) error
}

func (n *Notifier) channels(evt BookingEvent) []channel {
	var out []channel
	if to := strings.TrimSpace(evt.CustomerEmail); to != "" && n.email != nil {
		out = append(out, channel{
			name:      "email",
			recipient: to,
			provider:  n.email.ProviderID(),
			send: func(ctx context.Context, subject, body string) error {
				return n.email.Send(ctx, email.Message{To: to, Subject: subject, Body: body})
			},
		})
	}
	if to := strings.TrimSpace(evt.CustomerPhone); to != "" && n.sms != nil {
		out = append(out, channel{
			name:      "sms",
			recipient: to,
			provider:  n.sms.ProviderID(),
			send: func(ctx context.Context, subject, body string) error {
				return n.sms.Send(ctx, to, subject+": "+body)
			},
		})
	}
	return out
}
