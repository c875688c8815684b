package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suavhq/suav/libs/kafkax"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/services/notification-service/internal/email"
	"github.com/suavhq/suav/services/notification-service/internal/metrics"
	"github.com/suavhq/suav/services/notification-service/internal/storage"
)

type stubEmail struct {
	sent []email.Message
	err  error
}

func (s *stubEmail) ProviderID() string { return "stub-email" }

func (s *stubEmail) Send(_ context.Context, msg email.Message) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, msg)
	return nil
}

type stubSMS struct {
	to, body []string
}

func (s *stubSMS) ProviderID() string { return "stub-sms" }

func (s *stubSMS) Send(_ context.Context, to, body string) error {
	s.to = append(s.to, to)
	s.body = append(s.body, body)
	return nil
}

var start = time.Date(2025, 1, 6, 10, 0, 0, 0, time.UTC)

func payload(t *testing.T, e BookingEvent) []byte {
	t.Helper()
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	return raw
}

func newNotifier(mock pgxmock.PgxPoolIface, em email.Sender, sm *stubSMS, m *metrics.NotificationMetrics) *Notifier {
	d := Deps{
		DB:      mock,
		Inbox:   storage.NewInboxRepository(),
		Log:     storage.NewNotificationRepository(),
		Outbox:  outbox.NewRepository(),
		Email:   em,
		Metrics: m,
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:     func() time.Time { return start },
	}
	if sm != nil {
		d.SMS = sm
	}
	return New(d)
}

func expectLog(mock pgxmock.PgxPoolIface, channel, recipient, provider, status, reason, topic string) {
	mock.ExpectQuery("INSERT INTO notifications").
		WithArgs(pgxmock.AnyArg(), "evt-1", "booking.confirmed.v1", "b-1", "cust-1", channel, recipient, provider, status, reason).
		WillReturnRows(pgxmock.NewRows([]string{"created_at"}).AddRow(start))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs("notification", "b-1", topic, pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
}

func TestHandleSendsEveryChannel(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").
		WithArgs("evt-1", "booking.confirmed.v1").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectLog(mock, "email", "a@example.com", "stub-email", "sent", "", TopicSent)
	expectLog(mock, "sms", "+15550100", "stub-sms", "sent", "", TopicSent)
	mock.ExpectCommit()

	em, sm := &stubEmail{}, &stubSMS{}
	reg := prometheus.NewRegistry()
	n := newNotifier(mock, em, sm, metrics.NewNotificationMetrics(reg))

	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-1", EventType: "booking.confirmed.v1"}, payload(t, BookingEvent{
		BookingID: "b-1", CustomerID: "cust-1", CustomerEmail: "a@example.com", CustomerPhone: "+15550100", StartTime: start,
	}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	require.Len(t, em.sent, 1)
	assert.Equal(t, "Booking confirmed", em.sent[0].Subject)
	assert.Contains(t, em.sent[0].Body, "Mon, 06 Jan 2025 10:00 UTC")
	assert.Equal(t, []string{"+15550100"}, sm.to)
	series, err := testutil.GatherAndCount(reg, "suav_notification_sends_total")
	require.NoError(t, err)
	assert.Equal(t, 2, series)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleRecordsSendFailure(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	expectLog(mock, "email", "a@example.com", "stub-email", "failed", "smtp refused", TopicFailed)
	mock.ExpectCommit()

	n := newNotifier(mock, &stubEmail{err: errors.New("smtp refused")}, nil, nil)
	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-1", EventType: "booking.confirmed.v1"}, payload(t, BookingEvent{
		BookingID: "b-1", CustomerID: "cust-1", CustomerEmail: "a@example.com", StartTime: start,
	}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeProcessed, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleDuplicateEvent(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 0))
	mock.ExpectRollback()

	em := &stubEmail{}
	n := newNotifier(mock, em, nil, nil)
	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-1", EventType: "booking.confirmed.v1"}, payload(t, BookingEvent{
		BookingID: "b-1", CustomerEmail: "a@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeDuplicate, out)
	assert.Empty(t, em.sent)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleSkipsUntemplatedTopic(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	n := newNotifier(mock, &stubEmail{}, nil, nil)
	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-2", EventType: "booking.chargeback.v1"}, payload(t, BookingEvent{
		BookingID: "b-1", CustomerEmail: "a@example.com",
	}))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleInvalidPayload(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n := newNotifier(mock, &stubEmail{}, nil, nil)
	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-3", EventType: "booking.created.v1"}, []byte("{not json"))
	require.NoError(t, err)
	assert.Equal(t, OutcomeInvalid, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleIgnoresOtherAggregates(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	n := newNotifier(mock, &stubEmail{}, nil, nil)
	out, err := n.Handle(context.Background(), kafkax.EventMeta{EventID: "evt-5", EventType: "notification.sent.v1", AggregateType: "notification"}, []byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, OutcomeSkipped, out)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHandleMessageSurfacesStorageErrors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO inbox_events").WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	n := newNotifier(mock, &stubEmail{}, nil, nil)
	err = n.HandleMessage(context.Background(), kafka.Message{
		Topic:   "booking.created.v1",
		Headers: []kafka.Header{{Key: "event_id", Value: []byte("evt-4")}},
		Value:   payload(t, BookingEvent{BookingID: "b-1"}),
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTopicsAreSorted(t *testing.T) {
	topics := Topics()
	assert.Contains(t, topics, "booking.created.v1")
	assert.NotContains(t, topics, "booking.chargeback.v1")
	assert.IsIncreasing(t, topics)
}
