// Package bookings implements the booking operations: availability, creation,
// rescheduling, cancellation, merchant status actions and payment events.
// Every write runs in one transaction that re-reads the rows it changes.
package bookings

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/metrics"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
)

type BookingStore interface {
	Insert(ctx context.Context, q db.Querier, b *model.Booking) error
	Get(ctx context.Context, q db.Querier, id model.BookingID) (model.Booking, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, id model.BookingID) (model.Booking, error)
	GetByCheckoutSession(ctx context.Context, q db.Querier, sessionID string) (model.Booking, error)
	UpdateState(ctx context.Context, tx pgx.Tx, id model.BookingID, s lifecycle.State) error
	Reschedule(ctx context.Context, tx pgx.Tx, id model.BookingID, start, end time.Time, s lifecycle.State) error
	SetCheckoutSession(ctx context.Context, tx pgx.Tx, id model.BookingID, sessionID string) error
	ListActive(ctx context.Context, q db.Querier, merchantID model.MerchantID, from, to time.Time) ([]model.Booking, error)
	ListByCustomer(ctx context.Context, q db.Querier, customerID string, limit, offset int) ([]model.Booking, error)
	ListByMerchant(ctx context.Context, q db.Querier, merchantID model.MerchantID, limit, offset int) ([]model.Booking, error)
}

type MerchantStore interface {
	Get(ctx context.Context, q db.Querier, id model.MerchantID) (model.Merchant, error)
	GetByOwner(ctx context.Context, q db.Querier, ownerID string) (model.Merchant, error)
	GetByUsername(ctx context.Context, q db.Querier, username string) (model.Merchant, error)
	Lock(ctx context.Context, tx pgx.Tx, id model.MerchantID) (model.Merchant, error)
}

type ServiceStore interface {
	Get(ctx context.Context, q db.Querier, id model.ServiceID) (model.Service, error)
}

type PaymentStore interface {
	RecordProviderEvent(ctx context.Context, q db.Querier, gateway, eventID, eventType string) (bool, error)
	InsertTransaction(ctx context.Context, q db.Querier, t *model.Transaction) (bool, error)
	ListTransactions(ctx context.Context, q db.Querier, bookingID model.BookingID) ([]model.Transaction, error)
	BookingForPaymentIntent(ctx context.Context, q db.Querier, gateway, paymentIntentID string) (model.BookingID, error)
}

type IdempotencyStore interface {
	Lock(ctx context.Context, tx pgx.Tx, customerID, key string) (storage.IdempotencyRecord, error)
	Finalize(ctx context.Context, q db.Querier, rec storage.IdempotencyRecord) error
}

type EventWriter interface {
	Insert(ctx context.Context, q db.Querier, evt outbox.Event) error
}

type Deps struct {
	DB          db.DB
	Bookings    BookingStore
	Merchants   MerchantStore
	Services    ServiceStore
	Payments    PaymentStore
	Idempotency IdempotencyStore
	Outbox      EventWriter
	// Gateway may be nil in development; bookings are then created without a checkout session.
	Gateway payments.Gateway
	Metrics *metrics.BookingMetrics
	Logger  *slog.Logger
	Now     func() time.Time
}

type Service struct {
	db          db.DB
	bookings    BookingStore
	merchants   MerchantStore
	services    ServiceStore
	payments    PaymentStore
	idempotency IdempotencyStore
	outbox      EventWriter
	gateway     payments.Gateway
	metrics     *metrics.BookingMetrics
	logger      *slog.Logger
	now         func() time.Time
}

func New(d Deps) *Service {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Service{
		db:          d.DB,
		bookings:    d.Bookings,
		merchants:   d.Merchants,
		services:    d.Services,
		payments:    d.Payments,
		idempotency: d.Idempotency,
		outbox:      d.Outbox,
		gateway:     d.Gateway,
		metrics:     d.Metrics,
		logger:      d.Logger,
		now:         d.Now,
	}
}
