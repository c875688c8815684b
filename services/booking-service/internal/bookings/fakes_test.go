package bookings

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/suavhq/suav/libs/db"
	"github.com/suavhq/suav/libs/outbox"
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
)

// store is an in-memory database. Writes made through a fakeTx become visible on
// commit; row locks taken through a fakeTx are released when it ends.
type store struct {
	mu        sync.Mutex
	seq       int
	bookings  map[model.BookingID]model.Booking
	merchants map[model.MerchantID]model.Merchant
	services  map[model.ServiceID]model.Service
	events    map[string]bool
	txns      []model.Transaction
	idem      map[string]storage.IdempotencyRecord
	published []outbox.Event

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

func newStore() *store {
	return &store{
		bookings:  map[model.BookingID]model.Booking{},
		merchants: map[model.MerchantID]model.Merchant{},
		services:  map[model.ServiceID]model.Service{},
		events:    map[string]bool{},
		idem:      map[string]storage.IdempotencyRecord{},
		locks:     map[string]*sync.Mutex{},
	}
}

func (s *store) nextID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *store) write(q db.Querier, fn func()) {
	if tx, ok := q.(*fakeTx); ok {
		tx.pending = append(tx.pending, fn)
		return
	}
	s.mu.Lock()
	fn()
	s.mu.Unlock()
}

func (s *store) lockRow(tx pgx.Tx, key string) {
	s.locksMu.Lock()
	l, ok := s.locks[key]
	if !ok {
		l = &sync.Mutex{}
		s.locks[key] = l
	}
	s.locksMu.Unlock()
	l.Lock()
	ft := tx.(*fakeTx)
	ft.release = append(ft.release, l.Unlock)
}

func (s *store) outboxTopics() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.published))
	for _, e := range s.published {
		out = append(out, e.EventType)
	}
	return out
}

func (s *store) booking(id model.BookingID) model.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id]
}

func (s *store) bookingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookings)
}

type fakeDB struct {
	db.DB
	st *store
}

func (d *fakeDB) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{st: d.st}, nil
}

type fakeTx struct {
	pgx.Tx
	st      *store
	pending []func()
	release []func()
	done    bool
}

func (t *fakeTx) Commit(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.st.mu.Lock()
	for _, fn := range t.pending {
		fn()
	}
	t.st.mu.Unlock()
	t.end()
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.end()
	return nil
}

func (t *fakeTx) end() {
	for i := len(t.release) - 1; i >= 0; i-- {
		t.release[i]()
	}
	t.release = nil
}

type bookingFake struct{ *store }

func (f bookingFake) Insert(_ context.Context, q db.Querier, b *model.Booking) error {
	b.ID = model.BookingID(uuid.NewString())
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	row := *b
	f.write(q, func() { f.bookings[row.ID] = row })
	return nil
}

func (f bookingFake) Get(_ context.Context, _ db.Querier, id model.BookingID) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	b, ok := f.bookings[id]
	if !ok {
		return model.Booking{}, storage.ErrNotFound
	}
	return b, nil
}

func (f bookingFake) GetForUpdate(ctx context.Context, tx pgx.Tx, id model.BookingID) (model.Booking, error) {
	f.lockRow(tx, "booking:"+string(id))
	return f.Get(ctx, tx, id)
}

func (f bookingFake) GetByCheckoutSession(_ context.Context, _ db.Querier, sessionID string) (model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.CheckoutSessionID == sessionID {
			return b, nil
		}
	}
	return model.Booking{}, storage.ErrNotFound
}

func (f bookingFake) UpdateState(_ context.Context, tx pgx.Tx, id model.BookingID, s lifecycle.State) error {
	f.write(tx, func() {
		b := f.bookings[id]
		b.SetState(s)
		f.bookings[id] = b
	})
	return nil
}

func (f bookingFake) Reschedule(_ context.Context, tx pgx.Tx, id model.BookingID, start, end time.Time, s lifecycle.State) error {
	f.write(tx, func() {
		b := f.bookings[id]
		b.StartTime, b.EndTime = start, end
		b.SetState(s)
		f.bookings[id] = b
	})
	return nil
}

func (f bookingFake) SetCheckoutSession(_ context.Context, tx pgx.Tx, id model.BookingID, sessionID string) error {
	f.write(tx, func() {
		b := f.bookings[id]
		b.CheckoutSessionID = sessionID
		f.bookings[id] = b
	})
	return nil
}

func (f bookingFake) ListActive(_ context.Context, _ db.Querier, merchantID model.MerchantID, from, to time.Time) ([]model.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if b.MerchantID == merchantID && b.BookingStatus.BlocksSlot() &&
			clock.Overlaps(b.Window(), clock.Interval{Start: from, End: to}) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f bookingFake) list(match func(model.Booking) bool, limit, offset int) []model.Booking {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Booking
	for _, b := range f.bookings {
		if match(b) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	if offset >= len(out) {
		return nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (f bookingFake) ListByCustomer(_ context.Context, _ db.Querier, customerID string, limit, offset int) ([]model.Booking, error) {
	return f.list(func(b model.Booking) bool { return b.CustomerID == customerID }, limit, offset), nil
}

func (f bookingFake) ListByMerchant(_ context.Context, _ db.Querier, merchantID model.MerchantID, limit, offset int) ([]model.Booking, error) {
	return f.list(func(b model.Booking) bool { return b.MerchantID == merchantID }, limit, offset), nil
}

type merchantFake struct{ *store }

func (f merchantFake) find(match func(model.Merchant) bool) (model.Merchant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range f.merchants {
		if match(m) {
			return m, nil
		}
	}
	return model.Merchant{}, storage.ErrNotFound
}

func (f merchantFake) Get(_ context.Context, _ db.Querier, id model.MerchantID) (model.Merchant, error) {
	return f.find(func(m model.Merchant) bool { return m.ID == id })
}

func (f merchantFake) GetByOwner(_ context.Context, _ db.Querier, ownerID string) (model.Merchant, error) {
	return f.find(func(m model.Merchant) bool { return m.OwnerID == ownerID })
}

func (f merchantFake) GetByUsername(_ context.Context, _ db.Querier, username string) (model.Merchant, error) {
	return f.find(func(m model.Merchant) bool { return m.Username == username })
}

func (f merchantFake) Lock(ctx context.Context, tx pgx.Tx, id model.MerchantID) (model.Merchant, error) {
	f.lockRow(tx, "merchant:"+string(id))
	return f.Get(ctx, tx, id)
}

type serviceFake struct{ *store }

func (f serviceFake) Get(_ context.Context, _ db.Querier, id model.ServiceID) (model.Service, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.services[id]
	if !ok {
		return model.Service{}, storage.ErrNotFound
	}
	return s, nil
}

type paymentFake struct{ *store }

func (f paymentFake) RecordProviderEvent(_ context.Context, q db.Querier, gateway, eventID, _ string) (bool, error) {
	key := gateway + "/" + eventID
	f.mu.Lock()
	seen := f.events[key]
	f.mu.Unlock()
	if seen {
		return false, nil
	}
	f.write(q, func() { f.events[key] = true })
	return true, nil
}

func (f paymentFake) InsertTransaction(_ context.Context, q db.Querier, t *model.Transaction) (bool, error) {
	f.mu.Lock()
	for _, existing := range f.txns {
		if existing.Gateway == t.Gateway && existing.PaymentIntentID == t.PaymentIntentID && existing.Status == t.Status {
			f.mu.Unlock()
			return false, nil
		}
	}
	f.mu.Unlock()
	t.ID = f.nextID("tx")
	row := *t
	f.write(q, func() { f.txns = append(f.txns, row) })
	return true, nil
}

func (f paymentFake) ListTransactions(_ context.Context, _ db.Querier, bookingID model.BookingID) ([]model.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Transaction
	for _, t := range f.txns {
		if t.BookingID == bookingID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f paymentFake) BookingForPaymentIntent(_ context.Context, _ db.Querier, gateway, paymentIntentID string) (model.BookingID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range f.txns {
		if t.Gateway == gateway && t.PaymentIntentID == paymentIntentID {
			return t.BookingID, nil
		}
	}
	return "", storage.ErrNotFound
}

type idemFake struct{ *store }

func (f idemFake) Lock(_ context.Context, tx pgx.Tx, customerID, key string) (storage.IdempotencyRecord, error) {
	f.lockRow(tx, "idem:"+customerID+"/"+key)
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.idem[customerID+"/"+key]
	if !ok {
		rec = storage.IdempotencyRecord{CustomerID: customerID, IdempotencyKey: key}
	}
	return rec, nil
}

func (f idemFake) Finalize(_ context.Context, q db.Querier, rec storage.IdempotencyRecord) error {
	f.write(q, func() { f.idem[rec.CustomerID+"/"+rec.IdempotencyKey] = rec })
	return nil
}

type outboxFake struct{ *store }

func (f outboxFake) Insert(_ context.Context, q db.Querier, evt outbox.Event) error {
	f.write(q, func() { f.published = append(f.published, evt) })
	return nil
}

type fakeGateway struct {
	payments.Gateway
	mu       sync.Mutex
	err      error
	requests []payments.CheckoutRequest
}

func (g *fakeGateway) CreateCheckout(_ context.Context, req payments.CheckoutRequest) (payments.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return payments.CheckoutSession{}, g.err
	}
	return payments.CheckoutSession{ID: "cs_" + req.BookingID, ClientSecret: "secret_" + req.BookingID}, nil
}

func (g *fakeGateway) CheckoutStatus(_ context.Context, sessionID string) (payments.CheckoutStatus, error) {
	return payments.CheckoutStatus{Status: "complete", PaymentStatus: "paid"}, nil
}
