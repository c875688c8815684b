package bookings

import (
	"context"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

// Get returns the booking with its transactions to its customer or merchant.
func (s *Service) Get(ctx context.Context, who auth.Identity, id model.BookingID) (d BookingDetail, err error) {
	ctx, span := s.start(ctx, "get")
	defer func() { s.finish(span, "get", err) }()

	b, err := s.bookings.Get(ctx, s.db, id)
	if err != nil {
		return BookingDetail{}, storageError(err, "booking")
	}
	if b.CustomerID != who.Subject {
		m, err := s.merchants.Get(ctx, s.db, b.MerchantID)
		if err != nil {
			return BookingDetail{}, storageError(err, "merchant")
		}
		if m.OwnerID != who.Subject {
			return BookingDetail{}, apperr.Unauthorized("not allowed to view this booking")
		}
	}
	txs, err := s.payments.ListTransactions(ctx, s.db, b.ID)
	if err != nil {
		return BookingDetail{}, storageError(err, "transactions")
	}
	d = BookingDetail{BookingView: ViewOf(b), Transactions: make([]TransactionView, 0, len(txs))}
	for _, t := range txs {
		d.Transactions = append(d.Transactions, TransactionView{
			ID:              t.ID,
			Gateway:         t.Gateway,
			Type:            string(t.Type),
			Status:          t.Status,
			PaymentIntentID: t.PaymentIntentID,
			AmountMinor:     t.AmountMinor,
			Currency:        t.Currency,
			CreatedAt:       t.CreatedAt.UTC(),
		})
	}
	return d, nil
}

func validatePage(p Page) error {
	if p.Page < 1 || p.PerPage < 1 {
		return apperr.Validation("page and per_page must be at least 1")
	}
	return nil
}

func (s *Service) ListForCustomer(ctx context.Context, who auth.Identity, p Page) (l BookingList, err error) {
	ctx, span := s.start(ctx, "list_customer")
	defer func() { s.finish(span, "list_customer", err) }()

	if err := validatePage(p); err != nil {
		return BookingList{}, err
	}
	limit, offset := p.limitOffset()
	bs, err := s.bookings.ListByCustomer(ctx, s.db, who.Subject, limit, offset)
	if err != nil {
		return BookingList{}, storageError(err, "bookings")
	}
	return BookingList{Page: p.Page, PerPage: limit, Bookings: viewsOf(bs)}, nil
}

// ListForMerchant lists the bookings of the caller's merchant profile.
func (s *Service) ListForMerchant(ctx context.Context, who auth.Identity, p Page) (l BookingList, err error) {
	ctx, span := s.start(ctx, "list_merchant")
	defer func() { s.finish(span, "list_merchant", err) }()

	if err := validatePage(p); err != nil {
		return BookingList{}, err
	}
	m, err := s.merchants.GetByOwner(ctx, s.db, who.Subject)
	if err != nil {
		return BookingList{}, storageError(err, "merchant profile")
	}
	limit, offset := p.limitOffset()
	bs, err := s.bookings.ListByMerchant(ctx, s.db, m.ID, limit, offset)
	if err != nil {
		return BookingList{}, storageError(err, "bookings")
	}
	return BookingList{Page: p.Page, PerPage: limit, Bookings: viewsOf(bs)}, nil
}
