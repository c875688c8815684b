package merchants

import (
	"context"
	"log/slog"
	"strings"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
)

type PaymentsAccount struct {
	Provider  string `json:"provider"`
	AccountID string `json:"account_id"`
}

func (s *Service) gatewayOrErr() (payments.Gateway, error) {
	if s.gateway == nil {
		return nil, apperr.Upstream(payments.ErrNotConfigured, "payments are not configured")
	}
	return s.gateway, nil
}

func (s *Service) connected(ctx context.Context, who auth.Identity) (model.Merchant, payments.Gateway, error) {
	gw, err := s.gatewayOrErr()
	if err != nil {
		return model.Merchant{}, nil, err
	}
	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return model.Merchant{}, nil, err
	}
	if m.PaymentsAccountID == "" {
		return model.Merchant{}, nil, apperr.NotFound("no payments account connected")
	}
	return m, gw, nil
}

// CreatePaymentsAccount opens a connected account for the caller. An existing
// account is returned unchanged.
func (s *Service) CreatePaymentsAccount(ctx context.Context, who auth.Identity, country string) (a PaymentsAccount, err error) {
	ctx, span := s.start(ctx, "create_payments_account")
	defer func() { s.finish(span, "create_payments_account", err) }()

	gw, err := s.gatewayOrErr()
	if err != nil {
		return PaymentsAccount{}, err
	}
	m, err := s.own(ctx, s.db, who)
	if err != nil {
		return PaymentsAccount{}, err
	}
	if m.PaymentsAccountID != "" {
		return PaymentsAccount{Provider: m.PaymentsProvider, AccountID: m.PaymentsAccountID}, nil
	}
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		country = s.defaultCountry
	}
	if len(country) != 2 {
		return PaymentsAccount{}, apperr.Validation("country must be a two letter ISO code")
	}
	accountID, err := gw.CreateConnectedAccount(ctx, m.Email, country)
	if err != nil {
		return PaymentsAccount{}, apperr.Upstream(err, "payment provider rejected the account")
	}
	if err := s.merchants.SetPaymentsAccount(ctx, s.db, m.ID, payments.GatewayStripe, accountID); err != nil {
		return PaymentsAccount{}, storageError(err, "merchant profile")
	}
	s.logger.InfoContext(ctx, "payments account connected",
		slog.String("merchant_id", string(m.ID)),
		slog.String("account_id", accountID),
	)
	return PaymentsAccount{Provider: payments.GatewayStripe, AccountID: accountID}, nil
}

type LoginLink struct {
	URL string `json:"url"`
}

func (s *Service) LoginLink(ctx context.Context, who auth.Identity) (l LoginLink, err error) {
	ctx, span := s.start(ctx, "login_link")
	defer func() { s.finish(span, "login_link", err) }()

	m, gw, err := s.connected(ctx, who)
	if err != nil {
		return LoginLink{}, err
	}
	url, err := gw.LoginLink(ctx, m.PaymentsAccountID)
	if err != nil {
		return LoginLink{}, apperr.Upstream(err, "login link unavailable")
	}
	return LoginLink{URL: url}, nil
}

// PaymentsStatus reports whether onboarding of the connected account finished.
func (s *Service) PaymentsStatus(ctx context.Context, who auth.Identity) (st payments.AccountStatus, err error) {
	ctx, span := s.start(ctx, "payments_status")
	defer func() { s.finish(span, "payments_status", err) }()

	m, gw, err := s.connected(ctx, who)
	if err != nil {
		return payments.AccountStatus{}, err
	}
	st, err = gw.AccountStatus(ctx, m.PaymentsAccountID)
	if err != nil {
		return payments.AccountStatus{}, apperr.Upstream(err, "account status unavailable")
	}
	return st, nil
}
