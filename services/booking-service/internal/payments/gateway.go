// Package payments talks to the payment provider: checkout sessions for bookings,
// Connect accounts for merchants, and signed webhook events.
package payments

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
)

const GatewayStripe = "stripe"

var ErrNotConfigured = errors.New("payments provider not configured")

type CheckoutRequest struct {
	BookingID        string
	CustomerEmail    string
	ServiceName      string
	Description      string
	AmountMinor      int64
	Currency         string
	ConnectedAccount string
}

type CheckoutSession struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type CheckoutStatus struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"payment_status"`
	CustomerEmail string `json:"customer_email"`
	BookingID     string `json:"booking_id,omitempty"`
}

type AccountStatus struct {
	AccountID        string `json:"account_id"`
	DetailsSubmitted bool   `json:"details_submitted"`
	ChargesEnabled   bool   `json:"charges_enabled"`
}

// Gateway is what booking and merchant flows need from the payment provider.
type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error)
	CheckoutStatus(ctx context.Context, sessionID string) (CheckoutStatus, error)
	CreateConnectedAccount(ctx context.Context, email, country string) (string, error)
	LoginLink(ctx context.Context, accountID string) (string, error)
	AccountStatus(ctx context.Context, accountID string) (AccountStatus, error)
}

type StripeConfig struct {
	SecretKey string
	ReturnURL string
	// ApplicationFeeBPS is the platform cut in basis points of the booking amount.
	ApplicationFeeBPS int64
	// Backends overrides the API endpoints. Nil uses the public Stripe API.
	Backends *stripe.Backends
}

type StripeGateway struct {
	api       *client.API
	returnURL string
	feeBPS    int64
}

func NewStripeGateway(cfg StripeConfig) (*StripeGateway, error) {
	if strings.TrimSpace(cfg.SecretKey) == "" {
		return nil, ErrNotConfigured
	}
	return &StripeGateway{
		api:       client.New(cfg.SecretKey, cfg.Backends),
		returnURL: cfg.ReturnURL,
		feeBPS:    cfg.ApplicationFeeBPS,
	}, nil
}

func (g *StripeGateway) CreateCheckout(ctx context.Context, req CheckoutRequest) (CheckoutSession, error) {
	if req.AmountMinor <= 0 {
		return CheckoutSession{}, fmt.Errorf("checkout amount must be positive, got %d", req.AmountMinor)
	}
	metadata := map[string]string{"booking_id": req.BookingID}

	params := &stripe.CheckoutSessionParams{
		UIMode:             stripe.String(string(stripe.CheckoutSessionUIModeEmbedded)),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		ReturnURL:          stripe.String(g.returnURL),
		ClientReferenceID:  stripe.String(req.BookingID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(strings.ToLower(req.Currency)),
				UnitAmount: stripe.Int64(req.AmountMinor),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(req.ServiceName),
				},
			},
			Quantity: stripe.Int64(1),
		}},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	if req.Description != "" {
		params.LineItems[0].PriceData.ProductData.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.ConnectedAccount != "" {
		params.PaymentIntentData.TransferData = &stripe.CheckoutSessionPaymentIntentDataTransferDataParams{
			Destination: stripe.String(req.ConnectedAccount),
		}
		if fee := req.AmountMinor * g.feeBPS / 10000; fee > 0 {
			params.PaymentIntentData.ApplicationFeeAmount = stripe.Int64(fee)
		}
	}
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	params.Context = ctx
	params.SetIdempotencyKey("checkout-" + req.BookingID)

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("create checkout session: %w", err)
	}
	return CheckoutSession{ID: sess.ID, ClientSecret: sess.ClientSecret}, nil
}

func (g *StripeGateway) CheckoutStatus(ctx context.Context, sessionID string) (CheckoutStatus, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx
	sess, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		return CheckoutStatus{}, fmt.Errorf("get checkout session: %w", err)
	}
	out := CheckoutStatus{
		Status:        string(sess.Status),
		PaymentStatus: string(sess.PaymentStatus),
		BookingID:     sess.Metadata["booking_id"],
	}
	if sess.CustomerDetails != nil {
		out.CustomerEmail = sess.CustomerDetails.Email
	}
	return out, nil
}

func (g *StripeGateway) CreateConnectedAccount(ctx context.Context, email, country string) (string, error) {
	params := &stripe.AccountParams{
		Type:    stripe.String(string(stripe.AccountTypeExpress)),
		Country: stripe.String(strings.ToUpper(country)),
		Email:   stripe.String(email),
		Capabilities: &stripe.AccountCapabilitiesParams{
			CardPayments: &stripe.AccountCapabilitiesCardPaymentsParams{Requested: stripe.Bool(true)},
			Transfers:    &stripe.AccountCapabilitiesTransfersParams{Requested: stripe.Bool(true)},
		},
	}
	params.Context = ctx
	acct, err := g.api.Accounts.New(params)
	if err != nil {
		return "", fmt.Errorf("create connected account: %w", err)
	}
	return acct.ID, nil
}

func (g *StripeGateway) LoginLink(ctx context.Context, accountID string) (string, error) {
	params := &stripe.LoginLinkParams{Account: stripe.String(accountID)}
	params.Context = ctx
	link, err := g.api.LoginLinks.New(params)
	if err != nil {
		return "", fmt.Errorf("create login link: %w", err)
	}
	return link.URL, nil
}

func (g *StripeGateway) AccountStatus(ctx context.Context, accountID string) (AccountStatus, error) {
	params := &stripe.AccountParams{}
	params.Context = ctx
	acct, err := g.api.Accounts.GetByID(accountID, params)
	if err != nil {
		return AccountStatus{}, fmt.Errorf("get account: %w", err)
	}
	return AccountStatus{
		AccountID:        acct.ID,
		DetailsSubmitted: acct.DetailsSubmitted,
		ChargesEnabled:   acct.ChargesEnabled,
	}, nil
}
