package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/bookings"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
)

const maxWebhookBytes = 1 << 20

type PaymentEventApplier interface {
	ApplyPaymentEvent(ctx context.Context, evt payments.Event) (bookings.Outcome, error)
}

// WebhookParser verifies and decodes a provider webhook.
type WebhookParser interface {
	Configured() bool
	Parse(payload []byte, signature string) (payments.Event, bool, error)
}

type WebhookHandler struct {
	parser  WebhookParser
	applier PaymentEventApplier
	logger  *slog.Logger
}

func NewWebhookHandler(parser WebhookParser, applier PaymentEventApplier, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{parser: parser, applier: applier, logger: logger}
}

var webhookAccepted = map[string]string{"status": "success"}

// Payment answers 200 for every verified event, whatever it did to the booking.
// Only storage failures answer 500 so the provider retries.
func (h *WebhookHandler) Payment(w http.ResponseWriter, r *http.Request) {
	if !h.parser.Configured() {
		writeError(w, r, h.logger, apperr.Upstream(payments.ErrNotConfigured, "webhooks are not configured"))
		return
	}
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httpx.WriteJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: errorDetail{
				Kind:    string(apperr.KindValidation),
				Message: "payload too large",
			}})
			return
		}
		badRequest(w, r, h.logger, "unreadable body")
		return
	}

	evt, ok, err := h.parser.Parse(payload, r.Header.Get("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, payments.ErrInvalidSignature) {
			h.logger.WarnContext(r.Context(), "webhook signature rejected", slog.Any("err", err))
			badRequest(w, r, h.logger, "invalid signature")
			return
		}
		badRequest(w, r, h.logger, "invalid event payload")
		return
	}
	if !ok {
		httpx.WriteJSON(w, http.StatusOK, webhookAccepted)
		return
	}

	outcome, err := h.applier.ApplyPaymentEvent(r.Context(), evt)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "payment event failed",
			slog.String("event_id", evt.ID),
			slog.String("event_type", evt.Type),
			slog.Any("err", err),
		)
		writeError(w, r, h.logger, err)
		return
	}
	if outcome != bookings.OutcomeApplied {
		h.logger.InfoContext(r.Context(), "payment event not applied",
			slog.String("event_id", evt.ID),
			slog.String("booking_id", string(evt.BookingID)),
			slog.String("outcome", string(outcome)),
		)
	}
	httpx.WriteJSON(w, http.StatusOK, webhookAccepted)
}
