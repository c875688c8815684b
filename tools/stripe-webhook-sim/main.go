package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79/webhook"
)

type eventParams struct {
	ID              string
	Type            string
	Created         time.Time
	BookingID       string
	PaymentIntentID string
	AmountMinor     int64
	RefundedMinor   int64
	Currency        string
}

func main() {
	var (
		baseURL  = flag.String("base-url", getenv("BASE_URL", "http://localhost:8083"), "booking-service base url")
		evtType  = flag.String("type", getenv("STRIPE_EVENT_TYPE", "payment_intent.succeeded"), "stripe event type")
		booking  = flag.String("booking-id", getenv("BOOKING_ID", ""), "booking_id metadata")
		intent   = flag.String("payment-intent", getenv("PAYMENT_INTENT_ID", ""), "payment intent id (generated when empty)")
		amount   = flag.Int64("amount", 5000, "amount in minor units")
		refunded = flag.Int64("refunded", -1, "refunded amount for charge.refunded (defaults to full amount)")
		currency = flag.String("currency", "usd", "currency")
		secret   = flag.String("secret", getenv("STRIPE_WEBHOOK_SECRET", ""), "stripe webhook signing secret (whsec_...)")
	)
	flag.Parse()

	if strings.TrimSpace(*secret) == "" {
		fatal("STRIPE_WEBHOOK_SECRET is required")
	}
	if strings.TrimSpace(*booking) == "" && strings.TrimSpace(*intent) == "" {
		fatal("BOOKING_ID or PAYMENT_INTENT_ID is required")
	}

	now := time.Now().UTC()
	p := eventParams{
		ID:              fmt.Sprintf("evt_test_%d", now.UnixNano()),
		Type:            *evtType,
		Created:         now,
		BookingID:       *booking,
		PaymentIntentID: *intent,
		AmountMinor:     *amount,
		RefundedMinor:   *refunded,
		Currency:        *currency,
	}
	if p.PaymentIntentID == "" {
		p.PaymentIntentID = fmt.Sprintf("pi_test_%d", now.UnixNano())
	}
	if p.RefundedMinor < 0 {
		p.RefundedMinor = p.AmountMinor
	}

	payload, err := buildEventJSON(p)
	if err != nil {
		fatal(err.Error())
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    *secret,
		Timestamp: now,
		Scheme:    "v1",
	})

	req, err := http.NewRequest(http.MethodPost, strings.TrimRight(*baseURL, "/")+"/api/webhooks/payment", bytes.NewReader(payload))
	if err != nil {
		fatal(err.Error())
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Stripe-Signature", signed.Header)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fatal(err.Error())
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	fmt.Printf("event=%s intent=%s status=%d body=%s\n", p.ID, p.PaymentIntentID, resp.StatusCode, strings.TrimSpace(string(body)))
}

func buildEventJSON(p eventParams) ([]byte, error) {
	metadata := map[string]any{}
	if p.BookingID != "" {
		metadata["booking_id"] = p.BookingID
	}

	var object map[string]any
	switch p.Type {
	case "payment_intent.succeeded", "payment_intent.payment_failed":
		status := "succeeded"
		if p.Type == "payment_intent.payment_failed" {
			status = "requires_payment_method"
		}
		object = map[string]any{
			"id":       p.PaymentIntentID,
			"object":   "payment_intent",
			"amount":   p.AmountMinor,
			"currency": p.Currency,
			"status":   status,
			"metadata": metadata,
		}
	case "charge.refunded":
		object = map[string]any{
			"id":              "ch_" + strings.TrimPrefix(p.PaymentIntentID, "pi_"),
			"object":          "charge",
			"amount":          p.AmountMinor,
			"amount_refunded": p.RefundedMinor,
			"currency":        p.Currency,
			"payment_intent":  p.PaymentIntentID,
			"metadata":        metadata,
		}
	case "charge.dispute.created":
		object = map[string]any{
			"id":             "dp_" + strings.TrimPrefix(p.PaymentIntentID, "pi_"),
			"object":         "dispute",
			"amount":         p.AmountMinor,
			"currency":       p.Currency,
			"payment_intent": p.PaymentIntentID,
			"status":         "needs_response",
		}
	default:
		return nil, fmt.Errorf("unsupported event type: %s", p.Type)
	}

	return json.Marshal(map[string]any{
		"id":          p.ID,
		"object":      "event",
		"created":     p.Created.Unix(),
		"type":        p.Type,
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func fatal(msg string) {
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(2)
}
