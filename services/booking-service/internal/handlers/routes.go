package handlers

import (
	"net/http"

	"github.com/suavhq/suav/libs/httpx"
)

type Routes struct {
	Bookings  *BookingHandler
	Merchants *MerchantHandler
	Webhooks  *WebhookHandler
	Uploads   *UploadHandler
	// RequireAuth wraps routes that need a verified caller.
	RequireAuth httpx.Middleware
	// Public wraps unauthenticated routes, usually with a rate limiter. Optional.
	Public httpx.Middleware
}

// Register mounts every API route on mux.
func (rt Routes) Register(mux *http.ServeMux) {
	authed := func(h http.HandlerFunc) http.Handler { return rt.RequireAuth(h) }
	public := func(h http.HandlerFunc) http.Handler {
		if rt.Public == nil {
			return h
		}
		return rt.Public(h)
	}

	b := rt.Bookings
	mux.Handle("GET /api/v0/booking/availability/{username}/{start_date}/{duration_minutes}", public(b.Availability))
	mux.Handle("POST /api/v0/booking/create", authed(b.Create))
	mux.Handle("GET /api/v0/booking/customer/my-bookings", authed(b.CustomerBookings))
	mux.Handle("GET /api/v0/booking/merchant/my-bookings", authed(b.MerchantBookings))
	mux.Handle("GET /api/v0/booking/checkout-status/{session_id}", authed(b.CheckoutStatus))
	mux.Handle("GET /api/v0/booking/{id}", authed(b.Get))
	mux.Handle("POST /api/v0/booking/request-reschedule/{id}", authed(b.RequestReschedule))
	mux.Handle("PUT /api/v0/booking/reschedule/{id}", authed(b.Reschedule))
	mux.Handle("PUT /api/v0/booking/cancel/{id}", authed(b.Cancel))
	mux.Handle("PUT /api/v0/booking/status/{id}", authed(b.Status))

	mux.HandleFunc("POST /api/webhooks/payment", rt.Webhooks.Payment)
	mux.HandleFunc("POST /api/webhooks/stripe", rt.Webhooks.Payment)

	m := rt.Merchants
	mux.Handle("POST /api/v0/merchant/create", authed(m.Create))
	mux.Handle("GET /api/v0/merchant/me", authed(m.Me))
	mux.Handle("GET /api/v0/merchant/profile/{username}", public(m.PublicProfile))
	mux.Handle("PUT /api/v0/merchant/update/availability", authed(m.UpdateAvailability))
	mux.Handle("DELETE /api/v0/merchant/delete", authed(m.Delete))
	mux.Handle("POST /api/v0/merchant/payments/account", authed(m.CreatePaymentsAccount))
	mux.Handle("GET /api/v0/merchant/payments/login-link", authed(m.LoginLink))
	mux.Handle("GET /api/v0/merchant/payments/status", authed(m.PaymentsStatus))
	mux.Handle("GET /api/username/{username}", public(m.Username))
	mux.Handle("POST /api/v0/services", authed(m.CreateService))
	mux.Handle("GET /api/v0/services/{id}", public(m.GetService))
	mux.Handle("DELETE /api/v0/services/{id}", authed(m.DeleteService))

	if rt.Uploads != nil {
		mux.Handle("POST /api/v0/uploads/signed-url", authed(rt.Uploads.SignedURL))
	}
}
