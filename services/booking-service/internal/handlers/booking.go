package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/services/booking-service/internal/bookings"
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
)

// BookingService is the booking API the handlers drive.
type BookingService interface {
	Availability(ctx context.Context, username string, startDate clock.Date, durationMinutes int) (bookings.Availability, error)
	Create(ctx context.Context, who auth.Identity, req bookings.CreateRequest) (bookings.CreateResponse, bool, error)
	RequestReschedule(ctx context.Context, who auth.Identity, id model.BookingID) (bookings.BookingView, error)
	ConfirmReschedule(ctx context.Context, who auth.Identity, id model.BookingID, start time.Time) (bookings.BookingView, error)
	Cancel(ctx context.Context, who auth.Identity, id model.BookingID) (bookings.BookingView, error)
	MerchantAction(ctx context.Context, who auth.Identity, id model.BookingID, action bookings.MerchantAction) (bookings.BookingView, error)
	Get(ctx context.Context, who auth.Identity, id model.BookingID) (bookings.BookingDetail, error)
	ListForCustomer(ctx context.Context, who auth.Identity, p bookings.Page) (bookings.BookingList, error)
	ListForMerchant(ctx context.Context, who auth.Identity, p bookings.Page) (bookings.BookingList, error)
	CheckoutStatus(ctx context.Context, who auth.Identity, sessionID string) (payments.CheckoutStatus, error)
}

type BookingHandler struct {
	svc    BookingService
	logger *slog.Logger
}

func NewBookingHandler(svc BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{svc: svc, logger: logger}
}

type createBookingRequest struct {
	ServiceID       string `json:"service_id"`
	AppointmentDate string `json:"appointment_date"`
	CustomerPhone   string `json:"customer_phone"`
}

type rescheduleRequest struct {
	AppointmentDate string `json:"appointment_date"`
}

type statusRequest struct {
	Action string `json:"action"`
}

func (h *BookingHandler) Availability(w http.ResponseWriter, r *http.Request) {
	date, err := clock.ParseDate(r.PathValue("start_date"))
	if err != nil {
		badRequest(w, r, h.logger, "start_date must be YYYY-MM-DD")
		return
	}
	minutes, err := strconv.Atoi(r.PathValue("duration_minutes"))
	if err != nil {
		badRequest(w, r, h.logger, "duration_minutes must be an integer")
		return
	}
	res, err := h.svc.Availability(r.Context(), r.PathValue("username"), date, minutes)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	var req createBookingRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	start, err := parseTimestamp(req.AppointmentDate)
	if err != nil {
		badRequest(w, r, h.logger, "appointment_date must be an RFC 3339 timestamp")
		return
	}
	resp, replayed, err := h.svc.Create(r.Context(), who, bookings.CreateRequest{
		ServiceID:       model.ServiceID(strings.TrimSpace(req.ServiceID)),
		AppointmentDate: start,
		CustomerPhone:   req.CustomerPhone,
		IdempotencyKey:  strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	if replayed {
		w.Header().Set("Idempotent-Replayed", "true")
	}
	httpx.WriteJSON(w, http.StatusCreated, resp)
}

func (h *BookingHandler) page(w http.ResponseWriter, r *http.Request) (bookings.Page, bool) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		badRequest(w, r, h.logger, "page must be an integer")
		return bookings.Page{}, false
	}
	perPage, err := queryInt(r, "per_page", 10)
	if err != nil {
		badRequest(w, r, h.logger, "per_page must be an integer")
		return bookings.Page{}, false
	}
	return bookings.Page{Page: page, PerPage: perPage}, true
}

func (h *BookingHandler) CustomerBookings(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListForCustomer(r.Context(), who, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) MerchantBookings(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	p, ok := h.page(w, r)
	if !ok {
		return
	}
	res, err := h.svc.ListForMerchant(r.Context(), who, p)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.svc.Get(r.Context(), who, id)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) RequestReschedule(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r, h.logger)
	if !ok {
		return
	}
	h.respond(w, r)(h.svc.RequestReschedule(r.Context(), who, id))
}

func (h *BookingHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r, h.logger)
	if !ok {
		return
	}
	var req rescheduleRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	start, err := parseTimestamp(req.AppointmentDate)
	if err != nil {
		badRequest(w, r, h.logger, "appointment_date must be an RFC 3339 timestamp")
		return
	}
	h.respond(w, r)(h.svc.ConfirmReschedule(r.Context(), who, id, start))
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r, h.logger)
	if !ok {
		return
	}
	h.respond(w, r)(h.svc.Cancel(r.Context(), who, id))
}

func (h *BookingHandler) Status(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	id, ok := bookingID(w, r, h.logger)
	if !ok {
		return
	}
	var req statusRequest
	if !decode(w, r, h.logger, &req) {
		return
	}
	action := bookings.MerchantAction(strings.ToLower(strings.TrimSpace(req.Action)))
	h.respond(w, r)(h.svc.MerchantAction(r.Context(), who, id, action))
}

func (h *BookingHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	who, ok := identity(w, r, h.logger)
	if !ok {
		return
	}
	res, err := h.svc.CheckoutStatus(r.Context(), who, r.PathValue("session_id"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *BookingHandler) respond(w http.ResponseWriter, r *http.Request) func(bookings.BookingView, error) {
	return func(v bookings.BookingView, err error) {
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, v)
	}
}
