package handlers

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/services/booking-service/internal/merchants"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/payments"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

type MerchantService interface {
	CreateProfile(ctx context.Context, who auth.Identity, req merchants.CreateProfileRequest) (merchants.Profile, error)
	Me(ctx context.Context, who auth.Identity) (merchants.Profile, error)
	PublicProfile(ctx context.Context, username string) (merchants.PublicProfile, error)
	UpdateSchedule(ctx context.Context, who auth.Identity, w schedule.Weekly) (merchants.Profile, error)
	Delete(ctx context.Context, who auth.Identity) error
	UsernameAvailable(ctx context.Context, username string) (merchants.UsernameAvailability, error)
	CreatePaymentsAccount(ctx context.Context, who auth.Identity, country string) (merchants.PaymentsAccount, error)
	LoginLink(ctx context.Context, who auth.Identity) (merchants.LoginLink, error)
	PaymentsStatus(ctx context.Context, who auth.Identity) (payments.AccountStatus, error)
	CreateService(ctx context.Context, who auth.Identity, req merchants.CreateServiceRequest) (merchants.ServiceView, error)
	GetService(ctx context.Context, id model.ServiceID) (merchants.ServiceView, error)
	DeleteService(ctx context.Context, who auth.Identity, id model.ServiceID) error
	MerchantID(ctx context.Context, who auth.Identity) (model.MerchantID, error)
}

type MerchantHandler struct {
	svc    MerchantService
	logger *slog.Logger
}

func NewMerchantHandler(svc MerchantService, logger *slog.Logger) *MerchantHandler {
	return &MerchantHandler{svc: svc, logger: logger}
}

// authed runs fn for a request carrying a verified identity and writes its result.
func (h *MerchantHandler) authed(status int, fn func(r *http.Request, who auth.Identity) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, ok := identity(w, r, h.logger)
		if !ok {
			return
		}
		res, err := fn(r, who)
		if err != nil {
			writeError(w, r, h.logger, err)
			return
		}
		if res == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		httpx.WriteJSON(w, status, res)
	}
}

func (h *MerchantHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusCreated, func(r *http.Request, who auth.Identity) (any, error) {
		var req merchants.CreateProfileRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return nil, invalidBody(err)
		}
		return h.svc.CreateProfile(r.Context(), who, req)
	})(w, r)
}

func (h *MerchantHandler) Me(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusOK, func(r *http.Request, who auth.Identity) (any, error) {
		return h.svc.Me(r.Context(), who)
	})(w, r)
}

func (h *MerchantHandler) PublicProfile(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.PublicProfile(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *MerchantHandler) UpdateAvailability(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusOK, func(r *http.Request, who auth.Identity) (any, error) {
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, invalidBody(err)
		}
		weekly, err := schedule.Decode(raw)
		if err != nil {
			return nil, invalidBody(err)
		}
		return h.svc.UpdateSchedule(r.Context(), who, weekly)
	})(w, r)
}

func (h *MerchantHandler) Delete(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusNoContent, func(r *http.Request, who auth.Identity) (any, error) {
		return nil, h.svc.Delete(r.Context(), who)
	})(w, r)
}

func (h *MerchantHandler) Username(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.UsernameAvailable(r.Context(), r.PathValue("username"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

type paymentsAccountRequest struct {
	Country string `json:"country"`
}

func (h *MerchantHandler) CreatePaymentsAccount(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusCreated, func(r *http.Request, who auth.Identity) (any, error) {
		var req paymentsAccountRequest
		if err := httpx.DecodeJSON(r, &req); err != nil && !errors.Is(err, httpx.ErrEmptyBody) {
			return nil, invalidBody(err)
		}
		return h.svc.CreatePaymentsAccount(r.Context(), who, req.Country)
	})(w, r)
}

func (h *MerchantHandler) LoginLink(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusOK, func(r *http.Request, who auth.Identity) (any, error) {
		return h.svc.LoginLink(r.Context(), who)
	})(w, r)
}

func (h *MerchantHandler) PaymentsStatus(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusOK, func(r *http.Request, who auth.Identity) (any, error) {
		return h.svc.PaymentsStatus(r.Context(), who)
	})(w, r)
}

func (h *MerchantHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusCreated, func(r *http.Request, who auth.Identity) (any, error) {
		var req merchants.CreateServiceRequest
		if err := httpx.DecodeJSON(r, &req); err != nil {
			return nil, invalidBody(err)
		}
		return h.svc.CreateService(r.Context(), who, req)
	})(w, r)
}

func (h *MerchantHandler) GetService(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.GetService(r.Context(), model.ServiceID(r.PathValue("id")))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

func (h *MerchantHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	h.authed(http.StatusNoContent, func(r *http.Request, who auth.Identity) (any, error) {
		return nil, h.svc.DeleteService(r.Context(), who, model.ServiceID(r.PathValue("id")))
	})(w, r)
}
