package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/suavhq/suav/libs/auth"
	"github.com/suavhq/suav/libs/httpx"
	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// writeError maps err onto its status. Errors without a kind are logged and
// answered as 500 without their details.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("request_id", httpx.RequestIDFromContext(r.Context())),
			slog.Any("err", err),
		)
		httpx.WriteJSON(w, http.StatusInternalServerError, errorBody{Error: errorDetail{
			Kind:    string(apperr.KindInternal),
			Message: "internal error",
		}})
		return
	}
	status := ae.Kind.HTTPStatus()
	if status == http.StatusNotModified {
		w.WriteHeader(status)
		return
	}
	if ae.Kind == apperr.KindUpstream {
		logger.WarnContext(r.Context(), "upstream failure",
			slog.String("path", r.URL.Path),
			slog.Any("err", ae.Err),
		)
	}
	msg := ae.Message
	if ae.Kind == apperr.KindUpstream && ae.Err != nil {
		msg = ae.Message + ": " + ae.Err.Error()
	}
	httpx.WriteJSON(w, status, errorBody{Error: errorDetail{Kind: string(ae.Kind), Message: msg}})
}

func badRequest(w http.ResponseWriter, r *http.Request, logger *slog.Logger, format string, args ...any) {
	writeError(w, r, logger, apperr.Validation(format, args...))
}

func invalidBody(err error) error {
	var de *schedule.DecodeError
	if errors.As(err, &de) {
		return apperr.Wrap(apperr.KindValidation, err, de.Error())
	}
	return apperr.Wrap(apperr.KindValidation, err, "invalid json body")
}

func identity(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (auth.Identity, bool) {
	id, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, logger, apperr.New(apperr.KindUnauthenticated, "missing identity"))
	}
	return id, ok
}

// bookingID reads the {id} path segment. Ids that cannot exist answer 404.
func bookingID(w http.ResponseWriter, r *http.Request, logger *slog.Logger) (model.BookingID, bool) {
	id, err := model.ParseBookingID(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		writeError(w, r, logger, apperr.NotFound("booking not found"))
		return "", false
	}
	return id, true
}

func decode(w http.ResponseWriter, r *http.Request, logger *slog.Logger, v any) bool {
	if err := httpx.DecodeJSON(r, v); err != nil {
		writeError(w, r, logger, invalidBody(err))
		return false
	}
	return true
}

func parseTimestamp(raw string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(raw))
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
