package bookings

import (
	"errors"
	"fmt"

	"github.com/suavhq/suav/services/booking-service/internal/apperr"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/storage"
)

func lifecycleError(err error) error {
	switch {
	case errors.Is(err, lifecycle.ErrNoChange):
		return apperr.NotModified("booking already in the requested state")
	case errors.Is(err, lifecycle.ErrTerminal):
		return apperr.Conflict("booking can no longer change")
	case errors.Is(err, lifecycle.ErrInvalidTransition):
		return apperr.Wrap(apperr.KindConflict, err, "status change not allowed")
	}
	return err
}

func storageError(err error, what string) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return apperr.NotFound("%s not found", what)
	case errors.Is(err, storage.ErrOverlap):
		return apperr.Conflict("time slot already booked")
	case errors.Is(err, storage.ErrDuplicate):
		return apperr.Conflict("%s already exists", what)
	}
	return fmt.Errorf("%s: %w", what, err)
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	return string(apperr.KindOf(err))
}
