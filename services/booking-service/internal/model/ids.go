package model

import (
	"errors"

	"github.com/google/uuid"
)

// ErrInvalidID means a value cannot be a stored row id.
var ErrInvalidID = errors.New("invalid id")

// ParseBookingID accepts only the UUID ids bookings are stored under.
func ParseBookingID(raw string) (BookingID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return "", ErrInvalidID
	}
	return BookingID(id.String()), nil
}
