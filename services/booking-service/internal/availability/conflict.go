package availability

import (
	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/model"
)

// HasConflict reports whether candidate overlaps any booking that still holds its slot.
func HasConflict(candidate clock.Interval, existing []model.Booking) bool {
	return ConflictsExcept(candidate, existing, "")
}

// ConflictsExcept is HasConflict ignoring the booking with id self, so a booking
// being moved never conflicts with its own current window.
func ConflictsExcept(candidate clock.Interval, existing []model.Booking, self model.BookingID) bool {
	for _, b := range existing {
		if self != "" && b.ID == self {
			continue
		}
		if !b.BookingStatus.BlocksSlot() {
			continue
		}
		if clock.Overlaps(candidate, b.Window()) {
			return true
		}
	}
	return false
}
