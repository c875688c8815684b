package schedule

import (
	"fmt"
	"strings"
	"time"
)

type Reason string

const (
	InvalidOperatingHours             Reason = "invalid_operating_hours"
	InvalidBlockedHours               Reason = "invalid_blocked_hours"
	BlockedHoursOutsideOperatingHours Reason = "blocked_hours_outside_operating_hours"
	InvalidTimezone                   Reason = "invalid_timezone"
)

// ValidationError names the first offending weekday and why it was rejected.
// Day is nil for schedule-wide reasons.
type ValidationError struct {
	Reason Reason
	Day    *time.Weekday
}

func (e *ValidationError) Error() string {
	msg := strings.ReplaceAll(string(e.Reason), "_", " ")
	if e.Day != nil {
		return fmt.Sprintf("%s: %s", strings.ToLower(e.Day.String()), msg)
	}
	return msg
}

func dayError(r Reason, d time.Weekday) *ValidationError {
	return &ValidationError{Reason: r, Day: &d}
}

// Validate checks every weekday from Monday to Sunday and then the timezone.
// The first failure is returned.
func Validate(w Weekly) error {
	for _, wd := range Weekdays {
		if err := validateDay(wd, w.Days[wd]); err != nil {
			return err
		}
	}
	if _, err := w.Location(); err != nil {
		return err
	}
	return nil
}

func validateDay(wd time.Weekday, day DaySchedule) error {
	op := day.OperatingHours
	if op.Complete() && !op.Valid() {
		return dayError(InvalidOperatingHours, wd)
	}
	if day.IsAvailable && !op.Complete() {
		return dayError(InvalidOperatingHours, wd)
	}
	for _, b := range day.BlockedHours {
		if !b.Valid() {
			return dayError(InvalidBlockedHours, wd)
		}
		if !op.Complete() {
			return dayError(BlockedHoursOutsideOperatingHours, wd)
		}
		if !op.Contains(*b.Start) || !op.Contains(*b.End) {
			return dayError(BlockedHoursOutsideOperatingHours, wd)
		}
	}
	return nil
}
