package availability

import (
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

const (
	DefaultStep = 30 * time.Minute
	// HorizonDays is how many consecutive dates one availability query covers.
	HorizonDays = 7
)

type Options struct {
	// Step between candidate start times. Zero means DefaultStep.
	Step time.Duration
	// NotBefore drops candidates that start earlier. Zero disables the filter.
	NotBefore time.Time
}

// Generate lists bookable start times for HorizonDays dates beginning at start.
// Every date is present in the result; closed or blocked dates map to an empty list.
// Times are wall-clock times in the merchant timezone.
func Generate(w schedule.Weekly, duration time.Duration, start clock.Date, existing []model.Booking, opts Options) (map[clock.Date][]clock.TimeOfDay, error) {
	loc, err := w.Location()
	if err != nil {
		return nil, err
	}
	step := opts.Step
	if step <= 0 {
		step = DefaultStep
	}

	var booked []clock.Interval
	for _, b := range existing {
		if b.BookingStatus.BlocksSlot() {
			booked = append(booked, b.Window())
		}
	}

	out := make(map[clock.Date][]clock.TimeOfDay, HorizonDays)
	for i := 0; i < HorizonDays; i++ {
		date := start.AddDays(i)
		out[date] = []clock.TimeOfDay{}

		day := w.Day(date.Weekday())
		if !day.IsAvailable || w.IsBlocked(date) {
			continue
		}
		window, err := day.OperatingHours.Anchor(date, loc)
		if err != nil {
			continue
		}

		busy := make([]clock.Interval, 0, len(day.BlockedHours)+len(booked))
		for _, bh := range day.BlockedHours {
			iv, err := bh.Anchor(date, loc)
			if err != nil {
				continue
			}
			busy = append(busy, iv)
		}
		busy = append(busy, booked...)

		for _, t := range daySlots(window, duration, step, busy, opts.NotBefore) {
			out[date] = append(out[date], clock.TimeOfDayOf(t.In(loc)))
		}
	}
	return out, nil
}

// daySlots returns slot start times within window where a booking of length duration
// would not overlap any busy interval nor the slot admitted before it.
func daySlots(window clock.Interval, duration, step time.Duration, busy []clock.Interval, notBefore time.Time) []time.Time {
	if duration <= 0 || step <= 0 {
		return nil
	}
	if !window.End.After(window.Start) {
		return nil
	}

	var slots []time.Time
	var lastEnd time.Time
	for t := window.Start; !t.Add(duration).After(window.End); t = t.Add(step) {
		if !notBefore.IsZero() && t.Before(notBefore) {
			continue
		}
		if t.Before(lastEnd) {
			continue
		}
		candidate := clock.NewInterval(t, duration)
		if overlapsAny(candidate, busy) {
			continue
		}
		slots = append(slots, t)
		lastEnd = candidate.End
	}
	return slots
}

func overlapsAny(candidate clock.Interval, busy []clock.Interval) bool {
	for _, b := range busy {
		if clock.Overlaps(candidate, b) {
			return true
		}
	}
	return false
}
