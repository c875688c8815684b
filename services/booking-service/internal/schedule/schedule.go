// Package schedule models a merchant's recurring weekly availability.
package schedule

import (
	"sort"
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
)

// Weekdays lists days in the order validation walks them.
var Weekdays = []time.Weekday{
	time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday, time.Saturday, time.Sunday,
}

type DaySchedule struct {
	IsAvailable    bool               `json:"is_available"`
	OperatingHours clock.TimeWindow   `json:"operating_hours"`
	BlockedHours   []clock.TimeWindow `json:"blocked_hours"`
}

// Weekly is one merchant's schedule. Days always carries all seven weekdays.
type Weekly struct {
	Timezone     string
	Days         map[time.Weekday]DaySchedule
	BlockedDates map[clock.Date]struct{}
}

// Default is the schedule of a freshly created merchant: closed every day.
func Default() Weekly {
	w := Weekly{
		Days:         make(map[time.Weekday]DaySchedule, 7),
		BlockedDates: map[clock.Date]struct{}{},
	}
	for _, d := range Weekdays {
		w.Days[d] = DaySchedule{BlockedHours: []clock.TimeWindow{}}
	}
	return w
}

// Location resolves the merchant timezone. An empty zone means UTC.
func (w Weekly) Location() (*time.Location, error) {
	if w.Timezone == "" {
		return time.UTC, nil
	}
	if w.Timezone == "Local" {
		return nil, &ValidationError{Reason: InvalidTimezone}
	}
	loc, err := time.LoadLocation(w.Timezone)
	if err != nil {
		return nil, &ValidationError{Reason: InvalidTimezone}
	}
	return loc, nil
}

func (w Weekly) Day(d time.Weekday) DaySchedule {
	return w.Days[d]
}

func (w Weekly) IsBlocked(d clock.Date) bool {
	_, ok := w.BlockedDates[d]
	return ok
}

func (w Weekly) sortedBlockedDates() []clock.Date {
	out := make([]clock.Date, 0, len(w.BlockedDates))
	for d := range w.BlockedDates {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// Admits reports whether iv lies on one open day, inside its operating hours and
// clear of its blocked hours. Used as a guardrail when a booking is written.
func (w Weekly) Admits(iv clock.Interval) bool {
	loc, err := w.Location()
	if err != nil {
		return false
	}
	date := clock.DateOf(iv.Start.In(loc))
	day := w.Days[date.Weekday()]
	if !day.IsAvailable || w.IsBlocked(date) {
		return false
	}
	open, err := day.OperatingHours.Anchor(date, loc)
	if err != nil || !iv.Within(open) {
		return false
	}
	for _, b := range day.BlockedHours {
		blocked, err := b.Anchor(date, loc)
		if err != nil {
			continue
		}
		if clock.Overlaps(iv, blocked) {
			return false
		}
	}
	return true
}

// Equal compares two schedules by their canonical encoding.
func Equal(a, b Weekly) bool {
	ra, errA := a.MarshalJSON()
	rb, errB := b.MarshalJSON()
	return errA == nil && errB == nil && string(ra) == string(rb)
}
