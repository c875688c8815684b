package schedule

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
)

// DecodeError reports a schedule document that does not match the schema.
type DecodeError struct {
	Field string
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("invalid schedule: %v", e.Err)
	}
	return fmt.Sprintf("invalid schedule field %s: %v", e.Field, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errMissing = errors.New("missing")

type dailyDoc struct {
	Monday    *DaySchedule `json:"monday"`
	Tuesday   *DaySchedule `json:"tuesday"`
	Wednesday *DaySchedule `json:"wednesday"`
	Thursday  *DaySchedule `json:"thursday"`
	Friday    *DaySchedule `json:"friday"`
	Saturday  *DaySchedule `json:"saturday"`
	Sunday    *DaySchedule `json:"sunday"`
}

func (d *dailyDoc) slots() map[time.Weekday]**DaySchedule {
	return map[time.Weekday]**DaySchedule{
		time.Monday:    &d.Monday,
		time.Tuesday:   &d.Tuesday,
		time.Wednesday: &d.Wednesday,
		time.Thursday:  &d.Thursday,
		time.Friday:    &d.Friday,
		time.Saturday:  &d.Saturday,
		time.Sunday:    &d.Sunday,
	}
}

type weeklyDoc struct {
	Timezone      string       `json:"timezone"`
	DailySchedule *dailyDoc    `json:"daily_schedule"`
	BlockedDates  []clock.Date `json:"blocked_dates"`
}

// Decode parses a schedule document. Unknown fields, missing weekdays and
// malformed times are rejected.
func Decode(raw []byte) (Weekly, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var doc weeklyDoc
	if err := dec.Decode(&doc); err != nil {
		return Weekly{}, &DecodeError{Err: err}
	}
	if doc.DailySchedule == nil {
		return Weekly{}, &DecodeError{Field: "daily_schedule", Err: errMissing}
	}

	w := Weekly{
		Timezone:     strings.TrimSpace(doc.Timezone),
		Days:         make(map[time.Weekday]DaySchedule, 7),
		BlockedDates: make(map[clock.Date]struct{}, len(doc.BlockedDates)),
	}
	slots := doc.DailySchedule.slots()
	for _, wd := range Weekdays {
		day := *slots[wd]
		if day == nil {
			return Weekly{}, &DecodeError{Field: "daily_schedule." + strings.ToLower(wd.String()), Err: errMissing}
		}
		if day.BlockedHours == nil {
			day.BlockedHours = []clock.TimeWindow{}
		}
		w.Days[wd] = *day
	}
	for _, d := range doc.BlockedDates {
		w.BlockedDates[d] = struct{}{}
	}
	return w, nil
}

func (w Weekly) MarshalJSON() ([]byte, error) {
	daily := &dailyDoc{}
	slots := daily.slots()
	for _, wd := range Weekdays {
		day, ok := w.Days[wd]
		if !ok {
			day = DaySchedule{}
		}
		if day.BlockedHours == nil {
			day.BlockedHours = []clock.TimeWindow{}
		}
		*slots[wd] = &day
	}
	return json.Marshal(weeklyDoc{
		Timezone:      w.Timezone,
		DailySchedule: daily,
		BlockedDates:  w.sortedBlockedDates(),
	})
}

func (w *Weekly) UnmarshalJSON(raw []byte) error {
	v, err := Decode(raw)
	if err != nil {
		return err
	}
	*w = v
	return nil
}
