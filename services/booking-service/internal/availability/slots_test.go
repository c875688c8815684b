package availability

import (
	"testing"
	"time"

	"github.com/suavhq/suav/services/booking-service/internal/clock"
	"github.com/suavhq/suav/services/booking-service/internal/lifecycle"
	"github.com/suavhq/suav/services/booking-service/internal/model"
	"github.com/suavhq/suav/services/booking-service/internal/schedule"
)

func tod(h, m int) clock.TimeOfDay { return clock.NewTimeOfDay(h, m, 0) }

// 2025-01-06 is a Monday.
var monday = clock.Date{Year: 2025, Month: time.January, Day: 6}

func mondayNineToFive(blocked ...clock.TimeWindow) schedule.Weekly {
	w := schedule.Default()
	w.Days[time.Monday] = schedule.DaySchedule{
		IsAvailable:    true,
		OperatingHours: clock.Window(tod(9, 0), tod(17, 0)),
		BlockedHours:   blocked,
	}
	return w
}

func format(slots []clock.TimeOfDay) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.String()
	}
	return out
}

func equalSlots(t *testing.T, got []clock.TimeOfDay, want ...string) {
	t.Helper()
	g := format(got)
	if len(g) != len(want) {
		t.Fatalf("slots = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("slots = %v, want %v", g, want)
		}
	}
}

func booking(id string, start time.Time, d time.Duration, status lifecycle.BookingStatus) model.Booking {
	return model.Booking{ID: model.BookingID(id), StartTime: start, EndTime: start.Add(d), BookingStatus: status}
}

func TestGenerate_MondayWithLunchBlock(t *testing.T) {
	w := mondayNineToFive(clock.Window(tod(12, 0), tod(13, 0)))
	got, err := Generate(w, time.Hour, monday, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != HorizonDays {
		t.Fatalf("expected %d dates, got %d", HorizonDays, len(got))
	}
	equalSlots(t, got[monday], "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00")
	for i := 1; i < HorizonDays; i++ {
		if n := len(got[monday.AddDays(i)]); n != 0 {
			t.Fatalf("closed day %s has %d slots", monday.AddDays(i), n)
		}
	}
}

func TestGenerate_BookingShiftsGrid(t *testing.T) {
	w := mondayNineToFive()
	start := time.Date(2025, 1, 6, 10, 30, 0, 0, time.UTC)
	existing := []model.Booking{
		booking("b1", start, time.Hour, lifecycle.BookingConfirmed),
		booking("b2", time.Date(2025, 1, 6, 14, 0, 0, 0, time.UTC), time.Hour, lifecycle.BookingCancelled),
	}
	got, err := Generate(w, time.Hour, monday, existing, Options{})
	if err != nil {
		t.Fatal(err)
	}
	// 10:30-11:30 is taken; the cancelled 14:00 booking frees its slot.
	equalSlots(t, got[monday], "09:00", "11:30", "12:30", "13:30", "14:30", "15:30")
}

func TestGenerate_RejectedBookingStillBlocks(t *testing.T) {
	w := mondayNineToFive()
	existing := []model.Booking{booking("b1", time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC), 8*time.Hour, lifecycle.BookingRejected)}
	got, _ := Generate(w, time.Hour, monday, existing, Options{})
	equalSlots(t, got[monday])
}

func TestGenerate_DurationLongerThanWindow(t *testing.T) {
	got, err := Generate(mondayNineToFive(), 9*time.Hour, monday, nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	equalSlots(t, got[monday])
}

func TestGenerate_BlockedDateAndOverlappingBlocks(t *testing.T) {
	w := mondayNineToFive(
		clock.Window(tod(9, 0), tod(11, 0)),
		clock.Window(tod(10, 0), tod(12, 0)),
	)
	got, _ := Generate(w, time.Hour, monday, nil, Options{})
	equalSlots(t, got[monday], "12:00", "13:00", "14:00", "15:00", "16:00")

	w.BlockedDates[monday] = struct{}{}
	got, _ = Generate(w, time.Hour, monday, nil, Options{})
	equalSlots(t, got[monday])
}

func TestGenerate_SkipsPast(t *testing.T) {
	now := time.Date(2025, 1, 6, 13, 10, 0, 0, time.UTC)
	got, _ := Generate(mondayNineToFive(), time.Hour, monday, nil, Options{NotBefore: now})
	equalSlots(t, got[monday], "13:30", "14:30", "15:30")
}

func TestGenerate_Timezone(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Skip("tzdata not available")
	}
	w := mondayNineToFive()
	w.Timezone = "Europe/Berlin"
	existing := []model.Booking{booking("b1", time.Date(2025, 1, 6, 9, 0, 0, 0, loc).UTC(), time.Hour, lifecycle.BookingPending)}
	got, err := Generate(w, time.Hour, monday, existing, Options{})
	if err != nil {
		t.Fatal(err)
	}
	equalSlots(t, got[monday], "10:00", "11:00", "12:00", "13:00", "14:00", "15:00", "16:00")
}

func TestGenerate_Deterministic(t *testing.T) {
	w := mondayNineToFive(clock.Window(tod(12, 0), tod(13, 0)))
	a, _ := Generate(w, 45*time.Minute, monday, nil, Options{})
	b, _ := Generate(w, 45*time.Minute, monday, nil, Options{})
	equalSlots(t, b[monday], format(a[monday])...)
	equalSlots(t, a[monday], "09:00", "10:00", "11:00", "13:00", "14:00", "15:00", "16:00")
}

func TestGenerate_InvalidTimezone(t *testing.T) {
	w := mondayNineToFive()
	w.Timezone = "Nowhere/Special"
	if _, err := Generate(w, time.Hour, monday, nil, Options{}); err == nil {
		t.Fatal("expected timezone error")
	}
}
