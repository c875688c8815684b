package clock

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseTimeOfDay(t *testing.T) {
	cases := map[string]TimeOfDay{
		"09:00":    {Hour: 9},
		"17:30:15": {Hour: 17, Minute: 30, Second: 15},
		"00:00":    {},
	}
	for in, want := range cases {
		got, err := ParseTimeOfDay(in)
		if err != nil {
			t.Fatalf("ParseTimeOfDay(%q) error: %v", in, err)
		}
		if got != want {
			t.Fatalf("ParseTimeOfDay(%q) = %+v, want %+v", in, got, want)
		}
	}
	for _, bad := range []string{"", "9", "25:00", "12:61", "noon"} {
		if _, err := ParseTimeOfDay(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestTimeOfDayOrderingAndText(t *testing.T) {
	a, b := NewTimeOfDay(9, 0, 0), NewTimeOfDay(9, 0, 1)
	if !a.Before(b) || !b.After(a) || a.Compare(a) != 0 {
		t.Fatal("ordering broken")
	}
	if a.String() != "09:00" || b.String() != "09:00:01" {
		t.Fatalf("unexpected text forms %q %q", a, b)
	}
}

func TestDate(t *testing.T) {
	d, err := ParseDate("2025-12-29")
	if err != nil {
		t.Fatal(err)
	}
	if d.Weekday() != time.Monday {
		t.Fatalf("weekday = %s", d.Weekday())
	}
	if got := d.AddDays(3).String(); got != "2026-01-01" {
		t.Fatalf("AddDays crossed year wrong: %s", got)
	}
	if !d.Before(d.AddDays(1)) {
		t.Fatal("Before broken")
	}

	raw, _ := json.Marshal(map[Date]int{d: 1})
	if string(raw) != `{"2025-12-29":1}` {
		t.Fatalf("map key encoding = %s", raw)
	}
	if _, err := ParseDate("2025-13-01"); err == nil {
		t.Fatal("expected invalid month to fail")
	}
}

func TestTimeWindow(t *testing.T) {
	w := Window(NewTimeOfDay(9, 0, 0), NewTimeOfDay(17, 0, 0))
	if !w.Valid() {
		t.Fatal("expected valid window")
	}
	if !w.Contains(NewTimeOfDay(9, 0, 0)) || !w.Contains(NewTimeOfDay(17, 0, 0)) {
		t.Fatal("Contains must be inclusive")
	}
	if w.Contains(NewTimeOfDay(17, 0, 1)) {
		t.Fatal("17:00:01 is outside")
	}

	reversed := Window(NewTimeOfDay(17, 0, 0), NewTimeOfDay(9, 0, 0))
	if reversed.Valid() {
		t.Fatal("start after end must be invalid")
	}
	start := NewTimeOfDay(9, 0, 0)
	if (TimeWindow{Start: &start}).Valid() {
		t.Fatal("missing end must be invalid")
	}
	if _, err := (TimeWindow{Start: &start}).Anchor(Date{2025, 1, 1}, time.UTC); err != ErrIncompleteWindow {
		t.Fatalf("expected ErrIncompleteWindow, got %v", err)
	}
}

func TestAnchorUsesLocation(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Skip("tzdata not available")
	}
	w := Window(NewTimeOfDay(9, 0, 0), NewTimeOfDay(10, 0, 0))
	iv, err := w.Anchor(Date{2025, time.July, 7}, loc)
	if err != nil {
		t.Fatal(err)
	}
	if got := iv.Start.UTC().Hour(); got != 13 {
		t.Fatalf("09:00 EDT should be 13:00 UTC, got %d", got)
	}
}

func TestIntervalOverlap(t *testing.T) {
	base := time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)
	a := NewInterval(base, time.Hour)
	touching := NewInterval(base.Add(time.Hour), time.Hour)
	inside := NewInterval(base.Add(15*time.Minute), 15*time.Minute)

	if Overlaps(a, touching) || Overlaps(touching, a) {
		t.Fatal("touching intervals must not overlap")
	}
	if !Overlaps(a, inside) || !Overlaps(inside, a) {
		t.Fatal("nested intervals overlap")
	}
	if !a.Contains(a.End) || !a.Contains(a.Start) {
		t.Fatal("Contains is inclusive")
	}
	if !inside.Within(a) || a.Within(inside) {
		t.Fatal("Within broken")
	}
}
