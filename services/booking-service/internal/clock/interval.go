package clock

import (
	"errors"
	"time"
)

var ErrIncompleteWindow = errors.New("time window is missing a bound")

// TimeWindow is a daily range of wall-clock times. Either bound may be absent.
type TimeWindow struct {
	Start *TimeOfDay `json:"start_time"`
	End   *TimeOfDay `json:"end_time"`
}

func Window(start, end TimeOfDay) TimeWindow {
	return TimeWindow{Start: &start, End: &end}
}

func (w TimeWindow) Complete() bool {
	return w.Start != nil && w.End != nil
}

// Empty reports whether both bounds are absent.
func (w TimeWindow) Empty() bool {
	return w.Start == nil && w.End == nil
}

// Valid reports start < end. Windows with a missing bound are not valid.
func (w TimeWindow) Valid() bool {
	return w.Complete() && w.Start.Before(*w.End)
}

// Contains is inclusive at both ends.
func (w TimeWindow) Contains(t TimeOfDay) bool {
	if !w.Complete() {
		return false
	}
	return !t.Before(*w.Start) && !t.After(*w.End)
}

func (w TimeWindow) Equal(o TimeWindow) bool {
	eq := func(a, b *TimeOfDay) bool {
		if a == nil || b == nil {
			return a == b
		}
		return a.Compare(*b) == 0
	}
	return eq(w.Start, o.Start) && eq(w.End, o.End)
}

// Anchor places the window on date d in loc.
func (w TimeWindow) Anchor(d Date, loc *time.Location) (Interval, error) {
	if !w.Complete() {
		return Interval{}, ErrIncompleteWindow
	}
	return Interval{Start: Anchor(d, *w.Start, loc), End: Anchor(d, *w.End, loc)}, nil
}

// Interval is an absolute half-open range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

func NewInterval(start time.Time, d time.Duration) Interval {
	return Interval{Start: start, End: start.Add(d)}
}

// Overlaps reports whether a and b share any instant. Touching intervals do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// Contains is inclusive at both ends.
func (i Interval) Contains(p time.Time) bool {
	return !p.Before(i.Start) && !p.After(i.End)
}

// Within reports whether i lies entirely inside outer.
func (i Interval) Within(outer Interval) bool {
	return !i.Start.Before(outer.Start) && !i.End.After(outer.End)
}

func (i Interval) Duration() time.Duration {
	return i.End.Sub(i.Start)
}
