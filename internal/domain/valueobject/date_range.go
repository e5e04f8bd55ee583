package valueobject

import (
	"errors"
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// DateRange is an inclusive pair of calendar days.
// Both ends are normalised to midnight in the location they were built in.
type DateRange struct {
	start time.Time
	end   time.Time
}

// NewDateRange создает диапазон дат; end не может быть раньше start
func NewDateRange(start, end time.Time) (DateRange, error) {
	if start.IsZero() || end.IsZero() {
		return DateRange{}, errors.New("start and end dates cannot be zero")
	}

	s := TruncateDay(start)
	e := TruncateDay(end)
	if e.Before(s) {
		return DateRange{}, fmt.Errorf("end date %s is before start date %s", e.Format(dateLayout), s.Format(dateLayout))
	}

	return DateRange{start: s, end: e}, nil
}

// ParseDateRange parses two YYYY-MM-DD dates in loc.
func ParseDateRange(start, end string, loc *time.Location) (DateRange, error) {
	if loc == nil {
		loc = time.UTC
	}
	s, err := time.ParseInLocation(dateLayout, start, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid start date %q: %w", start, err)
	}
	e, err := time.ParseInLocation(dateLayout, end, loc)
	if err != nil {
		return DateRange{}, fmt.Errorf("invalid end date %q: %w", end, err)
	}
	return NewDateRange(s, e)
}

func (dr DateRange) Start() time.Time { return dr.start }
func (dr DateRange) End() time.Time   { return dr.end }

// IsZero reports whether the range was never initialised.
func (dr DateRange) IsZero() bool {
	return dr.start.IsZero() && dr.end.IsZero()
}

// Days returns the number of calendar days covered, both ends included.
func (dr DateRange) Days() int {
	if dr.IsZero() {
		return 0
	}
	days := 0
	for d := dr.start; !d.After(dr.end); d = d.AddDate(0, 0, 1) {
		days++
	}
	return days
}

// Bounds expands the days to a time window from 00:00:00 of the first day
// to 23:59:59 of the last day.
func (dr DateRange) Bounds() TimeRange {
	end := time.Date(dr.end.Year(), dr.end.Month(), dr.end.Day(), 23, 59, 59, 0, dr.end.Location())
	return TimeRange{start: dr.start, end: end}
}

// StartString returns the first day as YYYY-MM-DD.
func (dr DateRange) StartString() string { return dr.start.Format(dateLayout) }

// EndString returns the last day as YYYY-MM-DD.
func (dr DateRange) EndString() string { return dr.end.Format(dateLayout) }

func (dr DateRange) String() string {
	return dr.StartString() + ".." + dr.EndString()
}

// Equal compares the calendar days of both ranges.
func (dr DateRange) Equal(other DateRange) bool {
	return dr.StartString() == other.StartString() && dr.EndString() == other.EndString()
}

// TruncateDay drops the clock part of t, keeping its location.
func TruncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
