package service

import (
	"testing"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 9, 30, 0, 0, time.UTC)
}

func TestPeriodResolver_Monthly(t *testing.T) {
	tests := []struct {
		name      string
		ref       time.Time
		wantStart string
		wantEnd   string
		wantLabel string
	}{
		{"mid month", day(2025, time.January, 15), "2024-12-01", "2024-12-31", "2024-12"},
		{"first day", day(2025, time.August, 1), "2025-07-01", "2025-07-31", "2025-07"},
		{"leap february", day(2024, time.March, 31), "2024-02-01", "2024-02-29", "2024-02"},
		{"august catch-up", day(2025, time.August, 10), "2025-07-01", "2025-07-31", "2025-07"},
	}

	r := NewPeriodResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(valueobject.CadenceMonthly, tt.ref, nil)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if res.MetricsPeriod.StartString() != tt.wantStart || res.MetricsPeriod.EndString() != tt.wantEnd {
				t.Errorf("metrics period = %s", res.MetricsPeriod)
			}
			if !res.TicketPeriod.Equal(res.MetricsPeriod) {
				t.Errorf("ticket period = %s, want %s", res.TicketPeriod, res.MetricsPeriod)
			}
			if res.Label.String() != tt.wantLabel {
				t.Errorf("label = %q, want %q", res.Label, tt.wantLabel)
			}
		})
	}
}

func TestPeriodResolver_Weekly(t *testing.T) {
	tests := []struct {
		name            string
		ref             time.Time
		wantStart       string
		wantEnd         string
		wantTicketStart string
		wantTicketEnd   string
		wantLabel       string
	}{
		{
			name:            "first week falls back to previous month",
			ref:             day(2025, time.August, 13),
			wantStart:       "2025-08-04",
			wantEnd:         "2025-08-10",
			wantTicketStart: "2025-07-01",
			wantTicketEnd:   "2025-07-31",
			wantLabel:       "2025-31",
		},
		{
			name:            "mid month keeps the week",
			ref:             day(2025, time.August, 20),
			wantStart:       "2025-08-11",
			wantEnd:         "2025-08-17",
			wantTicketStart: "2025-08-11",
			wantTicketEnd:   "2025-08-17",
			wantLabel:       "2025-32",
		},
		{
			name:            "monday reference",
			ref:             day(2025, time.August, 18),
			wantStart:       "2025-08-11",
			wantEnd:         "2025-08-17",
			wantTicketStart: "2025-08-11",
			wantTicketEnd:   "2025-08-17",
			wantLabel:       "2025-32",
		},
		{
			name:            "week of previous year",
			ref:             day(2025, time.January, 1),
			wantStart:       "2024-12-23",
			wantEnd:         "2024-12-29",
			wantTicketStart: "2024-12-23",
			wantTicketEnd:   "2024-12-29",
			wantLabel:       "2024-52",
		},
	}

	r := NewPeriodResolver()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := r.Resolve(valueobject.CadenceWeekly, tt.ref, nil)
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if got := res.MetricsPeriod.StartString(); got != tt.wantStart {
				t.Errorf("metrics start = %s, want %s", got, tt.wantStart)
			}
			if got := res.MetricsPeriod.EndString(); got != tt.wantEnd {
				t.Errorf("metrics end = %s, want %s", got, tt.wantEnd)
			}
			if res.MetricsPeriod.Start().Weekday() != time.Monday {
				t.Errorf("metrics period starts on %s", res.MetricsPeriod.Start().Weekday())
			}
			if res.TicketPeriod.StartString() != tt.wantTicketStart || res.TicketPeriod.EndString() != tt.wantTicketEnd {
				t.Errorf("ticket period = %s", res.TicketPeriod)
			}
			if res.Label.String() != tt.wantLabel {
				t.Errorf("label = %q, want %q", res.Label, tt.wantLabel)
			}
		})
	}
}

func TestPeriodResolver_WindowBounds(t *testing.T) {
	res, err := NewPeriodResolver().Resolve(valueobject.CadenceMonthly, day(2025, time.January, 15), nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	wantStart := time.Date(2024, time.December, 1, 0, 0, 0, 0, time.UTC)
	wantEnd := time.Date(2024, time.December, 31, 23, 59, 59, 0, time.UTC)
	if !res.Window.Start().Equal(wantStart) || !res.Window.End().Equal(wantEnd) {
		t.Errorf("window = %s..%s", res.Window.Start(), res.Window.End())
	}
}

func TestPeriodResolver_DefaultsToNow(t *testing.T) {
	r := NewPeriodResolver()
	r.now = func() time.Time { return day(2025, time.August, 10) }

	res, err := r.Resolve(valueobject.CadenceMonthly, time.Time{}, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Label != "2025-07" {
		t.Errorf("label = %q", res.Label)
	}
}

func TestPeriodResolver_ManualRequiresBounds(t *testing.T) {
	r := NewPeriodResolver()

	if _, err := r.Resolve(valueobject.CadenceNone, day(2025, time.August, 10), nil); !reporterr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}

	explicit, err := valueobject.NewTimeRange(
		time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.July, 31, 23, 59, 59, 0, time.UTC),
	)
	if err != nil {
		t.Fatalf("NewTimeRange() error = %v", err)
	}

	res, err := r.Resolve(valueobject.CadenceNone, day(2025, time.August, 10), &explicit)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if res.Label != "2025-07-01_2025-07-31" {
		t.Errorf("label = %q", res.Label)
	}
	if res.Window != explicit {
		t.Errorf("window was rewritten")
	}
}

func TestPeriodResolver_InvalidCadence(t *testing.T) {
	_, err := NewPeriodResolver().Resolve(valueobject.Cadence("daily"), day(2025, time.August, 10), nil)
	if !reporterr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestPreviousWeek_AlwaysSevenDays(t *testing.T) {
	ref := day(2024, time.January, 1)
	for i := 0; i < 400; i++ {
		period := PreviousWeek(ref.AddDate(0, 0, i))
		if period.Days() != 7 {
			t.Fatalf("PreviousWeek(%s) covers %d days", ref.AddDate(0, 0, i).Format("2006-01-02"), period.Days())
		}
		if period.Start().Weekday() != time.Monday || period.End().Weekday() != time.Sunday {
			t.Fatalf("PreviousWeek(%s) = %s", ref.AddDate(0, 0, i).Format("2006-01-02"), period)
		}
	}
}
