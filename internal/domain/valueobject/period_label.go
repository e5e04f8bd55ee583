package valueobject

import (
	"fmt"
	"time"
)

// PeriodLabel identifies one reporting cycle of a cadence.
// Used as the idempotency key of scheduled dispatch.
type PeriodLabel string

// NewPeriodLabel derives the label from the metrics window.
func NewPeriodLabel(cadence Cadence, window DateRange) PeriodLabel {
	start := window.Start()
	switch cadence {
	case CadenceMonthly:
		return PeriodLabel(start.Format("2006-01"))
	case CadenceWeekly:
		return PeriodLabel(fmt.Sprintf("%04d-%02d", start.Year(), MondayWeekOfYear(start)))
	default:
		return PeriodLabel(window.StartString() + "_" + window.EndString())
	}
}

// MondayWeekOfYear returns the week number of the year with Monday as the
// first day of the week. Days before the first Monday fall in week 0.
func MondayWeekOfYear(day time.Time) int {
	yday := day.YearDay() - 1
	mondayIndex := (int(day.Weekday()) + 6) % 7
	return (yday + 7 - mondayIndex) / 7
}

func (l PeriodLabel) String() string { return string(l) }

// IsZero reports whether no cycle has been recorded yet.
func (l PeriodLabel) IsZero() bool { return l == "" }
