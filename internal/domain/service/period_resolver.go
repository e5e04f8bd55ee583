package service

import (
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// firstWeekDays: a weekly window starting on one of these days of the month
// is correlated with the previous month of tickets instead of the week.
const firstWeekDays = 7

// Resolution is the outcome of period resolution for one cycle.
type Resolution struct {
	Cadence       valueobject.Cadence
	MetricsPeriod valueobject.DateRange
	TicketPeriod  valueobject.DateRange
	Label         valueobject.PeriodLabel
	// Window is the metrics period expanded to graph bounds.
	Window valueobject.TimeRange
}

// PeriodResolver вычисляет отчетные окна по периодичности (Domain Service).
// Чистое вычисление без побочных эффектов.
type PeriodResolver struct {
	now func() time.Time
}

// NewPeriodResolver создает новый PeriodResolver
func NewPeriodResolver() *PeriodResolver {
	return &PeriodResolver{now: time.Now}
}

// Resolve computes the metrics window, the correlated ticket window and the
// period label. A zero ref means now. explicit is required for CadenceNone
// and ignored otherwise.
func (r *PeriodResolver) Resolve(cadence valueobject.Cadence, ref time.Time, explicit *valueobject.TimeRange) (Resolution, error) {
	if err := cadence.Validate(); err != nil {
		return Resolution{}, reporterr.NewValidationError("cadence", err.Error())
	}
	if ref.IsZero() {
		ref = r.now()
	}

	switch cadence {
	case valueobject.CadenceMonthly:
		metrics := PreviousMonth(ref)
		return Resolution{
			Cadence:       cadence,
			MetricsPeriod: metrics,
			TicketPeriod:  metrics,
			Label:         valueobject.NewPeriodLabel(cadence, metrics),
			Window:        metrics.Bounds(),
		}, nil

	case valueobject.CadenceWeekly:
		metrics := PreviousWeek(ref)
		return Resolution{
			Cadence:       cadence,
			MetricsPeriod: metrics,
			TicketPeriod:  r.CorrelatedTicketPeriod(cadence, metrics, ref),
			Label:         valueobject.NewPeriodLabel(cadence, metrics),
			Window:        metrics.Bounds(),
		}, nil
	}

	if explicit == nil || explicit.IsZero() {
		return Resolution{}, reporterr.NewValidationError("graphs", "explicit bounds are required when no cadence is set")
	}
	metrics, err := valueobject.NewDateRange(explicit.Start(), explicit.End())
	if err != nil {
		return Resolution{}, reporterr.NewValidationError("graphs", err.Error())
	}

	return Resolution{
		Cadence:       cadence,
		MetricsPeriod: metrics,
		TicketPeriod:  metrics,
		Label:         valueobject.NewPeriodLabel(cadence, metrics),
		Window:        *explicit,
	}, nil
}

// CorrelatedTicketPeriod returns the ticket window for a metrics window.
// Weekly windows starting in the first week of a month fall back to the
// previous month of ref.
func (r *PeriodResolver) CorrelatedTicketPeriod(cadence valueobject.Cadence, metrics valueobject.DateRange, ref time.Time) valueobject.DateRange {
	if ref.IsZero() {
		ref = r.now()
	}

	switch cadence {
	case valueobject.CadenceMonthly:
		return PreviousMonth(ref)
	case valueobject.CadenceWeekly:
		if metrics.Start().Day() <= firstWeekDays {
			return PreviousMonth(ref)
		}
		return metrics
	default:
		return metrics
	}
}

// PreviousMonth returns the whole calendar month before the month of ref.
func PreviousMonth(ref time.Time) valueobject.DateRange {
	loc := ref.Location()
	start := time.Date(ref.Year(), ref.Month()-1, 1, 0, 0, 0, 0, loc)
	// day 0 of the reference month is the last day of the previous one
	end := time.Date(ref.Year(), ref.Month(), 0, 0, 0, 0, 0, loc)

	period, _ := valueobject.NewDateRange(start, end)
	return period
}

// PreviousWeek returns Monday..Sunday of the week before the week of ref.
func PreviousWeek(ref time.Time) valueobject.DateRange {
	day := valueobject.TruncateDay(ref)
	mondayIndex := (int(day.Weekday()) + 6) % 7
	start := day.AddDate(0, 0, -(mondayIndex + 7))
	end := start.AddDate(0, 0, 6)

	period, _ := valueobject.NewDateRange(start, end)
	return period
}
