package entity

import "time"

// SeriesKind names the variant of a MetricSeries.
type SeriesKind string

const (
	SeriesNumeric   SeriesKind = "numeric"
	SeriesLastValue SeriesKind = "last_value"
	SeriesNotFound  SeriesKind = "not_found"
)

// MetricSeries is what the metrics provider returns for one item.
// Exactly one of NumericSeries, LastValue or NotFound applies.
type MetricSeries interface {
	Kind() SeriesKind
	isMetricSeries()
}

// SeriesPoint is one sample of a numeric series.
type SeriesPoint struct {
	At    time.Time `json:"at"`
	Value float64   `json:"value"`
}

// NumericSeries holds samples in provider order.
type NumericSeries struct {
	Points []SeriesPoint
}

// LastValue is the latest sample of a non-numeric item.
type LastValue struct {
	Value string
	At    time.Time
}

// NotFound means the item does not exist or has no value at all.
type NotFound struct{}

func (NumericSeries) Kind() SeriesKind { return SeriesNumeric }
func (LastValue) Kind() SeriesKind     { return SeriesLastValue }
func (NotFound) Kind() SeriesKind      { return SeriesNotFound }

func (NumericSeries) isMetricSeries() {}
func (LastValue) isMetricSeries()     {}
func (NotFound) isMetricSeries()      {}

// GraphItem is one item plotted by a graph.
type GraphItem struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
