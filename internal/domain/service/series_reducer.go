package service

import (
	"sort"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

// DefaultTargetSamples is the number of points kept per rendered series.
const DefaultTargetSamples = 500

// Extremum is a value of a series together with the time it was observed.
type Extremum struct {
	At    time.Time
	Value float64
}

// Reduction is a series prepared for rendering.
type Reduction struct {
	Points []entity.SeriesPoint
	// Min and Max are computed over the full input, not over Points.
	Min Extremum
	Max Extremum
	// OriginalCount is the number of input samples.
	OriginalCount int
}

// Empty reports the "no data" case.
func (r Reduction) Empty() bool {
	return r.OriginalCount == 0
}

// Downsampled reports whether points were dropped.
func (r Reduction) Downsampled() bool {
	return len(r.Points) < r.OriginalCount
}

// SeriesReducer прореживает временные ряды для отрисовки (Domain Service).
type SeriesReducer struct {
	target int
}

// NewSeriesReducer создает новый SeriesReducer; target < 2 поднимается до 2
func NewSeriesReducer(target int) *SeriesReducer {
	if target <= 0 {
		target = DefaultTargetSamples
	}
	if target < 2 {
		target = 2
	}
	return &SeriesReducer{target: target}
}

// Target returns the configured sample count.
func (r *SeriesReducer) Target() int {
	return r.target
}

// Reduce orders the points by time, picks evenly spaced representative
// points when there are more than the target, and records the extrema of
// the full series. The input slice is not modified.
func (r *SeriesReducer) Reduce(points []entity.SeriesPoint) Reduction {
	if len(points) == 0 {
		return Reduction{}
	}

	sorted := make([]entity.SeriesPoint, len(points))
	copy(sorted, points)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].At.Before(sorted[j].At)
	})

	out := Reduction{
		Min:           Extremum{At: sorted[0].At, Value: sorted[0].Value},
		Max:           Extremum{At: sorted[0].At, Value: sorted[0].Value},
		OriginalCount: len(sorted),
	}
	for _, p := range sorted[1:] {
		if p.Value < out.Min.Value {
			out.Min = Extremum{At: p.At, Value: p.Value}
		}
		if p.Value > out.Max.Value {
			out.Max = Extremum{At: p.At, Value: p.Value}
		}
	}

	n := len(sorted)
	if n <= r.target {
		out.Points = sorted
		return out
	}

	// floor(i*(n-1)/(t-1)) is strictly increasing because n > t,
	// hits index 0 for i=0 and n-1 for i=t-1.
	out.Points = make([]entity.SeriesPoint, r.target)
	for i := 0; i < r.target; i++ {
		idx := i * (n - 1) / (r.target - 1)
		out.Points[i] = sorted[idx]
	}

	return out
}
