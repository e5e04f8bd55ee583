// Package chart renders report charts as PNG images.
package chart

import (
	"bytes"
	"fmt"
	"math"
	"time"

	gochart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
)

var palette = []drawing.Color{
	drawing.ColorFromHex("1f77b4"),
	drawing.ColorFromHex("ff7f0e"),
	drawing.ColorFromHex("2ca02c"),
	drawing.ColorFromHex("d62728"),
	drawing.ColorFromHex("9467bd"),
	drawing.ColorFromHex("8c564b"),
	drawing.ColorFromHex("e377c2"),
	drawing.ColorFromHex("7f7f7f"),
}

var (
	minMarkerColor = drawing.ColorFromHex("2e7d32")
	maxMarkerColor = drawing.ColorFromHex("c62828")
)

type Options struct {
	Width  int
	Height int
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 1200
	}
	if o.Height <= 0 {
		o.Height = 500
	}
	return o
}

// SeriesPNG draws every series of a graph section on one time axis with
// min and max markers of each series.
func SeriesPNG(section dto.GraphSection, opts Options) ([]byte, error) {
	if len(section.Series) == 0 {
		return nil, fmt.Errorf("graph %s has no series", section.GraphID)
	}
	opts = opts.withDefaults()

	from, to := section.From, section.To
	yMin, yMax := math.Inf(1), math.Inf(-1)

	series := make([]gochart.Series, 0, len(section.Series)*2)
	for i, s := range section.Series {
		xs := make([]time.Time, len(s.Points))
		ys := make([]float64, len(s.Points))
		for j, p := range s.Points {
			xs[j] = p.At
			ys[j] = p.Value
			if from.IsZero() || p.At.Before(from) {
				from = p.At
			}
			if to.IsZero() || p.At.After(to) {
				to = p.At
			}
		}
		yMin = math.Min(yMin, s.Min.Value)
		yMax = math.Max(yMax, s.Max.Value)

		color := palette[i%len(palette)]
		series = append(series, gochart.TimeSeries{
			Name: s.Name,
			Style: gochart.Style{
				StrokeColor: color,
				StrokeWidth: 1.5,
			},
			XValues: xs,
			YValues: ys,
		})
		series = append(series, gochart.AnnotationSeries{
			Annotations: []gochart.Value2{
				{
					XValue: gochart.TimeToFloat64(s.Max.At),
					YValue: s.Max.Value,
					Label:  "max " + FormatValue(s.Max.Value),
					Style:  gochart.Style{StrokeColor: maxMarkerColor, FontColor: maxMarkerColor},
				},
				{
					XValue: gochart.TimeToFloat64(s.Min.At),
					YValue: s.Min.Value,
					Label:  "min " + FormatValue(s.Min.Value),
					Style:  gochart.Style{StrokeColor: minMarkerColor, FontColor: minMarkerColor},
				},
			},
		})
	}

	xMin, xMax := gochart.TimeToFloat64(from), gochart.TimeToFloat64(to)
	if xMax <= xMin {
		xMax = xMin + float64(time.Minute)
	}
	yLow, yHigh := paddedRange(yMin, yMax)

	graph := gochart.Chart{
		Width:  opts.Width,
		Height: opts.Height,
		Background: gochart.Style{
			Padding: gochart.Box{Top: 20, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: gochart.XAxis{
			ValueFormatter: gochart.TimeValueFormatterWithFormat(timeFormat(to.Sub(from))),
			Range:          &gochart.ContinuousRange{Min: xMin, Max: xMax},
		},
		YAxis: gochart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return FormatValue(f)
				}
				return ""
			},
			Range: &gochart.ContinuousRange{Min: yLow, Max: yHigh},
		},
		Series: series,
	}
	graph.Elements = []gochart.Renderable{gochart.LegendThin(&graph)}

	var buf bytes.Buffer
	if err := graph.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render graph %s: %w", section.GraphID, err)
	}
	return buf.Bytes(), nil
}

// MonthlyBarsPNG draws the trailing monthly ticket counts.
func MonthlyBarsPNG(months []string, counts []int, opts Options) ([]byte, error) {
	if len(months) == 0 || len(months) != len(counts) {
		return nil, fmt.Errorf("monthly counts are empty or mismatched")
	}
	opts = opts.withDefaults()

	maxCount := 1
	bars := make([]gochart.Value, len(months))
	for i, m := range months {
		bars[i] = gochart.Value{
			Label: m,
			Value: float64(counts[i]),
			Style: gochart.Style{FillColor: palette[0], StrokeColor: palette[0]},
		}
		if counts[i] > maxCount {
			maxCount = counts[i]
		}
	}

	bar := gochart.BarChart{
		Width:    opts.Width,
		Height:   opts.Height * 3 / 4,
		BarWidth: opts.Width / (len(bars) * 2),
		Background: gochart.Style{
			Padding: gochart.Box{Top: 30, Left: 20, Right: 20, Bottom: 20},
		},
		YAxis: gochart.YAxis{
			Range: &gochart.ContinuousRange{Min: 0, Max: math.Ceil(float64(maxCount) * 1.15)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := bar.Render(gochart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render monthly counts: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatValue prints a value with a precision suited to its magnitude.
func FormatValue(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.2fG", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.2fM", v/1e6)
	case abs >= 1e4:
		return fmt.Sprintf("%.1fk", v/1e3)
	case abs >= 100 || v == math.Trunc(v):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

// paddedRange widens [lo, hi] by 5% and never returns an empty range.
func paddedRange(lo, hi float64) (float64, float64) {
	if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
		return 0, 1
	}
	if hi == lo {
		pad := math.Abs(hi) * 0.1
		if pad == 0 {
			pad = 1
		}
		return lo - pad, hi + pad
	}
	pad := (hi - lo) * 0.05
	return lo - pad, hi + pad
}

func timeFormat(span time.Duration) string {
	switch {
	case span <= 48*time.Hour:
		return "02/01 15:04"
	default:
		return "02/01"
	}
}
