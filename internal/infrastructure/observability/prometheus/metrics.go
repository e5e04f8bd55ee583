// Package prometheus exposes dispatch counters for scraping.
package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "reports"

// Metrics implements port.DispatchRecorder.
type Metrics struct {
	gatherer prometheus.Gatherer

	outcomesTotal      *prometheus.CounterVec
	generationDuration *prometheus.HistogramVec
	deliveriesTotal    *prometheus.CounterVec
	lastCycle          *prometheus.GaugeVec
}

// New registers the collectors in reg; a nil reg means a fresh registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		outcomesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dispatch_outcomes_total",
				Help:      "Per-definition outcomes of scheduled dispatch cycles",
			},
			[]string{"cadence", "outcome"},
		),
		generationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "generation_duration_seconds",
				Help:      "Duration of report document generation in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10), // 0.5s to ~4m
			},
			[]string{"success"},
		),
		deliveriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_total",
				Help:      "Report emails handed to the SMTP server",
			},
			[]string{"success"},
		),
		lastCycle: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_outcome_timestamp_seconds",
				Help:      "Unix time of the last recorded outcome per cadence",
			},
			[]string{"cadence"},
		),
	}
}

func (m *Metrics) RecordOutcome(cadence, outcome string) {
	m.outcomesTotal.WithLabelValues(cadence, outcome).Inc()
	m.lastCycle.WithLabelValues(cadence).Set(float64(time.Now().Unix()))
}

func (m *Metrics) ObserveGeneration(duration time.Duration, success bool) {
	m.generationDuration.WithLabelValues(strconv.FormatBool(success)).Observe(duration.Seconds())
}

func (m *Metrics) RecordDelivery(success bool) {
	m.deliveriesTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}

// Handler serves the registry in the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
