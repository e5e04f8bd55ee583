package entity

import (
	"strings"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// ReportDefinition описывает периодический отчет (Aggregate Root).
// Создается и удаляется внешним управлением конфигурацией; ядро
// переписывает только DispatchState.
type ReportDefinition struct {
	ID            string              `json:"id,omitempty"`
	Hostgroup     Hostgroup           `json:"hostgroup"`
	Hosts         []Host              `json:"hosts"`
	Recipients    []string            `json:"recipients"`
	Cadence       valueobject.Cadence `json:"cadence,omitempty"`
	Analyst       string              `json:"analyst,omitempty"`
	Comments      string              `json:"comments,omitempty"`
	LogoFilename  string              `json:"logo_filename,omitempty"`
	Tickets       *TicketCorrelation  `json:"ticket_correlation,omitempty"`
	DispatchState DispatchState       `json:"dispatch_state"`
}

type Hostgroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Host struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Graphs []Graph `json:"graphs"`
}

// Graph is one chart request. From and To are rewritten for every
// scheduled cycle and are only meaningful for manual generation.
type Graph struct {
	ID   string    `json:"id"`
	Name string    `json:"name"`
	From time.Time `json:"from,omitzero"`
	To   time.Time `json:"to,omitzero"`
}

// Window returns the requested graph window.
func (g Graph) Window() (valueobject.TimeRange, error) {
	return valueobject.NewTimeRange(g.From, g.To)
}

// TicketCorrelation links the report to an entity of the service desk.
// Period is injected into a working copy and never persisted.
type TicketCorrelation struct {
	EntityID string                 `json:"entity_id"`
	Period   *valueobject.DateRange `json:"-"`
}

// DispatchState is the idempotency record of scheduled dispatch.
type DispatchState struct {
	LastPeriodLabel valueobject.PeriodLabel `json:"last_period_label,omitempty"`
	LastSent        time.Time               `json:"last_sent,omitzero"`
}

// HasTicketCorrelation reports whether a ticket section must be rendered.
func (d *ReportDefinition) HasTicketCorrelation() bool {
	return d.Tickets != nil && strings.TrimSpace(d.Tickets.EntityID) != ""
}

// HasRecipients reports whether at least one non-blank recipient exists.
func (d *ReportDefinition) HasRecipients() bool {
	for _, r := range d.Recipients {
		if strings.TrimSpace(r) != "" {
			return true
		}
	}
	return false
}

// IsSchedulable: definitions without cadence are generated manually only.
func (d *ReportDefinition) IsSchedulable() bool {
	return d.Cadence.IsScheduled()
}

// AlreadySent reports whether the cycle identified by label was dispatched.
func (d *ReportDefinition) AlreadySent(label valueobject.PeriodLabel) bool {
	return !label.IsZero() && d.DispatchState.LastPeriodLabel == label
}

// MarkSent records a dispatched cycle.
func (d *ReportDefinition) MarkSent(label valueobject.PeriodLabel, at time.Time) {
	d.DispatchState = DispatchState{LastPeriodLabel: label, LastSent: at}
}

// Clone returns a deep copy suitable as a working copy for one cycle.
func (d *ReportDefinition) Clone() *ReportDefinition {
	out := *d
	out.Recipients = append([]string(nil), d.Recipients...)
	out.Hosts = make([]Host, len(d.Hosts))
	for i, h := range d.Hosts {
		h.Graphs = append([]Graph(nil), h.Graphs...)
		out.Hosts[i] = h
	}
	if d.Tickets != nil {
		tickets := *d.Tickets
		out.Tickets = &tickets
	}
	return &out
}

// ApplyMetricsWindow rewrites every graph window uniformly.
func (d *ReportDefinition) ApplyMetricsWindow(window valueobject.TimeRange) {
	for i := range d.Hosts {
		for j := range d.Hosts[i].Graphs {
			d.Hosts[i].Graphs[j].From = window.Start()
			d.Hosts[i].Graphs[j].To = window.End()
		}
	}
}

// ApplyTicketWindow injects the correlated ticket window, if correlated.
func (d *ReportDefinition) ApplyTicketWindow(period valueobject.DateRange) {
	if d.Tickets == nil {
		return
	}
	p := period
	d.Tickets.Period = &p
}

// FirstGraphWindow returns the window of the first graph of the first host
// that has one.
func (d *ReportDefinition) FirstGraphWindow() (valueobject.TimeRange, bool) {
	for _, h := range d.Hosts {
		for _, g := range h.Graphs {
			if w, err := g.Window(); err == nil {
				return w, true
			}
		}
	}
	return valueobject.TimeRange{}, false
}

// GraphSpan returns the earliest start and latest end across all graphs.
func (d *ReportDefinition) GraphSpan() (valueobject.TimeRange, bool) {
	var span valueobject.TimeRange
	found := false
	for _, h := range d.Hosts {
		for _, g := range h.Graphs {
			w, err := g.Window()
			if err != nil {
				continue
			}
			span = span.Union(w)
			found = true
		}
	}
	return span, found
}

// GraphCount returns the number of requested graphs.
func (d *ReportDefinition) GraphCount() int {
	n := 0
	for _, h := range d.Hosts {
		n += len(h.Graphs)
	}
	return n
}
