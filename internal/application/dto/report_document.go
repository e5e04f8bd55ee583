package dto

import (
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

// Placeholder texts of graph sections.
const (
	PlaceholderNoItems = "No items found for this graph"
	PlaceholderNoData  = "No data available for the selected period"
)

// ReportDocument is the renderer-independent content of one report.
type ReportDocument struct {
	Cover   CoverSection
	Tickets *TicketSection
	Hosts   []HostSection
}

// CoverSection is the first page.
type CoverSection struct {
	Title       string
	Analyst     string
	Comments    string
	PeriodLabel string
	GeneratedAt time.Time
	SpanStart   time.Time
	SpanEnd     time.Time
	// LogoPath is empty when the client logo is missing.
	LogoPath string
}

// CounterDTO is a labelled count row.
type CounterDTO struct {
	Label string
	Count int
}

// OpenTicketRow is one line of the open tickets table.
type OpenTicketRow struct {
	ID         int64
	Title      string
	Status     string
	Technician string
	OpenedAt   time.Time
}

// TicketSection is rendered only for definitions correlated with the
// service desk. When Error is set the rest of the fields are empty.
type TicketSection struct {
	EntityID               string
	PeriodStart            string
	PeriodEnd              string
	Total                  int
	ByStatus               []CounterDTO
	TopTechnicians         []CounterDTO
	TopCategories          []CounterDTO
	ByOrigin               []CounterDTO
	TopRequester           *CounterDTO
	AverageResolutionHours float64
	Monthly                []entity.MonthlyCount
	Contacts               []entity.Contact
	OpenTickets            []OpenTicketRow
	Error                  string
}

// HostSection groups the graphs of one host.
type HostSection struct {
	HostID string
	Name   string
	Graphs []GraphSection
}

// ExtremumDTO marks the min or max of a full series.
type ExtremumDTO struct {
	At    time.Time
	Value float64
}

// SeriesDTO is one reduced numeric series.
type SeriesDTO struct {
	ItemID        string
	Name          string
	Points        []entity.SeriesPoint
	Min           ExtremumDTO
	Max           ExtremumDTO
	OriginalCount int
}

// LastValueRow is the latest value of a non-numeric item.
type LastValueRow struct {
	ItemID string
	Name   string
	Value  string
	At     time.Time
}

// GraphSection holds exactly one of: Series (chart), Placeholder or Error.
// LastValues may accompany any of them.
type GraphSection struct {
	GraphID     string
	Title       string
	From        time.Time
	To          time.Time
	Series      []SeriesDTO
	LastValues  []LastValueRow
	Placeholder string
	Error       string
}

// HasChart reports whether the section renders a chart.
func (g GraphSection) HasChart() bool {
	return g.Error == "" && g.Placeholder == "" && len(g.Series) > 0
}
