package service

import (
	"sort"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
)

const topRankLimit = 5

// Counter is a labelled count.
type Counter struct {
	Label string
	Count int
}

// TicketSummary aggregates the tickets of one period.
type TicketSummary struct {
	Total          int
	ByStatus       []Counter
	TopTechnicians []Counter
	TopCategories  []Counter
	ByOrigin       []Counter
	// TopRequester is the person who opened most tickets; nil when no
	// ticket names a requester. Ties go to the alphabetically first name.
	TopRequester *Counter
	// AverageResolution is zero when no ticket carries a duration.
	AverageResolution time.Duration
	Open              []entity.TicketRecord
}

// TicketAnalytics считает агрегаты по заявкам (Domain Service)
type TicketAnalytics struct{}

// NewTicketAnalytics создает новый TicketAnalytics
func NewTicketAnalytics() *TicketAnalytics {
	return &TicketAnalytics{}
}

// Summarize builds the counters shown in the ticket section.
func (a *TicketAnalytics) Summarize(tickets []entity.TicketRecord) TicketSummary {
	summary := TicketSummary{Total: len(tickets)}
	if len(tickets) == 0 {
		return summary
	}

	statuses := make(map[string]int)
	technicians := make(map[string]int)
	categories := make(map[string]int)
	origins := make(map[string]int)
	requesters := make(map[string]int)

	var durationSum time.Duration
	durationCount := 0

	for _, t := range tickets {
		statuses[t.Status.String()]++
		technicians[labelOrUnassigned(t.Technician)]++
		categories[labelOrUnassigned(t.Category)]++
		origins[labelOrUnassigned(t.Origin)]++
		if name := strings.TrimSpace(t.Requester); name != "" {
			requesters[name]++
		}

		if t.Duration > 0 {
			durationSum += t.Duration
			durationCount++
		}
		if !t.Status.IsTerminal() {
			summary.Open = append(summary.Open, t)
		}
	}

	summary.ByStatus = rank(statuses, 0)
	summary.TopTechnicians = rank(technicians, topRankLimit)
	summary.TopCategories = rank(categories, topRankLimit)
	summary.ByOrigin = rank(origins, 0)
	if top := rank(requesters, 1); len(top) == 1 {
		summary.TopRequester = &top[0]
	}

	if durationCount > 0 {
		summary.AverageResolution = durationSum / time.Duration(durationCount)
	}

	sort.SliceStable(summary.Open, func(i, j int) bool {
		return summary.Open[i].OpenedAt.Before(summary.Open[j].OpenedAt)
	})

	return summary
}

// rank orders counters by count descending then label; limit <= 0 keeps all.
func rank(counts map[string]int, limit int) []Counter {
	out := make([]Counter, 0, len(counts))
	for label, count := range counts {
		out = append(out, Counter{Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func labelOrUnassigned(s string) string {
	if s = strings.TrimSpace(s); s == "" {
		return "Not informed"
	}
	return s
}
