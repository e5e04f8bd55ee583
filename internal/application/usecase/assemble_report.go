package usecase

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/service"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

const trailingTicketMonths = 6

var unsafeFilenameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

// SanitizeFilename maps everything outside [a-zA-Z0-9_-] to "_" and lowercases.
func SanitizeFilename(name string) string {
	sanitized := strings.ToLower(unsafeFilenameChars.ReplaceAllString(strings.TrimSpace(name), "_"))
	if sanitized == "" {
		return "report"
	}
	return sanitized
}

type AssembleReportConfig struct {
	// LogoDir is where client logos referenced by definitions live.
	LogoDir string
	// ArchiveKeyPrefix is the object key prefix of archived artifacts.
	ArchiveKeyPrefix string
	Now              func() time.Time
}

// AssembleReportUseCase собирает документ отчета и записывает артефакт.
type AssembleReportUseCase struct {
	metrics   port.MetricsProvider
	tickets   port.TicketProvider
	renderer  port.DocumentRenderer
	artifacts port.ArtifactStore
	archive   port.ArtifactArchive
	reducer   *service.SeriesReducer
	analytics *service.TicketAnalytics
	config    AssembleReportConfig
	logger    *logger.Logger
}

// NewAssembleReportUseCase создает use case; tickets и archive могут быть nil
func NewAssembleReportUseCase(
	metrics port.MetricsProvider,
	tickets port.TicketProvider,
	renderer port.DocumentRenderer,
	artifacts port.ArtifactStore,
	archive port.ArtifactArchive,
	reducer *service.SeriesReducer,
	analytics *service.TicketAnalytics,
	config AssembleReportConfig,
	log *logger.Logger,
) *AssembleReportUseCase {
	if config.Now == nil {
		config.Now = time.Now
	}
	return &AssembleReportUseCase{
		metrics:   metrics,
		tickets:   tickets,
		renderer:  renderer,
		artifacts: artifacts,
		archive:   archive,
		reducer:   reducer,
		analytics: analytics,
		config:    config,
		logger:    log,
	}
}

// Execute builds the document for def and writes it as a new artifact.
// Provider failures end up inside the document; only render or write
// failures are returned, as *reporterr.GenerationError.
func (uc *AssembleReportUseCase) Execute(
	ctx context.Context,
	def *entity.ReportDefinition,
	label valueobject.PeriodLabel,
) (*entity.GeneratedArtifact, error) {
	generatedAt := uc.config.Now()
	doc := uc.Build(ctx, def, label, generatedAt)

	baseName := SanitizeFilename(def.Hostgroup.Name) + "_" + generatedAt.Format("20060102_150405")
	artifact, err := uc.artifacts.Create(ctx, baseName, uc.renderer.Extension(), func(w io.Writer) error {
		return uc.renderer.Render(ctx, doc, w)
	})
	if err != nil {
		uc.logger.Error("Failed to write report artifact", err,
			"definition_id", def.ID,
			"hostgroup", def.Hostgroup.Name,
		)
		return nil, &reporterr.GenerationError{DefinitionID: def.ID, Err: err}
	}

	uc.logger.Info("Report artifact written",
		"definition_id", def.ID,
		"path", artifact.Path,
		"size_bytes", artifact.SizeBytes,
	)

	if uc.archive != nil {
		uc.archiveArtifact(ctx, def, artifact)
	}

	return artifact, nil
}

// Build assembles the document content without rendering it.
func (uc *AssembleReportUseCase) Build(
	ctx context.Context,
	def *entity.ReportDefinition,
	label valueobject.PeriodLabel,
	generatedAt time.Time,
) *dto.ReportDocument {
	doc := &dto.ReportDocument{
		Cover: uc.buildCover(def, label, generatedAt),
	}

	if def.HasTicketCorrelation() {
		doc.Tickets = uc.buildTicketSection(ctx, def)
	}

	doc.Hosts = make([]dto.HostSection, 0, len(def.Hosts))
	for _, host := range def.Hosts {
		section := dto.HostSection{
			HostID: host.ID,
			Name:   host.Name,
			Graphs: make([]dto.GraphSection, 0, len(host.Graphs)),
		}
		for _, graph := range host.Graphs {
			section.Graphs = append(section.Graphs, uc.buildGraphSection(ctx, host, graph))
		}
		doc.Hosts = append(doc.Hosts, section)
	}

	return doc
}

func (uc *AssembleReportUseCase) buildCover(def *entity.ReportDefinition, label valueobject.PeriodLabel, generatedAt time.Time) dto.CoverSection {
	cover := dto.CoverSection{
		Title:       def.Hostgroup.Name,
		Analyst:     def.Analyst,
		Comments:    def.Comments,
		PeriodLabel: label.String(),
		GeneratedAt: generatedAt,
		SpanStart:   generatedAt,
		SpanEnd:     generatedAt,
		LogoPath:    uc.resolveLogo(def.LogoFilename),
	}

	if span, ok := def.GraphSpan(); ok {
		cover.SpanStart = span.Start()
		cover.SpanEnd = span.End()
	}

	return cover
}

func (uc *AssembleReportUseCase) resolveLogo(filename string) string {
	filename = strings.TrimSpace(filename)
	if filename == "" || uc.config.LogoDir == "" {
		return ""
	}

	path := filepath.Join(uc.config.LogoDir, filepath.Base(filename))
	if info, err := os.Stat(path); err != nil || info.IsDir() {
		uc.logger.Warn("Client logo not found, using placeholder", "path", path)
		return ""
	}

	return path
}

func (uc *AssembleReportUseCase) buildTicketSection(ctx context.Context, def *entity.ReportDefinition) *dto.TicketSection {
	entityID := strings.TrimSpace(def.Tickets.EntityID)
	section := &dto.TicketSection{EntityID: entityID}

	period, ok := uc.ticketPeriod(def)
	if !ok {
		section.Error = "Ticket data unavailable: no reporting period"
		return section
	}
	section.PeriodStart = period.StartString()
	section.PeriodEnd = period.EndString()

	if uc.tickets == nil {
		section.Error = "Ticket data unavailable: service desk source is not configured"
		return section
	}

	fail := func(op string, err error) *dto.TicketSection {
		perr := &reporterr.ProviderError{Provider: "ticket", Op: op, Err: err}
		uc.logger.Warn("Ticket section replaced by placeholder",
			"definition_id", def.ID,
			"entity_id", entityID,
			"error", perr.Error(),
		)
		return &dto.TicketSection{
			EntityID:    entityID,
			PeriodStart: section.PeriodStart,
			PeriodEnd:   section.PeriodEnd,
			Error:       "Ticket data unavailable: " + perr.Error(),
		}
	}

	tickets, err := uc.tickets.Tickets(ctx, entityID, period)
	if err != nil {
		return fail("tickets", err)
	}
	contacts, err := uc.tickets.AuthorizedContacts(ctx, entityID)
	if err != nil {
		return fail("authorized contacts", err)
	}
	monthly, err := uc.tickets.MonthlyCounts(ctx, entityID, period.End(), trailingTicketMonths)
	if err != nil {
		return fail("monthly counts", err)
	}

	summary := uc.analytics.Summarize(tickets)
	section.Total = summary.Total
	section.ByStatus = toCounterDTOs(summary.ByStatus)
	section.TopTechnicians = toCounterDTOs(summary.TopTechnicians)
	section.TopCategories = toCounterDTOs(summary.TopCategories)
	section.ByOrigin = toCounterDTOs(summary.ByOrigin)
	if top := summary.TopRequester; top != nil {
		section.TopRequester = &dto.CounterDTO{Label: top.Label, Count: top.Count}
	}
	section.AverageResolutionHours = summary.AverageResolution.Hours()
	section.Monthly = monthly
	section.Contacts = contacts

	section.OpenTickets = make([]dto.OpenTicketRow, 0, len(summary.Open))
	for _, t := range summary.Open {
		section.OpenTickets = append(section.OpenTickets, dto.OpenTicketRow{
			ID:         t.ID,
			Title:      t.Title,
			Status:     t.Status.String(),
			Technician: t.Technician,
			OpenedAt:   t.OpenedAt,
		})
	}

	return section
}

// ticketPeriod prefers the injected correlated window and falls back to the
// days covered by the graphs.
func (uc *AssembleReportUseCase) ticketPeriod(def *entity.ReportDefinition) (valueobject.DateRange, bool) {
	if def.Tickets.Period != nil && !def.Tickets.Period.IsZero() {
		return *def.Tickets.Period, true
	}

	span, ok := def.GraphSpan()
	if !ok {
		return valueobject.DateRange{}, false
	}
	period, err := valueobject.NewDateRange(span.Start(), span.End())
	if err != nil {
		return valueobject.DateRange{}, false
	}
	return period, true
}

// buildGraphSection never fails: errors and panics of this graph turn into
// an inline message of its own section.
func (uc *AssembleReportUseCase) buildGraphSection(ctx context.Context, host entity.Host, graph entity.Graph) (section dto.GraphSection) {
	section = dto.GraphSection{
		GraphID: graph.ID,
		Title:   graph.Name,
		From:    graph.From,
		To:      graph.To,
	}
	if section.Title == "" {
		section.Title = "Graph " + graph.ID
	}

	defer func() {
		if r := recover(); r != nil {
			section.Series = nil
			section.Placeholder = ""
			section.Error = fmt.Sprintf("Failed to build graph: %v", r)
			uc.logger.Error("Graph section panicked", nil,
				"host_id", host.ID,
				"graph_id", graph.ID,
				"panic", r,
			)
		}
	}()

	window, err := graph.Window()
	if err != nil {
		section.Error = "Failed to build graph: " + err.Error()
		return section
	}

	items, err := uc.metrics.ItemsForGraph(ctx, graph.ID)
	if err != nil {
		return uc.graphError(section, host, &reporterr.ProviderError{Provider: "metrics", Op: "items for graph " + graph.ID, Err: err})
	}
	if len(items) == 0 {
		section.Placeholder = dto.PlaceholderNoItems
		return section
	}

	for _, item := range items {
		series, err := uc.metrics.SeriesForItem(ctx, item.ID, window)
		if err != nil {
			return uc.graphError(section, host, &reporterr.ProviderError{Provider: "metrics", Op: "series for item " + item.ID, Err: err})
		}

		switch s := series.(type) {
		case entity.NumericSeries:
			reduced := uc.reducer.Reduce(s.Points)
			if reduced.Empty() {
				continue
			}
			section.Series = append(section.Series, dto.SeriesDTO{
				ItemID:        item.ID,
				Name:          item.Name,
				Points:        reduced.Points,
				Min:           dto.ExtremumDTO{At: reduced.Min.At, Value: reduced.Min.Value},
				Max:           dto.ExtremumDTO{At: reduced.Max.At, Value: reduced.Max.Value},
				OriginalCount: reduced.OriginalCount,
			})
		case entity.LastValue:
			section.LastValues = append(section.LastValues, dto.LastValueRow{
				ItemID: item.ID,
				Name:   item.Name,
				Value:  s.Value,
				At:     s.At,
			})
		case entity.NotFound:
			uc.logger.Debug("Item has no values", "graph_id", graph.ID, "item_id", item.ID)
		}
	}

	if len(section.Series) == 0 {
		section.Placeholder = dto.PlaceholderNoData
	}

	return section
}

func (uc *AssembleReportUseCase) graphError(section dto.GraphSection, host entity.Host, err error) dto.GraphSection {
	uc.logger.Warn("Graph section replaced by error message",
		"host_id", host.ID,
		"graph_id", section.GraphID,
		"error", err.Error(),
	)
	section.Series = nil
	section.LastValues = nil
	section.Error = "Failed to build graph: " + err.Error()
	return section
}

func (uc *AssembleReportUseCase) archiveArtifact(ctx context.Context, def *entity.ReportDefinition, artifact *entity.GeneratedArtifact) {
	body, err := os.ReadFile(artifact.Path)
	if err != nil {
		uc.logger.Error("Failed to read artifact for archiving", err, "path", artifact.Path)
		return
	}

	key := uc.buildArchiveKey(def, artifact)
	url, err := uc.archive.PutObject(ctx, key, artifact.ContentType, body)
	if err != nil {
		uc.logger.Error("Failed to archive report artifact", err,
			"definition_id", def.ID,
			"key", key,
		)
		return
	}

	artifact.ArchiveURL = url
	uc.logger.Info("Report artifact archived", "definition_id", def.ID, "key", key)
}

func (uc *AssembleReportUseCase) buildArchiveKey(def *entity.ReportDefinition, artifact *entity.GeneratedArtifact) string {
	prefix := strings.Trim(uc.config.ArchiveKeyPrefix, "/")
	if prefix == "" {
		prefix = "reports"
	}

	owner := SanitizeFilename(def.ID)
	if strings.TrimSpace(def.ID) == "" {
		owner = SanitizeFilename(def.Hostgroup.Name)
	}

	return fmt.Sprintf("%s/%s/%s/%s", prefix, owner, artifact.CreatedAt.UTC().Format("2006/01"), artifact.Name)
}

func toCounterDTOs(counters []service.Counter) []dto.CounterDTO {
	out := make([]dto.CounterDTO, 0, len(counters))
	for _, c := range counters {
		out = append(out, dto.CounterDTO{Label: c.Label, Count: c.Count})
	}
	return out
}
