package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/dto"
	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/reporterr"
	"github.com/dreschagin/monitoring-reports/internal/domain/repository"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

type mockMetricsProvider struct {
	items      map[string][]entity.GraphItem
	series     map[string]entity.MetricSeries
	itemsErr   map[string]error
	seriesErr  map[string]error
	panicGraph string

	windows     []valueobject.TimeRange
	itemsCalls  int
	seriesCalls int
}

func (m *mockMetricsProvider) ItemsForGraph(_ context.Context, graphID string) ([]entity.GraphItem, error) {
	m.itemsCalls++
	if graphID == m.panicGraph {
		panic("corrupted graph " + graphID)
	}
	if err, ok := m.itemsErr[graphID]; ok {
		return nil, err
	}
	return m.items[graphID], nil
}

func (m *mockMetricsProvider) SeriesForItem(_ context.Context, itemID string, window valueobject.TimeRange) (entity.MetricSeries, error) {
	m.seriesCalls++
	m.windows = append(m.windows, window)
	if err, ok := m.seriesErr[itemID]; ok {
		return nil, err
	}
	if s, ok := m.series[itemID]; ok {
		return s, nil
	}
	return entity.NotFound{}, nil
}

type mockTicketProvider struct {
	tickets  []entity.TicketRecord
	contacts []entity.Contact
	monthly  []entity.MonthlyCount
	err      error

	periods []valueobject.DateRange
}

func (m *mockTicketProvider) Tickets(_ context.Context, _ string, period valueobject.DateRange) ([]entity.TicketRecord, error) {
	m.periods = append(m.periods, period)
	if m.err != nil {
		return nil, m.err
	}
	return m.tickets, nil
}

func (m *mockTicketProvider) AuthorizedContacts(context.Context, string) ([]entity.Contact, error) {
	return m.contacts, nil
}

func (m *mockTicketProvider) MonthlyCounts(_ context.Context, _ string, _ time.Time, months int) ([]entity.MonthlyCount, error) {
	if len(m.monthly) > 0 {
		return m.monthly, nil
	}
	return make([]entity.MonthlyCount, months), nil
}

type mockRenderer struct {
	docs []*dto.ReportDocument
	err  error
}

func (m *mockRenderer) Render(_ context.Context, doc *dto.ReportDocument, w io.Writer) error {
	m.docs = append(m.docs, doc)
	if m.err != nil {
		return m.err
	}
	_, err := fmt.Fprintf(w, "%%PDF-fake %s", doc.Cover.Title)
	return err
}

func (m *mockRenderer) Extension() string   { return "pdf" }
func (m *mockRenderer) ContentType() string { return "application/pdf" }

// dirArtifactStore пишет артефакты во временный каталог теста.
type dirArtifactStore struct {
	dir string
}

func (s *dirArtifactStore) Create(_ context.Context, baseName, ext string, write func(w io.Writer) error) (*entity.GeneratedArtifact, error) {
	name := baseName + "." + ext
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	return &entity.GeneratedArtifact{
		Name:        name,
		Path:        path,
		ContentType: "application/pdf",
		SizeBytes:   info.Size(),
		CreatedAt:   info.ModTime(),
	}, nil
}

type mockArchive struct {
	keys []string
	err  error
}

func (m *mockArchive) PutObject(_ context.Context, key, _ string, _ []byte) (string, error) {
	m.keys = append(m.keys, key)
	if m.err != nil {
		return "", m.err
	}
	return "https://archive.example/" + key, nil
}

type memoryDefinitions struct {
	defs      map[repository.DefinitionRef]*entity.ReportDefinition
	loadErr   map[repository.DefinitionRef]error
	saveErr   error
	listErr   error
	savePanic string
	saves     int
}

func newMemoryDefinitions(defs map[string]*entity.ReportDefinition) *memoryDefinitions {
	m := &memoryDefinitions{
		defs:    make(map[repository.DefinitionRef]*entity.ReportDefinition),
		loadErr: make(map[repository.DefinitionRef]error),
	}
	for id, def := range defs {
		m.defs[repository.DefinitionRef(id)] = def
	}
	return m
}

func (m *memoryDefinitions) List(context.Context) ([]repository.DefinitionRef, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	refs := make([]repository.DefinitionRef, 0, len(m.defs)+len(m.loadErr))
	for ref := range m.defs {
		refs = append(refs, ref)
	}
	for ref := range m.loadErr {
		if _, ok := m.defs[ref]; !ok {
			refs = append(refs, ref)
		}
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i] < refs[j] })
	return refs, nil
}

func (m *memoryDefinitions) Load(_ context.Context, ref repository.DefinitionRef) (*entity.ReportDefinition, error) {
	if err, ok := m.loadErr[ref]; ok {
		return nil, err
	}
	def, ok := m.defs[ref]
	if !ok {
		return nil, reporterr.ErrDefinitionNotFound
	}
	return def.Clone(), nil
}

func (m *memoryDefinitions) Save(ctx context.Context, ref repository.DefinitionRef, def *entity.ReportDefinition) error {
	if m.savePanic != "" {
		panic(m.savePanic)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.defs[ref] = def.Clone()
	return nil
}

type mockQueue struct {
	requests []port.DeliveryRequest
	err      error
}

// Enqueue rejects a cancelled context like delivery.Worker does.
func (m *mockQueue) Enqueue(ctx context.Context, req port.DeliveryRequest) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if m.err != nil {
		return m.err
	}
	m.requests = append(m.requests, req)
	return nil
}

type publishedEvent struct {
	subject string
	event   dto.DispatchEvent
}

type mockEvents struct {
	events []publishedEvent
}

func (m *mockEvents) PublishEvent(_ context.Context, subject string, event interface{}) error {
	e, ok := event.(dto.DispatchEvent)
	if !ok {
		return errors.New("unexpected event type")
	}
	m.events = append(m.events, publishedEvent{subject: subject, event: e})
	return nil
}

type recordedOutcome struct {
	cadence string
	outcome string
}

type mockRecorder struct {
	outcomes    []recordedOutcome
	generations int
}

func (m *mockRecorder) RecordOutcome(cadence, outcome string) {
	m.outcomes = append(m.outcomes, recordedOutcome{cadence, outcome})
}

func (m *mockRecorder) ObserveGeneration(time.Duration, bool) { m.generations++ }
func (m *mockRecorder) RecordDelivery(bool)                   {}

// stubGenerator records the working copies it receives.
type stubGenerator struct {
	received []*entity.ReportDefinition
	failFor  map[string]error
	panicFor string
	dir      string
	// during runs while the report is being generated
	during func(ctx context.Context)
}

func (g *stubGenerator) Execute(ctx context.Context, def *entity.ReportDefinition, label valueobject.PeriodLabel) (*entity.GeneratedArtifact, error) {
	g.received = append(g.received, def)
	if g.during != nil {
		g.during(ctx)
	}
	if def.ID == g.panicFor {
		panic("renderer exploded")
	}
	if err, ok := g.failFor[def.ID]; ok {
		return nil, &reporterr.GenerationError{DefinitionID: def.ID, Err: err}
	}
	name := def.ID + "_" + label.String() + ".pdf"
	return &entity.GeneratedArtifact{
		Name:        name,
		Path:        filepath.Join(g.dir, name),
		ContentType: "application/pdf",
		CreatedAt:   time.Date(2025, time.August, 10, 7, 0, 0, 0, time.UTC),
	}, nil
}

type mapCache struct {
	data map[string]interface{}
	sets int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string]interface{})}
}

func (c *mapCache) Get(_ context.Context, key string, dest interface{}) error {
	v, ok := c.data[key]
	if !ok {
		return errors.New("miss")
	}
	switch d := dest.(type) {
	case *[]entity.GraphItem:
		*d = v.([]entity.GraphItem)
	case *cachedSeries:
		*d = v.(cachedSeries)
	default:
		return errors.New("unsupported destination")
	}
	return nil
}

func (c *mapCache) Set(_ context.Context, key string, value interface{}) error {
	c.sets++
	c.data[key] = value
	return nil
}
