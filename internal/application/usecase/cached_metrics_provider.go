package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

// cachedSeries is the cache representation of entity.MetricSeries.
type cachedSeries struct {
	Kind   entity.SeriesKind    `json:"kind"`
	Points []entity.SeriesPoint `json:"points,omitempty"`
	Value  string               `json:"value,omitempty"`
	At     time.Time            `json:"at,omitzero"`
}

// CachedMetricsProvider кеширует ответы источника метрик.
// Кешируются только окна, полностью лежащие в прошлом.
type CachedMetricsProvider struct {
	next   port.MetricsProvider
	cache  port.Cache
	now    func() time.Time
	logger *logger.Logger
}

func NewCachedMetricsProvider(next port.MetricsProvider, cache port.Cache, log *logger.Logger) *CachedMetricsProvider {
	return &CachedMetricsProvider{
		next:   next,
		cache:  cache,
		now:    time.Now,
		logger: log,
	}
}

func (p *CachedMetricsProvider) ItemsForGraph(ctx context.Context, graphID string) ([]entity.GraphItem, error) {
	key := fmt.Sprintf("reports:graph_items:%s", graphID)

	var items []entity.GraphItem
	if err := p.cache.Get(ctx, key, &items); err == nil {
		p.logger.Debug("Cache hit for graph items", "graph_id", graphID)
		return items, nil
	}

	items, err := p.next.ItemsForGraph(ctx, graphID)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, items); err != nil {
		p.logger.Warn("Failed to cache graph items", "graph_id", graphID, "error", err.Error())
	}

	return items, nil
}

func (p *CachedMetricsProvider) SeriesForItem(ctx context.Context, itemID string, window valueobject.TimeRange) (entity.MetricSeries, error) {
	if !window.End().Before(p.now()) {
		return p.next.SeriesForItem(ctx, itemID, window)
	}

	key := fmt.Sprintf("reports:series:%s:%d:%d", itemID, window.Start().Unix(), window.End().Unix())

	var cached cachedSeries
	if err := p.cache.Get(ctx, key, &cached); err == nil {
		if series, ok := cached.toSeries(); ok {
			p.logger.Debug("Cache hit for item series", "item_id", itemID)
			return series, nil
		}
	}

	series, err := p.next.SeriesForItem(ctx, itemID, window)
	if err != nil {
		return nil, err
	}

	if err := p.cache.Set(ctx, key, fromSeries(series)); err != nil {
		p.logger.Warn("Failed to cache item series", "item_id", itemID, "error", err.Error())
	}

	return series, nil
}

func fromSeries(series entity.MetricSeries) cachedSeries {
	switch s := series.(type) {
	case entity.NumericSeries:
		return cachedSeries{Kind: entity.SeriesNumeric, Points: s.Points}
	case entity.LastValue:
		return cachedSeries{Kind: entity.SeriesLastValue, Value: s.Value, At: s.At}
	default:
		return cachedSeries{Kind: entity.SeriesNotFound}
	}
}

func (c cachedSeries) toSeries() (entity.MetricSeries, bool) {
	switch c.Kind {
	case entity.SeriesNumeric:
		return entity.NumericSeries{Points: c.Points}, true
	case entity.SeriesLastValue:
		return entity.LastValue{Value: c.Value, At: c.At}, true
	case entity.SeriesNotFound:
		return entity.NotFound{}, true
	default:
		return nil, false
	}
}
