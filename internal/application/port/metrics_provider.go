package port

import (
	"context"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
)

// MetricsProvider читает данные системы мониторинга.
type MetricsProvider interface {
	// ItemsForGraph resolves the items plotted by a graph.
	ItemsForGraph(ctx context.Context, graphID string) ([]entity.GraphItem, error)

	// SeriesForItem returns a NumericSeries, a LastValue for non-numeric
	// items, or NotFound.
	SeriesForItem(ctx context.Context, itemID string, window valueobject.TimeRange) (entity.MetricSeries, error)
}
