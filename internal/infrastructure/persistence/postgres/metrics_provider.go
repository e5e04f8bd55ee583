package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	_ "github.com/lib/pq"
)

// MetricsProvider читает элементы графиков и историю значений из БД
// системы мониторинга.
type MetricsProvider struct {
	db *sql.DB
}

// NewMetricsProvider создает новый провайдер метрик
func NewMetricsProvider(db *sql.DB) *MetricsProvider {
	return &MetricsProvider{db: db}
}

// ItemsForGraph возвращает элементы графика в порядке отрисовки
func (p *MetricsProvider) ItemsForGraph(ctx context.Context, graphID string) ([]entity.GraphItem, error) {
	id, err := parseID(graphID)
	if err != nil {
		return nil, fmt.Errorf("invalid graph id %q: %w", graphID, err)
	}

	query := `
		SELECT i.itemid, i.name
		FROM graphs_items gi
		JOIN items i ON i.itemid = gi.itemid
		WHERE gi.graphid = $1
		ORDER BY gi.sortorder, i.itemid
	`

	rows, err := p.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query graph items: %w", err)
	}
	defer rows.Close()

	items := make([]entity.GraphItem, 0)
	for rows.Next() {
		var itemID int64
		var name string
		if err := rows.Scan(&itemID, &name); err != nil {
			return nil, fmt.Errorf("failed to scan graph item: %w", err)
		}
		items = append(items, entity.GraphItem{
			ID:   strconv.FormatInt(itemID, 10),
			Name: name,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return items, nil
}

// SeriesForItem picks the history table by the item value type. Numeric
// items return all samples of the window, the others only the last value.
func (p *MetricsProvider) SeriesForItem(ctx context.Context, itemID string, window valueobject.TimeRange) (entity.MetricSeries, error) {
	id, err := parseID(itemID)
	if err != nil {
		return nil, fmt.Errorf("invalid item id %q: %w", itemID, err)
	}

	var valueType int
	err = p.db.QueryRowContext(ctx, `SELECT value_type FROM items WHERE itemid = $1`, id).Scan(&valueType)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.NotFound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query item value type: %w", err)
	}

	table, numeric, ok := historyTable(valueType)
	if !ok {
		return entity.NotFound{}, nil
	}

	if numeric {
		return p.numericSeries(ctx, table, id, window)
	}
	return p.lastValue(ctx, table, id, window)
}

func (p *MetricsProvider) numericSeries(ctx context.Context, table string, itemID int64, window valueobject.TimeRange) (entity.MetricSeries, error) {
	query := fmt.Sprintf(`
		SELECT clock, value
		FROM %s
		WHERE itemid = $1 AND clock BETWEEN $2 AND $3
		ORDER BY clock ASC
	`, table)

	rows, err := p.db.QueryContext(ctx, query, itemID, window.Start().Unix(), window.End().Unix())
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	points := make([]entity.SeriesPoint, 0)
	for rows.Next() {
		var clock int64
		var value float64
		if err := rows.Scan(&clock, &value); err != nil {
			return nil, fmt.Errorf("failed to scan %s row: %w", table, err)
		}
		points = append(points, entity.SeriesPoint{
			At:    time.Unix(clock, 0).In(window.Start().Location()),
			Value: value,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return entity.NumericSeries{Points: points}, nil
}

func (p *MetricsProvider) lastValue(ctx context.Context, table string, itemID int64, window valueobject.TimeRange) (entity.MetricSeries, error) {
	query := fmt.Sprintf(`
		SELECT clock, value
		FROM %s
		WHERE itemid = $1 AND clock <= $2
		ORDER BY clock DESC
		LIMIT 1
	`, table)

	var clock int64
	var value string
	err := p.db.QueryRowContext(ctx, query, itemID, window.End().Unix()).Scan(&clock, &value)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.NotFound{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}

	return entity.LastValue{
		Value: value,
		At:    time.Unix(clock, 0).In(window.End().Location()),
	}, nil
}

func parseID(raw string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
}
