package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dreschagin/monitoring-reports/internal/domain/entity"
	"github.com/dreschagin/monitoring-reports/internal/domain/valueobject"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

func newCachedProvider(next *mockMetricsProvider, cache *mapCache) *CachedMetricsProvider {
	p := NewCachedMetricsProvider(next, cache, logger.New("error"))
	p.now = func() time.Time { return time.Date(2025, time.August, 10, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestCachedMetricsProvider_ItemsForGraph(t *testing.T) {
	next := &mockMetricsProvider{items: map[string][]entity.GraphItem{"501": {{ID: "1", Name: "CPU"}}}}
	cache := newMapCache()
	p := newCachedProvider(next, cache)

	for i := 0; i < 3; i++ {
		items, err := p.ItemsForGraph(context.Background(), "501")
		if err != nil {
			t.Fatalf("ItemsForGraph() error = %v", err)
		}
		if len(items) != 1 || items[0].ID != "1" {
			t.Fatalf("items = %+v", items)
		}
	}

	if next.itemsCalls != 1 {
		t.Errorf("source called %d times, want 1", next.itemsCalls)
	}
	if _, ok := cache.data["reports:graph_items:501"]; !ok {
		t.Error("graph items not cached under the expected key")
	}
}

func TestCachedMetricsProvider_SeriesForItem(t *testing.T) {
	past, _ := valueobject.NewTimeRange(julyStart, julyEnd)
	current, _ := valueobject.NewTimeRange(julyStart, time.Date(2025, time.August, 31, 0, 0, 0, 0, time.UTC))

	tests := []struct {
		name      string
		itemID    string
		window    valueobject.TimeRange
		wantCalls int
		wantKind  entity.SeriesKind
	}{
		{"numeric past window", "1", past, 1, entity.SeriesNumeric},
		{"last value past window", "2", past, 1, entity.SeriesLastValue},
		{"not found past window", "3", past, 1, entity.SeriesNotFound},
		{"window not finished", "1", current, 2, entity.SeriesNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			next := &mockMetricsProvider{
				series: map[string]entity.MetricSeries{
					"1": numeric(1, 2, 3),
					"2": entity.LastValue{Value: "up", At: julyEnd},
				},
			}
			p := newCachedProvider(next, newMapCache())

			var last entity.MetricSeries
			for i := 0; i < 2; i++ {
				series, err := p.SeriesForItem(context.Background(), tt.itemID, tt.window)
				if err != nil {
					t.Fatalf("SeriesForItem() error = %v", err)
				}
				last = series
			}

			if next.seriesCalls != tt.wantCalls {
				t.Errorf("source called %d times, want %d", next.seriesCalls, tt.wantCalls)
			}
			if last.Kind() != tt.wantKind {
				t.Errorf("kind = %s, want %s", last.Kind(), tt.wantKind)
			}
			if n, ok := last.(entity.NumericSeries); ok && len(n.Points) != 3 {
				t.Errorf("cached series has %d points", len(n.Points))
			}
		})
	}
}

func TestCachedMetricsProvider_ErrorsAreNotCached(t *testing.T) {
	next := &mockMetricsProvider{
		itemsErr:  map[string]error{"501": errors.New("connection refused")},
		seriesErr: map[string]error{"1": errors.New("query timeout")},
	}
	cache := newMapCache()
	p := newCachedProvider(next, cache)
	past, _ := valueobject.NewTimeRange(julyStart, julyEnd)

	if _, err := p.ItemsForGraph(context.Background(), "501"); err == nil {
		t.Error("expected items error")
	}
	if _, err := p.SeriesForItem(context.Background(), "1", past); err == nil {
		t.Error("expected series error")
	}
	if cache.sets != 0 {
		t.Errorf("failed lookups were cached %d times", cache.sets)
	}
}
