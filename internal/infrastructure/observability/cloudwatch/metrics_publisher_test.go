package cloudwatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"github.com/dreschagin/monitoring-reports/internal/application/port"
	"github.com/dreschagin/monitoring-reports/pkg/logger"
)

type fakeMetricsAPI struct {
	mu    sync.Mutex
	calls []*cloudwatch.PutMetricDataInput
}

func (f *fakeMetricsAPI) PutMetricData(_ context.Context, in *cloudwatch.PutMetricDataInput, _ ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, in)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

func (f *fakeMetricsAPI) datums() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += len(c.MetricData)
	}
	return n
}

func TestMapUnit(t *testing.T) {
	tests := []struct {
		name     string
		unit     string
		expected string
	}{
		{"percentage", "%", "Percent"},
		{"milliseconds", "ms", "Milliseconds"},
		{"seconds", "s", "Seconds"},
		{"count", "count", "Count"},
		{"unknown", "custom", "None"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := mapUnit(tt.unit)
			if string(result) != tt.expected {
				t.Errorf("mapUnit(%q) = %v, want %v", tt.unit, result, tt.expected)
			}
		})
	}
}

func TestConvertToDatum(t *testing.T) {
	p := &MetricsPublisher{
		namespace: "Test/Namespace",
		defaultDimensions: map[string]string{
			"Environment": "test",
			"Cadence":     "default",
		},
		storageResolution: 60,
	}

	at := time.Date(2025, 8, 10, 7, 0, 0, 0, time.UTC)
	datum := p.convertToDatum(port.MetricDatum{
		Name:       "DispatchOutcome",
		Value:      1,
		Unit:       "count",
		Dimensions: map[string]string{"Cadence": "monthly", "Outcome": "dispatched"},
		Timestamp:  at,
	})

	if datum.MetricName == nil || *datum.MetricName != "DispatchOutcome" {
		t.Errorf("Expected MetricName=DispatchOutcome, got %v", datum.MetricName)
	}
	if datum.Value == nil || *datum.Value != 1 {
		t.Errorf("Expected Value=1, got %v", datum.Value)
	}
	if datum.Unit != "Count" {
		t.Errorf("Expected Unit=Count, got %v", datum.Unit)
	}
	if datum.Timestamp == nil || !datum.Timestamp.Equal(at) {
		t.Errorf("Expected Timestamp=%v, got %v", at, datum.Timestamp)
	}
	if datum.StorageResolution == nil || *datum.StorageResolution != 60 {
		t.Errorf("Expected StorageResolution=60, got %v", datum.StorageResolution)
	}

	// метрика переопределяет измерения по умолчанию, порядок по имени
	expected := []struct{ name, value string }{
		{"Cadence", "monthly"},
		{"Environment", "test"},
		{"Outcome", "dispatched"},
	}
	if len(datum.Dimensions) != len(expected) {
		t.Fatalf("Expected %d dimensions, got %d", len(expected), len(datum.Dimensions))
	}
	for i, want := range expected {
		dim := datum.Dimensions[i]
		if *dim.Name != want.name || *dim.Value != want.value {
			t.Errorf("dimension %d = %s:%s, want %s:%s", i, *dim.Name, *dim.Value, want.name, want.value)
		}
	}
}

func TestNormalizeMetricsConfig(t *testing.T) {
	tests := []struct {
		name      string
		config    MetricsPublisherConfig
		expectErr bool
	}{
		{"valid config", MetricsPublisherConfig{Namespace: "Test", Region: "us-east-1", StorageResolution: 1}, false},
		{"missing namespace", MetricsPublisherConfig{Region: "us-east-1"}, true},
		{"missing region", MetricsPublisherConfig{Namespace: "Test"}, true},
		{"invalid storage resolution", MetricsPublisherConfig{Namespace: "Test", Region: "us-east-1", StorageResolution: 30}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := normalizeMetricsConfig(tt.config)
			if (err != nil) != tt.expectErr {
				t.Fatalf("normalizeMetricsConfig() error = %v, expectErr %v", err, tt.expectErr)
			}
			if err != nil {
				return
			}
			if cfg.BufferSize != 100 {
				t.Errorf("BufferSize = %d, want 100", cfg.BufferSize)
			}
			if cfg.FlushInterval != 10*time.Second {
				t.Errorf("FlushInterval = %v", cfg.FlushInterval)
			}
			if cfg.StorageResolution != 1 && cfg.StorageResolution != 60 {
				t.Errorf("StorageResolution = %d", cfg.StorageResolution)
			}
		})
	}
}

func TestMetricsPublisher_RecorderBuffersAndFlushes(t *testing.T) {
	api := &fakeMetricsAPI{}
	p := newMetricsPublisher(api, MetricsPublisherConfig{
		Namespace:     "Test",
		BufferSize:    10,
		FlushInterval: time.Hour,
	}, logger.New("error"))

	p.RecordOutcome("weekly", "dispatched")
	p.ObserveGeneration(1500*time.Millisecond, true)
	p.RecordDelivery(false)

	if api.datums() != 0 {
		t.Fatalf("expected buffering before flush, got %d datums", api.datums())
	}

	if err := p.Close(context.Background()); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if api.datums() != 3 {
		t.Errorf("expected 3 datums after close, got %d", api.datums())
	}
	if *api.calls[0].Namespace != "Test" {
		t.Errorf("namespace = %s", *api.calls[0].Namespace)
	}
}

func TestMetricsPublisher_AutoFlushOnFullBuffer(t *testing.T) {
	api := &fakeMetricsAPI{}
	p := newMetricsPublisher(api, MetricsPublisherConfig{
		Namespace:     "Test",
		BufferSize:    2,
		FlushInterval: time.Hour,
	}, logger.New("error"))
	defer p.Close(context.Background())

	err := p.PublishBatch(context.Background(), []port.MetricDatum{
		{Name: "a", Value: 1},
		{Name: "b", Value: 2},
		{Name: "c", Value: 3},
	})
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if api.datums() != 2 {
		t.Errorf("expected 2 flushed datums, got %d", api.datums())
	}
}
