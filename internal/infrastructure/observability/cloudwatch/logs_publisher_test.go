package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/sirupsen/logrus"

	applicationPort "github.com/dreschagin/monitoring-reports/internal/application/port"
)

type fakeLogsAPI struct {
	mu       sync.Mutex
	calls    []*cloudwatchlogs.PutLogEventsInput
	failures []error
	groups   int
	streams  int
}

func (f *fakeLogsAPI) PutLogEvents(_ context.Context, in *cloudwatchlogs.PutLogEventsInput, _ ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if len(f.failures) > 0 {
		err := f.failures[0]
		f.failures = f.failures[1:]
		return nil, err
	}
	f.calls = append(f.calls, in)
	return &cloudwatchlogs.PutLogEventsOutput{}, nil
}

func (f *fakeLogsAPI) CreateLogGroup(context.Context, *cloudwatchlogs.CreateLogGroupInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error) {
	f.groups++
	return nil, &types.ResourceAlreadyExistsException{}
}

func (f *fakeLogsAPI) CreateLogStream(context.Context, *cloudwatchlogs.CreateLogStreamInput, ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error) {
	f.streams++
	return &cloudwatchlogs.CreateLogStreamOutput{}, nil
}

func TestConvertToLogEvent(t *testing.T) {
	p := &LogsPublisher{group: "/aws/test", stream: "test-stream"}

	timestamp := time.Date(2026, 2, 8, 12, 0, 0, 0, time.UTC)
	entry := applicationPort.LogEntry{
		Timestamp: timestamp,
		Level:     applicationPort.LogLevelInfo,
		Message:   "Report dispatched",
		Fields: map[string]interface{}{
			"definition_id": "acme",
			"period_label":  "2026-01",
			"recipients":    2,
		},
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	if event.Timestamp == nil || *event.Timestamp != timestamp.UnixMilli() {
		t.Errorf("Expected Timestamp=%d, got %v", timestamp.UnixMilli(), event.Timestamp)
	}
	if event.Message == nil {
		t.Fatal("Expected Message to be set")
	}

	var logData map[string]interface{}
	if err := json.Unmarshal([]byte(*event.Message), &logData); err != nil {
		t.Fatalf("Failed to parse log message as JSON: %v", err)
	}

	if logData["level"] != string(applicationPort.LogLevelInfo) {
		t.Errorf("Expected level=INFO, got %v", logData["level"])
	}
	if logData["message"] != "Report dispatched" {
		t.Errorf("Unexpected message %v", logData["message"])
	}
	if logData["definition_id"] != "acme" || logData["period_label"] != "2026-01" {
		t.Errorf("report fields not promoted: %v", logData)
	}

	fields, ok := logData["fields"].(map[string]interface{})
	if !ok {
		t.Fatal("Expected fields to be a map")
	}
	if _, dup := fields["definition_id"]; dup {
		t.Error("promoted field duplicated in fields")
	}
	// JSON numbers are float64
	if n, ok := fields["recipients"].(float64); !ok || n != 2 {
		t.Errorf("Expected recipients=2, got %v", fields["recipients"])
	}
	if len(entry.Fields) != 3 {
		t.Error("entry fields were modified")
	}
}

func TestConvertToLogEvent_Truncation(t *testing.T) {
	p := &LogsPublisher{}

	entry := applicationPort.LogEntry{
		Timestamp: time.Now(),
		Level:     applicationPort.LogLevelInfo,
		Message:   string(make([]byte, maxLogEventSize+1000)),
	}

	event, err := p.convertToLogEvent(entry)
	if err != nil {
		t.Fatalf("Failed to convert log entry: %v", err)
	}

	messageLen := len(*event.Message)
	if messageLen > maxLogEventSize {
		t.Errorf("Expected message to be truncated to %d bytes, got %d", maxLogEventSize, messageLen)
	}
	if (*event.Message)[messageLen-3:] != "..." {
		t.Error("Expected truncation marker '...' at end of message")
	}
}

func TestLogsPublisher_FlushSortsChronologically(t *testing.T) {
	api := &fakeLogsAPI{}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", BatchSize: 10})

	now := time.Now()
	err := p.PublishBatch(context.Background(), []applicationPort.LogEntry{
		{Timestamp: now.Add(5 * time.Second), Level: applicationPort.LogLevelInfo, Message: "Third"},
		{Timestamp: now, Level: applicationPort.LogLevelInfo, Message: "First"},
		{Timestamp: now.Add(2 * time.Second), Level: applicationPort.LogLevelInfo, Message: "Second"},
	})
	if err != nil {
		t.Fatalf("PublishBatch() error = %v", err)
	}
	if len(api.calls) != 0 {
		t.Fatalf("expected buffering, got %d calls", len(api.calls))
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(api.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(api.calls))
	}

	events := api.calls[0].LogEvents
	for i := 0; i < len(events)-1; i++ {
		if *events[i+1].Timestamp < *events[i].Timestamp {
			t.Errorf("events not in chronological order at index %d", i)
		}
	}
	if api.calls[0].SequenceToken != nil {
		t.Error("sequence token must not be sent")
	}
}

func TestLogsPublisher_PublishNeverSends(t *testing.T) {
	api := &fakeLogsAPI{failures: []error{errors.New("throttled")}}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", BatchSize: 2})

	entry := applicationPort.LogEntry{Timestamp: time.Now(), Level: applicationPort.LogLevelWarn, Message: "x"}
	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), entry); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
	}

	if len(api.calls) != 0 {
		t.Fatalf("Publish must not call CloudWatch, got %d calls", len(api.calls))
	}
	select {
	case <-p.wake:
	default:
		t.Fatal("full batch did not wake the flush loop")
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(api.calls) != 1 || len(api.calls[0].LogEvents) != 2 {
		t.Fatalf("expected one successful call after retry, got %d", len(api.calls))
	}
	if len(p.pending) != 0 {
		t.Errorf("pending should be empty, got %d", len(p.pending))
	}
}

func TestLogsPublisher_FailedFlushRequeues(t *testing.T) {
	failure := errors.New("unavailable")
	api := &fakeLogsAPI{failures: []error{failure, failure, failure}}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", BatchSize: 10})

	now := time.Now()
	_ = p.Publish(context.Background(), applicationPort.LogEntry{Timestamp: now, Message: "first"})
	_ = p.Publish(context.Background(), applicationPort.LogEntry{Timestamp: now.Add(time.Second), Message: "second"})

	if err := p.Flush(context.Background()); !errors.Is(err, failure) {
		t.Fatalf("Flush() error = %v, want %v", err, failure)
	}
	if len(p.pending) != 2 || p.pending[0].Message != "first" {
		t.Fatalf("batch not requeued in order: %+v", p.pending)
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("second Flush() error = %v", err)
	}
	if len(api.calls) != 1 || len(api.calls[0].LogEvents) != 2 {
		t.Errorf("requeued entries not delivered: %d calls", len(api.calls))
	}
}

func TestLogsPublisher_DropsWhenFull(t *testing.T) {
	api := &fakeLogsAPI{}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", BatchSize: 1, MaxBuffered: 2})

	for i := 0; i < 4; i++ {
		_ = p.Publish(context.Background(), applicationPort.LogEntry{Timestamp: time.Now(), Message: "x"})
	}
	if len(p.pending) != 2 || p.dropped != 2 {
		t.Fatalf("pending=%d dropped=%d", len(p.pending), p.dropped)
	}

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	events := api.calls[0].LogEvents
	if len(events) != 3 {
		t.Fatalf("expected 2 entries and a drop notice, got %d", len(events))
	}

	var notice map[string]interface{}
	_ = json.Unmarshal([]byte(aws.ToString(events[2].Message)), &notice)
	fields, _ := notice["fields"].(map[string]interface{})
	if notice["level"] != "WARN" || fields["dropped"] != float64(2) {
		t.Errorf("drop notice = %v", notice)
	}
	if p.dropped != 0 {
		t.Error("drop counter not reset")
	}
}

func TestChunkLogEvents(t *testing.T) {
	big := string(make([]byte, 300000))
	events := make([]types.InputLogEvent, 5)
	for i := range events {
		events[i] = types.InputLogEvent{Message: aws.String(big), Timestamp: aws.Int64(int64(i))}
	}

	chunks := chunkLogEvents(events)
	if len(chunks) != 2 || len(chunks[0]) != 3 || len(chunks[1]) != 2 {
		t.Errorf("chunks by size = %d", len(chunks))
	}

	small := make([]types.InputLogEvent, maxLogEventsPerRequest+1)
	for i := range small {
		small[i] = types.InputLogEvent{Message: aws.String("x"), Timestamp: aws.Int64(int64(i))}
	}
	if chunks := chunkLogEvents(small); len(chunks) != 2 || len(chunks[1]) != 1 {
		t.Errorf("chunks by count = %d", len(chunks))
	}

	if chunks := chunkLogEvents(nil); len(chunks) != 0 {
		t.Errorf("empty input produced %d chunks", len(chunks))
	}
}

func TestEnsureLogGroupAndStream_IgnoresExisting(t *testing.T) {
	api := &fakeLogsAPI{}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s"})

	if err := p.ensureLogGroupAndStream(context.Background()); err != nil {
		t.Fatalf("ensureLogGroupAndStream() error = %v", err)
	}
	if api.groups != 1 || api.streams != 1 {
		t.Errorf("groups=%d streams=%d", api.groups, api.streams)
	}
}

func TestLogsConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		config LogsPublisherConfig
	}{
		{"missing log group", LogsPublisherConfig{LogStreamName: "s", Region: "us-east-1"}},
		{"missing log stream", LogsPublisherConfig{LogGroupName: "/aws/test", Region: "us-east-1"}},
		{"missing region", LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewLogsPublisher(context.Background(), tt.config); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLogsHook(t *testing.T) {
	api := &fakeLogsAPI{}
	p := newLogsPublisher(api, LogsPublisherConfig{LogGroupName: "/aws/test", LogStreamName: "s", BatchSize: 10})
	hook := NewLogsHook(p, logrus.WarnLevel)

	levels := hook.Levels()
	for _, level := range levels {
		if level > logrus.WarnLevel {
			t.Errorf("hook should not fire on %v", level)
		}
	}

	entry := &logrus.Entry{
		Time:    time.Now(),
		Level:   logrus.ErrorLevel,
		Message: "Report delivery failed",
		Data:    logrus.Fields{"error": errors.New("smtp down"), "definition_id": "acme"},
	}
	if err := hook.Fire(entry); err != nil {
		t.Fatalf("Fire() error = %v", err)
	}

	if len(p.pending) != 1 {
		t.Fatalf("expected 1 buffered entry, got %d", len(p.pending))
	}
	got := p.pending[0]
	if got.Level != applicationPort.LogLevelError {
		t.Errorf("level = %v", got.Level)
	}
	if got.Fields["error"] != "smtp down" {
		t.Errorf("error field = %v", got.Fields["error"])
	}
}
