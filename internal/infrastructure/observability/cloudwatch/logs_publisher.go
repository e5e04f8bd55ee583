package cloudwatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"

	applicationPort "github.com/dreschagin/monitoring-reports/internal/application/port"
)

const (
	// CloudWatch Logs limits
	maxLogEventsPerRequest = 10000
	maxLogBatchSize        = 1048576 // 1 MB
	maxLogEventSize        = 256000  // 256 KB
	logEventOverhead       = 26
)

var _ applicationPort.LogPublisher = (*LogsPublisher)(nil)

// Поля, которые поднимаются на верхний уровень события, чтобы по ним
// можно было фильтровать в Logs Insights.
var promotedLogFields = []string{"run_id", "definition_id", "cadence", "period_label", "delivery_id", "error"}

// LogsPublisherConfig holds configuration for CloudWatch logs publishing.
type LogsPublisherConfig struct {
	LogGroupName    string
	LogStreamName   string
	Region          string
	Endpoint        string // LocalStack
	AccessKeyID     string
	SecretAccessKey string
	// BatchSize wakes the flush loop early once that many entries are pending.
	BatchSize int
	// MaxBuffered caps pending entries; newer entries are dropped and counted.
	MaxBuffered   int
	FlushInterval time.Duration
	AutoCreate    bool
}

type logsAPI interface {
	PutLogEvents(ctx context.Context, params *cloudwatchlogs.PutLogEventsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutLogEventsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	CreateLogStream(ctx context.Context, params *cloudwatchlogs.CreateLogStreamInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogStreamOutput, error)
}

// LogsPublisher ships dispatcher logs to CloudWatch Logs.
// Publish only appends to memory: it is called from the logrus hook and
// must not wait for the network. Sending happens in Flush.
type LogsPublisher struct {
	client logsAPI
	group  string
	stream string

	mu          sync.Mutex
	pending     []applicationPort.LogEntry
	dropped     int
	batchSize   int
	maxBuffered int

	// sendMu serialises PutLogEvents so batches keep their order
	sendMu sync.Mutex

	wake     chan struct{}
	interval time.Duration
	stopCh   chan struct{}
	wg       sync.WaitGroup
}

// NewLogsPublisher validates cfg, optionally creates the group and stream
// and starts the background flush loop.
func NewLogsPublisher(ctx context.Context, cfg LogsPublisherConfig) (*LogsPublisher, error) {
	if cfg.LogGroupName == "" {
		return nil, fmt.Errorf("log group name is required")
	}
	if cfg.LogStreamName == "" {
		return nil, fmt.Errorf("log stream name is required")
	}
	if cfg.Region == "" {
		return nil, fmt.Errorf("region is required")
	}

	awsCfg, err := buildAWSConfig(ctx, cfg.Region, cfg.Endpoint, cfg.AccessKeyID, cfg.SecretAccessKey)
	if err != nil {
		return nil, fmt.Errorf("failed to build AWS config: %w", err)
	}

	p := newLogsPublisher(cloudwatchlogs.NewFromConfig(awsCfg), cfg)
	if cfg.AutoCreate {
		if err := p.ensureLogGroupAndStream(ctx); err != nil {
			return nil, fmt.Errorf("failed to create log group/stream: %w", err)
		}
	}

	p.wg.Add(1)
	go p.flushLoop()

	return p, nil
}

func newLogsPublisher(client logsAPI, cfg LogsPublisherConfig) *LogsPublisher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxBuffered < cfg.BatchSize {
		cfg.MaxBuffered = cfg.BatchSize * 100
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = 5 * time.Second
	}

	return &LogsPublisher{
		client:      client,
		group:       cfg.LogGroupName,
		stream:      cfg.LogStreamName,
		pending:     make([]applicationPort.LogEntry, 0, cfg.BatchSize),
		batchSize:   cfg.BatchSize,
		maxBuffered: cfg.MaxBuffered,
		wake:        make(chan struct{}, 1),
		interval:    cfg.FlushInterval,
		stopCh:      make(chan struct{}),
	}
}

// Publish buffers one entry. It never returns an error: a full buffer
// drops the entry and the drop count is reported with the next batch.
func (p *LogsPublisher) Publish(_ context.Context, entry applicationPort.LogEntry) error {
	p.mu.Lock()
	if len(p.pending) >= p.maxBuffered {
		p.dropped++
		p.mu.Unlock()
		return nil
	}
	p.pending = append(p.pending, entry)
	full := len(p.pending) >= p.batchSize
	p.mu.Unlock()

	if full {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

func (p *LogsPublisher) PublishBatch(ctx context.Context, entries []applicationPort.LogEntry) error {
	for _, entry := range entries {
		if err := p.Publish(ctx, entry); err != nil {
			return err
		}
	}
	return nil
}

// Flush sends everything pending. On failure the batch is put back in
// front of newer entries, within MaxBuffered.
func (p *LogsPublisher) Flush(ctx context.Context) error {
	p.sendMu.Lock()
	defer p.sendMu.Unlock()

	batch := p.take()
	if len(batch) == 0 {
		return nil
	}

	if err := p.send(ctx, batch); err != nil {
		p.requeue(batch)
		return err
	}
	return nil
}

// Close stops the flush loop and sends what is left.
func (p *LogsPublisher) Close(ctx context.Context) error {
	close(p.stopCh)
	p.wg.Wait()
	return p.Flush(ctx)
}

func (p *LogsPublisher) flushLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
		case <-p.wake:
		case <-p.stopCh:
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		// ошибку не логируем: логгер сам пишет в этот publisher
		_ = p.Flush(ctx)
		cancel()
	}
}

func (p *LogsPublisher) take() []applicationPort.LogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	batch := p.pending
	if p.dropped > 0 {
		batch = append(batch, applicationPort.LogEntry{
			Timestamp: time.Now(),
			Level:     applicationPort.LogLevelWarn,
			Message:   "Log entries dropped: CloudWatch buffer was full",
			Fields:    map[string]interface{}{"dropped": p.dropped},
		})
		p.dropped = 0
	}
	p.pending = make([]applicationPort.LogEntry, 0, p.batchSize)
	return batch
}

func (p *LogsPublisher) requeue(batch []applicationPort.LogEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	merged := append(batch, p.pending...)
	if over := len(merged) - p.maxBuffered; over > 0 {
		p.dropped += over
		merged = merged[over:]
	}
	p.pending = merged
}

func (p *LogsPublisher) send(ctx context.Context, batch []applicationPort.LogEntry) error {
	sort.SliceStable(batch, func(i, j int) bool {
		return batch[i].Timestamp.Before(batch[j].Timestamp)
	})

	events := make([]types.InputLogEvent, 0, len(batch))
	for _, entry := range batch {
		event, err := p.convertToLogEvent(entry)
		if err != nil {
			continue
		}
		events = append(events, event)
	}

	for _, chunk := range chunkLogEvents(events) {
		if err := p.putWithRetry(ctx, chunk); err != nil {
			return fmt.Errorf("failed to publish log events: %w", err)
		}
	}
	return nil
}

// chunkLogEvents splits events by the per-request count and byte limits.
func chunkLogEvents(events []types.InputLogEvent) [][]types.InputLogEvent {
	var (
		chunks [][]types.InputLogEvent
		start  int
		size   int
	)
	for i, event := range events {
		eventSize := len(aws.ToString(event.Message)) + logEventOverhead
		if i > start && (i-start >= maxLogEventsPerRequest || size+eventSize > maxLogBatchSize) {
			chunks = append(chunks, events[start:i])
			start, size = i, 0
		}
		size += eventSize
	}
	if start < len(events) {
		chunks = append(chunks, events[start:])
	}
	return chunks
}

func (p *LogsPublisher) putWithRetry(ctx context.Context, events []types.InputLogEvent) error {
	var lastErr error
	backoff := initialBackoff

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := p.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
			LogGroupName:  aws.String(p.group),
			LogStreamName: aws.String(p.stream),
			LogEvents:     events,
		})
		if err == nil {
			return nil
		}
		lastErr = err

		if attempt < maxRetries-1 {
			select {
			case <-time.After(backoff):
				backoff *= 2
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d retries: %w", maxRetries, lastErr)
}

func (p *LogsPublisher) convertToLogEvent(entry applicationPort.LogEntry) (types.InputLogEvent, error) {
	logData := map[string]interface{}{
		"timestamp": entry.Timestamp.Format(time.RFC3339Nano),
		"level":     string(entry.Level),
		"message":   entry.Message,
	}

	rest := make(map[string]interface{}, len(entry.Fields))
	for key, value := range entry.Fields {
		rest[key] = value
	}
	for _, key := range promotedLogFields {
		if value, ok := rest[key]; ok {
			logData[key] = value
			delete(rest, key)
		}
	}
	if len(rest) > 0 {
		logData["fields"] = rest
	}

	raw, err := json.Marshal(logData)
	if err != nil {
		return types.InputLogEvent{}, fmt.Errorf("failed to marshal log entry: %w", err)
	}

	message := string(raw)
	if len(message) > maxLogEventSize {
		message = message[:maxLogEventSize-3] + "..."
	}

	return types.InputLogEvent{
		Message:   aws.String(message),
		Timestamp: aws.Int64(entry.Timestamp.UnixMilli()),
	}, nil
}

func (p *LogsPublisher) ensureLogGroupAndStream(ctx context.Context) error {
	var alreadyExists *types.ResourceAlreadyExistsException

	_, err := p.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(p.group),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log group: %w", err)
	}

	_, err = p.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(p.group),
		LogStreamName: aws.String(p.stream),
	})
	if err != nil && !errors.As(err, &alreadyExists) {
		return fmt.Errorf("failed to create log stream: %w", err)
	}

	return nil
}
