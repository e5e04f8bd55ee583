package port

import (
	"context"
	"time"
)

type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

// LogEntry is one log record shipped outside the process.
type LogEntry struct {
	Timestamp time.Time
	Level     LogLevel
	Message   string
	// Fields keeps the logger key/value pairs, e.g. run_id and definition_id.
	Fields map[string]interface{}
}

// LogPublisher ships log records to an external store. Publish is called
// from inside the logger and must not block on the network; Flush sends
// what is buffered and is called on shutdown.
type LogPublisher interface {
	Publish(ctx context.Context, entry LogEntry) error
	PublishBatch(ctx context.Context, entries []LogEntry) error
	Flush(ctx context.Context) error
}
