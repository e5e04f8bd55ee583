package cloudwatch

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	applicationPort "github.com/dreschagin/monitoring-reports/internal/application/port"
)

// LogsHook forwards logrus entries to a LogPublisher.
type LogsHook struct {
	publisher applicationPort.LogPublisher
	levels    []logrus.Level
	timeout   time.Duration
}

// NewLogsHook ships entries at minLevel and above.
func NewLogsHook(publisher applicationPort.LogPublisher, minLevel logrus.Level) *LogsHook {
	levels := make([]logrus.Level, 0, len(logrus.AllLevels))
	for _, level := range logrus.AllLevels {
		if level <= minLevel {
			levels = append(levels, level)
		}
	}

	return &LogsHook{
		publisher: publisher,
		levels:    levels,
		timeout:   5 * time.Second,
	}
}

func (h *LogsHook) Levels() []logrus.Level {
	return h.levels
}

func (h *LogsHook) Fire(entry *logrus.Entry) error {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()

	return h.publisher.Publish(ctx, toLogEntry(entry))
}

func toLogEntry(entry *logrus.Entry) applicationPort.LogEntry {
	fields := make(map[string]interface{}, len(entry.Data))
	for key, value := range entry.Data {
		if err, ok := value.(error); ok {
			fields[key] = err.Error()
			continue
		}
		fields[key] = value
	}

	return applicationPort.LogEntry{
		Timestamp: entry.Time,
		Level:     mapLevel(entry.Level),
		Message:   entry.Message,
		Fields:    fields,
	}
}

func mapLevel(level logrus.Level) applicationPort.LogLevel {
	switch level {
	case logrus.TraceLevel, logrus.DebugLevel:
		return applicationPort.LogLevelDebug
	case logrus.InfoLevel:
		return applicationPort.LogLevelInfo
	case logrus.WarnLevel:
		return applicationPort.LogLevelWarn
	default:
		return applicationPort.LogLevelError
	}
}
