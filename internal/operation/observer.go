package operation

import (
	"log/slog"
	"time"
)

// EventType represents the phases of an operation application
type EventType string

const (
	EventApplyStart      EventType = "apply_start"
	EventLayoutBuilt     EventType = "layout_built"
	EventChangeDataReady EventType = "change_data_ready"
	EventApplyEnd        EventType = "apply_end"
	EventApplyFailed     EventType = "apply_failed"
)

// Event represents a lifecycle event of one application
type Event struct {
	Type      EventType
	Operation string
	TraceID   string
	Timestamp time.Time
	Data      interface{} // phase-specific data (column names, preservation, error)
}

// Observer receives events at the major phases of Apply
type Observer interface {
	OnEvent(event Event)
}

// LoggingObserver logs every event using structured logging
type LoggingObserver struct {
	logger *slog.Logger
}

func NewLoggingObserver(logger *slog.Logger) *LoggingObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{logger: logger}
}

// OnEvent implements Observer
func (lo *LoggingObserver) OnEvent(event Event) {
	lo.logger.Debug("operation_lifecycle",
		"event", event.Type,
		"operation", event.Operation,
		"trace_id", event.TraceID,
		"timestamp", event.Timestamp,
		"data", event.Data,
	)
}
