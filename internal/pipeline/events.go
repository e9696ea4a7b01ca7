package pipeline

import (
	"time"

	"fjacquet/receipt-extract/internal/logging"
)

// EventType classifies a diagnostic event.
type EventType string

// Event types
const (
	EventStageCompleted EventType = "stage_completed"
	EventStageSkipped   EventType = "stage_skipped"
	EventStageFailed    EventType = "stage_failed"
	EventEarlyExit      EventType = "early_exit"
	EventFallbackForced EventType = "fallback_forced"
)

// Event is a structured diagnostic emitted while the pipeline runs.
type Event struct {
	Type       EventType
	Stage      Stage
	ItemsFound int
	Confidence float64
	PatternID  string
	Elapsed    time.Duration
	Reason     string
	Err        error
}

// EventSink receives pipeline events. Implementations must not block.
type EventSink interface {
	Emit(Event)
}

// NopSink discards every event.
type NopSink struct{}

// Emit implements EventSink.
func (NopSink) Emit(Event) {}

// LogSink writes events to a logger at debug level, failures at warn.
type LogSink struct {
	Logger logging.Logger
}

// NewLogSink returns a sink logging to logger, or the default logger.
func NewLogSink(logger logging.Logger) *LogSink {
	return &LogSink{Logger: logging.OrDefault(logger)}
}

// Emit implements EventSink.
func (s *LogSink) Emit(e Event) {
	fields := []logging.Field{
		logging.F(logging.FieldStage, string(e.Stage)),
		logging.F(logging.FieldCount, e.ItemsFound),
		logging.F(logging.FieldConfidence, e.Confidence),
		logging.F(logging.FieldDuration, e.Elapsed.Milliseconds()),
	}
	if e.PatternID != "" {
		fields = append(fields, logging.F(logging.FieldPatternID, e.PatternID))
	}
	if e.Reason != "" {
		fields = append(fields, logging.F(logging.FieldReason, e.Reason))
	}

	switch e.Type {
	case EventStageFailed:
		s.Logger.WithError(e.Err).Warn("Extraction stage failed", fields...)
	case EventStageSkipped:
		s.Logger.Debug("Extraction stage skipped", fields...)
	case EventEarlyExit:
		s.Logger.Debug("Extraction stopped early", fields...)
	case EventFallbackForced:
		s.Logger.Debug("Running fallback extraction", fields...)
	default:
		s.Logger.Debug("Extraction stage completed", fields...)
	}
}
