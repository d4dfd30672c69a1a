package model

import "time"

// Level is the severity of a log record.
type Level string

const (
	LevelError Level = "error"
	LevelWarn  Level = "warn"
	LevelInfo  Level = "info"
	LevelDebug Level = "debug"
)

// Levels lists every valid level, in decreasing severity.
var Levels = []Level{LevelError, LevelWarn, LevelInfo, LevelDebug}

// Valid reports whether l is one of the four known levels.
func (l Level) Valid() bool {
	switch l {
	case LevelError, LevelWarn, LevelInfo, LevelDebug:
		return true
	}
	return false
}

// LogRecord is a single ingested log line. Records are immutable once
// written; ApplicationID is assigned by the server from the caller's
// credential, every other field comes from the ingest payload.
type LogRecord struct {
	Level         Level          `json:"level"`
	Message       string         `json:"message"`
	ResourceID    string         `json:"resourceId"`
	Timestamp     string         `json:"timestamp"` // RFC3339
	TraceID       string         `json:"traceId"`
	SpanID        string         `json:"spanId"`
	Commit        string         `json:"commit"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	ApplicationID string         `json:"applicationId,omitempty"`
}

// Time parses the record timestamp. ok is false when the timestamp is
// not valid RFC3339; such records are excluded from time-range queries
// but are otherwise kept.
func (r LogRecord) Time() (time.Time, bool) {
	t, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}
