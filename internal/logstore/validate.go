package logstore

import (
	"time"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// Validate checks an ingest payload against the record schema. It
// returns a field-level validation error listing every failing field,
// not just the first one.
func Validate(rec model.LogRecord) error {
	fields := map[string]string{}

	if rec.Level == "" {
		fields["level"] = "level is required"
	} else if !rec.Level.Valid() {
		fields["level"] = "level must be one of error, warn, info, debug"
	}
	if rec.Message == "" {
		fields["message"] = "message must not be empty"
	}
	if rec.TraceID == "" {
		fields["traceId"] = "traceId must not be empty"
	}
	if rec.SpanID == "" {
		fields["spanId"] = "spanId must not be empty"
	}
	if rec.Commit == "" {
		fields["commit"] = "commit must not be empty"
	}
	if rec.Timestamp == "" {
		fields["timestamp"] = "timestamp is required"
	} else if _, err := time.Parse(time.RFC3339, rec.Timestamp); err != nil {
		fields["timestamp"] = "timestamp must be a valid RFC3339 datetime"
	}

	if len(fields) > 0 {
		return apperr.Validation(fields)
	}
	return nil
}
