// Package logstore is the durable append-only log record store. It is
// a single JSON file guarded by a cross-process advisory lock for
// writers; every write rewrites the full set to a temp file and
// atomically renames it into place, so readers never observe a torn
// state and a crash mid-write leaves the previous version intact.
package logstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/danjacques/gofslock/fslock"
	"github.com/rs/zerolog"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/infrastructure/metrics"
	"github.com/logwell/logwell/internal/model"
)

// RetryPolicy bounds how long Append waits for the writer lock.
// Attempts counts lock acquisition tries; Delay is the pause between
// them.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy matches the bounded lock-retry contract: five
// tries, short fixed backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, Delay: 100 * time.Millisecond}
}

// Store persists log records in one JSON file.
type Store struct {
	path     string
	lockPath string
	retry    RetryPolicy
	logger   zerolog.Logger
}

// New builds a Store for the given file path. The lock lives in a
// sibling file: the data file itself is replaced by rename on every
// write, so a lock on it would not survive the swap.
func New(path string, retry RetryPolicy, logger zerolog.Logger) *Store {
	if retry.Attempts <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &Store{
		path:     path,
		lockPath: path + ".lock",
		retry:    retry,
		logger:   logger.With().Str("component", "logstore").Logger(),
	}
}

// Append durably adds one record. At most one writer proceeds at a
// time across processes; the lock is retried per the store's policy
// and a lock_timeout error surfaces once attempts are exhausted.
func (s *Store) Append(ctx context.Context, rec model.LogRecord) error {
	attempts := 0
	blocker := fslock.Blocker(func() error {
		attempts++
		if attempts >= s.retry.Attempts {
			return apperr.New(apperr.KindLockTimeout,
				fmt.Sprintf("log store lock not acquired after %d attempts", s.retry.Attempts))
		}
		metrics.LockRetries.Inc()
		select {
		case <-ctx.Done():
			return apperr.Wrap(apperr.KindLockTimeout, "log store lock wait canceled", ctx.Err())
		case <-time.After(s.retry.Delay):
			return nil
		}
	})

	err := fslock.WithBlocking(s.lockPath, blocker, func() error {
		return s.appendLocked(rec)
	})
	if err != nil {
		var ae *apperr.Error
		if errors.As(err, &ae) {
			return err
		}
		return apperr.Wrap(apperr.KindWrite, "append log record", err)
	}
	return nil
}

// appendLocked runs with the writer lock held: read the full set,
// append, serialize to a temp file in the same directory, fsync, and
// rename over the durable path.
func (s *Store) appendLocked(rec model.LogRecord) error {
	records, err := s.readFile()
	if err != nil {
		return err
	}
	records = append(records, rec)

	data, err := json.Marshal(records)
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "serialize log records", err)
	}

	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, ".logs-*.tmp")
	if err != nil {
		return apperr.Wrap(apperr.KindWrite, "create temp log file", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.KindWrite, "write temp log file", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return apperr.Wrap(apperr.KindWrite, "sync temp log file", err)
	}
	if err := tmp.Close(); err != nil {
		return apperr.Wrap(apperr.KindWrite, "close temp log file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return apperr.Wrap(apperr.KindWrite, "replace log file", err)
	}
	return nil
}

// ReadAll returns the full durable record set. Reads take no lock:
// the atomic rename on the write path guarantees any open sees either
// the pre- or post-write file, never a partial one.
func (s *Store) ReadAll(ctx context.Context) ([]model.LogRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.readFile()
}

func (s *Store) readFile() ([]model.LogRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []model.LogRecord{}, nil
		}
		return nil, apperr.Wrap(apperr.KindWrite, "read log file", err)
	}
	if len(data) == 0 {
		return []model.LogRecord{}, nil
	}
	var records []model.LogRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, apperr.Wrap(apperr.KindWrite, "decode log file", err)
	}
	return records, nil
}
