package logstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

func seedStore(t *testing.T, records ...model.LogRecord) *Store {
	t.Helper()
	s := testStore(t)
	ctx := context.Background()
	for _, r := range records {
		require.NoError(t, s.Append(ctx, r))
	}
	return s
}

func at(ts, traceID string) model.LogRecord {
	r := rec(traceID)
	r.Timestamp = ts
	return r
}

func traceIDs(records []model.LogRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.TraceID
	}
	return out
}

func TestQueryNewestFirst(t *testing.T) {
	s := seedStore(t,
		at("2024-01-01T00:00:00Z", "a"),
		at("2024-01-03T00:00:00Z", "b"),
		at("2024-01-02T00:00:00Z", "c"),
	)
	got, err := s.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c", "a"}, traceIDs(got))

	// Idempotent: same filter, same order.
	again, err := s.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestQueryTiesKeepInsertionOrder(t *testing.T) {
	s := seedStore(t,
		at("2024-01-01T00:00:00Z", "first"),
		at("2024-01-01T00:00:00Z", "second"),
		at("2024-01-01T00:00:00Z", "third"),
	)
	got, err := s.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second", "third"}, traceIDs(got))
}

func TestQueryLevelSet(t *testing.T) {
	e := rec("t-err")
	e.Level = model.LevelError
	w := rec("t-warn")
	w.Level = model.LevelWarn
	i := rec("t-info")
	i.Level = model.LevelInfo
	s := seedStore(t, e, w, i)

	got, err := s.Query(context.Background(), Filter{Levels: []model.Level{model.LevelError, model.LevelWarn}})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"t-err", "t-warn"}, traceIDs(got))

	got, err = s.Query(context.Background(), Filter{Levels: []model.Level{model.LevelDebug}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryResourceSubstringIsCaseInsensitive(t *testing.T) {
	a := rec("t1")
	a.ResourceID = "Payments-API"
	b := rec("t2")
	b.ResourceID = "db-1"
	s := seedStore(t, a, b)

	got, err := s.Query(context.Background(), Filter{ResourceID: "payments"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, traceIDs(got))
}

func TestQueryMessageSubstringEscapesRegexMeta(t *testing.T) {
	a := rec("t1")
	a.Message = "timeout after 5s (retry 1/3)"
	b := rec("t2")
	b.Message = "timeout after 5s"
	s := seedStore(t, a, b)

	// "(retry 1/3)" must match literally, not as a regex group.
	got, err := s.Query(context.Background(), Filter{Message: "(retry 1/3)"})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, traceIDs(got))
}

func TestQueryMessageRegexMode(t *testing.T) {
	a := rec("t1")
	a.Message = "connection reset by peer"
	b := rec("t2")
	b.Message = "connection refused"
	s := seedStore(t, a, b)

	got, err := s.Query(context.Background(), Filter{Message: "reset|refused", Regex: true})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = s.Query(context.Background(), Filter{Message: "([", Regex: true})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestQueryCaseSensitivity(t *testing.T) {
	a := rec("t1")
	a.Message = "Disk Full"
	s := seedStore(t, a)

	got, err := s.Query(context.Background(), Filter{Message: "disk full"})
	require.NoError(t, err)
	assert.Len(t, got, 1, "default match is case-insensitive")

	got, err = s.Query(context.Background(), Filter{Message: "disk full", CaseSensitive: true})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryExactCorrelationIDs(t *testing.T) {
	a := rec("trace-1")
	a.SpanID = "span-1"
	a.Commit = "abc123"
	b := rec("trace-10")
	s := seedStore(t, a, b)

	got, err := s.Query(context.Background(), Filter{TraceID: "trace-1"})
	require.NoError(t, err)
	assert.Equal(t, []string{"trace-1"}, traceIDs(got), "traceId match is exact, not substring")

	got, err = s.Query(context.Background(), Filter{SpanID: "span-1", Commit: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, []string{"trace-1"}, traceIDs(got))
}

func TestQueryTimeRangeInclusive(t *testing.T) {
	s := seedStore(t,
		at("2024-01-01T00:00:00Z", "a"),
		at("2024-01-02T00:00:00Z", "b"),
		at("2024-01-03T00:00:00Z", "c"),
	)
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	got, err := s.Query(context.Background(), Filter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, traceIDs(got))
}

func TestQueryRangeDropsUnparseableTimestamps(t *testing.T) {
	bad := rec("bad-ts")
	bad.Timestamp = "not-a-time"
	s := seedStore(t, at("2024-01-01T00:00:00Z", "good"), bad)

	// Without a range the record is kept.
	got, err := s.Query(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	// With any range bound it is silently dropped, not an error.
	from := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err = s.Query(context.Background(), Filter{From: &from})
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, traceIDs(got))
}

func TestQueryRejectsInvertedRange(t *testing.T) {
	s := seedStore(t, at("2024-01-01T00:00:00Z", "a"))
	from := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := s.Query(context.Background(), Filter{From: &from, To: &to})
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
	assert.Contains(t, apperr.FieldsOf(err), "from")
}

func TestQueryApplicationScope(t *testing.T) {
	a := rec("t1")
	a.ApplicationID = "app-a"
	b := rec("t2")
	b.ApplicationID = "app-b"
	s := seedStore(t, a, b)

	got, err := s.Query(context.Background(), Filter{ApplicationIDs: []string{"app-a"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, traceIDs(got))

	// Empty (non-nil) scope means nothing is visible.
	got, err = s.Query(context.Background(), Filter{ApplicationIDs: []string{}})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQueryCanceledContext(t *testing.T) {
	s := seedStore(t, at("2024-01-01T00:00:00Z", "a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.Query(ctx, Filter{})
	assert.ErrorIs(t, err, context.Canceled)
}
