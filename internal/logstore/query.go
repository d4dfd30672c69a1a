package logstore

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/logwell/logwell/internal/apperr"
	"github.com/logwell/logwell/internal/model"
)

// Filter is the composable query over stored records. All fields are
// optional; set fields combine with AND semantics, except Levels which
// is an OR set.
type Filter struct {
	Levels        []model.Level
	ResourceID    string // case-insensitive substring
	Message       string // substring, or regex when Regex is set
	Regex         bool
	CaseSensitive bool
	TraceID       string // exact
	SpanID        string // exact
	Commit        string // exact
	From          *time.Time // inclusive
	To            *time.Time // inclusive
	// ApplicationIDs scopes results to the caller's visible
	// applications. nil means no scoping; empty means nothing visible.
	ApplicationIDs []string
}

// checkEvery bounds how often the filter loop polls for cancellation.
const checkEvery = 256

// Query filters the durable set and returns matches newest-first.
// Records whose timestamp does not parse are silently dropped from
// range-filtered results, and sort after all parseable records
// otherwise. Ties keep insertion order.
func (s *Store) Query(ctx context.Context, f Filter) ([]model.LogRecord, error) {
	matcher, err := f.compile()
	if err != nil {
		return nil, err
	}

	records, err := s.ReadAll(ctx)
	if err != nil {
		return nil, err
	}

	type parsed struct {
		rec model.LogRecord
		t   time.Time
		idx int
	}
	var out []parsed
	for i, rec := range records {
		if i%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t, tok := rec.Time()
		if !matcher.match(rec, t, tok) {
			continue
		}
		out = append(out, parsed{rec: rec, t: t, idx: i})
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].t.After(out[j].t)
	})

	result := make([]model.LogRecord, len(out))
	for i, p := range out {
		result[i] = p.rec
	}
	return result, nil
}

type matcher struct {
	f       Filter
	levels  map[model.Level]struct{}
	apps    map[string]struct{}
	message *regexp.Regexp
}

// compile validates the filter and precompiles the message pattern.
// Plain substring filters are QuoteMeta-escaped so regex metacharacters
// in them match literally.
func (f Filter) compile() (*matcher, error) {
	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, apperr.Validation(map[string]string{
			"from": "from must not be after to",
		})
	}

	m := &matcher{f: f}
	if len(f.Levels) > 0 {
		m.levels = make(map[model.Level]struct{}, len(f.Levels))
		for _, l := range f.Levels {
			m.levels[l] = struct{}{}
		}
	}
	if f.ApplicationIDs != nil {
		m.apps = make(map[string]struct{}, len(f.ApplicationIDs))
		for _, id := range f.ApplicationIDs {
			m.apps[id] = struct{}{}
		}
	}
	if f.Message != "" {
		pattern := f.Message
		if !f.Regex {
			pattern = regexp.QuoteMeta(pattern)
		}
		if !f.CaseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, apperr.Validation(map[string]string{
				"search": "invalid search pattern",
			})
		}
		m.message = re
	}
	return m, nil
}

func (m *matcher) match(rec model.LogRecord, t time.Time, tok bool) bool {
	if m.apps != nil {
		if _, ok := m.apps[rec.ApplicationID]; !ok {
			return false
		}
	}
	if m.levels != nil {
		if _, ok := m.levels[rec.Level]; !ok {
			return false
		}
	}
	if m.f.ResourceID != "" &&
		!strings.Contains(strings.ToLower(rec.ResourceID), strings.ToLower(m.f.ResourceID)) {
		return false
	}
	if m.message != nil && !m.message.MatchString(rec.Message) {
		return false
	}
	if m.f.TraceID != "" && rec.TraceID != m.f.TraceID {
		return false
	}
	if m.f.SpanID != "" && rec.SpanID != m.f.SpanID {
		return false
	}
	if m.f.Commit != "" && rec.Commit != m.f.Commit {
		return false
	}
	if m.f.From != nil || m.f.To != nil {
		if !tok {
			return false
		}
		if m.f.From != nil && t.Before(*m.f.From) {
			return false
		}
		if m.f.To != nil && t.After(*m.f.To) {
			return false
		}
	}
	return true
}
