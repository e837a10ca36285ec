package suggest

import (
	"strings"
	"sync"

	"github.com/runger/tally/internal/storage"
)

// Filter narrows a fixed snapshot of tag statistics as a query is typed.
// When the new query extends the previous one, only the current suggestions
// are re-checked; any other change rescans the snapshot. Results keep
// snapshot order. Filter is safe for concurrent use.
type Filter struct {
	mu sync.Mutex

	all         []storage.TagStat
	suggestions []storage.TagStat
	query       string
	hasQuery    bool

	// rescans counts full passes over the snapshot.
	rescans int
}

// NewFilter creates a filter over all. The slice is copied. There are no
// suggestions until the first Update; Update("") suggests every tag.
func NewFilter(all []storage.TagStat) *Filter {
	return &Filter{all: cloneStats(all)}
}

// Update applies a new raw query and returns the matching suggestions.
func (f *Filter) Update(raw string) []storage.TagStat {
	m := NewMatcher(raw)

	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case f.hasQuery && m.query == f.query:
		// unchanged
	case f.hasQuery && strings.HasPrefix(m.query, f.query):
		f.suggestions = filterStats(f.suggestions, m)
	default:
		f.suggestions = filterStats(f.all, m)
		f.rescans++
	}
	f.query = m.query
	f.hasQuery = true

	return cloneStats(f.suggestions)
}

// Reset forgets the query and empties the suggestions. The next Update
// rescans the snapshot.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.suggestions = nil
	f.query = ""
	f.hasQuery = false
}

// Suggestions returns the current suggestions.
func (f *Filter) Suggestions() []storage.TagStat {
	f.mu.Lock()
	defer f.mu.Unlock()

	return cloneStats(f.suggestions)
}

// Query returns the last normalized query, and false after Reset or before
// the first Update.
func (f *Filter) Query() (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.query, f.hasQuery
}

// Len returns the number of current suggestions.
func (f *Filter) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.suggestions)
}

// Limit returns at most n leading entries of stats. n <= 0 means no limit.
func Limit(stats []storage.TagStat, n int) []storage.TagStat {
	if n <= 0 || len(stats) <= n {
		return stats
	}
	return stats[:n]
}

// Rescan matches every stat in all against raw. It is the reference the
// incremental path must agree with.
func Rescan(all []storage.TagStat, raw string) []storage.TagStat {
	return filterStats(all, NewMatcher(raw))
}

func filterStats(in []storage.TagStat, m Matcher) []storage.TagStat {
	out := make([]storage.TagStat, 0, len(in))
	for _, stat := range in {
		if m.Match(stat.Tag.Name) {
			out = append(out, stat)
		}
	}
	return out
}

func cloneStats(stats []storage.TagStat) []storage.TagStat {
	out := make([]storage.TagStat, len(stats))
	copy(out, stats)
	return out
}
