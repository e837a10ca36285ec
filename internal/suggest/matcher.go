package suggest

import "strings"

// Matcher tests tag names against one compiled query.
type Matcher struct {
	query  string
	tokens []string
}

// NewMatcher normalizes and tokenizes raw.
func NewMatcher(raw string) Matcher {
	query := NormalizeQuery(raw)
	return Matcher{query: query, tokens: Tokens(query)}
}

// Query returns the normalized query.
func (m Matcher) Query() string {
	return m.query
}

// Match reports whether name contains the tokens in order without overlap.
// Each token is taken at its first occurrence at or after the end of the
// previous token's match. The empty query matches every name.
func (m Matcher) Match(name string) bool {
	name = strings.ToLower(name)
	pos := 0
	for _, tok := range m.tokens {
		if pos >= len(name) {
			return false
		}
		idx := strings.Index(name[pos:], tok)
		if idx < 0 {
			return false
		}
		pos += idx + len(tok)
	}
	return true
}
