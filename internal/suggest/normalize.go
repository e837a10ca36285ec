// Package suggest provides tag autocomplete matching.
//
// A query is lower-cased, trimmed and split on runs of spaces into tokens.
// A tag matches when its name contains every token, in query order, with
// each token found at or after the end of the previous one.
package suggest

import (
	"strings"
)

// NormalizeQuery lower-cases and trims a raw query.
func NormalizeQuery(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// Tokens splits a normalized query on runs of spaces.
// An empty query has no tokens.
// Examples:
//   - "proj rel" -> ["proj", "rel"]
//   - "a   b" -> ["a", "b"]
//   - "" -> []
func Tokens(query string) []string {
	return strings.FieldsFunc(query, func(r rune) bool { return r == ' ' })
}
