package suggest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeQuery(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "already normal", input: "work", expected: "work"},
		{name: "mixed case", input: "WoRk", expected: "work"},
		{name: "surrounding space", input: "  deep focus  ", expected: "deep focus"},
		{name: "inner runs kept", input: "a   b", expected: "a   b"},
		{name: "empty", input: "", expected: ""},
		{name: "whitespace only", input: " \t ", expected: ""},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NormalizeQuery(tt.input))
		})
	}
}

func TestTokens(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{"proj", "rel"}, Tokens("proj rel"))
	assert.Equal(t, []string{"a", "b"}, Tokens("a   b"))
	assert.Empty(t, Tokens(""))
	// Only spaces separate tokens.
	assert.Equal(t, []string{"a\tb"}, Tokens("a\tb"))
}

func TestMatcher_OrderedTokens(t *testing.T) {
	t.Parallel()

	const name = "project-alpha-release"

	tests := []struct {
		query string
		want  bool
	}{
		{"proj rel", true},
		{"rel proj", false},
		{"alpha alpha", false},
		{"", true},
		{"   ", true},
		{"PROJ", true},
		{"project-alpha-release", true},
		{"project-alpha-release-x", false},
		{"a a a", true},
		{"e e e e e", false},
		{"t-a", true},
		{"ct al se", true},
		{"se ct", false},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.query, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, NewMatcher(tt.query).Match(name))
		})
	}
}

func TestMatcher_TokensDoNotOverlap(t *testing.T) {
	t.Parallel()

	// "aa" then "a" needs three a's.
	m := NewMatcher("aa a")
	assert.False(t, m.Match("aa"))
	assert.True(t, m.Match("aaa"))
}

func TestMatcher_NameShorterThanNextStart(t *testing.T) {
	t.Parallel()

	m := NewMatcher("work x")
	assert.False(t, m.Match("work"))
	assert.True(t, m.Match("workx"))
}

func TestMatcher_Query(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "deep focus", NewMatcher("  Deep Focus ").Query())
}

// FuzzMatcher checks Match against a straightforward reference scan.
func FuzzMatcher(f *testing.F) {
	if testing.Short() {
		f.Skip("skipping fuzz test in short mode")
	}
	f.Add("proj rel", "project-alpha-release")
	f.Add("alpha alpha", "project-alpha-release")
	f.Add("", "")
	f.Add("a a", "a")
	f.Add("  ", "x")

	f.Fuzz(func(t *testing.T, query, name string) {
		m := NewMatcher(query)
		got := m.Match(name)

		lowered := strings.ToLower(name)
		want := true
		rest := lowered
		for _, tok := range Tokens(NormalizeQuery(query)) {
			i := strings.Index(rest, tok)
			if i < 0 {
				want = false
				break
			}
			rest = rest[i+len(tok):]
		}
		if got != want {
			t.Errorf("Match(%q, %q) = %v, want %v", query, name, got, want)
		}
	})
}
