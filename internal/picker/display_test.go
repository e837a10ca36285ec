package picker

import (
	"testing"

	"github.com/mattn/go-runewidth"
	"github.com/stretchr/testify/assert"
)

func TestSanitizeName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "deep work", "deep work"},
		{"SGR", "\x1b[31mred\x1b[0m", "red"},
		{"OSC title", "\x1b]0;title\x07tag", "tag"},
		{"charset", "\x1b(Btag", "tag"},
		{"control chars", "a\tb\nc", "a b c"},
		{"invalid utf8", "ab\xffcd", "ab�cd"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeName(tt.in))
		})
	}
}

func TestMiddleTruncate(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		width int
		want  string
	}{
		{"fits", "short", 10, "short"},
		{"exact", "exact", 5, "exact"},
		{"ascii", "abcdefghij", 7, "abc…hij"},
		{"even width", "abcdefghij", 6, "abc…ij"},
		{"tiny", "abcdef", 2, "ab"},
		{"zero", "abc", 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MiddleTruncate(tt.in, tt.width))
		})
	}
}

func TestMiddleTruncate_WideRunes(t *testing.T) {
	for _, in := range []string{"日本語のタグ名前です", "🎉🎉🎉🎉🎉🎉🎉🎉"} {
		got := MiddleTruncate(in, 9)
		assert.LessOrEqual(t, runewidth.StringWidth(got), 9, "input %q", in)
		assert.Contains(t, got, "…")
	}
}

func TestRow(t *testing.T) {
	row := Row("work", 12, 20)
	assert.Equal(t, 20, runewidth.StringWidth(row))
	assert.Equal(t, "work              12", row)

	long := Row("a-very-long-tag-name-indeed", 3, 12)
	assert.Equal(t, 12, runewidth.StringWidth(long))
	assert.Contains(t, long, "…")
	assert.Equal(t, byte('3'), long[len(long)-1])

	// No room for the count.
	assert.Equal(t, "ab", Row("abcdef", 100, 2))
}
