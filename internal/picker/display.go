package picker

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"
)

// ansiRE matches CSI, OSC and two-byte ESC sequences.
var ansiRE = regexp.MustCompile(`\x1b(?:` +
	`\[[0-9;]*[A-Za-z]` +
	`|` +
	`\].*?(?:\x1b\\|\x07)` +
	`|` +
	`[()#*+\-./][A-Za-z0-9]` +
	`)`)

// SanitizeName makes a tag name safe to draw in a single terminal row.
// Escape sequences are dropped, invalid UTF-8 becomes U+FFFD and the
// remaining control characters become spaces.
func SanitizeName(name string) string {
	name = ansiRE.ReplaceAllString(name, "")
	if !utf8.ValidString(name) {
		name = strings.ToValidUTF8(name, "�")
	}
	return strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return ' '
		}
		return r
	}, name)
}

// MiddleTruncate shortens s to maxWidth display columns by replacing its
// middle with an ellipsis. Wide runes (CJK, emoji) count as two columns.
// Below three columns there is no room for an ellipsis and s is cut on the
// right.
func MiddleTruncate(s string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 3 {
		return headWithin(s, maxWidth)
	}

	const ellipsis = "…"
	room := maxWidth - 1
	return headWithin(s, (room+1)/2) + ellipsis + tailWithin(s, room/2)
}

// headWithin returns the longest prefix of s at most width columns wide.
func headWithin(s string, width int) string {
	w := 0
	for i, r := range s {
		w += runewidth.RuneWidth(r)
		if w > width {
			return s[:i]
		}
	}
	return s
}

// tailWithin returns the longest suffix of s at most width columns wide.
func tailWithin(s string, width int) string {
	w := 0
	start := len(s)
	for start > 0 {
		r, size := utf8.DecodeLastRuneInString(s[:start])
		rw := runewidth.RuneWidth(r)
		if w+rw > width {
			break
		}
		w += rw
		start -= size
	}
	return s[start:]
}

// Row lays out a tag name and its usage count in width columns: the name
// on the left, truncated when needed, and the count right-aligned.
func Row(name string, count, width int) string {
	countText := strconv.Itoa(count)
	nameWidth := width - len(countText) - 1
	if nameWidth < 1 {
		return MiddleTruncate(name, width)
	}
	name = MiddleTruncate(name, nameWidth)
	gap := width - runewidth.StringWidth(name) - len(countText)
	return name + strings.Repeat(" ", gap) + countText
}
