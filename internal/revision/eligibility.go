// Package revision implements the automatic copy-editing pipeline: span
// eligibility, the completion-service client and the splice that merges a
// revised span back into a live buffer.
package revision

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultMinSpanLength is the minimum trimmed span length, in runes.
const DefaultMinSpanLength = 20

// Candidate returns the unrevised tail of content starting at boundary.
// boundary is clamped into range.
func Candidate(content string, boundary int) string {
	return content[clamp(content, boundary):]
}

// Eligible reports whether span is ready for revision: its trimmed form has at
// least minLen runes and it ends a sentence or a paragraph. A sentence ends
// in '.', '?' or '!'; a paragraph ends when the trailing whitespace holds a
// newline. Whitespace is any Unicode space, as in strings.TrimSpace.
func Eligible(span string, minLen int) bool {
	trimmed := strings.TrimSpace(span)
	if trimmed == "" || utf8.RuneCountInString(trimmed) < minLen {
		return false
	}
	body := strings.TrimRightFunc(span, unicode.IsSpace)
	if strings.ContainsRune(span[len(body):], '\n') {
		return true
	}
	switch body[len(body)-1] {
	case '.', '?', '!':
		return true
	}
	return false
}

// clamp bounds i to [0, len(s)] and moves it back onto a rune boundary.
func clamp(s string, i int) int {
	if i <= 0 {
		return 0
	}
	if i >= len(s) {
		return len(s)
	}
	for i > 0 && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}
