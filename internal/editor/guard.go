// Package editor holds the keystroke-level rules of the content buffer: the
// edit guard that keeps finalized text immutable, the caret buffer that
// applies allowed keys, and the blinking highlight of a pending span.
package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Key is a single keystroke. Name follows DOM KeyboardEvent.key values
// ("a", "Enter", "Backspace", "ArrowLeft", ...). Text carries the clipboard
// contents of a paste.
type Key struct {
	Name  string `json:"key"`
	Text  string `json:"text,omitempty"`
	Ctrl  bool   `json:"ctrl,omitempty"`
	Alt   bool   `json:"alt,omitempty"`
	Meta  bool   `json:"meta,omitempty"`
	Shift bool   `json:"shift,omitempty"`
}

// Verdict is the guard's decision for a keystroke.
type Verdict int

const (
	Allow Verdict = iota
	Suppress
	FocusTitle
)

func (v Verdict) String() string {
	switch v {
	case Allow:
		return "allow"
	case Suppress:
		return "suppress"
	case FocusTitle:
		return "focus_title"
	}
	return "unknown"
}

var navigationKeys = map[string]bool{
	"ArrowLeft":  true,
	"ArrowRight": true,
	"ArrowUp":    true,
	"ArrowDown":  true,
	"Home":       true,
	"End":        true,
	"PageUp":     true,
	"PageDown":   true,
}

var modifiedNavigationKeys = map[string]bool{
	"ArrowLeft":  true,
	"ArrowRight": true,
	"ArrowUp":    true,
	"ArrowDown":  true,
	"Home":       true,
	"End":        true,
}

// ctrl-only caret motions and select-all.
var ctrlMotionKeys = map[string]bool{
	"p": true,
	"n": true,
	"b": true,
	"f": true,
	"a": true,
	"e": true,
}

// LastNonSpace returns the offset just past the last non-whitespace rune of
// content, i.e. the length of content with trailing whitespace removed.
func LastNonSpace(content string) int {
	return len(strings.TrimRightFunc(content, unicode.IsSpace))
}

// Check decides whether key may reach the buffer when the selection starts
// at selStart. Text before the last non-whitespace rune cannot be changed;
// navigation and clipboard/selection shortcuts always pass.
func Check(content string, selStart int, key Key) Verdict {
	if key.Name == "Backspace" && content == "" {
		return FocusTitle
	}
	if allowListed(key) {
		return Allow
	}

	last := LastNonSpace(content)
	switch key.Name {
	case "Backspace", "Delete":
		if selStart <= last {
			return Suppress
		}
	default:
		if selStart < last {
			return Suppress
		}
	}
	return Allow
}

func allowListed(k Key) bool {
	if navigationKeys[k.Name] {
		return true
	}
	if (k.Ctrl || k.Alt || k.Meta) && modifiedNavigationKeys[k.Name] {
		return true
	}
	if (k.Ctrl || k.Meta) && (k.Name == "PageUp" || k.Name == "PageDown") {
		return true
	}
	if (k.Ctrl || k.Meta) && k.Name == "c" {
		return true
	}
	return k.Ctrl && ctrlMotionKeys[k.Name]
}

// Printable reports whether k inserts its own name as text.
func (k Key) Printable() bool {
	if k.Ctrl || k.Meta || k.Name == "" {
		return false
	}
	return utf8.RuneCountInString(k.Name) == 1
}
