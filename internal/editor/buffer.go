package editor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Buffer is the content text plus a selection. Anchor is where the selection
// started, Caret is where it ends and where the cursor blinks; they are equal
// when nothing is selected. Both are byte offsets on rune boundaries.
type Buffer struct {
	Content string
	Anchor  int
	Caret   int
}

// NewBuffer returns a buffer with the caret at the end of content.
func NewBuffer(content string) *Buffer {
	return &Buffer{Content: content, Anchor: len(content), Caret: len(content)}
}

// Selection returns the ordered selection bounds.
func (b *Buffer) Selection() (start, end int) {
	if b.Anchor <= b.Caret {
		return b.Anchor, b.Caret
	}
	return b.Caret, b.Anchor
}

// Select sets the selection, clamping both ends into the content.
func (b *Buffer) Select(anchor, caret int) {
	b.Anchor = snap(b.Content, anchor)
	b.Caret = snap(b.Content, caret)
}

// SetContent replaces the text, keeping the selection in range.
func (b *Buffer) SetContent(content string) {
	b.Content = content
	b.Select(b.Anchor, b.Caret)
}

// Result reports what a keystroke did.
type Result struct {
	Changed bool   // content was modified
	Copied  string // text placed on the clipboard
}

// Apply performs key. It does not consult the guard; callers run Check first.
func (b *Buffer) Apply(k Key) Result {
	switch {
	case (k.Ctrl || k.Meta) && k.Name == "c":
		start, end := b.Selection()
		return Result{Copied: b.Content[start:end]}
	case (k.Ctrl || k.Meta) && k.Name == "v":
		return b.insert(k.Text)
	case k.Ctrl && k.Name == "a":
		b.Anchor, b.Caret = 0, len(b.Content)
		return Result{}
	case k.Ctrl && ctrlMotionKeys[k.Name]:
		b.moveTo(b.emacsMotion(k.Name), k.Shift)
		return Result{}
	case k.Name == "Enter":
		return b.insert("\n")
	case k.Name == "Tab":
		return b.insert("\t")
	case k.Name == "Backspace":
		return b.deleteBackward()
	case k.Name == "Delete":
		return b.deleteForward()
	case navigationKeys[k.Name]:
		b.moveTo(b.navigate(k), k.Shift)
		return Result{}
	case k.Printable():
		return b.insert(k.Name)
	}
	return Result{}
}

func (b *Buffer) insert(text string) Result {
	if text == "" {
		return Result{}
	}
	start, end := b.Selection()
	b.Content = b.Content[:start] + text + b.Content[end:]
	b.Anchor = start + len(text)
	b.Caret = b.Anchor
	return Result{Changed: true}
}

func (b *Buffer) deleteBackward() Result {
	start, end := b.Selection()
	if start == end {
		if start == 0 {
			return Result{}
		}
		_, size := utf8.DecodeLastRuneInString(b.Content[:start])
		start -= size
	}
	return b.cut(start, end)
}

func (b *Buffer) deleteForward() Result {
	start, end := b.Selection()
	if start == end {
		if end == len(b.Content) {
			return Result{}
		}
		_, size := utf8.DecodeRuneInString(b.Content[end:])
		end += size
	}
	return b.cut(start, end)
}

func (b *Buffer) cut(start, end int) Result {
	b.Content = b.Content[:start] + b.Content[end:]
	b.Anchor, b.Caret = start, start
	return Result{Changed: true}
}

func (b *Buffer) moveTo(pos int, extend bool) {
	b.Caret = pos
	if !extend {
		b.Anchor = pos
	}
}

func (b *Buffer) navigate(k Key) int {
	switch {
	case k.Meta && k.Name == "ArrowLeft":
		return b.lineStart(b.Caret)
	case k.Meta && k.Name == "ArrowRight":
		return b.lineEnd(b.Caret)
	case (k.Meta || k.Ctrl) && (k.Name == "ArrowUp" || k.Name == "Home" || k.Name == "PageUp"):
		return 0
	case (k.Meta || k.Ctrl) && (k.Name == "ArrowDown" || k.Name == "End" || k.Name == "PageDown"):
		return len(b.Content)
	case (k.Ctrl || k.Alt) && k.Name == "ArrowLeft":
		return b.wordLeft(b.Caret)
	case (k.Ctrl || k.Alt) && k.Name == "ArrowRight":
		return b.wordRight(b.Caret)
	}

	switch k.Name {
	case "ArrowLeft":
		if start, end := b.Selection(); start != end && !k.Shift {
			return start
		}
		return prevRune(b.Content, b.Caret)
	case "ArrowRight":
		if start, end := b.Selection(); start != end && !k.Shift {
			return end
		}
		return nextRune(b.Content, b.Caret)
	case "ArrowUp":
		return b.lineUp(b.Caret)
	case "ArrowDown":
		return b.lineDown(b.Caret)
	case "Home":
		return b.lineStart(b.Caret)
	case "End":
		return b.lineEnd(b.Caret)
	case "PageUp":
		return 0
	case "PageDown":
		return len(b.Content)
	}
	return b.Caret
}

func (b *Buffer) emacsMotion(name string) int {
	switch name {
	case "b":
		return prevRune(b.Content, b.Caret)
	case "f":
		return nextRune(b.Content, b.Caret)
	case "p":
		return b.lineUp(b.Caret)
	case "n":
		return b.lineDown(b.Caret)
	case "e":
		return b.lineEnd(b.Caret)
	}
	return b.Caret
}

func (b *Buffer) lineStart(pos int) int {
	return strings.LastIndexByte(b.Content[:pos], '\n') + 1
}

func (b *Buffer) lineEnd(pos int) int {
	if i := strings.IndexByte(b.Content[pos:], '\n'); i >= 0 {
		return pos + i
	}
	return len(b.Content)
}

func (b *Buffer) lineUp(pos int) int {
	start := b.lineStart(pos)
	if start == 0 {
		return 0
	}
	col := utf8.RuneCountInString(b.Content[start:pos])
	prevStart := b.lineStart(start - 1)
	return advance(b.Content, prevStart, start-1, col)
}

func (b *Buffer) lineDown(pos int) int {
	end := b.lineEnd(pos)
	if end == len(b.Content) {
		return end
	}
	col := utf8.RuneCountInString(b.Content[b.lineStart(pos):pos])
	nextStart := end + 1
	return advance(b.Content, nextStart, b.lineEnd(nextStart), col)
}

func (b *Buffer) wordLeft(pos int) int {
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(b.Content[:pos])
		if !unicode.IsSpace(r) {
			break
		}
		pos -= size
	}
	for pos > 0 {
		r, size := utf8.DecodeLastRuneInString(b.Content[:pos])
		if unicode.IsSpace(r) {
			break
		}
		pos -= size
	}
	return pos
}

func (b *Buffer) wordRight(pos int) int {
	for pos < len(b.Content) {
		r, size := utf8.DecodeRuneInString(b.Content[pos:])
		if !unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	for pos < len(b.Content) {
		r, size := utf8.DecodeRuneInString(b.Content[pos:])
		if unicode.IsSpace(r) {
			break
		}
		pos += size
	}
	return pos
}

// advance moves up to n runes forward from pos without passing limit.
func advance(s string, pos, limit, n int) int {
	for ; n > 0 && pos < limit; n-- {
		_, size := utf8.DecodeRuneInString(s[pos:])
		pos += size
	}
	return pos
}

func prevRune(s string, pos int) int {
	if pos == 0 {
		return 0
	}
	_, size := utf8.DecodeLastRuneInString(s[:pos])
	return pos - size
}

func nextRune(s string, pos int) int {
	if pos >= len(s) {
		return len(s)
	}
	_, size := utf8.DecodeRuneInString(s[pos:])
	return pos + size
}

// snap bounds i to [0, len(s)] and moves it back onto a rune boundary.
func snap(s string, i int) int {
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
