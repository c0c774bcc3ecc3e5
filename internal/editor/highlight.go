package editor

// Range is a selection shown to the user.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Highlight blinks a pending span by alternating between the full range and
// a collapsed caret at its end. It only describes what to show and never
// touches a Buffer.
type Highlight struct {
	span Range
	full bool
}

// NewHighlight starts a blink over [start, end). The first Next shows the
// collapsed caret.
func NewHighlight(start, end int) *Highlight {
	return &Highlight{span: Range{Start: start, End: end}, full: true}
}

// Next advances the blink and returns the range to display.
func (h *Highlight) Next() Range {
	h.full = !h.full
	if h.full {
		return h.span
	}
	return Range{Start: h.span.End, End: h.span.End}
}
