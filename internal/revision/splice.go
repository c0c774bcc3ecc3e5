package revision

import (
	"errors"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// ErrDiverged is returned when the live buffer no longer starts with the text
// captured for a job, so the revised span has nowhere safe to go.
var ErrDiverged = errors.New("revision: content diverged from captured snapshot")

var terminalRunRe = regexp.MustCompile(`[.?!]+$`)

// Job is a snapshot of one revision request. It exists from the moment a span
// is captured until its result is spliced or discarded.
type Job struct {
	Prefix string // content before the boundary
	Span   string // content from the boundary to the end
	Lead   string // leading whitespace of Span
	Body   string // Span without surrounding whitespace; this is what is sent
	Tail   string // trailing whitespace of Span
}

// Capture snapshots content at boundary.
func Capture(content string, boundary int) Job {
	b := clamp(content, boundary)
	span := content[b:]
	body := strings.TrimLeftFunc(span, unicode.IsSpace)
	lead := span[:len(span)-len(body)]
	trimmed := strings.TrimRightFunc(body, unicode.IsSpace)
	return Job{
		Prefix: content[:b],
		Span:   span,
		Lead:   lead,
		Body:   trimmed,
		Tail:   body[len(trimmed):],
	}
}

// CapturedLength is the length of the content when the job was captured.
func (j Job) CapturedLength() int {
	return len(j.Prefix) + len(j.Span)
}

// Context returns up to n trailing runes of the prefix, for use as model context.
func (j Job) Context(n int) string {
	if n <= 0 || j.Prefix == "" {
		return ""
	}
	if utf8.RuneCountInString(j.Prefix) <= n {
		return j.Prefix
	}
	r := []rune(j.Prefix)
	return string(r[len(r)-n:])
}

// Spliced is the outcome of merging a revision into the live buffer.
type Spliced struct {
	Content  string
	Boundary int // new lastEditedIndex
}

// Splice merges revised into current. Text appended to current after the
// job was captured is kept verbatim after the revised span; the new boundary
// sits right after the revised text so that text becomes the next candidate.
//
// The job's leading and trailing whitespace are reattached as captured. A
// terminal punctuation run the model dropped is restored, and the first letter
// is upper-cased when the prefix ends a sentence.
func Splice(current string, job Job, revised string) (Spliced, error) {
	captured := job.Prefix + job.Span
	if !strings.HasPrefix(current, captured) {
		return Spliced{}, ErrDiverged
	}
	trailingNew := current[len(captured):]

	text := strings.TrimSpace(revised)
	if text == "" {
		text = job.Body
	}
	if punct := terminalRunRe.FindString(job.Body); punct != "" && !terminalRunRe.MatchString(text) {
		text += punct
	}
	if endsSentence(job.Prefix) {
		text = capitalize(text)
	}

	head := job.Prefix + job.Lead + text
	return Spliced{
		Content:  head + job.Tail + trailingNew,
		Boundary: len(head),
	}, nil
}

func endsSentence(prefix string) bool {
	if prefix == "" {
		return false
	}
	switch prefix[len(prefix)-1] {
	case '.', '!', '?':
		return true
	}
	return false
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || !unicode.IsLower(r) {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
