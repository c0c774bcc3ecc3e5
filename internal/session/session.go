// Package session owns the live editing state of the daemon: the active note,
// its caret buffer, the revision trigger and the autosave timer.
//
// A Session runs a single goroutine that owns every mutable field. Public
// methods post closures to it and wait for them to finish, so the revision
// job, the timers and keystroke handling never race.
package session

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/starford/take1/internal/apperr"
	"github.com/starford/take1/internal/editor"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/revision"
	"github.com/starford/take1/internal/sse"
)

// Store is the note collection a session reads and writes.
type Store interface {
	Get(id string) (models.Note, error)
	First() (models.Note, bool)
	Save(n models.Note) (models.Note, bool, error)
	Delete(id string) error
	Settings() models.Settings
	SetSettings(s models.Settings) error
}

// Publisher receives session events.
type Publisher interface {
	Publish(event sse.Event)
	PublishNoteEvent(kind, id string)
}

// Options tunes the session timers and the revision trigger.
type Options struct {
	RevisionDebounce  time.Duration
	AutosaveDelay     time.Duration
	HighlightInterval time.Duration
	MinSpanLength     int
	ContextChars      int
}

// DefaultOptions returns the stock timings.
func DefaultOptions() Options {
	return Options{
		RevisionDebounce:  3 * time.Second,
		AutosaveDelay:     time.Second,
		HighlightInterval: 500 * time.Millisecond,
		MinSpanLength:     revision.DefaultMinSpanLength,
	}
}

// Focus is the input field receiving keystrokes.
type Focus string

const (
	FocusTitle   Focus = "title"
	FocusContent Focus = "content"
)

// State is a snapshot of the editor.
type State struct {
	Note      models.Note   `json:"note"`
	Selection editor.Range  `json:"selection"`
	Focus     Focus         `json:"focus"`
	Pending   *editor.Range `json:"pending,omitempty"`
	Dirty     bool          `json:"dirty"`
}

type pendingJob struct {
	id     uint64
	job    revision.Job
	span   editor.Range
	cancel context.CancelFunc
}

type jobResult struct {
	id      uint64
	revised string
	err     error
}

// Session is one editor attached to a note store.
type Session struct {
	store   Store
	reviser revision.Reviser
	pub     Publisher
	logger  *slog.Logger
	opts    Options

	cmdCh    chan func()
	resultCh chan jobResult
	stopCh   chan struct{}
	stopped  chan struct{}
	closed   atomic.Bool

	// Owned by the loop goroutine.
	note      models.Note
	buf       *editor.Buffer
	focus     Focus
	settings  models.Settings
	dirty     bool
	job       *pendingJob
	lastJobID uint64
	highlight *editor.Highlight

	debounce   *time.Timer
	debounceCh <-chan time.Time
	autosave   *time.Timer
	autosaveCh <-chan time.Time
	blink      *time.Ticker
	blinkCh    <-chan time.Time
}

// New starts a session on a fresh, unsaved note.
func New(store Store, reviser revision.Reviser, pub Publisher, logger *slog.Logger, opts Options) *Session {
	def := DefaultOptions()
	if opts.RevisionDebounce <= 0 {
		opts.RevisionDebounce = def.RevisionDebounce
	}
	if opts.AutosaveDelay <= 0 {
		opts.AutosaveDelay = def.AutosaveDelay
	}
	if opts.HighlightInterval <= 0 {
		opts.HighlightInterval = def.HighlightInterval
	}
	if opts.MinSpanLength <= 0 {
		opts.MinSpanLength = def.MinSpanLength
	}

	note := models.NewNote()
	s := &Session{
		store:    store,
		reviser:  reviser,
		pub:      pub,
		logger:   logger,
		opts:     opts,
		cmdCh:    make(chan func()),
		resultCh: make(chan jobResult),
		stopCh:   make(chan struct{}),
		stopped:  make(chan struct{}),
		note:     note,
		buf:      editor.NewBuffer(note.Content),
		focus:    FocusTitle,
		settings: store.Settings(),
	}

	go s.run()
	return s
}

func (s *Session) run() {
	defer close(s.stopped)

	for {
		select {
		case <-s.stopCh:
			s.teardown()
			return

		case fn := <-s.cmdCh:
			fn()

		case <-s.debounceCh:
			s.debounce, s.debounceCh = nil, nil
			s.fire()

		case <-s.autosaveCh:
			s.autosave, s.autosaveCh = nil, nil
			s.flush()

		case <-s.blinkCh:
			if s.highlight != nil {
				s.publish(sse.TypeEditorHighlight, s.highlight.Next())
			}

		case res := <-s.resultCh:
			s.complete(res)
		}
	}
}

// do runs fn on the loop goroutine and waits for it.
func (s *Session) do(fn func()) error {
	if s.closed.Load() {
		return apperr.ErrClosed
	}
	done := make(chan struct{})
	select {
	case s.cmdCh <- func() { defer close(done); fn() }:
	case <-s.stopped:
		return apperr.ErrClosed
	}
	<-done
	return nil
}

// Close cancels any revision in flight, stops all timers, writes a pending
// autosave and waits for the loop to exit. It is safe to call more than once.
func (s *Session) Close() {
	if s.closed.CompareAndSwap(false, true) {
		close(s.stopCh)
	}
	<-s.stopped
}

func (s *Session) teardown() {
	s.cancelJob("closed")
	s.stopDebounce()
	s.flush()
}

func (s *Session) snapshot() State {
	start, end := s.buf.Selection()
	st := State{
		Note:      s.note,
		Selection: editor.Range{Start: start, End: end},
		Focus:     s.focus,
		Dirty:     s.dirty,
	}
	if s.job != nil {
		span := s.job.span
		st.Pending = &span
	}
	return st
}

func (s *Session) publish(typ string, data any) {
	if s.pub == nil {
		return
	}
	s.pub.Publish(sse.Event{Type: typ, Data: data})
}

// --- timers ---

func (s *Session) stopDebounce() {
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce, s.debounceCh = nil, nil
}

// rearm restarts the revision debounce if the trigger is armed.
func (s *Session) rearm() {
	s.stopDebounce()
	if !s.armed() {
		return
	}
	s.debounce = time.NewTimer(s.opts.RevisionDebounce)
	s.debounceCh = s.debounce.C
}

func (s *Session) armed() bool {
	return s.settings.RevisionReady() &&
		s.job == nil &&
		len(s.note.Content) > 0 &&
		s.note.LastEditedIndex < len(s.note.Content)
}

func (s *Session) scheduleAutosave() {
	s.dirty = true
	if s.autosave != nil {
		s.autosave.Stop()
	}
	s.autosave = time.NewTimer(s.opts.AutosaveDelay)
	s.autosaveCh = s.autosave.C
}

func (s *Session) stopAutosave() {
	if s.autosave != nil {
		s.autosave.Stop()
	}
	s.autosave, s.autosaveCh = nil, nil
}

func (s *Session) startBlink(span editor.Range) {
	s.stopBlink()
	s.highlight = editor.NewHighlight(span.Start, span.End)
	s.blink = time.NewTicker(s.opts.HighlightInterval)
	s.blinkCh = s.blink.C
}

func (s *Session) stopBlink() {
	if s.blink != nil {
		s.blink.Stop()
	}
	s.blink, s.blinkCh, s.highlight = nil, nil, nil
}

// flush writes the active note if it changed since the last save.
func (s *Session) flush() {
	s.stopAutosave()
	if !s.dirty {
		return
	}
	s.dirty = false

	stored, saved, err := s.store.Save(s.note)
	if err != nil {
		s.logger.Error("session: autosave failed", slog.String("id", s.note.ID), slog.String("error", err.Error()))
		return
	}
	if !saved {
		return
	}
	s.note.ID = stored.ID
	s.note.UpdatedAt = stored.UpdatedAt
	s.logger.Debug("session: note saved", slog.String("id", stored.ID))
	if s.pub != nil {
		s.pub.PublishNoteEvent("saved", stored.ID)
	}
}
