package session

import (
	"log/slog"
	"unicode/utf8"

	"github.com/starford/take1/internal/editor"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/sse"
	"github.com/starford/take1/internal/storage"
)

// InputResult is the outcome of one keystroke.
type InputResult struct {
	Verdict string `json:"verdict"`
	Copied  string `json:"copied,omitempty"`
	State   State  `json:"state"`
}

// State returns a snapshot of the editor.
func (s *Session) State() (State, error) {
	var st State
	err := s.do(func() { st = s.snapshot() })
	return st, err
}

// SetContent replaces the content of the active note, as a text field
// change event would. The caret moves to the end and the boundary is clamped
// to the new length.
func (s *Session) SetContent(content string) (State, error) {
	var st State
	err := s.do(func() {
		if content != s.note.Content {
			s.buf.SetContent(content)
			s.buf.Select(len(content), len(content))
			s.setContent(content)
		}
		st = s.snapshot()
	})
	return st, err
}

// SetTitle replaces the title of the active note.
func (s *Session) SetTitle(title string) (State, error) {
	var st State
	err := s.do(func() {
		if title != s.note.Title {
			s.note.Title = title
			s.scheduleAutosave()
		}
		st = s.snapshot()
	})
	return st, err
}

// Select places the selection in the content field.
func (s *Session) Select(anchor, caret int) (State, error) {
	var st State
	err := s.do(func() {
		s.focus = FocusContent
		s.buf.Select(anchor, caret)
		st = s.snapshot()
	})
	return st, err
}

// Input delivers a keystroke to the focused field.
func (s *Session) Input(key editor.Key) (InputResult, error) {
	var res InputResult
	err := s.do(func() {
		if s.focus == FocusTitle {
			res.Verdict = s.inputTitle(key).String()
			res.State = s.snapshot()
			return
		}

		start, _ := s.buf.Selection()
		verdict := editor.Check(s.buf.Content, start, key)
		res.Verdict = verdict.String()
		switch verdict {
		case editor.FocusTitle:
			s.focus = FocusTitle
		case editor.Allow:
			out := s.buf.Apply(key)
			res.Copied = out.Copied
			if out.Changed {
				s.setContent(s.buf.Content)
			}
		}
		res.State = s.snapshot()
	})
	return res, err
}

// inputTitle edits the single-line title. Enter moves focus to the content.
func (s *Session) inputTitle(key editor.Key) editor.Verdict {
	switch {
	case key.Name == "Enter" || key.Name == "ArrowDown" || key.Name == "Tab":
		s.focus = FocusContent
	case key.Name == "Backspace":
		if s.note.Title == "" {
			return editor.Suppress
		}
		_, size := utf8.DecodeLastRuneInString(s.note.Title)
		s.note.Title = s.note.Title[:len(s.note.Title)-size]
		s.scheduleAutosave()
	case (key.Ctrl || key.Meta) && key.Name == "v":
		s.note.Title += key.Text
		s.scheduleAutosave()
	case key.Printable():
		s.note.Title += key.Name
		s.scheduleAutosave()
	}
	return editor.Allow
}

func (s *Session) setContent(content string) {
	s.note.Content = content
	if s.note.LastEditedIndex > len(content) {
		s.note.LastEditedIndex = len(content)
	}
	s.scheduleAutosave()
	s.rearm()
}

// NewNote saves the active note and starts a fresh one.
func (s *Session) NewNote() (State, error) {
	var st State
	err := s.do(func() {
		s.activate(models.NewNote(), "note switched")
		s.focus = FocusTitle
		st = s.snapshot()
	})
	return st, err
}

// Open saves the active note and activates the stored note with id.
func (s *Session) Open(id string) (State, error) {
	var st State
	var openErr error
	err := s.do(func() {
		if id == s.note.ID && id != "" {
			st = s.snapshot()
			return
		}
		n, err := s.store.Get(id)
		if err != nil {
			openErr = err
			return
		}
		s.activate(n, "note switched")
		s.focus = FocusContent
		st = s.snapshot()
	})
	if err != nil {
		return st, err
	}
	return st, openErr
}

// activate switches the active note. Any revision job of the previous note
// is cancelled before its pending changes are written.
func (s *Session) activate(n models.Note, reason string) {
	s.cancelJob(reason)
	s.flush()
	s.note = n
	s.buf = editor.NewBuffer(n.Content)
	s.dirty = false
	s.rearm()
	s.publish(sse.TypeEditorChanged, map[string]string{"id": n.ID})
}

// DeleteNote removes a note. Deleting the active note activates the first
// remaining note, or a fresh one.
func (s *Session) DeleteNote(id string) (State, error) {
	var st State
	var delErr error
	err := s.do(func() {
		if delErr = s.store.Delete(id); delErr != nil {
			return
		}
		if s.pub != nil {
			s.pub.PublishNoteEvent("deleted", id)
		}
		if id == s.note.ID {
			s.cancelJob("note deleted")
			s.stopAutosave()
			s.dirty = false
			next, ok := s.store.First()
			if !ok {
				next = models.NewNote()
			}
			s.activate(next, "note deleted")
		}
		st = s.snapshot()
	})
	if err != nil {
		return st, err
	}
	return st, delErr
}

// Settings returns the settings the session is running with.
func (s *Session) Settings() (models.Settings, error) {
	var out models.Settings
	err := s.do(func() { out = s.settings })
	return out, err
}

// UpdateSettings persists new settings. Any revision in flight is cancelled
// and the trigger is re-evaluated.
func (s *Session) UpdateSettings(settings models.Settings) error {
	var setErr error
	err := s.do(func() {
		if setErr = s.store.SetSettings(settings); setErr != nil {
			return
		}
		s.applySettings(settings)
	})
	if err != nil {
		return err
	}
	return setErr
}

func (s *Session) applySettings(settings models.Settings) {
	s.settings = settings
	s.cancelJob("settings changed")
	s.rearm()
}

// StorageChanged is called after the store reloaded key because another
// process modified it.
func (s *Session) StorageChanged(key string) error {
	return s.do(func() {
		s.logger.Info("session: storage changed externally", slog.String("key", key))
		if key == storage.KeySettings {
			s.applySettings(s.store.Settings())
		}
		s.publish(sse.TypeStorageChanged, map[string]string{"key": key})
	})
}
