// Package notestore keeps the in-memory note collection and settings,
// backed by a storage.Gateway.
package notestore

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/take1/internal/apperr"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/storage"
)

// Store owns the note collection and settings. It is safe for concurrent use.
type Store struct {
	gw       storage.Gateway
	logger   *slog.Logger
	defaults models.Settings

	mu       sync.RWMutex
	notes    []models.Note
	settings models.Settings

	now func() time.Time
}

// New creates a store over gw. defaults are used when no settings are stored
// or the stored value cannot be decoded.
func New(gw storage.Gateway, logger *slog.Logger, defaults models.Settings) *Store {
	return &Store{
		gw:       gw,
		logger:   logger,
		defaults: defaults,
		settings: defaults,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Load reads notes and settings from the gateway.
func (s *Store) Load() error {
	if err := s.loadNotes(); err != nil {
		return err
	}
	s.loadSettings()
	return nil
}

// Reload re-reads the value behind key after an external change.
func (s *Store) Reload(key string) error {
	switch key {
	case storage.KeyNotes:
		return s.loadNotes()
	case storage.KeySettings:
		s.loadSettings()
	}
	return nil
}

func (s *Store) loadNotes() error {
	var notes []models.Note
	if _, err := storage.LoadJSON(s.gw, storage.KeyNotes, &notes); err != nil {
		return fmt.Errorf("notestore: load notes: %w", err)
	}
	for i := range notes {
		notes[i].LastEditedIndex = clampIndex(notes[i].LastEditedIndex, len(notes[i].Content))
	}
	s.mu.Lock()
	s.notes = notes
	s.mu.Unlock()
	return nil
}

func (s *Store) loadSettings() {
	settings := s.defaults
	if _, err := storage.LoadJSON(s.gw, storage.KeySettings, &settings); err != nil {
		s.logger.Warn("notestore: settings unreadable, using defaults", slog.String("error", err.Error()))
		settings = s.defaults
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
}

// Notes returns a copy of the collection in insertion order.
func (s *Store) Notes() []models.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Get returns the note with the given id.
func (s *Store) Get(id string) (models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(id); i >= 0 {
		return s.notes[i], nil
	}
	return models.Note{}, apperr.ErrNotFound
}

// First returns the first note of the collection, if any.
func (s *Store) First() (models.Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.notes) == 0 {
		return models.Note{}, false
	}
	return s.notes[0], true
}

// Save stores n and returns the stored copy. saved is false when nothing was
// written: n is blank, or its trimmed title and content match the stored copy.
// An unsaved note is given a fresh id on its first save.
func (s *Store) Save(n models.Note) (stored models.Note, saved bool, err error) {
	if n.IsBlank() {
		return n, false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(n.ID)
	if i >= 0 && sameText(s.notes[i], n) {
		return n, false, nil
	}

	n.UpdatedAt = s.now()
	next := make([]models.Note, len(s.notes), len(s.notes)+1)
	copy(next, s.notes)
	switch {
	case i >= 0:
		next[i] = n
	case n.ID != "":
		// Known id missing from the collection, e.g. removed by another process.
		next = append(next, n)
	default:
		n.ID = uuid.NewString()
		next = append(next, n)
	}

	if err := storage.SaveJSON(s.gw, storage.KeyNotes, next); err != nil {
		return n, false, fmt.Errorf("notestore: save: %w", err)
	}
	s.notes = next
	return n, true, nil
}

// Delete removes the note with the given id.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return apperr.ErrNotFound
	}
	next := make([]models.Note, 0, len(s.notes)-1)
	next = append(next, s.notes[:i]...)
	next = append(next, s.notes[i+1:]...)

	if err := storage.SaveJSON(s.gw, storage.KeyNotes, next); err != nil {
		return fmt.Errorf("notestore: delete: %w", err)
	}
	s.notes = next
	return nil
}

// Settings returns the current settings.
func (s *Store) Settings() models.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.settings
}

// SetSettings persists and installs new settings.
func (s *Store) SetSettings(settings models.Settings) error {
	if err := storage.SaveJSON(s.gw, storage.KeySettings, settings); err != nil {
		return fmt.Errorf("notestore: save settings: %w", err)
	}
	s.mu.Lock()
	s.settings = settings
	s.mu.Unlock()
	return nil
}

// FirstVisit reports whether onboarding has not been completed yet and marks
// it completed.
func (s *Store) FirstVisit() (bool, error) {
	var visited bool
	if _, err := storage.LoadJSON(s.gw, storage.KeyHasVisited, &visited); err != nil {
		s.logger.Warn("notestore: visited flag unreadable", slog.String("error", err.Error()))
	}
	if visited {
		return false, nil
	}
	if err := storage.SaveJSON(s.gw, storage.KeyHasVisited, true); err != nil {
		return true, fmt.Errorf("notestore: mark visited: %w", err)
	}
	return true, nil
}

// indexOf must be called with mu held.
func (s *Store) indexOf(id string) int {
	if id == "" {
		return -1
	}
	for i := range s.notes {
		if s.notes[i].ID == id {
			return i
		}
	}
	return -1
}

func sameText(a, b models.Note) bool {
	return strings.TrimSpace(a.Content) == strings.TrimSpace(b.Content) &&
		strings.TrimSpace(a.Title) == strings.TrimSpace(b.Title)
}

func clampIndex(i, n int) int {
	if i < 0 {
		return 0
	}
	if i > n {
		return n
	}
	return i
}
