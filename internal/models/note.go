// Package models defines the domain types for take1.
package models

import (
	"strings"
	"time"
)

// Note is a single plain-text note.
//
// LastEditedIndex is a byte offset into Content separating finalized text
// from text typed since the last revision pass.
type Note struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	UpdatedAt       time.Time `json:"updatedAt"`
	LastEditedIndex int       `json:"lastEditedIndex"`
}

// NewNote returns an empty, unsaved note.
func NewNote() Note {
	return Note{UpdatedAt: time.Now()}
}

// IsBlank reports whether both title and content are whitespace only.
func (n Note) IsBlank() bool {
	return strings.TrimSpace(n.Title) == "" && strings.TrimSpace(n.Content) == ""
}

// Settings are the user-facing application settings.
type Settings struct {
	IsLLMEditorEnabled bool   `json:"isLLMEditorEnabled"`
	OpenAIAPIKey       string `json:"openaiApiKey,omitempty"`
}

// RevisionReady reports whether automatic revision may run at all.
func (s Settings) RevisionReady() bool {
	return s.IsLLMEditorEnabled && s.OpenAIAPIKey != ""
}

// Group is a bucket of notes in the note list.
type Group struct {
	Label string `json:"label"`
	Notes []Note `json:"notes"`
}
