package api

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/take1/internal/editor"
	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/session"
)

// Excerpt limits of a note list row, in characters.
const (
	titleExcerptLen   = 20
	contentExcerptLen = 10
)

// NoteListItem is one row of the note list.
type NoteListItem struct {
	ID        string    `json:"id" example:"4f0c6a4e-2b7d-4e55-9d1a-0c6f1d2b9e11" validate:"required"`
	Title     string    `json:"title" example:"Groceries"`
	Excerpt   string    `json:"excerpt" example:"Milk, eggs..."`
	DateLabel string    `json:"date_label" example:"3:04 PM" validate:"required"`
	UpdatedAt time.Time `json:"updated_at" validate:"required"`
	Active    bool      `json:"active"`
}

// NoteGroup is a recency bucket of the note list.
type NoteGroup struct {
	Label string         `json:"label" example:"Today" validate:"required"`
	Notes []NoteListItem `json:"notes" validate:"required"`
}

// NoteListResponse is the grouped note list.
type NoteListResponse struct {
	Groups []NoteGroup `json:"groups" validate:"required"`
	Total  int         `json:"total" example:"42" validate:"required"`
}

// NoteDetail is a stored note.
type NoteDetail = models.Note

// ContentRequest replaces the content of the active note.
type ContentRequest struct {
	Content *string `json:"content" example:"Dear diary, today..." validate:"required"`
}

func (r ContentRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Content, validation.NotNil),
	)
}

// TitleRequest replaces the title of the active note.
type TitleRequest struct {
	Title *string `json:"title" example:"Diary" validate:"required"`
}

func (r TitleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NotNil),
	)
}

// SelectionRequest places the caret or a selection in the content.
type SelectionRequest struct {
	Anchor int `json:"anchor" example:"0"`
	Caret  int `json:"caret" example:"12"`
}

func (r SelectionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Anchor, validation.Min(0)),
		validation.Field(&r.Caret, validation.Min(0)),
	)
}

// KeysRequest delivers keystrokes to the focused field, in order.
type KeysRequest struct {
	Keys []editor.Key `json:"keys" validate:"required"`
}

func (r KeysRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Keys, validation.Required, validation.Length(1, 256), validation.Each(validation.By(validKey))),
	)
}

func validKey(v any) error {
	k, _ := v.(editor.Key)
	return validation.Validate(k.Name, validation.Required, validation.Length(1, 32))
}

// KeysResponse reports each keystroke's verdict and the final state.
type KeysResponse struct {
	Verdicts []string      `json:"verdicts" validate:"required"`
	Copied   string        `json:"copied,omitempty"`
	State    session.State `json:"state" validate:"required"`
}

// SettingsRequest replaces the settings. A nil API key keeps the stored one.
type SettingsRequest struct {
	IsLLMEditorEnabled bool    `json:"isLLMEditorEnabled" example:"true"`
	OpenAIAPIKey       *string `json:"openaiApiKey,omitempty" example:"sk-..."`
}

func (r SettingsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.OpenAIAPIKey, validation.Length(0, 512)),
	)
}

// SettingsResponse is the settings with the API key masked.
type SettingsResponse struct {
	IsLLMEditorEnabled bool   `json:"isLLMEditorEnabled"`
	OpenAIAPIKey       string `json:"openaiApiKey,omitempty" example:"sk-...3xYz"`
	HasAPIKey          bool   `json:"hasApiKey"`
}

// OnboardingResponse tells the client whether to show the welcome screen.
type OnboardingResponse struct {
	ShowWelcome bool `json:"show_welcome"`
}

// ReviseRequest asks for a one-off revision of a text.
type ReviseRequest struct {
	Text    string `json:"text" example:"i has a apple." validate:"required"`
	Context string `json:"context,omitempty" example:"Yesterday I went shopping. "`
}

func (r ReviseRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required, validation.Length(1, 20000)),
		validation.Field(&r.Context, validation.Length(0, 20000)),
	)
}

// SearchResponse lists full-text hits, best first.
type SearchResponse struct {
	Results []index.SearchResult `json:"results"`
}

// ReviseResponse carries the revised text.
type ReviseResponse struct {
	Revised string `json:"revised" example:"I have an apple." validate:"required"`
}
