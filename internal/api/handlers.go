package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/take1/internal/editor"
	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/preview"
	"github.com/starford/take1/internal/revision"
	"github.com/starford/take1/internal/session"
)

// NoteLister is the read side of the note collection.
type NoteLister interface {
	Notes() []models.Note
	Get(id string) (models.Note, error)
	FirstVisit() (bool, error)
}

// Editor is the live editing session.
type Editor interface {
	State() (session.State, error)
	SetContent(content string) (session.State, error)
	SetTitle(title string) (session.State, error)
	Select(anchor, caret int) (session.State, error)
	Input(key editor.Key) (session.InputResult, error)
	NewNote() (session.State, error)
	Open(id string) (session.State, error)
	DeleteNote(id string) (session.State, error)
	Settings() (models.Settings, error)
	UpdateSettings(s models.Settings) error
}

// Handler holds API route handlers.
type Handler struct {
	notes   NoteLister
	editor  Editor
	reviser revision.Reviser
	search  index.Searcher
	now     func() time.Time
}

// NewHandler creates a new Handler.
func NewHandler(notes NoteLister, ed Editor, reviser revision.Reviser) *Handler {
	return &Handler{notes: notes, editor: ed, reviser: reviser, now: time.Now}
}

// ListNotes handles GET /api/notes.
//
//	@Summary		List notes grouped by recency
//	@Tags			notes
//	@Produce		json
//	@Success		200		{object}	NoteListResponse
//	@Security		BearerAuth
//	@Router			/notes [get]
func (h *Handler) ListNotes(w http.ResponseWriter, r *http.Request) {
	st, err := h.editor.State()
	if err != nil {
		writeError(w, "list notes", err)
		return
	}

	now := h.now()
	notes := h.notes.Notes()
	groups := preview.Group(notes, now)
	resp := NoteListResponse{Groups: make([]NoteGroup, 0, len(groups)), Total: len(notes)}
	for _, g := range groups {
		items := make([]NoteListItem, 0, len(g.Notes))
		for _, n := range g.Notes {
			items = append(items, NoteListItem{
				ID:        n.ID,
				Title:     preview.Excerpt(preview.DisplayTitle(n), titleExcerptLen),
				Excerpt:   preview.Excerpt(n.Content, contentExcerptLen),
				DateLabel: preview.DateLabel(n.UpdatedAt, now),
				UpdatedAt: n.UpdatedAt,
				Active:    n.ID == st.Note.ID,
			})
		}
		resp.Groups = append(resp.Groups, NoteGroup{Label: g.Label, Notes: items})
	}
	writeJSON(w, http.StatusOK, resp)
}

// Search handles GET /api/search.
//
//	@Summary		Full-text search over stored notes
//	@Tags			notes
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results (default 20)"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/search [get]
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			writeJSON(w, http.StatusBadRequest, errorBody("limit must be between 1 and 100"))
			return
		}
		limit = n
	}

	results, err := h.search.Search(q, limit)
	if err != nil {
		writeError(w, "search", err)
		return
	}
	if results == nil {
		results = []index.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}

// GetNote handles GET /api/notes/{id}.
//
//	@Summary		Get a stored note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	NoteDetail
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [get]
func (h *Handler) GetNote(w http.ResponseWriter, r *http.Request) {
	n, err := h.notes.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "get note", err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// NewNote handles POST /api/notes. The active note is saved and a fresh,
// unsaved note becomes active.
//
//	@Summary		Start a new note
//	@Tags			notes
//	@Produce		json
//	@Success		201	{object}	session.State
//	@Security		BearerAuth
//	@Router			/notes [post]
func (h *Handler) NewNote(w http.ResponseWriter, r *http.Request) {
	st, err := h.editor.NewNote()
	if err != nil {
		writeError(w, "new note", err)
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

// OpenNote handles POST /api/notes/{id}/open.
//
//	@Summary		Make a stored note the active note
//	@Tags			notes
//	@Produce		json
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	session.State
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id}/open [post]
func (h *Handler) OpenNote(w http.ResponseWriter, r *http.Request) {
	st, err := h.editor.Open(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, "open note", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// DeleteNote handles DELETE /api/notes/{id}.
//
//	@Summary		Delete a note
//	@Tags			notes
//	@Param			id	path		string	true	"Note id"
//	@Success		200	{object}	session.State
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/notes/{id} [delete]
func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st, err := h.editor.DeleteNote(id)
	if err != nil {
		writeError(w, "delete note", err)
		return
	}
	slog.Info("note deleted", slog.String("id", id))
	writeJSON(w, http.StatusOK, st)
}

// Onboarding handles GET /api/onboarding. Only the first call ever reports
// show_welcome=true.
//
//	@Summary		Whether to show the welcome screen
//	@Tags			onboarding
//	@Produce		json
//	@Success		200	{object}	OnboardingResponse
//	@Security		BearerAuth
//	@Router			/onboarding [get]
func (h *Handler) Onboarding(w http.ResponseWriter, r *http.Request) {
	first, err := h.notes.FirstVisit()
	if err != nil {
		writeError(w, "onboarding", err)
		return
	}
	writeJSON(w, http.StatusOK, OnboardingResponse{ShowWelcome: first})
}

// Revise handles POST /api/revise: a one-off revision with the stored key.
// The active note is not touched.
//
//	@Summary		Revise a text
//	@Tags			revision
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ReviseRequest	true	"Text to revise"
//	@Success		200		{object}	ReviseResponse
//	@Failure		400		{object}	errResponse
//	@Failure		502		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/revise [post]
func (h *Handler) Revise(w http.ResponseWriter, r *http.Request) {
	var req ReviseRequest
	if !decodeBody(w, r, &req) {
		return
	}
	settings, err := h.editor.Settings()
	if err != nil {
		writeError(w, "revise", err)
		return
	}
	if settings.OpenAIAPIKey == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("no API key configured"))
		return
	}

	out, err := h.reviser.Revise(r.Context(), revision.Request{
		APIKey:  settings.OpenAIAPIKey,
		Text:    req.Text,
		Context: req.Context,
	})
	if err != nil {
		writeError(w, "revise", err)
		return
	}
	writeJSON(w, http.StatusOK, ReviseResponse{Revised: out})
}
