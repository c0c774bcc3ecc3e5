package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/revision"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// search, if non-nil, serves GET /search.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(notes NoteLister, ed Editor, reviser revision.Reviser, search index.Searcher, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(notes, ed, reviser)
	h.search = search

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Note list.
	r.Get("/notes", h.ListNotes)
	r.Post("/notes", h.NewNote)
	r.Get("/notes/{id}", h.GetNote)
	r.Post("/notes/{id}/open", h.OpenNote)
	r.Delete("/notes/{id}", h.DeleteNote)
	if search != nil {
		r.Get("/search", h.Search)
	}

	// Active note editor.
	r.Get("/editor", h.EditorState)
	r.Put("/editor/content", h.SetContent)
	r.Put("/editor/title", h.SetTitle)
	r.Put("/editor/selection", h.SetSelection)
	r.Post("/editor/keys", h.Keys)

	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Get("/onboarding", h.Onboarding)
	r.Post("/revise", h.Revise)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
