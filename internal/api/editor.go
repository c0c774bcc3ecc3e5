package api

import (
	"net/http"

	"github.com/starford/take1/internal/models"
)

// EditorState handles GET /api/editor.
//
//	@Summary		Get the active note, selection and pending revision
//	@Tags			editor
//	@Produce		json
//	@Success		200	{object}	session.State
//	@Security		BearerAuth
//	@Router			/editor [get]
func (h *Handler) EditorState(w http.ResponseWriter, r *http.Request) {
	st, err := h.editor.State()
	if err != nil {
		writeError(w, "editor state", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetContent handles PUT /api/editor/content.
//
//	@Summary		Replace the content of the active note
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ContentRequest	true	"New content"
//	@Success		200		{object}	session.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/content [put]
func (h *Handler) SetContent(w http.ResponseWriter, r *http.Request) {
	var req ContentRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := h.editor.SetContent(*req.Content)
	if err != nil {
		writeError(w, "set content", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetTitle handles PUT /api/editor/title.
//
//	@Summary		Replace the title of the active note
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		TitleRequest	true	"New title"
//	@Success		200		{object}	session.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/title [put]
func (h *Handler) SetTitle(w http.ResponseWriter, r *http.Request) {
	var req TitleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := h.editor.SetTitle(*req.Title)
	if err != nil {
		writeError(w, "set title", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// SetSelection handles PUT /api/editor/selection.
//
//	@Summary		Place the caret or a selection in the content
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SelectionRequest	true	"Anchor and caret byte offsets"
//	@Success		200		{object}	session.State
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/selection [put]
func (h *Handler) SetSelection(w http.ResponseWriter, r *http.Request) {
	var req SelectionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := h.editor.Select(req.Anchor, req.Caret)
	if err != nil {
		writeError(w, "set selection", err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Keys handles POST /api/editor/keys. Keystrokes are applied in order;
// suppressed ones leave the buffer unchanged.
//
//	@Summary		Deliver keystrokes to the focused field
//	@Tags			editor
//	@Accept			json
//	@Produce		json
//	@Param			body	body		KeysRequest	true	"Keystrokes"
//	@Success		200		{object}	KeysResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/editor/keys [post]
func (h *Handler) Keys(w http.ResponseWriter, r *http.Request) {
	var req KeysRequest
	if !decodeBody(w, r, &req) {
		return
	}

	resp := KeysResponse{Verdicts: make([]string, 0, len(req.Keys))}
	for _, k := range req.Keys {
		res, err := h.editor.Input(k)
		if err != nil {
			writeError(w, "keys", err)
			return
		}
		resp.Verdicts = append(resp.Verdicts, res.Verdict)
		if res.Copied != "" {
			resp.Copied = res.Copied
		}
		resp.State = res.State
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetSettings handles GET /api/settings. The API key is masked.
//
//	@Summary		Get settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.editor.Settings()
	if err != nil {
		writeError(w, "get settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(s))
}

// PutSettings handles PUT /api/settings. Omitting openaiApiKey keeps the
// stored key; an empty string clears it.
//
//	@Summary		Update settings
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body	body		SettingsRequest	true	"Settings"
//	@Success		200		{object}	SettingsResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [put]
func (h *Handler) PutSettings(w http.ResponseWriter, r *http.Request) {
	var req SettingsRequest
	if !decodeBody(w, r, &req) {
		return
	}
	current, err := h.editor.Settings()
	if err != nil {
		writeError(w, "put settings", err)
		return
	}

	next := models.Settings{IsLLMEditorEnabled: req.IsLLMEditorEnabled, OpenAIAPIKey: current.OpenAIAPIKey}
	if req.OpenAIAPIKey != nil {
		next.OpenAIAPIKey = *req.OpenAIAPIKey
	}
	if err := h.editor.UpdateSettings(next); err != nil {
		writeError(w, "put settings", err)
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(next))
}

func settingsResponse(s models.Settings) SettingsResponse {
	return SettingsResponse{
		IsLLMEditorEnabled: s.IsLLMEditorEnabled,
		OpenAIAPIKey:       maskKey(s.OpenAIAPIKey),
		HasAPIKey:          s.OpenAIAPIKey != "",
	}
}

func maskKey(key string) string {
	if key == "" {
		return ""
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:3] + "..." + key[len(key)-4:]
}
