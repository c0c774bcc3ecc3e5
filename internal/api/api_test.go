package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/notestore"
	"github.com/starford/take1/internal/revision"
	"github.com/starford/take1/internal/session"
	"github.com/starford/take1/internal/testutil"
)

type stubReviser struct {
	reply string
	err   error
	got   revision.Request
}

func (s *stubReviser) Revise(_ context.Context, req revision.Request) (string, error) {
	s.got = req
	return s.reply, s.err
}

type testEnvOpts struct {
	token    string
	settings models.Settings
	reviser  *stubReviser
}

// testEnv wires a note store, an editor session and the router. The session
// timers are long so nothing fires behind the test's back.
func testEnv(t *testing.T, o testEnvOpts) (*notestore.Store, *session.Session, http.Handler) {
	t.Helper()
	store := testutil.TestStore(t, o.settings)
	if o.reviser == nil {
		o.reviser = &stubReviser{}
	}
	sess := session.New(store, o.reviser, nil, testutil.Logger(), session.Options{
		RevisionDebounce: time.Hour,
		AutosaveDelay:    time.Hour,
	})
	t.Cleanup(sess.Close)

	router := NewRouter(store, sess, o.reviser, testutil.TestIndex(t, store), o.token != "", o.token, nil)
	return store, sess, router
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %T: %v (body %s)", v, err, w.Body.String())
	}
	return v
}

func TestEditContentAndSwitchNotes(t *testing.T) {
	store, _, router := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodPut, "/editor/title", map[string]string{"title": "Groceries"})
	if w.Code != http.StatusOK {
		t.Fatalf("title status = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodPut, "/editor/content", map[string]string{"content": "Milk and eggs\nBread"})
	if w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	st := decode[session.State](t, w)
	if st.Note.Content != "Milk and eggs\nBread" || !st.Dirty {
		t.Fatalf("state = %+v", st)
	}

	// Starting a new note saves the active one.
	w = do(t, router, http.MethodPost, "/notes", nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("new note status = %d", w.Code)
	}
	notes := store.Notes()
	if len(notes) != 1 {
		t.Fatalf("stored notes = %d, want 1", len(notes))
	}

	w = do(t, router, http.MethodGet, "/notes", nil)
	list := decode[NoteListResponse](t, w)
	if list.Total != 1 || len(list.Groups) != 1 || list.Groups[0].Label != "Today" {
		t.Fatalf("list = %+v", list)
	}
	item := list.Groups[0].Notes[0]
	if item.Title != "Groceries" || item.Excerpt != "Milk and e..." || item.Active {
		t.Errorf("item = %+v", item)
	}

	w = do(t, router, http.MethodPost, "/notes/"+notes[0].ID+"/open", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("open status = %d", w.Code)
	}
	st = decode[session.State](t, w)
	if st.Note.ID != notes[0].ID || st.Focus != session.FocusContent {
		t.Errorf("opened state = %+v", st)
	}

	w = do(t, router, http.MethodGet, "/notes/"+notes[0].ID, nil)
	if got := decode[models.Note](t, w); got.Title != "Groceries" {
		t.Errorf("get note title = %q", got.Title)
	}
}

func TestContentRequiresField(t *testing.T) {
	_, _, router := testEnv(t, testEnvOpts{})

	w := do(t, router, http.MethodPut, "/editor/content", map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing content = %d, want 400", w.Code)
	}

	req := httptest.NewRequest(http.MethodPut, "/editor/content", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad json = %d, want 400", rec.Code)
	}
}

func TestKeysApplyGuard(t *testing.T) {
	_, sess, router := testEnv(t, testEnvOpts{})
	if _, err := sess.SetContent("abc   "); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Select(1, 1); err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodPost, "/editor/keys", map[string]any{
		"keys": []map[string]any{{"key": "x"}, {"key": "End"}, {"key": "!"}},
	})
	if w.Code != http.StatusOK {
		t.Fatalf("keys status = %d, body = %s", w.Code, w.Body.String())
	}
	resp := decode[KeysResponse](t, w)
	want := []string{"suppress", "allow", "allow"}
	for i := range want {
		if resp.Verdicts[i] != want[i] {
			t.Errorf("verdict %d = %q, want %q", i, resp.Verdicts[i], want[i])
		}
	}
	if resp.State.Note.Content != "abc   !" {
		t.Errorf("content = %q", resp.State.Note.Content)
	}

	w = do(t, router, http.MethodPost, "/editor/keys", map[string]any{"keys": []any{}})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty keys = %d, want 400", w.Code)
	}
}

func TestSettingsMaskedAndKeyKept(t *testing.T) {
	store, _, router := testEnv(t, testEnvOpts{settings: models.Settings{OpenAIAPIKey: "sk-abcdefghijklmnop"}})

	w := do(t, router, http.MethodGet, "/settings", nil)
	got := decode[SettingsResponse](t, w)
	if got.OpenAIAPIKey != "sk-...mnop" || !got.HasAPIKey {
		t.Errorf("masked settings = %+v", got)
	}

	w = do(t, router, http.MethodPut, "/settings", map[string]any{"isLLMEditorEnabled": true})
	if w.Code != http.StatusOK {
		t.Fatalf("put status = %d, body = %s", w.Code, w.Body.String())
	}
	if s := store.Settings(); !s.IsLLMEditorEnabled || s.OpenAIAPIKey != "sk-abcdefghijklmnop" {
		t.Errorf("stored settings = %+v", s)
	}

	w = do(t, router, http.MethodPut, "/settings", map[string]any{"isLLMEditorEnabled": true, "openaiApiKey": ""})
	if w.Code != http.StatusOK {
		t.Fatalf("clear status = %d", w.Code)
	}
	if store.Settings().OpenAIAPIKey != "" {
		t.Errorf("key not cleared")
	}
}

func TestOnboardingOnlyOnce(t *testing.T) {
	_, _, router := testEnv(t, testEnvOpts{})

	first := decode[OnboardingResponse](t, do(t, router, http.MethodGet, "/onboarding", nil))
	second := decode[OnboardingResponse](t, do(t, router, http.MethodGet, "/onboarding", nil))
	if !first.ShowWelcome || second.ShowWelcome {
		t.Errorf("show_welcome = %v then %v", first.ShowWelcome, second.ShowWelcome)
	}
}

func TestRevise(t *testing.T) {
	rev := &stubReviser{reply: "I have an apple."}
	_, _, router := testEnv(t, testEnvOpts{reviser: rev, settings: models.Settings{OpenAIAPIKey: "sk-key"}})

	w := do(t, router, http.MethodPost, "/revise", ReviseRequest{Text: "i has a apple."})
	if w.Code != http.StatusOK {
		t.Fatalf("revise status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := decode[ReviseResponse](t, w); got.Revised != "I have an apple." {
		t.Errorf("revised = %q", got.Revised)
	}
	if rev.got.APIKey != "sk-key" {
		t.Errorf("api key = %q", rev.got.APIKey)
	}

	rev.err = &revision.StatusError{Code: 429, Message: "rate limited"}
	w = do(t, router, http.MethodPost, "/revise", ReviseRequest{Text: "again"})
	if w.Code != http.StatusBadGateway {
		t.Errorf("upstream error = %d, want 502", w.Code)
	}

	w = do(t, router, http.MethodPost, "/revise", ReviseRequest{})
	if w.Code != http.StatusBadRequest {
		t.Errorf("empty text = %d, want 400", w.Code)
	}
}

func TestSetSelection(t *testing.T) {
	_, _, router := testEnv(t, testEnvOpts{})

	if w := do(t, router, http.MethodPut, "/editor/content", map[string]string{"content": "one two"}); w.Code != http.StatusOK {
		t.Fatalf("content status = %d", w.Code)
	}
	w := do(t, router, http.MethodPut, "/editor/selection", map[string]int{"anchor": 4, "caret": 7})
	if w.Code != http.StatusOK {
		t.Fatalf("selection status = %d, body = %s", w.Code, w.Body.String())
	}
	if st := decode[session.State](t, w); st.Selection.Start != 4 || st.Selection.End != 7 {
		t.Errorf("selection = %+v, want [4, 7)", st.Selection)
	}

	w = do(t, router, http.MethodPut, "/editor/selection", map[string]int{"anchor": -1, "caret": 2})
	if w.Code != http.StatusBadRequest {
		t.Errorf("negative anchor status = %d, want 400", w.Code)
	}
}

func TestReviseUpstreamUnavailable(t *testing.T) {
	rev := &stubReviser{}
	_, _, router := testEnv(t, testEnvOpts{settings: models.Settings{OpenAIAPIKey: "sk-1"}, reviser: rev})

	failures := map[string]error{
		"unreachable": fmt.Errorf("revision: request failed: %w",
			&url.Error{Op: "Post", URL: "http://127.0.0.1:1/chat/completions", Err: errors.New("connection refused")}),
		"timeout": fmt.Errorf("revision: request failed: %w", context.DeadlineExceeded),
	}
	for name, err := range failures {
		rev.err = err
		w := do(t, router, http.MethodPost, "/revise", ReviseRequest{Text: "text"})
		if w.Code != http.StatusBadGateway {
			t.Errorf("%s: status = %d, want 502", name, w.Code)
		}
	}
}

func TestReviseWithoutKey(t *testing.T) {
	_, _, router := testEnv(t, testEnvOpts{})
	w := do(t, router, http.MethodPost, "/revise", ReviseRequest{Text: "text"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestDeleteNote(t *testing.T) {
	store, _, router := testEnv(t, testEnvOpts{})
	n, _, err := store.Save(models.Note{Title: "gone", Content: "soon"})
	if err != nil {
		t.Fatal(err)
	}

	w := do(t, router, http.MethodDelete, "/notes/"+n.ID, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/notes/"+n.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", w.Code)
	}
	w = do(t, router, http.MethodGet, "/notes/"+n.ID, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("get deleted = %d, want 404", w.Code)
	}
}

func TestSearchNotes(t *testing.T) {
	store, _, router := testEnv(t, testEnvOpts{})
	n, _, _ := store.Save(models.Note{Title: "Trip", Content: "Pack the tent and the stove."})
	_, _, _ = store.Save(models.Note{Title: "Groceries", Content: "Milk"})

	w := do(t, router, http.MethodGet, "/search?q=tent", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[SearchResponse](t, w)
	if len(res.Results) != 1 || res.Results[0].ID != n.ID || res.Results[0].Title != "Trip" {
		t.Errorf("results = %+v", res.Results)
	}

	w = do(t, router, http.MethodGet, "/search?q=nothing-matches", nil)
	if res := decode[SearchResponse](t, w); res.Results == nil || len(res.Results) != 0 {
		t.Errorf("no-hit results = %+v", res.Results)
	}

	if w := do(t, router, http.MethodGet, "/search", nil); w.Code != http.StatusBadRequest {
		t.Errorf("missing q = %d, want 400", w.Code)
	}
	if w := do(t, router, http.MethodGet, "/search?q=tent&limit=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("limit=0 = %d, want 400", w.Code)
	}
}

func TestAuthMiddleware(t *testing.T) {
	_, _, router := testEnv(t, testEnvOpts{token: "secret"})

	w := do(t, router, http.MethodGet, "/editor", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d, want 401", w.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/editor", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong token = %d, want 401", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/editor", nil)
	req.Header.Set("Authorization", "Bearer secret")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("valid token = %d, want 200", rec.Code)
	}
}
