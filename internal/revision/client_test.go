package revision

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func completion(content string) string {
	b, _ := json.Marshal(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": content}},
		},
	})
	return string(b)
}

// sentRequest is the wire shape of the chat request as the server sees it.
type sentRequest struct {
	Model    string `json:"model"`
	Messages []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Stream      bool    `json:"stream"`
}

func TestRevise_RequestShape(t *testing.T) {
	var got sentRequest
	var auth, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		path = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(completion("Hello world.")))
	}))
	defer srv.Close()

	c := NewClient(WithEndpoint(srv.URL + "/v1/chat/completions"))
	out, err := c.Revise(context.Background(), Request{APIKey: "sk-test", Text: "helo wrld.", Context: "Intro. "})
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if out != "Hello world." {
		t.Errorf("out = %q", out)
	}

	if path != "/v1/chat/completions" {
		t.Errorf("path = %q", path)
	}
	if auth != "Bearer sk-test" {
		t.Errorf("auth = %q", auth)
	}
	if got.Model != DefaultModel || got.Temperature != DefaultTemperature || got.MaxTokens != DefaultMaxTokens || got.Stream {
		t.Errorf("request = %+v", got)
	}
	if len(got.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(got.Messages))
	}
	if got.Messages[0].Role != "system" || got.Messages[1].Role != "user" {
		t.Errorf("roles = %q, %q", got.Messages[0].Role, got.Messages[1].Role)
	}
	if !strings.HasSuffix(got.Messages[1].Content, "Intro. [EDIT_START]helo wrld.[EDIT_END]") {
		t.Errorf("user message = %q", got.Messages[1].Content)
	}
}

func TestRevise_BaseURLEndpoint(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(completion("Ok.")))
	}))
	defer srv.Close()

	if _, err := NewClient(WithEndpoint(srv.URL+"/v1/")).Revise(context.Background(), Request{APIKey: "k", Text: "ok."}); err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if path != "/v1/chat/completions" {
		t.Errorf("path = %q", path)
	}
}

func TestRevise_StripsEchoedMarkersAndContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(completion("Intro. [EDIT_START]Fixed text.[EDIT_END]")))
	}))
	defer srv.Close()

	out, err := NewClient(WithEndpoint(srv.URL)).Revise(context.Background(),
		Request{APIKey: "k", Text: "fixd text.", Context: "Intro. "})
	if err != nil {
		t.Fatalf("Revise: %v", err)
	}
	if out != "Fixed text." {
		t.Errorf("out = %q", out)
	}
}

func TestRevise_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Revise(context.Background(), Request{APIKey: "bad", Text: "x"})
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Code != http.StatusUnauthorized || se.Message != "Incorrect API key provided" {
		t.Errorf("status error = %+v", se)
	}
}

func TestRevise_StatusErrorWithoutJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	}))
	defer srv.Close()

	_, err := NewClient(WithEndpoint(srv.URL)).Revise(context.Background(), Request{APIKey: "k", Text: "x"})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("err = %v, want 502 *StatusError", err)
	}
}

func TestRevise_Malformed(t *testing.T) {
	bodies := map[string]string{
		"not json":   `<html>oops</html>`,
		"no choices": `{"choices":[]}`,
		"empty":      completion("   "),
	}
	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			_, err := NewClient(WithEndpoint(srv.URL)).Revise(context.Background(), Request{APIKey: "k", Text: "x"})
			if !errors.Is(err, ErrMalformedResponse) {
				t.Errorf("err = %v, want ErrMalformedResponse", err)
			}
		})
	}
}

func TestRevise_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	_, err := NewClient(WithEndpoint(endpoint)).Revise(context.Background(), Request{APIKey: "k", Text: "x"})
	if err == nil {
		t.Fatal("expected error from closed server")
	}
	var se *StatusError
	if errors.As(err, &se) || errors.Is(err, ErrMalformedResponse) {
		t.Errorf("transport failure classified as %v", err)
	}
}

func TestRevise_Cancelled(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := NewClient(WithEndpoint(srv.URL)).Revise(ctx, Request{APIKey: "k", Text: "x"})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
