package revision

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// Sentinel markers delimiting the span inside the user message.
const (
	EditStart = "[EDIT_START]"
	EditEnd   = "[EDIT_END]"
)

// Client defaults.
const (
	DefaultEndpoint    = "https://api.openai.com/v1/chat/completions"
	DefaultModel       = "gpt-3.5-turbo"
	DefaultTemperature = 0.1
	DefaultMaxTokens   = 1000
	DefaultTimeout     = 30 * time.Second

	chatCompletionsPath = "/chat/completions"
)

const systemPrompt = "You revise text to be free of spelling mistakes, have proper grammar, " +
	"and error free prose while maintaining the original message, word for word, as much as possible " +
	"(THIS IS IMPORTANT). You will be given text in which a span is marked with the special tokens " +
	EditStart + " and " + EditEnd + ". You must replace the text between these tokens with the revised text. " +
	"You must not change the text outside of these tokens. RETURN ONLY THE REVISED TEXT DO NOT EXPLAIN YOURSELF."

// ErrMalformedResponse is returned when the service answers 2xx with a body
// that carries no usable completion.
var ErrMalformedResponse = errors.New("revision: malformed completion response")

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("revision: upstream status %d", e.Code)
	}
	return fmt.Sprintf("revision: upstream status %d: %s", e.Code, e.Message)
}

// Request is one revision call.
type Request struct {
	APIKey  string
	Text    string
	Context string // preceding text shown to the model, never revised
}

// Reviser returns a corrected version of a text span.
type Reviser interface {
	Revise(ctx context.Context, req Request) (string, error)
}

// Client talks to a chat-completion endpoint through go-openai. It is
// stateless and safe for concurrent use; the API key travels with each
// Request.
type Client struct {
	httpClient  *http.Client
	endpoint    string
	model       string
	temperature float64
	maxTokens   int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithEndpoint overrides the completion URL. Both the full
// ".../chat/completions" URL and the API base URL are accepted.
func WithEndpoint(endpoint string) ClientOption {
	return func(c *Client) { c.endpoint = endpoint }
}

// WithModel overrides the model name.
func WithModel(model string) ClientOption {
	return func(c *Client) { c.model = model }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) ClientOption {
	return func(c *Client) { c.temperature = t }
}

// WithMaxTokens overrides the completion token limit.
func WithMaxTokens(n int) ClientOption {
	return func(c *Client) { c.maxTokens = n }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a client with the given options applied over defaults.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{Timeout: DefaultTimeout},
		endpoint:    DefaultEndpoint,
		model:       DefaultModel,
		temperature: DefaultTemperature,
		maxTokens:   DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) api(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = strings.TrimSuffix(strings.TrimSuffix(c.endpoint, "/"), chatCompletionsPath)
	cfg.HTTPClient = c.httpClient
	return openai.NewClientWithConfig(cfg)
}

// Revise sends req.Text to the completion endpoint and returns the revised
// span. Nothing is retried.
func (c *Client) Revise(ctx context.Context, req Request) (string, error) {
	resp, err := c.api(req.APIKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userPrompt(req.Context, req.Text)},
		},
		Temperature: float32(c.temperature),
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return "", classify(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrMalformedResponse)
	}

	out := stripEcho(resp.Choices[0].Message.Content, req.Context)
	if strings.TrimSpace(out) == "" {
		return "", fmt.Errorf("%w: empty content", ErrMalformedResponse)
	}
	return out, nil
}

// classify maps go-openai errors onto the package's own error surface.
// Transport failures and cancellation keep their cause for errors.Is.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &StatusError{Code: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &StatusError{Code: reqErr.HTTPStatusCode}
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("revision: request failed: %w", err)
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return fmt.Errorf("revision: %w", err)
}

func userPrompt(preceding, text string) string {
	return "Return revised version of the text in between " + EditStart + " and " + EditEnd +
		". DO NOT WRITE THESE TOKENS IN THE OUTPUT:\n\n" +
		preceding + EditStart + text + EditEnd
}

// stripEcho removes sentinel markers and a leading copy of the context from
// a model reply.
func stripEcho(reply, preceding string) string {
	reply = strings.ReplaceAll(reply, EditStart, "")
	reply = strings.ReplaceAll(reply, EditEnd, "")
	if preceding != "" {
		reply = strings.TrimPrefix(reply, preceding)
	}
	return reply
}
