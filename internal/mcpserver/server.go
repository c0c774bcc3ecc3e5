// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes take1 notes and the revision pipeline over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/take1/internal/apperr"
	"github.com/starford/take1/internal/index"
	"github.com/starford/take1/internal/models"
	"github.com/starford/take1/internal/preview"
	"github.com/starford/take1/internal/revision"
)

const policyURI = "take1://revision-policy"

// Notes is the note collection the tools operate on.
type Notes interface {
	Notes() []models.Note
	Get(id string) (models.Note, error)
	Save(n models.Note) (models.Note, bool, error)
	Settings() models.Settings
}

// Server wraps the MCP server with take1 tools.
type Server struct {
	mcp     *server.MCPServer
	notes   Notes
	reviser revision.Reviser
	search  index.Searcher
	minSpan int
	now     func() time.Time
}

// New creates a new MCP server with all take1 tools registered. minSpan is
// the minimum span length used by check_revision_eligibility. search_notes
// is only registered when search is non-nil.
func New(notes Notes, reviser revision.Reviser, search index.Searcher, minSpan int) *Server {
	if minSpan <= 0 {
		minSpan = revision.DefaultMinSpanLength
	}
	s := &Server{notes: notes, reviser: reviser, search: search, minSpan: minSpan, now: time.Now}

	s.mcp = server.NewMCPServer(
		"take1",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_notes",
		mcp.WithDescription("List notes grouped by recency (Today, Yesterday, Previous 7 days, ...)."),
	), s.listNotes)

	s.mcp.AddTool(mcp.NewTool("read_note",
		mcp.WithDescription("Read a note as JSON (id, title, content, updatedAt, lastEditedIndex)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Note id as returned by list_notes")),
	), s.readNote)

	if search != nil {
		s.mcp.AddTool(mcp.NewTool("search_notes",
			mcp.WithDescription("Full-text search over note titles and content."),
			mcp.WithString("query", mcp.Required(), mcp.Description("Words to look for")),
			mcp.WithNumber("limit", mcp.Description("Max results (default 20)")),
		), s.searchNotes)
	}

	s.mcp.AddTool(mcp.NewTool("create_note",
		mcp.WithDescription("Store a new note. Blank notes are rejected."),
		mcp.WithString("title", mcp.Description("Note title")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Plain-text note content")),
	), s.createNote)

	s.mcp.AddTool(mcp.NewTool("check_revision_eligibility",
		mcp.WithDescription("Report whether the text after last_edited_index would be sent for automatic revision. "+
			"See the "+policyURI+" resource for the rules."),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full note content")),
		mcp.WithNumber("last_edited_index", mcp.Description("Byte offset of the revision boundary (default 0)")),
	), s.checkEligibility)

	s.mcp.AddTool(mcp.NewTool("revise_text",
		mcp.WithDescription("Fix spelling and grammar of a text while keeping its wording, using the configured completion service."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Text to revise")),
		mcp.WithString("context", mcp.Description("Optional preceding text shown to the model but never revised")),
	), s.reviseText)

	s.mcp.AddResource(
		mcp.NewResource(policyURI, "Revision Policy",
			mcp.WithResourceDescription("How take1 selects, sends and merges revised text."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readPolicyResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

type listedNote struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Date    string `json:"date"`
	Excerpt string `json:"excerpt"`
}

type listedGroup struct {
	Label string       `json:"label"`
	Notes []listedNote `json:"notes"`
}

func (s *Server) listNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	now := s.now()
	groups := preview.Group(s.notes.Notes(), now)
	out := make([]listedGroup, 0, len(groups))
	for _, g := range groups {
		lg := listedGroup{Label: g.Label}
		for _, n := range g.Notes {
			lg.Notes = append(lg.Notes, listedNote{
				ID:      n.ID,
				Title:   preview.DisplayTitle(n),
				Date:    preview.DateLabel(n.UpdatedAt, now),
				Excerpt: preview.Excerpt(n.Content, 80),
			})
		}
		out = append(out, lg)
	}
	if len(out) == 0 {
		return mcp.NewToolResultText("no notes"), nil
	}
	data, _ := json.MarshalIndent(out, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) readNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n, err := s.notes.Get(id)
	if errors.Is(err, apperr.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, _ := json.MarshalIndent(n, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) searchNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.search.Search(query, req.GetInt("limit", 20))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(results) == 0 {
		return mcp.NewToolResultText("no results"), nil
	}
	data, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) createNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	n := models.NewNote()
	n.Title = req.GetString("title", "")
	n.Content = content

	stored, saved, err := s.notes.Save(n)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !saved {
		return mcp.NewToolResultError("note is blank"), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("created: %s", stored.ID)), nil
}

type eligibility struct {
	Eligible bool   `json:"eligible"`
	Boundary int    `json:"boundary"`
	Span     string `json:"span"`
	Reason   string `json:"reason,omitempty"`
}

func (s *Server) checkEligibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	boundary := req.GetInt("last_edited_index", 0)
	if boundary < 0 || boundary > len(content) {
		return mcp.NewToolResultError(fmt.Sprintf("last_edited_index %d out of range [0, %d]", boundary, len(content))), nil
	}

	span := revision.Candidate(content, boundary)
	res := eligibility{
		Eligible: revision.Eligible(span, s.minSpan),
		Boundary: len(content) - len(span),
		Span:     span,
	}
	if !res.Eligible {
		res.Reason = fmt.Sprintf("span must have at least %d characters and end a sentence or a paragraph", s.minSpan)
	}
	data, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) reviseText(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	key := s.notes.Settings().OpenAIAPIKey
	if key == "" {
		return mcp.NewToolResultError("no API key configured"), nil
	}

	out, err := s.reviser.Revise(ctx, revision.Request{
		APIKey:  key,
		Text:    text,
		Context: req.GetString("context", ""),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(out), nil
}

func (s *Server) readPolicyResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      policyURI,
			MIMEType: "text/markdown",
			Text:     RevisionPolicy,
		},
	}, nil
}
