// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes the faculty explorer to LLM clients via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/acadworld/internal/apperr"
	"github.com/starford/acadworld/internal/explorer"
	"github.com/starford/acadworld/internal/models"
)

const guideURI = "acadworld://guide"

// Explorer is the subset of the facade the tools call.
type Explorer interface {
	FacultyNames(ctx context.Context) ([]string, error)
	View(ctx context.Context, faculty string) *explorer.View
	TopCoauthors(ctx context.Context, faculty string, limit int) ([]models.Coauthor, error)
	AddNote(ctx context.Context, faculty, text string) (*explorer.NotesRefresh, error)
	MarkReviewed(ctx context.Context, faculty string, paperID int64) (*explorer.ReviewsRefresh, error)
}

// Server wraps the MCP server with the explorer tools.
type Server struct {
	mcp *server.MCPServer
	svc Explorer
}

// New creates a new MCP server with all tools registered.
func New(svc Explorer, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"acadworld",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_faculty",
		mcp.WithDescription("List the names of all faculty members, sorted alphabetically."),
	), s.listFaculty)

	s.mcp.AddTool(mcp.NewTool("faculty_view",
		mcp.WithDescription("Everything known about one faculty member: profile, top co-authors, "+
			"publications per year, top institutes, papers, reviewed paper ids and notes. "+
			"Parts whose store is unreachable are empty and listed under failures."),
		mcp.WithString("faculty", mcp.Required(), mcp.Description("Exact faculty name as returned by list_faculty")),
	), s.facultyView)

	s.mcp.AddTool(mcp.NewTool("top_coauthors",
		mcp.WithDescription("Rank a faculty member's collaborators by number of joint publications."),
		mcp.WithString("faculty", mcp.Required(), mcp.Description("Exact faculty name")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of co-authors (default 5)")),
	), s.topCoauthors)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Attach a free-text note to a faculty member. Blank text is ignored."),
		mcp.WithString("faculty", mcp.Required(), mcp.Description("Exact faculty name")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Note text")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("mark_reviewed",
		mcp.WithDescription("Mark a publication as reviewed. Read the guide for how the owning faculty is chosen."),
		mcp.WithString("faculty", mcp.Required(), mcp.Description("Faculty member whose reviewed list to return")),
		mcp.WithNumber("paper_id", mcp.Required(), mcp.Description("Publication id")),
	), s.markReviewed)

	s.mcp.AddTool(mcp.NewTool("get_guide",
		mcp.WithDescription("Returns the guide to the data model and tool semantics."),
	), s.getGuide)

	s.mcp.AddResource(
		mcp.NewResource(guideURI, "Academic World Guide",
			mcp.WithResourceDescription("Data model and tool semantics of the faculty explorer."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readGuideResource,
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

func jsonResult(v any) *mcp.CallToolResult {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultText(string(out))
}

func errorResult(err error) *mcp.CallToolResult {
	switch apperr.KindOf(err) {
	case apperr.ErrNotFound:
		return mcp.NewToolResultError("not found: " + err.Error())
	case apperr.ErrInvalid:
		return mcp.NewToolResultError("invalid input: " + err.Error())
	default:
		return mcp.NewToolResultError("store unavailable: " + err.Error())
	}
}

func requireFaculty(req mcp.CallToolRequest) (string, error) {
	name, err := req.RequireString("faculty")
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(name) == "" {
		return "", fmt.Errorf("faculty must not be empty")
	}
	return name, nil
}

func (s *Server) listFaculty(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	names, err := s.svc.FacultyNames(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	if len(names) == 0 {
		return mcp.NewToolResultText("no faculty found"), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func (s *Server) facultyView(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireFaculty(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.svc.View(ctx, name)), nil
}

func (s *Server) topCoauthors(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireFaculty(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", explorer.DefaultCoauthorLimit)
	rows, err := s.svc.TopCoauthors(ctx, name, limit)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(rows), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireFaculty(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.AddNote(ctx, name, text)
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(out), nil
}

func (s *Server) markReviewed(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := requireFaculty(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	id, err := req.RequireInt("paper_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := s.svc.MarkReviewed(ctx, name, int64(id))
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(out), nil
}

func (s *Server) getGuide(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(Guide), nil
}

func (s *Server) readGuideResource(context.Context, mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      guideURI,
			MIMEType: "text/markdown",
			Text:     Guide,
		},
	}, nil
}
