// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/contactsvc"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *contactsvc.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *contactsvc.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("list_contacts",
		mcp.WithDescription("List contacts in the address book, favorites first."),
		mcp.WithString("query", mcp.Description("Optional substring filter over names, organisation, phones, and emails")),
	), s.listContacts)

	s.mcp.AddTool(mcp.NewTool("search_contacts",
		mcp.WithDescription("Search contacts by substring over names, organisation, phones, and emails."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchContacts)

	s.mcp.AddTool(mcp.NewTool("read_contact",
		mcp.WithDescription("Read a contact's full record including the parsed note log."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
	), s.readContact)

	s.mcp.AddTool(mcp.NewTool("read_notes",
		mcp.WithDescription("Read a contact's note log as timestamped entries, newest first. "+
			"Each entry carries the exact tag string needed for edit_note."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
	), s.readNotes)

	s.mcp.AddTool(mcp.NewTool("add_note",
		mcp.WithDescription("Add a new timestamped note entry for a contact. The entry is "+
			"prepended to the log and the assigned tag is returned. Content MUST follow "+
			"the note log contract; read it first via the get_note_log_contract tool or "+
			"the othala://note-log resource."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Entry text following the note log contract")),
	), s.addNote)

	s.mcp.AddTool(mcp.NewTool("edit_note",
		mcp.WithDescription("Replace the text of one existing note entry, identified by its "+
			"exact timestamp tag (brackets included). Other entries are untouched."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
		mcp.WithString("tag", mcp.Required(), mcp.Description("Timestamp tag, e.g. [2025-01-20T14:30:00.000Z]")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Replacement entry text")),
	), s.editNote)

	s.mcp.AddTool(mcp.NewTool("set_photo_from_url",
		mcp.WithDescription("Fetch an image from an http(s) URL or base64 data URI and set it "+
			"as the contact's photo. Optional x/y/w/h give a crop rectangle in source pixels."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Contact ID")),
		mcp.WithString("url", mcp.Required(), mcp.Description("Image URL or data URI (JPEG or PNG)")),
		mcp.WithNumber("x", mcp.Description("Crop origin X")),
		mcp.WithNumber("y", mcp.Description("Crop origin Y")),
		mcp.WithNumber("w", mcp.Description("Crop width")),
		mcp.WithNumber("h", mcp.Description("Crop height")),
	), s.setPhotoFromURL)

	s.mcp.AddTool(mcp.NewTool("get_note_log_contract",
		mcp.WithDescription("Returns the canonical note log format contract. "+
			"Call this before adding or editing notes to ensure correct structure."),
	), s.getNoteLogContract)

	// Resource: note log contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://note-log", "Note Log Contract",
			mcp.WithResourceDescription("Timestamped note log format that all note entries must follow."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteLogResource,
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

func (s *Server) listContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query := ""
	if q, err := req.RequireString("query"); err == nil {
		query = q
	}
	items, _, err := s.svc.List(ctx, 100, 0, query, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) searchContacts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	items, _, err := s.svc.List(ctx, 20, 0, query, "")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(items, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readContact(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.GetContact(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) readNotes(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segs, err := s.svc.Notes(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	out, _ := json.MarshalIndent(segs, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) addNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := s.svc.AddNote(ctx, id, content, time.Now())
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("added entry %s", tag)), nil
}

func (s *Server) editNote(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tag, err := req.RequireString("tag")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.EditNote(ctx, id, tag, content); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("edited entry %s", tag)), nil
}

func (s *Server) getNoteLogContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteLogContract), nil
}

func (s *Server) readNoteLogResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://note-log",
			MIMEType: "text/markdown",
			Text:     NoteLogContract,
		},
	}, nil
}
