// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes Othala tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/vault"
)

// Server wraps the MCP server with Othala tools.
type Server struct {
	mcp *server.MCPServer
	svc *vault.Service
}

// New creates a new MCP server with all Othala tools registered.
func New(svc *vault.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"Othala",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("write_memory",
		mcp.WithDescription("Store a memory record. Writing the same title in the same "+
			"category again replaces the record. Relations named in related_to are resolved "+
			"against existing record titles and become graph edges. Read the format first via "+
			"the get_record_contract tool or the othala://record-format resource."),
		mcp.WithString("category", mcp.Required(), mcp.Description("Record category (e.g. decisions, people, commitments)")),
		mcp.WithString("title", mcp.Required(), mcp.Description("Record title; for people use 'Name — Role'")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Markdown body content")),
		mcp.WithString("priority", mcp.Description("Priority marker (defaults to 🟡)")),
		mcp.WithString("deadline", mcp.Description("Optional deadline (ISO date)")),
		mcp.WithArray("tags", mcp.Description("Optional list of tags")),
		mcp.WithArray("related_to", mcp.Description("Titles or ids of related records")),
		mcp.WithArray("derived_from", mcp.Description("Titles or ids of source records")),
	), s.writeMemory)

	s.mcp.AddTool(mcp.NewTool("read_memory",
		mcp.WithDescription("Read a record by its id (category/slug)."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Record id, e.g. decisions/q3-budget-1a2b")),
	), s.readMemory)

	s.mcp.AddTool(mcp.NewTool("list_memories",
		mcp.WithDescription("List records in one category, or everything when category is omitted."),
		mcp.WithString("category", mcp.Description("Optional category filter")),
	), s.listMemories)

	s.mcp.AddTool(mcp.NewTool("search_vault",
		mcp.WithDescription("Substring search across record titles and bodies."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query string")),
	), s.searchVault)

	s.mcp.AddTool(mcp.NewTool("traverse_graph",
		mcp.WithDescription("Explore the knowledge graph around a record, breadth-first, "+
			"up to the given depth (default 2). Start can be an id, a title, or a title fragment."),
		mcp.WithString("start", mcp.Required(), mcp.Description("Starting record id or title")),
		mcp.WithNumber("depth", mcp.Description("Maximum hops to explore")),
	), s.traverseGraph)

	s.mcp.AddTool(mcp.NewTool("get_graph",
		mcp.WithDescription("Return the full knowledge graph index (nodes and edges)."),
	), s.getGraph)

	s.mcp.AddTool(mcp.NewTool("vault_stats",
		mcp.WithDescription("Record counts per category plus graph size."),
	), s.vaultStats)

	s.mcp.AddTool(mcp.NewTool("dedup_vault",
		mcp.WithDescription("Merge duplicate records (fuzzy title match; people by name) "+
			"into their oldest version and remove the rest."),
	), s.dedupVault)

	s.mcp.AddTool(mcp.NewTool("get_record_contract",
		mcp.WithDescription("Returns the canonical Othala record format. "+
			"Call this before writing records to understand ids, categories, and relations."),
	), s.getRecordContract)

	// Resource: record format contract.
	s.mcp.AddResource(
		mcp.NewResource("othala://record-format", "Record Format Contract",
			mcp.WithResourceDescription("Canonical record format and relation semantics."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRecordFormatResource,
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

func (s *Server) writeMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	title, err := req.RequireString("title")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	fields := vault.Fields{
		Priority:    req.GetString("priority", ""),
		Deadline:    req.GetString("deadline", ""),
		Tags:        req.GetStringSlice("tags", nil),
		RelatedTo:   req.GetStringSlice("related_to", nil),
		DerivedFrom: req.GetStringSlice("derived_from", nil),
	}

	id, err := s.svc.Write(ctx, category, title, fields, content)
	if err != nil {
		if errors.Is(err, apperr.ErrInvalidCategory) {
			return mcp.NewToolResultError(fmt.Sprintf("unknown category: %s", category)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("stored: %s", id)), nil
}

func (s *Server) readMemory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	detail, err := s.svc.Read(ctx, id)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
		}
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(detail, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listMemories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	category := req.GetString("category", "")
	items, err := s.svc.List(ctx, category)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(items) == 0 {
		return mcp.NewToolResultText("no records"), nil
	}
	var lines []string
	for _, it := range items {
		line := fmt.Sprintf("%s\t%s", it.ID, it.Title)
		if it.Corrupt {
			line += "\t(corrupt)"
		}
		lines = append(lines, line)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) searchVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	results, err := s.svc.Search(ctx, query, 20)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(results, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) traverseGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	start, err := req.RequireString("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	depth := req.GetInt("depth", 0)
	res, err := s.svc.Traverse(ctx, start, depth)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !res.Found {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", start)), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	idx, err := s.svc.Graph(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(idx, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) vaultStats(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.svc.Stats(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(st, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) dedupVault(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.svc.Dedup(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getRecordContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RecordFormatContract), nil
}

func (s *Server) readRecordFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "othala://record-format",
			MIMEType: "text/markdown",
			Text:     RecordFormatContract,
		},
	}, nil
}
