package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kalambet/docstash/internal/index"
	"github.com/kalambet/docstash/internal/storage"
)

// MCPDeps holds dependencies for the MCP server.
type MCPDeps struct {
	Store    *storage.Store
	Analyzer *index.Analyzer
}

// NewMCPServer creates an MCP server exposing the document store as tools:
// ranked search, document fetch, and tag listing.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"docstash",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("docstash: searchable store of ingested PDF documents."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_documents",
			mcp.WithDescription("Search ingested documents by free text and return ranked hits with snippets."),
			mcp.WithString("query", mcp.Description("Search query"), mcp.Required()),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 10)")),
		),
		mcpSearchDocuments(deps),
	)

	s.AddTool(
		mcp.NewTool("get_document",
			mcp.WithDescription("Fetch one document by id, including its extracted text and tags."),
			mcp.WithNumber("id", mcp.Description("Document id"), mcp.Required()),
		),
		mcpGetDocument(deps),
	)

	s.AddTool(
		mcp.NewTool("list_tags",
			mcp.WithDescription("List all tags known to the document store."),
		),
		mcpListTags(deps),
	)

	return s
}

func mcpSearchDocuments(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 10)
		if limit <= 0 {
			limit = 10
		}
		if limit > maxSearchResults {
			limit = maxSearchResults
		}

		terms := deps.Analyzer.Tokens(query)
		if len(terms) == 0 {
			return mcpText("[]"), nil
		}

		hits, err := deps.Store.SearchByTerms(terms, limit)
		if err != nil {
			return mcpError(fmt.Sprintf("search failed: %v", err)), nil
		}

		results := make([]searchResultResponse, len(hits))
		for i, h := range hits {
			results[i] = searchResultResponse{
				ID:       h.ID,
				Filename: h.Filename,
				Snippet:  deps.Analyzer.Snippet(h.Content, terms),
				Rank:     h.Rank,
			}
		}

		b, err := json.Marshal(results)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpGetDocument(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		id := req.GetInt("id", 0)
		if id <= 0 {
			return mcpError("id is required"), nil
		}

		doc, err := deps.Store.GetDocument(int64(id))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get document: %v", err)), nil
		}

		status, err := deps.Store.GetDocumentStatus(doc.ID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get status: %v", err)), nil
		}

		tags, err := deps.Store.ListDocumentTags(doc.ID)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to get tags: %v", err)), nil
		}

		b, err := json.Marshal(documentDetailResponse{
			ID:        doc.ID,
			Filename:  doc.Filename,
			Content:   doc.Content,
			FileSize:  doc.FileSize,
			PageCount: doc.PageCount,
			Status:    status,
			CreatedAt: doc.CreatedAt.Format(time.RFC3339),
			Tags:      toTagResponses(tags),
		})
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal document: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpListTags(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		tags, err := deps.Store.ListTags()
		if err != nil {
			return mcpError(fmt.Sprintf("failed to list tags: %v", err)), nil
		}

		b, err := json.Marshal(toTagResponses(tags))
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal tags: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
