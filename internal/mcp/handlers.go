package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/claro-ai/claro/internal/retriever"
)

// handleSearchDocuments performs retrieval over the user's indexed documents.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}
	limit := request.GetInt("limit", 3)

	results, err := s.pipe.Search(ctx, userID, query, nil, limit)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No matching passages found. The user may not have any indexed documents yet."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// handleAskDocuments answers a question over the user's documents.
func (s *Server) handleAskDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	userID, err := request.RequireString("user_id")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: user_id"), nil
	}
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	ans, err := s.pipe.Ask(ctx, userID, question, nil, nil)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("question failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(ans.Text)
	if len(ans.Citations) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, c := range ans.Citations {
			fmt.Fprintf(&sb, "- %s (chunk %d)\n", c.DocID, c.Seq)
		}
	}
	return mcp.NewToolResultText(sb.String()), nil
}

// formatSearchResults renders ranked passages as readable text.
func formatSearchResults(results []retriever.Result) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d passages:\n\n", len(results))
	for i, r := range results {
		fmt.Fprintf(&sb, "%d. %s (chunk %d, score %.3f)\n%s\n\n",
			i+1, r.DocID, r.Chunk.Seq, r.Similarity, r.Chunk.Text)
	}
	return strings.TrimRight(sb.String(), "\n")
}
