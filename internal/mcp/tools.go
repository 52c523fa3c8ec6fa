package mcp

import "github.com/mark3labs/mcp-go/mcp"

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search a user's uploaded documents semantically. Returns the most relevant passages with their document and chunk provenance."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Owner whose documents are searched"),
	),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 3)"),
	),
)

// askDocumentsTool defines the ask_documents MCP tool.
var askDocumentsTool = mcp.NewTool("ask_documents",
	mcp.WithDescription("Ask a question over a user's uploaded documents and get a grounded answer with citations."),
	mcp.WithString("user_id",
		mcp.Required(),
		mcp.Description("Owner whose documents are consulted"),
	),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("The question to answer"),
	),
)
