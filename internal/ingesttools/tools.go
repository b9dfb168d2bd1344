package ingesttools

import "github.com/mark3labs/mcp-go/mcp"

// indexTool defines the index MCP tool: run a scan-embed-upsert pass
// over the configured docs directory.
var indexTool = mcp.NewTool("index",
	mcp.WithDescription("Index new or changed documents in the configured docs directory into the vector store."),
)

// resetTool defines the reset MCP tool: drop every indexed document so
// the next index call treats every file as new.
var resetTool = mcp.NewTool("reset",
	mcp.WithDescription("Drop every document from the vector store. The next index call re-embeds everything."),
)
