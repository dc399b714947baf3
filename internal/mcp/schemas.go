package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// callerIDProperty is shared by every tool; the allow-list check runs before
// any orchestrator is invoked.
func callerIDProperty() map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": "Identity of the caller, checked against the configured allow-list",
	}
}

// saveLinkTool returns the tool definition for save_link
func saveLinkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "save_link",
		Description: "Archive a URL: fetch it, extract and index its text, and store it for semantic search",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The http(s) URL to archive",
				},
				"caller_id": callerIDProperty(),
			},
			Required: []string{"url", "caller_id"},
		},
	}
}

// searchLinksTool returns the tool definition for search_links
func searchLinksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_links",
		Description: "Search archived links by meaning, not keywords; returns the best-matching links with excerpts",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Natural language search query",
				},
				"limit": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of links to return (1-25)",
					"default":     5,
					"minimum":     1,
					"maximum":     25,
				},
				"caller_id": callerIDProperty(),
			},
			Required: []string{"query", "caller_id"},
		},
	}
}

// listLinksTool returns the tool definition for list_links
func listLinksTool() mcp.Tool {
	return mcp.Tool{
		Name:        "list_links",
		Description: "Show the archive's total size and its most recently saved links",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"caller_id": callerIDProperty(),
			},
			Required: []string{"caller_id"},
		},
	}
}

// getLinkTool returns the tool definition for get_link
func getLinkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_link",
		Description: "Fetch the stored record for one archived URL",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The URL the link was archived under",
				},
				"caller_id": callerIDProperty(),
			},
			Required: []string{"url", "caller_id"},
		},
	}
}

// deleteLinkTool returns the tool definition for delete_link
func deleteLinkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "delete_link",
		Description: "Remove an archived URL: its record, its search index entries, and its stored content",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"url": map[string]interface{}{
					"type":        "string",
					"description": "The URL the link was archived under",
				},
				"caller_id": callerIDProperty(),
			},
			Required: []string{"url", "caller_id"},
		},
	}
}
