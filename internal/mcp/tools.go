package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/seen-labs/seen/internal/extractor"
	"github.com/seen-labs/seen/pkg/types"
)

// MCP error codes
const (
	ErrorCodeInvalidParams = -32602 // Invalid method parameters
	ErrorCodeInternalError = -32603 // Internal JSON-RPC error
	ErrorCodeUnauthorized  = -32001 // Caller not on the allow-list
	ErrorCodeLinkNotFound  = -32002 // No archived link for this URL
	ErrorCodeIngestFailed  = -32003 // Fetch/extract/oracle failure during save
)

// recentListLen is how many links list_links shows alongside the total.
const recentListLen = 10

// handleSaveLink handles the save_link tool invocation
func (s *Server) handleSaveLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := s.authorizedArgs(request)
	if err != nil {
		return nil, err
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	link, err := s.ingest.Ingest(ctx, url)
	if err != nil {
		return nil, newMCPError(ErrorCodeIngestFailed, "could not archive link", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"saved": true,
		"link":  renderLink(link),
	})), nil
}

// handleSearchLinks handles the search_links tool invocation
func (s *Server) handleSearchLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := s.authorizedArgs(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	limit := getIntDefault(args, "limit", s.cfg.TopK)
	if limit < 1 || limit > 25 {
		return nil, newMCPError(ErrorCodeInvalidParams, "limit must be between 1 and 25", map[string]interface{}{
			"param": "limit",
			"value": limit,
		})
	}

	results, err := s.search.Search(ctx, query, limit)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rendered := make([]map[string]interface{}, len(results))
	for i, r := range results {
		rendered[i] = map[string]interface{}{
			"rank":    r.Rank,
			"score":   fmt.Sprintf("%.4f", r.Score),
			"excerpt": r.Excerpt,
			"link":    renderLink(&r.Link),
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"query":   query,
		"count":   len(results),
		"results": rendered,
	})), nil
}

// handleListLinks handles the list_links tool invocation
func (s *Server) handleListLinks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := s.authorizedArgs(request); err != nil {
		return nil, err
	}

	total, err := s.links.Count(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to count links", map[string]interface{}{
			"error": err.Error(),
		})
	}
	recent, err := s.links.ListRecent(ctx, recentListLen)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list links", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rendered := make([]map[string]interface{}, len(recent))
	for i, link := range recent {
		rendered[i] = renderLink(link)
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"total":  total,
		"recent": rendered,
	})), nil
}

// handleGetLink handles the get_link tool invocation
func (s *Server) handleGetLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := s.authorizedArgs(request)
	if err != nil {
		return nil, err
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	link, err := s.links.GetLink(ctx, types.LinkIDFromURL(url))
	if errors.Is(err, types.ErrLinkNotFound) {
		return nil, newMCPError(ErrorCodeLinkNotFound, "link not archived", map[string]interface{}{
			"url": url,
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to read link", map[string]interface{}{
			"error": err.Error(),
		})
	}

	hasBlob, err := s.blobs.Exists(link.BucketPath)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to check stored content", map[string]interface{}{
			"error": err.Error(),
		})
	}

	rendered := renderLink(link)
	rendered["content_stored"] = hasBlob
	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"link": rendered,
	})), nil
}

// handleDeleteLink handles the delete_link tool invocation
func (s *Server) handleDeleteLink(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := s.authorizedArgs(request)
	if err != nil {
		return nil, err
	}

	url, ok := args["url"].(string)
	if !ok || url == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "url parameter is required", map[string]interface{}{
			"param":  "url",
			"reason": "missing or empty",
		})
	}

	if err := s.ingest.Delete(ctx, url); err != nil {
		if errors.Is(err, types.ErrLinkNotFound) {
			return nil, newMCPError(ErrorCodeLinkNotFound, "link not archived", map[string]interface{}{
				"url": url,
			})
		}
		return nil, newMCPError(ErrorCodeInternalError, "failed to delete link", map[string]interface{}{
			"error": err.Error(),
		})
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"deleted": true,
		"url":     url,
	})), nil
}

// authorizedArgs extracts the argument map and enforces the caller
// allow-list. Handlers never reach an orchestrator without passing here.
func (s *Server) authorizedArgs(request mcp.CallToolRequest) (map[string]interface{}, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	callerID, ok := args["caller_id"].(string)
	if !ok || callerID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "caller_id parameter is required", map[string]interface{}{
			"param":  "caller_id",
			"reason": "missing or empty",
		})
	}
	if !s.cfg.Authorized(callerID) {
		s.log.WithField("caller_id", callerID).Warn("rejected unauthorized caller")
		return nil, newMCPError(ErrorCodeUnauthorized, "caller is not authorized", map[string]interface{}{
			"caller_id": callerID,
		})
	}
	return args, nil
}

// renderLink shapes one link for tool output.
func renderLink(link *types.Link) map[string]interface{} {
	return map[string]interface{}{
		"id":          link.ID,
		"url":         link.URL,
		"type":        extractor.TypeLabel(link.ContentType) + " " + link.ContentType,
		"title":       link.Title,
		"summary":     link.Summary,
		"size":        formatSize(link.Size),
		"chunks":      link.ChunkCount,
		"bucket_path": link.BucketPath,
		"saved_at":    link.CreatedAt.Format(time.RFC3339),
	}
}

// formatSize renders a byte count for humans.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}
