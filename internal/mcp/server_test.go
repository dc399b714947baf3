package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	mcpgo "github.com/mark3labs/mcp-go/mcp"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seen-labs/seen/internal/blobstore"
	"github.com/seen-labs/seen/internal/config"
	"github.com/seen-labs/seen/internal/fetcher"
	"github.com/seen-labs/seen/internal/ingest"
	"github.com/seen-labs/seen/internal/oracle"
	"github.com/seen-labs/seen/internal/search"
	"github.com/seen-labs/seen/internal/store"
	"github.com/seen-labs/seen/internal/vecindex"
)

const pageHTML = `<!DOCTYPE html>
<html><head><title>Sourdough Starter Guide</title></head><body><article>
<p>A sourdough starter is a live culture of flour and water that you feed daily until it doubles reliably and smells pleasantly sour.</p>
<p>Keep the starter at room temperature while establishing it, and discard half before each feeding so the acidity stays in balance.</p>
</article></body></html>`

func setupServer(t *testing.T) (*Server, string, *int32) {
	t.Helper()

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(pageHTML))
	}))
	t.Cleanup(srv.Close)

	links, err := store.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = links.Close() })

	vectors, err := vecindex.New(":memory:", oracle.Dimension)
	require.NoError(t, err)
	t.Cleanup(func() { _ = vectors.Close() })

	blobs, err := blobstore.New(t.TempDir())
	require.NoError(t, err)

	oc, err := oracle.NewLocalProvider(oracle.NewCache(100))
	require.NoError(t, err)

	log := logrus.New()
	log.SetOutput(io.Discard)

	cfg := &config.Config{
		AllowedCallers: []string{"alice"},
		TopK:           5,
	}

	ing := ingest.New(fetcher.New(5*time.Second, 1<<20), oc, blobs, vectors, links, 300, log)
	srch := search.New(oc, vectors, links, 4, 0, log)

	return NewServer(cfg, ing, srch, links, blobs, log), srv.URL, &hits
}

func callRequest(name string, args map[string]interface{}) mcpgo.CallToolRequest {
	return mcpgo.CallToolRequest{
		Params: mcpgo.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func resultJSON(t *testing.T, result *mcpgo.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	text, ok := mcpgo.AsTextContent(result.Content[0])
	require.True(t, ok)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func TestAuthorizationBoundary(t *testing.T) {
	s, url, hits := setupServer(t)
	ctx := context.Background()

	calls := []struct {
		name string
		fn   func(context.Context, mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error)
		args map[string]interface{}
	}{
		{"save_link", s.handleSaveLink, map[string]interface{}{"url": url}},
		{"search_links", s.handleSearchLinks, map[string]interface{}{"query": "anything"}},
		{"list_links", s.handleListLinks, map[string]interface{}{}},
		{"get_link", s.handleGetLink, map[string]interface{}{"url": url}},
		{"delete_link", s.handleDeleteLink, map[string]interface{}{"url": url}},
	}

	for _, call := range calls {
		t.Run(call.name, func(t *testing.T) {
			call.args["caller_id"] = "mallory"
			_, err := call.fn(ctx, callRequest(call.name, call.args))
			require.Error(t, err)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, ErrorCodeUnauthorized, mcpErr.Code)
		})
	}

	// No orchestrator ran: nothing was ever fetched.
	assert.EqualValues(t, 0, atomic.LoadInt32(hits))
}

func TestMissingCallerID(t *testing.T) {
	s, url, _ := setupServer(t)

	_, err := s.handleSaveLink(context.Background(), callRequest("save_link", map[string]interface{}{"url": url}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestSaveSearchGetDeleteFlow(t *testing.T) {
	s, url, _ := setupServer(t)
	ctx := context.Background()
	pageURL := url + "/sourdough"

	// Save.
	result, err := s.handleSaveLink(ctx, callRequest("save_link", map[string]interface{}{
		"url":       pageURL,
		"caller_id": "alice",
	}))
	require.NoError(t, err)
	saved := resultJSON(t, result)
	assert.Equal(t, true, saved["saved"])
	link := saved["link"].(map[string]interface{})
	assert.NotEmpty(t, link["title"])
	assert.Contains(t, link["bucket_path"], "content/")

	// Search finds it.
	result, err = s.handleSearchLinks(ctx, callRequest("search_links", map[string]interface{}{
		"query":     "sourdough starter feeding",
		"caller_id": "alice",
	}))
	require.NoError(t, err)
	found := resultJSON(t, result)
	require.GreaterOrEqual(t, found["count"].(float64), float64(1))

	// List shows it.
	result, err = s.handleListLinks(ctx, callRequest("list_links", map[string]interface{}{
		"caller_id": "alice",
	}))
	require.NoError(t, err)
	listed := resultJSON(t, result)
	assert.Equal(t, float64(1), listed["total"])

	// Get returns the record with its blob present.
	result, err = s.handleGetLink(ctx, callRequest("get_link", map[string]interface{}{
		"url":       pageURL,
		"caller_id": "alice",
	}))
	require.NoError(t, err)
	got := resultJSON(t, result)
	gotLink := got["link"].(map[string]interface{})
	assert.Equal(t, true, gotLink["content_stored"])

	// Delete removes it.
	result, err = s.handleDeleteLink(ctx, callRequest("delete_link", map[string]interface{}{
		"url":       pageURL,
		"caller_id": "alice",
	}))
	require.NoError(t, err)
	deleted := resultJSON(t, result)
	assert.Equal(t, true, deleted["deleted"])

	_, err = s.handleGetLink(ctx, callRequest("get_link", map[string]interface{}{
		"url":       pageURL,
		"caller_id": "alice",
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeLinkNotFound, mcpErr.Code)
}

func TestSearchLinks_LimitValidation(t *testing.T) {
	s, _, _ := setupServer(t)

	_, err := s.handleSearchLinks(context.Background(), callRequest("search_links", map[string]interface{}{
		"query":     "anything",
		"caller_id": "alice",
		"limit":     float64(100),
	}))
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512 B", formatSize(512))
	assert.Equal(t, "1.0 KB", formatSize(1024))
	assert.Equal(t, "1.5 MB", formatSize(3<<20/2))
	assert.Equal(t, "2.0 GB", formatSize(2<<30))
}
