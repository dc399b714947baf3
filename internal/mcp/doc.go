// Package mcp is the archive's front-end boundary: an MCP stdio server
// exposing save, search, list, get, and delete over the orchestrators.
//
// The server speaks JSON-RPC over stdin/stdout, which is why nothing in
// this process may log to stdout. Each tool call carries a caller_id that
// is checked against the configured allow-list before any orchestrator is
// invoked; an unauthorized caller gets a protocol error and causes no
// fetches, no oracle calls, and no writes.
//
// Tools:
//
//   - save_link: archive a URL end to end and return the saved-link card.
//   - search_links: semantic search over archived links.
//   - list_links: archive total plus the most recent saves.
//   - get_link: one link's stored record, including whether its raw
//     content blob is still present.
//   - delete_link: full removal (record, vectors, blob).
package mcp
