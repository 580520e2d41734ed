// Package mcp implements the Model Context Protocol (MCP) server for the
// manual retrieval core.
//
// The MCP server exposes three tools:
//   - manual_find: run the gate/fusion/cutoff pipeline against a manual
//   - manual_hits: page through a prior trace's hit arrays without rerunning
//   - manual_invalidate: drop a manual's index, cache, and trace entries
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// # Basic Usage
//
// The server is started via the serve command:
//
//	manualcore serve
//
// It listens on stdin for MCP protocol messages and writes responses to stdout.
//
// # Tool: manual_find
//
//	Request:
//	{
//	  "name": "manual_find",
//	  "arguments": {
//	    "manual_id": "network-guide",
//	    "query": "backup rotation",
//	    "required_terms": ["rotation"],
//	    "budget": {"time_ms": 2000, "max_candidates": 20}
//	  }
//	}
//
//	Response:
//	{
//	  "trace_id": "...",
//	  "candidates": [...],
//	  "integrated_top": [...],
//	  "claim_graph": {"claims": [], "evidences": [], "edges": []},
//	  "summary": {...}
//	}
//
// # Tool: manual_hits
//
//	Request:
//	{
//	  "name": "manual_hits",
//	  "arguments": {"trace_id": "...", "kind": "candidates", "offset": 0, "limit": 20}
//	}
//
// # Tool: manual_invalidate
//
//	Request:
//	{
//	  "name": "manual_invalidate",
//	  "arguments": {"manual_id": "network-guide"}
//	}
//
// # Error Handling
//
// Domain failures surface as coreerrors.Error values with a flat,
// string-coded catalogue (invalid_parameter, not_found, conflict, ...).
// Handlers translate those into MCPError values carrying a JSON-RPC code
// alongside the original string code and details in Data, so a client can
// branch on the catalogue without string-matching Message:
//
//	{
//	  "error": {
//	    "code": -32602,
//	    "message": "manual_id must be a non-empty string",
//	    "data": {"code": "invalid_parameter"}
//	  }
//	}
//
// Error codes:
//   - -32602: Invalid params (failed validation in internal/pipeline)
//   - -32603: Internal error (index build, cache, trace store)
//   - -32001: Manual not found
//   - -32002: Trace not found
//
// # Implementation Details
//
// The package uses github.com/mark3labs/mcp-go for protocol implementation:
//
//	srv := server.NewMCPServer(...)
//	srv.AddTool(manualFindTool(), s.handleManualFind)
//	srv.AddTool(manualHitsTool(), s.handleManualHits)
//	srv.AddTool(manualInvalidateTool(), s.handleManualInvalidate)
//	server.ServeStdio(srv)
//
// # Logging
//
// The server logs to stderr (stdout is reserved for MCP protocol) via
// log/slog, matching the structured logging used elsewhere in this module.
// Set the level via LOG_LEVEL.
package mcp
