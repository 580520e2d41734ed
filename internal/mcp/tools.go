package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/manualcore/internal/coreerrors"
	"github.com/dshills/manualcore/internal/pipeline"
)

// MCP error codes
const (
	ErrorCodeInvalidParams  = -32602 // Invalid method parameters
	ErrorCodeInternalError  = -32603 // Internal JSON-RPC error
	ErrorCodeManualNotFound = -32001 // Specified manual_id does not exist
	ErrorCodeTraceNotFound  = -32002 // Specified trace_id does not exist
)

// handleManualFind handles the manual_find tool invocation.
func (s *Server) handleManualFind(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	params, err := pipeline.ParseFindParams(args)
	if err != nil {
		return nil, errorFromCore(err)
	}

	payload, err := s.pipeline.Find(ctx, params)
	if err != nil {
		return nil, errorFromCore(err)
	}

	return mcp.NewToolResultText(formatJSON(payload)), nil
}

// handleManualHits handles the manual_hits tool invocation.
func (s *Server) handleManualHits(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	params, err := pipeline.ParseHitsParams(args)
	if err != nil {
		return nil, errorFromCore(err)
	}

	page, err := s.pipeline.Hits(params)
	if err != nil {
		return nil, errorFromCore(err)
	}

	return mcp.NewToolResultText(formatJSON(page)), nil
}

// handleManualInvalidate handles the manual_invalidate tool invocation.
func (s *Server) handleManualInvalidate(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	manualID, _ := args["manual_id"].(string)
	if manualID == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "manual_id parameter is required", map[string]interface{}{
			"param":  "manual_id",
			"reason": "missing or empty",
		})
	}

	result, err := s.pipeline.Invalidate(ctx, manualID)
	if err != nil {
		return nil, errorFromCore(err)
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// Helper functions

// errorFromCore maps a coreerrors.Error onto the JSON-RPC error codes this
// transport advertises, preserving the original code/details in Data.
func errorFromCore(err error) error {
	coreErr, ok := coreerrors.As(err)
	if !ok {
		return newMCPError(ErrorCodeInternalError, err.Error(), nil)
	}

	code := ErrorCodeInvalidParams
	if coreErr.Code == coreerrors.CodeNotFound {
		code = ErrorCodeManualNotFound
		if reason, _ := coreErr.Details["reason"].(string); reason == "trace_not_found" {
			code = ErrorCodeTraceNotFound
		}
	}

	return newMCPError(code, coreErr.Message, coreErr.ToMap())
}

// newMCPError creates a properly formatted MCP error.
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error.
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a value as indented JSON.
func formatJSON(data interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}
