package mcp

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/coreerrors"
)

func TestErrorFromCoreMapsUnknownManualToManualNotFound(t *testing.T) {
	err := coreerrors.New(coreerrors.CodeNotFound, "unknown manual", map[string]any{"reason": "unknown_manual", "manual_id": "m1"})
	mcpErr, ok := errorFromCore(err).(*MCPError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeManualNotFound, mcpErr.Code)
}

func TestErrorFromCoreMapsTraceNotFoundToTraceNotFound(t *testing.T) {
	err := coreerrors.New(coreerrors.CodeNotFound, "trace expired or unknown", map[string]any{"reason": "trace_not_found", "trace_id": "t1"})
	mcpErr, ok := errorFromCore(err).(*MCPError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeTraceNotFound, mcpErr.Code)
}

func TestErrorFromCoreMapsOtherCodesToInvalidParams(t *testing.T) {
	err := coreerrors.New(coreerrors.CodeInvalidParameter, "bad input", nil)
	mcpErr, ok := errorFromCore(err).(*MCPError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeInvalidParams, mcpErr.Code)
}

func TestErrorFromCoreMapsForeignErrorToInternalError(t *testing.T) {
	mcpErr, ok := errorFromCore(errors.New("boom")).(*MCPError)
	assert.True(t, ok)
	assert.Equal(t, ErrorCodeInternalError, mcpErr.Code)
}
