package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/config"
)

func TestNewServer_InitializesComponents(t *testing.T) {
	cfg := config.Defaults()
	cfg.ManualsRoot = t.TempDir()
	cfg.AdaptiveStatsPath = ""

	s, err := NewServer(cfg)
	require.NoError(t, err)
	defer s.pipeline.Close()

	assert.NotNil(t, s.mcp)
	assert.NotNil(t, s.pipeline)
	assert.NotNil(t, s.log)
}

func TestNewServer_RegistersAllThreeTools(t *testing.T) {
	cfg := config.Defaults()
	cfg.ManualsRoot = t.TempDir()
	cfg.AdaptiveStatsPath = ""

	s, err := NewServer(cfg)
	require.NoError(t, err)
	defer s.pipeline.Close()

	// registerTools is exercised by NewServer itself; a nil mcp server or a
	// panic during AddTool would have already failed the constructor call
	// above, so the assertion here just confirms the schemas build cleanly.
	assert.Equal(t, "manual_find", manualFindTool().Name)
	assert.Equal(t, "manual_hits", manualHitsTool().Name)
	assert.Equal(t, "manual_invalidate", manualInvalidateTool().Name)
}
