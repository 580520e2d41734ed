package adaptivestats_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/adaptivestats"
	"github.com/dshills/manualcore/internal/config"
)

func TestAppendThenTailReadsBackPersistedRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stats.jsonl")
	w := adaptivestats.New(path)

	for i := 0; i < 3; i++ {
		w.Append(adaptivestats.Row{"candidates": i})
	}
	w.Stop()

	rows := w.Tail(0)
	require.Len(t, rows, 3)
}

func TestTailOnMissingFileReturnsNil(t *testing.T) {
	w := adaptivestats.New(filepath.Join(t.TempDir(), "never-written.jsonl"))
	defer w.Stop()
	assert.Nil(t, w.Tail(10))
}

func TestThresholdsReturnsBaseWhenTuningDisabled(t *testing.T) {
	w := adaptivestats.New(filepath.Join(t.TempDir(), "stats.jsonl"))
	defer w.Stop()

	cfg := config.Defaults()
	cfg.AdaptiveTuning = false
	low, bias := w.Thresholds(cfg)
	assert.Equal(t, cfg.AdaptiveCandidateLowBase, low)
	assert.Equal(t, cfg.AdaptiveFileBiasBase, bias)
}

func TestThresholdsReturnsBaseWithInsufficientSamples(t *testing.T) {
	w := adaptivestats.New(filepath.Join(t.TempDir(), "stats.jsonl"))
	defer w.Stop()

	cfg := config.Defaults()
	cfg.AdaptiveTuning = true
	w.Append(adaptivestats.Row{"candidates": 5})
	time.Sleep(10 * time.Millisecond)

	low, bias := w.Thresholds(cfg)
	assert.Equal(t, cfg.AdaptiveCandidateLowBase, low)
	assert.Equal(t, cfg.AdaptiveFileBiasBase, bias)
}
