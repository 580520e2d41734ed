package pipeline_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/adaptivestats"
	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/coreports"
	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/pipeline"
)

func writeManual(t *testing.T, root, manualID string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, manualID)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
}

func newPipeline(t *testing.T) (*pipeline.Pipeline, string) {
	t.Helper()
	root := t.TempDir()
	writeManual(t, root, "net-guide", map[string]string{
		"guide.md": "# Backup Rotation\n\nRotate backups nightly to avoid disk exhaustion.\n\n# Network Timeout\n\nTimeouts default to 30 seconds on retry.\n",
	})

	cfg := config.Defaults()
	cfg.ManualsRoot = root
	cfg.AdaptiveStatsPath = filepath.Join(root, "stats.jsonl")

	provider := docstore.NewFilesystem(root)
	stats := adaptivestats.New(cfg.AdaptiveStatsPath)
	p := pipeline.New(cfg, provider, coreports.SystemClock{}, nil, stats)
	t.Cleanup(p.Close)
	return p, root
}

func TestFindRejectsUnknownManual(t *testing.T) {
	p, _ := newPipeline(t)
	_, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup", ManualID: "does-not-exist", RequiredTerms: []string{"backup"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.Error(t, err)
}

func TestFindReturnsCandidatesAndTraceID(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, payload["trace_id"])
	assert.Contains(t, payload, "candidates")
	assert.Contains(t, payload, "claim_graph")
	claimGraph, ok := payload["claim_graph"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, claimGraph["claims"])
}

func TestFindCompactShapeOmitsFullPayload(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true, Compact: true,
	})
	require.NoError(t, err)
	assert.Contains(t, payload, "status")
	assert.Contains(t, payload, "candidates")
	assert.NotContains(t, payload, "claim_graph")
	assert.NotContains(t, payload, "integrated_top")
}

func TestFindThenHitsPagesCandidates(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	traceID, _ := payload["trace_id"].(string)
	require.NotEmpty(t, traceID)

	page, err := p.Hits(pipeline.HitsParams{TraceID: traceID, Kind: pipeline.KindCandidates, Offset: 0, Limit: 10})
	require.NoError(t, err)
	assert.Contains(t, page, "items")
}

func TestFindThenHitsPagesGateRuns(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	traceID, _ := payload["trace_id"].(string)
	require.NotEmpty(t, traceID)

	page, err := p.Hits(pipeline.HitsParams{TraceID: traceID, Kind: pipeline.KindGateRuns, Offset: 0, Limit: 10})
	require.NoError(t, err)
	items, _ := page["items"].([]any)
	require.NotEmpty(t, items)
	run, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "g0", run["gate"])
	assert.Contains(t, run, "candidate_count")
	assert.Contains(t, run, "elapsed_ms")
}

func TestFindGateRunsIncludesPRFStage(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	traceID, _ := payload["trace_id"].(string)
	require.NotEmpty(t, traceID)

	page, err := p.Hits(pipeline.HitsParams{TraceID: traceID, Kind: pipeline.KindGateRuns, Offset: 0, Limit: 10})
	require.NoError(t, err)
	items, _ := page["items"].([]any)
	var sawPRF bool
	for _, item := range items {
		run, ok := item.(map[string]any)
		require.True(t, ok)
		if run["gate"] == "prf" {
			sawPRF = true
		}
	}
	assert.True(t, sawPRF)
}

func TestFindThenHitsPagesFusionDebugForTwoTermRequired(t *testing.T) {
	p, _ := newPipeline(t)
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"backup", "rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	traceID, _ := payload["trace_id"].(string)
	require.NotEmpty(t, traceID)

	page, err := p.Hits(pipeline.HitsParams{TraceID: traceID, Kind: pipeline.KindFusionDebug, Offset: 0, Limit: 50})
	require.NoError(t, err)
	items, _ := page["items"].([]any)
	require.NotEmpty(t, items)
	tuple, ok := items[0].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, tuple, "node_id")
	assert.Contains(t, tuple, "rank_i")
	assert.Contains(t, tuple, "rrf_contribution")
}

func TestFindReportsStageCapWhenPerFileCandidateCapTrims(t *testing.T) {
	root := t.TempDir()
	writeManual(t, root, "net-guide", map[string]string{
		"guide.md": "# Backup Rotation\n\nRotate backups nightly to avoid disk exhaustion.\n\n# Network Timeout\n\nTimeouts default to 30 seconds on retry.\n",
	})

	cfg := config.Defaults()
	cfg.ManualsRoot = root
	cfg.AdaptiveStatsPath = filepath.Join(root, "stats.jsonl")
	cfg.PerFileCandidateCap = 1

	provider := docstore.NewFilesystem(root)
	stats := adaptivestats.New(cfg.AdaptiveStatsPath)
	p := pipeline.New(cfg, provider, coreports.SystemClock{}, nil, stats)
	t.Cleanup(p.Close)

	// "to" appears in both sections, which share the "guide.md" path, so
	// capping per-file candidates to 1 should trim one of them.
	payload, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "to", ManualID: "net-guide", RequiredTerms: []string{},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)
	applied, ok := payload["applied"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "stage_cap", applied["cutoff_reason"])
}

func TestHitsRejectsUnknownTrace(t *testing.T) {
	p, _ := newPipeline(t)
	_, err := p.Hits(pipeline.HitsParams{TraceID: "nope", Kind: pipeline.KindCandidates, Offset: 0, Limit: 10})
	require.Error(t, err)
}

func TestInvalidateDropsManualState(t *testing.T) {
	p, _ := newPipeline(t)
	_, err := p.Find(context.Background(), pipeline.FindParams{
		Query: "backup rotation", ManualID: "net-guide", RequiredTerms: []string{"rotation"},
		Budget: pipeline.Budget{TimeMs: 2000, MaxCandidates: 20}, UseCache: true,
	})
	require.NoError(t, err)

	result, err := p.Invalidate(context.Background(), "net-guide")
	require.NoError(t, err)
	assert.Equal(t, "net-guide", result["manual_id"])
}
