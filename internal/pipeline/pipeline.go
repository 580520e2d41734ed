package pipeline

import (
	"context"
	"sort"
	"time"

	"github.com/dshills/manualcore/internal/adaptivestats"
	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/coreerrors"
	"github.com/dshills/manualcore/internal/coreports"
	"github.com/dshills/manualcore/internal/cutoff"
	"github.com/dshills/manualcore/internal/decomposer"
	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/gates"
	"github.com/dshills/manualcore/internal/lexsignals"
	"github.com/dshills/manualcore/internal/normalize"
	"github.com/dshills/manualcore/internal/rank"
	"github.com/dshills/manualcore/internal/rrf"
	"github.com/dshills/manualcore/internal/semcache"
	"github.com/dshills/manualcore/internal/sparseindex"
	"github.com/dshills/manualcore/internal/tokenize"
	"github.com/dshills/manualcore/internal/tracestore"

	"golang.org/x/sync/errgroup"
)

// Pipeline wires every retrieval component into the find/hits/invalidate
// contract spec.md §4.11 and §6 document.
type Pipeline struct {
	cfg      config.Config
	provider coreports.ContentProvider
	store    *docstore.Store
	indexes  *sparseindex.Manager
	cache    *semcache.Cache
	traces   *tracestore.Store
	stats    *adaptivestats.Writer
	clock    coreports.Clock
}

// New builds a Pipeline over provider, wiring the SparseIndex manager,
// SemanticCache, TraceStore, and AdaptiveStats sink from cfg.
func New(cfg config.Config, provider coreports.ContentProvider, clock coreports.Clock, idGen coreports.IDGenerator, stats *adaptivestats.Writer) *Pipeline {
	if clock == nil {
		clock = coreports.SystemClock{}
	}
	store := docstore.New(provider)
	return &Pipeline{
		cfg:      cfg,
		provider: provider,
		store:    store,
		indexes:  sparseindex.NewManager(store),
		cache:    semcache.New(cfg.SemCacheMaxKeep, time.Duration(cfg.SemCacheTTLSec)*time.Second, cfg.SemCacheMaxSummaryGap, cfg.SemCacheMaxSummaryConflict, clock),
		traces:   tracestore.New(cfg.TraceMaxKeep, time.Duration(cfg.TraceTTLSec)*time.Second, clock, idGen),
		stats:    stats,
		clock:    clock,
	}
}

// Close releases the DocumentStore's filesystem watcher and stops the
// AdaptiveStats writer.
func (p *Pipeline) Close() {
	p.store.Close()
	if p.stats != nil {
		p.stats.Stop()
	}
}

// Find implements the find() entry point: validate, fingerprint, try the
// cache, run the gates and optional decomposition, diversity-rerank,
// dynamically cut off, persist the trace, and return a well-formed payload
// in either shape requested.
func (p *Pipeline) Find(ctx context.Context, params FindParams) (tracestore.Payload, error) {
	start := p.clock.Now()

	if !p.provider.ManualExists(ctx, params.ManualID) {
		return nil, coreerrors.New(coreerrors.CodeNotFound, "unknown manual", map[string]any{"reason": "unknown_manual", "manual_id": params.ManualID})
	}

	var unscannedTrace tracestore.Payload
	if params.OnlyUnscannedFromTraceID != "" {
		unscannedTrace = p.traces.Get(params.OnlyUnscannedFromTraceID)
		if unscannedTrace == nil {
			return nil, coreerrors.New(coreerrors.CodeNotFound, "trace expired or unknown", map[string]any{"reason": "trace_not_found", "trace_id": params.OnlyUnscannedFromTraceID})
		}
	}

	fingerprint, err := docstore.Fingerprint(ctx, p.provider, params.ManualID)
	if err != nil {
		return nil, err
	}

	bypass := params.IncludeClaimGraph || !params.UseCache || params.OnlyUnscannedFromTraceID != "" || params.Compact
	normalizedQuery := normalize.Text(params.Query)

	var cacheKey semcache.Key
	cacheMode := semcache.ModeBypass
	if !bypass && p.cfg.SemCacheEnabled {
		cacheKey = semcache.Key{
			ManualsFingerprint: fingerprint,
			NormalizedQuery:    normalizedQuery,
			RequiredTerms:      params.RequiredTerms,
			MaxCandidates:      params.Budget.MaxCandidates,
			TimeMs:             params.Budget.TimeMs,
			ScopeBits:          scopeBits(params),
		}
		if payload, mode := p.cache.Lookup(cacheKey); mode == semcache.ModeExact {
			cacheMode = mode
			return p.copyFromCache(params.ManualID, payload), nil
		} else {
			cacheMode = mode
		}
	}

	result := p.runGatesAndFusion(ctx, params, fingerprint, normalizedQuery, start)
	result.applied["sem_cache_hit"] = false
	result.applied["sem_cache_mode"] = string(cacheMode)

	payload := p.buildPayload(params, fingerprint, result)
	traceID := p.traces.Create(params.ManualID, payload)
	payload["trace_id"] = traceID

	sourceLatencyMs := p.clock.Now().Sub(start).Milliseconds()
	payload["source_latency_ms"] = sourceLatencyMs

	if !bypass && p.cfg.SemCacheEnabled {
		p.cache.Put(cacheKey, payload, result.gapCount, result.conflictCount)
	}

	if p.stats != nil {
		var fileBiasRatio float64
		if summary, ok := payload["summary"].(map[string]any); ok {
			fileBiasRatio, _ = summary["file_bias_ratio"].(float64)
		}
		p.stats.Append(adaptivestats.Row{
			"ts":              p.clock.Now().UnixMilli(),
			"manual_id":       params.ManualID,
			"scanned_files":   result.scannedFiles,
			"candidates":      len(result.final),
			"file_bias_ratio": fileBiasRatio,
			"sem_cache_hit":   false,
			"sem_cache_mode":  string(cacheMode),
			"scoring_mode":    result.applied["selected_gate"],
			"cutoff_reason":   result.applied["cutoff_reason"],
		})
	}

	if params.Compact {
		return p.compactShape(traceID, payload, params), nil
	}
	return payload, nil
}

func scopeBits(params FindParams) string {
	bits := "std"
	if params.ExpandScope {
		bits = "expanded"
	}
	return bits
}

func (p *Pipeline) copyFromCache(manualID string, payload tracestore.Payload) tracestore.Payload {
	cloned := make(tracestore.Payload, len(payload))
	for k, v := range payload {
		cloned[k] = v
	}
	cloned["sem_cache_hit"] = true
	cloned["sem_cache_mode"] = string(semcache.ModeExact)
	traceID := p.traces.Create(manualID, cloned)
	cloned["trace_id"] = traceID
	return cloned
}

type gateResult struct {
	applied       map[string]any
	final         rank.Ranking
	scannedFiles  int
	scannedNodes  int
	gapCount      int
	conflictCount int
	cutoffReason  cutoff.Reason
	gateRuns      []map[string]any
	fusionDebug   []map[string]any
}

func (p *Pipeline) runGatesAndFusion(ctx context.Context, params FindParams, fingerprint, normalizedQuery string, start time.Time) gateResult {
	applied := map[string]any{}
	deadline := start.Add(time.Duration(params.Budget.TimeMs) * time.Millisecond)

	idx, err := p.indexes.Get(ctx, params.ManualID, fingerprint)
	if err != nil || idx == nil {
		applied["selected_gate"] = "g0"
		return gateResult{applied: applied, final: nil, cutoffReason: cutoff.ReasonNone}
	}

	files, _ := p.provider.Files(ctx, params.ManualID)

	queryTerms := normalize.SplitTerms(params.Query)
	queryTokens := tokenize.TokenizeQuery(params.Query)

	filteredTerms, dfDecisions := gates.FilterRequiredTerms(idx, params.RequiredTerms, p.cfg.TooCommonDFRatio, p.cfg.TooRareDFRatio)
	applied["required_terms_df_filtered"] = dfFilteredToMaps(dfDecisions)

	timeBudgetHit := p.clock.Now().After(deadline)

	var g0, gReq rank.Ranking
	var g0ElapsedMs, gReqElapsedMs int64
	var reqFusionDebug []map[string]any
	var g0StageCapHit bool
	gReqRan := !timeBudgetHit && len(filteredTerms) > 0

	var grp errgroup.Group
	grp.Go(func() error {
		t0 := p.clock.Now()
		g0, g0StageCapHit = gates.BaselineGate(p.cfg, idx, queryTerms, queryTokens, nil)
		g0ElapsedMs = p.clock.Now().Sub(t0).Milliseconds()
		return nil
	})
	if gReqRan {
		grp.Go(func() error {
			t0 := p.clock.Now()
			gReq, reqFusionDebug = gates.RequiredGate(p.cfg, idx, queryTerms, filteredTerms, queryTokens, nil)
			gReqElapsedMs = p.clock.Now().Sub(t0).Milliseconds()
			return nil
		})
	}
	_ = grp.Wait()

	gateRuns := []map[string]any{
		{"gate": "g0", "candidate_count": len(g0), "elapsed_ms": g0ElapsedMs},
	}
	if gReqRan {
		gateRuns = append(gateRuns, map[string]any{"gate": "g_req", "candidate_count": len(gReq), "elapsed_ms": gReqElapsedMs})
	}
	fusionDebug := append([]map[string]any{}, reqFusionDebug...)

	topKForEffect := params.Budget.MaxCandidates
	selection := gates.Select(g0, gReq, filteredTerms, topKForEffect)
	applied["selected_gate"] = selection.SelectedGate
	applied["required_terms_relaxed"] = selection.RequiredTermsRelaxed
	if selection.RelaxReason != "" {
		applied["required_terms_relax_reason"] = selection.RelaxReason
	}
	applied["required_effect_status"] = string(selection.RequiredEffectStatus)

	finalRanking := selection.Candidates

	if !timeBudgetHit && p.cfg.QueryDecompEnabled {
		t0 := p.clock.Now()
		var decompFusionDebug []map[string]any
		finalRanking, decompFusionDebug = p.applyDecomposition(p.cfg, idx, params.Query, queryTokens, g0, finalRanking)
		gateRuns = append(gateRuns, map[string]any{"gate": "query_decomposition", "candidate_count": len(finalRanking), "elapsed_ms": p.clock.Now().Sub(t0).Milliseconds()})
		fusionDebug = append(fusionDebug, decompFusionDebug...)
	}

	if !timeBudgetHit {
		t0 := p.clock.Now()
		finalRanking = injectExploration(p.cfg, idx, g0, finalRanking)
		gateRuns = append(gateRuns, map[string]any{"gate": "exploration", "candidate_count": len(finalRanking), "elapsed_ms": p.clock.Now().Sub(t0).Milliseconds()})
	}

	sortDescending(finalRanking)

	if !timeBudgetHit && p.cfg.PRFEnabled {
		t0 := p.clock.Now()
		topK := finalRanking
		if len(topK) > p.cfg.PRFTopK {
			topK = topK[:p.cfg.PRFTopK]
		}
		lexsignals.ApplyPRF(p.cfg, idx, topK, finalRanking, p.cfg.PRFTopTerms)
		gateRuns = append(gateRuns, map[string]any{"gate": "prf", "candidate_count": len(finalRanking), "elapsed_ms": p.clock.Now().Sub(t0).Milliseconds()})
		sortDescending(finalRanking)
	}

	finalRanking = cutoff.DiversityRerank(finalRanking, p.cfg.DiversityAlpha)

	timeBudgetHit = timeBudgetHit || p.clock.Now().After(deadline)
	trimmed, reason := cutoff.Apply(finalRanking, cutoff.Params{
		MaxCandidates: params.Budget.MaxCandidates,
		HardCap:       50,
		FloorRatio:    p.cfg.CutoffFloorRatio,
		MinCoverage:   p.cfg.CutoffMinCoverage,
		TimeBudgetHit: timeBudgetHit,
		StageCapHit:   g0StageCapHit,
	})
	if reason != cutoff.ReasonNone {
		applied["cutoff_reason"] = string(reason)
	}

	gapCount := 0
	for _, d := range dfDecisions {
		if d.Dropped || d.Reason == "too_rare" {
			gapCount++
		}
	}

	return gateResult{
		applied:      applied,
		final:        trimmed,
		scannedFiles: len(files),
		scannedNodes: idx.N,
		gapCount:     gapCount,
		cutoffReason: reason,
		gateRuns:     gateRuns,
		fusionDebug:  fusionDebug,
	}
}

func dfFilteredToMaps(decisions []gates.DFFilterDecision) []map[string]any {
	out := make([]map[string]any, 0, len(decisions))
	for _, d := range decisions {
		out = append(out, map[string]any{"term": d.Term, "dropped": d.Dropped, "reason": d.Reason})
	}
	return out
}

func (p *Pipeline) applyDecomposition(cfg config.Config, idx *sparseindex.Index, query string, queryTokens []tokenize.Token, g0 rank.Ranking, base rank.Ranking) (rank.Ranking, []map[string]any) {
	subQueries := decomposer.Decompose(query, cfg.QueryDecompMaxSubQueries)
	if len(subQueries) == 0 {
		return base, nil
	}

	rankings := []rank.Ranking{base}
	anySubNonEmpty := false
	for _, sub := range subQueries {
		subTerms := normalize.SplitTerms(sub)
		subTokens := tokenize.TokenizeQuery(sub)
		subRanking, _ := gates.BaselineGate(cfg, idx, subTerms, subTokens, nil)
		if len(subRanking) > 0 {
			anySubNonEmpty = true
		}
		rankings = append(rankings, subRanking)
	}

	if !anySubNonEmpty && len(g0) == 0 {
		return base, nil
	}

	baseScores := map[string]float64{}
	for _, c := range base {
		baseScores[c.NodeID] = c.Score
	}
	order, fused, contributors := rrf.Fuse(rankings, cfg.QueryDecompRRFK)
	fusionDebug := rrf.Tuples(rankings, cfg.QueryDecompRRFK)
	blended := rrf.BlendWithBase(baseScores, fused, cfg.QueryDecompBaseWeight)

	byID := map[string]*rank.Candidate{}
	for _, c := range base {
		byID[c.NodeID] = c
	}

	var out rank.Ranking
	for _, nodeID := range order {
		cand, ok := byID[nodeID]
		if !ok {
			doc, ok := idx.Docs[nodeID]
			if !ok {
				continue
			}
			cand = &rank.Candidate{NodeID: nodeID, Path: doc.Node.Path, Title: doc.Node.Title, StartLine: doc.Node.LineStart, EndLine: doc.Node.LineEnd, Signals: map[rank.Signal]bool{}}
		}
		cand.Score = blended[nodeID]
		if contributors[nodeID] > 1 {
			cand.AddSignal(rank.SignalQueryDecompRRF, "query_decomp_rrf: fused across sub-queries")
		}
		out = append(out, cand)
	}
	sortDescending(out)
	return out, fusionDebug
}

func injectExploration(cfg config.Config, idx *sparseindex.Index, g0 rank.Ranking, base rank.Ranking) rank.Ranking {
	if cfg.ExplorationRatio <= 0 || len(g0) == 0 {
		return base
	}
	present := map[string]bool{}
	for _, c := range base {
		present[c.NodeID] = true
	}
	n := int(float64(len(base)) * cfg.ExplorationRatio)
	if n <= 0 {
		return base
	}
	out := base.Clone()
	added := 0
	for i := len(g0) - 1; i >= 0 && added < n; i-- {
		c := g0[i]
		if present[c.NodeID] {
			continue
		}
		if c.MatchCoverage <= 0 {
			continue
		}
		clone := *c
		clone.Score = c.Score * cfg.ExplorationScoreScale
		clone.Signals = map[rank.Signal]bool{}
		for s := range c.Signals {
			clone.Signals[s] = true
		}
		clone.AddSignal(rank.SignalExploration, "exploration: injected to reduce ranking stagnation")
		out = append(out, &clone)
		added++
	}
	return out
}

func sortDescending(r rank.Ranking) {
	sort.SliceStable(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].NodeID < r[j].NodeID
	})
}

func (p *Pipeline) buildPayload(params FindParams, fingerprint string, result gateResult) tracestore.Payload {
	candidates := make([]map[string]any, 0, len(result.final))
	integratedTop := make([]map[string]any, 0, len(result.final))
	pathCounts := map[string]int{}
	for _, c := range result.final {
		pathCounts[c.Path]++
	}
	mostCommon := 0
	for _, n := range pathCounts {
		if n > mostCommon {
			mostCommon = n
		}
	}
	fileBiasRatio := 0.0
	if len(result.final) > 0 {
		fileBiasRatio = float64(mostCommon) / float64(len(result.final))
	}

	for _, c := range result.final {
		item := map[string]any{
			"node_id":        c.NodeID,
			"path":           c.Path,
			"title":          c.Title,
			"start_line":     c.StartLine,
			"end_line":       c.EndLine,
			"score":          c.Score,
			"signals":        c.SortedSignals(),
			"matched_tokens": c.MatchedTokens,
			"token_hits":     c.TokenHits,
			"match_coverage": c.MatchCoverage,
			"rank_explain":   c.RankExplain,
		}
		candidates = append(candidates, item)
		integratedTop = append(integratedTop, item)
	}

	candidateLowThreshold, fileBiasThreshold := p.cfg.AdaptiveCandidateLowBase, p.cfg.AdaptiveFileBiasBase
	if p.stats != nil {
		candidateLowThreshold, fileBiasThreshold = p.stats.Thresholds(p.cfg)
	}

	integrationStatus := "insufficient"
	switch {
	case len(result.final) < candidateLowThreshold:
		integrationStatus = "insufficient"
	case fileBiasRatio > fileBiasThreshold:
		integrationStatus = "partial"
	default:
		integrationStatus = "integrated"
	}

	claimGraph := map[string]any{"claims": []any{}, "evidences": []any{}, "edges": []any{}}

	payload := tracestore.Payload{
		"manual_id":           params.ManualID,
		"manuals_fingerprint": fingerprint,
		"applied":             result.applied,
		"candidates":          candidates,
		"integrated_top":      integratedTop,
		"unscanned":           []any{},
		"gaps":                dfGapsAsStrings(result.applied),
		"conflicts":           []any{},
		"claim_graph":         claimGraph,
		"gate_runs":           toAnySlice(result.gateRuns),
		"fusion_debug":        toAnySlice(result.fusionDebug),
		"summary": map[string]any{
			"scanned_files":      result.scannedFiles,
			"scanned_nodes":      result.scannedNodes,
			"candidates":         len(result.final),
			"file_bias_ratio":    fileBiasRatio,
			"conflict_count":     result.conflictCount,
			"gap_count":          result.gapCount,
			"integration_status": integrationStatus,
		},
		"next_actions": nextActions(integrationStatus, result),
	}
	return payload
}

func dfGapsAsStrings(applied map[string]any) []any {
	raw, _ := applied["required_terms_df_filtered"].([]map[string]any)
	out := make([]any, 0, len(raw))
	for _, d := range raw {
		if dropped, _ := d["dropped"].(bool); dropped {
			out = append(out, d)
			continue
		}
		if reason, _ := d["reason"].(string); reason == "too_rare" {
			out = append(out, d)
		}
	}
	return out
}

func nextActions(integrationStatus string, result gateResult) []string {
	if integrationStatus == "insufficient" {
		return []string{"expand_scope", "broaden_required_terms"}
	}
	return nil
}

func (p *Pipeline) compactShape(traceID string, payload tracestore.Payload, params FindParams) tracestore.Payload {
	candidates, _ := payload["candidates"].([]map[string]any)
	status := "ok"
	summary, _ := payload["summary"].(map[string]any)
	if n, _ := summary["candidates"].(int); n == 0 {
		status = "no_results"
	}

	compact := tracestore.Payload{
		"trace_id":     traceID,
		"candidates":   candidates,
		"status":       status,
		"next_actions": []string{},
	}
	if status == "no_results" {
		compact["failure_reason"] = "no_candidates_matched"
	}
	if params.InlineHits != nil {
		limit := params.InlineHits.Limit
		if limit > 5 {
			limit = 5
		}
		top, _ := payload["integrated_top"].([]map[string]any)
		if limit > len(top) {
			limit = len(top)
		}
		compact["inline_hits"] = top[:limit]
	}
	return compact
}

// Hits implements stateless paging over a saved trace payload.
func (p *Pipeline) Hits(params HitsParams) (map[string]any, error) {
	payload := p.traces.Get(params.TraceID)
	if payload == nil {
		return nil, coreerrors.New(coreerrors.CodeNotFound, "trace expired or unknown", map[string]any{"reason": "trace_not_found", "trace_id": params.TraceID})
	}

	items := extractKind(payload, params.Kind)
	total := len(items)
	end := params.Offset + params.Limit
	if params.Offset >= total {
		return map[string]any{"items": []any{}, "total": total}, nil
	}
	if end > total {
		end = total
	}
	page := items[params.Offset:end]

	if params.Kind == KindCandidates {
		page = compressCandidates(page)
	}

	return map[string]any{"items": page, "total": total}, nil
}

func extractKind(payload tracestore.Payload, kind HitsKind) []any {
	switch kind {
	case KindCandidates:
		return toAnySlice(payload["candidates"])
	case KindUnscanned:
		return toAnySlice(payload["unscanned"])
	case KindConflicts:
		return toAnySlice(payload["conflicts"])
	case KindGaps:
		return toAnySlice(payload["gaps"])
	case KindIntegratedTop:
		return toAnySlice(payload["integrated_top"])
	case KindClaims:
		return claimGraphField(payload, "claims")
	case KindEvidences:
		return claimGraphField(payload, "evidences")
	case KindEdges:
		return claimGraphField(payload, "edges")
	case KindGateRuns:
		return toAnySlice(payload["gate_runs"])
	case KindFusionDebug:
		return toAnySlice(payload["fusion_debug"])
	default:
		return nil
	}
}

func claimGraphField(payload tracestore.Payload, field string) []any {
	cg, _ := payload["claim_graph"].(map[string]any)
	return toAnySlice(cg[field])
}

func toAnySlice(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []map[string]any:
		out := make([]any, len(t))
		for i, m := range t {
			out[i] = m
		}
		return out
	default:
		return nil
	}
}

func compressCandidates(items []any) []any {
	out := make([]any, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			out = append(out, it)
			continue
		}
		compressed := map[string]any{
			"ref":            m["node_id"],
			"score":          m["score"],
			"matched_tokens": m["matched_tokens"],
			"match_coverage": m["match_coverage"],
			"rank_explain":   m["rank_explain"],
		}
		if th, ok := m["token_hits"]; ok {
			compressed["token_hits"] = th
		}
		out = append(out, compressed)
	}
	return out
}

// Invalidate drops the SparseIndex, SemanticCache, and TraceStore entries
// tied to manualID — the optional admin operation spec.md §6 names.
func (p *Pipeline) Invalidate(ctx context.Context, manualID string) (map[string]any, error) {
	if !p.provider.ManualExists(ctx, manualID) {
		return nil, coreerrors.New(coreerrors.CodeNotFound, "unknown manual", map[string]any{"reason": "unknown_manual", "manual_id": manualID})
	}
	fingerprint, _ := docstore.Fingerprint(ctx, p.provider, manualID)
	indexDropped := p.indexes.Invalidate(manualID)
	cacheDropped := p.cache.DropFingerprint(fingerprint)
	tracesDropped := p.traces.DropManual(manualID)
	return map[string]any{
		"manual_id":      manualID,
		"index_dropped":  indexDropped,
		"cache_dropped":  cacheDropped,
		"traces_dropped": tracesDropped,
	}, nil
}
