package adaptivestats

import (
	"time"

	"github.com/dshills/manualcore/internal/config"
)

// Thresholds computes the (candidateLow, fileBias) pair manual_find uses to
// decide whether a result set is thin enough to warrant scope expansion.
// When cfg.AdaptiveTuning is false it returns the base values unchanged —
// spec.md never documents this drift as enabled by default, and
// SPEC_FULL.md's invariant 11 (default-mode determinism) requires it off
// unless explicitly opted in. Ported from
// original_source/adaptive_stats.py's manual_find_thresholds(): at most one
// adjustment per 24h, plus a 100-run-window rollback guard.
func (w *Writer) Thresholds(cfg config.Config) (int, float64) {
	baseCandidateLow, baseFileBias := cfg.AdaptiveCandidateLowBase, cfg.AdaptiveFileBiasBase
	minRecall := cfg.AdaptiveMinRecall
	candidateLow := baseCandidateLow
	fileBias := baseFileBias
	if !cfg.AdaptiveTuning {
		return candidateLow, fileBias
	}

	rows := w.historyRows(220)
	if len(rows) == 0 {
		return candidateLow, fileBias
	}

	last := rows[len(rows)-1]
	candidateLow = safeInt(last["candidate_low_threshold"], candidateLow)
	fileBias = safeFloat(last["file_bias_threshold"], fileBias)

	nowMs := time.Now().UnixMilli()
	var recent24h []Row
	for _, r := range rows {
		if nowMs-safeInt64(r["ts"], nowMs) <= 24*60*60*1000 {
			recent24h = append(recent24h, r)
		}
	}

	canAdjustNow := true
	if len(recent24h) > 0 {
		candidateValues := map[int]bool{}
		fileBiasValues := map[float64]bool{}
		for _, r := range recent24h {
			candidateValues[safeInt(r["candidate_low_threshold"], candidateLow)] = true
			fileBiasValues[roundTo(safeFloat(r["file_bias_threshold"], fileBias), 2)] = true
		}
		if len(candidateValues) > 1 || len(fileBiasValues) > 1 {
			canAdjustNow = false
		}
	}
	if len(recent24h) > 0 && canAdjustNow {
		cutoffRate := cutoffRatio(recent24h)
		switch {
		case cutoffRate > 0.20:
			candidateLow--
			fileBias -= 0.03
		case cutoffRate < 0.05:
			candidateLow++
			fileBias += 0.03
		}
	}

	if len(rows) >= 200 {
		prev := rows[len(rows)-200 : len(rows)-100]
		curr := rows[len(rows)-100:]
		prevRate := cutoffRatio(prev)
		currRate := cutoffRatio(curr)
		prevRecall := recallProxy(prev)
		currRecall := recallProxy(curr)
		if (prevRecall-currRecall) > 0.03 || (currRate-prevRate) > 0.05 || currRecall < minRecall {
			candidateLow = baseCandidateLow
			fileBias = baseFileBias
		}
	}

	candidateLow = clampInt(candidateLow, 2, 6)
	fileBias = roundTo(clampFloat(fileBias, 0.70, 0.90), 2)
	return candidateLow, fileBias
}

// historyRows prefers the in-process recent ring (cheap, always current)
// and falls back to the persisted tail when it is thin.
func (w *Writer) historyRows(limit int) []Row {
	w.recentMu.Lock()
	rows := append([]Row(nil), w.recent...)
	w.recentMu.Unlock()
	if len(rows) >= limit {
		return rows[len(rows)-limit:]
	}
	return w.Tail(limit)
}

func cutoffRatio(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	n := 0
	for _, r := range rows {
		if s, ok := r["cutoff_reason"].(string); ok && s != "" {
			n++
		}
	}
	return float64(n) / float64(len(rows))
}

func recallProxy(rows []Row) float64 {
	if len(rows) == 0 {
		return 0
	}
	good := 0
	for _, r := range rows {
		if s, ok := r["cutoff_reason"].(string); ok && s != "" {
			continue
		}
		if safeInt(r["candidates"], 0) > 0 {
			good++
			continue
		}
		if safeInt(r["added_evidence_count"], 0) > 0 {
			good++
		}
	}
	return float64(good) / float64(len(rows))
}

func safeInt(v any, def int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return def
	}
}

func safeInt64(v any, def int64) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return def
	}
}

func safeFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return def
	}
}

func roundTo(v float64, places int) float64 {
	mult := 1.0
	for i := 0; i < places; i++ {
		mult *= 10
	}
	return float64(int64(v*mult+sign(v)*0.5)) / mult
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
