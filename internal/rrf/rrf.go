// Package rrf implements Reciprocal Rank Fusion, the technique
// dshills-gocontext-mcp's internal/searcher/searcher.go uses (applyRRF) to
// blend vector and keyword rankings, generalized here to fuse an arbitrary
// number of rank.Ranking inputs per spec.md §4.7.
package rrf

import (
	"sort"

	"github.com/dshills/manualcore/internal/rank"
)

// Fuse computes fused(node) = Σ_i 1/(k + rank_i(node)) across rankings,
// returning node ids sorted by descending fused score along with the
// per-node fused score and a count of how many input rankings contributed
// to it (used by callers to decide between a single-pass signal like
// required_term and a multi-pass signal like required_terms_rrf).
func Fuse(rankings []rank.Ranking, k int) (order []string, fused map[string]float64, contributors map[string]int) {
	fused = make(map[string]float64)
	contributors = make(map[string]int)
	for _, ranking := range rankings {
		for i, c := range ranking {
			fused[c.NodeID] += 1.0 / float64(k+i+1)
			contributors[c.NodeID]++
		}
	}
	order = make([]string, 0, len(fused))
	for id := range fused {
		order = append(order, id)
	}
	sort.Slice(order, func(i, j int) bool {
		if fused[order[i]] != fused[order[j]] {
			return fused[order[i]] > fused[order[j]]
		}
		return order[i] < order[j]
	})
	return order, fused, contributors
}

// Tuples returns the (node_id, rank_i, rrf_contribution) tuples Fuse walks
// internally across every input ranking, so callers can page the raw fusion
// arithmetic via Hits(kind=fusion_debug) without recomputing it.
func Tuples(rankings []rank.Ranking, k int) []map[string]any {
	var out []map[string]any
	for pass, ranking := range rankings {
		for i, c := range ranking {
			out = append(out, map[string]any{
				"node_id":          c.NodeID,
				"pass":             pass,
				"rank_i":           i,
				"rrf_contribution": 1.0 / float64(k+i+1),
			})
		}
	}
	return out
}

// MinMaxNormalize rescales values to [0,1] within the given candidate set.
// When every value is equal (min == max) every entry is mapped to 1.0,
// matching the equal-min-max edge case in the teacher's
// internal/search/hybrid.go normalizeScores.
func MinMaxNormalize(values map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	if len(values) == 0 {
		return out
	}
	min, max := minMax(values)
	if min == max {
		for id := range values {
			out[id] = 1.0
		}
		return out
	}
	for id, v := range values {
		out[id] = (v - min) / (max - min)
	}
	return out
}

func minMax(values map[string]float64) (float64, float64) {
	first := true
	var min, max float64
	for _, v := range values {
		if first {
			min, max = v, v
			first = false
			continue
		}
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	return min, max
}

// BlendWithBase computes BASE_WEIGHT*normalize(base) + (1-BASE_WEIGHT)*normalize(rrf)
// per spec.md §4.7.
func BlendWithBase(base, rrfScore map[string]float64, baseWeight float64) map[string]float64 {
	normBase := MinMaxNormalize(base)
	normRRF := MinMaxNormalize(rrfScore)
	out := make(map[string]float64)
	for id := range rrfScore {
		out[id] = baseWeight*normBase[id] + (1-baseWeight)*normRRF[id]
	}
	return out
}
