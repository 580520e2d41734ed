// Package cutoff implements diversity rerank and dynamic cutoff per spec.md
// §4.8: a per-path score decay that keeps one manual section from
// monopolizing the result list, followed by a budget- and
// coverage-aware trim. Grounded on the teacher's internal/searcher/searcher.go
// re-ranking pass, generalized from a single diversity knob to the
// explicit decay formula spec.md documents.
package cutoff

import (
	"sort"

	"github.com/dshills/manualcore/internal/rank"
)

// Reason is the closed set spec.md §4.8 documents for why candidates were
// trimmed.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonTimeBudget     Reason = "time_budget"
	ReasonCandidateCap   Reason = "candidate_cap"
	ReasonDynamicCutoff  Reason = "dynamic_cutoff"
	ReasonStageCap       Reason = "stage_cap"
)

// DiversityRerank applies 1/(1+alpha*k) decay to the score of the k-th
// (0-indexed rank within its path, k starting at 1 for the second
// occurrence) candidate sharing a path with a higher-ranked candidate.
// Input must already be sorted descending by score.
func DiversityRerank(ranking rank.Ranking, alpha float64) rank.Ranking {
	out := ranking.Clone()
	seenPerPath := map[string]int{}
	for _, c := range out {
		k := seenPerPath[c.Path]
		seenPerPath[c.Path] = k + 1
		if k > 0 {
			c.Score = c.Score / (1 + alpha*float64(k))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}

// Params bundles the budget-derived limits DynamicCutoff applies.
type Params struct {
	MaxCandidates  int
	HardCap        int // 50 per spec.md §4.8
	FloorRatio     float64 // tau: score < head_score*tau is eligible for trimming
	MinCoverage    float64 // c_min
	TimeBudgetHit  bool
	StageCapHit    bool
}

// Apply trims ranking to the dynamic cutoff and reports why, if at all, a
// reduction occurred. An empty Reason means nothing was trimmed.
func Apply(ranking rank.Ranking, p Params) (rank.Ranking, Reason) {
	if p.TimeBudgetHit {
		return truncate(ranking, p), ReasonTimeBudget
	}

	finalCount := p.MaxCandidates
	if p.HardCap > 0 && p.HardCap < finalCount {
		finalCount = p.HardCap
	}

	reason := ReasonNone
	trimmed := ranking
	if len(trimmed) > finalCount {
		trimmed = trimmed[:finalCount]
		reason = ReasonCandidateCap
	}

	if p.StageCapHit {
		reason = ReasonStageCap
	}

	if len(trimmed) == 0 {
		return trimmed, reason
	}
	head := trimmed[0].Score
	if head <= 0 {
		return trimmed, reason
	}
	floor := head * p.FloorRatio

	kept := trimmed[:0:0]
	dropped := false
	for _, c := range trimmed {
		if c.Score < floor && c.MatchCoverage < p.MinCoverage {
			dropped = true
			continue
		}
		kept = append(kept, c)
	}
	if dropped && reason == ReasonNone {
		reason = ReasonDynamicCutoff
	}
	return kept, reason
}

func truncate(ranking rank.Ranking, p Params) rank.Ranking {
	n := p.MaxCandidates
	if p.HardCap > 0 && p.HardCap < n {
		n = p.HardCap
	}
	if n > len(ranking) {
		n = len(ranking)
	}
	if n < 0 {
		n = 0
	}
	return ranking[:n]
}
