package cutoff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/cutoff"
	"github.com/dshills/manualcore/internal/rank"
)

func cand(id, path string, score float64, coverage float64) *rank.Candidate {
	return &rank.Candidate{NodeID: id, Path: path, Score: score, MatchCoverage: coverage, Signals: map[rank.Signal]bool{}}
}

func TestDiversityRerankDecaysRepeatedPath(t *testing.T) {
	ranking := rank.Ranking{
		cand("a", "guide.md", 10, 1),
		cand("b", "guide.md", 9, 1),
		cand("c", "other.md", 8, 1),
	}
	out := cutoff.DiversityRerank(ranking, 1.0)
	assert.Equal(t, "a", out[0].NodeID)
	// b decays to 9/(1+1*1)=4.5, dropping below c's 8.
	assert.Equal(t, "c", out[1].NodeID)
}

func TestApplyCandidateCap(t *testing.T) {
	ranking := rank.Ranking{
		cand("a", "p1", 10, 1),
		cand("b", "p2", 9, 1),
		cand("c", "p3", 8, 1),
	}
	out, reason := cutoff.Apply(ranking, cutoff.Params{MaxCandidates: 2, HardCap: 50, FloorRatio: 0, MinCoverage: 0})
	assert.Len(t, out, 2)
	assert.Equal(t, cutoff.ReasonCandidateCap, reason)
}

func TestApplyTimeBudgetHit(t *testing.T) {
	ranking := rank.Ranking{cand("a", "p1", 10, 1), cand("b", "p2", 9, 1)}
	out, reason := cutoff.Apply(ranking, cutoff.Params{MaxCandidates: 10, HardCap: 50, TimeBudgetHit: true})
	assert.Equal(t, cutoff.ReasonTimeBudget, reason)
	assert.Len(t, out, 2)
}

func TestApplyDynamicCutoffDropsLowCoverageTail(t *testing.T) {
	ranking := rank.Ranking{
		cand("a", "p1", 10, 1.0),
		cand("b", "p2", 1, 0.1),
	}
	out, reason := cutoff.Apply(ranking, cutoff.Params{MaxCandidates: 10, HardCap: 50, FloorRatio: 0.5, MinCoverage: 0.5})
	assert.Len(t, out, 1)
	assert.Equal(t, cutoff.ReasonDynamicCutoff, reason)
}
