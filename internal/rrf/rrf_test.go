package rrf_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/rank"
	"github.com/dshills/manualcore/internal/rrf"
)

func cand(id string) *rank.Candidate {
	return &rank.Candidate{NodeID: id, Signals: map[rank.Signal]bool{}}
}

func TestFuseOrdersByFusedScore(t *testing.T) {
	a := rank.Ranking{cand("n1"), cand("n2"), cand("n3")}
	b := rank.Ranking{cand("n2"), cand("n1"), cand("n3")}

	order, fused, contributors := rrf.Fuse([]rank.Ranking{a, b}, 60)

	assert.Len(t, order, 3)
	assert.Equal(t, 2, contributors["n1"])
	assert.Equal(t, 2, contributors["n2"])
	assert.InDelta(t, fused["n1"], fused["n2"], 1e-9)
	assert.True(t, fused["n1"] > fused["n3"])
}

func TestMinMaxNormalizeEqualValuesMapToOne(t *testing.T) {
	values := map[string]float64{"a": 5, "b": 5, "c": 5}
	norm := rrf.MinMaxNormalize(values)
	for _, v := range norm {
		assert.Equal(t, 1.0, v)
	}
}

func TestMinMaxNormalizeSpread(t *testing.T) {
	values := map[string]float64{"a": 0, "b": 5, "c": 10}
	norm := rrf.MinMaxNormalize(values)
	assert.Equal(t, 0.0, norm["a"])
	assert.Equal(t, 1.0, norm["c"])
	assert.InDelta(t, 0.5, norm["b"], 1e-9)
}

func TestBlendWithBase(t *testing.T) {
	base := map[string]float64{"a": 0, "b": 10}
	rrfScore := map[string]float64{"a": 10, "b": 0}
	blended := rrf.BlendWithBase(base, rrfScore, 0.7)
	assert.InDelta(t, 0.3, blended["a"], 1e-9)
	assert.InDelta(t, 0.7, blended["b"], 1e-9)
}
