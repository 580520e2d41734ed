package rank_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/rank"
)

func TestSortedSignalsIsDeterministic(t *testing.T) {
	c := &rank.Candidate{}
	c.AddSignal(rank.SignalProximity, "")
	c.AddSignal(rank.SignalAnchor, "")
	c.AddSignal(rank.SignalCodeExact, "")

	assert.Equal(t, []string{"anchor", "code_exact", "proximity"}, c.SortedSignals())
}

func TestAddSignalAppendsExplainNoteOnlyWhenNonEmpty(t *testing.T) {
	c := &rank.Candidate{}
	c.AddSignal(rank.SignalAnchor, "anchor: matched title")
	c.AddSignal(rank.SignalDefinitionTitle, "")

	assert.True(t, c.HasSignal(rank.SignalAnchor))
	assert.True(t, c.HasSignal(rank.SignalDefinitionTitle))
	assert.Equal(t, []string{"anchor: matched title"}, c.RankExplain)
}

func TestCloneDoesNotAliasUnderlyingSlice(t *testing.T) {
	original := rank.Ranking{{NodeID: "a"}, {NodeID: "b"}}
	cloned := original.Clone()
	cloned[0] = &rank.Candidate{NodeID: "z"}

	assert.Equal(t, "a", original[0].NodeID)
	assert.Equal(t, "z", cloned[0].NodeID)
}
