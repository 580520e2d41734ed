package lexsignals_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/docstore"
	"github.com/dshills/manualcore/internal/lexsignals"
	"github.com/dshills/manualcore/internal/rank"
	"github.com/dshills/manualcore/internal/sparseindex"
	"github.com/dshills/manualcore/internal/tokenize"
)

func buildDoc(t *testing.T, title, text string) *sparseindex.Doc {
	t.Helper()
	node := docstore.ManualNode{
		Node: docstore.Node{NodeID: "g1#L1", Path: "guide.md", Title: title, LineStart: 1, LineEnd: 5},
		FileType: "md",
		Text:     "# " + title + "\n" + text,
	}
	idx := sparseindex.Build([]docstore.ManualNode{node}, "fp1")
	doc, ok := idx.Docs["g1#L1"]
	require.True(t, ok)
	return doc
}

func TestApplyPhraseRewardsInOrderWindowMatch(t *testing.T) {
	doc := buildDoc(t, "Backup Rotation", "rotate backups nightly to avoid disk exhaustion")
	cfg := config.Defaults()
	cand := &rank.Candidate{NodeID: "g1#L1", Signals: map[rank.Signal]bool{}}
	queryTokens := tokenize.TokenizeQuery("rotate backups")

	lexsignals.Apply(cfg, doc, []string{"rotate", "backups"}, queryTokens, nil, cand)
	assert.True(t, cand.HasSignal(rank.SignalPhrase))
	assert.Greater(t, cand.Score, 0.0)
}

func TestApplyProximityRewardsNearCoOccurrence(t *testing.T) {
	doc := buildDoc(t, "Network Timeout", "timeout retry gateway settings policy")
	cfg := config.Defaults()
	cand := &rank.Candidate{NodeID: "g1#L1", Signals: map[rank.Signal]bool{}}

	lexsignals.Apply(cfg, doc, []string{"timeout", "retry"}, nil, nil, cand)
	assert.True(t, cand.HasSignal(rank.SignalProximity))
}

func TestApplyAnchorRewardsTitleMatch(t *testing.T) {
	doc := buildDoc(t, "Backup Rotation", "some unrelated body text")
	cfg := config.Defaults()
	cand := &rank.Candidate{NodeID: "g1#L1", Signals: map[rank.Signal]bool{}}

	lexsignals.Apply(cfg, doc, []string{"rotation"}, nil, nil, cand)
	assert.True(t, cand.HasSignal(rank.SignalAnchor))
}

func TestApplyExceptionsFlagsCallerVocabulary(t *testing.T) {
	doc := buildDoc(t, "Backup Rotation", "unless disk is full, rotation proceeds")
	cfg := config.Defaults()
	cand := &rank.Candidate{NodeID: "g1#L1", Signals: map[rank.Signal]bool{}}

	lexsignals.Apply(cfg, doc, []string{"rotation"}, nil, []string{"unless"}, cand)
	assert.True(t, cand.HasSignal(rank.SignalExceptions))
}

func buildIndex(t *testing.T, nodes []docstore.ManualNode) *sparseindex.Index {
	t.Helper()
	return sparseindex.Build(nodes, "fp1")
}

func TestApplyPRFBoostsNodesSharingTopRankedDistinctiveTerm(t *testing.T) {
	nodes := []docstore.ManualNode{
		{Node: docstore.Node{NodeID: "top#L1", Path: "a.md", Title: "Snapshots"}, FileType: "md", Text: "# Snapshots\nsnapshot retention policy details"},
		{Node: docstore.Node{NodeID: "sibling#L1", Path: "b.md", Title: "Storage"}, FileType: "md", Text: "# Storage\nsnapshot cleanup happens here too"},
		{Node: docstore.Node{NodeID: "unrelated#L1", Path: "c.md", Title: "Networking"}, FileType: "md", Text: "# Networking\nnothing about retention at all"},
	}
	idx := buildIndex(t, nodes)

	top := &rank.Candidate{NodeID: "top#L1", Score: 1.0, Signals: map[rank.Signal]bool{}}
	sibling := &rank.Candidate{NodeID: "sibling#L1", Score: 0.5, Signals: map[rank.Signal]bool{}}
	unrelated := &rank.Candidate{NodeID: "unrelated#L1", Score: 0.5, Signals: map[rank.Signal]bool{}}
	all := rank.Ranking{top, sibling, unrelated}

	cfg := config.Defaults()
	lexsignals.ApplyPRF(cfg, idx, rank.Ranking{top}, all, 8)

	assert.True(t, sibling.HasSignal(rank.SignalPRF))
	assert.Greater(t, sibling.Score, 0.5)
	assert.False(t, unrelated.HasSignal(rank.SignalPRF))
}
