package sparseindex

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/manualcore/internal/docstore"
)

func node(id, text string) docstore.ManualNode {
	return docstore.ManualNode{
		Node:     docstore.Node{NodeID: id, Path: id, Title: id, LineStart: 1, LineEnd: 2},
		FileType: "md",
		Text:     "# " + id + "\n" + text,
	}
}

func TestBuildAndScoreBM25(t *testing.T) {
	nodes := []docstore.ManualNode{
		node("n1", "apple banana apple"),
		node("n2", "banana cherry"),
	}
	idx := Build(nodes, "fp1")
	require.Equal(t, 2, idx.N)

	scoreN1 := idx.ScoreBM25([]string{"apple"}, "n1")
	scoreN2 := idx.ScoreBM25([]string{"apple"}, "n2")
	assert.Greater(t, scoreN1, 0.0)
	assert.Equal(t, 0.0, scoreN2)
}

func TestDFRatio(t *testing.T) {
	nodes := []docstore.ManualNode{
		node("n1", "x"),
		node("n2", "x"),
		node("n3", "y"),
	}
	idx := Build(nodes, "fp1")
	assert.InDelta(t, 2.0/3.0, idx.DFRatio("x"), 1e-9)
	assert.InDelta(t, 1.0/3.0, idx.DFRatio("y"), 1e-9)
}
