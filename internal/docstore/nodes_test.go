package docstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMarkdownTOCHeadingless(t *testing.T) {
	nodes := ParseMarkdownTOC("a/b.md", "just text\nmore text")
	require.Len(t, nodes, 1)
	assert.Equal(t, "a/b.md#L1", nodes[0].NodeID)
	assert.Equal(t, 1, nodes[0].LineStart)
	assert.Equal(t, 2, nodes[0].LineEnd)
}

func TestParseMarkdownTOCNesting(t *testing.T) {
	text := "# A\nbody a\n## A1\nbody a1\n# B\nbody b\n"
	nodes := ParseMarkdownTOC("x.md", text)
	require.Len(t, nodes, 3)
	assert.Equal(t, "A", nodes[0].Title)
	assert.Equal(t, 1, nodes[0].LineStart)
	assert.Equal(t, 4, nodes[0].LineEnd) // spans through its nested A1 child
	assert.Equal(t, "A1", nodes[1].Title)
	assert.Equal(t, nodes[0].NodeID, nodes[1].ParentID)
	assert.Equal(t, "B", nodes[2].Title)
	assert.Equal(t, "", nodes[2].ParentID)
}

func TestNodeBody(t *testing.T) {
	lines := []string{"# H", "body1", "body2"}
	n := Node{LineStart: 1, LineEnd: 3}
	assert.Equal(t, "# H\nbody1\nbody2", NodeBody(lines, n))
}
