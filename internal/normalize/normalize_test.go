package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTextIdempotent(t *testing.T) {
	inputs := []string{
		"Ａｂｃ　Ｄｅｆ",
		"年次有給休暇の付与日数",
		"foo\r\nbar\rbaz",
		"A－B‐C",
	}
	for _, in := range inputs {
		once := Text(in)
		twice := Text(once)
		assert.Equal(t, once, twice, "Text must be idempotent for %q", in)
	}
}

func TestTextCasefoldAndWidth(t *testing.T) {
	assert.Equal(t, "abc def", Text("ＡＢＣ　ＤＥＦ"))
}

func TestSplitTerms(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, SplitTerms("A   B"))
	assert.Nil(t, SplitTerms("   "))
}

func TestLooseContains(t *testing.T) {
	assert.True(t, LooseContains("foobar", "foo-bar"))
	assert.False(t, LooseContains("", "anything"))
}
