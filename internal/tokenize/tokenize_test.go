package tokenize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTokenizeWordsAndCode(t *testing.T) {
	toks := Tokenize("foo.bar 123 plain")
	assert.Equal(t, "foo.bar", toks[0].Text)
	assert.Equal(t, KindCode, toks[0].Kind)
	assert.Equal(t, "123", toks[1].Text)
	assert.Equal(t, KindDigit, toks[1].Kind)
	assert.Equal(t, "plain", toks[2].Text)
	assert.Equal(t, KindWord, toks[2].Kind)
}

func TestTokenizeCJK(t *testing.T) {
	toks := Tokenize("休暇 日数")
	assert.Len(t, toks, 4)
	for _, tok := range toks {
		assert.Equal(t, KindCJK, tok.Kind)
	}
}

func TestTokenizeLineTracking(t *testing.T) {
	toks := Tokenize("a\nb")
	assert.Equal(t, 1, toks[0].Line)
	assert.Equal(t, 2, toks[1].Line)
}
