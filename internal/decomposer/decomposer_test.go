package decomposer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/decomposer"
)

func TestDecomposeVersusPattern(t *testing.T) {
	subs := decomposer.Decompose("backup vs snapshot", 3)
	assert.Equal(t, []string{"backup", "snapshot", "backup snapshot"}, subs)
}

func TestDecomposeJapaneseDifferencePattern(t *testing.T) {
	subs := decomposer.Decompose("バックアップとスナップショットの違い", 3)
	assert.Len(t, subs, 3)
	assert.Equal(t, "バックアップ", subs[0])
}

func TestDecomposeNoMatchReturnsNil(t *testing.T) {
	subs := decomposer.Decompose("how do I configure retries", 3)
	assert.Nil(t, subs)
}

func TestDecomposeRespectsMaxSubQueries(t *testing.T) {
	subs := decomposer.Decompose("a vs b", 2)
	assert.Len(t, subs, 2)
}
