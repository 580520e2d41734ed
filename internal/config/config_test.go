package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dshills/manualcore/internal/config"
)

func TestDefaultsMatchDocumentedValues(t *testing.T) {
	cfg := config.Defaults()
	assert.Equal(t, 0.80, cfg.TooCommonDFRatio)
	assert.Equal(t, 0.02, cfg.TooRareDFRatio)
	assert.Equal(t, 0.50, cfg.DiversityAlpha)
	assert.Equal(t, 0.15, cfg.CutoffFloorRatio)
	assert.Equal(t, 0.34, cfg.CutoffMinCoverage)
	assert.False(t, cfg.AdaptiveTuning)
}

func TestFromEnvOverridesDefault(t *testing.T) {
	t.Setenv("MANUAL_FIND_DIVERSITY_ALPHA", "0.9")
	cfg := config.FromEnv()
	assert.Equal(t, 0.9, cfg.DiversityAlpha)
}

func TestFromEnvFallsBackOnMalformedValue(t *testing.T) {
	t.Setenv("MANUAL_FIND_DIVERSITY_ALPHA", "not-a-float")
	cfg := config.FromEnv()
	assert.Equal(t, config.Defaults().DiversityAlpha, cfg.DiversityAlpha)
}

func TestFromEnvFallsBackOnEmptyValue(t *testing.T) {
	t.Setenv("MANUAL_FIND_TOO_COMMON_DF_RATIO", "")
	cfg := config.FromEnv()
	assert.Equal(t, config.Defaults().TooCommonDFRatio, cfg.TooCommonDFRatio)
}
