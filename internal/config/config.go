// Package config loads the process-wide immutable configuration structure
// every component reads from. Parsing follows original_source/config.py's
// _env_bool/_env_int/_env_float helpers: a malformed value falls back to
// the documented default rather than failing startup. An optional YAML
// overlay (gopkg.in/yaml.v3, a direct dependency of gamma-omg-rag-mcp and
// kamusis-axon-cli) can supply defaults beneath the environment.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds every tunable named in spec.md §6 plus the supplemented
// knobs recovered from original_source/config.py and adaptive_stats.py
// (SPEC_FULL.md §C).
type Config struct {
	ManualsRoot string `yaml:"manuals_root"`

	TraceMaxKeep int `yaml:"trace_max_keep"`
	TraceTTLSec  int `yaml:"trace_ttl_sec"`

	SemCacheEnabled             bool   `yaml:"sem_cache_enabled"`
	SemCacheTTLSec              int    `yaml:"sem_cache_ttl_sec"`
	SemCacheMaxKeep             int    `yaml:"sem_cache_max_keep"`
	SemCacheEmbeddingProvider   string `yaml:"sem_cache_embedding_provider"`
	SemCacheMaxSummaryGap       int    `yaml:"sem_cache_max_summary_gap"`
	SemCacheMaxSummaryConflict  int    `yaml:"sem_cache_max_summary_conflict"`

	SparseQueryCoverageWeight float64 `yaml:"sparse_query_coverage_weight"`
	LexicalCoverageWeight     float64 `yaml:"lexical_coverage_weight"`
	LexicalPhraseWeight       float64 `yaml:"lexical_phrase_weight"`
	LexicalNumberContextBonus float64 `yaml:"lexical_number_context_bonus"`
	LexicalProximityBonusNear float64 `yaml:"lexical_proximity_bonus_near"`
	LexicalProximityBonusFar  float64 `yaml:"lexical_proximity_bonus_far"`
	LexicalLengthPenaltyWeight float64 `yaml:"lexical_length_penalty_weight"`

	QueryDecompEnabled       bool    `yaml:"query_decomp_enabled"`
	QueryDecompMaxSubQueries int     `yaml:"query_decomp_max_sub_queries"`
	QueryDecompRRFK          int     `yaml:"query_decomp_rrf_k"`
	QueryDecompBaseWeight    float64 `yaml:"query_decomp_base_weight"`

	ScanHardCap            int     `yaml:"scan_hard_cap"`
	PerFileCandidateCap    int     `yaml:"per_file_candidate_cap"`
	ExplorationRatio       float64 `yaml:"exploration_ratio"`
	ExplorationScoreScale  float64 `yaml:"exploration_score_scale"`

	PRFEnabled bool `yaml:"prf_enabled"`
	PRFTopK    int  `yaml:"prf_top_k"`
	PRFTopTerms int `yaml:"prf_top_terms"`

	DiversityAlpha     float64 `yaml:"diversity_alpha"`
	CutoffFloorRatio   float64 `yaml:"cutoff_floor_ratio"`
	CutoffMinCoverage  float64 `yaml:"cutoff_min_coverage"`

	AdaptiveTuning        bool    `yaml:"adaptive_tuning"`
	AdaptiveMinRecall     float64 `yaml:"adaptive_min_recall"`
	AdaptiveCandidateLowBase int  `yaml:"adaptive_candidate_low_base"`
	AdaptiveFileBiasBase  float64 `yaml:"adaptive_file_bias_base"`

	TooCommonDFRatio float64 `yaml:"too_common_df_ratio"`
	TooRareDFRatio   float64 `yaml:"too_rare_df_ratio"`

	ClaimGraphEnabled bool `yaml:"claim_graph_enabled"`

	DefaultMaxStage   int  `yaml:"default_max_stage"`
	HardMaxSections   int  `yaml:"hard_max_sections"`
	HardMaxChars      int  `yaml:"hard_max_chars"`
	AllowFileScope    bool `yaml:"allow_file_scope"`

	AdaptiveStatsPath string `yaml:"adaptive_stats_path"`
	LogLevel          string `yaml:"log_level"`
}

// Defaults returns the documented default configuration (spec.md §6 plus
// SPEC_FULL.md §C).
func Defaults() Config {
	return Config{
		ManualsRoot: "./manuals",

		TraceMaxKeep: 100,
		TraceTTLSec:  1800,

		SemCacheEnabled:            true,
		SemCacheTTLSec:             1800,
		SemCacheMaxKeep:            500,
		SemCacheEmbeddingProvider:  "none",
		SemCacheMaxSummaryGap:      -1,
		SemCacheMaxSummaryConflict: -1,

		SparseQueryCoverageWeight:  0.35,
		LexicalCoverageWeight:      0.50,
		LexicalPhraseWeight:       0.50,
		LexicalNumberContextBonus: 0.80,
		LexicalProximityBonusNear: 1.00,
		LexicalProximityBonusFar:  0.50,
		LexicalLengthPenaltyWeight: 0.20,

		QueryDecompEnabled:       true,
		QueryDecompMaxSubQueries: 3,
		QueryDecompRRFK:          60,
		QueryDecompBaseWeight:    0.30,

		ScanHardCap:           5000,
		PerFileCandidateCap:   8,
		ExplorationRatio:      0.20,
		ExplorationScoreScale: 0.50,

		PRFEnabled:  true,
		PRFTopK:     5,
		PRFTopTerms: 8,

		DiversityAlpha:    0.50,
		CutoffFloorRatio:  0.15,
		CutoffMinCoverage: 0.34,

		AdaptiveTuning:           false,
		AdaptiveMinRecall:        0.90,
		AdaptiveCandidateLowBase: 3,
		AdaptiveFileBiasBase:     0.80,

		TooCommonDFRatio: 0.80,
		TooRareDFRatio:   0.02,

		ClaimGraphEnabled: false,

		DefaultMaxStage: 3,
		HardMaxSections: 50,
		HardMaxChars:    20000,
		AllowFileScope:  false,

		AdaptiveStatsPath: "./manualcore-stats.jsonl",
		LogLevel:          "info",
	}
}

// FromEnv builds a Config starting from Defaults, applying an optional YAML
// overlay (MANUALCORE_CONFIG_FILE), and finally environment variables —
// env always wins. Malformed numeric/boolean values fall back to whatever
// was already set rather than aborting startup.
func FromEnv() Config {
	cfg := Defaults()
	if path := os.Getenv("MANUALCORE_CONFIG_FILE"); path != "" {
		if data, err := os.ReadFile(path); err == nil {
			_ = yaml.Unmarshal(data, &cfg)
		}
	}

	cfg.ManualsRoot = envString("MANUALS_ROOT", cfg.ManualsRoot)

	cfg.TraceMaxKeep = envInt("TRACE_MAX_KEEP", cfg.TraceMaxKeep)
	cfg.TraceTTLSec = envInt("TRACE_TTL_SEC", cfg.TraceTTLSec)

	cfg.SemCacheEnabled = envBool("SEM_CACHE_ENABLED", cfg.SemCacheEnabled)
	cfg.SemCacheTTLSec = envInt("SEM_CACHE_TTL_SEC", cfg.SemCacheTTLSec)
	cfg.SemCacheMaxKeep = envInt("SEM_CACHE_MAX_KEEP", cfg.SemCacheMaxKeep)
	cfg.SemCacheEmbeddingProvider = envString("SEM_CACHE_EMBEDDING_PROVIDER", cfg.SemCacheEmbeddingProvider)
	cfg.SemCacheMaxSummaryGap = envInt("SEM_CACHE_MAX_SUMMARY_GAP", cfg.SemCacheMaxSummaryGap)
	cfg.SemCacheMaxSummaryConflict = envInt("SEM_CACHE_MAX_SUMMARY_CONFLICT", cfg.SemCacheMaxSummaryConflict)

	cfg.SparseQueryCoverageWeight = envFloat("SPARSE_QUERY_COVERAGE_WEIGHT", cfg.SparseQueryCoverageWeight)
	cfg.LexicalCoverageWeight = envFloat("LEXICAL_COVERAGE_WEIGHT", cfg.LexicalCoverageWeight)
	cfg.LexicalPhraseWeight = envFloat("LEXICAL_PHRASE_WEIGHT", cfg.LexicalPhraseWeight)
	cfg.LexicalNumberContextBonus = envFloat("LEXICAL_NUMBER_CONTEXT_BONUS", cfg.LexicalNumberContextBonus)
	cfg.LexicalProximityBonusNear = envFloat("LEXICAL_PROXIMITY_BONUS_NEAR", cfg.LexicalProximityBonusNear)
	cfg.LexicalProximityBonusFar = envFloat("LEXICAL_PROXIMITY_BONUS_FAR", cfg.LexicalProximityBonusFar)
	cfg.LexicalLengthPenaltyWeight = envFloat("LEXICAL_LENGTH_PENALTY_WEIGHT", cfg.LexicalLengthPenaltyWeight)

	cfg.QueryDecompEnabled = envBool("MANUAL_FIND_QUERY_DECOMP_ENABLED", cfg.QueryDecompEnabled)
	cfg.QueryDecompMaxSubQueries = envInt("MANUAL_FIND_QUERY_DECOMP_MAX_SUB_QUERIES", cfg.QueryDecompMaxSubQueries)
	cfg.QueryDecompRRFK = envInt("MANUAL_FIND_QUERY_DECOMP_RRF_K", cfg.QueryDecompRRFK)
	cfg.QueryDecompBaseWeight = envFloat("MANUAL_FIND_QUERY_DECOMP_BASE_WEIGHT", cfg.QueryDecompBaseWeight)

	cfg.ScanHardCap = envInt("MANUAL_FIND_SCAN_HARD_CAP", cfg.ScanHardCap)
	cfg.PerFileCandidateCap = envInt("MANUAL_FIND_PER_FILE_CANDIDATE_CAP", cfg.PerFileCandidateCap)
	cfg.ExplorationRatio = envFloat("MANUAL_FIND_EXPLORATION_RATIO", cfg.ExplorationRatio)
	cfg.ExplorationScoreScale = envFloat("MANUAL_FIND_EXPLORATION_SCORE_SCALE", cfg.ExplorationScoreScale)

	cfg.PRFEnabled = envBool("MANUAL_FIND_PRF_ENABLED", cfg.PRFEnabled)
	cfg.PRFTopK = envInt("MANUAL_FIND_PRF_TOP_K", cfg.PRFTopK)
	cfg.PRFTopTerms = envInt("MANUAL_FIND_PRF_TOP_TERMS", cfg.PRFTopTerms)

	cfg.DiversityAlpha = envFloat("MANUAL_FIND_DIVERSITY_ALPHA", cfg.DiversityAlpha)
	cfg.CutoffFloorRatio = envFloat("MANUAL_FIND_CUTOFF_FLOOR_RATIO", cfg.CutoffFloorRatio)
	cfg.CutoffMinCoverage = envFloat("MANUAL_FIND_CUTOFF_MIN_COVERAGE", cfg.CutoffMinCoverage)

	cfg.AdaptiveTuning = envBool("MANUAL_FIND_ADAPTIVE_TUNING", cfg.AdaptiveTuning)
	cfg.AdaptiveMinRecall = envFloat("ADAPTIVE_MIN_RECALL", cfg.AdaptiveMinRecall)
	cfg.AdaptiveCandidateLowBase = envInt("ADAPTIVE_CANDIDATE_LOW_BASE", cfg.AdaptiveCandidateLowBase)
	cfg.AdaptiveFileBiasBase = envFloat("ADAPTIVE_FILE_BIAS_BASE", cfg.AdaptiveFileBiasBase)

	cfg.TooCommonDFRatio = envFloat("MANUAL_FIND_TOO_COMMON_DF_RATIO", cfg.TooCommonDFRatio)
	cfg.TooRareDFRatio = envFloat("MANUAL_FIND_TOO_RARE_DF_RATIO", cfg.TooRareDFRatio)

	cfg.ClaimGraphEnabled = envBool("MANUAL_FIND_CLAIM_GRAPH_ENABLED", cfg.ClaimGraphEnabled)

	cfg.DefaultMaxStage = envInt("MANUAL_FIND_DEFAULT_MAX_STAGE", cfg.DefaultMaxStage)
	cfg.HardMaxSections = envInt("MANUAL_READ_HARD_MAX_SECTIONS", cfg.HardMaxSections)
	cfg.HardMaxChars = envInt("MANUAL_READ_HARD_MAX_CHARS", cfg.HardMaxChars)
	cfg.AllowFileScope = envBool("ALLOW_FILE_SCOPE", cfg.AllowFileScope)

	cfg.AdaptiveStatsPath = envString("ADAPTIVE_STATS_PATH", cfg.AdaptiveStatsPath)
	cfg.LogLevel = envString("LOG_LEVEL", cfg.LogLevel)

	return cfg
}

func envString(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envFloat(key string, def float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}
