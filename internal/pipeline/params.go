// Package pipeline implements the Pipeline component: validation, manual
// fingerprinting, cache lookup, gate execution, query decomposition,
// diversity rerank, dynamic cutoff, trace persistence, and the compact vs.
// non-compact find() response shapes spec.md §4.11 documents. Grounded on
// original_source/tools_manual.py's _run_find_pass/manual_find
// orchestration, restructured around Go-native concurrency primitives the
// way the teacher's internal/mcp/tools.go drives internal/searcher.
package pipeline

import (
	"github.com/dshills/manualcore/internal/coreerrors"
)

const reservedRootManualID = "manuals"

// Budget bounds a single find() call's time and candidate count.
type Budget struct {
	TimeMs        int
	MaxCandidates int
}

// InlineHits requests a small page of integrated_top hits inline with the
// compact response.
type InlineHits struct {
	Limit int
}

// FindParams is the validated, typed form of a find() call.
type FindParams struct {
	Query                    string
	ManualID                 string
	RequiredTerms            []string
	ExpandScope              bool
	OnlyUnscannedFromTraceID string
	IncludeClaimGraph        bool
	UseCache                 bool
	Budget                   Budget
	InlineHits               *InlineHits
	Compact                  bool
}

// ParseFindParams validates a raw JSON-shaped argument map the way the
// boolean-vs-integer strictness invariants of spec.md §4.11/§8 require:
// a boolean passed where an integer is expected, or a non-integer numeric,
// is rejected with invalid_parameter rather than silently coerced.
func ParseFindParams(raw map[string]any) (FindParams, error) {
	p := FindParams{UseCache: true, Budget: Budget{TimeMs: 2000, MaxCandidates: 20}}

	query, _ := raw["query"].(string)
	if query == "" {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "query must be a non-empty string", nil)
	}
	p.Query = query

	manualID, _ := raw["manual_id"].(string)
	if manualID == "" {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "manual_id must be a non-empty string", nil)
	}
	if manualID == reservedRootManualID {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "manual_id must not be the reserved root id", map[string]any{"manual_id": manualID})
	}
	p.ManualID = manualID

	terms, err := stringSlice(raw, "required_terms")
	if err != nil {
		return p, err
	}
	if len(terms) == 0 || len(terms) > 2 {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "required_terms must contain 1 or 2 non-empty strings", map[string]any{"count": len(terms)})
	}
	for _, t := range terms {
		if t == "" {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "required_terms entries must be non-empty", nil)
		}
	}
	p.RequiredTerms = terms

	if v, ok := raw["expand_scope"]; ok {
		b, err := expectBool(v, "expand_scope")
		if err != nil {
			return p, err
		}
		p.ExpandScope = b
	}
	if v, ok := raw["only_unscanned_from_trace_id"]; ok {
		s, ok := v.(string)
		if !ok {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "only_unscanned_from_trace_id must be a string", nil)
		}
		p.OnlyUnscannedFromTraceID = s
	}
	if v, ok := raw["include_claim_graph"]; ok {
		b, err := expectBool(v, "include_claim_graph")
		if err != nil {
			return p, err
		}
		p.IncludeClaimGraph = b
	}
	if v, ok := raw["use_cache"]; ok {
		b, err := expectBool(v, "use_cache")
		if err != nil {
			return p, err
		}
		p.UseCache = b
	}

	if v, ok := raw["budget"]; ok {
		budget, ok := v.(map[string]any)
		if !ok {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "budget must be an object", nil)
		}
		if tv, ok := budget["time_ms"]; ok {
			n, err := expectInt(tv, "budget.time_ms")
			if err != nil {
				return p, err
			}
			if n < 1 {
				return p, coreerrors.New(coreerrors.CodeInvalidParameter, "budget.time_ms must be >= 1", nil)
			}
			p.Budget.TimeMs = n
		}
		if mv, ok := budget["max_candidates"]; ok {
			n, err := expectInt(mv, "budget.max_candidates")
			if err != nil {
				return p, err
			}
			if n < 1 {
				return p, coreerrors.New(coreerrors.CodeInvalidParameter, "budget.max_candidates must be >= 1", nil)
			}
			p.Budget.MaxCandidates = n
		}
	}

	if v, ok := raw["inline_hits"]; ok {
		ih, ok := v.(map[string]any)
		if !ok {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "inline_hits must be an object", nil)
		}
		limit := 5
		if lv, ok := ih["limit"]; ok {
			n, err := expectInt(lv, "inline_hits.limit")
			if err != nil {
				return p, err
			}
			if n < 1 || n > 5 {
				return p, coreerrors.New(coreerrors.CodeInvalidParameter, "inline_hits.limit must be between 1 and 5", nil)
			}
			limit = n
		}
		p.InlineHits = &InlineHits{Limit: limit}
	}

	if v, ok := raw["compact"]; ok {
		b, err := expectBool(v, "compact")
		if err != nil {
			return p, err
		}
		p.Compact = b
	}

	return p, nil
}

func stringSlice(raw map[string]any, key string) ([]string, error) {
	v, ok := raw[key]
	if !ok {
		return nil, nil
	}
	list, ok := v.([]any)
	if !ok {
		return nil, coreerrors.New(coreerrors.CodeInvalidParameter, key+" must be an array of strings", nil)
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return nil, coreerrors.New(coreerrors.CodeInvalidParameter, key+" entries must be strings", nil)
		}
		out = append(out, s)
	}
	return out, nil
}

func expectBool(v any, field string) (bool, error) {
	b, ok := v.(bool)
	if !ok {
		return false, coreerrors.New(coreerrors.CodeInvalidParameter, field+" must be a boolean", nil)
	}
	return b, nil
}

// expectInt rejects a bool (Go's JSON decoder never aliases bool and
// float64, but callers may hand-construct params) and any non-integral
// float64, matching spec.md §8 invariant 6.
func expectInt(v any, field string) (int, error) {
	if _, ok := v.(bool); ok {
		return 0, coreerrors.New(coreerrors.CodeInvalidParameter, field+" must be an integer, not a boolean", nil)
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int64(n)) {
			return 0, coreerrors.New(coreerrors.CodeInvalidParameter, field+" must be an integer", nil)
		}
		return int(n), nil
	default:
		return 0, coreerrors.New(coreerrors.CodeInvalidParameter, field+" must be an integer", nil)
	}
}
