package pipeline

import "github.com/dshills/manualcore/internal/coreerrors"

// HitsKind is the closed set spec.md §4.11 documents for hits(kind=...).
type HitsKind string

const (
	KindCandidates   HitsKind = "candidates"
	KindUnscanned    HitsKind = "unscanned"
	KindConflicts    HitsKind = "conflicts"
	KindGaps         HitsKind = "gaps"
	KindIntegratedTop HitsKind = "integrated_top"
	KindClaims       HitsKind = "claims"
	KindEvidences    HitsKind = "evidences"
	KindEdges        HitsKind = "edges"
	KindGateRuns     HitsKind = "gate_runs"
	KindFusionDebug  HitsKind = "fusion_debug"
)

var validKinds = map[HitsKind]bool{
	KindCandidates: true, KindUnscanned: true, KindConflicts: true, KindGaps: true,
	KindIntegratedTop: true, KindClaims: true, KindEvidences: true, KindEdges: true,
	KindGateRuns: true, KindFusionDebug: true,
}

// HitsParams is the validated form of a hits() call.
type HitsParams struct {
	TraceID string
	Kind    HitsKind
	Offset  int
	Limit   int
}

// ParseHitsParams validates a raw argument map for hits().
func ParseHitsParams(raw map[string]any) (HitsParams, error) {
	p := HitsParams{Offset: 0, Limit: 20}

	traceID, _ := raw["trace_id"].(string)
	if traceID == "" {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "trace_id must be a non-empty string", nil)
	}
	p.TraceID = traceID

	kindStr, _ := raw["kind"].(string)
	kind := HitsKind(kindStr)
	if !validKinds[kind] {
		return p, coreerrors.New(coreerrors.CodeInvalidParameter, "kind is not a recognized hits kind", map[string]any{"kind": kindStr})
	}
	p.Kind = kind

	if v, ok := raw["offset"]; ok {
		n, err := expectInt(v, "offset")
		if err != nil {
			return p, err
		}
		if n < 0 {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "offset must be >= 0", nil)
		}
		p.Offset = n
	}
	if v, ok := raw["limit"]; ok {
		n, err := expectInt(v, "limit")
		if err != nil {
			return p, err
		}
		if n < 1 {
			return p, coreerrors.New(coreerrors.CodeInvalidParameter, "limit must be >= 1", nil)
		}
		p.Limit = n
	}
	return p, nil
}
