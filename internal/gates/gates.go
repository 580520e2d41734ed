// Package gates implements the baseline gate (g0) and required-terms gate
// (g_req) spec.md §4.4 documents: DF-guard filtering, single- and
// two-term required-term modes with RRF fusion across the (A, B, A+B)
// passes, and gate selection with required_effect_status classification.
package gates

import (
	"math"
	"sort"

	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/lexsignals"
	"github.com/dshills/manualcore/internal/rank"
	"github.com/dshills/manualcore/internal/rrf"
	"github.com/dshills/manualcore/internal/sparseindex"
	"github.com/dshills/manualcore/internal/tokenize"
)

// DFFilterDecision is one entry of applied.required_terms_df_filtered[].
type DFFilterDecision struct {
	Term    string
	Dropped bool
	Reason  string // "too_common" or "too_rare"
}

// RequiredEffectStatus is the closed enum spec.md §4.4 defines.
type RequiredEffectStatus string

const (
	RequiredEffective       RequiredEffectStatus = "required_effective"
	RequiredTermDropped     RequiredEffectStatus = "term_dropped_or_weakened"
	RequiredNoneMatched     RequiredEffectStatus = "required_none_matched"
	RequiredFallback        RequiredEffectStatus = "required_fallback"
)

// Result bundles a gate's output ranking plus the diagnostics the Pipeline
// needs to populate `applied`.
type Result struct {
	SelectedGate          string // "g0" or "g_req"
	Candidates            rank.Ranking
	RequiredTermsRelaxed  bool
	RelaxReason           string
	DFFiltered            []DFFilterDecision
	RequiredEffectStatus  RequiredEffectStatus
}

func baseCandidate(doc *sparseindex.Doc, queryTerms []string) *rank.Candidate {
	return &rank.Candidate{
		NodeID:    doc.Node.NodeID,
		Path:      doc.Node.Path,
		Title:     doc.Node.Title,
		StartLine: doc.Node.LineStart,
		EndLine:   doc.Node.LineEnd,
		Signals:   map[rank.Signal]bool{},
	}
}

func coverage(doc *sparseindex.Doc, queryTerms []string) (int, float64) {
	hits := 0
	for _, t := range queryTerms {
		if doc.TermFreq[t] > 0 {
			hits++
		}
	}
	cov := 0.0
	if len(queryTerms) > 0 {
		cov = float64(hits) / float64(len(queryTerms))
	}
	return hits, cov
}

func scoreWithCoverage(cfg config.Config, idx *sparseindex.Index, doc *sparseindex.Doc, queryTerms []string) float64 {
	base := idx.ScoreBM25(queryTerms, doc.Node.NodeID)
	hits, _ := coverage(doc, queryTerms)
	unique := uniqueCount(queryTerms)
	queryCoverage := 0.0
	if unique > 0 {
		queryCoverage = float64(hits) / float64(unique)
	}
	_, nodeCov := coverage(doc, queryTerms)
	score := base * (1 + cfg.SparseQueryCoverageWeight*queryCoverage)
	score *= (1 + cfg.LexicalCoverageWeight*nodeCov)
	lengthPenalty := cfg.LexicalLengthPenaltyWeight * logf(1+float64(len(doc.Node.Text))/4000)
	score -= lengthPenalty
	return score
}

func uniqueCount(terms []string) int {
	seen := map[string]bool{}
	for _, t := range terms {
		seen[t] = true
	}
	return len(seen)
}

func logf(x float64) float64 {
	if x <= 0 {
		return 0
	}
	return math.Log(x)
}

// BaselineGate runs g0 over every doc in idx: scores with BM25 plus
// coverage correction and length penalty, adds the §4.5 lexical-signal
// bonuses, and accepts a node only if it carries at least one lexical
// signal other than "exceptions" alone. The scan stops early once
// cfg.ScanHardCap docs have been visited, and a path stops accepting new
// candidates once cfg.PerFileCandidateCap is reached for it; the second
// return value reports whether either cap actually trimmed the scan, for
// cutoff.Params.StageCapHit. Docs are visited in NodeID order so the caps
// trim deterministically rather than depending on Go's map iteration
// order.
func BaselineGate(cfg config.Config, idx *sparseindex.Index, queryTerms []string, queryTokens []tokenize.Token, exceptionsVocab []string) (rank.Ranking, bool) {
	nodeIDs := make([]string, 0, len(idx.Docs))
	for id := range idx.Docs {
		nodeIDs = append(nodeIDs, id)
	}
	sort.Strings(nodeIDs)

	var out rank.Ranking
	perFileCount := map[string]int{}
	stageCapHit := false
	for i, nodeID := range nodeIDs {
		if cfg.ScanHardCap > 0 && i >= cfg.ScanHardCap {
			stageCapHit = true
			break
		}
		doc := idx.Docs[nodeID]
		hits, cov := coverage(doc, queryTerms)
		if hits == 0 {
			continue
		}
		if cfg.PerFileCandidateCap > 0 && perFileCount[doc.Node.Path] >= cfg.PerFileCandidateCap {
			stageCapHit = true
			continue
		}
		cand := baseCandidate(doc, queryTerms)
		cand.Score = scoreWithCoverage(cfg, idx, doc, queryTerms)
		cand.MatchCoverage = cov
		cand.TokenHits = hits
		cand.AddSignal(rank.SignalExact, "")
		lexsignals.Apply(cfg, doc, queryTerms, queryTokens, exceptionsVocab, cand)

		if !hasNonExceptionSignal(cand) {
			continue
		}
		perFileCount[doc.Node.Path]++
		out = append(out, cand)
	}
	sortByScore(out)
	return out, stageCapHit
}

func hasNonExceptionSignal(c *rank.Candidate) bool {
	for s := range c.Signals {
		if s != rank.SignalExceptions {
			return true
		}
	}
	return false
}

func sortByScore(r rank.Ranking) {
	sort.Slice(r, func(i, j int) bool {
		if r[i].Score != r[j].Score {
			return r[i].Score > r[j].Score
		}
		return r[i].NodeID < r[j].NodeID
	})
}

// FilterRequiredTerms applies the DF guard: drop a term whose document
// frequency ratio exceeds tooCommon, flag (but keep) a term below tooRare.
func FilterRequiredTerms(idx *sparseindex.Index, terms []string, tooCommon, tooRare float64) ([]string, []DFFilterDecision) {
	var kept []string
	var decisions []DFFilterDecision
	for _, t := range terms {
		ratio := idx.DFRatio(t)
		switch {
		case ratio > tooCommon:
			decisions = append(decisions, DFFilterDecision{Term: t, Dropped: true, Reason: "too_common"})
		case ratio < tooRare:
			decisions = append(decisions, DFFilterDecision{Term: t, Dropped: false, Reason: "too_rare"})
			kept = append(kept, t)
		default:
			kept = append(kept, t)
		}
	}
	return kept, decisions
}

// RequiredGate implements g_req: single-term mode adds a lambda*idf bonus
// over g0; two-term mode fuses the (A, B, A+B) passes with RRF. The second
// return value carries the raw RRF (node_id, rank_i, rrf_contribution)
// tuples for fusion_debug paging; it is nil in single-term mode, where no
// fusion occurs.
func RequiredGate(cfg config.Config, idx *sparseindex.Index, queryTerms, requiredTerms []string, queryTokens []tokenize.Token, exceptionsVocab []string) (rank.Ranking, []map[string]any) {
	if len(requiredTerms) == 0 {
		return nil, nil
	}
	base, _ := BaselineGate(cfg, idx, queryTerms, queryTokens, exceptionsVocab)
	baseByID := map[string]*rank.Candidate{}
	for _, c := range base {
		baseByID[c.NodeID] = c
	}

	if len(requiredTerms) == 1 {
		return singleTermMode(idx, requiredTerms[0], baseByID), nil
	}
	return twoTermMode(cfg, idx, requiredTerms, baseByID)
}

const requiredTermLambda = 1.0

func singleTermMode(idx *sparseindex.Index, term string, baseByID map[string]*rank.Candidate) rank.Ranking {
	var out rank.Ranking
	for nodeID := range idx.Docs {
		if idx.Docs[nodeID].TermFreq[term] == 0 {
			continue
		}
		cand, ok := baseByID[nodeID]
		if !ok {
			cand = baseCandidate(idx.Docs[nodeID], []string{term})
		}
		cand.Score += requiredTermLambda * idx.IDF(term)
		cand.AddSignal(rank.SignalRequiredTerm, "required_term: single required term matched")
		out = append(out, cand)
	}
	sortByScore(out)
	return out
}

func passForTerms(idx *sparseindex.Index, terms []string) rank.Ranking {
	var out rank.Ranking
	for nodeID, doc := range idx.Docs {
		ok := true
		for _, t := range terms {
			if doc.TermFreq[t] == 0 {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		out = append(out, &rank.Candidate{NodeID: nodeID, Score: idx.ScoreBM25(terms, nodeID), Signals: map[rank.Signal]bool{}})
	}
	sortByScore(out)
	return out
}

func twoTermMode(cfg config.Config, idx *sparseindex.Index, terms []string, baseByID map[string]*rank.Candidate) (rank.Ranking, []map[string]any) {
	t1, t2 := terms[0], terms[1]
	passA := passForTerms(idx, []string{t1})
	passB := passForTerms(idx, []string{t2})
	passAB := passForTerms(idx, []string{t1, t2})

	passes := []rank.Ranking{passA, passB, passAB}
	order, fused, contributors := rrf.Fuse(passes, cfg.QueryDecompRRFK)
	fusionDebug := rrf.Tuples(passes, cfg.QueryDecompRRFK)

	var out rank.Ranking
	for _, nodeID := range order {
		doc, ok := idx.Docs[nodeID]
		if !ok {
			continue
		}
		cand, ok := baseByID[nodeID]
		if !ok {
			cand = baseCandidate(doc, terms)
		}
		cand.Score += fused[nodeID]
		if contributors[nodeID] > 1 {
			cand.AddSignal(rank.SignalRequiredTermsRRF, "required_terms_rrf: fused rank influenced by multiple passes")
		} else if doc.TermFreq[t1] > 0 && doc.TermFreq[t2] > 0 {
			cand.AddSignal(rank.SignalRequiredTermAnd, "required_term_and: both terms present")
		} else {
			cand.AddSignal(rank.SignalRequiredTerm, "required_term: one of the two terms matched")
		}
		out = append(out, cand)
	}
	sortByScore(out)
	return out, fusionDebug
}

// Select picks g_req when it produced at least one candidate, else falls
// back to g0 and records the relaxation reason, per spec.md §4.4.
func Select(g0, gReq rank.Ranking, requiredTerms []string, topK int) Result {
	res := Result{}
	if len(requiredTerms) > 0 && len(gReq) > 0 {
		res.SelectedGate = "g_req"
		res.Candidates = gReq
	} else {
		res.SelectedGate = "g0"
		res.Candidates = g0
		if len(requiredTerms) > 0 {
			res.RequiredTermsRelaxed = true
			res.RelaxReason = "zero_candidates_with_required_terms"
		}
	}
	res.RequiredEffectStatus = classifyEffect(res, requiredTerms, topK)
	return res
}

func classifyEffect(res Result, requiredTerms []string, topK int) RequiredEffectStatus {
	if len(requiredTerms) == 0 {
		return RequiredEffective
	}
	if res.RequiredTermsRelaxed {
		if len(res.Candidates) == 0 {
			return RequiredNoneMatched
		}
		return RequiredFallback
	}
	n := topK
	if n > len(res.Candidates) {
		n = len(res.Candidates)
	}
	carrying := 0
	for i := 0; i < n; i++ {
		c := res.Candidates[i]
		if c.HasSignal(rank.SignalRequiredTerm) || c.HasSignal(rank.SignalRequiredTermAnd) || c.HasSignal(rank.SignalRequiredTermsRRF) {
			carrying++
		}
	}
	if n == 0 {
		return RequiredNoneMatched
	}
	if carrying == n {
		return RequiredEffective
	}
	if carrying == 0 {
		return RequiredNoneMatched
	}
	return RequiredTermDropped
}

// ExceptionsVocabFromStrings lower-cases nothing itself; kept as a thin
// named adapter so callers don't pass a bare []string where intent matters.
func ExceptionsVocabFromStrings(words []string) []string { return words }
