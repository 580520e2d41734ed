// Package lexsignals computes the per-candidate bonuses spec.md §4.5
// documents: phrase, proximity, number_context, code_exact,
// definition_title/anchor, exceptions, and prf (the exploration bucket is
// injected by internal/pipeline). The phrase, proximity and number_context
// weights come from config.Config; the token windows below are package
// constants, and ApplyPRF uses a fixed 0.1 boost and treats a term as
// distinctive when its document-frequency ratio is below 0.5.
package lexsignals

import (
	"strings"

	"github.com/dshills/manualcore/internal/config"
	"github.com/dshills/manualcore/internal/rank"
	"github.com/dshills/manualcore/internal/sparseindex"
	"github.com/dshills/manualcore/internal/tokenize"
)

const (
	proximityNearTokens = 3
	proximityFarTokens  = 8
	phraseWindowTokens  = 4
)

// Apply mutates cand's score and signal set in place given the doc's
// tokens and the query's terms/tokens.
func Apply(cfg config.Config, doc *sparseindex.Doc, queryTerms []string, queryTokens []tokenize.Token, exceptionsVocab []string, cand *rank.Candidate) {
	applyPhrase(cfg, doc, queryTokens, cand)
	applyProximity(cfg, doc, queryTerms, cand)
	applyNumberContext(cfg, doc, cand)
	applyCodeExact(doc, queryTerms, cand)
	applyAnchor(doc, queryTerms, cand)
	applyExceptions(doc, exceptionsVocab, cand)
}

func tokenPositions(doc *sparseindex.Doc, term string) []int {
	var pos []int
	for _, t := range doc.Tokens {
		if t.Text == term {
			pos = append(pos, t.Index)
		}
	}
	return pos
}

// applyPhrase adds LexicalPhraseWeight when every query token appears, in
// order, within a small window.
func applyPhrase(cfg config.Config, doc *sparseindex.Doc, queryTokens []tokenize.Token, cand *rank.Candidate) {
	if len(queryTokens) < 2 {
		return
	}
	firstTermPositions := tokenPositions(doc, queryTokens[0].Text)
	for _, start := range firstTermPositions {
		matched := true
		cursor := start
		for i := 1; i < len(queryTokens); i++ {
			found := false
			for _, p := range tokenPositions(doc, queryTokens[i].Text) {
				if p > cursor && p-cursor <= phraseWindowTokens {
					cursor = p
					found = true
					break
				}
			}
			if !found {
				matched = false
				break
			}
		}
		if matched {
			cand.Score += cfg.LexicalPhraseWeight
			cand.AddSignal(rank.SignalPhrase, "phrase: query tokens found in order within window")
			return
		}
	}
}

// applyProximity adds the near/far bonus when any two required tokens
// co-occur within the documented token-distance bands.
func applyProximity(cfg config.Config, doc *sparseindex.Doc, queryTerms []string, cand *rank.Candidate) {
	if len(queryTerms) < 2 {
		return
	}
	best := -1
	for i := 0; i < len(queryTerms); i++ {
		pi := tokenPositions(doc, queryTerms[i])
		for j := i + 1; j < len(queryTerms); j++ {
			pj := tokenPositions(doc, queryTerms[j])
			for _, a := range pi {
				for _, b := range pj {
					d := a - b
					if d < 0 {
						d = -d
					}
					if best < 0 || d < best {
						best = d
					}
				}
			}
		}
	}
	switch {
	case best < 0:
		return
	case best <= proximityNearTokens:
		cand.Score += cfg.LexicalProximityBonusNear
		cand.AddSignal(rank.SignalProximity, "proximity: near")
	case best <= proximityFarTokens:
		cand.Score += cfg.LexicalProximityBonusFar
		cand.AddSignal(rank.SignalProximity, "proximity: far")
	}
}

// applyNumberContext rewards a digit token with a unit- or
// preposition-like neighbor.
func applyNumberContext(cfg config.Config, doc *sparseindex.Doc, cand *rank.Candidate) {
	for i, t := range doc.Tokens {
		if t.Kind != tokenize.KindDigit {
			continue
		}
		if i+1 < len(doc.Tokens) && isUnitLike(doc.Tokens[i+1].Text) {
			cand.Score += cfg.LexicalNumberContextBonus
			cand.AddSignal(rank.SignalNumberContext, "number_context: digit followed by unit-like token")
			return
		}
		if i > 0 && isUnitLike(doc.Tokens[i-1].Text) {
			cand.Score += cfg.LexicalNumberContextBonus
			cand.AddSignal(rank.SignalNumberContext, "number_context: unit-like token precedes digit")
			return
		}
	}
}

var unitLikeSuffixes = []string{"日", "年", "月", "回", "円", "件", "%", "percent", "day", "days", "hour", "hours"}

func isUnitLike(s string) bool {
	for _, suf := range unitLikeSuffixes {
		if strings.Contains(s, suf) {
			return true
		}
	}
	return false
}

// applyCodeExact doubles the effective tf contribution of verbatim
// code-exact matches — represented here as a flat score bump once a
// code-exact query term matches verbatim in the doc.
func applyCodeExact(doc *sparseindex.Doc, queryTerms []string, cand *rank.Candidate) {
	for _, term := range queryTerms {
		if !strings.ContainsAny(term, ".-_/") {
			continue
		}
		if tf := doc.TermFreq[term]; tf > 0 {
			cand.Score += float64(tf) // double the tf contribution
			cand.AddSignal(rank.SignalCodeExact, "code_exact: verbatim code token matched")
		}
	}
}

// applyAnchor rewards a match against the node's title or first line.
func applyAnchor(doc *sparseindex.Doc, queryTerms []string, cand *rank.Candidate) {
	title := strings.ToLower(doc.Node.Title)
	firstLine := doc.Node.Text
	if i := strings.IndexByte(firstLine, '\n'); i >= 0 {
		firstLine = firstLine[:i]
	}
	firstLine = strings.ToLower(firstLine)
	for _, term := range queryTerms {
		if term == "" {
			continue
		}
		lt := strings.ToLower(term)
		if strings.Contains(title, lt) || strings.Contains(firstLine, lt) {
			cand.AddSignal(rank.SignalAnchor, "anchor: query term found in node title or first line")
			cand.AddSignal(rank.SignalDefinitionTitle, "")
			return
		}
	}
}

// applyExceptions flags nodes containing caller-supplied exception
// vocabulary. Used only as a tie-breaker, never sole evidence — enforced
// by the gate's "not exceptions alone" acceptance rule, not here.
func applyExceptions(doc *sparseindex.Doc, vocab []string, cand *rank.Candidate) {
	if len(vocab) == 0 {
		return
	}
	lower := strings.ToLower(doc.Node.Text)
	for _, w := range vocab {
		if w != "" && strings.Contains(lower, strings.ToLower(w)) {
			cand.AddSignal(rank.SignalExceptions, "exceptions: caller vocabulary present")
			return
		}
	}
}

// ApplyPRF adds a second-pass boost to nodes containing the most
// distinctive terms of the current top-K ranking. Strictly optional, per
// spec.md §4.5.
func ApplyPRF(cfg config.Config, idx *sparseindex.Index, topK rank.Ranking, all rank.Ranking, prfTopTerms int) {
	if len(topK) == 0 {
		return
	}
	freq := map[string]int{}
	for _, c := range topK {
		doc, ok := idx.Docs[c.NodeID]
		if !ok {
			continue
		}
		for term, tf := range doc.TermFreq {
			if idx.DFRatio(term) < 0.5 { // only distinctive (not-too-common) terms
				freq[term] += tf
			}
		}
	}
	if len(freq) == 0 {
		return
	}
	distinctive := topTerms(freq, prfTopTerms)
	for _, c := range all {
		doc, ok := idx.Docs[c.NodeID]
		if !ok {
			continue
		}
		for _, term := range distinctive {
			if doc.TermFreq[term] > 0 {
				c.Score += 0.1
				c.AddSignal(rank.SignalPRF, "prf: boosted by top-ranked distinctive term")
				break
			}
		}
	}
}

func topTerms(freq map[string]int, n int) []string {
	type kv struct {
		term string
		n    int
	}
	kvs := make([]kv, 0, len(freq))
	for t, c := range freq {
		kvs = append(kvs, kv{t, c})
	}
	for i := 1; i < len(kvs); i++ {
		for j := i; j > 0 && kvs[j-1].n < kvs[j].n; j-- {
			kvs[j-1], kvs[j] = kvs[j], kvs[j-1]
		}
	}
	if n > len(kvs) {
		n = len(kvs)
	}
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, kvs[i].term)
	}
	return out
}
