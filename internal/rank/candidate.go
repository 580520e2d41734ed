// Package rank defines the shared Candidate/Signal types that flow through
// LexicalSignals, Gates, QueryDecomposer, RRFusion, and DynamicCutoff.
// Representing signals as a closed sum type rather than bare strings
// follows spec.md §9's "tagged variants over polymorphism" note.
package rank

// Signal is one member of the closed set spec.md §3 enumerates.
type Signal string

const (
	SignalExact              Signal = "exact"
	SignalRequiredTerm       Signal = "required_term"
	SignalRequiredTermAnd    Signal = "required_term_and"
	SignalRequiredTermsRRF   Signal = "required_terms_rrf"
	SignalGateRRF            Signal = "gate_rrf"
	SignalPhrase             Signal = "phrase"
	SignalAnchor             Signal = "anchor"
	SignalNumberContext      Signal = "number_context"
	SignalProximity          Signal = "proximity"
	SignalExceptions         Signal = "exceptions"
	SignalCodeExact          Signal = "code_exact"
	SignalPRF                Signal = "prf"
	SignalExploration        Signal = "exploration"
	SignalQueryDecompRRF     Signal = "query_decomp_rrf"
	SignalDefinitionTitle    Signal = "definition_title"
)

// Candidate is a scored node, carrying the explain trail spec.md §3
// requires.
type Candidate struct {
	NodeID        string
	Path          string
	Title         string
	StartLine     int
	EndLine       int
	Score         float64
	Signals       map[Signal]bool
	MatchedTokens []string
	TokenHits     int
	MatchCoverage float64
	RankExplain   []string // ordered, human-auditable trail of scoring steps
}

// HasSignal reports whether s is present.
func (c *Candidate) HasSignal(s Signal) bool { return c.Signals[s] }

// AddSignal records s and appends a short explain note.
func (c *Candidate) AddSignal(s Signal, note string) {
	if c.Signals == nil {
		c.Signals = make(map[Signal]bool)
	}
	c.Signals[s] = true
	if note != "" {
		c.RankExplain = append(c.RankExplain, note)
	}
}

// SortedSignals returns the candidate's signals, sorted for deterministic
// output.
func (c *Candidate) SortedSignals() []string {
	out := make([]string, 0, len(c.Signals))
	for s := range c.Signals {
		out = append(out, string(s))
	}
	// simple insertion sort keeps this dependency-free and is plenty fast
	// for the handful of signals a candidate ever carries.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// Ranking is an ordered (descending score) slice of candidates, the unit
// RRFusion fuses.
type Ranking []*Candidate

// Clone returns a shallow copy of the ranking slice (not the candidates
// themselves) so callers can reorder without aliasing.
func (r Ranking) Clone() Ranking {
	out := make(Ranking, len(r))
	copy(out, r)
	return out
}
