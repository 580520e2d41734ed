// Package decomposer pattern-matches comparative query structures ("A vs
// B", "A と B の違い") and emits the sub-queries spec.md §4.6 describes.
// The pattern list is grounded on original_source/manual_index.py's query
// normalization helpers combined with the teacher's regex-driven parsing
// style in internal/parser.
package decomposer

import (
	"regexp"
	"strings"
)

// comparativePatterns captures two operands from a comparison phrase. Each
// pattern's first two submatches are the left and right operand.
var comparativePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^\s*(.+?)\s+(?:vs\.?|versus)\s+(.+?)\s*$`),
	regexp.MustCompile(`(.+?)\s*と\s*(.+?)\s*の\s*(?:違い|差|比較)\s*$`),
	regexp.MustCompile(`(?i)^\s*(?:difference|diff)\s+between\s+(.+?)\s+and\s+(.+?)\s*$`),
	regexp.MustCompile(`(.+?)\s*と\s*(.+?)\s*(?:はどう違う|はどちらが)`),
}

// Decompose returns up to maxSubQueries sub-queries when query matches a
// comparative pattern, else nil. The sub-queries are, in order, the left
// operand, the right operand, and both operands joined by a space; the
// words of the query outside the two operands are not carried into them.
func Decompose(query string, maxSubQueries int) []string {
	if maxSubQueries <= 0 {
		return nil
	}
	for _, pat := range comparativePatterns {
		m := pat.FindStringSubmatch(query)
		if m == nil || len(m) < 3 {
			continue
		}
		left, right := strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
		if left == "" || right == "" {
			continue
		}
		subs := []string{left, right, left + " " + right}
		if len(subs) > maxSubQueries {
			subs = subs[:maxSubQueries]
		}
		return subs
	}
	return nil
}
