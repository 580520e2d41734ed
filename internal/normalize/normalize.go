// Package normalize implements the text-normalization stage every other
// component in manualcore builds on: Unicode NFKC, width unification,
// casefold, and a handful of symbol-variant folds recovered from the
// original manual-search implementation's normalize_text(). Grounded on
// golang.org/x/text, the same way kamusis-axon-cli depends on it directly
// for width/casefold handling rather than hand-rolling a stdlib-only fold.
package normalize

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

var (
	spaceRE      = regexp.MustCompile(`\s+`)
	hyphenRE     = regexp.MustCompile(`[‐‑–—−]`)
	middleDotRE  = regexp.MustCompile(`[･]`)
	openParenRE  = regexp.MustCompile(`[（]`)
	closeParenRE = regexp.MustCompile(`[）]`)
	slashRE      = regexp.MustCompile(`[／]`)

	foldCaser = cases.Fold()
)

// Text applies, in order: NFKC, CRLF/CR normalization, hyphen/middle-dot/
// paren/slash folding, width unification, casefold, and whitespace
// collapse. It is idempotent: Text(Text(x)) == Text(x).
func Text(s string) string {
	out := norm.NFKC.String(s)
	out = strings.ReplaceAll(out, "\r\n", "\n")
	out = strings.ReplaceAll(out, "\r", "\n")
	out = hyphenRE.ReplaceAllString(out, "-")
	out = middleDotRE.ReplaceAllString(out, "・")
	out = openParenRE.ReplaceAllString(out, "(")
	out = closeParenRE.ReplaceAllString(out, ")")
	out = slashRE.ReplaceAllString(out, "/")
	out = width.Fold.String(out)
	out = foldCaser.String(out)
	out = spaceRE.ReplaceAllString(out, " ")
	return strings.TrimSpace(out)
}

// SplitTerms normalizes q and splits it on single spaces, dropping empties.
func SplitTerms(q string) []string {
	normalized := Text(q)
	if normalized == "" {
		return nil
	}
	parts := strings.Split(normalized, " ")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// loosePattern builds a regexp that matches term's characters in order,
// glued by an arbitrary run of whitespace, hyphen, middle-dot, slash, or
// parenthesis characters — the "loose" match original_source uses to catch
// manuals that write the same term with different internal punctuation.
func loosePattern(term string) (*regexp.Regexp, bool) {
	var escaped []string
	for _, r := range term {
		if strings.TrimSpace(string(r)) == "" {
			continue
		}
		escaped = append(escaped, regexp.QuoteMeta(string(r)))
	}
	if len(escaped) == 0 {
		return nil, false
	}
	pattern := strings.Join(escaped, `[\s\-・/()（）]*`)
	re, err := regexp.Compile("(?i)" + pattern)
	if err != nil {
		return nil, false
	}
	return re, true
}

// LooseContains reports whether term loosely matches somewhere in text.
func LooseContains(term, text string) bool {
	if strings.TrimSpace(term) == "" {
		return false
	}
	re, ok := loosePattern(term)
	if !ok {
		return false
	}
	return re.MatchString(Text(text))
}
