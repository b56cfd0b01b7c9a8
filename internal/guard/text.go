// Package guard decides which text needs translation, sends it through a
// Translator and validates what comes back. Rejected output is never an
// error: it is reported as a Verdict alongside the text to render.
package guard

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

var (
	dashVariants = regexp.MustCompile(`[\x{2010}-\x{2015}\x{2212}]`)

	latinLetter    = regexp.MustCompile(`[A-Za-z]`)
	decorationOnly = regexp.MustCompile(`^[\*\x{2022}●▪· ]+$`)
	numericOnly    = regexp.MustCompile(`^[0-9.\-/\s]+$`)
	codeOnly       = regexp.MustCompile(`^[A-Z0-9_\-/]{2,}$`)
	labelLike      = regexp.MustCompile(`^[A-Za-z]{1,12}$`)
	slashSplit     = regexp.MustCompile(`\s*/\s*`)

	numberUnit = regexp.MustCompile(`(?i)^\s*\d+(?:\.\d+)?\s*(mm|cm|m|km|in|inch|°C|°F|°|%|V|A|W|kW|g|kg|Hz|kHz|MHz|GHz|Gbps|gb/s|mb/s)\s*$`)
	unitAfterNumber = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)(\s?)(u|mm|cm|m|km|in|inch|°c|°f|°|%|v|a|w|kw|g|kg|hz|khz|mhz|ghz|gbps|gb/s|mb/s)\b`)

	numberToken = regexp.MustCompile(`\d[\d,.]*`)
)

// Normalize composes the text to NFC, drops soft hyphens, turns
// non-breaking spaces into spaces and dash variants into "-", and
// collapses whitespace.
func Normalize(s string) string {
	if s == "" {
		return s
	}
	s = norm.NFC.String(s)
	s = strings.ReplaceAll(s, "\u00AD", "")
	s = strings.ReplaceAll(s, "\u00A0", " ")
	s = dashVariants.ReplaceAllString(s, "-")
	return strings.Join(strings.Fields(s), " ")
}

// NeedsTranslation reports whether text carries Latin words worth sending
// to the translator: not bullets, not bare numbers, not upper-case codes.
func NeedsTranslation(text string) bool {
	t := strings.TrimSpace(text)
	return t != "" &&
		latinLetter.MatchString(t) &&
		!decorationOnly.MatchString(t) &&
		!numericOnly.MatchString(t) &&
		!codeOnly.MatchString(t)
}

// IsNumberUnit reports whether text is exactly one number with a unit, such
// as "10 mm" or "2.4GHz".
func IsNumberUnit(text string) bool {
	return numberUnit.MatchString(text)
}

// Numbers returns the numeric tokens of s in order. Thousands separators
// and trailing periods are dropped, so "1,000." and "1000" compare equal.
// Digits glued to a preceding letter, as in "X200", are part of a code and
// are not numbers.
func Numbers(s string) []string {
	var out []string
	for _, loc := range numberToken.FindAllStringIndex(s, -1) {
		if loc[0] > 0 {
			prev, _ := utf8.DecodeLastRuneInString(s[:loc[0]])
			if isWordRune(prev) {
				continue
			}
		}
		tok := strings.ReplaceAll(s[loc[0]:loc[1]], ",", "")
		tok = strings.TrimRight(tok, ".")
		out = append(out, tok)
	}
	return out
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func sameNumbers(src, tgt string) bool {
	a, b := Numbers(src), Numbers(tgt)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// splitSlash splits "Input/Output" style groups: two parts that both
// contain letters, or three or more parts when the whole is not numeric.
func splitSlash(t string) []string {
	if !strings.Contains(t, "/") {
		return []string{t}
	}
	parts := slashSplit.Split(t, -1)
	if len(parts) == 2 && latinLetter.MatchString(parts[0]) && latinLetter.MatchString(parts[1]) {
		return parts
	}
	if len(parts) >= 3 && !numericOnly.MatchString(t) {
		return parts
	}
	return []string{t}
}

// dedupWords removes immediately repeated words. Words containing a digit
// are always kept so the numeric sequence cannot change.
func dedupWords(text string) string {
	words := strings.Fields(text)
	out := make([]string, 0, len(words))
	for _, w := range words {
		if len(out) > 0 && out[len(out)-1] == w && !strings.ContainsAny(w, "0123456789") {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, " ")
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
