package guard

import (
	"regexp"
	"sort"
	"strings"
)

const maxAppendedBrands = 2

var (
	trademarkToken = regexp.MustCompile(`[\w\-/]*[®™]`)
	acronymToken   = regexp.MustCompile(`\b[A-Z]{2,5}\b`)
	modelCode      = regexp.MustCompile(`\b[A-Z]*\d+[A-Z0-9\-]*\b`)
	slashAcronym   = regexp.MustCompile(`\b[A-Z0-9]{2,}(?:/[A-Z0-9]{2,})+\b`)
	upperLetter    = regexp.MustCompile(`[A-Z]`)
	digitOrSlash   = regexp.MustCompile(`\d|/`)

	// unit abbreviations that look like acronyms
	unitStop = map[string]bool{
		"IN": true, "MM": true, "CM": true, "M": true, "KM": true,
		"HZ": true, "KHZ": true, "MHZ": true, "GHZ": true,
		"V": true, "A": true, "W": true, "KW": true, "G": true, "KG": true,
		"DB": true, "DBM": true,
	}
)

type brandToken struct {
	text string
	pos  int
}

// brandTokens extracts trademark-marked words, short acronyms, model codes
// and slash-joined acronym groups, ordered by first appearance and longest
// first at the same position. Only tokens with an upper-case letter count.
func brandTokens(src string) []brandToken {
	seen := map[string]bool{}
	var toks []brandToken
	add := func(re *regexp.Regexp, skip func(string) bool) {
		for _, loc := range re.FindAllStringIndex(src, -1) {
			t := src[loc[0]:loc[1]]
			if seen[t] || !upperLetter.MatchString(t) || (skip != nil && skip(t)) {
				continue
			}
			seen[t] = true
			toks = append(toks, brandToken{text: t, pos: loc[0]})
		}
	}
	add(trademarkToken, nil)
	add(acronymToken, func(t string) bool { return unitStop[strings.ToUpper(t)] })
	add(modelCode, nil)
	add(slashAcronym, nil)

	sort.SliceStable(toks, func(i, j int) bool {
		if toks[i].pos != toks[j].pos {
			return toks[i].pos < toks[j].pos
		}
		return len(toks[i].text) > len(toks[j].text)
	})
	return toks
}

// brandPresent compares trademark tokens without their mark, so "5V" in
// the output satisfies "5V®" in the source.
func brandPresent(tok, tgt string) bool {
	if strings.Contains(tgt, tok) {
		return true
	}
	bare := strings.TrimRight(tok, "®™")
	return bare != tok && bare != "" && strings.Contains(tgt, bare)
}

// PreserveBrands appends up to two brand or model tokens that the
// translation dropped, as " (a / b)". Short plain sources, outputs already
// ending in ")" and tokens that would alter the numeric sequence are left
// alone.
func PreserveBrands(src, tgt string) string {
	if src == "" || tgt == "" {
		return tgt
	}
	if len(strings.Fields(src)) <= 3 && !digitOrSlash.MatchString(src) {
		return tgt
	}
	out := strings.TrimSpace(tgt)
	if strings.HasSuffix(out, ")") {
		return out
	}

	var missing []string
	for _, tok := range brandTokens(src) {
		if !brandPresent(tok.text, out) {
			missing = append(missing, tok.text)
		}
	}
	if len(missing) == 0 {
		return out
	}

	// a token inside a longer missing token adds nothing
	var keep []string
	for _, m := range missing {
		covered := false
		for _, other := range missing {
			if other != m && strings.Contains(other, m) {
				covered = true
				break
			}
		}
		if covered {
			continue
		}
		cand := append(append([]string{}, keep...), m)
		if !sameNumbers(out, out+" ("+strings.Join(cand, " / ")+")") {
			continue
		}
		keep = cand
		if len(keep) == maxAppendedBrands {
			break
		}
	}
	if len(keep) == 0 {
		return out
	}
	return out + " (" + strings.Join(keep, " / ") + ")"
}
