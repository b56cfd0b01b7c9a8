package layout

import "strings"

// Wrap breaks text into lines no wider than width at the given size.
// Explicit newlines are kept; words wider than a line are broken between
// characters, which is also how unspaced CJK text wraps.
func Wrap(text string, width, size float64, m Metrics) []string {
	if m == nil {
		m = FallbackMetrics{}
	}
	var lines []string
	for _, para := range strings.Split(text, "\n") {
		lines = append(lines, wrapParagraph(strings.Fields(para), width, size, m)...)
	}
	return lines
}

func wrapParagraph(words []string, width, size float64, m Metrics) []string {
	if len(words) == 0 {
		return []string{""}
	}
	var (
		lines []string
		cur   string
	)
	for _, w := range words {
		candidate := w
		if cur != "" {
			candidate = cur + " " + w
		}
		if m.Width(candidate, size) <= width {
			cur = candidate
			continue
		}
		if cur != "" {
			lines = append(lines, cur)
			cur = ""
		}
		if m.Width(w, size) <= width {
			cur = w
			continue
		}
		pieces := breakRunes(w, width, size, m)
		lines = append(lines, pieces[:len(pieces)-1]...)
		cur = pieces[len(pieces)-1]
	}
	if cur != "" {
		lines = append(lines, cur)
	}
	return lines
}

// breakRunes splits a single word into pieces that fit width. A piece
// always holds at least one rune.
func breakRunes(word string, width, size float64, m Metrics) []string {
	var pieces []string
	var cur []rune
	for _, r := range word {
		next := append(cur, r)
		if len(cur) > 0 && m.Width(string(next), size) > width {
			pieces = append(pieces, string(cur))
			cur = []rune{r}
			continue
		}
		cur = next
	}
	return append(pieces, string(cur))
}
