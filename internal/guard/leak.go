package guard

import (
	"regexp"
	"strings"
)

var (
	thinkBlock = regexp.MustCompile(`(?is)<think>.*?</think>`)
	noiseToken = regexp.MustCompile(`(?i)(?:/no_think|<\|endoftext\|>|</s>|번역\s*[:：]|translation\s*[:：])`)
	// lines that repeat prompt instructions back, optionally bulleted
	leakLine = regexp.MustCompile(`(?i)^\s*(?:[-*•]\s*)?(?:(?:숫자|단위|날짜|마크다운|제목|불릿|목록|표|머리말|지시문|출력)|(?:keep|preserve|numbers?|units?|dates?|markdown|bullets?|headings?|output|no\s*preamble|instruction))[:\s].*$`)
	headerOnly = regexp.MustCompile(`(?i)^(번역|translation)\s*[:：]\s*$`)

	spaceRuns   = regexp.MustCompile(`[ \t]{2,}`)
	newlineRuns = regexp.MustCompile(`\n{3,}`)
	anySpaceRun = regexp.MustCompile(`\s{2,}`)

	markdownWord = regexp.MustCompile(`(?i)\bmarkdown\b`)
	artifacts    = regexp.MustCompile(`\s*(<end_of_turn>|#{2,}|\*\*)\s*`)
	codeFence    = regexp.MustCompile("```[A-Za-z]*")
	endMarkers   = []string{"</s>", "<|endoftext|>", "<end_of_turn>"}
)

// StripLeaks removes reasoning blocks, noise tokens and lines that echo the
// prompt's instructions.
func StripLeaks(text string) string {
	if text == "" {
		return text
	}
	t := thinkBlock.ReplaceAllString(text, "")
	t = noiseToken.ReplaceAllString(t, " ")

	var kept []string
	for _, ln := range strings.Split(t, "\n") {
		l := strings.TrimSpace(ln)
		if l == "" || leakLine.MatchString(l) || headerOnly.MatchString(l) {
			continue
		}
		kept = append(kept, l)
	}
	t = strings.Join(kept, "\n")
	t = spaceRuns.ReplaceAllString(t, " ")
	t = newlineRuns.ReplaceAllString(t, "\n\n")
	return strings.TrimSpace(t)
}

// TrimGeneration cuts raw model output at the first end-of-sequence marker
// and removes code fences.
func TrimGeneration(raw string) string {
	t := codeFence.ReplaceAllString(raw, "")
	for _, m := range endMarkers {
		if i := strings.Index(t, m); i >= 0 {
			t = t[:i]
		}
	}
	return strings.TrimSpace(t)
}

// StripNoiseMarks removes "Translation:" style prefixes left in free text.
func StripNoiseMarks(text string) string {
	return strings.TrimSpace(noiseToken.ReplaceAllString(text, ""))
}

func removeMarkdownMentions(text string) string {
	t := markdownWord.ReplaceAllString(text, "")
	t = strings.ReplaceAll(t, "마크다운", "")
	t = anySpaceRun.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

func removeArtifacts(text string) string {
	t := artifacts.ReplaceAllString(text, " ")
	return strings.Join(strings.Fields(t), " ")
}
