package guard

import (
	"regexp"
	"strings"

	"layout-translator/internal/lang"
)

// Verdict classifies a guarded translation.
type Verdict int

const (
	// Accepted means the translator output passed every rule.
	Accepted Verdict = iota
	// Reverted means the source text is rendered unchanged.
	Reverted
	// LocallySubstituted means a glossary entry replaced the output.
	LocallySubstituted
)

func (v Verdict) String() string {
	switch v {
	case Accepted:
		return "accepted"
	case Reverted:
		return "reverted"
	case LocallySubstituted:
		return "substituted"
	}
	return "unknown"
}

// Result is the outcome of guarding one piece of text.
type Result struct {
	Source  string  `json:"source"`
	Text    string  `json:"text"`
	Verdict Verdict `json:"verdict"`
	Reason  string  `json:"reason,omitempty"`
}

// Action tells the pipeline what to do after a rule ran.
type Action int

const (
	// Continue passes the (possibly rewritten) text to the next rule.
	Continue Action = iota
	// Revert stops and renders the source.
	Revert
	// Fallback stops and tries the glossary before the source.
	Fallback
)

// Rule is one step of the output check. Rules run in order and may rewrite
// the candidate text.
type Rule interface {
	Name() string
	Apply(src, tgt string) (string, Action)
}

type ruleFunc struct {
	name string
	fn   func(src, tgt string) (string, Action)
}

func (r ruleFunc) Name() string { return r.name }

func (r ruleFunc) Apply(src, tgt string) (string, Action) { return r.fn(src, tgt) }

// NewRule adapts a function to the Rule interface.
func NewRule(name string, fn func(src, tgt string) (string, Action)) Rule {
	return ruleFunc{name: name, fn: fn}
}

var parenRemainder = regexp.MustCompile(`\(([A-Za-z0-9][^)]{0,60})\)`)

// DefaultRules returns the standard checks for output in target.
func DefaultRules(target lang.Language) []Rule {
	return []Rule{
		NewRule("strip-leaks", func(_, tgt string) (string, Action) {
			return StripLeaks(tgt), Continue
		}),
		NewRule("markdown-noise", func(_, tgt string) (string, Action) {
			return removeMarkdownMentions(tgt), Continue
		}),
		NewRule("numbers", func(src, tgt string) (string, Action) {
			if !sameNumbers(src, tgt) {
				return tgt, Revert
			}
			return tgt, Continue
		}),
		NewRule("units", func(src, tgt string) (string, Action) {
			if unitAfterNumber.MatchString(src) && !unitAfterNumber.MatchString(tgt) {
				return tgt, Revert
			}
			return tgt, Continue
		}),
		NewRule("brands", func(src, tgt string) (string, Action) {
			return PreserveBrands(src, tgt), Continue
		}),
		NewRule("script", func(_, tgt string) (string, Action) {
			return collapseLeakedScript(tgt, target), Continue
		}),
		NewRule("artifacts", func(_, tgt string) (string, Action) {
			return removeArtifacts(tgt), Continue
		}),
		NewRule("number-unit-source", func(src, tgt string) (string, Action) {
			if IsNumberUnit(src) {
				return tgt, Revert
			}
			return tgt, Continue
		}),
		NewRule("degenerate", func(src, tgt string) (string, Action) {
			if !Plausible(src, tgt, target) {
				return tgt, Fallback
			}
			return tgt, Continue
		}),
		NewRule("dedup", func(_, tgt string) (string, Action) {
			return dedupWords(tgt), Continue
		}),
	}
}

// collapseLeakedScript handles output that came back in the wrong script
// with the meaningful part in parentheses, e.g. "电源 (Power)": it keeps
// only the parenthesised remainder.
func collapseLeakedScript(text string, target lang.Language) string {
	leak, ok := target.LeakScript()
	if !ok || text == "" {
		return text
	}
	if leak.Count(text) == 0 || target.Count(text) > 0 {
		return text
	}
	if m := parenRemainder.FindStringSubmatch(text); m != nil {
		return m[1]
	}
	return text
}

// Plausible rejects empty output, a lone target-script character, output
// equal to the source ignoring case, and output of two characters or fewer
// for a source of eight or more.
func Plausible(src, tgt string, target lang.Language) bool {
	s := strings.TrimSpace(src)
	t := strings.TrimSpace(tgt)
	if t == "" {
		return false
	}
	if runeLen(t) == 1 && target.Owns([]rune(t)[0]) {
		return false
	}
	if strings.EqualFold(s, t) {
		return false
	}
	if runeLen(s) >= 8 && runeLen(t) <= 2 {
		return false
	}
	return true
}

// Check runs rules over tgt and reports the final text, the stopping
// action and the name of the rule that stopped it.
func Check(src, tgt string, rules []Rule) (string, Action, string) {
	out := strings.TrimSpace(tgt)
	for _, r := range rules {
		next, act := r.Apply(src, out)
		if act != Continue {
			return out, act, r.Name()
		}
		out = next
	}
	return out, Continue, ""
}
