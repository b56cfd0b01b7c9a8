package guard

import (
	"context"
	"strings"
	"sync/atomic"

	"layout-translator/internal/lang"
	"layout-translator/internal/logger"
)

// wholeSegmentChars is the length from which a segment is sent as is,
// without clause splitting.
const wholeSegmentChars = 60

// Translator turns text into the target language.
type Translator interface {
	Translate(ctx context.Context, text string, target lang.Language) (string, error)
}

// Options configures a Dispatcher.
type Options struct {
	Target lang.Language
	// TranslateLabel sends a leading one-word label such as "Input" to the
	// translator; when false it is kept verbatim.
	TranslateLabel bool
	Glossary       Glossary
	// Cache memoizes results; nil disables memoization.
	Cache *Cache
	// Rules overrides DefaultRules(Target).
	Rules []Rule
	// ShowDiff logs every source/result pair at debug level.
	ShowDiff bool
}

// DispatchStats counts guard outcomes.
type DispatchStats struct {
	Accepted    int64
	Reverted    int64
	Substituted int64
	Errors      int64
}

// Dispatcher splits segments into translatable units and guards each
// translator call.
type Dispatcher struct {
	tr   Translator
	opts Options

	accepted    atomic.Int64
	reverted    atomic.Int64
	substituted atomic.Int64
	errors      atomic.Int64
}

// NewDispatcher creates a dispatcher around tr.
func NewDispatcher(tr Translator, opts Options) *Dispatcher {
	if opts.Rules == nil {
		opts.Rules = DefaultRules(opts.Target)
	}
	return &Dispatcher{tr: tr, opts: opts}
}

// Target returns the language the dispatcher translates into.
func (d *Dispatcher) Target() lang.Language {
	return d.opts.Target
}

// Stats returns the counters accumulated so far.
func (d *Dispatcher) Stats() DispatchStats {
	return DispatchStats{
		Accepted:    d.accepted.Load(),
		Reverted:    d.reverted.Load(),
		Substituted: d.substituted.Load(),
		Errors:      d.errors.Load(),
	}
}

// Guarded translates one unit of text and validates the output. Results
// are memoized by normalized text; translator failures are not.
func (d *Dispatcher) Guarded(ctx context.Context, text string) Result {
	src := Normalize(strings.TrimSpace(text))
	if src == "" {
		return Result{Source: src, Text: src, Verdict: Reverted, Reason: "empty"}
	}
	if d.opts.Cache != nil {
		if r, ok := d.opts.Cache.Get(src, d.opts.Target); ok {
			return r
		}
	}

	raw, err := d.tr.Translate(ctx, src, d.opts.Target)
	if err != nil {
		d.errors.Add(1)
		logger.Warn("translator call failed, using fallback",
			logger.String("source", src), logger.Err(err))
		return d.count(d.fallback(src, "translator error"))
	}

	var r Result
	out, act, rule := Check(src, raw, d.opts.Rules)
	switch act {
	case Continue:
		r = Result{Source: src, Text: out, Verdict: Accepted}
	case Revert:
		r = Result{Source: src, Text: src, Verdict: Reverted, Reason: rule}
	case Fallback:
		r = d.fallback(src, rule)
	}

	if d.opts.ShowDiff {
		logger.Debug("guarded translation",
			logger.String("source", src),
			logger.String("result", r.Text),
			logger.String("verdict", r.Verdict.String()),
			logger.String("rule", r.Reason))
	}
	if d.opts.Cache != nil {
		d.opts.Cache.Put(src, d.opts.Target, r)
	}
	return d.count(r)
}

func (d *Dispatcher) fallback(src, reason string) Result {
	if g, ok := d.opts.Glossary.Lookup(src); ok {
		return Result{Source: src, Text: g, Verdict: LocallySubstituted, Reason: reason}
	}
	return Result{Source: src, Text: src, Verdict: Reverted, Reason: reason}
}

func (d *Dispatcher) count(r Result) Result {
	switch r.Verdict {
	case Accepted:
		d.accepted.Add(1)
	case Reverted:
		d.reverted.Add(1)
	case LocallySubstituted:
		d.substituted.Add(1)
	}
	return r
}

// TranslateSegment translates a segment's text. Long text goes whole; text
// with exactly one comma is translated as two clauses; otherwise every
// comma clause is split further on slash groups and each piece that needs
// translation is guarded on its own.
func (d *Dispatcher) TranslateSegment(ctx context.Context, text string) string {
	if runeLen(text) >= wholeSegmentChars {
		return d.Guarded(ctx, text).Text
	}

	if strings.Count(text, ",") == 1 {
		left, right, _ := strings.Cut(text, ",")
		return d.piece(ctx, strings.TrimSpace(left)) + ", " + d.piece(ctx, strings.TrimSpace(right))
	}

	clauses := []string{text}
	if strings.Contains(text, ",") {
		clauses = strings.Split(text, ",")
	}
	out := make([]string, 0, len(clauses))
	for i, clause := range clauses {
		clause = strings.TrimSpace(clause)
		subs := splitSlash(clause)
		for j, sp := range subs {
			if i == 0 && j == 0 && !d.opts.TranslateLabel && labelLike.MatchString(sp) {
				continue
			}
			subs[j] = d.piece(ctx, sp)
		}
		out = append(out, strings.Join(subs, " / "))
	}
	return dedupWords(strings.Join(out, ", "))
}

// piece guards sp when it needs translation and re-checks the result.
func (d *Dispatcher) piece(ctx context.Context, sp string) string {
	if !NeedsTranslation(sp) {
		return sp
	}
	r := d.Guarded(ctx, sp)
	if !Plausible(sp, r.Text, d.opts.Target) {
		if g, ok := d.opts.Glossary.Lookup(sp); ok {
			return g
		}
		return sp
	}
	return r.Text
}
