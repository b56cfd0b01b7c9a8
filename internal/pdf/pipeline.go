package pdf

import (
	"context"
	"strings"

	"layout-translator/internal/layout"
	"layout-translator/internal/logger"
)

// SegmentTranslator translates the text of one region or footer.
type SegmentTranslator interface {
	TranslateSegment(ctx context.Context, text string) string
}

// RenderOptions tunes font fitting and overflow.
type RenderOptions struct {
	FontScale   float64
	MinFont     float64
	OverflowPad float64
	// IsNumberUnit recognizes bare number-with-unit regions for merging.
	IsNumberUnit func(string) bool
	// ShowDiff logs each source/result pair.
	ShowDiff bool
}

// PageResult summarizes one rendered page.
type PageResult struct {
	Regions   int
	Footers   int
	Changed   int
	Overflows int
	Failures  int
}

// Renderer translates acquired regions and writes them back into a page.
type Renderer struct {
	tr   SegmentTranslator
	opts RenderOptions
}

// NewRenderer creates a renderer.
func NewRenderer(tr SegmentTranslator, opts RenderOptions) *Renderer {
	if opts.FontScale <= 0 {
		opts.FontScale = 1
	}
	if opts.IsNumberUnit == nil {
		opts.IsNumberUnit = func(string) bool { return false }
	}
	return &Renderer{tr: tr, opts: opts}
}

// Placement is a region with the text to draw in it.
type Placement struct {
	Region layout.Region
	Text   string
}

// Translate merges number-unit pairs and translates every region that is
// flagged, and every footer. It does not touch the page.
func (r *Renderer) Translate(ctx context.Context, pr PageRegions) ([]Placement, []layout.Footer) {
	regions := layout.MergeUnits(pr.Regions, r.opts.IsNumberUnit)

	out := make([]Placement, 0, len(regions))
	for _, reg := range regions {
		text := reg.Text
		if reg.Translate {
			text = r.tr.TranslateSegment(ctx, reg.Text)
		}
		out = append(out, Placement{Region: reg, Text: text})
	}

	footers := make([]layout.Footer, 0, len(pr.Footers))
	for _, f := range pr.Footers {
		footers = append(footers, layout.Footer{Rect: f.Rect, Text: r.tr.TranslateSegment(ctx, f.Text)})
	}

	if r.opts.ShowDiff {
		for _, p := range out {
			logger.Debug("page diff",
				logger.Int("page", pr.Page),
				logger.String("source", p.Region.Text),
				logger.String("result", p.Text))
		}
	}
	return out, footers
}

// Render redacts every region and footer of the page in one batch, then
// inserts footers and regions. Failures are logged and counted; the page
// is always finished.
func (r *Renderer) Render(pr PageRegions, regions []Placement, footers []layout.Footer, w PageWriter) PageResult {
	res := PageResult{Regions: len(regions), Footers: len(footers)}
	pageRight := pr.Size.Width

	for _, p := range regions {
		w.MarkRedaction(layout.RedactionRect(p.Region.Rect))
		if p.Text != p.Region.Text {
			res.Changed++
		}
	}
	for _, f := range footers {
		w.MarkRedaction(layout.RedactionRect(f.Rect))
	}
	if err := w.ApplyRedactions(); err != nil {
		logger.Warn("apply redactions failed", logger.Int("page", pr.Page), logger.Err(err))
	}

	for _, f := range footers {
		fs := layout.FitFont(f.Rect, f.Text, layout.FooterFit())
		big := layout.FooterOverflowRect(f.Rect, fs, pageRight)
		r.insert(pr.Page, w, f.Rect, big, f.Text, fs, &res)
	}

	for _, p := range regions {
		ins := layout.InsertionRect(p.Region.Rect, p.Region.Size, p.Text)
		if !ins.Valid() {
			ins = p.Region.Rect
		}
		fs := layout.FitFont(ins, p.Text, layout.BodyFit(p.Region.Size, r.opts.FontScale, r.opts.MinFont))
		big := layout.OverflowRect(ins, fs, pageRight, r.opts.OverflowPad)
		r.insert(pr.Page, w, ins, big, p.Text, fs, &res)
	}

	if err := w.Finish(); err != nil {
		logger.Warn("page finish failed", logger.Int("page", pr.Page), logger.Err(err))
		res.Failures++
	}
	return res
}

// insert places text in rect, or once in big when it does not fit or
// carries its own line breaks. The enlarged attempt always draws.
func (r *Renderer) insert(page int, w PageWriter, rect, big layout.Rect, text string, fs float64, res *PageResult) {
	if strings.TrimSpace(text) == "" {
		return
	}
	fitted := false
	if !strings.Contains(text, "\n") {
		ok, err := w.InsertText(TextBox{Rect: rect, Text: text, Size: fs})
		if err != nil {
			logger.Warn("text insertion failed", logger.Int("page", page), logger.Err(err))
			res.Failures++
		}
		fitted = ok
	}
	if !layout.NeedsOverflow(fitted, text) {
		return
	}

	res.Overflows++
	if !big.Valid() {
		big = rect
	}
	if _, err := w.InsertText(TextBox{Rect: big, Text: text, Size: fs, Force: true}); err != nil {
		logger.Warn("overflow insertion failed", logger.Int("page", page), logger.Err(err))
		res.Failures++
	}
}

// ProcessPage translates and renders one page.
func (r *Renderer) ProcessPage(ctx context.Context, pr PageRegions, w PageWriter) PageResult {
	regions, footers := r.Translate(ctx, pr)
	return r.Render(pr, regions, footers, w)
}
