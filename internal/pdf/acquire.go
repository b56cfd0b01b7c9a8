package pdf

import (
	"context"
	"sort"

	"layout-translator/internal/layout"
	"layout-translator/internal/logger"
	"layout-translator/internal/ocr"
)

// ocrOverlap is the share of an OCR line's area that must already be
// covered by native regions for the line to count as captured.
const ocrOverlap = 0.5

// AcquireOptions configures region acquisition.
type AcquireOptions struct {
	OCREnabled   bool
	OCRLang      string
	OCRDPI       int
	OCRPSM       int
	OCRConfMin   float64
	OCRMinLineCh int
	// TranslateLabel allows the first segment of a line to be translated.
	TranslateLabel bool
	// NeedsTranslation decides the translate flag of each region.
	NeedsTranslation func(string) bool
	Metrics          layout.Metrics
}

// PageRegions is what acquisition found on one page.
type PageRegions struct {
	Page    int
	Size    PageSize
	Regions []layout.Region
	Footers []layout.Footer
	Stats   layout.Stats
	Absent  bool
	UsedOCR bool
}

// Empty reports a page with nothing to rewrite.
func (p PageRegions) Empty() bool {
	return len(p.Regions) == 0 && len(p.Footers) == 0
}

// Acquirer extracts regions from the native layer, supplemented by OCR
// when the layer is missing or thin.
type Acquirer struct {
	doc    Document
	engine ocr.Engine
	opts   AcquireOptions
}

// NewAcquirer creates an acquirer. engine may be nil.
func NewAcquirer(doc Document, engine ocr.Engine, opts AcquireOptions) *Acquirer {
	if opts.NeedsTranslation == nil {
		opts.NeedsTranslation = func(string) bool { return true }
	}
	if opts.Metrics == nil {
		opts.Metrics = layout.FallbackMetrics{}
	}
	return &Acquirer{doc: doc, engine: engine, opts: opts}
}

// Acquire collects the regions of a 1-based page. Text layer and OCR
// failures are logged and never returned: the page keeps whatever the
// other source produced.
func (a *Acquirer) Acquire(ctx context.Context, page int) PageRegions {
	size := a.doc.PageSize(page)
	pr := PageRegions{Page: page, Size: size}

	blocks, err := a.doc.TextBlocks(page)
	if err != nil {
		logger.Warn("text layer read failed", logger.Int("page", page), logger.Err(err))
		blocks = nil
	}
	pr.Stats = layout.LayerStats(blocks)
	pr.Absent = pr.Stats.Absent(len(blocks))

	if !pr.Absent {
		a.addNative(&pr, blocks)
	}

	if pr.Absent || pr.Stats.Sparse(len(blocks)) {
		if pr.Absent {
			logger.Info("no text layer, using OCR", logger.Int("page", page))
		} else {
			logger.Info("sparse text layer, supplementing with OCR",
				logger.Int("page", page),
				logger.Int("spans", pr.Stats.Spans),
				logger.Int("chars", pr.Stats.Chars))
		}
		a.addOCR(ctx, &pr, len(blocks))
	}

	sort.SliceStable(pr.Regions, func(i, j int) bool {
		return pr.Regions[i].Rect.Y0 < pr.Regions[j].Rect.Y0
	})
	if pr.Empty() {
		logger.Info("page has no regions, leaving it untranslated", logger.Int("page", page))
	}
	return pr
}

func (a *Acquirer) addNative(pr *PageRegions, blocks []layout.Block) {
	for _, b := range blocks {
		if layout.IsFooter(b, pr.Size.Height) {
			text := b.Text()
			if layout.FooterWorthTranslating(text) {
				pr.Footers = append(pr.Footers, layout.Footer{Rect: b.Rect, Text: text})
			}
			continue
		}
		for _, line := range b.Lines {
			size := line.MaxSize()
			for idx, seg := range layout.SplitLine(line, a.opts.Metrics) {
				if seg.Text == "" {
					continue
				}
				pr.Regions = append(pr.Regions, layout.Region{
					Rect:      seg.Rect,
					Size:      size,
					Text:      seg.Text,
					Translate: (idx != 0 || a.opts.TranslateLabel) && a.opts.NeedsTranslation(seg.Text),
					Origin:    layout.OriginNative,
				})
			}
		}
	}
}

func (a *Acquirer) addOCR(ctx context.Context, pr *PageRegions, blocks int) {
	if !a.opts.OCREnabled || a.engine == nil {
		if pr.Absent {
			logger.Warn("no text layer and OCR unavailable, skipping page", logger.Int("page", pr.Page))
		}
		return
	}

	img, px, err := a.doc.Rasterize(ctx, pr.Page)
	if err != nil {
		logger.Warn("rasterization failed, skipping OCR", logger.Int("page", pr.Page), logger.Err(err))
		return
	}
	mode := ocr.ChooseMode(pr.Stats, blocks, a.opts.OCRPSM)
	words, err := a.engine.Recognize(ctx, ocr.Request{
		Image: img,
		Lang:  a.opts.OCRLang,
		PSM:   mode,
		DPI:   a.opts.OCRDPI,
	})
	if err != nil {
		logger.Warn("OCR failed, skipping", logger.Int("page", pr.Page), logger.Err(err))
		return
	}

	sx, sy := ocr.Scale(px, pr.Size.Width, pr.Size.Height)
	lines := ocr.Lines(words, sx, sy, ocr.Options{ConfMin: a.opts.OCRConfMin, MinLineChars: a.opts.OCRMinLineCh})
	pr.UsedOCR = true
	if len(lines) == 0 && pr.Absent {
		logger.Warn("OCR found no text", logger.Int("page", pr.Page), logger.Int("mode", mode))
	}

	native := make([]layout.Rect, 0, len(pr.Regions))
	for _, r := range pr.Regions {
		native = append(native, r.Rect)
	}
	for _, l := range lines {
		if covered(l.Rect, native) {
			continue
		}
		if layout.IsFooterLine(l.Rect, l.Size, pr.Size.Height) && layout.FooterWorthTranslating(l.Text) {
			pr.Footers = append(pr.Footers, layout.Footer{Rect: l.Rect, Text: l.Text})
			continue
		}
		pr.Regions = append(pr.Regions, layout.Region{
			Rect:      l.Rect,
			Size:      l.Size,
			Text:      l.Text,
			Translate: a.opts.NeedsTranslation(l.Text),
			Origin:    layout.OriginOCR,
		})
	}
	logger.Debug("OCR lines added",
		logger.Int("page", pr.Page),
		logger.Int("mode", mode),
		logger.Int("lines", len(lines)))
}

// covered reports whether rects already cover most of r.
func covered(r layout.Rect, rects []layout.Rect) bool {
	area := r.Width() * r.Height()
	if area <= 0 {
		return false
	}
	sum := 0.0
	for _, o := range rects {
		c := r.Clip(o)
		if c.Valid() {
			sum += c.Width() * c.Height()
		}
	}
	return sum/area >= ocrOverlap
}
