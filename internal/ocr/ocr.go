// Package ocr turns rasterized pages into text lines in page coordinates.
//
// Recognition itself is done by an Engine. The Tesseract engine is only
// compiled with the "ocr" build tag, since it needs libtesseract:
//
//	go build -tags ocr
//
// Without the tag NewEngine returns ErrOCRNotEnabled and pages without a
// usable text layer are left untranslated.
package ocr

import (
	"context"
	"errors"
	"image"
	"sort"
	"strings"

	"layout-translator/internal/layout"
)

// ErrOCRNotEnabled is returned when OCR support was not compiled in.
var ErrOCRNotEnabled = errors.New("OCR support not enabled; rebuild with -tags ocr")

// Page segmentation modes used by the pipeline.
const (
	ModeSingleColumn = 4
	ModeSingleBlock  = 6
)

const (
	denseChars  = 200
	sparseChars = 20

	sizeFactor = 0.8
	minSize    = 6.0
	maxSize    = 16.0
)

// Word is one recognized token in raster pixel coordinates.
type Word struct {
	Text       string
	Confidence float64
	Box        image.Rectangle
	Block      int
	Paragraph  int
	Line       int
}

// Request is one page image to recognize.
type Request struct {
	Image []byte
	// Lang is a "+"-joined list of tesseract languages, e.g. "eng+kor".
	Lang string
	PSM  int
	DPI  int
}

// Engine recognizes words on an image.
type Engine interface {
	Recognize(ctx context.Context, req Request) ([]Word, error)
	Close() error
}

// Line is a recognized line in page points.
type Line struct {
	Rect layout.Rect
	Size float64
	Text string
}

// Options filters recognized words and lines.
type Options struct {
	// ConfMin drops words whose confidence is below it (0-100).
	ConfMin float64
	// MinLineChars drops lines shorter than it.
	MinLineChars int
}

// ChooseMode picks the segmentation mode from the native layer: dense
// pages are read as one block, absent or nearly empty ones as a single
// column, anything else with the configured default.
func ChooseMode(st layout.Stats, blocks int, fallback int) int {
	switch {
	case blocks == 0 || st.Chars < sparseChars:
		return ModeSingleColumn
	case st.Chars > denseChars:
		return ModeSingleBlock
	}
	return fallback
}

// Scale returns the pixel-per-point ratios of an image of the page.
func Scale(img image.Point, pageW, pageH float64) (sx, sy float64) {
	if pageW <= 0 || pageH <= 0 {
		return 1, 1
	}
	return float64(img.X) / pageW, float64(img.Y) / pageH
}

type lineKey struct {
	block, par, line int
}

type lineAcc struct {
	rect    layout.Rect
	texts   []string
	heights []float64
}

// Lines groups words into lines, scales them into page points and sorts
// them top to bottom.
func Lines(words []Word, sx, sy float64, opts Options) []Line {
	if sx <= 0 || sy <= 0 {
		return nil
	}

	acc := make(map[lineKey]*lineAcc)
	var order []lineKey
	for _, w := range words {
		text := strings.TrimSpace(w.Text)
		if text == "" || w.Confidence < opts.ConfMin {
			continue
		}
		r := layout.Rect{
			X0: float64(w.Box.Min.X) / sx,
			Y0: float64(w.Box.Min.Y) / sy,
			X1: float64(w.Box.Max.X) / sx,
			Y1: float64(w.Box.Max.Y) / sy,
		}
		k := lineKey{w.Block, w.Paragraph, w.Line}
		a, ok := acc[k]
		if !ok {
			a = &lineAcc{rect: r}
			acc[k] = a
			order = append(order, k)
		} else {
			a.rect = a.rect.Union(r)
		}
		a.texts = append(a.texts, text)
		a.heights = append(a.heights, r.Height())
	}

	lines := make([]Line, 0, len(order))
	for _, k := range order {
		a := acc[k]
		text := strings.TrimSpace(strings.Join(a.texts, " "))
		if len([]rune(text)) < opts.MinLineChars {
			continue
		}
		if !a.rect.Valid() {
			continue
		}
		lines = append(lines, Line{Rect: a.rect, Size: EstimateSize(a.heights), Text: text})
	}
	sort.SliceStable(lines, func(i, j int) bool { return lines[i].Rect.Y0 < lines[j].Rect.Y0 })
	return lines
}

// EstimateSize derives a font size from token heights in points.
func EstimateSize(heights []float64) float64 {
	if len(heights) == 0 {
		return minSize
	}
	sum := 0.0
	for _, h := range heights {
		sum += h
	}
	size := sum / float64(len(heights)) * sizeFactor
	if size > maxSize {
		return maxSize
	}
	if size < minSize {
		return minSize
	}
	return size
}
