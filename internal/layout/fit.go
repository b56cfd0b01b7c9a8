package layout

import "strings"

const (
	// RedactPad is added on every side of a region before it is whited out.
	RedactPad = 1.0
	// InsetFactor scales the font size into the vertical insertion inset.
	InsetFactor = 0.25

	fitStep = 0.5
)

// FitParams controls FitFont.
type FitParams struct {
	Start   float64
	Min     float64
	Spacing float64
}

// BodyFit returns the parameters for an ordinary region.
func BodyFit(size, scale, minFont float64) FitParams {
	start := size * scale
	if start < minFont {
		start = minFont
	}
	return FitParams{Start: start, Min: minFont, Spacing: 1.20}
}

// FooterFit returns the fixed footer parameters.
func FooterFit() FitParams {
	return FitParams{Start: 8, Min: 6, Spacing: 1.15}
}

// FitFont picks the largest size, stepping down by half a point from
// p.Start, whose estimated wrapped height fits r. It never goes below
// max(0.9 × p.Start, p.Min) and returns that floor when nothing fits.
func FitFont(r Rect, text string, p FitParams) float64 {
	floor := p.Start * 0.9
	if floor < p.Min {
		floor = p.Min
	}
	n := len([]rune(text))
	steps := int((p.Start-floor)/fitStep) + 1
	for k := 0; k < steps; k++ {
		fs := p.Start - fitStep*float64(k)
		if fs <= 0 {
			break
		}
		per := int(r.Width() / (fs * AvgCharWidth))
		if per < 1 {
			per = 1
		}
		lines := n/per + 1
		if float64(lines)*fs*p.Spacing <= r.Height() {
			if fs < floor {
				return floor
			}
			return fs
		}
	}
	return floor
}

// RedactionRect pads a region for whiteout.
func RedactionRect(r Rect) Rect {
	return r.Pad(RedactPad, RedactPad)
}

// InsertionRect shrinks a region vertically by a quarter of the font size.
// Long small single-column text keeps the full rectangle.
func InsertionRect(r Rect, size float64, text string) Rect {
	if size <= 8 && !strings.Contains(text, "|") && len([]rune(text)) >= 80 {
		return r
	}
	py := size * InsetFactor
	return Rect{X0: r.X0, Y0: r.Y0 + py, X1: r.X1, Y1: r.Y1 - py}
}

// OverflowRect is the enlarged box used when a region's text does not fit:
// it extends to the right page edge and three lines further down.
func OverflowRect(r Rect, fontSize, pageRight, pad float64) Rect {
	return Rect{
		X0: r.X0 - pad,
		Y0: r.Y0 - pad,
		X1: pageRight - pad,
		Y1: r.Y1 + fontSize*3 + pad,
	}
}

// FooterOverflowRect is OverflowRect for footers: no padding and a fixed
// 5pt right margin.
func FooterOverflowRect(r Rect, fontSize, pageRight float64) Rect {
	return Rect{X0: r.X0, Y0: r.Y0, X1: pageRight - 5, Y1: r.Y1 + fontSize*3}
}

// NeedsOverflow reports whether the enlarged box should be used.
func NeedsOverflow(fitted bool, text string) bool {
	return !fitted || strings.Contains(text, "\n")
}
