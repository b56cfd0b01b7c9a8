package layout

import "strings"

// Span is a run of text with one font size.
type Span struct {
	Text string
	Size float64
	Rect Rect
}

// Line is a sequence of spans sharing a baseline.
type Line struct {
	Spans []Span
	Rect  Rect
}

// Text joins the span texts.
func (l Line) Text() string {
	var sb strings.Builder
	for _, s := range l.Spans {
		sb.WriteString(s.Text)
	}
	return sb.String()
}

// MaxSize is the largest span size, 8 for an empty line.
func (l Line) MaxSize() float64 {
	size := 0.0
	for _, s := range l.Spans {
		if s.Size > size {
			size = s.Size
		}
	}
	if size == 0 {
		return 8
	}
	return size
}

// Block is a group of vertically adjacent lines.
type Block struct {
	Lines []Line
	Rect  Rect
}

// Text joins every span of every line without separators.
func (b Block) Text() string {
	var sb strings.Builder
	for _, l := range b.Lines {
		sb.WriteString(l.Text())
	}
	return sb.String()
}

// AverageSize is the mean span size, or 0 when the block has no spans.
func (b Block) AverageSize() float64 {
	sum, n := 0.0, 0
	for _, l := range b.Lines {
		for _, s := range l.Spans {
			sum += s.Size
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Origin records where a region came from.
type Origin int

const (
	OriginNative Origin = iota
	OriginOCR
)

func (o Origin) String() string {
	if o == OriginOCR {
		return "ocr"
	}
	return "native"
}

// Region is a unit of placement: a rectangle, its source text and the
// nominal font size. Translate marks whether it goes to the translator.
type Region struct {
	Rect      Rect
	Size      float64
	Text      string
	Translate bool
	Origin    Origin
}

// Footer is a whole block translated as one unit at a small fixed size.
type Footer struct {
	Rect Rect
	Text string
}

// Stats counts spans and characters of a text layer.
type Stats struct {
	Spans int
	Chars int
}

// LayerStats walks every span of blocks.
func LayerStats(blocks []Block) Stats {
	var st Stats
	for _, b := range blocks {
		for _, l := range b.Lines {
			for _, s := range l.Spans {
				st.Spans++
				st.Chars += len([]rune(s.Text))
			}
		}
	}
	return st
}

// Absent reports a page without usable native text.
func (s Stats) Absent(blocks int) bool {
	return blocks == 0 || s.Chars == 0
}

// Sparse reports a layer too thin to trust on its own.
func (s Stats) Sparse(blocks int) bool {
	if blocks == 0 {
		return true
	}
	return s.Spans < 3 || s.Chars < 20
}

const (
	footerMaxSize  = 8.0
	footerTopRatio = 0.8
	footerMinChars = 5
)

// IsFooter reports whether a block sits in the bottom fifth of the page
// with small type.
func IsFooter(b Block, pageHeight float64) bool {
	avg := b.AverageSize()
	if avg == 0 {
		return false
	}
	return avg <= footerMaxSize && b.Rect.Y0 >= pageHeight*footerTopRatio
}

// IsFooterLine applies the footer rule to a single OCR line.
func IsFooterLine(r Rect, size, pageHeight float64) bool {
	return size <= footerMaxSize && r.Y0 >= pageHeight*footerTopRatio
}

// FooterWorthTranslating reports whether footer text is long enough.
func FooterWorthTranslating(text string) bool {
	return len([]rune(strings.TrimSpace(text))) > footerMinChars
}
