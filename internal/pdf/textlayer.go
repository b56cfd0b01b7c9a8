package pdf

import (
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"

	"layout-translator/internal/layout"
)

const (
	// glyphs whose baselines differ by less than this fraction of the size
	// share a row
	baselineTolerance = 0.3
	// a horizontal gap wider than this many font sizes starts a new line
	columnGapFactor = 3.0
	// a gap wider than this fraction of the size becomes a space
	spaceGapFactor = 0.2
	// a line joins a block when the vertical gap is below this many sizes
	blockGapFactor = 0.8

	ascentRatio  = 0.8
	descentRatio = 0.2
)

// glyph is one text run as reported by the content stream, in PDF user
// space (origin bottom-left, Y at the baseline).
type glyph struct {
	X, Y, W float64
	Size    float64
	Font    string
	S       string
}

func (g glyph) width() float64 {
	if g.W > 0 {
		return g.W
	}
	return float64(len([]rune(g.S))) * g.Size * 0.5
}

// rect converts the glyph box to top-left page coordinates.
func (g glyph) rect(pageH float64) layout.Rect {
	return layout.Rect{
		X0: g.X,
		Y0: pageH - g.Y - ascentRatio*g.Size,
		X1: g.X + g.width(),
		Y1: pageH - g.Y + descentRatio*g.Size,
	}
}

// TextLayer reads the native text of a document.
type TextLayer struct {
	f *os.File
	r *pdf.Reader
}

// OpenTextLayer opens path for text extraction.
func OpenTextLayer(path string) (*TextLayer, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, NewPDFError(ErrOpenFailed, "cannot open PDF text layer", err)
	}
	return &TextLayer{f: f, r: r}, nil
}

// NumPages returns the page count.
func (t *TextLayer) NumPages() int {
	return t.r.NumPage()
}

// Close releases the underlying file.
func (t *TextLayer) Close() error {
	return t.f.Close()
}

// Blocks returns the text blocks of a 1-based page whose height is pageH,
// ordered top to bottom.
func (t *TextLayer) Blocks(page int, pageH float64) (blocks []layout.Block, err error) {
	if page < 1 || page > t.r.NumPage() {
		return nil, NewPDFErrorWithPage(ErrTextLayer, "page out of range", page, nil)
	}
	p := t.r.Page(page)
	if p.V.IsNull() || p.V.Key("Contents").Kind() == pdf.Null {
		return nil, nil
	}

	// malformed content streams make the reader panic
	defer func() {
		if r := recover(); r != nil {
			blocks = nil
			err = NewPDFErrorWithPage(ErrTextLayer, "cannot read page content", page, fmt.Errorf("%v", r))
		}
	}()

	content := p.Content()
	glyphs := make([]glyph, 0, len(content.Text))
	for _, tx := range content.Text {
		glyphs = append(glyphs, glyph{X: tx.X, Y: tx.Y, W: tx.W, Size: tx.FontSize, Font: tx.Font, S: tx.S})
	}
	return groupGlyphs(glyphs, pageH), nil
}

// groupGlyphs builds spans, lines and blocks from raw glyph runs.
func groupGlyphs(gs []glyph, pageH float64) []layout.Block {
	var kept []glyph
	for _, g := range gs {
		if g.S != "" && g.Size > 0 {
			kept = append(kept, g)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Y != kept[j].Y {
			return kept[i].Y > kept[j].Y
		}
		return kept[i].X < kept[j].X
	})

	var rows [][]glyph
	for _, g := range kept {
		if n := len(rows); n > 0 {
			ref := rows[n-1][0]
			tol := math.Max(1, baselineTolerance*math.Max(ref.Size, g.Size))
			if math.Abs(g.Y-ref.Y) <= tol {
				rows[n-1] = append(rows[n-1], g)
				continue
			}
		}
		rows = append(rows, []glyph{g})
	}

	var lines []layout.Line
	for _, row := range rows {
		sort.SliceStable(row, func(i, j int) bool { return row[i].X < row[j].X })
		var cur []glyph
		for _, g := range row {
			if n := len(cur); n > 0 {
				prev := cur[n-1]
				gap := g.X - (prev.X + prev.width())
				if gap > columnGapFactor*math.Max(prev.Size, g.Size) {
					lines = appendLine(lines, cur, pageH)
					cur = nil
				}
			}
			cur = append(cur, g)
		}
		lines = appendLine(lines, cur, pageH)
	}

	return groupLines(lines)
}

func appendLine(lines []layout.Line, gs []glyph, pageH float64) []layout.Line {
	l := buildLine(gs, pageH)
	text := strings.TrimSpace(l.Text())
	if text == "" || looksLikeOperatorCode(text) || hasExcessiveNonPrintable(text) {
		return lines
	}
	return append(lines, l)
}

func buildLine(gs []glyph, pageH float64) layout.Line {
	var (
		spans []layout.Span
		sb    strings.Builder
		cur   layout.Span
		font  string
	)
	flush := func() {
		if sb.Len() > 0 {
			cur.Text = sb.String()
			spans = append(spans, cur)
		}
		sb.Reset()
	}

	for i, g := range gs {
		r := g.rect(pageH)
		if i > 0 {
			prev := gs[i-1]
			gap := g.X - (prev.X + prev.width())
			if g.Font != font || g.Size != cur.Size {
				flush()
				if gap > spaceGapFactor*g.Size && !strings.HasPrefix(g.S, " ") {
					sb.WriteByte(' ')
				}
				cur = layout.Span{Size: g.Size, Rect: r}
				font = g.Font
			} else {
				if gap > spaceGapFactor*g.Size && !endsWithSpace(sb.String()) && !strings.HasPrefix(g.S, " ") {
					sb.WriteByte(' ')
				}
				cur.Rect = cur.Rect.Union(r)
			}
		} else {
			cur = layout.Span{Size: g.Size, Rect: r}
			font = g.Font
		}
		sb.WriteString(g.S)
	}
	flush()

	line := layout.Line{Spans: spans}
	for i, s := range spans {
		if i == 0 {
			line.Rect = s.Rect
		} else {
			line.Rect = line.Rect.Union(s.Rect)
		}
	}
	return line
}

func endsWithSpace(s string) bool {
	return s != "" && s[len(s)-1] == ' '
}

// groupLines collects vertically adjacent, horizontally overlapping lines
// into blocks ordered by their top edge.
func groupLines(lines []layout.Line) []layout.Block {
	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].Rect.Y0 != lines[j].Rect.Y0 {
			return lines[i].Rect.Y0 < lines[j].Rect.Y0
		}
		return lines[i].Rect.X0 < lines[j].Rect.X0
	})

	var blocks []layout.Block
	for _, l := range lines {
		size := l.MaxSize()
		joined := false
		for i := len(blocks) - 1; i >= 0; i-- {
			b := &blocks[i]
			gap := l.Rect.Y0 - b.Rect.Y1
			overlaps := l.Rect.X0 < b.Rect.X1 && l.Rect.X1 > b.Rect.X0
			if overlaps && gap <= blockGapFactor*size && l.Rect.Y0 >= b.Rect.Y0 {
				b.Lines = append(b.Lines, l)
				b.Rect = b.Rect.Union(l.Rect)
				joined = true
				break
			}
		}
		if !joined {
			blocks = append(blocks, layout.Block{Lines: []layout.Line{l}, Rect: l.Rect})
		}
	}

	sort.SliceStable(blocks, func(i, j int) bool { return blocks[i].Rect.Y0 < blocks[j].Rect.Y0 })
	return blocks
}

// looksLikeOperatorCode reports text that is PostScript or content-stream
// residue rather than visible prose.
func looksLikeOperatorCode(text string) bool {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "null def") || strings.Contains(text, "@stx") || strings.Contains(text, "@etx") {
		return true
	}
	if strings.Contains(text, "/") && (strings.Contains(text, " def ") || strings.HasSuffix(text, " def")) {
		return true
	}
	for _, op := range []string{"currentpoint", "gsave", "grestore", "newpath", "closepath", "setrgbcolor", "showpage"} {
		if strings.Contains(lower, op) {
			return true
		}
	}

	if strings.Contains(text, "://") {
		return false
	}
	names := 0
	for _, w := range strings.Fields(text) {
		if len(w) > 1 && w[0] == '/' && isPSName(w[1:]) {
			names++
		}
	}
	return names >= 3
}

func isPSName(s string) bool {
	for _, c := range s {
		if !(c < unicode.MaxASCII && (unicode.IsLetter(c) || unicode.IsDigit(c) || c == '_' || c == '@')) {
			return false
		}
	}
	return true
}

// hasExcessiveNonPrintable reports text where more than a tenth of the
// characters are control characters.
func hasExcessiveNonPrintable(text string) bool {
	n, bad := 0, 0
	for _, r := range text {
		n++
		if (r < 32 && r != '\n' && r != '\r' && r != '\t') || (r >= 0x7F && r <= 0x9F) {
			bad++
		}
	}
	return n > 0 && float64(bad)/float64(n) > 0.1
}
