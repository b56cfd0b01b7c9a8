package layout

import (
	"regexp"
	"strings"
)

const (
	BaseGutter = 6.0
	MinGutter  = 1.0
)

// Segment is one column of a pipe-delimited line.
type Segment struct {
	Rect Rect
	Text string
	Size float64
}

// leadingBullet matches a markdown-style bullet at the start of a line.
var leadingBullet = regexp.MustCompile(`^[\*\-\x{2022}●▪·]\s+`)

// SplitLine cuts a line into segments on "|" separators and distributes
// the line width among them. Widths are measured at the line's largest
// span size. When the parts fit with the base gutter, the slack is shared
// in proportion to each part's width; otherwise the gutter shrinks toward
// MinGutter and, at the floor, the parts are scaled down together. The
// first segment starts at the line's x0 and the last ends at its x1.
func SplitLine(line Line, m Metrics) []Segment {
	if m == nil {
		m = FallbackMetrics{}
	}
	size := line.MaxSize()
	clean := leadingBullet.ReplaceAllString(line.Text(), "")
	raw := strings.Split(clean, "|")
	parts := make([]string, len(raw))
	for i, p := range raw {
		parts[i] = strings.TrimSpace(p)
	}

	if len(parts) <= 1 {
		return []Segment{{Rect: line.Rect, Text: parts[0], Size: size}}
	}

	n := len(parts)
	widths := make([]float64, n)
	sum := 0.0
	for i, p := range parts {
		txt := p
		if txt == "" {
			txt = " "
		}
		widths[i] = m.Width(txt, size)
		if widths[i] <= 0 {
			widths[i] = FallbackMetrics{}.Width(txt, size)
		}
		sum += widths[i]
	}

	usable := line.Rect.Width()
	var gutter float64
	if need := sum + BaseGutter*float64(n-1); need <= usable {
		extra := usable - need
		for i := range widths {
			widths[i] += extra * (widths[i] / sum)
		}
		gutter = BaseGutter
	} else {
		gutter = (usable - sum) / float64(n-1)
		if gutter < MinGutter {
			gutter = MinGutter
			// squeeze the parts so the last one still ends at the line edge
			room := usable - gutter*float64(n-1)
			if room <= 0 {
				gutter, room = 0, usable
			}
			scale := room / sum
			for i := range widths {
				widths[i] *= scale
			}
		}
	}

	out := make([]Segment, 0, n)
	x := line.Rect.X0
	for i, p := range parts {
		out = append(out, Segment{
			Rect: Rect{X0: x, Y0: line.Rect.Y0, X1: x + widths[i], Y1: line.Rect.Y1},
			Text: p,
			Size: size,
		})
		x += widths[i] + gutter
	}
	out[n-1].Rect.X1 = line.Rect.X1
	return out
}
