// Package layout holds the page geometry model and the pure placement
// algorithms: line segmentation, unit merging, font fitting and the
// rectangles used for redaction, insertion and overflow.
package layout

import (
	"errors"
	"fmt"
	"math"
)

// ErrDegenerateRect is returned when a rectangle has no area.
var ErrDegenerateRect = errors.New("degenerate rectangle")

// Rect is an axis-aligned box in page points with a top-left origin.
type Rect struct {
	X0, Y0, X1, Y1 float64
}

// NewRect validates that the box has positive width and height.
func NewRect(x0, y0, x1, y1 float64) (Rect, error) {
	r := Rect{X0: x0, Y0: y0, X1: x1, Y1: y1}
	if !r.Valid() {
		return Rect{}, fmt.Errorf("%w: (%.2f, %.2f, %.2f, %.2f)", ErrDegenerateRect, x0, y0, x1, y1)
	}
	return r, nil
}

// Valid reports whether x1 > x0 and y1 > y0 with finite coordinates.
func (r Rect) Valid() bool {
	for _, v := range [...]float64{r.X0, r.Y0, r.X1, r.Y1} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return r.X1 > r.X0 && r.Y1 > r.Y0
}

func (r Rect) Width() float64  { return r.X1 - r.X0 }
func (r Rect) Height() float64 { return r.Y1 - r.Y0 }

// Union returns the smallest rectangle covering r and o.
func (r Rect) Union(o Rect) Rect {
	return Rect{
		X0: math.Min(r.X0, o.X0),
		Y0: math.Min(r.Y0, o.Y0),
		X1: math.Max(r.X1, o.X1),
		Y1: math.Max(r.Y1, o.Y1),
	}
}

// Pad grows the rectangle by dx horizontally and dy vertically on each side.
func (r Rect) Pad(dx, dy float64) Rect {
	return Rect{X0: r.X0 - dx, Y0: r.Y0 - dy, X1: r.X1 + dx, Y1: r.Y1 + dy}
}

// Inset shrinks the rectangle; it never collapses past the center line.
func (r Rect) Inset(dx, dy float64) Rect {
	if 2*dx >= r.Width() {
		dx = 0
	}
	if 2*dy >= r.Height() {
		dy = 0
	}
	return Rect{X0: r.X0 + dx, Y0: r.Y0 + dy, X1: r.X1 - dx, Y1: r.Y1 - dy}
}

// Clip intersects r with bounds. The result may be invalid when they do not overlap.
func (r Rect) Clip(bounds Rect) Rect {
	return Rect{
		X0: math.Max(r.X0, bounds.X0),
		Y0: math.Max(r.Y0, bounds.Y0),
		X1: math.Min(r.X1, bounds.X1),
		Y1: math.Min(r.Y1, bounds.Y1),
	}
}

func (r Rect) String() string {
	return fmt.Sprintf("[%.1f %.1f %.1f %.1f]", r.X0, r.Y0, r.X1, r.Y1)
}
