package layout

import "fmt"

// MergeUnits joins each pair of consecutive regions whose texts are both a
// bare number with a unit into one region covering both boxes, with the
// larger size and text "a (b)". Merged regions are never translated.
func MergeUnits(regions []Region, isNumberUnit func(string) bool) []Region {
	out := make([]Region, 0, len(regions))
	for i := 0; i < len(regions); i++ {
		cur := regions[i]
		if i+1 < len(regions) && isNumberUnit(cur.Text) && isNumberUnit(regions[i+1].Text) {
			next := regions[i+1]
			size := cur.Size
			if next.Size > size {
				size = next.Size
			}
			out = append(out, Region{
				Rect:      cur.Rect.Union(next.Rect),
				Size:      size,
				Text:      fmt.Sprintf("%s (%s)", cur.Text, next.Text),
				Translate: false,
				Origin:    cur.Origin,
			})
			i++
			continue
		}
		out = append(out, cur)
	}
	return out
}
