package layout

import (
	"bytes"
	"fmt"
	"os"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	gofont "github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/math/fixed"
)

// AvgCharWidth is the per-character width, as a fraction of the font
// size, assumed when no font metrics are available.
const AvgCharWidth = 0.55

// Metrics measures rendered text width in points.
type Metrics interface {
	Width(text string, size float64) float64
}

// FallbackMetrics estimates width as AvgCharWidth × size per character.
type FallbackMetrics struct{}

func (FallbackMetrics) Width(text string, size float64) float64 {
	n := len([]rune(text))
	if n == 0 {
		n = 1
	}
	return size * AvgCharWidth * float64(n)
}

// ShapedMetrics measures text by shaping it with a TrueType face.
type ShapedMetrics struct {
	mu     sync.Mutex
	face   *gofont.Face
	shaper shaping.HarfbuzzShaper
}

// LoadShapedMetrics parses the TrueType font at path.
func LoadShapedMetrics(path string) (*ShapedMetrics, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read font %s: %w", path, err)
	}
	face, err := gofont.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", path, err)
	}
	return &ShapedMetrics{face: face}, nil
}

// Width returns the sum of glyph advances at size. Empty text measures as
// one space so callers never get a zero-width segment.
func (m *ShapedMetrics) Width(text string, size float64) float64 {
	runes := []rune(text)
	if len(runes) == 0 {
		runes = []rune{' '}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Direction: di.DirectionLTR,
		Face:      m.face,
		Size:      fixed.Int26_6(size * 64),
		Script:    dominantScript(runes),
		Language:  language.DefaultLanguage(),
	})

	var adv fixed.Int26_6
	for _, g := range out.Glyphs {
		adv += g.XAdvance
	}
	return float64(adv) / 64.0
}

func dominantScript(runes []rune) language.Script {
	var latin, hangul, han int
	for _, r := range runes {
		switch {
		case unicode.Is(unicode.Hangul, r):
			hangul++
		case unicode.Is(unicode.Han, r):
			han++
		case unicode.Is(unicode.Latin, r):
			latin++
		}
	}
	switch {
	case hangul >= latin && hangul >= han && hangul > 0:
		return language.Hangul
	case han > latin:
		return language.Han
	}
	return language.Latin
}

// NewMetrics returns shaped metrics for fontFile, or FallbackMetrics and
// the load error when the font cannot be used.
func NewMetrics(fontFile string) (Metrics, error) {
	if fontFile == "" {
		return FallbackMetrics{}, nil
	}
	m, err := LoadShapedMetrics(fontFile)
	if err != nil {
		return FallbackMetrics{}, err
	}
	return m, nil
}
