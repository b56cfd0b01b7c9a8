//go:build ocr

package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Tesseract recognizes words with libtesseract through gosseract.
type Tesseract struct {
	clientFactory func() *gosseract.Client
}

// NewEngine returns the Tesseract engine.
func NewEngine() (Engine, error) {
	return &Tesseract{clientFactory: gosseract.NewClient}, nil
}

// Recognize runs one page image. A fresh client is used per call.
func (t *Tesseract) Recognize(ctx context.Context, req Request) ([]Word, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	c := t.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(req.Image); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if req.Lang != "" {
		if err := c.SetLanguage(strings.Split(req.Lang, "+")...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(req.PSM)); err != nil {
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := c.SetVariable(gosseract.SettableVariable("preserve_interword_spaces"), "1"); err != nil {
		return nil, fmt.Errorf("set variable: %w", err)
	}
	if req.DPI > 0 {
		if err := c.SetVariable(gosseract.SettableVariable("user_defined_dpi"), fmt.Sprint(req.DPI)); err != nil {
			return nil, fmt.Errorf("set dpi: %w", err)
		}
	}

	boxes, err := c.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}
	words := make([]Word, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, Word{
			Text:       b.Word,
			Confidence: b.Confidence,
			Box:        b.Box,
			Block:      b.BlockNum,
			Paragraph:  b.ParNum,
			Line:       b.LineNum,
		})
	}
	return words, nil
}

// Close is a no-op; clients are closed per call.
func (t *Tesseract) Close() error {
	return nil
}
