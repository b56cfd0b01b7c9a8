package pdf

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"layout-translator/internal/layout"
	"layout-translator/internal/logger"
)

// PageSize is the media box of a page in points.
type PageSize struct {
	Width  float64
	Height float64
}

// Rect is the full page rectangle.
func (s PageSize) Rect() layout.Rect {
	return layout.Rect{X1: s.Width, Y1: s.Height}
}

// ValidateFile checks that path is a readable PDF.
func ValidateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewPDFErrorWithDetails(ErrInvalidInput, "file not found", path, err)
		}
		return NewPDFError(ErrInvalidInput, "cannot access file", err)
	}
	if info.IsDir() {
		return NewPDFErrorWithDetails(ErrInvalidInput, "path is a directory", path, nil)
	}
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.ValidateFile(path, conf); err != nil {
		return NewPDFError(ErrOpenFailed, "invalid PDF", err)
	}
	return nil
}

// PageSizes returns the size of every page.
func PageSizes(path string) ([]PageSize, error) {
	dims, err := api.PageDimsFile(path)
	if err != nil {
		return nil, NewPDFError(ErrOpenFailed, "cannot read page dimensions", err)
	}
	sizes := make([]PageSize, len(dims))
	for i, d := range dims {
		sizes[i] = PageSize{Width: d.Width, Height: d.Height}
	}
	return sizes, nil
}

// optimizeFile rewrites in to out with unused objects removed and streams
// compressed. It is the document-wide clean step after rendering.
func optimizeFile(in, out string) error {
	logger.Debug("optimizing PDF with pdfcpu",
		logger.String("input", filepath.Base(in)),
		logger.String("output", filepath.Base(out)))

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if err := api.OptimizeFile(in, out, conf); err != nil {
		return fmt.Errorf("failed to optimize PDF: %w", err)
	}
	return nil
}
