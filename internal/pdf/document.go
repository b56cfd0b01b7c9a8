package pdf

import (
	"context"
	"image"

	"layout-translator/internal/layout"
)

// TextBox is one text insertion.
type TextBox struct {
	Rect layout.Rect
	Text string
	Size float64
	// Force draws the text even when it overflows Rect.
	Force bool
}

// PageWriter rewrites one page. Redactions are collected with
// MarkRedaction and painted together by ApplyRedactions before any text
// is inserted.
type PageWriter interface {
	MarkRedaction(r layout.Rect)
	ApplyRedactions() error
	// InsertText wraps and draws the text. It reports false, drawing
	// nothing, when the text does not fit and Force is unset.
	InsertText(box TextBox) (bool, error)
	// Finish closes the page's drawing state.
	Finish() error
}

// Document is the document collaborator: read access to geometry, the
// native text layer and page images, and write access through pages.
// Pages are 1-based and must be opened in order.
type Document interface {
	NumPages() int
	PageSize(page int) PageSize
	TextBlocks(page int) ([]layout.Block, error)
	Rasterize(ctx context.Context, page int) ([]byte, image.Point, error)
	Page(page int) (PageWriter, error)
	Save(path string) error
	Close() error
}
