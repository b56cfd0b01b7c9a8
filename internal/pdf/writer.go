package pdf

import (
	"context"
	"fmt"
	"image"
	"os"

	gopdf "github.com/VantageDataChat/GoPDF2"

	"layout-translator/internal/layout"
	"layout-translator/internal/logger"
)

const (
	fontFamily = "body"
	// lineSpacing is the rendered line height as a multiple of the size.
	lineSpacing = 1.2
)

// FileOptions configures Open.
type FileOptions struct {
	// FontFile is the TrueType font used for inserted text.
	FontFile string
	// Rasterizer renders pages for OCR; nil disables rasterization.
	Rasterizer *Rasterizer
	// Metrics measures text for wrapping; nil uses the character-width
	// estimate.
	Metrics layout.Metrics
}

// File is a Document backed by a PDF on disk. Every source page is
// imported as a template into a new GoPDF2 document, and redactions and
// text are drawn on top of it.
type File struct {
	path    string
	sizes   []PageSize
	text    *TextLayer
	raster  *Rasterizer
	metrics layout.Metrics
	out     *gopdf.GoPdf
	next    int
}

// Open validates path and prepares the output document.
func Open(path string, opts FileOptions) (*File, error) {
	if err := ValidateFile(path); err != nil {
		return nil, err
	}
	sizes, err := PageSizes(path)
	if err != nil {
		return nil, err
	}
	if len(sizes) == 0 {
		return nil, NewPDFErrorWithDetails(ErrInvalidInput, "document has no pages", path, nil)
	}

	text, err := OpenTextLayer(path)
	if err != nil {
		logger.Warn("native text layer unavailable", logger.String("path", path), logger.Err(err))
		text = nil
	}

	out := &gopdf.GoPdf{}
	out.Start(gopdf.Config{
		PageSize: gopdf.Rect{W: sizes[0].Width, H: sizes[0].Height},
		Unit:     gopdf.UnitPT,
	})
	if err := out.AddTTFFont(fontFamily, opts.FontFile); err != nil {
		if text != nil {
			text.Close()
		}
		return nil, NewPDFErrorWithDetails(ErrOpenFailed, "cannot load font", opts.FontFile, err)
	}

	m := opts.Metrics
	if m == nil {
		m = layout.FallbackMetrics{}
	}
	return &File{
		path:    path,
		sizes:   sizes,
		text:    text,
		raster:  opts.Rasterizer,
		metrics: m,
		out:     out,
		next:    1,
	}, nil
}

func (f *File) NumPages() int {
	return len(f.sizes)
}

func (f *File) PageSize(page int) PageSize {
	if page < 1 || page > len(f.sizes) {
		return PageSize{}
	}
	return f.sizes[page-1]
}

func (f *File) TextBlocks(page int) ([]layout.Block, error) {
	if f.text == nil {
		return nil, NewPDFErrorWithPage(ErrTextLayer, "no text layer", page, nil)
	}
	return f.text.Blocks(page, f.PageSize(page).Height)
}

func (f *File) Rasterize(ctx context.Context, page int) ([]byte, image.Point, error) {
	if f.raster == nil {
		return nil, image.Point{}, NewPDFErrorWithPage(ErrRasterize, "no rasterizer configured", page, nil)
	}
	data, size, err := f.raster.RenderPage(ctx, f.path, page)
	if err != nil {
		return nil, image.Point{}, NewPDFErrorWithPage(ErrRasterize, "cannot rasterize page", page, err)
	}
	return data, size, nil
}

// Page imports the source page and returns a writer for it. Skipped pages
// are copied unchanged.
func (f *File) Page(page int) (PageWriter, error) {
	if page < f.next || page > len(f.sizes) {
		return nil, NewPDFErrorWithPage(ErrInvalidInput, "pages must be opened in order", page, nil)
	}
	for f.next < page {
		if err := f.importPage(f.next); err != nil {
			return nil, err
		}
	}
	if err := f.importPage(page); err != nil {
		return nil, err
	}
	return &pageWriter{f: f, page: page, size: f.sizes[page-1]}, nil
}

func (f *File) importPage(page int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = NewPDFErrorWithPage(ErrOpenFailed, "cannot import page", page, fmt.Errorf("%v", r))
		}
	}()
	f.next = page + 1
	size := f.sizes[page-1]
	f.out.AddPageWithOption(gopdf.PageOption{PageSize: &gopdf.Rect{W: size.Width, H: size.Height}})
	tpl := f.out.ImportPage(f.path, page, "/MediaBox")
	f.out.UseImportedTemplate(tpl, 0, 0, size.Width, size.Height)
	return nil
}

// Save copies any pages not yet written, writes the document and cleans it
// with pdfcpu. When cleaning fails the unoptimized output is kept.
func (f *File) Save(path string) error {
	f.copyRemaining()

	tmp := path + ".tmp"
	if err := f.out.WritePdf(tmp); err != nil {
		return NewPDFError(ErrSaveFailed, "cannot write PDF", err)
	}
	if err := optimizeFile(tmp, path); err != nil {
		logger.Warn("pdf optimization failed, keeping unoptimized output", logger.Err(err))
		if err := os.Rename(tmp, path); err != nil {
			return NewPDFError(ErrSaveFailed, "cannot move output into place", err)
		}
		return nil
	}
	os.Remove(tmp)
	return nil
}

// copyRemaining imports every page not yet opened. A page that fails is
// logged and left out.
func (f *File) copyRemaining() {
	for f.next <= len(f.sizes) {
		page := f.next
		if err := f.importPage(page); err != nil {
			logger.Warn("page copy failed", logger.Int("page", page), logger.Err(err))
		}
	}
}

func (f *File) Close() error {
	if f.text != nil {
		return f.text.Close()
	}
	return nil
}

type pageWriter struct {
	f     *File
	page  int
	size  PageSize
	marks []layout.Rect
}

func (w *pageWriter) MarkRedaction(r layout.Rect) {
	w.marks = append(w.marks, r)
}

func (w *pageWriter) ApplyRedactions() error {
	bounds := w.size.Rect()
	w.f.out.SetFillColor(255, 255, 255)
	skipped := 0
	for _, m := range w.marks {
		r := m.Clip(bounds)
		if !r.Valid() {
			skipped++
			continue
		}
		w.f.out.RectFromUpperLeftWithStyle(r.X0, r.Y0, r.Width(), r.Height(), "F")
	}
	w.marks = nil
	if skipped > 0 {
		return NewPDFErrorWithDetails(ErrRedaction, "redaction outside page",
			fmt.Sprintf("%d rectangle(s) skipped", skipped), nil)
	}
	return nil
}

func (w *pageWriter) InsertText(box TextBox) (bool, error) {
	if !box.Rect.Valid() || box.Size <= 0 {
		return false, NewPDFErrorWithPage(ErrInsertion, "invalid text box", w.page, nil)
	}
	if err := w.f.out.SetFont(fontFamily, "", box.Size); err != nil {
		return false, NewPDFErrorWithPage(ErrInsertion, "cannot set font", w.page, err)
	}

	lines := layout.Wrap(box.Text, box.Rect.Width(), box.Size, w.f.metrics)
	lh := box.Size * lineSpacing
	fits := float64(len(lines))*lh <= box.Rect.Height()+0.01
	if !fits && !box.Force {
		return false, nil
	}

	w.f.out.SetTextColor(0, 0, 0)
	for i, ln := range lines {
		if ln == "" {
			continue
		}
		w.f.out.SetXY(box.Rect.X0, box.Rect.Y0+float64(i)*lh)
		if err := w.f.out.Cell(nil, ln); err != nil {
			return false, NewPDFErrorWithPage(ErrInsertion, "cannot draw text", w.page, err)
		}
	}
	return fits, nil
}

func (w *pageWriter) Finish() error {
	w.f.out.SetFillColor(0, 0, 0)
	w.marks = nil
	return nil
}
