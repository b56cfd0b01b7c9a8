package pdf

import (
	"context"
	"fmt"
	"image"
	"strings"
	"sync"

	"layout-translator/internal/guard"
	"layout-translator/internal/layout"
	"layout-translator/internal/ocr"
)

// fakeDoc is an in-memory Document.
type fakeDoc struct {
	sizes     []PageSize
	blocks    map[int][]layout.Block
	blockErr  map[int]error
	image     []byte
	imageSize image.Point
	rasterErr error
	pageErr   map[int]error
	saveErr   error

	writers []*fakeWriter
	saved   []string
	rasters int
}

func newFakeDoc(pages int) *fakeDoc {
	d := &fakeDoc{
		blocks:   map[int][]layout.Block{},
		blockErr: map[int]error{},
		pageErr:  map[int]error{},
	}
	for i := 0; i < pages; i++ {
		d.sizes = append(d.sizes, PageSize{Width: 600, Height: 800})
	}
	return d
}

func (d *fakeDoc) NumPages() int { return len(d.sizes) }

func (d *fakeDoc) PageSize(page int) PageSize { return d.sizes[page-1] }

func (d *fakeDoc) TextBlocks(page int) ([]layout.Block, error) {
	if err := d.blockErr[page]; err != nil {
		return nil, err
	}
	return d.blocks[page], nil
}

func (d *fakeDoc) Rasterize(ctx context.Context, page int) ([]byte, image.Point, error) {
	d.rasters++
	if d.rasterErr != nil {
		return nil, image.Point{}, d.rasterErr
	}
	return d.image, d.imageSize, nil
}

func (d *fakeDoc) Page(page int) (PageWriter, error) {
	if err := d.pageErr[page]; err != nil {
		return nil, err
	}
	w := &fakeWriter{page: page, fits: func(TextBox) bool { return true }}
	d.writers = append(d.writers, w)
	return w, nil
}

func (d *fakeDoc) Save(path string) error {
	if d.saveErr != nil {
		return d.saveErr
	}
	d.saved = append(d.saved, path)
	return nil
}

func (d *fakeDoc) Close() error { return nil }

// fakeWriter records every call as an op string.
type fakeWriter struct {
	page     int
	fits     func(TextBox) bool
	applyErr error
	ops      []string
	boxes    []TextBox
}

func (w *fakeWriter) MarkRedaction(r layout.Rect) {
	w.ops = append(w.ops, "redact")
}

func (w *fakeWriter) ApplyRedactions() error {
	w.ops = append(w.ops, "apply")
	return w.applyErr
}

func (w *fakeWriter) InsertText(box TextBox) (bool, error) {
	w.boxes = append(w.boxes, box)
	w.ops = append(w.ops, fmt.Sprintf("insert:%s:%t", box.Text, box.Force))
	ok := w.fits(box)
	if !ok && !box.Force {
		return false, nil
	}
	return ok, nil
}

func (w *fakeWriter) Finish() error {
	w.ops = append(w.ops, "finish")
	return nil
}

// fakeSegments translates with a lookup table, upper-casing anything else.
type fakeSegments struct {
	mu    sync.Mutex
	table map[string]string
	seen  []string
	stats guard.DispatchStats
}

func (f *fakeSegments) TranslateSegment(ctx context.Context, text string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, text)
	if out, ok := f.table[text]; ok {
		return out
	}
	return strings.ToUpper(text)
}

func (f *fakeSegments) Stats() guard.DispatchStats {
	return f.stats
}

type fakeEngine struct {
	words []ocr.Word
	err   error
	reqs  []ocr.Request
}

func (e *fakeEngine) Recognize(ctx context.Context, req ocr.Request) ([]ocr.Word, error) {
	e.reqs = append(e.reqs, req)
	return e.words, e.err
}

func (e *fakeEngine) Close() error { return nil }

type fakeLifecycle struct {
	acquireErr error
	acquires   int
	ends       int
}

func (l *fakeLifecycle) Acquire(ctx context.Context) error {
	l.acquires++
	return l.acquireErr
}

func (l *fakeLifecycle) EndJob(ctx context.Context) {
	l.ends++
}

// textBlock is a block holding a single one-span line.
func textBlock(text string, size float64, r layout.Rect) layout.Block {
	line := layout.Line{Spans: []layout.Span{{Text: text, Size: size, Rect: r}}, Rect: r}
	return layout.Block{Lines: []layout.Line{line}, Rect: r}
}

func word(text string, conf float64, x0, y0, x1, y1, block, line int) ocr.Word {
	return ocr.Word{
		Text:       text,
		Confidence: conf,
		Box:        image.Rect(x0, y0, x1, y1),
		Block:      block,
		Paragraph:  1,
		Line:       line,
	}
}
