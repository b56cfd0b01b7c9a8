package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"layout-translator/internal/logger"
)

// Rasterizer renders single pages to PNG with poppler's pdftoppm.
type Rasterizer struct {
	bin string
	dpi int
}

// NewRasterizer creates a rasterizer. An empty bin means "pdftoppm".
func NewRasterizer(bin string, dpi int) *Rasterizer {
	if bin == "" {
		bin = "pdftoppm"
	}
	return &Rasterizer{bin: bin, dpi: dpi}
}

// DPI returns the render resolution.
func (r *Rasterizer) DPI() int {
	return r.dpi
}

// Available reports whether the pdftoppm binary can be run.
func (r *Rasterizer) Available() bool {
	cmd := exec.Command(r.bin, "-v")
	hideConsole(cmd)
	return cmd.Run() == nil
}

// RenderPage renders a 1-based page and returns the PNG bytes with the
// image size in pixels.
func (r *Rasterizer) RenderPage(ctx context.Context, pdfPath string, page int) ([]byte, image.Point, error) {
	logger.Debug("rasterizing page",
		logger.String("pdf", filepath.Base(pdfPath)),
		logger.Int("page", page),
		logger.Int("dpi", r.dpi))

	dir, err := os.MkdirTemp("", "raster_*")
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to create temp dir: %w", err)
	}
	defer os.RemoveAll(dir)

	prefix := filepath.Join(dir, "page")
	args := []string{
		"-f", strconv.Itoa(page),
		"-l", strconv.Itoa(page),
		"-png",
		"-r", strconv.Itoa(r.dpi),
		"-singlefile",
		pdfPath,
		prefix,
	}
	cmd := exec.CommandContext(ctx, r.bin, args...)
	hideConsole(cmd)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, image.Point{}, fmt.Errorf("pdftoppm failed: %w, output: %s", err, string(out))
	}

	data, err := os.ReadFile(prefix + ".png")
	if err != nil {
		return nil, image.Point{}, fmt.Errorf("failed to read rendered page: %w", err)
	}
	size, err := imageSize(data)
	if err != nil {
		return nil, image.Point{}, err
	}
	return data, size, nil
}

// imageSize decodes only the header of an encoded image.
func imageSize(data []byte) (image.Point, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Point{}, fmt.Errorf("failed to decode image: %w", err)
	}
	return image.Pt(cfg.Width, cfg.Height), nil
}
