//go:build !ocr

package ocr

// NewEngine reports that OCR support was not compiled in.
// Rebuild with -tags ocr to enable it.
func NewEngine() (Engine, error) {
	return nil, ErrOCRNotEnabled
}
