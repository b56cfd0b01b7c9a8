//go:build !ocr

package ocr

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEngineWithoutTag(t *testing.T) {
	e, err := NewEngine()
	assert.ErrorIs(t, err, ErrOCRNotEnabled)
	assert.Nil(t, e)
}
