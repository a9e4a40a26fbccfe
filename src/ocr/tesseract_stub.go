//go:build !tesseract

package ocr

import "fmt"

// TesseractAvailable reports whether the native engine is compiled in.
const TesseractAvailable = false

// NewTesseractEngine is unavailable without the tesseract build tag.
func NewTesseractEngine(language string) (Engine, error) {
	return nil, fmt.Errorf("tesseract engine not compiled in (build with -tags tesseract)")
}
