// Package ocr adapts text-recognition engines behind a single, fail-safe
// Recognize call.
package ocr

import (
	"context"
	"image"
)

// DefaultMaxSideLen bounds the longest image side handed to an engine.
const DefaultMaxSideLen = 1600

// Params tunes detection for weak or rotated text.
type Params struct {
	Padding        int
	BoxScoreThresh float64
	BoxThresh      float64
	UnClipRatio    float64
	DoAngle        bool
	MostAngle      bool
}

// DefaultParams favours recall over precision.
func DefaultParams() Params {
	return Params{
		Padding:        50,
		BoxScoreThresh: 0.5,
		BoxThresh:      0.3,
		UnClipRatio:    1.6,
		DoAngle:        true,
		MostAngle:      true,
	}
}

// Result is what an engine returns for one detection call.
type Result struct {
	// StrRes is every recognized line concatenated.
	StrRes string
}

// Engine is the native OCR binding contract.
type Engine interface {
	// Init loads model assets. A negative return value means failure.
	Init(assetsDir string, threads int) int
	SetParams(p Params)
	// Detect reads in and may annotate out; both have the same size.
	Detect(ctx context.Context, in, out *image.RGBA, maxSideLen int) (Result, error)
	Close() error
}
