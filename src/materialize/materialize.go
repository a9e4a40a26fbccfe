// Package materialize turns raw single-plane frame buffers into tightly
// packed RGBA images.
package materialize

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
)

// BytesPerPixel is the only supported pixel stride (RGBA_8888).
const BytesPerPixel = 4

var ErrInvalidFrame = errors.New("invalid frame")

// RawFrame is one acquired image plane. Row stride may exceed
// PixelStride*Width when the producer aligns rows.
type RawFrame struct {
	Width       int
	Height      int
	PixelStride int
	RowStride   int
	Pix         []byte
}

// RowPadding returns the number of alignment bytes at the end of each row.
func (f RawFrame) RowPadding() int {
	return f.RowStride - f.PixelStride*f.Width
}

func (f RawFrame) validate() error {
	if f.Width <= 0 || f.Height <= 0 {
		return fmt.Errorf("%w: dimensions %dx%d", ErrInvalidFrame, f.Width, f.Height)
	}
	if f.PixelStride != BytesPerPixel {
		return fmt.Errorf("%w: pixel stride %d", ErrInvalidFrame, f.PixelStride)
	}
	pad := f.RowPadding()
	if pad < 0 {
		return fmt.Errorf("%w: row stride %d shorter than row of %d pixels", ErrInvalidFrame, f.RowStride, f.Width)
	}
	if pad%f.PixelStride != 0 {
		return fmt.Errorf("%w: row padding %d not a multiple of pixel stride", ErrInvalidFrame, pad)
	}
	// Producers commonly omit the padding after the last row.
	if need := f.RowStride*(f.Height-1) + f.PixelStride*f.Width; len(f.Pix) < need {
		return fmt.Errorf("%w: buffer has %d bytes, need %d", ErrInvalidFrame, len(f.Pix), need)
	}
	return nil
}

// Materialize copies the padded buffer into a bitmap wide enough to hold the
// padding, then crops to the true Width x Height region. The returned image
// owns its pixels and has Stride == 4*Width. The frame is not released.
func Materialize(f RawFrame) (*image.RGBA, error) {
	if err := f.validate(); err != nil {
		return nil, err
	}

	paddedWidth := f.Width + f.RowPadding()/f.PixelStride
	padded := image.NewRGBA(image.Rect(0, 0, paddedWidth, f.Height))
	copy(padded.Pix, f.Pix)

	out := image.NewRGBA(image.Rect(0, 0, f.Width, f.Height))
	draw.Draw(out, out.Bounds(), padded.SubImage(out.Bounds()), image.Point{}, draw.Src)
	return out, nil
}

// FromRGBA describes an RGBA image as a raw frame without copying. Used by
// capture backends that already produce image.RGBA.
func FromRGBA(img *image.RGBA) RawFrame {
	b := img.Bounds()
	return RawFrame{
		Width:       b.Dx(),
		Height:      b.Dy(),
		PixelStride: BytesPerPixel,
		RowStride:   img.Stride,
		Pix:         img.Pix[img.PixOffset(b.Min.X, b.Min.Y):],
	}
}
