// Package overlay owns the floating capture button: its window layout, the
// drag and tap gestures, and the lifecycle of the hosting surface.
package overlay

// Window flags.
const (
	// FlagNotFocusable keeps the overlay from taking keyboard focus.
	FlagNotFocusable = 1 << 3
	// FlagLayoutNoLimits lets the overlay be dragged past screen edges.
	FlagLayoutNoLimits = 1 << 9
)

// FormatTranslucent requests a per-pixel alpha surface.
const FormatTranslucent = -3

// GravityTopLeft anchors X and Y to the top-left corner of the screen.
const GravityTopLeft = 0x33

const (
	DefaultX      = 100
	DefaultY      = 300
	DefaultWidth  = 56
	DefaultHeight = 56
)

// LayoutParams positions one overlay view on screen.
type LayoutParams struct {
	X, Y          int
	Width, Height int
	Flags         int
	Format        int
	Gravity       int
}

// DefaultParams returns the overlay layout at (x, y).
func DefaultParams(x, y int) LayoutParams {
	return LayoutParams{
		X:       x,
		Y:       y,
		Width:   DefaultWidth,
		Height:  DefaultHeight,
		Flags:   FlagNotFocusable | FlagLayoutNoLimits,
		Format:  FormatTranslucent,
		Gravity: GravityTopLeft,
	}
}

func (p LayoutParams) HasFlag(f int) bool { return p.Flags&f == f }
