// Package capture owns the screen-capture consent grant, the mirrored
// virtual display, and single-frame acquisition.
package capture

import (
	"context"
	"errors"

	"screen-schedule/src/materialize"
)

var (
	// ErrConsentDenied means the user declined or cancelled the capture prompt.
	ErrConsentDenied = errors.New("screen capture permission denied")
	// ErrAcquisitionFailed means no frame became available within the wait budget.
	ErrAcquisitionFailed = errors.New("no frame available")
	// ErrSessionActive is returned when a capture session is already live.
	ErrSessionActive = errors.New("capture session already active")
	// ErrReaderClosed is returned by a reader after Close.
	ErrReaderClosed = errors.New("image reader closed")
	// ErrMaxImages is returned when every queue slot is held by an unreleased image.
	ErrMaxImages = errors.New("max images already acquired")
)

// FlagAutoMirror asks the projection to mirror the default display content.
const FlagAutoMirror = 1 << 4

// DisplayMetrics describes the display being mirrored.
type DisplayMetrics struct {
	Width      int
	Height     int
	DensityDPI int
}

// MetricsProvider reports the current display bounds and density.
type MetricsProvider interface {
	Metrics() (DisplayMetrics, error)
}

// ConsentPrompter runs the platform consent flow. A granted result yields a
// projection; denial or cancellation returns ErrConsentDenied.
type ConsentPrompter interface {
	RequestConsent(ctx context.Context) (Projection, error)
}

// Projection is a granted capture session handle.
type Projection interface {
	NewImageReader(width, height, maxImages int) (ImageReader, error)
	CreateVirtualDisplay(name string, m DisplayMetrics, flags int, target Surface) (VirtualDisplay, error)
	Stop()
}

// Surface receives mirrored frames.
type Surface interface {
	Post(frame materialize.RawFrame, release func()) bool
}

// VirtualDisplay is the off-screen mirror target.
type VirtualDisplay interface {
	Release()
}

// ImageReader vends the most recently mirrored frame on demand.
type ImageReader interface {
	Surface() Surface
	// AcquireLatestImage returns (nil, nil) when no frame is available.
	AcquireLatestImage() (Image, error)
	Close()
}

// Image is one acquired frame. Close must be called exactly once to return
// its slot to the reader.
type Image interface {
	Frame() materialize.RawFrame
	Close()
}
