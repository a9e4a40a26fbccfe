// Package screenshot is the desktop projection backend: it mirrors the
// primary display into a capture.ImageReader using kbinani/screenshot.
package screenshot

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"github.com/kbinani/screenshot"

	"screen-schedule/src/capture"
	"screen-schedule/src/materialize"
)

// DefaultDPI is reported when the platform exposes no density information.
const DefaultDPI = 96

// DefaultFrameInterval is how often the mirror grabs the display.
const DefaultFrameInterval = 250 * time.Millisecond

// AllDisplays selects the union of every active display.
const AllDisplays = -1

// ConfirmFunc asks the user whether the screen may be captured.
type ConfirmFunc func(ctx context.Context) (bool, error)

// Grant asks once and remembers a yes for the life of the process. A no
// is asked again on the next capture.
type Grant struct {
	Ask ConfirmFunc

	mu      sync.Mutex
	granted bool
}

func (g *Grant) Confirm(ctx context.Context) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.granted {
		return true, nil
	}
	ok, err := g.Ask(ctx)
	if err != nil {
		return false, err
	}
	g.granted = ok
	return ok, nil
}

// Prompter grants desktop capture. A nil Confirm grants without asking.
type Prompter struct {
	Display       int
	FrameInterval time.Duration
	Confirm       ConfirmFunc
}

func (p Prompter) RequestConsent(ctx context.Context) (capture.Projection, error) {
	if p.Confirm != nil {
		ok, err := p.Confirm(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", capture.ErrConsentDenied, err)
		}
		if !ok {
			return nil, capture.ErrConsentDenied
		}
	}
	if screenshot.NumActiveDisplays() == 0 {
		return nil, fmt.Errorf("%w: no active displays found", capture.ErrAcquisitionFailed)
	}
	interval := p.FrameInterval
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	return &projection{display: p.Display, interval: interval, grab: screenshot.CaptureRect}, nil
}

// Metrics reports the bounds of one display, or of all of them for
// AllDisplays.
type Metrics struct {
	Display int
}

func (m Metrics) Metrics() (capture.DisplayMetrics, error) {
	b, err := displayBounds(m.Display)
	if err != nil {
		return capture.DisplayMetrics{}, err
	}
	return capture.DisplayMetrics{Width: b.Dx(), Height: b.Dy(), DensityDPI: DefaultDPI}, nil
}

type grabFunc func(image.Rectangle) (*image.RGBA, error)

type projection struct {
	display  int
	interval time.Duration
	grab     grabFunc

	mu      sync.Mutex
	mirrors []*mirror
	stopped bool
}

func (p *projection) NewImageReader(width, height, maxImages int) (capture.ImageReader, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid reader size %dx%d", width, height)
	}
	return capture.NewQueue(maxImages), nil
}

func (p *projection) CreateVirtualDisplay(name string, m capture.DisplayMetrics, flags int, target capture.Surface) (capture.VirtualDisplay, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, fmt.Errorf("projection stopped")
	}
	if flags&capture.FlagAutoMirror == 0 {
		return nil, fmt.Errorf("virtual display %q: only mirroring is supported", name)
	}

	origin := image.Point{}
	if b, err := displayBounds(p.display); err == nil {
		origin = b.Min
	}
	bounds := image.Rectangle{Min: origin, Max: origin.Add(image.Pt(m.Width, m.Height))}

	mr := &mirror{
		name:   name,
		bounds: bounds,
		target: target,
		grab:   p.grab,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	p.mirrors = append(p.mirrors, mr)
	go mr.run(p.interval)
	return mr, nil
}

// Stop ends the projection and every display still mirroring.
func (p *projection) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	mirrors := p.mirrors
	p.mirrors = nil
	p.mu.Unlock()

	for _, m := range mirrors {
		m.Release()
	}
}

type mirror struct {
	name   string
	bounds image.Rectangle
	target capture.Surface
	grab   grabFunc

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (m *mirror) run(interval time.Duration) {
	defer close(m.done)
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		img, err := m.grab(m.bounds)
		if err != nil {
			log.Printf("screenshot: %s grab failed: %v", m.name, err)
		} else {
			m.target.Post(materialize.FromRGBA(img), nil)
		}
		select {
		case <-m.stop:
			return
		case <-t.C:
		}
	}
}

// Release stops mirroring and waits for the grab loop to exit.
func (m *mirror) Release() {
	m.stopOnce.Do(func() { close(m.stop) })
	<-m.done
}

func displayBounds(display int) (image.Rectangle, error) {
	if display != AllDisplays {
		return GetDisplayBounds(display)
	}
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	union := screenshot.GetDisplayBounds(0)
	for i := 1; i < n; i++ {
		union = union.Union(screenshot.GetDisplayBounds(i))
	}
	return union, nil
}

// GetDisplayBounds returns the bounds of the given display.
func GetDisplayBounds(display int) (image.Rectangle, error) {
	n := screenshot.NumActiveDisplays()
	if n == 0 {
		return image.Rectangle{}, fmt.Errorf("no active displays found")
	}
	if display < 0 || display >= n {
		return image.Rectangle{}, fmt.Errorf("display %d out of range (%d active)", display, n)
	}
	return screenshot.GetDisplayBounds(display), nil
}
