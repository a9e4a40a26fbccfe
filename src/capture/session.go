package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"screen-schedule/src/materialize"
)

const virtualDisplayName = "ScreenCapture"

// Options tunes frame acquisition. Zero values take the defaults.
type Options struct {
	// InitialDelay is waited after mirroring starts, before the first poll.
	InitialDelay time.Duration
	PollInterval time.Duration
	// MaxWait bounds polling after InitialDelay.
	MaxWait   time.Duration
	MaxImages int
}

func (o Options) withDefaults() Options {
	if o.InitialDelay <= 0 {
		o.InitialDelay = time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 100 * time.Millisecond
	}
	if o.MaxWait <= 0 {
		o.MaxWait = 3 * time.Second
	}
	if o.MaxImages <= 0 {
		o.MaxImages = 2
	}
	return o
}

// Manager opens capture sessions. At most one session is live at a time.
type Manager struct {
	prompter ConsentPrompter
	metrics  MetricsProvider
	opts     Options

	mu     sync.Mutex
	active *Session
}

func NewManager(prompter ConsentPrompter, metrics MetricsProvider, opts Options) *Manager {
	return &Manager{prompter: prompter, metrics: metrics, opts: opts.withDefaults()}
}

// Capture opens a session, acquires one frame, and releases the session on
// every path.
func (m *Manager) Capture(ctx context.Context) (*image.RGBA, error) {
	s, err := m.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer s.Release()
	return s.Acquire(ctx)
}

// Open requests consent and starts mirroring into a fresh image reader.
// The caller owns the returned session and must Release it.
func (m *Manager) Open(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	if m.active != nil {
		m.mu.Unlock()
		return nil, ErrSessionActive
	}
	s := &Session{manager: m, opts: m.opts}
	m.active = s
	m.mu.Unlock()

	if err := s.start(ctx, m.prompter, m.metrics); err != nil {
		s.Release()
		return nil, err
	}
	return s, nil
}

func (m *Manager) detach(s *Session) {
	m.mu.Lock()
	if m.active == s {
		m.active = nil
	}
	m.mu.Unlock()
}

// Active reports whether a session is currently live.
func (m *Manager) Active() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.active != nil
}

// Session holds one projection, its virtual display, and its image reader.
type Session struct {
	manager *Manager
	opts    Options

	Metrics    DisplayMetrics
	projection Projection
	display    VirtualDisplay
	reader     ImageReader

	releaseOnce sync.Once
}

func (s *Session) start(ctx context.Context, prompter ConsentPrompter, metrics MetricsProvider) error {
	proj, err := prompter.RequestConsent(ctx)
	if err != nil {
		if errors.Is(err, ErrConsentDenied) || errors.Is(err, ErrAcquisitionFailed) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrConsentDenied, err)
	}
	if proj == nil {
		return ErrConsentDenied
	}
	s.projection = proj

	dm, err := metrics.Metrics()
	if err != nil {
		return fmt.Errorf("display metrics: %w", err)
	}
	s.Metrics = dm

	reader, err := proj.NewImageReader(dm.Width, dm.Height, s.opts.MaxImages)
	if err != nil {
		return fmt.Errorf("create image reader: %w", err)
	}
	s.reader = reader

	display, err := proj.CreateVirtualDisplay(virtualDisplayName, dm, FlagAutoMirror, reader.Surface())
	if err != nil {
		return fmt.Errorf("create virtual display: %w", err)
	}
	s.display = display

	log.Printf("capture: mirroring %dx%d@%d", dm.Width, dm.Height, dm.DensityDPI)
	return nil
}

// Acquire waits InitialDelay, then polls the reader until a frame arrives or
// MaxWait elapses. The acquired frame is materialized and closed.
func (s *Session) Acquire(ctx context.Context) (*image.RGBA, error) {
	if s.reader == nil {
		return nil, ErrAcquisitionFailed
	}

	if err := sleepCtx(ctx, s.opts.InitialDelay); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}

	deadline := time.Now().Add(s.opts.MaxWait)
	for {
		img, err := s.reader.AcquireLatestImage()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
		}
		if img != nil {
			return materializeAndClose(img)
		}
		if !time.Now().Before(deadline) {
			log.Printf("capture: no frame after %v", s.opts.InitialDelay+s.opts.MaxWait)
			return nil, ErrAcquisitionFailed
		}
		if err := sleepCtx(ctx, s.opts.PollInterval); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
		}
	}
}

func materializeAndClose(img Image) (*image.RGBA, error) {
	defer img.Close()
	out, err := materialize.Materialize(img.Frame())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAcquisitionFailed, err)
	}
	return out, nil
}

// Release frees the image reader, the virtual display, and the projection,
// in that order. Safe to call more than once.
func (s *Session) Release() {
	s.releaseOnce.Do(func() {
		if s.reader != nil {
			s.reader.Close()
		}
		if s.display != nil {
			s.display.Release()
		}
		if s.projection != nil {
			s.projection.Stop()
		}
		if s.manager != nil {
			s.manager.detach(s)
		}
	})
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
