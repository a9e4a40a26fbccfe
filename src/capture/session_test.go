package capture

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-schedule/src/materialize"
)

type releaseLog struct {
	mu    sync.Mutex
	order []string
}

func (l *releaseLog) add(s string) {
	l.mu.Lock()
	l.order = append(l.order, s)
	l.mu.Unlock()
}

func (l *releaseLog) count(s string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, o := range l.order {
		if o == s {
			n++
		}
	}
	return n
}

type fakeReader struct {
	*Queue
	log *releaseLog
}

func (r fakeReader) Close() {
	r.log.add("reader")
	r.Queue.Close()
}

type fakeDisplay struct{ log *releaseLog }

func (d fakeDisplay) Release() { d.log.add("display") }

type fakeProjection struct {
	log        *releaseLog
	frame      *materialize.RawFrame
	displayErr error
	reader     *Queue
}

func (p *fakeProjection) NewImageReader(w, h, maxImages int) (ImageReader, error) {
	p.reader = NewQueue(maxImages)
	return fakeReader{Queue: p.reader, log: p.log}, nil
}

func (p *fakeProjection) CreateVirtualDisplay(name string, m DisplayMetrics, flags int, target Surface) (VirtualDisplay, error) {
	if p.displayErr != nil {
		return nil, p.displayErr
	}
	if p.frame != nil {
		target.Post(*p.frame, nil)
	}
	return fakeDisplay{log: p.log}, nil
}

func (p *fakeProjection) Stop() { p.log.add("projection") }

type fakePrompter struct {
	proj *fakeProjection
	err  error
}

func (p fakePrompter) RequestConsent(ctx context.Context) (Projection, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.proj, nil
}

type fixedMetrics struct{}

func (fixedMetrics) Metrics() (DisplayMetrics, error) {
	return DisplayMetrics{Width: 2, Height: 2, DensityDPI: 160}, nil
}

func testFrame() *materialize.RawFrame {
	return &materialize.RawFrame{Width: 2, Height: 2, PixelStride: 4, RowStride: 12, Pix: make([]byte, 24)}
}

func fastOptions() Options {
	return Options{InitialDelay: time.Millisecond, PollInterval: time.Millisecond, MaxWait: 10 * time.Millisecond}
}

func assertReleasedOnce(t *testing.T, l *releaseLog) {
	t.Helper()
	assert.Equal(t, []string{"reader", "display", "projection"}, l.order)
}

func TestCaptureSuccessReleasesOnceInOrder(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l, frame: testFrame()}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, fastOptions())

	img, err := m.Capture(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, img.Bounds().Dx())
	assert.Equal(t, 8, img.Stride)

	assertReleasedOnce(t, l)
	assert.False(t, m.Active())
	pending, acquired := proj.reader.Outstanding()
	assert.Zero(t, pending)
	assert.Zero(t, acquired)
}

func TestCaptureConsentDenied(t *testing.T) {
	l := &releaseLog{}
	m := NewManager(fakePrompter{err: errors.New("user cancelled")}, fixedMetrics{}, fastOptions())

	_, err := m.Capture(context.Background())
	assert.ErrorIs(t, err, ErrConsentDenied)
	assert.Empty(t, l.order)
	assert.False(t, m.Active())
}

func TestCaptureAcquisitionFailed(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, fastOptions())

	_, err := m.Capture(context.Background())
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assertReleasedOnce(t, l)
}

func TestCaptureContextCancelledDuringDelay(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l, frame: testFrame()}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, Options{InitialDelay: time.Hour})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := m.Capture(ctx)
	assert.ErrorIs(t, err, ErrAcquisitionFailed)
	assertReleasedOnce(t, l)
}

func TestOpenPartialFailureReleasesWhatWasCreated(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l, displayErr: errors.New("no surface")}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, fastOptions())

	_, err := m.Open(context.Background())
	require.Error(t, err)
	assert.Equal(t, []string{"reader", "projection"}, l.order)
	assert.False(t, m.Active())
}

func TestSessionReleaseIsIdempotentOnTeardown(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l, frame: testFrame()}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, fastOptions())

	s, err := m.Open(context.Background())
	require.NoError(t, err)
	assert.True(t, m.Active())

	// teardown before acquisition, then again from a deferred path
	s.Release()
	s.Release()

	for _, name := range []string{"reader", "display", "projection"} {
		assert.Equal(t, 1, l.count(name), name)
	}
	assert.False(t, m.Active())
}

func TestOnlyOneLiveSession(t *testing.T) {
	l := &releaseLog{}
	proj := &fakeProjection{log: l}
	m := NewManager(fakePrompter{proj: proj}, fixedMetrics{}, fastOptions())

	s, err := m.Open(context.Background())
	require.NoError(t, err)
	defer s.Release()

	_, err = m.Open(context.Background())
	assert.ErrorIs(t, err, ErrSessionActive)
}
