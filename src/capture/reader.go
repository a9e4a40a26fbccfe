package capture

import (
	"sync"

	"screen-schedule/src/materialize"
)

// Queue is an in-memory ImageReader with a fixed number of image slots.
// Posted frames beyond the free slots drop the oldest pending frame.
type Queue struct {
	mu       sync.Mutex
	max      int
	pending  []*queuedImage
	acquired int
	closed   bool
}

type queuedImage struct {
	q       *Queue
	frame   materialize.RawFrame
	release func()
	once    sync.Once
}

// NewQueue returns a reader holding at most maxImages frames (pending plus acquired).
func NewQueue(maxImages int) *Queue {
	if maxImages <= 0 {
		maxImages = 2
	}
	return &Queue{max: maxImages}
}

func (q *Queue) Surface() Surface { return q }

// Post enqueues a frame. release (may be nil) runs once the frame is dropped,
// closed, or the queue shuts down. Returns false if the queue is closed.
func (q *Queue) Post(frame materialize.RawFrame, release func()) bool {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		if release != nil {
			release()
		}
		return false
	}
	img := &queuedImage{q: q, frame: frame, release: release}
	var dropped *queuedImage
	if len(q.pending)+q.acquired >= q.max && len(q.pending) > 0 {
		dropped = q.pending[0]
		q.pending = q.pending[1:]
	}
	if len(q.pending)+q.acquired >= q.max {
		// every slot is held by the consumer
		q.mu.Unlock()
		if release != nil {
			release()
		}
		return true
	}
	q.pending = append(q.pending, img)
	q.mu.Unlock()

	if dropped != nil {
		dropped.free()
	}
	return true
}

// AcquireLatestImage returns the newest pending frame and discards older ones.
func (q *Queue) AcquireLatestImage() (Image, error) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrReaderClosed
	}
	if len(q.pending) == 0 {
		if q.acquired >= q.max {
			q.mu.Unlock()
			return nil, ErrMaxImages
		}
		q.mu.Unlock()
		return nil, nil
	}
	latest := q.pending[len(q.pending)-1]
	stale := q.pending[:len(q.pending)-1]
	q.pending = nil
	q.acquired++
	q.mu.Unlock()

	for _, s := range stale {
		s.free()
	}
	return latest, nil
}

// Close drops every pending frame. Images already acquired stay valid until closed.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.free()
	}
}

// Outstanding reports pending and acquired-but-unclosed frames.
func (q *Queue) Outstanding() (pending, acquired int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending), q.acquired
}

func (i *queuedImage) Frame() materialize.RawFrame { return i.frame }

func (i *queuedImage) Close() {
	i.once.Do(func() {
		i.q.mu.Lock()
		i.q.acquired--
		i.q.mu.Unlock()
		if i.release != nil {
			i.release()
		}
	})
}

func (i *queuedImage) free() {
	i.once.Do(func() {
		if i.release != nil {
			i.release()
		}
	})
}
