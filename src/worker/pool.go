package worker

import (
	"context"
	"fmt"
	"log"
	"runtime"
	"runtime/debug"
	"sync"

	"screen-schedule/src/session"
)

// Job is one capture flow run on a worker goroutine.
type Job func(ctx context.Context) (session.Result, error)

// ResultCallback is invoked on job completion (from a worker goroutine).
// The event loop should pass a closure that posts back into the loop.
type ResultCallback func(res session.Result, err error)

// Pool is a fixed-size worker pool with a 1-slot input queue (strict back-pressure).
type Pool struct {
	jobs chan job
	wg   sync.WaitGroup

	closeOnce sync.Once
}

type job struct {
	ctx context.Context
	run Job
	cb  ResultCallback
}

// New creates a worker pool. Size defaults to NumCPU when size<=0. Queue is 1 slot.
func New(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}
	p := &Pool{jobs: make(chan job, 1)}
	p.start(size)
	return p
}

func (p *Pool) start(n int) {
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			for j := range p.jobs {
				log.Printf("worker %d: starting flow", id)
				res, err := runJob(j)
				log.Printf("worker %d: flow finished: %q err=%v", id, res.Message, err)
				j.cb(res, err)
			}
		}(i)
	}
}

// runJob keeps a panicking flow from taking the worker down.
func runJob(j job) (res session.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("worker: flow panicked: %v\n%s", r, debug.Stack())
			err = fmt.Errorf("flow panicked: %v", r)
		}
	}()
	if err := j.ctx.Err(); err != nil {
		return session.Result{}, err
	}
	return j.run(j.ctx)
}

// Submit enqueues a job if the single-slot queue is free. Returns false if dropped.
func (p *Pool) Submit(ctx context.Context, run Job, cb ResultCallback) bool {
	select {
	case p.jobs <- job{ctx: ctx, run: run, cb: cb}:
		return true
	default:
		return false
	}
}

// Close stops the pool after draining current work. Safe to call twice.
func (p *Pool) Close() {
	p.closeOnce.Do(func() { close(p.jobs) })
	p.wg.Wait()
}
