package eventloop

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"screen-schedule/src/overlay"
	"screen-schedule/src/session"
	"screen-schedule/src/singleinstance"
	"screen-schedule/src/tray"
	"screen-schedule/src/worker"
)

var ErrStopped = errors.New("event loop stopped")

// Runner runs one capture flow with the given token.
type Runner func(ctx context.Context, token string) (session.Result, error)

type Options struct {
	Run Runner
	// Token is used when a trigger does not carry its own.
	Token    string
	Deadline time.Duration
	// Server enables delegated captures; nil disables them.
	Server   singleinstance.Server
	CopyText bool
	Tooltip  string
}

// Loop is the single coordinator for capture triggers. Notifications and
// result delivery run on its goroutine. The busy flag is the single-flight
// guard: anyone may acquire it, only the loop clears it.
type Loop struct {
	run            Runner
	token          string
	deadline       time.Duration
	srv            singleinstance.Server
	copyText       bool
	defaultTooltip string

	pool     *worker.Pool
	busy     atomic.Bool
	launches chan overlay.LaunchRequest
	calls    chan func()
	results  chan result
	done     chan struct{}
}

type result struct {
	res    session.Result
	err    error
	target resultTarget
	cancel context.CancelFunc
}

type resultTarget interface {
	session.ResultTarget
	Close()
}

type localTarget struct{ session.ClipboardTarget }

func (localTarget) Close() {}

type delegatedTarget struct {
	session.DelegatedTarget
}

func (t delegatedTarget) Close() {
	if t.Conn != nil {
		_ = t.Conn.Close()
	}
}

// New creates a loop. A zero Deadline means 20s.
func New(opts Options) *Loop {
	if opts.Deadline <= 0 {
		opts.Deadline = 20 * time.Second
	}
	if opts.Tooltip == "" {
		opts.Tooltip = "Screen Schedule"
	}
	return &Loop{
		run:            opts.Run,
		token:          opts.Token,
		deadline:       opts.Deadline,
		srv:            opts.Server,
		copyText:       opts.CopyText,
		defaultTooltip: opts.Tooltip,
		pool:           worker.New(1),
		launches:       make(chan overlay.LaunchRequest, 1),
		calls:          make(chan func(), 16),
		results:        make(chan result, 1),
		done:           make(chan struct{}),
	}
}

// TryAcquire marks the loop busy. It reports false if a flow is running.
func (l *Loop) TryAcquire() bool {
	if !l.busy.CompareAndSwap(false, true) {
		return false
	}
	tray.UpdateTooltip(l.defaultTooltip + ": capturing...")
	return true
}

// Release clears the busy flag.
func (l *Loop) Release() {
	l.busy.Store(false)
	tray.UpdateTooltip(l.defaultTooltip)
}

func (l *Loop) Busy() bool { return l.busy.Load() }

// Launch hands an already-acquired capture request to the loop.
func (l *Loop) Launch(req overlay.LaunchRequest) error {
	if l.stopped() {
		return ErrStopped
	}
	select {
	case l.launches <- req:
		return nil
	case <-l.done:
		return ErrStopped
	}
}

// Post runs fn on the loop goroutine. It reports false once the loop has
// stopped.
func (l *Loop) Post(fn func()) bool {
	if l.stopped() {
		return false
	}
	select {
	case l.calls <- fn:
		return true
	case <-l.done:
		return false
	}
}

func (l *Loop) stopped() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

// Run processes triggers until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer func() {
		close(l.done)
		l.pool.Close()
	}()

	var reqCh chan singleinstance.Conn
	if l.srv != nil {
		if err := l.srv.Start(ctx); err != nil {
			return err
		}
		defer l.srv.Close()
		if p := l.srv.Port(); p > 0 {
			log.Printf("eventloop: resident listening on 127.0.0.1:%d", p)
			tray.SetAboutExtra(fmt.Sprintf("Resident TCP port: %d", p))
		}
		reqCh = make(chan singleinstance.Conn, 4)
		go func() {
			for {
				conn, err := l.srv.Next(ctx)
				if err != nil {
					close(reqCh)
					return
				}
				select {
				case reqCh <- conn:
				case <-l.done:
					_ = conn.Close()
					return
				}
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-l.calls:
			fn()
		case req := <-l.launches:
			l.startFlow(ctx, req.Token, localTarget{session.ClipboardTarget{CopyText: l.copyText}})
		case conn, ok := <-reqCh:
			if !ok {
				reqCh = nil
				continue
			}
			l.handleConn(ctx, conn)
		case res := <-l.results:
			l.handleResult(res)
		}
	}
}

func (l *Loop) handleConn(ctx context.Context, conn singleinstance.Conn) {
	target := delegatedTarget{session.DelegatedTarget{Conn: conn}}
	if !l.TryAcquire() {
		log.Printf("eventloop: delegated capture rejected, busy")
		_ = target.OnFailure(session.Result{}, overlay.ErrBusy)
		target.Close()
		return
	}
	token := conn.Request().Token
	if token == "" {
		token = l.token
	}
	l.startFlow(ctx, token, target)
}

// startFlow submits a flow. The caller holds the busy flag.
func (l *Loop) startFlow(ctx context.Context, token string, target resultTarget) {
	if token == "" {
		token = l.token
	}
	jobCtx, cancel := context.WithTimeout(ctx, l.deadline)
	submitted := l.pool.Submit(jobCtx, func(ctx context.Context) (session.Result, error) {
		return l.run(ctx, token)
	}, func(res session.Result, err error) {
		select {
		case l.results <- result{res: res, err: err, target: target, cancel: cancel}:
		case <-l.done:
			cancel()
			target.Close()
		}
	})
	if !submitted {
		cancel()
		l.Release()
		_ = target.OnFailure(session.Result{}, overlay.ErrBusy)
		target.Close()
	}
}

func (l *Loop) handleResult(r result) {
	defer func() {
		l.Release()
		if r.cancel != nil {
			r.cancel()
		}
		r.target.Close()
	}()
	if r.err != nil {
		log.Printf("eventloop: flow failed: %v", r.err)
		if err := r.target.OnFailure(r.res, r.err); err != nil {
			log.Printf("eventloop: delivering failure: %v", err)
		}
		return
	}
	if err := r.target.OnSuccess(r.res); err != nil {
		log.Printf("eventloop: delivering result: %v", err)
	}
}

// Deadline returns the flow deadline for this loop.
func (l *Loop) Deadline() time.Duration { return l.deadline }
