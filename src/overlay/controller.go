package overlay

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"sync"
)

// ErrBusy is returned by Tap while a capture flow is already running.
var ErrBusy = errors.New("capture already in progress")

// TouchListener receives gestures from an attached view.
type TouchListener interface {
	Drag(dx, dy int)
	DragEnd()
	Tap() error
}

// View is the floating button handed to a WindowManager.
type View struct {
	Label    string
	Listener TouchListener
}

type WindowManager interface {
	AddView(v *View, p LayoutParams) error
	UpdateViewLayout(v *View, p LayoutParams) error
	RemoveView(v *View) error
}

// LaunchRequest starts one capture flow. NewTask and ClearTop ask the host
// to start the flow fresh and drop any stale one.
type LaunchRequest struct {
	Token    string
	NewTask  bool
	ClearTop bool
}

type Launcher interface {
	Launch(req LaunchRequest) error
}

// Guard is the single-flight flag consulted before launching. Release is
// only called by the controller when Launch itself fails; otherwise the
// flow's owner releases it when the flow ends.
type Guard interface {
	TryAcquire() bool
	Release()
}

const positionKey = "overlay.position"

// Controller owns the overlay view. It is safe for concurrent use; gestures
// arrive from the window thread while Start and Destroy come from main.
type Controller struct {
	wm       WindowManager
	launcher Launcher
	guard    Guard
	token    string
	lc       *Lifecycle

	mu       sync.Mutex
	params   LayoutParams
	view     *View
	dragging bool
}

func NewController(wm WindowManager, launcher Launcher, guard Guard, token string, x, y int) *Controller {
	return &Controller{
		wm:       wm,
		launcher: launcher,
		guard:    guard,
		token:    token,
		lc:       NewLifecycle(),
		params:   DefaultParams(x, y),
	}
}

func (c *Controller) Lifecycle() *Lifecycle { return c.lc }

// Start attaches the overlay view and resumes the lifecycle. Calling it
// again while attached does nothing.
func (c *Controller) Start() error {
	c.mu.Lock()
	if c.view != nil {
		c.mu.Unlock()
		return nil
	}
	if b, ok := c.lc.RestoreState(positionKey); ok && len(b) == 16 {
		c.params.X = int(int64(binary.LittleEndian.Uint64(b[:8])))
		c.params.Y = int(int64(binary.LittleEndian.Uint64(b[8:])))
	}
	v := &View{Label: "Capture", Listener: c}
	p := c.params
	c.mu.Unlock()

	if err := c.wm.AddView(v, p); err != nil {
		return fmt.Errorf("attach overlay: %w", err)
	}

	c.mu.Lock()
	c.view = v
	c.mu.Unlock()

	if c.lc.State() == StateInitialized {
		for _, step := range []func() error{c.lc.Create, c.lc.Start, c.lc.Resume} {
			if err := step(); err != nil {
				return err
			}
		}
	}
	log.Printf("overlay: attached at (%d,%d)", p.X, p.Y)
	return nil
}

// Drag moves the overlay by (dx, dy). Positions are not clamped.
func (c *Controller) Drag(dx, dy int) {
	c.mu.Lock()
	c.dragging = true
	c.params.X += dx
	c.params.Y += dy
	v, p := c.view, c.params
	c.mu.Unlock()

	if v == nil {
		return
	}
	if err := c.wm.UpdateViewLayout(v, p); err != nil {
		log.Printf("overlay: update layout: %v", err)
	}
}

func (c *Controller) DragEnd() {
	c.mu.Lock()
	c.dragging = false
	x, y := c.params.X, c.params.Y
	c.mu.Unlock()

	b := make([]byte, 16)
	binary.LittleEndian.PutUint64(b[:8], uint64(int64(x)))
	binary.LittleEndian.PutUint64(b[8:], uint64(int64(y)))
	c.lc.SaveState(positionKey, b)
}

// Tap launches a capture flow. It is ignored while a drag is in progress
// and returns ErrBusy while another flow holds the guard.
func (c *Controller) Tap() error {
	c.mu.Lock()
	dragging := c.dragging
	c.mu.Unlock()
	if dragging {
		return nil
	}

	if c.guard != nil && !c.guard.TryAcquire() {
		log.Printf("overlay: tap ignored, flow in progress")
		return ErrBusy
	}
	err := c.launcher.Launch(LaunchRequest{Token: c.token, NewTask: true, ClearTop: true})
	if err != nil {
		if c.guard != nil {
			c.guard.Release()
		}
		return fmt.Errorf("launch capture: %w", err)
	}
	return nil
}

// Destroy detaches the view and ends the lifecycle. Safe to call twice.
func (c *Controller) Destroy() error {
	c.mu.Lock()
	v := c.view
	c.view = nil
	c.mu.Unlock()

	var err error
	if v != nil {
		err = c.wm.RemoveView(v)
	}
	if c.lc.State() != StateDestroyed {
		_ = c.lc.Destroy()
	}
	return err
}

func (c *Controller) Position() (x, y int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.params.X, c.params.Y
}
