// Package clipboard copies recognized text to the system clipboard.
package clipboard

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/clipboard"
)

// ErrUnavailable is returned when the platform clipboard could not be
// initialized (no display, missing libraries).
var ErrUnavailable = errors.New("clipboard unavailable")

var (
	mu    sync.Mutex
	ready bool
)

// Init prepares the platform clipboard. It may be called again after a
// failure.
func Init() error {
	mu.Lock()
	defer mu.Unlock()
	if ready {
		return nil
	}
	if err := clipboard.Init(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ready = true
	return nil
}

func Ready() bool {
	mu.Lock()
	defer mu.Unlock()
	return ready
}

// Write copies text. Writes are serialized.
func Write(text string) error {
	mu.Lock()
	defer mu.Unlock()
	if !ready {
		return ErrUnavailable
	}
	clipboard.Write(clipboard.FmtText, []byte(text))
	return nil
}
