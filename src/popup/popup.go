// Package popup routes user-visible status lines to the notification layer.
package popup

import (
	"log"
	"runtime"
	"sync"

	"screen-schedule/src/notification"
)

var (
	mu   sync.Mutex
	last string
	show = notification.Toast
)

// Show displays text as a transient status message.
func Show(text string) error {
	if _, file, line, ok := runtime.Caller(1); ok {
		log.Printf("popup: %q from %s:%d", text, file, line)
	}
	mu.Lock()
	last = text
	mu.Unlock()
	show(text)
	return nil
}

// Last returns the most recent message shown.
func Last() string {
	mu.Lock()
	defer mu.Unlock()
	return last
}

// Notifier adapts Show to the flow's notifier.
type Notifier struct{}

func (Notifier) Notify(msg string) { _ = Show(msg) }
