package overlay

import (
	"errors"
	"fmt"
	"sync"
)

// State is a lifecycle state of the overlay host.
type State int

const (
	StateInitialized State = iota
	StateCreated
	StateStarted
	StateResumed
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateCreated:
		return "created"
	case StateStarted:
		return "started"
	case StateResumed:
		return "resumed"
	case StateDestroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var ErrIllegalTransition = errors.New("illegal lifecycle transition")

// Lifecycle is the explicit state holder for a host that has no framework
// lifecycle of its own. Transitions move one step at a time; Destroy is
// allowed from any live state and is terminal.
type Lifecycle struct {
	mu         sync.Mutex
	state      State
	saved      map[string][]byte
	viewModels map[string]any
	observers  []func(State)
}

func NewLifecycle() *Lifecycle {
	return &Lifecycle{
		saved:      make(map[string][]byte),
		viewModels: make(map[string]any),
	}
}

func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Observe registers fn to be called after every transition.
func (l *Lifecycle) Observe(fn func(State)) {
	l.mu.Lock()
	l.observers = append(l.observers, fn)
	l.mu.Unlock()
}

func (l *Lifecycle) Create() error { return l.move(StateInitialized, StateCreated) }
func (l *Lifecycle) Start() error  { return l.move(StateCreated, StateStarted) }
func (l *Lifecycle) Resume() error { return l.move(StateStarted, StateResumed) }
func (l *Lifecycle) Pause() error  { return l.move(StateResumed, StateStarted) }
func (l *Lifecycle) Stop() error   { return l.move(StateStarted, StateCreated) }

// Destroy ends the lifecycle and clears the view-model store.
func (l *Lifecycle) Destroy() error {
	l.mu.Lock()
	if l.state == StateDestroyed {
		l.mu.Unlock()
		return fmt.Errorf("%w: already destroyed", ErrIllegalTransition)
	}
	l.state = StateDestroyed
	clear(l.viewModels)
	obs := append([]func(State){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range obs {
		fn(StateDestroyed)
	}
	return nil
}

func (l *Lifecycle) move(from, to State) error {
	l.mu.Lock()
	if l.state != from {
		cur := l.state
		l.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s (from %s)", ErrIllegalTransition, from, to, cur)
	}
	l.state = to
	obs := append([]func(State){}, l.observers...)
	l.mu.Unlock()
	for _, fn := range obs {
		fn(to)
	}
	return nil
}

// SaveState stores an opaque blob under key. It survives until the process
// exits, not just until Destroy.
func (l *Lifecycle) SaveState(key string, b []byte) {
	l.mu.Lock()
	l.saved[key] = append([]byte(nil), b...)
	l.mu.Unlock()
}

func (l *Lifecycle) RestoreState(key string) ([]byte, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.saved[key]
	return b, ok
}

// ViewModel returns the value stored under key, creating it with mk when
// absent. It returns nil after Destroy.
func (l *Lifecycle) ViewModel(key string, mk func() any) any {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateDestroyed {
		return nil
	}
	if v, ok := l.viewModels[key]; ok {
		return v
	}
	v := mk()
	l.viewModels[key] = v
	return v
}

func (l *Lifecycle) ViewModelCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.viewModels)
}
