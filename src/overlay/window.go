package overlay

import (
	"errors"
	"log"
	"sync"
)

var ErrViewNotAttached = errors.New("view not attached")

// HeadlessWindowManager tracks views without drawing them. It backs the
// overlay on platforms without a native floating window and in tests.
type HeadlessWindowManager struct {
	mu    sync.Mutex
	views map[*View]LayoutParams
}

func NewHeadlessWindowManager() *HeadlessWindowManager {
	return &HeadlessWindowManager{views: make(map[*View]LayoutParams)}
}

func (m *HeadlessWindowManager) AddView(v *View, p LayoutParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.views[v]; ok {
		return errors.New("view already attached")
	}
	m.views[v] = p
	log.Printf("overlay: headless view %q at (%d,%d)", v.Label, p.X, p.Y)
	return nil
}

func (m *HeadlessWindowManager) UpdateViewLayout(v *View, p LayoutParams) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.views[v]; !ok {
		return ErrViewNotAttached
	}
	m.views[v] = p
	return nil
}

func (m *HeadlessWindowManager) RemoveView(v *View) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.views[v]; !ok {
		return ErrViewNotAttached
	}
	delete(m.views, v)
	return nil
}

// Params returns the layout of v and whether it is attached.
func (m *HeadlessWindowManager) Params(v *View) (LayoutParams, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.views[v]
	return p, ok
}

func (m *HeadlessWindowManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.views)
}
