//go:build !windows

package overlay

// NewWindowManager returns the headless manager; there is no native
// floating window on this platform.
func NewWindowManager() WindowManager { return NewHeadlessWindowManager() }
