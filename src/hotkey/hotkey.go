// Package hotkey listens for a global key combination.
package hotkey

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	gohook "github.com/robotn/gohook"
)

// DefaultCombo triggers a capture.
const DefaultCombo = "Ctrl+Alt+S"

// Windows virtual-key codes, which gohook reports as Rawcode.
var specialKeys = map[string][]uint16{
	"ctrl":        {162, 163}, // VK_LCONTROL, VK_RCONTROL
	"alt":         {164, 165}, // VK_LMENU, VK_RMENU
	"shift":       {160, 161}, // VK_LSHIFT, VK_RSHIFT
	"cmd":         {91, 92},   // VK_LWIN, VK_RWIN
	"space":       {32},
	"enter":       {13},
	"esc":         {27},
	"tab":         {9},
	"backspace":   {8},
	"insert":      {45},
	"delete":      {46},
	"home":        {36},
	"end":         {35},
	"pageup":      {33},
	"pagedown":    {34},
	"printscreen": {44},
}

var aliases = map[string]string{
	"control": "ctrl",
	"win":     "cmd",
	"super":   "cmd",
	"meta":    "cmd",
	"escape":  "esc",
	"return":  "enter",
	"del":     "delete",
	"ins":     "insert",
	"prtsc":   "printscreen",
}

// parseHotkey splits "Ctrl+Alt+S" into normalized key names.
func parseHotkey(combo string) []string {
	var keys []string
	for _, part := range strings.Split(strings.ToLower(combo), "+") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if a, ok := aliases[part]; ok {
			part = a
		}
		keys = append(keys, part)
	}
	return keys
}

// keyNameToRawcodes maps a key name to its virtual-key codes. Modifiers map
// to both the left and right variants. Unknown names return nil.
func keyNameToRawcodes(name string) []uint16 {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		name = a
	}
	if codes, ok := specialKeys[name]; ok {
		return codes
	}
	if len(name) == 1 {
		c := name[0]
		switch {
		case c >= 'a' && c <= 'z':
			return []uint16{uint16(c-'a') + 65}
		case c >= '0' && c <= '9':
			return []uint16{uint16(c-'0') + 48}
		}
	}
	if strings.HasPrefix(name, "f") {
		if n, err := strconv.Atoi(name[1:]); err == nil && n >= 1 && n <= 24 {
			return []uint16{uint16(111 + n)}
		}
	}
	return nil
}

// Matcher tracks which keys of a combination are held down.
type Matcher struct {
	mu      sync.Mutex
	names   []string
	codes   [][]uint16
	pressed []bool
}

// NewMatcher builds a matcher for combo. Every key must be known.
func NewMatcher(combo string) (*Matcher, error) {
	keys := parseHotkey(combo)
	if len(keys) == 0 {
		return nil, fmt.Errorf("empty hotkey %q", combo)
	}
	m := &Matcher{names: keys, pressed: make([]bool, len(keys))}
	for _, k := range keys {
		codes := keyNameToRawcodes(k)
		if codes == nil {
			return nil, fmt.Errorf("hotkey %q: unknown key %q", combo, k)
		}
		m.codes = append(m.codes, codes)
	}
	return m, nil
}

// Down records a key press and reports whether it completed the combo. The
// held state resets after a match so holding the keys fires once.
func (m *Matcher) Down(rawcode uint16) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.set(rawcode, true)
	for _, p := range m.pressed {
		if !p {
			return false
		}
	}
	clear(m.pressed)
	return true
}

func (m *Matcher) Up(rawcode uint16) {
	m.mu.Lock()
	m.set(rawcode, false)
	m.mu.Unlock()
}

func (m *Matcher) set(rawcode uint16, v bool) {
	for i, codes := range m.codes {
		for _, c := range codes {
			if c == rawcode {
				m.pressed[i] = v
			}
		}
	}
}

// Listen calls fn each time combo is pressed until ctx is cancelled. It
// returns once the listener is installed.
func Listen(ctx context.Context, combo string, fn func()) error {
	m, err := NewMatcher(combo)
	if err != nil {
		return err
	}
	evChan := gohook.Start()
	if evChan == nil {
		return fmt.Errorf("hotkey: global hook unavailable")
	}
	log.Printf("hotkey: listening for %s", combo)

	go func() {
		<-ctx.Done()
		gohook.End()
	}()
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("hotkey: listener panic: %v", r)
			}
		}()
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				if m.Down(ev.Rawcode) {
					log.Printf("hotkey: %s pressed", combo)
					fn()
				}
			case gohook.KeyUp:
				m.Up(ev.Rawcode)
			}
		}
	}()
	return nil
}
