//go:build windows

package overlay

import (
	"errors"
	"fmt"
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
)

const (
	wsExToolWindow  = 0x00000080
	wsExNoActivate  = 0x08000000
	swpNoSize       = 0x0001
	swpNoActivate   = 0x0010
	wmMouseActivate = 0x0021
	maNoActivate    = 3
	dragThreshold   = 4
	bubbleColor     = 0x00C07830 // BGR
)

var (
	user32DLL        = syscall.NewLazyDLL("user32.dll")
	procSetWindowPos = user32DLL.NewProc("SetWindowPos")
	procGetCursorPos = user32DLL.NewProc("GetCursorPos")
	gdi32DLL         = syscall.NewLazyDLL("gdi32.dll")
	procSolidBrush   = gdi32DLL.NewProc("CreateSolidBrush")
	procEllipse      = gdi32DLL.NewProc("Ellipse")

	classOnce sync.Once
	classErr  error
	className = syscall.StringToUTF16Ptr("ScreenScheduleOverlay")

	// hwnd -> *bubble, read by the window procedure.
	bubbles sync.Map
)

// bubble is the per-window gesture state. It is only touched on the
// window's own thread.
type bubble struct {
	view           *View
	pressed, moved bool
	lastX, lastY   int32
	startX, startY int32
	hwnd           win.HWND
}

type win32WindowManager struct {
	mu    sync.Mutex
	hwnds map[*View]win.HWND
}

// NewWindowManager returns a manager that shows views as small always-on-top
// tool windows that never take focus.
func NewWindowManager() WindowManager {
	return &win32WindowManager{hwnds: make(map[*View]win.HWND)}
}

func registerClass() error {
	classOnce.Do(func() {
		wc := win.WNDCLASSEX{
			CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
			Style:         win.CS_HREDRAW | win.CS_VREDRAW,
			LpfnWndProc:   syscall.NewCallback(bubbleWndProc),
			HInstance:     win.GetModuleHandle(nil),
			HCursor:       win.LoadCursor(0, win.MAKEINTRESOURCE(win.IDC_HAND)),
			LpszClassName: className,
		}
		if win.RegisterClassEx(&wc) == 0 {
			classErr = errors.New("failed to register overlay window class")
		}
	})
	return classErr
}

func (m *win32WindowManager) AddView(v *View, p LayoutParams) error {
	if err := registerClass(); err != nil {
		return err
	}
	m.mu.Lock()
	if _, ok := m.hwnds[v]; ok {
		m.mu.Unlock()
		return errors.New("view already attached")
	}
	m.mu.Unlock()

	created := make(chan win.HWND, 1)
	go func() {
		// The window belongs to the thread that created it; its message
		// loop must run there.
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		exStyle := uint32(win.WS_EX_TOPMOST)
		if p.HasFlag(FlagNotFocusable) {
			exStyle |= wsExNoActivate | wsExToolWindow
		}
		hwnd := win.CreateWindowEx(
			exStyle,
			className,
			syscall.StringToUTF16Ptr(v.Label),
			win.WS_POPUP|win.WS_VISIBLE,
			int32(p.X), int32(p.Y), int32(p.Width), int32(p.Height),
			0, 0, win.GetModuleHandle(nil), nil,
		)
		created <- hwnd
		if hwnd == 0 {
			return
		}
		b := &bubble{view: v, hwnd: hwnd}
		bubbles.Store(hwnd, b)
		defer bubbles.Delete(hwnd)

		win.ShowWindow(hwnd, win.SW_SHOWNOACTIVATE)
		win.UpdateWindow(hwnd)

		var msg win.MSG
		for {
			ret := win.GetMessage(&msg, 0, 0, 0)
			if ret == 0 || ret == -1 {
				return
			}
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}
	}()

	hwnd := <-created
	if hwnd == 0 {
		return fmt.Errorf("failed to create overlay window")
	}
	m.mu.Lock()
	m.hwnds[v] = hwnd
	m.mu.Unlock()
	log.Printf("overlay: window %v at (%d,%d)", hwnd, p.X, p.Y)
	return nil
}

func (m *win32WindowManager) UpdateViewLayout(v *View, p LayoutParams) error {
	m.mu.Lock()
	hwnd, ok := m.hwnds[v]
	m.mu.Unlock()
	if !ok {
		return ErrViewNotAttached
	}
	// HWND_TOPMOST is (HWND)-1.
	r, _, err := procSetWindowPos.Call(uintptr(hwnd), ^uintptr(0),
		uintptr(int32(p.X)), uintptr(int32(p.Y)), 0, 0, swpNoSize|swpNoActivate)
	if r == 0 {
		return fmt.Errorf("SetWindowPos: %v", err)
	}
	return nil
}

func (m *win32WindowManager) RemoveView(v *View) error {
	m.mu.Lock()
	hwnd, ok := m.hwnds[v]
	delete(m.hwnds, v)
	m.mu.Unlock()
	if !ok {
		return ErrViewNotAttached
	}
	win.PostMessage(hwnd, win.WM_CLOSE, 0, 0)
	return nil
}

func cursorPos() (int32, int32) {
	var pt win.POINT
	procGetCursorPos.Call(uintptr(unsafe.Pointer(&pt)))
	return pt.X, pt.Y
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

func bubbleWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	val, ok := bubbles.Load(hwnd)
	if !ok {
		return win.DefWindowProc(hwnd, msg, wParam, lParam)
	}
	b := val.(*bubble)

	switch msg {
	case wmMouseActivate:
		return maNoActivate

	case win.WM_LBUTTONDOWN:
		win.SetCapture(hwnd)
		b.pressed, b.moved = true, false
		b.lastX, b.lastY = cursorPos()
		b.startX, b.startY = b.lastX, b.lastY
		return 0

	case win.WM_MOUSEMOVE:
		if !b.pressed {
			return 0
		}
		x, y := cursorPos()
		if !b.moved && abs32(x-b.startX) < dragThreshold && abs32(y-b.startY) < dragThreshold {
			return 0
		}
		b.moved = true
		dx, dy := x-b.lastX, y-b.lastY
		b.lastX, b.lastY = x, y
		if dx != 0 || dy != 0 {
			b.view.Listener.Drag(int(dx), int(dy))
		}
		return 0

	case win.WM_LBUTTONUP:
		if !b.pressed {
			return 0
		}
		win.ReleaseCapture()
		b.pressed = false
		if b.moved {
			b.view.Listener.DragEnd()
			return 0
		}
		if err := b.view.Listener.Tap(); err != nil {
			log.Printf("overlay: tap: %v", err)
		}
		return 0

	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		var rc win.RECT
		win.GetClientRect(hwnd, &rc)
		brush, _, _ := procSolidBrush.Call(bubbleColor)
		oldBrush := win.SelectObject(hdc, win.HGDIOBJ(brush))
		procEllipse.Call(uintptr(hdc), 0, 0, uintptr(rc.Right), uintptr(rc.Bottom))
		win.SelectObject(hdc, oldBrush)
		win.DeleteObject(win.HGDIOBJ(brush))

		label := "S"
		win.SetBkMode(hdc, win.TRANSPARENT)
		win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
		win.TextOut(hdc, rc.Right/2-4, rc.Bottom/2-8, syscall.StringToUTF16Ptr(label), int32(len(label)))
		win.EndPaint(hwnd, &ps)
		return 0

	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
