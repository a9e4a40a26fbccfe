//go:build windows

package notification

import (
	"log"
	"runtime"
	"sync"
	"syscall"
	"unsafe"

	"github.com/lxn/win"
	"golang.org/x/sys/windows"
)

const (
	mbOK          = 0x00000000
	mbIconError   = 0x00000010
	mbSystemModal = 0x00001000

	wsExNoActivate = 0x08000000
	wsExToolWindow = 0x00000080

	toastWidth     = 420
	toastHeight    = 44
	toastMargin    = 24
	toastTimerID   = 1
	toastVisibleMs = 3000
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")

	toastQueue chan string
	toastOnce  sync.Once
	toastClass = syscall.StringToUTF16Ptr("ScreenScheduleToast")

	// Only the toast thread reads this.
	toastText string
)

// ShowBlockingError displays a modal error dialog and returns after the
// user dismisses it.
func ShowBlockingError(title, message string) {
	titlePtr, _ := windows.UTF16PtrFromString(title)
	msgPtr, _ := windows.UTF16PtrFromString(message)
	procMessageBoxW.Call(0, uintptr(unsafe.Pointer(msgPtr)), uintptr(unsafe.Pointer(titlePtr)), mbOK|mbIconError|mbSystemModal)
}

func showToast(text string) {
	toastOnce.Do(func() {
		toastQueue = make(chan string, 8)
		go toastThread()
	})
	select {
	case toastQueue <- text:
	default:
		log.Printf("notification: toast queue full, dropping %q", text)
	}
}

// toastThread shows queued toasts one after another on a single locked
// OS thread.
func toastThread() {
	runtime.LockOSThread()
	wc := win.WNDCLASSEX{
		CbSize:        uint32(unsafe.Sizeof(win.WNDCLASSEX{})),
		LpfnWndProc:   syscall.NewCallback(toastWndProc),
		HInstance:     win.GetModuleHandle(nil),
		HbrBackground: win.HBRUSH(win.GetStockObject(win.BLACK_BRUSH)),
		LpszClassName: toastClass,
	}
	if win.RegisterClassEx(&wc) == 0 {
		log.Printf("notification: failed to register toast class")
		for text := range toastQueue {
			log.Printf("notification: %s", text)
		}
		return
	}

	for text := range toastQueue {
		toastText = text
		sw := win.GetSystemMetrics(win.SM_CXSCREEN)
		sh := win.GetSystemMetrics(win.SM_CYSCREEN)
		hwnd := win.CreateWindowEx(
			win.WS_EX_TOPMOST|wsExNoActivate|wsExToolWindow,
			toastClass, toastClass,
			win.WS_POPUP|win.WS_VISIBLE,
			(sw-toastWidth)/2, sh-toastHeight-toastMargin*3, toastWidth, toastHeight,
			0, 0, win.GetModuleHandle(nil), nil,
		)
		if hwnd == 0 {
			log.Printf("notification: failed to create toast window")
			continue
		}
		win.SetTimer(hwnd, toastTimerID, toastVisibleMs, 0)
		win.UpdateWindow(hwnd)

		var msg win.MSG
		for win.GetMessage(&msg, 0, 0, 0) > 0 {
			win.TranslateMessage(&msg)
			win.DispatchMessage(&msg)
		}
	}
}

func toastWndProc(hwnd win.HWND, msg uint32, wParam, lParam uintptr) uintptr {
	switch msg {
	case win.WM_PAINT:
		var ps win.PAINTSTRUCT
		hdc := win.BeginPaint(hwnd, &ps)
		win.SetBkMode(hdc, win.TRANSPARENT)
		win.SetTextColor(hdc, win.COLORREF(0xFFFFFF))
		buf := syscall.StringToUTF16(toastText)
		win.TextOut(hdc, 14, 14, &buf[0], int32(len(buf)-1))
		win.EndPaint(hwnd, &ps)
		return 0
	case win.WM_TIMER:
		win.KillTimer(hwnd, toastTimerID)
		win.DestroyWindow(hwnd)
		return 0
	case win.WM_DESTROY:
		win.PostQuitMessage(0)
		return 0
	}
	return win.DefWindowProc(hwnd, msg, wParam, lParam)
}
