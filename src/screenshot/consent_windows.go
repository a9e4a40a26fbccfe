//go:build windows

package screenshot

import (
	"context"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	mbYesNo         = 0x00000004
	mbIconQuestion  = 0x00000020
	mbSetForeground = 0x00010000
	mbTopmost       = 0x00040000
	idYes           = 6
)

var (
	user32          = windows.NewLazySystemDLL("user32.dll")
	procMessageBoxW = user32.NewProc("MessageBoxW")
)

// AskConsent shows a yes/no box asking to read the screen.
func AskConsent(ctx context.Context) (bool, error) {
	title, _ := windows.UTF16PtrFromString("Screen Schedule")
	text, _ := windows.UTF16PtrFromString("Allow Screen Schedule to read your screen to find schedules?")

	answer := make(chan bool, 1)
	go func() {
		ret, _, _ := procMessageBoxW.Call(0,
			uintptr(unsafe.Pointer(text)),
			uintptr(unsafe.Pointer(title)),
			uintptr(mbYesNo|mbIconQuestion|mbSetForeground|mbTopmost),
		)
		answer <- ret == idYes
	}()

	select {
	case ok := <-answer:
		return ok, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
