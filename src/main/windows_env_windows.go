//go:build windows

package main

import (
	"log"

	"golang.org/x/sys/windows"
)

const (
	processPerMonitorDPIAware = 2

	smCXScreen        = 0
	smCYScreen        = 1
	smXVirtualScreen  = 76
	smYVirtualScreen  = 77
	smCXVirtualScreen = 78
	smCYVirtualScreen = 79
	smCMonitors       = 80
)

var (
	shcore                     = windows.NewLazySystemDLL("Shcore.dll")
	user32                     = windows.NewLazySystemDLL("user32.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")
	procSetProcessDPIAware     = user32.NewProc("SetProcessDPIAware")
	procGetSystemMetrics       = user32.NewProc("GetSystemMetrics")
)

// enableDPIAwareness keeps capture coordinates in physical pixels.
func enableDPIAwareness() {
	if err := procSetProcessDpiAwareness.Find(); err == nil {
		if ret, _, _ := procSetProcessDpiAwareness.Call(processPerMonitorDPIAware); ret != 0 {
			log.Printf("DPI: SetProcessDpiAwareness failed, code %d", ret)
		}
		return
	}
	if err := procSetProcessDPIAware.Find(); err != nil {
		log.Printf("DPI: no DPI awareness API available")
		return
	}
	if ret, _, _ := procSetProcessDPIAware.Call(); ret == 0 {
		log.Printf("DPI: SetProcessDPIAware failed")
	}
}

func systemMetric(index uintptr) int32 {
	ret, _, _ := procGetSystemMetrics.Call(index)
	return int32(ret)
}

func logMonitorConfiguration() {
	log.Printf("MONITOR: %d monitors, virtual screen x:%d y:%d w:%d h:%d, primary %dx%d",
		systemMetric(smCMonitors),
		systemMetric(smXVirtualScreen), systemMetric(smYVirtualScreen),
		systemMetric(smCXVirtualScreen), systemMetric(smCYVirtualScreen),
		systemMetric(smCXScreen), systemMetric(smCYScreen))
}
