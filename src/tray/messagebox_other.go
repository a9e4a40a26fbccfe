//go:build !windows

package tray

import "screen-schedule/src/notification"

func showAbout(title, message string) {
	notification.Toast(title + ": " + message)
}
