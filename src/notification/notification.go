// Package notification shows short status messages and blocking errors.
package notification

import (
	"log"
	"unicode/utf8"
)

// MaxToastRunes bounds the text of a toast.
const MaxToastRunes = 120

// Truncate shortens text to at most n runes, marking the cut with "...".
func Truncate(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	r := []rune(text)
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// Toast shows text briefly without taking focus. It never blocks.
func Toast(text string) {
	text = Truncate(text, MaxToastRunes)
	log.Printf("notification: %s", text)
	showToast(text)
}
