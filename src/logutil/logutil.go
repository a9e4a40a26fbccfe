package logutil

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

const (
	logFileName = "screen_schedule_debug.log"
	maxLogText  = 100
)

// Rotator is an append-only log file that shifts itself to Path.1 once a
// write would take it past MaxBytes. Path.1 is the newest archive; the
// oldest beyond Archives is discarded.
type Rotator struct {
	Path     string
	MaxBytes int64
	Archives int

	mu sync.Mutex
	f  *os.File
}

func NewRotator(path string) *Rotator {
	return &Rotator{Path: path, MaxBytes: 10 << 20, Archives: 3}
}

func (r *Rotator) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.f != nil {
		if st, err := r.f.Stat(); err == nil && st.Size()+int64(len(p)) > r.MaxBytes {
			_ = r.f.Close()
			r.f = nil
			r.shift()
		}
	}
	if r.f == nil {
		f, err := os.OpenFile(r.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o666)
		if err != nil {
			return 0, err
		}
		r.f = f
	}
	return r.f.Write(p)
}

func (r *Rotator) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}

func (r *Rotator) archive(n int) string { return fmt.Sprintf("%s.%d", r.Path, n) }

func (r *Rotator) shift() {
	_ = os.Remove(r.archive(r.Archives))
	for i := r.Archives - 1; i >= 1; i-- {
		_ = os.Rename(r.archive(i), r.archive(i+1))
	}
	_ = os.Rename(r.Path, r.archive(1))
}

// Setup sends the standard logger to a rotating file next to the working
// directory, or discards it when file logging is off.
func Setup(enableFileLogging bool) {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	if !enableFileLogging {
		log.SetOutput(io.Discard)
		return
	}
	r := NewRotator(logFileName)
	if st, err := os.Stat(r.Path); err == nil && st.Size() > r.MaxBytes {
		r.shift()
	}
	log.SetOutput(r)
}

// RedactKey masks a secret, leaving first/last 4 chars: xxxx...yyyy
func RedactKey(k string) string {
	if len(k) <= 8 {
		return "********"
	}
	return fmt.Sprintf("%s...%s", k[:4], k[len(k)-4:])
}

// SanitizeForLog truncates recognized text and escapes control characters
// so OCR output cannot forge log lines.
func SanitizeForLog(text string) string {
	if len(text) > maxLogText {
		text = text[:maxLogText] + "..."
	}

	var b strings.Builder
	for _, r := range text {
		switch {
		case r == '\n' || r == '\r':
			b.WriteString("\\n")
		case r == '\t':
			b.WriteString("\\t")
		case r < 32 || r == 127:
			b.WriteByte('?')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
