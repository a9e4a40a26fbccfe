package logutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRedactKey(t *testing.T) {
	if got := RedactKey("short"); got != "********" {
		t.Errorf("expected full mask for short keys, got %q", got)
	}
	if got := RedactKey("abcd1234efgh5678"); got != "abcd...5678" {
		t.Errorf("unexpected redaction %q", got)
	}
}

func TestSanitizeForLog(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Team sync 10:00", "Team sync 10:00"},
		{"newlines", "a\nb\r\nc", "a\\nb\\n\\nc"},
		{"tab", "a\tb", "a\\tb"},
		{"control", "a\x07b", "a?b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeForLog(tt.in); got != tt.want {
				t.Errorf("SanitizeForLog(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}

	long := make([]byte, 150)
	for i := range long {
		long[i] = 'x'
	}
	if got := SanitizeForLog(string(long)); len(got) != maxLogText+3 {
		t.Errorf("expected truncation to %d chars, got %d", maxLogText+3, len(got))
	}
}

func TestRotatorShiftsArchives(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	r := NewRotator(path)
	r.MaxBytes = 10
	r.Archives = 2
	defer r.Close()

	for _, line := range []string{"first-123\n", "second-12\n", "third-123\n", "fourth-12\n"} {
		if _, err := r.Write([]byte(line)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	want := map[string]string{
		path:        "fourth-12\n",
		path + ".1": "third-123\n",
		path + ".2": "second-12\n",
	}
	for p, content := range want {
		b, err := os.ReadFile(p)
		if err != nil || string(b) != content {
			t.Errorf("%s = %q, %v; want %q", filepath.Base(p), b, err, content)
		}
	}
	if _, err := os.Stat(path + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected no third archive, got %v", err)
	}
}
