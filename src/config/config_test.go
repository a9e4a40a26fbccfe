package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Setenv(TokenPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv("AUTH_TOKEN", "test_token")
	t.Setenv("API_BASE_URL", "https://calendar.example/api/")
	t.Setenv("ENABLE_FILE_LOGGING", "true")
	t.Setenv("HOTKEY", "Ctrl+Shift+T")
	t.Setenv("REMOTE_TIMEOUT_SEC", "7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	if cfg.Token != "test_token" {
		t.Errorf("Expected Token to be 'test_token', got '%s'", cfg.Token)
	}
	if cfg.APIBaseURL != "https://calendar.example/api" {
		t.Errorf("Expected trailing slash trimmed, got '%s'", cfg.APIBaseURL)
	}
	if !cfg.EnableFileLogging {
		t.Errorf("Expected EnableFileLogging to be true, got %v", cfg.EnableFileLogging)
	}
	if cfg.Hotkey != "Ctrl+Shift+T" {
		t.Errorf("Expected Hotkey to be 'Ctrl+Shift+T', got '%s'", cfg.Hotkey)
	}
	if cfg.RemoteTimeout != 7*time.Second {
		t.Errorf("Expected RemoteTimeout 7s, got %v", cfg.RemoteTimeout)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv(TokenPathEnvVar, filepath.Join(t.TempDir(), "missing"))
	t.Setenv("AUTH_TOKEN", "")
	t.Setenv("CAPTURE_DELAY_MS", "-5")
	t.Setenv("OCR_ENGINE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.Token != "" {
		t.Errorf("Expected empty token, got %q", cfg.Token)
	}
	if cfg.CaptureDelay != time.Second {
		t.Errorf("Expected invalid delay to fall back to 1s, got %v", cfg.CaptureDelay)
	}
	if cfg.OCRMaxSide != 1600 {
		t.Errorf("Expected OCRMaxSide 1600, got %d", cfg.OCRMaxSide)
	}
	if cfg.OverlayX != 100 || cfg.OverlayY != 300 {
		t.Errorf("Expected overlay origin (100, 300), got (%d, %d)", cfg.OverlayX, cfg.OverlayY)
	}
	if cfg.OCREngine != EngineAuto {
		t.Errorf("Expected engine %q, got %q", EngineAuto, cfg.OCREngine)
	}
}

func TestTokenFileTakesPrecedence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("  file_token\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("AUTH_TOKEN", "env_token")

	cfg, err := LoadWithOptions(LoadOptions{TokenPathOverride: path})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Token != "file_token" {
		t.Errorf("Expected token from file, got %q", cfg.Token)
	}
	if cfg.TokenPath != path {
		t.Errorf("Expected TokenPath %q, got %q", path, cfg.TokenPath)
	}

	cfg, err = LoadWithOptions(LoadOptions{TokenPathOverride: path, TokenOverride: "flag_token"})
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Token != "flag_token" {
		t.Errorf("Expected flag token override, got %q", cfg.Token)
	}
}

func TestResolveEngine(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"tesseract", EngineTesseract},
		{" Vision ", EngineVision},
		{"llm", EngineVision},
		{"", EngineAuto},
		{"bogus", EngineAuto},
	}
	t.Setenv("OCR_ENGINE", "")
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := resolveEngine(LoadOptions{EngineOverride: tt.in}); got != tt.want {
				t.Errorf("resolveEngine(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestHistoryRetention(t *testing.T) {
	t.Setenv("HISTORY_RETENTION_DAYS", "")
	t.Setenv("HISTORY_PRUNE_CRON", "")
	cfg, _ := Load()
	if cfg.HistoryRetention != 30*24*time.Hour || cfg.HistoryPruneCron != "@daily" {
		t.Errorf("unexpected retention defaults %v %q", cfg.HistoryRetention, cfg.HistoryPruneCron)
	}

	t.Setenv("HISTORY_RETENTION_DAYS", "0")
	t.Setenv("HISTORY_PRUNE_CRON", "0 3 * * *")
	cfg, _ = Load()
	if cfg.HistoryRetention != 0 || cfg.HistoryPruneCron != "0 3 * * *" {
		t.Errorf("unexpected retention %v %q", cfg.HistoryRetention, cfg.HistoryPruneCron)
	}
}

func TestCaptureDisplayAndConfirm(t *testing.T) {
	t.Setenv("CAPTURE_DISPLAY", "")
	t.Setenv("CAPTURE_CONFIRM", "")
	cfg, _ := Load()
	if cfg.CaptureDisplay != 0 || !cfg.CaptureConfirm {
		t.Errorf("unexpected capture defaults display=%d confirm=%v", cfg.CaptureDisplay, cfg.CaptureConfirm)
	}

	t.Setenv("CAPTURE_DISPLAY", "-1")
	t.Setenv("CAPTURE_CONFIRM", "FALSE")
	cfg, _ = Load()
	if cfg.CaptureDisplay != -1 || cfg.CaptureConfirm {
		t.Errorf("unexpected capture settings display=%d confirm=%v", cfg.CaptureDisplay, cfg.CaptureConfirm)
	}
}
