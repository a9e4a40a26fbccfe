package main

import (
	"context"
	"errors"
	"testing"
)

func TestNormalizeLegacyArgs(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		out  []string
	}{
		{
			name: "Normalizes long single dash flags",
			in:   []string{"screen-schedule", "-capture", "-token-file", "/tmp/tok"},
			out:  []string{"screen-schedule", "--capture", "--token-file", "/tmp/tok"},
		},
		{
			name: "Normalizes equals form",
			in:   []string{"screen-schedule", "-capture=true", "-token=abc"},
			out:  []string{"screen-schedule", "--capture=true", "--token=abc"},
		},
		{
			name: "Leaves other flags unchanged",
			in:   []string{"screen-schedule", "--capture", "-tokenx", "--other"},
			out:  []string{"screen-schedule", "--capture", "-tokenx", "--other"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := normalizeLegacyArgs(tt.in)
			if len(got) != len(tt.out) {
				t.Fatalf("Expected len=%d, got %d", len(tt.out), len(got))
			}
			for i := range got {
				if got[i] != tt.out[i] {
					t.Fatalf("Expected arg[%d]=%q, got %q", i, tt.out[i], got[i])
				}
			}
		})
	}
}

func TestNewRootCmdParsesFlags(t *testing.T) {
	opts := &mainOptions{}
	cmd := newRootCmd(opts)
	if err := cmd.ParseFlags([]string{"--capture", "--token", "abc", "--token-file", "/tmp/tok", "--engine", "vision"}); err != nil {
		t.Fatalf("ParseFlags failed: %v", err)
	}
	if !opts.capture {
		t.Fatal("Expected capture=true")
	}
	lo := opts.loadOptions()
	if lo.TokenOverride != "abc" || lo.TokenPathOverride != "/tmp/tok" || lo.EngineOverride != "vision" {
		t.Fatalf("unexpected load options %+v", lo)
	}
}

type fakeClient struct {
	delegated bool
	err       error
	called    bool
	token     string
}

func (f *fakeClient) TryCapture(ctx context.Context, token string) (bool, string, error) {
	f.called = true
	f.token = token
	return f.delegated, "Saved 1 schedule", f.err
}

func TestHandleCaptureWithDelegation(t *testing.T) {
	tests := []struct {
		name         string
		client       *fakeClient
		wantFallback bool
	}{
		{"delegated", &fakeClient{delegated: true}, false},
		{"no resident", &fakeClient{}, true},
		{"delegation error", &fakeClient{err: errors.New("busy")}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fallbackCalled := false
			handleCaptureWithDelegation("tok", tt.client, func() { fallbackCalled = true })

			if !tt.client.called || tt.client.token != "tok" {
				t.Fatalf("Expected TryCapture with token, got called=%v token=%q", tt.client.called, tt.client.token)
			}
			if fallbackCalled != tt.wantFallback {
				t.Fatalf("fallback called = %v, want %v", fallbackCalled, tt.wantFallback)
			}
		})
	}
}
