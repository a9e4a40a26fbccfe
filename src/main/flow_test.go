package main

import (
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"screen-schedule/src/capture"
	"screen-schedule/src/config"
	"screen-schedule/src/extract"
	"screen-schedule/src/runtimeinit"
)

type noteExtractor struct {
	runs  int
	notes []string
}

func (e *noteExtractor) Run(ctx context.Context, img image.Image, token string) extract.Outcome {
	e.runs++
	return extract.Outcome{Stage: extract.StageDone, Status: extract.StatusNoText}
}

func (e *noteExtractor) Notify(msg string) { e.notes = append(e.notes, msg) }

func TestDeniedConsentReportsPermissionDenied(t *testing.T) {
	deps := &runtimeinit.Deps{Config: &config.Config{
		FlowDeadline:   time.Second,
		CaptureDelay:   time.Millisecond,
		CaptureMaxWait: time.Millisecond,
		PollInterval:   time.Millisecond,
		CaptureConfirm: true,
	}}
	asks := 0
	deny := func(context.Context) (bool, error) {
		asks++
		return false, nil
	}
	ex := &noteExtractor{}
	run := newRunner(deps, newCaptureManager(deps, deny), ex)

	for i := 0; i < 2; i++ {
		res, err := run(context.Background(), "tok")
		if !errors.Is(err, capture.ErrConsentDenied) {
			t.Fatalf("run %d: expected ErrConsentDenied, got %v", i, err)
		}
		if res.Message != "Permission denied" {
			t.Fatalf("run %d: expected %q, got %q", i, "Permission denied", res.Message)
		}
	}
	if asks != 2 {
		t.Errorf("Expected a denial to be asked again, got %d asks", asks)
	}
	if ex.runs != 0 {
		t.Errorf("Expected no extraction, got %d runs", ex.runs)
	}
	if len(ex.notes) != 2 || ex.notes[0] != "Permission denied" {
		t.Errorf("unexpected notifications %v", ex.notes)
	}
}
