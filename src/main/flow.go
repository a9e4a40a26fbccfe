package main

import (
	"context"

	"screen-schedule/src/capture"
	"screen-schedule/src/eventloop"
	"screen-schedule/src/extract"
	"screen-schedule/src/popup"
	"screen-schedule/src/runtimeinit"
	"screen-schedule/src/schedule"
	"screen-schedule/src/screenshot"
	"screen-schedule/src/session"
)

// newOrchestrator wires recognition, the schedule service and popup
// notifications. A nil dispatcher notifies on the calling goroutine.
func newOrchestrator(deps *runtimeinit.Deps, d extract.Dispatcher) *extract.Orchestrator {
	cfg := deps.Config
	return &extract.Orchestrator{
		Recognizer: deps.OCR,
		Backend:    schedule.NewClient(cfg.APIBaseURL, cfg.RemoteTimeout, nil),
		Dispatcher: d,
		Notifier:   popup.Notifier{},
	}
}

// newCaptureManager asks through ask before the first capture when
// CAPTURE_CONFIRM is on and remembers a yes for the process lifetime.
func newCaptureManager(deps *runtimeinit.Deps, ask screenshot.ConfirmFunc) *capture.Manager {
	cfg := deps.Config
	prompter := screenshot.Prompter{Display: cfg.CaptureDisplay}
	if cfg.CaptureConfirm && ask != nil {
		prompter.Confirm = (&screenshot.Grant{Ask: ask}).Confirm
	}
	return capture.NewManager(prompter, screenshot.Metrics{Display: cfg.CaptureDisplay}, capture.Options{
		InitialDelay: cfg.CaptureDelay,
		PollInterval: cfg.PollInterval,
		MaxWait:      cfg.CaptureMaxWait,
	})
}

// newRunner returns the flow body shared by the resident and standalone
// modes.
func newRunner(deps *runtimeinit.Deps, mgr *capture.Manager, ex session.Extractor) eventloop.Runner {
	var rec session.Recorder
	if deps.History != nil {
		rec = deps.History
	}
	deadline := deps.Config.FlowDeadline
	return func(ctx context.Context, token string) (session.Result, error) {
		return session.Execute(ctx, session.Options{
			Token:    token,
			Deadline: deadline,
			Capture:  mgr.Capture,
			Extract:  ex,
			History:  rec,
		})
	}
}
