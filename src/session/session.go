// Package session runs one capture flow: capture the screen, extract
// schedules from it, tell the user, and journal the result.
package session

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"strings"
	"time"

	"screen-schedule/src/capture"
	"screen-schedule/src/extract"
	"screen-schedule/src/history"
)

const (
	MessagePermissionDenied = "Permission denied"
	MessageCaptureFailed    = "Capture failed"

	// StageCapture names the capture step in journal entries.
	StageCapture = "capture"
)

type CaptureFunc func(ctx context.Context) (*image.RGBA, error)

// Extractor is the orchestrator as seen by the flow.
type Extractor interface {
	Run(ctx context.Context, img image.Image, token string) extract.Outcome
	Notify(msg string)
}

type Recorder interface {
	Record(ctx context.Context, e history.Entry) (string, error)
}

type Options struct {
	Token    string
	Deadline time.Duration
	Capture  CaptureFunc
	Extract  Extractor
	// History is optional.
	History Recorder
}

// Result describes a finished flow. CaptureErr is set when the flow ended
// before extraction.
type Result struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Message    string
	Outcome    extract.Outcome
	CaptureErr error
}

// FlowError is a failed flow. Its text is the message shown to the user.
type FlowError struct {
	Message string
	Err     error
}

func (e *FlowError) Error() string { return e.Message }
func (e *FlowError) Unwrap() error { return e.Err }

// Execute runs one flow. The returned error is nil for saved and no-text
// outcomes and a *FlowError otherwise; Result is always filled.
func Execute(ctx context.Context, opts Options) (Result, error) {
	if opts.Capture == nil {
		return Result{}, errors.New("Capture is required")
	}
	if opts.Extract == nil {
		return Result{}, errors.New("Extract is required")
	}

	res := Result{StartedAt: time.Now()}
	deadline := opts.Deadline
	if deadline <= 0 {
		deadline = 20 * time.Second
	}
	flowCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	var err error
	switch {
	case strings.TrimSpace(opts.Token) == "":
		// Fail closed before touching the screen.
		res.Outcome = extract.Outcome{
			Stage:    extract.StageFailed,
			FailedAt: extract.StageAuthenticating,
			Status:   extract.StatusFailed,
			Err:      extract.ErrAuthMissing,
		}
		res.Message = res.Outcome.Message()
		err = &FlowError{Message: res.Message, Err: extract.ErrAuthMissing}

	default:
		img, cerr := opts.Capture(flowCtx)
		if cerr != nil {
			res.CaptureErr = cerr
			res.Message = captureMessage(cerr)
			log.Printf("session: capture failed: %v", cerr)
			err = &FlowError{Message: res.Message, Err: cerr}
			break
		}
		res.Outcome = opts.Extract.Run(flowCtx, img, opts.Token)
		res.Message = res.Outcome.Message()
		if res.Outcome.Err != nil {
			err = &FlowError{Message: res.Message, Err: res.Outcome.Err}
		}
	}

	res.FinishedAt = time.Now()
	opts.Extract.Notify(res.Message)
	if opts.History != nil {
		res.ID = record(ctx, opts.History, res)
	}
	return res, err
}

func captureMessage(err error) string {
	if errors.Is(err, capture.ErrConsentDenied) {
		return MessagePermissionDenied
	}
	return MessageCaptureFailed
}

// record journals res. It outlives the flow deadline so a timed-out flow
// is still recorded.
func record(ctx context.Context, r Recorder, res Result) string {
	rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	id, err := r.Record(rctx, Entry(res))
	if err != nil {
		log.Printf("session: history record failed: %v", err)
		return ""
	}
	return id
}

// Entry converts res into a journal entry.
func Entry(res Result) history.Entry {
	o := res.Outcome
	e := history.Entry{
		StartedAt:  res.StartedAt,
		FinishedAt: res.FinishedAt,
		Message:    res.Message,
		Saved:      o.Saved,
		Total:      o.Total,
		TextChars:  len(o.Text),
	}
	switch {
	case res.CaptureErr != nil:
		e.Stage, e.Status = StageCapture, extract.StatusFailed.String()
	case o.Status == extract.StatusFailed:
		e.Stage, e.Status = o.FailedAt.String(), o.Status.String()
	default:
		e.Stage, e.Status = o.Stage.String(), o.Status.String()
	}
	for _, it := range o.Items {
		hi := history.Item{Index: it.Index, Title: it.Title, Code: it.Code}
		if it.Err != nil {
			hi.Error = it.Err.Error()
		} else if !it.OK() {
			hi.Error = fmt.Sprintf("code %d", it.Code)
		}
		e.Items = append(e.Items, hi)
	}
	return e
}
