// Package extract turns a captured image into persisted schedules:
// recognize, parse remotely, then save each candidate.
package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"runtime/debug"
	"strings"

	"screen-schedule/src/logutil"
	"screen-schedule/src/schedule"
)

// MessageRecognizing is posted before recognition starts.
const MessageRecognizing = "Recognizing..."

type Recognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
}

type Backend interface {
	ParseText(ctx context.Context, token, text string) (schedule.ParseResult, error)
	CreateSchedule(ctx context.Context, token string, c schedule.Candidate) (int, error)
}

// Dispatcher runs fn on the UI-affinity goroutine. Post reports false when
// the dispatcher no longer accepts work.
type Dispatcher interface {
	Post(fn func()) bool
}

type Notifier interface {
	Notify(msg string)
}

type NotifierFunc func(msg string)

func (f NotifierFunc) Notify(msg string) { f(msg) }

type Orchestrator struct {
	Recognizer Recognizer
	Backend    Backend
	Dispatcher Dispatcher
	Notifier   Notifier
}

// Notify hands msg to the notifier on the dispatcher's goroutine, or
// directly when no dispatcher is set.
func (o *Orchestrator) Notify(msg string) {
	if o.Notifier == nil {
		return
	}
	if o.Dispatcher == nil {
		o.Notifier.Notify(msg)
		return
	}
	n := o.Notifier
	if !o.Dispatcher.Post(func() { n.Notify(msg) }) {
		log.Printf("extract: dropped notification %q", msg)
	}
}

// Run executes one extraction. It never panics and never retries; every
// failure ends the run with a terminal Outcome.
func (o *Orchestrator) Run(ctx context.Context, img image.Image, token string) (out Outcome) {
	stage := StageIdle
	fail := func(err error) Outcome {
		log.Printf("extract: failed at %s: %v", stage, err)
		return Outcome{Stage: StageFailed, FailedAt: stage, Status: StatusFailed, Err: err, Text: out.Text, Items: out.Items, Total: out.Total}
	}
	defer func() {
		if r := recover(); r != nil {
			log.Printf("extract: panic at %s: %v\n%s", stage, r, debug.Stack())
			out = fail(fmt.Errorf("%w: %v", ErrUnexpected, r))
		}
	}()

	stage = StageAuthenticating
	if strings.TrimSpace(token) == "" {
		return fail(ErrAuthMissing)
	}

	stage = StageRecognizing
	o.Notify(MessageRecognizing)
	text, err := o.Recognizer.Recognize(ctx, img)
	if err != nil {
		return fail(fmt.Errorf("%w: %v", ErrUnexpected, err))
	}
	if strings.TrimSpace(text) == "" {
		log.Printf("extract: no text recognized")
		return Outcome{Stage: StageDone, Status: StatusNoText}
	}
	out.Text = text
	log.Printf("extract: recognized %d chars: %s", len(text), logutil.SanitizeForLog(text))

	stage = StageParsing
	res, err := o.Backend.ParseText(ctx, token, text)
	if err != nil {
		return fail(classify(err))
	}
	if !res.OK() {
		return fail(&ParseFailure{Code: res.Code, Message: res.Message})
	}
	log.Printf("extract: backend returned %d candidates", len(res.Data))

	stage = StagePersisting
	out.Total = len(res.Data)
	items, err := o.persist(ctx, token, res.Data)
	out.Items = items
	if err != nil {
		return fail(err)
	}

	out.Stage, out.Status = StageDone, StatusSaved
	for _, it := range items {
		if it.OK() {
			out.Saved++
		}
	}
	log.Printf("extract: saved %d/%d", out.Saved, out.Total)
	return out
}

// persist saves candidates one at a time on a nested goroutine and waits
// for the aggregate. A failed item does not stop the others.
func (o *Orchestrator) persist(ctx context.Context, token string, cands []schedule.Candidate) ([]ItemResult, error) {
	type result struct {
		items []ItemResult
		err   error
	}
	done := make(chan result, 1)
	go func() {
		var items []ItemResult
		defer func() {
			if r := recover(); r != nil {
				log.Printf("extract: panic during persistence: %v\n%s", r, debug.Stack())
				done <- result{items: items, err: fmt.Errorf("%w: %v", ErrUnexpected, r)}
			}
		}()
		items = make([]ItemResult, 0, len(cands))
		for i, c := range cands {
			c.IsAIGenerated = true
			c.IsViewed = false
			code, err := o.Backend.CreateSchedule(ctx, token, c)
			if err != nil {
				log.Printf("extract: item %d (%s) failed: %v", i, logutil.SanitizeForLog(c.Title), err)
			} else if code != schedule.CodeOK {
				log.Printf("extract: item %d (%s) rejected with code %d", i, logutil.SanitizeForLog(c.Title), code)
			}
			items = append(items, ItemResult{Index: i, Title: c.Title, Code: code, Err: err})
		}
		done <- result{items: items}
	}()
	r := <-done
	return r.items, r.err
}

func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, schedule.ErrRemoteTimeout) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrUnexpected, err)
}
