package extract

import (
	"errors"
	"fmt"

	"screen-schedule/src/schedule"
)

// Stage is a step of one extraction run.
type Stage int

const (
	StageIdle Stage = iota
	StageAuthenticating
	StageRecognizing
	StageParsing
	StagePersisting
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageAuthenticating:
		return "authenticating"
	case StageRecognizing:
		return "recognizing"
	case StageParsing:
		return "parsing"
	case StagePersisting:
		return "persisting"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	}
	return fmt.Sprintf("stage(%d)", int(s))
}

// Status classifies a terminal outcome.
type Status int

const (
	StatusSaved Status = iota
	// StatusNoText is a normal end: the image had nothing to recognize.
	StatusNoText
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusSaved:
		return "saved"
	case StatusNoText:
		return "no_text"
	case StatusFailed:
		return "failed"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

var (
	ErrAuthMissing = errors.New("session expired")
	ErrRemoteParse = errors.New("remote parse failed")
	ErrUnexpected  = errors.New("unexpected failure")
)

// ParseFailure is the backend's rejection of a parse request.
type ParseFailure struct {
	Code    int
	Message string
}

func (e *ParseFailure) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote parse failed (code %d)", e.Code)
	}
	return fmt.Sprintf("remote parse failed (code %d): %s", e.Code, e.Message)
}

func (e *ParseFailure) Is(target error) bool { return target == ErrRemoteParse }

// ItemResult is the persistence result of one candidate.
type ItemResult struct {
	Index int
	Title string
	Code  int
	Err   error
}

func (r ItemResult) OK() bool { return r.Err == nil && r.Code == schedule.CodeOK }

// Outcome is the terminal state of a run. FailedAt is only meaningful when
// Status is StatusFailed.
type Outcome struct {
	Stage    Stage
	FailedAt Stage
	Status   Status
	Err      error
	Text     string
	Items    []ItemResult
	Saved    int
	Total    int
}

// Message renders the line shown to the user for this outcome.
func (o Outcome) Message() string {
	switch o.Status {
	case StatusNoText:
		return "No text found"
	case StatusSaved:
		if o.Saved == 1 {
			return "Saved 1 schedule"
		}
		return fmt.Sprintf("Saved %d schedules", o.Saved)
	}

	var pf *ParseFailure
	switch {
	case errors.Is(o.Err, ErrAuthMissing):
		return "Session expired, please sign in again"
	case errors.As(o.Err, &pf):
		// A 200 without data carries a generic "ok" rather than a reason.
		if pf.Message == "" || pf.Code == schedule.CodeOK {
			return fmt.Sprintf("Could not read schedules (code %d)", pf.Code)
		}
		return pf.Message
	case errors.Is(o.Err, schedule.ErrRemoteTimeout):
		return "Server did not respond in time"
	case o.Err != nil:
		return "Something went wrong: " + o.Err.Error()
	}
	return "Something went wrong"
}
