package session

import (
	"errors"
	"fmt"
	"io"
	"os"

	"screen-schedule/src/clipboard"
	"screen-schedule/src/singleinstance"
)

// ResultTarget receives the result of a flow started by some trigger.
type ResultTarget interface {
	OnSuccess(res Result) error
	OnFailure(res Result, err error) error
}

// ClipboardTarget copies the recognized text when CopyText is set.
type ClipboardTarget struct {
	CopyText bool
}

func (t ClipboardTarget) OnSuccess(res Result) error {
	if !t.CopyText || res.Outcome.Text == "" {
		return nil
	}
	return clipboard.Write(res.Outcome.Text)
}

func (ClipboardTarget) OnFailure(Result, error) error { return nil }

type StdoutTarget struct {
	Writer io.Writer
}

func (t StdoutTarget) writer() io.Writer {
	if t.Writer == nil {
		return os.Stdout
	}
	return t.Writer
}

func (t StdoutTarget) OnSuccess(res Result) error {
	_, err := fmt.Fprintln(t.writer(), res.Message)
	return err
}

func (t StdoutTarget) OnFailure(res Result, err error) error {
	_, werr := fmt.Fprintln(t.writer(), "error: "+err.Error())
	return werr
}

// DelegatedTarget answers a capture request from another process.
type DelegatedTarget struct {
	Conn singleinstance.Conn
}

func (t DelegatedTarget) OnSuccess(res Result) error {
	if t.Conn == nil {
		return errors.New("delegated target missing connection")
	}
	return t.Conn.RespondSuccess(res.Message)
}

func (t DelegatedTarget) OnFailure(res Result, err error) error {
	if t.Conn == nil {
		return nil
	}
	if err == nil {
		return t.Conn.RespondError("unknown session error")
	}
	return t.Conn.RespondError(err.Error())
}
