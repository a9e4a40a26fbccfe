package session

import (
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-schedule/src/extract"
	"screen-schedule/src/schedule"
)

type slowRecognizer struct{ delay time.Duration }

func (r slowRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	time.Sleep(r.delay)
	return "Standup 9am", nil
}

func TestFlowDeadlineDuringParseIsRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	// Recognition eats into the flow budget, so the flow deadline fires
	// before the per-call one.
	ex := &extract.Orchestrator{
		Recognizer: slowRecognizer{delay: 150 * time.Millisecond},
		Backend:    schedule.NewClient(srv.URL, 300*time.Millisecond, srv.Client()),
	}
	captures := 0
	res, err := Execute(context.Background(), Options{
		Token:    "tok",
		Deadline: 400 * time.Millisecond,
		Capture:  captureOK(&captures),
		Extract:  ex,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, schedule.ErrRemoteTimeout)
	assert.Equal(t, extract.StageParsing, res.Outcome.FailedAt)
	assert.Equal(t, "Server did not respond in time", res.Message)
}
