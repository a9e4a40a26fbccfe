package extract

import (
	"context"
	"errors"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"screen-schedule/src/schedule"
)

type fakeRecognizer struct {
	text  string
	err   error
	panic bool
	calls int
}

func (r *fakeRecognizer) Recognize(ctx context.Context, img image.Image) (string, error) {
	r.calls++
	if r.panic {
		panic("engine crashed")
	}
	return r.text, r.err
}

type fakeBackend struct {
	mu        sync.Mutex
	parse     schedule.ParseResult
	parseErr  error
	codes     map[string]int
	createErr map[string]error
	parses    int
	created   []schedule.Candidate
}

func (b *fakeBackend) ParseText(ctx context.Context, token, text string) (schedule.ParseResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.parses++
	return b.parse, b.parseErr
}

func (b *fakeBackend) CreateSchedule(ctx context.Context, token string, c schedule.Candidate) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, c)
	if err := b.createErr[c.Title]; err != nil {
		return 0, err
	}
	if code, ok := b.codes[c.Title]; ok {
		return code, nil
	}
	return schedule.CodeOK, nil
}

func (b *fakeBackend) calls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.parses + len(b.created)
}

type recordingNotifier struct {
	msgs []string
}

func (n *recordingNotifier) Notify(msg string) { n.msgs = append(n.msgs, msg) }

type inlineDispatcher struct{ posted int }

func (d *inlineDispatcher) Post(fn func()) bool {
	d.posted++
	fn()
	return true
}

func candidates(titles ...string) []schedule.Candidate {
	out := make([]schedule.Candidate, len(titles))
	for i, t := range titles {
		out[i] = schedule.Candidate{Title: t, Date: "2026-10-16", IsViewed: true}
	}
	return out
}

func blank() image.Image { return image.NewRGBA(image.Rect(0, 0, 4, 4)) }

func TestTokenGating(t *testing.T) {
	for _, token := range []string{"", "   "} {
		rec := &fakeRecognizer{text: "Lunch"}
		be := &fakeBackend{}
		o := &Orchestrator{Recognizer: rec, Backend: be}

		out := o.Run(context.Background(), blank(), token)
		assert.ErrorIs(t, out.Err, ErrAuthMissing)
		assert.Equal(t, StatusFailed, out.Status)
		assert.Equal(t, StageAuthenticating, out.FailedAt)
		assert.Zero(t, rec.calls)
		assert.Zero(t, be.calls(), "no network call without a token")
		assert.Equal(t, "Session expired, please sign in again", out.Message())
	}
}

func TestEmptyRecognitionIsNotAnError(t *testing.T) {
	for _, text := range []string{"", " \n\t"} {
		be := &fakeBackend{}
		n := &recordingNotifier{}
		o := &Orchestrator{Recognizer: &fakeRecognizer{text: text}, Backend: be, Notifier: n}

		out := o.Run(context.Background(), blank(), "tok")
		assert.NoError(t, out.Err)
		assert.Equal(t, StatusNoText, out.Status)
		assert.Equal(t, StageDone, out.Stage)
		assert.Zero(t, be.calls())
		assert.Equal(t, "No text found", out.Message())
		assert.Equal(t, []string{MessageRecognizing}, n.msgs)
	}
}

func TestAggregateCounting(t *testing.T) {
	be := &fakeBackend{
		parse:     schedule.ParseResult{Code: 200, Data: candidates("a", "b", "c", "d", "e")},
		codes:     map[string]int{"b": 500, "d": 409},
		createErr: map[string]error{"e": errors.New("connection reset")},
	}
	o := &Orchestrator{Recognizer: &fakeRecognizer{text: "five things"}, Backend: be}

	out := o.Run(context.Background(), blank(), "tok")
	require.NoError(t, out.Err)
	assert.Equal(t, StatusSaved, out.Status)
	assert.Equal(t, 2, out.Saved)
	assert.Equal(t, 5, out.Total)
	assert.Equal(t, "Saved 2 schedules", out.Message())
	assert.Equal(t, "five things", out.Text)

	require.Len(t, out.Items, 5)
	var failed []string
	for i, it := range out.Items {
		assert.Equal(t, i, it.Index)
		if !it.OK() {
			failed = append(failed, it.Title)
		}
	}
	assert.Equal(t, []string{"b", "d", "e"}, failed)

	// attempted in order, each flagged as generated and unviewed
	require.Len(t, be.created, 5)
	for i, c := range be.created {
		assert.Equal(t, string(rune('a'+i)), c.Title)
		assert.True(t, c.IsAIGenerated)
		assert.False(t, c.IsViewed)
	}
}

func TestEmptyCandidateListSavesNothing(t *testing.T) {
	be := &fakeBackend{parse: schedule.ParseResult{Code: 200, Data: []schedule.Candidate{}}}
	o := &Orchestrator{Recognizer: &fakeRecognizer{text: "hello"}, Backend: be}
	out := o.Run(context.Background(), blank(), "tok")
	assert.Equal(t, StatusSaved, out.Status)
	assert.Zero(t, out.Saved)
	assert.Equal(t, "Saved 0 schedules", out.Message())
}

func TestRemoteParseFailure(t *testing.T) {
	tests := []struct {
		name  string
		parse schedule.ParseResult
		want  string
	}{
		{"server code", schedule.ParseResult{Code: 500, Message: "model overloaded"}, "model overloaded"},
		{"null data", schedule.ParseResult{Code: 200, Message: "ok"}, "Could not read schedules (code 200)"},
		{"no message", schedule.ParseResult{Code: 403}, "Could not read schedules (code 403)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := &fakeBackend{parse: tt.parse}
			o := &Orchestrator{Recognizer: &fakeRecognizer{text: "x"}, Backend: be}
			out := o.Run(context.Background(), blank(), "tok")
			assert.ErrorIs(t, out.Err, ErrRemoteParse)
			assert.Equal(t, StageParsing, out.FailedAt)
			assert.Empty(t, be.created)
			assert.Equal(t, tt.want, out.Message())
		})
	}
}

func TestRemoteTimeoutIsTerminal(t *testing.T) {
	be := &fakeBackend{parseErr: schedule.ErrRemoteTimeout}
	o := &Orchestrator{Recognizer: &fakeRecognizer{text: "x"}, Backend: be}
	out := o.Run(context.Background(), blank(), "tok")
	assert.ErrorIs(t, out.Err, schedule.ErrRemoteTimeout)
	assert.Equal(t, 1, be.parses, "no retry")
	assert.Equal(t, "Server did not respond in time", out.Message())
}

func TestUnexpectedFailures(t *testing.T) {
	tests := []struct {
		name string
		rec  *fakeRecognizer
		be   *fakeBackend
	}{
		{"recognizer panic", &fakeRecognizer{panic: true}, &fakeBackend{}},
		{"recognizer error", &fakeRecognizer{err: errors.New("not initialized")}, &fakeBackend{}},
		{"transport error", &fakeRecognizer{text: "x"}, &fakeBackend{parseErr: errors.New("dial tcp: refused")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := &Orchestrator{Recognizer: tt.rec, Backend: tt.be}
			out := o.Run(context.Background(), blank(), "tok")
			assert.ErrorIs(t, out.Err, ErrUnexpected)
			assert.Equal(t, StatusFailed, out.Status)
			assert.Contains(t, out.Message(), "Something went wrong: ")
		})
	}
}

func TestNotifyGoesThroughDispatcher(t *testing.T) {
	n := &recordingNotifier{}
	d := &inlineDispatcher{}
	o := &Orchestrator{Recognizer: &fakeRecognizer{}, Backend: &fakeBackend{}, Dispatcher: d, Notifier: n}
	o.Run(context.Background(), blank(), "tok")
	assert.Equal(t, 1, d.posted)
	assert.Equal(t, []string{MessageRecognizing}, n.msgs)
}

func TestStageStrings(t *testing.T) {
	assert.Equal(t, "persisting", StagePersisting.String())
	assert.Equal(t, "no_text", StatusNoText.String())
}
