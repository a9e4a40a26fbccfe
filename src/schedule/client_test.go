package schedule

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, srv.Client())
}

func TestParseTextSendsTokenAndText(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/parse", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		_, err := uuid.Parse(r.Header.Get("X-Request-ID"))
		assert.NoError(t, err, "request id should be a uuid")

		var req parseRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "Dentist tomorrow 3pm", req.Text)

		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":[
			{"title":"Dentist","date":"2026-10-16","start_time":"15:00","importance":2},
			{"title":"Call mom","date":"2026-10-16","location":null}
		]}`))
	})

	res, err := c.ParseText(context.Background(), "tok", "Dentist tomorrow 3pm")
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, res.Data, 2)
	assert.Equal(t, "Dentist", res.Data[0].Title)
	assert.Equal(t, "15:00", res.Data[0].StartTime)
	assert.Equal(t, 2, res.Data[0].Importance)
	assert.Equal(t, "Call mom", res.Data[1].Title)
}

func TestParseTextNonSuccessIsNotAnError(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"server code", `{"code":500,"message":"model overloaded","data":null}`},
		{"null data", `{"code":200,"message":"nothing parsed","data":null}`},
		{"missing data", `{"code":401,"message":"token expired"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.reply))
			})
			res, err := c.ParseText(context.Background(), "tok", "x")
			require.NoError(t, err)
			assert.False(t, res.OK())
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestParseTextMalformed(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"missing code", `{"message":"ok","data":[]}`},
		{"item not an object", `{"code":200,"data":["Standup 9am"]}`},
		{"wrong type", `{"code":"200","data":[]}`},
		{"not json", `<html>bad gateway</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.reply))
			})
			_, err := c.ParseText(context.Background(), "tok", "x")
			assert.ErrorIs(t, err, ErrMalformedResponse)
		})
	}
}

func TestRemoteTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c := NewClient(srv.URL, 20*time.Millisecond, srv.Client())

	_, err := c.ParseText(context.Background(), "tok", "x")
	assert.ErrorIs(t, err, ErrRemoteTimeout)

	_, err = c.CreateSchedule(context.Background(), "tok", Candidate{Title: "x"})
	assert.ErrorIs(t, err, ErrRemoteTimeout)
}

func TestParseTextKeepsItemWithoutTitle(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"code":200,"message":"ok","data":[{"title":"Standup","date":"2026-10-17"},{"date":"2026-10-17","location":"Room 4"}]}`))
	})
	res, err := c.ParseText(context.Background(), "tok", "x")
	require.NoError(t, err)
	assert.True(t, res.OK())
	require.Len(t, res.Data, 2)
	assert.Empty(t, res.Data[1].Title)
	assert.Equal(t, "Room 4", res.Data[1].Location)
}

func TestInheritedDeadlineIsTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	// The flow deadline fires before the per-call one.
	c := NewClient(srv.URL, time.Minute, srv.Client())
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err := c.ParseText(ctx, "tok", "x")
	assert.ErrorIs(t, err, ErrRemoteTimeout)
}

func TestCancelledParentIsNotTimeout(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ParseText(ctx, "tok", "x")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrRemoteTimeout)
}

func TestCreateScheduleReturnsWrappedCode(t *testing.T) {
	var got Candidate
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/schedules", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		if got.Title == "dup" {
			_, _ = w.Write([]byte(`{"code":409,"message":"duplicate"}`))
			return
		}
		_, _ = w.Write([]byte(`{"code":200,"message":"created"}`))
	})

	code, err := c.CreateSchedule(context.Background(), "tok", Candidate{Title: "Dentist", IsAIGenerated: true})
	require.NoError(t, err)
	assert.Equal(t, CodeOK, code)
	assert.True(t, got.IsAIGenerated)
	assert.False(t, got.IsViewed)

	code, err = c.CreateSchedule(context.Background(), "tok", Candidate{Title: "dup"})
	require.NoError(t, err)
	assert.Equal(t, 409, code)
}

func TestNonJSONErrorStatus(t *testing.T) {
	c := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	})
	_, err := c.CreateSchedule(context.Background(), "tok", Candidate{Title: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}
