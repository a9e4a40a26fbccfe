package schedule

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrRemoteTimeout means a backend call exceeded its deadline.
	ErrRemoteTimeout = errors.New("remote call timed out")
	// ErrMalformedResponse means the backend replied with an unexpected body.
	ErrMalformedResponse = errors.New("malformed response")
)

const maxResponseBytes = 4 << 20

// Client calls the calendar backend. Every call gets its own deadline.
type Client struct {
	baseURL string
	timeout time.Duration
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration, httpClient *http.Client) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{baseURL: baseURL, timeout: timeout, http: httpClient}
}

// ParseText submits recognized text to the AI parse endpoint. A non-nil
// error is returned only for transport, timeout, and decoding failures; the
// caller inspects ParseResult.OK for the backend's verdict.
func (c *Client) ParseText(ctx context.Context, token, text string) (ParseResult, error) {
	raw, err := c.post(ctx, "/ai/parse", token, parseRequest{Text: text})
	if err != nil {
		return ParseResult{}, err
	}
	if err := validateParseEnvelope(raw); err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	var res ParseResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return ParseResult{}, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return res, nil
}

// CreateSchedule persists one candidate and returns the backend's wrapped code.
func (c *Client) CreateSchedule(ctx context.Context, token string, cand Candidate) (int, error) {
	raw, err := c.post(ctx, "/schedules", token, cand)
	if err != nil {
		return 0, err
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	return env.Code, nil
}

func (c *Client) post(ctx context.Context, path, token string, body any) ([]byte, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqID := uuid.NewString()
	bs, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.baseURL+path, bytes.NewReader(bs))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if timedOut(ctx, callCtx) {
			log.Printf("schedule: %s req_id=%s timed out after %v", path, reqID, time.Since(start))
			return nil, fmt.Errorf("%w: POST %s after %v", ErrRemoteTimeout, path, time.Since(start).Round(time.Millisecond))
		}
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		if timedOut(ctx, callCtx) {
			return nil, fmt.Errorf("%w: reading %s", ErrRemoteTimeout, path)
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	log.Printf("schedule: %s req_id=%s status=%d bytes=%d elapsed=%v", path, reqID, resp.StatusCode, len(raw), time.Since(start))

	// The backend wraps errors in its envelope; a bare non-JSON body on a
	// non-2xx status is surfaced with the status.
	if resp.StatusCode/100 != 2 && !json.Valid(raw) {
		return nil, fmt.Errorf("POST %s: status %d", path, resp.StatusCode)
	}
	return raw, nil
}

// timedOut reports whether a call ended on a deadline, its own or an
// inherited one. Cancellation of the parent is not a timeout.
func timedOut(parent, call context.Context) bool {
	return errors.Is(call.Err(), context.DeadlineExceeded) && !errors.Is(parent.Err(), context.Canceled)
}
