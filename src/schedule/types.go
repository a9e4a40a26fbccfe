// Package schedule is the client for the calendar backend's AI-parse and
// schedule-create endpoints.
package schedule

// CodeOK is the only success code the backend wraps in its envelope.
const CodeOK = 200

// Candidate is one schedule entry extracted from recognized text.
type Candidate struct {
	Title      string `json:"title"`
	Date       string `json:"date"`                 // YYYY-MM-DD
	StartTime  string `json:"start_time,omitempty"` // HH:MM
	EndTime    string `json:"end_time,omitempty"`   // HH:MM
	Location   string `json:"location,omitempty"`
	Importance int    `json:"importance"`
	Memo       string `json:"memo,omitempty"`

	// Provenance and triage flags set before persisting.
	IsAIGenerated bool `json:"is_ai_generated"`
	IsViewed      bool `json:"is_viewed"`
}

// ParseResult is the backend's wrapped response to a parse request.
// Data is nil when the backend sent null or omitted it.
type ParseResult struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    []Candidate `json:"data"`
}

// OK reports the only success shape: code 200 with a non-null list.
func (r ParseResult) OK() bool {
	return r.Code == CodeOK && r.Data != nil
}

type parseRequest struct {
	Text string `json:"text"`
}

type envelope struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
