package publishers

import (
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Outcome labels the three possible endings of an API call.
type Outcome string

const (
	OutcomeSome  Outcome = "some"
	OutcomeNone  Outcome = "none"
	OutcomeError Outcome = "error"
)

// Event represents a finished API call published downstream.
type Event struct {
	ID         string          `json:"id"`
	CallName   string          `json:"call_name,omitempty"`
	Method     string          `json:"method"`
	URL        string          `json:"url"`
	Outcome    Outcome         `json:"outcome"`
	StatusCode int             `json:"status_code,omitempty"`
	Error      string          `json:"error,omitempty"`
	Payload    json.RawMessage `json:"payload,omitempty"`
	DurationMs int64           `json:"duration_ms"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// NewEvent constructs an Event with a fresh id and timestamp.
func NewEvent(callName, method, url string, outcome Outcome) Event {
	return Event{
		ID:         uuid.NewString(),
		CallName:   callName,
		Method:     method,
		URL:        url,
		Outcome:    outcome,
		RecordedAt: time.Now().UTC(),
	}
}

// Failed reports whether the call ended in an error.
func (e Event) Failed() bool { return e.Outcome == OutcomeError }

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) { return json.Marshal(e) }
