package httpclient

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const maxSnippetBytes = 512

// Error describes a failed HTTP exchange: a network failure (StatusCode 0),
// a rejected status, or a body the caller could not decode.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Header     http.Header
	Body       []byte
	Cause      error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Method != "" || e.URL != "" {
		fmt.Fprintf(&b, "%s %s: ", e.Method, e.URL)
	}
	b.WriteString(e.Message)
	if snippet := bodySnippet(e.Body); snippet != "" {
		fmt.Fprintf(&b, ": %s", snippet)
	}
	if e.Cause != nil {
		fmt.Fprintf(&b, ": %v", e.Cause)
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Cause }

// AsError extracts an *Error from err's chain.
func AsError(err error) (*Error, bool) {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

// statusError builds the error returned for a response whose status is not accepted.
func statusError(method, url string, resp Response) *Error {
	return &Error{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode(),
		Message:    fmt.Sprintf("request failed with status code %d", resp.StatusCode()),
		Header:     resp.Header(),
		Body:       resp.Body(),
	}
}

func bodySnippet(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if len(body) > maxSnippetBytes {
		body = body[:maxSnippetBytes]
	}
	return strings.TrimSpace(string(body))
}
