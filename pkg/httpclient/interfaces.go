package httpclient

import (
	"context"
	"net/http"
	"time"
)

// Response is a minimal HTTP response contract.
type Response interface {
	Body() []byte
	StatusCode() int
	Header() http.Header
}

// RequestConfig carries per-request transport options. A nil config is valid.
type RequestConfig struct {
	Headers map[string]string
	Query   map[string]string
	Timeout time.Duration
}

// Client abstracts HTTP calls so callers can inject mocks or different transports.
// Implementations return a non-nil error for network failures and for
// responses whose status they do not accept.
type Client interface {
	Get(ctx context.Context, url string, cfg *RequestConfig) (Response, error)
	Post(ctx context.Context, url string, body any, cfg *RequestConfig) (Response, error)
	Put(ctx context.Context, url string, body any, cfg *RequestConfig) (Response, error)
	Delete(ctx context.Context, url string, cfg *RequestConfig) (Response, error)
}
