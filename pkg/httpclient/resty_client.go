package httpclient

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	json "github.com/goccy/go-json"
)

const defaultTimeout = 15 * time.Second

// Options configures a RestyClient. The zero value is usable.
type Options struct {
	BaseURL   string
	Timeout   time.Duration
	Headers   map[string]string
	UserAgent string
	Debug     bool
	// Logger receives resty's own diagnostics (a *zap.SugaredLogger fits).
	Logger resty.Logger
	// Metrics, when set, records every exchange.
	Metrics *Metrics
	// ValidateStatus decides which statuses count as success. Defaults to 2xx.
	ValidateStatus func(status int) bool
}

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client         *resty.Client
	validateStatus func(int) bool
}

// NewRestyClient creates a RestyClient from opts.
func NewRestyClient(opts Options) *RestyClient {
	c := newRestyBaseClient(opts.Timeout)

	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		c.SetBaseURL(base)
	}
	if len(opts.Headers) > 0 {
		c.SetHeaders(opts.Headers)
	}
	if ua := strings.TrimSpace(opts.UserAgent); ua != "" {
		c.SetHeader("User-Agent", ua)
	}
	if opts.Logger != nil {
		c.SetLogger(opts.Logger)
	}
	c.SetDebug(opts.Debug)
	opts.Metrics.instrument(c)

	validate := opts.ValidateStatus
	if validate == nil {
		validate = Is2xx
	}
	return &RestyClient{client: c, validateStatus: validate}
}

// NewRestyHTTPClient exposes a configured resty.Client for callers needing custom verbs.
func NewRestyHTTPClient(timeout time.Duration) *resty.Client {
	return newRestyBaseClient(timeout)
}

// newRestyBaseClient creates a new resty.Client with the specified timeout.
func newRestyBaseClient(timeout time.Duration) *resty.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := resty.New()
	c.SetTimeout(timeout)
	c.SetJSONMarshaler(json.Marshal)
	c.SetJSONUnmarshaler(json.Unmarshal)
	return c
}

// Is2xx reports whether status is in the 200-299 range.
func Is2xx(status int) bool {
	return status >= 200 && status < 300
}

// Get performs an HTTP GET request.
func (r *RestyClient) Get(ctx context.Context, url string, cfg *RequestConfig) (Response, error) {
	return r.execute(ctx, http.MethodGet, url, nil, cfg)
}

// Post performs an HTTP POST request. A nil body sends no payload.
func (r *RestyClient) Post(ctx context.Context, url string, body any, cfg *RequestConfig) (Response, error) {
	return r.execute(ctx, http.MethodPost, url, body, cfg)
}

// Put performs an HTTP PUT request. A nil body sends no payload.
func (r *RestyClient) Put(ctx context.Context, url string, body any, cfg *RequestConfig) (Response, error) {
	return r.execute(ctx, http.MethodPut, url, body, cfg)
}

// Delete performs an HTTP DELETE request.
func (r *RestyClient) Delete(ctx context.Context, url string, cfg *RequestConfig) (Response, error) {
	return r.execute(ctx, http.MethodDelete, url, nil, cfg)
}

func (r *RestyClient) execute(ctx context.Context, method, url string, body any, cfg *RequestConfig) (Response, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if cfg != nil && cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	req := r.client.R().SetContext(ctx)
	if cfg != nil {
		if len(cfg.Headers) > 0 {
			req.SetHeaders(cfg.Headers)
		}
		if len(cfg.Query) > 0 {
			req.SetQueryParams(cfg.Query)
		}
	}
	if body != nil {
		req.SetBody(body)
	}

	resp, err := req.Execute(method, url)
	if err != nil {
		return nil, &Error{
			Method:  method,
			URL:     url,
			Message: "request failed",
			Cause:   err,
		}
	}

	adapted := &restyResponseAdapter{resp: resp}
	if !r.validateStatus(resp.StatusCode()) {
		return adapted, statusError(method, resp.Request.URL, adapted)
	}
	return adapted, nil
}

// restyResponseAdapter adapts resty.Response to the httpclient.Response interface.
type restyResponseAdapter struct {
	resp *resty.Response
}

func (r *restyResponseAdapter) Body() []byte        { return r.resp.Body() }
func (r *restyResponseAdapter) StatusCode() int     { return r.resp.StatusCode() }
func (r *restyResponseAdapter) Header() http.Header { return r.resp.Header() }
