package httpclient

import (
	"errors"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records request counts and latencies for a RestyClient.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg (when non-nil).
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "apiclient_http_requests_total",
			Help: "HTTP requests issued, by method and status code (\"error\" for transport failures).",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "apiclient_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.requests, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) instrument(c *resty.Client) {
	if m == nil {
		return
	}
	c.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		m.observe(resp.Request.Method, strconv.Itoa(resp.StatusCode()), resp.Time())
		return nil
	})
	// Transport failures reach OnError wrapped in a ResponseError without a raw
	// response; a raw response means OnAfterResponse already counted it.
	c.OnError(func(req *resty.Request, err error) {
		var respErr *resty.ResponseError
		if errors.As(err, &respErr) && respErr.Response != nil && respErr.Response.RawResponse != nil {
			return
		}
		m.observe(req.Method, "error", time.Since(req.Time))
	})
}

func (m *Metrics) observe(method, status string, elapsed time.Duration) {
	m.requests.WithLabelValues(method, status).Inc()
	m.duration.WithLabelValues(method).Observe(elapsed.Seconds())
}
