package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRestyClientGetPassesConfig(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			t.Errorf("expected GET, got %s", r.Method)
		}
		if got := r.Header.Get("X-Trace"); got != "abc" {
			t.Errorf("X-Trace = %q", got)
		}
		if got := r.Header.Get("User-Agent"); got != "apicall-test" {
			t.Errorf("User-Agent = %q", got)
		}
		if got := r.URL.Query().Get("page"); got != "2" {
			t.Errorf("page = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1}`))
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL, UserAgent: "apicall-test", Timeout: time.Second})
	resp, err := client.Get(context.Background(), "/items", &RequestConfig{
		Headers: map[string]string{"X-Trace": "abc"},
		Query:   map[string]string{"page": "2"},
	})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode() != http.StatusOK || string(resp.Body()) != `{"id":1}` {
		t.Fatalf("unexpected response %d %s", resp.StatusCode(), resp.Body())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("Content-Type = %q", ct)
	}
}

func TestRestyClientPostAndPutSendJSONBody(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		bodies = append(bodies, r.Method+" "+string(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL})
	if _, err := client.Post(context.Background(), "/x", map[string]int{"a": 1}, nil); err != nil {
		t.Fatalf("Post: %v", err)
	}
	if _, err := client.Put(context.Background(), "/x", map[string]int{"b": 2}, nil); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := client.Delete(context.Background(), "/x", nil); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	want := []string{`POST {"a":1}`, `PUT {"b":2}`, `DELETE `}
	if len(bodies) != len(want) {
		t.Fatalf("expected %d requests, got %v", len(want), bodies)
	}
	for i := range want {
		if bodies[i] != want[i] {
			t.Errorf("request %d = %q want %q", i, bodies[i], want[i])
		}
	}
}

func TestRestyClientRejectsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{BaseURL: srv.URL})
	resp, err := client.Post(context.Background(), "/x", map[string]int{"a": 1}, nil)
	if err == nil {
		t.Fatalf("expected error for 500")
	}
	httpErr, ok := AsError(err)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if httpErr.StatusCode != http.StatusInternalServerError || httpErr.Method != http.MethodPost {
		t.Fatalf("unexpected error %+v", httpErr)
	}
	if !strings.Contains(httpErr.Error(), "boom") {
		t.Fatalf("error should carry body snippet: %v", httpErr)
	}
	if resp == nil || resp.StatusCode() != http.StatusInternalServerError {
		t.Fatalf("response should still be returned with the error")
	}
}

func TestRestyClientCustomValidateStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewRestyClient(Options{
		BaseURL:        srv.URL,
		ValidateStatus: func(status int) bool { return status < 500 },
	})
	if _, err := client.Get(context.Background(), "/missing", nil); err != nil {
		t.Fatalf("404 should be accepted, got %v", err)
	}
}

func TestRestyClientRequestTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewRestyClient(Options{BaseURL: srv.URL})
	_, err := client.Get(context.Background(), "/slow", &RequestConfig{Timeout: 20 * time.Millisecond})
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	httpErr, ok := AsError(err)
	if !ok || httpErr.StatusCode != 0 {
		t.Fatalf("expected transport *Error without status, got %#v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded in chain, got %v", err)
	}
}

func TestMetricsRecordRequests(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	metrics, err := NewMetrics(reg)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	client := NewRestyClient(Options{BaseURL: srv.URL, Metrics: metrics})
	for i := 0; i < 2; i++ {
		if _, err := client.Delete(context.Background(), "/x", nil); err != nil {
			t.Fatalf("Delete: %v", err)
		}
	}

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodDelete, "202")); got != 2 {
		t.Fatalf("requests_total = %v", got)
	}
	if n := testutil.CollectAndCount(metrics.duration); n != 1 {
		t.Fatalf("expected one duration series, got %d", n)
	}
}

func TestMetricsRecordTransportFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	metrics, err := NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	client := NewRestyClient(Options{BaseURL: url, Timeout: time.Second, Metrics: metrics})
	if _, err := client.Get(context.Background(), "/x", nil); err == nil {
		t.Fatalf("expected transport error against a closed server")
	}

	if got := testutil.ToFloat64(metrics.requests.WithLabelValues(http.MethodGet, "error")); got != 1 {
		t.Fatalf("error requests_total = %v", got)
	}
}

func TestErrorFormatting(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &Error{Method: "GET", URL: "/x", Message: "request failed", Cause: cause}
	if got := err.Error(); got != "GET /x: request failed: dial tcp: refused" {
		t.Fatalf("Error() = %q", got)
	}
	if !errors.Is(err, cause) {
		t.Fatalf("Unwrap should expose the cause")
	}
	if _, ok := AsError(cause); ok {
		t.Fatalf("plain errors are not *Error")
	}
}
