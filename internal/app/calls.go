package app

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-apiclient/pkg/httpclient"
)

// Call describes one API request to run.
type Call struct {
	Name      string            `json:"name" yaml:"name"`
	Method    string            `json:"method" yaml:"method"`
	URL       string            `json:"url" yaml:"url"`
	Headers   map[string]string `json:"headers" yaml:"headers"`
	Query     map[string]string `json:"query" yaml:"query"`
	Body      any               `json:"body" yaml:"body"`
	TimeoutMs int64             `json:"timeout_ms" yaml:"timeout_ms"`
}

type callsFile struct {
	Calls []Call `json:"calls" yaml:"calls"`
}

// LoadCalls reads a batch of calls from a YAML or JSON file.
func LoadCalls(path string) ([]Call, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("calls file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read calls file: %w", err)
	}

	var file callsFile
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(raw, &file)
	case ".yaml", ".yml", "":
		err = yaml.Unmarshal(raw, &file)
	default:
		return nil, fmt.Errorf("calls file format not recognized (expected YAML or JSON): %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode calls file: %w", err)
	}
	if len(file.Calls) == 0 {
		return nil, errors.New("calls file contains no calls entries")
	}

	calls := make([]Call, len(file.Calls))
	for i, c := range file.Calls {
		c = c.normalized()
		if err := c.validate(); err != nil {
			return nil, fmt.Errorf("calls[%d]: %w", i, err)
		}
		calls[i] = c
	}
	return calls, nil
}

// normalized trims fields and defaults the method to GET.
func (c Call) normalized() Call {
	c.Name = strings.TrimSpace(c.Name)
	c.URL = strings.TrimSpace(c.URL)
	c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
	if c.Method == "" {
		c.Method = http.MethodGet
	}
	c.Body = jsonCompatible(c.Body)
	return c
}

func (c Call) validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	switch c.Method {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete:
	default:
		return fmt.Errorf("unsupported method %q", c.Method)
	}
	if c.TimeoutMs < 0 {
		return errors.New("timeout_ms must not be negative")
	}
	if c.Body != nil && (c.Method == http.MethodGet || c.Method == http.MethodDelete) {
		return fmt.Errorf("%s does not take a body", c.Method)
	}
	return nil
}

// requestConfig returns the transport config for c, or nil when nothing is set.
func (c Call) requestConfig() *httpclient.RequestConfig {
	if len(c.Headers) == 0 && len(c.Query) == 0 && c.TimeoutMs == 0 {
		return nil
	}
	return &httpclient.RequestConfig{
		Headers: c.Headers,
		Query:   c.Query,
		Timeout: time.Duration(c.TimeoutMs) * time.Millisecond,
	}
}

// jsonCompatible rewrites the map[any]any values yaml.v3 may produce for
// nested documents into map[string]any so the body can be JSON encoded.
func jsonCompatible(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = jsonCompatible(val)
		}
		return out
	case map[string]any:
		for k, val := range t {
			t[k] = jsonCompatible(val)
		}
		return t
	case []any:
		for i, val := range t {
			t[i] = jsonCompatible(val)
		}
		return t
	default:
		return v
	}
}
