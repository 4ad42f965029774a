// Package journal keeps a local, expiring history of call outcomes.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
	"github.com/samvad-hq/samvad-apiclient/pkg/result"
)

// Store records outcome events by id.
type Store interface {
	Close() error
	Record(evt publishers.Event) error
	Get(id string) (result.Option[publishers.Event], error)
	// Recent returns up to limit unexpired events, newest first.
	Recent(limit int) ([]publishers.Event, error)
}

// Options controls retention characteristics for concrete store implementations.
type Options struct {
	TTL             time.Duration
	CleanupInterval time.Duration
}

const (
	defaultTTL             = 7 * 24 * time.Hour
	defaultCleanupInterval = 6 * time.Hour
)

// NewStore creates the configured journal backend.
func NewStore(typ, path string, opts Options) (Store, error) {
	typ = strings.TrimSpace(strings.ToLower(typ))
	opts = normalizeOptions(opts)

	switch typ {
	case "", "none", "disabled":
		return noopStore{}, nil
	case "bbolt":
		if strings.TrimSpace(path) == "" {
			return nil, fmt.Errorf("bbolt journal requires a path")
		}
		return openBolt(path, opts)
	default:
		return nil, fmt.Errorf("unsupported journal type %q", typ)
	}
}

func normalizeOptions(opts Options) Options {
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = defaultCleanupInterval
	}
	return opts
}

type noopStore struct{}

func (noopStore) Close() error                  { return nil }
func (noopStore) Record(publishers.Event) error { return nil }
func (noopStore) Get(string) (result.Option[publishers.Event], error) {
	return result.None[publishers.Event](), nil
}
func (noopStore) Recent(int) ([]publishers.Event, error) { return nil, nil }
