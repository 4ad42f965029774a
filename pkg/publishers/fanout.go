package publishers

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Fanout delivers each outcome event to every configured sink. Sinks are
// called concurrently; a slow queue does not hold up a webhook.
type Fanout struct {
	sinks []Publisher
}

// NewFanout keeps the non-nil publishers of pubs, in order.
func NewFanout(pubs []Publisher) *Fanout {
	f := &Fanout{sinks: make([]Publisher, 0, len(pubs))}
	for _, p := range pubs {
		if p != nil {
			f.sinks = append(f.sinks, p)
		}
	}
	return f
}

// Publish sends evt to all sinks and waits for them. It reports how many
// accepted the event; failures are joined in sink order.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f.Size() == 0 {
		return 0, nil
	}

	failures := make([]error, len(f.sinks))
	var wg sync.WaitGroup
	for i, sink := range f.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := sink.Publish(ctx, evt); err != nil {
				failures[i] = fmt.Errorf("%s publisher[%s]: %w", sink.Type(), sink.ID(), err)
			}
		}()
	}
	wg.Wait()

	delivered := 0
	for _, err := range failures {
		if err == nil {
			delivered++
		}
	}
	return delivered, errors.Join(failures...)
}

// Size reports the number of sinks; a nil Fanout has none.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Close closes every sink that holds a connection.
func (f *Fanout) Close() error {
	if f == nil {
		return nil
	}
	return closeAll(f.sinks)
}
