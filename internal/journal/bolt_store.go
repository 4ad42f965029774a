package journal

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	json "github.com/goccy/go-json"
	bolt "go.etcd.io/bbolt"

	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
	"github.com/samvad-hq/samvad-apiclient/pkg/result"
)

const (
	outcomeBucket    = "outcomes"
	expiryValueBytes = 8
)

var errBucketMissing = fmt.Errorf("outcome bucket missing")

// boltStore implements a Store backed by BoltDB. Each value is an 8-byte
// big-endian expiry followed by the JSON event.
type boltStore struct {
	db              *bolt.DB
	cleanupMu       sync.Mutex
	lastCleanup     atomic.Int64
	ttl             time.Duration
	cleanupInterval time.Duration
	now             func() time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (Store, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(outcomeBucket))
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		ttl:             opts.TTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.lastCleanup.Store(store.now().Unix())
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Record stores evt under its id until the TTL elapses.
func (b *boltStore) Record(evt publishers.Event) error {
	if b == nil || b.db == nil {
		return nil
	}
	if evt.ID == "" {
		return fmt.Errorf("event id is empty")
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return err
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	value := make([]byte, expiryValueBytes, expiryValueBytes+len(payload))
	binary.BigEndian.PutUint64(value, uint64(now.Add(b.ttl).Unix()))
	value = append(value, payload...)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(outcomeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.Put([]byte(evt.ID), value)
	})
}

// Get returns the event recorded under id, dropping it when expired.
func (b *boltStore) Get(id string) (result.Option[publishers.Event], error) {
	none := result.None[publishers.Event]()
	if b == nil || b.db == nil {
		return none, nil
	}

	now := b.now()
	if err := b.maybeCleanupExpired(now); err != nil {
		return none, err
	}

	found := none
	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(outcomeBucket))
		if bucket == nil {
			return errBucketMissing
		}

		key := []byte(id)
		value := bucket.Get(key)
		if value == nil {
			return nil
		}

		evt, ok := decodeEntry(value, now)
		if !ok {
			return bucket.Delete(key)
		}
		found = result.Some(evt)
		return nil
	})
	return found, err
}

// Recent returns up to limit unexpired events, newest first. limit <= 0 means all.
func (b *boltStore) Recent(limit int) ([]publishers.Event, error) {
	if b == nil || b.db == nil {
		return nil, nil
	}

	now := b.now()
	var events []publishers.Event
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(outcomeBucket))
		if bucket == nil {
			return errBucketMissing
		}
		return bucket.ForEach(func(_, v []byte) error {
			if evt, ok := decodeEntry(v, now); ok {
				events = append(events, evt)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(events, func(a, b publishers.Event) int {
		return b.RecordedAt.Compare(a.RecordedAt)
	})
	if limit > 0 && len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// maybeCleanupExpired removes expired entries on a fixed cadence to avoid unbounded growth.
func (b *boltStore) maybeCleanupExpired(now time.Time) error {
	last := time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	b.cleanupMu.Lock()
	defer b.cleanupMu.Unlock()

	last = time.Unix(b.lastCleanup.Load(), 0)
	if now.Sub(last) < b.cleanupInterval {
		return nil
	}

	err := b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(outcomeBucket))
		if bucket == nil {
			return errBucketMissing
		}

		cursor := bucket.Cursor()
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			expiry, ok := decodeExpiry(v)
			if !ok || !expiry.After(now) {
				if err := cursor.Delete(); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err == nil {
		b.lastCleanup.Store(now.Unix())
	}
	return err
}

// decodeEntry returns the stored event if the entry is well formed and unexpired.
func decodeEntry(value []byte, now time.Time) (publishers.Event, bool) {
	expiry, ok := decodeExpiry(value)
	if !ok || !expiry.After(now) {
		return publishers.Event{}, false
	}
	var evt publishers.Event
	if err := json.Unmarshal(value[expiryValueBytes:], &evt); err != nil {
		return publishers.Event{}, false
	}
	return evt, true
}

// decodeExpiry decodes the expiry prefix of a stored value.
func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) < expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value[:expiryValueBytes]))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
