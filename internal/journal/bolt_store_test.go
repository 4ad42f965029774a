package journal

import (
	"testing"
	"time"

	"github.com/samvad-hq/samvad-apiclient/pkg/publishers"
)

func openTestStore(t *testing.T, opts Options) *boltStore {
	t.Helper()
	raw, err := openBolt(t.TempDir()+"/journal.db", normalizeOptions(opts))
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := raw.(*boltStore)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestBoltStoreRecordsAndExpiresEvents(t *testing.T) {
	store := openTestStore(t, Options{TTL: time.Minute, CleanupInterval: time.Hour})
	now := time.Now()
	store.now = func() time.Time { return now }

	opt, err := store.Get("missing")
	if err != nil || opt.IsSome() {
		t.Fatalf("expected None for unknown id, got %v err=%v", opt, err)
	}

	evt := publishers.NewEvent("ping", "GET", "/ping", publishers.OutcomeSome)
	evt.Payload = []byte(`{"ok":true}`)
	if err := store.Record(evt); err != nil {
		t.Fatalf("Record: %v", err)
	}

	opt, err = store.Get(evt.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got, ok := opt.Get()
	if !ok || got.URL != "/ping" || string(got.Payload) != `{"ok":true}` {
		t.Fatalf("unexpected stored event %+v", got)
	}

	now = now.Add(2 * time.Minute)
	opt, err = store.Get(evt.ID)
	if err != nil {
		t.Fatalf("Get after expiry: %v", err)
	}
	if opt.IsSome() {
		t.Fatalf("expected entry to expire")
	}
}

func TestBoltStoreCleanupRemovesExpired(t *testing.T) {
	store := openTestStore(t, Options{TTL: time.Second, CleanupInterval: time.Second})
	now := time.Now()
	store.now = func() time.Time { return now }

	old := publishers.NewEvent("", "GET", "/old", publishers.OutcomeNone)
	if err := store.Record(old); err != nil {
		t.Fatalf("Record: %v", err)
	}

	now = now.Add(5 * time.Second)
	fresh := publishers.NewEvent("", "GET", "/fresh", publishers.OutcomeNone)
	if err := store.Record(fresh); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := store.Recent(0)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 1 || events[0].ID != fresh.ID {
		t.Fatalf("expected only the fresh event, got %+v", events)
	}
}

func TestBoltStoreRecentOrdersNewestFirst(t *testing.T) {
	store := openTestStore(t, Options{TTL: time.Hour, CleanupInterval: time.Hour})
	base := time.Now().UTC()

	for i := 0; i < 3; i++ {
		evt := publishers.NewEvent("", "GET", "/"+string(rune('a'+i)), publishers.OutcomeSome)
		evt.RecordedAt = base.Add(time.Duration(i) * time.Second)
		if err := store.Record(evt); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := store.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 || events[0].URL != "/c" || events[1].URL != "/b" {
		t.Fatalf("unexpected order %+v", events)
	}
}

func TestRecordRejectsEmptyID(t *testing.T) {
	store := openTestStore(t, Options{})
	if err := store.Record(publishers.Event{}); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestNewStoreSupportsNoop(t *testing.T) {
	store, err := NewStore("none", "", Options{})
	if err != nil {
		t.Fatalf("NewStore none: %v", err)
	}
	if err := store.Record(publishers.Event{ID: "x"}); err != nil {
		t.Fatalf("noop store Record: %v", err)
	}
	if opt, _ := store.Get("x"); opt.IsSome() {
		t.Fatalf("noop store must not remember events")
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", " ", Options{}); err == nil {
		t.Fatalf("expected error for missing path")
	}
}
