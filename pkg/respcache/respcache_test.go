package respcache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/goleak"

	"github.com/forbxy/metadata.tmdb.cn.optimization/pkg/apiclient"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeFetcher counts delegated calls and returns canned payloads.
type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	json  json.RawMessage
	text  string
	err   error
}

func (f *fakeFetcher) FetchJSON(_ context.Context, _ string, _ apiclient.Params, def json.RawMessage) (json.RawMessage, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.err != nil {
		if def != nil {
			return def, nil
		}
		return nil, f.err
	}
	return f.json, nil
}

func (f *fakeFetcher) FetchText(context.Context, string, apiclient.Params) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.text, f.err
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestBoltCacheStoresAndExpires(t *testing.T) {
	opts := Options{ResponseTTL: time.Second, CleanupInterval: time.Hour}
	cacheRaw, err := openBolt(t.TempDir()+"/responses.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	cache := cacheRaw.(*boltCache)
	defer cache.Close()

	if _, ok, err := cache.Get("k"); err != nil || ok {
		t.Fatalf("expected miss on empty cache, ok=%v err=%v", ok, err)
	}

	if err := cache.Set("k", []byte(`{"id":550}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get("k")
	if err != nil || !ok || string(got) != `{"id":550}` {
		t.Fatalf("expected hit, got %q ok=%v err=%v", got, ok, err)
	}

	time.Sleep(1100 * time.Millisecond)

	if _, ok, err := cache.Get("k"); err != nil || ok {
		t.Fatalf("expected stale entry to read as miss, ok=%v err=%v", ok, err)
	}
}

func TestBoltCacheCleanupSweepsStaleEntries(t *testing.T) {
	opts := Options{ResponseTTL: time.Second, CleanupInterval: time.Second}
	cacheRaw, err := openBolt(t.TempDir()+"/responses.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	cache := cacheRaw.(*boltCache)
	defer cache.Close()

	if err := cache.Set("stale", []byte(`{}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	cache.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	// Any operation past the cadence triggers the sweep.
	if err := cache.Set("fresh", []byte(`{}`)); err != nil {
		t.Fatalf("Set after cadence: %v", err)
	}

	var keys int
	if err := cache.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(responseBucket)).ForEach(func(_, _ []byte) error {
			keys++
			return nil
		})
	}); err != nil {
		t.Fatalf("count keys: %v", err)
	}
	if keys != 1 {
		t.Fatalf("expected only the fresh key to remain, got %d", keys)
	}
}

func TestCachedFetcherServesFromCache(t *testing.T) {
	cache, err := NewCache("bbolt", t.TempDir()+"/responses.db", Options{ResponseTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer cache.Close()

	next := &fakeFetcher{json: json.RawMessage(`{"id":550}`)}
	fetcher := NewCachedFetcher(next, cache, nil)

	params := apiclient.Params{"language": {"zh-CN"}}
	for i := 0; i < 3; i++ {
		got, err := fetcher.FetchJSON(context.Background(), "https://api.example.org/3/movie/550", params, nil)
		if err != nil {
			t.Fatalf("FetchJSON #%d: %v", i, err)
		}
		if string(got) != `{"id":550}` {
			t.Fatalf("unexpected payload %s", got)
		}
	}
	if next.callCount() != 1 {
		t.Fatalf("expected one delegated fetch, got %d", next.callCount())
	}

	// A different parameter set is a different cache entry.
	if _, err := fetcher.FetchJSON(context.Background(), "https://api.example.org/3/movie/550", nil, nil); err != nil {
		t.Fatalf("FetchJSON: %v", err)
	}
	if next.callCount() != 2 {
		t.Fatalf("params should change the fingerprint, calls=%d", next.callCount())
	}
}

func TestCachedFetcherAppliesDefaultWithoutCaching(t *testing.T) {
	cache, err := NewCache("bbolt", t.TempDir()+"/responses.db", Options{ResponseTTL: time.Hour})
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	defer cache.Close()

	next := &fakeFetcher{err: errors.New("both paths down")}
	fetcher := NewCachedFetcher(next, cache, nil)

	def := json.RawMessage(`{"results":[]}`)
	got, err := fetcher.FetchJSON(context.Background(), "https://api.example.org/3/search/movie", nil, def)
	if err != nil || string(got) != string(def) {
		t.Fatalf("expected default, got %s err %v", got, err)
	}

	// The default must not poison the cache for later calls.
	next.err = nil
	next.json = json.RawMessage(`{"results":[{"id":550}]}`)
	got, err = fetcher.FetchJSON(context.Background(), "https://api.example.org/3/search/movie", nil, nil)
	if err != nil {
		t.Fatalf("FetchJSON after recovery: %v", err)
	}
	if string(got) != `{"results":[{"id":550}]}` {
		t.Fatalf("default leaked into cache: %s", got)
	}
}

func TestCachedFetcherTextPassesThrough(t *testing.T) {
	next := &fakeFetcher{text: "7.8"}
	fetcher := NewCachedFetcher(next, nil, nil)

	for i := 0; i < 2; i++ {
		got, err := fetcher.FetchText(context.Background(), "https://ratings.example.org/title/tt0137523", nil)
		if err != nil || got != "7.8" {
			t.Fatalf("FetchText: %q err %v", got, err)
		}
	}
	if next.callCount() != 2 {
		t.Fatalf("text fetches must not be cached, calls=%d", next.callCount())
	}
}

func TestNewCacheNoop(t *testing.T) {
	cache, err := NewCache("none", "", Options{})
	if err != nil {
		t.Fatalf("NewCache none: %v", err)
	}
	if err := cache.Set("k", []byte("v")); err != nil {
		t.Fatalf("noop Set: %v", err)
	}
	if _, ok, err := cache.Get("k"); err != nil || ok {
		t.Fatalf("noop cache must always miss")
	}

	if _, err := NewCache("memcached", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
