package propstore

import (
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestBoltStorePublishesAndExpiresProperties(t *testing.T) {
	dir := t.TempDir()
	opts := Options{
		PropertyTTL:     1 * time.Second,
		CleanupInterval: 1 * time.Second,
	}

	storeRaw, err := openBolt(dir+"/properties.db", opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	store := storeRaw.(*boltStore)
	defer store.Close()

	got, err := store.Property("TMDB_OPTIMIZATION_SERVICE_PORT")
	if err != nil || got != "" {
		t.Fatalf("expected unset property, got %q err %v", got, err)
	}

	if err := store.SetProperty("TMDB_OPTIMIZATION_SERVICE_PORT", "51423"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}

	got, err = store.Property("TMDB_OPTIMIZATION_SERVICE_PORT")
	if err != nil || got != "51423" {
		t.Fatalf("expected published port, got %q err %v", got, err)
	}

	// Fast-forward cleanup cadence and let the entry expire.
	store.lastCleanup.Store(time.Now().Add(-2 * time.Second).Unix())
	time.Sleep(1100 * time.Millisecond)

	got, err = store.Property("TMDB_OPTIMIZATION_SERVICE_PORT")
	if err != nil {
		t.Fatalf("Property after expiry: %v", err)
	}
	if got != "" {
		t.Fatalf("expected stale advertisement to expire, got %q", got)
	}
}

func TestBoltStoreSurvivesReopen(t *testing.T) {
	path := t.TempDir() + "/properties.db"
	opts := Options{PropertyTTL: time.Hour, CleanupInterval: time.Hour}

	store, err := openBolt(path, opts)
	if err != nil {
		t.Fatalf("openBolt: %v", err)
	}
	if err := store.SetProperty("KEY", "value"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := openBolt(path, opts)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Property("KEY")
	if err != nil || got != "value" {
		t.Fatalf("expected persisted property, got %q err %v", got, err)
	}
}

func TestPropertyCodec(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	raw := encodeProperty(expiry, "56789")

	gotExpiry, gotValue, ok := decodeProperty(raw)
	if !ok || gotValue != "56789" || !gotExpiry.Equal(expiry) {
		t.Fatalf("round trip failed: %v %q %v", gotExpiry, gotValue, ok)
	}

	if _, _, ok := decodeProperty([]byte("short")); ok {
		t.Fatalf("expected short value to be rejected")
	}
}
