package propstore

import (
	"testing"
	"time"
)

func TestNewStoreNoneIsNil(t *testing.T) {
	for _, typ := range []string{"", "none", "disabled", " None "} {
		store, err := NewStore(typ, "", Options{})
		if err != nil {
			t.Fatalf("NewStore(%q): %v", typ, err)
		}
		if store != nil {
			t.Fatalf("NewStore(%q) returned a store", typ)
		}
	}
}

func TestNewStoreRejectsUnknownType(t *testing.T) {
	if _, err := NewStore("redis", "", Options{}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
	if _, err := NewStore("bbolt", "  ", Options{}); err == nil {
		t.Fatalf("expected error for bbolt without path")
	}
}

func TestNewStoreBBolt(t *testing.T) {
	store, err := NewStore("bbolt", t.TempDir()+"/props.db", Options{
		PropertyTTL:     time.Minute,
		CleanupInterval: time.Minute,
	})
	if err != nil {
		t.Fatalf("NewStore bbolt: %v", err)
	}
	defer store.Close()

	if err := store.SetProperty("K", "v"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if got, err := store.Property("K"); err != nil || got != "v" {
		t.Fatalf("Property = %q err %v", got, err)
	}
}

func TestStaticStore(t *testing.T) {
	store := NewStatic(map[string]string{"PORT": "56789"})

	if got, _ := store.Property("PORT"); got != "56789" {
		t.Fatalf("Property = %q", got)
	}
	if got, _ := store.Property("MISSING"); got != "" {
		t.Fatalf("expected empty for unset key, got %q", got)
	}

	if err := store.SetProperty("PORT", "51423"); err != nil {
		t.Fatalf("SetProperty: %v", err)
	}
	if got, _ := store.Property("PORT"); got != "51423" {
		t.Fatalf("Property after set = %q", got)
	}
}

func TestEnvStoreUsesPrefix(t *testing.T) {
	t.Setenv("TMDBC_SERVICE_PORT", "51423")

	store, err := NewStore("env", "", Options{EnvPrefix: "TMDBC_"})
	if err != nil {
		t.Fatalf("NewStore env: %v", err)
	}
	defer store.Close()

	if got, _ := store.Property("SERVICE_PORT"); got != "51423" {
		t.Fatalf("Property = %q", got)
	}
	if got, _ := store.Property("OTHER"); got != "" {
		t.Fatalf("expected empty for unset variable, got %q", got)
	}
}
