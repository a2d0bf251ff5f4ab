package cmd

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestAnnounceThenPort_BBoltStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "properties.db")
	t.Setenv("STORE_TYPE", "bbolt")
	t.Setenv("STORE_PATH", path)

	out, err := runCLI(t, "announce", "45123", "--log-level", "error")
	if err != nil {
		t.Fatalf("announce: %v", err)
	}
	if !strings.Contains(out, "TMDB_OPTIMIZATION_SERVICE_PORT=45123") {
		t.Fatalf("unexpected announce output: %q", out)
	}

	out, err = runCLI(t, "port", "--log-level", "error")
	if err != nil {
		t.Fatalf("port after announce: %v", err)
	}
	if strings.TrimSpace(out) != "45123" {
		t.Fatalf("expected announced port 45123, got %q", out)
	}
}

func TestAnnounceCommand_RejectsBadPort(t *testing.T) {
	t.Setenv("STORE_TYPE", "none")

	_, err := runCLI(t, "announce", "70000", "--log-level", "error")
	if err == nil {
		t.Fatal("expected error for an out-of-range port")
	}
	if !strings.Contains(err.Error(), "not a valid port") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAnnounceCommand_RequiresStore(t *testing.T) {
	t.Setenv("STORE_TYPE", "none")

	_, err := runCLI(t, "announce", "45123", "--log-level", "error")
	if err == nil {
		t.Fatal("expected error when no property store is configured")
	}
	if !strings.Contains(err.Error(), "no property store configured") {
		t.Fatalf("unexpected error: %v", err)
	}
}
