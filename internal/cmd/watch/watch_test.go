package watch

import (
	"flag"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/journal.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.TokenEnv != "ASTRALINKS_TOKEN" {
		t.Fatalf("expected default token env, got %q", cfg.TokenEnv)
	}
	if cfg.Sync.URL != "ws://localhost:8080/sync" {
		t.Fatalf("expected default sync url, got %q", cfg.Sync.URL)
	}
	if cfg.Sync.CoalesceWindow != 50*time.Millisecond {
		t.Fatalf("expected default coalesce window, got %v", cfg.Sync.CoalesceWindow)
	}
	if cfg.Sync.InitialReconnectDelay != time.Second {
		t.Fatalf("expected default reconnect delay, got %v", cfg.Sync.InitialReconnectDelay)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("ASTRALINKS_WATCH_SESSION", "env-session")
	t.Setenv("ASTRALINKS_WATCH_DB_PATH", "env-journal.db")
	t.Setenv("ASTRALINKS_SYNC_URL", "ws://env-host/sync")

	fs := flag.NewFlagSet("watch", flag.ContinueOnError)
	args := []string{
		"-session", "flag-session",
		"-url", "ws://flag-host/sync",
		"-coalesce-window", "25ms",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SessionID != "flag-session" {
		t.Fatalf("expected flag session, got %q", cfg.SessionID)
	}
	if cfg.DBPath != "env-journal.db" {
		t.Fatalf("expected env db path, got %q", cfg.DBPath)
	}
	if cfg.Sync.URL != "ws://flag-host/sync" {
		t.Fatalf("expected flag sync url, got %q", cfg.Sync.URL)
	}
	if cfg.Sync.CoalesceWindow != 25*time.Millisecond {
		t.Fatalf("expected flag coalesce window, got %v", cfg.Sync.CoalesceWindow)
	}
}
