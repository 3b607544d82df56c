package replay

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.DBPath != "data/journal.db" {
		t.Fatalf("expected default db path, got %q", cfg.DBPath)
	}
	if cfg.Speed != 1 {
		t.Fatalf("expected default speed, got %v", cfg.Speed)
	}
	if cfg.List {
		t.Fatal("expected list disabled by default")
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("ASTRALINKS_REPLAY_SESSION", "env-session")
	t.Setenv("ASTRALINKS_REPLAY_SPEED", "2")

	fs := flag.NewFlagSet("replay", flag.ContinueOnError)
	args := []string{
		"-db-path", "flag-journal.db",
		"-speed", "4",
		"-list",
	}
	cfg, err := ParseConfig(fs, args)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.SessionID != "env-session" {
		t.Fatalf("expected env session, got %q", cfg.SessionID)
	}
	if cfg.DBPath != "flag-journal.db" {
		t.Fatalf("expected flag db path, got %q", cfg.DBPath)
	}
	if cfg.Speed != 4 {
		t.Fatalf("expected flag speed, got %v", cfg.Speed)
	}
	if !cfg.List {
		t.Fatal("expected list enabled by flag")
	}
}
