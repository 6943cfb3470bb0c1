package backend

import (
	"context"
	"path/filepath"
	"testing"

	"gigledger/internal/config"
)

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Fatal("nil config should fail")
	}
	if _, err := FromAppConfig(&config.Config{DataBackend: "sheets"}); err == nil {
		t.Fatal("unknown backend should fail")
	}
	cfg, err := FromAppConfig(&config.Config{DataBackend: "sqlite", SQLiteDBPath: "x.db", DataDir: "seed"})
	if err != nil {
		t.Fatalf("FromAppConfig: %v", err)
	}
	if cfg.Type != SQLiteBackend || cfg.SQLiteDBPath != "x.db" || cfg.DataDirectory != "seed" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestCreate(t *testing.T) {
	ctx := context.Background()

	mem, err := Create(ctx, nil, Config{Type: MemoryBackend, DataDirectory: t.TempDir()})
	if err != nil || mem.Store == nil || mem.Tracker != nil || mem.Cleanup != nil {
		t.Fatalf("memory backend = %+v, %v", mem, err)
	}

	sq, err := Create(ctx, nil, Config{Type: SQLiteBackend, SQLiteDBPath: filepath.Join(t.TempDir(), "l.db")})
	if err != nil {
		t.Fatalf("sqlite backend: %v", err)
	}
	if sq.Tracker == nil {
		t.Fatal("sqlite backend should track export state")
	}
	if err := sq.Cleanup(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}

	if _, err := Create(ctx, nil, Config{Type: "bogus"}); err == nil {
		t.Fatal("bogus backend should fail")
	}
}
