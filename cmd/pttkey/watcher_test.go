package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func startWatcher(t *testing.T, path string) chan *Config {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	updates := make(chan *Config, 1)
	done := make(chan error, 1)
	go func() {
		done <- watchConfig(ctx, path, 20*time.Millisecond, testLogger(), updates)
	}()
	t.Cleanup(func() {
		cancel()
		if err := <-done; err != nil {
			t.Errorf("watcher returned error: %v", err)
		}
	})
	// Give the watch a moment to attach before the test writes.
	time.Sleep(50 * time.Millisecond)
	return updates
}

func waitForUpdate(t *testing.T, updates chan *Config) *Config {
	t.Helper()
	select {
	case cfg := <-updates:
		return cfg
	case <-time.After(5 * time.Second):
		t.Fatal("expected a config update")
		return nil
	}
}

// TestWatchConfigDeliversValidReload verifies an edited file arrives as a
// validated snapshot.
func TestWatchConfigDeliversValidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	if err := SaveConfigFile(path, DefaultConfig()); err != nil {
		t.Fatalf("seeding config: %v", err)
	}
	updates := startWatcher(t, path)

	if err := os.WriteFile(path, []byte("keys: [KEY_F9]\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg := waitForUpdate(t, updates)
	if len(cfg.Keys) != 1 || cfg.Keys[0] != "KEY_F9" {
		t.Fatalf("expected reloaded keys, got %v", cfg.Keys)
	}
}

// TestWatchConfigDropsInvalidReload verifies a broken edit is swallowed and a
// later fix still arrives.
func TestWatchConfigDropsInvalidReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	if err := SaveConfigFile(path, DefaultConfig()); err != nil {
		t.Fatalf("seeding config: %v", err)
	}
	updates := startWatcher(t, path)

	if err := os.WriteFile(path, []byte("keys: [KEY_BOGUS]\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	select {
	case cfg := <-updates:
		t.Fatalf("expected invalid reload to be dropped, got %v", cfg.Keys)
	case <-time.After(300 * time.Millisecond):
	}

	if err := os.WriteFile(path, []byte("keys: [KEY_F10]\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	cfg := waitForUpdate(t, updates)
	if cfg.Keys[0] != "KEY_F10" {
		t.Fatalf("expected the fixed config, got %v", cfg.Keys)
	}
}

// TestWatchConfigIgnoresOtherFiles verifies sibling files in the config
// directory do not trigger reloads.
func TestWatchConfigIgnoresOtherFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, configFileName)
	if err := SaveConfigFile(path, DefaultConfig()); err != nil {
		t.Fatalf("seeding config: %v", err)
	}
	updates := startWatcher(t, path)

	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatalf("writing sibling: %v", err)
	}

	select {
	case cfg := <-updates:
		t.Fatalf("expected no update for sibling file, got %v", cfg.Keys)
	case <-time.After(300 * time.Millisecond):
	}
}
