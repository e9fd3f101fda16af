package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchConfig delivers validated config snapshots whenever the file changes
// on disk. The parent directory is watched, not the file itself, so editors
// and atomic saves that replace the file keep being seen. Change bursts are
// debounced; reloads that fail to parse or validate are logged and dropped.
func watchConfig(ctx context.Context, path string, debounce time.Duration, logger *slog.Logger, updates chan<- *Config) error {
	expanded, err := ExpandPath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(expanded)); err != nil {
		return fmt.Errorf("watch config directory: %w", err)
	}

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(expanded) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watcher error", "error", err)

		case <-pending:
			pending = nil
			cfg, err := LoadConfigFile(expanded)
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			if err := cfg.Validate(); err != nil {
				logger.Warn("reloaded config invalid, keeping current", "error", err)
				continue
			}
			logger.Info("config file changed, reloading")
			select {
			case updates <- cfg:
			case <-ctx.Done():
				return nil
			}
		}
	}
}
