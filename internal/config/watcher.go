package config

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called with every successfully reloaded configuration
type ReloadFunc func(cfg *Config)

// Watcher keeps the latest valid configuration loaded from a file and
// notifies subscribers when the file changes
type Watcher struct {
	mu       sync.RWMutex
	config   *Config
	path     string
	onReload []ReloadFunc

	watcherMu sync.Mutex
	watcher   *fsnotify.Watcher
}

// NewWatcher loads the initial configuration from path
func NewWatcher(path string, onReload ...ReloadFunc) (*Watcher, error) {
	w := &Watcher{
		path:     path,
		onReload: onReload,
	}

	cfg, err := w.load()
	if err != nil {
		return nil, fmt.Errorf("failed to load initial configuration: %w", err)
	}
	w.config = cfg

	return w, nil
}

// Config returns the current configuration
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) load() (*Config, error) {
	return LoadConfig(WithConfigPath(w.path))
}

// Reload reads the file and applies it if valid. An invalid file leaves the
// previous configuration active.
func (w *Watcher) Reload() error {
	cfg, err := w.load()
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.config = cfg
	w.mu.Unlock()

	slog.Info("Configuration reloaded", "path", w.path)

	w.mu.RLock()
	callbacks := append([]ReloadFunc(nil), w.onReload...)
	w.mu.RUnlock()
	for _, fn := range callbacks {
		fn(cfg)
	}
	return nil
}

// OnReload registers fn to be called after every successful reload
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onReload = append(w.onReload, fn)
}

// Watch observes the configuration file until ctx is cancelled
func (w *Watcher) Watch(ctx context.Context) error {
	w.watcherMu.Lock()
	if w.watcher != nil {
		w.watcherMu.Unlock()
		return fmt.Errorf("config watcher is already running")
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		w.watcherMu.Unlock()
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.watcher = watcher
	w.watcherMu.Unlock()

	if err := watcher.Add(w.path); err != nil {
		return fmt.Errorf("failed to watch config file %s: %w", w.path, err)
	}

	slog.Info("Watching configuration file", "path", w.path)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := w.Reload(); err != nil {
					slog.Error("Failed to reload configuration, keeping previous", "error", err)
				}
			}

			// Editors and ConfigMap updates replace the file
			if event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename) {
				_ = watcher.Add(w.path)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("File watcher error", "error", err)
		}
	}
}

// Close stops the file watcher if active
func (w *Watcher) Close() error {
	w.watcherMu.Lock()
	defer w.watcherMu.Unlock()

	if w.watcher == nil {
		return nil
	}
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close file watcher: %w", err)
	}
	w.watcher = nil
	return nil
}
