package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Loader reads the config file, caches the last good state, and can
// watch the file for changes.
type Loader struct {
	path string
	log  *slog.Logger

	mu   sync.Mutex
	last atomic.Pointer[Config]
}

// LoaderOption customizes loader behaviour.
type LoaderOption func(*Loader)

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log *slog.Logger) LoaderOption {
	return func(l *Loader) { l.log = log }
}

// NewLoader wires a loader for the given config file path. A missing
// file is not an error; Load then yields Default with env overrides.
func NewLoader(path string, opts ...LoaderOption) (*Loader, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("config: resolve path: %w", err)
	}
	l := &Loader{path: abs, log: slog.Default()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the absolute config file path.
func (l *Loader) Path() string { return l.path }

// Last returns the most recent valid configuration.
func (l *Loader) Last() (Config, bool) {
	cfg := l.last.Load()
	if cfg == nil {
		return Config{}, false
	}
	return *cfg, true
}

// Load parses the file and caches the result.
func (l *Loader) Load() (Config, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		data = nil
	default:
		return Config{}, fmt.Errorf("config: read %s: %w", l.path, err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}
	l.last.Store(&cfg)
	return cfg, nil
}

// Reload refreshes configuration, keeping the last good state on error.
func (l *Loader) Reload() (Config, error) {
	prev, ok := l.Last()
	cfg, err := l.Load()
	if err != nil {
		if ok {
			return prev, fmt.Errorf("config: reload failed, keeping last good: %w", err)
		}
		return Config{}, err
	}
	return cfg, nil
}

// Watch reloads the config whenever the file changes, invoking onChange
// with each new valid configuration. It blocks until ctx is done.
func (l *Loader) Watch(ctx context.Context, onChange func(Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory: editors replace files rather than write
	// them in place, which drops a file-level watch.
	if err := watcher.Add(filepath.Dir(l.path)); err != nil {
		return fmt.Errorf("config: watch %s: %w", filepath.Dir(l.path), err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Name != l.path || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			cfg, err := l.Reload()
			if err != nil {
				l.log.Warn("config reload failed", "path", l.path, "error", err)
				continue
			}
			l.log.Info("config reloaded", "path", l.path, "version", cfg.Version)
			if onChange != nil {
				onChange(cfg)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("config watcher error", "error", err)
		}
	}
}
