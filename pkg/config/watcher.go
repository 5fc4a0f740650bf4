package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long a file must be quiet before reload.
const DefaultDebounceInterval = 250 * time.Millisecond

// WatcherConfig configures a Watcher.
type WatcherConfig struct {
	// Path is the configuration file to watch.
	Path string

	// DebounceInterval collapses bursts of writes into one reload.
	// Default: 250ms
	DebounceInterval time.Duration

	// Logger receives watcher events. Default: slog.Default().
	Logger *slog.Logger
}

// Watcher reloads configuration when its file changes.
//
// The parent directory is watched rather than the file so that editors
// which replace the file by rename are still observed.
type Watcher struct {
	watcher *fsnotify.Watcher
	logger  *slog.Logger
	path    string
	delay   time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	running bool
}

// NewWatcher creates a stopped Watcher.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Path == "" {
		return nil, errors.New("watch path is required")
	}
	if cfg.DebounceInterval <= 0 {
		cfg.DebounceInterval = DefaultDebounceInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %q: %w", cfg.Path, err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		watcher: fw,
		logger:  cfg.Logger.With("component", "config_watcher"),
		path:    abs,
		delay:   cfg.DebounceInterval,
	}, nil
}

// Watch blocks until ctx is cancelled, calling onChange after each settled
// burst of changes. A failing onChange is logged and watching continues.
func (w *Watcher) Watch(ctx context.Context, onChange func() error) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return errors.New("watcher already running")
	}
	w.running = true
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.running = false
		if w.timer != nil {
			w.timer.Stop()
		}
		w.mu.Unlock()
		_ = w.watcher.Close()
	}()

	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.path, err)
	}

	w.logger.Info("config watcher started",
		"path", w.path,
		"debounce_ms", w.delay.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped")
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				return errors.New("watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("config file event", "op", event.Op.String())
			w.schedule(onChange)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return errors.New("watcher errors channel closed")
			}
			w.logger.Error("config watcher error", "error", err)
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

func (w *Watcher) schedule(onChange func() error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.delay, func() {
		if err := onChange(); err != nil {
			w.logger.Error("config reload failed", "error", err)
			return
		}
		w.logger.Info("config reloaded", "path", w.path)
	})
}
