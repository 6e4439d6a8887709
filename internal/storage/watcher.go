package storage

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/oracle/internal/shared"
	"github.com/fsnotify/fsnotify"
)

const (
	defaultDebounce     = 100 * time.Millisecond
	defaultPollInterval = 2 * time.Second
	eventBuffer         = 16
)

// Watcher turns durable writes made by other processes into [ChangeEvent] values.
type Watcher struct {
	store        *Store
	logger       *log.Logger
	debounce     time.Duration
	pollInterval time.Duration
	events       chan ChangeEvent

	mu            sync.Mutex
	lastRev       int64
	debounceTimer *time.Timer
	checkMu       sync.Mutex // serializes check so debounce and poll never emit the same diff twice
}

// WatcherOption configures a [Watcher].
type WatcherOption func(*Watcher)

// WithPollInterval sets the fallback poll interval.
func WithPollInterval(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.pollInterval = d
		}
	}
}

// WithDebounce sets how long signal file events are coalesced.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// NewWatcher creates a watcher over store. Call [Watcher.Start] to begin delivering events.
func NewWatcher(store *Store, logger *log.Logger, opts ...WatcherOption) *Watcher {
	if logger == nil {
		logger = log.Default()
	}

	w := &Watcher{
		store:        store,
		logger:       shared.WithLogger(logger, "component", "watcher"),
		debounce:     defaultDebounce,
		pollInterval: defaultPollInterval,
		events:       make(chan ChangeEvent, eventBuffer),
	}
	for _, o := range opts {
		o(w)
	}

	if rev, err := store.Revision(); err == nil {
		w.lastRev = rev
	}
	return w
}

// Events returns the channel events are delivered on. It is closed when Start returns.
func (w *Watcher) Events() <-chan ChangeEvent {
	return w.events
}

// Start watches the signal file and polls as a fallback. It blocks until ctx is cancelled.
//
// If fsnotify cannot be initialized the watcher runs poll-only.
func (w *Watcher) Start(ctx context.Context) {
	defer close(w.events)

	if path := w.store.SignalPath(); path != "" {
		if err := TouchSignal(path, w.lastRev); err != nil {
			w.logger.Warn("failed to create signal file", "path", path, "error", err)
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			w.logger.Warn("fsnotify init failed, using poll-only", "error", err)
		} else if err := watcher.Add(filepath.Dir(path)); err != nil {
			w.logger.Warn("fsnotify add failed, using poll-only", "dir", filepath.Dir(path), "error", err)
			watcher.Close()
		} else {
			defer watcher.Close()
			go w.watchLoop(ctx, watcher, filepath.Base(path))
		}
	}

	w.pollLoop(ctx)

	w.mu.Lock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.mu.Unlock()
	// Wait for an in-flight debounced check before closing the channel.
	w.checkMu.Lock()
	w.checkMu.Unlock()
}

// CheckOnce runs one check cycle synchronously.
func (w *Watcher) CheckOnce(ctx context.Context) {
	w.check(ctx)
}

func (w *Watcher) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, signalName string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != signalName {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.triggerDebounced(ctx)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			w.logger.Debug("fsnotify error", "error", err)
		}
	}
}

func (w *Watcher) triggerDebounced(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.debounceTimer != nil {
		w.debounceTimer.Stop()
	}
	w.debounceTimer = time.AfterFunc(w.debounce, func() {
		w.check(ctx)
	})
}

func (w *Watcher) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	if ctx.Err() != nil {
		return
	}

	rev, err := w.store.Revision()
	if err != nil {
		w.logger.Warn("failed to read revision", "error", err)
		return
	}

	w.mu.Lock()
	if rev == w.lastRev {
		w.mu.Unlock()
		return
	}
	w.lastRev = rev
	w.mu.Unlock()

	events, err := w.store.Changes()
	if err != nil {
		w.logger.Warn("failed to diff storage", "error", err)
		return
	}

	for _, e := range events {
		w.logger.Debug("storage changed", "key", e.Key, "removed", e.Removed())
		select {
		case w.events <- e:
		case <-ctx.Done():
			return
		}
	}
}
