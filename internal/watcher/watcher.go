// Package watcher converts raw file system notifications into discrete,
// debounced batches of changed files while keeping directory coverage in sync
// with a tree that grows and shrinks under it.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync/atomic"
	"time"

	internal "watchtest/internal"

	"github.com/google/uuid"
)

// DefaultConfig returns a default watcher configuration
func DefaultConfig(roots []string, filter PathFilter) WatcherConfig {
	return WatcherConfig{
		Roots:        roots,
		Debounce:     internal.DefaultDebounce,
		PollInterval: internal.DefaultPollInterval,
		Recursive:    true,
		Filter:       filter,
	}
}

// Watcher owns the debounced change-detection loop. A single instance runs a
// single loop; starting it twice is an error, not a silent second loop.
type Watcher struct {
	config  WatcherConfig
	source  Source
	tree    *TreeManager
	running atomic.Bool
}

// NewWatcher creates a watcher from the given configuration, constructing an
// fsnotify source unless one was injected.
func NewWatcher(config WatcherConfig) (*Watcher, error) {
	if config.PollInterval <= 0 {
		config.PollInterval = internal.DefaultPollInterval
	}

	source := config.Source
	if source == nil {
		fsSource, err := NewFSNotifySource()
		if err != nil {
			return nil, err
		}
		source = fsSource
	}

	return &Watcher{
		config: config,
		source: source,
		tree:   NewTreeManager(source, config.Filter, config.Recursive),
	}, nil
}

// Tree exposes the directory registry, mainly for inspection in tests.
func (w *Watcher) Tree() *TreeManager {
	return w.tree
}

// Watch registers the roots and runs the poll/accumulate/emit loop until the
// context is cancelled or, in one-shot mode, until the first non-empty batch
// has been delivered. onChanged is invoked synchronously on the watch
// goroutine with each emitted batch.
func (w *Watcher) Watch(ctx context.Context, onChanged func([]string), watchMode bool) error {
	if !w.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer w.running.Store(false)

	if err := w.tree.Initialize(w.config.Roots); err != nil {
		return err
	}
	slog.Debug("Directory registration complete", "directories", w.tree.Len())

	pending := make(map[string]struct{})
	var order []string
	lastChange := time.Now()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		events, err := w.source.Poll(w.config.PollInterval)
		switch {
		case err == nil:
		case errors.Is(err, ErrOverflow):
			slog.Warn("Notification overflow detected, some file changes may have been missed")
		case errors.Is(err, ErrSourceClosed):
			return nil
		default:
			slog.Warn("Notification source error", "error", err)
		}

		if len(events) > 0 {
			lastChange = time.Now()
		}
		for _, ev := range events {
			w.handleEvent(ev, pending, &order)
		}

		if len(order) == 0 || time.Since(lastChange) < w.config.Debounce {
			continue
		}

		batch := w.finalizeBatch(order)
		pending = make(map[string]struct{})
		order = nil

		if len(batch) == 0 {
			continue
		}

		slog.Debug("Emitting change batch",
			"batch_id", uuid.NewString(),
			"files", len(batch))
		onChanged(batch)

		if !watchMode {
			return nil
		}
	}
}

// Close shuts down the notification source. A running loop observes the
// closed source on its next poll and exits.
func (w *Watcher) Close() error {
	return w.source.Close()
}

// handleEvent folds one notification into the in-flight set. Repeated events
// on the same path collapse to a single entry at its first-seen position.
func (w *Watcher) handleEvent(ev Event, pending map[string]struct{}, order *[]string) {
	info, statErr := os.Stat(ev.Path)

	switch ev.Kind {
	case EventCreate:
		if statErr == nil && info.IsDir() {
			w.tree.OnDirectoryCreated(ev.Path)
			return
		}
	case EventDelete:
		w.tree.OnDirectoryDeleted(ev.Path)
	}

	if statErr != nil || !info.Mode().IsRegular() {
		return
	}
	if _, seen := pending[ev.Path]; seen {
		return
	}
	pending[ev.Path] = struct{}{}
	*order = append(*order, ev.Path)
}

// finalizeBatch freezes the in-flight set into a batch: paths that vanished
// or stopped being regular files are dropped, then the path filter applies.
func (w *Watcher) finalizeBatch(order []string) []string {
	batch := make([]string, 0, len(order))
	for _, path := range order {
		info, err := os.Stat(path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if w.config.Filter != nil && !w.config.Filter.Matches(path) {
			continue
		}
		batch = append(batch, path)
	}
	return batch
}
