package watcher

import (
	"errors"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FSNotifySource adapts fsnotify's channel-based API to the poll model the
// watch loop is built around.
type FSNotifySource struct {
	watcher *fsnotify.Watcher
}

// NewFSNotifySource creates a new fsnotify-backed notification source
func NewFSNotifySource() (*FSNotifySource, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	return &FSNotifySource{watcher: fsWatcher}, nil
}

// Register adds a single directory to the notification set. fsnotify is not
// recursive, so the caller registers each directory of a tree individually.
func (s *FSNotifySource) Register(dir string) error {
	if err := s.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to register directory %s: %w", dir, err)
	}
	return nil
}

// Poll blocks until an event arrives or the timeout elapses, then drains
// whatever else is already queued without blocking again. When the kernel
// queue overflowed, the collected events are returned together with
// ErrOverflow so the caller can log the loss and keep going.
func (s *FSNotifySource) Poll(timeout time.Duration) ([]Event, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var (
		events   []Event
		overflow bool
	)

	select {
	case ev, ok := <-s.watcher.Events:
		if !ok {
			return nil, ErrSourceClosed
		}
		if e, relevant := convertEvent(ev); relevant {
			events = append(events, e)
		}
	case err, ok := <-s.watcher.Errors:
		if !ok {
			return nil, ErrSourceClosed
		}
		if errors.Is(err, fsnotify.ErrEventOverflow) {
			return nil, ErrOverflow
		}
		return nil, err
	case <-timer.C:
		return nil, nil
	}

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return events, ErrSourceClosed
			}
			if e, relevant := convertEvent(ev); relevant {
				events = append(events, e)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return events, ErrSourceClosed
			}
			if errors.Is(err, fsnotify.ErrEventOverflow) {
				overflow = true
			}
		default:
			if overflow {
				return events, ErrOverflow
			}
			return events, nil
		}
	}
}

// Close shuts down the underlying fsnotify watcher.
func (s *FSNotifySource) Close() error {
	return s.watcher.Close()
}

// convertEvent maps an fsnotify event onto the create/modify/delete model.
// Chmod noise is dropped; a rename is a delete of the old name, the new name
// shows up as a separate create.
func convertEvent(event fsnotify.Event) (Event, bool) {
	var kind EventKind

	switch {
	case event.Has(fsnotify.Create):
		kind = EventCreate
	case event.Has(fsnotify.Write):
		kind = EventModify
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		kind = EventDelete
	default:
		return Event{}, false
	}

	return Event{
		Kind:      kind,
		Path:      event.Name,
		Timestamp: time.Now(),
	}, true
}
