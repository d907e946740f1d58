package watcher

import (
	"errors"
	"time"
)

// EventKind represents the type of file system event
type EventKind int

const (
	// EventCreate represents file/directory creation
	EventCreate EventKind = iota
	// EventModify represents file modification
	EventModify
	// EventDelete represents file/directory removal (renames count as removal
	// of the old name; the new name arrives as a create)
	EventDelete
)

// Event represents a single file system notification
type Event struct {
	Kind      EventKind
	Path      string
	Timestamp time.Time
}

var (
	// ErrAlreadyRunning is returned when Watch is called on an instance whose
	// loop is already running. Two loops would double-register directories.
	ErrAlreadyRunning = errors.New("watcher is already running")

	// ErrOverflow signals that the notification source dropped events.
	// Recoverable: some changes may be missed, but the loop continues.
	ErrOverflow = errors.New("notification source overflowed, some events were dropped")

	// ErrSourceClosed signals that the notification source was shut down.
	ErrSourceClosed = errors.New("notification source is closed")
)

// Source is a pollable stream of file system notifications.
type Source interface {
	// Register adds a single directory to the notification set.
	Register(dir string) error

	// Poll blocks for at most timeout and returns the events observed so far.
	// It may return events together with ErrOverflow when the underlying
	// mechanism dropped notifications.
	Poll(timeout time.Duration) ([]Event, error)

	// Close shuts the source down. A blocked Poll returns ErrSourceClosed.
	Close() error
}

// PathFilter decides which files and directories are of interest.
// Excludes always win over includes.
type PathFilter interface {
	Matches(path string) bool
	MatchesDirectory(path string) bool
}

// WatcherConfig holds configuration for the watcher
type WatcherConfig struct {
	// Roots are the directories to cover.
	Roots []string

	// Debounce is the quiet period after the last event before a batch is
	// emitted. Zero means any poll tick with pending changes emits.
	Debounce time.Duration

	// PollInterval is the notification poll tick. Must be much smaller than
	// Debounce to keep the quiet-period check responsive.
	PollInterval time.Duration

	// Recursive enables coverage of subdirectories, including ones created
	// while watching.
	Recursive bool

	// Filter is applied to files before emission and to directories during
	// registration. Nil means everything is of interest.
	Filter PathFilter

	// Source overrides the notification source. Nil selects fsnotify.
	Source Source
}
