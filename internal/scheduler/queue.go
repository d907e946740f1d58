// Package scheduler serializes test execution against a thread-safe
// pending-changes queue: at most one run in flight, and no change observed
// during a run is ever lost.
package scheduler

import (
	"sync"
)

// Scheduler is the pending queue plus the single-flight run flag. Both live
// under one mutex so no observer ever sees the queue and the flag disagree.
// The queue is an ordered set: enqueuing a path any number of times yields
// exactly one entry at its first-seen position.
type Scheduler struct {
	mu      sync.Mutex
	pending []string
	index   map[string]struct{}
	running bool
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{index: make(map[string]struct{})}
}

// Enqueue unions paths into the pending queue and reports whether a run was
// in flight at that instant, in the same critical section. Empty input and
// empty elements are ignored.
func (s *Scheduler) Enqueue(paths []string) bool {
	if len(paths) == 0 {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.addAll(paths)
	return s.running
}

// Dequeue atomically snapshots and clears the queue, preserving first-seen
// order. An empty queue yields an empty, non-nil slice.
func (s *Scheduler) Dequeue() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]string, len(s.pending))
	copy(result, s.pending)

	s.pending = s.pending[:0]
	clear(s.index)
	return result
}

// RequeueAtFront reinstates a previously dequeued batch ahead of anything
// enqueued meanwhile: batch order first, then the prior queue contents.
// Empty input and empty elements are ignored, never an error.
func (s *Scheduler) RequeueAtFront(paths []string) {
	if len(paths) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tail := s.pending
	s.pending = make([]string, 0, len(paths)+len(tail))
	clear(s.index)

	s.addAll(paths)
	s.addAll(tail)
}

// MarkRunning records that a run started. Idempotent.
func (s *Scheduler) MarkRunning() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = true
}

// MarkComplete records that the in-flight run finished. Idempotent.
func (s *Scheduler) MarkComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
}

// IsEmpty reports whether the queue holds no paths.
func (s *Scheduler) IsEmpty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending) == 0
}

// IsRunning reports whether a run is in flight.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Clear discards all pending paths without returning them.
func (s *Scheduler) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = s.pending[:0]
	clear(s.index)
}

// addAll unions paths into the queue. Callers hold the lock.
func (s *Scheduler) addAll(paths []string) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, ok := s.index[p]; ok {
			continue
		}
		s.index[p] = struct{}{}
		s.pending = append(s.pending, p)
	}
}
