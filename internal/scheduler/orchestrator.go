package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// TestSelector maps a batch of changed files to test identifiers.
type TestSelector interface {
	SelectTests(changedFiles []string) []string
}

// TestRunner executes a set of test identifiers. The bool result is the test
// outcome; the error covers failures to execute at all.
type TestRunner interface {
	Execute(ctx context.Context, testClasses []string) (bool, error)
}

// ErrTestsFailed is returned in one-shot mode when the selected tests fail.
var ErrTestsFailed = errors.New("tests failed")

// Orchestrator drives the select→execute→requeue-on-failure loop over the
// scheduler's queue. One orchestrator per watch session.
type Orchestrator struct {
	queue     *Scheduler
	selector  TestSelector
	runner    TestRunner
	watchMode bool
}

// NewOrchestrator wires the queue, selector and runner together.
// watchMode selects continuous draining; one-shot processes a single batch
// and surfaces failure to the caller.
func NewOrchestrator(queue *Scheduler, selector TestSelector, runner TestRunner, watchMode bool) *Orchestrator {
	return &Orchestrator{
		queue:     queue,
		selector:  selector,
		runner:    runner,
		watchMode: watchMode,
	}
}

// HandleBatch is the batch-ready callback. While a run is in flight the batch
// is only enqueued; otherwise the queue is drained one dequeued batch at a
// time, with exactly one run in flight system-wide. A failed run puts its
// batch back at the front and stops draining until the next trigger.
func (o *Orchestrator) HandleBatch(ctx context.Context, changedFiles []string) error {
	if len(changedFiles) == 0 {
		return nil
	}

	if o.watchMode && o.queue.IsRunning() {
		slog.Info("Test run in progress, queueing changes", "files", len(changedFiles))
		o.queue.Enqueue(changedFiles)
		return nil
	}

	if !o.watchMode {
		return o.runOnce(ctx, changedFiles)
	}

	o.queue.Enqueue(changedFiles)

	for !o.queue.IsEmpty() {
		batch := o.queue.Dequeue()
		slog.Info("Processing changed files from queue", "count", len(batch))

		o.queue.MarkRunning()
		passed, err := o.selectAndRun(ctx, batch)
		if err == nil && !passed {
			slog.Warn("Tests failed, preserving queue until next change")
			o.queue.RequeueAtFront(batch)
		}
		o.queue.MarkComplete()

		if err != nil {
			return fmt.Errorf("test execution failed: %w", err)
		}
		if !passed {
			break
		}
	}
	return nil
}

// runOnce is the one-shot path: no queue, a failure is the caller's problem.
func (o *Orchestrator) runOnce(ctx context.Context, changedFiles []string) error {
	passed, err := o.selectAndRun(ctx, changedFiles)
	if err != nil {
		return fmt.Errorf("test execution failed: %w", err)
	}
	if !passed {
		return ErrTestsFailed
	}
	return nil
}

func (o *Orchestrator) selectAndRun(ctx context.Context, batch []string) (bool, error) {
	testClasses := o.selector.SelectTests(batch)
	if len(testClasses) == 0 {
		slog.Info("No tests to run for these changes")
		return true, nil
	}
	return o.runner.Execute(ctx, testClasses)
}
