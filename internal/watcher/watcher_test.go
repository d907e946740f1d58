package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"watchtest/internal/filter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSource feeds scripted event batches to the watch loop, one batch per
// poll. Empty polls sleep for the requested timeout so the loop ticks at a
// realistic pace instead of spinning.
type fakeSource struct {
	mu         sync.Mutex
	registered map[string]bool
	batches    [][]Event
	closed     bool
}

func newFakeSource(batches ...[]Event) *fakeSource {
	return &fakeSource{
		registered: make(map[string]bool),
		batches:    batches,
	}
}

func (f *fakeSource) Register(dir string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registered[dir] = true
	return nil
}

func (f *fakeSource) Poll(timeout time.Duration) ([]Event, error) {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return nil, ErrSourceClosed
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return batch, nil
	}
	f.mu.Unlock()

	time.Sleep(timeout)
	return nil, nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) isRegistered(dir string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registered[dir]
}

func modify(path string) Event {
	return Event{Kind: EventModify, Path: path, Timestamp: time.Now()}
}

func writeFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	return path
}

func testConfig(root string, source Source) WatcherConfig {
	return WatcherConfig{
		Roots:        []string{root},
		Debounce:     30 * time.Millisecond,
		PollInterval: 5 * time.Millisecond,
		Recursive:    true,
		Source:       source,
	}
}

func TestWatcher_OneShotEmitsCoalescedBatch(t *testing.T) {
	root := t.TempDir()
	fileA := writeFile(t, root, "A.java")
	fileB := writeFile(t, root, "B.java")

	source := newFakeSource(
		[]Event{modify(fileA), modify(fileA)},
		[]Event{modify(fileB), modify(fileA)},
	)

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	var batches [][]string
	err = w.Watch(context.Background(), func(files []string) {
		batches = append(batches, files)
	}, false)
	require.NoError(t, err)

	require.Len(t, batches, 1, "bursts coalesce into one batch")
	assert.Equal(t, []string{fileA, fileB}, batches[0])
}

func TestWatcher_BatchesFilteredBeforeEmission(t *testing.T) {
	root := t.TempDir()
	javaFile := writeFile(t, root, "Foo.java")
	textFile := writeFile(t, root, "notes.txt")

	source := newFakeSource([]Event{modify(textFile), modify(javaFile)})

	cfg := testConfig(root, source)
	cfg.Filter = filter.ForTargetCode()

	w, err := NewWatcher(cfg)
	require.NoError(t, err)

	var batch []string
	err = w.Watch(context.Background(), func(files []string) {
		batch = files
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{javaFile}, batch)
}

func TestWatcher_VanishedFilesDroppedAtEmission(t *testing.T) {
	root := t.TempDir()
	kept := writeFile(t, root, "Kept.java")
	doomed := writeFile(t, root, "Doomed.java")

	source := newFakeSource([]Event{modify(doomed), modify(kept)})

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	require.NoError(t, os.Remove(doomed))

	var batch []string
	err = w.Watch(context.Background(), func(files []string) {
		batch = files
	}, false)
	require.NoError(t, err)

	assert.Equal(t, []string{kept}, batch)
}

func TestWatcher_SecondStartReturnsError(t *testing.T) {
	root := t.TempDir()
	source := newFakeSource()

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- w.Watch(ctx, func([]string) {}, true)
	}()

	// Give the first loop time to take ownership.
	time.Sleep(20 * time.Millisecond)
	err = w.Watch(ctx, func([]string) {}, true)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	cancel()
	require.NoError(t, <-done)
}

func TestWatcher_ClosedSourceStopsLoop(t *testing.T) {
	root := t.TempDir()
	source := newFakeSource()

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	require.NoError(t, source.Close())
	require.NoError(t, w.Watch(context.Background(), func([]string) {}, true))
}

func TestWatcher_ContextCancellationStopsLoop(t *testing.T) {
	root := t.TempDir()
	source := newFakeSource()

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.NoError(t, w.Watch(ctx, func([]string) {}, true))
}

func TestWatcher_DirectoryCreationExtendsCoverage(t *testing.T) {
	root := t.TempDir()
	newDir := filepath.Join(root, "com")
	require.NoError(t, os.MkdirAll(newDir, 0o755))
	trigger := writeFile(t, root, "Trigger.java")

	source := newFakeSource([]Event{
		{Kind: EventCreate, Path: newDir, Timestamp: time.Now()},
		modify(trigger),
	})

	w, err := NewWatcher(testConfig(root, source))
	require.NoError(t, err)

	err = w.Watch(context.Background(), func([]string) {}, false)
	require.NoError(t, err)

	assert.True(t, w.Tree().IsRegistered(newDir))
	assert.True(t, source.isRegistered(newDir))
}

func TestTreeManager_InitializeRegistersSubtree(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "com", "example")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	source := newFakeSource()
	tree := NewTreeManager(source, nil, true)

	require.NoError(t, tree.Initialize([]string{root}))

	assert.True(t, tree.IsRegistered(root))
	assert.True(t, tree.IsRegistered(filepath.Join(root, "com")))
	assert.True(t, tree.IsRegistered(sub))
	assert.Equal(t, 3, tree.Len())
}

func TestTreeManager_InitializeSkipsExcludedSubtree(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "src"), 0o755))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target", "classes"), 0o755))

	source := newFakeSource()
	tree := NewTreeManager(source, filter.New(nil, []string{"**/target/**", "**/target/"}), true)

	require.NoError(t, tree.Initialize([]string{root}))

	assert.True(t, tree.IsRegistered(filepath.Join(root, "src")))
	assert.False(t, tree.IsRegistered(filepath.Join(root, "target")))
	assert.False(t, tree.IsRegistered(filepath.Join(root, "target", "classes")))
	assert.False(t, source.isRegistered(filepath.Join(root, "target")))
}

func TestTreeManager_InitializeInvalidRootFails(t *testing.T) {
	source := newFakeSource()
	tree := NewTreeManager(source, nil, true)

	err := tree.Initialize([]string{filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(t, err)
}

func TestTreeManager_InitializeRootMustBeDirectory(t *testing.T) {
	root := t.TempDir()
	file := writeFile(t, root, "plain.txt")

	source := newFakeSource()
	tree := NewTreeManager(source, nil, true)

	err := tree.Initialize([]string{file})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestTreeManager_NonRecursiveRegistersRootOnly(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub"), 0o755))

	source := newFakeSource()
	tree := NewTreeManager(source, nil, false)

	require.NoError(t, tree.Initialize([]string{root}))

	assert.True(t, tree.IsRegistered(root))
	assert.False(t, tree.IsRegistered(filepath.Join(root, "sub")))
	assert.Equal(t, 1, tree.Len())
}

func TestTreeManager_DirectoryDeletionDropsWholeSubtree(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "com")
	deep := filepath.Join(sub, "example")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	source := newFakeSource()
	tree := NewTreeManager(source, nil, true)
	require.NoError(t, tree.Initialize([]string{root}))
	require.Equal(t, 3, tree.Len())

	tree.OnDirectoryDeleted(sub)

	assert.True(t, tree.IsRegistered(root))
	assert.False(t, tree.IsRegistered(sub))
	assert.False(t, tree.IsRegistered(deep))
	assert.Equal(t, 1, tree.Len())
}

func TestTreeManager_DeletionOfUnknownPathIsANoOp(t *testing.T) {
	root := t.TempDir()
	source := newFakeSource()
	tree := NewTreeManager(source, nil, true)
	require.NoError(t, tree.Initialize([]string{root}))

	tree.OnDirectoryDeleted(filepath.Join(root, "never-registered"))
	assert.Equal(t, 1, tree.Len())
}

func TestTreeManager_CreatedExcludedDirectoryIgnored(t *testing.T) {
	root := t.TempDir()
	excluded := filepath.Join(root, "target")
	require.NoError(t, os.MkdirAll(excluded, 0o755))

	source := newFakeSource()
	tree := NewTreeManager(source, filter.New(nil, []string{"**/target/"}), true)
	require.NoError(t, tree.Initialize([]string{root}))

	tree.OnDirectoryCreated(excluded)
	assert.False(t, tree.IsRegistered(excluded))
}

// End-to-end against the real notification backend. Timings are generous to
// stay stable on slow CI filesystems.
func TestWatcher_RealSourceDetectsWrite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping notification backend test in short mode")
	}

	root := t.TempDir()
	w, err := NewWatcher(WatcherConfig{
		Roots:        []string{root},
		Debounce:     100 * time.Millisecond,
		PollInterval: 20 * time.Millisecond,
		Recursive:    true,
	})
	require.NoError(t, err)
	defer w.Close()

	batches := make(chan []string, 1)
	done := make(chan error, 1)
	go func() {
		done <- w.Watch(context.Background(), func(files []string) {
			batches <- files
		}, false)
	}()

	// Let the loop register the root before producing the change.
	time.Sleep(150 * time.Millisecond)
	path := writeFile(t, root, "Foo.java")

	select {
	case batch := <-batches:
		assert.Equal(t, []string{path}, batch)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for change batch")
	}
	require.NoError(t, <-done)
}
