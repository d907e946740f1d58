package watcher

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	radix "github.com/armon/go-radix"
	"github.com/sourcegraph/conc/pool"
)

// TreeManager keeps the set of registered directories in sync with a
// growing and shrinking tree. Registered paths are held in a radix tree so
// that removing a directory drops the bookkeeping for its whole subtree with
// one prefix operation.
type TreeManager struct {
	source    Source
	filter    PathFilter
	recursive bool

	mu       sync.Mutex
	registry *radix.Tree
}

// NewTreeManager creates a tree manager over the given notification source.
func NewTreeManager(source Source, filter PathFilter, recursive bool) *TreeManager {
	return &TreeManager{
		source:    source,
		filter:    filter,
		recursive: recursive,
		registry:  radix.New(),
	}
}

// Initialize registers every root. Roots fan out across a bounded pool; a
// root that cannot be registered is fatal, a subdirectory that cannot be
// registered is logged and skipped.
func (m *TreeManager) Initialize(roots []string) error {
	p := pool.New().WithErrors()
	for _, root := range roots {
		p.Go(func() error {
			info, err := os.Stat(root)
			if err != nil {
				return fmt.Errorf("invalid watch root %s: %w", root, err)
			}
			if !info.IsDir() {
				return fmt.Errorf("watch root is not a directory: %s", root)
			}
			if err := m.registerTree(root, true); err != nil {
				return err
			}
			slog.Debug("Registered watch root", "root", root)
			return nil
		})
	}
	return p.Wait()
}

// OnDirectoryCreated registers a directory that appeared while watching,
// keeping recursive coverage current without a full rescan. Failures here are
// recoverable: logged, never fatal.
func (m *TreeManager) OnDirectoryCreated(path string) {
	if !m.recursive {
		return
	}
	if m.filter != nil && m.filter.MatchesDirectory(path) {
		slog.Debug("Skipping newly created excluded directory", "path", path)
		return
	}
	if err := m.registerTree(path, false); err != nil {
		slog.Warn("Failed to register created directory", "path", path, "error", err)
	}
}

// OnDirectoryDeleted drops bookkeeping for a directory and everything under
// it. The notification mechanism invalidates its own handles when a watched
// directory disappears; only our registry needs cleaning.
func (m *TreeManager) OnDirectoryDeleted(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.registry.Get(path); !ok {
		return
	}
	m.registry.Delete(path)
	removed := m.registry.DeletePrefix(path + string(os.PathSeparator))
	slog.Debug("Dropped stale directory registrations", "path", path, "subdirs", removed)
}

// IsRegistered reports whether a directory is currently registered.
func (m *TreeManager) IsRegistered(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.registry.Get(path)
	return ok
}

// Len returns the number of registered directories.
func (m *TreeManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.registry.Len()
}

// registerTree registers a directory and, when recursive, its subtree.
// Excluded subtrees are skipped entirely: not descended, not registered.
// When strictRoot is set a registration failure of the root itself is
// returned; sibling/subdirectory failures are always non-fatal.
func (m *TreeManager) registerTree(root string, strictRoot bool) error {
	if !m.recursive {
		return m.registerSingle(root, strictRoot)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			slog.Warn("Cannot walk directory", "path", path, "error", err)
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if m.filter != nil && m.filter.MatchesDirectory(path) {
			slog.Debug("Skipping excluded directory", "path", path)
			return fs.SkipDir
		}
		return m.registerSingle(path, strictRoot && path == root)
	})
}

func (m *TreeManager) registerSingle(dir string, strict bool) error {
	if err := m.source.Register(dir); err != nil {
		if strict {
			return err
		}
		slog.Warn("Failed to register directory, continuing with siblings", "path", dir, "error", err)
		return nil
	}

	m.mu.Lock()
	m.registry.Insert(dir, struct{}{})
	m.mu.Unlock()
	return nil
}
