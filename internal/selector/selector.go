// Package selector maps a batch of changed files to the minimal set of test
// identifiers to run: changed test files run directly, changed source files
// run the conventionally named tests that actually exist.
package selector

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Selector turns changed file paths into fully qualified test class names.
type Selector struct {
	sourceRoot string
	testRoot   string
	verbose    bool
}

// New creates a selector over a source root and the test root that mirrors it.
func New(sourceRoot, testRoot string, verbose bool) *Selector {
	return &Selector{
		sourceRoot: sourceRoot,
		testRoot:   testRoot,
		verbose:    verbose,
	}
}

// SelectTests returns the ordered, deduplicated test classes for a batch of
// changed files: identifiers for changed test files first, then verified
// inferred identifiers for changed source files. An empty or fully unmatched
// batch yields an empty result, never an error.
func (s *Selector) SelectTests(changedFiles []string) []string {
	if len(changedFiles) == 0 {
		slog.Info("No changed files detected")
		return nil
	}

	var sourceFiles, testFiles []string
	for _, path := range changedFiles {
		switch {
		case under(s.testRoot, path):
			testFiles = append(testFiles, path)
		case under(s.sourceRoot, path):
			sourceFiles = append(sourceFiles, path)
		}
	}
	slog.Debug("Categorized changed files", "source", len(sourceFiles), "test", len(testFiles))

	var (
		result []string
		seen   = make(map[string]struct{})
	)
	add := func(name string) {
		if _, ok := seen[name]; ok {
			return
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}

	// Changed test files run directly; they were just observed to exist.
	for _, name := range s.classNames(testFiles) {
		add(name)
	}

	// Changed source files run their conventionally named tests, kept only
	// when the test file actually exists under the test root.
	for _, name := range s.filterExisting(ResolveCandidates(sourceFiles, s.sourceRoot)) {
		add(name)
	}

	if len(result) == 0 {
		slog.Debug("No test classes found for changed files")
	} else if s.verbose {
		slog.Info("Selected tests", "classes", result)
	}
	return result
}

// classNames converts test file paths into fully qualified class names by
// relativizing against the test root, stripping the extension and replacing
// separators with dots.
func (s *Selector) classNames(testFiles []string) []string {
	names := make([]string, 0, len(testFiles))
	for _, file := range testFiles {
		rel, err := filepath.Rel(s.testRoot, file)
		if err != nil {
			continue
		}
		for _, ext := range sourceExtensions {
			if strings.HasSuffix(rel, ext) {
				rel = strings.TrimSuffix(rel, ext)
				break
			}
		}
		names = append(names, strings.ReplaceAll(rel, string(filepath.Separator), "."))
	}
	return names
}

// filterExisting keeps only candidates whose source file exists under the
// test root at the path the qualified name maps to.
func (s *Selector) filterExisting(candidates []string) []string {
	existing := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		rel := strings.ReplaceAll(candidate, ".", string(filepath.Separator))
		for _, ext := range sourceExtensions {
			if _, err := os.Stat(filepath.Join(s.testRoot, rel+ext)); err == nil {
				existing = append(existing, candidate)
				break
			}
		}
	}
	return existing
}

// under reports whether path sits inside root.
func under(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
