// Package filter decides which changed paths are worth reacting to.
// Patterns use gitignore-style glob syntax; excludes always win and an empty
// include list means "include everything not excluded".
package filter

import (
	ignore "github.com/sabhiram/go-gitignore"
)

// PathFilter matches file and directory paths against include/exclude
// pattern sets.
type PathFilter struct {
	includes *ignore.GitIgnore
	excludes *ignore.GitIgnore

	hasIncludes bool
	hasExcludes bool
}

// New builds a PathFilter from glob pattern lists. Nil or empty slices are
// valid and mean "no patterns of that kind".
func New(includes, excludes []string) *PathFilter {
	f := &PathFilter{
		hasIncludes: len(includes) > 0,
		hasExcludes: len(excludes) > 0,
	}
	if f.hasIncludes {
		f.includes = ignore.CompileIgnoreLines(includes...)
	}
	if f.hasExcludes {
		f.excludes = ignore.CompileIgnoreLines(excludes...)
	}
	return f
}

// ForTargetCode returns the default filter: Java and Kotlin sources,
// test files included, nothing excluded.
func ForTargetCode() *PathFilter {
	return New([]string{"**/*.java", "**/*.kt"}, nil)
}

// Matches reports whether a file path passes the filter.
// Excludes take precedence over includes.
func (f *PathFilter) Matches(path string) bool {
	if f.hasExcludes && f.excludes.MatchesPath(path) {
		return false
	}
	if !f.hasIncludes {
		return true
	}
	return f.includes.MatchesPath(path)
}

// MatchesDirectory reports whether a directory matches an exclude pattern and
// should therefore be skipped wholesale. The path is checked both as-is and
// with a trailing slash so that directory patterns like "target/" match.
func (f *PathFilter) MatchesDirectory(path string) bool {
	if !f.hasExcludes {
		return false
	}
	if f.excludes.MatchesPath(path) {
		return true
	}
	return f.excludes.MatchesPath(path + "/")
}
