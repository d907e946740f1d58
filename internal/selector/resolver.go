package selector

import (
	"path/filepath"
	"strings"
)

// testSuffixes are the recognized test class naming conventions.
var testSuffixes = []string{"Test", "Tests", "IT", "IntegrationTest"}

// sourceExtensions are the recognized source file extensions.
var sourceExtensions = []string{".java", ".kt"}

// ResolveCandidates infers the test class names a set of changed source files
// could map to, by appending each recognized suffix to the class name and
// qualifying it with the package derived from the file's location under
// sourceRoot. Files that are themselves tests, or that are not recognized
// sources, contribute nothing. The result is deduplicated in first-seen order.
func ResolveCandidates(changedFiles []string, sourceRoot string) []string {
	var (
		candidates []string
		seen       = make(map[string]struct{})
	)
	for _, file := range changedFiles {
		if !IsSourceFile(file) {
			continue
		}
		for _, name := range candidateNames(file, sourceRoot) {
			if _, ok := seen[name]; ok {
				continue
			}
			seen[name] = struct{}{}
			candidates = append(candidates, name)
		}
	}
	return candidates
}

// IsSourceFile reports whether a path is a recognized non-test source file.
// Files already carrying a test suffix are handled directly, not inferred.
func IsSourceFile(path string) bool {
	name := filepath.Base(path)
	for _, suffix := range testSuffixes {
		for _, ext := range sourceExtensions {
			if strings.HasSuffix(name, suffix+ext) {
				return false
			}
		}
	}
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(name, ext) {
			return true
		}
	}
	return false
}

// candidateNames generates the fully qualified candidates for one source file:
// FooTest, FooTests, FooIT, FooIntegrationTest in Foo's package.
func candidateNames(sourcePath, sourceRoot string) []string {
	pkg := PackageName(sourcePath, sourceRoot)
	class := ClassName(sourcePath)

	names := make([]string, 0, len(testSuffixes))
	for _, suffix := range testSuffixes {
		if pkg != "" {
			names = append(names, pkg+"."+class+suffix)
		} else {
			names = append(names, class+suffix)
		}
	}
	return names
}

// ClassName extracts the class name from a file path.
// Example: /path/to/Foo.java -> Foo
func ClassName(path string) string {
	name := filepath.Base(path)
	for _, ext := range sourceExtensions {
		if strings.HasSuffix(name, ext) {
			return strings.TrimSuffix(name, ext)
		}
	}
	return name
}

// PackageName derives the package from a source file's directory relative to
// the source root. Example: <root>/com/example/Foo.java -> com.example.
// Files directly under the root, or outside it, have no package.
func PackageName(sourcePath, sourceRoot string) string {
	parent := filepath.Dir(sourcePath)
	rel, err := filepath.Rel(sourceRoot, parent)
	if err != nil {
		return ""
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return strings.ReplaceAll(rel, string(filepath.Separator), ".")
}

// ToTestParameter joins test class names into the comma-separated form the
// runner passes to Surefire's -Dtest.
func ToTestParameter(testClasses []string) string {
	return strings.Join(testClasses, ",")
}

// SimpleClassName strips the package from a fully qualified class name.
func SimpleClassName(fullyQualifiedName string) string {
	if idx := strings.LastIndex(fullyQualifiedName, "."); idx >= 0 {
		return fullyQualifiedName[idx+1:]
	}
	return fullyQualifiedName
}
