package selector

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveCandidates_GeneratesAllSuffixes(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "java")
	file := filepath.Join(sourceRoot, "com", "example", "Foo.java")

	candidates := ResolveCandidates([]string{file}, sourceRoot)

	assert.Equal(t, []string{
		"com.example.FooTest",
		"com.example.FooTests",
		"com.example.FooIT",
		"com.example.FooIntegrationTest",
	}, candidates)
}

func TestResolveCandidates_RootPackageHasNoQualifier(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "java")
	file := filepath.Join(sourceRoot, "Foo.java")

	candidates := ResolveCandidates([]string{file}, sourceRoot)

	assert.Equal(t, []string{"FooTest", "FooTests", "FooIT", "FooIntegrationTest"}, candidates)
}

func TestResolveCandidates_SkipsTestFiles(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "java")

	for _, name := range []string{"FooTest.java", "FooTests.kt", "FooIT.java", "FooIntegrationTest.kt"} {
		file := filepath.Join(sourceRoot, "com", "example", name)
		assert.Empty(t, ResolveCandidates([]string{file}, sourceRoot), name)
	}
}

func TestResolveCandidates_SkipsNonSourceFiles(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "java")

	files := []string{
		filepath.Join(sourceRoot, "README.md"),
		filepath.Join(sourceRoot, "com", "example", "app.properties"),
	}
	assert.Empty(t, ResolveCandidates(files, sourceRoot))
}

func TestResolveCandidates_DeduplicatesAcrossFiles(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "java")
	file := filepath.Join(sourceRoot, "com", "example", "Foo.java")

	candidates := ResolveCandidates([]string{file, file}, sourceRoot)

	assert.Len(t, candidates, 4)
}

func TestResolveCandidates_KotlinSources(t *testing.T) {
	sourceRoot := filepath.Join("/project", "src", "main", "kotlin")
	file := filepath.Join(sourceRoot, "com", "example", "Bar.kt")

	candidates := ResolveCandidates([]string{file}, sourceRoot)

	assert.Contains(t, candidates, "com.example.BarTest")
	assert.Contains(t, candidates, "com.example.BarIntegrationTest")
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "Foo", ClassName(filepath.Join("/a", "b", "Foo.java")))
	assert.Equal(t, "Bar", ClassName(filepath.Join("/a", "b", "Bar.kt")))
	assert.Equal(t, "Makefile", ClassName(filepath.Join("/a", "Makefile")))
}

func TestPackageName(t *testing.T) {
	root := filepath.Join("/project", "src", "main", "java")

	assert.Equal(t, "com.example",
		PackageName(filepath.Join(root, "com", "example", "Foo.java"), root))
	assert.Equal(t, "",
		PackageName(filepath.Join(root, "Foo.java"), root))
	assert.Equal(t, "",
		PackageName(filepath.Join("/elsewhere", "Foo.java"), root))
}

func TestToTestParameter(t *testing.T) {
	assert.Equal(t, "a.FooTest,b.BarTest", ToTestParameter([]string{"a.FooTest", "b.BarTest"}))
	assert.Equal(t, "", ToTestParameter(nil))
}

func TestSimpleClassName(t *testing.T) {
	assert.Equal(t, "FooTest", SimpleClassName("com.example.FooTest"))
	assert.Equal(t, "FooTest", SimpleClassName("FooTest"))
}
