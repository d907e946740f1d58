package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestForTargetCode_MatchesJVMSources(t *testing.T) {
	f := ForTargetCode()

	assert.True(t, f.Matches("src/main/java/com/example/Foo.java"))
	assert.True(t, f.Matches("src/main/kotlin/com/example/Bar.kt"))
	assert.True(t, f.Matches("Root.java"))

	assert.False(t, f.Matches("src/main/resources/app.properties"))
	assert.False(t, f.Matches("README.md"))
	assert.False(t, f.Matches("pom.xml"))
}

func TestMatches_EmptyIncludesMeansEverything(t *testing.T) {
	f := New(nil, nil)

	assert.True(t, f.Matches("anything.txt"))
	assert.True(t, f.Matches("deep/nested/path.bin"))
}

func TestMatches_ExcludesWinOverIncludes(t *testing.T) {
	f := New([]string{"**/*.java"}, []string{"**/generated/**"})

	assert.True(t, f.Matches("src/main/java/Foo.java"))
	assert.False(t, f.Matches("src/main/java/generated/Foo.java"))
}

func TestMatches_ExcludeOnly(t *testing.T) {
	f := New(nil, []string{"*.tmp"})

	assert.True(t, f.Matches("Foo.java"))
	assert.False(t, f.Matches("scratch.tmp"))
}

func TestMatchesDirectory_DirectoryPatterns(t *testing.T) {
	f := New(nil, []string{"target/", "**/node_modules/**"})

	assert.True(t, f.MatchesDirectory("target"))
	assert.True(t, f.MatchesDirectory("web/node_modules/lib"))
	assert.False(t, f.MatchesDirectory("src"))
}

func TestMatchesDirectory_NoExcludesNeverSkips(t *testing.T) {
	f := New([]string{"**/*.java"}, nil)

	assert.False(t, f.MatchesDirectory("target"))
	assert.False(t, f.MatchesDirectory("src/main/java"))
}
