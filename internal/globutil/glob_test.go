package globutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMatch_Star(t *testing.T) {
	ok, err := Match("*.go", "main.go")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match("*.go", "main.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatch_Question(t *testing.T) {
	ok, err := Match("?.txt", "a.txt")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match("?.txt", "ab.txt")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMatch_Class(t *testing.T) {
	ok, err := Match("[a-c].txt", "b.txt")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Match("[!a-c].txt", "b.txt")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = Match("[!a-c].txt", "z.txt")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestHasMeta(t *testing.T) {
	require.True(t, HasMeta("*.go"))
	require.True(t, HasMeta("file?.txt"))
	require.True(t, HasMeta("[abc]"))
	require.False(t, HasMeta("plain.txt"))
}

func TestExpand_NoMatchReturnsLiteral(t *testing.T) {
	dir := t.TempDir()
	matches, err := Expand(dir, filepath.Join(dir, "*.nonexistent"), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "*.nonexistent")}, matches)
}

func TestExpand_NullGlobVanishes(t *testing.T) {
	dir := t.TempDir()
	matches, err := Expand(dir, filepath.Join(dir, "*.nonexistent"), Options{NullGlob: true})
	require.NoError(t, err)
	require.Nil(t, matches)
}

func TestExpand_SortedAndDeduplicated(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.txt", "a.txt", "c.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	matches, err := Expand(dir, filepath.Join(dir, "*.txt"), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{
		filepath.Join(dir, "a.txt"),
		filepath.Join(dir, "b.txt"),
		filepath.Join(dir, "c.txt"),
	}, matches)
}

func TestExpand_DotGlob(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".hidden"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "visible"), []byte("x"), 0o644))

	matches, err := Expand(dir, filepath.Join(dir, "*"), Options{})
	require.NoError(t, err)
	require.Equal(t, []string{filepath.Join(dir, "visible")}, matches)

	matches, err = Expand(dir, filepath.Join(dir, "*"), Options{DotGlob: true})
	require.NoError(t, err)
	require.Len(t, matches, 2)
}
