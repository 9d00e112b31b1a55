package completion

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClassify_CommandPosition(t *testing.T) {
	kind, word, start := Classify(Request{Buffer: "gi", Cursor: 2})
	require.Equal(t, KindCommand, kind)
	require.Equal(t, "gi", word)
	require.Equal(t, 0, start)
}

func TestClassify_AfterPipeIsCommandPosition(t *testing.T) {
	buf := "cat f | gr"
	kind, word, _ := Classify(Request{Buffer: buf, Cursor: len(buf)})
	require.Equal(t, KindCommand, kind)
	require.Equal(t, "gr", word)
}

func TestClassify_FileArgument(t *testing.T) {
	buf := "cat READ"
	kind, word, start := Classify(Request{Buffer: buf, Cursor: len(buf)})
	require.Equal(t, KindFile, kind)
	require.Equal(t, "READ", word)
	require.Equal(t, 4, start)
}

func TestClassify_DirectoryArgumentForCd(t *testing.T) {
	buf := "cd src"
	kind, _, _ := Classify(Request{Buffer: buf, Cursor: len(buf)})
	require.Equal(t, KindDirectory, kind)

	buf = "pushd src"
	kind, _, _ = Classify(Request{Buffer: buf, Cursor: len(buf)})
	require.Equal(t, KindDirectory, kind)
}

func TestClassify_Variable(t *testing.T) {
	buf := "echo $HO"
	kind, word, _ := Classify(Request{Buffer: buf, Cursor: len(buf)})
	require.Equal(t, KindVariable, kind)
	require.Equal(t, "$HO", word)
}

func TestRank_ExactMatchFirst(t *testing.T) {
	cands := []Candidate{
		{Text: "git-lfs"},
		{Text: "git"},
		{Text: "github-cli"},
	}
	ranked := rank(cands, "git", nil)
	require.Equal(t, "git", ranked[0].Text)
}

func TestRank_FrequencyBreaksTies(t *testing.T) {
	cands := []Candidate{
		{Text: "grep"},
		{Text: "grex"},
	}
	ranked := rank(cands, "gre", map[string]int{"grex": 50})
	require.Equal(t, "grex", ranked[0].Text)
}

func TestRank_LexicographicFallback(t *testing.T) {
	cands := []Candidate{
		{Text: "lsb"},
		{Text: "lsa"},
	}
	ranked := rank(cands, "ls", nil)
	require.Equal(t, "lsa", ranked[0].Text)
	require.Equal(t, "lsb", ranked[1].Text)
}

func TestScanDirs_MergesAcrossDirectories(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dirA, "tool-one"), []byte{}, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dirB, "tool-two"), []byte{}, 0o755))

	found := scanDirs([]string{dirA, dirB}, "tool-", false)
	names := map[string]bool{}
	for _, c := range found {
		names[c.Text] = true
	}
	require.True(t, names["tool-one"])
	require.True(t, names["tool-two"])
}

func TestScanDirs_DirsOnly(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "subdir"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "subfile"), []byte{}, 0o644))

	found := scanDirs([]string{dir}, "sub", true)
	require.Len(t, found, 1)
	require.Equal(t, "subdir", found[0].Text)
	require.True(t, found[0].IsDir)
}

func TestAbbreviateDir_UnambiguousSegments(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "projects", "denshell"), 0o755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(cwd) })

	got := abbreviateDir("pro/den/")
	require.Equal(t, filepath.Join("projects", "denshell"), got)
}

func TestAbbreviateDir_AmbiguousSegmentLeftLiteral(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "proja"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(root, "projb"), 0o755))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() { os.Chdir(cwd) })

	got := abbreviateDir("proj/")
	require.Equal(t, "proj", got)
}
