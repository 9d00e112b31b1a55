package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStripLineComments_IgnoresSlashesInsideStrings(t *testing.T) {
	in := []byte(`{
  "theme": "dark", // a comment
  "ps1": "http://example.com"
}`)
	out := stripLineComments(in)
	require.Contains(t, string(out), `"ps1": "http://example.com"`)
	require.NotContains(t, string(out), "a comment")
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	body := `{
  // custom theme
  "theme": "solarized",
  "history_size": 2000,
  "aliases": {"ll": "ls -la"}
}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg := Default()
	require.NoError(t, load(path, cfg))
	require.Equal(t, "solarized", cfg.Theme)
	require.Equal(t, 2000, cfg.HistorySize)
	require.Equal(t, "ls -la", cfg.Aliases["ll"])
	require.Equal(t, `\u@\h \W \$ `, cfg.PS1, "unset fields keep their default")
}

func TestResolve_PrefersDenConfigEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.json")
	require.NoError(t, os.WriteFile(path, []byte(`{}`), 0o644))

	t.Setenv("DEN_CONFIG", path)
	require.Equal(t, path, Resolve())
}

func TestResolve_EmptyWhenNothingExists(t *testing.T) {
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	defer os.Chdir(wd)

	t.Setenv("DEN_CONFIG", "")
	t.Setenv("HOME", dir)
	require.Equal(t, "", Resolve())
}
