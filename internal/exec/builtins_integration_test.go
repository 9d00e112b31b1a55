package exec

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/history"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/state"
)

func TestBuiltin_CdAndPwd(t *testing.T) {
	ex, out, _ := newTestExecutor()
	dir := t.TempDir()
	status, err := ex.RunLine("cd " + dir + "; pwd")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	resolved, _ := filepath.EvalSymlinks(dir)
	got, _ := filepath.EvalSymlinks(lastLine(out.String()))
	require.Equal(t, resolved, got)
}

func TestBuiltin_CdDashReturnsToOldPwd(t *testing.T) {
	ex, out, _ := newTestExecutor()
	start := ex.St.Cwd
	dir := t.TempDir()
	_, err := ex.RunLine("cd " + dir)
	require.NoError(t, err)
	out.Reset()
	_, err = ex.RunLine("cd -; pwd")
	require.NoError(t, err)
	resolvedStart, _ := filepath.EvalSymlinks(start)
	got, _ := filepath.EvalSymlinks(lastLine(out.String()))
	require.Equal(t, resolvedStart, got)
}

// lastLine returns the final non-empty line of s, since some builtins
// (e.g. `cd -`) write more than one line of output.
func lastLine(s string) string {
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	return lines[len(lines)-1]
}

func TestBuiltin_EchoDashN(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("echo -n hi")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "hi", out.String())
}

func TestBuiltin_Printf(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine(`printf "%s=%d\n" foo 42`)
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "foo=42\n", out.String())
}

func TestBuiltin_ExportUnset(t *testing.T) {
	ex, _, _ := newTestExecutor()
	_, err := ex.RunLine("export FOO=bar")
	require.NoError(t, err)
	v, ok := ex.St.Env["FOO"]
	require.True(t, ok)
	require.Equal(t, "bar", v)

	_, err = ex.RunLine("unset FOO")
	require.NoError(t, err)
	_, ok = ex.St.Env["FOO"]
	require.False(t, ok)
}

func TestBuiltin_Readonly(t *testing.T) {
	ex, _, errw := newTestExecutor()
	_, err := ex.RunLine("readonly FOO=bar")
	require.NoError(t, err)
	status, err := ex.RunLine("FOO=baz")
	require.NoError(t, err)
	require.NotEqual(t, 0, status)
	require.NotEmpty(t, errw.String())
}

func TestBuiltin_AliasExpansion(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("alias ll='echo listing'")
	require.NoError(t, err)
	status, err := ex.RunLine("ll")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "listing\n", out.String())
}

func TestBuiltin_SetDashEToggles(t *testing.T) {
	ex, _, _ := newTestExecutor()
	_, err := ex.RunLine("set -e")
	require.NoError(t, err)
	require.True(t, ex.St.Options.Flag("errexit"))
	_, err = ex.RunLine("set +e")
	require.NoError(t, err)
	require.False(t, ex.St.Options.Flag("errexit"))
}

func TestBuiltin_ShoptTogglesNamedOption(t *testing.T) {
	ex, _, _ := newTestExecutor()
	_, err := ex.RunLine("shopt -s nullglob")
	require.NoError(t, err)
	require.True(t, ex.St.Options.Named("nullglob"))
}

func TestBuiltin_ReadAssignsVariableFromStdin(t *testing.T) {
	st := state.New()
	st.History = history.New("", 500)
	jc := jobctl.New(0, false)
	out := &bytes.Buffer{}
	errw := &bytes.Buffer{}
	ex := New(st, jc, strings.NewReader("hello world\n"), out, errw)
	ex.Interactive = false

	status, err := ex.RunLine("read x y; echo $x-$y")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "hello-world\n", out.String())
}

func TestBuiltin_SourceRunsFileInCurrentShell(t *testing.T) {
	ex, out, _ := newTestExecutor()
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sh")
	require.NoError(t, os.WriteFile(path, []byte("FOO=bar\necho $FOO\n"), 0o644))
	status, err := ex.RunLine("source " + path)
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "bar\n", out.String())
	v, ok := ex.St.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "bar", v)
}

func TestBuiltin_GetoptsParsesFlags(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine(`set -- -a -b x; while getopts ab: opt; do echo "opt=$opt"; done`)
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Contains(t, out.String(), "opt=a")
	require.Contains(t, out.String(), "opt=b")
}

func TestBuiltin_LocalShadowsOuterVariable(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("x=outer; f() { local x=inner; echo $x; }; f; echo $x")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "inner\nouter\n", out.String())
}

func TestBuiltin_AliasBodyWithPipelineSyntax(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("alias count='echo -n hello | wc -c'")
	require.NoError(t, err)
	status, err := ex.RunLine("count")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "5", strings.TrimSpace(out.String()))
}

func TestBuiltin_AliasAppendsRemainingWords(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("alias greet='echo hello'")
	require.NoError(t, err)
	_, err = ex.RunLine("greet world")
	require.NoError(t, err)
	require.Equal(t, "hello world\n", out.String())
}

func TestBuiltin_AliasSelfReferenceDoesNotRecurse(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("alias echo='echo prefixed'")
	require.NoError(t, err)
	status, err := ex.RunLine("echo hi")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "prefixed hi\n", out.String())
}
