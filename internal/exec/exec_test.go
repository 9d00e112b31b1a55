package exec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/history"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/state"
)

// newTestExecutor builds an Executor with in-memory stdio, matching how
// cmd/den wires one but without touching the real terminal.
// History persistence is disabled (empty path) so tests never touch the
// real filesystem's history file.
func newTestExecutor() (*Executor, *bytes.Buffer, *bytes.Buffer) {
	st := state.New()
	st.History = history.New("", 500)
	jc := jobctl.New(0, false)
	out := &bytes.Buffer{}
	errw := &bytes.Buffer{}
	ex := New(st, jc, bytes.NewReader(nil), out, errw)
	ex.Interactive = false
	return ex, out, errw
}

func TestRunLine_SimpleCommandExternal(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("echo hello world")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "hello world\n", out.String())
}

func TestRunLine_Pipeline(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("echo -n hello | tr a-z A-Z | wc -c")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "5\n", out.String())
}

func TestRunLine_AndOrShortCircuit(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("false && echo no || echo yes")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "yes\n", out.String())
}

func TestRunLine_ErrexitDoesNotFireInsideIfCondition(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("set -e; if false; then echo no; fi; echo yes")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "yes\n", out.String())
}

func TestRunLine_ErrexitPromotesPlainFailure(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("set -e; false; echo unreachable")
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestRunLine_PipefailReflectsRightmostFailure(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("set -o pipefail; false | true | false")
	require.NoError(t, err)
	require.NotEqual(t, 0, status)
}

func TestRunLine_PipefailOffUsesLastStage(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("false | true")
	require.NoError(t, err)
	require.Equal(t, 0, status)
}

func TestRunLine_ForLoop(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("for x in a b c; do echo $x; done")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "a\nb\nc\n", out.String())
}

func TestRunLine_CaseMatchesFirstClause(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine(`x=foo; case $x in foo) echo matched;; *) echo nomatch;; esac`)
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "matched\n", out.String())
}

func TestRunLine_FunctionDefinitionAndCall(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("greet() { echo hi $1; }; greet world")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "hi world\n", out.String())
}

func TestRunLine_AssignmentPrecedingExternalDoesNotLeakIntoShellEnv(t *testing.T) {
	ex, _, _ := newTestExecutor()
	_, err := ex.RunLine("FOO=bar true")
	require.NoError(t, err)
	_, ok := ex.St.Env["FOO"]
	require.False(t, ok)
	_, ok = ex.St.ShellVars["FOO"]
	require.False(t, ok)
}

func TestRunLine_BareAssignmentMutatesShellState(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("FOO=bar")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	v, ok := ex.St.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "bar", v)
}

func TestRunLine_CommandNotFoundExitsWith127(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("this-command-does-not-exist-xyz")
	require.NoError(t, err)
	require.Equal(t, 127, status)
}

func TestRunLine_NegatedPipelineInvertsStatus(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("! false")
	require.NoError(t, err)
	require.Equal(t, 0, status)
}

func TestRunLine_SubshellDoesNotLeakStateToParent(t *testing.T) {
	ex, _, _ := newTestExecutor()
	_, err := ex.RunLine("(FOO=insubshell)")
	require.NoError(t, err)
	_, ok := ex.St.Get("FOO")
	require.False(t, ok)
}

func TestCaptureOutput_StripsTrailingNewlines(t *testing.T) {
	ex, _, _ := newTestExecutor()
	out, status, err := ex.CaptureOutput("echo hi")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.Equal(t, "hi", out)
}

func TestDialVirtual_RecognisesOnlyDevTcpUdp(t *testing.T) {
	_, matched, _ := dialVirtual("/tmp/plainfile")
	require.False(t, matched)

	_, matched, err := dialVirtual("/dev/tcp/hostonly")
	require.True(t, matched)
	require.Error(t, err, "a /dev/tcp path without a port is a redirection error")

	_, matched, err = dialVirtual("/dev/udp//9")
	require.True(t, matched)
	require.Error(t, err)
}

func TestRunLine_SubshellOptionsDoNotLeak(t *testing.T) {
	ex, _, _ := newTestExecutor()
	status, err := ex.RunLine("(set -e)")
	require.NoError(t, err)
	require.Equal(t, 0, status)
	require.False(t, ex.St.Options.Flag(state.OptErrExit))
}

func TestRunLine_ErrexitFiresInsideLoopBody(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("set -e; for x in a b c; do false; echo $x; done; echo after")
	require.Error(t, err)
	require.Empty(t, out.String(), "errexit must stop the first iteration before its echo runs")
}

func TestRunLine_ErrexitFiresInsideWhileBody(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("set -e; while true; do false; echo body; done; echo after")
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestRunLine_ErrexitFiresInsideThenBranch(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("set -e; if true; then false; echo no; fi; echo after")
	require.Error(t, err)
	require.Empty(t, out.String())
}

func TestRunLine_ErrexitSuppressedForPipelineStages(t *testing.T) {
	ex, out, _ := newTestExecutor()
	status, err := ex.RunLine("set -e; false | true; echo after")
	require.NoError(t, err, "only the pipeline's overall status is subject to errexit")
	require.Equal(t, 0, status)
	require.Equal(t, "after\n", out.String())
}

func TestRunLine_ErrTrapRunsPerFailingCommand(t *testing.T) {
	ex, out, _ := newTestExecutor()
	_, err := ex.RunLine("trap 'echo trapped' ERR; false; false")
	require.NoError(t, err)
	require.Equal(t, "trapped\ntrapped\n", out.String())
}
