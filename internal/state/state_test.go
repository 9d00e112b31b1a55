package state

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetAndGet_ShellVarVsEnv(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("FOO", "bar"))
	v, ok := s.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "bar", v)
	_, exported := s.Env["FOO"]
	require.False(t, exported, "unexported variable stays in ShellVars")
}

func TestExport_MovesShellVarIntoEnv(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("FOO", "bar"))
	s.Export("FOO")
	v, ok := s.Env["FOO"]
	require.True(t, ok)
	require.Equal(t, "bar", v)
	_, stillShellVar := s.ShellVars["FOO"]
	require.False(t, stillShellVar)
}

func TestReadonly_BlocksReassignmentAndUnset(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("FOO", "bar"))
	s.Readonly["FOO"] = true

	err := s.Set("FOO", "baz")
	require.Error(t, err)
	v, _ := s.Get("FOO")
	require.Equal(t, "bar", v, "readonly set must not mutate the value")

	err = s.Unset("FOO")
	require.Error(t, err)
	_, ok := s.Get("FOO")
	require.True(t, ok, "readonly unset must not remove the value")
}

func TestUnexport_RefusesReadonly(t *testing.T) {
	s := New()
	s.Env["FOO"] = "bar"
	s.Readonly["FOO"] = true
	err := s.Unexport("FOO")
	require.Error(t, err)
	_, stillExported := s.Env["FOO"]
	require.True(t, stillExported)
}

func TestAllExport_NewAssignmentsGoToEnv(t *testing.T) {
	s := New()
	s.Options.SetFlag(OptAllExport, true)
	require.NoError(t, s.Set("FOO", "bar"))
	_, ok := s.Env["FOO"]
	require.True(t, ok)
}

func TestLocalFrame_ShadowsOuterScopeAndPops(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("FOO", "outer"))

	s.PushLocalFrame()
	s.DeclareLocal("FOO", "inner")
	v, ok := s.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "inner", v)

	s.PopLocalFrame()
	v, ok = s.Get("FOO")
	require.True(t, ok)
	require.Equal(t, "outer", v)
}

func TestSnapshot_IsIndependentOfOriginal(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("FOO", "bar"))
	cp := s.Snapshot()

	require.NoError(t, cp.Set("FOO", "mutated-in-subshell"))
	v, _ := s.Get("FOO")
	require.Equal(t, "bar", v, "mutating the snapshot must not leak back to the original")

	require.NoError(t, s.Set("ONLY_IN_PARENT", "x"))
	_, ok := cp.Get("ONLY_IN_PARENT")
	require.False(t, ok, "snapshot must not observe later parent mutations")
}

func TestSnapshot_OptionsAndTrapsAreIsolated(t *testing.T) {
	s := New()
	cp := s.Snapshot()

	cp.Options.SetFlag(OptErrExit, true)
	require.False(t, s.Options.Flag(OptErrExit), "subshell set -e must not leak to the parent")

	cp.Traps["EXIT"] = "echo bye"
	_, ok := s.Traps["EXIT"]
	require.False(t, ok, "subshell trap must not leak to the parent")
}

func TestIFS_DefaultsWhenUnset(t *testing.T) {
	s := New()
	require.Equal(t, " \t\n", s.IFS())
	require.NoError(t, s.Set("IFS", ":"))
	require.Equal(t, ":", s.IFS())
}

func TestIFS_ExplicitlyEmptyStaysEmpty(t *testing.T) {
	s := New()
	require.NoError(t, s.Set("IFS", ""))
	require.Equal(t, "", s.IFS(), "an explicitly empty IFS must not revert to the default")
}
