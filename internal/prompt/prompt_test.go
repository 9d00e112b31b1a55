package prompt

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/state"
)

func TestLookup_FallsBackToDefaultForUnknownTheme(t *testing.T) {
	th := Lookup("does-not-exist")
	require.Equal(t, "default", th.Name)
}

func TestRender_DollarMarkReflectsRootVsUser(t *testing.T) {
	r := New("mono")
	st := state.New()

	st.PID = 1234
	require.Contains(t, r.Render(`\$`, st), "$")

	st.PID = 0
	require.Contains(t, r.Render(`\$`, st), "#")
}

func TestRender_WUsesFullCwdAndCapitalWUsesBaseName(t *testing.T) {
	r := New("mono")
	st := state.New()
	st.Cwd = "/home/user/projects/den"

	require.Contains(t, r.Render(`\w`, st), "/home/user/projects/den")
	require.Contains(t, r.Render(`\W`, st), "den")
	require.NotContains(t, r.Render(`\W`, st), "/home/user/projects")
}

func TestRender_LiteralBackslashAndNewline(t *testing.T) {
	r := New("mono")
	st := state.New()
	require.Equal(t, "\\", r.Render(`\\`, st))
	require.Equal(t, "\n", r.Render(`\n`, st))
}

func TestRender_UnknownEscapeIsPreservedLiterally(t *testing.T) {
	r := New("mono")
	st := state.New()
	require.Equal(t, `\z`, r.Render(`\z`, st))
}

func TestRender_QuestionMarkShowsLastExitCode(t *testing.T) {
	r := New("mono")
	st := state.New()
	st.LastExitCode = 0
	require.Contains(t, r.Render(`\?`, st), "0")
	st.LastExitCode = 127
	require.Contains(t, r.Render(`\?`, st), "127")
}
