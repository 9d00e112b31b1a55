package editor

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/history"
)

func keyRunes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func newTestModel(t *testing.T, lines ...string) *Model {
	t.Helper()
	h := history.New("", 100)
	for _, l := range lines {
		h.Append(l)
	}
	return New(nil, h, nil, "$ ")
}

func TestBuffer_InsertAndMove(t *testing.T) {
	b := newBuffer("hello")
	require.Equal(t, 5, b.cursor)
	b.home()
	b.insert("say ")
	require.Equal(t, "say hello", b.String())
	require.Equal(t, 4, b.cursor)
	b.end()
	b.backspace()
	require.Equal(t, "say hell", b.String())
}

func TestBuffer_WordMotion(t *testing.T) {
	b := newBuffer("git status --short")
	b.wordLeft()
	require.Equal(t, "--short", string(b.runes[b.cursor:]))
	b.wordLeft()
	require.Equal(t, "status --short", string(b.runes[b.cursor:]))
	b.wordRight()
	require.Equal(t, " --short", string(b.runes[b.cursor:]))
}

func TestBuffer_KillRing(t *testing.T) {
	b := newBuffer("echo one two")
	killed := b.killWordBackward()
	require.Equal(t, "two", killed)
	require.Equal(t, "echo one ", b.String())

	b.home()
	killed = b.killToEnd()
	require.Equal(t, "echo one ", killed)
	require.Equal(t, "", b.String())
}

func TestBuffer_KillWordForward(t *testing.T) {
	b := newBuffer("rm -rf dir")
	b.home()
	killed := b.killWordForward()
	require.Equal(t, "rm", killed)
	require.Equal(t, " -rf dir", b.String())
	require.Equal(t, 0, b.cursor)
}

func TestBuffer_TransposeMidLine(t *testing.T) {
	b := newBuffer("teh")
	b.cursor = 2 // between 'e' and 'h'
	b.transpose()
	require.Equal(t, "the", b.String())
}

func TestBuffer_TransposeAtEnd(t *testing.T) {
	b := newBuffer("ls-")
	b.transpose() // at end of line, swaps the last two
	require.Equal(t, "l-s", b.String())
}

func TestHistoryNavigation_Plain(t *testing.T) {
	m := newTestModel(t, "ls", "git status", "grep foo")
	m.historyUp()
	require.Equal(t, "grep foo", m.buf.String())
	m.historyUp()
	require.Equal(t, "git status", m.buf.String())
	m.historyDown()
	require.Equal(t, "grep foo", m.buf.String())
	m.historyDown()
	require.Equal(t, "", m.buf.String()) // back to the stashed empty buffer
}

func TestHistoryNavigation_SubstringFiltered(t *testing.T) {
	m := newTestModel(t, "ls", "git status", "grep foo", "git log")
	m.buf = newBuffer("git")
	m.historyUp()
	require.Equal(t, "git log", m.buf.String())
	m.historyUp()
	require.Equal(t, "git status", m.buf.String())
	m.historyUp() // no older entry contains "git"; buffer stays put
	require.Equal(t, "git status", m.buf.String())
	m.historyDown()
	require.Equal(t, "git log", m.buf.String())
	m.historyDown()
	require.Equal(t, "git", m.buf.String()) // restored typed prefix
}

func TestReverseSearch_FindsNewestMatch(t *testing.T) {
	m := newTestModel(t, "ls", "git status", "grep foo")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.True(t, m.searching)

	m.Update(keyRunes("g"))
	m.Update(keyRunes("i"))
	m.Update(keyRunes("t"))
	require.Equal(t, "git", m.searchQuery)
	require.Equal(t, "git status", m.buf.String())

	// No older entry matches "git"; the buffer stays on the same match.
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	require.Equal(t, "git status", m.buf.String())

	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.False(t, m.searching)
	require.Equal(t, "git status", m.buf.String())
}

func TestReverseSearch_CancelRestoresBuffer(t *testing.T) {
	m := newTestModel(t, "ls", "git status")
	m.buf = newBuffer("half-typed")

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m.Update(keyRunes("g"))
	require.Equal(t, "git status", m.buf.String())

	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.False(t, m.searching)
	require.Equal(t, "half-typed", m.buf.String())
}

func TestAccept_SubmitsLine(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyRunes("e"))
	m.Update(keyRunes("c"))
	m.Update(keyRunes("h"))
	m.Update(keyRunes("o"))
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.True(t, m.Done())
	res := m.Result()
	require.True(t, res.Submitted)
	require.Equal(t, "echo", res.Line)
}

func TestInterrupt_OnEmptyBufferCancels(t *testing.T) {
	m := newTestModel(t)
	m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.True(t, m.Done())
	require.False(t, m.Result().Submitted)
}

func TestUndo_RestoresPriorEdit(t *testing.T) {
	m := newTestModel(t)
	m.Update(keyRunes("a"))
	m.Update(keyRunes("b"))
	require.Equal(t, "ab", m.buf.String())
	m.popUndo()
	require.Equal(t, "a", m.buf.String())
}
