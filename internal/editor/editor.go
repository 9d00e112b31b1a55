// Package editor implements the interactive line editor: a
// raw-mode terminal event loop built on github.com/charmbracelet/bubbletea
// (MVU), a key-binding table from github.com/charmbracelet/bubbles/key,
// lipgloss styling of the prompt and completion menu, completion cycling,
// a kill-ring, an undo stack, and reverse-incremental history search.
package editor

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/home-lang/den/internal/completion"
	"github.com/home-lang/den/internal/history"
	"github.com/home-lang/den/internal/prompt"
	"github.com/home-lang/den/internal/state"
)

// Result is what one Run of the editor produced.
type Result struct {
	Line      string
	Submitted bool // false if cancelled (ctrl+c on an empty buffer)
	EOF       bool // true if ctrl+d on an empty buffer
}

// Model is the bubbletea model for one input line. A fresh Model is
// built per line; the
// kill-ring and undo stack below live only for that line's edits.
type Model struct {
	keys KeyMap
	st   *state.ShellState
	hist *history.History
	rend *prompt.Renderer
	ps   string // PS1 or PS2, chosen by the caller

	buf     buffer
	undo    []buffer
	killRing []string

	historyIdx int // -1 = not browsing history; 0 = most recent
	stashed    buffer

	searching    bool
	searchQuery  string
	searchIdx    int
	preSearchBuf buffer

	completions   []completion.Candidate
	completionIdx int
	preCompleteBuf buffer

	done   bool
	result Result
}

// New builds a fresh line-editing Model. ps is the prompt template (PS1
// or PS2) rendered via rend.
func New(st *state.ShellState, hist *history.History, rend *prompt.Renderer, ps string) *Model {
	return &Model{
		keys:       DefaultKeyMap(),
		st:         st,
		hist:       hist,
		rend:       rend,
		ps:         ps,
		buf:        newBuffer(""),
		historyIdx: -1,
	}
}

func (m *Model) Init() tea.Cmd { return nil }

func (m *Model) pushUndo() {
	m.undo = append(m.undo, m.buf.clone())
	if len(m.undo) > 100 {
		m.undo = m.undo[1:]
	}
}

func (m *Model) popUndo() {
	if len(m.undo) == 0 {
		return
	}
	m.buf = m.undo[len(m.undo)-1]
	m.undo = m.undo[:len(m.undo)-1]
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		if _, ok := msg.(tea.WindowSizeMsg); ok {
			// SIGWINCH-driven resize; nothing to recompute for a
			// single-line buffer beyond re-rendering, which View does on
			// every message already.
		}
		return m, nil
	}

	if m.searching {
		return m.updateSearch(keyMsg)
	}
	return m.updateEditing(keyMsg)
}

func (m *Model) updateEditing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Interrupt):
		if len(m.buf.runes) == 0 {
			m.done = true
			m.result = Result{Submitted: false}
			return m, tea.Quit
		}
		m.buf = newBuffer("")
		m.resetTransient()
		return m, nil

	case key.Matches(msg, k.EOF) && len(m.buf.runes) == 0:
		m.done = true
		m.result = Result{EOF: true}
		return m, tea.Quit

	case key.Matches(msg, k.Accept):
		m.done = true
		m.result = Result{Line: m.buf.String(), Submitted: true}
		return m, tea.Quit

	case key.Matches(msg, k.SearchStart):
		m.searching = true
		m.searchQuery = ""
		m.searchIdx = 0
		m.preSearchBuf = m.buf.clone()
		return m, nil

	case key.Matches(msg, k.Complete):
		m.cycleComplete()
		return m, nil

	case key.Matches(msg, k.Cancel):
		if len(m.completions) > 0 {
			m.buf = m.preCompleteBuf
			m.resetCompletion()
		}
		return m, nil

	case key.Matches(msg, k.Left):
		m.buf.left()
		m.resetCompletion()
	case key.Matches(msg, k.Right):
		m.buf.right()
		m.resetCompletion()
	case key.Matches(msg, k.WordLeft):
		m.buf.wordLeft()
	case key.Matches(msg, k.WordRight):
		m.buf.wordRight()
	case key.Matches(msg, k.Home):
		m.buf.home()
	case key.Matches(msg, k.End):
		m.buf.end()

	case key.Matches(msg, k.Backspace):
		m.pushUndo()
		m.buf.backspace()
		m.resetCompletion()
	case key.Matches(msg, k.Delete):
		m.pushUndo()
		m.buf.deleteForward()
		m.resetCompletion()

	case key.Matches(msg, k.KillLineForward):
		m.pushUndo()
		m.killRing = append(m.killRing, m.buf.killToEnd())
	case key.Matches(msg, k.KillLineBackward):
		m.pushUndo()
		m.killRing = append(m.killRing, m.buf.killToStart())
	case key.Matches(msg, k.KillWordBackward):
		m.pushUndo()
		m.killRing = append(m.killRing, m.buf.killWordBackward())
	case key.Matches(msg, k.KillWordForward):
		m.pushUndo()
		m.killRing = append(m.killRing, m.buf.killWordForward())
	case key.Matches(msg, k.Transpose):
		m.pushUndo()
		m.buf.transpose()
	case key.Matches(msg, k.Yank):
		if n := len(m.killRing); n > 0 {
			m.pushUndo()
			m.buf.insert(m.killRing[n-1])
		}
	case key.Matches(msg, k.Undo):
		m.popUndo()

	case key.Matches(msg, k.HistoryUp):
		m.historyUp()
	case key.Matches(msg, k.HistoryDown):
		m.historyDown()

	case key.Matches(msg, k.ClearScreen):
		// View re-renders fully on every message; nothing additional to
		// clear in a single-line model.

	default:
		if msg.Type == tea.KeyRunes || msg.Type == tea.KeySpace {
			m.pushUndo()
			m.buf.insert(string(msg.Runes))
			if msg.Type == tea.KeySpace {
				m.buf.insert(" ")
			}
			m.resetCompletion()
		}
	}
	return m, nil
}

func (m *Model) resetTransient() {
	m.historyIdx = -1
	m.resetCompletion()
}

func (m *Model) resetCompletion() {
	m.completions = nil
	m.completionIdx = 0
}

// cycleComplete implements "tab requests a completion set... repeated
// tab cycles".
func (m *Model) cycleComplete() {
	if len(m.completions) == 0 {
		freq := map[string]int{}
		if m.hist != nil {
			for _, e := range m.hist.All() {
				freq[e.Line]++
			}
		}
		m.preCompleteBuf = m.buf.clone()
		m.completions = completion.Complete(m.st, completion.Request{
			Buffer:    m.buf.String(),
			Cursor:    m.buf.cursor,
			Frequency: freq,
		})
		m.completionIdx = -1
	}
	if len(m.completions) == 0 {
		return
	}
	m.completionIdx = (m.completionIdx + 1) % len(m.completions)
	m.applyCompletion(m.completions[m.completionIdx])
}

func (m *Model) applyCompletion(c completion.Candidate) {
	_, word, start := completion.Classify(completion.Request{Buffer: m.preCompleteBuf.String(), Cursor: m.preCompleteBuf.cursor})
	_ = word
	base := m.preCompleteBuf.clone()
	tail := string(base.runes[base.cursor:])
	head := string(base.runes[:start])
	m.buf = newBuffer(head + c.Text + tail)
	m.buf.cursor = len([]rune(head + c.Text))
}

// historyUp/historyDown traverse history; when the user had already typed
// something, only entries containing that text are visited.
func (m *Model) historyUp() {
	if m.hist == nil || m.hist.Len() == 0 {
		return
	}
	if m.historyIdx == -1 {
		m.stashed = m.buf.clone()
	}
	filter := m.stashed.String()
	for next := m.historyIdx + 1; next < m.hist.Len(); next++ {
		e, _ := m.hist.At(next)
		if filter != "" && !strings.Contains(e.Line, filter) {
			continue
		}
		m.historyIdx = next
		m.buf = newBuffer(e.Line)
		return
	}
}

func (m *Model) historyDown() {
	if m.historyIdx == -1 {
		return
	}
	filter := m.stashed.String()
	for prev := m.historyIdx - 1; prev >= 0; prev-- {
		e, _ := m.hist.At(prev)
		if filter != "" && !strings.Contains(e.Line, filter) {
			continue
		}
		m.historyIdx = prev
		m.buf = newBuffer(e.Line)
		return
	}
	m.historyIdx = -1
	m.buf = m.stashed
}

// updateSearch runs the reverse-incremental-search mini-mode.
func (m *Model) updateSearch(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Interrupt):
		m.searching = false
		m.buf = m.preSearchBuf
		return m, nil
	case key.Matches(msg, m.keys.Accept):
		m.searching = false
		return m, nil
	case key.Matches(msg, m.keys.SearchStart):
		if m.hist != nil {
			if idx := m.hist.Search(m.searchQuery, m.searchIdx+1); idx >= 0 {
				m.searchIdx = idx
				if e, ok := m.hist.At(idx); ok {
					m.buf = newBuffer(e.Line)
				}
			}
		}
		return m, nil
	case key.Matches(msg, m.keys.Backspace):
		if len(m.searchQuery) > 0 {
			m.searchQuery = m.searchQuery[:len(m.searchQuery)-1]
		}
		return m, nil
	default:
		if msg.Type == tea.KeyRunes {
			m.searchQuery += string(msg.Runes)
			m.searchIdx = 0
			if m.hist != nil {
				if idx := m.hist.Search(m.searchQuery, 0); idx >= 0 {
					m.searchIdx = idx
					if e, ok := m.hist.At(idx); ok {
						m.buf = newBuffer(e.Line)
					}
				}
			}
		}
		return m, nil
	}
}

func (m *Model) View() string {
	var b strings.Builder
	if m.searching {
		b.WriteString(lipgloss.NewStyle().Faint(true).Render("(reverse-i-search)`" + m.searchQuery + "': "))
		b.WriteString(m.buf.String())
		return b.String()
	}

	ps := m.ps
	if m.rend != nil && m.st != nil {
		ps = m.rend.Render(m.ps, m.st)
	}
	b.WriteString(ps)
	b.WriteString(m.buf.String())

	if len(m.completions) > 0 {
		b.WriteByte('\n')
		b.WriteString(renderCompletionMenu(m.completions, m.completionIdx))
	}
	return b.String()
}

// Result returns the finished Result after the bubbletea program quits;
// valid only once Update has set m.done.
func (m *Model) Result() Result { return m.result }
func (m *Model) Done() bool     { return m.done }

// Run drives one line-editing session to completion on the current
// terminal, returning the accepted line (or cancellation/EOF signal).
func Run(st *state.ShellState, hist *history.History, rend *prompt.Renderer, ps string) (Result, error) {
	m := New(st, hist, rend, ps)
	p := tea.NewProgram(m, tea.WithoutSignalHandler())
	final, err := p.Run()
	if err != nil {
		return Result{}, err
	}
	fm, _ := final.(*Model)
	if fm == nil {
		return Result{}, nil
	}
	return fm.Result(), nil
}

func renderCompletionMenu(cands []completion.Candidate, active int) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	activeStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Bold(true)
	var parts []string
	for i, c := range cands {
		if i > 12 {
			parts = append(parts, style.Render("…"))
			break
		}
		if i == active {
			parts = append(parts, activeStyle.Render(c.Text))
		} else {
			parts = append(parts, style.Render(c.Text))
		}
	}
	return strings.Join(parts, "  ")
}
