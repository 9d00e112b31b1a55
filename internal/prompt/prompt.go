// Package prompt renders PS1/PS2/PS4 templates against shell state,
// styled with github.com/charmbracelet/lipgloss — the same library
// internal/editor uses for its completion menu.
package prompt

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/home-lang/den/internal/state"
)

// Theme controls how a rendered prompt is styled. Themes are looked up
// by name (config.Config.Theme); Themes() lists the built-ins.
type Theme struct {
	Name  string
	Host  lipgloss.Style
	User  lipgloss.Style
	Dir   lipgloss.Style
	Mark  lipgloss.Style
	Error lipgloss.Style
}

var builtinThemes = map[string]Theme{
	"default": {
		Name: "default",
		Host: lipgloss.NewStyle().Foreground(lipgloss.Color("6")),
		User: lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Dir:  lipgloss.NewStyle().Foreground(lipgloss.Color("4")).Bold(true),
		Mark: lipgloss.NewStyle().Foreground(lipgloss.Color("7")),
		Error: lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	},
	"mono": {
		Name:  "mono",
		Host:  lipgloss.NewStyle(),
		User:  lipgloss.NewStyle(),
		Dir:   lipgloss.NewStyle().Bold(true),
		Mark:  lipgloss.NewStyle(),
		Error: lipgloss.NewStyle().Bold(true),
	},
}

// Themes lists the built-in theme names.
func Themes() []string {
	names := make([]string, 0, len(builtinThemes))
	for n := range builtinThemes {
		names = append(names, n)
	}
	return names
}

// Lookup returns the named theme, falling back to "default" if name is
// unknown (an unrecognized config.Config.Theme should never crash the
// shell).
func Lookup(name string) Theme {
	if t, ok := builtinThemes[name]; ok {
		return t
	}
	return builtinThemes["default"]
}

// Renderer renders PS1/PS2/PS4 against a ShellState, re-styled live when
// internal/config.Watch reports a new theme.
type Renderer struct {
	Theme Theme
}

// New builds a Renderer for the given theme name.
func New(themeName string) *Renderer {
	return &Renderer{Theme: Lookup(themeName)}
}

// SetTheme swaps the active theme, called from the internal/config.Watch
// callback so a config file edit re-colors the very next prompt with no
// shell restart.
func (r *Renderer) SetTheme(name string) {
	r.Theme = Lookup(name)
}

// Render expands template (PS1/PS2/PS4's value) against st, substituting
// the classic bash-style backslash escapes.
func (r *Renderer) Render(template string, st *state.ShellState) string {
	var b strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c != '\\' || i+1 >= len(template) {
			b.WriteByte(c)
			continue
		}
		i++
		switch template[i] {
		case 'u':
			b.WriteString(r.Theme.User.Render(currentUser()))
		case 'h', 'H':
			b.WriteString(r.Theme.Host.Render(hostname()))
		case 'w':
			b.WriteString(r.Theme.Dir.Render(st.Cwd))
		case 'W':
			b.WriteString(r.Theme.Dir.Render(baseName(st.Cwd)))
		case '$':
			mark := "$"
			if st.PID == 0 {
				mark = "#"
			}
			b.WriteString(r.Theme.Mark.Render(mark))
		case 'n':
			b.WriteByte('\n')
		case '\\':
			b.WriteByte('\\')
		case '?':
			status := fmt.Sprintf("%d", st.LastExitCode)
			if st.LastExitCode != 0 {
				status = r.Theme.Error.Render(status)
			}
			b.WriteString(status)
		default:
			b.WriteByte('\\')
			b.WriteByte(template[i])
		}
	}
	return b.String()
}

func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "user"
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}

func baseName(path string) string {
	if path == "" {
		return path
	}
	i := strings.LastIndexByte(path, '/')
	if i < 0 {
		return path
	}
	if i == len(path)-1 {
		trimmed := strings.TrimRight(path, "/")
		return baseName(trimmed)
	}
	return path[i+1:]
}
