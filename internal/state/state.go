// Package state holds the single process-wide ShellState value:
// environment, shell variables, aliases, functions,
// positional parameters, options, history, jobs, and directory stack. No
// process-wide singleton is used; ShellState is threaded explicitly
// through every component that needs it.
package state

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/history"
	"github.com/home-lang/den/internal/jobtable"
	"github.com/home-lang/den/internal/shellerr"
)

// ShellState is the single mutable value the rest of the shell operates
// on. Only the main thread mutates it; mu guards only the slice of
// portions the completion worker pool may read concurrently.
type ShellState struct {
	mu sync.Mutex

	Env       map[string]string
	ShellVars map[string]string
	Readonly  map[string]bool
	Aliases   map[string]string
	Functions map[string]*ast.FunctionDef

	PositionalParams []string
	Arg0Name         string // $0: the shell or script name

	LastExitCode  int
	LastBgPID     int
	PID           int
	CurrentLine   int

	Options Options

	History *history.History
	Jobs    *jobtable.Table

	DirStack []string
	Umask    uint32
	Cwd      string
	OldPwd   string

	FuncDepth  int
	LocalStack []map[string]string // `local` scoping per call frame

	Traps map[string]string // signal name or EXIT/DEBUG/ERR -> command text
}

// New builds a ShellState seeded from the process environment.
func New() *ShellState {
	s := &ShellState{
		Env:       map[string]string{},
		ShellVars: map[string]string{},
		Readonly:  map[string]bool{},
		Aliases:   map[string]string{},
		Functions: map[string]*ast.FunctionDef{},
		PID:       os.Getpid(),
		Options:   DefaultOptions(),
		Jobs:      jobtable.NewTable(),
		Traps:     map[string]string{},
	}
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			s.Env[kv[:idx]] = kv[idx+1:]
		}
	}
	if cwd, err := os.Getwd(); err == nil {
		s.Cwd = cwd
		s.Env["PWD"] = cwd
	}
	s.OldPwd = s.Env["OLDPWD"]

	histFile := s.Env["HISTFILE"]
	if histFile == "" {
		if home := s.Env["HOME"]; home != "" {
			histFile = home + "/.den_history"
		}
	}
	size := 500
	if n, err := strconv.Atoi(s.Env["HISTSIZE"]); err == nil && n > 0 {
		size = n
	}
	s.History = history.New(histFile, size)
	return s
}

// --- expand.Env implementation -------------------------------------------------

// Get resolves a variable from the innermost `local` frame first, then
// shell_vars, then env, so that an exported variable's authoritative value
// always lives in Env.
func (s *ShellState) Get(name string) (string, bool) {
	switch name {
	case "LINENO":
		return strconv.Itoa(s.CurrentLine), true
	case "FUNCNAME":
		if s.FuncDepth > 0 {
			return s.Arg0Name, true
		}
		return "", false
	}
	if v, ok := s.lookupLocal(name); ok {
		return v, true
	}
	if v, ok := s.ShellVars[name]; ok {
		return v, true
	}
	if v, ok := s.Env[name]; ok {
		return v, true
	}
	return "", false
}

func (s *ShellState) lookupLocal(name string) (string, bool) {
	for i := len(s.LocalStack) - 1; i >= 0; i-- {
		if v, ok := s.LocalStack[i][name]; ok {
			return v, true
		}
	}
	return "", false
}

// Set assigns name=value, honouring readonly and allexport.
func (s *ShellState) Set(name, value string) error {
	if s.Readonly[name] {
		return shellerr.New(shellerr.KindBuiltin, shellerr.StatusGenericFailure, "%s: readonly variable", name)
	}
	if len(s.LocalStack) > 0 {
		if _, ok := s.LocalStack[len(s.LocalStack)-1][name]; ok {
			s.LocalStack[len(s.LocalStack)-1][name] = value
			return nil
		}
	}
	if _, exported := s.Env[name]; exported || s.Options.Flag(OptAllExport) {
		s.Env[name] = value
		return nil
	}
	s.ShellVars[name] = value
	return nil
}

// Export promotes name into Env.
func (s *ShellState) Export(name string) {
	if v, ok := s.ShellVars[name]; ok {
		s.Env[name] = v
		delete(s.ShellVars, name)
		return
	}
	if _, ok := s.Env[name]; !ok {
		s.Env[name] = ""
	}
}

// Unexport moves name back to shell_vars, refusing if readonly.
func (s *ShellState) Unexport(name string) error {
	if s.Readonly[name] {
		return shellerr.New(shellerr.KindBuiltin, shellerr.StatusGenericFailure, "%s: readonly variable", name)
	}
	if v, ok := s.Env[name]; ok {
		s.ShellVars[name] = v
		delete(s.Env, name)
	}
	return nil
}

// Unset removes name from both scopes, refusing if readonly.
func (s *ShellState) Unset(name string) error {
	if s.Readonly[name] {
		return shellerr.New(shellerr.KindBuiltin, shellerr.StatusGenericFailure, "%s: readonly variable", name)
	}
	delete(s.Env, name)
	delete(s.ShellVars, name)
	return nil
}

func (s *ShellState) IsReadonly(name string) bool { return s.Readonly[name] }

// IFS returns the effective field-separator set: the default " \t\n"
// only when IFS is unset. An IFS explicitly assigned the empty string is
// returned as-is, which disables word splitting downstream rather than
// reverting to whitespace splitting.
func (s *ShellState) IFS() string {
	if v, ok := s.Get("IFS"); ok {
		return v
	}
	return " \t\n"
}

func (s *ShellState) OptFlag(name string) bool  { return s.Options.Flag(name) }
func (s *ShellState) OptNamed(name string) bool { return s.Options.Named(name) }

func (s *ShellState) Positional() []string { return s.PositionalParams }

func (s *ShellState) Arg0() string {
	if s.Arg0Name != "" {
		return s.Arg0Name
	}
	return "den"
}
func (s *ShellState) ExitStatus() int      { return s.LastExitCode }
func (s *ShellState) BackgroundPID() int   { return s.LastBgPID }
func (s *ShellState) ShellPID() int        { return s.PID }
func (s *ShellState) PWD() string          { return s.Cwd }
func (s *ShellState) OldPWD() string       { return s.OldPwd }

func (s *ShellState) HomeDir(user string) (string, bool) {
	if user == "" {
		if home, ok := s.Get("HOME"); ok {
			return home, true
		}
		return "", false
	}
	return "", false // non-empty user lookups fall through to os/user in expand
}

// PushLocalFrame/PopLocalFrame implement `local` scoping for function
// calls.
func (s *ShellState) PushLocalFrame() {
	s.LocalStack = append(s.LocalStack, map[string]string{})
}

func (s *ShellState) PopLocalFrame() {
	if len(s.LocalStack) > 0 {
		s.LocalStack = s.LocalStack[:len(s.LocalStack)-1]
	}
}

func (s *ShellState) DeclareLocal(name, value string) {
	if len(s.LocalStack) == 0 {
		s.ShellVars[name] = value
		return
	}
	s.LocalStack[len(s.LocalStack)-1][name] = value
}

// WithCompletionLock runs fn while holding the single mutex shared with
// the completion worker pool.
func (s *ShellState) WithCompletionLock(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}

// Snapshot produces a shallow copy of mutable maps for subshell forking.
func (s *ShellState) Snapshot() *ShellState {
	cp := *s
	cp.mu = sync.Mutex{}
	cp.Env = cloneMap(s.Env)
	cp.ShellVars = cloneMap(s.ShellVars)
	cp.Readonly = cloneBoolMap(s.Readonly)
	cp.Aliases = cloneMap(s.Aliases)
	cp.Functions = make(map[string]*ast.FunctionDef, len(s.Functions))
	for k, v := range s.Functions {
		cp.Functions[k] = v
	}
	cp.PositionalParams = append([]string{}, s.PositionalParams...)
	cp.DirStack = append([]string{}, s.DirStack...)
	cp.Options = s.Options.Clone()
	cp.Traps = cloneMap(s.Traps)
	cp.LocalStack = make([]map[string]string, len(s.LocalStack))
	for i, frame := range s.LocalStack {
		cp.LocalStack[i] = cloneMap(frame)
	}
	return &cp
}

func cloneMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func cloneBoolMap(m map[string]bool) map[string]bool {
	out := make(map[string]bool, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// FormatVar renders name=value the way `export`/`declare -p` print it.
func FormatVar(name, value string) string {
	return fmt.Sprintf("%s=%q", name, value)
}
