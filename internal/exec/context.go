package exec

import (
	"bytes"
	"io"
	"strings"
	"syscall"
	"time"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/expand"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/jobtable"
	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/state"
)

// The methods in this file make *Executor satisfy builtins.Context and
// expand.CommandRunner, closing the dependency-inversion loop described
// in internal/builtins/context.go's package doc: builtins and expand
// depend only on small interfaces, and internal/exec is their sole
// concrete implementation.

func (ex *Executor) Stdin() io.Reader  { return ex.In }
func (ex *Executor) Stdout() io.Writer { return ex.Out }
func (ex *Executor) Stderr() io.Writer { return ex.Err }

func (ex *Executor) State() *state.ShellState  { return ex.St }
func (ex *Executor) Jobs() *jobtable.Table      { return ex.St.Jobs }
func (ex *Executor) JobCtl() *jobctl.Controller { return ex.JC }

func (ex *Executor) ExpandWords(words []ast.Word) ([]string, error) {
	return ex.expander().Words(words)
}

func (ex *Executor) ExpandWord(w ast.Word) (string, error) {
	return ex.expander().Word(w)
}

func (ex *Executor) EvalArith(expr string) (int64, error) {
	return expand.EvalArith(expr, ex.St)
}

func (ex *Executor) LookupFunction(name string) (*ast.FunctionDef, bool) {
	fn, ok := ex.St.Functions[name]
	return fn, ok
}

func (ex *Executor) DefineFunction(fn *ast.FunctionDef) {
	ex.St.Functions[fn.Name] = fn
}

// Exec replaces the current process image via syscall.Exec, implementing
// the `exec cmd args...` replace-current form. It
// never returns on success; PATH search mirrors external-command
// resolution elsewhere in this package.
func (ex *Executor) Exec(argv0 string, argv []string, env []string) error {
	path := argv0
	if !strHasSlash(argv0) {
		p, ok := lookPathState(ex.St, argv0)
		if !ok {
			return shellerr.New(shellerr.KindExec, shellerr.StatusCommandNotFound, "%s: command not found", argv0)
		}
		path = p
	}
	return syscall.Exec(path, argv, env)
}

// CaptureOutput runs src to completion in a child executor sharing St
// (so variable/function mutations made by the substitution are visible
// afterward, matching a command substitution run in the current
// process rather than a true subshell) but with Out redirected to an
// in-memory buffer, implementing expand.CommandRunner for `$(...)` and
// backtick substitution. Trailing newlines are removed from the returned
// text.
func (ex *Executor) CaptureOutput(src string) (string, int, error) {
	var buf bytes.Buffer
	sub := ex.withStreams(ex.In, &buf, ex.Err)
	status, err := sub.RunSource(src)
	return strings.TrimRight(buf.String(), "\n"), status, err
}

// WaitJob blocks until job id finishes, reaping children in the
// meantime, and returns its final status.
func (ex *Executor) WaitJob(id int) (int, error) {
	j, ok := ex.St.Jobs.Get(id)
	if !ok {
		return 127, shellerr.New(shellerr.KindBuiltin, 127, "wait: %d: no such job", id)
	}
	for {
		jobctl.ReapAvailable(ex.St.Jobs)
		j, ok = ex.St.Jobs.Get(id)
		if !ok || j.State == jobtable.Done {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !ok {
		return 0, nil
	}
	return j.LastStatus, nil
}

// WaitAll blocks until every tracked job has finished (`wait` with no
// argument).
func (ex *Executor) WaitAll() error {
	for {
		jobctl.ReapAvailable(ex.St.Jobs)
		if len(ex.St.Jobs.Running()) == 0 {
			return nil
		}
		time.Sleep(20 * time.Millisecond)
	}
}
