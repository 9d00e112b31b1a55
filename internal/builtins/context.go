// Package builtins implements the shell's in-process commands, split by
// responsibility into nav/vars/io/control/aliasfn/jobs/misc.
// Builtins never import internal/exec; instead they depend on the small
// Context interface below, which internal/exec's Executor implements, so
// the executor can dispatch into builtins without a circular import.
package builtins

import (
	"io"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/jobtable"
	"github.com/home-lang/den/internal/state"
)

// Context is everything a builtin needs from its caller: the current
// standard streams, the shell state, job control, and the ability to
// expand words or re-enter execution (for `eval`, `source`, `command`).
type Context interface {
	Stdin() io.Reader
	Stdout() io.Writer
	Stderr() io.Writer

	State() *state.ShellState
	Jobs() *jobtable.Table
	JobCtl() *jobctl.Controller

	ExpandWords(words []ast.Word) ([]string, error)
	ExpandWord(w ast.Word) (string, error)
	EvalArith(expr string) (int64, error)

	// RunSource parses src as a sequence of statements and executes them
	// in the current shell (no subshell fork), returning the exit status
	// of the last statement. Used by `eval`, `source`/`.`, and `-c`.
	RunSource(src string) (int, error)

	// LookupFunction/DefineFunction expose the function table for `type`,
	// `unset -f`, and function-definition statements reached via `eval`.
	LookupFunction(name string) (*ast.FunctionDef, bool)
	DefineFunction(fn *ast.FunctionDef)

	// Exec replaces the current process image (the `exec` builtin's
	// replace-current form), never returning on success.
	Exec(argv0 string, argv []string, env []string) error

	// WaitJob blocks until job id completes, reaping in the meantime, and
	// returns its final status.
	WaitJob(id int) (int, error)

	// WaitAll blocks until every background job has completed (`wait`
	// with no argument).
	WaitAll() error
}

// Func is the signature every builtin implements. args[0] is the builtin
// name as invoked (honouring any alias); args[1:] are its expanded
// arguments. Assignments that preceded the command word are not passed in;
// the executor applies them to the scoped environment before the call.
type Func func(ctx Context, args []string) (int, error)
