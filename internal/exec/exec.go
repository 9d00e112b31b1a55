// Package exec implements the command-execution pipeline: builtin dispatch, fork/exec, pipeline wiring, I/O redirection,
// and job control, threading the single *state.ShellState value through
// every operation. It is the consumer that
// ties internal/ast, internal/expand, internal/builtins, internal/jobctl,
// and internal/jobtable together; none of those packages import it back.
package exec

import (
	"fmt"
	"io"
	"os"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/builtins"
	"github.com/home-lang/den/internal/denlog"
	"github.com/home-lang/den/internal/expand"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/parser"
	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/state"
)

// Executor holds everything one command line's execution needs: the
// shared shell state, the job controller, and the current standard
// streams (which change as redirections and pipeline stages push new
// ones). Executor values are cheap to copy; withStreams produces a
// shallow copy rather than mutating a shared instance.
type Executor struct {
	St *state.ShellState
	JC *jobctl.Controller

	In  io.Reader
	Out io.Writer
	Err io.Writer

	// Interactive controls whether the EEOF/SIGINT handling and job
	// control foreground transfer apply.
	Interactive bool

	aliasChain map[string]bool
	// inErrTrap suppresses re-entrant ERR trap invocation while the trap's
	// own command runs, so a failing ERR handler cannot recurse.
	inErrTrap bool
}

// New builds an Executor bound to st and jc with the given standard
// streams.
func New(st *state.ShellState, jc *jobctl.Controller, in io.Reader, out, errw io.Writer) *Executor {
	return &Executor{St: st, JC: jc, In: in, Out: out, Err: errw, Interactive: true}
}

func (ex *Executor) withStreams(in io.Reader, out, errw io.Writer) *Executor {
	cp := *ex
	cp.In, cp.Out, cp.Err = in, out, errw
	return &cp
}

func (ex *Executor) expander() *expand.Expander {
	return expand.New(ex.St, ex)
}

// exitSignal is returned internally to unwind every recursive call up to
// RunLine/RunSource when `exit` is invoked or errexit promotes a failure.
// It is the same type builtins.exit
// returns so the two paths converge at one handler.
type exitSignal = builtins.ExitSignal

// RunLine parses src (one accepted input line, possibly containing
// several top-level statements) and executes each in turn, recording it
// in history before execution completes. It returns the final exit status and, if the shell
// should terminate (an `exit` builtin or errexit promotion fired), a
// non-nil error wrapping exitSignal.
func (ex *Executor) RunLine(src string) (int, error) {
	stmts, err := parser.ParseAll(src)
	if err != nil {
		lg := denlog.Component("exec")
		lg.Debug().Err(err).Msg("parse error")
		fmtErr(ex.Err, err)
		ex.St.LastExitCode = shellerr.StatusSyntaxError
		return shellerr.StatusSyntaxError, nil
	}
	ex.St.History.Append(src)

	status := ex.St.LastExitCode
	for _, stmt := range stmts {
		status, err = ex.runTopLevel(stmt)
		ex.St.LastExitCode = status
		if err != nil {
			ex.reapAndReport()
			return status, err
		}
	}
	ex.reapAndReport()
	return status, nil
}

// reapAndReport collects finished background children and prints their
// "[n]+ Done cmd"-style notices, called once per accepted line rather
// than from inside a signal handler.
func (ex *Executor) reapAndReport() {
	jobctl.ReapAvailable(ex.St.Jobs)
	for _, j := range ex.St.Jobs.PendingReports() {
		fmt.Fprintf(ex.Err, "[%d]+  Done(%d)  %s\n", j.ID, j.LastStatus, j.CommandText)
	}
	ex.St.Jobs.PurgeReported()
}

// RunSource parses src and executes its statements in the current shell
// with no history append and no subshell fork, implementing
// builtins.Context.RunSource for `eval`, `source`/`.`, and the `-c` CLI
// form.
func (ex *Executor) RunSource(src string) (int, error) {
	stmts, err := parser.ParseAll(src)
	if err != nil {
		fmtErr(ex.Err, err)
		return shellerr.StatusSyntaxError, nil
	}
	status := 0
	for _, stmt := range stmts {
		status, err = ex.runTopLevel(stmt)
		if err != nil {
			return status, err
		}
	}
	return status, nil
}

// runTopLevel executes one top-level statement. ERR trap and errexit
// handling happen per command inside maybePromoteErrexit, not here, so a
// failure anywhere in a loop body or compound command exits the shell
// immediately rather than being checked once against the statement's
// final status.
func (ex *Executor) runTopLevel(node ast.Node) (int, error) {
	if cmd, ok := ex.St.Traps["DEBUG"]; ok {
		ex.runTrap(cmd)
	}
	status, err := ex.execNode(node, false)
	ex.St.LastExitCode = status

	switch err.(type) {
	case nil:
		return status, nil
	case exitSignal:
		return status, err
	case builtins.ReturnSignal, builtins.BreakSignal, builtins.ContinueSignal:
		// A bare return/break/continue outside any function or loop is a
		// no-op at top level, matching bash's lenient behaviour.
		return status, nil
	default:
		return status, err
	}
}

// maybePromoteErrexit is called after every simple command, pipeline, and
// subshell completes: it fires the ERR trap and, when errexit is on,
// converts the non-zero status into an exit of the whole shell. Condition
// contexts (if/while/until conditions, &&/||, !, pipeline stages) suppress
// both.
func (ex *Executor) maybePromoteErrexit(status int, inCondition bool) error {
	if status == 0 || inCondition {
		return nil
	}
	if cmd, ok := ex.St.Traps["ERR"]; ok && !ex.inErrTrap {
		sub := ex.withStreams(ex.In, ex.Out, ex.Err)
		sub.inErrTrap = true
		sub.RunSource(cmd)
	}
	if ex.St.Options.Flag(state.OptErrExit) {
		return exitSignal{Code: status}
	}
	return nil
}

func (ex *Executor) runTrap(cmd string) {
	sub := ex.withStreams(ex.In, ex.Out, ex.Err)
	sub.RunSource(cmd)
}

// RunExitTrap runs the EXIT trap if one is installed, called once as the
// shell is about to terminate.
func (ex *Executor) RunExitTrap() {
	if cmd, ok := ex.St.Traps["EXIT"]; ok {
		ex.runTrap(cmd)
	}
}

// execNode is the central dispatcher over the tagged AST variants.
// inCondition suppresses errexit promotion for nested
// statements that are themselves a condition (if/while/until, &&/||, !).
func (ex *Executor) execNode(node ast.Node, inCondition bool) (int, error) {
	if node == nil {
		return ex.St.LastExitCode, nil
	}
	switch n := node.(type) {
	case *ast.Simple:
		return ex.execSimple(n, inCondition)
	case *ast.Pipeline:
		return ex.execPipeline(n, inCondition)
	case *ast.AndOr:
		return ex.execAndOr(n)
	case *ast.Subshell:
		return ex.execSubshell(n, inCondition)
	case *ast.Group:
		return ex.execNode(n.Body, inCondition)
	case *ast.If:
		return ex.execIf(n)
	case *ast.While:
		return ex.execWhile(n)
	case *ast.For:
		return ex.execFor(n)
	case *ast.Case:
		return ex.execCase(n)
	case *ast.FunctionDef:
		ex.St.Functions[n.Name] = n
		return 0, nil
	}
	return 1, shellerr.New(shellerr.KindFatal, 1, "exec: unknown node type %T", node)
}

func (ex *Executor) execAndOr(n *ast.AndOr) (int, error) {
	// A leading `A &` is parsed as AndOr{Left: A, Op: OpAsync, Right: nil};
	// it must launch A in the background rather than run it synchronously,
	// so Async is handled before Left is executed.
	if n.Op == ast.OpAsync {
		ex.runAsync(n.Left)
		return 0, nil
	}

	status, err := ex.execNode(n.Left, n.Op == ast.OpAnd || n.Op == ast.OpOr)
	if err != nil {
		return status, err
	}
	if n.Right == nil {
		return status, nil
	}
	switch n.Op {
	case ast.OpAnd:
		if status != 0 {
			return status, nil
		}
		return ex.execNode(n.Right, true)
	case ast.OpOr:
		if status == 0 {
			return status, nil
		}
		return ex.execNode(n.Right, true)
	default: // OpSeq
		return ex.execNode(n.Right, false)
	}
}

func fmtErr(w io.Writer, err error) {
	if w == nil {
		w = os.Stderr
	}
	io.WriteString(w, "den: "+err.Error()+"\n")
}
