package exec

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/builtins"
	"github.com/home-lang/den/internal/denlog"
	"github.com/home-lang/den/internal/state"
)

// execSimple runs one simple command: the command word is checked for an
// alias (which splices the body in and re-parses from that point), then
// redirections are applied, then (for a words-less statement) assignments
// persist directly into shell state, otherwise dispatch goes to a
// function, a builtin, or an external process in that order. A non-zero
// status outside a condition context fires the ERR trap and, under
// errexit, exits the shell immediately.
func (ex *Executor) execSimple(n *ast.Simple, inCondition bool) (int, error) {
	if node, name, ok := ex.spliceAlias(n); ok {
		if ex.aliasChain == nil {
			ex.aliasChain = map[string]bool{}
		}
		ex.aliasChain[name] = true
		status, err := ex.execNode(node, inCondition)
		delete(ex.aliasChain, name)
		return status, err
	}

	status, err := ex.runSimple(n)
	if err != nil {
		return status, err
	}
	return status, ex.maybePromoteErrexit(status, inCondition)
}

func (ex *Executor) runSimple(n *ast.Simple) (int, error) {
	sub, cleanup, err := ex.withRedirections(n.Redirections)
	if err != nil {
		fmtErr(ex.Err, err)
		return 1, nil
	}
	defer cleanup()

	if len(n.Words) == 0 {
		for _, a := range n.Assignments {
			val, err := sub.expander().Word(a.Value)
			if err != nil {
				fmtErr(sub.Err, err)
				return 1, nil
			}
			if err := sub.St.Set(a.Name, val); err != nil {
				fmtErr(sub.Err, err)
				return 1, nil
			}
		}
		return 0, nil
	}

	words, err := sub.expander().Words(n.Words)
	if err != nil {
		fmtErr(sub.Err, err)
		return 1, nil
	}
	if len(words) == 0 {
		return 0, nil
	}
	if sub.St.Options.Flag(state.OptXTrace) {
		ps4, _ := sub.St.Get("PS4")
		if ps4 == "" {
			ps4 = "+ "
		}
		denlog.Trace("exec", ps4+strings.Join(words, " "))
	}

	restore, err := sub.applyTempAssignments(n.Assignments)
	if err != nil {
		fmtErr(sub.Err, err)
		return 1, nil
	}
	defer restore()

	name := words[0]

	if fn, ok := sub.St.Functions[name]; ok {
		return sub.callFunction(fn, words[1:])
	}

	if builtinFn, ok := builtins.Lookup(name); ok {
		status, berr := builtinFn(sub, words)
		if extWords, ok := builtins.AsForceExternal(berr); ok {
			return sub.runExternal(extWords, n.Assignments)
		}
		return status, berr
	}

	return sub.runExternal(words, n.Assignments)
}

// applyTempAssignments sets each assignment directly on shell state,
// returning a restore func, for the "assignment applies only for this
// command's duration" rule builtins/functions observe by reading
// ShellState directly.
func (ex *Executor) applyTempAssignments(assigns []ast.Assignment) (func(), error) {
	if len(assigns) == 0 {
		return func() {}, nil
	}
	type saved struct {
		name string
		had  bool
		val  string
	}
	saves := make([]saved, 0, len(assigns))
	for _, a := range assigns {
		val, err := ex.expander().Word(a.Value)
		if err != nil {
			return func() {}, err
		}
		old, had := ex.St.Get(a.Name)
		saves = append(saves, saved{a.Name, had, old})
		if err := ex.St.Set(a.Name, val); err != nil {
			return func() {}, err
		}
	}
	return func() {
		for _, s := range saves {
			if s.had {
				ex.St.Set(s.name, s.val)
			} else {
				ex.St.Unset(s.name)
			}
		}
	}, nil
}

// scopedEnv builds the environment an external command (or an
// assignment-prefixed simple command) should see: every currently
// exported variable plus assigns, explicitly overridden and exported
// for this invocation regardless of prior export status.
func (ex *Executor) scopedEnv(assigns []ast.Assignment) ([]string, error) {
	base := make(map[string]string, len(ex.St.Env)+len(assigns))
	for k, v := range ex.St.Env {
		base[k] = v
	}
	for _, a := range assigns {
		val, err := ex.expander().Word(a.Value)
		if err != nil {
			return nil, err
		}
		base[a.Name] = val
	}
	out := make([]string, 0, len(base))
	for k, v := range base {
		out = append(out, k+"="+v)
	}
	return out, nil
}

// callFunction binds positional parameters and a fresh local-variable
// frame, runs the body, and converts a ReturnSignal into a plain status.
func (ex *Executor) callFunction(fn *ast.FunctionDef, args []string) (int, error) {
	prevParams := ex.St.PositionalParams
	prevArg0 := ex.St.Arg0Name
	ex.St.PositionalParams = args
	ex.St.Arg0Name = fn.Name
	ex.St.PushLocalFrame()
	ex.St.FuncDepth++

	status, err := ex.execNode(fn.Body, false)

	ex.St.FuncDepth--
	ex.St.PopLocalFrame()
	ex.St.PositionalParams = prevParams
	ex.St.Arg0Name = prevArg0

	switch e := err.(type) {
	case builtins.ReturnSignal:
		return e.Code, nil
	case builtins.BreakSignal, builtins.ContinueSignal:
		return status, nil
	default:
		return status, err
	}
}

// runExternal forks and execs an external program, transferring the
// terminal to its process group when job control is active and
// restoring it to the shell afterward.
func (ex *Executor) runExternal(words []string, assigns []ast.Assignment) (int, error) {
	name := words[0]
	path, ok := lookPathState(ex.St, name)
	if !ok {
		fmt.Fprintf(ex.Err, "den: %s: command not found\n", name)
		return 127, nil
	}
	env, err := ex.scopedEnv(assigns)
	if err != nil {
		fmtErr(ex.Err, err)
		return 1, nil
	}

	cmd := exec.Command(path, words[1:]...)
	cmd.Stdin, cmd.Stdout, cmd.Stderr = ex.In, ex.Out, ex.Err
	cmd.Env = env
	monitor := ex.St.Options.Flag(state.OptMonitor)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: monitor}

	if err := cmd.Start(); err != nil {
		if os.IsPermission(err) {
			fmt.Fprintf(ex.Err, "den: %s: Permission denied\n", name)
			return 126, nil
		}
		fmt.Fprintf(ex.Err, "den: %s: %v\n", name, err)
		return 127, nil
	}

	if ex.Interactive && monitor {
		ex.JC.TakeForeground(cmd.Process.Pid)
	}
	waitErr := cmd.Wait()
	if ex.Interactive && monitor {
		ex.JC.RestoreShellForeground()
	}
	return exitStatusFromError(waitErr), nil
}
