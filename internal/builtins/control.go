package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/home-lang/den/internal/state"
)

func init() {
	register(":", colonBuiltin)
	register("true", trueBuiltin)
	register("false", falseBuiltin)
	register("exit", exitBuiltin)
	register("return", returnBuiltin)
	register("break", breakBuiltin)
	register("continue", continueBuiltin)
	register("shift", shiftBuiltin)
	register("set", setBuiltin)
	register("shopt", shoptBuiltin)
	register("trap", trapBuiltin)
	register("eval", evalBuiltin)
}

func colonBuiltin(ctx Context, args []string) (int, error) { return 0, nil }
func trueBuiltin(ctx Context, args []string) (int, error)  { return 0, nil }
func falseBuiltin(ctx Context, args []string) (int, error) { return 1, nil }

// exitBuiltin unwinds the whole shell. The
// executor is responsible for running the EXIT trap and flushing history
// before the process actually terminates; this builtin only carries the
// requested code up via ExitSignal.
func exitBuiltin(ctx Context, args []string) (int, error) {
	code := ctx.State().LastExitCode
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n & 0xff
		}
	}
	return code, ExitSignal{Code: code}
}

// returnBuiltin unwinds to the caller of the current function.
func returnBuiltin(ctx Context, args []string) (int, error) {
	code := ctx.State().LastExitCode
	if len(args) > 1 {
		if n, err := strconv.Atoi(args[1]); err == nil {
			code = n & 0xff
		}
	}
	return code, ReturnSignal{Code: code}
}

func breakBuiltin(ctx Context, args []string) (int, error) {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
			n = v
		}
	}
	return 0, BreakSignal{N: n}
}

func continueBuiltin(ctx Context, args []string) (int, error) {
	n := 1
	if len(args) > 1 {
		if v, err := strconv.Atoi(args[1]); err == nil && v > 0 {
			n = v
		}
	}
	return 0, ContinueSignal{N: n}
}

// shiftBuiltin drops the first N positional parameters.
func shiftBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	n := 1
	if len(args) > 1 {
		v, err := strconv.Atoi(args[1])
		if err != nil || v < 0 {
			fmt.Fprintln(ctx.Stderr(), "shift: numeric argument required")
			return 1, nil
		}
		n = v
	}
	if n > len(s.PositionalParams) {
		return 1, nil
	}
	s.PositionalParams = s.PositionalParams[n:]
	return 0, nil
}

// setBuiltin implements both POSIX `-o`/short flags and positional
// parameter assignment.
func setBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	rest := args[1:]
	if len(rest) == 0 {
		names := make([]string, 0, len(s.ShellVars)+len(s.Env))
		for name := range s.ShellVars {
			names = append(names, name)
		}
		for name := range s.Env {
			names = append(names, name)
		}
		for _, name := range names {
			v, _ := s.Get(name)
			fmt.Fprintln(ctx.Stdout(), state.FormatVar(name, v))
		}
		return 0, nil
	}

	i := 0
	for i < len(rest) {
		arg := rest[i]
		switch {
		case arg == "--":
			i++
			goto positional
		case arg == "-o" || arg == "+o":
			on := arg == "-o"
			if i+1 >= len(rest) {
				printActiveFlags(ctx, s)
				i++
				continue
			}
			s.Options.SetFlag(rest[i+1], on)
			i += 2
		case len(arg) >= 2 && (arg[0] == '-' || arg[0] == '+'):
			on := arg[0] == '-'
			for _, letter := range arg[1:] {
				if !s.Options.SetShortFlag(byte(letter), on) {
					fmt.Fprintf(ctx.Stderr(), "set: unknown flag -%c\n", letter)
				}
			}
			i++
		default:
			goto positional
		}
	}
positional:
	if i < len(rest) {
		s.PositionalParams = append([]string{}, rest[i:]...)
	}
	return 0, nil
}

func printActiveFlags(ctx Context, s *state.ShellState) {
	for name, on := range s.Options.ActiveFlags() {
		state := "-o"
		if !on {
			state = "+o"
		}
		fmt.Fprintf(ctx.Stdout(), "set %s %s\n", state, name)
	}
}

// shoptBuiltin toggles named options.
func shoptBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	rest := args[1:]
	if len(rest) == 0 {
		return 0, nil
	}
	on := true
	switch rest[0] {
	case "-s":
		on = true
		rest = rest[1:]
	case "-u":
		on = false
		rest = rest[1:]
	case "-p":
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 0, nil
	}
	for _, name := range rest {
		s.Options.SetNamed(name, on)
	}
	return 0, nil
}

// trapBuiltin installs a handler command for a signal name or EXIT/DEBUG/
// ERR. Handlers are run synchronously by the
// executor between statements, never from an OS signal context.
func trapBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	rest := args[1:]
	if len(rest) == 0 {
		for sig, cmd := range s.Traps {
			fmt.Fprintf(ctx.Stdout(), "trap -- %q %s\n", cmd, sig)
		}
		return 0, nil
	}
	if rest[0] == "-l" {
		return 0, nil
	}
	if rest[0] == "-p" {
		for _, sig := range rest[1:] {
			if cmd, ok := s.Traps[strings.ToUpper(sig)]; ok {
				fmt.Fprintf(ctx.Stdout(), "trap -- %q %s\n", cmd, sig)
			}
		}
		return 0, nil
	}
	if len(rest) < 2 {
		fmt.Fprintln(ctx.Stderr(), "trap: usage: trap [command] signal...")
		return 2, nil
	}
	cmd := rest[0]
	for _, sig := range rest[1:] {
		name := strings.ToUpper(sig)
		if cmd == "-" {
			delete(s.Traps, name)
			continue
		}
		s.Traps[name] = cmd
	}
	return 0, nil
}

// evalBuiltin re-enters the parser with a new source buffer built from
// its joined arguments.
func evalBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 2 {
		return 0, nil
	}
	src := strings.Join(args[1:], " ")
	return ctx.RunSource(src)
}
