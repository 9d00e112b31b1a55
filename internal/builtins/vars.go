package builtins

import (
	"fmt"
	"sort"
	"strings"

	"github.com/home-lang/den/internal/state"
)

func init() {
	register("export", exportBuiltin)
	register("readonly", readonlyBuiltin)
	register("unset", unsetBuiltin)
	register("local", localBuiltin)
	register("declare", declareBuiltin)
	register("typeset", declareBuiltin)
	register("let", letBuiltin)
}

func splitNameValue(arg string) (name, value string, hasValue bool) {
	if idx := strings.IndexByte(arg, '='); idx >= 0 {
		return arg[:idx], arg[idx+1:], true
	}
	return arg, "", false
}

func exportBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(args) == 1 {
		printExported(ctx, s)
		return 0, nil
	}
	for _, arg := range args[1:] {
		if arg == "-p" {
			printExported(ctx, s)
			continue
		}
		name, value, hasValue := splitNameValue(arg)
		if hasValue {
			if err := s.Set(name, value); err != nil {
				fmt.Fprintf(ctx.Stderr(), "export: %v\n", err)
				return 1, nil
			}
		}
		s.Export(name)
	}
	return 0, nil
}

func printExported(ctx Context, s *state.ShellState) {
	names := make([]string, 0, len(s.Env))
	for name := range s.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(ctx.Stdout(), "export %s\n", state.FormatVar(name, s.Env[name]))
	}
}

func readonlyBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(args) == 1 {
		names := make([]string, 0, len(s.Readonly))
		for name := range s.Readonly {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			v, _ := s.Get(name)
			fmt.Fprintf(ctx.Stdout(), "readonly %s\n", state.FormatVar(name, v))
		}
		return 0, nil
	}
	for _, arg := range args[1:] {
		name, value, hasValue := splitNameValue(arg)
		if hasValue {
			if err := s.Set(name, value); err != nil {
				fmt.Fprintf(ctx.Stderr(), "readonly: %v\n", err)
				return 1, nil
			}
		}
		s.Readonly[name] = true
	}
	return 0, nil
}

func unsetBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	unsetFunc := false
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "-f" {
		unsetFunc = true
		rest = rest[1:]
	} else if len(rest) > 0 && rest[0] == "-v" {
		rest = rest[1:]
	}
	status := 0
	for _, name := range rest {
		if unsetFunc {
			delete(s.Functions, name)
			continue
		}
		if err := s.Unset(name); err != nil {
			fmt.Fprintf(ctx.Stderr(), "unset: %v\n", err)
			status = 1
		}
	}
	return status, nil
}

// localBuiltin declares a variable scoped to the current function frame.
func localBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(s.LocalStack) == 0 {
		fmt.Fprintln(ctx.Stderr(), "local: can only be used in a function")
		return 1, nil
	}
	for _, arg := range args[1:] {
		name, value, hasValue := splitNameValue(arg)
		if !hasValue {
			if existing, ok := s.Get(name); ok {
				value = existing
			}
		}
		s.DeclareLocal(name, value)
	}
	return 0, nil
}

// declareBuiltin is a reduced `declare`/`typeset`: recognises -x
// (export), -r (readonly), -p (print), -a/-i are accepted but carry no
// extra type enforcement beyond ordinary string storage.
func declareBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	exportFlag, readonlyFlag, printFlag := false, false, false
	var rest []string
	for _, arg := range args[1:] {
		switch {
		case arg == "-x":
			exportFlag = true
		case arg == "-r":
			readonlyFlag = true
		case arg == "-p":
			printFlag = true
		case strings.HasPrefix(arg, "-"):
			// -a/-i/-n and combined short flags accepted, unenforced
		default:
			rest = append(rest, arg)
		}
	}
	if printFlag || len(rest) == 0 {
		names := make([]string, 0, len(s.ShellVars)+len(s.Env))
		for name := range s.ShellVars {
			names = append(names, name)
		}
		for name := range s.Env {
			names = append(names, name)
		}
		sort.Strings(names)
		seen := map[string]bool{}
		for _, name := range names {
			if seen[name] {
				continue
			}
			seen[name] = true
			v, _ := s.Get(name)
			fmt.Fprintln(ctx.Stdout(), state.FormatVar(name, v))
		}
		return 0, nil
	}
	for _, arg := range rest {
		name, value, hasValue := splitNameValue(arg)
		if hasValue {
			if len(s.LocalStack) > 0 {
				s.DeclareLocal(name, value)
			} else if err := s.Set(name, value); err != nil {
				fmt.Fprintf(ctx.Stderr(), "declare: %v\n", err)
				return 1, nil
			}
		} else if len(s.LocalStack) > 0 {
			s.DeclareLocal(name, "")
		}
		if exportFlag {
			s.Export(name)
		}
		if readonlyFlag {
			s.Readonly[name] = true
		}
	}
	return 0, nil
}

// letBuiltin evaluates each argument as an arithmetic expression; exit
// status is 1 iff the last expression evaluated to 0.
func letBuiltin(ctx Context, args []string) (int, error) {
	if len(args) == 1 {
		fmt.Fprintln(ctx.Stderr(), "let: expression expected")
		return 2, nil
	}
	var last int64
	for _, expr := range args[1:] {
		v, err := ctx.EvalArith(expr)
		if err != nil {
			fmt.Fprintf(ctx.Stderr(), "let: %v\n", err)
			return 1, nil
		}
		last = v
	}
	if last == 0 {
		return 1, nil
	}
	return 0, nil
}
