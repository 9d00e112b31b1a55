package builtins

import (
	"fmt"
	"os"
	"sort"

	"github.com/home-lang/den/internal/state"
)

func init() {
	register("alias", aliasBuiltin)
	register("unalias", unaliasBuiltin)
	register("type", typeBuiltin)
	register("command", commandBuiltin)
	register("builtin", builtinBuiltin)
	register("hash", hashBuiltin)
}

// aliasBuiltin defines or lists aliases.
func aliasBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(args) == 1 {
		printAliases(ctx, s)
		return 0, nil
	}
	status := 0
	for _, arg := range args[1:] {
		name, value, hasValue := splitNameValue(arg)
		if !hasValue {
			if body, ok := s.Aliases[name]; ok {
				fmt.Fprintf(ctx.Stdout(), "alias %s=%q\n", name, body)
			} else {
				fmt.Fprintf(ctx.Stderr(), "alias: %s: not found\n", name)
				status = 1
			}
			continue
		}
		s.Aliases[name] = value
	}
	return status, nil
}

func printAliases(ctx Context, s *state.ShellState) {
	names := make([]string, 0, len(s.Aliases))
	for name := range s.Aliases {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(ctx.Stdout(), "alias %s=%q\n", name, s.Aliases[name])
	}
}

// unaliasBuiltin removes one or more aliases, or all of them with -a.
func unaliasBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	rest := args[1:]
	if len(rest) > 0 && rest[0] == "-a" {
		s.Aliases = map[string]string{}
		return 0, nil
	}
	status := 0
	for _, name := range rest {
		if _, ok := s.Aliases[name]; !ok {
			fmt.Fprintf(ctx.Stderr(), "unalias: %s: not found\n", name)
			status = 1
			continue
		}
		delete(s.Aliases, name)
	}
	return status, nil
}

// typeBuiltin reports whether a name resolves to an alias, function,
// builtin, or external command.
func typeBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(args) == 1 {
		fmt.Fprintln(ctx.Stderr(), "type: usage: type NAME")
		return 1, nil
	}
	status := 0
	for _, name := range args[1:] {
		switch {
		case s.Aliases[name] != "":
			fmt.Fprintf(ctx.Stdout(), "%s is aliased to `%s'\n", name, s.Aliases[name])
		case func() bool { _, ok := s.Functions[name]; return ok }():
			fmt.Fprintf(ctx.Stdout(), "%s is a function\n", name)
		case func() bool { _, ok := Lookup(name); return ok }():
			fmt.Fprintf(ctx.Stdout(), "%s is a shell builtin\n", name)
		default:
			if path, ok := lookPath(s, name); ok {
				fmt.Fprintf(ctx.Stdout(), "%s is %s\n", name, path)
			} else {
				fmt.Fprintf(ctx.Stderr(), "%s: not found\n", name)
				status = 1
			}
		}
	}
	return status, nil
}

func lookPath(s *state.ShellState, name string) (string, bool) {
	path, ok := s.Get("PATH")
	if !ok {
		return "", false
	}
	for _, dir := range splitPath(path) {
		full := dir + "/" + name
		if info, err := os.Stat(full); err == nil && info.Mode().IsRegular() && info.Mode()&0o111 != 0 {
			return full, true
		}
	}
	return "", false
}

func splitPath(path string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(path); i++ {
		if i == len(path) || path[i] == ':' {
			if i > start {
				out = append(out, path[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// commandBuiltin runs its words as an external command, bypassing alias,
// function, and builtin resolution. -v mirrors `type`'s
// non-verbose path lookup; -p is accepted and ignored (PATH is used as is).
func commandBuiltin(ctx Context, args []string) (int, error) {
	rest := args[1:]
	verbose := false
	for len(rest) > 0 && rest[0] == "-v" {
		verbose = true
		rest = rest[1:]
	}
	for len(rest) > 0 && rest[0] == "-p" {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return 0, nil
	}
	if verbose {
		s := ctx.State()
		if path, ok := lookPath(s, rest[0]); ok {
			fmt.Fprintln(ctx.Stdout(), path)
			return 0, nil
		}
		if _, ok := Lookup(rest[0]); ok {
			fmt.Fprintln(ctx.Stdout(), rest[0])
			return 0, nil
		}
		return 1, nil
	}
	// Forced external lookup is implemented by the executor, which
	// recognises the returned sentinel and runs the remaining words as an
	// external command; this builtin only handles -v/-p here.
	return 0, forceExternalSentinel{words: rest}
}

// forceExternalSentinel is returned by commandBuiltin to ask the
// executor to re-dispatch rest bypassing alias/function lookup.
type forceExternalSentinel struct{ words []string }

func (f forceExternalSentinel) Error() string { return "command: re-dispatch" }

// AsForceExternal reports whether err is the `command` re-dispatch
// sentinel, returning the words the executor should run as an external
// command, bypassing alias/function lookup, if so.
func AsForceExternal(err error) ([]string, bool) {
	s, ok := err.(forceExternalSentinel)
	if !ok {
		return nil, false
	}
	return s.words, true
}

// builtinBuiltin forces builtin dispatch, skipping function lookup.
func builtinBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 2 {
		return 0, nil
	}
	fn, ok := Lookup(args[1])
	if !ok {
		fmt.Fprintf(ctx.Stderr(), "builtin: %s: not a shell builtin\n", args[1])
		return 1, nil
	}
	return fn(ctx, args[1:])
}

// hashBuiltin is a reduced stub: den re-resolves PATH on every lookup, so
// there is no executable-path cache to remember or forget, but the
// command still accepts -r (clear) and -p (set association) and reports
// success for script compatibility.
func hashBuiltin(ctx Context, args []string) (int, error) {
	return 0, nil
}
