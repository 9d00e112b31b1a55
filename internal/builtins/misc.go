package builtins

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"syscall"
)

func init() {
	register("source", sourceBuiltin)
	register(".", sourceBuiltin)
	register("exec", execBuiltin)
	register("getopts", getoptsBuiltin)
	register("umask", umaskBuiltin)
	register("times", timesBuiltin)
	register("history", historyBuiltin)
	register("help", helpBuiltin)
}

// sourceBuiltin reads a file and executes its contents in the current
// shell, no subshell fork.
func sourceBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 2 {
		fmt.Fprintln(ctx.Stderr(), args[0]+": filename argument required")
		return 2, nil
	}
	data, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "%s: %s: %v\n", args[0], args[1], err)
		return 1, nil
	}
	prev := ctx.State().PositionalParams
	if len(args) > 2 {
		ctx.State().PositionalParams = args[2:]
	}
	status, err := ctx.RunSource(string(data))
	ctx.State().PositionalParams = prev
	return status, err
}

// execBuiltin either replaces the current process image, or (when only
// redirections are given) applies them permanently to the shell itself.
// The
// redirect-only form is handled upstream by the executor recognising a
// bare `exec` with no command words; this builtin handles the
// replace-current form.
func execBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 2 {
		return 0, nil
	}
	argv0 := args[1]
	env := os.Environ()
	if err := ctx.Exec(argv0, args[1:], env); err != nil {
		fmt.Fprintf(ctx.Stderr(), "exec: %s: %v\n", argv0, err)
		return 126, nil
	}
	return 0, nil // unreachable on success
}

// getoptsBuiltin implements POSIX option parsing over the positional
// parameters, advancing OPTIND each call.
func getoptsBuiltin(ctx Context, args []string) (int, error) {
	if len(args) < 3 {
		fmt.Fprintln(ctx.Stderr(), "getopts: usage: getopts optstring name [arg...]")
		return 2, nil
	}
	optstring := args[1]
	name := args[2]
	s := ctx.State()

	optindStr, _ := s.Get("OPTIND")
	optind, err := strconv.Atoi(optindStr)
	if err != nil || optind < 1 {
		optind = 1
	}

	params := s.PositionalParams
	if len(args) > 3 {
		params = args[3:]
	}

	if optind-1 >= len(params) {
		s.Set("OPTIND", strconv.Itoa(optind))
		return 1, nil
	}
	arg := params[optind-1]
	if len(arg) < 2 || arg[0] != '-' || arg == "-" {
		s.Set("OPTIND", strconv.Itoa(optind))
		return 1, nil
	}
	if arg == "--" {
		s.Set("OPTIND", strconv.Itoa(optind+1))
		return 1, nil
	}

	opt := string(arg[1])
	idx := strings.IndexByte(optstring, opt[0])
	if idx < 0 {
		s.Set(name, "?")
		s.Set("OPTARG", opt)
		s.Set("OPTIND", strconv.Itoa(optind+1))
		return 0, nil
	}

	needsArg := idx+1 < len(optstring) && optstring[idx+1] == ':'
	if needsArg {
		if len(arg) > 2 {
			s.Set("OPTARG", arg[2:])
			optind++
		} else if optind < len(params) {
			s.Set("OPTARG", params[optind])
			optind += 2
		} else {
			s.Set(name, "?")
			s.Set("OPTIND", strconv.Itoa(optind+1))
			return 0, nil
		}
	} else {
		optind++
	}

	s.Set(name, opt)
	s.Set("OPTIND", strconv.Itoa(optind))
	return 0, nil
}

// umaskBuiltin reports or sets the shell's file-creation mask.
func umaskBuiltin(ctx Context, args []string) (int, error) {
	s := ctx.State()
	if len(args) == 1 {
		fmt.Fprintf(ctx.Stdout(), "%04o\n", s.Umask)
		return 0, nil
	}
	n, err := strconv.ParseUint(args[1], 8, 32)
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "umask: %s: invalid mode\n", args[1])
		return 1, nil
	}
	s.Umask = uint32(n)
	syscall.Umask(int(n))
	return 0, nil
}

// timesBuiltin reports accumulated user/system CPU time for the shell
// and its reaped children.
func timesBuiltin(ctx Context, args []string) (int, error) {
	var ru syscall.Rusage
	syscall.Getrusage(syscall.RUSAGE_SELF, &ru)
	var ruChildren syscall.Rusage
	syscall.Getrusage(syscall.RUSAGE_CHILDREN, &ruChildren)
	fmt.Fprintf(ctx.Stdout(), "%s\n", formatRusageLine(ru))
	fmt.Fprintf(ctx.Stdout(), "%s\n", formatRusageLine(ruChildren))
	return 0, nil
}

func formatRusageLine(ru syscall.Rusage) string {
	user := float64(ru.Utime.Sec) + float64(ru.Utime.Usec)/1e6
	sys := float64(ru.Stime.Sec) + float64(ru.Stime.Usec)/1e6
	return fmt.Sprintf("%dm%.3fs %dm%.3fs", int(user)/60, user, int(sys)/60, sys)
}

// historyBuiltin lists recorded history, or clears it with -c.
func historyBuiltin(ctx Context, args []string) (int, error) {
	h := ctx.State().History
	if len(args) > 1 && args[1] == "-c" {
		h.Clear()
		return 0, nil
	}
	entries := h.All()
	for i := len(entries) - 1; i >= 0; i-- {
		fmt.Fprintf(ctx.Stdout(), "%5d  %s\n", i+1, entries[i].Line)
	}
	return 0, nil
}

// helpBuiltin lists every registered builtin name.
func helpBuiltin(ctx Context, args []string) (int, error) {
	names := Names()
	sort.Strings(names)
	for _, n := range names {
		fmt.Fprintln(ctx.Stdout(), n)
	}
	return 0, nil
}
