// Command den is the shell's entrypoint: a single cobra root command
// dispatching between interactive, -c, script-file, and stdin modes.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/home-lang/den/internal/config"
	"github.com/home-lang/den/internal/denlog"
	"github.com/home-lang/den/internal/editor"
	"github.com/home-lang/den/internal/exec"
	"github.com/home-lang/den/internal/jobctl"
	"github.com/home-lang/den/internal/prompt"
	"github.com/home-lang/den/internal/state"
)

var (
	flagLogin     bool
	flagCommand   string
	flagStdin     bool
	flagErrExit   bool
	flagNoUnset   bool
	flagXTrace    bool
	flagNoExec    bool
	flagSetOpts   []string // -o NAME, repeatable
	flagUnsetOpts []string // +o NAME, extracted by hand before cobra sees argv
)

func main() {
	root, scriptArgs := buildRootCommand()
	root.SetArgs(scriptArgs)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "den: "+err.Error())
		os.Exit(1)
	}
}

// buildRootCommand assembles the cobra root command and hand-extracts
// any `+o NAME` occurrences from os.Args first, since pflag has no way
// to register a flag spelled with a leading `+`.
func buildRootCommand() (*cobra.Command, []string) {
	rawArgs := os.Args[1:]
	filtered := make([]string, 0, len(rawArgs))
	for i := 0; i < len(rawArgs); i++ {
		if rawArgs[i] == "+o" && i+1 < len(rawArgs) {
			flagUnsetOpts = append(flagUnsetOpts, rawArgs[i+1])
			i++
			continue
		}
		filtered = append(filtered, rawArgs[i])
	}

	root := &cobra.Command{
		Use:   "den [script] [args...]",
		Short: "den — a POSIX-flavoured interactive command shell",
		RunE:  runRoot,
		Args:  cobra.ArbitraryArgs,
		// `--` separates den's own flags from the script's positional
		// arguments; cobra already stops flag parsing at `--`, so the
		// script path and its args arrive in Args untouched.
		DisableFlagsInUseLine: true,
	}
	root.Flags().BoolVarP(&flagLogin, "login", "i", false, "run as an interactive login shell")
	root.Flags().StringVarP(&flagCommand, "command", "c", "", "execute the given command string and exit")
	root.Flags().BoolVarP(&flagStdin, "stdin", "s", false, "read commands from standard input")
	root.Flags().BoolVarP(&flagErrExit, "errexit", "e", false, "set -e: exit on first command failure")
	root.Flags().BoolVarP(&flagNoUnset, "nounset", "u", false, "set -u: error on unset variable expansion")
	root.Flags().BoolVarP(&flagXTrace, "xtrace", "x", false, "set -x: trace expanded commands to stderr")
	root.Flags().BoolVarP(&flagNoExec, "noexec", "n", false, "set -n: parse only, never execute")
	root.Flags().StringArrayVarP(&flagSetOpts, "set-option", "o", nil, "set -o NAME")

	return root, filtered
}

func runRoot(cmd *cobra.Command, args []string) error {
	st := state.New()
	interactive := flagLogin || (flagCommand == "" && !flagStdin && len(args) == 0)

	denlog.Configure(interactive, os.Stderr)
	if flagXTrace {
		st.Options.SetFlag(state.OptXTrace, true)
		denlog.SetLevel(zerolog.DebugLevel)
	}
	applyBoolFlag(st, state.OptErrExit, flagErrExit)
	applyBoolFlag(st, state.OptNoUnset, flagNoUnset)
	applyBoolFlag(st, state.OptNoExec, flagNoExec)
	for _, name := range flagSetOpts {
		st.Options.SetFlag(name, true)
	}
	for _, name := range flagUnsetOpts {
		st.Options.SetFlag(name, false)
	}

	cfg, cfgPath, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "den: "+err.Error())
		cfg = config.Default()
	}
	for name, val := range cfg.Aliases {
		st.Aliases[name] = val
	}
	for name, val := range cfg.Env {
		st.Env[name] = val
	}

	jc := jobctl.New(0, interactive)
	ex := exec.New(st, jc, os.Stdin, os.Stdout, os.Stderr)
	ex.Interactive = interactive

	sigchld := make(chan os.Signal, 8)
	sigint := make(chan os.Signal, 8)
	signal.Notify(sigchld, syscall.SIGCHLD)
	signal.Notify(sigint, os.Interrupt)
	stopSignals := jobctl.InstallSignalFlags(sigchld, sigint)
	defer stopSignals()

	if err := st.History.Load(); err != nil {
		lg := denlog.Component("history")
		lg.Debug().Err(err).Msg("history load failed")
	}
	if interactive {
		sourceStartupFiles(ex)
	}

	rend := prompt.New(cfg.Theme)
	if cfgPath != "" {
		config.Watch(cfgPath, func(c *config.Config) { rend.SetTheme(c.Theme) })
	}

	switch {
	case flagCommand != "":
		status, runErr := ex.RunSource(flagCommand)
		shutdown(ex)
		return exitFrom(status, runErr)

	case flagStdin:
		// -s reads from standard input even when a script path was also
		// given; the remaining args still become positional parameters.
		st.PositionalParams = args
		return runScript(ex, os.Stdin)

	case len(args) > 0:
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		prevArgs := st.PositionalParams
		st.Arg0Name = args[0]
		st.PositionalParams = args[1:]
		defer func() { st.PositionalParams = prevArgs }()
		return runScript(ex, f)

	case !interactive:
		return runScript(ex, os.Stdin)

	default:
		ps1 := cfg.PS1
		if v, ok := st.Get("PS1"); ok && v != "" {
			ps1 = v
		}
		return runInteractive(ex, st, rend, ps1)
	}
}

// sourceStartupFiles runs the login-style profile and then the per-shell
// RC file, once each, for interactive shells. A missing file is simply skipped.
func sourceStartupFiles(ex *exec.Executor) {
	home, err := os.UserHomeDir()
	if err != nil {
		return
	}
	for _, name := range []string{".profile", ".denrc"} {
		data, err := os.ReadFile(filepath.Join(home, name))
		if err != nil {
			continue
		}
		if _, err := ex.RunSource(string(data)); err != nil {
			lg := denlog.Component("startup")
			lg.Debug().Err(err).Str("file", name).Msg("startup file aborted")
		}
	}
}

func applyBoolFlag(st *state.ShellState, name string, on bool) {
	if on {
		st.Options.SetFlag(name, true)
	}
}

func runScript(ex *exec.Executor, f *os.File) error {
	data, err := readAll(f)
	if err != nil {
		return err
	}
	status, runErr := ex.RunSource(string(data))
	shutdown(ex)
	return exitFrom(status, runErr)
}

// shutdown performs the end-of-shell sequence: the EXIT trap first, then
// the SIGHUP-grace-SIGKILL sweep over surviving background jobs, then a
// final history flush truncated to HISTSIZE.
func shutdown(ex *exec.Executor) {
	ex.RunExitTrap()
	ex.JC.ShutdownBackgroundJobs(ex.St.Jobs)
	ex.St.History.Flush()
}

func readAll(f *os.File) ([]byte, error) {
	var buf []byte
	chunk := make([]byte, 4096)
	for {
		n, err := f.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			break
		}
	}
	return buf, nil
}

func runInteractive(ex *exec.Executor, st *state.ShellState, rend *prompt.Renderer, ps1 string) error {
	if ps1 == "" {
		ps1 = `\u@\h \W \$ `
	}
	for {
		res, err := editor.Run(st, st.History, rend, ps1)
		if err != nil {
			return err
		}
		if res.EOF {
			break
		}
		if !res.Submitted {
			continue
		}
		line := strings.TrimSpace(res.Line)
		if line == "" {
			continue
		}
		status, runErr := ex.RunLine(line)
		st.LastExitCode = status
		if runErr != nil {
			shutdown(ex)
			return exitFrom(status, runErr)
		}
	}
	shutdown(ex)
	return nil
}

// exitFrom maps an exitSignal-carrying error to cobra's convention: a
// non-nil error triggers os.Exit(1) in main, so a clean exit (even with
// nonzero status) calls os.Exit directly here to preserve the exact
// code instead of collapsing it to 1.
func exitFrom(status int, err error) error {
	if err == nil {
		if status != 0 {
			os.Exit(status)
		}
		return nil
	}
	os.Exit(status)
	return nil
}
