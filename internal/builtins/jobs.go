package builtins

import (
	"fmt"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/home-lang/den/internal/jobtable"
)

func init() {
	register("jobs", jobsBuiltin)
	register("fg", fgBuiltin)
	register("bg", bgBuiltin)
	register("wait", waitBuiltin)
	register("disown", disownBuiltin)
	register("kill", killBuiltin)
}

// parseJobID accepts the `%n` job-id form or a bare job-id, returning
// 0, false if neither parses.
func parseJobID(arg string) (int, bool) {
	arg = strings.TrimPrefix(arg, "%")
	n, err := strconv.Atoi(arg)
	if err != nil {
		return 0, false
	}
	return n, true
}

func jobsBuiltin(ctx Context, args []string) (int, error) {
	for _, j := range ctx.Jobs().List() {
		marker := "+"
		fmt.Fprintf(ctx.Stdout(), "[%d]%s  %-10s %s\n", j.ID, marker, strings.ToLower(j.State.String()), j.CommandText)
	}
	return 0, nil
}

// fgBuiltin restores a background job's process group to the foreground
// and waits for it.
func fgBuiltin(ctx Context, args []string) (int, error) {
	id, ok := latestOrNamed(ctx, args)
	if !ok {
		fmt.Fprintln(ctx.Stderr(), "fg: no current job")
		return 1, nil
	}
	j, ok := ctx.Jobs().Get(id)
	if !ok {
		fmt.Fprintf(ctx.Stderr(), "fg: %d: no such job\n", id)
		return 1, nil
	}
	fmt.Fprintln(ctx.Stdout(), j.CommandText)
	if err := ctx.JobCtl().TakeForeground(j.PGID); err != nil {
		fmt.Fprintf(ctx.Stderr(), "fg: %v\n", err)
	}
	if j.State == jobtable.Stopped {
		ctx.JobCtl().Continue(j.PGID)
	}
	status, err := ctx.WaitJob(id)
	ctx.JobCtl().RestoreShellForeground()
	if err != nil {
		fmt.Fprintf(ctx.Stderr(), "fg: %v\n", err)
		return 1, nil
	}
	return status, nil
}

// bgBuiltin sends SIGCONT and leaves the job running in the background.
func bgBuiltin(ctx Context, args []string) (int, error) {
	id, ok := latestOrNamed(ctx, args)
	if !ok {
		fmt.Fprintln(ctx.Stderr(), "bg: no current job")
		return 1, nil
	}
	j, ok := ctx.Jobs().Get(id)
	if !ok {
		fmt.Fprintf(ctx.Stderr(), "bg: %d: no such job\n", id)
		return 1, nil
	}
	if err := ctx.JobCtl().Continue(j.PGID); err != nil {
		fmt.Fprintf(ctx.Stderr(), "bg: %v\n", err)
		return 1, nil
	}
	ctx.Jobs().SetState(id, jobtable.Running, 0)
	fmt.Fprintf(ctx.Stdout(), "[%d]+ %s &\n", j.ID, j.CommandText)
	return 0, nil
}

func latestOrNamed(ctx Context, args []string) (int, bool) {
	if len(args) > 1 {
		return parseJobID(args[1])
	}
	jobs := ctx.Jobs().List()
	if len(jobs) == 0 {
		return 0, false
	}
	return jobs[len(jobs)-1].ID, true
}

// waitBuiltin blocks on a specific job/pid or, with no argument, on every
// background job.
func waitBuiltin(ctx Context, args []string) (int, error) {
	if len(args) == 1 {
		if err := ctx.WaitAll(); err != nil {
			fmt.Fprintf(ctx.Stderr(), "wait: %v\n", err)
			return 1, nil
		}
		return 0, nil
	}
	status := 0
	for _, arg := range args[1:] {
		id, ok := parseJobID(arg)
		if !ok {
			fmt.Fprintf(ctx.Stderr(), "wait: %s: not a valid job id\n", arg)
			status = 1
			continue
		}
		s, err := ctx.WaitJob(id)
		if err != nil {
			fmt.Fprintf(ctx.Stderr(), "wait: %v\n", err)
			status = 1
			continue
		}
		status = s
	}
	return status, nil
}

// disownBuiltin removes a job from the table without signalling it.
func disownBuiltin(ctx Context, args []string) (int, error) {
	id, ok := latestOrNamed(ctx, args)
	if !ok {
		fmt.Fprintln(ctx.Stderr(), "disown: no current job")
		return 1, nil
	}
	if j, ok := ctx.Jobs().Get(id); ok {
		j.Disowned = true
	}
	ctx.Jobs().Disown(id)
	return 0, nil
}

// killBuiltin sends signals by job-id (%n) or raw pid.
func killBuiltin(ctx Context, args []string) (int, error) {
	rest := args[1:]
	sig := unix.SIGTERM
	if len(rest) > 0 && strings.HasPrefix(rest[0], "-") {
		name := strings.ToUpper(strings.TrimPrefix(rest[0], "-"))
		if n, err := strconv.Atoi(name); err == nil {
			sig = unix.Signal(n)
		} else if s, ok := signalByName[name]; ok {
			sig = s
		}
		rest = rest[1:]
	}
	status := 0
	for _, target := range rest {
		if strings.HasPrefix(target, "%") {
			id, ok := parseJobID(target)
			if !ok {
				fmt.Fprintf(ctx.Stderr(), "kill: %s: no such job\n", target)
				status = 1
				continue
			}
			j, ok := ctx.Jobs().Get(id)
			if !ok {
				fmt.Fprintf(ctx.Stderr(), "kill: %d: no such job\n", id)
				status = 1
				continue
			}
			if err := ctx.JobCtl().Signal(j.PGID, sig); err != nil {
				fmt.Fprintf(ctx.Stderr(), "kill: %v\n", err)
				status = 1
			}
			continue
		}
		pid, err := strconv.Atoi(target)
		if err != nil {
			fmt.Fprintf(ctx.Stderr(), "kill: %s: arguments must be process or job IDs\n", target)
			status = 1
			continue
		}
		if err := unix.Kill(pid, sig); err != nil {
			fmt.Fprintf(ctx.Stderr(), "kill: (%d) - %v\n", pid, err)
			status = 1
		}
	}
	return status, nil
}

var signalByName = map[string]unix.Signal{
	"HUP": unix.SIGHUP, "INT": unix.SIGINT, "QUIT": unix.SIGQUIT,
	"KILL": unix.SIGKILL, "TERM": unix.SIGTERM, "STOP": unix.SIGSTOP,
	"CONT": unix.SIGCONT, "TSTP": unix.SIGTSTP, "USR1": unix.SIGUSR1,
	"USR2": unix.SIGUSR2,
}
