// Package jobctl owns terminal/process-group mechanics for job control.
// It is kept
// separate from internal/exec so the syscall surface touching unix.* has
// one small, testable home.
package jobctl

import (
	"os"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/home-lang/den/internal/denlog"
	"github.com/home-lang/den/internal/jobtable"
)

// sigchldFlag is set by the SIGCHLD handler and polled by the main loop
// between statements.
var sigchldFlag int32

// sigintFlag likewise records a pending ctrl-c for the foreground job or
// the line editor to observe at the next syscall return.
var sigintFlag int32

// Controller manages process-group foreground ownership and reaping for
// one shell instance.
type Controller struct {
	mu       sync.Mutex
	ttyFd    int
	shellPGID int
	interactive bool
}

// New builds a Controller bound to fd (normally os.Stdin's fd). interactive
// controls whether terminal ownership is actually transferred; a non-tty
// or non-interactive shell skips tcsetpgrp entirely.
func New(fd int, interactive bool) *Controller {
	pgid, _ := unix.Getpgid(os.Getpid())
	return &Controller{ttyFd: fd, shellPGID: pgid, interactive: interactive}
}

// InstallSignalFlags wires SIGCHLD/SIGINT to the package-level atomic
// flags; call once at shell startup before the main loop begins. Go's
// runtime already delivers signals through a channel rather than a true
// async-signal-handler, but the flag-then-poll shape keeps the reaping
// logic reusable outside a signal context (e.g. in tests).
func InstallSignalFlags(sigchld, sigint <-chan os.Signal) (stop func()) {
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-sigchld:
				atomic.StoreInt32(&sigchldFlag, 1)
			case <-sigint:
				atomic.StoreInt32(&sigintFlag, 1)
			case <-done:
				return
			}
		}
	}()
	return func() { close(done) }
}

// PollSigchld reports and clears a pending SIGCHLD.
func PollSigchld() bool { return atomic.CompareAndSwapInt32(&sigchldFlag, 1, 0) }

// PollSigint reports and clears a pending SIGINT.
func PollSigint() bool { return atomic.CompareAndSwapInt32(&sigintFlag, 1, 0) }

// NewProcessGroup puts pid into its own process group, leader pid itself.
// Pipelines do not call it; they set the group through SysProcAttr.
func (c *Controller) NewProcessGroup(pid int) error {
	return unix.Setpgid(pid, pid)
}

// JoinProcessGroup adds pid to an already-created group led by pgid.
func (c *Controller) JoinProcessGroup(pid, pgid int) error {
	return unix.Setpgid(pid, pgid)
}

// TakeForeground transfers terminal ownership to pgid. A no-op when the controller is
// not interactive; the monitor option is not consulted here.
func (c *Controller) TakeForeground(pgid int) error {
	if !c.interactive {
		return nil
	}
	return unix.IoctlSetPointerInt(c.ttyFd, unix.TIOCSPGRP, pgid)
}

// RestoreShellForeground returns the terminal to the shell's own process
// group, called after a foreground job stops or finishes.
func (c *Controller) RestoreShellForeground() error {
	return c.TakeForeground(c.shellPGID)
}

// ReapResult describes one reaped child.
type ReapResult struct {
	PID    int
	PGID   int
	Status unix.WaitStatus
}

// ReapAvailable performs non-blocking waits until no more children have
// changed state, updating tbl accordingly.
func ReapAvailable(tbl *jobtable.Table) []ReapResult {
	var out []ReapResult
	log := denlog.Component("jobctl")
	for {
		var ws unix.WaitStatus
		pid, err := unix.Wait4(-1, &ws, unix.WNOHANG|unix.WUNTRACED|unix.WCONTINUED, nil)
		if err != nil || pid <= 0 {
			break
		}
		pgid, _ := unix.Getpgid(pid)
		out = append(out, ReapResult{PID: pid, PGID: pgid, Status: ws})

		j, ok := tbl.ByPGID(pgid)
		if !ok {
			continue
		}
		switch {
		case ws.Exited():
			tbl.SetState(j.ID, jobtable.Done, ws.ExitStatus())
		case ws.Signaled():
			tbl.SetState(j.ID, jobtable.Done, 128+int(ws.Signal()))
		case ws.Stopped():
			tbl.SetState(j.ID, jobtable.Stopped, 0)
		case ws.Continued():
			tbl.SetState(j.ID, jobtable.Running, 0)
		}
		log.Debug().Int("pid", pid).Int("pgid", pgid).Str("job", j.State.String()).Msg("reaped")
	}
	return out
}

// Stop sends SIGSTOP... actually SIGTSTP to a job's group for ctrl-z
// style suspension; exported for the editor/signal layer to call.
func (c *Controller) Stop(pgid int) error {
	return unix.Kill(-pgid, unix.SIGTSTP)
}

// Continue sends SIGCONT to a job's group (`bg`/`fg`).
func (c *Controller) Continue(pgid int) error {
	return unix.Kill(-pgid, unix.SIGCONT)
}

// Signal sends an arbitrary signal to a job's process group, used by the
// `kill` builtin with a job-id argument.
func (c *Controller) Signal(pgid int, sig unix.Signal) error {
	return unix.Kill(-pgid, sig)
}

// ShutdownGracePeriod is how long background jobs get between SIGHUP and
// SIGKILL on shell exit.
const ShutdownGracePeriod = 2 * time.Second

// ShutdownBackgroundJobs signals every non-disowned running job, first
// with SIGHUP, then escalates to SIGKILL for survivors after
// ShutdownGracePeriod.
func (c *Controller) ShutdownBackgroundJobs(tbl *jobtable.Table) {
	jobs := tbl.Running()
	if len(jobs) == 0 {
		return
	}
	log := denlog.Component("jobctl")
	for _, j := range jobs {
		if j.Disowned {
			continue
		}
		if err := unix.Kill(-j.PGID, unix.SIGHUP); err != nil {
			log.Debug().Err(err).Int("pgid", j.PGID).Msg("sighup failed")
		}
	}
	time.Sleep(ShutdownGracePeriod)
	for _, j := range jobs {
		if j.Disowned {
			continue
		}
		if _, ok := tbl.Get(j.ID); !ok {
			continue
		}
		if err := unix.Kill(-j.PGID, unix.SIGKILL); err != nil {
			log.Debug().Err(err).Int("pgid", j.PGID).Msg("sigkill failed")
		}
	}
}
