package exec

import (
	"io"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/builtins"
	"github.com/home-lang/den/internal/denlog"
	"github.com/home-lang/den/internal/jobtable"
	"github.com/home-lang/den/internal/parser"
	"github.com/home-lang/den/internal/state"
)

// stageResult carries one pipeline stage's exit status and error back to
// the join point.
type stageResult struct {
	status int
	err    error
}

// execPipeline wires N-1 anonymous pipes between N stages and runs them
// concurrently, waiting on all before computing the pipeline's exit
// status. Every Pipeline node here has either
// more than one stage or Negated set — the parser collapses a single
// unnegated stage back to the bare node.
// External stages are started sequentially, in order, so the first
// external stage's pid is known before any later stage joins its
// process group via Setpgid; non-external stages run on goroutines and
// need no such ordering.
func (ex *Executor) execPipeline(n *ast.Pipeline, inCondition bool) (int, error) {
	stages := n.Stages
	readers := make([]*os.File, len(stages)-1)
	writers := make([]*os.File, len(stages)-1)
	for i := range readers {
		r, w, err := os.Pipe()
		if err != nil {
			return 1, err
		}
		readers[i], writers[i] = r, w
	}

	results := make([]stageResult, len(stages))
	var wg sync.WaitGroup
	leaderPID := 0

	for i, stage := range stages {
		var in io.Reader = ex.In
		var out io.Writer = ex.Out
		var inFile, outFile *os.File
		if i > 0 {
			in, inFile = readers[i-1], readers[i-1]
		}
		if i < len(stages)-1 {
			out, outFile = writers[i], writers[i]
		}

		if path, argv, env, ok := ex.externalStageInfo(stage); ok {
			pgid := 0
			if i > 0 {
				pgid = leaderPID
			}
			cmd := exec.Command(path, argv[1:]...)
			cmd.Stdin, cmd.Stdout, cmd.Stderr = in, out, ex.Err
			cmd.Env = env
			cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: ex.St.Options.Flag(state.OptMonitor), Pgid: pgid}
			if err := cmd.Start(); err != nil {
				results[i] = stageResult{status: notFoundOrDenied(err)}
				closeIfSet(inFile)
				closeIfSet(outFile)
				continue
			}
			if leaderPID == 0 {
				leaderPID = cmd.Process.Pid
			}
			closeIfSet(inFile)
			closeIfSet(outFile)

			idx, c := i, cmd
			wg.Add(1)
			go func() {
				defer wg.Done()
				err := c.Wait()
				results[idx] = stageResult{status: exitStatusFromError(err)}
			}()
			continue
		}

		idx, stg, inF, outF := i, stage, inFile, outFile
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer closeIfSet(inF)
			defer closeIfSet(outF)
			sub := ex.withStreams(in, out, ex.Err)
			// Stages run as condition context: only the pipeline's overall
			// status is subject to errexit, never an individual stage's.
			status, err := sub.execNode(stg, true)
			results[idx] = stageResult{status: status, err: err}
		}()
	}

	wg.Wait()

	var firstErr error
	last := 0
	nonZero := 0
	for _, r := range results {
		last = r.status
		if r.status != 0 {
			nonZero = r.status
		}
		if r.err != nil {
			if _, ok := r.err.(builtins.ExitSignal); ok && firstErr == nil {
				firstErr = r.err
			}
		}
	}

	status := last
	if ex.St.Options.Flag(state.OptPipefail) && nonZero != 0 {
		status = nonZero
	}
	if n.Negated {
		if status == 0 {
			status = 1
		} else {
			status = 0
		}
	}
	if firstErr != nil {
		return status, firstErr
	}
	return status, ex.maybePromoteErrexit(status, inCondition)
}

func closeIfSet(f *os.File) {
	if f != nil {
		f.Close()
	}
}

// externalStageInfo reports whether stage is a Simple command that
// resolves to an external executable (no alias, function, or builtin
// match), returning the argv and a scoped environment for it.
func (ex *Executor) externalStageInfo(stage ast.Node) (cmdline string, argv []string, env []string, ok bool) {
	simple, isSimple := stage.(*ast.Simple)
	if !isSimple || len(simple.Words) == 0 {
		return "", nil, nil, false
	}
	words, err := ex.expander().Words(simple.Words)
	if err != nil || len(words) == 0 {
		return "", nil, nil, false
	}
	name := words[0]
	if _, isAlias := ex.resolveAlias(name); isAlias {
		return "", nil, nil, false
	}
	if _, isFn := ex.St.Functions[name]; isFn {
		return "", nil, nil, false
	}
	if _, isBuiltin := builtins.Lookup(name); isBuiltin {
		return "", nil, nil, false
	}
	path, found := lookPathState(ex.St, name)
	if !found {
		return "", nil, nil, false
	}
	assignEnv, err := ex.scopedEnv(simple.Assignments)
	if err != nil {
		return "", nil, nil, false
	}
	return path, words, assignEnv, true
}

func notFoundOrDenied(err error) int {
	if os.IsPermission(err) {
		return 126
	}
	return 127
}

func exitStatusFromError(err error) int {
	if err == nil {
		return 0
	}
	if ee, ok := err.(*exec.ExitError); ok {
		if ws, ok := ee.Sys().(syscall.WaitStatus); ok {
			if ws.Signaled() {
				return 128 + int(ws.Signal())
			}
			return ws.ExitStatus()
		}
	}
	return 1
}

func lookPathState(s *state.ShellState, name string) (string, bool) {
	if strHasSlash(name) {
		if info, err := os.Stat(name); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return name, true
		}
		return "", false
	}
	path, ok := s.Get("PATH")
	if !ok {
		return "", false
	}
	for _, dir := range splitColonList(path) {
		full := dir + "/" + name
		if info, err := os.Stat(full); err == nil && !info.IsDir() && info.Mode()&0o111 != 0 {
			return full, true
		}
	}
	return "", false
}

func strHasSlash(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '/' {
			return true
		}
	}
	return false
}

func splitColonList(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ':' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}

// runAsync launches node as a background job. A node that is a single external Simple
// command gets a real process group tracked by pid; anything else (a
// function call, a compound command, a pipeline mixing builtins) runs on
// a goroutine against a state snapshot, so its mutations don't leak back
// to the foreground shell — the same way a real subshell wouldn't.
func (ex *Executor) runAsync(node ast.Node) {
	cmdText := parser.String(node)
	log := denlog.Component("exec")

	if path, argv, env, ok := ex.singleExternalInfo(node); ok {
		cmd := exec.Command(path, argv[1:]...)
		cmd.Stdin = nil
		cmd.Stdout = ex.Out
		cmd.Stderr = ex.Err
		cmd.Env = env
		cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
		if err := cmd.Start(); err != nil {
			log.Debug().Err(err).Msg("background start failed")
			fmtErr(ex.Err, err)
			return
		}
		job := ex.St.Jobs.Add(cmd.Process.Pid, cmdText)
		ex.St.LastBgPID = cmd.Process.Pid
		go func() {
			cmd.Wait()
			ex.St.Jobs.SetState(job.ID, jobtable.Done, exitStatusFromCmd(cmd))
		}()
		return
	}

	snapshot := ex.St.Snapshot()
	sub := &Executor{St: snapshot, JC: ex.JC, In: nil, Out: ex.Out, Err: ex.Err, Interactive: false}
	job := ex.St.Jobs.Add(-virtualPGID(), cmdText)
	go func() {
		status, _ := sub.execNode(node, false)
		ex.St.Jobs.SetState(job.ID, jobtable.Done, status)
	}()
}

var virtualPGIDCounter = struct {
	mu sync.Mutex
	n  int
}{n: 1}

func virtualPGID() int {
	virtualPGIDCounter.mu.Lock()
	defer virtualPGIDCounter.mu.Unlock()
	virtualPGIDCounter.n++
	return virtualPGIDCounter.n
}

func exitStatusFromCmd(cmd *exec.Cmd) int {
	if cmd.ProcessState == nil {
		return 1
	}
	if ws, ok := cmd.ProcessState.Sys().(syscall.WaitStatus); ok {
		if ws.Signaled() {
			return 128 + int(ws.Signal())
		}
		return ws.ExitStatus()
	}
	return cmd.ProcessState.ExitCode()
}

// singleExternalInfo reports whether node is exactly a bare external
// Simple command (the only shape backgrounded with a real pid here;
// pipelines and compound commands take the goroutine/snapshot path).
func (ex *Executor) singleExternalInfo(node ast.Node) (string, []string, []string, bool) {
	simple, ok := node.(*ast.Simple)
	if !ok {
		return "", nil, nil, false
	}
	return ex.externalStageInfo(simple)
}
