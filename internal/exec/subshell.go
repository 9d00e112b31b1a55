package exec

import (
	"os"

	"github.com/home-lang/den/internal/ast"
)

// execSubshell runs Body against a snapshot of shell state so that
// variable, option, and directory changes made inside `(... )` do not
// leak back to the parent. Go cannot safely fork its own runtime, so this
// models the subshell as a shallow state copy rather than a real
// process fork, per state.ShellState.Snapshot's own doc comment.
func (ex *Executor) execSubshell(n *ast.Subshell, inCondition bool) (int, error) {
	snapshot := ex.St.Snapshot()
	sub := &Executor{St: snapshot, JC: ex.JC, In: ex.In, Out: ex.Out, Err: ex.Err, Interactive: ex.Interactive}
	status, err := sub.execNode(n.Body, false)
	// `cd` inside the subshell moves the process working directory; move it
	// back to the parent's.
	if ex.St.Cwd != "" {
		os.Chdir(ex.St.Cwd)
	}
	if exitSig, ok := err.(exitSignal); ok {
		// An `exit` (or errexit promotion) inside the subshell terminates
		// the subshell only; the parent sees its status.
		status, err = exitSig.Code, nil
	}
	if err != nil {
		return status, err
	}
	return status, ex.maybePromoteErrexit(status, inCondition)
}
