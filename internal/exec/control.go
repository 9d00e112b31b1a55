package exec

import (
	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/builtins"
	"github.com/home-lang/den/internal/globutil"
)

// execIf evaluates Cond, then each Elif in turn, falling back to Else.
func (ex *Executor) execIf(n *ast.If) (int, error) {
	status, err := ex.execNode(n.Cond, true)
	if err != nil {
		return status, err
	}
	if status == 0 {
		return ex.execNode(n.Then, false)
	}
	for _, elif := range n.Elifs {
		status, err = ex.execNode(elif.Cond, true)
		if err != nil {
			return status, err
		}
		if status == 0 {
			return ex.execNode(elif.Then, false)
		}
	}
	if n.Else != nil {
		return ex.execNode(n.Else, false)
	}
	return 0, nil
}

// loopOutcome classifies how a loop-body iteration ended.
type loopOutcome int

const (
	loopContinueNormally loopOutcome = iota
	loopBreakHere
	loopBreakOuter
	loopContinueHere
	loopContinueOuter
	loopPropagate
)

// classifyLoopSignal interprets a BreakSignal/ContinueSignal's N against
// the current loop nesting level, consuming one level of N.
func classifyLoopSignal(err error) (loopOutcome, error) {
	switch e := err.(type) {
	case nil:
		return loopContinueNormally, nil
	case builtins.BreakSignal:
		if e.N <= 1 {
			return loopBreakHere, nil
		}
		return loopBreakOuter, builtins.BreakSignal{N: e.N - 1}
	case builtins.ContinueSignal:
		if e.N <= 1 {
			return loopContinueHere, nil
		}
		return loopContinueOuter, builtins.ContinueSignal{N: e.N - 1}
	default:
		return loopPropagate, err
	}
}

// execWhile runs Body while (or, if Until, while not) Cond holds.
func (ex *Executor) execWhile(n *ast.While) (int, error) {
	status := 0
	for {
		condStatus, err := ex.execNode(n.Cond, true)
		if err != nil {
			return condStatus, err
		}
		holds := condStatus == 0
		if n.Until {
			holds = !holds
		}
		if !holds {
			return status, nil
		}

		bodyStatus, berr := ex.execNode(n.Body, false)
		status = bodyStatus
		outcome, propagated := classifyLoopSignal(berr)
		switch outcome {
		case loopBreakHere:
			return status, nil
		case loopBreakOuter, loopPropagate:
			return status, propagated
		case loopContinueHere:
			continue
		case loopContinueOuter:
			return status, propagated
		}
	}
}

// execFor iterates Name over Words, running Body once per value.
func (ex *Executor) execFor(n *ast.For) (int, error) {
	values, err := ex.expander().Words(n.Words)
	if err != nil {
		fmtErr(ex.Err, err)
		return 1, nil
	}
	status := 0
	for _, v := range values {
		if err := ex.St.Set(n.Name, v); err != nil {
			fmtErr(ex.Err, err)
			return 1, nil
		}
		bodyStatus, berr := ex.execNode(n.Body, false)
		status = bodyStatus
		outcome, propagated := classifyLoopSignal(berr)
		switch outcome {
		case loopBreakHere:
			return status, nil
		case loopBreakOuter, loopPropagate:
			return status, propagated
		case loopContinueHere:
			continue
		case loopContinueOuter:
			return status, propagated
		}
	}
	return status, nil
}

// execCase matches Word against each clause's patterns in order,
// honouring the three terminator forms.
func (ex *Executor) execCase(n *ast.Case) (int, error) {
	subject, err := ex.expander().Word(n.Word)
	if err != nil {
		fmtErr(ex.Err, err)
		return 1, nil
	}
	status := 0
	i := 0
	matched := false
	for i < len(n.Clauses) {
		clause := n.Clauses[i]
		if !matched && !ex.caseMatches(clause, subject) {
			i++
			continue
		}
		matched = false

		status, err = ex.execNode(clause.Body, false)
		if err != nil {
			return status, err
		}
		switch clause.Terminator {
		case ast.CaseEnd:
			return status, nil
		case ast.CaseFallthru:
			// Run the next clause unconditionally, without re-matching
			// its patterns.
			i++
			matched = true
		case ast.CaseRematch:
			// Run the next clause, re-matching its own patterns against
			// subject.
			i++
		}
		if i >= len(n.Clauses) {
			return status, nil
		}
	}
	return status, nil
}

func (ex *Executor) caseMatches(clause ast.CaseClause, subject string) bool {
	for _, pat := range clause.Patterns {
		patText, err := ex.expander().Word(pat)
		if err != nil {
			continue
		}
		if ok, _ := globutil.Match(patText, subject); ok {
			return true
		}
	}
	return false
}
