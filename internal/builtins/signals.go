package builtins

import "fmt"

// BreakSignal unwinds the nearest N enclosing loops.
type BreakSignal struct{ N int }

func (b BreakSignal) Error() string { return fmt.Sprintf("break %d", b.N) }

// ContinueSignal restarts the nearest N enclosing loops (`continue`).
type ContinueSignal struct{ N int }

func (c ContinueSignal) Error() string { return fmt.Sprintf("continue %d", c.N) }

// ReturnSignal unwinds to the caller of the current function (`return`).
type ReturnSignal struct{ Code int }

func (r ReturnSignal) Error() string { return fmt.Sprintf("return %d", r.Code) }

// ExitSignal terminates the whole shell (`exit`).
type ExitSignal struct{ Code int }

func (e ExitSignal) Error() string { return fmt.Sprintf("exit %d", e.Code) }
