// Package expand implements the six-step expansion pipeline: brace, tilde, parameter/command/arithmetic, word splitting,
// pathname expansion, and quote removal, applied per word in that fixed
// order. It depends only on small interfaces (Env, CommandRunner) so it
// has no import-time knowledge of internal/state or internal/exec.
package expand

import (
	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/shellerr"
)

// Env is the subset of shell state the expander needs to resolve
// variables, options, and the current directory context.
type Env interface {
	Get(name string) (value string, ok bool)
	Set(name, value string) error
	IsReadonly(name string) bool
	// IFS returns the effective separator set for word splitting: the
	// default " \t\n" when IFS is unset, or IFS's exact value when set —
	// including the empty string, which disables splitting.
	IFS() string
	OptFlag(name string) bool
	OptNamed(name string) bool
	Positional() []string
	Arg0() string
	ExitStatus() int
	BackgroundPID() int
	ShellPID() int
	HomeDir(user string) (string, bool)
	PWD() string
	OldPWD() string
}

// CommandRunner executes a nested command line and captures its standard
// output, for `$(...)` and backtick command substitution.
type CommandRunner interface {
	CaptureOutput(src string) (output string, status int, err error)
}

// Expander threads Env and CommandRunner through the pipeline stages.
type Expander struct {
	Env    Env
	Runner CommandRunner
}

// New constructs an Expander bound to the given environment and command
// runner.
func New(env Env, runner CommandRunner) *Expander {
	return &Expander{Env: env, Runner: runner}
}

// Words expands a full argv: each input word passes
// through brace expansion (possibly fanning out into several words),
// then tilde/parameter/command/arithmetic expansion, splitting, globbing,
// and quote removal, in that order, yielding a flat argv.
func (e *Expander) Words(words []ast.Word) ([]string, error) {
	var out []string
	for _, w := range words {
		braced, err := braceExpand(w)
		if err != nil {
			return nil, err
		}
		for _, bw := range braced {
			fields, err := e.expandOne(bw, true)
			if err != nil {
				return nil, err
			}
			out = append(out, fields...)
		}
	}
	return out, nil
}

// Word expands a single word to exactly one string, skipping brace
// expansion and word splitting.
func (e *Expander) Word(w ast.Word) (string, error) {
	tilded := applyTilde(w, e.Env, true)
	literal, _, err := e.expandParamsCmdArith(tilded, true)
	if err != nil {
		return "", err
	}
	return removeQuotes(literal), nil
}

// expandOne runs steps 2-6 of the pipeline on a single (already
// brace-expanded) word, returning the resulting argv fields.
func (e *Expander) expandOne(w ast.Word, isAssignmentContext bool) ([]string, error) {
	w = applyTildeWord(w, e.Env)

	fields, isAtExpansion, err := e.expandParamsCmdArithFields(w)
	if err != nil {
		return nil, err
	}

	var split []fieldPiece
	if isAtExpansion {
		split = fields
	} else {
		split = splitFields(fields, e.Env.IFS())
	}

	var out []string
	for _, f := range split {
		if f.quoted {
			out = append(out, removeQuotes(f.text))
			continue
		}
		matches, err := globField(f.text, e.Env)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			out = append(out, removeQuotes(m))
		}
	}
	return out, nil
}

func errExpansion(format string, args...any) error {
	return shellerr.New(shellerr.KindExpansion, shellerr.StatusGenericFailure, format, args...)
}
