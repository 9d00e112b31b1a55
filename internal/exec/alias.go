package exec

import (
	"strings"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/parser"
	"github.com/home-lang/den/internal/token"
)

// resolveAlias reports whether name has an alias definition.
func (ex *Executor) resolveAlias(name string) (string, bool) {
	v, ok := ex.St.Aliases[name]
	return v, ok
}

// spliceAlias implements alias substitution by splicing the alias body's
// source text in place of the command word and re-entering the parser
// over the combined buffer, so shell syntax inside the body (pipes,
// operators, quoting, redirections) is interpreted as syntax rather than
// passed on as literal argv words. The original command's assignments
// are grafted onto the first simple command of the re-parsed tree and
// its redirections onto the last, which is where token-level splicing
// would have attached them.
//
// Substitution applies only when the command word is a single unquoted
// literal, and never to a name already mid-expansion (the cycle guard in
// execSimple), so `alias ls='ls -la'` resolves its inner `ls` to the
// external command rather than recursing.
func (ex *Executor) spliceAlias(n *ast.Simple) (ast.Node, string, bool) {
	if len(n.Words) == 0 {
		return nil, "", false
	}
	w := n.Words[0]
	if len(w.Segments) != 1 || w.Segments[0].Kind != token.SegLiteral {
		return nil, "", false
	}
	name := w.Segments[0].Text
	body, ok := ex.resolveAlias(name)
	if !ok || ex.aliasChain[name] {
		return nil, "", false
	}

	var src strings.Builder
	src.WriteString(body)
	for _, rest := range n.Words[1:] {
		src.WriteByte(' ')
		src.WriteString(rest.Raw)
	}
	node, err := parser.Parse(src.String())
	if err != nil || node == nil {
		// A body that does not parse on its own (or expands to nothing)
		// falls back to ordinary dispatch on the unexpanded command.
		return nil, "", false
	}

	if len(n.Assignments) > 0 {
		if first := firstSimple(node); first != nil {
			first.Assignments = append(append([]ast.Assignment{}, n.Assignments...), first.Assignments...)
		}
	}
	if len(n.Redirections) > 0 {
		if last := lastSimple(node); last != nil {
			last.Redirections = append(last.Redirections, n.Redirections...)
		}
	}
	return node, name, true
}

// firstSimple/lastSimple locate the simple command a spliced alias's
// surrounding assignments and redirections belong to.
func firstSimple(n ast.Node) *ast.Simple {
	switch v := n.(type) {
	case *ast.Simple:
		return v
	case *ast.Pipeline:
		if len(v.Stages) > 0 {
			return firstSimple(v.Stages[0])
		}
	case *ast.AndOr:
		return firstSimple(v.Left)
	case *ast.Subshell:
		return firstSimple(v.Body)
	case *ast.Group:
		return firstSimple(v.Body)
	}
	return nil
}

func lastSimple(n ast.Node) *ast.Simple {
	switch v := n.(type) {
	case *ast.Simple:
		return v
	case *ast.Pipeline:
		if len(v.Stages) > 0 {
			return lastSimple(v.Stages[len(v.Stages)-1])
		}
	case *ast.AndOr:
		if v.Right != nil {
			return lastSimple(v.Right)
		}
		return lastSimple(v.Left)
	case *ast.Subshell:
		return lastSimple(v.Body)
	case *ast.Group:
		return lastSimple(v.Body)
	}
	return nil
}
