package parser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/ast"
)

func TestParse_SimpleCommand(t *testing.T) {
	n, err := Parse("echo hello world")
	require.NoError(t, err)
	simple, ok := n.(*ast.Simple)
	require.True(t, ok)
	require.Len(t, simple.Words, 3)
	require.Equal(t, "echo", simple.Words[0].Raw)
}

func TestParse_Assignment(t *testing.T) {
	n, err := Parse("FOO=bar echo $FOO")
	require.NoError(t, err)
	simple := n.(*ast.Simple)
	require.Len(t, simple.Assignments, 1)
	require.Equal(t, "FOO", simple.Assignments[0].Name)
	require.Len(t, simple.Words, 2)
}

func TestParse_Pipeline(t *testing.T) {
	n, err := Parse("a | b | c")
	require.NoError(t, err)
	p, ok := n.(*ast.Pipeline)
	require.True(t, ok)
	require.Len(t, p.Stages, 3)
	require.False(t, p.Negated)
}

func TestParse_NegatedPipeline(t *testing.T) {
	n, err := Parse("! grep foo")
	require.NoError(t, err)
	p, ok := n.(*ast.Pipeline)
	require.True(t, ok)
	require.True(t, p.Negated)
}

func TestParse_AndOr(t *testing.T) {
	n, err := Parse("a && b || c")
	require.NoError(t, err)
	top, ok := n.(*ast.AndOr)
	require.True(t, ok)
	require.Equal(t, ast.OpOr, top.Op)
	left, ok := top.Left.(*ast.AndOr)
	require.True(t, ok)
	require.Equal(t, ast.OpAnd, left.Op)
}

func TestParse_Sequence(t *testing.T) {
	n, err := Parse("a; b; c")
	require.NoError(t, err)
	top, ok := n.(*ast.AndOr)
	require.True(t, ok)
	require.Equal(t, ast.OpSeq, top.Op)
}

func TestParse_Background(t *testing.T) {
	n, err := Parse("sleep 1 &")
	require.NoError(t, err)
	top, ok := n.(*ast.AndOr)
	require.True(t, ok)
	require.Equal(t, ast.OpAsync, top.Op)
	require.Nil(t, top.Right)
}

func TestParse_Redirections(t *testing.T) {
	n, err := Parse("cmd < in.txt > out.txt 2>> err.log")
	require.NoError(t, err)
	simple := n.(*ast.Simple)
	require.Len(t, simple.Redirections, 3)
	require.Equal(t, 0, simple.Redirections[0].FD)
	require.Equal(t, ast.RedirInput, simple.Redirections[0].Op)
	require.Equal(t, 1, simple.Redirections[1].FD)
	require.Equal(t, ast.RedirOutputTruncate, simple.Redirections[1].Op)
	require.Equal(t, 2, simple.Redirections[2].FD)
	require.Equal(t, ast.RedirOutputAppend, simple.Redirections[2].Op)
}

func TestParse_HereDoc(t *testing.T) {
	src := "cat <<EOF\nline one\nline two\nEOF\n"
	n, err := Parse(src)
	require.NoError(t, err)
	simple := n.(*ast.Simple)
	require.Len(t, simple.Redirections, 1)
	require.Equal(t, ast.RedirHereDoc, simple.Redirections[0].Op)
	require.Equal(t, "line one\nline two\n", simple.Redirections[0].HereBody)
}

func TestParse_HereDocStrip(t *testing.T) {
	src := "cat <<-EOF\n\tindented\nEOF\n"
	n, err := Parse(src)
	require.NoError(t, err)
	simple := n.(*ast.Simple)
	require.Equal(t, "indented\n", simple.Redirections[0].HereBody)
}

func TestParse_IfElifElse(t *testing.T) {
	n, err := Parse("if a; then b; elif c; then d; else e; fi")
	require.NoError(t, err)
	ifNode, ok := n.(*ast.If)
	require.True(t, ok)
	require.NotNil(t, ifNode.Cond)
	require.NotNil(t, ifNode.Then)
	require.Len(t, ifNode.Elifs, 1)
	require.NotNil(t, ifNode.Else)
}

func TestParse_WhileUntil(t *testing.T) {
	n, err := Parse("while true; do a; done")
	require.NoError(t, err)
	w, ok := n.(*ast.While)
	require.True(t, ok)
	require.False(t, w.Until)

	n2, err := Parse("until false; do a; done")
	require.NoError(t, err)
	w2 := n2.(*ast.While)
	require.True(t, w2.Until)
}

func TestParse_For(t *testing.T) {
	n, err := Parse("for x in a b c; do echo $x; done")
	require.NoError(t, err)
	f, ok := n.(*ast.For)
	require.True(t, ok)
	require.Equal(t, "x", f.Name)
	require.Len(t, f.Words, 3)
}

func TestParse_Case(t *testing.T) {
	n, err := Parse("case $x in a) foo ;; b|c) bar ;;& *) baz ;; esac")
	require.NoError(t, err)
	c, ok := n.(*ast.Case)
	require.True(t, ok)
	require.Len(t, c.Clauses, 3)
	require.Len(t, c.Clauses[1].Patterns, 2)
	require.Equal(t, ast.CaseRematch, c.Clauses[1].Terminator)
	require.Equal(t, ast.CaseEnd, c.Clauses[2].Terminator)
}

func TestParse_Subshell(t *testing.T) {
	n, err := Parse("(cd /tmp && ls)")
	require.NoError(t, err)
	_, ok := n.(*ast.Subshell)
	require.True(t, ok)
}

func TestParse_Group(t *testing.T) {
	n, err := Parse("{ echo a; echo b; }")
	require.NoError(t, err)
	_, ok := n.(*ast.Group)
	require.True(t, ok)
}

func TestParse_FunctionDefShorthand(t *testing.T) {
	n, err := Parse("greet() { echo hi; }")
	require.NoError(t, err)
	f, ok := n.(*ast.FunctionDef)
	require.True(t, ok)
	require.Equal(t, "greet", f.Name)
}

func TestParse_FunctionDefKeyword(t *testing.T) {
	n, err := Parse("function greet { echo hi; }")
	require.NoError(t, err)
	f, ok := n.(*ast.FunctionDef)
	require.True(t, ok)
	require.Equal(t, "greet", f.Name)
}

func TestParse_SyntaxErrorHasPosition(t *testing.T) {
	_, err := Parse("if true; then")
	require.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	n, err := Parse("")
	require.NoError(t, err)
	require.Nil(t, n)
}

func TestParseAll_MultipleStatements(t *testing.T) {
	nodes, err := ParseAll("echo a\necho b\necho c\n")
	require.NoError(t, err)
	require.Len(t, nodes, 3)
}
