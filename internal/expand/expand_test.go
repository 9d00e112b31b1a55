package expand

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/parser"
)

func astSimpleWords(t *testing.T, n ast.Node) []ast.Word {
	t.Helper()
	simple, ok := n.(*ast.Simple)
	require.True(t, ok)
	return simple.Words
}

type fakeEnv struct {
	vars       map[string]string
	readonly   map[string]bool
	ifs        string
	positional []string
	exitStatus int
	bgPID      int
	shellPID   int
	pwd        string
	oldPWD     string
	flags      map[string]bool
	named      map[string]bool
}

func newFakeEnv() *fakeEnv {
	return &fakeEnv{
		vars:     map[string]string{},
		readonly: map[string]bool{},
		ifs:      " \t\n",
		flags:    map[string]bool{},
		named:    map[string]bool{},
		pwd:      "/home/user",
	}
}

func (f *fakeEnv) Get(name string) (string, bool) { v, ok := f.vars[name]; return v, ok }
func (f *fakeEnv) Set(name, value string) error    { f.vars[name] = value; return nil }
func (f *fakeEnv) IsReadonly(name string) bool      { return f.readonly[name] }
func (f *fakeEnv) IFS() string                      { return f.ifs }
func (f *fakeEnv) OptFlag(name string) bool         { return f.flags[name] }
func (f *fakeEnv) OptNamed(name string) bool        { return f.named[name] }
func (f *fakeEnv) Positional() []string             { return f.positional }
func (f *fakeEnv) Arg0() string                     { return "den" }
func (f *fakeEnv) ExitStatus() int                  { return f.exitStatus }
func (f *fakeEnv) BackgroundPID() int                { return f.bgPID }
func (f *fakeEnv) ShellPID() int                     { return f.shellPID }
func (f *fakeEnv) PWD() string                       { return f.pwd }
func (f *fakeEnv) OldPWD() string                    { return f.oldPWD }
func (f *fakeEnv) HomeDir(user string) (string, bool) {
	if user == "" {
		return "/home/user", true
	}
	return "", false
}

type fakeRunner struct {
	output string
	status int
}

func (r *fakeRunner) CaptureOutput(src string) (string, int, error) {
	return r.output, r.status, nil
}

func TestExpand_IdentityForPlainWord(t *testing.T) {
	env := newFakeEnv()
	e := New(env, &fakeRunner{})
	n, err := parser.Parse("echo hello")
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"hello"}, out)
}

func TestExpand_DoubleQuotedNoSplitNoGlob(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "a b *"
	e := New(env, &fakeRunner{})

	n, err := parser.Parse(`echo "$X"`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"a b *"}, out)
}

func TestExpand_ParameterDefault(t *testing.T) {
	env := newFakeEnv()
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo ${X:-default}`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"default"}, out)
}

func TestExpand_ArithmeticExpansion(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "2"
	env.vars["Y"] = "3"
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo $((X+Y))`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"5"}, out)
}

func TestExpand_BraceExpansionIsLexical(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "2"
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo {1..$X}`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"{1..2}"}, out)
}

func TestExpand_BraceCommaList(t *testing.T) {
	env := newFakeEnv()
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo file.{go,txt}`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"file.go", "file.txt"}, out)
}

func TestExpand_WordSplitting(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "a b c"
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo $X`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b", "c"}, out)
}

func TestExpand_CommandSubstitution(t *testing.T) {
	env := newFakeEnv()
	e := New(env, &fakeRunner{output: "result\n"})
	n, err := parser.Parse("echo $(date)")
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"result"}, out)
}

func TestEvalArith_Basic(t *testing.T) {
	env := newFakeEnv()
	v, err := EvalArith("1+2*3", env)
	require.NoError(t, err)
	require.Equal(t, int64(7), v)
}

func TestEvalArith_DivisionByZero(t *testing.T) {
	env := newFakeEnv()
	_, err := EvalArith("1/0", env)
	require.Error(t, err)
}

func TestEvalArith_Ternary(t *testing.T) {
	env := newFakeEnv()
	v, err := EvalArith("1 ? 2 : 3", env)
	require.NoError(t, err)
	require.Equal(t, int64(2), v)
}

func TestEvalArith_Assignment(t *testing.T) {
	env := newFakeEnv()
	env.vars["X"] = "1"
	v, err := EvalArith("X += 5", env)
	require.NoError(t, err)
	require.Equal(t, int64(6), v)
	require.Equal(t, "6", env.vars["X"])
}

func TestExpand_EmptyIFSDisablesSplitting(t *testing.T) {
	env := newFakeEnv()
	env.ifs = ""
	env.vars["X"] = "a b c"
	e := New(env, &fakeRunner{})
	n, err := parser.Parse(`echo $X`)
	require.NoError(t, err)
	words := astSimpleWords(t, n)
	out, err := e.Words(words[1:])
	require.NoError(t, err)
	require.Equal(t, []string{"a b c"}, out, "IFS set to the empty string disables splitting")
}
