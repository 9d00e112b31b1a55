package token

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func lexemes(t *testing.T, src string) []string {
	t.Helper()
	toks, err := New(src).Tokenize()
	require.NoError(t, err)
	var out []string
	for _, tok := range toks {
		if tok.Kind == EOF {
			continue
		}
		out = append(out, tok.Lexeme)
	}
	return out
}

func TestTokenize_Words(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"simple command", "echo hello", []string{"echo", "hello"}},
		{"multiple args", "ls -la /home/user", []string{"ls", "-la", "/home/user"}},
		{"single quoted", `echo 'hello world'`, []string{"echo", "'hello world'"}},
		{"double quoted", `echo "hello world"`, []string{"echo", `"hello world"`}},
		{"escaped space", `echo hello\ world`, []string{"echo", `hello\ world`}},
		{"pipeline operator", "a | b", []string{"a", "|", "b"}},
		{"or operator maximal munch", "a || b", []string{"a", "||", "b"}},
		{"and vs background", "a && b & c", []string{"a", "&&", "b", "&", "c"}},
		{"redirection operators", "cmd >> out 2> err", []string{"cmd", ">>", "out", "2", ">", "err"}},
		{"here doc operator", "cmd << EOF", []string{"cmd", "<<", "EOF"}},
		{"here doc strip", "cmd <<- EOF", []string{"cmd", "<<-", "EOF"}},
		{"here string", "cmd <<< word", []string{"cmd", "<<<", "word"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, lexemes(t, tt.input))
		})
	}
}

func TestTokenize_UnterminatedQuoteFails(t *testing.T) {
	_, err := New(`echo "unterminated`).Tokenize()
	require.Error(t, err)
}

func TestTokenize_TrailingBackslashFails(t *testing.T) {
	_, err := New(`echo hello\`).Tokenize()
	require.Error(t, err)
}

func TestTokenize_ReservedWordOnlyInCommandPosition(t *testing.T) {
	toks, err := New("if true; then echo if; fi").Tokenize()
	require.NoError(t, err)

	var kinds []Kind
	for _, tok := range toks {
		if tok.Kind == EOF {
			continue
		}
		kinds = append(kinds, tok.Kind)
	}
	require.Equal(t, Reserved, toks[0].Kind, "leading if is reserved")

	// The second occurrence of "if" (as an argument to echo) must be an
	// ordinary word, not a reserved word.
	found := false
	for _, tok := range toks {
		if tok.Lexeme == "if" && tok.Kind == Word {
			found = true
		}
	}
	require.True(t, found, "if used as an argument must tokenize as Word")
}

func TestTokenize_IONumberAttachesToRedirection(t *testing.T) {
	toks, err := New("cmd 2>&1").Tokenize()
	require.NoError(t, err)
	require.Equal(t, IONumber, toks[1].Kind)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, Operator, toks[2].Kind)
	require.Equal(t, ">&", toks[2].Lexeme)
}

func TestTokenize_CommandSubstitutionSegment(t *testing.T) {
	toks, err := New("echo $(date)").Tokenize()
	require.NoError(t, err)
	require.Len(t, toks, 3) // echo, $(date), EOF
	require.Equal(t, Word, toks[1].Kind)
	require.Len(t, toks[1].Segments, 1)
	require.Equal(t, SegCommandSub, toks[1].Segments[0].Kind)
	require.Equal(t, "date", toks[1].Segments[0].Text)
}

func TestTokenize_ArithmeticSubstitutionSegment(t *testing.T) {
	toks, err := New("echo $((1+2))").Tokenize()
	require.NoError(t, err)
	require.Equal(t, SegArithSub, toks[1].Segments[0].Kind)
	require.Equal(t, "1+2", toks[1].Segments[0].Text)
}

func TestTokenize_ParameterModifier(t *testing.T) {
	toks, err := New(`echo ${X:-default}`).Tokenize()
	require.NoError(t, err)
	seg := toks[1].Segments[0]
	require.Equal(t, SegParameter, seg.Kind)
	require.Equal(t, "X", seg.ParamName)
	require.Equal(t, ":-", seg.ParamMod)
	require.Equal(t, "default", seg.ParamArg)
}
