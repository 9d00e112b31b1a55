package expand

import (
	"strconv"
	"strings"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/token"
)

// fieldPiece is one contiguous run of a word's expanded text, tagged with
// whether it originated inside quotes (and is therefore exempt from word
// splitting and globbing).
type fieldPiece struct {
	text   string
	quoted bool
}

// expandParamsCmdArithFields runs parameter/command/arithmetic expansion across a
// word's segments, merging the result into runs suitable for steps 4-6.
// isAtExpansion is true when the word was exactly a quoted "$@", which
// bypasses both IFS splitting and globbing entirely.
func (e *Expander) expandParamsCmdArithFields(w ast.Word) ([]fieldPiece, bool, error) {
	if len(w.Segments) == 1 && w.Segments[0].Kind == token.SegDoubleQuoted && strings.TrimSpace(w.Segments[0].Text) == "$@" {
		return e.expandAtPositional(), true, nil
	}

	var pieces []fieldPiece
	appendPiece := func(text string, quoted bool) {
		if len(pieces) > 0 && pieces[len(pieces)-1].quoted == quoted {
			pieces[len(pieces)-1].text += text
			return
		}
		pieces = append(pieces, fieldPiece{text: text, quoted: quoted})
	}

	for _, seg := range w.Segments {
		switch seg.Kind {
		case token.SegLiteral:
			appendPiece(seg.Text, false)
		case token.SegSingleQuoted:
			appendPiece(seg.Text, true)
		case token.SegDoubleQuoted:
			inner, err := e.expandText(seg.Text)
			if err != nil {
				return nil, false, err
			}
			appendPiece(inner, true)
		case token.SegParameter:
			val, err := e.expandParamSegment(seg)
			if err != nil {
				return nil, false, err
			}
			appendPiece(val, false)
		case token.SegCommandSub:
			out, _, err := e.Runner.CaptureOutput(seg.Text)
			if err != nil {
				return nil, false, err
			}
			appendPiece(strings.TrimRight(out, "\n"), false)
		case token.SegArithSub:
			val, err := EvalArith(seg.Text, e.Env)
			if err != nil {
				return nil, false, err
			}
			appendPiece(strconv.FormatInt(val, 10), false)
		default:
			appendPiece(seg.Text, false)
		}
	}
	return pieces, false, nil
}

// expandParamsCmdArith is the unsplit variant for Expander.Word.
func (e *Expander) expandParamsCmdArith(w ast.Word, _ bool) (string, bool, error) {
	pieces, atExp, err := e.expandParamsCmdArithFields(w)
	if err != nil {
		return "", false, err
	}
	var b strings.Builder
	for _, p := range pieces {
		b.WriteString(p.text)
	}
	return b.String(), atExp, nil
}

func (e *Expander) expandAtPositional() []fieldPiece {
	pos := e.Env.Positional()
	pieces := make([]fieldPiece, len(pos))
	for i, p := range pos {
		pieces[i] = fieldPiece{text: p, quoted: true}
	}
	return pieces
}

// expandText re-scans a flattened double-quoted string for nested $
// expansions. The
// lexer does not pre-segment double-quoted content, so this performs the
// equivalent scan directly against expanded values rather than Segments.
func (e *Expander) expandText(s string) (string, error) {
	var b strings.Builder
	rs := []rune(s)
	for i := 0; i < len(rs); {
		if rs[i] != '$' || i+1 >= len(rs) {
			b.WriteRune(rs[i])
			i++
			continue
		}
		val, n, err := e.expandDollarAt(rs, i)
		if err != nil {
			return "", err
		}
		if n == 0 {
			b.WriteRune(rs[i])
			i++
			continue
		}
		b.WriteString(val)
		i += n
	}
	return b.String(), nil
}

// expandDollarAt expands the $-expression starting at rs[i] and returns
// its value plus the number of runes consumed (0 if rs[i] is not actually
// the start of a recognised expansion).
func (e *Expander) expandDollarAt(rs []rune, i int) (string, int, error) {
	start := i
	i++ // skip '$'
	if i >= len(rs) {
		return "", 0, nil
	}

	switch rs[i] {
	case '(':
		if i+1 < len(rs) && rs[i+1] == '(' {
			body, end, ok := scanBalancedRunes(rs, i+2, "((", "))")
			if !ok {
				return "", 0, nil
			}
			val, err := EvalArith(body, e.Env)
			if err != nil {
				return "", 0, err
			}
			return strconv.FormatInt(val, 10), end - start, nil
		}
		body, end, ok := scanBalancedRunes(rs, i+1, "(", ")")
		if !ok {
			return "", 0, nil
		}
		out, _, err := e.Runner.CaptureOutput(body)
		if err != nil {
			return "", 0, err
		}
		return strings.TrimRight(out, "\n"), end - start, nil
	case '{':
		body, end, ok := scanBalancedRunes(rs, i+1, "{", "}")
		if !ok {
			return "", 0, nil
		}
		name, mod, arg := splitParamExprPublic(body)
		val, err := e.expandParamSegment(token.Segment{Kind: token.SegParameter, ParamName: name, ParamMod: mod, ParamArg: arg})
		if err != nil {
			return "", 0, err
		}
		return val, end - start, nil
	}

	if isNameStart(rs[i]) {
		j := i
		for j < len(rs) && isNameChar(rs[j]) {
			j++
		}
		name := string(rs[i:j])
		val, _ := e.Env.Get(name)
		return val, j - start, nil
	}

	if isSpecialParamRune(rs[i]) {
		val, err := e.expandParamSegment(token.Segment{Kind: token.SegParameter, ParamName: string(rs[i])})
		if err != nil {
			return "", 0, err
		}
		return val, (i + 1) - start, nil
	}
	return "", 0, nil
}

func scanBalancedRunes(rs []rune, start int, open, close string) (body string, end int, ok bool) {
	o, c := []rune(open), []rune(close)
	depth := 1
	i := start
	for i < len(rs) {
		if matchesRunesAt(rs, i, c) && depth == 1 {
			return string(rs[start:i]), i + len(c), true
		}
		if matchesRunesAt(rs, i, o) {
			depth++
			i += len(o)
			continue
		}
		if matchesRunesAt(rs, i, c) {
			depth--
			i += len(c)
			continue
		}
		i++
	}
	return "", 0, false
}

func matchesRunesAt(rs []rune, i int, pat []rune) bool {
	if i+len(pat) > len(rs) {
		return false
	}
	for k, r := range pat {
		if rs[i+k] != r {
			return false
		}
	}
	return true
}

func isNameStart(r rune) bool { return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') }
func isNameChar(r rune) bool  { return isNameStart(r) || (r >= '0' && r <= '9') }

func isSpecialParamRune(r rune) bool {
	switch r {
	case '$', '?', '!', '#', '@', '*', '_', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		return true
	}
	return false
}

// splitParamExprPublic mirrors token's unexported splitParamExpr for use
// against text re-scanned inside double quotes.
func splitParamExprPublic(body string) (name, mod, arg string) {
	ops := []string{":-", ":=", ":?", ":+", "##", "#", "%%", "%", "//", "/", ":"}
	if strings.HasPrefix(body, "#") && len(body) > 1 && body != "##" {
		return body[1:], "#VAR", ""
	}
	for i := 0; i < len(body); i++ {
		for _, op := range ops {
			if strings.HasPrefix(body[i:], op) {
				return body[:i], op, body[i+len(op):]
			}
		}
	}
	return body, "", ""
}
