package expand

import (
	"os/user"
	"strings"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/token"
)

// applyTildeWord performs tilde expansion for an ordinary word: `~`
// expands only when it is the first character of the word. `~name`
// resolves to the named user's home directory, `~+` to PWD, `~-` to
// OLDPWD.
func applyTildeWord(w ast.Word, env Env) ast.Word {
	if len(w.Segments) == 0 || w.Segments[0].Kind != token.SegLiteral {
		return w
	}
	text := w.Segments[0].Text
	if !strings.HasPrefix(text, "~") {
		return w
	}
	replaced, rest := resolveTildePrefix(text[1:], env)
	if replaced == "" {
		return w // unresolvable (unknown user) - left literal
	}
	segs := append([]token.Segment{}, w.Segments...)
	segs[0] = token.Segment{Kind: token.SegLiteral, Text: replaced + rest}
	return ast.Word{Segments: segs, Raw: w.Raw}
}

// applyTilde is the Word()-path variant used for assignment values, which
// additionally honour a `~` immediately after `:` or `=`.
func applyTilde(w ast.Word, env Env, isAssignmentValue bool) ast.Word {
	w = applyTildeWord(w, env)
	if !isAssignmentValue || len(w.Segments) == 0 {
		return w
	}
	seg := w.Segments[0]
	if seg.Kind != token.SegLiteral {
		return w
	}
	var b strings.Builder
	rest := seg.Text
	for {
		idx := strings.IndexAny(rest, ":=")
		if idx < 0 || idx+1 >= len(rest) || rest[idx+1] != '~' {
			b.WriteString(rest)
			break
		}
		b.WriteString(rest[:idx+1])
		replaced, tail := resolveTildePrefix(rest[idx+2:], env)
		if replaced == "" {
			b.WriteByte('~')
			rest = rest[idx+2:]
			continue
		}
		b.WriteString(replaced)
		rest = tail
	}
	segs := append([]token.Segment{}, w.Segments...)
	segs[0] = token.Segment{Kind: token.SegLiteral, Text: b.String()}
	return ast.Word{Segments: segs, Raw: w.Raw}
}

// resolveTildePrefix parses the user/operator name following a `~` out of
// text and resolves it, returning the replacement directory and the
// unconsumed remainder of text. An empty replacement means "leave literal".
func resolveTildePrefix(text string, env Env) (replacement, rest string) {
	end := strings.IndexByte(text, '/')
	var name string
	if end < 0 {
		name, rest = text, ""
	} else {
		name, rest = text[:end], text[end:]
	}

	switch name {
	case "":
		if home, ok := env.HomeDir(""); ok {
			return home, rest
		}
		return "", rest
	case "+":
		return env.PWD(), rest
	case "-":
		return env.OldPWD(), rest
	default:
		if home, ok := env.HomeDir(name); ok {
			return home, rest
		}
		if u, err := user.Lookup(name); err == nil {
			return u.HomeDir, rest
		}
		return "", rest
	}
}
