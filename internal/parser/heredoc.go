package parser

import (
	"strings"

	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/token"
)

// resolveHereDocs runs before the recursive-descent pass and does two
// things: it locates each here-document body in the raw source text,
// and it strips the body's lines back out
// of the token stream so the grammar never has to special-case them.
func resolveHereDocs(src string, toks []token.Token) ([]token.Token, error) {
	lines := strings.Split(src, "\n")
	consumed := make(map[int]bool)

	for i := 0; i < len(toks); i++ {
		tok := toks[i]
		if tok.Kind != token.Operator {
			continue
		}
		if tok.Lexeme != token.OpHereDoc && tok.Lexeme != token.OpHereDocStrip {
			continue
		}
		if i+1 >= len(toks) {
			return nil, shellerr.AtPosition(shellerr.KindParse, tok.Line, tok.Column, "missing here-document delimiter")
		}
		delimTok := toks[i+1]
		strip := tok.Lexeme == token.OpHereDocStrip
		quoted := strings.ContainsAny(delimTok.Lexeme, `'"`)
		delim := unquoteDelimiter(delimTok.Lexeme)

		bodyStartLine := tok.Line // 1-indexed line of the << operator itself
		var body strings.Builder
		found := false
		lineIdx := bodyStartLine // lines[bodyStartLine] is the line AFTER the operator's line (0-indexed slice, 1-indexed line numbers align since lines[0] is line 1)
		for lineIdx < len(lines) {
			raw := lines[lineIdx]
			compare := raw
			if strip {
				compare = strings.TrimLeft(raw, "\t")
			}
			if compare == delim {
				found = true
				break
			}
			if strip {
				body.WriteString(strings.TrimLeft(raw, "\t"))
			} else {
				body.WriteString(raw)
			}
			body.WriteString("\n")
			consumed[lineIdx+1] = true
			lineIdx++
		}
		if !found {
			return nil, shellerr.AtPosition(shellerr.KindParse, tok.Line, tok.Column, "here-document %q not terminated", delim)
		}
		consumed[lineIdx+1] = true // the terminator line itself

		toks[i+1].HereBody = body.String()
		toks[i+1].HereQuoted = quoted
	}

	if len(consumed) == 0 {
		return toks, nil
	}

	filtered := make([]token.Token, 0, len(toks))
	for _, tok := range toks {
		if tok.Kind != token.EOF && consumed[tok.Line] {
			continue
		}
		filtered = append(filtered, tok)
	}
	return filtered, nil
}

func unquoteDelimiter(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1: len(s)-1]
		}
	}
	return strings.NewReplacer(`\"`, `"`, `\\`, `\`).Replace(s)
}
