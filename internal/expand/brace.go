package expand

import (
	"strconv"
	"strings"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/token"
)

// braceExpand is the first expansion step: lexical, quote-ignorant
// brace expansion over a word's raw text. `{a,b,c}` fans out into one
// word per alternative; `{m..n[..step]}` fans out into a numeric or
// single-character sequence; unbalanced or empty braces are left literal.
// Adjacent brace expressions form a cartesian product.
func braceExpand(w ast.Word) ([]ast.Word, error) {
	if !strings.ContainsAny(w.Raw, "{}") {
		return []ast.Word{w}, nil
	}
	expanded := expandBraceText(w.Raw)
	if len(expanded) == 1 && expanded[0] == w.Raw {
		return []ast.Word{w}, nil
	}
	out := make([]ast.Word, 0, len(expanded))
	for _, s := range expanded {
		_, segs, err := token.LexWord(s)
		if err != nil {
			// Not valid standalone word syntax (mismatched quote produced
			// by a brace alternative straddling a quote) - fall back to a
			// single literal segment rather than failing the expansion.
			segs = []token.Segment{{Kind: token.SegLiteral, Text: s}}
		}
		out = append(out, ast.Word{Segments: segs, Raw: s})
	}
	return out, nil
}

// expandBraceText finds the first top-level (unquoted) brace expression in
// s and recursively expands it, returning every literal alternative. If no
// valid expression is found, s is returned unchanged as the sole element.
func expandBraceText(s string) []string {
	open, close, ok := findTopLevelBrace(s)
	if !ok {
		return []string{s}
	}
	prefix := s[:open]
	body := s[open+1: close]
	suffix := s[close+1:]

	alts := braceAlternatives(body)
	if alts == nil {
		return []string{s}
	}

	var out []string
	for _, alt := range alts {
		for _, tail := range expandBraceText(suffix) {
			out = append(out, prefix+alt+tail)
		}
	}
	return out
}

// findTopLevelBrace locates the first unquoted '{' and its matching
// unquoted '}', returning their byte offsets.
func findTopLevelBrace(s string) (open, close int, ok bool) {
	depth := 0
	open = -1
	inSingle, inDouble := false, false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && !inSingle:
			i++
		case c == '\'' && !inDouble:
			inSingle = !inSingle
		case c == '"' && !inSingle:
			inDouble = !inDouble
		case inSingle || inDouble:
			// skip
		case c == '{':
			if depth == 0 {
				open = i
			}
			depth++
		case c == '}':
			if depth > 0 {
				depth--
				if depth == 0 && open >= 0 {
					return open, i, true
				}
			}
		}
	}
	return 0, 0, false
}

// braceAlternatives splits a brace body into its alternatives: either a
// comma-separated list (respecting nested braces) or a `m..n[..step]`
// range. Returns nil if body is neither (so the whole {…} stays literal).
func braceAlternatives(body string) []string {
	if r := rangeAlternatives(body); r != nil {
		return r
	}
	parts := splitTopLevelCommas(body)
	if len(parts) < 2 {
		return nil
	}
	return parts
}

func splitTopLevelCommas(s string) []string {
	depth := 0
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '{':
			depth++
		case '}':
			depth--
		case ',':
			if depth == 0 {
				parts = append(parts, s[start:i])
				start = i + 1
			}
		}
	}
	parts = append(parts, s[start:])
	return parts
}

// rangeAlternatives recognises `m..n` or `m..n..step` where m, n are both
// integers or both single letters.
func rangeAlternatives(body string) []string {
	parts := strings.Split(body, "..")
	if len(parts) != 2 && len(parts) != 3 {
		return nil
	}
	step := 1
	if len(parts) == 3 {
		n, err := strconv.Atoi(parts[2])
		if err != nil || n == 0 {
			return nil
		}
		step = n
		if step < 0 {
			step = -step
		}
	}

	if lo, hi, ok := parseIntRange(parts[0], parts[1]); ok {
		return intSequence(lo, hi, step)
	}
	if lo, hi, ok := parseCharRange(parts[0], parts[1]); ok {
		return charSequence(lo, hi, step)
	}
	return nil
}

func parseIntRange(a, b string) (int, int, bool) {
	lo, err1 := strconv.Atoi(a)
	hi, err2 := strconv.Atoi(b)
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return lo, hi, true
}

func parseCharRange(a, b string) (rune, rune, bool) {
	ar := []rune(a)
	br := []rune(b)
	if len(ar) != 1 || len(br) != 1 {
		return 0, 0, false
	}
	return ar[0], br[0], true
}

func intSequence(lo, hi, step int) []string {
	var out []string
	if lo <= hi {
		for v := lo; v <= hi; v += step {
			out = append(out, strconv.Itoa(v))
		}
	} else {
		for v := lo; v >= hi; v -= step {
			out = append(out, strconv.Itoa(v))
		}
	}
	return out
}

func charSequence(lo, hi rune, step int) []string {
	var out []string
	if lo <= hi {
		for v := lo; v <= hi; v += rune(step) {
			out = append(out, string(v))
		}
	} else {
		for v := lo; v >= hi; v -= rune(step) {
			out = append(out, string(v))
		}
	}
	return out
}
