// Package parser implements the recursive-descent command parser:
// POSIX precedence (lowest to highest: list separators,
// &&/||, pipelines, simple commands), with compound commands dispatched
// by reserved-word lookahead in command position.
package parser

import (
	"fmt"

	"github.com/home-lang/den/internal/ast"
	"github.com/home-lang/den/internal/shellerr"
	"github.com/home-lang/den/internal/token"
)

// Parser walks a flat token.Token stream. It carries no hidden global
// state, so the same *Parser type
// backs eval and alias re-expansion by constructing a fresh instance over
// a new source buffer.
type Parser struct {
	toks []token.Token
	pos  int
}

// Parse tokenizes and parses src into a single top-level Node (a chain of
// AndOr nodes joined by;/&/newline), or nil if src contains no commands.
// On a syntax error the token and its source position are reported and no
// partial AST is returned.
func Parse(src string) (ast.Node, error) {
	lex := token.New(src)
	toks, err := lex.Tokenize()
	if err != nil {
		return nil, err
	}
	toks, err = resolveHereDocs(src, toks)
	if err != nil {
		return nil, err
	}
	p := &Parser{toks: toks}
	return p.parseList(nil)
}

// ParseAll parses src into the sequence of independent top-level
// statements it contains, splitting on top-level newlines/semicolons the
// way an interactive shell would treat each accepted line. Used by script
// execution so one statement's parse
// error does not prevent later ones from running.
func ParseAll(src string) ([]ast.Node, error) {
	node, err := Parse(src)
	if err != nil {
		return nil, err
	}
	return flattenTopLevel(node), nil
}

func flattenTopLevel(n ast.Node) []ast.Node {
	andor, ok := n.(*ast.AndOr)
	if !ok || (andor.Op != ast.OpSeq && andor.Op != ast.OpAsync) {
		if n != nil {
			return []ast.Node{n}
		}
		return nil
	}
	// parseList nests sequences to the left, so both sides are walked.
	var out []ast.Node
	if andor.Op == ast.OpAsync {
		out = append(out, wrapAsync(andor.Left, andor.Op))
	} else {
		out = flattenTopLevel(andor.Left)
	}
	if andor.Right == nil {
		return out
	}
	return append(out, flattenTopLevel(andor.Right)...)
}

func wrapAsync(n ast.Node, op ast.AndOrOp) ast.Node {
	if op == ast.OpAsync {
		return &ast.AndOr{Left: n, Op: ast.OpAsync}
	}
	return n
}

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) at(offset int) token.Token {
	idx := p.pos + offset
	if idx >= len(p.toks) {
		return token.Token{Kind: token.EOF}
	}
	return p.toks[idx]
}

func (p *Parser) advance() token.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) skipNewlines() {
	for p.cur().Kind == token.Newline {
		p.advance()
	}
}

func (p *Parser) isEOF() bool { return p.cur().Kind == token.EOF }

func (p *Parser) errHere(format string, args...any) error {
	t := p.cur()
	return shellerr.AtPosition(shellerr.KindParse, t.Line, t.Column, format, args...)
}

func isStopToken(t token.Token, stop []string) bool {
	for _, s := range stop {
		if (t.Kind == token.Reserved || t.Kind == token.Operator) && t.Lexeme == s {
			return true
		}
	}
	return false
}

// parseList parses a (possibly empty) sequence of and_or terms joined by;
// , &, or newline, stopping at EOF or any reserved word/operator in stop.
func (p *Parser) parseList(stop []string) (ast.Node, error) {
	p.skipNewlines()
	if p.isEOF() || isStopToken(p.cur(), stop) {
		return nil, nil
	}

	left, err := p.parseAndOr(stop)
	if err != nil {
		return nil, err
	}

	for {
		p.skipTrailingNewlinesBeforeSeparator()
		t := p.cur()
		switch {
		case t.Kind == token.Operator && t.Lexeme == token.OpSemicolon:
			p.advance()
			p.skipNewlines()
			if p.isEOF() || isStopToken(p.cur(), stop) {
				return left, nil
			}
			right, err := p.parseAndOr(stop)
			if err != nil {
				return nil, err
			}
			left = &ast.AndOr{Left: left, Op: ast.OpSeq, Right: right}
		case t.Kind == token.Operator && t.Lexeme == token.OpBackground:
			p.advance()
			p.skipNewlines()
			if p.isEOF() || isStopToken(p.cur(), stop) {
				return &ast.AndOr{Left: left, Op: ast.OpAsync}, nil
			}
			right, err := p.parseAndOr(stop)
			if err != nil {
				return nil, err
			}
			left = &ast.AndOr{Left: &ast.AndOr{Left: left, Op: ast.OpAsync}, Op: ast.OpSeq, Right: right}
		case t.Kind == token.Newline:
			p.skipNewlines()
			if p.isEOF() || isStopToken(p.cur(), stop) {
				return left, nil
			}
			right, err := p.parseAndOr(stop)
			if err != nil {
				return nil, err
			}
			left = &ast.AndOr{Left: left, Op: ast.OpSeq, Right: right}
		default:
			return left, nil
		}
	}
}

// skipTrailingNewlinesBeforeSeparator is a no-op placeholder kept distinct
// from skipNewlines because a newline that is itself the separator must
// still be observed by the switch in parseList.
func (p *Parser) skipTrailingNewlinesBeforeSeparator() {}

// parseAndOr parses pipelines joined by && / ||, left-associative.
func (p *Parser) parseAndOr(stop []string) (ast.Node, error) {
	left, err := p.parsePipeline(stop)
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		var op ast.AndOrOp
		switch {
		case t.Kind == token.Operator && t.Lexeme == token.OpAnd:
			op = ast.OpAnd
		case t.Kind == token.Operator && t.Lexeme == token.OpOr:
			op = ast.OpOr
		default:
			return left, nil
		}
		p.advance()
		p.skipNewlines()
		right, err := p.parsePipeline(stop)
		if err != nil {
			return nil, err
		}
		left = &ast.AndOr{Left: left, Op: op, Right: right}
	}
}

// parsePipeline parses `[!] command (| command)*`.
func (p *Parser) parsePipeline(stop []string) (ast.Node, error) {
	negated := false
	if p.cur().Kind == token.Reserved && p.cur().Lexeme == "!" {
		negated = true
		p.advance()
	}

	first, err := p.parseCommand(stop)
	if err != nil {
		return nil, err
	}
	stages := []ast.Node{first}

	for p.cur().Kind == token.Operator && p.cur().Lexeme == token.OpPipe {
		p.advance()
		p.skipNewlines()
		next, err := p.parseCommand(stop)
		if err != nil {
			return nil, err
		}
		stages = append(stages, next)
	}

	if len(stages) == 1 && !negated {
		return stages[0], nil
	}
	return &ast.Pipeline{Stages: stages, Negated: negated}, nil
}

// parseCommand dispatches on reserved-word lookahead in command position.
func (p *Parser) parseCommand(stop []string) (ast.Node, error) {
	t := p.cur()
	if t.Kind == token.Reserved {
		switch t.Lexeme {
		case "if":
			return p.parseIf()
		case "while":
			return p.parseWhile(false)
		case "until":
			return p.parseWhile(true)
		case "for":
			return p.parseFor()
		case "case":
			return p.parseCase()
		case "{":
			return p.parseGroup()
		case "function":
			return p.parseFunctionDef()
		}
	}
	if t.Kind == token.Operator && t.Lexeme == token.OpLParen {
		return p.parseSubshell()
	}
	// `name () {... }` function definition shorthand.
	if t.Kind == token.Word && p.at(1).Kind == token.Operator && p.at(1).Lexeme == token.OpLParen &&
		p.at(2).Kind == token.Operator && p.at(2).Lexeme == token.OpRParen {
		return p.parseFunctionShorthand()
	}
	return p.parseSimple(stop)
}

func (p *Parser) expectReserved(word string) error {
	t := p.cur()
	if t.Kind != token.Reserved || t.Lexeme != word {
		return p.errHere("expected %q, got %q", word, t.Lexeme)
	}
	p.advance()
	return nil
}

func (p *Parser) parseIf() (ast.Node, error) {
	p.advance() // if
	cond, err := p.parseList([]string{"then"})
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("then"); err != nil {
		return nil, err
	}
	then, err := p.parseList([]string{"elif", "else", "fi"})
	if err != nil {
		return nil, err
	}

	node := &ast.If{Cond: cond, Then: then}
	for p.cur().Kind == token.Reserved && p.cur().Lexeme == "elif" {
		p.advance()
		econd, err := p.parseList([]string{"then"})
		if err != nil {
			return nil, err
		}
		if err := p.expectReserved("then"); err != nil {
			return nil, err
		}
		ethen, err := p.parseList([]string{"elif", "else", "fi"})
		if err != nil {
			return nil, err
		}
		node.Elifs = append(node.Elifs, ast.ElifClause{Cond: econd, Then: ethen})
	}
	if p.cur().Kind == token.Reserved && p.cur().Lexeme == "else" {
		p.advance()
		elseBody, err := p.parseList([]string{"fi"})
		if err != nil {
			return nil, err
		}
		node.Else = elseBody
	}
	if err := p.expectReserved("fi"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseWhile(until bool) (ast.Node, error) {
	p.advance() // while/until
	cond, err := p.parseList([]string{"do"})
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return &ast.While{Cond: cond, Body: body, Until: until}, nil
}

func (p *Parser) parseFor() (ast.Node, error) {
	p.advance() // for
	nameTok := p.advance()
	if nameTok.Kind != token.Word {
		return nil, p.errHere("expected name after for, got %q", nameTok.Lexeme)
	}
	p.skipNewlines()

	var words []ast.Word
	if p.cur().Kind == token.Reserved && p.cur().Lexeme == "in" {
		p.advance()
		for p.cur().Kind == token.Word || p.cur().Kind == token.Reserved {
			wt := p.advance()
			words = append(words, ast.Word{Segments: wt.Segments, Raw: wt.Lexeme})
		}
		if err := p.expectSeparator(); err != nil {
			return nil, err
		}
	} else {
		if err := p.expectSeparator(); err != nil {
			return nil, err
		}
	}

	p.skipNewlines()
	if err := p.expectReserved("do"); err != nil {
		return nil, err
	}
	body, err := p.parseList([]string{"done"})
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("done"); err != nil {
		return nil, err
	}
	return &ast.For{Name: nameTok.Lexeme, Words: words, Body: body}, nil
}

func (p *Parser) expectSeparator() error {
	t := p.cur()
	if t.Kind == token.Operator && t.Lexeme == token.OpSemicolon {
		p.advance()
		return nil
	}
	if t.Kind == token.Newline {
		p.advance()
		return nil
	}
	if t.Kind == token.Reserved && t.Lexeme == "do" {
		return nil
	}
	return p.errHere("expected ';' or newline, got %q", t.Lexeme)
}

func (p *Parser) parseCase() (ast.Node, error) {
	p.advance() // case
	wt := p.advance()
	word := ast.Word{Segments: wt.Segments, Raw: wt.Lexeme}
	p.skipNewlines()
	if err := p.expectReserved("in"); err != nil {
		return nil, err
	}
	p.skipNewlines()

	node := &ast.Case{Word: word}
	for !(p.cur().Kind == token.Reserved && p.cur().Lexeme == "esac") {
		if p.cur().Kind == token.Operator && p.cur().Lexeme == token.OpLParen {
			p.advance()
		}
		var patterns []ast.Word
		for {
			pt := p.advance()
			patterns = append(patterns, ast.Word{Segments: pt.Segments, Raw: pt.Lexeme})
			if p.cur().Kind == token.Operator && p.cur().Lexeme == token.OpPipe {
				p.advance()
				continue
			}
			break
		}
		if p.cur().Kind != token.Operator || p.cur().Lexeme != token.OpRParen {
			return nil, p.errHere("expected ')' after case pattern, got %q", p.cur().Lexeme)
		}
		p.advance()
		p.skipNewlines()

		body, err := p.parseList([]string{";;", ";&", ";;&", "esac"})
		if err != nil {
			return nil, err
		}

		term := ast.CaseEnd
		t := p.cur()
		if t.Kind == token.Operator {
			switch t.Lexeme {
			case token.OpCaseEnd:
				term = ast.CaseEnd
				p.advance()
			case token.OpCaseFallthru:
				term = ast.CaseFallthru
				p.advance()
			case token.OpCaseRematch:
				term = ast.CaseRematch
				p.advance()
			}
		}
		node.Clauses = append(node.Clauses, ast.CaseClause{Patterns: patterns, Body: body, Terminator: term})
		p.skipNewlines()
	}
	if err := p.expectReserved("esac"); err != nil {
		return nil, err
	}
	return node, nil
}

func (p *Parser) parseGroup() (ast.Node, error) {
	p.advance() // {
	body, err := p.parseList([]string{"}"})
	if err != nil {
		return nil, err
	}
	if err := p.expectReserved("}"); err != nil {
		return nil, err
	}
	return &ast.Group{Body: body}, nil
}

func (p *Parser) parseSubshell() (ast.Node, error) {
	p.advance() // (
	body, err := p.parseList([]string{")"})
	if err != nil {
		return nil, err
	}
	if p.cur().Kind != token.Operator || p.cur().Lexeme != token.OpRParen {
		return nil, p.errHere("expected ')', got %q", p.cur().Lexeme)
	}
	p.advance()
	return &ast.Subshell{Body: body}, nil
}

func (p *Parser) parseFunctionDef() (ast.Node, error) {
	p.advance() // function
	nameTok := p.advance()
	if p.cur().Kind == token.Operator && p.cur().Lexeme == token.OpLParen {
		p.advance()
		if p.cur().Kind != token.Operator || p.cur().Lexeme != token.OpRParen {
			return nil, p.errHere("expected ')' in function definition")
		}
		p.advance()
	}
	p.skipNewlines()
	body, err := p.parseCommand(nil)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{Name: nameTok.Lexeme, Body: body}, nil
}

func (p *Parser) parseFunctionShorthand() (ast.Node, error) {
	nameTok := p.advance()
	p.advance() // (
	p.advance() // )
	p.skipNewlines()
	body, err := p.parseCommand(nil)
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{Name: nameTok.Lexeme, Body: body}, nil
}

// parseSimple parses assignments, words, and interspersed redirections
// into a single Simple command node.
func (p *Parser) parseSimple(stop []string) (ast.Node, error) {
	node := &ast.Simple{}

	for {
		t := p.cur()
		if t.Kind == token.Word && isAssignment(t.Lexeme) {
			name, valueSegs := splitAssignment(t)
			node.Assignments = append(node.Assignments, ast.Assignment{Name: name, Value: ast.Word{Segments: valueSegs, Raw: t.Lexeme}})
			p.advance()
			continue
		}
		break
	}

	for {
		t := p.cur()
		if isStopToken(t, stop) || t.Kind == token.EOF || t.Kind == token.Newline {
			break
		}
		if t.Kind == token.Operator {
			switch t.Lexeme {
			case token.OpPipe, token.OpOr, token.OpAnd, token.OpSemicolon, token.OpBackground,
				token.OpRParen, token.OpCaseEnd, token.OpCaseFallthru, token.OpCaseRematch:
				// end of this simple command
				goto done
			case token.OpRedirIn, token.OpRedirOut, token.OpRedirAppend, token.OpRedirInDup,
				token.OpRedirOutDup, token.OpReadWrite, token.OpHereDoc, token.OpHereDocStrip, token.OpHereString:
				redir, err := p.parseRedirection(-1)
				if err != nil {
					return nil, err
				}
				node.Redirections = append(node.Redirections, redir)
				continue
			default:
				return nil, p.errHere("unexpected operator %q", t.Lexeme)
			}
		}
		if t.Kind == token.IONumber {
			fdTok := p.advance()
			redir, err := p.parseRedirection(atoiSafe(fdTok.Lexeme))
			if err != nil {
				return nil, err
			}
			node.Redirections = append(node.Redirections, redir)
			continue
		}
		if t.Kind == token.Word || t.Kind == token.Reserved {
			node.Words = append(node.Words, ast.Word{Segments: t.Segments, Raw: t.Lexeme})
			p.advance()
			continue
		}
		break
	}
done:

	if len(node.Words) == 0 && len(node.Assignments) == 0 && len(node.Redirections) == 0 {
		return nil, p.errHere("unexpected token %q", p.cur().Lexeme)
	}
	return node, nil
}

func atoiSafe(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}

var redirDefaultFD = map[string]int{
	token.OpRedirIn: 0, token.OpRedirOut: 1, token.OpRedirAppend: 1,
	token.OpRedirInDup: 0, token.OpRedirOutDup: 1, token.OpReadWrite: 0,
	token.OpHereDoc: 0, token.OpHereDocStrip: 0, token.OpHereString: 0,
}

var redirOpKind = map[string]ast.RedirOp{
	token.OpRedirIn: ast.RedirInput, token.OpRedirOut: ast.RedirOutputTruncate,
	token.OpRedirAppend: ast.RedirOutputAppend, token.OpRedirInDup: ast.RedirInputDup,
	token.OpRedirOutDup: ast.RedirOutputDup, token.OpReadWrite: ast.RedirReadWrite,
	token.OpHereDoc: ast.RedirHereDoc, token.OpHereDocStrip: ast.RedirHereDocStrip,
	token.OpHereString: ast.RedirHereString,
}

func (p *Parser) parseRedirection(explicitFD int) (ast.Redirection, error) {
	opTok := p.advance()
	fd := explicitFD
	if fd < 0 {
		fd = redirDefaultFD[opTok.Lexeme]
	}
	targetTok := p.advance()
	if targetTok.Kind != token.Word && targetTok.Kind != token.Reserved {
		return ast.Redirection{}, p.errHere("expected redirection target, got %q", targetTok.Lexeme)
	}
	return ast.Redirection{
		FD:         fd,
		Op:         redirOpKind[opTok.Lexeme],
		Target:     ast.Word{Segments: targetTok.Segments, Raw: targetTok.Lexeme},
		HereBody:   targetTok.HereBody,
		HereQuoted: targetTok.HereQuoted,
	}, nil
}

// isAssignment reports whether a word's raw lexeme looks like
// `name=value`. It requires the name to be a valid
// identifier so that e.g. `./configure --prefix=/usr` is not mistaken for
// an assignment (the `=` there is inside a single word argument, which is
// fine because isAssignment checks the PREFIX up to the first `=`).
func isAssignment(lexeme string) bool {
	eq := -1
	for i, c := range lexeme {
		if c == '=' {
			eq = i
			break
		}
		if i == 0 {
			if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')) {
				return false
			}
			continue
		}
		if !(c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')) {
			return false
		}
	}
	return eq > 0
}

func splitAssignment(t token.Token) (name string, valueSegs []token.Segment) {
	eq := -1
	for i, c := range t.Lexeme {
		if c == '=' {
			eq = i
			break
		}
	}
	name = t.Lexeme[:eq]
	// Re-segment the value portion from the already-decomposed segments:
	// since assignments are scanned as plain words, recompute by slicing
	// the literal text length consumed by "name=" off the first segment.
	prefixLen := eq + 1
	for _, seg := range t.Segments {
		if seg.Kind == token.SegLiteral && prefixLen > 0 {
			if len(seg.Text) <= prefixLen {
				prefixLen -= len(seg.Text)
				continue
			}
			valueSegs = append(valueSegs, token.Segment{Kind: token.SegLiteral, Text: seg.Text[prefixLen:]})
			prefixLen = 0
			continue
		}
		valueSegs = append(valueSegs, seg)
	}
	return name, valueSegs
}

// String renders a Node back to approximate source, used for the job
// table's command text and for round-trip assertions in tests.
func String(n ast.Node) string {
	return render(n)
}

func render(n ast.Node) string {
	if n == nil {
		return ""
	}
	switch v := n.(type) {
	case *ast.Simple:
		s := ""
		for _, a := range v.Assignments {
			s += a.Name + "=" + a.Value.Raw + " "
		}
		for i, w := range v.Words {
			if i > 0 {
				s += " "
			}
			s += w.Raw
		}
		return s
	case *ast.Pipeline:
		s := ""
		if v.Negated {
			s += "! "
		}
		for i, stage := range v.Stages {
			if i > 0 {
				s += " | "
			}
			s += render(stage)
		}
		return s
	case *ast.AndOr:
		switch v.Op {
		case ast.OpAnd:
			return render(v.Left) + " && " + render(v.Right)
		case ast.OpOr:
			return render(v.Left) + " || " + render(v.Right)
		case ast.OpAsync:
			if v.Right == nil {
				return render(v.Left) + " &"
			}
			return render(v.Left) + " & " + render(v.Right)
		default:
			if v.Right == nil {
				return render(v.Left)
			}
			return render(v.Left) + "; " + render(v.Right)
		}
	case *ast.Subshell:
		return "(" + render(v.Body) + ")"
	case *ast.Group:
		return "{ " + render(v.Body) + "; }"
	case *ast.If:
		return fmt.Sprintf("if %s; then %s; fi", render(v.Cond), render(v.Then))
	case *ast.While:
		kw := "while"
		if v.Until {
			kw = "until"
		}
		return fmt.Sprintf("%s %s; do %s; done", kw, render(v.Cond), render(v.Body))
	case *ast.For:
		return fmt.Sprintf("for %s; do %s; done", v.Name, render(v.Body))
	case *ast.Case:
		return fmt.Sprintf("case %s in esac", v.Word.Raw)
	case *ast.FunctionDef:
		return fmt.Sprintf("%s() { %s; }", v.Name, render(v.Body))
	}
	return ""
}
