package parse

import (
	"context"
	"fmt"

	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/ast"
	"github.com/slowlang/minic/compiler/diag"
	"github.com/slowlang/minic/compiler/scan"
)

type (
	// Parser builds a parse tree from a token sequence by recursive descent.
	// It never fails: unknown input is skipped one token at a time.
	Parser struct {
		// Strict reports resynchronisation skips and missing delimiters
		// as error diagnostics. Tree shape does not depend on it.
		Strict bool

		Diags *diag.List

		toks []scan.Token
		pos  int

		t *ast.Tree
	}
)

// Parse parses a whole program leniently.
func Parse(ctx context.Context, toks []scan.Token) *ast.Tree {
	p := New(toks)
	p.Program(ctx)

	return p.Tree()
}

func New(toks []scan.Token) *Parser {
	return &Parser{
		toks: toks,
		t:    ast.New(),
	}
}

func (p *Parser) Tree() *ast.Tree { return p.t }

// Pos is the cursor: index of the next unconsumed token.
func (p *Parser) Pos() int { return p.pos }

// Program parses statements until the end of tokens and sets the tree root.
//
//	program := (function | statement)*
func (p *Parser) Program(ctx context.Context) ast.ID {
	tr := tlog.SpanFromContext(ctx)

	var stmts []ast.ID

	for !p.eof() {
		id := p.parseStatement(ctx)
		if id == ast.None {
			p.resync(ctx)
			continue
		}

		stmts = append(stmts, id)
	}

	root := p.t.Add(ast.Node{
		Kind:     ast.Program,
		Line:     1,
		Col:      1,
		Children: stmts,
	})

	p.t.SetRoot(root)

	if tr.If("parse") {
		tr.Printw("program parsed", "statements", len(stmts), "nodes", p.t.Len(), "tokens", len(p.toks))
	}

	return root
}

// Expression parses a single arithmetic expression at the cursor.
func (p *Parser) Expression(ctx context.Context) ast.ID {
	return p.parseExpression(ctx)
}

func (p *Parser) parseStatement(ctx context.Context) ast.ID {
	tk, ok := p.peek()
	if !ok {
		return ast.None
	}

	switch tk.Kind {
	case scan.Keyword:
		switch {
		case p.isFunction():
			return p.parseFunction(ctx)
		case isDeclType(tk.Text):
			return p.parseDeclaration(ctx)
		case tk.Text == "if":
			return p.parseIf(ctx)
		case tk.Text == "while":
			return p.parseWhile(ctx)
		case tk.Text == "return":
			return p.parseReturn(ctx)
		}
	case scan.Separator:
		if tk.Text == "{" {
			return p.parseBlock(ctx)
		}
	case scan.Identifier:
		if p.peekAt(1).Is(scan.Separator, "(") {
			return p.parseCallStmt(ctx)
		}

		return p.parseAssignment(ctx)
	}

	return ast.None
}

// parseDeclaration parses
//
//	declaration := TYPE "*"* IDENTIFIER ("[" expression "]")? ("=" expression)? ";"
func (p *Parser) parseDeclaration(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	decl := ast.Node{
		Kind:  ast.Declaration,
		Value: tk.Text,
		Line:  tk.Line,
		Col:   tk.Col,
	}

	p.skipStars(ctx)

	name, ok := p.peek()
	if !ok || name.Kind != scan.Identifier {
		p.missing(ctx, "identifier")

		return p.t.Add(decl)
	}

	p.next(ctx)

	decl.Children = append(decl.Children, p.leaf(ast.Identifier, name))

	if p.accept(ctx, scan.Separator, "[") {
		if x := p.parseExpression(ctx); x != ast.None {
			decl.Children = append(decl.Children, x)
			decl.Flags |= ast.HasBound
		}

		decl.Flags |= ast.IsArray

		p.expect(ctx, scan.Separator, "]")
	}

	if p.accept(ctx, scan.Operator, "=") {
		if x := p.parseExpression(ctx); x != ast.None {
			decl.Children = append(decl.Children, x)
			decl.Flags |= ast.HasInit
		}
	}

	p.expect(ctx, scan.Separator, ";")

	return p.t.Add(decl)
}

// parseFunction parses
//
//	function := (TYPE | "void") "*"* IDENTIFIER "(" params ")" (block | ";")
func (p *Parser) parseFunction(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	fn := ast.Node{
		Kind:  ast.Function,
		Value: tk.Text,
		Line:  tk.Line,
		Col:   tk.Col,
	}

	p.skipStars(ctx)

	name := p.next(ctx)
	fn.Children = append(fn.Children, p.leaf(ast.Identifier, name))

	open := p.next(ctx)

	params := p.parseParams(ctx, open)
	fn.Children = append(fn.Children, params)

	p.expect(ctx, scan.Separator, ")")

	if tk, ok := p.peek(); ok && tk.Is(scan.Separator, "{") {
		fn.Children = append(fn.Children, p.parseBlock(ctx))
		fn.Flags |= ast.HasBody
	} else {
		p.expect(ctx, scan.Separator, ";")
	}

	return p.t.Add(fn)
}

// parseParams parses
//
//	params := ε | "void" | param ("," param)*
//	param  := TYPE "*"* IDENTIFIER ("[" expression? "]")?
func (p *Parser) parseParams(ctx context.Context, open scan.Token) ast.ID {
	list := ast.Node{
		Kind: ast.Params,
		Line: open.Line,
		Col:  open.Col,
	}

	if tk, ok := p.peek(); ok && tk.Is(scan.Keyword, "void") && p.peekAt(1).Is(scan.Separator, ")") {
		p.next(ctx)
	}

	for {
		tk, ok := p.peek()
		if !ok || tk.Is(scan.Separator, ")") {
			break
		}

		if tk.Kind != scan.Keyword || !isDeclType(tk.Text) {
			p.missing(ctx, "parameter type")
			break
		}

		p.next(ctx)
		p.skipStars(ctx)

		param := ast.Node{
			Kind:  ast.Param,
			Value: tk.Text,
			Line:  tk.Line,
			Col:   tk.Col,
		}

		if name, ok := p.peek(); ok && name.Kind == scan.Identifier {
			p.next(ctx)
			param.Children = append(param.Children, p.leaf(ast.Identifier, name))
		} else {
			p.missing(ctx, "parameter name")
		}

		if p.accept(ctx, scan.Separator, "[") {
			param.Flags |= ast.IsArray

			if !p.at(scan.Separator, "]") {
				if x := p.parseExpression(ctx); x != ast.None {
					param.Children = append(param.Children, x)
					param.Flags |= ast.HasBound
				}
			}

			p.expect(ctx, scan.Separator, "]")
		}

		list.Children = append(list.Children, p.t.Add(param))

		if !p.accept(ctx, scan.Separator, ",") {
			break
		}
	}

	return p.t.Add(list)
}

// parseBlock parses
//
//	block := "{" statement* "}"
func (p *Parser) parseBlock(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	b := ast.Node{
		Kind: ast.Block,
		Line: tk.Line,
		Col:  tk.Col,
	}

	for !p.eof() && !p.at(scan.Separator, "}") {
		id := p.parseStatement(ctx)
		if id == ast.None {
			p.resync(ctx)
			continue
		}

		b.Children = append(b.Children, id)
	}

	p.expect(ctx, scan.Separator, "}")

	return p.t.Add(b)
}

// parseIf parses
//
//	if := "if" "(" condition ")" statement ("else" statement)?
func (p *Parser) parseIf(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	n := ast.Node{
		Kind: ast.If,
		Line: tk.Line,
		Col:  tk.Col,
	}

	n.Children = append(n.Children, p.parseParenCond(ctx, tk))
	n.Children = append(n.Children, p.parseBody(ctx))

	if p.accept(ctx, scan.Keyword, "else") {
		n.Children = append(n.Children, p.parseBody(ctx))
	}

	return p.t.Add(n)
}

// parseWhile parses
//
//	while := "while" "(" condition ")" statement
func (p *Parser) parseWhile(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	n := ast.Node{
		Kind: ast.While,
		Line: tk.Line,
		Col:  tk.Col,
	}

	n.Children = append(n.Children, p.parseParenCond(ctx, tk))
	n.Children = append(n.Children, p.parseBody(ctx))

	return p.t.Add(n)
}

// parseReturn parses
//
//	return := "return" condition? ";"
func (p *Parser) parseReturn(ctx context.Context) ast.ID {
	tk := p.next(ctx)

	n := ast.Node{
		Kind: ast.Return,
		Line: tk.Line,
		Col:  tk.Col,
	}

	if !p.at(scan.Separator, ";") {
		if x := p.parseCondition(ctx); x != ast.None {
			n.Children = append(n.Children, x)
		}
	}

	p.expect(ctx, scan.Separator, ";")

	return p.t.Add(n)
}

// parseAssignment parses
//
//	assignment := IDENTIFIER ("[" expression "]")? "=" condition ";"
//
// If no "=" follows the target, the cursor is restored and no node is produced.
func (p *Parser) parseAssignment(ctx context.Context) ast.ID {
	st, nodes := p.pos, p.t.Len()

	target := p.parseFactor(ctx)

	op, ok := p.peek()
	if target == ast.None || !ok || !op.Is(scan.Operator, "=") {
		p.pos = st
		p.t.Truncate(nodes)

		return ast.None
	}

	p.next(ctx)

	n := ast.Node{
		Kind:     ast.Assign,
		Value:    op.Text,
		Line:     op.Line,
		Col:      op.Col,
		Children: []ast.ID{target},
	}

	if x := p.parseCondition(ctx); x != ast.None {
		n.Children = append(n.Children, x)
	} else {
		p.missing(ctx, "expression")
	}

	p.expect(ctx, scan.Separator, ";")

	return p.t.Add(n)
}

// parseCallStmt parses
//
//	callStmt := IDENTIFIER "(" args ")" ";"
func (p *Parser) parseCallStmt(ctx context.Context) ast.ID {
	id := p.parseFactor(ctx)

	p.expect(ctx, scan.Separator, ";")

	return id
}

// parseBody parses a statement used as an if or while body.
// An empty statement or an unparsable one yields an empty Block.
func (p *Parser) parseBody(ctx context.Context) ast.ID {
	tk, ok := p.peek()
	if ok && !tk.Is(scan.Separator, ";") {
		if id := p.parseStatement(ctx); id != ast.None {
			return id
		}

		p.missing(ctx, "statement")
	}

	if ok && tk.Is(scan.Separator, ";") {
		p.next(ctx)
	}

	return p.t.Add(ast.Node{
		Kind: ast.Block,
		Line: tk.Line,
		Col:  tk.Col,
	})
}

func (p *Parser) parseParenCond(ctx context.Context, kw scan.Token) ast.ID {
	p.expect(ctx, scan.Separator, "(")

	x := p.parseCondition(ctx)
	if x == ast.None {
		p.missing(ctx, "condition")

		x = p.t.Add(ast.Node{Kind: ast.Number, Value: "0", Line: kw.Line, Col: kw.Col})
	}

	p.expect(ctx, scan.Separator, ")")

	return x
}

// parseCondition parses
//
//	condition := expression (("<"|"<="|">"|">="|"=="|"!=") expression)?
func (p *Parser) parseCondition(ctx context.Context) ast.ID {
	left := p.parseExpression(ctx)
	if left == ast.None {
		return ast.None
	}

	op, ok := p.peek()
	if !ok || op.Kind != scan.Operator || !isRelational(op.Text) {
		return left
	}

	p.next(ctx)

	right := p.parseExpression(ctx)
	if right == ast.None {
		return left
	}

	return p.binary(op, left, right)
}

// parseExpression parses
//
//	expression := term (("+"|"-") term)*
func (p *Parser) parseExpression(ctx context.Context) ast.ID {
	left := p.parseTerm(ctx)
	if left == ast.None {
		return ast.None
	}

	for p.at(scan.Operator, "+") || p.at(scan.Operator, "-") {
		op := p.next(ctx)

		right := p.parseTerm(ctx)
		if right == ast.None {
			break
		}

		left = p.binary(op, left, right)
	}

	return left
}

// parseTerm parses
//
//	term := factor (("*"|"/") factor)*
func (p *Parser) parseTerm(ctx context.Context) ast.ID {
	left := p.parseFactor(ctx)
	if left == ast.None {
		return ast.None
	}

	for p.at(scan.Operator, "*") || p.at(scan.Operator, "/") {
		op := p.next(ctx)

		right := p.parseFactor(ctx)
		if right == ast.None {
			break
		}

		left = p.binary(op, left, right)
	}

	return left
}

// parseFactor parses
//
//	factor := NUMBER | IDENTIFIER | IDENTIFIER "(" args ")" | IDENTIFIER "[" expression "]" | "(" condition ")"
func (p *Parser) parseFactor(ctx context.Context) ast.ID {
	tk, ok := p.peek()
	if !ok {
		return ast.None
	}

	switch {
	case tk.Kind == scan.Number:
		p.next(ctx)

		return p.leaf(ast.Number, tk)
	case tk.Kind == scan.Identifier && p.peekAt(1).Is(scan.Separator, "("):
		p.next(ctx)
		p.next(ctx)

		return p.parseCall(ctx, tk)
	case tk.Kind == scan.Identifier && p.peekAt(1).Is(scan.Separator, "["):
		p.next(ctx)
		p.next(ctx)

		n := ast.Node{
			Kind:  ast.Index,
			Value: tk.Text,
			Line:  tk.Line,
			Col:   tk.Col,
		}

		if x := p.parseExpression(ctx); x != ast.None {
			n.Children = append(n.Children, x)
		} else {
			p.missing(ctx, "index expression")
		}

		p.expect(ctx, scan.Separator, "]")

		return p.t.Add(n)
	case tk.Kind == scan.Identifier:
		p.next(ctx)

		return p.leaf(ast.Identifier, tk)
	case tk.Is(scan.Separator, "("):
		p.next(ctx)

		n := ast.Node{
			Kind: ast.Group,
			Line: tk.Line,
			Col:  tk.Col,
		}

		if x := p.parseCondition(ctx); x != ast.None {
			n.Children = append(n.Children, x)
		}

		p.expect(ctx, scan.Separator, ")")

		return p.t.Add(n)
	}

	return ast.None
}

// parseCall parses call arguments after IDENTIFIER "(".
//
//	args := ε | condition ("," condition)*
func (p *Parser) parseCall(ctx context.Context, name scan.Token) ast.ID {
	n := ast.Node{
		Kind:  ast.Call,
		Value: name.Text,
		Line:  name.Line,
		Col:   name.Col,
	}

	for !p.eof() && !p.at(scan.Separator, ")") {
		x := p.parseCondition(ctx)
		if x == ast.None {
			p.missing(ctx, "argument")
			break
		}

		n.Children = append(n.Children, x)

		if !p.accept(ctx, scan.Separator, ",") {
			break
		}
	}

	p.expect(ctx, scan.Separator, ")")

	return p.t.Add(n)
}

func (p *Parser) binary(op scan.Token, l, r ast.ID) ast.ID {
	return p.t.Add(ast.Node{
		Kind:     ast.Operation,
		Value:    op.Text,
		Line:     op.Line,
		Col:      op.Col,
		Children: []ast.ID{l, r},
	})
}

func (p *Parser) leaf(k ast.Kind, tk scan.Token) ast.ID {
	return p.t.Add(ast.Node{
		Kind:  k,
		Value: tk.Text,
		Line:  tk.Line,
		Col:   tk.Col,
	})
}

// isFunction looks ahead for (TYPE | "void") "*"* IDENTIFIER "(".
func (p *Parser) isFunction() bool {
	tk, ok := p.peek()
	if !ok || tk.Kind != scan.Keyword || !isDeclType(tk.Text) && tk.Text != "void" {
		return false
	}

	i := 1
	for p.peekAt(i).Is(scan.Operator, "*") {
		i++
	}

	return p.peekAt(i).Kind == scan.Identifier && p.peekAt(i+1).Is(scan.Separator, "(")
}

func (p *Parser) skipStars(ctx context.Context) {
	for p.accept(ctx, scan.Operator, "*") {
	}
}

// resync discards exactly one token so that the caller makes progress.
func (p *Parser) resync(ctx context.Context) {
	tk := p.next(ctx)

	if tr := tlog.SpanFromContext(ctx); tr.If("parse") {
		tr.Printw("skip token", "tok", tk, "pos", p.pos-1)
	}

	if tk.Is(scan.Separator, ";") || !p.Strict {
		return
	}

	p.Diags.Errorf(diag.Parse, tk.Line, tk.Col, "unexpected %v %q", tk.Kind, tk.Text)
}

func (p *Parser) expect(ctx context.Context, k scan.Kind, s string) bool {
	if p.accept(ctx, k, s) {
		return true
	}

	p.missing(ctx, "%q", s)

	return false
}

// missing reports an expected construct that is absent. Nothing is consumed.
func (p *Parser) missing(ctx context.Context, what string, args ...any) {
	tk, line, col := p.here()

	if tr := tlog.SpanFromContext(ctx); tr.If("parse") {
		tr.Printw("missing", "what", what, "args", args, "at", tk, "from", loc.Callers(1, 2))
	}

	if !p.Strict {
		return
	}

	if len(args) != 0 {
		what = fmt.Sprintf(what, args...)
	}

	if tk == nil {
		p.Diags.Errorf(diag.Parse, line, col, "expected %s at end of input", what)
		return
	}

	p.Diags.Errorf(diag.Parse, line, col, "expected %s, got %q", what, tk.Text)
}

// here returns the current token, or the position right after the last one.
func (p *Parser) here() (tk *scan.Token, line, col int) {
	p.skipComments()

	if p.pos < len(p.toks) {
		tk = &p.toks[p.pos]
		return tk, tk.Line, tk.Col
	}

	if len(p.toks) == 0 {
		return nil, 1, 1
	}

	last := p.toks[len(p.toks)-1]

	return nil, last.Line, last.Col + last.End - last.Pos
}

func (p *Parser) accept(ctx context.Context, k scan.Kind, s string) bool {
	if !p.at(k, s) {
		return false
	}

	p.next(ctx)

	return true
}

func (p *Parser) at(k scan.Kind, s string) bool {
	tk, ok := p.peek()

	return ok && tk.Is(k, s)
}

func (p *Parser) eof() bool {
	_, ok := p.peek()
	return !ok
}

func (p *Parser) peek() (scan.Token, bool) {
	p.skipComments()

	if p.pos >= len(p.toks) {
		return scan.Token{}, false
	}

	return p.toks[p.pos], true
}

// peekAt looks n significant tokens ahead of the cursor. Past the end it returns a zero Token.
func (p *Parser) peekAt(n int) scan.Token {
	p.skipComments()

	for i := p.pos; i < len(p.toks); i++ {
		if p.toks[i].Kind == scan.Comment {
			continue
		}

		if n == 0 {
			return p.toks[i]
		}

		n--
	}

	return scan.Token{Kind: -1}
}

func (p *Parser) next(ctx context.Context) (tk scan.Token) {
	tk, ok := p.peek()
	if !ok {
		return scan.Token{Kind: -1}
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("next_token") {
		tr.Printw("next token", "pos", p.pos, "tok", tk, "from", loc.Callers(1, 3))
	}

	p.pos++

	return tk
}

func (p *Parser) skipComments() {
	for p.pos < len(p.toks) && p.toks[p.pos].Kind == scan.Comment {
		p.pos++
	}
}

func isDeclType(s string) bool {
	switch s {
	case "int", "float", "char", "_Bool":
		return true
	}

	return false
}

func isRelational(s string) bool {
	switch s {
	case "<", "<=", ">", ">=", "==", "!=":
		return true
	}

	return false
}
