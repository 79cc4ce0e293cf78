package scan

import (
	"context"
	"strings"

	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/diag"
)

type (
	// Scanner converts source text into tokens in a single forward pass.
	// Zero value is a lenient scanner reporting nothing.
	Scanner struct {
		// Strict reports lexical anomalies as error diagnostics.
		// The produced tokens are the same in both modes.
		Strict bool

		Diags *diag.List
	}

	state struct {
		*Scanner

		b []byte
		i int

		line, col int

		toks []Token
	}
)

const (
	operatorChars  = "+-*/%=<>!&|^~"
	separatorChars = "(){}[];,"
)

// Scan tokenizes text leniently.
func Scan(ctx context.Context, text []byte) []Token {
	var s Scanner

	return s.Scan(ctx, text)
}

// Scan returns all tokens of text. Token count is len of the result.
func (s *Scanner) Scan(ctx context.Context, text []byte) (toks []Token) {
	tr := tlog.SpanFromContext(ctx)

	st := &state{
		Scanner: s,
		b:       text,
		line:    1,
		col:     1,
	}

	for st.i < len(st.b) {
		st.step(ctx)
	}

	if tr.If("scan") {
		tr.Printw("scanned", "size", len(text), "tokens", len(st.toks), "lines", st.line)
	}

	return st.toks
}

func (s *state) step(ctx context.Context) {
	c := s.b[s.i]

	switch {
	case c == '\n':
		s.i++
		s.line++
		s.col = 1
	case isSpace(c):
		s.i++
		s.col++
	case c == '"':
		s.scanString(ctx)
	case c == '/' && s.peek(1) == '/':
		s.scanLineComment()
	case c == '/' && s.peek(1) == '*':
		s.scanBlockComment(ctx)
	case isDigit(c):
		s.scanNumber()
	case strings.IndexByte(operatorChars, c) >= 0:
		s.scanOperator()
	case strings.IndexByte(separatorChars, c) >= 0:
		s.emit(Separator, s.i, s.i+1, s.line, s.col, string(c))
		s.i++
		s.col++
	case isLetter(c) || c == '_':
		s.scanIdent()
	default:
		s.anomaly(ctx, s.line, s.col, "unrecognized character %q", c)

		s.i++
		s.col++
	}
}

func (s *state) scanString(ctx context.Context) {
	st, line, col := s.i, s.line, s.col

	s.i++
	s.col++

	for s.i < len(s.b) && s.b[s.i] != '"' {
		s.advance()
	}

	if s.i == len(s.b) {
		s.anomaly(ctx, line, col, "unterminated string literal")
		return
	}

	s.i++
	s.col++

	s.emit(String, st, s.i, line, col, string(s.b[st+1:s.i-1]))
}

func (s *state) scanLineComment() {
	st, line, col := s.i, s.line, s.col

	s.i += 2
	s.col += 2

	for s.i < len(s.b) && s.b[s.i] != '\n' {
		s.i++
		s.col++
	}

	s.emit(Comment, st, s.i, line, col, string(s.b[st+2:s.i]))
}

func (s *state) scanBlockComment(ctx context.Context) {
	st, line, col := s.i, s.line, s.col

	s.i += 2
	s.col += 2

	for s.i < len(s.b) && !(s.b[s.i] == '*' && s.peek(1) == '/') {
		s.advance()
	}

	text := string(s.b[st+2 : s.i])

	if s.i == len(s.b) {
		s.anomaly(ctx, line, col, "unterminated block comment")
	} else {
		s.i += 2
		s.col += 2
	}

	s.emit(Comment, st, s.i, line, col, text)
}

func (s *state) scanNumber() {
	st := s.i
	dot := false

	for s.i < len(s.b) {
		c := s.b[s.i]

		if c == '.' && !dot {
			dot = true
		} else if !isDigit(c) {
			break
		}

		s.i++
	}

	s.emit(Number, st, s.i, s.line, s.col, string(s.b[st:s.i]))
	s.col += s.i - st
}

func (s *state) scanOperator() {
	st := s.i
	c, n := s.b[s.i], s.peek(1)

	s.i++

	switch {
	case c == '+' && n == '+',
		c == '-' && n == '-',
		c == '=' && n == '=',
		c == '!' && n == '=',
		c == '<' && n == '=',
		c == '>' && n == '=',
		c == '&' && n == '&',
		c == '|' && n == '|':
		s.i++
	}

	s.emit(Operator, st, s.i, s.line, s.col, string(s.b[st:s.i]))
	s.col += s.i - st
}

func (s *state) scanIdent() {
	st := s.i

	for s.i < len(s.b) && (isLetter(s.b[s.i]) || isDigit(s.b[s.i]) || s.b[s.i] == '_') {
		s.i++
	}

	text := string(s.b[st:s.i])

	k := Identifier
	if IsKeyword(text) {
		k = Keyword
	}

	s.emit(k, st, s.i, s.line, s.col, text)
	s.col += s.i - st
}

// advance consumes one byte inside a multi-line token.
func (s *state) advance() {
	if s.b[s.i] == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}

	s.i++
}

func (s *state) emit(k Kind, pos, end, line, col int, text string) {
	s.toks = append(s.toks, Token{
		Kind: k,
		Text: text,
		Line: line,
		Col:  col,
		Pos:  pos,
		End:  end,
	})
}

func (s *state) anomaly(ctx context.Context, line, col int, format string, args ...any) {
	if tr := tlog.SpanFromContext(ctx); tr.If("scan") {
		tr.Printw("lexical anomaly", "line", line, "col", col, "strict", s.Strict)
	}

	if s.Strict {
		s.Diags.Errorf(diag.Scan, line, col, format, args...)
	}
}

func (s *state) peek(off int) byte {
	if s.i+off >= len(s.b) {
		return 0
	}

	return s.b[s.i+off]
}

func isSpace(c byte) bool {
	switch c {
	case ' ', '\t', '\r', '\v', '\f':
		return true
	}

	return false
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}
