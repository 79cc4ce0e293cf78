package scan

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Kind int

	// Token is a single lexical unit.
	// Pos and End delimit the consumed source bytes including quotes and comment markers.
	Token struct {
		Kind Kind
		Text string
		Line int // 1-based, first character of the token
		Col  int // 1-based

		Pos int
		End int
	}
)

const (
	Keyword Kind = iota
	Identifier
	Number
	Operator
	Separator
	String
	Comment
)

var kindNames = [...]string{
	Keyword:    "Keyword",
	Identifier: "Identifier",
	Number:     "Number",
	Operator:   "Operator",
	Separator:  "Separator",
	String:     "String",
	Comment:    "Comment",
}

var keywords = map[string]struct{}{
	"auto": {}, "break": {}, "case": {}, "char": {}, "const": {}, "continue": {}, "default": {}, "do": {},
	"double": {}, "else": {}, "enum": {}, "extern": {}, "float": {}, "for": {}, "goto": {}, "if": {},
	"int": {}, "long": {}, "register": {}, "return": {}, "short": {}, "signed": {}, "sizeof": {}, "static": {},
	"struct": {}, "switch": {}, "typedef": {}, "union": {}, "unsigned": {}, "void": {}, "volatile": {}, "while": {},
	"_Bool": {}, "_Complex": {}, "_Imaginary": {}, "restrict": {},
}

func IsKeyword(s string) bool {
	_, ok := keywords[s]
	return ok
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("Unknown(%d)", int(k))
}

// Is reports whether t is of kind k with exactly the text s.
func (t Token) Is(k Kind, s string) bool {
	return t.Kind == k && t.Text == s
}

func (t Token) String() string {
	return fmt.Sprintf("%v %q at %d:%d", t.Kind, t.Text, t.Line, t.Col)
}

func (t Token) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendMap(b, 4)
	b = e.AppendString(b, "kind")
	b = e.AppendString(b, t.Kind.String())
	b = e.AppendString(b, "text")
	b = e.AppendString(b, t.Text)
	b = e.AppendKeyInt(b, "line", t.Line)
	b = e.AppendKeyInt(b, "col", t.Col)

	return b
}
