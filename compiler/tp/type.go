package tp

import (
	"strconv"
	"strings"
)

type (
	Basic uint8

	// Type is a resolved value type.
	// Len is 0 for scalars and for arrays of unknown bound.
	Type struct {
		Basic Basic
		Array bool
		Len   int
	}

	Func struct {
		Ret    Type
		Params []Type
	}
)

const (
	Int Basic = iota
	Float
	Void
)

var (
	IntType   = Type{Basic: Int}
	FloatType = Type{Basic: Float}
	VoidType  = Type{Basic: Void}
)

// FromKeyword maps a type keyword to its basic type.
func FromKeyword(kw string) (Basic, bool) {
	switch kw {
	case "int", "char", "_Bool":
		return Int, true
	case "float":
		return Float, true
	case "void":
		return Void, true
	}

	return 0, false
}

func ArrayOf(b Basic, n int) Type {
	return Type{Basic: b, Array: true, Len: n}
}

func (t Type) IsVoid() bool { return t.Basic == Void && !t.Array }

// Elem is the element type of an array, or t itself.
func (t Type) Elem() Type {
	return Type{Basic: t.Basic}
}

func (b Basic) String() string {
	switch b {
	case Int:
		return "int"
	case Float:
		return "float"
	case Void:
		return "void"
	}

	return "Basic(" + strconv.Itoa(int(b)) + ")"
}

func (t Type) String() string {
	if !t.Array {
		return t.Basic.String()
	}

	if t.Len == 0 {
		return t.Basic.String() + "[]"
	}

	return t.Basic.String() + "[" + strconv.Itoa(t.Len) + "]"
}

func (f Func) String() string {
	var b strings.Builder

	b.WriteString(f.Ret.String())
	b.WriteByte('(')

	for i, p := range f.Params {
		if i != 0 {
			b.WriteString(", ")
		}

		b.WriteString(p.String())
	}

	b.WriteByte(')')

	return b.String()
}
