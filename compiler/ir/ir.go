package ir

import (
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/tlog/tlwire"
)

type (
	Op uint8

	// Instr is a three-address instruction.
	// Unused operands are empty.
	Instr struct {
		Op   Op
		Dest string
		Src1 string
		Src2 string
	}
)

const (
	ADD Op = iota
	SUB
	MUL
	DIV
	ASSIGN
	LABEL
	JUMP
	JUMPZ
	JUMPNZ
	LT
	LE
	GT
	GE
	EQ
	NEQ
	PARAM
	CALL
	RETURN

	opCount
)

var opNames = [...]string{
	ADD:    "ADD",
	SUB:    "SUB",
	MUL:    "MUL",
	DIV:    "DIV",
	ASSIGN: "ASSIGN",
	LABEL:  "LABEL",
	JUMP:   "JUMP",
	JUMPZ:  "JUMPZ",
	JUMPNZ: "JUMPNZ",
	LT:     "LT",
	LE:     "LE",
	GT:     "GT",
	GE:     "GE",
	EQ:     "EQ",
	NEQ:    "NEQ",
	PARAM:  "PARAM",
	CALL:   "CALL",
	RETURN: "RETURN",
}

var binarySyms = [...]string{
	ADD: "+",
	SUB: "-",
	MUL: "*",
	DIV: "/",
	LT:  "<",
	LE:  "<=",
	GT:  ">",
	GE:  ">=",
	EQ:  "==",
	NEQ: "!=",
}

// BinaryOp maps a surface operator to its opcode.
func BinaryOp(sym string) (Op, bool) {
	for op, s := range binarySyms {
		if s != "" && s == sym {
			return Op(op), true
		}
	}

	return 0, false
}

func (op Op) IsBinary() bool {
	return int(op) < len(binarySyms) && binarySyms[op] != ""
}

func (op Op) String() string {
	if op < opCount {
		return opNames[op]
	}

	return "Op(" + strconv.Itoa(int(op)) + ")"
}

// Append renders x as a single line without the newline.
func (x Instr) Append(b []byte) []byte {
	switch x.Op {
	case ASSIGN:
		return hfmt.Appendf(b, "%s = %s", x.Dest, x.Src1)
	case LABEL:
		return hfmt.Appendf(b, "%s:", x.Dest)
	case JUMP:
		return hfmt.Appendf(b, "goto %s", x.Dest)
	case JUMPZ:
		return hfmt.Appendf(b, "if %s == 0 goto %s", x.Src1, x.Dest)
	case JUMPNZ:
		return hfmt.Appendf(b, "if %s != 0 goto %s", x.Src1, x.Dest)
	case PARAM:
		return hfmt.Appendf(b, "param %s", x.Src1)
	case CALL:
		return hfmt.Appendf(b, "%s = call %s", x.Dest, x.Src1)
	case RETURN:
		if x.Src1 == "" {
			return append(b, "return"...)
		}

		return hfmt.Appendf(b, "return %s", x.Src1)
	}

	if x.Op.IsBinary() {
		return hfmt.Appendf(b, "%s = %s %s %s", x.Dest, x.Src1, binarySyms[x.Op], x.Src2)
	}

	return hfmt.Appendf(b, "%v %s %s %s", x.Op, x.Dest, x.Src1, x.Src2)
}

func (x Instr) String() string {
	return string(x.Append(nil))
}

func (x Instr) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	return e.AppendString(b, x.String())
}
