package gen

import (
	"fmt"
	"strconv"

	"tlog.app/go/errors"
	"tlog.app/go/loc"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/ir"
)

type (
	State uint8

	// Gen is an append-only three-address code buffer with fresh name counters.
	// One Gen is one emission session.
	Gen struct {
		code []ir.Instr

		temps  int
		labels int

		state State
	}

	UnknownOperatorError struct {
		Op string
	}
)

const (
	Idle State = iota
	Emitting
)

var errIdle = errors.New("emit on idle generator")

// New returns a generator ready for emission.
func New() *Gen {
	g := &Gen{}
	g.Reset()

	return g
}

// Reset starts a new session: the buffer and both counters are cleared.
func (g *Gen) Reset() {
	g.code = g.code[:0]
	g.temps = 0
	g.labels = 0
	g.state = Emitting
}

// Dispose releases the buffer. Emitting requires Reset afterwards.
func (g *Gen) Dispose() {
	g.code = nil
	g.temps = 0
	g.labels = 0
	g.state = Idle
}

func (g *Gen) State() State { return g.state }

func (g *Gen) NewTemp() string {
	g.emitting()

	n := g.temps
	g.temps++

	return "t" + strconv.Itoa(n)
}

func (g *Gen) NewLabel() string {
	g.emitting()

	n := g.labels
	g.labels++

	return "L" + strconv.Itoa(n)
}

// EmitBinaryOp appends dest = l op r into a fresh temporary and returns it.
// Unknown operators append nothing and allocate nothing.
func (g *Gen) EmitBinaryOp(l, op, r string) (string, error) {
	g.emitting()

	code, ok := ir.BinaryOp(op)
	if !ok {
		return "", UnknownOperatorError{Op: op}
	}

	t := g.NewTemp()

	g.add(ir.Instr{Op: code, Dest: t, Src1: l, Src2: r})

	return t, nil
}

func (g *Gen) EmitAssign(dest, src string) {
	g.add(ir.Instr{Op: ir.ASSIGN, Dest: dest, Src1: src})
}

// EmitIf emits the guard only: a jump to f when cond is zero, then the t label.
func (g *Gen) EmitIf(cond, t, f string) {
	g.add(ir.Instr{Op: ir.JUMPZ, Dest: f, Src1: cond})
	g.add(ir.Instr{Op: ir.LABEL, Dest: t})
}

// EmitWhile emits the loop test: the start label, then a jump to end when cond is zero.
// The caller emits the body, a jump back to start and the end label.
func (g *Gen) EmitWhile(start, cond, end string) {
	g.add(ir.Instr{Op: ir.LABEL, Dest: start})
	g.add(ir.Instr{Op: ir.JUMPZ, Dest: end, Src1: cond})
}

// EmitCall pushes args in order and calls f. The result temporary is returned.
func (g *Gen) EmitCall(f string, args []string) string {
	g.emitting()

	for _, a := range args {
		g.add(ir.Instr{Op: ir.PARAM, Src1: a})
	}

	t := g.NewTemp()

	g.add(ir.Instr{Op: ir.CALL, Dest: t, Src1: f})

	return t
}

// EmitReturn appends a return. Empty v is a void return.
func (g *Gen) EmitReturn(v string) {
	g.add(ir.Instr{Op: ir.RETURN, Src1: v})
}

func (g *Gen) EmitLabel(l string) {
	g.add(ir.Instr{Op: ir.LABEL, Dest: l})
}

func (g *Gen) EmitJump(l string) {
	g.add(ir.Instr{Op: ir.JUMP, Dest: l})
}

// Code is the emitted buffer. It must not be modified.
func (g *Gen) Code() []ir.Instr { return g.code }

func (g *Gen) Len() int { return len(g.code) }

// AppendRender serializes the buffer, one instruction per line.
func (g *Gen) AppendRender(b []byte) []byte {
	for _, x := range g.code {
		b = x.Append(b)
		b = append(b, '\n')
	}

	return b
}

func (g *Gen) Render() string {
	return string(g.AppendRender(nil))
}

func (g *Gen) add(x ir.Instr) {
	g.emitting()

	g.code = append(g.code, x)

	if tr := tlog.Root(); tr.If("emit") {
		tr.Printw("emit", "instr", x, "n", len(g.code), "from", loc.Caller(2))
	}
}

func (g *Gen) emitting() {
	if g.state != Emitting {
		panic(errIdle)
	}
}

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Emitting:
		return "Emitting"
	}

	return fmt.Sprintf("State(%d)", int(s))
}

func (e UnknownOperatorError) Error() string {
	return fmt.Sprintf("unknown operator: %q", e.Op)
}
