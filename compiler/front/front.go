package front

import (
	"context"
	"strconv"
	"strings"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/analyze"
	"github.com/slowlang/minic/compiler/ast"
	"github.com/slowlang/minic/compiler/diag"
	"github.com/slowlang/minic/compiler/gen"
	"github.com/slowlang/minic/compiler/ir"
	"github.com/slowlang/minic/compiler/symtab"
	"github.com/slowlang/minic/compiler/tp"
)

type (
	// Front lowers a parse tree into three-address code.
	// Declarations go to Table, every construct is checked, and code is emitted into Gen.
	// Semantic errors become diagnostics; lowering always runs to the end.
	Front struct {
		Tree  *ast.Tree
		Table *symtab.Table
		Check *analyze.Checker
		Gen   *gen.Gen
		Diags *diag.List

		mute int
	}

	// value is a lowered expression: operand text and its type.
	value struct {
		name string
		typ  tp.Type
	}
)

func New(t *ast.Tree, tab *symtab.Table, g *gen.Gen, d *diag.List) *Front {
	return &Front{
		Tree:  t,
		Table: tab,
		Check: analyze.New(tab),
		Gen:   g,
		Diags: d,
	}
}

// Lower walks the program rooted at the tree root.
func (f *Front) Lower(ctx context.Context) error {
	root := f.Tree.Root()
	if root == ast.None {
		return errors.New("empty tree")
	}

	if k := f.Tree.Kind(root); k != ast.Program {
		return errors.New("root is %v, want Program", k)
	}

	for _, id := range f.Tree.Node(root).Children {
		f.stmt(ctx, id)
	}

	if tr := tlog.SpanFromContext(ctx); tr.If("front") {
		tr.Printw("lowered", "instrs", f.Gen.Len(), "symbols", f.Table.Len(), "diags", f.Diags.Len())
	}

	return nil
}

func (f *Front) stmt(ctx context.Context, id ast.ID) {
	switch n := f.Tree.Node(id); n.Kind {
	case ast.Declaration:
		f.declaration(ctx, id)
	case ast.Function:
		f.function(ctx, id)
	case ast.Block:
		f.Table.EnterScope()
		f.stmts(ctx, id)
		f.Table.ExitScope()
	case ast.If:
		f.ifStmt(ctx, id)
	case ast.While:
		f.whileStmt(ctx, id)
	case ast.Return:
		f.returnStmt(ctx, id)
	case ast.Assign:
		f.assign(ctx, id)
	case ast.Call:
		f.expr(ctx, id)
	default:
		if tr := tlog.SpanFromContext(ctx); tr.If("front") {
			tr.Printw("statement ignored", "kind", n.Kind, "line", n.Line, "col", n.Col)
		}
	}
}

func (f *Front) stmts(ctx context.Context, id ast.ID) {
	for _, ch := range f.Tree.Node(id).Children {
		f.stmt(ctx, ch)
	}
}

func (f *Front) declaration(ctx context.Context, id ast.ID) {
	n := f.Tree.Node(id)

	name, bound, init := f.Tree.Decl(id)
	if name == ast.None {
		return
	}

	typ := f.declType(n, bound)

	var v value
	if init != ast.None {
		v = f.expr(ctx, init)
	}

	nn := f.Tree.Node(name)

	_, err := f.Table.Insert(nn.Value, symtab.Attrs{Type: typ, Line: nn.Line, Col: nn.Col})
	f.report(name, err)

	if init == ast.None {
		return
	}

	f.report(init, analyze.CheckAssignment(typ, v.typ))

	f.Gen.EmitAssign(nn.Value, v.name)
}

// declType builds the type of a Declaration or Param.
func (f *Front) declType(n *ast.Node, bound ast.ID) tp.Type {
	basic, _ := tp.FromKeyword(n.Value)

	typ := tp.Type{Basic: basic}

	if n.Flags&ast.IsArray == 0 {
		return typ
	}

	typ.Array = true

	if bound == ast.None {
		return typ
	}

	b := f.Tree.Node(bound)

	l, err := strconv.Atoi(b.Value)
	if b.Kind != ast.Number || err != nil || l < 0 {
		f.Diags.Errorf(diag.Check, b.Line, b.Col, "array bound must be a non-negative integer constant")
		return typ
	}

	typ.Len = l

	return typ
}

func (f *Front) function(ctx context.Context, id ast.ID) {
	n := f.Tree.Node(id)

	nameID := f.Tree.Child(id, 0)
	if nameID == ast.None {
		return
	}

	name := f.Tree.Node(nameID).Value

	ret, _ := tp.FromKeyword(n.Value)
	ft := tp.Func{Ret: tp.Type{Basic: ret}}

	params := f.Tree.Child(id, 1)
	if params != ast.None {
		for _, p := range f.Tree.Node(params).Children {
			_, bound, _ := f.Tree.Decl(p)

			ft.Params = append(ft.Params, f.declType(f.Tree.Node(p), bound))
		}
	}

	f.declareFunc(nameID, ft)

	if n.Flags&ast.HasBody == 0 {
		return
	}

	err := f.Check.EnterFunction(name, ft)
	if err != nil {
		f.report(nameID, err)
		return
	}

	defer f.Check.ExitFunction()

	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "lower function", "name", name, "type", ft.String())
	defer tr.Finish()

	f.Gen.EmitLabel(name)

	if params != ast.None {
		for i, p := range f.Tree.Node(params).Children {
			pname, _, _ := f.Tree.Decl(p)
			if pname == ast.None {
				continue
			}

			pn := f.Tree.Node(pname)

			_, err := f.Table.Insert(pn.Value, symtab.Attrs{Type: ft.Params[i], Line: pn.Line, Col: pn.Col})
			f.report(pname, err)
		}
	}

	// the body block shares the scope with parameters
	f.stmts(ctx, f.Tree.Child(id, 2))

	if ret != tp.Void {
		return
	}

	if code := f.Gen.Code(); len(code) == 0 || code[len(code)-1].Op != ir.RETURN {
		f.Gen.EmitReturn("")
	}
}

// declareFunc inserts the function symbol unless a compatible prototype is already there.
func (f *Front) declareFunc(nameID ast.ID, ft tp.Func) {
	nn := f.Tree.Node(nameID)

	if e := f.Table.Lookup(nn.Value); e != nil && e.Scope == f.Table.Depth() && e.Func != nil {
		if !sameFunc(*e.Func, ft) {
			f.Diags.Errorf(diag.Check, nn.Line, nn.Col, "conflicting types for %s: %v, previously %v at %d:%d",
				nn.Value, ft, *e.Func, e.Line, e.Col)
		}

		return
	}

	_, err := f.Table.Insert(nn.Value, symtab.Attrs{Func: &ft, Line: nn.Line, Col: nn.Col})
	f.report(nameID, err)
}

func (f *Front) ifStmt(ctx context.Context, id ast.ID) {
	cond := f.expr(ctx, f.Tree.Child(id, 0))

	yes, no := f.Gen.NewLabel(), f.Gen.NewLabel()

	f.Gen.EmitIf(cond.name, yes, no)

	f.stmt(ctx, f.Tree.Child(id, 1))

	els := f.Tree.Child(id, 2)
	if els == ast.None {
		f.Gen.EmitLabel(no)
		return
	}

	end := f.Gen.NewLabel()

	f.Gen.EmitJump(end)
	f.Gen.EmitLabel(no)

	f.stmt(ctx, els)

	f.Gen.EmitLabel(end)
}

// whileStmt evaluates the condition before the loop label
// and refreshes it at the end of the body.
func (f *Front) whileStmt(ctx context.Context, id ast.ID) {
	condID := f.Tree.Child(id, 0)

	start, end := f.Gen.NewLabel(), f.Gen.NewLabel()

	before := f.Gen.Len()
	cond := f.expr(ctx, condID)
	computed := f.Gen.Len() != before

	// refreshed below, so never test a user location like a[t0] directly
	if code := f.Gen.Code(); computed && code[len(code)-1].Dest != cond.name {
		c := f.Gen.NewTemp()
		f.Gen.EmitAssign(c, cond.name)

		cond.name = c
	}

	f.Gen.EmitWhile(start, cond.name, end)

	f.stmt(ctx, f.Tree.Child(id, 1))

	if computed {
		f.mute++
		again := f.expr(ctx, condID)
		f.mute--

		f.Gen.EmitAssign(cond.name, again.name)
	}

	f.Gen.EmitJump(start)
	f.Gen.EmitLabel(end)
}

func (f *Front) returnStmt(ctx context.Context, id ast.ID) {
	x := f.Tree.Child(id, 0)
	if x == ast.None {
		f.report(id, f.Check.CheckReturn(tp.VoidType))
		f.Gen.EmitReturn("")

		return
	}

	v := f.expr(ctx, x)

	f.report(x, f.Check.CheckReturn(v.typ))
	f.Gen.EmitReturn(v.name)
}

func (f *Front) assign(ctx context.Context, id ast.ID) {
	target := f.expr(ctx, f.Tree.Child(id, 0))

	x := f.Tree.Child(id, 1)
	if x == ast.None {
		return
	}

	v := f.expr(ctx, x)

	f.report(id, analyze.CheckAssignment(target.typ, v.typ))
	f.Gen.EmitAssign(target.name, v.name)
}

func (f *Front) expr(ctx context.Context, id ast.ID) value {
	if id == ast.None {
		return value{name: "0", typ: tp.IntType}
	}

	n := f.Tree.Node(id)

	switch n.Kind {
	case ast.Number:
		if strings.IndexByte(n.Value, '.') >= 0 {
			return value{name: n.Value, typ: tp.FloatType}
		}

		return value{name: n.Value, typ: tp.IntType}
	case ast.Identifier:
		return f.variable(id, n, tp.IntType)
	case ast.Group:
		return f.expr(ctx, f.Tree.Child(id, 0))
	case ast.Index:
		return f.index(ctx, id, n)
	case ast.Call:
		return f.call(ctx, id, n)
	case ast.Operation:
		return f.binary(ctx, id, n)
	}

	f.Diags.Errorf(diag.Check, n.Line, n.Col, "unexpected %v in expression", n.Kind)

	return value{name: "0", typ: tp.IntType}
}

// variable resolves an identifier. An undefined name is reported once
// and then declared in the current scope with type as.
func (f *Front) variable(id ast.ID, n *ast.Node, as tp.Type) value {
	e := f.Table.Lookup(n.Value)

	switch {
	case e == nil:
		f.report(id, errors.Wrap(analyze.ErrUndefinedVariable, "%s", n.Value))

		_, _ = f.Table.Insert(n.Value, symtab.Attrs{Type: as, Line: n.Line, Col: n.Col})

		return value{name: n.Value, typ: as}
	case e.Func != nil:
		f.report(id, errors.Wrap(analyze.ErrNotVariable, "%s", n.Value))

		return value{name: n.Value, typ: e.Func.Ret}
	}

	return value{name: n.Value, typ: e.Type}
}

func (f *Front) index(ctx context.Context, id ast.ID, n *ast.Node) value {
	arr := f.variable(id, n, tp.ArrayOf(tp.Int, 0))

	x := f.expr(ctx, f.Tree.Child(id, 0))

	if !arr.typ.Array {
		f.report(id, errors.Wrap(analyze.ErrNotArray, "%s (%v)", n.Value, arr.typ))
	}

	if err := analyze.CheckAssignment(tp.IntType, x.typ); err != nil {
		f.report(f.Tree.Child(id, 0), errors.Wrap(err, "array index"))
	}

	return value{
		name: n.Value + "[" + x.name + "]",
		typ:  arr.typ.Elem(),
	}
}

func (f *Front) call(ctx context.Context, id ast.ID, n *ast.Node) value {
	args := n.Children

	names := make([]string, len(args))
	types := make([]tp.Type, len(args))

	for i, a := range args {
		v := f.expr(ctx, a)

		names[i] = v.name
		types[i] = v.typ
	}

	ret, err := f.Check.CheckFunctionCall(n.Value, types)
	f.report(id, err)

	t := f.Gen.EmitCall(n.Value, names)

	return value{name: t, typ: ret}
}

func (f *Front) binary(ctx context.Context, id ast.ID, n *ast.Node) value {
	l := f.expr(ctx, f.Tree.Child(id, 0))
	r := f.expr(ctx, f.Tree.Child(id, 1))

	f.report(id, analyze.CheckBinaryOp(n.Value, l.typ, r.typ))

	t, err := f.Gen.EmitBinaryOp(l.name, n.Value, r.name)
	if err != nil {
		f.reportStage(diag.Gen, id, err)

		return l
	}

	typ := tp.IntType

	switch op, _ := ir.BinaryOp(n.Value); op {
	case ir.ADD, ir.SUB, ir.MUL, ir.DIV:
		if l.typ.Basic == tp.Float || r.typ.Basic == tp.Float {
			typ = tp.FloatType
		}
	}

	return value{name: t, typ: typ}
}

func (f *Front) report(id ast.ID, err error) {
	f.reportStage(diag.Check, id, err)
}

func (f *Front) reportStage(stage diag.Stage, id ast.ID, err error) {
	if err == nil || f.mute != 0 {
		return
	}

	n := f.Tree.Node(id)

	f.Diags.Report(stage, n.Line, n.Col, err)
}

func sameFunc(a, b tp.Func) bool {
	if a.Ret != b.Ret || len(a.Params) != len(b.Params) {
		return false
	}

	for i := range a.Params {
		if a.Params[i] != b.Params[i] {
			return false
		}
	}

	return true
}
