package compiler

import (
	"context"
	"os"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/ast"
	"github.com/slowlang/minic/compiler/diag"
	"github.com/slowlang/minic/compiler/front"
	"github.com/slowlang/minic/compiler/gen"
	"github.com/slowlang/minic/compiler/parse"
	"github.com/slowlang/minic/compiler/scan"
	"github.com/slowlang/minic/compiler/symtab"
)

type (
	Options struct {
		// Strict turns lexical anomalies, parser resyncs and
		// same-scope redeclarations into error diagnostics.
		Strict bool

		// Until stops the pipeline after the named stage.
		// Empty runs everything.
		Until diag.Stage
	}

	// Result holds every stage output of one compilation.
	// Fields of stages that did not run are nil.
	Result struct {
		Name string

		Tokens []scan.Token
		Tree   *ast.Tree
		Table  *symtab.Table
		Code   *gen.Gen

		Diags *diag.List
	}
)

func CompileFile(ctx context.Context, name string, opts Options) (*Result, error) {
	text, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrap(err, "read file")
	}

	tlog.SpanFromContext(ctx).Printw("read file", "size", len(text), "name", name)

	return Compile(ctx, name, text, opts)
}

func Compile(ctx context.Context, name string, text []byte, opts Options) (res *Result, err error) {
	tr, ctx := tlog.SpawnFromContextAndWrap(ctx, "compile", "name", name, "size", len(text), "strict", opts.Strict)
	defer tr.Finish("err", &err)

	res = &Result{
		Name:  name,
		Diags: diag.New(),
	}

	s := scan.Scanner{Strict: opts.Strict, Diags: res.Diags}

	res.Tokens = s.Scan(ctx, text)

	if opts.Until == diag.Scan {
		return res, nil
	}

	p := parse.New(res.Tokens)
	p.Strict = opts.Strict
	p.Diags = res.Diags

	p.Program(ctx)

	res.Tree = p.Tree()

	if opts.Until == diag.Parse {
		return res, nil
	}

	res.Table = symtab.New()
	res.Table.RejectDuplicates = opts.Strict

	res.Code = gen.New()

	err = front.New(res.Tree, res.Table, res.Code, res.Diags).Lower(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "lower")
	}

	tr.Printw("compiled", "tokens", len(res.Tokens), "nodes", res.Tree.Len(), "instrs", res.Code.Len(), "diags", res.Diags.Len())

	return res, nil
}

// TAC renders the generated code. It's empty if code generation did not run.
func (r *Result) TAC() string {
	if r.Code == nil {
		return ""
	}

	return r.Code.Render()
}

// Failed reports whether any error diagnostic was produced.
func (r *Result) Failed() bool {
	return r.Diags.HasErrors()
}
