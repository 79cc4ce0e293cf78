package main

import (
	"context"
	"os"

	"github.com/sanity-io/litter"
	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"

	"github.com/slowlang/minic/compiler"
	"github.com/slowlang/minic/compiler/diag"
	"github.com/slowlang/minic/compiler/format"
)

func main() {
	tokensCmd := &cli.Command{
		Name:        "tokens,lex",
		Description: "print the token stream",
		Action:      tokensAct,
		Args:        cli.Args{},
	}

	treeCmd := &cli.Command{
		Name:        "tree,parse",
		Description: "print the parse tree",
		Action:      treeAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("dump", false, "dump raw tree arena"),
		},
	}

	tacCmd := &cli.Command{
		Name:        "tac,compile",
		Description: "check the program and print three-address code",
		Action:      tacAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("strict", false, "report lexical anomalies, skipped tokens and redeclarations as errors"),
		},
	}

	app := &cli.Command{
		Name:        "minic",
		Description: "minic is a mini-C front end producing three-address code",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			tokensCmd,
			treeCmd,
			tacCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func tokensAct(c *cli.Command) error {
	return run(c, compiler.Options{Until: diag.Scan}, func(res *compiler.Result) ([]byte, error) {
		return format.AppendTokens(nil, res.Tokens), nil
	})
}

func treeAct(c *cli.Command) error {
	return run(c, compiler.Options{Until: diag.Parse}, func(res *compiler.Result) ([]byte, error) {
		if c.Bool("dump") {
			return []byte(litter.Sdump(res.Tree.Nodes()) + "\n"), nil
		}

		return format.AppendTree(nil, res.Tree, res.Tree.Root(), ""), nil
	})
}

func tacAct(c *cli.Command) error {
	opts := compiler.Options{
		Strict: c.Bool("strict"),
	}

	return run(c, opts, func(res *compiler.Result) ([]byte, error) {
		return res.Code.AppendRender(nil), nil
	})
}

func run(c *cli.Command, opts compiler.Options, out func(*compiler.Result) ([]byte, error)) error {
	ctx := context.Background()
	ctx = tlog.ContextWithSpan(ctx, tlog.Root())

	if len(c.Args) == 0 {
		return errors.New("no input files")
	}

	failed := 0

	for _, a := range c.Args {
		res, err := compiler.CompileFile(ctx, a, opts)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		if res.Diags.Len() != 0 {
			_, _ = os.Stderr.Write(res.Diags.Append(nil, a))
		}

		if res.Failed() {
			failed++
			continue
		}

		b, err := out(res)
		if err != nil {
			return errors.Wrap(err, "%v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	if failed != 0 {
		return errors.New("%d of %d files failed", failed, len(c.Args))
	}

	return nil
}
