package format

import (
	"context"
	"strconv"

	"github.com/nikandfor/hacked/hfmt"
	"tlog.app/go/errors"

	"github.com/slowlang/minic/compiler/ast"
	"github.com/slowlang/minic/compiler/gen"
	"github.com/slowlang/minic/compiler/scan"
)

// Format appends a human readable dump of x.
// Supported: *ast.Tree, []scan.Token, *gen.Gen.
func Format(ctx context.Context, b []byte, x any) ([]byte, error) {
	switch x := x.(type) {
	case *ast.Tree:
		return AppendTree(b, x, x.Root(), ""), nil
	case []scan.Token:
		return AppendTokens(b, x), nil
	case *gen.Gen:
		return x.AppendRender(b), nil
	default:
		return nil, errors.New("unsupported type: %T", x)
	}
}

// AppendTree draws the subtree at id with box-drawing connectors, one node per line.
func AppendTree(b []byte, t *ast.Tree, id ast.ID, prefix string) []byte {
	if id == ast.None {
		return b
	}

	n := t.Node(id)

	b = app(b, "%s└─ %s", prefix, n.Kind.String())

	if n.Value != "" {
		b = app(b, " (%s)", n.Value)
	}

	b = append(b, '\n')

	for i, ch := range n.Children {
		if i == len(n.Children)-1 {
			b = AppendTree(b, t, ch, prefix+"   ")
		} else {
			b = AppendTree(b, t, ch, prefix+"│  ")
		}
	}

	return b
}

// AppendTokens lists tokens one per line: position, padded kind, quoted text.
func AppendTokens(b []byte, toks []scan.Token) []byte {
	const spaces = "          "

	for _, tk := range toks {
		k := tk.Kind.String()

		b = app(b, "%d:%d\t%s", tk.Line, tk.Col, k)

		if len(k) < len(spaces) {
			b = append(b, spaces[len(k):]...)
		}

		b = append(b, ' ')
		b = strconv.AppendQuote(b, tk.Text)
		b = append(b, '\n')
	}

	return b
}

func app(b []byte, f string, args ...any) []byte {
	return hfmt.Appendf(b, f, args...)
}
