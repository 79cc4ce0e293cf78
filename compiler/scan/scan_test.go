package scan

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slowlang/minic/compiler/diag"
)

type tk struct {
	Kind Kind
	Text string
	Line int
	Col  int
}

func short(toks []Token) []tk {
	r := make([]tk, len(toks))

	for i, t := range toks {
		r[i] = tk{Kind: t.Kind, Text: t.Text, Line: t.Line, Col: t.Col}
	}

	return r
}

func TestScan(t *testing.T) {
	tests := []struct {
		name string
		in   string
		exp  []tk
	}{
		{
			name: "Empty",
			in:   "",
			exp:  []tk{},
		},
		{
			name: "Declaration",
			in:   "int x = 10;",
			exp: []tk{
				{Keyword, "int", 1, 1},
				{Identifier, "x", 1, 5},
				{Operator, "=", 1, 7},
				{Number, "10", 1, 9},
				{Separator, ";", 1, 11},
			},
		},
		{
			name: "TwoCharOperators",
			in:   "== != <= >= && || ++ -- = ! < >",
			exp: []tk{
				{Operator, "==", 1, 1},
				{Operator, "!=", 1, 4},
				{Operator, "<=", 1, 7},
				{Operator, ">=", 1, 10},
				{Operator, "&&", 1, 13},
				{Operator, "||", 1, 16},
				{Operator, "++", 1, 19},
				{Operator, "--", 1, 22},
				{Operator, "=", 1, 25},
				{Operator, "!", 1, 27},
				{Operator, "<", 1, 29},
				{Operator, ">", 1, 31},
			},
		},
		{
			name: "SignsAreOperators",
			in:   "-3.14",
			exp: []tk{
				{Operator, "-", 1, 1},
				{Number, "3.14", 1, 2},
			},
		},
		{
			name: "SingleDecimalPoint",
			in:   "1.2.3",
			exp: []tk{
				{Number, "1.2", 1, 1},
				{Number, "3", 1, 5},
			},
		},
		{
			name: "Separators",
			in:   "(){}[];,",
			exp: []tk{
				{Separator, "(", 1, 1},
				{Separator, ")", 1, 2},
				{Separator, "{", 1, 3},
				{Separator, "}", 1, 4},
				{Separator, "[", 1, 5},
				{Separator, "]", 1, 6},
				{Separator, ";", 1, 7},
				{Separator, ",", 1, 8},
			},
		},
		{
			name: "KeywordsAndIdentifiers",
			in:   "_Bool while whilst _x1",
			exp: []tk{
				{Keyword, "_Bool", 1, 1},
				{Keyword, "while", 1, 7},
				{Identifier, "whilst", 1, 13},
				{Identifier, "_x1", 1, 20},
			},
		},
		{
			name: "LineComment",
			in:   "a // note\nb",
			exp: []tk{
				{Identifier, "a", 1, 1},
				{Comment, " note", 1, 3},
				{Identifier, "b", 2, 1},
			},
		},
		{
			name: "BlockCommentAcrossLines",
			in:   "/* one\ntwo */ x",
			exp: []tk{
				{Comment, " one\ntwo ", 1, 1},
				{Identifier, "x", 2, 8},
			},
		},
		{
			name: "StringLiteral",
			in:   `s = "hi there";`,
			exp: []tk{
				{Identifier, "s", 1, 1},
				{Operator, "=", 1, 3},
				{String, "hi there", 1, 5},
				{Separator, ";", 1, 15},
			},
		},
		{
			name: "UnknownCharactersSkipped",
			in:   "a @ # b",
			exp: []tk{
				{Identifier, "a", 1, 1},
				{Identifier, "b", 1, 7},
			},
		},
		{
			name: "UnterminatedStringDropped",
			in:   `x "abc`,
			exp: []tk{
				{Identifier, "x", 1, 1},
			},
		},
		{
			name: "UnterminatedBlockComment",
			in:   "x /* abc",
			exp: []tk{
				{Identifier, "x", 1, 1},
				{Comment, " abc", 1, 3},
			},
		},
	}

	ctx := context.Background()

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			toks := Scan(ctx, []byte(tc.in))

			assert.Equal(t, tc.exp, short(toks))
		})
	}
}

func TestScanSpans(t *testing.T) {
	src := "int main() {\n\tfloat f = 1.5; // c\n\t/* block\n */ s = \"q\" @ x += 2;\n}\n"

	toks := Scan(context.Background(), []byte(src))
	require.NotEmpty(t, toks)

	covered := make([]bool, len(src))
	prev := 0

	for _, tk := range toks {
		require.LessOrEqual(t, prev, tk.Pos, "token %v overlaps previous", tk)
		require.Less(t, tk.Pos, tk.End, "token %v", tk)

		for i := tk.Pos; i < tk.End; i++ {
			covered[i] = true
		}

		prev = tk.End
	}

	for i, c := range []byte(src) {
		if covered[i] {
			continue
		}

		assert.Contains(t, " \t\n@", string(c), "byte %d (%q) neither consumed nor skippable", i, c)
	}
}

func TestScanColumnsMatchSource(t *testing.T) {
	src := "int a;\n  float  b = a*2;\n/* x\ny */ return b;"

	toks := Scan(context.Background(), []byte(src))

	for _, tk := range toks {
		line, col := 1, 1

		for _, c := range []byte(src[:tk.Pos]) {
			if c == '\n' {
				line++
				col = 1
			} else {
				col++
			}
		}

		assert.Equal(t, line, tk.Line, "line of %v", tk)
		assert.Equal(t, col, tk.Col, "col of %v", tk)
	}
}

func TestScanStrict(t *testing.T) {
	ctx := context.Background()
	in := []byte("a $ \"open")

	lenient := Scanner{Diags: diag.New()}
	ltoks := lenient.Scan(ctx, in)

	assert.Equal(t, 0, lenient.Diags.Len())

	strict := Scanner{Strict: true, Diags: diag.New()}
	stoks := strict.Scan(ctx, in)

	assert.Equal(t, ltoks, stoks)

	ds := strict.Diags.Sorted()
	require.Len(t, ds, 2)

	assert.Equal(t, 3, ds[0].Col)
	assert.Contains(t, ds[0].Err.Error(), "unrecognized character")
	assert.Equal(t, 5, ds[1].Col)
	assert.Contains(t, ds[1].Err.Error(), "unterminated string")
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "Keyword", Keyword.String())
	assert.Equal(t, "Comment", Comment.String())
	assert.Equal(t, "Unknown(42)", Kind(42).String())
}
