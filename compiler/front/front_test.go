package front

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/minic/compiler/analyze"
	"github.com/slowlang/minic/compiler/diag"
	"github.com/slowlang/minic/compiler/gen"
	"github.com/slowlang/minic/compiler/parse"
	"github.com/slowlang/minic/compiler/scan"
	"github.com/slowlang/minic/compiler/symtab"
)

func lower(t *testing.T, src string) (string, []diag.Diag) {
	t.Helper()

	return lowerWith(t, symtab.New(), src)
}

func lowerWith(t *testing.T, tab *symtab.Table, src string) (string, []diag.Diag) {
	t.Helper()

	ctx := context.Background()

	tree := parse.Parse(ctx, scan.Scan(ctx, []byte(src)))
	d := diag.New()
	g := gen.New()

	f := New(tree, tab, g, d)

	err := f.Lower(ctx)
	require.NoError(t, err)

	assert.Nil(t, f.Check.Function(), "function context left open")

	return g.Render(), d.Sorted()
}

func TestFactorial(t *testing.T) {
	code, ds := lower(t, `
int factorial(int n) {
	if (n <= 1) {
		return 1;
	}
	return n * factorial(n - 1);
}
`)

	assert.Empty(t, ds)
	assert.Equal(t, `factorial:
t0 = n <= 1
if t0 == 0 goto L1
L0:
return 1
L1:
t1 = n - 1
param t1
t2 = call factorial
t3 = n * t2
return t3
`, code)
}

func TestWhile(t *testing.T) {
	code, ds := lower(t, `
void main() {
	int i;
	i = 0;
	while (i < 5) {
		i = i + 1;
	}
}
`)

	assert.Empty(t, ds)
	assert.Equal(t, `main:
i = 0
t0 = i < 5
L0:
if t0 == 0 goto L1
t1 = i + 1
i = t1
t2 = i < 5
t0 = t2
goto L0
L1:
return
`, code)
}

func TestWhileOnVariable(t *testing.T) {
	code, ds := lower(t, "int n = 3; void f() { while (n) n = n - 1; }")

	assert.Empty(t, ds)
	assert.Equal(t, `n = 3
f:
L0:
if n == 0 goto L1
t0 = n - 1
n = t0
goto L0
L1:
return
`, code)
}

func TestWhileOnComputedIndex(t *testing.T) {
	code, ds := lower(t, "int a[4]; int i; void f() { while (a[i+1]) i = i + 1; }")

	assert.Empty(t, ds)
	assert.Equal(t, `f:
t0 = i + 1
t1 = a[t0]
L0:
if t1 == 0 goto L1
t2 = i + 1
i = t2
t3 = i + 1
t1 = a[t3]
goto L0
L1:
return
`, code)
}

func TestIfElse(t *testing.T) {
	code, ds := lower(t, `
int f(int a) {
	if (a > 0) a = 1; else a = 2;
	return a;
}
`)

	assert.Empty(t, ds)
	assert.Equal(t, `f:
t0 = a > 0
if t0 == 0 goto L1
L0:
a = 1
goto L2
L1:
a = 2
L2:
return a
`, code)
}

func TestSampleProgram(t *testing.T) {
	src, err := os.ReadFile("testdata/sample.c")
	require.NoError(t, err)

	code, ds := lower(t, string(src))

	for _, d := range ds {
		t.Errorf("unexpected diagnostic: %v", d)
	}

	assert.True(t, strings.HasPrefix(code, "factorial:\n"), "code:\n%s", code)
	assert.Contains(t, code, "\nfind_max:\nmax = arr[0]\ni = 1\n")
	assert.Contains(t, code, "\nnumbers[i] = ")
	assert.Contains(t, code, "\nparam numbers\nparam 5\n")
	assert.Equal(t, 2, strings.Count(code, "= call factorial\n"))
	assert.True(t, strings.HasSuffix(code, "\nreturn\n"), "void main falls off the end")
}

func TestSemanticErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		errs []error
	}{
		{"ScalarIntoArray", "int arr[5]; void g() { arr = 3; }", []error{analyze.ErrScalarToArray}},
		{"UndefinedFunction", "void h() { foo(); }", []error{analyze.ErrUndefinedFunction}},
		{"UndefinedVariables", "x = y;", []error{analyze.ErrUndefinedVariable, analyze.ErrUndefinedVariable}},
		{"ArgumentCount", "int sq(int v) { return v * v; } int z = sq(1, 2);", []error{analyze.ErrArgumentCount}},
		{"VoidOperand", "void v(); int z = v() + 1;", []error{analyze.ErrVoidOperand}},
		{"ArrayOperand", "int a[2]; int s = a + 1;", []error{analyze.ErrArrayOperand}},
		{"FloatIntoInt", "float f = 1.5; int i = f;", []error{analyze.ErrTypeMismatch}},
		{"ReturnOutside", "return 1;", []error{analyze.ErrReturnOutside}},
		{"ReturnValue", "void p() { return 2; }", []error{analyze.ErrReturnValue}},
		{"Nested", "void a() { void b() { } }", []error{analyze.ErrNestedFunction}},
		{"NotArray", "int s; int q = s[1];", []error{analyze.ErrNotArray}},
		{"NotVariable", "int k(); int q = k;", []error{analyze.ErrNotVariable}},
		{"UndefinedOnce", "int y; void g() { y = x + x; }", []error{analyze.ErrUndefinedVariable}},
		{"UndefinedArrayOnce", "int y; void g() { y = u[0] + u[1]; }", []error{analyze.ErrUndefinedVariable}},
		{"BlockScope", "void m() { { int inner; } inner = 1; }", []error{analyze.ErrUndefinedVariable}},
		{"Widening", "float f = 1; void m() { f = f + 2; }", nil},
		{"Prototype", "int f(int a); int f(int a) { return a; } int r = f(1);", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, ds := lower(t, tc.src)

			require.Len(t, ds, len(tc.errs), "diags: %v", ds)

			for i, d := range ds {
				assert.Equal(t, diag.Check, d.Stage)
				assert.True(t, errors.Is(d.Err, tc.errs[i]), "diag %d: %v", i, d)
			}
		})
	}
}

func TestConflictingPrototype(t *testing.T) {
	_, ds := lower(t, "int f(int a); float f(int a) { return a; }")

	require.Len(t, ds, 1)
	assert.Contains(t, ds[0].Err.Error(), "conflicting types for f")
	assert.Equal(t, 1, ds[0].Line)
	assert.Equal(t, 21, ds[0].Col)
}

func TestRedeclarationStrict(t *testing.T) {
	src := "int x; int x; void f(int a) { int a; }"

	_, ds := lower(t, src)
	assert.Empty(t, ds)

	tab := symtab.New()
	tab.RejectDuplicates = true

	_, ds = lowerWith(t, tab, src)
	require.Len(t, ds, 2)

	for _, d := range ds {
		assert.True(t, errors.Is(d.Err, symtab.ErrRedeclared), "diag: %v", d)
	}

	assert.Equal(t, 12, ds[0].Col)
	assert.Equal(t, 35, ds[1].Col)
}

func TestDiagnosticsPositioned(t *testing.T) {
	_, ds := lower(t, "int a[3];\nvoid g() {\n  a = 1;\n  b = 2;\n}\n")

	require.Len(t, ds, 2)

	assert.Equal(t, 3, ds[0].Line)
	assert.Equal(t, 5, ds[0].Col)

	assert.Equal(t, 4, ds[1].Line)
	assert.Equal(t, 3, ds[1].Col)
}
