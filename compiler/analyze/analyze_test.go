package analyze

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tlog.app/go/errors"

	"github.com/slowlang/minic/compiler/symtab"
	"github.com/slowlang/minic/compiler/tp"
)

var (
	arr5  = tp.ArrayOf(tp.Int, 5)
	farr  = tp.ArrayOf(tp.Float, 3)
	intA  = tp.ArrayOf(tp.Int, 0)
	voidT = tp.VoidType
)

func TestCheckBinaryOp(t *testing.T) {
	tests := []struct {
		l, r tp.Type
		err  error
	}{
		{tp.IntType, tp.IntType, nil},
		{tp.IntType, tp.FloatType, nil},
		{tp.FloatType, tp.FloatType, nil},
		{arr5, tp.IntType, ErrArrayOperand},
		{tp.IntType, farr, ErrArrayOperand},
		{voidT, tp.IntType, ErrVoidOperand},
		{tp.FloatType, voidT, ErrVoidOperand},
	}

	for _, tc := range tests {
		err := CheckBinaryOp("+", tc.l, tc.r)

		if tc.err == nil {
			assert.NoError(t, err, "%v + %v", tc.l, tc.r)
			continue
		}

		assert.True(t, errors.Is(err, tc.err), "%v + %v: %v", tc.l, tc.r, err)
	}
}

func TestCheckAssignment(t *testing.T) {
	tests := []struct {
		target, value tp.Type
		err           error
	}{
		{tp.IntType, tp.IntType, nil},
		{tp.FloatType, tp.IntType, nil},
		{tp.IntType, tp.FloatType, ErrTypeMismatch},
		{arr5, tp.IntType, ErrScalarToArray},
		{tp.IntType, arr5, ErrArrayToScalar},
		{intA, arr5, nil},
		{intA, farr, ErrTypeMismatch},
		{farr, tp.ArrayOf(tp.Int, 3), nil},
		{farr, tp.IntType, ErrScalarToArray},
		{voidT, tp.IntType, ErrVoidAssign},
		{tp.IntType, voidT, ErrVoidAssign},
	}

	for _, tc := range tests {
		err := CheckAssignment(tc.target, tc.value)

		if tc.err == nil {
			assert.NoError(t, err, "%v = %v", tc.target, tc.value)
			continue
		}

		assert.True(t, errors.Is(err, tc.err), "%v = %v: %v", tc.target, tc.value, err)
	}
}

func TestScalarIntoArrayVariable(t *testing.T) {
	st := symtab.New()

	_, err := st.Insert("arr", symtab.Attrs{Type: tp.ArrayOf(tp.Int, 5)})
	require.NoError(t, err)

	e := st.Lookup("arr")
	require.NotNil(t, e)

	err = CheckAssignment(e.Type, tp.IntType)
	assert.True(t, errors.Is(err, ErrScalarToArray), "err: %v", err)
}

func TestCheckFunctionCall(t *testing.T) {
	st := symtab.New()
	c := New(st)

	_, err := c.CheckFunctionCall("foo", nil)
	assert.True(t, errors.Is(err, ErrUndefinedFunction), "err: %v", err)
	assert.Contains(t, err.Error(), "foo")

	st.Insert("factorial", symtab.Attrs{Func: &tp.Func{Ret: tp.IntType, Params: []tp.Type{tp.IntType}}})
	st.Insert("avg", symtab.Attrs{Func: &tp.Func{Ret: tp.FloatType, Params: []tp.Type{intA, tp.IntType}}})
	st.Insert("x", symtab.Attrs{Type: tp.IntType})

	ret, err := c.CheckFunctionCall("factorial", []tp.Type{tp.IntType})
	assert.NoError(t, err)
	assert.Equal(t, tp.IntType, ret)

	_, err = c.CheckFunctionCall("factorial", nil)
	assert.True(t, errors.Is(err, ErrArgumentCount), "err: %v", err)

	_, err = c.CheckFunctionCall("factorial", []tp.Type{tp.FloatType})
	assert.True(t, errors.Is(err, ErrTypeMismatch), "err: %v", err)
	assert.Contains(t, err.Error(), "argument 1 of factorial")

	ret, err = c.CheckFunctionCall("avg", []tp.Type{arr5, tp.IntType})
	assert.NoError(t, err)
	assert.Equal(t, tp.FloatType, ret)

	_, err = c.CheckFunctionCall("avg", []tp.Type{tp.IntType, arr5})
	assert.True(t, errors.Is(err, ErrScalarToArray), "first mismatch wins: %v", err)

	st.Insert("scale", symtab.Attrs{Func: &tp.Func{Ret: tp.VoidType, Params: []tp.Type{tp.ArrayOf(tp.Float, 0)}}})

	ret, err = c.CheckFunctionCall("scale", []tp.Type{arr5})
	assert.NoError(t, err, "int array widens to float array")
	assert.Equal(t, tp.VoidType, ret)

	_, err = c.CheckFunctionCall("x", nil)
	assert.True(t, errors.Is(err, ErrNotFunction), "err: %v", err)
}

func TestFunctionContext(t *testing.T) {
	st := symtab.New()
	c := New(st)

	assert.True(t, errors.Is(c.CheckReturn(tp.IntType), ErrReturnOutside))

	require.NoError(t, c.EnterFunction("f", tp.Func{Ret: tp.FloatType, Params: []tp.Type{tp.IntType}}))
	assert.Equal(t, 1, st.Depth())
	require.NotNil(t, c.Function())
	assert.Equal(t, "f", c.Function().Name)

	st.Insert("n", symtab.Attrs{Type: tp.IntType})

	err := c.EnterFunction("g", tp.Func{Ret: tp.VoidType})
	assert.True(t, errors.Is(err, ErrNestedFunction), "err: %v", err)
	assert.Equal(t, 1, st.Depth())
	assert.Equal(t, "f", c.Function().Name)

	assert.NoError(t, c.CheckReturn(tp.IntType))
	assert.NoError(t, c.CheckReturn(tp.FloatType))
	assert.True(t, errors.Is(c.CheckReturn(tp.VoidType), ErrReturnValue))
	assert.True(t, errors.Is(c.CheckReturn(arr5), ErrArrayToScalar))

	c.ExitFunction()

	assert.Nil(t, c.Function())
	assert.Equal(t, 0, st.Depth())
	assert.Nil(t, st.Lookup("n"))

	c.ExitFunction()
	assert.Equal(t, 0, st.Depth())

	require.NoError(t, c.EnterFunction("main", tp.Func{Ret: tp.VoidType}))
	assert.NoError(t, c.CheckReturn(tp.VoidType))
	assert.True(t, errors.Is(c.CheckReturn(tp.IntType), ErrReturnValue))
	c.ExitFunction()
}
