package analyze

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/slowlang/minic/compiler/symtab"
	"github.com/slowlang/minic/compiler/tp"
)

type (
	// Checker validates resolved types. Symbol lookup is the caller's job,
	// except for function calls which are resolved through Table.
	Checker struct {
		Table *symtab.Table

		fn *Function
	}

	// Function is the context of the function body being checked.
	Function struct {
		Name string

		tp.Func
	}
)

var (
	ErrArrayOperand  = errors.New("arrays cannot be used in binary operations")
	ErrVoidOperand   = errors.New("void type cannot be used in operations")
	ErrScalarToArray = errors.New("cannot assign scalar to array")
	ErrArrayToScalar = errors.New("cannot assign array to scalar")
	ErrVoidAssign    = errors.New("cannot assign void type")
	ErrTypeMismatch  = errors.New("type mismatch in assignment")

	ErrUndefinedFunction = errors.New("undefined function")
	ErrNotFunction       = errors.New("called object is not a function")
	ErrArgumentCount     = errors.New("wrong number of arguments")

	ErrUndefinedVariable = errors.New("undefined variable")
	ErrNotVariable       = errors.New("function used as a value")
	ErrNotArray          = errors.New("subscripted value is not an array")

	ErrReturnOutside  = errors.New("return outside of a function")
	ErrReturnValue    = errors.New("return value does not match function type")
	ErrNestedFunction = errors.New("nested function definitions are not supported")
)

func New(t *symtab.Table) *Checker {
	return &Checker{Table: t}
}

// CheckBinaryOp accepts any mix of int and float scalars.
func CheckBinaryOp(op string, l, r tp.Type) error {
	if l.Array || r.Array {
		return errors.Wrap(ErrArrayOperand, "operator %s", op)
	}

	if l.Basic == tp.Void || r.Basic == tp.Void {
		return errors.Wrap(ErrVoidOperand, "operator %s", op)
	}

	return nil
}

// CheckAssignment checks value can be stored into target.
// Int widens to float, element-wise for arrays. Array bounds are not compared.
func CheckAssignment(target, value tp.Type) error {
	switch {
	case target.Array && !value.Array:
		return ErrScalarToArray
	case !target.Array && value.Array:
		return ErrArrayToScalar
	case target.Basic == tp.Void || value.Basic == tp.Void:
		return ErrVoidAssign
	case target.Basic == tp.Float && value.Basic == tp.Int:
		return nil
	case target.Basic != value.Basic:
		return errors.Wrap(ErrTypeMismatch, "%v = %v", target, value)
	}

	return nil
}

// CheckFunctionCall resolves name and checks args against its parameters.
// It returns the callee's return type when the callee is known.
func (c *Checker) CheckFunctionCall(name string, args []tp.Type) (ret tp.Type, err error) {
	e := c.Table.Lookup(name)
	if e == nil {
		return tp.IntType, errors.Wrap(ErrUndefinedFunction, "%s", name)
	}

	if e.Func == nil {
		return e.Type, errors.Wrap(ErrNotFunction, "%s (%v)", name, e.Type)
	}

	ret = e.Func.Ret

	if len(args) != len(e.Func.Params) {
		return ret, errors.Wrap(ErrArgumentCount, "%s: want %d, got %d", name, len(e.Func.Params), len(args))
	}

	for i, p := range e.Func.Params {
		if err = CheckAssignment(p, args[i]); err != nil {
			return ret, errors.Wrap(err, "argument %d of %s", i+1, name)
		}
	}

	return ret, nil
}

// CheckReturn checks a returned value against the active function.
// A return without a value is passed as tp.VoidType.
func (c *Checker) CheckReturn(value tp.Type) error {
	if c.fn == nil {
		return ErrReturnOutside
	}

	ret := c.fn.Ret

	switch {
	case ret.IsVoid() && value.IsVoid():
		return nil
	case ret.IsVoid() || value.IsVoid():
		return errors.Wrap(ErrReturnValue, "%s returns %v", c.fn.Name, ret)
	}

	if err := CheckAssignment(ret, value); err != nil {
		return errors.Wrap(err, "return from %s", c.fn.Name)
	}

	return nil
}

// EnterFunction makes f the active function and opens its scope.
// Only one function can be active.
func (c *Checker) EnterFunction(name string, f tp.Func) error {
	if c.fn != nil {
		return errors.Wrap(ErrNestedFunction, "%s inside %s", name, c.fn.Name)
	}

	c.fn = &Function{Name: name, Func: f}
	c.Table.EnterScope()

	if tr := tlog.Root(); tr.If("check") {
		tr.Printw("enter function", "name", name, "type", f.String(), "depth", c.Table.Depth())
	}

	return nil
}

// ExitFunction closes the active function and its scope.
func (c *Checker) ExitFunction() {
	if c.fn == nil {
		return
	}

	if tr := tlog.Root(); tr.If("check") {
		tr.Printw("exit function", "name", c.fn.Name, "depth", c.Table.Depth())
	}

	c.fn = nil
	c.Table.ExitScope()
}

// Function returns the active function or nil.
func (c *Checker) Function() *Function { return c.fn }
