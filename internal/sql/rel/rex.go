package rel

import (
	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Rex is a row expression of an operator. Column references are visible
// indexes into the operator's input row; they are resolved to physical
// columns while the operator implements itself.
type Rex interface {
	rex()
}

// InputRef references the visible column Index of the input row.
type InputRef struct {
	Index int
}

// Literal is a constant. A nil Type is taken from the value.
type Literal struct {
	Value types.Value
	Type  types.DataType
}

// FieldAccess reads visible column Index of the outer row a correlate
// variable is bound to.
type FieldAccess struct {
	VariableID string
	Index      int
	Type       types.DataType
}

type Compare struct {
	Op          expr.CompareOp
	Left, Right Rex
}

type Logic struct {
	Op       expr.LogicalOp
	Operands []Rex
}

type NullCheck struct {
	Operand Rex
	Not     bool
}

type Arith struct {
	Op          expr.ArithmeticOp
	Left, Right Rex
}

func (InputRef) rex()    {}
func (Literal) rex()     {}
func (FieldAccess) rex() {}
func (Compare) rex()     {}
func (Logic) rex()       {}
func (NullCheck) rex()   {}
func (Arith) rex()       {}

// ToExpression resolves r against the implementor's current table.
func ToExpression(impl Implementor, r Rex) (expr.Expression, error) {
	switch r := r.(type) {
	case InputRef:
		e, err := impl.NewColumnExpression(r.Index)
		if err != nil {
			return nil, err
		}
		return e, nil
	case Literal:
		t := r.Type
		if t == nil {
			t = r.Value.Type()
		}
		if !t.IsValid(r.Value) {
			return nil, errors.DataTypeMismatchError(t.Name(), r.Value.Type().Name())
		}
		return &expr.Literal{Value: r.Value, Type: t}, nil
	case FieldAccess:
		return impl.NewFieldAccessExpression(r.VariableID, r.Index, r.Type)
	case Compare:
		left, right, err := toOperands(impl, r.Left, r.Right)
		if err != nil {
			return nil, err
		}
		c, err := expr.NewComparison(r.Op, left, right)
		if err != nil {
			return nil, err
		}
		return c, nil
	case Logic:
		operands := make([]expr.Expression, len(r.Operands))
		for i, o := range r.Operands {
			e, err := ToExpression(impl, o)
			if err != nil {
				return nil, err
			}
			operands[i] = e
		}
		l, err := expr.NewLogical(r.Op, operands...)
		if err != nil {
			return nil, err
		}
		return l, nil
	case NullCheck:
		operand, err := ToExpression(impl, r.Operand)
		if err != nil {
			return nil, err
		}
		return &expr.IsNull{Operand: operand, Not: r.Not}, nil
	case Arith:
		left, right, err := toOperands(impl, r.Left, r.Right)
		if err != nil {
			return nil, err
		}
		a, err := expr.NewArithmetic(r.Op, left, right)
		if err != nil {
			return nil, err
		}
		return a, nil
	case nil:
		return nil, errors.InternalErrorf("missing row expression")
	default:
		return nil, errors.InternalErrorf("unknown row expression %T", r)
	}
}

func toOperands(impl Implementor, l, r Rex) (expr.Expression, expr.Expression, error) {
	left, err := ToExpression(impl, l)
	if err != nil {
		return nil, nil, err
	}
	right, err := ToExpression(impl, r)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

// toExpressions resolves every rex of rs.
func toExpressions(impl Implementor, rs []Rex) ([]expr.Expression, error) {
	exprs := make([]expr.Expression, len(rs))
	for i, r := range rs {
		e, err := ToExpression(impl, r)
		if err != nil {
			return nil, err
		}
		exprs[i] = e
	}
	return exprs, nil
}
