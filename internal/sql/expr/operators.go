package expr

import (
	"fmt"
	"math"
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// CompareOp is a comparison operator.
type CompareOp int

const (
	OpEqual CompareOp = iota
	OpNotEqual
	OpLess
	OpLessEqual
	OpGreater
	OpGreaterEqual
)

func (op CompareOp) String() string {
	switch op {
	case OpEqual:
		return "="
	case OpNotEqual:
		return "!="
	case OpLess:
		return "<"
	case OpLessEqual:
		return "<="
	case OpGreater:
		return ">"
	case OpGreaterEqual:
		return ">="
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Comparison compares two expressions. NULL on either side yields NULL.
type Comparison struct {
	Op          CompareOp
	Left, Right Expression
}

// NewComparison checks that both sides can be compared.
func NewComparison(op CompareOp, left, right Expression) (*Comparison, error) {
	lt, rt := left.DataType(), right.DataType()
	if !types.Compatible(lt, rt) && !(types.IsNumericType(lt) && types.IsNumericType(rt)) {
		return nil, errors.TypeMismatchError(lt.Name(), rt.Name(), "comparison")
	}
	return &Comparison{Op: op, Left: left, Right: right}, nil
}

func (c *Comparison) DataType() types.DataType    { return types.Boolean }
func (c *Comparison) MaxLength() int              { return 0 }
func (c *Comparison) Scale() int                  { return 0 }
func (c *Comparison) Nullable() bool              { return c.Left.Nullable() || c.Right.Nullable() }
func (c *Comparison) SortOrder() schema.SortOrder { return schema.Ascending }
func (c *Comparison) Children() []Expression      { return []Expression{c.Left, c.Right} }

func (c *Comparison) Evaluate(t tuple.Tuple) (types.Value, error) {
	l, err := c.Left.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	r, err := c.Right.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.NewNullValue(), nil
	}

	cmp := types.CompareValues(l, r)
	var result bool
	switch c.Op {
	case OpEqual:
		result = cmp == 0
	case OpNotEqual:
		result = cmp != 0
	case OpLess:
		result = cmp < 0
	case OpLessEqual:
		result = cmp <= 0
	case OpGreater:
		result = cmp > 0
	case OpGreaterEqual:
		result = cmp >= 0
	default:
		return types.Value{}, errors.InternalErrorf("unknown comparison operator %d", c.Op)
	}
	return types.NewBooleanValue(result), nil
}

func (c *Comparison) String() string {
	return fmt.Sprintf("(%s %s %s)", c.Left, c.Op, c.Right)
}

// LogicalOp is AND or OR.
type LogicalOp int

const (
	OpAnd LogicalOp = iota
	OpOr
)

func (op LogicalOp) String() string {
	if op == OpOr {
		return "OR"
	}
	return "AND"
}

// Logical combines boolean operands with three-valued logic.
type Logical struct {
	Op       LogicalOp
	Operands []Expression
}

// NewLogical checks that every operand is boolean.
func NewLogical(op LogicalOp, operands ...Expression) (*Logical, error) {
	for _, o := range operands {
		if err := CheckBoolean(o, op.String()); err != nil {
			return nil, err
		}
	}
	return &Logical{Op: op, Operands: operands}, nil
}

func (l *Logical) DataType() types.DataType    { return types.Boolean }
func (l *Logical) MaxLength() int              { return 0 }
func (l *Logical) Scale() int                  { return 0 }
func (l *Logical) SortOrder() schema.SortOrder { return schema.Ascending }
func (l *Logical) Children() []Expression      { return l.Operands }

func (l *Logical) Nullable() bool {
	for _, o := range l.Operands {
		if o.Nullable() {
			return true
		}
	}
	return false
}

// Evaluate short-circuits on the first FALSE (AND) or TRUE (OR) operand.
func (l *Logical) Evaluate(t tuple.Tuple) (types.Value, error) {
	decisive := l.Op == OpOr
	sawNull := false
	for _, o := range l.Operands {
		v, err := o.Evaluate(t)
		if err != nil {
			return types.Value{}, err
		}
		if v.IsNull() {
			sawNull = true
			continue
		}
		b, err := v.AsBool()
		if err != nil {
			return types.Value{}, err
		}
		if b == decisive {
			return types.NewBooleanValue(decisive), nil
		}
	}
	if sawNull {
		return types.NewNullValue(), nil
	}
	return types.NewBooleanValue(!decisive), nil
}

func (l *Logical) String() string {
	parts := make([]string, len(l.Operands))
	for i, o := range l.Operands {
		parts[i] = o.String()
	}
	return "(" + strings.Join(parts, " "+l.Op.String()+" ") + ")"
}

// IsNull tests an operand for NULL.
type IsNull struct {
	Operand Expression
	Not     bool
}

func (n *IsNull) DataType() types.DataType    { return types.Boolean }
func (n *IsNull) MaxLength() int              { return 0 }
func (n *IsNull) Scale() int                  { return 0 }
func (n *IsNull) Nullable() bool              { return false }
func (n *IsNull) SortOrder() schema.SortOrder { return schema.Ascending }
func (n *IsNull) Children() []Expression      { return []Expression{n.Operand} }

func (n *IsNull) Evaluate(t tuple.Tuple) (types.Value, error) {
	v, err := n.Operand.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	return types.NewBooleanValue(v.IsNull() != n.Not), nil
}

func (n *IsNull) String() string {
	if n.Not {
		return fmt.Sprintf("(%s IS NOT NULL)", n.Operand)
	}
	return fmt.Sprintf("(%s IS NULL)", n.Operand)
}

// ArithmeticOp is a binary arithmetic operator.
type ArithmeticOp int

const (
	OpAdd ArithmeticOp = iota
	OpSubtract
	OpMultiply
	OpDivide
)

func (op ArithmeticOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSubtract:
		return "-"
	case OpMultiply:
		return "*"
	case OpDivide:
		return "/"
	default:
		return fmt.Sprintf("Unknown(%d)", op)
	}
}

// Arithmetic applies an arithmetic operator. Integer operands produce a
// BIGINT, anything involving a double produces a DOUBLE PRECISION.
type Arithmetic struct {
	Op          ArithmeticOp
	Left, Right Expression
	resultType  types.DataType
}

// NewArithmetic checks that both operands are numeric.
func NewArithmetic(op ArithmeticOp, left, right Expression) (*Arithmetic, error) {
	for _, e := range []Expression{left, right} {
		if !types.IsNumericType(e.DataType()) {
			return nil, errors.TypeMismatchError("numeric", e.DataType().Name(), "arithmetic "+op.String())
		}
	}
	rt := types.BigInt
	if left.DataType() == types.Double || right.DataType() == types.Double {
		rt = types.Double
	}
	return &Arithmetic{Op: op, Left: left, Right: right, resultType: rt}, nil
}

func (a *Arithmetic) DataType() types.DataType    { return a.resultType }
func (a *Arithmetic) MaxLength() int              { return 0 }
func (a *Arithmetic) Scale() int                  { return 0 }
func (a *Arithmetic) Nullable() bool              { return a.Left.Nullable() || a.Right.Nullable() }
func (a *Arithmetic) SortOrder() schema.SortOrder { return schema.Ascending }
func (a *Arithmetic) Children() []Expression      { return []Expression{a.Left, a.Right} }

func (a *Arithmetic) Evaluate(t tuple.Tuple) (types.Value, error) {
	l, err := a.Left.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	r, err := a.Right.Evaluate(t)
	if err != nil {
		return types.Value{}, err
	}
	if l.IsNull() || r.IsNull() {
		return types.NewNullValue(), nil
	}

	if a.resultType == types.Double {
		lf, _ := l.AsDouble()
		rf, _ := r.AsDouble()
		switch a.Op {
		case OpAdd:
			return types.NewDoubleValue(lf + rf), nil
		case OpSubtract:
			return types.NewDoubleValue(lf - rf), nil
		case OpMultiply:
			return types.NewDoubleValue(lf * rf), nil
		default:
			if rf == 0 {
				return types.Value{}, errors.DivisionByZeroError()
			}
			return types.NewDoubleValue(lf / rf), nil
		}
	}

	li, err := l.AsInt64()
	if err != nil {
		return types.Value{}, err
	}
	ri, err := r.AsInt64()
	if err != nil {
		return types.Value{}, err
	}
	var res int64
	ok := true
	switch a.Op {
	case OpAdd:
		res, ok = addInt64(li, ri)
	case OpSubtract:
		res, ok = subInt64(li, ri)
	case OpMultiply:
		res, ok = mulInt64(li, ri)
	default:
		if ri == 0 {
			return types.Value{}, errors.DivisionByZeroError()
		}
		if li == math.MinInt64 && ri == -1 {
			ok = false
		} else {
			res = li / ri
		}
	}
	if !ok {
		return types.Value{}, errors.NumericOverflowError(a.Op.String())
	}
	return types.NewBigIntValue(res), nil
}

func addInt64(a, b int64) (int64, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

func subInt64(a, b int64) (int64, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}

func mulInt64(a, b int64) (int64, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	if (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) || c/b != a {
		return c, false
	}
	return c, true
}

func (a *Arithmetic) String() string {
	return fmt.Sprintf("(%s %s %s)", a.Left, a.Op, a.Right)
}
