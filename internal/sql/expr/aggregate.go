package expr

import (
	"fmt"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// AggregateFunc names an aggregate function.
type AggregateFunc int

const (
	AggCount AggregateFunc = iota
	AggSum
	AggMin
	AggMax
	AggAvg
)

func (f AggregateFunc) String() string {
	switch f {
	case AggCount:
		return "COUNT"
	case AggSum:
		return "SUM"
	case AggMin:
		return "MIN"
	case AggMax:
		return "MAX"
	case AggAvg:
		return "AVG"
	default:
		return fmt.Sprintf("Unknown(%d)", f)
	}
}

// AggregateCall is an aggregate function over an argument; a nil argument
// with AggCount is COUNT(*). It cannot be evaluated against a single tuple;
// aggregate plans feed it through an Aggregator instead.
type AggregateCall struct {
	Func AggregateFunc
	Arg  Expression
}

// NewAggregateCall validates the argument type for fn.
func NewAggregateCall(fn AggregateFunc, arg Expression) (*AggregateCall, error) {
	if arg == nil && fn != AggCount {
		return nil, errors.Newf(errors.GroupingError, "%s requires an argument", fn)
	}
	if (fn == AggSum || fn == AggAvg) && !types.IsNumericType(arg.DataType()) {
		return nil, errors.TypeMismatchError("numeric", arg.DataType().Name(), fn.String())
	}
	return &AggregateCall{Func: fn, Arg: arg}, nil
}

func (a *AggregateCall) DataType() types.DataType {
	switch a.Func {
	case AggCount:
		return types.BigInt
	case AggAvg:
		return types.Double
	case AggSum:
		if a.Arg.DataType() == types.Double {
			return types.Double
		}
		return types.BigInt
	default:
		return a.Arg.DataType()
	}
}

func (a *AggregateCall) MaxLength() int {
	if a.Func == AggMin || a.Func == AggMax {
		return a.Arg.MaxLength()
	}
	return 0
}

func (a *AggregateCall) Scale() int                  { return 0 }
func (a *AggregateCall) Nullable() bool              { return a.Func != AggCount }
func (a *AggregateCall) SortOrder() schema.SortOrder { return schema.Ascending }

func (a *AggregateCall) Children() []Expression {
	if a.Arg == nil {
		return nil
	}
	return []Expression{a.Arg}
}

func (a *AggregateCall) Evaluate(_ tuple.Tuple) (types.Value, error) {
	return types.Value{}, errors.Newf(errors.GroupingError, "aggregate %s evaluated outside of an aggregation", a)
}

func (a *AggregateCall) String() string {
	if a.Arg == nil {
		return a.Func.String() + "(*)"
	}
	return fmt.Sprintf("%s(%s)", a.Func, a.Arg)
}

// Aggregator accumulates one aggregate over the rows of one group.
type Aggregator interface {
	Add(t tuple.Tuple) error
	Result() types.Value
}

// NewAggregator returns a fresh accumulator for a.
func (a *AggregateCall) NewAggregator() Aggregator {
	return &aggregator{call: a}
}

type aggregator struct {
	call    *AggregateCall
	count   int64
	sumInt  int64
	sumDbl  float64
	extreme types.Value
	seen    bool
}

func (g *aggregator) Add(t tuple.Tuple) error {
	if g.call.Arg == nil {
		g.count++
		return nil
	}
	v, err := g.call.Arg.Evaluate(t)
	if err != nil {
		return err
	}
	if v.IsNull() {
		return nil
	}
	g.count++

	switch g.call.Func {
	case AggSum, AggAvg:
		if i, err := v.AsInt64(); err == nil && g.call.Arg.DataType() != types.Double {
			sum, ok := addInt64(g.sumInt, i)
			if !ok {
				return errors.NumericOverflowError(g.call.Func.String())
			}
			g.sumInt = sum
		}
		f, err := v.AsDouble()
		if err != nil {
			return err
		}
		g.sumDbl += f
	case AggMin:
		if !g.seen || types.CompareValues(v, g.extreme) < 0 {
			g.extreme = v
		}
	case AggMax:
		if !g.seen || types.CompareValues(v, g.extreme) > 0 {
			g.extreme = v
		}
	}
	g.seen = true
	return nil
}

// Result follows SQL: COUNT of no rows is 0, every other aggregate of no
// non-NULL input is NULL.
func (g *aggregator) Result() types.Value {
	switch g.call.Func {
	case AggCount:
		return types.NewBigIntValue(g.count)
	case AggSum:
		if g.count == 0 {
			return types.NewNullValue()
		}
		if g.call.DataType() == types.Double {
			return types.NewDoubleValue(g.sumDbl)
		}
		return types.NewBigIntValue(g.sumInt)
	case AggAvg:
		if g.count == 0 {
			return types.NewNullValue()
		}
		return types.NewDoubleValue(g.sumDbl / float64(g.count))
	default:
		if !g.seen {
			return types.NewNullValue()
		}
		return g.extreme
	}
}
