package expr

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/runtime"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

func empRef(t *testing.T, kind schema.TableKind) *schema.TableRef {
	t.Helper()
	table, err := schema.NewTable(schema.TableDef{
		Name: "EMP",
		Kind: kind,
		Columns: []*schema.Column{
			{Name: "ID", DataType: types.Integer, PrimaryKey: true},
			{Name: "NAME", DataType: types.Varchar(20), MaxLength: 20, Family: "0", Nullable: true},
			{Name: "SALARY", DataType: types.Double, Family: "0", Nullable: true},
		},
	})
	require.NoError(t, err)
	return schema.NewTableRef("E", table, schema.LatestTimestamp, false)
}

func column(t *testing.T, ref *schema.TableRef, pos int) *ColumnExpression {
	t.Helper()
	cr, err := schema.NewColumnRef(ref, pos)
	require.NoError(t, err)
	return NewColumnExpression(cr)
}

func TestColumnExpressionKinds(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	assert.Equal(t, RowKeyColumn, column(t, ref, 0).Kind)
	assert.Equal(t, KeyValueColumn, column(t, ref, 1).Kind)

	projected := empRef(t, schema.KindSubquery)
	assert.Equal(t, ProjectedColumn, column(t, projected, 0).Kind)
}

func TestColumnExpressionMetadata(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	name := column(t, ref, 1)

	assert.Equal(t, "VARCHAR(20)", name.DataType().Name())
	assert.Equal(t, 20, name.MaxLength())
	assert.True(t, name.Nullable())
	assert.Equal(t, 1, name.Position())
	assert.Equal(t, "E.NAME#1", name.String())

	v, err := name.Evaluate(tuple.New(types.NewIntegerValue(1), types.NewTextValue("ann"), types.NewNullValue()))
	require.NoError(t, err)
	assert.Equal(t, "ann", v.Data)
}

func TestCorrelateFieldAccessReadsCurrentOuterRow(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	rc := runtime.NewContext()
	rc.DefineCorrelateVariable("$cor0", ref)

	access := NewCorrelateFieldAccess(rc, "$cor0", column(t, ref, 0))
	assert.Equal(t, types.Integer, access.DataType())

	inner := tuple.New(types.NewTextValue("ignored"))
	for _, id := range []int32{10, 20} {
		require.NoError(t, rc.SetCorrelateVariableValue("$cor0",
			tuple.New(types.NewIntegerValue(id), types.NewNullValue(), types.NewNullValue())))
		v, err := access.Evaluate(inner)
		require.NoError(t, err)
		assert.Equal(t, id, v.Data)
	}
}

func TestCorrelateFieldAccessUnbound(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	rc := runtime.NewContext()
	rc.DefineCorrelateVariable("$cor0", ref)

	access := NewCorrelateFieldAccess(rc, "$cor0", column(t, ref, 0))
	_, err := access.Evaluate(tuple.New())
	assert.True(t, errors.IsError(err, errors.ObjectNotInPrerequisiteState))
}

func TestComparisonAndLogic(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	salary := column(t, ref, 2)

	gt, err := NewComparison(OpGreater, salary, NewLiteral(types.NewIntegerValue(100)))
	require.NoError(t, err)
	notNull := &IsNull{Operand: salary, Not: true}
	and, err := NewLogical(OpAnd, gt, notNull)
	require.NoError(t, err)

	tests := []struct {
		name   string
		salary types.Value
		want   types.Value
	}{
		{"above", types.NewDoubleValue(150), types.NewBooleanValue(true)},
		{"below", types.NewDoubleValue(50), types.NewBooleanValue(false)},
		{"null", types.NewNullValue(), types.NewBooleanValue(false)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			row := tuple.New(types.NewIntegerValue(1), types.NewNullValue(), tt.salary)
			got, err := and.Evaluate(row)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = NewComparison(OpEqual, column(t, ref, 1), NewLiteral(types.NewIntegerValue(1)))
	assert.True(t, errors.IsError(err, errors.DatatypeMismatch))
	_, err = NewLogical(OpOr, salary)
	assert.Error(t, err)
}

func TestLogicalThreeValued(t *testing.T) {
	null := &Literal{Value: types.NewNullValue(), Type: types.Boolean}
	tru := NewLiteral(types.NewBooleanValue(true))
	fls := NewLiteral(types.NewBooleanValue(false))

	or, err := NewLogical(OpOr, null, tru)
	require.NoError(t, err)
	v, err := or.Evaluate(tuple.New())
	require.NoError(t, err)
	assert.Equal(t, true, v.Data)

	and, err := NewLogical(OpAnd, null, tru)
	require.NoError(t, err)
	v, err = and.Evaluate(tuple.New())
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	and, err = NewLogical(OpAnd, null, fls)
	require.NoError(t, err)
	v, err = and.Evaluate(tuple.New())
	require.NoError(t, err)
	assert.Equal(t, false, v.Data)
}

func TestArithmetic(t *testing.T) {
	a, err := NewArithmetic(OpMultiply, NewLiteral(types.NewIntegerValue(6)), NewLiteral(types.NewIntegerValue(7)))
	require.NoError(t, err)
	assert.Equal(t, types.BigInt, a.DataType())
	v, err := a.Evaluate(tuple.New())
	require.NoError(t, err)
	assert.Equal(t, int64(42), v.Data)

	d, err := NewArithmetic(OpDivide, NewLiteral(types.NewDoubleValue(1)), NewLiteral(types.NewIntegerValue(0)))
	require.NoError(t, err)
	_, err = d.Evaluate(tuple.New())
	assert.True(t, errors.IsError(err, errors.DivisionByZero))

	_, err = NewArithmetic(OpAdd, NewLiteral(types.NewTextValue("x")), NewLiteral(types.NewIntegerValue(1)))
	assert.Error(t, err)
}

func TestArithmeticOverflow(t *testing.T) {
	big := func(i int64) Expression { return NewLiteral(types.NewBigIntValue(i)) }

	tests := []struct {
		name     string
		op       ArithmeticOp
		l, r     int64
		overflow bool
	}{
		{"add", OpAdd, math.MaxInt64, 1, true},
		{"add negative", OpAdd, math.MinInt64, -1, true},
		{"add in range", OpAdd, math.MaxInt64, -1, false},
		{"subtract", OpSubtract, math.MinInt64, 1, true},
		{"subtract negative", OpSubtract, math.MaxInt64, -1, true},
		{"subtract in range", OpSubtract, -1, math.MaxInt64, false},
		{"multiply", OpMultiply, math.MaxInt64/2 + 1, 2, true},
		{"multiply min by -1", OpMultiply, math.MinInt64, -1, true},
		{"multiply in range", OpMultiply, math.MinInt64 / 2, 2, false},
		{"divide min by -1", OpDivide, math.MinInt64, -1, true},
		{"divide in range", OpDivide, math.MinInt64, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewArithmetic(tt.op, big(tt.l), big(tt.r))
			require.NoError(t, err)
			_, err = a.Evaluate(tuple.New())
			if tt.overflow {
				assert.True(t, errors.IsError(err, errors.NumericValueOutOfRange), "got %v", err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSumOverflow(t *testing.T) {
	call, err := NewAggregateCall(AggSum, NewLiteral(types.NewBigIntValue(math.MaxInt64)))
	require.NoError(t, err)
	agg := call.NewAggregator()
	require.NoError(t, agg.Add(tuple.New()))
	err = agg.Add(tuple.New())
	assert.True(t, errors.IsError(err, errors.NumericValueOutOfRange))
}

func TestAggregators(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	salary := column(t, ref, 2)
	rows := []tuple.Tuple{
		tuple.New(types.NewIntegerValue(1), types.NewNullValue(), types.NewDoubleValue(10)),
		tuple.New(types.NewIntegerValue(2), types.NewNullValue(), types.NewNullValue()),
		tuple.New(types.NewIntegerValue(3), types.NewNullValue(), types.NewDoubleValue(30)),
	}

	tests := []struct {
		fn   AggregateFunc
		arg  Expression
		want types.Value
	}{
		{AggCount, nil, types.NewBigIntValue(3)},
		{AggCount, salary, types.NewBigIntValue(2)},
		{AggSum, salary, types.NewDoubleValue(40)},
		{AggSum, column(t, ref, 0), types.NewBigIntValue(6)},
		{AggMin, salary, types.NewDoubleValue(10)},
		{AggMax, column(t, ref, 0), types.NewIntegerValue(3)},
		{AggAvg, salary, types.NewDoubleValue(20)},
	}
	for _, tt := range tests {
		call, err := NewAggregateCall(tt.fn, tt.arg)
		require.NoError(t, err)
		agg := call.NewAggregator()
		for _, r := range rows {
			require.NoError(t, agg.Add(r))
		}
		assert.Equal(t, tt.want, agg.Result(), call.String())
	}

	call, err := NewAggregateCall(AggSum, salary)
	require.NoError(t, err)
	assert.True(t, call.NewAggregator().Result().IsNull())
	_, err = call.Evaluate(rows[0])
	assert.True(t, errors.IsError(err, errors.GroupingError))

	_, err = NewAggregateCall(AggSum, column(t, ref, 1))
	assert.Error(t, err)
}

func TestWalk(t *testing.T) {
	ref := empRef(t, schema.KindTable)
	cmp, err := NewComparison(OpEqual, column(t, ref, 0), NewLiteral(types.NewIntegerValue(1)))
	require.NoError(t, err)

	var columns int
	Walk(cmp, func(e Expression) bool {
		if _, ok := e.(*ColumnExpression); ok {
			columns++
		}
		return true
	})
	assert.Equal(t, 1, columns)
}
