package projector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/kvschema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
	"github.com/dshills/cfplan/internal/testutil"
)

func empColumns(t *testing.T) (*schema.TableRef, []expr.Expression) {
	t.Helper()

	ref := testutil.Resolve(t, testutil.NewCatalog(t), testutil.EmpTable, "e")
	exprs := make([]expr.Expression, len(ref.Table.Columns))
	for i := range ref.Table.Columns {
		cr, err := schema.NewColumnRef(ref, i)
		require.NoError(t, err)
		exprs[i] = expr.NewColumnExpression(cr)
	}
	return ref, exprs
}

func TestRowProjector(t *testing.T) {
	ref, exprs := empColumns(t)

	cols := make([]ColumnProjector, len(exprs))
	for i, e := range exprs {
		cols[i] = NewExpressionProjector(ref.Table.Columns[i].Name, ref.Table.Name, e, i == 3)
	}
	rp := NewRowProjector(cols, 0, false)

	assert.Equal(t, 4, rp.ColumnCount())
	assert.Equal(t, 0, rp.EstimatedByteSize())
	assert.False(t, rp.IsAggregate())
	assert.Equal(t, "NAME", rp.Column(1).Name())
	assert.Equal(t, "EMP", rp.Column(1).TableName())
	assert.Same(t, exprs[2], rp.Column(2).Expression())

	t.Run("column index", func(t *testing.T) {
		i, err := rp.ColumnIndex("name")
		require.NoError(t, err)
		assert.Equal(t, 1, i)

		i, err = rp.ColumnIndex("SALARY")
		require.NoError(t, err)
		assert.Equal(t, 3, i)

		_, err = rp.ColumnIndex("salary")
		assert.True(t, errors.IsError(err, errors.UndefinedColumn), "SALARY is case sensitive")
	})

	t.Run("project", func(t *testing.T) {
		row := testutil.EmpRows()[2]
		values, err := rp.Project(tuple.New(row...))
		require.NoError(t, err)
		assert.Equal(t, row, values)

		_, err = rp.Project(tuple.New(row[:2]...))
		assert.Error(t, err)
	})

	assert.True(t, strings.HasPrefix(rp.String(), "[EMP.ID := e.ID#0, "), rp.String())
}

func TestTupleProjector(t *testing.T) {
	_, exprs := empColumns(t)

	doubled, err := expr.NewArithmetic(expr.OpMultiply, exprs[0], expr.NewLiteral(types.NewIntegerValue(2)))
	require.NoError(t, err)
	projected := []expr.Expression{exprs[1], doubled, exprs[3]}

	b := kvschema.NewBuilder()
	for _, e := range projected {
		b.AddField(e)
	}
	tp, err := NewTupleProjector(b.Build(), projected)
	require.NoError(t, err)
	assert.Len(t, tp.Expressions(), 3)
	assert.Equal(t, 3, tp.Schema().FieldCount())

	rows := testutil.EmpRows()
	tests := []struct {
		row  []types.Value
		want []types.Value
	}{
		{rows[0], []types.Value{types.NewTextValue("alice"), types.NewBigIntValue(2), types.NewDoubleValue(100)}},
		{rows[2], []types.Value{types.NewTextValue("carol"), types.NewBigIntValue(6), types.NewNullValue()}},
	}
	for _, tt := range tests {
		out, err := tp.ProjectResults(tuple.New(tt.row...))
		require.NoError(t, err)
		assert.Equal(t, 3, out.Size())
		assert.NotEmpty(t, out.Bytes())

		for i, want := range tt.want {
			got, err := out.Value(i)
			require.NoError(t, err)
			assert.Equal(t, want, got, "field %d", i)
		}
		_, err = out.Value(3)
		assert.Error(t, err)

		// The packed bytes alone are enough to read the row back.
		again := NewProjectedTuple(tp.Schema(), out.Bytes())
		v, err := again.Value(0)
		require.NoError(t, err)
		assert.Equal(t, tt.want[0], v)
	}

	t.Run("mismatched schema", func(t *testing.T) {
		_, err := NewTupleProjector(kvschema.NewBuilder().Build(), projected)
		assert.Error(t, err)
	})

	t.Run("evaluation error", func(t *testing.T) {
		_, err := tp.ProjectResults(tuple.New())
		assert.Error(t, err)
	})
}

func TestForProjectedTable(t *testing.T) {
	ref, _ := empColumns(t)

	var cols []*schema.Column
	for _, pos := range []int{3, 1} {
		cr, err := schema.NewColumnRef(ref, pos)
		require.NoError(t, err)
		col := *cr.Column()
		col.Source = &cr
		cols = append(cols, &col)
	}
	table, err := schema.NewSyntheticTable(schema.KindProjected, cols)
	require.NoError(t, err)

	tp, err := ForProjectedTable(table)
	require.NoError(t, err)

	out, err := tp.ProjectResults(tuple.New(testutil.EmpRows()[1]...))
	require.NoError(t, err)
	v0, err := out.Value(0)
	require.NoError(t, err)
	v1, err := out.Value(1)
	require.NoError(t, err)
	assert.Equal(t, types.NewDoubleValue(80), v0)
	assert.Equal(t, types.NewTextValue("bob"), v1)

	cols[0].Source = nil
	table, err = schema.NewSyntheticTable(schema.KindProjected, cols)
	require.NoError(t, err)
	_, err = ForProjectedTable(table)
	assert.True(t, errors.IsError(err, errors.InvalidTableDefinition))
}
