package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/sql/types"
)

func cols(names ...string) []*Column {
	out := make([]*Column, len(names))
	for i, n := range names {
		out[i] = &Column{Name: n, DataType: types.Integer, PrimaryKey: i == 0}
	}
	return out
}

func TestStartingColumnPosition(t *testing.T) {
	viewIndex := int16(3)

	tests := []struct {
		name string
		def  TableDef
		want int
	}{
		{"plain", TableDef{Name: "T", Columns: cols("A", "B")}, 0},
		{"salted", TableDef{Name: "T", BucketNum: 8, Columns: cols("S", "A")}, 1},
		{"multi-tenant", TableDef{Name: "T", MultiTenant: true, Columns: cols("T", "A")}, 1},
		{"view index", TableDef{Name: "T", ViewIndexID: &viewIndex, Columns: cols("V", "A")}, 1},
		{
			"all three",
			TableDef{Name: "T", BucketNum: 2, MultiTenant: true, ViewIndexID: &viewIndex,
				Columns: []*Column{
					{Name: "S", DataType: types.SmallInt, PrimaryKey: true},
					{Name: "T", DataType: types.Text, PrimaryKey: true},
					{Name: "V", DataType: types.SmallInt, PrimaryKey: true},
					{Name: "A", DataType: types.Integer},
				}},
			3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table, err := NewTable(tt.def)
			require.NoError(t, err)
			assert.Equal(t, tt.want, StartingColumnPosition(table))
			assert.Len(t, table.VisibleColumns(), len(tt.def.Columns)-tt.want)
		})
	}
}

func TestNewTable(t *testing.T) {
	table, err := NewTable(TableDef{SchemaName: "public", Name: "T", Columns: cols("A", "B", "C")})
	require.NoError(t, err)

	for i, c := range table.Columns {
		assert.Equal(t, i, c.Position)
	}
	assert.Equal(t, "public.T", table.FullName())
	assert.Len(t, table.PKColumns(), 1)

	c, err := table.ColumnByName("B")
	require.NoError(t, err)
	assert.Equal(t, 1, c.Position)

	_, err = table.ColumnByName("Z")
	assert.True(t, errors.IsError(err, errors.UndefinedColumn))

	_, err = table.Column(3)
	assert.True(t, errors.IsError(err, errors.InvalidColumnReference))

	t.Run("source columns are copied", func(t *testing.T) {
		src := cols("A")
		table, err := NewTable(TableDef{Name: "T", Columns: src})
		require.NoError(t, err)
		src[0].Name = "CHANGED"
		assert.Equal(t, "A", table.Columns[0].Name)
	})

	t.Run("duplicate column", func(t *testing.T) {
		_, err := NewTable(TableDef{Name: "T", Columns: cols("A", "A")})
		assert.True(t, errors.IsError(err, errors.DuplicateColumn))
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := NewTable(TableDef{Name: "T", Columns: []*Column{{Name: "A"}}})
		assert.True(t, errors.IsError(err, errors.InvalidTableDefinition))
	})

	t.Run("hidden column must be key", func(t *testing.T) {
		_, err := NewTable(TableDef{Name: "T", BucketNum: 4, Columns: []*Column{
			{Name: "S", DataType: types.SmallInt},
			{Name: "A", DataType: types.Integer},
		}})
		assert.True(t, errors.IsError(err, errors.InvalidTableDefinition))
	})

	t.Run("too few columns for hidden layout", func(t *testing.T) {
		_, err := NewTable(TableDef{Name: "T", BucketNum: 4, MultiTenant: true, Columns: cols("S")})
		assert.True(t, errors.IsError(err, errors.InvalidTableDefinition))
	})
}

func TestSyntheticTables(t *testing.T) {
	a, err := NewSyntheticTable(KindSubquery, cols("$1", "$2"))
	require.NoError(t, err)
	b, err := NewSyntheticTable(KindSubquery, cols("$1", "$2"))
	require.NoError(t, err)

	assert.Empty(t, a.Name)
	assert.Equal(t, MinTableTimestamp, a.Timestamp)
	assert.Empty(t, a.DefaultFamily)
	assert.Empty(t, a.Indexes)
	assert.True(t, a.SameShape(b))
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "<subquery>($1 INTEGER, $2 INTEGER)", a.String())

	c, err := NewSyntheticTable(KindProjected, cols("$1", "$2"))
	require.NoError(t, err)
	assert.False(t, a.SameShape(c), "kinds differ")
}

func TestRefs(t *testing.T) {
	table, err := NewTable(TableDef{Name: "T", Columns: cols("A", "B")})
	require.NoError(t, err)

	ref := NewTableRef("x", table, LatestTimestamp, false)
	assert.Equal(t, "x", ref.Name())
	assert.Equal(t, LatestTimestamp, ref.UpperBoundTimestamp)
	assert.Equal(t, "T(A INTEGER, B INTEGER) AS x", ref.String())

	cr, err := NewColumnRef(ref, 1)
	require.NoError(t, err)
	assert.Equal(t, "B", cr.Column().Name)
	assert.Equal(t, "x.B", cr.String())

	_, err = NewColumnRef(ref, 2)
	assert.True(t, errors.IsError(err, errors.InvalidColumnReference))
	_, err = NewColumnRef(ref, -1)
	assert.Error(t, err)

	assert.Equal(t, "T", NewTableRef("", table, 0, false).Name())
}
