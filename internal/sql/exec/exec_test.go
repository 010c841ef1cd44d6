package exec

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/catalog"
	"github.com/dshills/cfplan/internal/config"
	"github.com/dshills/cfplan/internal/engine"
	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/runtime"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
	"github.com/dshills/cfplan/internal/testutil"
)

func newStore() *KVStore {
	return NewKVStore(engine.NewMemoryEngine(), config.DefaultConfig().Tuple)
}

func scanAll(t *testing.T, s Store, table *schema.Table) [][]types.Value {
	t.Helper()

	it, err := s.Scan(context.Background(), table)
	require.NoError(t, err)
	rows, err := Drain(it)
	require.NoError(t, err)

	out := make([][]types.Value, len(rows))
	for i, r := range rows {
		vt, err := tuple.Materialize(r)
		require.NoError(t, err)
		out[i] = vt.Values()
	}
	return out
}

func TestKVStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewCatalog(t)
	s := newStore()

	emp, err := cat.GetTable("", testutil.EmpTable)
	require.NoError(t, err)
	rows := testutil.EmpRows()
	// insert out of order; scans come back in key order
	for _, i := range []int{2, 0, 3, 1} {
		require.NoError(t, s.Insert(ctx, emp, rows[i]))
	}
	assert.Equal(t, rows, scanAll(t, s, emp))

	dept, err := cat.GetTable("", testutil.DeptTable)
	require.NoError(t, err)
	assert.Empty(t, scanAll(t, s, dept), "tables do not see each other's rows")
}

func TestKVStoreHiddenColumns(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewCatalog(t)
	s := newStore()

	t.Run("salt is computed", func(t *testing.T) {
		events, err := cat.GetTable("", testutil.SaltedTable)
		require.NoError(t, err)

		for i := int64(0); i < 20; i++ {
			row := []types.Value{types.NewNullValue(), types.NewBigIntValue(i), types.NewTextValue("k")}
			require.NoError(t, s.Insert(ctx, events, row))
		}

		got := scanAll(t, s, events)
		require.Len(t, got, 20)
		seen := map[int64]bool{}
		for _, row := range got {
			salt := row[0].Data.(int16)
			assert.True(t, salt >= 0 && salt < 4)
			seen[row[1].Data.(int64)] = true
		}
		assert.Len(t, seen, 20)
	})

	t.Run("view index id is filled in", func(t *testing.T) {
		docs, err := cat.GetTable("", testutil.TenantTable)
		require.NoError(t, err)

		row := []types.Value{
			types.NewTextValue("acme"), types.NewNullValue(), types.NewIntegerValue(1), types.NewNullValue(),
		}
		require.NoError(t, s.Insert(ctx, docs, row))
		assert.True(t, row[1].IsNull(), "caller's slice is not modified")

		got := scanAll(t, s, docs)
		require.Len(t, got, 1)
		assert.Equal(t, types.NewValue(testutil.TenantViewIndexID), got[0][1])
		assert.Equal(t, types.NewTextValue("acme"), got[0][0])
	})
}

func TestKVStoreFamilies(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemoryCatalog()
	table, err := cat.CreateTable(&catalog.TableSchema{
		TableName: "wide",
		Columns: []catalog.ColumnDef{
			{Name: "k", TypeName: "TEXT", PrimaryKey: true, Descending: true},
			{Name: "a", TypeName: "INT", Nullable: true, Family: "f1"},
			{Name: "b", TypeName: "TEXT", Nullable: true, Family: "f2"},
			{Name: "c", TypeName: "DOUBLE", Nullable: true, Family: "f1"},
		},
	})
	require.NoError(t, err)

	s := newStore()
	for _, k := range []string{"a", "c", "b"} {
		require.NoError(t, s.Insert(ctx, table, []types.Value{
			types.NewTextValue(k), types.NewIntegerValue(1), types.NewNullValue(), types.NewDoubleValue(2),
		}))
	}

	got := scanAll(t, s, table)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0][0].Data, "descending key")
	assert.Equal(t, "a", got[2][0].Data)
	assert.Equal(t, []types.Value{
		types.NewTextValue("c"), types.NewIntegerValue(1), types.NewNullValue(), types.NewDoubleValue(2),
	}, got[0])
}

func TestKVStoreKeyOnlyTable(t *testing.T) {
	ctx := context.Background()
	cat := catalog.NewMemoryCatalog()
	table, err := cat.CreateTable(&catalog.TableSchema{
		TableName: "keys",
		Columns:   []catalog.ColumnDef{{Name: "k", TypeName: "BIGINT", PrimaryKey: true}},
	})
	require.NoError(t, err)

	s := newStore()
	for _, k := range []int64{5, -3, 0} {
		require.NoError(t, s.Insert(ctx, table, []types.Value{types.NewBigIntValue(k)}))
	}
	assert.Equal(t, [][]types.Value{
		{types.NewBigIntValue(-3)}, {types.NewBigIntValue(0)}, {types.NewBigIntValue(5)},
	}, scanAll(t, s, table))
}

func TestKVStoreInsertErrors(t *testing.T) {
	ctx := context.Background()
	cat := testutil.NewCatalog(t)
	emp, err := cat.GetTable("", testutil.EmpTable)
	require.NoError(t, err)
	s := newStore()

	tests := []struct {
		name string
		row  []types.Value
		code string
	}{
		{"too few values", []types.Value{types.NewIntegerValue(1)}, errors.DataException},
		{
			"wrong type",
			[]types.Value{types.NewTextValue("x"), types.NewTextValue("a"), types.NewIntegerValue(1), types.NewNullValue()},
			errors.DatatypeMismatch,
		},
		{
			"null key",
			[]types.Value{types.NewNullValue(), types.NewTextValue("a"), types.NewIntegerValue(1), types.NewNullValue()},
			errors.DataException,
		},
		{
			"null in not null column",
			[]types.Value{types.NewIntegerValue(1), types.NewNullValue(), types.NewIntegerValue(1), types.NewNullValue()},
			errors.DataException,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.Insert(ctx, emp, tt.row)
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetError(err).Code)
		})
	}
}

func TestRowKeyOrdering(t *testing.T) {
	tests := []struct {
		name   string
		dt     types.DataType
		values []types.Value
	}{
		{"smallint", types.SmallInt, []types.Value{types.NewValue(int16(-300)), types.NewValue(int16(-1)), types.NewValue(int16(0)), types.NewValue(int16(7))}},
		{"integer", types.Integer, []types.Value{types.NewIntegerValue(math.MinInt32), types.NewIntegerValue(-1), types.NewIntegerValue(0), types.NewIntegerValue(math.MaxInt32)}},
		{"double", types.Double, []types.Value{types.NewDoubleValue(-10.5), types.NewDoubleValue(-0.25), types.NewDoubleValue(0), types.NewDoubleValue(3.75)}},
		{"text", types.Text, []types.Value{types.NewTextValue(""), types.NewTextValue("a"), types.NewTextValue("a\x00b"), types.NewTextValue("ab")}},
		{"boolean", types.Boolean, []types.Value{types.NewValue(false), types.NewValue(true)}},
		{"timestamp", types.Timestamp, []types.Value{
			types.NewTimestampValue(time.Unix(-100, 0)),
			types.NewTimestampValue(time.Unix(0, 0)),
			types.NewTimestampValue(time.Unix(1700000000, 5)),
		}},
	}
	for _, tt := range tests {
		for _, order := range []schema.SortOrder{schema.Ascending, schema.Descending} {
			t.Run(tt.name+" "+order.String(), func(t *testing.T) {
				col := &schema.Column{Name: "k", DataType: tt.dt, SortOrder: order}

				var prev []byte
				for i, v := range tt.values {
					key, err := appendKeyValue(nil, col, v)
					require.NoError(t, err)

					got, rest, err := decodeKeyValue(append(key, 'x'), col)
					require.NoError(t, err)
					assert.True(t, v.Equal(got), "%v != %v", v, got)
					assert.Equal(t, []byte{'x'}, rest)

					if i > 0 {
						cmp := string(prev) < string(key)
						assert.Equal(t, order == schema.Ascending, cmp, "order of %v", v)
					}
					prev = key
				}
			})
		}
	}

	_, _, err := decodeKeyValue([]byte{0x01}, &schema.Column{Name: "k", DataType: types.BigInt})
	assert.True(t, errors.IsError(err, errors.DataCorrupted))
}

func TestContextAndIterators(t *testing.T) {
	rc := runtime.NewContext()
	s := newStore()
	ec := NewContext(s, rc)
	assert.Same(t, rc, ec.Runtime)
	assert.NotNil(t, ec.Logger)

	it := NewSliceIterator([]tuple.Tuple{tuple.New(types.NewIntegerValue(1)), tuple.New(types.NewIntegerValue(2))})
	rows, err := Drain(it)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	row, err := it.Next()
	require.NoError(t, err)
	assert.Nil(t, row)
}
