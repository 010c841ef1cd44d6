package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

func TestMemoryCatalogCreateTable(t *testing.T) {
	cat := NewMemoryCatalog()

	table, err := cat.CreateTable(&TableSchema{
		TableName: "users",
		Columns: []ColumnDef{
			{Name: "id", TypeName: "INTEGER", PrimaryKey: true, Nullable: true},
			{Name: "name", TypeName: "VARCHAR(50)", Nullable: true},
			{Name: "score", DataType: types.Double, Family: "stats"},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "public", table.SchemaName)
	assert.Equal(t, schema.KindTable, table.Kind)
	require.Len(t, table.Columns, 3)

	id := table.Columns[0]
	assert.True(t, id.PrimaryKey)
	assert.False(t, id.Nullable, "key columns are never nullable")
	assert.Empty(t, id.Family)

	name := table.Columns[1]
	assert.Equal(t, DefaultFamily, name.Family)
	assert.Equal(t, 50, name.MaxLength)
	assert.Equal(t, "stats", table.Columns[2].Family)

	_, err = cat.CreateTable(&TableSchema{TableName: "USERS", Columns: []ColumnDef{{Name: "a", TypeName: "INT"}}})
	assert.True(t, errors.IsError(err, errors.DuplicateTable))
}

func TestMemoryCatalogHiddenColumns(t *testing.T) {
	viewIndex := int16(1)

	tests := []struct {
		name  string
		def   TableSchema
		names []string
		start int
	}{
		{
			name: "salted",
			def: TableSchema{TableName: "s", SaltBuckets: 4, Columns: []ColumnDef{
				{Name: "k", TypeName: "BIGINT", PrimaryKey: true},
			}},
			names: []string{schema.SaltColumnName, "k"},
			start: 1,
		},
		{
			name: "view index",
			def: TableSchema{TableName: "v", ViewIndexID: &viewIndex, Columns: []ColumnDef{
				{Name: "k", TypeName: "INT", PrimaryKey: true},
			}},
			names: []string{schema.ViewIndexIDColumnName, "k"},
			start: 1,
		},
		{
			name: "salted multi-tenant view index",
			def: TableSchema{TableName: "m", SaltBuckets: 2, MultiTenant: true, ViewIndexID: &viewIndex,
				Columns: []ColumnDef{
					{Name: "tenant", TypeName: "TEXT", PrimaryKey: true},
					{Name: "k", TypeName: "INT", PrimaryKey: true},
					{Name: "v", TypeName: "TEXT"},
				}},
			names: []string{schema.SaltColumnName, "tenant", schema.ViewIndexIDColumnName, "k", "v"},
			start: 3,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cat := NewMemoryCatalog()
			table, err := cat.CreateTable(&tt.def)
			require.NoError(t, err)

			var names []string
			for _, c := range table.Columns {
				names = append(names, c.Name)
			}
			assert.Equal(t, tt.names, names)
			assert.Equal(t, tt.start, schema.StartingColumnPosition(table))
		})
	}

	t.Run("tenant column must be a key", func(t *testing.T) {
		cat := NewMemoryCatalog()
		_, err := cat.CreateTable(&TableSchema{TableName: "bad", MultiTenant: true, Columns: []ColumnDef{
			{Name: "tenant", TypeName: "TEXT"},
		}})
		assert.True(t, errors.IsError(err, errors.InvalidTableDefinition))
	})
}

func TestMemoryCatalogLookup(t *testing.T) {
	cat := NewMemoryCatalog()
	for _, name := range []string{"b", "a"} {
		_, err := cat.CreateTable(&TableSchema{TableName: name, Columns: []ColumnDef{
			{Name: "id", TypeName: "INT", PrimaryKey: true},
		}})
		require.NoError(t, err)
	}
	_, err := cat.CreateTable(&TableSchema{SchemaName: "other", TableName: "c", Columns: []ColumnDef{
		{Name: "id", TypeName: "INT", PrimaryKey: true},
	}})
	require.NoError(t, err)

	tables, err := cat.ListTables("")
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "a", tables[0].Name)
	assert.Equal(t, "b", tables[1].Name)

	ref, err := cat.Resolve("", "A", "x")
	require.NoError(t, err)
	assert.Equal(t, "x", ref.Alias)
	assert.Equal(t, schema.LatestTimestamp, ref.UpperBoundTimestamp)

	ref, err = cat.Resolve("other", "c", "")
	require.NoError(t, err)
	assert.Equal(t, "c", ref.Alias)

	_, err = cat.Resolve("", "missing", "")
	assert.True(t, errors.IsError(err, errors.UndefinedTable))

	require.NoError(t, cat.DropTable("", "a"))
	assert.Error(t, cat.DropTable("", "a"))
	_, err = cat.GetTable("", "a")
	assert.Error(t, err)
}

func TestParseType(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"int", "INTEGER"},
		{"BIGINT", "BIGINT"},
		{"smallint", "SMALLINT"},
		{"bool", "BOOLEAN"},
		{"double", "DOUBLE PRECISION"},
		{"text", "TEXT"},
		{"timestamp", "TIMESTAMP"},
		{" varchar(12) ", "VARCHAR(12)"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			dt, err := ParseType(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, dt.Name())
		})
	}

	for _, bad := range []string{"", "blob", "varchar(0)"} {
		_, err := ParseType(bad)
		assert.True(t, errors.IsError(err, errors.UndefinedObject), bad)
	}
}
