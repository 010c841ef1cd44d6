package catalog

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

const defaultSchemaName = "public"

// MemoryCatalog is an in-memory implementation of the Catalog interface.
type MemoryCatalog struct {
	mu     sync.RWMutex
	tables map[string]*schema.Table // "schema.table" -> Table
}

// NewMemoryCatalog creates a new in-memory catalog.
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{
		tables: make(map[string]*schema.Table),
	}
}

func tableKey(schemaName, tableName string) string {
	if schemaName == "" {
		schemaName = defaultSchemaName
	}
	return strings.ToLower(schemaName + "." + tableName)
}

// CreateTable creates a new table. Salted tables get a leading salt column
// and view index tables a view index id column; multi-tenant tables must
// declare their tenant id as the first column.
func (c *MemoryCatalog) CreateTable(def *TableSchema) (*schema.Table, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tableKey(def.SchemaName, def.TableName)
	if _, exists := c.tables[key]; exists {
		return nil, errors.DuplicateTableError(def.TableName)
	}

	family := def.DefaultFamily
	if family == "" {
		family = DefaultFamily
	}

	var columns []*schema.Column
	if def.SaltBuckets > 0 {
		columns = append(columns, &schema.Column{
			Name:       schema.SaltColumnName,
			DataType:   types.SmallInt,
			PrimaryKey: true,
		})
	}

	if def.MultiTenant && (len(def.Columns) == 0 || !def.Columns[0].PrimaryKey) {
		return nil, errors.SchemaInconsistencyError(def.TableName,
			"multi-tenant table must declare its tenant id as the first primary key column")
	}

	viewIndexColumn := &schema.Column{
		Name:       schema.ViewIndexIDColumnName,
		DataType:   types.SmallInt,
		PrimaryKey: true,
	}
	if def.ViewIndexID != nil && !def.MultiTenant {
		columns = append(columns, viewIndexColumn)
	}

	for i, cd := range def.Columns {
		col, err := newColumn(cd, family)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)

		// The view index id follows the tenant id.
		if i == 0 && def.ViewIndexID != nil && def.MultiTenant {
			columns = append(columns, viewIndexColumn)
		}
	}

	table, err := schema.NewTable(schema.TableDef{
		SchemaName:    orDefault(def.SchemaName),
		Name:          def.TableName,
		Kind:          schema.KindTable,
		Columns:       columns,
		BucketNum:     def.SaltBuckets,
		MultiTenant:   def.MultiTenant,
		ViewIndexID:   def.ViewIndexID,
		DefaultFamily: family,
		Timestamp:     schema.MinTableTimestamp,
	})
	if err != nil {
		return nil, err
	}

	c.tables[key] = table
	return table, nil
}

func newColumn(cd ColumnDef, family string) (*schema.Column, error) {
	dt := cd.DataType
	if dt == nil {
		var err error
		if dt, err = ParseType(cd.TypeName); err != nil {
			return nil, err
		}
	}

	col := &schema.Column{
		Name:       cd.Name,
		DataType:   dt,
		MaxLength:  types.MaxLengthOf(dt),
		Scale:      cd.Scale,
		Nullable:   cd.Nullable && !cd.PrimaryKey,
		PrimaryKey: cd.PrimaryKey,
	}
	if cd.Descending {
		col.SortOrder = schema.Descending
	}
	if !cd.PrimaryKey {
		col.Family = family
		if cd.Family != "" {
			col.Family = cd.Family
		}
	}
	return col, nil
}

func orDefault(schemaName string) string {
	if schemaName == "" {
		return defaultSchemaName
	}
	return schemaName
}

// GetTable retrieves a table by name.
func (c *MemoryCatalog) GetTable(schemaName, tableName string) (*schema.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	table, exists := c.tables[tableKey(schemaName, tableName)]
	if !exists {
		return nil, errors.UndefinedTableError(tableName)
	}
	return table, nil
}

// DropTable removes a table.
func (c *MemoryCatalog) DropTable(schemaName, tableName string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := tableKey(schemaName, tableName)
	if _, exists := c.tables[key]; !exists {
		return errors.UndefinedTableError(tableName)
	}
	delete(c.tables, key)
	return nil
}

// ListTables returns the tables of a schema ordered by name.
func (c *MemoryCatalog) ListTables(schemaName string) ([]*schema.Table, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	prefix := strings.ToLower(orDefault(schemaName)) + "."
	var tables []*schema.Table
	for key, t := range c.tables {
		if strings.HasPrefix(key, prefix) {
			tables = append(tables, t)
		}
	}
	sort.Slice(tables, func(i, j int) bool { return tables[i].Name < tables[j].Name })
	return tables, nil
}

// Resolve returns a reference to a table under alias.
func (c *MemoryCatalog) Resolve(schemaName, tableName, alias string) (*schema.TableRef, error) {
	table, err := c.GetTable(schemaName, tableName)
	if err != nil {
		return nil, err
	}
	if alias == "" {
		alias = table.Name
	}
	return schema.NewTableRef(alias, table, schema.LatestTimestamp, false), nil
}

// ParseType maps a SQL type name such as "INTEGER" or "VARCHAR(20)" to a
// data type.
func ParseType(name string) (types.DataType, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	switch upper {
	case "SMALLINT":
		return types.SmallInt, nil
	case "INT", "INTEGER":
		return types.Integer, nil
	case "BIGINT":
		return types.BigInt, nil
	case "BOOLEAN", "BOOL":
		return types.Boolean, nil
	case "DOUBLE", "DOUBLE PRECISION":
		return types.Double, nil
	case "TEXT":
		return types.Text, nil
	case "TIMESTAMP":
		return types.Timestamp, nil
	}

	var n int
	if _, err := fmt.Sscanf(upper, "VARCHAR(%d)", &n); err == nil && n > 0 {
		return types.Varchar(n), nil
	}
	return nil, errors.Newf(errors.UndefinedObject, "type \"%s\" does not exist", name)
}
