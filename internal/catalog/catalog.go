// Package catalog holds table definitions. The plan builder only reads
// from it to resolve the tables named by scan operators.
package catalog

import (
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

// DefaultFamily is the column family of non key columns when a table does
// not name one.
const DefaultFamily = "0"

// Catalog manages table metadata.
type Catalog interface {
	CreateTable(def *TableSchema) (*schema.Table, error)
	GetTable(schemaName, tableName string) (*schema.Table, error)
	DropTable(schemaName, tableName string) error
	ListTables(schemaName string) ([]*schema.Table, error)

	// Resolve returns a reference to a table under alias, reading the
	// latest snapshot.
	Resolve(schemaName, tableName, alias string) (*schema.TableRef, error)
}

// TableSchema defines the structure for creating a new table.
type TableSchema struct {
	SchemaName    string      `yaml:"schema"`
	TableName     string      `yaml:"name"`
	Columns       []ColumnDef `yaml:"columns"`
	SaltBuckets   int         `yaml:"salt_buckets"`
	MultiTenant   bool        `yaml:"multi_tenant"`
	ViewIndexID   *int16      `yaml:"view_index_id"`
	DefaultFamily string      `yaml:"default_family"`
}

// ColumnDef defines a column in a table.
type ColumnDef struct {
	Name       string         `yaml:"name"`
	DataType   types.DataType `yaml:"-"`
	TypeName   string         `yaml:"type"`
	Nullable   bool           `yaml:"nullable"`
	PrimaryKey bool           `yaml:"primary_key"`
	Family     string         `yaml:"family"`
	Descending bool           `yaml:"descending"`
	Scale      int            `yaml:"scale"`
}
