package schema

import (
	"fmt"

	"github.com/dshills/cfplan/internal/errors"
)

// TableRef binds a table to the alias it has in a query and the snapshot
// it is read at.
type TableRef struct {
	Alias               string
	Table               *Table
	LowerBoundTimestamp int64
	UpperBoundTimestamp int64
	HasDynamicCols      bool
}

// NewTableRef creates a reference reading table at timestamp.
func NewTableRef(alias string, table *Table, timestamp int64, hasDynamicCols bool) *TableRef {
	return &TableRef{
		Alias:               alias,
		Table:               table,
		LowerBoundTimestamp: MinTableTimestamp,
		UpperBoundTimestamp: timestamp,
		HasDynamicCols:      hasDynamicCols,
	}
}

// Name returns the alias, falling back to the table name.
func (r *TableRef) Name() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.Table.Name
}

func (r *TableRef) String() string {
	if r.Alias != "" && r.Alias != r.Table.Name {
		return fmt.Sprintf("%s AS %s", r.Table.String(), r.Alias)
	}
	return r.Table.String()
}

// ColumnRef identifies one physical column of a referenced table.
type ColumnRef struct {
	TableRef *TableRef
	Position int
}

// NewColumnRef validates pos against the referenced table.
func NewColumnRef(ref *TableRef, pos int) (ColumnRef, error) {
	if pos < 0 || pos >= len(ref.Table.Columns) {
		return ColumnRef{}, errors.ColumnIndexOutOfRangeError(ref.Name(), pos, pos, len(ref.Table.Columns))
	}
	return ColumnRef{TableRef: ref, Position: pos}, nil
}

// Column returns the referenced column.
func (c ColumnRef) Column() *Column {
	return c.TableRef.Table.Columns[c.Position]
}

func (c ColumnRef) String() string {
	return c.TableRef.Name() + "." + c.Column().Name
}
