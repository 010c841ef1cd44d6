// Package schema describes tables as the plan builder sees them: ordered
// physical columns, the hidden leading columns that precede the visible
// ones, and the aliased references that bind a table to a query.
package schema

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/sql/types"
)

const (
	// MinTableTimestamp is the timestamp of tables that have no persistent
	// history, which is every synthetic table.
	MinTableTimestamp int64 = 0
	// LatestTimestamp reads the newest version of every cell.
	LatestTimestamp int64 = math.MaxInt64

	// SaltColumnName names the leading salt byte column of salted tables.
	SaltColumnName = "_SALT"
	// ViewIndexIDColumnName names the leading view index id column.
	ViewIndexIDColumnName = "_INDEX_ID"
)

// TableKind tags how a table came to exist.
type TableKind int

const (
	// KindTable is an ordinary catalog table.
	KindTable TableKind = iota
	// KindView is a catalog view.
	KindView
	// KindIndex is a secondary index table.
	KindIndex
	// KindProjected is derived from one source table by column selection.
	KindProjected
	// KindSubquery holds computed rows produced inside a plan.
	KindSubquery
	// KindJoin concatenates the columns of two projected tables.
	KindJoin
)

func (k TableKind) String() string {
	switch k {
	case KindTable:
		return "TABLE"
	case KindView:
		return "VIEW"
	case KindIndex:
		return "INDEX"
	case KindProjected:
		return "PROJECTED"
	case KindSubquery:
		return "SUBQUERY"
	case KindJoin:
		return "JOIN"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// IsSynthetic reports whether tables of this kind are built during plan
// construction rather than read from the catalog.
func (k TableKind) IsSynthetic() bool {
	return k == KindProjected || k == KindSubquery || k == KindJoin
}

// Table represents a table with its metadata.
type Table struct {
	// ID identifies the table instance. Synthetic tables get a fresh
	// random ID so structurally equal tables remain distinguishable.
	ID         uuid.UUID
	SchemaName string
	Name       string
	Kind       TableKind
	Columns    []*Column

	// BucketNum is the number of salt buckets, 0 when unsalted.
	BucketNum   int
	MultiTenant bool
	ViewIndexID *int16

	DefaultFamily string
	Timestamp     int64
	CreatedAt     time.Time
	Indexes       []string

	byName map[string]int
}

// TableDef carries the fields of a table about to be created.
type TableDef struct {
	SchemaName    string
	Name          string
	Kind          TableKind
	Columns       []*Column
	BucketNum     int
	MultiTenant   bool
	ViewIndexID   *int16
	DefaultFamily string
	Timestamp     int64
	Indexes       []string
}

// NewTable builds a table from def. Column positions are assigned from the
// slice order, names must be unique and the hidden leading columns implied
// by salting, multi-tenancy and view indexes must be primary key columns.
func NewTable(def TableDef) (*Table, error) {
	t := &Table{
		ID:            uuid.New(),
		SchemaName:    def.SchemaName,
		Name:          def.Name,
		Kind:          def.Kind,
		BucketNum:     def.BucketNum,
		MultiTenant:   def.MultiTenant,
		ViewIndexID:   def.ViewIndexID,
		DefaultFamily: def.DefaultFamily,
		Timestamp:     def.Timestamp,
		CreatedAt:     time.Now(),
		Indexes:       def.Indexes,
		Columns:       make([]*Column, len(def.Columns)),
		byName:        make(map[string]int, len(def.Columns)),
	}

	for i, c := range def.Columns {
		col := *c
		col.Position = i
		if _, dup := t.byName[col.Name]; dup {
			return nil, errors.DuplicateColumnError(col.Name, def.Name)
		}
		if col.DataType == nil {
			return nil, errors.SchemaInconsistencyError(def.Name, "column %q has no data type", col.Name)
		}
		t.byName[col.Name] = i
		t.Columns[i] = &col
	}

	start := StartingColumnPosition(t)
	if start > len(t.Columns) {
		return nil, errors.SchemaInconsistencyError(def.Name,
			"table needs %d hidden leading columns but has %d columns", start, len(t.Columns))
	}
	if !def.Kind.IsSynthetic() {
		for i := 0; i < start; i++ {
			if !t.Columns[i].PrimaryKey {
				return nil, errors.SchemaInconsistencyError(def.Name,
					"hidden leading column %q must be part of the primary key", t.Columns[i].Name)
			}
		}
	}

	return t, nil
}

// NewSyntheticTable builds an unnamed table that describes the shape of a
// derived row: no persistent identity, the minimum table timestamp, no
// column family and no indexes.
func NewSyntheticTable(kind TableKind, columns []*Column) (*Table, error) {
	return NewTable(TableDef{
		Kind:      kind,
		Columns:   columns,
		Timestamp: MinTableTimestamp,
	})
}

// StartingColumnPosition returns the physical position of the first
// visible column: one hidden column each for the salt byte, the tenant id
// and the view index id.
func StartingColumnPosition(t *Table) int {
	start := 0
	if t.BucketNum > 0 {
		start++
	}
	if t.MultiTenant {
		start++
	}
	if t.ViewIndexID != nil {
		start++
	}
	return start
}

// FullName returns schema-qualified name of the table.
func (t *Table) FullName() string {
	if t.SchemaName == "" {
		return t.Name
	}
	return t.SchemaName + "." + t.Name
}

// Column returns the column at a physical position.
func (t *Table) Column(pos int) (*Column, error) {
	if pos < 0 || pos >= len(t.Columns) {
		return nil, errors.ColumnIndexOutOfRangeError(t.Name, pos, pos, len(t.Columns))
	}
	return t.Columns[pos], nil
}

// ColumnByName looks up a column by exact name.
func (t *Table) ColumnByName(name string) (*Column, error) {
	if i, ok := t.byName[name]; ok {
		return t.Columns[i], nil
	}
	return nil, errors.ColumnNotFoundError(name, t.Name)
}

// PKColumns returns the primary key columns in position order.
func (t *Table) PKColumns() []*Column {
	var pk []*Column
	for _, c := range t.Columns {
		if c.PrimaryKey {
			pk = append(pk, c)
		}
	}
	return pk
}

// VisibleColumns returns the columns after the hidden leading columns.
func (t *Table) VisibleColumns() []*Column {
	return t.Columns[StartingColumnPosition(t):]
}

// SameShape reports whether two tables have the same kind, hidden column
// layout and column list (names, types and positions), ignoring identity.
func (t *Table) SameShape(o *Table) bool {
	if t.Kind != o.Kind || len(t.Columns) != len(o.Columns) ||
		StartingColumnPosition(t) != StartingColumnPosition(o) {
		return false
	}
	for i, c := range t.Columns {
		oc := o.Columns[i]
		if c.Name != oc.Name || c.Position != oc.Position || c.Family != oc.Family ||
			c.DataType.Name() != oc.DataType.Name() || c.Nullable != oc.Nullable {
			return false
		}
	}
	return true
}

func (t *Table) String() string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = c.String()
	}
	name := t.FullName()
	if name == "" {
		name = "<" + strings.ToLower(t.Kind.String()) + ">"
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(cols, ", "))
}

// SortOrder represents the sort order of a column's stored bytes.
type SortOrder int

const (
	// Ascending sort order.
	Ascending SortOrder = iota
	// Descending sort order.
	Descending
)

func (s SortOrder) String() string {
	if s == Descending {
		return "DESC"
	}
	return "ASC"
}

// Column represents a column with its metadata.
type Column struct {
	Name string
	// Family is empty for primary key columns, which live in the row key.
	Family     string
	DataType   types.DataType
	MaxLength  int
	Scale      int
	Nullable   bool
	Position   int
	SortOrder  SortOrder
	PrimaryKey bool
	// Source is the column a projected column was copied from.
	Source *ColumnRef
}

func (c *Column) String() string {
	name := c.Name
	if c.Family != "" {
		name = c.Family + "." + name
	}
	return name + " " + c.DataType.Name()
}
