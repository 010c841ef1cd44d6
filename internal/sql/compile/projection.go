// Package compile derives the synthetic tables that describe intermediate
// rows: projections of one source table and joins of two projections.
package compile

import (
	pkgerrors "github.com/pkg/errors"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
)

// DefaultValueFamily is the column family of every non key column of a
// projected table.
const DefaultValueFamily = "_v"

// ProjectionCompiler builds the projected table for a set of source
// columns.
type ProjectionCompiler interface {
	CreateProjectedTable(ref *schema.TableRef, refs []schema.ColumnRef, retainPKColumns bool) (*schema.Table, error)
}

// TupleProjectionCompiler is the default ProjectionCompiler.
type TupleProjectionCompiler struct {
	valueFamily string
}

// NewTupleProjectionCompiler creates a compiler placing value columns in
// valueFamily, or DefaultValueFamily when empty.
func NewTupleProjectionCompiler(valueFamily string) *TupleProjectionCompiler {
	if valueFamily == "" {
		valueFamily = DefaultValueFamily
	}
	return &TupleProjectionCompiler{valueFamily: valueFamily}
}

// CreateProjectedTable returns a PROJECTED table with one column per
// entry of refs, in order. Each column remembers its source in
// Column.Source.
//
// With retainPKColumns the primary key columns stay key columns (no
// family) and the table keeps the salting, tenant and view index
// attributes of the source, so refs are expected to start at physical
// position 0. Without it every column becomes a value column and the
// projected table has no hidden leading columns.
func (c *TupleProjectionCompiler) CreateProjectedTable(ref *schema.TableRef, refs []schema.ColumnRef, retainPKColumns bool) (*schema.Table, error) {
	if ref == nil || ref.Table == nil {
		return nil, pkgerrors.New("projection source has no table")
	}
	src := ref.Table

	columns := make([]*schema.Column, 0, len(refs))
	for i, cr := range refs {
		if cr.TableRef != ref {
			return nil, pkgerrors.Errorf("column %d of projection belongs to %s, not %s",
				i, cr.TableRef.Name(), ref.Name())
		}
		if cr.Position < 0 || cr.Position >= len(src.Columns) {
			return nil, pkgerrors.WithStack(
				errors.ColumnIndexOutOfRangeError(ref.Name(), i, cr.Position, len(src.Columns)))
		}

		source := cr
		col := *cr.Column()
		col.Source = &source
		col.Name = projectedName(ref, &col)
		if retainPKColumns && col.PrimaryKey {
			col.Family = ""
		} else {
			col.Family = c.valueFamily
			col.PrimaryKey = false
		}
		columns = append(columns, &col)
	}

	def := schema.TableDef{
		SchemaName: src.SchemaName,
		Name:       src.Name,
		Kind:       schema.KindProjected,
		Columns:    columns,
		Timestamp:  src.Timestamp,
	}
	if retainPKColumns {
		def.BucketNum = src.BucketNum
		def.MultiTenant = src.MultiTenant
		def.ViewIndexID = src.ViewIndexID
	}

	t, err := schema.NewTable(def)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "create projected table for %s", ref.Name())
	}
	return t, nil
}

// projectedName qualifies catalog column names with the table alias so
// that projections of different aliases can be joined. Columns of
// synthetic tables are already unique and keep their names.
func projectedName(ref *schema.TableRef, col *schema.Column) string {
	if ref.Table.Kind.IsSynthetic() {
		return col.Name
	}
	return ref.Name() + "." + col.Name
}
