// Package expr contains the typed, evaluatable expressions a physical plan
// is built from.
package expr

import (
	"fmt"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Expression is a typed expression evaluated against one tuple.
type Expression interface {
	// DataType returns the data type of the result.
	DataType() types.DataType
	// MaxLength returns the maximum length of the result, 0 if unbounded.
	MaxLength() int
	// Scale returns the scale of the result, 0 if not applicable.
	Scale() int
	// Nullable reports whether evaluation may produce NULL.
	Nullable() bool
	// SortOrder returns the byte order the result is stored in.
	SortOrder() schema.SortOrder
	// Evaluate computes the result for t.
	Evaluate(t tuple.Tuple) (types.Value, error)
	// Children returns the direct sub-expressions.
	Children() []Expression
	// String returns a string representation.
	String() string
}

// ColumnKind says where a column's value lives in a stored row.
type ColumnKind int

const (
	// RowKeyColumn values are decoded from the row key.
	RowKeyColumn ColumnKind = iota
	// KeyValueColumn values live in a column family cell.
	KeyValueColumn
	// ProjectedColumn values are read from a projected or derived row.
	ProjectedColumn
)

func (k ColumnKind) String() string {
	switch k {
	case RowKeyColumn:
		return "RowKey"
	case KeyValueColumn:
		return "KeyValue"
	case ProjectedColumn:
		return "Projected"
	default:
		return fmt.Sprintf("Unknown(%d)", k)
	}
}

// ColumnExpression reads one physical position of one referenced table.
type ColumnExpression struct {
	Ref    schema.ColumnRef
	Kind   ColumnKind
	column *schema.Column
}

// NewColumnExpression builds the expression for ref. Columns of synthetic
// tables are projected; otherwise key columns come from the row key and
// the rest from their column family.
func NewColumnExpression(ref schema.ColumnRef) *ColumnExpression {
	col := ref.Column()
	kind := KeyValueColumn
	switch {
	case ref.TableRef.Table.Kind.IsSynthetic():
		kind = ProjectedColumn
	case col.PrimaryKey:
		kind = RowKeyColumn
	}
	return &ColumnExpression{Ref: ref, Kind: kind, column: col}
}

// Position returns the physical position the expression reads.
func (c *ColumnExpression) Position() int {
	return c.Ref.Position
}

// Column returns the column metadata.
func (c *ColumnExpression) Column() *schema.Column {
	return c.column
}

func (c *ColumnExpression) DataType() types.DataType    { return c.column.DataType }
func (c *ColumnExpression) MaxLength() int              { return c.column.MaxLength }
func (c *ColumnExpression) Scale() int                  { return c.column.Scale }
func (c *ColumnExpression) Nullable() bool              { return c.column.Nullable }
func (c *ColumnExpression) SortOrder() schema.SortOrder { return c.column.SortOrder }
func (c *ColumnExpression) Children() []Expression      { return nil }

func (c *ColumnExpression) Evaluate(t tuple.Tuple) (types.Value, error) {
	return t.Value(c.Ref.Position)
}

func (c *ColumnExpression) String() string {
	return fmt.Sprintf("%s.%s#%d", c.Ref.TableRef.Name(), c.column.Name, c.Ref.Position)
}

// CorrelateValues gives access to the outer row a correlate variable is
// currently bound to.
type CorrelateValues interface {
	CorrelateVariableValue(variableID string) (tuple.Tuple, error)
}

// CorrelateFieldAccess reads a field of the outer row bound to a correlate
// variable. The outer row is looked up on every evaluation, since it
// changes once per iteration of the enclosing correlate operator while the
// plan is built only once.
type CorrelateFieldAccess struct {
	Values     CorrelateValues
	VariableID string
	Inner      Expression
}

// NewCorrelateFieldAccess wraps inner, an expression over the variable's
// defining table.
func NewCorrelateFieldAccess(values CorrelateValues, variableID string, inner Expression) *CorrelateFieldAccess {
	return &CorrelateFieldAccess{Values: values, VariableID: variableID, Inner: inner}
}

func (c *CorrelateFieldAccess) DataType() types.DataType    { return c.Inner.DataType() }
func (c *CorrelateFieldAccess) MaxLength() int              { return c.Inner.MaxLength() }
func (c *CorrelateFieldAccess) Scale() int                  { return c.Inner.Scale() }
func (c *CorrelateFieldAccess) Nullable() bool              { return c.Inner.Nullable() }
func (c *CorrelateFieldAccess) SortOrder() schema.SortOrder { return c.Inner.SortOrder() }
func (c *CorrelateFieldAccess) Children() []Expression      { return []Expression{c.Inner} }

// Evaluate ignores t and evaluates the inner expression against the outer
// row currently bound to the variable.
func (c *CorrelateFieldAccess) Evaluate(_ tuple.Tuple) (types.Value, error) {
	outer, err := c.Values.CorrelateVariableValue(c.VariableID)
	if err != nil {
		return types.Value{}, err
	}
	return c.Inner.Evaluate(outer)
}

func (c *CorrelateFieldAccess) String() string {
	return fmt.Sprintf("%s.%s", c.VariableID, c.Inner.String())
}

// Literal is a constant.
type Literal struct {
	Value types.Value
	Type  types.DataType
}

// NewLiteral creates a literal whose type is inferred from v.
func NewLiteral(v types.Value) *Literal {
	return &Literal{Value: v, Type: v.Type()}
}

func (l *Literal) DataType() types.DataType    { return l.Type }
func (l *Literal) MaxLength() int              { return types.MaxLengthOf(l.Type) }
func (l *Literal) Scale() int                  { return 0 }
func (l *Literal) Nullable() bool              { return l.Value.IsNull() }
func (l *Literal) SortOrder() schema.SortOrder { return schema.Ascending }
func (l *Literal) Children() []Expression      { return nil }

func (l *Literal) Evaluate(_ tuple.Tuple) (types.Value, error) {
	return l.Value, nil
}

func (l *Literal) String() string {
	if s, ok := l.Value.Data.(string); ok && !l.Value.IsNull() {
		return fmt.Sprintf("'%s'", s)
	}
	return l.Value.String()
}

// Walk calls fn for e and every expression below it, depth first, until
// fn returns false.
func Walk(e Expression, fn func(Expression) bool) {
	if !fn(e) {
		return
	}
	for _, c := range e.Children() {
		Walk(c, fn)
	}
}

// CheckBoolean verifies that e produces a boolean, as filter and join
// conditions must.
func CheckBoolean(e Expression, context string) error {
	if e.DataType() != types.Boolean && e.DataType() != types.Unknown {
		return errors.TypeMismatchError(types.Boolean.Name(), e.DataType().Name(), context)
	}
	return nil
}
