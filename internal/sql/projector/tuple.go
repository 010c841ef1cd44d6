package projector

import (
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/kvschema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// TupleProjector evaluates a list of expressions and packs the results
// into one value laid out by a key-value schema.
type TupleProjector struct {
	schema      *kvschema.Schema
	expressions []expr.Expression
}

// NewTupleProjector pairs a packed row schema with the expressions that
// fill it, field by field.
func NewTupleProjector(s *kvschema.Schema, exprs []expr.Expression) (*TupleProjector, error) {
	if s.FieldCount() != len(exprs) {
		return nil, errors.InternalErrorf("schema has %d fields for %d expressions", s.FieldCount(), len(exprs))
	}
	return &TupleProjector{schema: s, expressions: exprs}, nil
}

// ForProjectedTable builds the projector that fills a projected table:
// one column expression per column, reading the column it was copied
// from.
func ForProjectedTable(table *schema.Table) (*TupleProjector, error) {
	b := kvschema.NewBuilder()
	exprs := make([]expr.Expression, len(table.Columns))
	for i, col := range table.Columns {
		if col.Source == nil {
			return nil, errors.SchemaInconsistencyError(table.Name, "column %q has no source column", col.Name)
		}
		exprs[i] = expr.NewColumnExpression(*col.Source)
		b.AddField(exprs[i])
	}
	return NewTupleProjector(b.Build(), exprs)
}

func (p *TupleProjector) Schema() *kvschema.Schema {
	return p.schema
}

func (p *TupleProjector) Expressions() []expr.Expression {
	return p.expressions
}

// ProjectResults evaluates the expressions against t and returns the
// packed result.
func (p *TupleProjector) ProjectResults(t tuple.Tuple) (*ProjectedTuple, error) {
	values := make([]types.Value, len(p.expressions))
	for i, e := range p.expressions {
		v, err := e.Evaluate(t)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}

	packed, err := p.schema.Encode(values)
	if err != nil {
		return nil, err
	}
	return &ProjectedTuple{schema: p.schema, packed: packed}, nil
}

func (p *TupleProjector) String() string {
	parts := make([]string, len(p.expressions))
	for i, e := range p.expressions {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// ProjectedTuple is a packed row. Values are decoded on first access.
type ProjectedTuple struct {
	schema *kvschema.Schema
	packed []byte
	values []types.Value
}

// NewProjectedTuple wraps a row packed with s.
func NewProjectedTuple(s *kvschema.Schema, packed []byte) *ProjectedTuple {
	return &ProjectedTuple{schema: s, packed: packed}
}

// Bytes returns the packed row.
func (t *ProjectedTuple) Bytes() []byte {
	return t.packed
}

func (t *ProjectedTuple) Size() int {
	return t.schema.FieldCount()
}

func (t *ProjectedTuple) Value(pos int) (types.Value, error) {
	if t.values == nil {
		values, err := t.schema.Decode(t.packed)
		if err != nil {
			return types.Value{}, err
		}
		t.values = values
	}
	if pos < 0 || pos >= len(t.values) {
		return types.Value{}, errors.Newf(errors.InvalidColumnReference,
			"tuple position %d out of range [0, %d)", pos, len(t.values))
	}
	return t.values[pos], nil
}

func (t *ProjectedTuple) String() string {
	return tuple.Format(t)
}
