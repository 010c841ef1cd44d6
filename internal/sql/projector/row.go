// Package projector turns plan rows into result rows (RowProjector) and
// into packed intermediate rows (TupleProjector).
package projector

import (
	"fmt"
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// ColumnProjector produces one result column.
type ColumnProjector interface {
	Name() string
	TableName() string
	Expression() expr.Expression
	IsCaseSensitive() bool
	Value(t tuple.Tuple) (types.Value, error)
}

// ExpressionProjector projects a column by evaluating an expression.
type ExpressionProjector struct {
	name          string
	tableName     string
	expression    expr.Expression
	caseSensitive bool
}

// NewExpressionProjector creates a projector named name reading from
// tableName.
func NewExpressionProjector(name, tableName string, e expr.Expression, caseSensitive bool) *ExpressionProjector {
	return &ExpressionProjector{
		name:          name,
		tableName:     tableName,
		expression:    e,
		caseSensitive: caseSensitive,
	}
}

func (p *ExpressionProjector) Name() string                { return p.name }
func (p *ExpressionProjector) TableName() string           { return p.tableName }
func (p *ExpressionProjector) Expression() expr.Expression { return p.expression }
func (p *ExpressionProjector) IsCaseSensitive() bool       { return p.caseSensitive }

func (p *ExpressionProjector) Value(t tuple.Tuple) (types.Value, error) {
	return p.expression.Evaluate(t)
}

// RowProjector describes the result columns of a plan.
type RowProjector struct {
	columns           []ColumnProjector
	estimatedByteSize int
	isAggregate       bool
}

// NewRowProjector creates a row projector.
func NewRowProjector(columns []ColumnProjector, estimatedByteSize int, isAggregate bool) *RowProjector {
	return &RowProjector{
		columns:           columns,
		estimatedByteSize: estimatedByteSize,
		isAggregate:       isAggregate,
	}
}

func (r *RowProjector) Columns() []ColumnProjector {
	return r.columns
}

func (r *RowProjector) ColumnCount() int {
	return len(r.columns)
}

func (r *RowProjector) Column(i int) ColumnProjector {
	return r.columns[i]
}

// EstimatedByteSize is the estimated size of one result row. Row
// projectors built for plan output currently always report 0.
func (r *RowProjector) EstimatedByteSize() int {
	return r.estimatedByteSize
}

func (r *RowProjector) IsAggregate() bool {
	return r.isAggregate
}

// ColumnIndex finds a column by name. Case insensitive columns match
// regardless of case.
func (r *RowProjector) ColumnIndex(name string) (int, error) {
	for i, c := range r.columns {
		if c.Name() == name || (!c.IsCaseSensitive() && strings.EqualFold(c.Name(), name)) {
			return i, nil
		}
	}
	return -1, errors.ColumnNotFoundError(name, "")
}

// Project evaluates every column against t.
func (r *RowProjector) Project(t tuple.Tuple) ([]types.Value, error) {
	values := make([]types.Value, len(r.columns))
	for i, c := range r.columns {
		v, err := c.Value(t)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", c.Name(), err)
		}
		values[i] = v
	}
	return values, nil
}

func (r *RowProjector) String() string {
	parts := make([]string, len(r.columns))
	for i, c := range r.columns {
		name := c.Name()
		if c.TableName() != "" {
			name = c.TableName() + "." + name
		}
		parts[i] = fmt.Sprintf("%s := %s", name, c.Expression())
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
