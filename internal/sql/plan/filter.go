package plan

import (
	"context"

	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// FilterPlan passes through the rows of its input for which the condition
// is true.
type FilterPlan struct {
	input     Plan
	condition expr.Expression
}

// NewFilterPlan creates a filter. The condition must be boolean.
func NewFilterPlan(input Plan, condition expr.Expression) (*FilterPlan, error) {
	if err := expr.CheckBoolean(condition, "filter condition"); err != nil {
		return nil, err
	}
	return &FilterPlan{input: input, condition: condition}, nil
}

func (p *FilterPlan) TableRef() *schema.TableRef { return p.input.TableRef() }
func (p *FilterPlan) Children() []Plan           { return []Plan{p.input} }
func (p *FilterPlan) Describe() string           { return "FILTER BY " + p.condition.String() }

func (p *FilterPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	input, err := p.input.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	return &funcIterator{
		next: func() (tuple.Tuple, error) {
			for {
				if err := checkCanceled(ctx); err != nil {
					return nil, err
				}
				row, err := input.Next()
				if err != nil || row == nil {
					return nil, err
				}
				v, err := p.condition.Evaluate(row)
				if err != nil {
					return nil, err
				}
				if isTrue(v) {
					return row, nil
				}
			}
		},
		close: input.Close,
	}, nil
}
