package plan

import (
	"context"
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// AggregatePlan groups its input by the group by expressions and computes
// the aggregates of every group. Each output row holds the group values
// followed by the aggregate results, packed with the projector's schema.
// Without group by expressions it produces exactly one row.
type AggregatePlan struct {
	input      Plan
	groupBy    []expr.Expression
	aggregates []*expr.AggregateCall
	projector  *projector.TupleProjector
	ref        *schema.TableRef
}

// NewAggregatePlan creates an aggregation. p must have one field per
// group by expression and aggregate.
func NewAggregatePlan(input Plan, groupBy []expr.Expression, aggregates []*expr.AggregateCall, p *projector.TupleProjector, ref *schema.TableRef) (*AggregatePlan, error) {
	if n := len(groupBy) + len(aggregates); p.Schema().FieldCount() != n {
		return nil, errors.InternalErrorf("aggregate projector has %d fields for %d outputs", p.Schema().FieldCount(), n)
	}
	return &AggregatePlan{input: input, groupBy: groupBy, aggregates: aggregates, projector: p, ref: ref}, nil
}

func (p *AggregatePlan) TableRef() *schema.TableRef { return p.ref }
func (p *AggregatePlan) Children() []Plan           { return []Plan{p.input} }

func (p *AggregatePlan) Describe() string {
	aggs := make([]string, len(p.aggregates))
	for i, a := range p.aggregates {
		aggs[i] = a.String()
	}
	if len(p.groupBy) == 0 {
		return "AGGREGATE INTO SINGLE ROW [" + strings.Join(aggs, ", ") + "]"
	}
	keys := make([]string, len(p.groupBy))
	for i, g := range p.groupBy {
		keys[i] = g.String()
	}
	return "AGGREGATE [" + strings.Join(aggs, ", ") + "] GROUP BY [" + strings.Join(keys, ", ") + "]"
}

type group struct {
	keys        []types.Value
	aggregators []expr.Aggregator
}

func (p *AggregatePlan) newGroup(keys []types.Value) *group {
	g := &group{keys: keys, aggregators: make([]expr.Aggregator, len(p.aggregates))}
	for i, a := range p.aggregates {
		g.aggregators[i] = a.NewAggregator()
	}
	return g
}

// Iterator consumes the whole input before producing the first group.
// Groups come out in the order their first row was seen.
func (p *AggregatePlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	input, err := p.input.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	var groups []*group
	index := make(map[string]*group)
	if len(p.groupBy) == 0 {
		g := p.newGroup(nil)
		groups = append(groups, g)
		index[""] = g
	}

	for {
		if err := checkCanceled(ctx); err != nil {
			return nil, err
		}
		row, err := input.Next()
		if err != nil {
			return nil, err
		}
		if row == nil {
			break
		}

		keys := make([]types.Value, len(p.groupBy))
		for i, e := range p.groupBy {
			if keys[i], err = e.Evaluate(row); err != nil {
				return nil, err
			}
		}
		k := groupKey(keys)
		g, ok := index[k]
		if !ok {
			g = p.newGroup(keys)
			groups = append(groups, g)
			index[k] = g
		}
		for _, a := range g.aggregators {
			if err := a.Add(row); err != nil {
				return nil, err
			}
		}
	}

	rows := make([]tuple.Tuple, len(groups))
	for i, g := range groups {
		values := make([]types.Value, 0, len(g.keys)+len(g.aggregators))
		values = append(values, g.keys...)
		for _, a := range g.aggregators {
			values = append(values, a.Result())
		}
		packed, err := p.projector.Schema().Encode(values)
		if err != nil {
			return nil, err
		}
		rows[i] = projector.NewProjectedTuple(p.projector.Schema(), packed)
	}
	return exec.NewSliceIterator(rows), nil
}

// groupKey renders group values so that equal values get equal keys.
// Integers of different widths are widened first.
func groupKey(keys []types.Value) string {
	var sb strings.Builder
	for _, k := range keys {
		switch {
		case k.IsNull():
			sb.WriteString("\x00N")
		default:
			if n, err := k.AsInt64(); err == nil {
				k = types.NewBigIntValue(n)
			}
			sb.WriteString("\x00V")
			sb.WriteString(k.Type().Name())
			sb.WriteByte(':')
			sb.WriteString(k.String())
		}
	}
	return sb.String()
}
