package rel

import (
	"context"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/log"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/plan"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Result is a built plan together with the projector that turns its rows
// into result columns.
type Result struct {
	Plan      plan.Plan
	Projector *projector.RowProjector
}

// Build implements root under the root context and describes the rows of
// the resulting plan with a row projector.
//
// Fatal errors raised as panics while implementing, such as popping an
// empty context stack, are returned as errors. Any other panic is
// propagated.
func (i *PlanImplementor) Build(root Node) (res *Result, err error) {
	depth := len(i.contexts)
	defer func() {
		if r := recover(); r != nil {
			e, ok := r.(*errors.Error)
			if !ok || !e.Fatal {
				panic(r)
			}
			i.contexts = i.contexts[:min(depth, len(i.contexts))]
			res, err = nil, e
		}
	}()

	var p plan.Plan
	rootCtx := Context{RetainPKColumns: i.cfg.Planner.RetainPKColumns}
	err = i.WithContext(rootCtx, func() error {
		var err error
		p, err = root.Implement(i)
		return err
	})
	if err != nil {
		i.logger.Debug("plan build failed", log.Err(err))
		return nil, err
	}
	if len(i.contexts) != depth {
		return nil, errors.InternalErrorf("context stack depth %d after build, expected %d", len(i.contexts), depth)
	}

	rp, err := i.CreateRowProjector()
	if err != nil {
		return nil, err
	}
	i.logger.Debug("plan built",
		log.String("op", "Build"),
		log.String("table", i.tableRef.Name()),
		log.Int("columns", rp.ColumnCount()))
	return &Result{Plan: p, Projector: rp}, nil
}

// Run executes the plan and projects every row.
func (r *Result) Run(ctx context.Context, ec *exec.Context) ([][]types.Value, error) {
	it, err := r.Plan.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	rows, err := exec.Drain(it)
	if err != nil {
		return nil, err
	}
	out := make([][]types.Value, len(rows))
	for n, row := range rows {
		if out[n], err = r.Projector.Project(row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Explain returns the plan's description, one node per line.
func (r *Result) Explain() []string {
	return plan.Explain(r.Plan)
}
