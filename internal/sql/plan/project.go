package plan

import (
	"context"

	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// TupleProjectionPlan packs each input row with a tuple projector. Its
// rows are laid out by ref, the table the projection was built for.
type TupleProjectionPlan struct {
	input     Plan
	projector *projector.TupleProjector
	ref       *schema.TableRef
	server    bool
}

// NewTupleProjectionPlan creates a projection. server only changes how the
// plan is described: server projections run next to the data, client
// projections on the rows returned to the client.
func NewTupleProjectionPlan(input Plan, p *projector.TupleProjector, ref *schema.TableRef, server bool) *TupleProjectionPlan {
	return &TupleProjectionPlan{input: input, projector: p, ref: ref, server: server}
}

func (p *TupleProjectionPlan) TableRef() *schema.TableRef { return p.ref }
func (p *TupleProjectionPlan) Children() []Plan           { return []Plan{p.input} }

// Projector returns the tuple projector.
func (p *TupleProjectionPlan) Projector() *projector.TupleProjector {
	return p.projector
}

func (p *TupleProjectionPlan) Describe() string {
	if p.server {
		return "SERVER PROJECT " + p.projector.String()
	}
	return "CLIENT PROJECT " + p.projector.String()
}

func (p *TupleProjectionPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	input, err := p.input.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	return &funcIterator{
		next: func() (tuple.Tuple, error) {
			if err := checkCanceled(ctx); err != nil {
				return nil, err
			}
			row, err := input.Next()
			if err != nil || row == nil {
				return nil, err
			}
			out, err := p.projector.ProjectResults(row)
			if err != nil {
				return nil, err
			}
			return out, nil
		},
		close: input.Close,
	}, nil
}
