package plan

import (
	"context"
	"fmt"

	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// ValuesPlan produces constant rows, packed with the schema of the
// projector that describes them.
type ValuesPlan struct {
	rows [][]types.Value
	ref  *schema.TableRef
	proj *projector.TupleProjector
}

// NewValuesPlan creates a plan returning rows, packed with p.
func NewValuesPlan(rows [][]types.Value, p *projector.TupleProjector, ref *schema.TableRef) *ValuesPlan {
	return &ValuesPlan{rows: rows, ref: ref, proj: p}
}

func (p *ValuesPlan) TableRef() *schema.TableRef { return p.ref }
func (p *ValuesPlan) Children() []Plan           { return nil }
func (p *ValuesPlan) Describe() string           { return fmt.Sprintf("VALUES %d ROWS", len(p.rows)) }

func (p *ValuesPlan) Iterator(ctx context.Context, _ *exec.Context) (exec.Iterator, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	s := p.proj.Schema()
	rows := make([]tuple.Tuple, len(p.rows))
	for i, r := range p.rows {
		packed, err := s.Encode(r)
		if err != nil {
			return nil, err
		}
		rows[i] = projector.NewProjectedTuple(s, packed)
	}
	return exec.NewSliceIterator(rows), nil
}
