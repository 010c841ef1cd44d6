package plan

import (
	"context"
	"fmt"

	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// ScanPlan reads every row of a catalog table.
type ScanPlan struct {
	ref *schema.TableRef
}

// NewScanPlan creates a full scan of ref.
func NewScanPlan(ref *schema.TableRef) *ScanPlan {
	return &ScanPlan{ref: ref}
}

func (p *ScanPlan) TableRef() *schema.TableRef { return p.ref }
func (p *ScanPlan) Children() []Plan           { return nil }

func (p *ScanPlan) Describe() string {
	name := p.ref.Table.FullName()
	if p.ref.Alias != "" && p.ref.Alias != p.ref.Table.Name {
		name += " AS " + p.ref.Alias
	}
	if p.ref.Table.BucketNum > 0 {
		return fmt.Sprintf("%d-WAY FULL SCAN OVER %s", p.ref.Table.BucketNum, name)
	}
	return "FULL SCAN OVER " + name
}

func (p *ScanPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	if err := checkCanceled(ctx); err != nil {
		return nil, err
	}
	it, err := ec.Store.Scan(ctx, p.ref.Table)
	if err != nil {
		return nil, err
	}
	return &funcIterator{
		next: func() (tuple.Tuple, error) {
			if err := checkCanceled(ctx); err != nil {
				return nil, err
			}
			return it.Next()
		},
		close: it.Close,
	}, nil
}
