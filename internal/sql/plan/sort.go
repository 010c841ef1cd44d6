package plan

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// SortKey is one ORDER BY item.
type SortKey struct {
	Expr       expr.Expression
	Descending bool
	NullsFirst bool
}

func (k SortKey) String() string {
	s := k.Expr.String()
	if k.Descending {
		s += " DESC"
	} else {
		s += " ASC"
	}
	if k.NullsFirst {
		s += " NULLS FIRST"
	}
	return s
}

// SortPlan orders the rows of its input. The sort is stable.
type SortPlan struct {
	input Plan
	keys  []SortKey
}

// NewSortPlan creates a sort.
func NewSortPlan(input Plan, keys []SortKey) *SortPlan {
	return &SortPlan{input: input, keys: keys}
}

func (p *SortPlan) TableRef() *schema.TableRef { return p.input.TableRef() }
func (p *SortPlan) Children() []Plan           { return []Plan{p.input} }

func (p *SortPlan) Describe() string {
	keys := make([]string, len(p.keys))
	for i, k := range p.keys {
		keys[i] = k.String()
	}
	return "ORDER BY [" + strings.Join(keys, ", ") + "]"
}

type sortRow struct {
	row  tuple.Tuple
	keys []types.Value
}

func (p *SortPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	input, err := p.input.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	defer input.Close()

	var rows []sortRow
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
		keys := make([]types.Value, len(p.keys))
		for i, k := range p.keys {
			if keys[i], err = k.Expr.Evaluate(row); err != nil {
				return nil, err
			}
		}
		rows = append(rows, sortRow{row: row, keys: keys})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return p.compare(rows[i].keys, rows[j].keys) < 0
	})

	out := make([]tuple.Tuple, len(rows))
	for i, r := range rows {
		out[i] = r.row
	}
	return exec.NewSliceIterator(out), nil
}

// compare orders NULLs last unless NullsFirst is set, independent of the
// direction.
func (p *SortPlan) compare(a, b []types.Value) int {
	for i, k := range p.keys {
		av, bv := a[i], b[i]
		var c int
		switch {
		case av.IsNull() && bv.IsNull():
			c = 0
		case av.IsNull() || bv.IsNull():
			c = 1
			if av.IsNull() == k.NullsFirst {
				c = -1
			}
		default:
			c = types.CompareValues(av, bv)
			if k.Descending {
				c = -c
			}
		}
		if c != 0 {
			return c
		}
	}
	return 0
}

// LimitPlan skips offset rows and then returns at most fetch rows. A
// negative fetch means no limit.
type LimitPlan struct {
	input  Plan
	offset int64
	fetch  int64
}

// NewLimitPlan creates a limit.
func NewLimitPlan(input Plan, offset, fetch int64) *LimitPlan {
	return &LimitPlan{input: input, offset: offset, fetch: fetch}
}

func (p *LimitPlan) TableRef() *schema.TableRef { return p.input.TableRef() }
func (p *LimitPlan) Children() []Plan           { return []Plan{p.input} }

func (p *LimitPlan) Describe() string {
	switch {
	case p.fetch < 0:
		return fmt.Sprintf("OFFSET %d", p.offset)
	case p.offset > 0:
		return fmt.Sprintf("LIMIT %d OFFSET %d", p.fetch, p.offset)
	default:
		return fmt.Sprintf("LIMIT %d", p.fetch)
	}
}

func (p *LimitPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	input, err := p.input.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	var skipped, returned int64
	return &funcIterator{
		next: func() (tuple.Tuple, error) {
			for skipped < p.offset {
				if err := checkCanceled(ctx); err != nil {
					return nil, err
				}
				row, err := input.Next()
				if err != nil || row == nil {
					return nil, err
				}
				skipped++
			}
			if p.fetch >= 0 && returned >= p.fetch {
				return nil, nil
			}
			if err := checkCanceled(ctx); err != nil {
				return nil, err
			}
			row, err := input.Next()
			if err != nil || row == nil {
				return nil, err
			}
			returned++
			return row, nil
		},
		close: input.Close,
	}, nil
}
