package plan

import (
	"context"
	"fmt"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/compile"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// NestedLoopJoinPlan joins every left row with every right row that
// satisfies the condition. The right input is read once and kept in
// memory. Joined rows are laid out by ref: left columns, then right
// columns.
type NestedLoopJoinPlan struct {
	left, right Plan
	joinType    compile.JoinType
	condition   expr.Expression
	ref         *schema.TableRef
}

// NewNestedLoopJoinPlan creates a join. A nil condition joins every pair.
func NewNestedLoopJoinPlan(left, right Plan, joinType compile.JoinType, condition expr.Expression, ref *schema.TableRef) (*NestedLoopJoinPlan, error) {
	if condition != nil {
		if err := expr.CheckBoolean(condition, "join condition"); err != nil {
			return nil, err
		}
	}
	return &NestedLoopJoinPlan{left: left, right: right, joinType: joinType, condition: condition, ref: ref}, nil
}

func (p *NestedLoopJoinPlan) TableRef() *schema.TableRef { return p.ref }
func (p *NestedLoopJoinPlan) Children() []Plan           { return []Plan{p.left, p.right} }

func (p *NestedLoopJoinPlan) Describe() string {
	if p.condition == nil {
		return fmt.Sprintf("NESTED LOOP %s JOIN", p.joinType)
	}
	return fmt.Sprintf("NESTED LOOP %s JOIN ON %s", p.joinType, p.condition)
}

func (p *NestedLoopJoinPlan) matches(joined tuple.Tuple) (bool, error) {
	if p.condition == nil {
		return true, nil
	}
	v, err := p.condition.Evaluate(joined)
	if err != nil {
		return false, err
	}
	return isTrue(v), nil
}

func (p *NestedLoopJoinPlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	rightIt, err := p.right.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	right, err := exec.Drain(rightIt)
	if err != nil {
		return nil, err
	}
	left, err := p.left.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	return &nestedLoopIterator{
		ctx:          ctx,
		plan:         p,
		left:         left,
		right:        right,
		leftSize:     len(p.left.TableRef().Table.Columns),
		rightSize:    len(p.right.TableRef().Table.Columns),
		matchedRight: make([]bool, len(right)),
	}, nil
}

type nestedLoopIterator struct {
	ctx          context.Context
	plan         *NestedLoopJoinPlan
	left         exec.Iterator
	right        []tuple.Tuple
	leftSize     int
	rightSize    int
	matchedRight []bool

	cur        tuple.Tuple
	curMatched bool
	ri         int
	leftDone   bool
	tail       int
}

func (it *nestedLoopIterator) Next() (tuple.Tuple, error) {
	joinType := it.plan.joinType
	for {
		if err := checkCanceled(it.ctx); err != nil {
			return nil, err
		}

		if it.leftDone {
			if joinType != compile.RightJoin && joinType != compile.FullJoin {
				return nil, nil
			}
			for it.tail < len(it.right) {
				i := it.tail
				it.tail++
				if !it.matchedRight[i] {
					return tuple.Join(nullTuple(it.leftSize), it.right[i], it.rightSize), nil
				}
			}
			return nil, nil
		}

		if it.cur == nil {
			row, err := it.left.Next()
			if err != nil {
				return nil, err
			}
			if row == nil {
				it.leftDone = true
				continue
			}
			it.cur, it.ri, it.curMatched = row, 0, false
		}

	scan:
		for it.ri < len(it.right) {
			i := it.ri
			it.ri++
			joined := tuple.Join(it.cur, it.right[i], it.rightSize)
			ok, err := it.plan.matches(joined)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			it.curMatched = true
			it.matchedRight[i] = true

			switch joinType {
			case compile.SemiJoin:
				row := it.cur
				it.cur = nil
				return row, nil
			case compile.AntiJoin:
				break scan
			default:
				return joined, nil
			}
		}

		row, matched := it.cur, it.curMatched
		it.cur = nil
		if matched {
			continue
		}
		switch joinType {
		case compile.LeftJoin, compile.FullJoin:
			return tuple.Join(row, nil, it.rightSize), nil
		case compile.AntiJoin:
			return row, nil
		}
	}
}

func (it *nestedLoopIterator) Close() error {
	return it.left.Close()
}

// CorrelatePlan runs its right input once per left row, with the left row
// bound to a correlate variable so that the right input can refer to it.
type CorrelatePlan struct {
	left, right Plan
	variableID  string
	joinType    compile.JoinType
	ref         *schema.TableRef
}

// NewCorrelatePlan creates a correlate join. Only inner, left, semi and
// anti joins can be correlated.
func NewCorrelatePlan(left, right Plan, variableID string, joinType compile.JoinType, ref *schema.TableRef) (*CorrelatePlan, error) {
	switch joinType {
	case compile.InnerJoin, compile.LeftJoin, compile.SemiJoin, compile.AntiJoin:
	default:
		return nil, errors.FeatureNotSupportedError(joinType.String() + " correlate")
	}
	return &CorrelatePlan{left: left, right: right, variableID: variableID, joinType: joinType, ref: ref}, nil
}

func (p *CorrelatePlan) TableRef() *schema.TableRef { return p.ref }
func (p *CorrelatePlan) Children() []Plan           { return []Plan{p.left, p.right} }

func (p *CorrelatePlan) Describe() string {
	return fmt.Sprintf("CORRELATE %s %s", p.joinType, p.variableID)
}

func (p *CorrelatePlan) Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error) {
	left, err := p.left.Iterator(ctx, ec)
	if err != nil {
		return nil, err
	}
	return &correlateIterator{
		ctx:       ctx,
		ec:        ec,
		plan:      p,
		left:      left,
		rightSize: len(p.right.TableRef().Table.Columns),
	}, nil
}

type correlateIterator struct {
	ctx       context.Context
	ec        *exec.Context
	plan      *CorrelatePlan
	left      exec.Iterator
	rightSize int

	cur     tuple.Tuple
	right   exec.Iterator
	matched bool
}

func (it *correlateIterator) Next() (tuple.Tuple, error) {
	for {
		if err := checkCanceled(it.ctx); err != nil {
			return nil, err
		}

		if it.cur == nil {
			row, err := it.left.Next()
			if err != nil || row == nil {
				return nil, err
			}
			if err := it.ec.Runtime.SetCorrelateVariableValue(it.plan.variableID, row); err != nil {
				return nil, err
			}
			right, err := it.plan.right.Iterator(it.ctx, it.ec)
			if err != nil {
				return nil, err
			}
			it.cur, it.right, it.matched = row, right, false
		}

		r, err := it.right.Next()
		if err != nil {
			return nil, err
		}
		if r != nil {
			it.matched = true
			switch it.plan.joinType {
			case compile.SemiJoin:
				return it.finishRow(true)
			case compile.AntiJoin:
				if _, err := it.finishRow(false); err != nil {
					return nil, err
				}
				continue
			default:
				return tuple.Join(it.cur, r, it.rightSize), nil
			}
		}

		switch {
		case !it.matched && it.plan.joinType == compile.LeftJoin:
			row := it.cur
			if _, err := it.finishRow(false); err != nil {
				return nil, err
			}
			return tuple.Join(row, nil, it.rightSize), nil
		case !it.matched && it.plan.joinType == compile.AntiJoin:
			return it.finishRow(true)
		}
		if _, err := it.finishRow(false); err != nil {
			return nil, err
		}
	}
}

// finishRow closes the right input of the current left row and, if emit
// is set, returns that row.
func (it *correlateIterator) finishRow(emit bool) (tuple.Tuple, error) {
	row := it.cur
	it.cur = nil
	err := it.right.Close()
	it.right = nil
	if err != nil {
		return nil, err
	}
	if !emit {
		return nil, nil
	}
	return row, nil
}

func (it *correlateIterator) Close() error {
	if it.right != nil {
		_ = it.right.Close()
	}
	return it.left.Close()
}
