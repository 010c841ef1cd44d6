package rel

import (
	"fmt"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/compile"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/plan"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Node is a relational operator. The set of operators is closed; every
// variant is declared in this package.
type Node interface {
	// Implement builds the physical plan of the operator. When it returns
	// the implementor's current table describes the plan's rows.
	Implement(impl Implementor) (plan.Plan, error)
	relNode()
}

// TableScan reads a catalog table.
type TableScan struct {
	Ref *schema.TableRef
}

// Filter keeps the input rows Condition holds for.
type Filter struct {
	Input     Node
	Condition Rex
}

// Project computes Exprs for every input row. Server projections run
// next to the data, client projections on returned rows.
type Project struct {
	Input  Node
	Exprs  []Rex
	Server bool
}

// Join combines two inputs. Condition indexes address the left visible
// columns followed by the right ones; a nil Condition joins every pair.
type Join struct {
	Left, Right Node
	Type        compile.JoinType
	Condition   Rex
}

// Correlate evaluates Right once per Left row with VariableID bound to
// that row.
type Correlate struct {
	Left, Right Node
	VariableID  string
	Type        compile.JoinType
}

// AggCall is one aggregate of an Aggregate. A nil Arg with AggCount
// counts rows.
type AggCall struct {
	Func expr.AggregateFunc
	Arg  Rex
}

// Aggregate groups its input by the GroupBy columns. Its rows hold the
// group columns followed by the aggregate results.
type Aggregate struct {
	Input   Node
	GroupBy []int
	Calls   []AggCall
}

// SortField is one sort key over a visible input column.
type SortField struct {
	Index      int
	Descending bool
	NullsFirst bool
}

type Sort struct {
	Input Node
	Keys  []SortField
}

// Limit skips Offset rows and returns at most Fetch rows. A negative
// Fetch returns all remaining rows.
type Limit struct {
	Input  Node
	Offset int64
	Fetch  int64
}

// Values produces constant rows of the given column types.
type Values struct {
	Types []types.DataType
	Rows  [][]types.Value
}

func (*TableScan) relNode() {}
func (*Filter) relNode()    {}
func (*Project) relNode()   {}
func (*Join) relNode()      {}
func (*Correlate) relNode() {}
func (*Aggregate) relNode() {}
func (*Sort) relNode()      {}
func (*Limit) relNode()     {}
func (*Values) relNode()    {}

// Inputs returns the inputs of n in visiting order.
func Inputs(n Node) []Node {
	switch n := n.(type) {
	case *TableScan, *Values:
		return nil
	case *Filter:
		return []Node{n.Input}
	case *Project:
		return []Node{n.Input}
	case *Aggregate:
		return []Node{n.Input}
	case *Sort:
		return []Node{n.Input}
	case *Limit:
		return []Node{n.Input}
	case *Join:
		return []Node{n.Left, n.Right}
	case *Correlate:
		return []Node{n.Left, n.Right}
	default:
		panic(fmt.Sprintf("rel: unknown node %T", n))
	}
}

// Walk visits n and its inputs depth first. Returning false from fn skips
// the inputs of the node.
func Walk(n Node, fn func(Node) bool) {
	if !fn(n) {
		return
	}
	for _, in := range Inputs(n) {
		Walk(in, fn)
	}
}

func (s *TableScan) Implement(impl Implementor) (plan.Plan, error) {
	impl.SetTableRef(s.Ref)
	scan := plan.NewScanPlan(s.Ref)
	if !impl.CurrentContext().ForceProject {
		return scan, nil
	}

	table, err := impl.CreateProjectedTable()
	if err != nil {
		return nil, err
	}
	tp, err := projector.ForProjectedTable(table)
	if err != nil {
		return nil, errors.FatalError("TableScan", err)
	}
	ref := schema.NewTableRef(s.Ref.Alias, table, s.Ref.UpperBoundTimestamp, s.Ref.HasDynamicCols)
	impl.SetTableRef(ref)
	return plan.NewTupleProjectionPlan(scan, tp, ref, true), nil
}

func (f *Filter) Implement(impl Implementor) (plan.Plan, error) {
	input, err := impl.VisitInput(0, f.Input)
	if err != nil {
		return nil, err
	}
	cond, err := ToExpression(impl, f.Condition)
	if err != nil {
		return nil, err
	}
	p, err := plan.NewFilterPlan(input, cond)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Project) Implement(impl Implementor) (plan.Plan, error) {
	var input plan.Plan
	c := Context{RetainPKColumns: impl.CurrentContext().RetainPKColumns}
	err := impl.WithContext(c, func() error {
		var err error
		input, err = impl.VisitInput(0, p.Input)
		return err
	})
	if err != nil {
		return nil, err
	}

	// resolve against the input before Project replaces the current table
	exprs, err := toExpressions(impl, p.Exprs)
	if err != nil {
		return nil, err
	}
	tp, err := impl.Project(exprs)
	if err != nil {
		return nil, err
	}
	return plan.NewTupleProjectionPlan(input, tp, impl.TableRef(), p.Server), nil
}

// visitJoinInputs implements both inputs of a join or correlate. The left
// side keeps the current primary key retention, the right side drops it
// so that its columns can follow the left ones. Both are projected. after
// runs between the two visits with the left table current.
func visitJoinInputs(impl Implementor, left, right Node, after func(*schema.TableRef)) (lp, rp plan.Plan, lref, rref *schema.TableRef, err error) {
	retain := impl.CurrentContext().RetainPKColumns
	err = impl.WithContext(Context{RetainPKColumns: retain, ForceProject: true}, func() error {
		var err error
		lp, err = impl.VisitInput(0, left)
		return err
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	lref = impl.TableRef()
	if after != nil {
		after(lref)
	}

	err = impl.WithContext(Context{ForceProject: true}, func() error {
		var err error
		rp, err = impl.VisitInput(1, right)
		return err
	})
	if err != nil {
		return nil, nil, nil, nil, err
	}
	rref = impl.TableRef()
	if err := checkDistinctColumns(lref, rref); err != nil {
		return nil, nil, nil, nil, err
	}
	return lp, rp, lref, rref, nil
}

// checkDistinctColumns rejects join inputs whose projected columns share
// a name, which happens when both sides scan under the same alias.
func checkDistinctColumns(lref, rref *schema.TableRef) error {
	names := make(map[string]struct{}, len(lref.Table.Columns))
	for _, c := range lref.Table.Columns {
		names[c.Name] = struct{}{}
	}
	for _, c := range rref.Table.Columns {
		if _, ok := names[c.Name]; ok {
			return errors.DuplicateAliasError(rref.Name())
		}
	}
	return nil
}

func (j *Join) Implement(impl Implementor) (plan.Plan, error) {
	left, right, lref, rref, err := visitJoinInputs(impl, j.Left, j.Right, nil)
	if err != nil {
		return nil, err
	}

	// the condition always sees both sides, even when only the left
	// columns are returned
	both, err := compile.JoinProjectedTables(lref.Table, rref.Table, joinRowType(j.Type))
	if err != nil {
		return nil, errors.FatalError("Join", err)
	}
	impl.SetTableRef(schema.NewTableRef(impl.NewTempAlias(), both, schema.LatestTimestamp, false))

	var cond expr.Expression
	if j.Condition != nil {
		if cond, err = ToExpression(impl, j.Condition); err != nil {
			return nil, err
		}
	}

	if !j.Type.ProjectsRight() {
		joined, err := compile.JoinProjectedTables(lref.Table, rref.Table, j.Type)
		if err != nil {
			return nil, errors.FatalError("Join", err)
		}
		impl.SetTableRef(schema.NewTableRef(impl.NewTempAlias(), joined, schema.LatestTimestamp, false))
	}

	p, err := plan.NewNestedLoopJoinPlan(left, right, j.Type, cond, impl.TableRef())
	if err != nil {
		return nil, err
	}
	return p, nil
}

// joinRowType returns the join type whose rows carry both sides, with the
// nullability of t.
func joinRowType(t compile.JoinType) compile.JoinType {
	if t.ProjectsRight() {
		return t
	}
	return compile.InnerJoin
}

func (c *Correlate) Implement(impl Implementor) (plan.Plan, error) {
	define := func(ref *schema.TableRef) {
		impl.RuntimeContext().DefineCorrelateVariable(c.VariableID, ref)
	}
	left, right, lref, rref, err := visitJoinInputs(impl, c.Left, c.Right, define)
	if err != nil {
		return nil, err
	}

	joined, err := compile.JoinProjectedTables(lref.Table, rref.Table, c.Type)
	if err != nil {
		return nil, errors.FatalError("Correlate", err)
	}
	impl.SetTableRef(schema.NewTableRef(impl.NewTempAlias(), joined, schema.LatestTimestamp, false))

	p, err := plan.NewCorrelatePlan(left, right, c.VariableID, c.Type, impl.TableRef())
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (a *Aggregate) Implement(impl Implementor) (plan.Plan, error) {
	var input plan.Plan
	c := Context{RetainPKColumns: impl.CurrentContext().RetainPKColumns}
	err := impl.WithContext(c, func() error {
		var err error
		input, err = impl.VisitInput(0, a.Input)
		return err
	})
	if err != nil {
		return nil, err
	}

	keys := make([]expr.Expression, len(a.GroupBy))
	for i, idx := range a.GroupBy {
		e, err := impl.NewColumnExpression(idx)
		if err != nil {
			return nil, err
		}
		keys[i] = e
	}
	calls := make([]*expr.AggregateCall, len(a.Calls))
	for i, call := range a.Calls {
		var arg expr.Expression
		if call.Arg != nil {
			if arg, err = ToExpression(impl, call.Arg); err != nil {
				return nil, err
			}
		}
		if calls[i], err = expr.NewAggregateCall(call.Func, arg); err != nil {
			return nil, err
		}
	}

	outputs := make([]expr.Expression, 0, len(keys)+len(calls))
	outputs = append(outputs, keys...)
	for _, call := range calls {
		outputs = append(outputs, call)
	}
	tp, err := impl.Project(outputs)
	if err != nil {
		return nil, err
	}

	p, err := plan.NewAggregatePlan(input, keys, calls, tp, impl.TableRef())
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Sort) Implement(impl Implementor) (plan.Plan, error) {
	input, err := impl.VisitInput(0, s.Input)
	if err != nil {
		return nil, err
	}
	keys := make([]plan.SortKey, len(s.Keys))
	for i, k := range s.Keys {
		e, err := impl.NewColumnExpression(k.Index)
		if err != nil {
			return nil, err
		}
		keys[i] = plan.SortKey{Expr: e, Descending: k.Descending, NullsFirst: k.NullsFirst}
	}
	return plan.NewSortPlan(input, keys), nil
}

func (l *Limit) Implement(impl Implementor) (plan.Plan, error) {
	if l.Offset < 0 {
		return nil, errors.Newf(errors.InvalidParameterValue, "OFFSET must not be negative, got %d", l.Offset)
	}
	input, err := impl.VisitInput(0, l.Input)
	if err != nil {
		return nil, err
	}
	return plan.NewLimitPlan(input, l.Offset, l.Fetch), nil
}

func (v *Values) Implement(impl Implementor) (plan.Plan, error) {
	for i, row := range v.Rows {
		if len(row) != len(v.Types) {
			return nil, errors.Newf(errors.InvalidParameterValue,
				"VALUES row %d has %d columns, expected %d", i, len(row), len(v.Types))
		}
		for j, val := range row {
			if !v.Types[j].IsValid(val) {
				return nil, errors.DataTypeMismatchError(v.Types[j].Name(), val.Type().Name()).
					WithDetailf("VALUES row %d column %d", i, j)
			}
		}
	}

	columns := make([]expr.Expression, len(v.Types))
	for i, t := range v.Types {
		columns[i] = &expr.Literal{Value: types.NewNullValue(), Type: t}
	}
	tp, err := impl.Project(columns)
	if err != nil {
		return nil, err
	}
	return plan.NewValuesPlan(v.Rows, tp, impl.TableRef()), nil
}
