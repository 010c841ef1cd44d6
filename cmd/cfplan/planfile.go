package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dshills/cfplan/internal/catalog"
	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/compile"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/rel"
	"github.com/dshills/cfplan/internal/sql/types"
)

// planFile is the YAML document the commands read: table definitions,
// optional rows for them and the operator tree to build.
type planFile struct {
	Tables []*catalog.TableSchema `yaml:"tables"`
	// Rows holds rows per table name, listing the declared columns only.
	Rows map[string][][]any `yaml:"rows"`
	Plan nodeSpec            `yaml:"plan"`
}

// nodeSpec is one operator; exactly one field is set.
type nodeSpec struct {
	Scan      *scanSpec      `yaml:"scan"`
	Filter    *filterSpec    `yaml:"filter"`
	Project   *projectSpec   `yaml:"project"`
	Join      *joinSpec      `yaml:"join"`
	Correlate *correlateSpec `yaml:"correlate"`
	Aggregate *aggregateSpec `yaml:"aggregate"`
	Sort      *sortSpec      `yaml:"sort"`
	Limit     *limitSpec     `yaml:"limit"`
	Values    *valuesSpec    `yaml:"values"`
}

type scanSpec struct {
	Schema string `yaml:"schema"`
	Table  string `yaml:"table"`
	Alias  string `yaml:"alias"`
}

type filterSpec struct {
	Input     nodeSpec `yaml:"input"`
	Condition rexSpec  `yaml:"condition"`
}

type projectSpec struct {
	Input  nodeSpec  `yaml:"input"`
	Exprs  []rexSpec `yaml:"exprs"`
	Server bool      `yaml:"server"`
}

type joinSpec struct {
	Left      nodeSpec `yaml:"left"`
	Right     nodeSpec `yaml:"right"`
	Type      string   `yaml:"type"`
	Condition *rexSpec `yaml:"condition"`
}

type correlateSpec struct {
	Left     nodeSpec `yaml:"left"`
	Right    nodeSpec `yaml:"right"`
	Variable string   `yaml:"variable"`
	Type     string   `yaml:"type"`
}

type aggregateSpec struct {
	Input   nodeSpec  `yaml:"input"`
	GroupBy []int     `yaml:"group_by"`
	Calls   []aggSpec `yaml:"calls"`
}

type aggSpec struct {
	Func string   `yaml:"func"`
	Arg  *rexSpec `yaml:"arg"`
}

type sortSpec struct {
	Input nodeSpec    `yaml:"input"`
	Keys  []sortField `yaml:"keys"`
}

type sortField struct {
	Index      int  `yaml:"index"`
	Descending bool `yaml:"desc"`
	NullsFirst bool `yaml:"nulls_first"`
}

type limitSpec struct {
	Input  nodeSpec `yaml:"input"`
	Offset int64    `yaml:"offset"`
	Fetch  *int64   `yaml:"fetch"`
}

type valuesSpec struct {
	Types []string `yaml:"types"`
	Rows  [][]any  `yaml:"rows"`
}

// rexSpec is a row expression: an input column, a literal, a correlate
// field, or an operator applied to Args.
type rexSpec struct {
	Input   *int       `yaml:"input"`
	Literal any        `yaml:"literal"`
	Type    string     `yaml:"type"`
	Field   *fieldSpec `yaml:"field"`
	Op      string     `yaml:"op"`
	Args    []rexSpec  `yaml:"args"`
}

type fieldSpec struct {
	Variable string `yaml:"variable"`
	Index    int    `yaml:"index"`
	Type     string `yaml:"type"`
}

func loadPlanFile(path string) (*planFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plan file: %w", err)
	}
	return parsePlanFile(data)
}

func parsePlanFile(data []byte) (*planFile, error) {
	var pf planFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("failed to parse plan file: %w", err)
	}
	return &pf, nil
}

// createCatalog creates the tables of the plan file.
func (pf *planFile) createCatalog() (*catalog.MemoryCatalog, error) {
	cat := catalog.NewMemoryCatalog()
	for _, def := range pf.Tables {
		if _, err := cat.CreateTable(def); err != nil {
			return nil, err
		}
	}
	return cat, nil
}

// load inserts the plan file rows into store. Hidden leading columns are
// left for the store to fill in.
func (pf *planFile) load(ctx context.Context, cat catalog.Catalog, store exec.Store) error {
	for name, rows := range pf.Rows {
		table, err := cat.GetTable("", name)
		if err != nil {
			return err
		}
		for i, row := range rows {
			values, err := tableRow(table, row)
			if err != nil {
				return fmt.Errorf("%s row %d: %w", name, i, err)
			}
			if err := store.Insert(ctx, table, values); err != nil {
				return fmt.Errorf("%s row %d: %w", name, i, err)
			}
		}
	}
	return nil
}

func tableRow(table *schema.Table, row []any) ([]types.Value, error) {
	values := make([]types.Value, 0, len(table.Columns))
	next := 0
	for _, col := range table.Columns {
		if isFilledByStore(table, col) {
			values = append(values, types.NewNullValue())
			continue
		}
		if next >= len(row) {
			return nil, errors.Newf(errors.InvalidParameterValue, "missing value for column %s", col.Name)
		}
		v, err := convertValue(row[next], col.DataType)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		next++
	}
	if next != len(row) {
		return nil, errors.Newf(errors.InvalidParameterValue, "row has %d values, table has %d columns", len(row), next)
	}
	return values, nil
}

func isFilledByStore(table *schema.Table, col *schema.Column) bool {
	switch col.Name {
	case schema.SaltColumnName:
		return table.BucketNum > 0
	case schema.ViewIndexIDColumnName:
		return table.ViewIndexID != nil
	}
	return false
}

// convertValue turns a decoded YAML scalar into a value of type dt.
func convertValue(v any, dt types.DataType) (types.Value, error) {
	if v == nil {
		return types.NewNullValue(), nil
	}

	var out types.Value
	switch {
	case dt == types.SmallInt || dt == types.Integer || dt == types.BigInt:
		n, ok := v.(int)
		if !ok {
			return types.Value{}, errors.DataTypeMismatchError(dt.Name(), fmt.Sprintf("%T", v))
		}
		switch dt {
		case types.SmallInt:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return types.Value{}, errors.Newf(errors.NumericValueOutOfRange, "%d is out of range for SMALLINT", n)
			}
			out = types.NewValue(int16(n))
		case types.Integer:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return types.Value{}, errors.Newf(errors.NumericValueOutOfRange, "%d is out of range for INTEGER", n)
			}
			out = types.NewIntegerValue(int32(n))
		default:
			out = types.NewBigIntValue(int64(n))
		}
	case dt == types.Double:
		switch f := v.(type) {
		case float64:
			out = types.NewDoubleValue(f)
		case int:
			out = types.NewDoubleValue(float64(f))
		default:
			return types.Value{}, errors.DataTypeMismatchError(dt.Name(), fmt.Sprintf("%T", v))
		}
	case dt == types.Timestamp:
		switch ts := v.(type) {
		case time.Time:
			out = types.NewTimestampValue(ts)
		case string:
			parsed, err := time.Parse(time.RFC3339, ts)
			if err != nil {
				return types.Value{}, errors.DataTypeMismatchError(dt.Name(), "text").WithCause(err)
			}
			out = types.NewTimestampValue(parsed)
		default:
			return types.Value{}, errors.DataTypeMismatchError(dt.Name(), fmt.Sprintf("%T", v))
		}
	default:
		out = types.NewValue(v)
	}

	if !dt.IsValid(out) {
		return types.Value{}, errors.DataTypeMismatchError(dt.Name(), out.Type().Name())
	}
	return out, nil
}

// literalType picks the type of an untyped literal.
func literalType(v any) types.DataType {
	switch n := v.(type) {
	case int:
		if n >= math.MinInt32 && n <= math.MaxInt32 {
			return types.Integer
		}
		return types.BigInt
	case float64:
		return types.Double
	case bool:
		return types.Boolean
	case string:
		return types.Text
	case time.Time:
		return types.Timestamp
	}
	return types.Unknown
}

// toNode converts the operator tree, resolving scanned tables in cat.
func (s nodeSpec) toNode(cat catalog.Catalog) (rel.Node, error) {
	switch {
	case s.Scan != nil:
		ref, err := cat.Resolve(s.Scan.Schema, s.Scan.Table, s.Scan.Alias)
		if err != nil {
			return nil, err
		}
		return &rel.TableScan{Ref: ref}, nil

	case s.Filter != nil:
		input, err := s.Filter.Input.toNode(cat)
		if err != nil {
			return nil, err
		}
		cond, err := s.Filter.Condition.toRex()
		if err != nil {
			return nil, err
		}
		return &rel.Filter{Input: input, Condition: cond}, nil

	case s.Project != nil:
		input, err := s.Project.Input.toNode(cat)
		if err != nil {
			return nil, err
		}
		exprs, err := toRexes(s.Project.Exprs)
		if err != nil {
			return nil, err
		}
		return &rel.Project{Input: input, Exprs: exprs, Server: s.Project.Server}, nil

	case s.Join != nil:
		left, right, err := toInputs(cat, s.Join.Left, s.Join.Right)
		if err != nil {
			return nil, err
		}
		jt, err := parseJoinType(s.Join.Type)
		if err != nil {
			return nil, err
		}
		j := &rel.Join{Left: left, Right: right, Type: jt}
		if s.Join.Condition != nil {
			if j.Condition, err = s.Join.Condition.toRex(); err != nil {
				return nil, err
			}
		}
		return j, nil

	case s.Correlate != nil:
		left, right, err := toInputs(cat, s.Correlate.Left, s.Correlate.Right)
		if err != nil {
			return nil, err
		}
		jt, err := parseJoinType(s.Correlate.Type)
		if err != nil {
			return nil, err
		}
		return &rel.Correlate{Left: left, Right: right, VariableID: s.Correlate.Variable, Type: jt}, nil

	case s.Aggregate != nil:
		input, err := s.Aggregate.Input.toNode(cat)
		if err != nil {
			return nil, err
		}
		calls := make([]rel.AggCall, len(s.Aggregate.Calls))
		for i, c := range s.Aggregate.Calls {
			fn, err := parseAggregateFunc(c.Func)
			if err != nil {
				return nil, err
			}
			calls[i].Func = fn
			if c.Arg != nil {
				if calls[i].Arg, err = c.Arg.toRex(); err != nil {
					return nil, err
				}
			}
		}
		return &rel.Aggregate{Input: input, GroupBy: s.Aggregate.GroupBy, Calls: calls}, nil

	case s.Sort != nil:
		input, err := s.Sort.Input.toNode(cat)
		if err != nil {
			return nil, err
		}
		keys := make([]rel.SortField, len(s.Sort.Keys))
		for i, k := range s.Sort.Keys {
			keys[i] = rel.SortField{Index: k.Index, Descending: k.Descending, NullsFirst: k.NullsFirst}
		}
		return &rel.Sort{Input: input, Keys: keys}, nil

	case s.Limit != nil:
		input, err := s.Limit.Input.toNode(cat)
		if err != nil {
			return nil, err
		}
		fetch := int64(-1)
		if s.Limit.Fetch != nil {
			fetch = *s.Limit.Fetch
		}
		return &rel.Limit{Input: input, Offset: s.Limit.Offset, Fetch: fetch}, nil

	case s.Values != nil:
		v := &rel.Values{Types: make([]types.DataType, len(s.Values.Types))}
		for i, name := range s.Values.Types {
			dt, err := catalog.ParseType(name)
			if err != nil {
				return nil, err
			}
			v.Types[i] = dt
		}
		for i, row := range s.Values.Rows {
			if len(row) != len(v.Types) {
				return nil, errors.Newf(errors.InvalidParameterValue,
					"VALUES row %d has %d columns, expected %d", i, len(row), len(v.Types))
			}
			values := make([]types.Value, len(row))
			for j, cell := range row {
				val, err := convertValue(cell, v.Types[j])
				if err != nil {
					return nil, err
				}
				values[j] = val
			}
			v.Rows = append(v.Rows, values)
		}
		return v, nil
	}
	return nil, errors.New(errors.InvalidParameterValue, "operator has no type")
}

func toInputs(cat catalog.Catalog, l, r nodeSpec) (rel.Node, rel.Node, error) {
	left, err := l.toNode(cat)
	if err != nil {
		return nil, nil, err
	}
	right, err := r.toNode(cat)
	if err != nil {
		return nil, nil, err
	}
	return left, right, nil
}

var (
	compareOps = map[string]expr.CompareOp{
		"=": expr.OpEqual, "!=": expr.OpNotEqual, "<>": expr.OpNotEqual,
		"<": expr.OpLess, "<=": expr.OpLessEqual, ">": expr.OpGreater, ">=": expr.OpGreaterEqual,
	}
	logicalOps    = map[string]expr.LogicalOp{"AND": expr.OpAnd, "OR": expr.OpOr}
	arithmeticOps = map[string]expr.ArithmeticOp{"+": expr.OpAdd, "-": expr.OpSubtract, "*": expr.OpMultiply, "/": expr.OpDivide}
)

func (s rexSpec) toRex() (rel.Rex, error) {
	switch {
	case s.Input != nil:
		return rel.InputRef{Index: *s.Input}, nil
	case s.Field != nil:
		f := rel.FieldAccess{VariableID: s.Field.Variable, Index: s.Field.Index}
		if s.Field.Type != "" {
			dt, err := catalog.ParseType(s.Field.Type)
			if err != nil {
				return nil, err
			}
			f.Type = dt
		}
		return f, nil
	case s.Op == "":
		dt := literalType(s.Literal)
		if s.Type != "" {
			var err error
			if dt, err = catalog.ParseType(s.Type); err != nil {
				return nil, err
			}
		}
		v, err := convertValue(s.Literal, dt)
		if err != nil {
			return nil, err
		}
		return rel.Literal{Value: v, Type: dt}, nil
	}

	args, err := toRexes(s.Args)
	if err != nil {
		return nil, err
	}
	op := strings.ToUpper(s.Op)
	if c, ok := compareOps[op]; ok {
		if len(args) != 2 {
			return nil, arityError(s.Op, 2, len(args))
		}
		return rel.Compare{Op: c, Left: args[0], Right: args[1]}, nil
	}
	if l, ok := logicalOps[op]; ok {
		return rel.Logic{Op: l, Operands: args}, nil
	}
	if a, ok := arithmeticOps[op]; ok {
		if len(args) != 2 {
			return nil, arityError(s.Op, 2, len(args))
		}
		return rel.Arith{Op: a, Left: args[0], Right: args[1]}, nil
	}
	if op == "IS NULL" || op == "IS NOT NULL" {
		if len(args) != 1 {
			return nil, arityError(s.Op, 1, len(args))
		}
		return rel.NullCheck{Operand: args[0], Not: op == "IS NOT NULL"}, nil
	}
	return nil, errors.Newf(errors.UndefinedObject, "operator \"%s\" does not exist", s.Op)
}

func toRexes(specs []rexSpec) ([]rel.Rex, error) {
	out := make([]rel.Rex, len(specs))
	for i, s := range specs {
		r, err := s.toRex()
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func arityError(op string, want, got int) error {
	return errors.Newf(errors.InvalidParameterValue, "operator %s takes %d arguments, got %d", op, want, got)
}

func parseJoinType(name string) (compile.JoinType, error) {
	for _, jt := range []compile.JoinType{
		compile.InnerJoin, compile.LeftJoin, compile.RightJoin, compile.FullJoin, compile.SemiJoin, compile.AntiJoin,
	} {
		if strings.EqualFold(name, jt.String()) {
			return jt, nil
		}
	}
	if name == "" {
		return compile.InnerJoin, nil
	}
	return 0, errors.Newf(errors.InvalidParameterValue, "unknown join type \"%s\"", name)
}

func parseAggregateFunc(name string) (expr.AggregateFunc, error) {
	for _, fn := range []expr.AggregateFunc{expr.AggCount, expr.AggSum, expr.AggMin, expr.AggMax, expr.AggAvg} {
		if strings.EqualFold(name, fn.String()) {
			return fn, nil
		}
	}
	return 0, errors.Newf(errors.UndefinedObject, "aggregate function \"%s\" does not exist", name)
}
