// Package rel turns a tree of relational operators into a physical plan.
//
// Every operator implements itself by calling back into an Implementor:
// it asks the implementor to implement its inputs first (VisitInput),
// then reads the implementor's current table to resolve column indexes
// into physical column references, and finally sets the table that
// describes its own output rows.
package rel

import (
	"fmt"

	"github.com/dshills/cfplan/internal/config"
	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/log"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/compile"
	"github.com/dshills/cfplan/internal/sql/expr"
	"github.com/dshills/cfplan/internal/sql/kvschema"
	"github.com/dshills/cfplan/internal/sql/plan"
	"github.com/dshills/cfplan/internal/sql/projector"
	"github.com/dshills/cfplan/internal/sql/runtime"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Context is the set of flags an operator passes down to its inputs.
type Context struct {
	// RetainPKColumns keeps the primary key and hidden leading columns in
	// projected tables.
	RetainPKColumns bool
	// ForceProject makes scans project their rows into a projected table,
	// as joins and correlates need.
	ForceProject bool
}

func (c Context) String() string {
	return fmt.Sprintf("{retainPK=%t forceProject=%t}", c.RetainPKColumns, c.ForceProject)
}

// Implementor is the driver operators call back into while implementing
// themselves.
type Implementor interface {
	// VisitInput implements the i-th input of the calling operator.
	VisitInput(i int, n Node) (plan.Plan, error)

	// NewColumnExpression resolves a visible column index of the current
	// table.
	NewColumnExpression(index int) (*expr.ColumnExpression, error)
	// NewFieldAccessExpression resolves a visible column index of the
	// table a correlate variable ranges over.
	NewFieldAccessExpression(variableID string, index int, t types.DataType) (expr.Expression, error)

	RuntimeContext() *runtime.Context

	// SetTableRef replaces the current table.
	SetTableRef(ref *schema.TableRef)
	// TableRef returns the current table. It changes whenever an input is
	// visited or Project is called, so callers must read it again after
	// either instead of holding on to an earlier result.
	TableRef() *schema.TableRef

	PushContext(c Context)
	PopContext() Context
	CurrentContext() Context
	// WithContext pushes c, runs fn and pops c again, however fn exits.
	WithContext(c Context, fn func() error) error

	// CreateProjectedTable projects the current table under the current
	// context.
	CreateProjectedTable() (*schema.Table, error)
	// CreateRowProjector describes the visible columns of the current
	// table as result columns.
	CreateRowProjector() (*projector.RowProjector, error)
	// Project makes exprs the columns of a new unnamed table, which
	// becomes the current table.
	Project(exprs []expr.Expression) (*projector.TupleProjector, error)

	// NewTempAlias returns a name no other call returns.
	NewTempAlias() string
}

// PlanImplementor is the Implementor used to build plans. It is not safe
// for concurrent use; build one plan per implementor.
type PlanImplementor struct {
	runtime  *runtime.Context
	cfg      *config.Config
	compiler compile.ProjectionCompiler
	logger   log.Logger

	tableRef  *schema.TableRef
	contexts  []Context
	aliasSeq  int
	threshold int
}

var _ Implementor = (*PlanImplementor)(nil)

// NewImplementor creates an implementor. Nil arguments fall back to a
// fresh runtime context, the default config, the tuple projection
// compiler and the implementor component logger.
func NewImplementor(rc *runtime.Context, cfg *config.Config, compiler compile.ProjectionCompiler, logger log.Logger) *PlanImplementor {
	if rc == nil {
		rc = runtime.NewContext()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if compiler == nil {
		compiler = compile.NewTupleProjectionCompiler(cfg.Planner.ValueFamily)
	}
	if logger == nil {
		logger = log.Component("implementor")
	}
	i := &PlanImplementor{
		runtime:  rc,
		cfg:      cfg,
		compiler: compiler,
		logger:   logger,
	}
	if cfg.Tuple.EnableCompression {
		i.threshold = cfg.Tuple.CompressionThreshold
	}
	return i
}

func (i *PlanImplementor) VisitInput(_ int, n Node) (plan.Plan, error) {
	return n.Implement(i)
}

func (i *PlanImplementor) NewColumnExpression(index int) (*expr.ColumnExpression, error) {
	if i.tableRef == nil {
		return nil, errors.NoCurrentTableError("NewColumnExpression")
	}
	ref, err := resolveColumn(i.tableRef, index)
	if err != nil {
		return nil, err
	}
	return expr.NewColumnExpression(ref), nil
}

// resolveColumn maps a visible column index to a physical column.
func resolveColumn(tableRef *schema.TableRef, index int) (schema.ColumnRef, error) {
	table := tableRef.Table
	pos := index + schema.StartingColumnPosition(table)
	if index < 0 || pos >= len(table.Columns) {
		return schema.ColumnRef{}, errors.ColumnIndexOutOfRangeError(tableRef.Name(), index, pos, len(table.Columns))
	}
	return schema.ColumnRef{TableRef: tableRef, Position: pos}, nil
}

func (i *PlanImplementor) NewFieldAccessExpression(variableID string, index int, t types.DataType) (expr.Expression, error) {
	def, err := i.runtime.CorrelateVariableDef(variableID)
	if err != nil {
		return nil, err
	}
	ref, err := resolveColumn(def, index)
	if err != nil {
		return nil, err
	}
	inner := expr.NewColumnExpression(ref)
	if t != nil && !types.Compatible(t, inner.DataType()) {
		return nil, errors.TypeMismatchError(t.Name(), inner.DataType().Name(), "correlate variable "+variableID)
	}
	return expr.NewCorrelateFieldAccess(i.runtime, variableID, inner), nil
}

func (i *PlanImplementor) RuntimeContext() *runtime.Context {
	return i.runtime
}

func (i *PlanImplementor) SetTableRef(ref *schema.TableRef) {
	i.tableRef = ref
}

func (i *PlanImplementor) TableRef() *schema.TableRef {
	return i.tableRef
}

func (i *PlanImplementor) PushContext(c Context) {
	i.contexts = append(i.contexts, c)
}

// PopContext panics with a fatal error when the stack is empty; Build
// turns that panic back into an error.
func (i *PlanImplementor) PopContext() Context {
	if len(i.contexts) == 0 {
		panic(errors.ContextStackUnderflowError("PopContext"))
	}
	c := i.contexts[len(i.contexts)-1]
	i.contexts = i.contexts[:len(i.contexts)-1]
	return c
}

// CurrentContext panics like PopContext when the stack is empty.
func (i *PlanImplementor) CurrentContext() Context {
	if len(i.contexts) == 0 {
		panic(errors.ContextStackUnderflowError("CurrentContext"))
	}
	return i.contexts[len(i.contexts)-1]
}

func (i *PlanImplementor) WithContext(c Context, fn func() error) error {
	i.PushContext(c)
	defer i.PopContext()
	return fn()
}

func (i *PlanImplementor) CreateProjectedTable() (*schema.Table, error) {
	ref := i.tableRef
	if ref == nil {
		return nil, errors.NoCurrentTableError("CreateProjectedTable")
	}
	retain := i.CurrentContext().RetainPKColumns

	start := 0
	if !retain {
		start = schema.StartingColumnPosition(ref.Table)
	}
	refs := make([]schema.ColumnRef, 0, len(ref.Table.Columns)-start)
	for _, col := range ref.Table.Columns[start:] {
		refs = append(refs, schema.ColumnRef{TableRef: ref, Position: col.Position})
	}
	if err := validateColumnRefs(ref, refs); err != nil {
		return nil, err
	}

	table, err := i.compiler.CreateProjectedTable(ref, refs, retain)
	if err != nil {
		return nil, errors.FatalError("CreateProjectedTable", err)
	}

	i.logger.Debug("created projected table",
		log.String("op", "CreateProjectedTable"),
		log.String("table", ref.Name()),
		log.Int("columns", len(table.Columns)),
		log.Bool("retainPK", retain))
	return table, nil
}

// validateColumnRefs checks what the projection compiler relies on: every
// ref points into ref's table and no column is selected twice.
func validateColumnRefs(ref *schema.TableRef, refs []schema.ColumnRef) error {
	seen := make(map[string]bool, len(refs))
	for idx, cr := range refs {
		if cr.TableRef != ref {
			return errors.SchemaInconsistencyError(ref.Name(),
				"column %d of the projection refers to table %s", idx, cr.TableRef.Name())
		}
		if cr.Position < 0 || cr.Position >= len(ref.Table.Columns) {
			return errors.ColumnIndexOutOfRangeError(ref.Name(), idx, cr.Position, len(ref.Table.Columns))
		}
		name := cr.Column().Name
		if seen[name] {
			return errors.DuplicateColumnError(name, ref.Name())
		}
		seen[name] = true
	}
	return nil
}

func (i *PlanImplementor) CreateRowProjector() (*projector.RowProjector, error) {
	ref := i.tableRef
	if ref == nil {
		return nil, errors.NoCurrentTableError("CreateRowProjector")
	}

	visible := ref.Table.VisibleColumns()
	columns := make([]projector.ColumnProjector, 0, len(visible))
	for idx, col := range visible {
		// resolve by visible index, not by col.Position
		e, err := i.NewColumnExpression(idx)
		if err != nil {
			return nil, err
		}
		columns = append(columns, projector.NewExpressionProjector(col.Name, ref.Table.Name, e, false))
	}
	return projector.NewRowProjector(columns, 0, false), nil
}

func (i *PlanImplementor) Project(exprs []expr.Expression) (*projector.TupleProjector, error) {
	b := kvschema.NewBuilder().Compression(i.threshold)
	columns := make([]*schema.Column, len(exprs))
	for idx, e := range exprs {
		b.AddField(e)
		columns[idx] = &schema.Column{
			Name:      i.NewTempAlias(),
			Family:    i.cfg.Planner.ValueFamily,
			DataType:  e.DataType(),
			MaxLength: e.MaxLength(),
			Scale:     e.Scale(),
			Nullable:  e.Nullable(),
			Position:  idx,
			SortOrder: e.SortOrder(),
		}
	}

	table, err := schema.NewSyntheticTable(schema.KindSubquery, columns)
	if err != nil {
		return nil, errors.FatalError("Project", err)
	}
	tp, err := projector.NewTupleProjector(b.Build(), exprs)
	if err != nil {
		return nil, errors.FatalError("Project", err)
	}

	i.SetTableRef(schema.NewTableRef(i.NewTempAlias(), table, schema.LatestTimestamp, false))
	i.logger.Debug("projected",
		log.String("op", "Project"),
		log.String("table", i.tableRef.Name()),
		log.Int("columns", len(columns)))
	return tp, nil
}

func (i *PlanImplementor) NewTempAlias() string {
	i.aliasSeq++
	return fmt.Sprintf("%s%d", i.cfg.Planner.TempAliasPrefix, i.aliasSeq)
}
