// Package plan contains the physical query plans the implementor builds.
// A plan describes its output rows through a table reference and produces
// them through an exec.Iterator.
package plan

import (
	"context"
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/exec"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Plan is a physical plan node.
type Plan interface {
	// TableRef describes the layout of the rows the plan produces.
	TableRef() *schema.TableRef
	// Children returns the input plans.
	Children() []Plan
	// Describe returns a one line description of this node.
	Describe() string
	// Iterator starts executing the plan.
	Iterator(ctx context.Context, ec *exec.Context) (exec.Iterator, error)
}

// Explain renders p and its inputs, one node per line, inputs indented
// below their parent.
func Explain(p Plan) []string {
	var lines []string
	var walk func(p Plan, depth int)
	walk = func(p Plan, depth int) {
		lines = append(lines, strings.Repeat("    ", depth)+p.Describe())
		for _, c := range p.Children() {
			walk(c, depth+1)
		}
	}
	walk(p, 0)
	return lines
}

// checkCanceled converts context cancellation into a query canceled error.
func checkCanceled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return errors.QueryCanceledError().WithCause(err)
	}
	return nil
}

// isTrue evaluates a condition; NULL counts as false.
func isTrue(v types.Value) bool {
	b, err := v.AsBool()
	return err == nil && b
}

func nullTuple(n int) tuple.Tuple {
	vals := make([]types.Value, n)
	for i := range vals {
		vals[i] = types.NewNullValue()
	}
	return tuple.New(vals...)
}

// funcIterator adapts a next function to exec.Iterator.
type funcIterator struct {
	next  func() (tuple.Tuple, error)
	close func() error
}

func (it *funcIterator) Next() (tuple.Tuple, error) {
	return it.next()
}

func (it *funcIterator) Close() error {
	if it.close == nil {
		return nil
	}
	return it.close()
}
