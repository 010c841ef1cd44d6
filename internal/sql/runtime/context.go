// Package runtime holds state shared between plan construction and plan
// execution: the definitions of correlate variables, and at execution time
// the outer row each variable is currently bound to.
package runtime

import (
	"sort"
	"sync"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/tuple"
)

// Context is the runtime correlation context of one query.
// It is safe for concurrent use.
type Context struct {
	mu   sync.RWMutex
	vars map[string]*correlateVariable
}

type correlateVariable struct {
	def   *schema.TableRef
	value tuple.Tuple
}

// NewContext creates an empty runtime context.
func NewContext() *Context {
	return &Context{
		vars: make(map[string]*correlateVariable),
	}
}

// DefineCorrelateVariable records the table whose rows variableID ranges
// over. Redefining a variable replaces its definition and clears any bound
// value.
func (c *Context) DefineCorrelateVariable(variableID string, def *schema.TableRef) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.vars[variableID] = &correlateVariable{def: def}
}

// CorrelateVariableDef returns the defining table of variableID.
func (c *Context) CorrelateVariableDef(variableID string) (*schema.TableRef, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.vars[variableID]
	if !ok {
		return nil, errors.UndefinedCorrelateVariableError(variableID)
	}
	return v.def, nil
}

// SetCorrelateVariableValue binds variableID to the current outer row.
func (c *Context) SetCorrelateVariableValue(variableID string, value tuple.Tuple) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, ok := c.vars[variableID]
	if !ok {
		return errors.UndefinedCorrelateVariableError(variableID)
	}
	v.value = value
	return nil
}

// CorrelateVariableValue returns the outer row variableID is bound to.
func (c *Context) CorrelateVariableValue(variableID string) (tuple.Tuple, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	v, ok := c.vars[variableID]
	if !ok {
		return nil, errors.UndefinedCorrelateVariableError(variableID)
	}
	if v.value == nil {
		return nil, errors.CorrelateVariableNotBoundError(variableID)
	}
	return v.value, nil
}

// VariableIDs returns the defined variable ids in sorted order.
func (c *Context) VariableIDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	ids := make([]string, 0, len(c.vars))
	for id := range c.vars {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
