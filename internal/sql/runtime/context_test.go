package runtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/tuple"
	"github.com/dshills/cfplan/internal/sql/types"
)

func testRef(t *testing.T) *schema.TableRef {
	t.Helper()
	table, err := schema.NewTable(schema.TableDef{
		Name:    "DEPT",
		Columns: []*schema.Column{{Name: "ID", DataType: types.Integer, PrimaryKey: true}},
	})
	require.NoError(t, err)
	return schema.NewTableRef("D", table, schema.LatestTimestamp, false)
}

func TestCorrelateVariableDefinition(t *testing.T) {
	ctx := NewContext()
	ref := testRef(t)

	_, err := ctx.CorrelateVariableDef("$cor0")
	require.Error(t, err)
	assert.True(t, errors.IsError(err, errors.UndefinedObject))

	ctx.DefineCorrelateVariable("$cor0", ref)
	got, err := ctx.CorrelateVariableDef("$cor0")
	require.NoError(t, err)
	assert.Same(t, ref, got)
	assert.Equal(t, []string{"$cor0"}, ctx.VariableIDs())
}

func TestCorrelateVariableValue(t *testing.T) {
	ctx := NewContext()

	err := ctx.SetCorrelateVariableValue("$cor0", tuple.New())
	assert.True(t, errors.IsError(err, errors.UndefinedObject))

	ctx.DefineCorrelateVariable("$cor0", testRef(t))
	_, err = ctx.CorrelateVariableValue("$cor0")
	assert.True(t, errors.IsError(err, errors.ObjectNotInPrerequisiteState))

	row := tuple.New(types.NewIntegerValue(7))
	require.NoError(t, ctx.SetCorrelateVariableValue("$cor0", row))
	got, err := ctx.CorrelateVariableValue("$cor0")
	require.NoError(t, err)
	assert.Same(t, row, got)

	// Redefinition clears the bound row.
	ctx.DefineCorrelateVariable("$cor0", testRef(t))
	_, err = ctx.CorrelateVariableValue("$cor0")
	assert.Error(t, err)
}

func TestContextConcurrentAccess(t *testing.T) {
	ctx := NewContext()
	ctx.DefineCorrelateVariable("$cor0", testRef(t))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				_ = ctx.SetCorrelateVariableValue("$cor0", tuple.New(types.NewIntegerValue(int32(i))))
				_, _ = ctx.CorrelateVariableValue("$cor0")
			}
		}(i)
	}
	wg.Wait()

	_, err := ctx.CorrelateVariableValue("$cor0")
	assert.NoError(t, err)
}
