package tuple

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/sql/types"
)

func TestValueTuple(t *testing.T) {
	tup := New(types.NewIntegerValue(1), types.NewTextValue("a"))
	assert.Equal(t, 2, tup.Size())

	v, err := tup.Value(1)
	require.NoError(t, err)
	assert.Equal(t, "a", v.Data)

	_, err = tup.Value(2)
	assert.Error(t, err)
	_, err = tup.Value(-1)
	assert.Error(t, err)
	assert.Equal(t, "[1, a]", tup.String())
}

func TestJoin(t *testing.T) {
	left := New(types.NewIntegerValue(1))
	right := New(types.NewTextValue("x"), types.NewBooleanValue(true))

	joined := Join(left, right, 2)
	require.Equal(t, 3, joined.Size())
	v, err := joined.Value(2)
	require.NoError(t, err)
	assert.Equal(t, true, v.Data)

	miss := Join(left, nil, 2)
	require.Equal(t, 3, miss.Size())
	v, err = miss.Value(1)
	require.NoError(t, err)
	assert.True(t, v.IsNull())

	m, err := Materialize(joined)
	require.NoError(t, err)
	assert.Equal(t, "[1, x, true]", m.String())
}
