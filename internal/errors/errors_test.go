package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorFormatting(t *testing.T) {
	err := ColumnIndexOutOfRangeError("ORDERS", 5, 7, 6)
	assert.Equal(t, InvalidColumnReference, err.Code)
	assert.Contains(t, err.Error(), "column index 5 out of range")
	assert.Contains(t, err.Error(), "SQLSTATE 42P10")
	assert.Contains(t, err.Error(), "Physical position 7")
	assert.Equal(t, "ORDERS", err.Table)
}

func TestIsErrorThroughWrapping(t *testing.T) {
	base := UndefinedCorrelateVariableError("$cor0")
	wrapped := fmt.Errorf("building filter: %w", base)

	assert.True(t, IsError(wrapped, UndefinedObject))
	assert.False(t, IsError(wrapped, InternalError))
	assert.False(t, IsError(nil, UndefinedObject))
	assert.Same(t, base, GetError(wrapped))
}

func TestGetErrorWrapsForeignErrors(t *testing.T) {
	plain := stderrors.New("boom")
	got := GetError(plain)
	require.NotNil(t, got)
	assert.Equal(t, InternalError, got.Code)
	assert.ErrorIs(t, got, plain)
	assert.Nil(t, GetError(nil))
}

func TestFatalError(t *testing.T) {
	cause := SchemaInconsistencyError("T", "column %q not in source", "X")
	fatal := FatalError("CreateProjectedTable", cause)

	assert.True(t, fatal.Fatal)
	assert.True(t, IsFatal(fatal))
	assert.True(t, IsFatal(fmt.Errorf("outer: %w", fatal)))
	assert.False(t, IsFatal(cause))
	assert.False(t, IsRetryable(fatal))
	assert.True(t, IsError(fatal, InternalError))

	var inner *Error
	require.True(t, stderrors.As(fatal.Cause, &inner))
	assert.Equal(t, InvalidTableDefinition, inner.Code)
	assert.Contains(t, fatal.Error(), "CreateProjectedTable: ")
}

func TestContextStackUnderflowIsFatal(t *testing.T) {
	err := ContextStackUnderflowError("PopContext")
	assert.True(t, IsFatal(err))
	assert.Equal(t, "PopContext", err.Where)
}
