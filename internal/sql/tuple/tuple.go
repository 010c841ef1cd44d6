// Package tuple defines the row shape expressions are evaluated against.
// A tuple exposes its values by physical position of the table it was
// read from or projected into.
package tuple

import (
	"strings"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Tuple is a row addressed by physical column position.
type Tuple interface {
	Size() int
	Value(pos int) (types.Value, error)
}

// ValueTuple is a Tuple backed by a slice of values.
type ValueTuple struct {
	values []types.Value
}

// New creates a tuple over values. The slice is not copied.
func New(values ...types.Value) *ValueTuple {
	return &ValueTuple{values: values}
}

func (t *ValueTuple) Size() int {
	return len(t.values)
}

func (t *ValueTuple) Value(pos int) (types.Value, error) {
	if pos < 0 || pos >= len(t.values) {
		return types.Value{}, errors.Newf(errors.InvalidColumnReference,
			"tuple position %d out of range [0, %d)", pos, len(t.values))
	}
	return t.values[pos], nil
}

// Values returns the backing slice.
func (t *ValueTuple) Values() []types.Value {
	return t.values
}

func (t *ValueTuple) String() string {
	return Format(t)
}

// joinedTuple exposes left's values followed by right's.
type joinedTuple struct {
	left, right Tuple
}

// Join concatenates two tuples. A nil right side stands for an outer join
// miss and reads as rightSize NULLs.
func Join(left, right Tuple, rightSize int) Tuple {
	if right == nil {
		right = New(nulls(rightSize)...)
	}
	return &joinedTuple{left: left, right: right}
}

func nulls(n int) []types.Value {
	vals := make([]types.Value, n)
	for i := range vals {
		vals[i] = types.NewNullValue()
	}
	return vals
}

func (t *joinedTuple) Size() int {
	return t.left.Size() + t.right.Size()
}

func (t *joinedTuple) Value(pos int) (types.Value, error) {
	if pos < t.left.Size() {
		return t.left.Value(pos)
	}
	return t.right.Value(pos - t.left.Size())
}

// Materialize copies every value of t into a ValueTuple.
func Materialize(t Tuple) (*ValueTuple, error) {
	if vt, ok := t.(*ValueTuple); ok {
		return vt, nil
	}
	vals := make([]types.Value, t.Size())
	for i := range vals {
		v, err := t.Value(i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return New(vals...), nil
}

// Format renders a tuple as "[v1, v2, ...]".
func Format(t Tuple) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < t.Size(); i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		v, err := t.Value(i)
		if err != nil {
			sb.WriteString("?")
			continue
		}
		sb.WriteString(v.String())
	}
	sb.WriteByte(']')
	return sb.String()
}
