package types

import (
	"encoding/binary"
	"fmt"
	"math"
)

func init() {
	SmallInt = &intType{name: "SMALLINT", width: 2}
	Integer = &intType{name: "INTEGER", width: 4}
	BigInt = &intType{name: "BIGINT", width: 8}
	Double = &doubleType{}
}

// intType implements the fixed-width signed integer types.
// SMALLINT holds int16, INTEGER int32, BIGINT int64.
type intType struct {
	name  string
	width int
}

func (t *intType) Name() string {
	return t.name
}

func (t *intType) Size() int {
	return t.width
}

func (t *intType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *intType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}
	if !t.IsValid(v) {
		return nil, fmt.Errorf("expected %s value, got %T", t.name, v.Data)
	}
	n, _ := v.AsInt64()

	buf := make([]byte, t.width)
	switch t.width {
	case 2:
		binary.BigEndian.PutUint16(buf, uint16(n)) //nolint:gosec // width checked by IsValid
	case 4:
		binary.BigEndian.PutUint32(buf, uint32(n)) //nolint:gosec // width checked by IsValid
	default:
		binary.BigEndian.PutUint64(buf, uint64(n)) //nolint:gosec // two's complement round trip
	}
	return buf, nil
}

func (t *intType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}
	if len(data) != t.width {
		return Value{}, fmt.Errorf("expected %d bytes for %s, got %d", t.width, t.name, len(data))
	}

	switch t.width {
	case 2:
		return NewValue(int16(binary.BigEndian.Uint16(data))), nil //nolint:gosec // two's complement round trip
	case 4:
		return NewValue(int32(binary.BigEndian.Uint32(data))), nil //nolint:gosec // two's complement round trip
	default:
		return NewValue(int64(binary.BigEndian.Uint64(data))), nil //nolint:gosec // two's complement round trip
	}
}

func (t *intType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	switch v.Data.(type) {
	case int16:
		return true
	case int32:
		return t.width >= 4
	case int64:
		return t.width == 8
	}
	return false
}

func (t *intType) Zero() Value {
	switch t.width {
	case 2:
		return NewValue(int16(0))
	case 4:
		return NewValue(int32(0))
	default:
		return NewValue(int64(0))
	}
}

// doubleType implements DOUBLE PRECISION.
type doubleType struct{}

func (t *doubleType) Name() string {
	return "DOUBLE PRECISION"
}

func (t *doubleType) Size() int {
	return 8
}

func (t *doubleType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *doubleType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}
	f, err := v.AsDouble()
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, math.Float64bits(f))
	return buf, nil
}

func (t *doubleType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}
	if len(data) != 8 {
		return Value{}, fmt.Errorf("expected 8 bytes for DOUBLE PRECISION, got %d", len(data))
	}
	return NewValue(math.Float64frombits(binary.BigEndian.Uint64(data))), nil
}

func (t *doubleType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(float64)
	return ok
}

func (t *doubleType) Zero() Value {
	return NewValue(float64(0))
}

// NewIntegerValue creates a new INTEGER value
func NewIntegerValue(i int32) Value {
	return NewValue(i)
}

// NewBigIntValue creates a new BIGINT value
func NewBigIntValue(i int64) Value {
	return NewValue(i)
}

// NewDoubleValue creates a new DOUBLE PRECISION value
func NewDoubleValue(f float64) Value {
	return NewValue(f)
}
