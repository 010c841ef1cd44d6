package types

import (
	"fmt"
	"strings"
	"time"
)

// DataType represents a SQL data type
type DataType interface {
	// Name returns the SQL name of the type (e.g., "INTEGER", "VARCHAR(20)")
	Name() string

	// Size returns the fixed storage size in bytes (-1 for variable size)
	Size() int

	// Compare compares two values of this type
	// Returns: -1 if a < b, 0 if a == b, 1 if a > b
	Compare(a, b Value) int

	// Serialize converts a value to bytes for storage
	Serialize(v Value) ([]byte, error)

	// Deserialize converts bytes back to a value
	Deserialize(data []byte) (Value, error)

	// IsValid checks if a value is valid for this type
	IsValid(v Value) bool

	// Zero returns the zero value for this type
	Zero() Value
}

// Value represents a SQL value that can be NULL
type Value struct {
	Data interface{}
	Null bool
}

// NewValue creates a non-null value
func NewValue(data interface{}) Value {
	return Value{Data: data, Null: false}
}

// NewNullValue creates a null value
func NewNullValue() Value {
	return Value{Data: nil, Null: true}
}

// IsNull returns true if the value is NULL
func (v Value) IsNull() bool {
	return v.Null
}

// String returns a string representation of the value
func (v Value) String() string {
	if v.Null {
		return "NULL"
	}
	return fmt.Sprintf("%v", v.Data)
}

// AsBool returns the value as a boolean
func (v Value) AsBool() (bool, error) {
	if v.Null {
		return false, fmt.Errorf("cannot convert NULL to bool")
	}
	if b, ok := v.Data.(bool); ok {
		return b, nil
	}
	return false, fmt.Errorf("cannot convert %T to bool", v.Data)
}

// AsInt64 widens any integer value to int64
func (v Value) AsInt64() (int64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to bigint")
	}
	switch val := v.Data.(type) {
	case int16:
		return int64(val), nil
	case int32:
		return int64(val), nil
	case int64:
		return val, nil
	case int:
		return int64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to bigint", v.Data)
	}
}

// AsDouble returns the value as a float64
func (v Value) AsDouble() (float64, error) {
	if v.Null {
		return 0, fmt.Errorf("cannot convert NULL to double")
	}
	switch val := v.Data.(type) {
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("cannot convert %T to double", v.Data)
	}
}

// AsString returns the value as a string
func (v Value) AsString() (string, error) {
	if v.Null {
		return "", fmt.Errorf("cannot convert NULL to string")
	}
	if s, ok := v.Data.(string); ok {
		return s, nil
	}
	return "", fmt.Errorf("cannot convert %T to string", v.Data)
}

// Type returns the DataType of the value based on its underlying type
func (v Value) Type() DataType {
	if v.Null {
		return Unknown
	}
	switch v.Data.(type) {
	case int32:
		return Integer
	case int64:
		return BigInt
	case int16:
		return SmallInt
	case string:
		return Text
	case bool:
		return Boolean
	case float64:
		return Double
	case time.Time:
		return Timestamp
	default:
		return Unknown
	}
}

// Equal returns true if two values are equal
func (v Value) Equal(other Value) bool {
	return CompareValues(v, other) == 0
}

// CompareValues compares two values, handling NULLs.
// NULL sorts before any non-NULL value. Integers of different widths are
// compared after widening; integers and doubles compare numerically.
func CompareValues(a, b Value) int {
	if a.Null && b.Null {
		return 0
	}
	if a.Null {
		return -1
	}
	if b.Null {
		return 1
	}

	if ai, err := a.AsInt64(); err == nil {
		if bi, err := b.AsInt64(); err == nil {
			return compareOrdered(ai, bi)
		}
	}
	if isNumeric(a) && isNumeric(b) {
		ad, _ := a.AsDouble()
		bd, _ := b.AsDouble()
		return compareOrdered(ad, bd)
	}

	switch v1 := a.Data.(type) {
	case string:
		if v2, ok := b.Data.(string); ok {
			return strings.Compare(v1, v2)
		}
	case bool:
		if v2, ok := b.Data.(bool); ok {
			if !v1 && v2 {
				return -1
			} else if v1 && !v2 {
				return 1
			}
			return 0
		}
	case time.Time:
		if v2, ok := b.Data.(time.Time); ok {
			return v1.Compare(v2)
		}
	}
	// For unsupported types or type mismatches, panic to catch bugs early
	panic(fmt.Sprintf("CompareValues: unsupported or mismatched types: %T vs %T", a.Data, b.Data))
}

func isNumeric(v Value) bool {
	switch v.Data.(type) {
	case int16, int32, int64, int, float32, float64:
		return true
	}
	return false
}

func compareOrdered[T int64 | float64](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

// IsNumericType reports whether values of dt support arithmetic
func IsNumericType(dt DataType) bool {
	switch dt {
	case SmallInt, Integer, BigInt, Double:
		return true
	}
	return false
}

// IsTextType reports whether dt is TEXT or a VARCHAR(n)
func IsTextType(dt DataType) bool {
	if dt == Text {
		return true
	}
	_, ok := dt.(*varcharType)
	return ok
}

// Compatible reports whether a value of type from may be read as type to
// without conversion. Integer widths are interchangeable, as are the
// character types; everything else must match by name. Unknown is
// compatible with every type.
func Compatible(from, to DataType) bool {
	if from == nil || to == nil {
		return false
	}
	if from == Unknown || to == Unknown {
		return true
	}
	if from.Name() == to.Name() {
		return true
	}
	if IsTextType(from) && IsTextType(to) {
		return true
	}
	return isIntegerType(from) && isIntegerType(to)
}

func isIntegerType(dt DataType) bool {
	return dt == SmallInt || dt == Integer || dt == BigInt
}

// Common SQL types
var (
	Integer   DataType
	BigInt    DataType
	SmallInt  DataType
	Boolean   DataType
	Varchar   func(size int) DataType
	Text      DataType
	Timestamp DataType
	Double    DataType
)

// Row represents a row of data
type Row struct {
	Values []Value
}

// NewRow creates a new row with the given values
func NewRow(values ...Value) Row {
	return Row{Values: values}
}

// Get returns the value at the given index
func (r Row) Get(index int) Value {
	if index < 0 || index >= len(r.Values) {
		return NewNullValue()
	}
	return r.Values[index]
}
