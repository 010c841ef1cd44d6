package types

import (
	"fmt"
	"unicode/utf8"
)

func init() {
	Varchar = func(maxLen int) DataType {
		return &varcharType{maxLen: maxLen}
	}
	Text = &varcharType{}
}

// varcharType implements VARCHAR(n) and, with maxLen 0, unbounded TEXT.
// Strings are stored as raw UTF-8 without a length prefix; the packed row
// format records field boundaries.
type varcharType struct {
	maxLen int
}

func (t *varcharType) Name() string {
	if t.maxLen == 0 {
		return "TEXT"
	}
	return fmt.Sprintf("VARCHAR(%d)", t.maxLen)
}

func (t *varcharType) Size() int {
	return -1
}

// MaxLength returns the declared maximum length, or 0 when unbounded.
func (t *varcharType) MaxLength() int {
	return t.maxLen
}

func (t *varcharType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *varcharType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}
	str, ok := v.Data.(string)
	if !ok {
		return nil, fmt.Errorf("expected string, got %T", v.Data)
	}
	if t.maxLen > 0 && utf8.RuneCountInString(str) > t.maxLen {
		return nil, fmt.Errorf("value too long for type %s", t.Name())
	}
	return []byte(str), nil
}

func (t *varcharType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}
	if !utf8.Valid(data) {
		return Value{}, fmt.Errorf("invalid UTF-8 in %s data", t.Name())
	}
	return NewValue(string(data)), nil
}

func (t *varcharType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	str, ok := v.Data.(string)
	if !ok {
		return false
	}
	return t.maxLen == 0 || utf8.RuneCountInString(str) <= t.maxLen
}

func (t *varcharType) Zero() Value {
	return NewValue("")
}

// MaxLengthOf returns the declared maximum length of a character type,
// or 0 for every other type.
func MaxLengthOf(dt DataType) int {
	if v, ok := dt.(*varcharType); ok {
		return v.maxLen
	}
	return 0
}

// NewTextValue creates a new TEXT value
func NewTextValue(s string) Value {
	return NewValue(s)
}
