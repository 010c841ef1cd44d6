package types

import (
	"encoding/binary"
	"fmt"
	"time"
)

func init() {
	Timestamp = &timestampType{}
}

// timestampType implements TIMESTAMP, stored as UTC Unix nanoseconds.
type timestampType struct{}

func (t *timestampType) Name() string {
	return "TIMESTAMP"
}

func (t *timestampType) Size() int {
	return 8
}

func (t *timestampType) Compare(a, b Value) int {
	return CompareValues(a, b)
}

func (t *timestampType) Serialize(v Value) ([]byte, error) {
	if v.Null {
		return nil, nil
	}
	val, ok := v.Data.(time.Time)
	if !ok {
		return nil, fmt.Errorf("expected time.Time, got %T", v.Data)
	}
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(val.UnixNano())) //nolint:gosec // two's complement round trip
	return buf, nil
}

func (t *timestampType) Deserialize(data []byte) (Value, error) {
	if data == nil {
		return NewNullValue(), nil
	}
	if len(data) != 8 {
		return Value{}, fmt.Errorf("expected 8 bytes for TIMESTAMP, got %d", len(data))
	}
	nano := int64(binary.BigEndian.Uint64(data)) //nolint:gosec // two's complement round trip
	return NewValue(time.Unix(0, nano).UTC()), nil
}

func (t *timestampType) IsValid(v Value) bool {
	if v.Null {
		return true
	}
	_, ok := v.Data.(time.Time)
	return ok
}

func (t *timestampType) Zero() Value {
	return NewValue(time.Unix(0, 0).UTC())
}

// NewTimestampValue creates a new TIMESTAMP value
func NewTimestampValue(ts time.Time) Value {
	return NewValue(ts.UTC())
}
