package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIntegerTypes(t *testing.T) {
	tests := []struct {
		name  string
		dt    DataType
		value Value
		size  int
	}{
		{"SMALLINT", SmallInt, NewValue(int16(-7)), 2},
		{"INTEGER", Integer, NewIntegerValue(42), 4},
		{"BIGINT", BigInt, NewBigIntValue(1234567890123456), 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.dt.Name())
			assert.Equal(t, tt.size, tt.dt.Size())

			data, err := tt.dt.Serialize(tt.value)
			require.NoError(t, err)
			assert.Len(t, data, tt.size)

			got, err := tt.dt.Deserialize(data)
			require.NoError(t, err)
			assert.Equal(t, tt.value.Data, got.Data)

			null, err := tt.dt.Serialize(NewNullValue())
			require.NoError(t, err)
			assert.Empty(t, null)

			v, err := tt.dt.Deserialize(nil)
			require.NoError(t, err)
			assert.True(t, v.IsNull())
		})
	}
}

func TestIntegerWidening(t *testing.T) {
	assert.True(t, BigInt.IsValid(NewIntegerValue(1)))
	assert.False(t, Integer.IsValid(NewBigIntValue(1)))
	assert.Equal(t, 0, CompareValues(NewIntegerValue(5), NewBigIntValue(5)))
	assert.Equal(t, -1, CompareValues(NewIntegerValue(5), NewDoubleValue(5.5)))
}

func TestVarchar(t *testing.T) {
	vc := Varchar(3)
	assert.Equal(t, "VARCHAR(3)", vc.Name())
	assert.Equal(t, 3, MaxLengthOf(vc))
	assert.Equal(t, "TEXT", Text.Name())
	assert.Equal(t, 0, MaxLengthOf(Text))

	_, err := vc.Serialize(NewTextValue("abcd"))
	assert.Error(t, err)

	data, err := vc.Serialize(NewTextValue("héé"))
	require.NoError(t, err)
	v, err := vc.Deserialize(data)
	require.NoError(t, err)
	assert.Equal(t, "héé", v.Data)
}

func TestTimestampRoundTrip(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	data, err := Timestamp.Serialize(NewTimestampValue(ts))
	require.NoError(t, err)
	v, err := Timestamp.Deserialize(data)
	require.NoError(t, err)
	assert.True(t, ts.Equal(v.Data.(time.Time)))
}

func TestCompatible(t *testing.T) {
	assert.True(t, Compatible(Integer, BigInt))
	assert.True(t, Compatible(Varchar(10), Text))
	assert.True(t, Compatible(Unknown, Boolean))
	assert.False(t, Compatible(Boolean, Integer))
	assert.False(t, Compatible(Text, Double))
	assert.False(t, Compatible(nil, Integer))
}

func TestCompareValuesNulls(t *testing.T) {
	assert.Equal(t, 0, CompareValues(NewNullValue(), NewNullValue()))
	assert.Equal(t, -1, CompareValues(NewNullValue(), NewTextValue("a")))
	assert.Equal(t, 1, CompareValues(NewBooleanValue(true), NewBooleanValue(false)))
	assert.Panics(t, func() { CompareValues(NewTextValue("a"), NewBooleanValue(true)) })
}
