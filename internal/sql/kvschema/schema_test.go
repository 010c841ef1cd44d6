package kvschema

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

type field struct {
	dt       types.DataType
	maxLen   int
	nullable bool
}

func (f field) DataType() types.DataType    { return f.dt }
func (f field) MaxLength() int              { return f.maxLen }
func (f field) Nullable() bool              { return f.nullable }
func (f field) SortOrder() schema.SortOrder { return schema.Ascending }

func testSchema(threshold int) *Schema {
	return NewBuilder().
		AddField(field{dt: types.Integer}).
		AddField(field{dt: types.Varchar(20), maxLen: 20, nullable: true}).
		AddField(field{dt: types.Double, nullable: true}).
		AddField(field{dt: types.Boolean, nullable: true}).
		AddField(field{dt: types.Timestamp, nullable: true}).
		AddField(field{dt: types.Text, nullable: true}).
		Compression(threshold).
		Build()
}

func TestBuilder(t *testing.T) {
	b := NewBuilder().AddField(field{dt: types.BigInt})
	s1 := b.Build()
	b.AddField(field{dt: types.Text, nullable: true})
	s2 := b.Build()

	assert.Equal(t, 1, s1.FieldCount(), "earlier schema must not see later fields")
	assert.Equal(t, 2, s2.FieldCount())
	assert.Equal(t, 8, s1.Fields()[0].ByteSize())
	assert.Equal(t, -1, s2.Fields()[1].ByteSize())
	assert.Equal(t, "[BIGINT, TEXT NULL]", s2.String())

	// header + bitmap + bigint
	assert.Equal(t, 1+1+8, s1.EstimatedByteSize())
	// + 16 for unbounded text
	assert.Equal(t, 1+1+8+16, s2.EstimatedByteSize())
}

func TestEncodeDecode(t *testing.T) {
	ts := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		values []types.Value
	}{
		{
			name: "all set",
			values: []types.Value{
				types.NewIntegerValue(7),
				types.NewTextValue("alice"),
				types.NewDoubleValue(12.5),
				types.NewValue(true),
				types.NewTimestampValue(ts),
				types.NewTextValue("engineering"),
			},
		},
		{
			name: "nulls",
			values: []types.Value{
				types.NewIntegerValue(-1),
				types.NewNullValue(),
				types.NewNullValue(),
				types.NewNullValue(),
				types.NewNullValue(),
				types.NewNullValue(),
			},
		},
		{
			name: "empty strings",
			values: []types.Value{
				types.NewIntegerValue(0),
				types.NewTextValue(""),
				types.NewDoubleValue(0),
				types.NewValue(false),
				types.NewNullValue(),
				types.NewTextValue(""),
			},
		},
	}

	s := testSchema(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := s.Encode(tt.values)
			require.NoError(t, err)
			assert.Equal(t, byte(0), data[0])

			got, err := s.Decode(data)
			require.NoError(t, err)
			require.Len(t, got, len(tt.values))
			for i := range tt.values {
				assert.True(t, tt.values[i].Null == got[i].Null, "field %d null flag", i)
				if !tt.values[i].Null {
					assert.True(t, tt.values[i].Equal(got[i]), "field %d: %v != %v", i, tt.values[i], got[i])
				}
			}
		})
	}
}

func TestEncodeErrors(t *testing.T) {
	s := testSchema(0)

	_, err := s.Encode([]types.Value{types.NewIntegerValue(1)})
	require.Error(t, err)
	assert.Equal(t, errors.DataException, errors.GetError(err).Code)

	values := []types.Value{
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
	}
	_, err = s.Encode(values)
	require.Error(t, err, "first field is not nullable")

	values[0] = types.NewIntegerValue(1)
	values[1] = types.NewTextValue(strings.Repeat("x", 21))
	_, err = s.Encode(values)
	require.Error(t, err, "value exceeds VARCHAR(20)")
}

func TestCompression(t *testing.T) {
	s := testSchema(64)
	long := strings.Repeat("abcd", 200)
	values := []types.Value{
		types.NewIntegerValue(1),
		types.NewTextValue("short"),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewTextValue(long),
	}

	data, err := s.Encode(values)
	require.NoError(t, err)
	assert.Equal(t, flagCompressed, data[0])
	assert.Less(t, len(data), len(long))

	got, err := s.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, long, got[5].Data)
	assert.Equal(t, "short", got[1].Data)

	t.Run("small rows stay uncompressed", func(t *testing.T) {
		values[5] = types.NewTextValue("x")
		data, err := s.Encode(values)
		require.NoError(t, err)
		assert.Equal(t, byte(0), data[0])
	})
}

func TestDecodeCorrupt(t *testing.T) {
	s := testSchema(0)
	data, err := s.Encode([]types.Value{
		types.NewIntegerValue(1),
		types.NewTextValue("bob"),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
		types.NewNullValue(),
	})
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"truncated", data[:len(data)-1]},
		{"trailing", append(append([]byte{}, data...), 0xff)},
		{"bad compressed", []byte{flagCompressed, 0x10, 0x01}},
		{"huge compressed length", binary.AppendUvarint([]byte{flagCompressed}, math.MaxInt64)},
		{"compressed length above ratio", append(binary.AppendUvarint([]byte{flagCompressed}, 4096), 0x10, 0x01)},
		{"huge field length", binary.AppendUvarint([]byte{0, 0x3c, 0, 0, 0, 1}, math.MaxUint64)},
		{"field length past end", binary.AppendUvarint([]byte{0, 0x3c, 0, 0, 0, 1}, 1<<40)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Decode(tt.data)
			require.Error(t, err)
			assert.Equal(t, errors.DataCorrupted, errors.GetError(err).Code)
		})
	}
}
