// Package kvschema describes and encodes packed rows: an ordered list of
// typed fields stored as a null bitmap followed by the non-null field
// values. Large payloads may be LZ4 block compressed.
package kvschema

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/pierrec/lz4/v4"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

const (
	flagCompressed byte = 1 << iota
)

// LZ4 cannot expand a block by more than this factor.
const maxCompressionRatio = 255

// FieldSource is anything that can describe a field, typically the
// expression producing its value.
type FieldSource interface {
	DataType() types.DataType
	MaxLength() int
	Nullable() bool
	SortOrder() schema.SortOrder
}

// Field is one packed field.
type Field struct {
	DataType  types.DataType
	MaxLength int
	Nullable  bool
	SortOrder schema.SortOrder
}

// ByteSize returns the fixed width of the field, or -1 if variable.
func (f Field) ByteSize() int {
	return f.DataType.Size()
}

// Builder accumulates fields in order.
type Builder struct {
	fields               []Field
	compressionThreshold int
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// AddField appends a field described by src.
func (b *Builder) AddField(src FieldSource) *Builder {
	b.fields = append(b.fields, Field{
		DataType:  src.DataType(),
		MaxLength: src.MaxLength(),
		Nullable:  src.Nullable(),
		SortOrder: src.SortOrder(),
	})
	return b
}

// Compression enables LZ4 compression of payloads of at least threshold
// bytes. A threshold of 0 disables compression.
func (b *Builder) Compression(threshold int) *Builder {
	b.compressionThreshold = threshold
	return b
}

// Build returns the schema. The builder may be reused afterwards without
// affecting the returned schema.
func (b *Builder) Build() *Schema {
	fields := make([]Field, len(b.fields))
	copy(fields, b.fields)
	return &Schema{fields: fields, compressionThreshold: b.compressionThreshold}
}

// Schema is an immutable packed row layout.
type Schema struct {
	fields               []Field
	compressionThreshold int
}

// Fields returns the fields in order.
func (s *Schema) Fields() []Field {
	return s.fields
}

// FieldCount returns the number of fields.
func (s *Schema) FieldCount() int {
	return len(s.fields)
}

// EstimatedByteSize estimates the encoded size of one row, counting
// variable width fields at their maximum length when declared and at 16
// bytes otherwise.
func (s *Schema) EstimatedByteSize() int {
	size := 1 + bitmapLen(len(s.fields))
	for _, f := range s.fields {
		switch {
		case f.ByteSize() >= 0:
			size += f.ByteSize()
		case f.MaxLength > 0:
			size += f.MaxLength + 1
		default:
			size += 16
		}
	}
	return size
}

func bitmapLen(n int) int {
	return (n + 7) / 8
}

// Encode packs one row. values must match the schema field for field.
func (s *Schema) Encode(values []types.Value) ([]byte, error) {
	if len(values) != len(s.fields) {
		return nil, errors.Newf(errors.DataException,
			"row has %d values but schema has %d fields", len(values), len(s.fields))
	}

	payload := make([]byte, bitmapLen(len(s.fields)), s.EstimatedByteSize())
	for i, v := range values {
		f := s.fields[i]
		if v.IsNull() {
			if !f.Nullable {
				return nil, errors.Newf(errors.DataException, "null value in non-nullable field %d", i)
			}
			payload[i/8] |= 1 << (i % 8)
			continue
		}

		data, err := f.DataType.Serialize(v)
		if err != nil {
			return nil, errors.Newf(errors.DataException, "field %d: %v", i, err).WithCause(err)
		}
		if f.ByteSize() < 0 {
			payload = binary.AppendUvarint(payload, uint64(len(data)))
		}
		payload = append(payload, data...)
	}

	if s.compressionThreshold > 0 && len(payload) >= s.compressionThreshold {
		if out, ok := compress(payload); ok {
			return out, nil
		}
	}
	return append([]byte{0}, payload...), nil
}

// compress returns flag + uvarint(original length) + LZ4 block, or false
// when the payload does not shrink.
func compress(payload []byte) ([]byte, bool) {
	var c lz4.Compressor
	dst := make([]byte, lz4.CompressBlockBound(len(payload)))
	n, err := c.CompressBlock(payload, dst)
	if err != nil || n == 0 || n >= len(payload) {
		return nil, false
	}

	out := make([]byte, 0, 1+binary.MaxVarintLen64+n)
	out = append(out, flagCompressed)
	out = binary.AppendUvarint(out, uint64(len(payload)))
	return append(out, dst[:n]...), true
}

// Decode unpacks a row produced by Encode.
func (s *Schema) Decode(data []byte) ([]types.Value, error) {
	if len(data) == 0 {
		return nil, errors.StorageCorruptionError("empty packed row")
	}

	payload := data[1:]
	if data[0]&flagCompressed != 0 {
		size, n := binary.Uvarint(payload)
		if n <= 0 {
			return nil, errors.StorageCorruptionError("bad compressed length")
		}
		if size > maxCompressionRatio*uint64(len(payload)) || size > math.MaxInt32 {
			return nil, errors.StorageCorruptionError(
				fmt.Sprintf("compressed length %d out of range for %d byte block", size, len(payload)))
		}
		buf := make([]byte, size)
		m, err := lz4.UncompressBlock(payload[n:], buf)
		if err != nil {
			return nil, errors.StorageCorruptionError(fmt.Sprintf("LZ4 decompression failed: %v", err))
		}
		if uint64(m) != size {
			return nil, errors.StorageCorruptionError(
				fmt.Sprintf("LZ4 decompression size mismatch: expected %d, got %d", size, m))
		}
		payload = buf
	}

	bm := bitmapLen(len(s.fields))
	if len(payload) < bm {
		return nil, errors.StorageCorruptionError("packed row shorter than its null bitmap")
	}
	nulls, rest := payload[:bm], payload[bm:]

	values := make([]types.Value, len(s.fields))
	for i, f := range s.fields {
		if nulls[i/8]&(1<<(i%8)) != 0 {
			values[i] = types.NewNullValue()
			continue
		}

		width := f.ByteSize()
		if width < 0 {
			l, n := binary.Uvarint(rest)
			if n <= 0 {
				return nil, errors.StorageCorruptionError(fmt.Sprintf("bad length of field %d", i))
			}
			rest = rest[n:]
			if l > uint64(len(rest)) {
				return nil, errors.StorageCorruptionError(fmt.Sprintf("field %d truncated", i))
			}
			width = int(l) //nolint:gosec // l <= len(rest)
		}
		if width > len(rest) {
			return nil, errors.StorageCorruptionError(fmt.Sprintf("field %d truncated", i))
		}

		v, err := f.DataType.Deserialize(rest[:width:width])
		if err != nil {
			return nil, errors.StorageCorruptionError(fmt.Sprintf("field %d: %v", i, err))
		}
		values[i] = v
		rest = rest[width:]
	}
	if len(rest) != 0 {
		return nil, errors.StorageCorruptionError(fmt.Sprintf("%d trailing bytes after last field", len(rest)))
	}
	return values, nil
}

func (s *Schema) String() string {
	parts := make([]string, len(s.fields))
	for i, f := range s.fields {
		parts[i] = f.DataType.Name()
		if f.Nullable {
			parts[i] += " NULL"
		}
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
