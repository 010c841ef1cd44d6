package exec

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/dshills/cfplan/internal/errors"
	"github.com/dshills/cfplan/internal/schema"
	"github.com/dshills/cfplan/internal/sql/types"
)

// Row keys concatenate the primary key columns in an order preserving
// encoding, so that byte order of keys equals the SQL order of rows.
//
//	integers, timestamps  big endian with the sign bit flipped
//	double                IEEE bits, sign flipped for positives, all bits for negatives
//	boolean               one byte
//	text                  0x00 escaped as 0x00 0xff, terminated by 0x00 0x01
//
// Descending columns store every byte inverted.

const (
	escapeByte     = 0x00
	escapedZero    = 0xff
	terminatorByte = 0x01
)

func appendKeyValue(dst []byte, col *schema.Column, v types.Value) ([]byte, error) {
	if v.IsNull() {
		return nil, errors.Newf(errors.DataException, "null value in key column %s", col.Name)
	}

	start := len(dst)
	dt := col.DataType
	switch {
	case types.IsTextType(dt):
		s, err := v.AsString()
		if err != nil {
			return nil, err
		}
		for i := 0; i < len(s); i++ {
			if s[i] == escapeByte {
				dst = append(dst, escapeByte, escapedZero)
				continue
			}
			dst = append(dst, s[i])
		}
		dst = append(dst, escapeByte, terminatorByte)
	case dt == types.Double:
		f, err := v.AsDouble()
		if err != nil {
			return nil, err
		}
		bits := math.Float64bits(f)
		if bits&(1<<63) == 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		dst = binary.BigEndian.AppendUint64(dst, bits)
	case dt == types.Boolean:
		b, err := v.AsBool()
		if err != nil {
			return nil, err
		}
		if b {
			dst = append(dst, 1)
		} else {
			dst = append(dst, 0)
		}
	case dt == types.Timestamp:
		ts, ok := v.Data.(time.Time)
		if !ok {
			return nil, errors.DataTypeMismatchError(dt.Name(), v.Type().Name())
		}
		dst = binary.BigEndian.AppendUint64(dst, uint64(ts.UnixNano())^(1<<63)) //nolint:gosec // sign flip
	case types.IsNumericType(dt):
		n, err := v.AsInt64()
		if err != nil {
			return nil, err
		}
		switch dt.Size() {
		case 2:
			dst = binary.BigEndian.AppendUint16(dst, uint16(n)^(1<<15)) //nolint:gosec // sign flip
		case 4:
			dst = binary.BigEndian.AppendUint32(dst, uint32(n)^(1<<31)) //nolint:gosec // sign flip
		default:
			dst = binary.BigEndian.AppendUint64(dst, uint64(n)^(1<<63)) //nolint:gosec // sign flip
		}
	default:
		return nil, errors.FeatureNotSupportedError("key column of type " + dt.Name())
	}

	if col.SortOrder == schema.Descending {
		for i := start; i < len(dst); i++ {
			dst[i] = ^dst[i]
		}
	}
	return dst, nil
}

// decodeKeyValue reads one key column from key and returns the rest.
func decodeKeyValue(key []byte, col *schema.Column) (types.Value, []byte, error) {
	desc := col.SortOrder == schema.Descending
	at := func(i int) byte {
		if desc {
			return ^key[i]
		}
		return key[i]
	}
	fixed := func(n int) ([]byte, error) {
		if len(key) < n {
			return nil, errors.StorageCorruptionError("row key truncated in column " + col.Name)
		}
		b := make([]byte, n)
		for i := range b {
			b[i] = at(i)
		}
		return b, nil
	}

	dt := col.DataType
	switch {
	case types.IsTextType(dt):
		var s []byte
		for i := 0; i+1 < len(key); i++ {
			c := at(i)
			if c != escapeByte {
				s = append(s, c)
				continue
			}
			switch at(i + 1) {
			case escapedZero:
				s = append(s, 0)
				i++
			case terminatorByte:
				return types.NewTextValue(string(s)), key[i+2:], nil
			default:
				return types.Value{}, nil, errors.StorageCorruptionError("bad escape in row key column " + col.Name)
			}
		}
		return types.Value{}, nil, errors.StorageCorruptionError("unterminated row key column " + col.Name)
	case dt == types.Double:
		b, err := fixed(8)
		if err != nil {
			return types.Value{}, nil, err
		}
		bits := binary.BigEndian.Uint64(b)
		if bits&(1<<63) != 0 {
			bits ^= 1 << 63
		} else {
			bits = ^bits
		}
		return types.NewDoubleValue(math.Float64frombits(bits)), key[8:], nil
	case dt == types.Boolean:
		b, err := fixed(1)
		if err != nil {
			return types.Value{}, nil, err
		}
		return types.NewValue(b[0] == 1), key[1:], nil
	case dt == types.Timestamp:
		b, err := fixed(8)
		if err != nil {
			return types.Value{}, nil, err
		}
		nanos := int64(binary.BigEndian.Uint64(b) ^ (1 << 63)) //nolint:gosec // sign flip
		return types.NewTimestampValue(time.Unix(0, nanos)), key[8:], nil
	case types.IsNumericType(dt):
		size := dt.Size()
		b, err := fixed(size)
		if err != nil {
			return types.Value{}, nil, err
		}
		var v types.Value
		switch size {
		case 2:
			v = types.NewValue(int16(binary.BigEndian.Uint16(b) ^ (1 << 15))) //nolint:gosec // sign flip
		case 4:
			v = types.NewIntegerValue(int32(binary.BigEndian.Uint32(b) ^ (1 << 31))) //nolint:gosec // sign flip
		default:
			v = types.NewBigIntValue(int64(binary.BigEndian.Uint64(b) ^ (1 << 63))) //nolint:gosec // sign flip
		}
		return v, key[size:], nil
	}
	return types.Value{}, nil, errors.FeatureNotSupportedError("key column of type " + dt.Name())
}
