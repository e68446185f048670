package typetag

import (
	"fmt"
	"math/big"

	bcs "github.com/iotaledger/bcs-go"
)

// EncodePure BCS-encodes an untyped Go value against a pure type-signature
// body. It accepts the handful of shapes a caller's RawValue can realistically
// hold (bool, the unsigned integer families, *big.Int for u128/u256, string,
// a []any for vector, and nil or the inner value itself for option) and
// rejects everything else.
func EncodePure(body OpenMoveTypeSignatureBody, value any) ([]byte, error) {
	switch {
	case body.Bool != nil:
		v, err := asBool(value)
		if err != nil {
			return nil, err
		}
		return bcs.Marshal(&v)
	case body.U8 != nil:
		v, err := asUint(value, 8)
		if err != nil {
			return nil, err
		}
		u8 := uint8(v)
		return bcs.Marshal(&u8)
	case body.U16 != nil:
		v, err := asUint(value, 16)
		if err != nil {
			return nil, err
		}
		u16 := uint16(v)
		return bcs.Marshal(&u16)
	case body.U32 != nil:
		v, err := asUint(value, 32)
		if err != nil {
			return nil, err
		}
		u32 := uint32(v)
		return bcs.Marshal(&u32)
	case body.U64 != nil:
		v, err := asUint(value, 64)
		if err != nil {
			return nil, err
		}
		return bcs.Marshal(&v)
	case body.U128 != nil:
		v, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		return bcs.Marshal(v)
	case body.U256 != nil:
		v, err := asBigInt(value)
		if err != nil {
			return nil, err
		}
		return encodeU256(v)
	case body.Address != nil:
		return nil, fmt.Errorf("typetag: address pure values must be pre-encoded by the caller")
	case body.Vector != nil:
		return encodeVector(*body.Vector, value)
	case body.Option != nil:
		return encodeOption(*body.Option, value)
	default:
		return nil, fmt.Errorf("typetag: value of type %T is not pure-encodable", value)
	}
}

func asBool(value any) (bool, error) {
	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("typetag: expected bool, got %T", value)
	}
	return v, nil
}

func asUint(value any, bits int) (uint64, error) {
	switch v := value.(type) {
	case uint64:
		return v, nil
	case uint32:
		return uint64(v), nil
	case uint16:
		return uint64(v), nil
	case uint8:
		return uint64(v), nil
	case int:
		if v < 0 {
			return 0, fmt.Errorf("typetag: negative value for u%d", bits)
		}
		return uint64(v), nil
	case int64:
		if v < 0 {
			return 0, fmt.Errorf("typetag: negative value for u%d", bits)
		}
		return uint64(v), nil
	case string:
		var parsed uint64
		if _, err := fmt.Sscanf(v, "%d", &parsed); err != nil {
			return 0, fmt.Errorf("typetag: invalid integer string %q", v)
		}
		return parsed, nil
	default:
		return 0, fmt.Errorf("typetag: expected integer, got %T", value)
	}
}

func asBigInt(value any) (*big.Int, error) {
	switch v := value.(type) {
	case *big.Int:
		return v, nil
	case string:
		n, ok := new(big.Int).SetString(v, 10)
		if !ok {
			return nil, fmt.Errorf("typetag: invalid integer string %q", v)
		}
		return n, nil
	case uint64:
		return new(big.Int).SetUint64(v), nil
	default:
		return nil, fmt.Errorf("typetag: expected *big.Int or numeric string, got %T", value)
	}
}

func encodeU256(value *big.Int) ([]byte, error) {
	if value.Sign() < 0 {
		return nil, fmt.Errorf("typetag: u256 value must be positive")
	}
	if value.BitLen() > 256 {
		return nil, fmt.Errorf("typetag: u256 value out of range")
	}
	buf := make([]byte, 32)
	raw := value.Bytes()
	copy(buf[32-len(raw):], raw)
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf, nil
}

func encodeVector(inner OpenMoveTypeSignatureBody, value any) ([]byte, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, fmt.Errorf("typetag: expected []any for vector value, got %T", value)
	}
	encoded := make([][]byte, len(items))
	for i, item := range items {
		bytes, err := EncodePure(inner, item)
		if err != nil {
			return nil, fmt.Errorf("vector element %d: %w", i, err)
		}
		encoded[i] = bytes
	}
	return joinWithLength(encoded)
}

func encodeOption(inner OpenMoveTypeSignatureBody, value any) ([]byte, error) {
	if value == nil {
		return []byte{0}, nil
	}
	bytes, err := EncodePure(inner, value)
	if err != nil {
		return nil, err
	}
	return append([]byte{1}, bytes...), nil
}

// joinWithLength prefixes a ULEB128 element count, matching BCS's
// vector<T> encoding, followed by each already-encoded element in order.
func joinWithLength(elements [][]byte) ([]byte, error) {
	count := len(elements)
	prefix := uleb128(uint64(count))
	size := len(prefix)
	for _, e := range elements {
		size += len(e)
	}
	out := make([]byte, 0, size)
	out = append(out, prefix...)
	for _, e := range elements {
		out = append(out, e...)
	}
	return out, nil
}

func uleb128(value uint64) []byte {
	var out []byte
	for {
		b := byte(value & 0x7f)
		value >>= 7
		if value != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if value == 0 {
			return out
		}
	}
}
