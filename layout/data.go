package layout

import (
	"encoding/binary"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

// Field is one decoded claim value.
//
// Value holds uint8..uint64, int8..int64, *big.Int (128-bit), bool, rune,
// string, or a slice of one of those for vector tags.
type Field struct {
	Name  string `json:"name"`
	Type  Type   `json:"type"`
	Value any    `json:"value"`
}

var (
	maxU128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	maxI128 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minI128 = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	two128  = new(big.Int).Lsh(big.NewInt(1), 128)
)

// EncodeData encodes values in layout order.
func EncodeData(layout []byte, values []any) ([]byte, error) {
	if len(values) != len(layout) {
		return nil, fmt.Errorf("layout: %d values for %d fields", len(values), len(layout))
	}
	var out []byte
	for i, tag := range layout {
		t := Type(tag)
		if !t.Valid() {
			return nil, fmt.Errorf("layout: field %d has unknown type tag %d", i, tag)
		}
		var err error
		out, err = appendValue(out, t, values[i])
		if err != nil {
			return nil, fmt.Errorf("layout: field %d (%s): %w", i, t, err)
		}
	}
	return out, nil
}

func appendValue(out []byte, t Type, v any) ([]byte, error) {
	if !t.IsVec() {
		return appendScalar(out, t, v)
	}
	elem := t.Elem()
	items, err := toSlice(elem, v)
	if err != nil {
		return nil, err
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(len(items)))
	for _, it := range items {
		if out, err = appendScalar(out, elem, it); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func toSlice(elem Type, v any) ([]any, error) {
	switch s := v.(type) {
	case []any:
		return s, nil
	case []uint8:
		return sliceOf(s), nil
	case []uint16:
		return sliceOf(s), nil
	case []uint32:
		return sliceOf(s), nil
	case []uint64:
		return sliceOf(s), nil
	case []int8:
		return sliceOf(s), nil
	case []int16:
		return sliceOf(s), nil
	case []int32:
		return sliceOf(s), nil
	case []int64:
		return sliceOf(s), nil
	case []*big.Int:
		return sliceOf(s), nil
	case []bool:
		return sliceOf(s), nil
	case []string:
		return sliceOf(s), nil
	default:
		return nil, fmt.Errorf("expected a slice for vec<%s>, got %T", elem, v)
	}
}

func sliceOf[T any](s []T) []any {
	out := make([]any, len(s))
	for i := range s {
		out[i] = s[i]
	}
	return out
}

func appendScalar(out []byte, t Type, v any) ([]byte, error) {
	switch t {
	case U8, U16, U32, U64:
		u, ok := v.(uint64)
		if !ok {
			var err error
			if u, err = asUint(v); err != nil {
				return nil, err
			}
		}
		switch t {
		case U8:
			if u > math.MaxUint8 {
				return nil, fmt.Errorf("%d overflows u8", u)
			}
			return append(out, byte(u)), nil
		case U16:
			if u > math.MaxUint16 {
				return nil, fmt.Errorf("%d overflows u16", u)
			}
			return binary.LittleEndian.AppendUint16(out, uint16(u)), nil
		case U32:
			if u > math.MaxUint32 {
				return nil, fmt.Errorf("%d overflows u32", u)
			}
			return binary.LittleEndian.AppendUint32(out, uint32(u)), nil
		default:
			return binary.LittleEndian.AppendUint64(out, u), nil
		}
	case I8, I16, I32, I64:
		i, err := asInt(v)
		if err != nil {
			return nil, err
		}
		switch t {
		case I8:
			if i < math.MinInt8 || i > math.MaxInt8 {
				return nil, fmt.Errorf("%d overflows i8", i)
			}
			return append(out, byte(int8(i))), nil
		case I16:
			if i < math.MinInt16 || i > math.MaxInt16 {
				return nil, fmt.Errorf("%d overflows i16", i)
			}
			return binary.LittleEndian.AppendUint16(out, uint16(int16(i))), nil
		case I32:
			if i < math.MinInt32 || i > math.MaxInt32 {
				return nil, fmt.Errorf("%d overflows i32", i)
			}
			return binary.LittleEndian.AppendUint32(out, uint32(int32(i))), nil
		default:
			return binary.LittleEndian.AppendUint64(out, uint64(i)), nil
		}
	case U128, I128:
		n, err := asBig(v)
		if err != nil {
			return nil, err
		}
		return append128(out, t, n)
	case Bool:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected bool, got %T", v)
		}
		if b {
			return append(out, 1), nil
		}
		return append(out, 0), nil
	case Char:
		r, ok := v.(rune)
		if !ok || !utf8.ValidRune(r) {
			return nil, fmt.Errorf("expected a valid rune, got %v", v)
		}
		return binary.LittleEndian.AppendUint32(out, uint32(r)), nil
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("expected string, got %T", v)
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s)))
		return append(out, s...), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

func asUint(v any) (uint64, error) {
	switch n := v.(type) {
	case uint8:
		return uint64(n), nil
	case uint16:
		return uint64(n), nil
	case uint32:
		return uint64(n), nil
	case uint64:
		return n, nil
	case uint:
		return uint64(n), nil
	case int:
		if n < 0 {
			return 0, fmt.Errorf("negative value %d for unsigned field", n)
		}
		return uint64(n), nil
	}
	return 0, fmt.Errorf("expected unsigned integer, got %T", v)
}

func asInt(v any) (int64, error) {
	switch n := v.(type) {
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	}
	return 0, fmt.Errorf("expected signed integer, got %T", v)
}

func asBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("nil big.Int")
		}
		return n, nil
	case int:
		return big.NewInt(int64(n)), nil
	case int64:
		return big.NewInt(n), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	}
	return nil, fmt.Errorf("expected *big.Int, got %T", v)
}

func append128(out []byte, t Type, n *big.Int) ([]byte, error) {
	v := new(big.Int).Set(n)
	if t == U128 {
		if v.Sign() < 0 || v.Cmp(maxU128) > 0 {
			return nil, fmt.Errorf("%s overflows u128", n)
		}
	} else {
		if v.Cmp(minI128) < 0 || v.Cmp(maxI128) > 0 {
			return nil, fmt.Errorf("%s overflows i128", n)
		}
		if v.Sign() < 0 {
			v.Add(v, two128)
		}
	}
	var be [16]byte
	v.FillBytes(be[:])
	for i := 15; i >= 0; i-- {
		out = append(out, be[i])
	}
	return out, nil
}

// DecodeData decodes data against layout and requires it to be consumed exactly.
func DecodeData(layout []byte, fieldNames []string, data []byte) ([]Field, error) {
	if len(fieldNames) != len(layout) {
		return nil, sas.Newf(sas.KindDecode, "SAS-DATA-001", "layout has %d fields but %d field names", len(layout), len(fieldNames))
	}
	r := &reader{b: data}
	fields := make([]Field, 0, len(layout))
	for i, tag := range layout {
		t := Type(tag)
		if !t.Valid() {
			return nil, sas.Newf(sas.KindDecode, "SAS-DATA-002", "field %d has unknown type tag %d", i, tag)
		}
		v, err := r.value(t)
		if err != nil {
			return nil, sas.Wrap(sas.KindDecode, "SAS-DATA-003", fmt.Sprintf("field %q (%s)", fieldNames[i], t), err)
		}
		fields = append(fields, Field{Name: fieldNames[i], Type: t, Value: v})
	}
	if len(r.b) != 0 {
		return nil, sas.Newf(sas.KindDecode, "SAS-DATA-004", "%d trailing bytes after claim data", len(r.b))
	}
	return fields, nil
}

// CheckData reports whether data decodes exactly against layout.
func CheckData(layout []byte, data []byte) error {
	names := make([]string, len(layout))
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	_, err := DecodeData(layout, names, data)
	return err
}

type reader struct{ b []byte }

func (r *reader) take(n uint64) ([]byte, error) {
	if n > uint64(len(r.b)) {
		return nil, fmt.Errorf("need %d bytes, have %d", n, len(r.b))
	}
	out := r.b[:n]
	r.b = r.b[n:]
	return out, nil
}

func (r *reader) value(t Type) (any, error) {
	if !t.IsVec() {
		return r.scalar(t)
	}
	lb, err := r.take(4)
	if err != nil {
		return nil, err
	}
	n := uint64(binary.LittleEndian.Uint32(lb))
	if n > uint64(len(r.b)) {
		// Every element is at least one byte.
		return nil, fmt.Errorf("vector length %d overruns %d bytes", n, len(r.b))
	}
	items := make([]any, 0, n)
	for i := uint64(0); i < n; i++ {
		v, err := r.scalar(t.Elem())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		items = append(items, v)
	}
	return items, nil
}

func (r *reader) scalar(t Type) (any, error) {
	switch t {
	case U8, I8, Bool:
		b, err := r.take(1)
		if err != nil {
			return nil, err
		}
		switch t {
		case U8:
			return b[0], nil
		case I8:
			return int8(b[0]), nil
		}
		if b[0] > 1 {
			return nil, fmt.Errorf("invalid bool byte %d", b[0])
		}
		return b[0] == 1, nil
	case U16, I16:
		b, err := r.take(2)
		if err != nil {
			return nil, err
		}
		u := binary.LittleEndian.Uint16(b)
		if t == I16 {
			return int16(u), nil
		}
		return u, nil
	case U32, I32, Char:
		b, err := r.take(4)
		if err != nil {
			return nil, err
		}
		u := binary.LittleEndian.Uint32(b)
		switch t {
		case I32:
			return int32(u), nil
		case Char:
			if !utf8.ValidRune(rune(u)) {
				return nil, fmt.Errorf("invalid char %d", u)
			}
			return rune(u), nil
		}
		return u, nil
	case U64, I64:
		b, err := r.take(8)
		if err != nil {
			return nil, err
		}
		u := binary.LittleEndian.Uint64(b)
		if t == I64 {
			return int64(u), nil
		}
		return u, nil
	case U128, I128:
		b, err := r.take(16)
		if err != nil {
			return nil, err
		}
		var be [16]byte
		for i := 0; i < 16; i++ {
			be[i] = b[15-i]
		}
		n := new(big.Int).SetBytes(be[:])
		if t == I128 && n.Cmp(maxI128) > 0 {
			n.Sub(n, two128)
		}
		return n, nil
	case String:
		lb, err := r.take(4)
		if err != nil {
			return nil, err
		}
		s, err := r.take(uint64(binary.LittleEndian.Uint32(lb)))
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(s) {
			return nil, fmt.Errorf("string is not valid UTF-8")
		}
		return string(s), nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}

// ParseValue parses the text form of a scalar or comma-separated vector value.
func ParseValue(t Type, s string) (any, error) {
	if t.IsVec() {
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, ",")
		out := make([]any, 0, len(parts))
		for _, p := range parts {
			v, err := ParseValue(t.Elem(), strings.TrimSpace(p))
			if err != nil {
				return nil, err
			}
			out = append(out, v)
		}
		return out, nil
	}
	switch t {
	case U8, U16, U32, U64:
		bits := map[Type]int{U8: 8, U16: 16, U32: 32, U64: 64}[t]
		u, err := strconv.ParseUint(s, 10, bits)
		if err != nil {
			return nil, err
		}
		return u, nil
	case I8, I16, I32, I64:
		bits := map[Type]int{I8: 8, I16: 16, I32: 32, I64: 64}[t]
		i, err := strconv.ParseInt(s, 10, bits)
		if err != nil {
			return nil, err
		}
		return i, nil
	case U128, I128:
		n, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return nil, fmt.Errorf("invalid integer %q", s)
		}
		return n, nil
	case Bool:
		return strconv.ParseBool(s)
	case Char:
		r, size := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError || size != len(s) {
			return nil, fmt.Errorf("expected a single character, got %q", s)
		}
		return r, nil
	case String:
		return s, nil
	}
	return nil, fmt.Errorf("unsupported type %s", t)
}
