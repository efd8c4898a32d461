// Package layout describes schema field types and encodes claim data against them.
//
// A schema layout is one type tag byte per field. Claim data is the
// Borsh-compatible concatenation of the field values in layout order.
package layout

import (
	"fmt"
	"unicode/utf8"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

// Type is a field type tag.
type Type uint8

const (
	U8 Type = iota
	U16
	U32
	U64
	U128
	I8
	I16
	I32
	I64
	I128
	Bool
	Char
	String
	VecU8
	VecU16
	VecU32
	VecU64
	VecU128
	VecI8
	VecI16
	VecI32
	VecI64
	VecI128
	VecBool
	VecChar
	VecString
)

const vecOffset = VecU8 - U8

var typeNames = [...]string{
	"u8", "u16", "u32", "u64", "u128", "i8", "i16", "i32", "i64", "i128", "bool", "char", "string",
}

// Valid reports whether t is a known tag.
func (t Type) Valid() bool { return t <= VecString }

// IsVec reports whether t is a vector tag.
func (t Type) IsVec() bool { return t >= VecU8 && t <= VecString }

// Elem returns the element type of a vector tag, or t itself.
func (t Type) Elem() Type {
	if t.IsVec() {
		return t - vecOffset
	}
	return t
}

func (t Type) String() string {
	if !t.Valid() {
		return fmt.Sprintf("type(%d)", uint8(t))
	}
	if t.IsVec() {
		return "vec<" + typeNames[t.Elem()] + ">"
	}
	return typeNames[t]
}

func (t Type) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Type) UnmarshalText(b []byte) error {
	v, err := ParseType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// ParseType maps a type name such as "u32", "string" or "vec<u8>" to a tag.
func ParseType(s string) (Type, error) {
	for i, n := range typeNames {
		if s == n {
			return Type(i), nil
		}
		if s == "vec<"+n+">" {
			return Type(i) + vecOffset, nil
		}
	}
	return 0, fmt.Errorf("layout: unknown type %q", s)
}

// Validate checks that every tag is known and that fieldNames is parallel to
// layout with unique, non-empty, valid UTF-8 names.
func Validate(layout []byte, fieldNames []string) error {
	if len(layout) == 0 {
		return sas.New(sas.KindInvalidInstructionData, "SAS-LAYOUT-001", "schema layout is empty")
	}
	for i, b := range layout {
		if !Type(b).Valid() {
			return sas.Newf(sas.KindInvalidInstructionData, "SAS-LAYOUT-002", "field %d has unknown type tag %d", i, b)
		}
	}
	if len(fieldNames) != len(layout) {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-LAYOUT-003", "layout has %d fields but %d field names", len(layout), len(fieldNames))
	}
	seen := make(map[string]struct{}, len(fieldNames))
	for i, n := range fieldNames {
		if n == "" {
			return sas.Newf(sas.KindInvalidInstructionData, "SAS-LAYOUT-004", "field %d has an empty name", i)
		}
		if !utf8.ValidString(n) {
			return sas.Newf(sas.KindInvalidInstructionData, "SAS-LAYOUT-005", "field %d name is not valid UTF-8", i)
		}
		if _, dup := seen[n]; dup {
			return sas.Newf(sas.KindInvalidInstructionData, "SAS-LAYOUT-006", "duplicate field name %q", n)
		}
		seen[n] = struct{}{}
	}
	return nil
}
