package layout

import (
	"encoding/binary"
	"math"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

func TestValidate(t *testing.T) {
	require.NoError(t, Validate([]byte{byte(String), byte(U8)}, []string{"name", "location"}))

	cases := []struct {
		name   string
		layout []byte
		fields []string
		code   string
	}{
		{"empty", nil, nil, "SAS-LAYOUT-001"},
		{"unknown tag", []byte{200}, []string{"x"}, "SAS-LAYOUT-002"},
		{"count mismatch", []byte{byte(String)}, []string{"a", "b"}, "SAS-LAYOUT-003"},
		{"empty name", []byte{byte(String)}, []string{""}, "SAS-LAYOUT-004"},
		{"duplicate", []byte{byte(String), byte(U8)}, []string{"a", "a"}, "SAS-LAYOUT-006"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.layout, tc.fields)
			require.Error(t, err)
			assert.True(t, sas.IsKind(err, sas.KindInvalidInstructionData))
			assert.Equal(t, tc.code, sas.Code(err))
		})
	}
}

func TestParseType(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want Type
	}{
		{"u8", U8}, {"string", String}, {"vec<u8>", VecU8}, {"vec<string>", VecString}, {"i128", I128},
	} {
		got, err := ParseType(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got)
		assert.Equal(t, tc.in, got.String())
	}
	_, err := ParseType("float")
	assert.Error(t, err)
}

func TestStrings_CountOutOfBand(t *testing.T) {
	names := []string{"recipient", "jurisdiction"}
	body := EncodeStringBody(names)

	got, err := DecodeStringBody(len(names), body)
	require.NoError(t, err)
	assert.Equal(t, names, got)

	full := EncodeStrings(names)
	assert.Equal(t, binary.LittleEndian.Uint32(full), uint32(2))
	got, err = DecodeStrings(full)
	require.NoError(t, err)
	assert.Equal(t, names, got)

	// A count that disagrees with the body is rejected, never partially decoded.
	_, err = DecodeStringBody(1, body)
	assert.True(t, sas.IsKind(err, sas.KindDecode))
	_, err = DecodeStringBody(3, body)
	assert.True(t, sas.IsKind(err, sas.KindDecode))

	huge := binary.LittleEndian.AppendUint32(nil, math.MaxUint32)
	_, err = DecodeStrings(huge)
	assert.Error(t, err)
}

func TestData_JurisdictionRoundTrip(t *testing.T) {
	l := []byte{byte(String)}
	data, err := EncodeData(l, []any{"US"})
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 0, 0, 0, 'U', 'S'}, data)

	fields, err := DecodeData(l, []string{"jurisdiction"}, data)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "jurisdiction", fields[0].Name)
	assert.Equal(t, "US", fields[0].Value)
}

func TestData_AllScalarTypes(t *testing.T) {
	l := []byte{byte(U8), byte(U16), byte(U32), byte(U64), byte(U128), byte(I8), byte(I16), byte(I32), byte(I64), byte(I128), byte(Bool), byte(Char), byte(String)}
	names := []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l", "m"}
	neg := new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 100))
	values := []any{
		uint64(255), uint64(65535), uint64(1 << 31), uint64(math.MaxUint64), new(big.Int).Lsh(big.NewInt(1), 120),
		int64(-128), int64(-300), int64(-70000), int64(math.MinInt64), neg,
		true, 'é', "hello",
	}
	data, err := EncodeData(l, values)
	require.NoError(t, err)

	fields, err := DecodeData(l, names, data)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), fields[0].Value)
	assert.Equal(t, uint16(65535), fields[1].Value)
	assert.Equal(t, uint32(1<<31), fields[2].Value)
	assert.Equal(t, uint64(math.MaxUint64), fields[3].Value)
	assert.Equal(t, 0, new(big.Int).Lsh(big.NewInt(1), 120).Cmp(fields[4].Value.(*big.Int)))
	assert.Equal(t, int8(-128), fields[5].Value)
	assert.Equal(t, int16(-300), fields[6].Value)
	assert.Equal(t, int32(-70000), fields[7].Value)
	assert.Equal(t, int64(math.MinInt64), fields[8].Value)
	assert.Equal(t, 0, neg.Cmp(fields[9].Value.(*big.Int)))
	assert.Equal(t, true, fields[10].Value)
	assert.Equal(t, 'é', fields[11].Value)
	assert.Equal(t, "hello", fields[12].Value)
}

func TestData_Vectors(t *testing.T) {
	l := []byte{byte(VecU8), byte(VecString)}
	data, err := EncodeData(l, []any{[]uint8{1, 2, 3}, []string{"x", "yz"}})
	require.NoError(t, err)

	fields, err := DecodeData(l, []string{"bytes", "tags"}, data)
	require.NoError(t, err)
	assert.Equal(t, []any{uint8(1), uint8(2), uint8(3)}, fields[0].Value)
	assert.Equal(t, []any{"x", "yz"}, fields[1].Value)
}

func TestData_Rejects(t *testing.T) {
	_, err := EncodeData([]byte{byte(U8)}, []any{uint64(256)})
	assert.Error(t, err)
	_, err = EncodeData([]byte{byte(String)}, []any{1})
	assert.Error(t, err)
	_, err = EncodeData([]byte{byte(String)}, nil)
	assert.Error(t, err)

	assert.NoError(t, CheckData([]byte{byte(Bool)}, []byte{1}))
	assert.Error(t, CheckData([]byte{byte(Bool)}, []byte{2}), "bool must be 0 or 1")
	assert.Error(t, CheckData([]byte{byte(U8)}, []byte{1, 2}), "trailing bytes")
	assert.Error(t, CheckData([]byte{byte(String)}, []byte{9, 0, 0, 0, 'a'}), "overrun")
	assert.Error(t, CheckData([]byte{byte(VecU64)}, []byte{0xff, 0xff, 0xff, 0xff}), "vector overrun")
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(U16, "513")
	require.NoError(t, err)
	data, err := EncodeData([]byte{byte(U16)}, []any{v})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, data)

	v, err = ParseValue(VecI32, "1, -2")
	require.NoError(t, err)
	_, err = EncodeData([]byte{byte(VecI32)}, []any{v})
	require.NoError(t, err)

	_, err = ParseValue(U8, "300")
	assert.Error(t, err)
	_, err = ParseValue(Char, "ab")
	assert.Error(t, err)
}
