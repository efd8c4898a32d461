package layout

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

// EncodeStringBody concatenates length-prefixed strings without a count.
func EncodeStringBody(items []string) []byte {
	n := 0
	for _, s := range items {
		n += 4 + len(s)
	}
	out := make([]byte, 0, n)
	for _, s := range items {
		out = binary.LittleEndian.AppendUint32(out, uint32(len(s)))
		out = append(out, s...)
	}
	return out
}

// EncodeStrings encodes a count-prefixed list of length-prefixed strings.
func EncodeStrings(items []string) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(items)))
	return append(out, EncodeStringBody(items)...)
}

// DecodeStrings decodes a count-prefixed string list and requires b to be
// consumed exactly.
func DecodeStrings(b []byte) ([]string, error) {
	if len(b) < 4 {
		return nil, sas.New(sas.KindDecode, "SAS-DEC-020", "string list shorter than its count prefix")
	}
	count := uint64(binary.LittleEndian.Uint32(b))
	rest := b[4:]
	// Every element needs at least its 4-byte prefix.
	if count*4 > uint64(len(rest)) {
		return nil, sas.Newf(sas.KindDecode, "SAS-DEC-021", "string list count %d overruns %d bytes", count, len(rest))
	}
	out := make([]string, 0, count)
	for i := uint64(0); i < count; i++ {
		if len(rest) < 4 {
			return nil, sas.Newf(sas.KindDecode, "SAS-DEC-022", "string %d: missing length prefix", i)
		}
		n := uint64(binary.LittleEndian.Uint32(rest))
		rest = rest[4:]
		if n > uint64(len(rest)) {
			return nil, sas.Newf(sas.KindDecode, "SAS-DEC-023", "string %d: length %d overruns %d bytes", i, n, len(rest))
		}
		s := rest[:n]
		if !utf8.Valid(s) {
			return nil, sas.Newf(sas.KindDecode, "SAS-DEC-024", "string %d is not valid UTF-8", i)
		}
		out = append(out, string(s))
		rest = rest[n:]
	}
	if len(rest) != 0 {
		return nil, sas.Newf(sas.KindDecode, "SAS-DEC-025", "%d trailing bytes after string list", len(rest))
	}
	return out, nil
}

// DecodeStringBody decodes a body written by EncodeStringBody whose element
// count is stored elsewhere. It rebuilds the count-prefixed form and
// delegates to DecodeStrings.
func DecodeStringBody(count int, body []byte) ([]string, error) {
	if count < 0 {
		return nil, sas.New(sas.KindDecode, "SAS-DEC-026", "negative string count")
	}
	buf := make([]byte, 0, 4+len(body))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(count))
	buf = append(buf, body...)
	return DecodeStrings(buf)
}
