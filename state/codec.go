// Package state defines the on-ledger record kinds and their binary layouts.
//
// Every record begins with a one-byte discriminator. Fixed-width fields follow
// in declaration order; variable fields carry a u32 little-endian length
// prefix. All integers are little-endian.
package state

import (
	"encoding/binary"
	"fmt"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

// Discriminator identifies a record kind. Values above KindRequest are reserved.
type Discriminator uint8

const (
	KindCredential Discriminator = iota
	KindSchema
	KindAttestation
	KindRequest
)

func (d Discriminator) String() string {
	switch d {
	case KindCredential:
		return "credential"
	case KindSchema:
		return "schema"
	case KindAttestation:
		return "attestation"
	case KindRequest:
		return "request"
	default:
		return fmt.Sprintf("reserved(%d)", uint8(d))
	}
}

// Fixed offsets used by scanners. Changing any of these is a breaking change.
const (
	DiscriminatorOffset         = 0
	CredentialAuthorityOffset   = 1
	SchemaCredentialOffset      = 1
	AttestationNonceOffset      = 1
	AttestationCredentialOffset = 33
	AttestationSchemaOffset     = 65
	RequestCredentialOffset     = 1
	RequestSchemaOffset         = 33
	RequestSignerOffset         = 65
)

// Record is one of *Credential, *Schema, *Attestation or *Request.
type Record interface {
	Discriminator() Discriminator
	Size() int
	MarshalBinary() ([]byte, error)
	record()
}

// Encode returns the tagged byte layout of r.
func Encode(r Record) []byte {
	b, _ := r.MarshalBinary()
	return b
}

// Peek returns the discriminator of b without decoding the body.
func Peek(b []byte) (Discriminator, error) {
	if len(b) == 0 {
		return 0, sas.New(sas.KindDecode, "SAS-DEC-001", "empty record")
	}
	d := Discriminator(b[0])
	if d > KindRequest {
		return d, sas.Newf(sas.KindDecode, "SAS-DEC-002", "reserved discriminator %d", b[0])
	}
	return d, nil
}

// Decode decodes b as the stated kind. Decoding bytes of one kind as another
// fails.
func Decode(kind Discriminator, b []byte) (Record, error) {
	switch kind {
	case KindCredential:
		return DecodeCredential(b)
	case KindSchema:
		return DecodeSchema(b)
	case KindAttestation:
		return DecodeAttestation(b)
	case KindRequest:
		return DecodeRequest(b)
	default:
		return nil, sas.Newf(sas.KindDecode, "SAS-DEC-002", "reserved discriminator %d", uint8(kind))
	}
}

// decoder is a bounds-checked cursor over a record buffer.
type decoder struct {
	b    []byte
	kind Discriminator
	err  error
}

func newDecoder(b []byte, kind Discriminator, minSize int) *decoder {
	d := &decoder{b: b, kind: kind}
	if len(b) < minSize {
		d.err = sas.Newf(sas.KindDecode, "SAS-DEC-003", "%s record is %d bytes, need at least %d", kind, len(b), minSize)
		return d
	}
	if Discriminator(b[0]) != kind {
		d.err = sas.Newf(sas.KindDecode, "SAS-DEC-004", "discriminator %d is not %s", b[0], kind)
		return d
	}
	d.b = b[1:]
	return d
}

func (d *decoder) fail(code, format string, args ...any) {
	if d.err == nil {
		d.err = sas.Newf(sas.KindDecode, code, "%s: "+format, append([]any{d.kind}, args...)...)
	}
}

func (d *decoder) take(n uint64) []byte {
	if d.err != nil {
		return nil
	}
	if n > uint64(len(d.b)) {
		d.fail("SAS-DEC-005", "field of %d bytes overruns remaining %d", n, len(d.b))
		return nil
	}
	out := d.b[:n]
	d.b = d.b[n:]
	return out
}

func (d *decoder) address() address.Address {
	var a address.Address
	if b := d.take(address.Size); b != nil {
		copy(a[:], b)
	}
	return a
}

func (d *decoder) u8() uint8 {
	if b := d.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (d *decoder) bool() bool {
	v := d.u8()
	if v > 1 {
		d.fail("SAS-DEC-006", "invalid bool byte %d", v)
	}
	return v == 1
}

func (d *decoder) u32() uint32 {
	if b := d.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (d *decoder) i64() int64 {
	if b := d.take(8); b != nil {
		return int64(binary.LittleEndian.Uint64(b))
	}
	return 0
}

// bytes reads a u32 length prefix and that many bytes, copied out of the buffer.
// Zero-length fields decode as empty, non-nil slices so that a decoded record
// has one canonical form whatever the encoder was given.
func (d *decoder) bytes() []byte {
	n := d.u32()
	b := d.take(uint64(n))
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (d *decoder) addresses() []address.Address {
	n := uint64(d.u32())
	if d.err != nil {
		return nil
	}
	if n*address.Size > uint64(len(d.b)) {
		d.fail("SAS-DEC-007", "%d keys overrun remaining %d bytes", n, len(d.b))
		return nil
	}
	out := make([]address.Address, n)
	for i := range out {
		out[i] = d.address()
	}
	return out
}

func (d *decoder) finish() error {
	if d.err == nil && len(d.b) != 0 {
		d.fail("SAS-DEC-008", "%d trailing bytes", len(d.b))
	}
	return d.err
}

// encoder appends fields in layout order.
type encoder struct{ b []byte }

func newEncoder(kind Discriminator, size int) *encoder {
	e := &encoder{b: make([]byte, 0, size)}
	e.b = append(e.b, byte(kind))
	return e
}

func (e *encoder) address(a address.Address) { e.b = append(e.b, a[:]...) }
func (e *encoder) u8(v uint8)                { e.b = append(e.b, v) }
func (e *encoder) u32(v uint32)              { e.b = binary.LittleEndian.AppendUint32(e.b, v) }
func (e *encoder) i64(v int64)               { e.b = binary.LittleEndian.AppendUint64(e.b, uint64(v)) }

func (e *encoder) bool(v bool) {
	if v {
		e.u8(1)
		return
	}
	e.u8(0)
}

func (e *encoder) bytes(b []byte) {
	e.u32(uint32(len(b)))
	e.b = append(e.b, b...)
}

func (e *encoder) addresses(as []address.Address) {
	e.u32(uint32(len(as)))
	for _, a := range as {
		e.address(a)
	}
}
