package instruction

import (
	"encoding/binary"
	"unicode/utf8"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

type CreateCredentialArgs struct {
	Name    []byte
	Signers []address.Address
}

type CreateSchemaArgs struct {
	Name        []byte
	Description []byte
	Layout      []byte
	FieldNames  []string
}

type ChangeSchemaStatusArgs struct {
	IsPaused bool
}

type ChangeAuthorizedSignersArgs struct {
	Signers []address.Address
}

type ChangeSchemaDescriptionArgs struct {
	Description []byte
}

func (a CreateCredentialArgs) MarshalBinary() ([]byte, error) {
	out := []byte{byte(CreateCredential)}
	out = appendBytes(out, a.Name)
	return appendAddresses(out, a.Signers), nil
}

func ParseCreateCredentialArgs(b []byte) (CreateCredentialArgs, error) {
	c := cursor{b: b}
	a := CreateCredentialArgs{Name: c.bytes(), Signers: c.addresses()}
	return a, c.finish()
}

func (a CreateSchemaArgs) MarshalBinary() ([]byte, error) {
	out := []byte{byte(CreateSchema)}
	out = appendBytes(out, a.Name)
	out = appendBytes(out, a.Description)
	out = appendBytes(out, a.Layout)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(a.FieldNames)))
	for _, f := range a.FieldNames {
		out = appendBytes(out, []byte(f))
	}
	return out, nil
}

func ParseCreateSchemaArgs(b []byte) (CreateSchemaArgs, error) {
	c := cursor{b: b}
	a := CreateSchemaArgs{Name: c.bytes(), Description: c.bytes(), Layout: c.bytes()}
	n := c.count(4)
	for i := 0; i < n; i++ {
		a.FieldNames = append(a.FieldNames, c.str())
	}
	if a.FieldNames == nil && c.err == nil {
		a.FieldNames = []string{}
	}
	return a, c.finish()
}

func (a ChangeSchemaStatusArgs) MarshalBinary() ([]byte, error) {
	out := []byte{byte(ChangeSchemaStatus), 0}
	if a.IsPaused {
		out[1] = 1
	}
	return out, nil
}

func ParseChangeSchemaStatusArgs(b []byte) (ChangeSchemaStatusArgs, error) {
	c := cursor{b: b}
	a := ChangeSchemaStatusArgs{IsPaused: c.bool()}
	return a, c.finish()
}

func (a ChangeAuthorizedSignersArgs) MarshalBinary() ([]byte, error) {
	return appendAddresses([]byte{byte(ChangeAuthorizedSigners)}, a.Signers), nil
}

func ParseChangeAuthorizedSignersArgs(b []byte) (ChangeAuthorizedSignersArgs, error) {
	c := cursor{b: b}
	a := ChangeAuthorizedSignersArgs{Signers: c.addresses()}
	return a, c.finish()
}

func (a ChangeSchemaDescriptionArgs) MarshalBinary() ([]byte, error) {
	return appendBytes([]byte{byte(ChangeSchemaDescription)}, a.Description), nil
}

func ParseChangeSchemaDescriptionArgs(b []byte) (ChangeSchemaDescriptionArgs, error) {
	c := cursor{b: b}
	a := ChangeSchemaDescriptionArgs{Description: c.bytes()}
	return a, c.finish()
}

func appendBytes(dst, b []byte) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(b)))
	return append(dst, b...)
}

func appendAddresses(dst []byte, addrs []address.Address) []byte {
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(addrs)))
	for _, a := range addrs {
		dst = append(dst, a[:]...)
	}
	return dst
}

// cursor reads length-prefixed fields. The first failure sticks; later reads
// return zero values.
type cursor struct {
	b   []byte
	off int
	err error
}

func (c *cursor) fail(code, format string, args ...any) {
	if c.err == nil {
		c.err = sas.Newf(sas.KindInvalidInstructionData, code, format, args...)
	}
}

func (c *cursor) take(n uint64) []byte {
	if c.err != nil {
		return nil
	}
	if n > uint64(len(c.b)-c.off) {
		c.fail("SAS-IX-020", "need %d bytes at offset %d, have %d", n, c.off, len(c.b)-c.off)
		return nil
	}
	out := c.b[c.off : c.off+int(n)]
	c.off += int(n)
	return out
}

func (c *cursor) u32() uint32 {
	b := c.take(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

// count reads a list length and checks that count*minElem bytes remain.
func (c *cursor) count(minElem uint64) int {
	n := uint64(c.u32())
	if c.err == nil && n*minElem > uint64(len(c.b)-c.off) {
		c.fail("SAS-IX-021", "list of %d elements overruns %d remaining bytes", n, len(c.b)-c.off)
		return 0
	}
	return int(n)
}

func (c *cursor) bytes() []byte {
	n := c.u32()
	b := c.take(uint64(n))
	if c.err != nil {
		return nil
	}
	return append([]byte{}, b...)
}

func (c *cursor) str() string {
	b := c.bytes()
	if c.err == nil && !utf8.Valid(b) {
		c.fail("SAS-IX-022", "string at offset %d is not UTF-8", c.off-len(b))
	}
	return string(b)
}

func (c *cursor) bool() bool {
	b := c.take(1)
	if b == nil {
		return false
	}
	switch b[0] {
	case 0:
		return false
	case 1:
		return true
	}
	c.fail("SAS-IX-023", "invalid bool byte %d", b[0])
	return false
}

func (c *cursor) addresses() []address.Address {
	n := c.count(address.Size)
	if c.err != nil {
		return nil
	}
	out := make([]address.Address, n)
	for i := range out {
		copy(out[i][:], c.take(address.Size))
	}
	return out
}

func (c *cursor) finish() error {
	if c.err != nil {
		return c.err
	}
	if c.off != len(c.b) {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-024", "%d trailing bytes", len(c.b)-c.off)
	}
	return nil
}
