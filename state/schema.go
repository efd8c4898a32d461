package state

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/layout"
)

// Schema types the claims issued under a credential.
//
// Layout holds one type tag per field; FieldNames is parallel to Layout. On
// the wire, field names are stored as a byte-length-prefixed body whose
// element count is len(Layout).
type Schema struct {
	Credential  address.Address
	Version     uint32
	IsPaused    bool
	Name        []byte
	Description []byte
	Layout      []byte
	FieldNames  []string
}

const schemaMinSize = 1 + 32 + 4 + 1 + 4 + 4 + 4 + 4

func (*Schema) Discriminator() Discriminator { return KindSchema }
func (*Schema) record()                      {}

func (s *Schema) Size() int {
	n := schemaMinSize + len(s.Name) + len(s.Description) + len(s.Layout)
	for _, f := range s.FieldNames {
		n += 4 + len(f)
	}
	return n
}

func (s *Schema) MarshalBinary() ([]byte, error) {
	e := newEncoder(KindSchema, s.Size())
	e.address(s.Credential)
	e.u32(s.Version)
	e.bool(s.IsPaused)
	e.bytes(s.Name)
	e.bytes(s.Description)
	e.bytes(s.Layout)
	e.bytes(layout.EncodeStringBody(s.FieldNames))
	return e.b, nil
}

func DecodeSchema(b []byte) (*Schema, error) {
	d := newDecoder(b, KindSchema, schemaMinSize)
	s := &Schema{}
	s.Credential = d.address()
	s.Version = d.u32()
	s.IsPaused = d.bool()
	s.Name = d.bytes()
	s.Description = d.bytes()
	s.Layout = d.bytes()
	body := d.bytes()
	if err := d.finish(); err != nil {
		return nil, err
	}
	names, err := layout.DecodeStringBody(len(s.Layout), body)
	if err != nil {
		return nil, err
	}
	s.FieldNames = names
	return s, nil
}
