package state

import (
	"time"

	"github.com/0xterrybit/solana-attestation-service/address"
)

// Attestation is a signed claim about Nonce (the recipient).
type Attestation struct {
	Nonce      address.Address
	Credential address.Address
	Schema     address.Address
	Data       []byte
	Signer     address.Address
	Expiry     int64
}

// Request is a claim draft awaiting issuance. Signer is the requester.
type Request struct {
	Credential address.Address
	Schema     address.Address
	Signer     address.Address
	Data       []byte
	Nonce      address.Address
	Expiry     int64
}

// ClaimSize is the exact encoded size of an attestation or request carrying
// dataLen bytes of claim data.
func ClaimSize(dataLen int) int {
	return 1 + 32 + 32 + 32 + (4 + dataLen) + 32 + 8
}

const claimMinSize = 1 + 32 + 32 + 32 + 4 + 32 + 8

func (*Attestation) Discriminator() Discriminator { return KindAttestation }
func (*Attestation) record()                      {}
func (a *Attestation) Size() int                  { return ClaimSize(len(a.Data)) }

func (a *Attestation) MarshalBinary() ([]byte, error) {
	e := newEncoder(KindAttestation, a.Size())
	e.address(a.Nonce)
	e.address(a.Credential)
	e.address(a.Schema)
	e.bytes(a.Data)
	e.address(a.Signer)
	e.i64(a.Expiry)
	return e.b, nil
}

// IsExpired reports whether the attestation is no longer valid at now.
func (a *Attestation) IsExpired(now time.Time) bool { return now.Unix() >= a.Expiry }

func DecodeAttestation(b []byte) (*Attestation, error) {
	d := newDecoder(b, KindAttestation, claimMinSize)
	a := &Attestation{}
	a.Nonce = d.address()
	a.Credential = d.address()
	a.Schema = d.address()
	a.Data = d.bytes()
	a.Signer = d.address()
	a.Expiry = d.i64()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return a, nil
}

func (*Request) Discriminator() Discriminator { return KindRequest }
func (*Request) record()                      {}
func (r *Request) Size() int                  { return ClaimSize(len(r.Data)) }

func (r *Request) MarshalBinary() ([]byte, error) {
	e := newEncoder(KindRequest, r.Size())
	e.address(r.Credential)
	e.address(r.Schema)
	e.address(r.Signer)
	e.bytes(r.Data)
	e.address(r.Nonce)
	e.i64(r.Expiry)
	return e.b, nil
}

func (r *Request) IsExpired(now time.Time) bool { return now.Unix() >= r.Expiry }

func DecodeRequest(b []byte) (*Request, error) {
	d := newDecoder(b, KindRequest, claimMinSize)
	r := &Request{}
	r.Credential = d.address()
	r.Schema = d.address()
	r.Signer = d.address()
	r.Data = d.bytes()
	r.Nonce = d.address()
	r.Expiry = d.i64()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return r, nil
}
