package state

import (
	"github.com/0xterrybit/solana-attestation-service/address"
)

// Credential is an issuer namespace owned by Authority.
type Credential struct {
	Authority         address.Address
	Name              []byte
	AuthorizedSigners []address.Address
}

// credentialMinSize covers the discriminator, authority and both prefixes.
const credentialMinSize = 1 + 32 + 4 + 4

func (*Credential) Discriminator() Discriminator { return KindCredential }
func (*Credential) record()                      {}

func (c *Credential) Size() int {
	return credentialMinSize + len(c.Name) + address.Size*len(c.AuthorizedSigners)
}

func (c *Credential) MarshalBinary() ([]byte, error) {
	e := newEncoder(KindCredential, c.Size())
	e.address(c.Authority)
	e.bytes(c.Name)
	e.addresses(c.AuthorizedSigners)
	return e.b, nil
}

// IsAuthorized reports whether signer may sign claims under this credential.
func (c *Credential) IsAuthorized(signer address.Address) bool {
	for _, s := range c.AuthorizedSigners {
		if s == signer {
			return true
		}
	}
	return false
}

func DecodeCredential(b []byte) (*Credential, error) {
	d := newDecoder(b, KindCredential, credentialMinSize)
	c := &Credential{}
	c.Authority = d.address()
	c.Name = d.bytes()
	c.AuthorizedSigners = d.addresses()
	if err := d.finish(); err != nil {
		return nil, err
	}
	return c, nil
}
