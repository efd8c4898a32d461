package keys

import (
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"

	"github.com/0xterrybit/solana-attestation-service/address"
)

// Keypair is an Ed25519 signing identity.
type Keypair struct {
	pub  address.Address
	priv ed25519.PrivateKey
}

// FromSeed returns the keypair for a 32-byte Ed25519 seed.
func FromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("ed25519 seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	kp := &Keypair{priv: priv}
	copy(kp.pub[:], priv.Public().(ed25519.PublicKey))
	return kp, nil
}

// Generate returns a fresh keypair from rand.
func Generate(rand io.Reader) (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand)
	if err != nil {
		return nil, err
	}
	kp := &Keypair{priv: priv}
	copy(kp.pub[:], pub)
	return kp, nil
}

// Address is the keypair's public key.
func (k *Keypair) Address() address.Address { return k.pub }

// Seed returns the private seed. Callers must not log it.
func (k *Keypair) Seed() []byte { return k.priv.Seed() }

// Sign returns a 64-byte Ed25519 signature over hash(message).
func (k *Keypair) Sign(hashAlg string, message []byte) ([]byte, error) {
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(k.priv, digest), nil
}

// Verify checks an Ed25519 signature by pub over hash(message).
func Verify(pub address.Address, hashAlg string, message, sig []byte) bool {
	if len(sig) != ed25519.SignatureSize {
		return false
	}
	digest, err := Digest(hashAlg, message)
	if err != nil {
		return false
	}
	return ed25519.Verify(ed25519.PublicKey(pub[:]), digest, sig)
}
