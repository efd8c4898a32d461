package keys

import (
	"crypto/sha256"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/ed25519"
	"golang.org/x/crypto/hkdf"
)

var roleSalt = []byte("sas-keystore-v1")

// DeriveRoleSeed derives the seed of a role key from a root seed with
// HKDF-SHA256. The same root and role always yield the same seed.
func DeriveRoleSeed(rootSeed []byte, role string) ([]byte, error) {
	if len(rootSeed) != ed25519.SeedSize {
		return nil, fmt.Errorf("root seed must be %d bytes", ed25519.SeedSize)
	}
	if err := CheckRole(role); err != nil {
		return nil, err
	}
	out := make([]byte, ed25519.SeedSize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, rootSeed, roleSalt, []byte("role:"+role)), out); err != nil {
		return nil, fmt.Errorf("derive role %q: %w", role, err)
	}
	return out, nil
}
