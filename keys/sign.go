package keys

import (
	"crypto/sha256"
	"crypto/sha512"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// Supported message digests.
const (
	HashSHA256  = "sha256"
	HashSHA512  = "sha512"
	HashSHA3256 = "sha3-256"
)

// Digest hashes message with hashAlg (sha256, sha512 or sha3-256).
func Digest(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}
