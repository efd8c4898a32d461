// Package address implements fixed-width account addresses and the
// deterministic program-address derivation used to locate registry records.
package address

import (
	"bytes"
	"fmt"

	"github.com/mr-tron/base58"
)

// Size is the byte width of an address (and of every identity key).
const Size = 32

// Address identifies an account. Identity keys (Ed25519 public keys) and
// program-derived addresses share this type.
type Address [Size]byte

// Zero is the all-zero address. It is also the system program id.
var Zero Address

// SystemProgram owns every plain lamport-holding account.
var SystemProgram = Zero

// FromBytes copies b into an Address. b must be exactly Size bytes.
func FromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != Size {
		return a, fmt.Errorf("address: expected %d bytes, got %d", Size, len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Parse decodes a base58 address.
func Parse(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Zero, fmt.Errorf("address: invalid base58 %q: %w", s, err)
	}
	return FromBytes(b)
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Address {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

func (a Address) String() string { return base58.Encode(a[:]) }

// Bytes returns a slice aliasing a copy of the address.
func (a Address) Bytes() []byte {
	out := make([]byte, Size)
	copy(out, a[:])
	return out
}

func (a Address) IsZero() bool { return a == Zero }

func (a Address) Equal(b Address) bool { return bytes.Equal(a[:], b[:]) }

// MarshalText implements encoding.TextMarshaler using base58.
func (a Address) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
