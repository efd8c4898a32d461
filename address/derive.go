package address

import (
	"crypto/sha256"

	"filippo.io/edwards25519"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

const (
	// MaxSeeds is the maximum number of seeds, bump included.
	MaxSeeds = 16
	// MaxSeedLen is the maximum length of a single seed.
	MaxSeedLen = 32
)

var pdaMarker = []byte("ProgramDerivedAddress")

// CreateProgramAddress hashes seeds (the bump, if any, must already be the
// last seed) with programID and fails if the result lies on the edwards25519
// curve.
func CreateProgramAddress(seeds [][]byte, programID Address) (Address, error) {
	if err := checkSeeds(seeds); err != nil {
		return Zero, err
	}
	candidate := hashSeeds(seeds, nil, programID)
	if onCurve(candidate) {
		return Zero, sas.New(sas.KindInvalidInstructionData, "SAS-ADDR-003", "derived address lies on the ed25519 curve")
	}
	return candidate, nil
}

// FindProgramAddress searches bump values from 255 down to 0 and returns the
// first off-curve address together with its bump. The search order is fixed:
// callers and on-ledger verification rely on the highest valid bump.
func FindProgramAddress(seeds [][]byte, programID Address) (Address, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return Zero, 0, sas.Newf(sas.KindInvalidInstructionData, "SAS-ADDR-001", "too many seeds: %d (max %d with bump)", len(seeds), MaxSeeds)
	}
	if err := checkSeeds(seeds); err != nil {
		return Zero, 0, err
	}
	bump := []byte{0}
	for b := 255; b >= 0; b-- {
		bump[0] = uint8(b)
		candidate := hashSeeds(seeds, bump, programID)
		if !onCurve(candidate) {
			return candidate, uint8(b), nil
		}
	}
	return Zero, 0, sas.New(sas.KindAddressDerivationExhausted, "SAS-ADDR-100", "no off-curve address for any bump")
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) > MaxSeeds {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-ADDR-001", "too many seeds: %d (max %d)", len(seeds), MaxSeeds)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return sas.Newf(sas.KindInvalidInstructionData, "SAS-ADDR-002", "seed %d is %d bytes (max %d)", i, len(s), MaxSeedLen)
		}
	}
	return nil
}

func hashSeeds(seeds [][]byte, bump []byte, programID Address) Address {
	h := sha256.New()
	for _, s := range seeds {
		_, _ = h.Write(s)
	}
	if bump != nil {
		_, _ = h.Write(bump)
	}
	_, _ = h.Write(programID[:])
	_, _ = h.Write(pdaMarker)
	var out Address
	copy(out[:], h.Sum(nil))
	return out
}

// onCurve reports whether b decodes as an edwards25519 point. Non-canonical
// encodings of valid points count as on-curve.
func onCurve(b Address) bool {
	_, err := new(edwards25519.Point).SetBytes(b[:])
	return err == nil
}

// IsOnCurve reports whether a is a valid Ed25519 public key encoding.
func IsOnCurve(a Address) bool { return onCurve(a) }
