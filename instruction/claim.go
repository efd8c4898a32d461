package instruction

import (
	"encoding/binary"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

// claimHeader is nonce[32] plus the u32 data length.
const claimHeader = 32 + 4

// ClaimArgs is a borrowed view of CreateAttestation and CreateRequest
// arguments:
//
//	nonce[32] | data_len u32 | data | expiry i64
//
// The accessors slice the parsed buffer; it must not be modified while the
// view is in use.
type ClaimArgs struct {
	raw []byte
}

// ParseClaimArgs validates the buffer bounds once. Length arithmetic is done
// in uint64 so a data_len of 0xffffffff cannot wrap.
func ParseClaimArgs(b []byte) (ClaimArgs, error) {
	if len(b) < claimHeader {
		return ClaimArgs{}, sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-010", "claim arguments need at least %d bytes, got %d", claimHeader, len(b))
	}
	n := uint64(binary.LittleEndian.Uint32(b[32:claimHeader]))
	want := uint64(claimHeader) + n + 8
	if want > uint64(len(b)) {
		return ClaimArgs{}, sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-011", "claim data length %d overruns %d-byte buffer", n, len(b))
	}
	if want != uint64(len(b)) {
		return ClaimArgs{}, sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-012", "%d trailing bytes after claim arguments", uint64(len(b))-want)
	}
	return ClaimArgs{raw: b}, nil
}

func (c ClaimArgs) Nonce() address.Address {
	var a address.Address
	copy(a[:], c.raw[:32])
	return a
}

// NonceBytes aliases the nonce in the underlying buffer.
func (c ClaimArgs) NonceBytes() []byte { return c.raw[:32:32] }

func (c ClaimArgs) dataLen() int { return int(binary.LittleEndian.Uint32(c.raw[32:claimHeader])) }

// Data aliases the claim data in the underlying buffer.
func (c ClaimArgs) Data() []byte {
	n := c.dataLen()
	return c.raw[claimHeader : claimHeader+n : claimHeader+n]
}

func (c ClaimArgs) Expiry() int64 {
	off := claimHeader + c.dataLen()
	return int64(binary.LittleEndian.Uint64(c.raw[off:]))
}

// AppendClaimArgs encodes claim arguments onto dst.
func AppendClaimArgs(dst []byte, nonce address.Address, data []byte, expiry int64) []byte {
	dst = append(dst, nonce[:]...)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(data)))
	dst = append(dst, data...)
	return binary.LittleEndian.AppendUint64(dst, uint64(expiry))
}
