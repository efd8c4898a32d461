package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/0xterrybit/solana-attestation-service/address"
)

// Wire formats shared by the file, redis and gRPC backends.
//
//	account = owner[32] | lamports u64 | revision u64 | data_len u32 | data
//	keyed   = address[32] | account
//	batch   = count u32 | (op u8 | address[32] | account)*
//	scan    = owner[32] | limit u32 | count u32 | (offset u32 | len u32 | bytes)*
const accountHeaderSize = 32 + 8 + 8 + 4

func AppendAccount(dst []byte, a Account) []byte {
	dst = append(dst, a.Owner[:]...)
	dst = binary.LittleEndian.AppendUint64(dst, a.Lamports)
	dst = binary.LittleEndian.AppendUint64(dst, a.Revision)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(a.Data)))
	return append(dst, a.Data...)
}

func EncodeAccount(a Account) []byte {
	return AppendAccount(make([]byte, 0, accountHeaderSize+len(a.Data)), a)
}

func DecodeAccount(b []byte) (Account, error) {
	a, rest, err := readAccount(b)
	if err != nil {
		return Account{}, err
	}
	if len(rest) != 0 {
		return Account{}, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(rest))
	}
	return a, nil
}

func readAccount(b []byte) (Account, []byte, error) {
	var a Account
	if len(b) < accountHeaderSize {
		return a, nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	copy(a.Owner[:], b[:32])
	a.Lamports = binary.LittleEndian.Uint64(b[32:])
	a.Revision = binary.LittleEndian.Uint64(b[40:])
	n := uint64(binary.LittleEndian.Uint32(b[48:]))
	b = b[accountHeaderSize:]
	if n > uint64(len(b)) {
		return a, nil, fmt.Errorf("%w: data length %d overruns %d", ErrCorrupt, n, len(b))
	}
	a.Data = append([]byte{}, b[:n]...)
	return a, b[n:], nil
}

func EncodeKeyed(k KeyedAccount) []byte {
	out := make([]byte, 0, 32+accountHeaderSize+len(k.Account.Data))
	out = append(out, k.Address[:]...)
	return AppendAccount(out, k.Account)
}

func DecodeKeyed(b []byte) (KeyedAccount, error) {
	var k KeyedAccount
	if len(b) < address.Size {
		return k, fmt.Errorf("%w: short address", ErrCorrupt)
	}
	copy(k.Address[:], b)
	a, err := DecodeAccount(b[address.Size:])
	if err != nil {
		return k, err
	}
	k.Account = a
	return k, nil
}

func EncodeBatch(batch Batch) []byte {
	out := binary.LittleEndian.AppendUint32(nil, uint32(len(batch.Writes)))
	for _, w := range batch.Writes {
		out = append(out, byte(w.Op))
		out = append(out, w.Address[:]...)
		out = AppendAccount(out, w.Account)
	}
	return out
}

func DecodeBatch(b []byte) (Batch, error) {
	var batch Batch
	if len(b) < 4 {
		return batch, fmt.Errorf("%w: short batch", ErrCorrupt)
	}
	count := binary.LittleEndian.Uint32(b)
	b = b[4:]
	// Each write is at least op + address + account header.
	if uint64(count)*(1+32+accountHeaderSize) > uint64(len(b)) {
		return batch, fmt.Errorf("%w: batch count %d overruns %d bytes", ErrCorrupt, count, len(b))
	}
	batch.Writes = make([]Write, 0, count)
	for i := uint32(0); i < count; i++ {
		if len(b) < 1+32 {
			return batch, fmt.Errorf("%w: write %d truncated", ErrCorrupt, i)
		}
		w := Write{Op: Op(b[0])}
		copy(w.Address[:], b[1:33])
		a, rest, err := readAccount(b[33:])
		if err != nil {
			return batch, err
		}
		w.Account = a
		batch.Writes = append(batch.Writes, w)
		b = rest
	}
	if len(b) != 0 {
		return batch, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(b))
	}
	return batch, nil
}

func EncodeScanRequest(r ScanRequest) []byte {
	out := append([]byte{}, r.Owner[:]...)
	limit := r.Limit
	if limit < 0 {
		limit = 0
	}
	out = binary.LittleEndian.AppendUint32(out, uint32(limit))
	out = binary.LittleEndian.AppendUint32(out, uint32(len(r.Filters)))
	for _, f := range r.Filters {
		out = binary.LittleEndian.AppendUint32(out, uint32(f.Offset))
		out = binary.LittleEndian.AppendUint32(out, uint32(len(f.Bytes)))
		out = append(out, f.Bytes...)
	}
	return out
}

func DecodeScanRequest(b []byte) (ScanRequest, error) {
	var r ScanRequest
	if len(b) < 32+4+4 {
		return r, fmt.Errorf("%w: short scan request", ErrCorrupt)
	}
	copy(r.Owner[:], b[:32])
	r.Limit = int(binary.LittleEndian.Uint32(b[32:]))
	count := binary.LittleEndian.Uint32(b[36:])
	b = b[40:]
	if uint64(count)*8 > uint64(len(b)) {
		return r, fmt.Errorf("%w: filter count %d overruns %d bytes", ErrCorrupt, count, len(b))
	}
	for i := uint32(0); i < count; i++ {
		if len(b) < 8 {
			return r, fmt.Errorf("%w: filter %d truncated", ErrCorrupt, i)
		}
		off := binary.LittleEndian.Uint32(b)
		n := uint64(binary.LittleEndian.Uint32(b[4:]))
		b = b[8:]
		if n > uint64(len(b)) {
			return r, fmt.Errorf("%w: filter %d overruns", ErrCorrupt, i)
		}
		r.Filters = append(r.Filters, Filter{Offset: int(off), Bytes: append([]byte{}, b[:n]...)})
		b = b[n:]
	}
	if len(b) != 0 {
		return r, fmt.Errorf("%w: %d trailing bytes", ErrCorrupt, len(b))
	}
	return r, nil
}
