package ledger

import (
	"bytes"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// accountState is the transaction-local view of one address. Every
// AccountInfo for the same address in a transaction shares it.
type accountState struct {
	addr    address.Address
	orig    storage.Account
	existed bool
	cur     storage.Account
}

func newAccountState(addr address.Address, a storage.Account, existed bool) *accountState {
	cur := a
	cur.Data = append([]byte(nil), a.Data...)
	return &accountState{addr: addr, orig: a, existed: existed, cur: cur}
}

func (s *accountState) allocated() bool {
	return s.cur.Lamports > 0 || len(s.cur.Data) > 0 || !s.cur.Owner.IsZero()
}

func (s *accountState) changed() bool {
	return s.cur.Owner != s.orig.Owner ||
		s.cur.Lamports != s.orig.Lamports ||
		!bytes.Equal(s.cur.Data, s.orig.Data)
}

// AccountInfo is an account as seen by one instruction.
type AccountInfo struct {
	Key        address.Address
	IsSigner   bool
	IsWritable bool

	program address.Address
	state   *accountState
}

func (a *AccountInfo) Owner() address.Address { return a.state.cur.Owner }
func (a *AccountInfo) Lamports() uint64       { return a.state.cur.Lamports }

// Data returns the account data. Callers must not modify it; use Write.
func (a *AccountInfo) Data() []byte { return a.state.cur.Data }

// IsAllocated reports whether the account holds lamports, data or an owner.
func (a *AccountInfo) IsAllocated() bool { return a.state.allocated() }

// Write overwrites the account data in place. The account must be writable,
// owned by the running program, and b must match the allocated size.
func (a *AccountInfo) Write(b []byte) error {
	if !a.IsWritable {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-010", "account %s is not writable", a.Key)
	}
	if a.state.cur.Owner != a.program {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-011", "account %s is not owned by program %s", a.Key, a.program)
	}
	if len(b) != len(a.state.cur.Data) {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-012", "write of %d bytes into %d-byte account %s", len(b), len(a.state.cur.Data), a.Key)
	}
	copy(a.state.cur.Data, b)
	return nil
}
