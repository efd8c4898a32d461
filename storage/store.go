package storage

import (
	"bytes"
	"context"
	"fmt"
	"sort"

	"github.com/0xterrybit/solana-attestation-service/address"
)

// Account is the persisted state of one address.
//
// Revision is assigned by the store: 1 on create, incremented on every update.
type Account struct {
	Owner    address.Address
	Lamports uint64
	Data     []byte
	Revision uint64
}

// KeyedAccount pairs an account with its address.
type KeyedAccount struct {
	Address address.Address
	Account Account
}

// Op selects how a Write is applied.
type Op uint8

const (
	// OpCreate requires the address to be absent.
	OpCreate Op = iota + 1
	// OpUpdate requires the stored revision to equal Account.Revision.
	OpUpdate
)

func (o Op) String() string {
	switch o {
	case OpCreate:
		return "create"
	case OpUpdate:
		return "update"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Write is one entry of a Batch. For OpUpdate, Account.Revision is the
// revision the writer read.
type Write struct {
	Op      Op
	Address address.Address
	Account Account
}

// Batch is applied all-or-nothing by Store.Commit.
type Batch struct {
	Writes []Write
}

func (b *Batch) Create(addr address.Address, acct Account) {
	b.Writes = append(b.Writes, Write{Op: OpCreate, Address: addr, Account: acct})
}

func (b *Batch) Update(addr address.Address, acct Account) {
	b.Writes = append(b.Writes, Write{Op: OpUpdate, Address: addr, Account: acct})
}

func (b Batch) Len() int { return len(b.Writes) }

// Validate rejects unknown ops and batches that touch an address twice.
func (b Batch) Validate() error {
	seen := make(map[address.Address]struct{}, len(b.Writes))
	for _, w := range b.Writes {
		if w.Op != OpCreate && w.Op != OpUpdate {
			return fmt.Errorf("%w: unknown op %d", ErrInvalidBatch, w.Op)
		}
		if _, dup := seen[w.Address]; dup {
			return fmt.Errorf("%w: address %s written twice", ErrInvalidBatch, w.Address)
		}
		seen[w.Address] = struct{}{}
	}
	return nil
}

// Store is a persistent address -> account map with an atomic batch commit.
//
// Contract:
//   - Get MUST return ErrNotFound when the address is absent.
//   - Commit MUST apply every write or none.
//   - An OpCreate against a present address fails with ErrAlreadyExists.
//   - An OpUpdate whose revision does not match fails with ErrConflict
//     (ErrNotFound when the address is absent).
//   - Scan returns accounts matching every filter, ordered by address.
type Store interface {
	Get(ctx context.Context, addr address.Address) (Account, error)
	Has(ctx context.Context, addr address.Address) (bool, error)
	Commit(ctx context.Context, batch Batch) error
	Scan(ctx context.Context, req ScanRequest) ([]KeyedAccount, error)
}

// Filter matches Bytes at Offset of the account data.
type Filter struct {
	Offset int
	Bytes  []byte
}

// ScanRequest narrows a Scan. A zero Owner matches any owner. Limit <= 0 means
// unlimited.
type ScanRequest struct {
	Owner   address.Address
	Filters []Filter
	Limit   int
}

// Matches reports whether acct satisfies the request's owner and data filters.
func (r ScanRequest) Matches(acct Account) bool {
	if !r.Owner.IsZero() && acct.Owner != r.Owner {
		return false
	}
	return Match(acct.Data, r.Filters)
}

// Match reports whether data satisfies every filter. A filter that runs past
// the end of data does not match.
func Match(data []byte, filters []Filter) bool {
	for _, f := range filters {
		if f.Offset < 0 || f.Offset+len(f.Bytes) > len(data) {
			return false
		}
		if !bytes.Equal(data[f.Offset:f.Offset+len(f.Bytes)], f.Bytes) {
			return false
		}
	}
	return true
}

// Next returns the account state a successful write leaves behind.
func (w Write) Next() Account {
	out := w.Account
	out.Data = append([]byte(nil), w.Account.Data...)
	if w.Op == OpCreate {
		out.Revision = 1
	} else {
		out.Revision = w.Account.Revision + 1
	}
	return out
}

// Check validates w against the current state of its address.
func (w Write) Check(cur Account, exists bool) error {
	switch w.Op {
	case OpCreate:
		if exists {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, w.Address)
		}
	case OpUpdate:
		if !exists {
			return fmt.Errorf("%w: %s", ErrNotFound, w.Address)
		}
		if cur.Revision != w.Account.Revision {
			return fmt.Errorf("%w: %s at revision %d, writer read %d", ErrConflict, w.Address, cur.Revision, w.Account.Revision)
		}
	default:
		return fmt.Errorf("%w: unknown op %d", ErrInvalidBatch, w.Op)
	}
	return nil
}

// SortKeyed orders accounts by address and truncates to limit when limit > 0.
func SortKeyed(out []KeyedAccount, limit int) []KeyedAccount {
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].Address[:], out[j].Address[:]) < 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
