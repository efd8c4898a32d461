package ledger

import (
	"context"
	"log/slog"
	"time"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

// Program processes instructions addressed to one program id.
type Program interface {
	Process(ic *InvokeContext) error
}

// ProgramFunc adapts a function to Program.
type ProgramFunc func(ic *InvokeContext) error

func (f ProgramFunc) Process(ic *InvokeContext) error { return f(ic) }

// InvokeContext is everything a program sees while processing one instruction.
type InvokeContext struct {
	ProgramID address.Address
	Accounts  []*AccountInfo
	Data      []byte
	Clock     Clock
	Rent      Rent
	Logger    *slog.Logger

	ctx context.Context
}

func (ic *InvokeContext) Context() context.Context { return ic.ctx }
func (ic *InvokeContext) Now() time.Time           { return ic.Clock.Time() }

// CreateAccount allocates space zeroed bytes at target, owned by the running
// program and funded to the rent-exempt minimum by payer. seeds must include
// the bump and re-derive target under the program id. Lamports already held by
// target count toward the minimum.
func (ic *InvokeContext) CreateAccount(payer, target *AccountInfo, space int, seeds [][]byte) error {
	if !payer.IsSigner {
		return sas.Newf(sas.KindUnauthorized, "SAS-RT-001", "payer %s did not sign", payer.Key)
	}
	if !payer.IsWritable || !target.IsWritable {
		return sas.New(sas.KindInvalidAccounts, "SAS-RT-002", "payer and target must be writable")
	}
	derived, err := address.CreateProgramAddress(seeds, ic.ProgramID)
	if err != nil {
		return err
	}
	if derived != target.Key {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-RT-003", "seeds derive %s, not %s", derived, target.Key)
	}
	// A target that only holds lamports is a pre-funded system account; it is
	// topped up to the rent minimum and taken over.
	if !target.state.cur.Owner.IsZero() || len(target.state.cur.Data) != 0 {
		return sas.Newf(sas.KindAlreadyExists, "SAS-RT-004", "account %s already in use", target.Key)
	}
	if space < 0 {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-RT-005", "negative space %d", space)
	}
	need := ic.Rent.MinimumBalance(space)
	if have := target.state.cur.Lamports; have < need {
		if err := debit(payer, need-have); err != nil {
			return err
		}
		target.state.cur.Lamports = need
	}
	target.state.cur.Data = make([]byte, space)
	target.state.cur.Owner = ic.ProgramID
	ic.Logger.Debug("account created", "address", target.Key, "space", space, "lamports", target.state.cur.Lamports)
	return nil
}

// Resize changes the data length of a program-owned account, topping its
// balance up from payer or refunding the surplus to payer.
func (ic *InvokeContext) Resize(payer, target *AccountInfo, newSize int) error {
	if !payer.IsSigner {
		return sas.Newf(sas.KindUnauthorized, "SAS-RT-001", "payer %s did not sign", payer.Key)
	}
	if !payer.IsWritable || !target.IsWritable {
		return sas.New(sas.KindInvalidAccounts, "SAS-RT-002", "payer and target must be writable")
	}
	if target.Owner() != ic.ProgramID {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-011", "account %s is not owned by program %s", target.Key, ic.ProgramID)
	}
	if newSize < 0 {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-RT-005", "negative space %d", newSize)
	}
	need := ic.Rent.MinimumBalance(newSize)
	have := target.Lamports()
	switch {
	case need > have:
		if err := debit(payer, need-have); err != nil {
			return err
		}
		target.state.cur.Lamports = need
	case need < have && payer.Key != target.Key:
		payer.state.cur.Lamports += have - need
		target.state.cur.Lamports = need
	}
	data := make([]byte, newSize)
	copy(data, target.state.cur.Data)
	target.state.cur.Data = data
	return nil
}

func debit(payer *AccountInfo, amount uint64) error {
	if payer.Lamports() < amount {
		return sas.Newf(sas.KindInsufficientFunds, "SAS-RT-006", "payer %s has %d lamports, needs %d", payer.Key, payer.Lamports(), amount)
	}
	if !payer.Owner().IsZero() || len(payer.Data()) != 0 {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-007", "payer %s is not a system account", payer.Key)
	}
	payer.state.cur.Lamports -= amount
	return nil
}

// SystemProgramID is the all-zero address of the account allocator. Programs
// expect it as the trailing account of every allocating instruction.
var SystemProgramID = address.Zero
