package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/cidutil"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// Runtime executes signed transactions against a storage.Store. Each
// transaction runs on a private overlay and lands as one atomic batch.
type Runtime struct {
	store  storage.Store
	rent   Rent
	now    func() time.Time
	logger *slog.Logger

	mu       sync.RWMutex
	programs map[address.Address]Program
}

type Option func(*Runtime)

func WithRent(r Rent) Option                { return func(rt *Runtime) { rt.rent = r } }
func WithClock(now func() time.Time) Option { return func(rt *Runtime) { rt.now = now } }
func WithLogger(l *slog.Logger) Option      { return func(rt *Runtime) { rt.logger = l } }

func NewRuntime(store storage.Store, opts ...Option) *Runtime {
	rt := &Runtime{
		store:    store,
		rent:     DefaultRent(),
		now:      time.Now,
		logger:   slog.Default(),
		programs: map[address.Address]Program{},
	}
	for _, o := range opts {
		o(rt)
	}
	return rt
}

// Register binds p to programID. A later registration replaces an earlier one.
func (rt *Runtime) Register(programID address.Address, p Program) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.programs[programID] = p
}

func (rt *Runtime) Store() storage.Store { return rt.store }
func (rt *Runtime) Rent() Rent           { return rt.rent }

// Receipt describes the writes a committed transaction made.
type Receipt struct {
	ID         string
	MessageCID string
	Slot       int64
	Writes     []ReceiptWrite
}

type ReceiptWrite struct {
	Address  address.Address
	Op       storage.Op
	Owner    address.Address
	Lamports uint64
	Size     int
	DataCID  string
}

// Execute verifies tx, runs its instructions in order and commits all of
// their account changes atomically. Any failure leaves the store untouched.
func (rt *Runtime) Execute(ctx context.Context, tx *Transaction) (*Receipt, error) {
	return rt.execute(ctx, tx, true)
}

// Simulate runs tx like Execute but never commits.
func (rt *Runtime) Simulate(ctx context.Context, tx *Transaction) (*Receipt, error) {
	return rt.execute(ctx, tx, false)
}

func (rt *Runtime) execute(ctx context.Context, tx *Transaction, commit bool) (*Receipt, error) {
	if tx == nil {
		return nil, sas.New(sas.KindInvalidInstructionData, "SAS-TX-004", "nil transaction")
	}
	if err := tx.Verify(); err != nil {
		return nil, err
	}
	log := rt.logger.With("tx", tx.ID())
	clock := Clock{UnixTimestamp: rt.now().Unix()}

	signers := make(map[address.Address]bool)
	for _, s := range tx.Message.Signers() {
		signers[s] = true
	}

	ov := &overlay{store: rt.store, states: map[address.Address]*accountState{}}
	for i, ix := range tx.Message.Instructions {
		if err := rt.invoke(ctx, ov, signers, clock, ix); err != nil {
			log.Warn("instruction failed", "index", i, "program", ix.ProgramID, "error", err)
			return nil, err
		}
		log.Debug("instruction ok", "index", i, "program", ix.ProgramID, "accounts", len(ix.Accounts))
	}

	batch, receipt := ov.batch()
	receipt.ID = tx.ID()
	receipt.MessageCID = tx.MessageCID()
	receipt.Slot = clock.UnixTimestamp
	if !commit {
		return receipt, nil
	}
	if err := rt.store.Commit(ctx, batch); err != nil {
		err = mapStorageErr(err)
		log.Warn("commit failed", "writes", batch.Len(), "error", err)
		return nil, err
	}
	log.Info("transaction committed", "writes", batch.Len(), "message_cid", receipt.MessageCID)
	return receipt, nil
}

func (rt *Runtime) invoke(ctx context.Context, ov *overlay, signers map[address.Address]bool, clock Clock, ix Instruction) error {
	rt.mu.RLock()
	prog, ok := rt.programs[ix.ProgramID]
	rt.mu.RUnlock()
	if !ok {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-TX-005", "unknown program %s", ix.ProgramID)
	}

	infos := make([]*AccountInfo, 0, len(ix.Accounts))
	for _, meta := range ix.Accounts {
		if meta.IsSigner && !signers[meta.Address] {
			return sas.Newf(sas.KindUnauthorized, "SAS-TX-006", "account %s marked signer but did not sign", meta.Address)
		}
		st, err := ov.load(ctx, meta.Address)
		if err != nil {
			return err
		}
		infos = append(infos, &AccountInfo{
			Key:        meta.Address,
			IsSigner:   meta.IsSigner,
			IsWritable: meta.IsWritable,
			program:    ix.ProgramID,
			state:      st,
		})
	}

	before := make(map[address.Address]storage.Account, len(infos))
	var lamportsBefore uint64
	for _, info := range infos {
		if _, seen := before[info.Key]; seen {
			continue
		}
		snap := info.state.cur
		snap.Data = append([]byte(nil), snap.Data...)
		before[info.Key] = snap
		lamportsBefore += snap.Lamports
	}

	ic := &InvokeContext{
		ProgramID: ix.ProgramID,
		Accounts:  infos,
		Data:      ix.Data,
		Clock:     clock,
		Rent:      rt.rent,
		Logger:    rt.logger.With("program", ix.ProgramID),
		ctx:       ctx,
	}
	if err := prog.Process(ic); err != nil {
		return err
	}

	// Changed accounts must have been passed writable, and lamports are conserved.
	writable := make(map[address.Address]bool, len(infos))
	for _, info := range infos {
		writable[info.Key] = writable[info.Key] || info.IsWritable
	}
	var lamportsAfter uint64
	for addr, prev := range before {
		st := ov.states[addr]
		lamportsAfter += st.cur.Lamports
		if !writable[addr] && (st.cur.Lamports != prev.Lamports || st.cur.Owner != prev.Owner || string(st.cur.Data) != string(prev.Data)) {
			return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-010", "read-only account %s was modified", addr)
		}
	}
	if lamportsAfter != lamportsBefore {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-013", "instruction changed total lamports from %d to %d", lamportsBefore, lamportsAfter)
	}
	return nil
}

// Airdrop credits lamports to a system account, creating it if absent.
func (rt *Runtime) Airdrop(ctx context.Context, to address.Address, lamports uint64) error {
	const attempts = 8
	for i := 0; i < attempts; i++ {
		acct, err := rt.store.Get(ctx, to)
		exists := err == nil
		if err != nil && !storage.IsNotFound(err) {
			return sas.Wrap(sas.KindStorage, "SAS-RT-022", "read account", err)
		}
		if exists && (!acct.Owner.IsZero() || len(acct.Data) != 0) {
			return sas.Newf(sas.KindInvalidAccounts, "SAS-RT-007", "%s is not a system account", to)
		}
		var b storage.Batch
		if exists {
			acct.Lamports += lamports
			b.Update(to, acct)
		} else {
			b.Create(to, storage.Account{Lamports: lamports})
		}
		err = rt.store.Commit(ctx, b)
		if err == nil {
			rt.logger.Info("airdrop", "to", to, "lamports", lamports)
			return nil
		}
		if !storage.IsConflict(err) && !storage.IsAlreadyExists(err) {
			return mapStorageErr(err)
		}
	}
	return sas.Newf(sas.KindStorage, "SAS-RT-021", "airdrop to %s kept conflicting", to)
}

func mapStorageErr(err error) error {
	switch {
	case storage.IsAlreadyExists(err):
		return sas.Wrap(sas.KindAlreadyExists, "SAS-RT-020", "account already exists", err)
	case storage.IsConflict(err):
		return sas.Wrap(sas.KindStorage, "SAS-RT-021", "concurrent update", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	default:
		return sas.Wrap(sas.KindStorage, "SAS-RT-022", "storage", err)
	}
}

// overlay buffers account state for one transaction.
type overlay struct {
	store  storage.Store
	states map[address.Address]*accountState
	order  []address.Address
}

func (o *overlay) load(ctx context.Context, addr address.Address) (*accountState, error) {
	if st, ok := o.states[addr]; ok {
		return st, nil
	}
	acct, err := o.store.Get(ctx, addr)
	existed := true
	if err != nil {
		if !storage.IsNotFound(err) {
			return nil, sas.Wrap(sas.KindStorage, "SAS-RT-022", fmt.Sprintf("load %s", addr), err)
		}
		acct, existed = storage.Account{}, false
	}
	st := newAccountState(addr, acct, existed)
	o.states[addr] = st
	o.order = append(o.order, addr)
	return st, nil
}

// batch lists creates before updates so a lost creation race reports
// ErrAlreadyExists rather than a conflict on a shared payer.
func (o *overlay) batch() (storage.Batch, *Receipt) {
	var creates, updates []storage.Write
	r := &Receipt{}
	for _, addr := range o.order {
		st := o.states[addr]
		if !st.changed() {
			continue
		}
		w := storage.Write{Address: addr, Account: st.cur}
		if st.existed {
			w.Op = storage.OpUpdate
			w.Account.Revision = st.orig.Revision
			updates = append(updates, w)
		} else {
			w.Op = storage.OpCreate
			creates = append(creates, w)
		}
	}
	batch := storage.Batch{Writes: append(creates, updates...)}
	for _, w := range batch.Writes {
		r.Writes = append(r.Writes, ReceiptWrite{
			Address:  w.Address,
			Op:       w.Op,
			Owner:    w.Account.Owner,
			Lamports: w.Account.Lamports,
			Size:     len(w.Account.Data),
			DataCID:  cidutil.DataCID(w.Account.Data),
		})
	}
	return batch, r
}
