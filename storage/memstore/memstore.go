// Package memstore is an in-process storage.Store guarded by a mutex.
package memstore

import (
	"context"
	"sync"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

type Store struct {
	mu       sync.RWMutex
	accounts map[address.Address]storage.Account
}

func New() *Store {
	return &Store{accounts: map[address.Address]storage.Account{}}
}

func (s *Store) Get(ctx context.Context, addr address.Address) (storage.Account, error) {
	if err := ctx.Err(); err != nil {
		return storage.Account{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[addr]
	if !ok {
		return storage.Account{}, storage.ErrNotFound
	}
	a.Data = append([]byte(nil), a.Data...)
	return a, nil
}

func (s *Store) Has(ctx context.Context, addr address.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.accounts[addr]
	return ok, nil
}

func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range batch.Writes {
		cur, ok := s.accounts[w.Address]
		if err := w.Check(cur, ok); err != nil {
			return err
		}
	}
	for _, w := range batch.Writes {
		s.accounts[w.Address] = w.Next()
	}
	return nil
}

func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) ([]storage.KeyedAccount, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]storage.KeyedAccount, 0)
	for addr, a := range s.accounts {
		if req.Matches(a) {
			a.Data = append([]byte(nil), a.Data...)
			out = append(out, storage.KeyedAccount{Address: addr, Account: a})
		}
	}
	s.mu.RUnlock()
	return storage.SortKeyed(out, req.Limit), nil
}
