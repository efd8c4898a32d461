package localfs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

const (
	accountsDir = "accounts"
	tmpDir      = "tmp"
	lockName    = ".commit.lock"
	fileExt     = ".acct"
)

// Store is a local filesystem-backed account store.
//
// Each account lives in its own file named by its base58 address. Commits are
// serialized by an O_EXCL lock file; creates are published with a hard link
// (which fails if the name exists) and updates with an atomic rename.
type Store struct {
	root string

	// StaleLockAfter removes a lock file older than this; zero disables it.
	StaleLockAfter time.Duration
}

// New constructs a filesystem Store rooted at root. The directory will be created if needed.
func New(root string) (*Store, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	for _, d := range []string{accountsDir, tmpDir} {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, err
		}
	}
	return &Store{root: root, StaleLockAfter: 30 * time.Second}, nil
}

func (s *Store) Get(ctx context.Context, addr address.Address) (storage.Account, error) {
	if err := ctx.Err(); err != nil {
		return storage.Account{}, err
	}
	b, err := os.ReadFile(s.pathFor(addr))
	if err != nil {
		if os.IsNotExist(err) {
			return storage.Account{}, storage.ErrNotFound
		}
		return storage.Account{}, err
	}
	return storage.DecodeAccount(b)
}

func (s *Store) Has(ctx context.Context, addr address.Address) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	_, err := os.Stat(s.pathFor(addr))
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, err
}

func (s *Store) Commit(ctx context.Context, batch storage.Batch) error {
	if err := batch.Validate(); err != nil {
		return err
	}
	unlock, err := s.lock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	prev := make([][]byte, len(batch.Writes))
	for i, w := range batch.Writes {
		b, err := os.ReadFile(s.pathFor(w.Address))
		exists := err == nil
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		var cur storage.Account
		if exists {
			if cur, err = storage.DecodeAccount(b); err != nil {
				return fmt.Errorf("localfs: %s: %w", w.Address, err)
			}
		}
		if err := w.Check(cur, exists); err != nil {
			return err
		}
		prev[i] = b
	}

	for i, w := range batch.Writes {
		if err := s.apply(w); err != nil {
			s.rollback(batch.Writes[:i], prev)
			return err
		}
	}
	return nil
}

func (s *Store) apply(w storage.Write) error {
	tmp, err := s.writeTemp(storage.EncodeAccount(w.Next()))
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	path := s.pathFor(w.Address)
	if w.Op == storage.OpCreate {
		if err := os.Link(tmp, path); err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("%w: %s", storage.ErrAlreadyExists, w.Address)
			}
			return err
		}
		return nil
	}
	return os.Rename(tmp, path)
}

// rollback undoes applied writes in reverse order. Errors are ignored; the
// original commit error is what the caller sees.
func (s *Store) rollback(applied []storage.Write, prev [][]byte) {
	for i := len(applied) - 1; i >= 0; i-- {
		w := applied[i]
		path := s.pathFor(w.Address)
		if w.Op == storage.OpCreate {
			_ = os.Remove(path)
			continue
		}
		if tmp, err := s.writeTemp(prev[i]); err == nil {
			_ = os.Rename(tmp, path)
		}
	}
}

func (s *Store) writeTemp(b []byte) (string, error) {
	f, err := os.CreateTemp(filepath.Join(s.root, tmpDir), "acct-*")
	if err != nil {
		return "", err
	}
	path := f.Name()
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	return path, nil
}

func (s *Store) lock(ctx context.Context) (func(), error) {
	path := filepath.Join(s.root, lockName)
	for {
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
		if err == nil {
			_ = f.Close()
			return func() { _ = os.Remove(path) }, nil
		}
		if !os.IsExist(err) {
			return nil, err
		}
		if s.StaleLockAfter > 0 {
			if fi, serr := os.Stat(path); serr == nil && time.Since(fi.ModTime()) > s.StaleLockAfter {
				_ = os.Remove(path)
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(2 * time.Millisecond):
		}
	}
}

func (s *Store) Scan(ctx context.Context, req storage.ScanRequest) ([]storage.KeyedAccount, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, accountsDir))
	if err != nil {
		return nil, err
	}
	out := make([]storage.KeyedAccount, 0)
	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, fileExt) {
			continue
		}
		addr, err := address.Parse(strings.TrimSuffix(name, fileExt))
		if err != nil {
			continue
		}
		b, err := os.ReadFile(filepath.Join(s.root, accountsDir, name))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, err
		}
		acct, err := storage.DecodeAccount(b)
		if err != nil {
			return nil, fmt.Errorf("localfs: %s: %w", addr, err)
		}
		if req.Matches(acct) {
			out = append(out, storage.KeyedAccount{Address: addr, Account: acct})
		}
	}
	return storage.SortKeyed(out, req.Limit), nil
}

func (s *Store) pathFor(addr address.Address) string {
	return filepath.Join(s.root, accountsDir, addr.String()+fileExt)
}
