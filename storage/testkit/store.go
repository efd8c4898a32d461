package testkit

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"sync"
	"testing"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// NewStore constructs a fresh, empty Store instance for a test.
// The returned Store MUST be isolated from other tests.
type NewStore func(t *testing.T) storage.Store

// Addr returns a deterministic test address for label.
func Addr(label string) address.Address {
	return address.Address(sha256.Sum256([]byte(label)))
}

func RunStoreConformance(t *testing.T, newStore NewStore) {
	t.Helper()
	ctx := context.Background()
	owner := Addr("owner")

	t.Run("CreateGetRoundTrip", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("a")
		want := storage.Account{Owner: owner, Lamports: 42, Data: []byte("hello, account store")}

		var b storage.Batch
		b.Create(addr, want)
		if err := s.Commit(ctx, b); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		got, err := s.Get(ctx, addr)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if got.Owner != owner || got.Lamports != 42 || !bytes.Equal(got.Data, want.Data) {
			t.Fatalf("Get mismatch: %+v", got)
		}
		if got.Revision != 1 {
			t.Fatalf("Revision after create: got %d want 1", got.Revision)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("missing")

		ok, err := s.Has(ctx, addr)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("Has returned true for missing address")
		}
		_, err = s.Get(ctx, addr)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		var b storage.Batch
		b.Create(addr, storage.Account{Owner: owner})
		if err := s.Commit(ctx, b); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}
		ok, err = s.Has(ctx, addr)
		if err != nil || !ok {
			t.Fatalf("Has after create: ok=%v err=%v", ok, err)
		}
	})

	t.Run("CreateIfAbsent", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("once")

		var first storage.Batch
		first.Create(addr, storage.Account{Owner: owner, Data: []byte("first")})
		if err := s.Commit(ctx, first); err != nil {
			t.Fatalf("Commit(1) failed: %v", err)
		}

		var second storage.Batch
		second.Create(addr, storage.Account{Owner: owner, Data: []byte("second")})
		if err := s.Commit(ctx, second); !storage.IsAlreadyExists(err) {
			t.Fatalf("Commit(2): got %v want ErrAlreadyExists", err)
		}

		got, err := s.Get(ctx, addr)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Data) != "first" {
			t.Fatalf("existing account overwritten: %q", got.Data)
		}
	})

	t.Run("ConcurrentCreateExactlyOnce", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("race")
		const n = 8

		var wg sync.WaitGroup
		errs := make([]error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				var b storage.Batch
				b.Create(addr, storage.Account{Owner: owner, Data: []byte{byte(i)}})
				errs[i] = s.Commit(ctx, b)
			}(i)
		}
		wg.Wait()

		wins := 0
		for _, err := range errs {
			switch {
			case err == nil:
				wins++
			case storage.IsAlreadyExists(err):
			default:
				t.Fatalf("unexpected commit error: %v", err)
			}
		}
		if wins != 1 {
			t.Fatalf("concurrent creates: %d succeeded, want exactly 1", wins)
		}
	})

	t.Run("UpdateRevisionChecked", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("rev")

		var b storage.Batch
		b.Create(addr, storage.Account{Owner: owner, Data: []byte("v1")})
		if err := s.Commit(ctx, b); err != nil {
			t.Fatalf("Commit create failed: %v", err)
		}
		cur, err := s.Get(ctx, addr)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}

		cur.Data = []byte("v2")
		var up storage.Batch
		up.Update(addr, cur)
		if err := s.Commit(ctx, up); err != nil {
			t.Fatalf("Commit update failed: %v", err)
		}

		// Replaying the same update carries a stale revision.
		if err := s.Commit(ctx, up); !storage.IsConflict(err) {
			t.Fatalf("stale update: got %v want ErrConflict", err)
		}

		got, err := s.Get(ctx, addr)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if string(got.Data) != "v2" || got.Revision != 2 {
			t.Fatalf("after update: data=%q revision=%d", got.Data, got.Revision)
		}

		var missing storage.Batch
		missing.Update(Addr("nowhere"), storage.Account{Revision: 1})
		if err := s.Commit(ctx, missing); !storage.IsNotFound(err) {
			t.Fatalf("update of missing address: got %v want ErrNotFound", err)
		}
	})

	t.Run("BatchAllOrNothing", func(t *testing.T) {
		s := newStore(t)
		taken := Addr("taken")

		var seed storage.Batch
		seed.Create(taken, storage.Account{Owner: owner})
		if err := s.Commit(ctx, seed); err != nil {
			t.Fatalf("seed commit failed: %v", err)
		}

		fresh := Addr("fresh")
		var b storage.Batch
		b.Create(fresh, storage.Account{Owner: owner})
		b.Create(taken, storage.Account{Owner: owner})
		if err := s.Commit(ctx, b); !storage.IsAlreadyExists(err) {
			t.Fatalf("Commit: got %v want ErrAlreadyExists", err)
		}
		ok, err := s.Has(ctx, fresh)
		if err != nil {
			t.Fatalf("Has failed: %v", err)
		}
		if ok {
			t.Fatalf("partial batch applied: %s exists", fresh)
		}
	})

	t.Run("RejectDuplicateAddressInBatch", func(t *testing.T) {
		s := newStore(t)
		addr := Addr("dup")
		var b storage.Batch
		b.Create(addr, storage.Account{Owner: owner})
		b.Create(addr, storage.Account{Owner: owner})
		if err := s.Commit(ctx, b); !errors.Is(err, storage.ErrInvalidBatch) {
			t.Fatalf("Commit: got %v want ErrInvalidBatch", err)
		}
	})

	t.Run("ScanFilters", func(t *testing.T) {
		s := newStore(t)
		other := Addr("other-owner")

		var b storage.Batch
		b.Create(Addr("s1"), storage.Account{Owner: owner, Data: []byte{1, 'x', 'y'}})
		b.Create(Addr("s2"), storage.Account{Owner: owner, Data: []byte{1, 'x', 'z'}})
		b.Create(Addr("s3"), storage.Account{Owner: owner, Data: []byte{2, 'x', 'y'}})
		b.Create(Addr("s4"), storage.Account{Owner: other, Data: []byte{1, 'x', 'y'}})
		b.Create(Addr("s5"), storage.Account{Owner: owner, Data: []byte{1}})
		if err := s.Commit(ctx, b); err != nil {
			t.Fatalf("Commit failed: %v", err)
		}

		got, err := s.Scan(ctx, storage.ScanRequest{
			Owner:   owner,
			Filters: []storage.Filter{{Offset: 0, Bytes: []byte{1}}, {Offset: 2, Bytes: []byte{'y'}}},
		})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(got) != 1 || got[0].Address != Addr("s1") {
			t.Fatalf("Scan: got %d results, want only s1", len(got))
		}

		all, err := s.Scan(ctx, storage.ScanRequest{Filters: []storage.Filter{{Offset: 0, Bytes: []byte{1}}}})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(all) != 4 {
			t.Fatalf("Scan any owner: got %d want 4", len(all))
		}
		for i := 1; i < len(all); i++ {
			if bytes.Compare(all[i-1].Address[:], all[i].Address[:]) >= 0 {
				t.Fatalf("Scan results not ordered by address")
			}
		}

		limited, err := s.Scan(ctx, storage.ScanRequest{Limit: 2})
		if err != nil {
			t.Fatalf("Scan failed: %v", err)
		}
		if len(limited) != 2 {
			t.Fatalf("Scan limit: got %d want 2", len(limited))
		}
	})
}
