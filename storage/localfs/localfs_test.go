package localfs

import (
	"context"
	"os"
	"testing"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/testkit"
)

func TestLocalFS_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		t.Helper()
		dir := t.TempDir()
		s, err := New(dir)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		return s
	})
}

func TestLocalFS_DetectsCorruption(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	addr := testkit.Addr("corrupt")
	var b storage.Batch
	b.Create(addr, storage.Account{Data: []byte("original")})
	if err := s.Commit(ctx, b); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}

	// Corrupt the stored account out-of-band.
	if err := os.WriteFile(s.pathFor(addr), []byte("garbage"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if _, err := s.Get(ctx, addr); err == nil {
		t.Fatalf("Get should fail on a corrupt account file")
	}
}

func TestLocalFS_ReleasesLockOnFailure(t *testing.T) {
	ctx := context.Background()
	s, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	var up storage.Batch
	up.Update(testkit.Addr("missing"), storage.Account{Revision: 1})
	if err := s.Commit(ctx, up); !storage.IsNotFound(err) {
		t.Fatalf("Commit: got %v want ErrNotFound", err)
	}

	var b storage.Batch
	b.Create(testkit.Addr("after"), storage.Account{})
	if err := s.Commit(ctx, b); err != nil {
		t.Fatalf("Commit after failure: %v", err)
	}
}

func TestLocalFS_LockHonorsContext(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	s.StaleLockAfter = 0
	unlock, err := s.lock(context.Background())
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var b storage.Batch
	b.Create(testkit.Addr("blocked"), storage.Account{})
	if err := s.Commit(ctx, b); err != context.Canceled {
		t.Fatalf("Commit while locked: got %v want context.Canceled", err)
	}
}
