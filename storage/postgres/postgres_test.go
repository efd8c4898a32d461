package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/0xterrybit/solana-attestation-service/cidutil"
	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/testkit"
)

// openTestStore connects to SAS_TEST_DB_DSN and empties the accounts table.
func openTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("SAS_TEST_DB_DSN")
	if dsn == "" {
		t.Skip("SAS_TEST_DB_DSN not set")
	}
	s, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if _, err := s.DB.Exec(`TRUNCATE accounts`); err != nil {
		t.Fatalf("truncate failed: %v", err)
	}
	return s
}

func TestPostgres_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return openTestStore(t)
	})
}

func TestPostgres_RecordsDataCID(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	addr := testkit.Addr("cid")
	data := []byte{2, 'a', 'b'}

	var b storage.Batch
	b.Create(addr, storage.Account{Data: data})
	if err := s.Commit(ctx, b); err != nil {
		t.Fatalf("Commit failed: %v", err)
	}
	got, err := s.DataCID(ctx, addr)
	if err != nil {
		t.Fatalf("DataCID failed: %v", err)
	}
	if !cidutil.Matches(got, data) {
		t.Fatalf("DataCID: %s does not address %x", got, data)
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("embedded migrations: got %d files want 2", len(entries))
	}
}
