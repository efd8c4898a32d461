package storeconfig

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"

	"github.com/0xterrybit/solana-attestation-service/storage"
	_ "github.com/0xterrybit/solana-attestation-service/storage/localfs"
	_ "github.com/0xterrybit/solana-attestation-service/storage/memstore"
	"github.com/0xterrybit/solana-attestation-service/storage/storeregistry"
	"github.com/0xterrybit/solana-attestation-service/storage/testkit"
)

func TestLoadFile_OpenLocalFS(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "store.json")
	body := `{"backend":"localfs","options":{"localfs-dir":"` + filepath.ToSlash(filepath.Join(dir, "data")) + `"}}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	s, closeFn, err := cfg.Open(storeregistry.UsageCLI)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()

	var b storage.Batch
	b.Create(testkit.Addr("cfg"), storage.Account{Data: []byte{1}})
	if err := s.Commit(context.Background(), b); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "data", "accounts")); err != nil {
		t.Fatalf("localfs dir not created: %v", err)
	}
}

func TestFromViper(t *testing.T) {
	v := viper.New()
	v.Set("SAS_STORE_BACKEND", "redis")
	v.Set("SAS_REDIS_ADDR", "127.0.0.1:6379")
	v.Set("SAS_LOCALFS_DIR", "/ignored")
	cfg := FromViper(v)
	if cfg.Backend != "redis" || cfg.Options["redis-addr"] != "127.0.0.1:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if _, ok := cfg.Options["localfs-dir"]; ok {
		t.Fatalf("options leaked from another backend: %+v", cfg.Options)
	}

	v = viper.New()
	v.Set("SAS_STORE_BACKEND", "postgres")
	v.Set("SAS_DB_HOST", "db")
	v.Set("SAS_DB_PORT", 5432)
	v.Set("SAS_DB_USER", "sas")
	v.Set("SAS_DB_PASSWORD", "pw")
	v.Set("SAS_DB_NAME", "sas")
	v.Set("SAS_DB_SSLMODE", "disable")
	cfg = FromViper(v)
	want := "host=db port=5432 user=sas password=pw dbname=sas sslmode=disable"
	if cfg.Options["postgres-dsn"] != want {
		t.Fatalf("dsn: got %q want %q", cfg.Options["postgres-dsn"], want)
	}
	if s := cfg.String(); s != "postgres[postgres-dsn]" {
		t.Fatalf("String leaked values: %q", s)
	}
}

func TestOpen_Memory(t *testing.T) {
	s, closeFn, err := Config{Backend: "memory"}.Open(storeregistry.UsageDaemon)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer closeFn()
	if s == nil {
		t.Fatalf("nil store")
	}
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty backend")
	}
}
