package grpcstore

import (
	"context"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/test/bufconn"

	"github.com/0xterrybit/solana-attestation-service/storage"
	"github.com/0xterrybit/solana-attestation-service/storage/localfs"
	"github.com/0xterrybit/solana-attestation-service/storage/memstore"
	"github.com/0xterrybit/solana-attestation-service/storage/testkit"
)

func serve(t *testing.T, backing storage.Store) *Client {
	t.Helper()
	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterAccountStoreServer(srv, &Server{Store: backing})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.DialContext(ctx) }
	client, err := Dial("passthrough:///bufnet", DialOptions{Extra: []grpc.DialOption{grpc.WithContextDialer(dialer)}})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	client.Timeout = 5 * time.Second
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestGRPCStore_Conformance(t *testing.T) {
	testkit.RunStoreConformance(t, func(t *testing.T) storage.Store {
		return serve(t, memstore.New())
	})
}

func TestGRPCStore_LocalFS_RoundTrip(t *testing.T) {
	backing, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatalf("localfs.New: %v", err)
	}
	client := serve(t, backing)
	ctx := context.Background()
	addr := testkit.Addr("grpc")

	var b storage.Batch
	b.Create(addr, storage.Account{Lamports: 7, Data: []byte("hello grpcstore")})
	if err := client.Commit(ctx, b); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	ok, err := client.Has(ctx, addr)
	if err != nil || !ok {
		t.Fatalf("Has: ok=%v err=%v", ok, err)
	}
	got, err := client.Get(ctx, addr)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got.Data) != "hello grpcstore" || got.Lamports != 7 {
		t.Fatalf("payload mismatch: %+v", got)
	}
	// The backing store sees the same state.
	direct, err := backing.Get(ctx, addr)
	if err != nil || direct.Revision != got.Revision {
		t.Fatalf("backing store: %+v err=%v", direct, err)
	}
}

func TestGRPCStore_MissingStore(t *testing.T) {
	client := serve(t, nil)
	if _, err := client.Has(context.Background(), testkit.Addr("x")); err == nil {
		t.Fatalf("expected error from server without a store")
	}
}
