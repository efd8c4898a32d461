package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/internal/config"
	"github.com/0xterrybit/solana-attestation-service/keys"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/program"
	"github.com/0xterrybit/solana-attestation-service/storage/grpcstore"
	"github.com/0xterrybit/solana-attestation-service/storage/memstore"
)

func listen(t *testing.T) net.Listener {
	t.Helper()
	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return lis
}

// TestServe_SharedLedger writes through the gRPC store and reads the result
// back over HTTP.
func TestServe_SharedLedger(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d := &daemon{
		store:  memstore.New(),
		cfg:    &config.Config{ProgramID: program.DefaultID, Rent: ledger.DefaultRent()},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	grpcLis, httpLis := listen(t), listen(t)
	done := make(chan error, 1)
	go func() { done <- d.serve(ctx, grpcLis, httpLis) }()

	client, err := grpcstore.Dial(grpcLis.Addr().String(), grpcstore.DialOptions{})
	require.NoError(t, err)
	defer client.Close()

	rt := ledger.NewRuntime(client)
	rt.Register(program.DefaultID, program.New())

	seed := make([]byte, 32)
	seed[0] = 7
	kp, err := keys.FromSeed(seed)
	require.NoError(t, err)
	require.NoError(t, rt.Airdrop(ctx, kp.Address(), 1_000_000_000))

	ix, cred, err := instruction.NewBuilder(program.DefaultID).CreateCredential(kp.Address(), kp.Address(),
		instruction.CreateCredentialArgs{Name: []byte("acme")})
	require.NoError(t, err)
	tx, err := ledger.NewTransaction(ledger.Message{Payer: kp.Address(), Instructions: []ledger.Instruction{ix}}, kp)
	require.NoError(t, err)
	_, err = rt.Execute(ctx, tx)
	require.NoError(t, err)

	resp, err := http.Get("http://" + httpLis.Addr().String() + "/v1/accounts/" + cred.String())
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Address string         `json:"address"`
		Kind    string         `json:"kind"`
		Record  map[string]any `json:"record"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, cred.String(), body.Address)
	assert.Equal(t, "acme", body.Record["name"])

	mresp, err := http.Get("http://" + httpLis.Addr().String() + "/metrics")
	require.NoError(t, err)
	defer mresp.Body.Close()
	raw, err := io.ReadAll(mresp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `sas_store_grpc_requests_total{code="OK",method="/sas.storage.v1.AccountStore/Commit"}`)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(15 * time.Second):
		t.Fatal("serve did not return after cancel")
	}
}

func TestRun_ListBackends(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--list-backends"}, &out, &errOut)
	assert.Equal(t, 0, code)
	assert.Contains(t, out.String(), "localfs")
	assert.NotContains(t, out.String(), "grpc\t", "the gRPC client backend is CLI-only")
}

func TestRun_BadBackend(t *testing.T) {
	var out, errOut bytes.Buffer
	code := run(context.Background(), []string{"--backend", "nope"}, &out, &errOut)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut.String(), "unknown backend")
}
