package api

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/keys"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/program"
	"github.com/0xterrybit/solana-attestation-service/storage/memstore"
)

var programID = address.Address{0xa9, 0x1}

type fixture struct {
	srv                    *httptest.Server
	api                    *Server
	cred, schema, att, req address.Address
	recipient              address.Address
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memstore.New()
	clock := time.Unix(1_700_000_000, 0)
	rt := ledger.NewRuntime(store, ledger.WithClock(func() time.Time { return clock }))
	rt.Register(programID, program.New())

	auth, err := keys.Generate(rand.Reader)
	require.NoError(t, err)
	require.NoError(t, rt.Airdrop(ctx, auth.Address(), 1_000_000_000))

	var nonce uint64
	run := func(ix ledger.Instruction) {
		t.Helper()
		nonce++
		tx, err := ledger.NewTransaction(ledger.Message{Payer: auth.Address(), Nonce: nonce, Instructions: []ledger.Instruction{ix}}, auth)
		require.NoError(t, err)
		_, err = rt.Execute(ctx, tx)
		require.NoError(t, err)
	}

	f := &fixture{recipient: address.Address{0xee}}
	bld := instruction.NewBuilder(programID)
	ix, cred, err := bld.CreateCredential(auth.Address(), auth.Address(), instruction.CreateCredentialArgs{Name: []byte("issuer-1")})
	require.NoError(t, err)
	run(ix)
	ix, schema, err := bld.CreateSchema(auth.Address(), auth.Address(), cred, instruction.CreateSchemaArgs{
		Name: []byte("jurisdiction"), Description: []byte{}, Layout: []byte{byte(layout.String)}, FieldNames: []string{"jurisdiction"},
	})
	require.NoError(t, err)
	run(ix)
	data, err := layout.EncodeData([]byte{byte(layout.String)}, []any{"US"})
	require.NoError(t, err)
	ix, att, err := bld.CreateAttestation(auth.Address(), auth.Address(), cred, schema, f.recipient, data, 1_700_000_100)
	require.NoError(t, err)
	run(ix)
	ix, req, err := bld.CreateRequest(auth.Address(), auth.Address(), cred, schema, f.recipient, data, 1_800_000_000)
	require.NoError(t, err)
	run(ix)

	f.cred, f.schema, f.att, f.req = cred, schema, att, req
	f.api = New(store, programID, nil)
	f.api.Now = func() time.Time { return clock.Add(time.Hour) }
	f.srv = httptest.NewServer(f.api.Routes())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fixture) get(t *testing.T, path string, out any) int {
	t.Helper()
	resp, err := http.Get(f.srv.URL + path)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

type claimOut struct {
	Address string `json:"address"`
	Kind    string `json:"kind"`
	DataCID string `json:"data_cid"`
	Record  struct {
		Signer  string `json:"signer"`
		Nonce   string `json:"nonce"`
		Expired bool   `json:"expired"`
		Fields  []struct {
			Name  string `json:"name"`
			Type  string `json:"type"`
			Value any    `json:"value"`
		} `json:"fields"`
	} `json:"record"`
}

func TestGetAccount_Attestation(t *testing.T) {
	f := newFixture(t)
	var out claimOut
	require.Equal(t, http.StatusOK, f.get(t, "/v1/accounts/"+f.att.String(), &out))
	assert.Equal(t, "attestation", out.Kind)
	assert.Equal(t, f.recipient.String(), out.Record.Nonce)
	assert.True(t, out.Record.Expired, "expiry passed on the server clock")
	assert.NotEmpty(t, out.DataCID)
	require.Len(t, out.Record.Fields, 1)
	assert.Equal(t, "jurisdiction", out.Record.Fields[0].Name)
	assert.Equal(t, "string", out.Record.Fields[0].Type)
	assert.Equal(t, "US", out.Record.Fields[0].Value)
}

func TestListings(t *testing.T) {
	f := newFixture(t)

	var creds []struct {
		Address string `json:"address"`
		Record  struct {
			Name string `json:"name"`
		} `json:"record"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/v1/credentials", &creds))
	require.Len(t, creds, 1)
	assert.Equal(t, "issuer-1", creds[0].Record.Name)

	var schemas []struct {
		Address string `json:"address"`
		Record  struct {
			Layout     []string `json:"layout"`
			FieldNames []string `json:"field_names"`
		} `json:"record"`
	}
	require.Equal(t, http.StatusOK, f.get(t, "/v1/credentials/"+f.cred.String()+"/schemas", &schemas))
	require.Len(t, schemas, 1)
	assert.Equal(t, f.schema.String(), schemas[0].Address)
	assert.Equal(t, []string{"string"}, schemas[0].Record.Layout)

	var atts []claimOut
	require.Equal(t, http.StatusOK, f.get(t, "/v1/schemas/"+f.schema.String()+"/attestations", &atts))
	require.Len(t, atts, 1)
	assert.Equal(t, f.att.String(), atts[0].Address)

	var reqs []claimOut
	require.Equal(t, http.StatusOK, f.get(t, "/v1/schemas/"+f.schema.String()+"/requests", &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, "request", reqs[0].Kind)
	assert.False(t, reqs[0].Record.Expired)

	var about []claimOut
	require.Equal(t, http.StatusOK, f.get(t, "/v1/recipients/"+f.recipient.String()+"/attestations", &about))
	assert.Len(t, about, 1)
}

func TestErrors(t *testing.T) {
	f := newFixture(t)
	var body errorJSON
	assert.Equal(t, http.StatusBadRequest, f.get(t, "/v1/accounts/not-base58!", &body))
	assert.Equal(t, http.StatusNotFound, f.get(t, "/v1/accounts/"+address.Address{1}.String(), &body))
	assert.Equal(t, http.StatusUnprocessableEntity, f.get(t, "/v1/schemas/"+f.cred.String()+"/attestations", &body))
	assert.Equal(t, "SAS-QRY-003", body.Code)
	assert.Equal(t, http.StatusOK, f.get(t, "/healthz", nil))
}
