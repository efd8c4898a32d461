package program

import (
	"context"
	"crypto/rand"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/keys"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/state"
	"github.com/0xterrybit/solana-attestation-service/storage/memstore"
)

const (
	now    = int64(1_700_000_000)
	expiry = int64(1_800_000_000)
)

var programID = address.Address{0x5a, 0x5a, 0x01}

type env struct {
	t     *testing.T
	store *memstore.Store
	rt    *ledger.Runtime
	bld   instruction.Builder
	mu    sync.Mutex
	nonce uint64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	st := memstore.New()
	rt := ledger.NewRuntime(st, ledger.WithClock(func() time.Time { return time.Unix(now, 0) }))
	rt.Register(programID, New())
	return &env{t: t, store: st, rt: rt, bld: instruction.NewBuilder(programID)}
}

func (e *env) funded() *keys.Keypair {
	e.t.Helper()
	kp, err := keys.Generate(rand.Reader)
	require.NoError(e.t, err)
	require.NoError(e.t, e.rt.Airdrop(context.Background(), kp.Address(), 1_000_000_000))
	return kp
}

// run signs with signers[0] as payer.
func (e *env) run(signers []*keys.Keypair, ixs ...ledger.Instruction) error {
	e.mu.Lock()
	e.nonce++
	n := e.nonce
	e.mu.Unlock()
	tx, err := ledger.NewTransaction(ledger.Message{Payer: signers[0].Address(), Nonce: n, Instructions: ixs}, signers...)
	if err != nil {
		return err
	}
	_, err = e.rt.Execute(context.Background(), tx)
	return err
}

func (e *env) data(a address.Address) []byte {
	e.t.Helper()
	acct, err := e.store.Get(context.Background(), a)
	require.NoError(e.t, err)
	return acct.Data
}

var jurisdictionLayout = []byte{byte(layout.String)}

func claim(t *testing.T, v string) []byte {
	t.Helper()
	b, err := layout.EncodeData(jurisdictionLayout, []any{v})
	require.NoError(t, err)
	return b
}

// issuer creates credential "issuer-1" and schema "jurisdiction" owned by the
// returned authority.
func (e *env) issuer() (*keys.Keypair, address.Address, address.Address) {
	e.t.Helper()
	auth := e.funded()
	ix, cred, err := e.bld.CreateCredential(auth.Address(), auth.Address(), instruction.CreateCredentialArgs{Name: []byte("issuer-1")})
	require.NoError(e.t, err)
	require.NoError(e.t, e.run([]*keys.Keypair{auth}, ix))

	ix, schema, err := e.bld.CreateSchema(auth.Address(), auth.Address(), cred, instruction.CreateSchemaArgs{
		Name:        []byte("jurisdiction"),
		Description: []byte("where the holder resides"),
		Layout:      jurisdictionLayout,
		FieldNames:  []string{"jurisdiction"},
	})
	require.NoError(e.t, err)
	require.NoError(e.t, e.run([]*keys.Keypair{auth}, ix))
	return auth, cred, schema
}

func TestJurisdictionScenario(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	recipient := address.Address{0xee, 1}

	c, err := state.DecodeCredential(e.data(cred))
	require.NoError(t, err)
	assert.Equal(t, auth.Address(), c.Authority)
	assert.Equal(t, []address.Address{auth.Address()}, c.AuthorizedSigners)

	ix, att, err := e.bld.CreateAttestation(auth.Address(), auth.Address(), cred, schema, recipient, claim(t, "US"), expiry)
	require.NoError(t, err)
	require.NoError(t, e.run([]*keys.Keypair{auth}, ix))

	a, err := state.DecodeAttestation(e.data(att))
	require.NoError(t, err)
	assert.Equal(t, schema, a.Schema)
	assert.Equal(t, cred, a.Credential)
	assert.Equal(t, auth.Address(), a.Signer)
	assert.Equal(t, recipient, a.Nonce)
	assert.Equal(t, expiry, a.Expiry)

	s, err := state.DecodeSchema(e.data(schema))
	require.NoError(t, err)
	fields, err := layout.DecodeData(s.Layout, s.FieldNames, a.Data)
	require.NoError(t, err)
	require.Len(t, fields, 1)
	assert.Equal(t, "jurisdiction", fields[0].Name)
	assert.Equal(t, "US", fields[0].Value)

	acct, err := e.store.Get(context.Background(), att)
	require.NoError(t, err)
	assert.Equal(t, programID, acct.Owner)
	assert.Equal(t, ledger.DefaultRent().MinimumBalance(a.Size()), acct.Lamports)
}

func TestCreateRequest_SecondCallerLoses(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	nonce := address.Address{0xee, 2}
	first, second := e.funded(), e.funded()

	ix, req, err := e.bld.CreateRequest(first.Address(), auth.Address(), cred, schema, nonce, claim(t, "US"), expiry)
	require.NoError(t, err)
	require.NoError(t, e.run([]*keys.Keypair{first}, ix))

	ix2, req2, err := e.bld.CreateRequest(second.Address(), auth.Address(), cred, schema, nonce, claim(t, "FR"), expiry)
	require.NoError(t, err)
	require.Equal(t, req, req2, "request address does not depend on the signer")
	err = e.run([]*keys.Keypair{second}, ix2)
	assert.True(t, sas.IsKind(err, sas.KindAlreadyExists), "got %v", err)

	r, err := state.DecodeRequest(e.data(req))
	require.NoError(t, err)
	assert.Equal(t, first.Address(), r.Signer)
	assert.Equal(t, claim(t, "US"), r.Data)
	assert.Len(t, e.data(req), state.ClaimSize(len(r.Data)))
}

func TestCreateRequest_ConcurrentExactlyOnce(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	nonce := address.Address{0xee, 3}

	const n = 8
	payers := make([]*keys.Keypair, n)
	for i := range payers {
		payers[i] = e.funded()
	}
	data := claim(t, "US")
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ix, _, err := e.bld.CreateRequest(payers[i].Address(), auth.Address(), cred, schema, nonce, data, expiry)
			if err != nil {
				errs[i] = err
				return
			}
			errs[i] = e.run([]*keys.Keypair{payers[i]}, ix)
		}(i)
	}
	wg.Wait()

	winner := -1
	for i, err := range errs {
		if err == nil {
			require.Equal(t, -1, winner, "two creations succeeded")
			winner = i
			continue
		}
		assert.True(t, sas.IsKind(err, sas.KindAlreadyExists), "payer %d: %v", i, err)
	}
	require.NotEqual(t, -1, winner)

	_, req, err := e.bld.CreateRequest(payers[0].Address(), auth.Address(), cred, schema, nonce, nil, expiry)
	require.NoError(t, err)
	r, err := state.DecodeRequest(e.data(req))
	require.NoError(t, err)
	assert.Equal(t, payers[winner].Address(), r.Signer)
}

func TestCreateAttestation_CrossReference(t *testing.T) {
	e := newEnv(t)
	auth, _, schemaA := e.issuer()
	other, credB, _ := e.issuer()

	ix, _, err := e.bld.CreateAttestation(other.Address(), other.Address(), credB, schemaA, address.Address{1}, claim(t, "US"), expiry)
	require.NoError(t, err)
	err = e.run([]*keys.Keypair{other}, ix)
	assert.True(t, sas.IsKind(err, sas.KindInvalidSchema), "got %v", err)
	assert.Equal(t, "SAS-ACC-011", sas.Code(err))

	// a schema account passed where a credential is expected
	ix, _, err = e.bld.CreateAttestation(auth.Address(), auth.Address(), schemaA, schemaA, address.Address{1}, claim(t, "US"), expiry)
	require.NoError(t, err)
	err = e.run([]*keys.Keypair{auth}, ix)
	assert.True(t, sas.IsKind(err, sas.KindInvalidCredential), "got %v", err)
}

func TestCreateAttestation_PausedSchema(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	signers := []*keys.Keypair{auth}

	require.NoError(t, e.run(signers, e.bld.ChangeSchemaStatus(auth.Address(), cred, schema, true)))
	s, err := state.DecodeSchema(e.data(schema))
	require.NoError(t, err)
	assert.True(t, s.IsPaused)

	ix, _, err := e.bld.CreateAttestation(auth.Address(), auth.Address(), cred, schema, address.Address{1}, claim(t, "US"), expiry)
	require.NoError(t, err)
	err = e.run(signers, ix)
	assert.True(t, sas.IsKind(err, sas.KindSchemaPaused), "got %v", err)

	ix2, _, err := e.bld.CreateRequest(auth.Address(), auth.Address(), cred, schema, address.Address{1}, claim(t, "US"), expiry)
	require.NoError(t, err)
	assert.True(t, sas.IsKind(e.run(signers, ix2), sas.KindSchemaPaused))

	require.NoError(t, e.run(signers, e.bld.ChangeSchemaStatus(auth.Address(), cred, schema, false)))
	require.NoError(t, e.run(signers, ix))
}

func TestCreateAttestation_Expired(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	for _, exp := range []int64{now, now - 1, 0} {
		ix, _, err := e.bld.CreateAttestation(auth.Address(), auth.Address(), cred, schema, address.Address{1}, claim(t, "US"), exp)
		require.NoError(t, err)
		err = e.run([]*keys.Keypair{auth}, ix)
		assert.True(t, sas.IsKind(err, sas.KindExpired), "expiry %d: %v", exp, err)
	}
}

func TestCreateAttestation_DataMustMatchLayout(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	ix, _, err := e.bld.CreateAttestation(auth.Address(), auth.Address(), cred, schema, address.Address{1}, []byte{1, 2}, expiry)
	require.NoError(t, err)
	err = e.run([]*keys.Keypair{auth}, ix)
	assert.Equal(t, "SAS-ACC-022", sas.Code(err))
}

func TestAuthorizedSigners(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	delegate := e.funded()

	attest := func(signer *keys.Keypair, nonce address.Address) error {
		ix, _, err := e.bld.CreateAttestation(signer.Address(), signer.Address(), cred, schema, nonce, claim(t, "US"), expiry)
		require.NoError(t, err)
		return e.run([]*keys.Keypair{signer}, ix)
	}

	err := attest(delegate, address.Address{1})
	assert.True(t, sas.IsKind(err, sas.KindUnauthorized), "got %v", err)
	assert.Equal(t, "SAS-ACC-013", sas.Code(err))

	// only the authority may change the list
	err = e.run([]*keys.Keypair{delegate}, e.bld.ChangeAuthorizedSigners(delegate.Address(), delegate.Address(), cred, []address.Address{delegate.Address()}))
	assert.Equal(t, "SAS-ACC-012", sas.Code(err))

	before := e.data(cred)
	list := []address.Address{auth.Address(), delegate.Address(), delegate.Address()}
	require.NoError(t, e.run([]*keys.Keypair{auth}, e.bld.ChangeAuthorizedSigners(auth.Address(), auth.Address(), cred, list)))

	c, err := state.DecodeCredential(e.data(cred))
	require.NoError(t, err)
	assert.Equal(t, []address.Address{auth.Address(), delegate.Address()}, c.AuthorizedSigners, "deduplicated")
	assert.Len(t, e.data(cred), len(before)+address.Size)

	acct, err := e.store.Get(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, ledger.DefaultRent().MinimumBalance(len(acct.Data)), acct.Lamports, "rent topped up")

	require.NoError(t, attest(delegate, address.Address{1}))

	tooMany := make([]address.Address, MaxAuthorizedSigners+1)
	for i := range tooMany {
		tooMany[i] = address.Address{byte(i), byte(i >> 8), 1}
	}
	err = e.run([]*keys.Keypair{auth}, e.bld.ChangeAuthorizedSigners(auth.Address(), auth.Address(), cred, tooMany))
	assert.Equal(t, "SAS-ACC-015", sas.Code(err))
}

func TestCreateCredential_SignersStartWithAuthority(t *testing.T) {
	e := newEnv(t)
	auth := e.funded()
	extra := address.Address{9}
	ix, cred, err := e.bld.CreateCredential(auth.Address(), auth.Address(), instruction.CreateCredentialArgs{
		Name:    []byte("issuer-2"),
		Signers: []address.Address{extra, auth.Address(), extra},
	})
	require.NoError(t, err)
	require.NoError(t, e.run([]*keys.Keypair{auth}, ix))

	c, err := state.DecodeCredential(e.data(cred))
	require.NoError(t, err)
	assert.Equal(t, []address.Address{auth.Address(), extra}, c.AuthorizedSigners)

	err = e.run([]*keys.Keypair{auth}, ix)
	assert.True(t, sas.IsKind(err, sas.KindAlreadyExists))
}

func TestChangeSchemaDescription(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	longer := []byte("where the holder resides, as ISO 3166-1 alpha-2")

	payerBefore, err := e.store.Get(context.Background(), auth.Address())
	require.NoError(t, err)
	sizeBefore := len(e.data(schema))

	require.NoError(t, e.run([]*keys.Keypair{auth}, e.bld.ChangeSchemaDescription(auth.Address(), auth.Address(), cred, schema, longer)))
	s, err := state.DecodeSchema(e.data(schema))
	require.NoError(t, err)
	assert.Equal(t, longer, s.Description)
	assert.Equal(t, []string{"jurisdiction"}, s.FieldNames)

	grown := len(e.data(schema)) - sizeBefore
	payerAfter, err := e.store.Get(context.Background(), auth.Address())
	require.NoError(t, err)
	r := ledger.DefaultRent()
	assert.Equal(t, uint64(grown)*r.LamportsPerByteYear*r.ExemptionThreshold, payerBefore.Lamports-payerAfter.Lamports)

	// shrinking refunds the payer
	require.NoError(t, e.run([]*keys.Keypair{auth}, e.bld.ChangeSchemaDescription(auth.Address(), auth.Address(), cred, schema, []byte{})))
	payerFinal, err := e.store.Get(context.Background(), auth.Address())
	require.NoError(t, err)
	assert.Greater(t, payerFinal.Lamports, payerAfter.Lamports)
}

func TestCreateSchema_Validation(t *testing.T) {
	e := newEnv(t)
	auth, cred, _ := e.issuer()

	ix, _, err := e.bld.CreateSchema(auth.Address(), auth.Address(), cred, instruction.CreateSchemaArgs{
		Name:       []byte("bad"),
		Layout:     []byte{byte(layout.String), byte(layout.U8)},
		FieldNames: []string{"only-one"},
	})
	require.NoError(t, err)
	assert.Equal(t, "SAS-LAYOUT-003", sas.Code(e.run([]*keys.Keypair{auth}, ix)))

	stranger := e.funded()
	ix, _, err = e.bld.CreateSchema(stranger.Address(), stranger.Address(), cred, instruction.CreateSchemaArgs{
		Name: []byte("mine"), Layout: jurisdictionLayout, FieldNames: []string{"x"},
	})
	require.NoError(t, err)
	err = e.run([]*keys.Keypair{stranger}, ix)
	assert.True(t, sas.IsKind(err, sas.KindUnauthorized))
}

func TestAccountChecks(t *testing.T) {
	e := newEnv(t)
	auth := e.funded()
	ix, _, err := e.bld.CreateCredential(auth.Address(), auth.Address(), instruction.CreateCredentialArgs{Name: []byte("n")})
	require.NoError(t, err)

	short := ix
	short.Accounts = ix.Accounts[:3]
	assert.Equal(t, "SAS-ACC-001", sas.Code(e.run([]*keys.Keypair{auth}, short)))

	badSystem := ix
	badSystem.Accounts = append([]ledger.AccountMeta{}, ix.Accounts...)
	badSystem.Accounts[3] = ledger.ReadOnly(address.Address{1}, false)
	assert.Equal(t, "SAS-ACC-004", sas.Code(e.run([]*keys.Keypair{auth}, badSystem)))

	wrongTarget := ix
	wrongTarget.Accounts = append([]ledger.AccountMeta{}, ix.Accounts...)
	other, _, err := address.CredentialAddress(programID, auth.Address(), []byte("other"))
	require.NoError(t, err)
	wrongTarget.Accounts[1] = ledger.Writable(other, false)
	err = e.run([]*keys.Keypair{auth}, wrongTarget)
	assert.True(t, sas.IsKind(err, sas.KindInvalidInstructionData))
	assert.Equal(t, "SAS-ACC-014", sas.Code(err))

	noAuthSig := ix
	noAuthSig.Accounts = append([]ledger.AccountMeta{}, ix.Accounts...)
	stranger := e.funded()
	noAuthSig.Accounts[2] = ledger.ReadOnly(stranger.Address(), false)
	assert.Equal(t, "SAS-ACC-002", sas.Code(e.run([]*keys.Keypair{auth}, noAuthSig)))

	_, _, err = instruction.Split(nil)
	assert.Error(t, err)
}

func TestProcess_UnknownInstruction(t *testing.T) {
	for _, data := range [][]byte{{5}, {7}, {byte(instruction.CreateRequest) + 1}, {0xff, 0x01}} {
		err := New().Process(&ledger.InvokeContext{ProgramID: programID, Data: data, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
		require.Error(t, err)
		assert.Equal(t, "SAS-IX-002", sas.Code(err), "data %x", data)
	}
}

func TestCreateRequest_PrefundedAddress(t *testing.T) {
	e := newEnv(t)
	auth, cred, schema := e.issuer()
	holder := e.funded()

	ix, req, err := e.bld.CreateRequest(holder.Address(), auth.Address(), cred, schema, holder.Address(), claim(t, "US"), expiry)
	require.NoError(t, err)
	require.NoError(t, e.rt.Airdrop(context.Background(), req, 1))

	require.NoError(t, e.run([]*keys.Keypair{holder}, ix))
	r, err := state.DecodeRequest(e.data(req))
	require.NoError(t, err)
	assert.Equal(t, holder.Address(), r.Signer)
}
