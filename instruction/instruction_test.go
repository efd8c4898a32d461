package instruction

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

func TestSplit(t *testing.T) {
	_, _, err := Split(nil)
	assert.Equal(t, "SAS-IX-001", sas.Code(err))
	_, _, err = Split([]byte{5})
	assert.Equal(t, "SAS-IX-002", sas.Code(err))

	d, args, err := Split([]byte{byte(CreateRequest), 1, 2})
	require.NoError(t, err)
	assert.Equal(t, CreateRequest, d)
	assert.Equal(t, []byte{1, 2}, args)
	assert.Equal(t, "CreateRequest", d.String())
}

func TestClaimArgs(t *testing.T) {
	nonce := address.Address{7, 7, 7}
	b := AppendClaimArgs(nil, nonce, []byte("hello"), 1_900_000_000)

	c, err := ParseClaimArgs(b)
	require.NoError(t, err)
	assert.Equal(t, nonce, c.Nonce())
	assert.Equal(t, []byte("hello"), c.Data())
	assert.Equal(t, int64(1_900_000_000), c.Expiry())

	// the view aliases the buffer
	b[36] = 'j'
	assert.Equal(t, []byte("jello"), c.Data())
}

func TestClaimArgs_EmptyData(t *testing.T) {
	b := AppendClaimArgs(nil, address.Address{1}, nil, -5)
	require.Len(t, b, 32+4+8)
	c, err := ParseClaimArgs(b)
	require.NoError(t, err)
	assert.Empty(t, c.Data())
	assert.Equal(t, int64(-5), c.Expiry())
}

func TestClaimArgs_Bounds(t *testing.T) {
	_, err := ParseClaimArgs(make([]byte, 35))
	assert.Equal(t, "SAS-IX-010", sas.Code(err))

	huge := make([]byte, 32+4+8)
	binary.LittleEndian.PutUint32(huge[32:], math.MaxUint32)
	_, err = ParseClaimArgs(huge)
	assert.Equal(t, "SAS-IX-011", sas.Code(err), "u32::MAX data length must not wrap")

	// data present but expiry cut short
	short := AppendClaimArgs(nil, address.Address{}, []byte("abc"), 1)
	_, err = ParseClaimArgs(short[:len(short)-1])
	assert.Equal(t, "SAS-IX-011", sas.Code(err))

	_, err = ParseClaimArgs(append(short, 0))
	assert.Equal(t, "SAS-IX-012", sas.Code(err))
	assert.True(t, sas.IsKind(err, sas.KindInvalidInstructionData))
}

func TestArgsRoundTrip(t *testing.T) {
	signers := []address.Address{{1}, {2}}

	b, _ := CreateCredentialArgs{Name: []byte("issuer-1"), Signers: signers}.MarshalBinary()
	d, rest, err := Split(b)
	require.NoError(t, err)
	require.Equal(t, CreateCredential, d)
	cc, err := ParseCreateCredentialArgs(rest)
	require.NoError(t, err)
	assert.Equal(t, []byte("issuer-1"), cc.Name)
	assert.Equal(t, signers, cc.Signers)

	want := CreateSchemaArgs{Name: []byte("jurisdiction"), Description: []byte{}, Layout: []byte{12}, FieldNames: []string{"jurisdiction"}}
	b, _ = want.MarshalBinary()
	cs, err := ParseCreateSchemaArgs(b[1:])
	require.NoError(t, err)
	assert.Equal(t, want, cs)

	b, _ = ChangeSchemaStatusArgs{IsPaused: true}.MarshalBinary()
	st, err := ParseChangeSchemaStatusArgs(b[1:])
	require.NoError(t, err)
	assert.True(t, st.IsPaused)
	_, err = ParseChangeSchemaStatusArgs([]byte{2})
	assert.Equal(t, "SAS-IX-023", sas.Code(err))

	b, _ = ChangeAuthorizedSignersArgs{Signers: signers}.MarshalBinary()
	cas, err := ParseChangeAuthorizedSignersArgs(b[1:])
	require.NoError(t, err)
	assert.Equal(t, signers, cas.Signers)

	b, _ = ChangeSchemaDescriptionArgs{Description: []byte("new")}.MarshalBinary()
	csd, err := ParseChangeSchemaDescriptionArgs(b[1:])
	require.NoError(t, err)
	assert.Equal(t, []byte("new"), csd.Description)
}

func TestArgs_Malformed(t *testing.T) {
	b, _ := CreateCredentialArgs{Name: []byte("n"), Signers: []address.Address{{1}}}.MarshalBinary()
	for n := 1; n < len(b); n++ {
		_, err := ParseCreateCredentialArgs(b[1:n])
		assert.True(t, sas.IsKind(err, sas.KindInvalidInstructionData), "truncated to %d", n)
	}
	_, err := ParseCreateCredentialArgs(append(b[1:], 0))
	assert.Equal(t, "SAS-IX-024", sas.Code(err))

	// signer count far beyond the buffer
	bad := binary.LittleEndian.AppendUint32(nil, 0)
	bad = binary.LittleEndian.AppendUint32(bad, 1<<30)
	_, err = ParseCreateCredentialArgs(bad)
	assert.Equal(t, "SAS-IX-021", sas.Code(err))

	badName := CreateSchemaArgs{Name: []byte{}, Description: []byte{}, Layout: []byte{}, FieldNames: []string{"\xff"}}
	b, _ = badName.MarshalBinary()
	_, err = ParseCreateSchemaArgs(b[1:])
	assert.Equal(t, "SAS-IX-022", sas.Code(err))
}

func TestBuilder(t *testing.T) {
	pid := address.Address{0xaa}
	payer, authority, nonce := address.Address{1}, address.Address{2}, address.Address{3}
	bld := NewBuilder(pid)

	ix, cred, err := bld.CreateCredential(payer, authority, CreateCredentialArgs{Name: []byte("issuer-1")})
	require.NoError(t, err)
	want, _, err := address.CredentialAddress(pid, authority, []byte("issuer-1"))
	require.NoError(t, err)
	assert.Equal(t, want, cred)
	require.Len(t, ix.Accounts, 4)
	assert.Equal(t, ledger.Writable(cred, false), ix.Accounts[1])
	assert.Equal(t, ledger.SystemProgramID, ix.Accounts[3].Address)

	ix, schema, err := bld.CreateSchema(payer, authority, cred, CreateSchemaArgs{Name: []byte("s")})
	require.NoError(t, err)
	assert.Equal(t, schema, ix.Accounts[3].Address)

	ix, att, err := bld.CreateAttestation(payer, authority, cred, schema, nonce, []byte("x"), 10)
	require.NoError(t, err)
	wantAtt, _, err := address.AttestationAddress(pid, cred, authority, schema, nonce)
	require.NoError(t, err)
	assert.Equal(t, wantAtt, att)
	d, args, err := Split(ix.Data)
	require.NoError(t, err)
	assert.Equal(t, CreateAttestation, d)
	c, err := ParseClaimArgs(args)
	require.NoError(t, err)
	assert.Equal(t, nonce, c.Nonce())

	ix, req, err := bld.CreateRequest(payer, authority, cred, schema, nonce, nil, 10)
	require.NoError(t, err)
	wantReq, _, err := address.RequestAddress(pid, cred, schema, nonce)
	require.NoError(t, err)
	assert.Equal(t, wantReq, req)
	assert.False(t, ix.Accounts[1].IsSigner, "request authority does not sign")
}
