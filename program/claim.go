package program

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/state"
)

// claimContext is what CreateAttestation and CreateRequest share once their
// parents and arguments are validated.
type claimContext struct {
	payer, authority, credential, schema, target *ledger.AccountInfo

	cred *state.Credential
	args instruction.ClaimArgs
}

// loadClaim validates accounts payer, authority, credential, schema, target,
// system and the claim arguments against the schema.
func loadClaim(ic *ledger.InvokeContext, raw []byte) (*claimContext, error) {
	accts, err := accounts(ic, 6)
	if err != nil {
		return nil, err
	}
	c := &claimContext{
		payer:      accts[0],
		authority:  accts[1],
		credential: accts[2],
		schema:     accts[3],
		target:     accts[4],
	}
	if err := requirePayer(c.payer); err != nil {
		return nil, err
	}
	if err := requireWritable(c.target, "claim"); err != nil {
		return nil, err
	}
	if err := requireSystem(accts[5]); err != nil {
		return nil, err
	}
	if c.cred, err = loadCredential(ic, c.credential); err != nil {
		return nil, err
	}
	s, err := loadSchemaOf(ic, c.schema, c.credential.Key)
	if err != nil {
		return nil, err
	}
	if s.IsPaused {
		return nil, sas.Newf(sas.KindSchemaPaused, "SAS-ACC-020", "schema %s is paused", c.schema.Key)
	}
	if c.args, err = instruction.ParseClaimArgs(raw); err != nil {
		return nil, err
	}
	if exp := c.args.Expiry(); exp <= ic.Clock.UnixTimestamp {
		return nil, sas.Newf(sas.KindExpired, "SAS-ACC-021", "expiry %d is not after the current time %d", exp, ic.Clock.UnixTimestamp)
	}
	if err := layout.CheckData(s.Layout, c.args.Data()); err != nil {
		return nil, sas.Wrap(sas.KindInvalidInstructionData, "SAS-ACC-022", "claim data does not match schema layout", err)
	}
	return c, nil
}

// processCreateAttestation accounts: payer, authority, credential, schema,
// attestation, system. The authority signs and is recorded as the signer.
func processCreateAttestation(ic *ledger.InvokeContext, raw []byte) error {
	c, err := loadClaim(ic, raw)
	if err != nil {
		return err
	}
	if err := requireSigner(c.authority, "authority"); err != nil {
		return err
	}
	if err := requireIssuer(c.cred, c.authority); err != nil {
		return err
	}
	nonce := c.args.Nonce()
	rec := &state.Attestation{
		Nonce:      nonce,
		Credential: c.credential.Key,
		Schema:     c.schema.Key,
		Data:       append([]byte{}, c.args.Data()...),
		Signer:     c.authority.Key,
		Expiry:     c.args.Expiry(),
	}
	seeds := address.AttestationSeeds(c.credential.Key, c.authority.Key, c.schema.Key, nonce)
	return create(ic, c.payer, c.target, seeds, rec)
}

// processCreateRequest accounts: payer, authority, credential, schema,
// request, system. The authority names the issuer the request is addressed
// to and does not sign; the payer is recorded as the requester.
func processCreateRequest(ic *ledger.InvokeContext, raw []byte) error {
	c, err := loadClaim(ic, raw)
	if err != nil {
		return err
	}
	if err := requireIssuer(c.cred, c.authority); err != nil {
		return err
	}
	nonce := c.args.Nonce()
	rec := &state.Request{
		Credential: c.credential.Key,
		Schema:     c.schema.Key,
		Signer:     c.payer.Key,
		Data:       append([]byte{}, c.args.Data()...),
		Nonce:      nonce,
		Expiry:     c.args.Expiry(),
	}
	seeds := address.RequestSeeds(c.credential.Key, c.schema.Key, nonce)
	return create(ic, c.payer, c.target, seeds, rec)
}
