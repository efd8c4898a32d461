package program

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/state"
)

func accounts(ic *ledger.InvokeContext, want int) ([]*ledger.AccountInfo, error) {
	if len(ic.Accounts) != want {
		return nil, sas.Newf(sas.KindInvalidAccounts, "SAS-ACC-001", "expected %d accounts, got %d", want, len(ic.Accounts))
	}
	return ic.Accounts, nil
}

func requireSigner(a *ledger.AccountInfo, role string) error {
	if !a.IsSigner {
		return sas.Newf(sas.KindUnauthorized, "SAS-ACC-002", "%s %s must sign", role, a.Key)
	}
	return nil
}

func requireWritable(a *ledger.AccountInfo, role string) error {
	if !a.IsWritable {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-ACC-003", "%s %s must be writable", role, a.Key)
	}
	return nil
}

func requireSystem(a *ledger.AccountInfo) error {
	if a.Key != ledger.SystemProgramID {
		return sas.Newf(sas.KindInvalidAccounts, "SAS-ACC-004", "expected system program, got %s", a.Key)
	}
	return nil
}

func requirePayer(a *ledger.AccountInfo) error {
	if err := requireSigner(a, "payer"); err != nil {
		return err
	}
	return requireWritable(a, "payer")
}

// loadCredential decodes a program-owned credential and checks that it sits
// at its own derived address.
func loadCredential(ic *ledger.InvokeContext, a *ledger.AccountInfo) (*state.Credential, error) {
	if a.Owner() != ic.ProgramID {
		return nil, sas.Newf(sas.KindInvalidCredential, "SAS-ACC-005", "credential %s is not owned by the program", a.Key)
	}
	cred, err := state.DecodeCredential(a.Data())
	if err != nil {
		return nil, sas.Wrap(sas.KindInvalidCredential, "SAS-ACC-006", "decode credential "+a.Key.String(), err)
	}
	want, _, err := address.CredentialAddress(ic.ProgramID, cred.Authority, cred.Name)
	if err != nil || want != a.Key {
		return nil, sas.Newf(sas.KindInvalidCredential, "SAS-ACC-007", "credential %s is not at its derived address", a.Key)
	}
	return cred, nil
}

func loadSchema(ic *ledger.InvokeContext, a *ledger.AccountInfo) (*state.Schema, error) {
	if a.Owner() != ic.ProgramID {
		return nil, sas.Newf(sas.KindInvalidSchema, "SAS-ACC-008", "schema %s is not owned by the program", a.Key)
	}
	s, err := state.DecodeSchema(a.Data())
	if err != nil {
		return nil, sas.Wrap(sas.KindInvalidSchema, "SAS-ACC-009", "decode schema "+a.Key.String(), err)
	}
	want, _, err := address.SchemaAddress(ic.ProgramID, s.Credential, s.Name)
	if err != nil || want != a.Key {
		return nil, sas.Newf(sas.KindInvalidSchema, "SAS-ACC-010", "schema %s is not at its derived address", a.Key)
	}
	return s, nil
}

// loadSchemaOf loads schema and requires it to belong to credential.
func loadSchemaOf(ic *ledger.InvokeContext, a *ledger.AccountInfo, credential address.Address) (*state.Schema, error) {
	s, err := loadSchema(ic, a)
	if err != nil {
		return nil, err
	}
	if s.Credential != credential {
		return nil, sas.Newf(sas.KindInvalidSchema, "SAS-ACC-011", "schema %s belongs to credential %s, not %s", a.Key, s.Credential, credential)
	}
	return s, nil
}

func requireAuthority(cred *state.Credential, a *ledger.AccountInfo) error {
	if cred.Authority != a.Key {
		return sas.Newf(sas.KindUnauthorized, "SAS-ACC-012", "%s is not the credential authority", a.Key)
	}
	return nil
}

// requireIssuer accepts the credential authority or any authorized signer.
func requireIssuer(cred *state.Credential, a *ledger.AccountInfo) error {
	if cred.Authority != a.Key && !cred.IsAuthorized(a.Key) {
		return sas.Newf(sas.KindUnauthorized, "SAS-ACC-013", "%s is not an authorized signer of the credential", a.Key)
	}
	return nil
}

// create allocates target at the address derived from seeds and writes rec.
func create(ic *ledger.InvokeContext, payer, target *ledger.AccountInfo, seeds [][]byte, rec state.Record) error {
	want, bump, err := address.FindProgramAddress(seeds, ic.ProgramID)
	if err != nil {
		return err
	}
	if want != target.Key {
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-ACC-014", "%s account %s does not match derived address %s", rec.Discriminator(), target.Key, want)
	}
	if err := ic.CreateAccount(payer, target, rec.Size(), address.WithBump(seeds, bump)); err != nil {
		return err
	}
	if err := target.Write(state.Encode(rec)); err != nil {
		return err
	}
	ic.Logger.Info(rec.Discriminator().String()+" created", "address", target.Key, "size", rec.Size())
	return nil
}

// rewrite resizes target to fit rec, settling rent with payer, and writes it.
func rewrite(ic *ledger.InvokeContext, payer, target *ledger.AccountInfo, rec state.Record) error {
	if rec.Size() != len(target.Data()) {
		if err := ic.Resize(payer, target, rec.Size()); err != nil {
			return err
		}
	}
	return target.Write(state.Encode(rec))
}

// normalizeSigners drops duplicates, keeping first occurrences, and enforces
// MaxAuthorizedSigners.
func normalizeSigners(in []address.Address) ([]address.Address, error) {
	out := make([]address.Address, 0, len(in))
	seen := make(map[address.Address]struct{}, len(in))
	for _, s := range in {
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	if len(out) > MaxAuthorizedSigners {
		return nil, sas.Newf(sas.KindInvalidInstructionData, "SAS-ACC-015", "%d authorized signers exceeds the limit of %d", len(out), MaxAuthorizedSigners)
	}
	return out, nil
}
