package program

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/state"
)

// processCreateCredential accounts: payer, credential, authority, system.
func processCreateCredential(ic *ledger.InvokeContext, raw []byte) error {
	accts, err := accounts(ic, 4)
	if err != nil {
		return err
	}
	payer, credential, authority, system := accts[0], accts[1], accts[2], accts[3]
	if err := requirePayer(payer); err != nil {
		return err
	}
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if err := requireWritable(credential, "credential"); err != nil {
		return err
	}
	if err := requireSystem(system); err != nil {
		return err
	}
	args, err := instruction.ParseCreateCredentialArgs(raw)
	if err != nil {
		return err
	}
	// The authority always heads the signer list.
	signers, err := normalizeSigners(append([]address.Address{authority.Key}, args.Signers...))
	if err != nil {
		return err
	}
	rec := &state.Credential{
		Authority:         authority.Key,
		Name:              args.Name,
		AuthorizedSigners: signers,
	}
	return create(ic, payer, credential, address.CredentialSeeds(authority.Key, args.Name), rec)
}

// processChangeAuthorizedSigners accounts: payer, authority, credential, system.
// The new list replaces the old one.
func processChangeAuthorizedSigners(ic *ledger.InvokeContext, raw []byte) error {
	accts, err := accounts(ic, 4)
	if err != nil {
		return err
	}
	payer, authority, credential, system := accts[0], accts[1], accts[2], accts[3]
	if err := requirePayer(payer); err != nil {
		return err
	}
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if err := requireWritable(credential, "credential"); err != nil {
		return err
	}
	if err := requireSystem(system); err != nil {
		return err
	}
	cred, err := loadCredential(ic, credential)
	if err != nil {
		return err
	}
	if err := requireAuthority(cred, authority); err != nil {
		return err
	}
	args, err := instruction.ParseChangeAuthorizedSignersArgs(raw)
	if err != nil {
		return err
	}
	if cred.AuthorizedSigners, err = normalizeSigners(args.Signers); err != nil {
		return err
	}
	if err := rewrite(ic, payer, credential, cred); err != nil {
		return err
	}
	ic.Logger.Info("authorized signers changed", "credential", credential.Key, "signers", len(cred.AuthorizedSigners))
	return nil
}
