package program

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/state"
)

// processCreateSchema accounts: payer, authority, credential, schema, system.
func processCreateSchema(ic *ledger.InvokeContext, raw []byte) error {
	accts, err := accounts(ic, 5)
	if err != nil {
		return err
	}
	payer, authority, credential, schema, system := accts[0], accts[1], accts[2], accts[3], accts[4]
	if err := requirePayer(payer); err != nil {
		return err
	}
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if err := requireWritable(schema, "schema"); err != nil {
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
	args, err := instruction.ParseCreateSchemaArgs(raw)
	if err != nil {
		return err
	}
	if err := layout.Validate(args.Layout, args.FieldNames); err != nil {
		return err
	}
	rec := &state.Schema{
		Credential:  credential.Key,
		Version:     uint32(address.SchemaVersion),
		Name:        args.Name,
		Description: args.Description,
		Layout:      args.Layout,
		FieldNames:  args.FieldNames,
	}
	return create(ic, payer, schema, address.SchemaSeeds(credential.Key, args.Name), rec)
}

// processChangeSchemaStatus accounts: authority, credential, schema.
func processChangeSchemaStatus(ic *ledger.InvokeContext, raw []byte) error {
	accts, err := accounts(ic, 3)
	if err != nil {
		return err
	}
	authority, credential, schema := accts[0], accts[1], accts[2]
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if err := requireWritable(schema, "schema"); err != nil {
		return err
	}
	cred, err := loadCredential(ic, credential)
	if err != nil {
		return err
	}
	if err := requireAuthority(cred, authority); err != nil {
		return err
	}
	s, err := loadSchemaOf(ic, schema, credential.Key)
	if err != nil {
		return err
	}
	args, err := instruction.ParseChangeSchemaStatusArgs(raw)
	if err != nil {
		return err
	}
	s.IsPaused = args.IsPaused
	// Pausing flips one byte; the size never changes.
	if err := schema.Write(state.Encode(s)); err != nil {
		return err
	}
	ic.Logger.Info("schema status changed", "schema", schema.Key, "paused", s.IsPaused)
	return nil
}

// processChangeSchemaDescription accounts: payer, authority, credential,
// schema, system.
func processChangeSchemaDescription(ic *ledger.InvokeContext, raw []byte) error {
	accts, err := accounts(ic, 5)
	if err != nil {
		return err
	}
	payer, authority, credential, schema, system := accts[0], accts[1], accts[2], accts[3], accts[4]
	if err := requirePayer(payer); err != nil {
		return err
	}
	if err := requireSigner(authority, "authority"); err != nil {
		return err
	}
	if err := requireWritable(schema, "schema"); err != nil {
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
	s, err := loadSchemaOf(ic, schema, credential.Key)
	if err != nil {
		return err
	}
	args, err := instruction.ParseChangeSchemaDescriptionArgs(raw)
	if err != nil {
		return err
	}
	s.Description = args.Description
	if err := rewrite(ic, payer, schema, s); err != nil {
		return err
	}
	ic.Logger.Info("schema description changed", "schema", schema.Key, "size", s.Size())
	return nil
}
