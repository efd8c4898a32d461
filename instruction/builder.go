package instruction

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/ledger"
)

// Builder produces instructions for one deployed program id. Each method
// also returns the address of the account the instruction creates or edits.
type Builder struct {
	ProgramID address.Address
}

func NewBuilder(programID address.Address) Builder { return Builder{ProgramID: programID} }

func (b Builder) instruction(data []byte, metas ...ledger.AccountMeta) ledger.Instruction {
	return ledger.Instruction{ProgramID: b.ProgramID, Accounts: metas, Data: data}
}

func system() ledger.AccountMeta { return ledger.ReadOnly(ledger.SystemProgramID, false) }

func (b Builder) CreateCredential(payer, authority address.Address, args CreateCredentialArgs) (ledger.Instruction, address.Address, error) {
	cred, _, err := address.CredentialAddress(b.ProgramID, authority, args.Name)
	if err != nil {
		return ledger.Instruction{}, address.Address{}, err
	}
	data, _ := args.MarshalBinary()
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.Writable(cred, false),
		ledger.ReadOnly(authority, true),
		system(),
	), cred, nil
}

func (b Builder) CreateSchema(payer, authority, credential address.Address, args CreateSchemaArgs) (ledger.Instruction, address.Address, error) {
	schema, _, err := address.SchemaAddress(b.ProgramID, credential, args.Name)
	if err != nil {
		return ledger.Instruction{}, address.Address{}, err
	}
	data, _ := args.MarshalBinary()
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.ReadOnly(authority, true),
		ledger.ReadOnly(credential, false),
		ledger.Writable(schema, false),
		system(),
	), schema, nil
}

func (b Builder) ChangeSchemaStatus(authority, credential, schema address.Address, paused bool) ledger.Instruction {
	data, _ := ChangeSchemaStatusArgs{IsPaused: paused}.MarshalBinary()
	return b.instruction(data,
		ledger.ReadOnly(authority, true),
		ledger.ReadOnly(credential, false),
		ledger.Writable(schema, false),
	)
}

func (b Builder) ChangeAuthorizedSigners(payer, authority, credential address.Address, signers []address.Address) ledger.Instruction {
	data, _ := ChangeAuthorizedSignersArgs{Signers: signers}.MarshalBinary()
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.ReadOnly(authority, true),
		ledger.Writable(credential, false),
		system(),
	)
}

func (b Builder) ChangeSchemaDescription(payer, authority, credential, schema address.Address, description []byte) ledger.Instruction {
	data, _ := ChangeSchemaDescriptionArgs{Description: description}.MarshalBinary()
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.ReadOnly(authority, true),
		ledger.ReadOnly(credential, false),
		ledger.Writable(schema, false),
		system(),
	)
}

// CreateAttestation issues a claim signed by authority about nonce.
func (b Builder) CreateAttestation(payer, authority, credential, schema, nonce address.Address, claim []byte, expiry int64) (ledger.Instruction, address.Address, error) {
	att, _, err := address.AttestationAddress(b.ProgramID, credential, authority, schema, nonce)
	if err != nil {
		return ledger.Instruction{}, address.Address{}, err
	}
	data := AppendClaimArgs([]byte{byte(CreateAttestation)}, nonce, claim, expiry)
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.ReadOnly(authority, true),
		ledger.ReadOnly(credential, false),
		ledger.ReadOnly(schema, false),
		ledger.Writable(att, false),
		system(),
	), att, nil
}

// CreateRequest drafts a claim about nonce. The payer is recorded as the
// requester; authority names the issuer and need not sign.
func (b Builder) CreateRequest(payer, authority, credential, schema, nonce address.Address, claim []byte, expiry int64) (ledger.Instruction, address.Address, error) {
	req, _, err := address.RequestAddress(b.ProgramID, credential, schema, nonce)
	if err != nil {
		return ledger.Instruction{}, address.Address{}, err
	}
	data := AppendClaimArgs([]byte{byte(CreateRequest)}, nonce, claim, expiry)
	return b.instruction(data,
		ledger.Writable(payer, true),
		ledger.ReadOnly(authority, false),
		ledger.ReadOnly(credential, false),
		ledger.ReadOnly(schema, false),
		ledger.Writable(req, false),
		system(),
	), req, nil
}
