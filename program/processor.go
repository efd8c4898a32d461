// Package program is the attestation registry's state-transition logic.
//
// Processor runs inside a ledger.Runtime. Every instruction validates its
// accounts and arguments, derives the target address from its seeds, and
// either allocates and writes a new record or rewrites an existing one.
// Record creation is at-most-once per derived address: the allocator refuses
// an occupied target and the store refuses a second create at commit.
package program

import (
	"crypto/sha256"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/instruction"
	"github.com/0xterrybit/solana-attestation-service/ledger"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

// MaxAuthorizedSigners caps a credential's signer list.
const MaxAuthorizedSigners = 64

// Processor implements ledger.Program.
type Processor struct{}

func New() *Processor { return &Processor{} }

func (p *Processor) Process(ic *ledger.InvokeContext) error {
	d, args, err := instruction.Split(ic.Data)
	if err != nil {
		return err
	}
	ic.Logger.Debug("dispatch", "instruction", d.String(), "accounts", len(ic.Accounts))
	switch d {
	case instruction.CreateCredential:
		return processCreateCredential(ic, args)
	case instruction.CreateSchema:
		return processCreateSchema(ic, args)
	case instruction.ChangeSchemaStatus:
		return processChangeSchemaStatus(ic, args)
	case instruction.ChangeAuthorizedSigners:
		return processChangeAuthorizedSigners(ic, args)
	case instruction.ChangeSchemaDescription:
		return processChangeSchemaDescription(ic, args)
	case instruction.CreateAttestation:
		return processCreateAttestation(ic, args)
	case instruction.CreateRequest:
		return processCreateRequest(ic, args)
	default:
		return sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-002", "unknown instruction %d", uint8(d))
	}
}

// DefaultID is the program id used when none is configured.
var DefaultID = address.Address(sha256.Sum256([]byte("solana-attestation-service/program/v1")))
