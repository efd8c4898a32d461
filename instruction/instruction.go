// Package instruction parses and builds attestation program instruction data.
//
// Instruction data is a one-byte discriminator followed by the arguments.
// Strings, byte vectors and lists carry a little-endian u32 length prefix.
// Claim arguments are read in place through ClaimArgs; everything else is
// decoded into plain structs by a bounds-checked cursor.
package instruction

import (
	"fmt"

	"github.com/0xterrybit/solana-attestation-service/sas"
)

// Discriminator selects the instruction handler.
type Discriminator uint8

const (
	CreateCredential        Discriminator = 0
	CreateSchema            Discriminator = 1
	ChangeSchemaStatus      Discriminator = 2
	ChangeAuthorizedSigners Discriminator = 3
	ChangeSchemaDescription Discriminator = 4
	CreateAttestation       Discriminator = 6
	CreateRequest           Discriminator = 8
)

func (d Discriminator) String() string {
	switch d {
	case CreateCredential:
		return "CreateCredential"
	case CreateSchema:
		return "CreateSchema"
	case ChangeSchemaStatus:
		return "ChangeSchemaStatus"
	case ChangeAuthorizedSigners:
		return "ChangeAuthorizedSigners"
	case ChangeSchemaDescription:
		return "ChangeSchemaDescription"
	case CreateAttestation:
		return "CreateAttestation"
	case CreateRequest:
		return "CreateRequest"
	default:
		return fmt.Sprintf("Instruction(%d)", uint8(d))
	}
}

// Known reports whether d names an instruction this program handles.
func (d Discriminator) Known() bool {
	switch d {
	case CreateCredential, CreateSchema, ChangeSchemaStatus, ChangeAuthorizedSigners,
		ChangeSchemaDescription, CreateAttestation, CreateRequest:
		return true
	}
	return false
}

// Split separates the discriminator from the argument bytes. The returned
// args alias data.
func Split(data []byte) (Discriminator, []byte, error) {
	if len(data) == 0 {
		return 0, nil, sas.New(sas.KindInvalidInstructionData, "SAS-IX-001", "empty instruction data")
	}
	d := Discriminator(data[0])
	if !d.Known() {
		return d, nil, sas.Newf(sas.KindInvalidInstructionData, "SAS-IX-002", "unknown instruction %d", data[0])
	}
	return d, data[1:], nil
}
