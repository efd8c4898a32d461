package address

// Kind seeds. The first seed of every record address names its kind.
var (
	CredentialSeed  = []byte("credential")
	SchemaSeed      = []byte("schema")
	AttestationSeed = []byte("attestation")
	RequestSeed     = []byte("request")
)

// SchemaVersion is appended to schema seeds. A future v2 schema lives in a
// disjoint address space.
const SchemaVersion uint8 = 1

func CredentialSeeds(authority Address, name []byte) [][]byte {
	return [][]byte{CredentialSeed, authority[:], name}
}

func SchemaSeeds(credential Address, name []byte) [][]byte {
	return [][]byte{SchemaSeed, credential[:], name, {SchemaVersion}}
}

// AttestationSeeds places signer before schema. Request seeds omit the signer
// entirely; both orders are part of the deployed address scheme.
func AttestationSeeds(credential, signer, schema, nonce Address) [][]byte {
	return [][]byte{AttestationSeed, credential[:], signer[:], schema[:], nonce[:]}
}

func RequestSeeds(credential, schema, nonce Address) [][]byte {
	return [][]byte{RequestSeed, credential[:], schema[:], nonce[:]}
}

func CredentialAddress(programID, authority Address, name []byte) (Address, uint8, error) {
	return FindProgramAddress(CredentialSeeds(authority, name), programID)
}

func SchemaAddress(programID, credential Address, name []byte) (Address, uint8, error) {
	return FindProgramAddress(SchemaSeeds(credential, name), programID)
}

func AttestationAddress(programID, credential, signer, schema, nonce Address) (Address, uint8, error) {
	return FindProgramAddress(AttestationSeeds(credential, signer, schema, nonce), programID)
}

func RequestAddress(programID, credential, schema, nonce Address) (Address, uint8, error) {
	return FindProgramAddress(RequestSeeds(credential, schema, nonce), programID)
}

// WithBump returns seeds with the bump appended, the form accepted by
// CreateProgramAddress.
func WithBump(seeds [][]byte, bump uint8) [][]byte {
	out := make([][]byte, 0, len(seeds)+1)
	out = append(out, seeds...)
	return append(out, []byte{bump})
}
