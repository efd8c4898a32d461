package ledger

import (
	"encoding/binary"
	"fmt"

	"github.com/mr-tron/base58"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/cidutil"
	"github.com/0xterrybit/solana-attestation-service/keys"
	"github.com/0xterrybit/solana-attestation-service/sas"
)

// AccountMeta names one account an instruction touches.
type AccountMeta struct {
	Address    address.Address
	IsSigner   bool
	IsWritable bool
}

func Writable(a address.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer, IsWritable: true}
}

func ReadOnly(a address.Address, signer bool) AccountMeta {
	return AccountMeta{Address: a, IsSigner: signer}
}

// Instruction is one program invocation.
type Instruction struct {
	ProgramID address.Address
	Accounts  []AccountMeta
	Data      []byte
}

// Message is the signed body of a transaction. Nonce only distinguishes
// otherwise identical messages.
type Message struct {
	Payer        address.Address
	HashAlg      string
	Nonce        uint64
	Instructions []Instruction
}

const messageVersion = 1

// MarshalBinary returns the canonical encoding that signatures cover.
//
//	version u8 | alg_len u8 | alg | payer[32] | nonce u64 | ix_count u32 |
//	  (program[32] | meta_count u32 | (address[32] | flags u8)* | data_len u32 | data)*
func (m *Message) MarshalBinary() ([]byte, error) {
	if len(m.HashAlg) > 255 {
		return nil, fmt.Errorf("hash algorithm name too long")
	}
	out := []byte{messageVersion, byte(len(m.HashAlg))}
	out = append(out, m.HashAlg...)
	out = append(out, m.Payer[:]...)
	out = binary.LittleEndian.AppendUint64(out, m.Nonce)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(m.Instructions)))
	for _, ix := range m.Instructions {
		out = append(out, ix.ProgramID[:]...)
		out = binary.LittleEndian.AppendUint32(out, uint32(len(ix.Accounts)))
		for _, meta := range ix.Accounts {
			var flags byte
			if meta.IsSigner {
				flags |= 1
			}
			if meta.IsWritable {
				flags |= 2
			}
			out = append(out, meta.Address[:]...)
			out = append(out, flags)
		}
		out = binary.LittleEndian.AppendUint32(out, uint32(len(ix.Data)))
		out = append(out, ix.Data...)
	}
	return out, nil
}

// Signers lists the identities that must sign: the payer first, then every
// signer account in order of first appearance.
func (m *Message) Signers() []address.Address {
	out := []address.Address{m.Payer}
	seen := map[address.Address]bool{m.Payer: true}
	for _, ix := range m.Instructions {
		for _, meta := range ix.Accounts {
			if meta.IsSigner && !seen[meta.Address] {
				seen[meta.Address] = true
				out = append(out, meta.Address)
			}
		}
	}
	return out
}

// Transaction is a message plus one signature per Message.Signers entry.
type Transaction struct {
	Message    Message
	Signatures [][]byte
}

// NewTransaction signs msg with the keypairs it requires. Extra keypairs are
// ignored. An empty HashAlg defaults to sha256.
func NewTransaction(msg Message, signers ...*keys.Keypair) (*Transaction, error) {
	if msg.HashAlg == "" {
		msg.HashAlg = keys.HashSHA256
	}
	body, err := msg.MarshalBinary()
	if err != nil {
		return nil, err
	}
	byAddr := make(map[address.Address]*keys.Keypair, len(signers))
	for _, kp := range signers {
		byAddr[kp.Address()] = kp
	}
	tx := &Transaction{Message: msg}
	for _, want := range msg.Signers() {
		kp, ok := byAddr[want]
		if !ok {
			return nil, sas.Newf(sas.KindUnauthorized, "SAS-TX-002", "missing keypair for signer %s", want)
		}
		sig, err := kp.Sign(msg.HashAlg, body)
		if err != nil {
			return nil, err
		}
		tx.Signatures = append(tx.Signatures, sig)
	}
	return tx, nil
}

// Verify checks every required signature.
func (tx *Transaction) Verify() error {
	body, err := tx.Message.MarshalBinary()
	if err != nil {
		return sas.Wrap(sas.KindInvalidInstructionData, "SAS-TX-003", "encode message", err)
	}
	signers := tx.Message.Signers()
	if len(tx.Signatures) != len(signers) {
		return sas.Newf(sas.KindUnauthorized, "SAS-TX-001", "%d signatures for %d signers", len(tx.Signatures), len(signers))
	}
	for i, s := range signers {
		if !keys.Verify(s, tx.Message.HashAlg, body, tx.Signatures[i]) {
			return sas.Newf(sas.KindUnauthorized, "SAS-TX-001", "signature %d does not verify for %s", i, s)
		}
	}
	return nil
}

// ID is the base58 payer signature, the conventional transaction identifier.
func (tx *Transaction) ID() string {
	if len(tx.Signatures) == 0 {
		return ""
	}
	return base58.Encode(tx.Signatures[0])
}

// MessageCID content-addresses the signed message body.
func (tx *Transaction) MessageCID() string {
	body, err := tx.Message.MarshalBinary()
	if err != nil {
		return ""
	}
	return cidutil.DataCID(body)
}
