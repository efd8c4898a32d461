package api

import (
	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/cidutil"
	"github.com/0xterrybit/solana-attestation-service/layout"
	"github.com/0xterrybit/solana-attestation-service/state"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

type accountJSON struct {
	Address  address.Address `json:"address"`
	Owner    address.Address `json:"owner"`
	Lamports uint64          `json:"lamports"`
	Revision uint64          `json:"revision"`
	Size     int             `json:"size"`
	DataCID  string          `json:"data_cid"`
	Kind     string          `json:"kind"`
	Record   any             `json:"record"`
}

type credentialJSON struct {
	Authority         address.Address   `json:"authority"`
	Name              string            `json:"name"`
	AuthorizedSigners []address.Address `json:"authorized_signers"`
}

type schemaJSON struct {
	Credential  address.Address `json:"credential"`
	Version     uint32          `json:"version"`
	IsPaused    bool            `json:"is_paused"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Layout      []layout.Type   `json:"layout"`
	FieldNames  []string        `json:"field_names"`
}

// claimJSON renders attestations and requests. Fields is present when the
// data decodes against the schema layout.
type claimJSON struct {
	Nonce      address.Address `json:"nonce"`
	Credential address.Address `json:"credential"`
	Schema     address.Address `json:"schema"`
	Signer     address.Address `json:"signer"`
	Data       []byte          `json:"data"`
	Fields     []layout.Field  `json:"fields,omitempty"`
	Expiry     int64           `json:"expiry"`
	Expired    bool            `json:"expired"`
}

func newAccountJSON(addr address.Address, acct storage.Account, rec any, kind state.Discriminator) accountJSON {
	return accountJSON{
		Address:  addr,
		Owner:    acct.Owner,
		Lamports: acct.Lamports,
		Revision: acct.Revision,
		Size:     len(acct.Data),
		DataCID:  cidutil.DataCID(acct.Data),
		Kind:     kind.String(),
		Record:   rec,
	}
}

func credentialView(c *state.Credential) credentialJSON {
	return credentialJSON{Authority: c.Authority, Name: string(c.Name), AuthorizedSigners: c.AuthorizedSigners}
}

func schemaView(s *state.Schema) schemaJSON {
	tags := make([]layout.Type, len(s.Layout))
	for i, b := range s.Layout {
		tags[i] = layout.Type(b)
	}
	return schemaJSON{
		Credential:  s.Credential,
		Version:     s.Version,
		IsPaused:    s.IsPaused,
		Name:        string(s.Name),
		Description: string(s.Description),
		Layout:      tags,
		FieldNames:  s.FieldNames,
	}
}

func claimView(nonce, cred, schema, signer address.Address, data []byte, expiry int64, expired bool, s *state.Schema) claimJSON {
	out := claimJSON{
		Nonce:      nonce,
		Credential: cred,
		Schema:     schema,
		Signer:     signer,
		Data:       data,
		Expiry:     expiry,
		Expired:    expired,
	}
	if s != nil {
		if fields, err := layout.DecodeData(s.Layout, s.FieldNames, data); err == nil {
			out.Fields = fields
		}
	}
	return out
}
