// Package query reads registry records back out of a storage.Store.
//
// Listing functions push a discriminator filter at offset 0 plus the
// back-reference filters at the fixed record offsets down to Store.Scan, so
// backends that index account data (postgres) never decode unrelated
// accounts.
package query

import (
	"context"
	"fmt"

	"github.com/0xterrybit/solana-attestation-service/address"
	"github.com/0xterrybit/solana-attestation-service/sas"
	"github.com/0xterrybit/solana-attestation-service/state"
	"github.com/0xterrybit/solana-attestation-service/storage"
)

// Entry is a decoded record with the account that holds it.
type Entry[T state.Record] struct {
	Address address.Address
	Record  T
	Account storage.Account
}

func kindFilter(d state.Discriminator) storage.Filter {
	return storage.Filter{Offset: state.DiscriminatorOffset, Bytes: []byte{byte(d)}}
}

func refFilter(offset int, a address.Address) storage.Filter {
	return storage.Filter{Offset: offset, Bytes: a.Bytes()}
}

func list[T state.Record](ctx context.Context, store storage.Store, programID address.Address, decode func([]byte) (T, error), filters ...storage.Filter) ([]Entry[T], error) {
	accts, err := store.Scan(ctx, storage.ScanRequest{Owner: programID, Filters: filters})
	if err != nil {
		return nil, sas.Wrap(sas.KindStorage, "SAS-QRY-001", "scan accounts", err)
	}
	out := make([]Entry[T], 0, len(accts))
	for _, k := range accts {
		rec, err := decode(k.Account.Data)
		if err != nil {
			return nil, fmt.Errorf("account %s: %w", k.Address, err)
		}
		out = append(out, Entry[T]{Address: k.Address, Record: rec, Account: k.Account})
	}
	return out, nil
}

func Credentials(ctx context.Context, store storage.Store, programID address.Address) ([]Entry[*state.Credential], error) {
	return list(ctx, store, programID, state.DecodeCredential, kindFilter(state.KindCredential))
}

// CredentialsByAuthority lists the credentials owned by authority.
func CredentialsByAuthority(ctx context.Context, store storage.Store, programID, authority address.Address) ([]Entry[*state.Credential], error) {
	return list(ctx, store, programID, state.DecodeCredential,
		kindFilter(state.KindCredential),
		refFilter(state.CredentialAuthorityOffset, authority))
}

func SchemasByCredential(ctx context.Context, store storage.Store, programID, credential address.Address) ([]Entry[*state.Schema], error) {
	return list(ctx, store, programID, state.DecodeSchema,
		kindFilter(state.KindSchema),
		refFilter(state.SchemaCredentialOffset, credential))
}

// AttestationsBy lists attestations under credential. A zero schema matches
// every schema of the credential.
func AttestationsBy(ctx context.Context, store storage.Store, programID, credential, schema address.Address) ([]Entry[*state.Attestation], error) {
	filters := []storage.Filter{
		kindFilter(state.KindAttestation),
		refFilter(state.AttestationCredentialOffset, credential),
	}
	if !schema.IsZero() {
		filters = append(filters, refFilter(state.AttestationSchemaOffset, schema))
	}
	return list(ctx, store, programID, state.DecodeAttestation, filters...)
}

// AttestationsAbout lists every attestation whose nonce names recipient.
func AttestationsAbout(ctx context.Context, store storage.Store, programID, recipient address.Address) ([]Entry[*state.Attestation], error) {
	return list(ctx, store, programID, state.DecodeAttestation,
		kindFilter(state.KindAttestation),
		refFilter(state.AttestationNonceOffset, recipient))
}

// RequestsBy lists requests under credential. A zero schema matches every
// schema of the credential.
func RequestsBy(ctx context.Context, store storage.Store, programID, credential, schema address.Address) ([]Entry[*state.Request], error) {
	filters := []storage.Filter{
		kindFilter(state.KindRequest),
		refFilter(state.RequestCredentialOffset, credential),
	}
	if !schema.IsZero() {
		filters = append(filters, refFilter(state.RequestSchemaOffset, schema))
	}
	return list(ctx, store, programID, state.DecodeRequest, filters...)
}

// Get loads the account at addr and decodes whichever record it holds.
func Get(ctx context.Context, store storage.Store, programID, addr address.Address) (state.Record, storage.Account, error) {
	acct, err := store.Get(ctx, addr)
	if err != nil {
		return nil, acct, err
	}
	if acct.Owner != programID {
		return nil, acct, sas.Newf(sas.KindInvalidAccounts, "SAS-QRY-002", "account %s is not owned by program %s", addr, programID)
	}
	kind, err := state.Peek(acct.Data)
	if err != nil {
		return nil, acct, err
	}
	rec, err := state.Decode(kind, acct.Data)
	return rec, acct, err
}

func getAs[T state.Record](ctx context.Context, store storage.Store, programID, addr address.Address) (T, error) {
	var zero T
	rec, _, err := Get(ctx, store, programID, addr)
	if err != nil {
		return zero, err
	}
	out, ok := rec.(T)
	if !ok {
		return zero, sas.Newf(sas.KindDecode, "SAS-QRY-003", "account %s holds a %s", addr, rec.Discriminator())
	}
	return out, nil
}

func GetCredential(ctx context.Context, store storage.Store, programID, addr address.Address) (*state.Credential, error) {
	return getAs[*state.Credential](ctx, store, programID, addr)
}

func GetSchema(ctx context.Context, store storage.Store, programID, addr address.Address) (*state.Schema, error) {
	return getAs[*state.Schema](ctx, store, programID, addr)
}

func GetAttestation(ctx context.Context, store storage.Store, programID, addr address.Address) (*state.Attestation, error) {
	return getAs[*state.Attestation](ctx, store, programID, addr)
}

func GetRequest(ctx context.Context, store storage.Store, programID, addr address.Address) (*state.Request, error) {
	return getAs[*state.Request](ctx, store, programID, addr)
}
