package storage

import (
	"bytes"
	"errors"
	"testing"

	"github.com/0xterrybit/solana-attestation-service/address"
)

func TestMatch(t *testing.T) {
	data := []byte{2, 'a', 'b', 'c'}
	cases := []struct {
		name    string
		filters []Filter
		want    bool
	}{
		{"none", nil, true},
		{"discriminator", []Filter{{Offset: 0, Bytes: []byte{2}}}, true},
		{"wrong discriminator", []Filter{{Offset: 0, Bytes: []byte{1}}}, false},
		{"mid", []Filter{{Offset: 1, Bytes: []byte("bc")}}, false},
		{"tail", []Filter{{Offset: 2, Bytes: []byte("bc")}}, true},
		{"past end", []Filter{{Offset: 3, Bytes: []byte("cd")}}, false},
		{"negative", []Filter{{Offset: -1, Bytes: []byte{2}}}, false},
	}
	for _, tc := range cases {
		if got := Match(data, tc.filters); got != tc.want {
			t.Fatalf("%s: Match=%v want %v", tc.name, got, tc.want)
		}
	}
}

func TestBatchValidate(t *testing.T) {
	a := address.Address{1}
	var ok Batch
	ok.Create(a, Account{})
	ok.Update(address.Address{2}, Account{Revision: 1})
	if err := ok.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	var dup Batch
	dup.Create(a, Account{})
	dup.Update(a, Account{})
	if err := dup.Validate(); !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("duplicate address: got %v", err)
	}

	bad := Batch{Writes: []Write{{Op: 9, Address: a}}}
	if err := bad.Validate(); !errors.Is(err, ErrInvalidBatch) {
		t.Fatalf("unknown op: got %v", err)
	}
}

func TestWriteNextRevision(t *testing.T) {
	w := Write{Op: OpCreate, Account: Account{Revision: 99}}
	if got := w.Next().Revision; got != 1 {
		t.Fatalf("create revision: got %d want 1", got)
	}
	w = Write{Op: OpUpdate, Account: Account{Revision: 4}}
	if got := w.Next().Revision; got != 5 {
		t.Fatalf("update revision: got %d want 5", got)
	}
}

func TestWireBatchAndScan(t *testing.T) {
	var b Batch
	b.Create(address.Address{1}, Account{Owner: address.Address{9}, Lamports: 10, Data: []byte("x")})
	b.Update(address.Address{2}, Account{Revision: 3, Data: []byte{}})

	got, err := DecodeBatch(EncodeBatch(b))
	if err != nil {
		t.Fatalf("DecodeBatch: %v", err)
	}
	if len(got.Writes) != 2 || got.Writes[0].Op != OpCreate || got.Writes[1].Account.Revision != 3 {
		t.Fatalf("batch mismatch: %+v", got)
	}
	if !bytes.Equal(got.Writes[0].Account.Data, []byte("x")) || got.Writes[0].Account.Owner != (address.Address{9}) {
		t.Fatalf("account mismatch: %+v", got.Writes[0].Account)
	}

	req := ScanRequest{Owner: address.Address{7}, Limit: 5, Filters: []Filter{{Offset: 33, Bytes: []byte{1, 2}}}}
	gotReq, err := DecodeScanRequest(EncodeScanRequest(req))
	if err != nil {
		t.Fatalf("DecodeScanRequest: %v", err)
	}
	if gotReq.Owner != req.Owner || gotReq.Limit != 5 || len(gotReq.Filters) != 1 || gotReq.Filters[0].Offset != 33 {
		t.Fatalf("scan request mismatch: %+v", gotReq)
	}
}

func TestWireRejectsCorruptInput(t *testing.T) {
	enc := EncodeAccount(Account{Data: []byte("abc")})
	for n := 0; n < len(enc); n++ {
		if _, err := DecodeAccount(enc[:n]); !errors.Is(err, ErrCorrupt) {
			t.Fatalf("truncated to %d: got %v", n, err)
		}
	}
	if _, err := DecodeAccount(append(enc, 0)); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("trailing byte: got %v", err)
	}
	huge := []byte{0xff, 0xff, 0xff, 0xff}
	if _, err := DecodeBatch(huge); !errors.Is(err, ErrCorrupt) {
		t.Fatalf("huge batch count: got %v", err)
	}
}
