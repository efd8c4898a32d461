// Package cidutil content-addresses account data and signed messages so
// receipts, stored rows and API views can be compared across backends.
package cidutil

import (
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Sum returns the CIDv1 (raw codec, sha2-256) of data.
func Sum(data []byte) (cid.Cid, error) {
	mh, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// DataCID is the string form of Sum. It returns "" only if hashing fails,
// which sha2-256 does not.
func DataCID(data []byte) string {
	c, err := Sum(data)
	if err != nil {
		return ""
	}
	return c.String()
}

// Matches reports whether s is a CID of data under the hash and codec s
// itself names.
func Matches(s string, data []byte) bool {
	c, err := cid.Decode(s)
	if err != nil {
		return false
	}
	got, err := c.Prefix().Sum(data)
	if err != nil {
		return false
	}
	return got.Equals(c)
}
