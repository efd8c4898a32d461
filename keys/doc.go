// Package keys provides Ed25519 keypairs for ledger identities.
//
// An identity's public key is its 32-byte address. Transactions are signed
// over hash(message) with one of the digests supported by Digest.
//
// API stability:
//
// Stable:
//   - Keypair, Digest, Sign/Verify and role-seed derivation.
//
// Experimental:
//   - Filesystem-backed key storage (KeyStore and related functions).
//     These are local-first utilities for the CLI.
package keys
