// Package address derives the deterministic account addresses used by the
// metadata registry.
//
// # Principals and addresses
//
// Every principal (an ed25519 public key) and every persisted account share the
// same 32-byte Pubkey type. Pubkeys print and parse as base58.
//
// # Derivation
//
// A derived address is the SHA-256 of the ordered seeds, a one-byte bump, the
// program id and the marker "ProgramDerivedAddress". Find searches bumps from
// 255 down to 0 and returns the first candidate that is not a valid ed25519
// point, so no private key can ever sign for a derived address:
//
//	addr, bump, err := d.Find(address.MetadataKeyNameSeeds(ns, "dao-metadata")...)
//
// Create recomputes an address from a bump stored on an account. Running out
// of bumps returns ErrExhausted, which is a configuration error and is never
// retried.
//
// # Addressing schemes
//
// Metadata keys are addressed either by (namespace authority, name) or by a
// numeric id drawn from the registry counter. Scheme selects between the two;
// the seed formulas for counters and metadata records are shared.
package address
