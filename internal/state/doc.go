// ABOUTME: Package state defines the persisted registry entities
// ABOUTME: Counter, MetadataKey and Metadata records plus their binary layout

// Package state holds the account records the registry persists and the
// fixed-field binary layout they are stored in.
//
// Every record starts with an 8-byte discriminator, the first eight bytes of
// sha256("account:" + type name), followed by its fields in declaration
// order. Integers are little-endian, strings and byte blobs carry a u32
// length prefix, optional principals are a 1-byte tag followed by 32 bytes,
// and sequences are a u32 count followed by their elements.
//
// The entity methods enforce the structural invariants of a record (field
// limits, unique schema per collection or item, capacity). Authority checks
// belong to the registry program.
package state
