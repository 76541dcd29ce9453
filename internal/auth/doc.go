// Package auth signs and verifies registry transactions.
//
// A transaction wraps one instruction with a nonce and a unix timestamp.
// Every account the instruction flags as a signer must provide an
// ssh-ed25519 signature (golang.org/x/crypto/ssh wire format) over the
// transaction's canonical message:
//
//	discriminator ‖ program id ‖ accounts ‖ data ‖ nonce ‖ timestamp
//
// encoded with the same little-endian, length-prefixed layout the registry
// uses for its accounts. Principals are the raw 32-byte ed25519 public keys,
// so a signer's registry address and its SSH key are the same key.
//
// # Verification
//
// The Verifier rejects:
//
//   - timestamps older than the configured maximum age (default 5 minutes)
//   - timestamps more than one minute in the future
//   - missing, unexpected or invalid signatures
//   - transactions whose digest was already accepted within the window
//
// A transaction id is the base58 encoding of the message's SHA-256 digest.
package auth
