// ABOUTME: Signature verification for submitted transactions
// ABOUTME: Checks timestamps, every required ssh-ed25519 signature and replays

package auth

import (
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/dedupe"
	"github.com/2389/mythic-metadata/internal/registry"
)

const (
	// DefaultMaxAge is the maximum age of a transaction timestamp.
	DefaultMaxAge = 5 * time.Minute

	// DefaultCacheSize is the maximum number of transaction digests to track.
	DefaultCacheSize = 10000

	// MaxClockSkew is how far in the future a timestamp may be.
	MaxClockSkew = time.Minute
)

// Verifier checks transaction signatures and rejects replays.
type Verifier struct {
	maxAge time.Duration
	seen   *dedupe.Cache // digests accepted within maxAge + skew
	now    func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		v.now = now
	}
}

// NewVerifier creates a verifier. Zero values select the defaults.
func NewVerifier(maxAge time.Duration, cacheSize int, opts ...VerifierOption) *Verifier {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	v := &Verifier{maxAge: maxAge, now: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	// A digest only needs remembering while its timestamp is still accepted.
	v.seen = dedupe.New(maxAge+MaxClockSkew, cacheSize, dedupe.WithClock(v.now))
	return v
}

// Close releases resources used by the verifier.
func (v *Verifier) Close() {
	if v.seen != nil {
		v.seen.Close()
	}
}

// Verify checks tx and returns the invocation to execute. A transaction that
// passes is remembered; call Release if it should be accepted again.
func (v *Verifier) Verify(tx *Transaction) (*registry.Invocation, error) {
	age := v.now().Sub(time.Unix(tx.Timestamp, 0))
	if age < -MaxClockSkew {
		return nil, wrapf(registry.ErrSignatureExpired, "timestamp is %v in the future", -age)
	}
	if age > v.maxAge {
		return nil, wrapf(registry.ErrSignatureExpired, "signature expired (age: %v, max: %v)", age, v.maxAge)
	}

	required := tx.Instruction.Signers()
	if len(required) == 0 {
		return nil, wrapf(registry.ErrMissingSignature, "instruction has no signers")
	}
	requiredSet := make(map[address.Pubkey]bool, len(required))
	for _, s := range required {
		requiredSet[s] = true
	}

	msg := tx.Message()
	verified := make(map[address.Pubkey]bool, len(tx.Signatures))
	for _, sig := range tx.Signatures {
		if !requiredSet[sig.Signer] {
			return nil, wrapf(registry.ErrSignatureInvalid, "unexpected signer %s", sig.Signer)
		}
		if verified[sig.Signer] {
			return nil, wrapf(registry.ErrSignatureInvalid, "duplicate signature from %s", sig.Signer)
		}
		pub, err := PublicKey(sig.Signer)
		if err != nil {
			return nil, wrapf(registry.ErrSignatureInvalid, "signer %s: %v", sig.Signer, err)
		}
		if err := pub.Verify(msg, &ssh.Signature{Format: sig.Format, Blob: sig.Blob}); err != nil {
			return nil, wrapf(registry.ErrSignatureInvalid, "signature from %s: %v", sig.Signer, err)
		}
		verified[sig.Signer] = true
	}
	for _, s := range required {
		if !verified[s] {
			return nil, wrapf(registry.ErrMissingSignature, "%s", s)
		}
	}

	id := tx.ID()
	if v.seen.CheckAndMark(id) {
		return nil, wrapf(registry.ErrTransactionReplayed, "%s", id)
	}

	return &registry.Invocation{
		ID:          id,
		Instruction: tx.Instruction,
		Signers:     required,
	}, nil
}

// Release forgets an accepted transaction id so an identical resubmission is
// not treated as a replay. Used when execution failed with a retryable error.
func (v *Verifier) Release(id string) {
	v.seen.Forget(id)
}
