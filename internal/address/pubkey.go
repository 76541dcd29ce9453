// ABOUTME: 32-byte principal and account address type with base58 text form
// ABOUTME: Shared by transaction signers, derived accounts and the program id

package address

import (
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// PubkeyLen is the length of a principal or account address in bytes.
const PubkeyLen = 32

// ErrInvalidPubkey is returned when text or bytes do not decode to 32 bytes.
var ErrInvalidPubkey = errors.New("invalid pubkey")

// Pubkey identifies a principal (ed25519 public key) or a derived account.
type Pubkey [PubkeyLen]byte

// Parse decodes a base58 pubkey.
func Parse(s string) (Pubkey, error) {
	raw, err := base58.Decode(s)
	if err != nil {
		return Pubkey{}, fmt.Errorf("%w: %v", ErrInvalidPubkey, err)
	}
	return FromBytes(raw)
}

// MustParse is Parse for constants and tests. It panics on malformed input.
func MustParse(s string) Pubkey {
	p, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return p
}

// FromBytes copies a 32-byte slice into a Pubkey.
func FromBytes(b []byte) (Pubkey, error) {
	var p Pubkey
	if len(b) != PubkeyLen {
		return p, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidPubkey, len(b), PubkeyLen)
	}
	copy(p[:], b)
	return p, nil
}

// String returns the base58 form.
func (p Pubkey) String() string {
	return base58.Encode(p[:])
}

// Bytes returns a copy of the raw bytes.
func (p Pubkey) Bytes() []byte {
	b := make([]byte, PubkeyLen)
	copy(b, p[:])
	return b
}

// IsZero reports whether p is the all-zero key.
func (p Pubkey) IsZero() bool {
	return p == Pubkey{}
}

// IsOnCurve reports whether p decodes to a point on the ed25519 curve.
// Derived addresses never do.
func (p Pubkey) IsOnCurve() bool {
	return isOnCurve(p[:])
}

// MarshalText implements encoding.TextMarshaler.
func (p Pubkey) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Pubkey) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}
