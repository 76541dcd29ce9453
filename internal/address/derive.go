// ABOUTME: Program-derived address search over domain-separated seeds
// ABOUTME: Finds the highest bump whose SHA-256 digest is off the ed25519 curve

package address

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"math"
)

const (
	// MaxSeeds is the maximum number of seeds, including the bump.
	MaxSeeds = 16

	// MaxSeedLen is the maximum length of a single seed in bytes.
	MaxSeedLen = 32

	pdaMarker = "ProgramDerivedAddress"
)

var (
	// ErrMaxSeedLength is returned when a seed is longer than MaxSeedLen.
	ErrMaxSeedLength = errors.New("seed exceeds maximum length")

	// ErrTooManySeeds is returned when more than MaxSeeds-1 seeds are supplied.
	ErrTooManySeeds = errors.New("too many seeds")

	// ErrOnCurve is returned by Create when the seeds and bump hash to a valid
	// ed25519 point.
	ErrOnCurve = errors.New("derived address lies on the ed25519 curve")

	// ErrExhausted is returned when no bump yields an off-curve address.
	ErrExhausted = errors.New("no viable bump seed")
)

// Deriver computes addresses owned by one program id.
type Deriver struct {
	programID Pubkey
	onCurve   func([]byte) bool
}

// NewDeriver returns a deriver for the given program id.
func NewDeriver(programID Pubkey) *Deriver {
	return &Deriver{
		programID: programID,
		onCurve:   isOnCurve,
	}
}

// ProgramID returns the program id mixed into every derivation.
func (d *Deriver) ProgramID() Pubkey {
	return d.programID
}

// Create derives the address for seeds with an explicit bump.
func (d *Deriver) Create(bump uint8, seeds ...[]byte) (Pubkey, error) {
	if err := checkSeeds(seeds); err != nil {
		return Pubkey{}, err
	}
	candidate := d.hash(seeds, bump)
	if d.onCurve(candidate[:]) {
		return Pubkey{}, ErrOnCurve
	}
	return candidate, nil
}

// Find returns the address and bump for seeds, trying bumps from 255 down.
func (d *Deriver) Find(seeds ...[]byte) (Pubkey, uint8, error) {
	if err := checkSeeds(seeds); err != nil {
		return Pubkey{}, 0, err
	}
	for bump := math.MaxUint8; bump >= 0; bump-- {
		candidate := d.hash(seeds, uint8(bump))
		if !d.onCurve(candidate[:]) {
			return candidate, uint8(bump), nil
		}
	}
	return Pubkey{}, 0, ErrExhausted
}

func (d *Deriver) hash(seeds [][]byte, bump uint8) Pubkey {
	h := sha256.New()
	for _, s := range seeds {
		h.Write(s)
	}
	h.Write([]byte{bump})
	h.Write(d.programID[:])
	h.Write([]byte(pdaMarker))

	var out Pubkey
	copy(out[:], h.Sum(nil))
	return out
}

func checkSeeds(seeds [][]byte) error {
	if len(seeds) >= MaxSeeds {
		return fmt.Errorf("%w: %d seeds, max %d", ErrTooManySeeds, len(seeds), MaxSeeds-1)
	}
	for i, s := range seeds {
		if len(s) > MaxSeedLen {
			return fmt.Errorf("%w: seed %d is %d bytes", ErrMaxSeedLength, i, len(s))
		}
	}
	return nil
}
