// ABOUTME: Authority sum type for record and collection update authorities
// ABOUTME: Either a delegated principal or none, with JSON as base58 or null

package state

import (
	"encoding/json"

	"github.com/2389/mythic-metadata/internal/address"
)

// Authority is either Delegated(principal) or None.
//
// On a collection, None means the record's update authority applies. On a
// record, None means the record is frozen.
type Authority struct {
	key address.Pubkey
	set bool
}

// Delegate returns an authority held by key.
func Delegate(key address.Pubkey) Authority {
	return Authority{key: key, set: true}
}

// None returns the empty authority.
func None() Authority {
	return Authority{}
}

// Get returns the principal and whether one is set.
func (a Authority) Get() (address.Pubkey, bool) {
	return a.key, a.set
}

func (a Authority) IsSet() bool {
	return a.set
}

// Is reports whether the authority is set and held by key.
func (a Authority) Is(key address.Pubkey) bool {
	return a.set && a.key == key
}

// Or returns a when set, otherwise fallback.
func (a Authority) Or(fallback Authority) Authority {
	if a.set {
		return a
	}
	return fallback
}

func (a Authority) String() string {
	if !a.set {
		return "none"
	}
	return a.key.String()
}

func (a Authority) MarshalJSON() ([]byte, error) {
	if !a.set {
		return []byte("null"), nil
	}
	return json.Marshal(a.key.String())
}

func (a *Authority) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == nil {
		*a = None()
		return nil
	}
	key, err := address.Parse(*s)
	if err != nil {
		return err
	}
	*a = Delegate(key)
	return nil
}
