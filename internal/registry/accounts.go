// ABOUTME: Typed account loading and saving inside a unit of work
// ABOUTME: Maps missing or mistyped accounts to registry errors

package registry

import (
	"errors"
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

// load reads addr into rec. missing is returned when the account is absent.
func (c *call) load(addr address.Pubkey, rec state.Account, missing *Error) (*ledger.Account, error) {
	acct, err := c.tx.Get(c.ctx, addr)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, wrap(missing, "%s", addr)
	}
	if err != nil {
		return nil, err
	}
	if acct.Kind != string(rec.Kind()) {
		return nil, wrap(ErrAccountMismatch, "%s holds a %s, want %s", addr, acct.Kind, rec.Kind())
	}
	if err := rec.UnmarshalBinary(acct.Data); err != nil {
		return nil, fmt.Errorf("decoding %s %s: %w", rec.Kind(), addr, err)
	}
	return acct, nil
}

func (c *call) loadCounter(addr address.Pubkey) (*state.Counter, *ledger.Account, error) {
	var counter state.Counter
	acct, err := c.load(addr, &counter, ErrCounterNotInitialized)
	return &counter, acct, err
}

func (c *call) loadMetadataKey(addr address.Pubkey) (*state.MetadataKey, error) {
	var key state.MetadataKey
	_, err := c.load(addr, &key, ErrMetadataKeyNotFound)
	return &key, err
}

func (c *call) loadMetadata(addr address.Pubkey) (*state.Metadata, *ledger.Account, error) {
	var m state.Metadata
	acct, err := c.load(addr, &m, ErrMetadataNotFound)
	return &m, acct, err
}

// create stores a new record. exists is returned when addr is occupied.
func (c *call) create(addr address.Pubkey, rec state.Account, exists *Error) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	err = c.tx.Create(c.ctx, addr, string(rec.Kind()), data)
	if errors.Is(err, ledger.ErrAlreadyExists) {
		return wrap(exists, "%s", addr)
	}
	return err
}

// save writes a new version of a loaded record.
func (c *call) save(acct *ledger.Account, rec state.Account) error {
	data, err := rec.MarshalBinary()
	if err != nil {
		return err
	}
	acct.Data = data
	return c.tx.Put(c.ctx, acct)
}

// expectAddress fails with ErrAccountMismatch unless got == want.
func expectAddress(role string, got, want address.Pubkey) error {
	if got != want {
		return wrap(ErrAccountMismatch, "%s is %s, derived %s", role, got, want)
	}
	return nil
}
