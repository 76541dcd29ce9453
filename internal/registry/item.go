// ABOUTME: Item append, batch append, update and removal within a collection
// ABOUTME: Gated by the collection's effective update authority

package registry

import (
	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

// itemTarget loads the record and collection an item operation acts on and
// checks the signer against the collection's effective authority.
func (p *Program) itemTarget(c *call) (*state.Metadata, *state.Collection, *ledger.Account, error) {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return nil, nil, nil, err
	}
	col, err := m.Collection(c.account(RoleCollectionMetadataKey))
	if err != nil {
		return nil, nil, nil, err
	}
	if err := requireCollectionAuthority(m, col, c.account(RoleUpdateAuthority)); err != nil {
		return nil, nil, nil, err
	}
	return m, col, acct, nil
}

// requireCollectionAuthority checks signer against the collection delegate,
// or the record authority when no delegate is set.
func requireCollectionAuthority(m *state.Metadata, col *state.Collection, signer address.Pubkey) error {
	effective := col.EffectiveAuthority(m.UpdateAuthority)
	if !effective.IsSet() {
		return ErrImmutableMetadata
	}
	if !effective.Is(signer) {
		return wrap(ErrUnauthorized, "%s may not change items of collection %s", signer, col.MetadataKey)
	}
	return nil
}

func (p *Program) appendItem(c *call, col *state.Collection, keyAddr address.Pubkey, value []byte) error {
	key, err := c.loadMetadataKey(keyAddr)
	if err != nil {
		return err
	}
	err = col.AppendItem(state.Item{
		MetadataKey:   keyAddr,
		MetadataKeyID: key.ID,
		UpdateSlot:    c.tx.Slot(),
		Value:         value,
	}, p.limits)
	if err != nil {
		return err
	}
	col.UpdateSlot = c.tx.Slot()
	return nil
}

func (p *Program) appendMetadataItem(c *call, a *AppendMetadataItemArgs) error {
	m, col, acct, err := p.itemTarget(c)
	if err != nil {
		return err
	}
	if err := p.appendItem(c, col, c.account(RoleItemMetadataKey), a.Value); err != nil {
		return err
	}
	return c.save(acct, m)
}

func (p *Program) appendMetadataItems(c *call, a *AppendMetadataItemsArgs) error {
	m, col, acct, err := p.itemTarget(c)
	if err != nil {
		return err
	}
	var keys []address.Pubkey
	for _, meta := range c.accounts {
		if meta.Name == RoleItemMetadataKey {
			keys = append(keys, meta.Address)
		}
	}
	for i, value := range a.Values {
		if err := p.appendItem(c, col, keys[i], value); err != nil {
			return err
		}
	}
	return c.save(acct, m)
}

func (p *Program) updateMetadataItem(c *call, a *UpdateMetadataItemArgs) error {
	m, col, acct, err := p.itemTarget(c)
	if err != nil {
		return err
	}
	if err := col.UpdateItem(c.account(RoleItemMetadataKey), a.NewValue, c.tx.Slot(), p.limits); err != nil {
		return err
	}
	col.UpdateSlot = c.tx.Slot()
	return c.save(acct, m)
}

func (p *Program) removeMetadataItem(c *call) error {
	m, col, acct, err := p.itemTarget(c)
	if err != nil {
		return err
	}
	if _, err := col.RemoveItem(c.account(RoleItemMetadataKey)); err != nil {
		return err
	}
	// A collection's slot tracks its latest item change, removals included.
	col.UpdateSlot = c.tx.Slot()
	return c.save(acct, m)
}
