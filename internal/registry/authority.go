// ABOUTME: Collection delegate grant and revocation
// ABOUTME: The record authority grants; only the current delegate revokes

package registry

import (
	"github.com/2389/mythic-metadata/internal/state"
)

func (p *Program) setCollectionUpdateAuthority(c *call, a *SetCollectionUpdateAuthorityArgs) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	if err := requireRecordAuthority(m, c.account(RoleUpdateAuthority)); err != nil {
		return err
	}
	col, err := m.Collection(c.account(RoleCollectionMetadataKey))
	if err != nil {
		return err
	}
	col.UpdateAuthority = state.Delegate(a.NewUpdateAuthority)
	col.UpdateSlot = c.tx.Slot()
	return c.save(acct, m)
}

func (p *Program) revokeCollectionUpdateAuthority(c *call) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	col, err := m.Collection(c.account(RoleCollectionMetadataKey))
	if err != nil {
		return err
	}
	signer := c.account(RoleUpdateAuthority)
	if !col.UpdateAuthority.IsSet() {
		return wrap(ErrNoCollectionDelegate, "%s", col.MetadataKey)
	}
	if !col.UpdateAuthority.Is(signer) {
		return wrap(ErrUnauthorized, "%s is not the collection update authority", signer)
	}
	col.UpdateAuthority = state.None()
	col.UpdateSlot = c.tx.Slot()
	return c.save(acct, m)
}
