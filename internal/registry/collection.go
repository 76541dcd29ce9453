// ABOUTME: Collection append and removal on a metadata record
// ABOUTME: Both require the record's update authority

package registry

import (
	"github.com/2389/mythic-metadata/internal/state"
)

func (p *Program) appendMetadataCollection(c *call, a *AppendMetadataCollectionArgs) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	if err := requireRecordAuthority(m, c.account(RoleUpdateAuthority)); err != nil {
		return err
	}

	keyAddr := c.account(RoleCollectionMetadataKey)
	key, err := c.loadMetadataKey(keyAddr)
	if err != nil {
		return err
	}

	err = m.AppendCollection(state.Collection{
		MetadataKey:     keyAddr,
		MetadataKeyID:   key.ID,
		UpdateAuthority: a.UpdateAuthority,
		UpdateSlot:      c.tx.Slot(),
	}, p.limits)
	if err != nil {
		return err
	}
	return c.save(acct, m)
}

func (p *Program) removeMetadataCollection(c *call) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	if err := requireRecordAuthority(m, c.account(RoleUpdateAuthority)); err != nil {
		return err
	}
	if _, err := m.RemoveCollection(c.account(RoleCollectionMetadataKey)); err != nil {
		return err
	}
	return c.save(acct, m)
}
