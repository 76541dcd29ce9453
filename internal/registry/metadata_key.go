// ABOUTME: Metadata key creation under the name and counter schemes
// ABOUTME: Counter-scheme keys draw their id in the same unit of work

package registry

import (
	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/state"
)

func (p *Program) createMetadataKey(c *call, a *CreateMetadataKeyArgs) error {
	key := &state.MetadataKey{
		NamespaceAuthority: c.account(RoleNamespaceAuthority),
		Name:               a.Name,
		Label:              a.Label,
		Description:        a.Description,
		ContentType:        a.ContentType,
	}
	if err := key.Validate(p.limits); err != nil {
		return err
	}

	target := c.account(RoleMetadataKey)

	if p.scheme == address.SchemeName {
		if a.ID != nil {
			return wrap(ErrSchemeMismatch, "explicit key id under the %s scheme", p.scheme)
		}
		addr, bump, err := p.deriver.MetadataKeyByName(key.NamespaceAuthority, key.Name)
		if err != nil {
			return err
		}
		if err := expectAddress(RoleMetadataKey, target, addr); err != nil {
			return err
		}
		key.Bump = bump
		return c.create(addr, key, ErrMetadataKeyAlreadyExists)
	}

	counterAddr, _, err := p.deriver.Counter()
	if err != nil {
		return err
	}
	if err := expectAddress(RoleCounter, c.account(RoleCounter), counterAddr); err != nil {
		return err
	}
	counter, counterAcct, err := c.loadCounter(counterAddr)
	if err != nil {
		return err
	}
	if a.ID != nil && *a.ID != counter.ID {
		return wrap(ErrStaleSequence, "key id %d, counter at %d", *a.ID, counter.ID)
	}

	id, err := counter.Next()
	if err != nil {
		return err
	}
	addr, bump, err := p.deriver.MetadataKeyByID(id)
	if err != nil {
		return err
	}
	if err := expectAddress(RoleMetadataKey, target, addr); err != nil {
		return err
	}

	key.ID = id
	key.Bump = bump
	if err := c.create(addr, key, ErrMetadataKeyAlreadyExists); err != nil {
		return err
	}
	return c.save(counterAcct, counter)
}
