// ABOUTME: Metadata record creation and record-level update authority
// ABOUTME: Records bind a subject to a root key under an issuing authority

package registry

import (
	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

func (p *Program) createMetadata(c *call, a *CreateMetadataArgs) error {
	rootAddr := c.account(RoleMetadataKey)
	issuer := c.account(RoleIssuingAuthority)

	root, err := c.loadMetadataKey(rootAddr)
	if err != nil {
		return err
	}

	addr, bump, err := p.deriver.Metadata(rootAddr, issuer, a.Subject)
	if err != nil {
		return err
	}
	if err := expectAddress(RoleMetadata, c.account(RoleMetadata), addr); err != nil {
		return err
	}

	m := &state.Metadata{
		MetadataKey:      rootAddr,
		MetadataKeyID:    root.ID,
		IssuingAuthority: issuer,
		Subject:          a.Subject,
		UpdateAuthority:  a.UpdateAuthority.Or(state.Delegate(issuer)),
		Bump:             bump,
	}
	return c.create(addr, m, ErrMetadataAlreadyExists)
}

// loadTargetMetadata loads the record named by the metadata account and
// checks it against the root key account and its own derivation.
func (p *Program) loadTargetMetadata(c *call) (*state.Metadata, *ledger.Account, error) {
	addr := c.account(RoleMetadata)
	m, acct, err := c.loadMetadata(addr)
	if err != nil {
		return nil, nil, err
	}
	if err := expectAddress(RoleMetadataKey, c.account(RoleMetadataKey), m.MetadataKey); err != nil {
		return nil, nil, err
	}
	derived, err := p.deriver.Create(m.Bump, address.MetadataSeeds(m.MetadataKey, m.IssuingAuthority, m.Subject)...)
	if err != nil {
		return nil, nil, err
	}
	if err := expectAddress(RoleMetadata, addr, derived); err != nil {
		return nil, nil, err
	}
	return m, acct, nil
}

// requireRecordAuthority checks that signer holds the record's update authority.
func requireRecordAuthority(m *state.Metadata, signer address.Pubkey) error {
	if !m.UpdateAuthority.IsSet() {
		return ErrImmutableMetadata
	}
	if !m.UpdateAuthority.Is(signer) {
		return wrap(ErrUnauthorized, "%s is not the update authority", signer)
	}
	return nil
}

func (p *Program) setMetadataUpdateAuthority(c *call, a *SetMetadataUpdateAuthorityArgs) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	if err := requireRecordAuthority(m, c.account(RoleUpdateAuthority)); err != nil {
		return err
	}
	m.UpdateAuthority = state.Delegate(a.NewUpdateAuthority)
	return c.save(acct, m)
}

func (p *Program) revokeMetadataUpdateAuthority(c *call) error {
	m, acct, err := p.loadTargetMetadata(c)
	if err != nil {
		return err
	}
	if err := requireRecordAuthority(m, c.account(RoleUpdateAuthority)); err != nil {
		return err
	}
	m.UpdateAuthority = state.None()
	return c.save(acct, m)
}
