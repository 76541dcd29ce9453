// ABOUTME: Counter initialization
// ABOUTME: Creates the singleton that numbers metadata keys under the counter scheme

package registry

import (
	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/state"
)

func (p *Program) initializeCounter(c *call) error {
	if p.scheme != address.SchemeCounter {
		return wrap(ErrSchemeMismatch, "counter is only used by the %s scheme", address.SchemeCounter)
	}
	addr, bump, err := p.deriver.Counter()
	if err != nil {
		return err
	}
	if err := expectAddress(RoleCounter, c.account(RoleCounter), addr); err != nil {
		return err
	}
	return c.create(addr, state.NewCounter(bump), ErrCounterAlreadyExists)
}
