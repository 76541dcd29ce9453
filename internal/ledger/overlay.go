// ABOUTME: Staging overlay shared by every driver
// ABOUTME: Buffers creates and puts, then applies them through a backend transaction

package ledger

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/2389/mythic-metadata/internal/address"
)

// backend is one driver transaction.
type backend interface {
	get(ctx context.Context, addr address.Pubkey) (*Account, error)
	slot(ctx context.Context) (uint64, error)
	insert(ctx context.Context, acct *Account) error
	update(ctx context.Context, acct *Account, prevVersion uint64) error
	setSlot(ctx context.Context, slot uint64) error
	appendRecord(ctx context.Context, rec TxRecord) error
}

type staged struct {
	acct        *Account
	created     bool
	prevVersion uint64
}

type overlay struct {
	b      backend
	slot   uint64
	writes map[address.Pubkey]*staged
	order  []address.Pubkey
	record *TxRecord
}

var _ Tx = (*overlay)(nil)

func newOverlay(ctx context.Context, b backend) (*overlay, error) {
	current, err := b.slot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading slot: %w", err)
	}
	return &overlay{
		b:      b,
		slot:   current + 1,
		writes: make(map[address.Pubkey]*staged),
	}, nil
}

func (o *overlay) Slot() uint64 {
	return o.slot
}

func (o *overlay) Get(ctx context.Context, addr address.Pubkey) (*Account, error) {
	if s, ok := o.writes[addr]; ok {
		return s.acct.clone(), nil
	}
	return o.b.get(ctx, addr)
}

func (o *overlay) Create(ctx context.Context, addr address.Pubkey, kind string, data []byte) error {
	if _, ok := o.writes[addr]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
	}
	_, err := o.b.get(ctx, addr)
	switch {
	case err == nil:
		return fmt.Errorf("%w: %s", ErrAlreadyExists, addr)
	case !errors.Is(err, ErrNotFound):
		return err
	}

	o.writes[addr] = &staged{
		acct: &Account{
			Address: addr,
			Kind:    kind,
			Data:    slices.Clone(data),
			Version: 1,
			Slot:    o.slot,
		},
		created: true,
	}
	o.order = append(o.order, addr)
	return nil
}

func (o *overlay) Put(ctx context.Context, acct *Account) error {
	next := acct.clone()
	next.Version = acct.Version + 1
	next.Slot = o.slot

	if s, ok := o.writes[acct.Address]; ok {
		if s.acct.Version != acct.Version {
			return fmt.Errorf("%w: %s at version %d, wrote from %d", ErrConflict, acct.Address, s.acct.Version, acct.Version)
		}
		s.acct = next
		return nil
	}

	base, err := o.b.get(ctx, acct.Address)
	if err != nil {
		return err
	}
	if base.Version != acct.Version {
		return fmt.Errorf("%w: %s at version %d, wrote from %d", ErrConflict, acct.Address, base.Version, acct.Version)
	}
	o.writes[acct.Address] = &staged{acct: next, prevVersion: base.Version}
	o.order = append(o.order, acct.Address)
	return nil
}

func (o *overlay) Record(rec TxRecord) {
	o.record = &rec
}

// commit applies the record, then the staged writes in the order they were
// made, then the new slot.
func (o *overlay) commit(ctx context.Context) error {
	if o.record != nil {
		rec := *o.record
		rec.Slot = o.slot
		if rec.ID == "" {
			rec.ID = uuid.NewString()
		}
		if rec.CreatedAt.IsZero() {
			rec.CreatedAt = time.Now().UTC()
		}
		if err := o.b.appendRecord(ctx, rec); err != nil {
			return err
		}
	}
	for _, addr := range o.order {
		s := o.writes[addr]
		if s.created {
			if err := o.b.insert(ctx, s.acct); err != nil {
				return err
			}
			continue
		}
		if err := o.b.update(ctx, s.acct, s.prevVersion); err != nil {
			return err
		}
	}
	if err := o.b.setSlot(ctx, o.slot); err != nil {
		return fmt.Errorf("advancing slot: %w", err)
	}
	return nil
}

// runUnit executes fn over a fresh overlay and commits it.
func runUnit(ctx context.Context, b backend, fn func(Tx) error) (uint64, error) {
	o, err := newOverlay(ctx, b)
	if err != nil {
		return 0, err
	}
	if err := fn(o); err != nil {
		return 0, err
	}
	if err := o.commit(ctx); err != nil {
		return 0, err
	}
	return o.slot, nil
}

// view adapts a backend to Reader.
type view struct {
	b    backend
	slot uint64
}

func (v *view) Get(ctx context.Context, addr address.Pubkey) (*Account, error) {
	return v.b.get(ctx, addr)
}

func (v *view) Slot() uint64 {
	return v.slot
}

func newView(ctx context.Context, b backend) (*view, error) {
	slot, err := b.slot(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading slot: %w", err)
	}
	return &view{b: b, slot: slot}, nil
}
