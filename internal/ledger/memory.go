// ABOUTME: In-memory ledger driver for tests and ephemeral nodes
// ABOUTME: Units of work are serialized by a single mutex

package ledger

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/2389/mythic-metadata/internal/address"
)

// MemoryStore is an in-memory Store.
type MemoryStore struct {
	mu       sync.RWMutex
	accounts map[address.Pubkey]*Account
	records  []TxRecord
	txIDs    map[string]uint64 // tx id -> slot
	slot     uint64
	closed   bool
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts: make(map[address.Pubkey]*Account),
		txIDs:    make(map[string]uint64),
	}
}

func (m *MemoryStore) View(ctx context.Context, fn func(Reader) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return ErrClosed
	}
	v, err := newView(ctx, memTx{m})
	if err != nil {
		return err
	}
	return fn(v)
}

func (m *MemoryStore) Update(ctx context.Context, fn func(Tx) error) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return 0, ErrClosed
	}
	// The staged writes are validated against this map under the same lock,
	// so applying them cannot fail halfway.
	return runUnit(ctx, memTx{m}, fn)
}

func (m *MemoryStore) LatestSlot(ctx context.Context) (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return 0, ErrClosed
	}
	return m.slot, nil
}

func (m *MemoryStore) ListTransactions(ctx context.Context, limit int) ([]TxRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}

	limit = clampLimit(limit)
	out := make([]TxRecord, 0, min(limit, len(m.records)))
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		rec := m.records[i]
		rec.Signers = slices.Clone(rec.Signers)
		out = append(out, rec)
	}
	return out, nil
}

func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// memTx is the backend view of a MemoryStore. Callers hold the lock.
type memTx struct {
	m *MemoryStore
}

func (t memTx) get(_ context.Context, addr address.Pubkey) (*Account, error) {
	acct, ok := t.m.accounts[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return acct.clone(), nil
}

func (t memTx) slot(context.Context) (uint64, error) {
	return t.m.slot, nil
}

func (t memTx) insert(_ context.Context, acct *Account) error {
	if _, ok := t.m.accounts[acct.Address]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, acct.Address)
	}
	t.m.accounts[acct.Address] = acct.clone()
	return nil
}

func (t memTx) update(_ context.Context, acct *Account, prevVersion uint64) error {
	cur, ok := t.m.accounts[acct.Address]
	if !ok || cur.Version != prevVersion {
		return fmt.Errorf("%w: %s", ErrConflict, acct.Address)
	}
	t.m.accounts[acct.Address] = acct.clone()
	return nil
}

func (t memTx) setSlot(_ context.Context, slot uint64) error {
	t.m.slot = slot
	return nil
}

func (t memTx) appendRecord(_ context.Context, rec TxRecord) error {
	if _, ok := t.m.txIDs[rec.ID]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, rec.ID)
	}
	t.m.txIDs[rec.ID] = rec.Slot
	rec.Signers = slices.Clone(rec.Signers)
	t.m.records = append(t.m.records, rec)
	return nil
}
