// ABOUTME: Shared behavior tests run against every ledger driver
// ABOUTME: Covers atomic units, version checks, slots and the transaction log

package ledger

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mythic-metadata/internal/address"
)

var errAbort = errors.New("abort")

func forEachDriver(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()

	drivers := map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "ledger.db"))
			require.NoError(t, err)
			return s
		},
		"sqlite-memory": func(t *testing.T) Store {
			s, err := NewSQLiteStore(":memory:")
			require.NoError(t, err)
			return s
		},
		"bolt": func(t *testing.T) Store {
			s, err := NewBoltStore(filepath.Join(t.TempDir(), "ledger.bolt"))
			require.NoError(t, err)
			return s
		},
	}

	for name, open := range drivers {
		t.Run(name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { s.Close() })
			fn(t, s)
		})
	}
}

func addr(b byte) address.Pubkey {
	var p address.Pubkey
	p[0] = b
	return p
}

func getAccount(t *testing.T, s Store, a address.Pubkey) (*Account, error) {
	t.Helper()
	var out *Account
	err := s.View(context.Background(), func(r Reader) error {
		var err error
		out, err = r.Get(context.Background(), a)
		return err
	})
	return out, err
}

func TestStore_CreateAndGet(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		slot, err := s.Update(ctx, func(tx Tx) error {
			assert.Equal(t, uint64(1), tx.Slot())
			if err := tx.Create(ctx, addr(1), "Counter", []byte("one")); err != nil {
				return err
			}
			// A unit sees its own writes.
			got, err := tx.Get(ctx, addr(1))
			require.NoError(t, err)
			assert.Equal(t, []byte("one"), got.Data)
			tx.Record(TxRecord{ID: "tx-1", Op: "initialize_counter", Signers: []string{"payer"}})
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, uint64(1), slot)

		acct, err := getAccount(t, s, addr(1))
		require.NoError(t, err)
		assert.Equal(t, "Counter", acct.Kind)
		assert.Equal(t, []byte("one"), acct.Data)
		assert.Equal(t, uint64(1), acct.Version)
		assert.Equal(t, uint64(1), acct.Slot)

		_, err = getAccount(t, s, addr(2))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_CreateExisting(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Update(ctx, func(tx Tx) error {
			return tx.Create(ctx, addr(1), "Counter", []byte("one"))
		})
		require.NoError(t, err)

		_, err = s.Update(ctx, func(tx Tx) error {
			return tx.Create(ctx, addr(1), "Counter", []byte("two"))
		})
		assert.ErrorIs(t, err, ErrAlreadyExists)

		_, err = s.Update(ctx, func(tx Tx) error {
			if err := tx.Create(ctx, addr(2), "Counter", []byte("a")); err != nil {
				return err
			}
			return tx.Create(ctx, addr(2), "Counter", []byte("b"))
		})
		assert.ErrorIs(t, err, ErrAlreadyExists)

		acct, err := getAccount(t, s, addr(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("one"), acct.Data)

		_, err = getAccount(t, s, addr(2))
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_FailedUnitChangesNothing(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Update(ctx, func(tx Tx) error {
			return tx.Create(ctx, addr(1), "Counter", []byte("v1"))
		})
		require.NoError(t, err)

		_, err = s.Update(ctx, func(tx Tx) error {
			acct, err := tx.Get(ctx, addr(1))
			if err != nil {
				return err
			}
			acct.Data = []byte("v2")
			if err := tx.Put(ctx, acct); err != nil {
				return err
			}
			if err := tx.Create(ctx, addr(2), "MetadataKey", []byte("key")); err != nil {
				return err
			}
			return errAbort
		})
		assert.ErrorIs(t, err, errAbort)

		acct, err := getAccount(t, s, addr(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("v1"), acct.Data)
		assert.Equal(t, uint64(1), acct.Version)

		_, err = getAccount(t, s, addr(2))
		assert.ErrorIs(t, err, ErrNotFound)

		slot, err := s.LatestSlot(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), slot)
	})
}

func TestStore_PutVersioning(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Update(ctx, func(tx Tx) error {
			return tx.Create(ctx, addr(1), "Counter", []byte("v1"))
		})
		require.NoError(t, err)

		stale, err := getAccount(t, s, addr(1))
		require.NoError(t, err)

		_, err = s.Update(ctx, func(tx Tx) error {
			acct, err := tx.Get(ctx, addr(1))
			if err != nil {
				return err
			}
			acct.Data = []byte("v2")
			if err := tx.Put(ctx, acct); err != nil {
				return err
			}
			// A second put in the same unit builds on the staged version.
			again, err := tx.Get(ctx, addr(1))
			if err != nil {
				return err
			}
			again.Data = []byte("v3")
			return tx.Put(ctx, again)
		})
		require.NoError(t, err)

		stale.Data = []byte("stale")
		_, err = s.Update(ctx, func(tx Tx) error {
			return tx.Put(ctx, stale)
		})
		assert.ErrorIs(t, err, ErrConflict)

		acct, err := getAccount(t, s, addr(1))
		require.NoError(t, err)
		assert.Equal(t, []byte("v3"), acct.Data)
		assert.Equal(t, uint64(3), acct.Version)
		assert.Equal(t, uint64(2), acct.Slot)
	})
}

func TestStore_PutMissing(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.Update(ctx, func(tx Tx) error {
			return tx.Put(ctx, &Account{Address: addr(9), Kind: "Counter", Data: []byte("x"), Version: 1})
		})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestStore_SlotAdvancesPerUnit(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for i := 1; i <= 5; i++ {
			slot, err := s.Update(ctx, func(tx Tx) error {
				tx.Record(TxRecord{ID: fmt.Sprintf("tx-%d", i), Op: "noop"})
				return nil
			})
			require.NoError(t, err)
			assert.Equal(t, uint64(i), slot)
		}

		err := s.View(ctx, func(r Reader) error {
			assert.Equal(t, uint64(5), r.Slot())
			return nil
		})
		require.NoError(t, err)
	})
}

func TestStore_ListTransactions(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		for i := 1; i <= 3; i++ {
			_, err := s.Update(ctx, func(tx Tx) error {
				tx.Record(TxRecord{ID: fmt.Sprintf("tx-%d", i), Op: "create_metadata", Signers: []string{"a", "b"}})
				return nil
			})
			require.NoError(t, err)
		}

		recs, err := s.ListTransactions(ctx, 2)
		require.NoError(t, err)
		require.Len(t, recs, 2)
		assert.Equal(t, "tx-3", recs[0].ID)
		assert.Equal(t, uint64(3), recs[0].Slot)
		assert.Equal(t, "tx-2", recs[1].ID)
		assert.Equal(t, []string{"a", "b"}, recs[1].Signers)
		assert.False(t, recs[1].CreatedAt.IsZero())

		all, err := s.ListTransactions(ctx, 0)
		require.NoError(t, err)
		assert.Len(t, all, 3)
	})
}

func TestStore_DuplicateTransaction(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Update(ctx, func(tx Tx) error {
			tx.Record(TxRecord{ID: "same", Op: "noop"})
			return nil
		})
		require.NoError(t, err)

		_, err = s.Update(ctx, func(tx Tx) error {
			if err := tx.Create(ctx, addr(1), "Counter", []byte("x")); err != nil {
				return err
			}
			tx.Record(TxRecord{ID: "same", Op: "noop"})
			return nil
		})
		assert.ErrorIs(t, err, ErrDuplicateTransaction)

		_, err = getAccount(t, s, addr(1))
		assert.ErrorIs(t, err, ErrNotFound)

		slot, err := s.LatestSlot(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), slot)
	})
}

func TestStore_ConcurrentIncrements(t *testing.T) {
	forEachDriver(t, func(t *testing.T, s Store) {
		ctx := context.Background()

		_, err := s.Update(ctx, func(tx Tx) error {
			return tx.Create(ctx, addr(1), "Counter", []byte{0})
		})
		require.NoError(t, err)

		const workers = 8
		var wg sync.WaitGroup
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					_, err := s.Update(ctx, func(tx Tx) error {
						acct, err := tx.Get(ctx, addr(1))
						if err != nil {
							return err
						}
						acct.Data = []byte{acct.Data[0] + 1}
						return tx.Put(ctx, acct)
					})
					if errors.Is(err, ErrConflict) {
						continue
					}
					assert.NoError(t, err)
					return
				}
			}()
		}
		wg.Wait()

		acct, err := getAccount(t, s, addr(1))
		require.NoError(t, err)
		assert.Equal(t, []byte{workers}, acct.Data)
		assert.Equal(t, uint64(workers+1), acct.Version)
	})
}

func TestStore_Closed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())

	_, err := s.Update(context.Background(), func(Tx) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()

	for _, driver := range []string{DriverSQLite, DriverBolt, DriverMemory} {
		s, err := Open(driver, filepath.Join(dir, driver+".db"))
		require.NoError(t, err, driver)
		require.NoError(t, s.Close())
	}

	_, err := Open("postgres", "")
	assert.Error(t, err)
}
