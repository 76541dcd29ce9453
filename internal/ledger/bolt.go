// ABOUTME: bbolt ledger driver
// ABOUTME: Accounts, transaction log and slot live in separate buckets of one file

package ledger

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	bolterrors "go.etcd.io/bbolt/errors"

	"github.com/2389/mythic-metadata/internal/address"
)

var (
	bucketAccounts = []byte("accounts")
	bucketTxLog    = []byte("tx_log")
	bucketTxIDs    = []byte("tx_ids")
	bucketMeta     = []byte("meta")

	metaSlotKey = []byte("slot")
)

// BoltStore is a Store backed by a bbolt file. bbolt allows one writer at a
// time, so units of work never conflict with each other.
type BoltStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ Store = (*BoltStore)(nil)

// boltAccount is the stored form of an account.
type boltAccount struct {
	Kind    string `json:"kind"`
	Data    []byte `json:"data"`
	Version uint64 `json:"version"`
	Slot    uint64 `json:"slot"`
}

// NewBoltStore opens or creates the bbolt ledger at path.
func NewBoltStore(path string) (*BoltStore, error) {
	logger := slog.Default().With("component", "ledger", "driver", "bolt")

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketAccounts, bucketTxLog, bucketTxIDs, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("creating bucket %s: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	logger.Info("bolt ledger initialized", "path", path)
	return &BoltStore{db: db, logger: logger}, nil
}

func (s *BoltStore) View(ctx context.Context, fn func(Reader) error) error {
	err := s.db.View(func(tx *bbolt.Tx) error {
		v, err := newView(ctx, boltTx{tx})
		if err != nil {
			return err
		}
		return fn(v)
	})
	return closedErr(err)
}

func (s *BoltStore) Update(ctx context.Context, fn func(Tx) error) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var slot uint64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		var err error
		slot, err = runUnit(ctx, boltTx{tx}, fn)
		return err
	})
	if err != nil {
		return 0, closedErr(err)
	}
	return slot, nil
}

func (s *BoltStore) LatestSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		slot, err = boltTx{tx}.slot(ctx)
		return err
	})
	return slot, closedErr(err)
}

func (s *BoltStore) ListTransactions(_ context.Context, limit int) ([]TxRecord, error) {
	limit = clampLimit(limit)
	var out []TxRecord
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketTxLog).Cursor()
		for k, v := c.Last(); k != nil && len(out) < limit; k, v = c.Prev() {
			var rec TxRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("decoding transaction at slot %d: %w", binary.BigEndian.Uint64(k), err)
			}
			out = append(out, rec)
		}
		return nil
	})
	return out, closedErr(err)
}

func (s *BoltStore) Close() error {
	s.logger.Debug("closing bolt ledger")
	return s.db.Close()
}

func closedErr(err error) error {
	if errors.Is(err, bolterrors.ErrDatabaseNotOpen) {
		return ErrClosed
	}
	return err
}

type boltTx struct {
	tx *bbolt.Tx
}

func slotKey(slot uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, slot)
}

func (t boltTx) get(_ context.Context, addr address.Pubkey) (*Account, error) {
	raw := t.tx.Bucket(bucketAccounts).Get(addr[:])
	if raw == nil {
		return nil, ErrNotFound
	}
	var stored boltAccount
	if err := json.Unmarshal(raw, &stored); err != nil {
		return nil, fmt.Errorf("decoding account %s: %w", addr, err)
	}
	return &Account{
		Address: addr,
		Kind:    stored.Kind,
		Data:    stored.Data,
		Version: stored.Version,
		Slot:    stored.Slot,
	}, nil
}

func (t boltTx) slot(context.Context) (uint64, error) {
	raw := t.tx.Bucket(bucketMeta).Get(metaSlotKey)
	if raw == nil {
		return 0, nil
	}
	return binary.BigEndian.Uint64(raw), nil
}

func (t boltTx) put(acct *Account) error {
	raw, err := json.Marshal(boltAccount{
		Kind:    acct.Kind,
		Data:    acct.Data,
		Version: acct.Version,
		Slot:    acct.Slot,
	})
	if err != nil {
		return fmt.Errorf("encoding account %s: %w", acct.Address, err)
	}
	if err := t.tx.Bucket(bucketAccounts).Put(acct.Address[:], raw); err != nil {
		return fmt.Errorf("putting account %s: %w", acct.Address, err)
	}
	return nil
}

func (t boltTx) insert(_ context.Context, acct *Account) error {
	if t.tx.Bucket(bucketAccounts).Get(acct.Address[:]) != nil {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, acct.Address)
	}
	return t.put(acct)
}

func (t boltTx) update(ctx context.Context, acct *Account, prevVersion uint64) error {
	cur, err := t.get(ctx, acct.Address)
	if err != nil || cur.Version != prevVersion {
		return fmt.Errorf("%w: %s", ErrConflict, acct.Address)
	}
	return t.put(acct)
}

func (t boltTx) setSlot(_ context.Context, slot uint64) error {
	return t.tx.Bucket(bucketMeta).Put(metaSlotKey, slotKey(slot))
}

func (t boltTx) appendRecord(_ context.Context, rec TxRecord) error {
	ids := t.tx.Bucket(bucketTxIDs)
	if ids.Get([]byte(rec.ID)) != nil {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, rec.ID)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encoding transaction: %w", err)
	}
	if err := ids.Put([]byte(rec.ID), slotKey(rec.Slot)); err != nil {
		return err
	}
	return t.tx.Bucket(bucketTxLog).Put(slotKey(rec.Slot), raw)
}
