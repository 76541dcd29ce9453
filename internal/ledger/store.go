// ABOUTME: Ledger interfaces, account and transaction record types
// ABOUTME: Defines Reader, Tx and Store plus the sentinel errors drivers return

package ledger

import (
	"context"
	"errors"
	"slices"
	"time"

	"github.com/2389/mythic-metadata/internal/address"
)

var (
	// ErrNotFound is returned when an account does not exist.
	ErrNotFound = errors.New("account not found")

	// ErrAlreadyExists is returned when creating an occupied address.
	ErrAlreadyExists = errors.New("account already exists")

	// ErrConflict is returned when a write raced another unit of work.
	ErrConflict = errors.New("ledger conflict")

	// ErrDuplicateTransaction is returned when a transaction id was already recorded.
	ErrDuplicateTransaction = errors.New("transaction already recorded")

	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ledger closed")
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// Account is one stored account.
type Account struct {
	Address address.Pubkey
	Kind    string
	Data    []byte
	Version uint64 // 1 on creation
	Slot    uint64 // slot of the last write
}

func (a *Account) clone() *Account {
	c := *a
	c.Data = slices.Clone(a.Data)
	return &c
}

// TxRecord is the log entry of one committed unit of work.
type TxRecord struct {
	ID        string    `json:"id"`
	Slot      uint64    `json:"slot"`
	Op        string    `json:"op"`
	Signers   []string  `json:"signers"`
	CreatedAt time.Time `json:"created_at"`
}

// Reader reads accounts.
type Reader interface {
	// Get returns a copy of the account at addr or ErrNotFound.
	Get(ctx context.Context, addr address.Pubkey) (*Account, error)

	// Slot returns the latest committed slot in a view, or the slot the unit
	// will commit at inside Update.
	Slot() uint64
}

// Tx stages writes for one unit of work.
type Tx interface {
	Reader

	// Create stages a new account. Returns ErrAlreadyExists when occupied.
	Create(ctx context.Context, addr address.Pubkey, kind string, data []byte) error

	// Put stages a new version of acct. acct.Version must be the version
	// that was read, otherwise ErrConflict.
	Put(ctx context.Context, acct *Account) error

	// Record sets the log entry written with this unit. Its Slot is filled in.
	Record(rec TxRecord)
}

// Store is a ledger backend.
type Store interface {
	View(ctx context.Context, fn func(Reader) error) error

	// Update runs fn in one unit of work and returns the committed slot.
	Update(ctx context.Context, fn func(Tx) error) (uint64, error)

	LatestSlot(ctx context.Context) (uint64, error)

	// ListTransactions returns the most recent records, newest first.
	ListTransactions(ctx context.Context, limit int) ([]TxRecord, error)

	Close() error
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	return min(limit, maxListLimit)
}
