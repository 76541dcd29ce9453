// ABOUTME: SQLite ledger driver using modernc.org/sqlite
// ABOUTME: One database transaction per unit of work; busy databases surface as ErrConflict

package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/2389/mythic-metadata/internal/address"
)

// SQLiteStore is a Store backed by SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore opens or creates the SQLite ledger at path. ":memory:"
// creates a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "ledger", "driver", "sqlite")

	dsn := path
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_txlock=immediate"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if path == ":memory:" {
		// Each connection would otherwise see its own empty database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Info("SQLite ledger initialized", "path", path)
	return s, nil
}

func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS accounts (
			address    TEXT PRIMARY KEY,
			kind       TEXT NOT NULL,
			data       BLOB NOT NULL,
			version    INTEGER NOT NULL,
			slot       INTEGER NOT NULL,
			updated_at TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_accounts_kind ON accounts(kind);

		CREATE TABLE IF NOT EXISTS transactions (
			slot       INTEGER PRIMARY KEY,
			tx_id      TEXT NOT NULL UNIQUE,
			op         TEXT NOT NULL,
			signers    TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS ledger_meta (
			id   INTEGER PRIMARY KEY CHECK (id = 1),
			slot INTEGER NOT NULL
		);

		INSERT OR IGNORE INTO ledger_meta (id, slot) VALUES (1, 0);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) View(ctx context.Context, fn func(Reader) error) error {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return s.classify(fmt.Errorf("beginning view: %w", err))
	}
	defer tx.Rollback()

	v, err := newView(ctx, sqliteTx{tx})
	if err != nil {
		return s.classify(err)
	}
	return fn(v)
}

func (s *SQLiteStore) Update(ctx context.Context, fn func(Tx) error) (uint64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, s.classify(fmt.Errorf("beginning unit: %w", err))
	}
	defer tx.Rollback()

	slot, err := runUnit(ctx, sqliteTx{tx}, fn)
	if err != nil {
		return 0, s.classify(err)
	}
	if err := tx.Commit(); err != nil {
		return 0, s.classify(fmt.Errorf("committing unit: %w", err))
	}
	return slot, nil
}

func (s *SQLiteStore) LatestSlot(ctx context.Context) (uint64, error) {
	var slot int64
	err := s.db.QueryRowContext(ctx, `SELECT slot FROM ledger_meta WHERE id = 1`).Scan(&slot)
	if err != nil {
		return 0, s.classify(fmt.Errorf("reading slot: %w", err))
	}
	return uint64(slot), nil
}

func (s *SQLiteStore) ListTransactions(ctx context.Context, limit int) ([]TxRecord, error) {
	query := `
		SELECT slot, tx_id, op, signers, created_at
		FROM transactions
		ORDER BY slot DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, s.classify(fmt.Errorf("querying transactions: %w", err))
	}
	defer rows.Close()

	var out []TxRecord
	for rows.Next() {
		var (
			rec       TxRecord
			slot      int64
			signers   string
			createdAt string
		)
		if err := rows.Scan(&slot, &rec.ID, &rec.Op, &signers, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		rec.Slot = uint64(slot)
		if err := json.Unmarshal([]byte(signers), &rec.Signers); err != nil {
			return nil, fmt.Errorf("decoding signers: %w", err)
		}
		rec.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// classify maps lock contention to ErrConflict.
func (s *SQLiteStore) classify(err error) error {
	if err == nil || errors.Is(err, ErrConflict) {
		return err
	}
	if isBusy(err) {
		s.logger.Debug("ledger contention", "error", err)
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	if strings.Contains(err.Error(), "database is closed") {
		return ErrClosed
	}
	return err
}

func isBusy(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") ||
		strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked")
}

func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// blob keeps empty account data from being stored as NULL.
func blob(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}

type sqliteTx struct {
	tx *sql.Tx
}

func (t sqliteTx) get(ctx context.Context, addr address.Pubkey) (*Account, error) {
	query := `SELECT kind, data, version, slot FROM accounts WHERE address = ?`
	var (
		acct          = &Account{Address: addr}
		version, slot int64
	)
	err := t.tx.QueryRowContext(ctx, query, addr.String()).Scan(&acct.Kind, &acct.Data, &version, &slot)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading account %s: %w", addr, err)
	}
	acct.Version = uint64(version)
	acct.Slot = uint64(slot)
	return acct, nil
}

func (t sqliteTx) slot(ctx context.Context) (uint64, error) {
	var slot int64
	if err := t.tx.QueryRowContext(ctx, `SELECT slot FROM ledger_meta WHERE id = 1`).Scan(&slot); err != nil {
		return 0, err
	}
	return uint64(slot), nil
}

func (t sqliteTx) insert(ctx context.Context, acct *Account) error {
	query := `
		INSERT INTO accounts (address, kind, data, version, slot, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := t.tx.ExecContext(ctx, query,
		acct.Address.String(), acct.Kind, blob(acct.Data), int64(acct.Version), int64(acct.Slot),
		time.Now().UTC().Format(time.RFC3339Nano))
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, acct.Address)
	}
	if err != nil {
		return fmt.Errorf("inserting account %s: %w", acct.Address, err)
	}
	return nil
}

func (t sqliteTx) update(ctx context.Context, acct *Account, prevVersion uint64) error {
	query := `
		UPDATE accounts
		SET kind = ?, data = ?, version = ?, slot = ?, updated_at = ?
		WHERE address = ? AND version = ?
	`
	res, err := t.tx.ExecContext(ctx, query,
		acct.Kind, blob(acct.Data), int64(acct.Version), int64(acct.Slot),
		time.Now().UTC().Format(time.RFC3339Nano),
		acct.Address.String(), int64(prevVersion))
	if err != nil {
		return fmt.Errorf("updating account %s: %w", acct.Address, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking update of %s: %w", acct.Address, err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrConflict, acct.Address)
	}
	return nil
}

func (t sqliteTx) setSlot(ctx context.Context, slot uint64) error {
	_, err := t.tx.ExecContext(ctx, `UPDATE ledger_meta SET slot = ? WHERE id = 1`, int64(slot))
	return err
}

func (t sqliteTx) appendRecord(ctx context.Context, rec TxRecord) error {
	signers, err := json.Marshal(rec.Signers)
	if err != nil {
		return fmt.Errorf("encoding signers: %w", err)
	}
	query := `
		INSERT INTO transactions (slot, tx_id, op, signers, created_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err = t.tx.ExecContext(ctx, query,
		int64(rec.Slot), rec.ID, rec.Op, string(signers), rec.CreatedAt.UTC().Format(time.RFC3339Nano))
	if isConstraintViolation(err) {
		return fmt.Errorf("%w: %s", ErrDuplicateTransaction, rec.ID)
	}
	if err != nil {
		return fmt.Errorf("recording transaction: %w", err)
	}
	return nil
}
