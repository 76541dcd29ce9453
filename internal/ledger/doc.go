// ABOUTME: Package ledger persists versioned accounts in atomic units of work
// ABOUTME: SQLite, bbolt and in-memory drivers share one staging overlay

// Package ledger stores the registry's accounts.
//
// Every account carries a version that increases by one on each write. A unit
// of work runs through Store.Update: reads see earlier writes of the same
// unit, writes are staged and applied together when the function returns nil,
// and nothing is applied otherwise. Each committed unit advances the ledger
// slot by exactly one and appends a transaction record.
//
// Writes are version-checked when applied. Contention between writers
// surfaces as ErrConflict and the caller resubmits.
package ledger
