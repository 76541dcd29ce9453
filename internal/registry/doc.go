// ABOUTME: Package registry implements the metadata registry program
// ABOUTME: Counter, metadata keys, metadata records, collections and items

// Package registry executes instructions against the account ledger.
//
// An instruction names an operation, carries its encoded arguments and lists
// exactly the accounts it touches. Program.Execute checks the account list
// against the operation's roles, recomputes every derived address, checks
// that each required signer signed, and then runs the operation in one ledger
// unit of work. Either every check passes and the whole effect commits, or
// nothing changes.
//
// Authority rules:
//
//   - a record's update authority appends and removes collections and
//     grants or replaces collection delegates
//   - a collection delegate may revoke itself; nobody else may
//   - item operations need the collection delegate, or the record's update
//     authority when the collection has none
//   - a record whose update authority was revoked is frozen; only existing
//     collection delegates can still change it
package registry
