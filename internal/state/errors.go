// ABOUTME: Sentinel errors for entity invariants
// ABOUTME: Field limits, capacity and duplicate or missing collections and items

package state

import "errors"

var (
	ErrEmptyField    = errors.New("field must not be empty")
	ErrFieldTooLong  = errors.New("field exceeds maximum length")
	ErrValueTooLong  = errors.New("value exceeds maximum length")
	ErrCounterAtMax  = errors.New("counter id reached maximum")
	ErrUnknownRecord = errors.New("unknown account record type")

	ErrCollectionsFull    = errors.New("metadata has the maximum number of collections")
	ErrCollectionExists   = errors.New("collection already exists")
	ErrCollectionNotFound = errors.New("collection does not exist")

	ErrItemsFull    = errors.New("collection has the maximum number of items")
	ErrItemExists   = errors.New("item already exists")
	ErrItemNotFound = errors.New("item does not exist")
)
