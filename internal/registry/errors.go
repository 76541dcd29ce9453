// ABOUTME: Registry error taxonomy with numeric codes and kinds
// ABOUTME: Every failure a caller sees is exactly one *Error wrapping one Kind

package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

// Kind classifies an error for callers deciding whether to retry.
type Kind string

const (
	KindInternal        Kind = "internal"
	KindAlreadyExists   Kind = "already_exists"
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindInvalidArgument Kind = "invalid_argument"
	KindExhausted       Kind = "exhausted"
	KindConflict        Kind = "conflict"
)

func (k Kind) Error() string { return string(k) }

// Retryable reports whether resubmitting the same request may succeed.
func (k Kind) Retryable() bool { return k == KindConflict }

// ParseKind returns the Kind named s, or KindInternal.
func ParseKind(s string) Kind {
	switch k := Kind(s); k {
	case KindAlreadyExists, KindNotFound, KindUnauthorized, KindInvalidArgument, KindExhausted, KindConflict:
		return k
	default:
		return KindInternal
	}
}

// Error is a registry failure with a stable numeric code.
type Error struct {
	Code uint32
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

// Is matches the error's Kind so errors.Is(err, KindNotFound) works.
func (e *Error) Is(target error) bool {
	k, ok := target.(Kind)
	return ok && k == e.Kind
}

var (
	ErrCounterIDReachedMax      = &Error{6000, KindExhausted, "counter id reached maximum"}
	ErrUnauthorized             = &Error{6001, KindUnauthorized, "signer is not the required authority"}
	ErrImmutableMetadata        = &Error{6002, KindUnauthorized, "metadata is immutable"}
	ErrInvalidMetadataKey       = &Error{6003, KindInvalidArgument, "invalid metadata key"}
	ErrCollectionFull           = &Error{6004, KindInvalidArgument, "metadata collection is full"}
	ErrCollectionAlreadyExists  = &Error{6005, KindAlreadyExists, "collection already exists"}
	ErrCollectionNotFound       = &Error{6006, KindNotFound, "collection does not exist"}
	ErrItemFull                 = &Error{6007, KindInvalidArgument, "collection item list is full"}
	ErrItemAlreadyExists        = &Error{6008, KindAlreadyExists, "item already exists"}
	ErrItemNotFound             = &Error{6009, KindNotFound, "item does not exist"}
	ErrValueLenExceeded         = &Error{6010, KindInvalidArgument, "value exceeds maximum length"}
	ErrAccountMismatch          = &Error{6011, KindInvalidArgument, "accounts do not match instruction"}
	ErrMetadataKeyNotFound      = &Error{6012, KindNotFound, "metadata key does not exist"}
	ErrCounterAlreadyExists     = &Error{6013, KindAlreadyExists, "counter already initialized"}
	ErrMetadataAlreadyExists    = &Error{6014, KindAlreadyExists, "metadata already exists"}
	ErrMetadataKeyAlreadyExists = &Error{6015, KindAlreadyExists, "metadata key already exists"}
	ErrStaleSequence            = &Error{6016, KindConflict, "stale counter id"}
	ErrCounterNotInitialized    = &Error{6017, KindNotFound, "counter is not initialized"}
	ErrInvalidInstruction       = &Error{6018, KindInvalidArgument, "invalid instruction"}
	ErrMissingSignature         = &Error{6019, KindUnauthorized, "missing required signature"}
	ErrNoCollectionDelegate     = &Error{6020, KindUnauthorized, "collection has no update authority to revoke"}
	ErrSchemeMismatch           = &Error{6021, KindInvalidArgument, "operation not available under this addressing scheme"}
	ErrAddressExhausted         = &Error{6022, KindExhausted, "no viable bump seed"}
	ErrMetadataNotFound         = &Error{6023, KindNotFound, "metadata does not exist"}
	ErrLedgerConflict           = &Error{6024, KindConflict, "ledger contention, resubmit"}
	ErrInternal                 = &Error{6025, KindInternal, "internal error"}
	ErrAccountNotFound          = &Error{6026, KindNotFound, "account does not exist"}

	ErrSignatureInvalid    = &Error{7000, KindUnauthorized, "invalid signature"}
	ErrSignatureExpired    = &Error{7001, KindUnauthorized, "transaction timestamp outside allowed window"}
	ErrTransactionReplayed = &Error{7002, KindAlreadyExists, "transaction already processed"}
)

var byCode = func() map[uint32]*Error {
	m := make(map[uint32]*Error)
	for _, e := range []*Error{
		ErrCounterIDReachedMax, ErrUnauthorized, ErrImmutableMetadata, ErrInvalidMetadataKey,
		ErrCollectionFull, ErrCollectionAlreadyExists, ErrCollectionNotFound, ErrItemFull,
		ErrItemAlreadyExists, ErrItemNotFound, ErrValueLenExceeded, ErrAccountMismatch,
		ErrMetadataKeyNotFound, ErrCounterAlreadyExists, ErrMetadataAlreadyExists,
		ErrMetadataKeyAlreadyExists, ErrStaleSequence, ErrCounterNotInitialized,
		ErrInvalidInstruction, ErrMissingSignature, ErrNoCollectionDelegate, ErrSchemeMismatch,
		ErrAddressExhausted, ErrMetadataNotFound, ErrLedgerConflict, ErrInternal, ErrAccountNotFound,
		ErrSignatureInvalid, ErrSignatureExpired, ErrTransactionReplayed,
	} {
		m[e.Code] = e
	}
	return m
}()

// ErrorByCode returns the sentinel for code.
func ErrorByCode(code uint32) (*Error, bool) {
	e, ok := byCode[code]
	return e, ok
}

// wrap attaches detail to a sentinel while keeping it matchable.
func wrap(e *Error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", e, fmt.Sprintf(format, args...))
}

// KindOf classifies err. Unclassified errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindOf(classify(err))
}

// CodeOf returns the registry code of err, or ErrInternal's code.
func CodeOf(err error) uint32 {
	var e *Error
	if errors.As(classify(err), &e) {
		return e.Code
	}
	return ErrInternal.Code
}

// stateErrors maps entity invariant violations to registry errors.
var stateErrors = []struct {
	from error
	to   *Error
}{
	{state.ErrEmptyField, ErrInvalidMetadataKey},
	{state.ErrFieldTooLong, ErrInvalidMetadataKey},
	{state.ErrValueTooLong, ErrValueLenExceeded},
	{state.ErrCounterAtMax, ErrCounterIDReachedMax},
	{state.ErrCollectionsFull, ErrCollectionFull},
	{state.ErrCollectionExists, ErrCollectionAlreadyExists},
	{state.ErrCollectionNotFound, ErrCollectionNotFound},
	{state.ErrItemsFull, ErrItemFull},
	{state.ErrItemExists, ErrItemAlreadyExists},
	{state.ErrItemNotFound, ErrItemNotFound},
	{ledger.ErrConflict, ErrLedgerConflict},
	{ledger.ErrDuplicateTransaction, ErrTransactionReplayed},
	{address.ErrExhausted, ErrAddressExhausted},
	{address.ErrMaxSeedLength, ErrInvalidInstruction},
	{address.ErrTooManySeeds, ErrInvalidInstruction},
}

// withDetail wraps to with whatever err says beyond its leading sentinel
// text, so the registry message is not followed by a restatement of itself.
func withDetail(to *Error, err, sentinel error) error {
	detail := strings.TrimPrefix(err.Error(), sentinel.Error())
	detail = strings.TrimPrefix(detail, ": ")
	if detail == "" {
		return fmt.Errorf("%w", to)
	}
	return fmt.Errorf("%w: %s", to, detail)
}

// classify converts any error into one wrapping exactly one *Error.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	for _, m := range stateErrors {
		if errors.Is(err, m.from) {
			return withDetail(m.to, err, m.from)
		}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLedgerConflict, err)
	}
	return fmt.Errorf("%w: %v", ErrInternal, err)
}
