// ABOUTME: Account kinds and discriminator-based record decoding
// ABOUTME: Maps stored bytes back to Counter, MetadataKey or Metadata

package state

import (
	"encoding"
	"fmt"
)

// Kind names an account record type.
type Kind string

const (
	KindCounter     Kind = "Counter"
	KindMetadataKey Kind = "MetadataKey"
	KindMetadata    Kind = "Metadata"
)

// Account is a persisted record.
type Account interface {
	encoding.BinaryMarshaler
	encoding.BinaryUnmarshaler
	Kind() Kind
}

// New returns an empty record of kind k.
func New(k Kind) (Account, error) {
	switch k {
	case KindCounter:
		return &Counter{}, nil
	case KindMetadataKey:
		return &MetadataKey{}, nil
	case KindMetadata:
		return &Metadata{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownRecord, k)
	}
}

// KindOf identifies a record by its discriminator.
func KindOf(data []byte) (Kind, error) {
	if len(data) < DiscriminatorLen {
		return "", ErrShortBuffer
	}
	disc := [DiscriminatorLen]byte(data[:DiscriminatorLen])
	for _, k := range []Kind{KindCounter, KindMetadataKey, KindMetadata} {
		if disc == AccountDiscriminator(string(k)) {
			return k, nil
		}
	}
	return "", ErrUnknownRecord
}

// Decode identifies and decodes a record.
func Decode(data []byte) (Account, error) {
	k, err := KindOf(data)
	if err != nil {
		return nil, err
	}
	acct, err := New(k)
	if err != nil {
		return nil, err
	}
	if err := acct.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", k, err)
	}
	return acct, nil
}
