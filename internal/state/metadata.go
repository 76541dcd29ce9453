// ABOUTME: Metadata record with its ordered collections and items
// ABOUTME: Sequence edits locate entries by schema address and splice on removal

package state

import (
	"fmt"
	"slices"

	"github.com/2389/mythic-metadata/internal/address"
)

// Metadata is a subject-bound record anchored to one root metadata key.
type Metadata struct {
	MetadataKey      address.Pubkey `json:"metadata_key"`
	MetadataKeyID    uint64         `json:"metadata_key_id"`
	IssuingAuthority address.Pubkey `json:"issuing_authority"`
	Subject          address.Pubkey `json:"subject"`
	UpdateAuthority  Authority      `json:"update_authority"`
	Collections      []Collection   `json:"collections"`
	Bump             uint8          `json:"bump"`
}

// Collection references a child schema inside a record. Its position in
// Metadata.Collections is its identity; removal shifts later positions.
type Collection struct {
	MetadataKey     address.Pubkey `json:"metadata_key"`
	MetadataKeyID   uint64         `json:"metadata_key_id"`
	UpdateAuthority Authority      `json:"update_authority"`
	UpdateSlot      uint64         `json:"update_slot"`
	Items           []Item         `json:"items"`
}

// Item is a leaf value tagged by its schema.
type Item struct {
	MetadataKey   address.Pubkey `json:"metadata_key"`
	MetadataKeyID uint64         `json:"metadata_key_id"`
	UpdateSlot    uint64         `json:"update_slot"`
	Value         []byte         `json:"value"`
}

// EffectiveAuthority returns the collection delegate, or the record authority
// when no delegate is set.
func (c *Collection) EffectiveAuthority(record Authority) Authority {
	return c.UpdateAuthority.Or(record)
}

// CollectionIndex returns the position of the collection for key, or -1.
func (m *Metadata) CollectionIndex(key address.Pubkey) int {
	return slices.IndexFunc(m.Collections, func(c Collection) bool {
		return c.MetadataKey == key
	})
}

// Collection returns the collection for key.
func (m *Metadata) Collection(key address.Pubkey) (*Collection, error) {
	i := m.CollectionIndex(key)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrCollectionNotFound, key)
	}
	return &m.Collections[i], nil
}

// AppendCollection pushes c after checking capacity and uniqueness.
func (m *Metadata) AppendCollection(c Collection, l Limits) error {
	if m.CollectionIndex(c.MetadataKey) >= 0 {
		return fmt.Errorf("%w: %s", ErrCollectionExists, c.MetadataKey)
	}
	if len(m.Collections) >= l.MaxCollections {
		return fmt.Errorf("%w: %d", ErrCollectionsFull, l.MaxCollections)
	}
	m.Collections = append(m.Collections, c)
	return nil
}

// RemoveCollection splices out the collection for key with all its items.
func (m *Metadata) RemoveCollection(key address.Pubkey) (Collection, error) {
	i := m.CollectionIndex(key)
	if i < 0 {
		return Collection{}, fmt.Errorf("%w: %s", ErrCollectionNotFound, key)
	}
	removed := m.Collections[i]
	m.Collections = slices.Delete(m.Collections, i, i+1)
	return removed, nil
}

// ItemIndex returns the position of the item for key, or -1.
func (c *Collection) ItemIndex(key address.Pubkey) int {
	return slices.IndexFunc(c.Items, func(it Item) bool {
		return it.MetadataKey == key
	})
}

// AppendItem pushes it after checking value size, capacity and uniqueness.
func (c *Collection) AppendItem(it Item, l Limits) error {
	if err := l.CheckValue(it.Value); err != nil {
		return err
	}
	if c.ItemIndex(it.MetadataKey) >= 0 {
		return fmt.Errorf("%w: %s", ErrItemExists, it.MetadataKey)
	}
	if len(c.Items) >= l.MaxItems {
		return fmt.Errorf("%w: %d", ErrItemsFull, l.MaxItems)
	}
	c.Items = append(c.Items, it)
	return nil
}

// UpdateItem replaces the value of the item for key in place.
func (c *Collection) UpdateItem(key address.Pubkey, value []byte, slot uint64, l Limits) error {
	if err := l.CheckValue(value); err != nil {
		return err
	}
	i := c.ItemIndex(key)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrItemNotFound, key)
	}
	c.Items[i].Value = slices.Clone(value)
	c.Items[i].UpdateSlot = slot
	return nil
}

// RemoveItem splices out the item for key.
func (c *Collection) RemoveItem(key address.Pubkey) (Item, error) {
	i := c.ItemIndex(key)
	if i < 0 {
		return Item{}, fmt.Errorf("%w: %s", ErrItemNotFound, key)
	}
	removed := c.Items[i]
	c.Items = slices.Delete(c.Items, i, i+1)
	return removed, nil
}

func (m *Metadata) Kind() Kind { return KindMetadata }

func (m *Metadata) MarshalBinary() ([]byte, error) {
	e := NewEncoder(AccountDiscriminator(string(KindMetadata)))
	e.Pubkey(m.MetadataKey)
	e.U64(m.MetadataKeyID)
	e.Pubkey(m.IssuingAuthority)
	e.Pubkey(m.Subject)
	e.Authority(m.UpdateAuthority)
	e.Len(len(m.Collections))
	for _, c := range m.Collections {
		e.Pubkey(c.MetadataKey)
		e.U64(c.MetadataKeyID)
		e.Authority(c.UpdateAuthority)
		e.U64(c.UpdateSlot)
		e.Len(len(c.Items))
		for _, it := range c.Items {
			e.Pubkey(it.MetadataKey)
			e.U64(it.MetadataKeyID)
			e.U64(it.UpdateSlot)
			e.Bytes(it.Value)
		}
	}
	e.U8(m.Bump)
	return e.Data(), nil
}

func (m *Metadata) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, AccountDiscriminator(string(KindMetadata)))
	if err != nil {
		return err
	}
	m.MetadataKey = d.Pubkey()
	m.MetadataKeyID = d.U64()
	m.IssuingAuthority = d.Pubkey()
	m.Subject = d.Pubkey()
	m.UpdateAuthority = d.Authority()
	m.Collections = nil
	if n := d.Len(); n > 0 {
		m.Collections = make([]Collection, 0, n)
		for range n {
			c := Collection{
				MetadataKey:     d.Pubkey(),
				MetadataKeyID:   d.U64(),
				UpdateAuthority: d.Authority(),
				UpdateSlot:      d.U64(),
			}
			if items := d.Len(); items > 0 {
				c.Items = make([]Item, 0, items)
				for range items {
					c.Items = append(c.Items, Item{
						MetadataKey:   d.Pubkey(),
						MetadataKeyID: d.U64(),
						UpdateSlot:    d.U64(),
						Value:         d.Bytes(),
					})
				}
			}
			if d.Err() != nil {
				return d.Err()
			}
			m.Collections = append(m.Collections, c)
		}
	}
	m.Bump = d.U8()
	return d.Finish()
}
