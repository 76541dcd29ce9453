// ABOUTME: Tests for entity records and their binary layout
// ABOUTME: Covers encoding, limits, counter and collection sequence edits

package state

import (
	"bytes"
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/mythic-metadata/internal/address"
)

func key(b byte) address.Pubkey {
	var p address.Pubkey
	p[0] = b
	p[31] = b
	return p
}

func sampleMetadata() *Metadata {
	return &Metadata{
		MetadataKey:      key(1),
		MetadataKeyID:    1,
		IssuingAuthority: key(2),
		Subject:          key(3),
		UpdateAuthority:  Delegate(key(2)),
		Collections: []Collection{
			{
				MetadataKey:     key(4),
				MetadataKeyID:   2,
				UpdateAuthority: Delegate(key(5)),
				UpdateSlot:      7,
				Items: []Item{
					{MetadataKey: key(6), MetadataKeyID: 3, UpdateSlot: 8, Value: []byte("red")},
					{MetadataKey: key(7), MetadataKeyID: 4, UpdateSlot: 9, Value: []byte{}},
				},
			},
			{MetadataKey: key(8), MetadataKeyID: 5, UpdateAuthority: None()},
		},
		Bump: 254,
	}
}

func TestCounter_Next(t *testing.T) {
	c := NewCounter(255)

	for want := uint64(1); want <= 3; want++ {
		got, err := c.Next()
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	assert.Equal(t, uint64(4), c.ID)
}

func TestCounter_NextAtMax(t *testing.T) {
	c := &Counter{ID: math.MaxUint64}

	_, err := c.Next()
	assert.ErrorIs(t, err, ErrCounterAtMax)
	assert.Equal(t, uint64(math.MaxUint64), c.ID)
}

func TestCounter_Layout(t *testing.T) {
	c := &Counter{Bump: 253, ID: 0x0102}
	data, err := c.MarshalBinary()
	require.NoError(t, err)

	disc := AccountDiscriminator("Counter")
	assert.Equal(t, disc[:], data[:8])
	assert.Equal(t, []byte{253, 0x02, 0x01, 0, 0, 0, 0, 0, 0}, data[8:])

	var out Counter
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, *c, out)
}

func TestMetadataKey_RoundTrip(t *testing.T) {
	k := &MetadataKey{
		ID:                 9,
		NamespaceAuthority: key(1),
		Name:               "favorite-color",
		Label:              "Favorite Color",
		Description:        "The subject's favorite color",
		ContentType:        "text/plain",
		Bump:               250,
	}
	data, err := k.MarshalBinary()
	require.NoError(t, err)

	acct, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, KindMetadataKey, acct.Kind())
	assert.Equal(t, k, acct)
}

func TestMetadata_RoundTrip(t *testing.T) {
	m := sampleMetadata()
	data, err := m.MarshalBinary()
	require.NoError(t, err)

	var out Metadata
	require.NoError(t, out.UnmarshalBinary(data))
	assert.Equal(t, m.UpdateAuthority, out.UpdateAuthority)
	require.Len(t, out.Collections, 2)
	assert.Equal(t, m.Collections[0], out.Collections[0])
	assert.False(t, out.Collections[1].UpdateAuthority.IsSet())
	assert.Empty(t, out.Collections[1].Items)
	assert.Equal(t, m.Bump, out.Bump)
}

func TestDecode_Errors(t *testing.T) {
	data, err := sampleMetadata().MarshalBinary()
	require.NoError(t, err)

	t.Run("truncated", func(t *testing.T) {
		var m Metadata
		assert.ErrorIs(t, m.UnmarshalBinary(data[:len(data)-3]), ErrShortBuffer)
	})

	t.Run("trailing", func(t *testing.T) {
		var m Metadata
		assert.ErrorIs(t, m.UnmarshalBinary(append(bytes.Clone(data), 0)), ErrTrailingData)
	})

	t.Run("wrong type", func(t *testing.T) {
		var c Counter
		assert.ErrorIs(t, c.UnmarshalBinary(data), ErrDiscriminator)
	})

	t.Run("unknown", func(t *testing.T) {
		_, err := Decode(bytes.Repeat([]byte{0xAB}, 16))
		assert.ErrorIs(t, err, ErrUnknownRecord)
	})

	t.Run("bad option tag", func(t *testing.T) {
		corrupt := bytes.Clone(data)
		// update_authority tag follows discriminator, key, id, issuer, subject.
		corrupt[8+32+8+32+32] = 2
		var m Metadata
		assert.ErrorIs(t, m.UnmarshalBinary(corrupt), ErrInvalidTag)
	})

	t.Run("huge sequence count", func(t *testing.T) {
		e := NewEncoder(AccountDiscriminator("Metadata"))
		e.Pubkey(key(1))
		e.U64(0)
		e.Pubkey(key(2))
		e.Pubkey(key(3))
		e.Authority(None())
		e.U32(math.MaxUint32)
		var m Metadata
		assert.ErrorIs(t, m.UnmarshalBinary(e.Data()), ErrShortBuffer)
	})
}

func TestMetadataKey_Validate(t *testing.T) {
	limits := DefaultLimits()
	valid := MetadataKey{Name: "dao-metadata", Label: "DAO Metadata", ContentType: "json"}
	require.NoError(t, valid.Validate(limits))

	tests := []struct {
		name    string
		mutate  func(*MetadataKey)
		wantErr error
	}{
		{"empty name", func(k *MetadataKey) { k.Name = "" }, ErrEmptyField},
		{"empty label", func(k *MetadataKey) { k.Label = "" }, ErrEmptyField},
		{"long name", func(k *MetadataKey) { k.Name = strings.Repeat("n", 31) }, ErrFieldTooLong},
		{"long label", func(k *MetadataKey) { k.Label = strings.Repeat("l", 51) }, ErrFieldTooLong},
		{"long description", func(k *MetadataKey) { k.Description = strings.Repeat("d", 101) }, ErrFieldTooLong},
		{"long content type", func(k *MetadataKey) { k.ContentType = strings.Repeat("c", 21) }, ErrFieldTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k := valid
			tt.mutate(&k)
			assert.ErrorIs(t, k.Validate(limits), tt.wantErr)
		})
	}
}

func TestLimits_Validate(t *testing.T) {
	require.NoError(t, DefaultLimits().Validate())

	l := DefaultLimits()
	l.MaxItems = 0
	assert.Error(t, l.Validate())

	l = DefaultLimits()
	l.MaxNameLen = address.MaxSeedLen + 1
	assert.Error(t, l.Validate())
}

func TestMetadata_Collections(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxCollections = 2
	m := &Metadata{UpdateAuthority: Delegate(key(2))}

	require.NoError(t, m.AppendCollection(Collection{MetadataKey: key(10)}, limits))
	require.NoError(t, m.AppendCollection(Collection{MetadataKey: key(11)}, limits))

	err := m.AppendCollection(Collection{MetadataKey: key(10)}, limits)
	assert.ErrorIs(t, err, ErrCollectionExists)

	err = m.AppendCollection(Collection{MetadataKey: key(12)}, limits)
	assert.ErrorIs(t, err, ErrCollectionsFull)

	removed, err := m.RemoveCollection(key(10))
	require.NoError(t, err)
	assert.Equal(t, key(10), removed.MetadataKey)
	require.Len(t, m.Collections, 1)
	assert.Equal(t, 0, m.CollectionIndex(key(11)))

	_, err = m.RemoveCollection(key(10))
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestCollection_Items(t *testing.T) {
	limits := DefaultLimits()
	c := &Collection{}

	for i := byte(0); i < 4; i++ {
		require.NoError(t, c.AppendItem(Item{MetadataKey: key(20 + i), Value: []byte{i}}, limits))
	}

	assert.ErrorIs(t, c.AppendItem(Item{MetadataKey: key(21)}, limits), ErrItemExists)
	assert.ErrorIs(t, c.AppendItem(Item{MetadataKey: key(30), Value: make([]byte, 101)}, limits), ErrValueTooLong)

	// Removing index 1 shifts the rest and keeps their order.
	_, err := c.RemoveItem(key(21))
	require.NoError(t, err)
	require.Len(t, c.Items, 3)
	assert.Equal(t, []address.Pubkey{key(20), key(22), key(23)},
		[]address.Pubkey{c.Items[0].MetadataKey, c.Items[1].MetadataKey, c.Items[2].MetadataKey})
	assert.Equal(t, -1, c.ItemIndex(key(21)))

	require.NoError(t, c.UpdateItem(key(23), []byte("blue"), 42, limits))
	assert.Equal(t, []byte("blue"), c.Items[2].Value)
	assert.Equal(t, uint64(42), c.Items[2].UpdateSlot)

	assert.ErrorIs(t, c.UpdateItem(key(21), nil, 1, limits), ErrItemNotFound)
	_, err = c.RemoveItem(key(21))
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestCollection_ItemsFull(t *testing.T) {
	limits := DefaultLimits()
	limits.MaxItems = 1
	c := &Collection{}

	require.NoError(t, c.AppendItem(Item{MetadataKey: key(1)}, limits))
	assert.ErrorIs(t, c.AppendItem(Item{MetadataKey: key(2)}, limits), ErrItemsFull)
}

func TestAuthority(t *testing.T) {
	owner := Delegate(key(1))
	delegate := Delegate(key(2))

	assert.True(t, owner.Is(key(1)))
	assert.False(t, None().Is(address.Pubkey{}))

	c := Collection{UpdateAuthority: delegate}
	assert.Equal(t, delegate, c.EffectiveAuthority(owner))

	c.UpdateAuthority = None()
	assert.Equal(t, owner, c.EffectiveAuthority(owner))
	assert.False(t, c.EffectiveAuthority(None()).IsSet())
}

func TestAuthority_JSON(t *testing.T) {
	raw, err := json.Marshal(struct {
		A Authority `json:"a"`
		B Authority `json:"b"`
	}{Delegate(key(1)), None()})
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":"`+key(1).String()+`","b":null}`, string(raw))

	var out struct {
		A Authority `json:"a"`
		B Authority `json:"b"`
	}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.True(t, out.A.Is(key(1)))
	assert.False(t, out.B.IsSet())
}
