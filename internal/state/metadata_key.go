// ABOUTME: MetadataKey schema descriptor record
// ABOUTME: Immutable once created; validated against Limits

package state

import "github.com/2389/mythic-metadata/internal/address"

// MetadataKey describes one schema. ID is zero for name-keyed keys.
type MetadataKey struct {
	ID                 uint64         `json:"id"`
	NamespaceAuthority address.Pubkey `json:"namespace_authority"`
	Name               string         `json:"name"`
	Label              string         `json:"label"`
	Description        string         `json:"description"`
	ContentType        string         `json:"content_type"`
	Bump               uint8          `json:"bump"`
}

// Validate checks field presence and lengths.
func (k *MetadataKey) Validate(l Limits) error {
	if err := checkText("name", k.Name, l.MaxNameLen, true); err != nil {
		return err
	}
	if err := checkText("label", k.Label, l.MaxLabelLen, true); err != nil {
		return err
	}
	if err := checkText("description", k.Description, l.MaxDescriptionLen, false); err != nil {
		return err
	}
	return checkText("content_type", k.ContentType, l.MaxContentTypeLen, false)
}

func (k *MetadataKey) Kind() Kind { return KindMetadataKey }

func (k *MetadataKey) MarshalBinary() ([]byte, error) {
	e := NewEncoder(AccountDiscriminator(string(KindMetadataKey)))
	e.U64(k.ID)
	e.Pubkey(k.NamespaceAuthority)
	e.Text(k.Name)
	e.Text(k.Label)
	e.Text(k.Description)
	e.Text(k.ContentType)
	e.U8(k.Bump)
	return e.Data(), nil
}

func (k *MetadataKey) UnmarshalBinary(data []byte) error {
	d, err := NewDecoder(data, AccountDiscriminator(string(KindMetadataKey)))
	if err != nil {
		return err
	}
	k.ID = d.U64()
	k.NamespaceAuthority = d.Pubkey()
	k.Name = d.Text()
	k.Label = d.Text()
	k.Description = d.Text()
	k.ContentType = d.Text()
	k.Bump = d.U8()
	return d.Finish()
}
