// ABOUTME: Instruction builders with accounts filled in from address derivations
// ABOUTME: One method per operation, used by the client SDK, the admin CLI and tests

package registry

import (
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/state"
)

// Builder constructs instructions for one program id and addressing scheme.
type Builder struct {
	deriver *address.Deriver
	scheme  address.Scheme
}

// NewBuilder returns a builder using deriver and scheme.
func NewBuilder(deriver *address.Deriver, scheme address.Scheme) *Builder {
	return &Builder{deriver: deriver, scheme: scheme}
}

func (b *Builder) Deriver() *address.Deriver { return b.deriver }

func (b *Builder) Scheme() address.Scheme { return b.scheme }

func (b *Builder) instruction(args Args, accounts ...address.Pubkey) Instruction {
	roles := rolesFor(args, b.scheme)
	metas := make([]AccountMeta, len(roles))
	for i, r := range roles {
		metas[i] = AccountMeta{Name: r.name, Address: accounts[i], Signer: r.signer, Writable: r.writable}
	}
	return Instruction{
		ProgramID: b.deriver.ProgramID(),
		Accounts:  metas,
		Data:      EncodeArgs(args),
	}
}

// InitializeCounter builds the counter creation.
func (b *Builder) InitializeCounter(payer address.Pubkey) (Instruction, error) {
	counter, _, err := b.deriver.Counter()
	if err != nil {
		return Instruction{}, err
	}
	return b.instruction(&InitializeCounterArgs{}, counter, payer), nil
}

// KeyParams describes a metadata key to create.
type KeyParams struct {
	NamespaceAuthority address.Pubkey
	Payer              address.Pubkey
	Name               string
	Label              string
	Description        string
	ContentType        string
	// ID is the counter value the key will receive; ignored under the
	// name scheme.
	ID uint64
}

// MetadataKeyAddress returns the address a key with params will occupy.
func (b *Builder) MetadataKeyAddress(p KeyParams) (address.Pubkey, error) {
	var (
		addr address.Pubkey
		err  error
	)
	switch b.scheme {
	case address.SchemeName:
		addr, _, err = b.deriver.MetadataKeyByName(p.NamespaceAuthority, p.Name)
	case address.SchemeCounter:
		if p.ID == 0 {
			return address.Pubkey{}, fmt.Errorf("counter scheme requires a key id")
		}
		addr, _, err = b.deriver.MetadataKeyByID(p.ID)
	default:
		return address.Pubkey{}, fmt.Errorf("unknown addressing scheme %q", b.scheme)
	}
	return addr, err
}

// CreateMetadataKey builds a key creation and returns the key's address.
func (b *Builder) CreateMetadataKey(p KeyParams) (Instruction, address.Pubkey, error) {
	key, err := b.MetadataKeyAddress(p)
	if err != nil {
		return Instruction{}, address.Pubkey{}, err
	}
	args := &CreateMetadataKeyArgs{
		Name:        p.Name,
		Label:       p.Label,
		Description: p.Description,
		ContentType: p.ContentType,
	}
	accounts := []address.Pubkey{key, p.NamespaceAuthority, p.Payer}
	if b.scheme == address.SchemeCounter {
		id := p.ID
		args.ID = &id
		counter, _, err := b.deriver.Counter()
		if err != nil {
			return Instruction{}, address.Pubkey{}, err
		}
		accounts = append(accounts, counter)
	}
	return b.instruction(args, accounts...), key, nil
}

// MetadataParams describes a metadata record to create.
type MetadataParams struct {
	MetadataKey      address.Pubkey
	IssuingAuthority address.Pubkey
	Payer            address.Pubkey
	Subject          address.Pubkey
	UpdateAuthority  state.Authority
}

// CreateMetadata builds a record creation and returns the record's address.
func (b *Builder) CreateMetadata(p MetadataParams) (Instruction, address.Pubkey, error) {
	metadata, _, err := b.deriver.Metadata(p.MetadataKey, p.IssuingAuthority, p.Subject)
	if err != nil {
		return Instruction{}, address.Pubkey{}, err
	}
	args := &CreateMetadataArgs{Subject: p.Subject, UpdateAuthority: p.UpdateAuthority}
	return b.instruction(args, metadata, p.MetadataKey, p.IssuingAuthority, p.Payer), metadata, nil
}

// Target names the accounts an update touches. Fields an operation does not
// use are ignored.
type Target struct {
	Metadata              address.Pubkey
	MetadataKey           address.Pubkey
	CollectionMetadataKey address.Pubkey
	ItemMetadataKey       address.Pubkey
	UpdateAuthority       address.Pubkey
}

func (b *Builder) SetMetadataUpdateAuthority(t Target, newAuthority address.Pubkey) Instruction {
	return b.instruction(&SetMetadataUpdateAuthorityArgs{NewUpdateAuthority: newAuthority},
		t.Metadata, t.MetadataKey, t.UpdateAuthority)
}

func (b *Builder) RevokeMetadataUpdateAuthority(t Target) Instruction {
	return b.instruction(&RevokeMetadataUpdateAuthorityArgs{},
		t.Metadata, t.MetadataKey, t.UpdateAuthority)
}

func (b *Builder) collection(args Args, t Target) Instruction {
	return b.instruction(args, t.Metadata, t.MetadataKey, t.CollectionMetadataKey, t.UpdateAuthority)
}

func (b *Builder) item(args Args, t Target) Instruction {
	return b.instruction(args, t.Metadata, t.MetadataKey, t.CollectionMetadataKey, t.ItemMetadataKey, t.UpdateAuthority)
}

// AppendMetadataCollection appends the collection t.CollectionMetadataKey
// with an optional delegate.
func (b *Builder) AppendMetadataCollection(t Target, delegate state.Authority) Instruction {
	return b.collection(&AppendMetadataCollectionArgs{UpdateAuthority: delegate}, t)
}

func (b *Builder) RemoveMetadataCollection(t Target) Instruction {
	return b.collection(&RemoveMetadataCollectionArgs{}, t)
}

func (b *Builder) SetCollectionUpdateAuthority(t Target, newAuthority address.Pubkey) Instruction {
	return b.collection(&SetCollectionUpdateAuthorityArgs{NewUpdateAuthority: newAuthority}, t)
}

func (b *Builder) RevokeCollectionUpdateAuthority(t Target) Instruction {
	return b.collection(&RevokeCollectionUpdateAuthorityArgs{}, t)
}

func (b *Builder) AppendMetadataItem(t Target, value []byte) Instruction {
	return b.item(&AppendMetadataItemArgs{Value: value}, t)
}

// ItemValue pairs an item schema with its value.
type ItemValue struct {
	MetadataKey address.Pubkey
	Value       []byte
}

// AppendMetadataItems appends several items to one collection at once.
func (b *Builder) AppendMetadataItems(t Target, items []ItemValue) Instruction {
	args := &AppendMetadataItemsArgs{Values: make([][]byte, len(items))}
	accounts := []address.Pubkey{t.Metadata, t.MetadataKey, t.CollectionMetadataKey, t.UpdateAuthority}
	for i, it := range items {
		args.Values[i] = it.Value
		accounts = append(accounts, it.MetadataKey)
	}
	return b.instruction(args, accounts...)
}

func (b *Builder) UpdateMetadataItem(t Target, newValue []byte) Instruction {
	return b.item(&UpdateMetadataItemArgs{NewValue: newValue}, t)
}

func (b *Builder) RemoveMetadataItem(t Target) Instruction {
	return b.item(&RemoveMetadataItemArgs{}, t)
}
