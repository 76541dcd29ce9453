// ABOUTME: Instruction format, operation names, argument encoding and account roles
// ABOUTME: Data is an 8-byte operation discriminator followed by the encoded arguments

package registry

import (
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/state"
)

// Op names a registry operation.
type Op string

const (
	OpInitializeCounter               Op = "initialize_counter"
	OpCreateMetadataKey               Op = "create_metadata_key"
	OpCreateMetadata                  Op = "create_metadata"
	OpSetMetadataUpdateAuthority      Op = "set_metadata_update_authority"
	OpRevokeMetadataUpdateAuthority   Op = "revoke_metadata_update_authority"
	OpAppendMetadataCollection        Op = "append_metadata_collection"
	OpRemoveMetadataCollection        Op = "remove_metadata_collection"
	OpSetCollectionUpdateAuthority    Op = "set_collection_update_authority"
	OpRevokeCollectionUpdateAuthority Op = "revoke_collection_update_authority"
	OpAppendMetadataItem              Op = "append_metadata_item"
	OpAppendMetadataItems             Op = "append_metadata_items"
	OpUpdateMetadataItem              Op = "update_metadata_item"
	OpRemoveMetadataItem              Op = "remove_metadata_item"
)

// Ops lists every operation.
var Ops = []Op{
	OpInitializeCounter,
	OpCreateMetadataKey,
	OpCreateMetadata,
	OpSetMetadataUpdateAuthority,
	OpRevokeMetadataUpdateAuthority,
	OpAppendMetadataCollection,
	OpRemoveMetadataCollection,
	OpSetCollectionUpdateAuthority,
	OpRevokeCollectionUpdateAuthority,
	OpAppendMetadataItem,
	OpAppendMetadataItems,
	OpUpdateMetadataItem,
	OpRemoveMetadataItem,
}

// Discriminator returns the 8-byte tag that starts the instruction data of op.
func (op Op) Discriminator() [state.DiscriminatorLen]byte {
	return state.Discriminator("global", string(op))
}

// Account role names.
const (
	RoleCounter               = "counter"
	RolePayer                 = "payer"
	RoleMetadataKey           = "metadataKey"
	RoleNamespaceAuthority    = "namespaceAuthority"
	RoleMetadata              = "metadata"
	RoleIssuingAuthority      = "issuingAuthority"
	RoleCollectionMetadataKey = "collectionMetadataKey"
	RoleItemMetadataKey       = "itemMetadataKey"
	RoleUpdateAuthority       = "updateAuthority"
)

// AccountMeta is one account an instruction touches.
type AccountMeta struct {
	Name     string         `json:"name"`
	Address  address.Pubkey `json:"address"`
	Signer   bool           `json:"signer"`
	Writable bool           `json:"writable"`
}

// Instruction is one call into the registry program.
type Instruction struct {
	ProgramID address.Pubkey `json:"program_id"`
	Accounts  []AccountMeta  `json:"accounts"`
	Data      []byte         `json:"data"`
}

// Op decodes the operation name from the instruction data.
func (ix *Instruction) Op() (Op, error) {
	args, err := DecodeArgs(ix.Data)
	if err != nil {
		return "", err
	}
	return args.Op(), nil
}

// Signers returns the addresses of accounts flagged as signers, in order and
// without duplicates.
func (ix *Instruction) Signers() []address.Pubkey {
	var out []address.Pubkey
	seen := make(map[address.Pubkey]bool)
	for _, a := range ix.Accounts {
		if a.Signer && !seen[a.Address] {
			seen[a.Address] = true
			out = append(out, a.Address)
		}
	}
	return out
}

// Args are the decoded arguments of one operation.
type Args interface {
	Op() Op
	encode(e *state.Encoder)
	decode(d *state.Decoder)
}

type InitializeCounterArgs struct{}

type CreateMetadataKeyArgs struct {
	Name        string
	Label       string
	Description string
	ContentType string
	// ID pins the counter value the caller derived its address from.
	ID *uint64
}

type CreateMetadataArgs struct {
	Subject address.Pubkey
	// UpdateAuthority defaults to the issuing authority when unset.
	UpdateAuthority state.Authority
}

type SetMetadataUpdateAuthorityArgs struct {
	NewUpdateAuthority address.Pubkey
}

type RevokeMetadataUpdateAuthorityArgs struct{}

type AppendMetadataCollectionArgs struct {
	UpdateAuthority state.Authority
}

type RemoveMetadataCollectionArgs struct{}

type SetCollectionUpdateAuthorityArgs struct {
	NewUpdateAuthority address.Pubkey
}

type RevokeCollectionUpdateAuthorityArgs struct{}

type AppendMetadataItemArgs struct {
	Value []byte
}

// AppendMetadataItemsArgs appends one item per value; the item keys follow
// the fixed accounts in the same order.
type AppendMetadataItemsArgs struct {
	Values [][]byte
}

type UpdateMetadataItemArgs struct {
	NewValue []byte
}

type RemoveMetadataItemArgs struct{}

func (*InitializeCounterArgs) Op() Op               { return OpInitializeCounter }
func (*CreateMetadataKeyArgs) Op() Op               { return OpCreateMetadataKey }
func (*CreateMetadataArgs) Op() Op                  { return OpCreateMetadata }
func (*SetMetadataUpdateAuthorityArgs) Op() Op      { return OpSetMetadataUpdateAuthority }
func (*RevokeMetadataUpdateAuthorityArgs) Op() Op   { return OpRevokeMetadataUpdateAuthority }
func (*AppendMetadataCollectionArgs) Op() Op        { return OpAppendMetadataCollection }
func (*RemoveMetadataCollectionArgs) Op() Op        { return OpRemoveMetadataCollection }
func (*SetCollectionUpdateAuthorityArgs) Op() Op    { return OpSetCollectionUpdateAuthority }
func (*RevokeCollectionUpdateAuthorityArgs) Op() Op { return OpRevokeCollectionUpdateAuthority }
func (*AppendMetadataItemArgs) Op() Op              { return OpAppendMetadataItem }
func (*AppendMetadataItemsArgs) Op() Op             { return OpAppendMetadataItems }
func (*UpdateMetadataItemArgs) Op() Op              { return OpUpdateMetadataItem }
func (*RemoveMetadataItemArgs) Op() Op              { return OpRemoveMetadataItem }

func (*InitializeCounterArgs) encode(*state.Encoder)               {}
func (*InitializeCounterArgs) decode(*state.Decoder)               {}
func (*RevokeMetadataUpdateAuthorityArgs) encode(*state.Encoder)   {}
func (*RevokeMetadataUpdateAuthorityArgs) decode(*state.Decoder)   {}
func (*RemoveMetadataCollectionArgs) encode(*state.Encoder)        {}
func (*RemoveMetadataCollectionArgs) decode(*state.Decoder)        {}
func (*RevokeCollectionUpdateAuthorityArgs) encode(*state.Encoder) {}
func (*RevokeCollectionUpdateAuthorityArgs) decode(*state.Decoder) {}
func (*RemoveMetadataItemArgs) encode(*state.Encoder)              {}
func (*RemoveMetadataItemArgs) decode(*state.Decoder)              {}

func (a *CreateMetadataKeyArgs) encode(e *state.Encoder) {
	e.Text(a.Name)
	e.Text(a.Label)
	e.Text(a.Description)
	e.Text(a.ContentType)
	if a.ID == nil {
		e.U8(0)
		return
	}
	e.U8(1)
	e.U64(*a.ID)
}

func (a *CreateMetadataKeyArgs) decode(d *state.Decoder) {
	a.Name = d.Text()
	a.Label = d.Text()
	a.Description = d.Text()
	a.ContentType = d.Text()
	if d.U8() == 1 {
		id := d.U64()
		a.ID = &id
	}
}

func (a *CreateMetadataArgs) encode(e *state.Encoder) {
	e.Pubkey(a.Subject)
	e.Authority(a.UpdateAuthority)
}

func (a *CreateMetadataArgs) decode(d *state.Decoder) {
	a.Subject = d.Pubkey()
	a.UpdateAuthority = d.Authority()
}

func (a *SetMetadataUpdateAuthorityArgs) encode(e *state.Encoder) { e.Pubkey(a.NewUpdateAuthority) }
func (a *SetMetadataUpdateAuthorityArgs) decode(d *state.Decoder) { a.NewUpdateAuthority = d.Pubkey() }

func (a *AppendMetadataCollectionArgs) encode(e *state.Encoder) { e.Authority(a.UpdateAuthority) }
func (a *AppendMetadataCollectionArgs) decode(d *state.Decoder) { a.UpdateAuthority = d.Authority() }

func (a *SetCollectionUpdateAuthorityArgs) encode(e *state.Encoder) { e.Pubkey(a.NewUpdateAuthority) }
func (a *SetCollectionUpdateAuthorityArgs) decode(d *state.Decoder) {
	a.NewUpdateAuthority = d.Pubkey()
}

func (a *AppendMetadataItemArgs) encode(e *state.Encoder) { e.Bytes(a.Value) }
func (a *AppendMetadataItemArgs) decode(d *state.Decoder) { a.Value = d.Bytes() }

func (a *AppendMetadataItemsArgs) encode(e *state.Encoder) {
	e.Len(len(a.Values))
	for _, v := range a.Values {
		e.Bytes(v)
	}
}

func (a *AppendMetadataItemsArgs) decode(d *state.Decoder) {
	n := d.Len()
	a.Values = make([][]byte, 0, n)
	for range n {
		a.Values = append(a.Values, d.Bytes())
	}
}

func (a *UpdateMetadataItemArgs) encode(e *state.Encoder) { e.Bytes(a.NewValue) }
func (a *UpdateMetadataItemArgs) decode(d *state.Decoder) { a.NewValue = d.Bytes() }

// newArgs maps each discriminator to a constructor.
var newArgs = func() map[[state.DiscriminatorLen]byte]func() Args {
	ctors := []func() Args{
		func() Args { return &InitializeCounterArgs{} },
		func() Args { return &CreateMetadataKeyArgs{} },
		func() Args { return &CreateMetadataArgs{} },
		func() Args { return &SetMetadataUpdateAuthorityArgs{} },
		func() Args { return &RevokeMetadataUpdateAuthorityArgs{} },
		func() Args { return &AppendMetadataCollectionArgs{} },
		func() Args { return &RemoveMetadataCollectionArgs{} },
		func() Args { return &SetCollectionUpdateAuthorityArgs{} },
		func() Args { return &RevokeCollectionUpdateAuthorityArgs{} },
		func() Args { return &AppendMetadataItemArgs{} },
		func() Args { return &AppendMetadataItemsArgs{} },
		func() Args { return &UpdateMetadataItemArgs{} },
		func() Args { return &RemoveMetadataItemArgs{} },
	}
	m := make(map[[state.DiscriminatorLen]byte]func() Args, len(ctors))
	for _, ctor := range ctors {
		m[ctor().Op().Discriminator()] = ctor
	}
	return m
}()

// EncodeArgs returns the instruction data for a.
func EncodeArgs(a Args) []byte {
	e := state.NewEncoder(a.Op().Discriminator())
	a.encode(e)
	return e.Data()
}

// DecodeArgs parses instruction data.
func DecodeArgs(data []byte) (Args, error) {
	if len(data) < state.DiscriminatorLen {
		return nil, wrap(ErrInvalidInstruction, "data is %d bytes", len(data))
	}
	ctor, ok := newArgs[[state.DiscriminatorLen]byte(data[:state.DiscriminatorLen])]
	if !ok {
		return nil, wrap(ErrInvalidInstruction, "unknown operation discriminator %x", data[:state.DiscriminatorLen])
	}
	args := ctor()
	d, err := state.NewDecoder(data, args.Op().Discriminator())
	if err != nil {
		return nil, wrap(ErrInvalidInstruction, "%v", err)
	}
	args.decode(d)
	if err := d.Finish(); err != nil {
		return nil, wrap(ErrInvalidInstruction, "decoding %s: %v", args.Op(), err)
	}
	return args, nil
}

// role is the expected shape of one account slot.
type role struct {
	name     string
	signer   bool
	writable bool
}

var (
	metadataRoles = []role{
		{RoleMetadata, false, true},
		{RoleMetadataKey, false, false},
		{RoleUpdateAuthority, true, false},
	}
	collectionRoles = []role{
		{RoleMetadata, false, true},
		{RoleMetadataKey, false, false},
		{RoleCollectionMetadataKey, false, false},
		{RoleUpdateAuthority, true, false},
	}
	itemRoles = []role{
		{RoleMetadata, false, true},
		{RoleMetadataKey, false, false},
		{RoleCollectionMetadataKey, false, false},
		{RoleItemMetadataKey, false, false},
		{RoleUpdateAuthority, true, false},
	}
)

// rolesFor returns the exact ordered accounts args requires under scheme.
func rolesFor(args Args, scheme address.Scheme) []role {
	switch a := args.(type) {
	case *InitializeCounterArgs:
		return []role{
			{RoleCounter, false, true},
			{RolePayer, true, true},
		}
	case *CreateMetadataKeyArgs:
		roles := []role{
			{RoleMetadataKey, false, true},
			{RoleNamespaceAuthority, true, false},
			{RolePayer, true, true},
		}
		if scheme == address.SchemeCounter {
			roles = append(roles, role{RoleCounter, false, true})
		}
		return roles
	case *CreateMetadataArgs:
		return []role{
			{RoleMetadata, false, true},
			{RoleMetadataKey, false, false},
			{RoleIssuingAuthority, true, false},
			{RolePayer, true, true},
		}
	case *SetMetadataUpdateAuthorityArgs, *RevokeMetadataUpdateAuthorityArgs:
		return metadataRoles
	case *AppendMetadataCollectionArgs, *RemoveMetadataCollectionArgs,
		*SetCollectionUpdateAuthorityArgs, *RevokeCollectionUpdateAuthorityArgs:
		return collectionRoles
	case *AppendMetadataItemsArgs:
		roles := append([]role(nil), collectionRoles...)
		for range a.Values {
			roles = append(roles, role{RoleItemMetadataKey, false, false})
		}
		return roles
	case *AppendMetadataItemArgs, *UpdateMetadataItemArgs, *RemoveMetadataItemArgs:
		return itemRoles
	default:
		panic(fmt.Sprintf("registry: no account roles for %T", args))
	}
}

// AccountNames returns the ordered account role names args requires.
func AccountNames(args Args, scheme address.Scheme) []string {
	roles := rolesFor(args, scheme)
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = r.name
	}
	return names
}

// checkAccounts enforces that accounts match roles exactly.
func checkAccounts(accounts []AccountMeta, roles []role) error {
	if len(accounts) != len(roles) {
		return wrap(ErrAccountMismatch, "got %d accounts, want %d", len(accounts), len(roles))
	}
	for i, r := range roles {
		a := accounts[i]
		if a.Name != r.name {
			return wrap(ErrAccountMismatch, "account %d is %q, want %q", i, a.Name, r.name)
		}
		if a.Signer != r.signer || a.Writable != r.writable {
			return wrap(ErrAccountMismatch, "account %q has signer=%t writable=%t, want signer=%t writable=%t",
				r.name, a.Signer, a.Writable, r.signer, r.writable)
		}
	}
	return nil
}
