// ABOUTME: Program executes registry instructions inside ledger units of work
// ABOUTME: Validates accounts and signers, dispatches handlers, records receipts

package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/state"
)

// Config configures a Program.
type Config struct {
	ProgramID address.Pubkey
	Scheme    address.Scheme
	Limits    state.Limits
}

// Program is the registry state machine.
type Program struct {
	deriver *address.Deriver
	scheme  address.Scheme
	limits  state.Limits
	store   ledger.Store
	logger  *slog.Logger
}

// Invocation is an instruction whose signatures were already verified.
type Invocation struct {
	// ID is the transaction id recorded in the ledger log.
	ID          string
	Instruction Instruction
	// Signers are the principals that signed the enclosing transaction.
	Signers []address.Pubkey
}

// Receipt describes a committed instruction.
type Receipt struct {
	ID   string `json:"id"`
	Op   Op     `json:"op"`
	Slot uint64 `json:"slot"`
}

// New creates a Program over store.
func New(store ledger.Store, cfg Config) (*Program, error) {
	if _, err := address.ParseScheme(string(cfg.Scheme)); err != nil {
		return nil, err
	}
	if err := cfg.Limits.Validate(); err != nil {
		return nil, fmt.Errorf("invalid limits: %w", err)
	}
	return &Program{
		deriver: address.NewDeriver(cfg.ProgramID),
		scheme:  cfg.Scheme,
		limits:  cfg.Limits,
		store:   store,
		logger:  slog.Default().With("component", "registry"),
	}, nil
}

func (p *Program) Deriver() *address.Deriver { return p.deriver }

func (p *Program) Scheme() address.Scheme { return p.scheme }

func (p *Program) Limits() state.Limits { return p.limits }

// Builder returns an instruction builder matching this program.
func (p *Program) Builder() *Builder {
	return NewBuilder(p.deriver, p.scheme)
}

// call carries one instruction through its handler.
type call struct {
	ctx      context.Context
	tx       ledger.Tx
	accounts []AccountMeta
}

// account returns the address of the first account named role.
func (c *call) account(role string) address.Pubkey {
	for _, a := range c.accounts {
		if a.Name == role {
			return a.Address
		}
	}
	return address.Pubkey{}
}

// Execute runs one instruction. The returned error, if any, wraps exactly
// one *Error.
func (p *Program) Execute(ctx context.Context, inv *Invocation) (*Receipt, error) {
	ix := inv.Instruction
	args, err := p.prepare(&ix, inv.Signers)
	if err != nil {
		p.logger.Debug("instruction rejected", "tx", inv.ID, "error", err)
		return nil, err
	}

	signers := make([]string, 0, len(inv.Signers))
	for _, s := range inv.Signers {
		signers = append(signers, s.String())
	}

	slot, err := p.store.Update(ctx, func(tx ledger.Tx) error {
		c := &call{ctx: ctx, tx: tx, accounts: ix.Accounts}
		if err := p.dispatch(c, args); err != nil {
			return err
		}
		tx.Record(ledger.TxRecord{ID: inv.ID, Op: string(args.Op()), Signers: signers})
		return nil
	})
	if err != nil {
		err = classify(err)
		p.logger.Debug("instruction rejected", "tx", inv.ID, "op", args.Op(), "error", err)
		return nil, err
	}

	p.logger.Info("instruction committed", "tx", inv.ID, "op", args.Op(), "slot", slot)
	return &Receipt{ID: inv.ID, Op: args.Op(), Slot: slot}, nil
}

// prepare runs the checks that need no ledger state.
func (p *Program) prepare(ix *Instruction, signers []address.Pubkey) (Args, error) {
	if ix.ProgramID != p.deriver.ProgramID() {
		return nil, wrap(ErrInvalidInstruction, "program id %s, want %s", ix.ProgramID, p.deriver.ProgramID())
	}
	args, err := DecodeArgs(ix.Data)
	if err != nil {
		return nil, err
	}
	if err := checkAccounts(ix.Accounts, rolesFor(args, p.scheme)); err != nil {
		return nil, err
	}

	signed := make(map[address.Pubkey]bool, len(signers))
	for _, s := range signers {
		signed[s] = true
	}
	for _, a := range ix.Accounts {
		if a.Signer && !signed[a.Address] {
			return nil, wrap(ErrMissingSignature, "%s %s", a.Name, a.Address)
		}
	}
	return args, nil
}

func (p *Program) dispatch(c *call, args Args) error {
	switch a := args.(type) {
	case *InitializeCounterArgs:
		return p.initializeCounter(c)
	case *CreateMetadataKeyArgs:
		return p.createMetadataKey(c, a)
	case *CreateMetadataArgs:
		return p.createMetadata(c, a)
	case *SetMetadataUpdateAuthorityArgs:
		return p.setMetadataUpdateAuthority(c, a)
	case *RevokeMetadataUpdateAuthorityArgs:
		return p.revokeMetadataUpdateAuthority(c)
	case *AppendMetadataCollectionArgs:
		return p.appendMetadataCollection(c, a)
	case *RemoveMetadataCollectionArgs:
		return p.removeMetadataCollection(c)
	case *SetCollectionUpdateAuthorityArgs:
		return p.setCollectionUpdateAuthority(c, a)
	case *RevokeCollectionUpdateAuthorityArgs:
		return p.revokeCollectionUpdateAuthority(c)
	case *AppendMetadataItemArgs:
		return p.appendMetadataItem(c, a)
	case *AppendMetadataItemsArgs:
		return p.appendMetadataItems(c, a)
	case *UpdateMetadataItemArgs:
		return p.updateMetadataItem(c, a)
	case *RemoveMetadataItemArgs:
		return p.removeMetadataItem(c)
	default:
		return wrap(ErrInvalidInstruction, "unhandled operation %s", args.Op())
	}
}

// Account returns the raw account at addr.
func (p *Program) Account(ctx context.Context, addr address.Pubkey) (*ledger.Account, error) {
	var acct *ledger.Account
	err := p.store.View(ctx, func(r ledger.Reader) error {
		var err error
		acct, err = r.Get(ctx, addr)
		return err
	})
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, wrap(ErrAccountNotFound, "%s", addr)
	}
	if err != nil {
		return nil, classify(err)
	}
	return acct, nil
}

// LatestSlot returns the latest committed slot.
func (p *Program) LatestSlot(ctx context.Context) (uint64, error) {
	slot, err := p.store.LatestSlot(ctx)
	return slot, classify(err)
}

// Transactions returns the most recent committed transactions.
func (p *Program) Transactions(ctx context.Context, limit int) ([]ledger.TxRecord, error) {
	recs, err := p.store.ListTransactions(ctx, limit)
	return recs, classify(err)
}
