// ABOUTME: Transport-independent registry operations used by gRPC and HTTP
// ABOUTME: Verifies signatures, executes instructions and reads the ledger

package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/events"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

// Service is the registry node's behavior behind both transports.
type Service struct {
	program  *registry.Program
	verifier *auth.Verifier
	events   *events.Broadcaster
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(program *registry.Program, verifier *auth.Verifier, logger *slog.Logger) *Service {
	return &Service{
		program:  program,
		verifier: verifier,
		events:   events.NewBroadcaster(logger),
		logger:   logger,
	}
}

// Submit verifies and executes tx.
func (s *Service) Submit(ctx context.Context, tx *auth.Transaction) (*registry.Receipt, error) {
	if tx == nil {
		return nil, fmt.Errorf("%w: transaction is required", registry.ErrInvalidInstruction)
	}

	inv, err := s.verifier.Verify(tx)
	if err != nil {
		s.logger.Warn("transaction rejected", "tx", tx.ID(), "kind", registry.KindOf(err), "error", err)
		return nil, err
	}

	receipt, err := s.program.Execute(ctx, inv)
	if err != nil {
		// The same signed bytes may be resubmitted after contention.
		if registry.KindOf(err).Retryable() {
			s.verifier.Release(inv.ID)
		}
		return nil, err
	}

	s.events.Publish(&events.Event{
		ID:       receipt.ID,
		Op:       receipt.Op,
		Slot:     receipt.Slot,
		Accounts: writableAccounts(tx.Instruction),
	})
	return receipt, nil
}

func writableAccounts(ix registry.Instruction) []address.Pubkey {
	var out []address.Pubkey
	for _, a := range ix.Accounts {
		if a.Writable {
			out = append(out, a.Address)
		}
	}
	return out
}

// Subscribe streams committed transactions that wrote account, or all of them
// for the zero address, until ctx is cancelled or the service closes.
func (s *Service) Subscribe(ctx context.Context, account address.Pubkey) <-chan *events.Event {
	ch, _ := s.events.Subscribe(ctx, account)
	return ch
}

// Close ends every live subscription.
func (s *Service) Close() {
	s.events.Close()
}

// Account returns the account at the base58 address addr.
func (s *Service) Account(ctx context.Context, addr string) (*rpc.AccountView, error) {
	pk, err := address.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: address %q: %v", registry.ErrInvalidInstruction, addr, err)
	}
	acct, err := s.program.Account(ctx, pk)
	if err != nil {
		return nil, err
	}
	return rpc.NewAccountView(acct), nil
}

// LatestSlot returns the slot of the last committed transaction.
func (s *Service) LatestSlot(ctx context.Context) (uint64, error) {
	return s.program.LatestSlot(ctx)
}

// Transactions returns up to limit recent transactions, newest first.
func (s *Service) Transactions(ctx context.Context, limit int) ([]ledger.TxRecord, error) {
	return s.program.Transactions(ctx, limit)
}
