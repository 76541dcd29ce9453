// ABOUTME: Registry gRPC service implementation
// ABOUTME: Adapts Service to rpc.RegistryServer and maps errors to statuses

package gateway

import (
	"context"

	"github.com/2389/mythic-metadata/internal/rpc"
)

// registryServer implements the mythic.metadata.v1.Registry service.
type registryServer struct {
	rpc.UnimplementedRegistryServer
	service *Service
}

// NewRegistryServer serves service as the mythic.metadata.v1.Registry gRPC service.
func NewRegistryServer(service *Service) rpc.RegistryServer {
	return &registryServer{service: service}
}

func (s *registryServer) SubmitTransaction(ctx context.Context, req *rpc.SubmitTransactionRequest) (*rpc.SubmitTransactionResponse, error) {
	receipt, err := s.service.Submit(ctx, req.Transaction)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.SubmitTransactionResponse{ID: receipt.ID, Op: string(receipt.Op), Slot: receipt.Slot}, nil
}

func (s *registryServer) GetAccount(ctx context.Context, req *rpc.GetAccountRequest) (*rpc.GetAccountResponse, error) {
	view, err := s.service.Account(ctx, req.Address)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.GetAccountResponse{Account: view}, nil
}

func (s *registryServer) GetLatestSlot(ctx context.Context, _ *rpc.GetLatestSlotRequest) (*rpc.GetLatestSlotResponse, error) {
	slot, err := s.service.LatestSlot(ctx)
	if err != nil {
		return nil, rpc.ToStatus(err)
	}
	return &rpc.GetLatestSlotResponse{Slot: slot}, nil
}
