// ABOUTME: Tests for the registry service descriptor, codec and status mapping
// ABOUTME: Runs a stub server over bufconn and checks errors survive the wire

package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/state"
)

type stubServer struct {
	UnimplementedRegistryServer
	err  error
	slot uint64
}

func (s *stubServer) GetLatestSlot(context.Context, *GetLatestSlotRequest) (*GetLatestSlotResponse, error) {
	if s.err != nil {
		return nil, ToStatus(s.err)
	}
	return &GetLatestSlotResponse{Slot: s.slot}, nil
}

func (s *stubServer) GetAccount(_ context.Context, req *GetAccountRequest) (*GetAccountResponse, error) {
	addr, err := address.Parse(req.Address)
	if err != nil {
		return nil, ToStatus(fmt.Errorf("%w: %v", registry.ErrInvalidInstruction, err))
	}
	data, err := state.NewCounter(254).MarshalBinary()
	if err != nil {
		return nil, ToStatus(err)
	}
	return &GetAccountResponse{Account: NewAccountView(&ledger.Account{
		Address: addr, Kind: string(state.KindCounter), Data: data, Version: 3, Slot: s.slot,
	})}, nil
}

func startServer(t *testing.T, srv RegistryServer) RegistryClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	s := grpc.NewServer()
	RegisterRegistryServer(s, srv)
	go func() { _ = s.Serve(lis) }()
	t.Cleanup(s.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRegistryClient(conn)
}

func TestClient_RoundTrip(t *testing.T) {
	client := startServer(t, &stubServer{slot: 42})

	resp, err := client.GetLatestSlot(context.Background(), &GetLatestSlotRequest{})
	require.NoError(t, err)
	assert.Equal(t, uint64(42), resp.Slot)

	addr := address.MustParse(address.DefaultProgramID)
	acct, err := client.GetAccount(context.Background(), &GetAccountRequest{Address: addr.String()})
	require.NoError(t, err)
	assert.Equal(t, addr.String(), acct.Account.Address)
	assert.Equal(t, uint64(3), acct.Account.Version)

	rec, err := state.Decode(acct.Account.Data)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), rec.(*state.Counter).ID)
	assert.JSONEq(t, `{"bump":254,"id":1}`, string(acct.Account.Decoded))
}

func TestClient_Unimplemented(t *testing.T) {
	client := startServer(t, &stubServer{})
	_, err := client.SubmitTransaction(context.Background(), &SubmitTransactionRequest{})
	assert.Equal(t, codes.Unimplemented, status.Code(err))
}

func TestErrorsSurviveTheWire(t *testing.T) {
	tests := []struct {
		err  *registry.Error
		code codes.Code
	}{
		{registry.ErrCollectionAlreadyExists, codes.AlreadyExists},
		{registry.ErrItemNotFound, codes.NotFound},
		{registry.ErrImmutableMetadata, codes.PermissionDenied},
		{registry.ErrSignatureExpired, codes.Unauthenticated},
		{registry.ErrValueLenExceeded, codes.InvalidArgument},
		{registry.ErrCounterIDReachedMax, codes.ResourceExhausted},
		{registry.ErrStaleSequence, codes.Aborted},
		{registry.ErrInternal, codes.Internal},
	}

	for _, tt := range tests {
		t.Run(tt.err.Msg, func(t *testing.T) {
			sent := fmt.Errorf("%w: detail", tt.err)
			client := startServer(t, &stubServer{err: sent})

			_, err := client.GetLatestSlot(context.Background(), &GetLatestSlotRequest{})
			require.Error(t, err)
			assert.Equal(t, tt.code, status.Code(err))

			got := FromStatus(err)
			assert.Equal(t, tt.err.Code, registry.CodeOf(got))
			assert.Equal(t, tt.err.Kind, registry.KindOf(got))
			assert.True(t, errors.Is(got, tt.err.Kind))
			assert.Contains(t, got.Error(), "detail")
		})
	}
}

func TestToStatus_UnclassifiedIsInternal(t *testing.T) {
	err := ToStatus(errors.New("disk on fire"))
	assert.Equal(t, codes.Internal, status.Code(err))
	assert.Equal(t, registry.ErrInternal.Code, registry.CodeOf(FromStatus(err)))
}

func TestToStatus_PassesStatusThrough(t *testing.T) {
	in := status.Error(codes.Unavailable, "down")
	assert.Equal(t, in, ToStatus(in))
	assert.Equal(t, in, FromStatus(in))
}

func TestToStatus_Nil(t *testing.T) {
	assert.NoError(t, ToStatus(nil))
}
