// ABOUTME: Service descriptor, server registration and client stub
// ABOUTME: Hand-written in the shape protoc-gen-go-grpc produces

package rpc

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	ServiceName = "mythic.metadata.v1.Registry"

	SubmitTransactionMethod = "/" + ServiceName + "/SubmitTransaction"
	GetAccountMethod        = "/" + ServiceName + "/GetAccount"
	GetLatestSlotMethod     = "/" + ServiceName + "/GetLatestSlot"
)

// RegistryServer is the server API for the registry service.
type RegistryServer interface {
	SubmitTransaction(context.Context, *SubmitTransactionRequest) (*SubmitTransactionResponse, error)
	GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error)
	GetLatestSlot(context.Context, *GetLatestSlotRequest) (*GetLatestSlotResponse, error)
}

// UnimplementedRegistryServer can be embedded for forward compatibility.
type UnimplementedRegistryServer struct{}

func (UnimplementedRegistryServer) SubmitTransaction(context.Context, *SubmitTransactionRequest) (*SubmitTransactionResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitTransaction not implemented")
}

func (UnimplementedRegistryServer) GetAccount(context.Context, *GetAccountRequest) (*GetAccountResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetAccount not implemented")
}

func (UnimplementedRegistryServer) GetLatestSlot(context.Context, *GetLatestSlotRequest) (*GetLatestSlotResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetLatestSlot not implemented")
}

// RegisterRegistryServer registers srv on s.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&Registry_ServiceDesc, srv)
}

func unaryHandler[Req any, Resp any](method string, call func(RegistryServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(RegistryServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Registry_ServiceDesc is the grpc.ServiceDesc for the registry service.
var Registry_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "SubmitTransaction",
			Handler:    unaryHandler(SubmitTransactionMethod, RegistryServer.SubmitTransaction),
		},
		{
			MethodName: "GetAccount",
			Handler:    unaryHandler(GetAccountMethod, RegistryServer.GetAccount),
		},
		{
			MethodName: "GetLatestSlot",
			Handler:    unaryHandler(GetLatestSlotMethod, RegistryServer.GetLatestSlot),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "mythic/metadata/v1/registry",
}

// RegistryClient is the client API for the registry service.
type RegistryClient interface {
	SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error)
	GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error)
	GetLatestSlot(ctx context.Context, in *GetLatestSlotRequest, opts ...grpc.CallOption) (*GetLatestSlotResponse, error)
}

type registryClient struct {
	cc grpc.ClientConnInterface
}

// NewRegistryClient returns a client that speaks the JSON codec over cc.
func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient {
	return &registryClient{cc: cc}
}

func (c *registryClient) invoke(ctx context.Context, method string, in, out any, opts []grpc.CallOption) error {
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, method, in, out, opts...)
}

func (c *registryClient) SubmitTransaction(ctx context.Context, in *SubmitTransactionRequest, opts ...grpc.CallOption) (*SubmitTransactionResponse, error) {
	out := new(SubmitTransactionResponse)
	if err := c.invoke(ctx, SubmitTransactionMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) GetAccount(ctx context.Context, in *GetAccountRequest, opts ...grpc.CallOption) (*GetAccountResponse, error) {
	out := new(GetAccountResponse)
	if err := c.invoke(ctx, GetAccountMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) GetLatestSlot(ctx context.Context, in *GetLatestSlotRequest, opts ...grpc.CallOption) (*GetLatestSlotResponse, error) {
	out := new(GetLatestSlotResponse)
	if err := c.invoke(ctx, GetLatestSlotMethod, in, out, opts); err != nil {
		return nil, err
	}
	return out, nil
}
