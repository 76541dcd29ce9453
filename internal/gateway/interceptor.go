// ABOUTME: gRPC interceptor that tags each call with a request id and logs it
// ABOUTME: Failed calls are logged with the peer address and status code

package gateway

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

// RequestIDHeader carries the request id in gRPC metadata and HTTP headers.
const RequestIDHeader = "x-request-id"

type requestIDKey struct{}

// RequestID returns the request id attached to ctx, if any.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// incomingRequestID returns the caller's request id or a new one.
func incomingRequestID(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		if vals := md.Get(RequestIDHeader); len(vals) > 0 && vals[0] != "" {
			return vals[0]
		}
	}
	return uuid.NewString()
}

// logCallFailure logs a failed call with structured context.
func logCallFailure(logger *slog.Logger, ctx context.Context, method string, err error, attrs ...any) {
	baseAttrs := []any{"method", method, "code", status.Code(err).String(), "error", status.Convert(err).Message()}
	if p, ok := peer.FromContext(ctx); ok && p.Addr != nil {
		baseAttrs = append(baseAttrs, "peer_addr", p.Addr.String())
	}
	baseAttrs = append(baseAttrs, attrs...)
	logger.Warn("call failed", baseAttrs...)
}

// UnaryInterceptor assigns request ids and logs every unary call.
func UnaryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		id := incomingRequestID(ctx)
		ctx = withRequestID(ctx, id)
		_ = grpc.SetHeader(ctx, metadata.Pairs(RequestIDHeader, id))

		start := time.Now()
		resp, err := handler(ctx, req)
		elapsed := time.Since(start)

		if err != nil {
			logCallFailure(logger, ctx, info.FullMethod, err, "request_id", id, "duration", elapsed)
			return nil, err
		}
		logger.Debug("call", "method", info.FullMethod, "request_id", id, "duration", elapsed)
		return resp, nil
	}
}
