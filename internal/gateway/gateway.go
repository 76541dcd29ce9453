// ABOUTME: Gateway orchestrator that coordinates gRPC and HTTP servers
// ABOUTME: Owns the ledger, registry program and signature verifier lifecycle

package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/keepalive"

	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/config"
	"github.com/2389/mythic-metadata/internal/ledger"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

// Gateway runs one registry node.
type Gateway struct {
	config     *config.Config
	store      ledger.Store
	program    *registry.Program
	verifier   *auth.Verifier
	service    *Service
	grpcServer *grpc.Server
	httpServer *http.Server
	logger     *slog.Logger
}

// initStore opens the ledger named by cfg.
func initStore(cfg *config.Config) (ledger.Store, error) {
	s, err := ledger.Open(cfg.Database.Driver, cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing ledger: %w", err)
	}
	return s, nil
}

// createGRPCServer creates a gRPC server with keepalive and request logging.
func createGRPCServer(logger *slog.Logger) *grpc.Server {
	return grpc.NewServer(
		grpc.KeepaliveParams(keepalive.ServerParameters{
			Time:    15 * time.Second,
			Timeout: 5 * time.Second,
		}),
		grpc.KeepaliveEnforcementPolicy(keepalive.EnforcementPolicy{
			MinTime:             5 * time.Second,
			PermitWithoutStream: true,
		}),
		grpc.ChainUnaryInterceptor(UnaryInterceptor(logger.With("component", "grpc"))),
	)
}

// New creates a gateway from cfg. The ledger is opened immediately; servers
// start in Run.
func New(cfg *config.Config, logger *slog.Logger) (*Gateway, error) {
	programID, err := cfg.ProgramID()
	if err != nil {
		return nil, fmt.Errorf("program id: %w", err)
	}
	scheme, err := cfg.Scheme()
	if err != nil {
		return nil, fmt.Errorf("addressing scheme: %w", err)
	}

	s, err := initStore(cfg)
	if err != nil {
		return nil, err
	}

	program, err := registry.New(s, registry.Config{
		ProgramID: programID,
		Scheme:    scheme,
		Limits:    cfg.Registry.Limits,
	})
	if err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("creating registry: %w", err)
	}

	verifier := auth.NewVerifier(cfg.Auth.SignatureMaxAge, cfg.Auth.NonceCacheSize)

	gw := &Gateway{
		config:   cfg,
		store:    s,
		program:  program,
		verifier: verifier,
		service:  NewService(program, verifier, logger.With("component", "service")),
		logger:   logger,
	}

	gw.grpcServer = createGRPCServer(logger)
	rpc.RegisterRegistryServer(gw.grpcServer, NewRegistryServer(gw.service))

	gw.httpServer = &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           gw.newRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("registry ready",
		"program_id", programID,
		"addressing", scheme,
		"driver", cfg.Database.Driver,
	)
	return gw, nil
}

// Service returns the transport-independent registry operations.
func (g *Gateway) Service() *Service {
	return g.service
}

func (g *Gateway) setupListeners() (grpcLn, httpLn net.Listener, err error) {
	g.logger.Info("starting gateway",
		"grpc_addr", g.config.Server.GRPCAddr,
		"http_addr", g.config.Server.HTTPAddr,
	)

	grpcLn, err = net.Listen("tcp", g.config.Server.GRPCAddr)
	if err != nil {
		return nil, nil, fmt.Errorf("listening on gRPC address: %w", err)
	}

	httpLn, err = net.Listen("tcp", g.config.Server.HTTPAddr)
	if err != nil {
		_ = grpcLn.Close()
		return nil, nil, fmt.Errorf("listening on HTTP address: %w", err)
	}

	return grpcLn, httpLn, nil
}

func (g *Gateway) startServers(grpcLn, httpLn net.Listener) chan error {
	errCh := make(chan error, 2)

	go func() {
		g.logger.Info("gRPC server listening", "addr", grpcLn.Addr().String())
		if err := g.grpcServer.Serve(grpcLn); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()

	go func() {
		g.logger.Info("HTTP server listening", "addr", httpLn.Addr().String())
		if err := g.httpServer.Serve(httpLn); err != nil && err != http.ErrServerClosed {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

func (g *Gateway) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		g.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		g.logger.Error("server error", "error", err)
		g.drainErrors(errCh)
		return err
	}
}

func (g *Gateway) drainErrors(errCh chan error) {
	select {
	case additionalErr := <-errCh:
		g.logger.Error("additional server error", "error", additionalErr)
	default:
	}
}

// Run serves until ctx is canceled or a server fails, then shuts down.
func (g *Gateway) Run(ctx context.Context) error {
	grpcListener, httpListener, err := g.setupListeners()
	if err != nil {
		return err
	}

	errCh := g.startServers(grpcListener, httpListener)
	serverErr := g.waitForShutdownSignal(ctx, errCh)

	shutdownErr := g.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

func (g *Gateway) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return g.Shutdown(ctx)
}

// shutdownGRPCServer stops gracefully, forcing a stop if ctx ends first.
func (g *Gateway) shutdownGRPCServer(ctx context.Context) {
	done := make(chan struct{})
	go func() {
		g.grpcServer.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		g.logger.Warn("gRPC graceful stop timed out, forcing stop")
		g.grpcServer.Stop()
	}
}

func appendCloseError(errs []error, what string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", what, err))
	}
	return errs
}

// Shutdown stops both servers and closes the ledger.
func (g *Gateway) Shutdown(ctx context.Context) error {
	g.logger.Info("shutting down gateway")

	// Event streams never finish on their own.
	g.service.Close()

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", g.httpServer.Shutdown(ctx))

	g.shutdownGRPCServer(ctx)
	g.verifier.Close()

	errs = appendCloseError(errs, "ledger close", g.store.Close())

	if len(errs) > 0 {
		return fmt.Errorf("shutdown errors: %v", errs)
	}
	return nil
}
