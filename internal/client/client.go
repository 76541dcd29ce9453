// ABOUTME: gRPC client for submitting transactions to a registry node
// ABOUTME: Signs, submits and resubmits instructions on conflict

package client

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

const (
	defaultAttempts = 5
	defaultBackoff  = 50 * time.Millisecond
)

// Client talks to one registry node.
type Client struct {
	conn     *grpc.ClientConn
	rpc      rpc.RegistryClient
	builder  *registry.Builder
	attempts int
	backoff  time.Duration
	logger   *slog.Logger
}

type options struct {
	programID address.Pubkey
	scheme    address.Scheme
	attempts  int
	backoff   time.Duration
	dialOpts  []grpc.DialOption
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*options)

// WithProgramID sets the program the node runs. Defaults to
// address.DefaultProgramID.
func WithProgramID(id address.Pubkey) Option {
	return func(o *options) { o.programID = id }
}

// WithScheme sets the node's addressing scheme. Defaults to counter.
func WithScheme(s address.Scheme) Option {
	return func(o *options) { o.scheme = s }
}

// WithAttempts sets how many times a conflicting submission is tried.
func WithAttempts(n int) Option {
	return func(o *options) { o.attempts = n }
}

// WithBackoff sets the base delay between attempts. It doubles per attempt.
func WithBackoff(d time.Duration) Option {
	return func(o *options) { o.backoff = d }
}

// WithDialOptions adds gRPC dial options. Without any, the connection is
// insecure.
func WithDialOptions(opts ...grpc.DialOption) Option {
	return func(o *options) { o.dialOpts = append(o.dialOpts, opts...) }
}

// WithLogger sets the logger for retry messages.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		programID: address.MustParse(address.DefaultProgramID),
		scheme:    address.SchemeCounter,
		attempts:  defaultAttempts,
		backoff:   defaultBackoff,
		logger:    slog.Default().With("component", "client"),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.attempts < 1 {
		o.attempts = 1
	}
	return o
}

// Dial connects to the node at target.
func Dial(target string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)
	dialOpts := o.dialOpts
	if len(dialOpts) == 0 {
		dialOpts = []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	}
	conn, err := grpc.NewClient(target, dialOpts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", target, err)
	}
	c := newClient(rpc.NewRegistryClient(conn), o)
	c.conn = conn
	return c, nil
}

// New wraps an existing connection. Close does not close cc.
func New(cc grpc.ClientConnInterface, opts ...Option) *Client {
	return newClient(rpc.NewRegistryClient(cc), buildOptions(opts))
}

func newClient(rc rpc.RegistryClient, o options) *Client {
	return &Client{
		rpc:      rc,
		builder:  registry.NewBuilder(address.NewDeriver(o.programID), o.scheme),
		attempts: o.attempts,
		backoff:  o.backoff,
		logger:   o.logger,
	}
}

// Close closes the connection opened by Dial.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

// Builder returns the instruction builder for the node's program.
func (c *Client) Builder() *registry.Builder {
	return c.builder
}

// Deriver returns the address deriver for the node's program.
func (c *Client) Deriver() *address.Deriver {
	return c.builder.Deriver()
}

// submit signs ix once with a fresh nonce and submits it. Errors carry the
// registry error the node returned.
func (c *Client) submit(ctx context.Context, ix registry.Instruction, signers []*auth.Keypair) (*rpc.SubmitTransactionResponse, error) {
	tx := auth.NewTransaction(ix)
	if err := tx.Sign(signers...); err != nil {
		return nil, err
	}
	resp, err := c.rpc.SubmitTransaction(ctx, &rpc.SubmitTransactionRequest{Transaction: tx})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	return resp, nil
}

// retry runs attempt until it succeeds, fails with a non-retryable error or
// runs out of attempts.
func (c *Client) retry(ctx context.Context, op string, attempt func() (*rpc.SubmitTransactionResponse, error)) (*rpc.SubmitTransactionResponse, error) {
	delay := c.backoff
	var err error
	for i := 1; ; i++ {
		var resp *rpc.SubmitTransactionResponse
		resp, err = attempt()
		if err == nil || !registry.KindOf(err).Retryable() || i >= c.attempts {
			return resp, err
		}
		c.logger.Debug("resubmitting after conflict", "op", op, "attempt", i, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w (last error: %v)", ctx.Err(), err)
		case <-time.After(delay):
		}
		delay *= 2
	}
}

// Send signs ix with signers and submits it, resubmitting on conflict.
func (c *Client) Send(ctx context.Context, ix registry.Instruction, signers ...*auth.Keypair) (*rpc.SubmitTransactionResponse, error) {
	op, err := ix.Op()
	if err != nil {
		return nil, err
	}
	return c.retry(ctx, string(op), func() (*rpc.SubmitTransactionResponse, error) {
		return c.submit(ctx, ix, signers)
	})
}

// LatestSlot returns the node's latest committed slot.
func (c *Client) LatestSlot(ctx context.Context) (uint64, error) {
	resp, err := c.rpc.GetLatestSlot(ctx, &rpc.GetLatestSlotRequest{})
	if err != nil {
		return 0, rpc.FromStatus(err)
	}
	return resp.Slot, nil
}
