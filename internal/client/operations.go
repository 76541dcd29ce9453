// ABOUTME: Instruction helpers that need node state before they can be built
// ABOUTME: Counter initialization, metadata key and metadata record creation

package client

import (
	"context"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/auth"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
)

// InitializeCounter creates the registry counter, paid for by payer.
func (c *Client) InitializeCounter(ctx context.Context, payer *auth.Keypair) (*rpc.SubmitTransactionResponse, error) {
	ix, err := c.builder.InitializeCounter(payer.Pubkey())
	if err != nil {
		return nil, err
	}
	return c.Send(ctx, ix, payer)
}

// CreateMetadataKey creates a metadata key and returns its address. Under the
// counter scheme p.ID is ignored and the id is read from the counter before
// every attempt.
func (c *Client) CreateMetadataKey(ctx context.Context, p registry.KeyParams, signers ...*auth.Keypair) (address.Pubkey, *rpc.SubmitTransactionResponse, error) {
	var key address.Pubkey
	resp, err := c.retry(ctx, string(registry.OpCreateMetadataKey), func() (*rpc.SubmitTransactionResponse, error) {
		if c.builder.Scheme() == address.SchemeCounter {
			counter, err := c.FetchCounter(ctx)
			if err != nil {
				return nil, err
			}
			p.ID = counter.ID
		}
		ix, addr, err := c.builder.CreateMetadataKey(p)
		if err != nil {
			return nil, err
		}
		key = addr
		return c.submit(ctx, ix, signers)
	})
	if err != nil {
		return address.Pubkey{}, nil, err
	}
	return key, resp, nil
}

// CreateMetadata creates a metadata record and returns its address.
func (c *Client) CreateMetadata(ctx context.Context, p registry.MetadataParams, signers ...*auth.Keypair) (address.Pubkey, *rpc.SubmitTransactionResponse, error) {
	ix, addr, err := c.builder.CreateMetadata(p)
	if err != nil {
		return address.Pubkey{}, nil, err
	}
	resp, err := c.Send(ctx, ix, signers...)
	if err != nil {
		return address.Pubkey{}, nil, err
	}
	return addr, resp, nil
}
