// ABOUTME: Typed account fetchers for counter, metadata key and metadata records
// ABOUTME: Decode raw account bytes returned by GetAccount

package client

import (
	"context"
	"fmt"

	"github.com/2389/mythic-metadata/internal/address"
	"github.com/2389/mythic-metadata/internal/registry"
	"github.com/2389/mythic-metadata/internal/rpc"
	"github.com/2389/mythic-metadata/internal/state"
)

// FetchAccount returns the account at addr.
func (c *Client) FetchAccount(ctx context.Context, addr address.Pubkey) (*rpc.AccountView, error) {
	resp, err := c.rpc.GetAccount(ctx, &rpc.GetAccountRequest{Address: addr.String()})
	if err != nil {
		return nil, rpc.FromStatus(err)
	}
	if resp.Account == nil {
		return nil, fmt.Errorf("%w: empty response for %s", registry.ErrInternal, addr)
	}
	return resp.Account, nil
}

func fetch[T any, PT interface {
	*T
	state.Account
}](ctx context.Context, c *Client, addr address.Pubkey) (*T, error) {
	view, err := c.FetchAccount(ctx, addr)
	if err != nil {
		return nil, err
	}
	rec := PT(new(T))
	if err := rec.UnmarshalBinary(view.Data); err != nil {
		return nil, fmt.Errorf("decoding %s at %s: %w", rec.Kind(), addr, err)
	}
	return (*T)(rec), nil
}

// FetchCounter returns the registry counter.
func (c *Client) FetchCounter(ctx context.Context) (*state.Counter, error) {
	addr, _, err := c.Deriver().Counter()
	if err != nil {
		return nil, err
	}
	counter, err := fetch[state.Counter](ctx, c, addr)
	if registry.KindOf(err) == registry.KindNotFound {
		return nil, fmt.Errorf("%w: %v", registry.ErrCounterNotInitialized, err)
	}
	return counter, err
}

// FetchMetadataKey returns the metadata key at addr.
func (c *Client) FetchMetadataKey(ctx context.Context, addr address.Pubkey) (*state.MetadataKey, error) {
	return fetch[state.MetadataKey](ctx, c, addr)
}

// FetchMetadata returns the metadata record at addr.
func (c *Client) FetchMetadata(ctx context.Context, addr address.Pubkey) (*state.Metadata, error) {
	return fetch[state.Metadata](ctx, c, addr)
}
