package rpc

import (
	"context"
	"fmt"
)

// BestBlockHash returns the hash of the current best (non-finalized) head.
func (c *Client) BestBlockHash(ctx context.Context) (Hash, error) {
	var h Hash
	if err := c.call(ctx, "chain_getBlockHash", nil, &h); err != nil {
		return "", err
	}
	if h == "" {
		return "", fmt.Errorf("chain_getBlockHash: node reported no best head")
	}
	return h, nil
}

// BlockHashByNumber resolves a block number to its canonical hash. The
// second return is false when the node does not know the block (pruned or
// not yet produced); that is not an error.
func (c *Client) BlockHashByNumber(ctx context.Context, number uint64) (Hash, bool, error) {
	var h Hash
	if err := c.call(ctx, "chain_getBlockHash", []any{number}, &h); err != nil {
		return "", false, err
	}
	if h == "" {
		return "", false, nil
	}
	return h, true, nil
}

// FinalizedHeadHash returns the hash of the latest finalized block.
func (c *Client) FinalizedHeadHash(ctx context.Context) (Hash, error) {
	var h Hash
	if err := c.call(ctx, "chain_getFinalizedHead", nil, &h); err != nil {
		return "", err
	}
	if h == "" {
		return "", fmt.Errorf("chain_getFinalizedHead: node reported no finalized head")
	}
	return h, nil
}

// HeaderByHash fetches the header for a block hash; nil without error when
// the node does not have it.
func (c *Client) HeaderByHash(ctx context.Context, hash Hash) (*Header, error) {
	var hdr *Header
	if err := c.call(ctx, "chain_getHeader", []any{string(hash)}, &hdr); err != nil {
		return nil, err
	}
	return hdr, nil
}
