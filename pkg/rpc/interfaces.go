package rpc

import (
	"context"

	"github.com/substrate-tools/auramon/pkg/schedule"
)

// ChainClient is the narrow chain capability the reconciler consumes. It
// exists so the reconciliation logic can run against a scripted fake in
// tests; *Client is the production implementation.
type ChainClient interface {
	// Authorities returns the current ordered Aura authority set.
	Authorities(ctx context.Context) ([]schedule.Authority, error)
	// TimestampNow reads Timestamp::Now, optionally at a block hash.
	TimestampNow(ctx context.Context, at *Hash) (uint64, bool, error)
	// SlotDuration returns the Aura slot duration in milliseconds.
	SlotDuration(ctx context.Context) (uint64, error)
	// BestBlockHash returns the current best head hash.
	BestBlockHash(ctx context.Context) (Hash, error)
	// BlockHashByNumber resolves a block number; false when unknown.
	BlockHashByNumber(ctx context.Context, number uint64) (Hash, bool, error)
	// FinalizedHeadHash returns the latest finalized block hash.
	FinalizedHeadHash(ctx context.Context) (Hash, error)
	// HeaderByHash fetches a header; nil without error when unknown.
	HeaderByHash(ctx context.Context, hash Hash) (*Header, error)
	// HasKey reports whether the node holds the key for the given role.
	HasKey(ctx context.Context, publicHex, keyType string) (bool, error)
}

var _ ChainClient = (*Client)(nil)
