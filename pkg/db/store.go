package db

import "context"

// Slot lifecycle statuses as stored. The order is load-bearing: a row only
// ever moves schedule → mint → finality (or schedule → finality directly)
// and never backward.
const (
	StatusSchedule = "schedule"
	StatusMint     = "mint"
	StatusFinality = "finality"
)

// EpochInfo is one logical row per observed epoch; re-observation with a
// changed authority set overwrites it.
type EpochInfo struct {
	Epoch            uint64
	StartSlot        uint64
	EndSlot          uint64
	AuthoritySetHash string
	AuthoritySetLen  int
	CreatedAtUTC     string
}

// PlannedSlot is one own-slot row at scheduling time.
type PlannedSlot struct {
	Slot           uint64
	PlannedTimeUTC string
}

// BlockUpdate carries the chain observation that advances a slot row to
// mint or finality.
type BlockUpdate struct {
	Slot            uint64
	BlockNumber     uint64
	BlockHash       string
	ProducedTimeUTC string
}

// Store is the durable record of the slot lifecycle. All operations are
// idempotent upserts: re-applying an identical observation leaves the
// stored state byte-identical.
type Store interface {
	// UpsertEpochInfo creates or rewrites the epoch metadata row.
	UpsertEpochInfo(ctx context.Context, info EpochInfo) error
	// InsertSchedule writes an epoch's own-slot rows in one transaction.
	// Existing rows keep their status; epoch and planned time are only
	// rewritten while the row is still in schedule status.
	InsertSchedule(ctx context.Context, epoch uint64, planned []PlannedSlot) error
	// MarkMinted advances a slot to mint, only from schedule status.
	MarkMinted(ctx context.Context, u BlockUpdate) error
	// MarkFinalized advances a slot to finality from schedule or mint
	// status; an already finalized row is never touched again.
	MarkFinalized(ctx context.Context, u BlockUpdate) error
	// Close releases the underlying handle.
	Close() error
}
