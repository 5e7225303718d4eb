package db

import "context"

// Nop discards every write; it backs the --no-store flag so the reconciler
// never has to branch on a nil store.
type Nop struct{}

func (Nop) UpsertEpochInfo(context.Context, EpochInfo) error { return nil }

func (Nop) InsertSchedule(context.Context, uint64, []PlannedSlot) error { return nil }

func (Nop) MarkMinted(context.Context, BlockUpdate) error { return nil }

func (Nop) MarkFinalized(context.Context, BlockUpdate) error { return nil }

func (Nop) Close() error { return nil }

var _ Store = Nop{}
