package monitor

import (
	"github.com/substrate-tools/auramon/pkg/rpc"
)

// PollState is the loop-carried state of the watch loop. It is passed into
// a tick and returned updated rather than living in globals, so a scripted
// history can drive the reconciler in tests. Nothing here is durable:
// losing it on restart only re-emits output and redundant (guarded,
// idempotent) store writes, never wrong state.
type PollState struct {
	// Authority-set change detection.
	HasAuthoritySet      bool
	AuthorityFingerprint [32]byte
	AuthorityLen         int

	// Epoch transition detection.
	HasEpoch bool
	Epoch    uint64

	// Own-schedule change detection, for mid-epoch authority changes.
	HasScheduleFingerprint bool
	ScheduleFingerprint    [32]byte

	// Presence of the local key in the authority set last tick.
	HasAuthorPresence bool
	AuthorPresent     bool

	// Identity line is printed once per run.
	PrintedIdentity bool

	// Mint trigger: the last best head already reconciled.
	LastBestHash rpc.Hash

	// Finality trigger: highest block number already scanned.
	LastFinalized uint64

	// Observations from the latest tick, feeding the sleep computation.
	LatestSlot     uint64
	SlotDurationMs uint64
}
