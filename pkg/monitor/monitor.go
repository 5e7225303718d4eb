// Package monitor drives the slot-schedule reconciliation loop: one tick
// fetches chain state, detects authority-set and epoch changes, recomputes
// the local validator's slot assignment, advances per-slot lifecycle
// records, and persists everything through the store's guarded upserts.
package monitor

import (
	"context"
	"fmt"
	"time"

	"github.com/substrate-tools/auramon/pkg/db"
	"github.com/substrate-tools/auramon/pkg/render"
	"github.com/substrate-tools/auramon/pkg/rpc"
	"github.com/substrate-tools/auramon/pkg/schedule"
	"github.com/substrate-tools/auramon/pkg/utils"
	"go.uber.org/zap"
)

// Config is the reconciliation policy: epoch framing, operator overrides
// and the watch-mode polling ceiling.
type Config struct {
	// EpochSize is the number of slots sharing one authority set.
	EpochSize uint64
	// EpochOverride pins the scanned epoch; when set the adaptive sleep
	// degrades to the fixed PollInterval.
	EpochOverride *uint64
	// SlotsOverride scans a different number of slots from the epoch
	// start than EpochSize, without changing epoch framing.
	SlotsOverride *uint64
	// PollInterval is the fixed watch interval and the ceiling for the
	// adaptive sleep.
	PollInterval time.Duration
}

// Validate rejects configurations the loop cannot run with.
func (c Config) Validate() error {
	if c.EpochSize == 0 {
		return fmt.Errorf("epoch size must be positive")
	}
	if c.SlotsOverride != nil && *c.SlotsOverride == 0 {
		return fmt.Errorf("slot window override must be positive")
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	return nil
}

// Monitor owns one reconciliation loop for one validator identity.
type Monitor struct {
	Chain    rpc.ChainClient
	Store    db.Store
	Logger   *zap.Logger
	Printer  *render.Printer
	Config   Config
	Identity schedule.Authority
	// IdentityHex is the 0x form printed and sent to author_hasKey.
	IdentityHex string
}

// Tick runs one fetch → detect → compute → reconcile → persist pass and
// returns the updated loop state. Any RPC failure aborts the tick; callers
// treat that as fatal for the run (per-call retrying is deliberately not
// done here).
func (m *Monitor) Tick(ctx context.Context, st PollState) (PollState, error) {
	auths, err := m.Chain.Authorities(ctx)
	if err != nil {
		return st, err
	}
	fp := schedule.Fingerprint(auths)

	authsChanged := !st.HasAuthoritySet ||
		schedule.Changed(st.AuthorityFingerprint, st.AuthorityLen, fp, len(auths))
	if authsChanged {
		if st.HasAuthoritySet {
			m.Printer.AuthorityChange(st.AuthorityLen, len(auths))
		}
		st.HasAuthoritySet = true
		st.AuthorityFingerprint = fp
		st.AuthorityLen = len(auths)
	}

	slotDurMs, err := m.Chain.SlotDuration(ctx)
	if err != nil {
		return st, err
	}
	tsMs, _, err := m.Chain.TimestampNow(ctx, nil)
	if err != nil {
		return st, err
	}
	bestHash, err := m.Chain.BestBlockHash(ctx)
	if err != nil {
		return st, err
	}
	bestHeader, err := m.Chain.HeaderByHash(ctx, bestHash)
	if err != nil {
		return st, err
	}
	if bestHeader == nil {
		return st, fmt.Errorf("best header %s not found", bestHash)
	}

	// The Aura digest slot is authoritative; the timestamp quotient is
	// only a fallback for digest-less heads.
	latestSlot, ok := rpc.AuraSlotFromHeader(bestHeader)
	if !ok {
		latestSlot = tsMs / slotDurMs
	}
	st.LatestSlot = latestSlot
	st.SlotDurationMs = slotDurMs

	epochIdx := schedule.EpochOf(latestSlot, m.Config.EpochSize)
	if m.Config.EpochOverride != nil {
		epochIdx = *m.Config.EpochOverride
	}
	startSlot := schedule.EpochStart(epochIdx, m.Config.EpochSize)
	epochEndSlot := schedule.EpochEnd(epochIdx, m.Config.EpochSize)
	slotsToScan := m.Config.EpochSize
	if m.Config.SlotsOverride != nil {
		slotsToScan = *m.Config.SlotsOverride
	}

	epochSwitched := !st.HasEpoch || st.Epoch != epochIdx

	if authsChanged || epochSwitched {
		m.Printer.EpochHeader(epochIdx, startSlot, epochEndSlot)
		if err := m.Store.UpsertEpochInfo(ctx, db.EpochInfo{
			Epoch:            epochIdx,
			StartSlot:        startSlot,
			EndSlot:          epochEndSlot,
			AuthoritySetHash: utils.Hex32(fp),
			AuthoritySetLen:  len(auths),
			CreatedAtUTC:     render.UTCms(time.Now().UnixMilli()),
		}); err != nil {
			return st, err
		}
	}

	if !st.PrintedIdentity {
		st.PrintedIdentity = true
		m.Printer.Identity(m.IdentityHex)
	}

	present := schedule.Contains(auths, m.Identity)
	presenceChanged := !st.HasAuthorPresence || st.AuthorPresent != present
	st.HasAuthorPresence = true
	st.AuthorPresent = present

	if !present {
		if authsChanged || presenceChanged || epochSwitched {
			m.Printer.NotInAuthorities(epochIdx, len(auths))
		}
		st.HasEpoch = true
		st.Epoch = epochIdx
	} else {
		mySlots := schedule.OwnSlots(auths, m.Identity, startSlot, slotsToScan)
		myFp := schedule.ScheduleFingerprint(mySlots)
		myChanged := !st.HasScheduleFingerprint || st.ScheduleFingerprint != myFp

		if myChanged || epochSwitched {
			st.HasScheduleFingerprint = true
			st.ScheduleFingerprint = myFp
			st.HasEpoch = true
			st.Epoch = epochIdx

			planned := make([]db.PlannedSlot, 0, len(mySlots))
			for _, slot := range mySlots {
				ms := schedule.ProjectTime(slot, latestSlot, int64(tsMs), slotDurMs)
				planned = append(planned, db.PlannedSlot{Slot: slot, PlannedTimeUTC: render.UTCms(ms)})
			}
			if err := m.Store.InsertSchedule(ctx, epochIdx, planned); err != nil {
				return st, err
			}
			for _, slot := range mySlots {
				m.Printer.Slot(slot, schedule.ProjectTime(slot, latestSlot, int64(tsMs), slotDurMs))
			}
		}
	}

	st, err = m.reconcileMint(ctx, st, auths, bestHash, bestHeader)
	if err != nil {
		return st, err
	}
	return m.reconcileFinality(ctx, st)
}

// SleepFor computes the next watch-mode sleep from the latest tick. A
// pinned epoch always sleeps the fixed interval. Otherwise the loop aims
// slightly past the next epoch boundary, capped at the configured interval
// so a stalled node or a bad estimate can never starve the loop.
func (m *Monitor) SleepFor(st PollState) time.Duration {
	if m.Config.EpochOverride != nil {
		return m.Config.PollInterval
	}
	nextEpochStart := (schedule.EpochOf(st.LatestSlot, m.Config.EpochSize) + 1) * m.Config.EpochSize
	deltaSlots := uint64(1)
	if nextEpochStart > st.LatestSlot {
		deltaSlots = nextEpochStart - st.LatestSlot
	}
	deltaMs := deltaSlots * st.SlotDurationMs
	if deltaMs > uint64(m.Config.PollInterval.Milliseconds()) {
		return m.Config.PollInterval
	}
	// Wake a hair past the theoretical boundary to observe the switch.
	d := time.Duration(deltaMs)*time.Millisecond + time.Second
	if d < time.Second {
		d = time.Second
	}
	return d
}
