package monitor

import (
	"context"
	"time"

	"github.com/substrate-tools/auramon/pkg/db"
	"github.com/substrate-tools/auramon/pkg/render"
	"github.com/substrate-tools/auramon/pkg/rpc"
	"github.com/substrate-tools/auramon/pkg/schedule"
	"go.uber.org/zap"
)

// reconcileMint advances a slot to mint when a new best head appears whose
// digest slot is assigned to the local identity. The assignment check uses
// the authority set current at observation time, not the one the schedule
// was computed from; a mid-epoch authority change can make the two views
// disagree (kept as observed behavior).
func (m *Monitor) reconcileMint(ctx context.Context, st PollState, auths []schedule.Authority, bestHash rpc.Hash, bestHeader *rpc.Header) (PollState, error) {
	if st.LastBestHash == bestHash {
		return st, nil
	}
	st.LastBestHash = bestHash

	slot, ok := rpc.AuraSlotFromHeader(bestHeader)
	if !ok {
		// No pre-runtime digest, no attributable slot.
		return st, nil
	}
	expected, ok := schedule.AssignedAt(auths, slot)
	if !ok || expected != m.Identity {
		return st, nil
	}

	update := db.BlockUpdate{
		Slot:            slot,
		BlockNumber:     uint64(bestHeader.Number),
		BlockHash:       string(bestHash),
		ProducedTimeUTC: m.blockTimeUTC(ctx, bestHash),
	}
	if err := m.Store.MarkMinted(ctx, update); err != nil {
		return st, err
	}
	m.Logger.Info("own slot minted",
		zap.Uint64("slot", slot),
		zap.Uint64("block", update.BlockNumber),
		zap.String("hash", update.BlockHash))
	return st, nil
}

// reconcileFinality scans every block number newly covered by the finalized
// head and forces the corresponding slot rows to finality. Individual
// blocks that cannot be resolved are skipped; the marker still advances
// past the whole range afterward, so a skipped block is never revisited
// (kept as observed behavior).
func (m *Monitor) reconcileFinality(ctx context.Context, st PollState) (PollState, error) {
	finalizedHash, err := m.Chain.FinalizedHeadHash(ctx)
	if err != nil {
		return st, err
	}
	finalizedHeader, err := m.Chain.HeaderByHash(ctx, finalizedHash)
	if err != nil {
		return st, err
	}
	if finalizedHeader == nil {
		return st, nil
	}
	finalizedNumber := uint64(finalizedHeader.Number)
	if finalizedNumber <= st.LastFinalized {
		return st, nil
	}

	for n := st.LastFinalized + 1; n <= finalizedNumber; n++ {
		hash, ok, err := m.Chain.BlockHashByNumber(ctx, n)
		if err != nil || !ok {
			m.skipFinalized(n, "hash lookup", err)
			continue
		}
		hdr, err := m.Chain.HeaderByHash(ctx, hash)
		if err != nil || hdr == nil {
			m.skipFinalized(n, "header lookup", err)
			continue
		}
		slot, ok := rpc.AuraSlotFromHeader(hdr)
		if !ok {
			continue
		}
		update := db.BlockUpdate{
			Slot:            slot,
			BlockNumber:     n,
			BlockHash:       string(hash),
			ProducedTimeUTC: m.blockTimeUTC(ctx, hash),
		}
		if err := m.Store.MarkFinalized(ctx, update); err != nil {
			return st, err
		}
	}

	st.LastFinalized = finalizedNumber
	return st, nil
}

func (m *Monitor) skipFinalized(number uint64, stage string, err error) {
	m.Logger.Warn("skipping finalized block",
		zap.Uint64("block", number),
		zap.String("stage", stage),
		zap.Error(err))
}

// blockTimeUTC reads the chain's own timestamp at a block; when the chain
// does not carry one the local clock stands in.
func (m *Monitor) blockTimeUTC(ctx context.Context, hash rpc.Hash) string {
	ms, ok, err := m.Chain.TimestampNow(ctx, &hash)
	if err != nil || !ok {
		return render.UTCms(time.Now().UnixMilli())
	}
	return render.UTCms(int64(ms))
}
