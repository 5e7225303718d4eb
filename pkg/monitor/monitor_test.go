package monitor

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/substrate-tools/auramon/pkg/db"
	"github.com/substrate-tools/auramon/pkg/render"
	"github.com/substrate-tools/auramon/pkg/rpc"
	"github.com/substrate-tools/auramon/pkg/schedule"
)

func auth(b byte) schedule.Authority {
	var a schedule.Authority
	for i := range a {
		a[i] = b
	}
	return a
}

// auraLog encodes an Aura PreRuntime digest item for the given slot, the
// way a node serializes it in header JSON.
func auraLog(slot uint64) string {
	raw := []byte{0x06, 'a', 'u', 'r', 'a', 8 << 2}
	var le [8]byte
	binary.LittleEndian.PutUint64(le[:], slot)
	raw = append(raw, le[:]...)
	return "0x" + hex.EncodeToString(raw)
}

func headerWithSlot(number uint64, slot uint64) *rpc.Header {
	var h rpc.Header
	h.Number = rpc.HexUint64(number)
	h.Digest.Logs = []string{auraLog(slot)}
	return &h
}

// fakeChain is a scripted ChainClient.
type fakeChain struct {
	auths         []schedule.Authority
	authsErr      error
	slotDur       uint64
	tsMs          uint64
	bestHash      rpc.Hash
	finalizedHash rpc.Hash
	headers       map[rpc.Hash]*rpc.Header
	blockHashes   map[uint64]rpc.Hash
	failHashFor   map[uint64]bool
	failHeaderFor map[rpc.Hash]bool
	hashCalls     []uint64
}

func (f *fakeChain) Authorities(context.Context) ([]schedule.Authority, error) {
	return f.auths, f.authsErr
}

func (f *fakeChain) TimestampNow(_ context.Context, at *rpc.Hash) (uint64, bool, error) {
	return f.tsMs, true, nil
}

func (f *fakeChain) SlotDuration(context.Context) (uint64, error) {
	return f.slotDur, nil
}

func (f *fakeChain) BestBlockHash(context.Context) (rpc.Hash, error) {
	return f.bestHash, nil
}

func (f *fakeChain) BlockHashByNumber(_ context.Context, number uint64) (rpc.Hash, bool, error) {
	f.hashCalls = append(f.hashCalls, number)
	if f.failHashFor[number] {
		return "", false, fmt.Errorf("scripted hash failure for %d", number)
	}
	h, ok := f.blockHashes[number]
	return h, ok, nil
}

func (f *fakeChain) FinalizedHeadHash(context.Context) (rpc.Hash, error) {
	return f.finalizedHash, nil
}

func (f *fakeChain) HeaderByHash(_ context.Context, hash rpc.Hash) (*rpc.Header, error) {
	if f.failHeaderFor[hash] {
		return nil, fmt.Errorf("scripted header failure for %s", hash)
	}
	return f.headers[hash], nil
}

func (f *fakeChain) HasKey(context.Context, string, string) (bool, error) {
	return true, nil
}

// memStore applies the same status guards as the SQLite store, in memory,
// and records which operations were attempted.
type memStore struct {
	epochs         map[uint64]db.EpochInfo
	rows           map[uint64]*memRow
	scheduleWrites int
	mintCalls      []uint64
	finalizeCalls  []uint64
}

type memRow struct {
	epoch   uint64
	planned string
	update  db.BlockUpdate
	status  string
}

func newMemStore() *memStore {
	return &memStore{epochs: map[uint64]db.EpochInfo{}, rows: map[uint64]*memRow{}}
}

func (m *memStore) UpsertEpochInfo(_ context.Context, info db.EpochInfo) error {
	m.epochs[info.Epoch] = info
	return nil
}

func (m *memStore) InsertSchedule(_ context.Context, epoch uint64, planned []db.PlannedSlot) error {
	m.scheduleWrites++
	for _, p := range planned {
		row, ok := m.rows[p.Slot]
		if !ok {
			m.rows[p.Slot] = &memRow{epoch: epoch, planned: p.PlannedTimeUTC, status: db.StatusSchedule}
			continue
		}
		if row.status == db.StatusSchedule {
			row.epoch = epoch
			row.planned = p.PlannedTimeUTC
		}
	}
	return nil
}

func (m *memStore) MarkMinted(_ context.Context, u db.BlockUpdate) error {
	m.mintCalls = append(m.mintCalls, u.Slot)
	if row, ok := m.rows[u.Slot]; ok && row.status == db.StatusSchedule {
		row.status = db.StatusMint
		row.update = u
	}
	return nil
}

func (m *memStore) MarkFinalized(_ context.Context, u db.BlockUpdate) error {
	m.finalizeCalls = append(m.finalizeCalls, u.Slot)
	if row, ok := m.rows[u.Slot]; ok && (row.status == db.StatusSchedule || row.status == db.StatusMint) {
		row.status = db.StatusFinality
		row.update = u
	}
	return nil
}

func (m *memStore) Close() error { return nil }

func newTestMonitor(t *testing.T, chain rpc.ChainClient, store db.Store, cfg Config) *Monitor {
	t.Helper()
	printer, err := render.New("never", "UTC")
	require.NoError(t, err)
	identity := auth('B')
	return &Monitor{
		Chain:       chain,
		Store:       store,
		Logger:      zap.NewNop(),
		Printer:     printer,
		Config:      cfg,
		Identity:    identity,
		IdentityHex: "0x" + hex.EncodeToString(identity[:]),
	}
}

// threeAuthChain scripts a chain with authorities [A,B,C], slot duration
// 6s, best head at the given slot.
func threeAuthChain(bestNumber, bestSlot uint64) *fakeChain {
	best := rpc.Hash(fmt.Sprintf("0xbest%d", bestNumber))
	final := rpc.Hash("0xfinal0")
	return &fakeChain{
		auths:         []schedule.Authority{auth('A'), auth('B'), auth('C')},
		slotDur:       6000,
		tsMs:          bestSlot * 6000,
		bestHash:      best,
		finalizedHash: final,
		headers: map[rpc.Hash]*rpc.Header{
			best:  headerWithSlot(bestNumber, bestSlot),
			final: headerWithSlot(0, 0),
		},
		blockHashes:   map[uint64]rpc.Hash{},
		failHashFor:   map[uint64]bool{},
		failHeaderFor: map[rpc.Hash]bool{},
	}
}

// TestTick_FirstPass covers a cold start: epoch metadata is recorded, the
// own-slot schedule lands, and the current head (our slot) mints.
func TestTick_FirstPass(t *testing.T) {
	chain := threeAuthChain(7, 4)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)

	// State observations.
	assert.Equal(t, uint64(4), st.LatestSlot)
	assert.Equal(t, uint64(6000), st.SlotDurationMs)
	assert.True(t, st.HasEpoch)
	assert.Equal(t, uint64(0), st.Epoch)
	assert.True(t, st.PrintedIdentity)
	assert.Equal(t, chain.bestHash, st.LastBestHash)

	// Epoch row.
	info, ok := store.epochs[0]
	require.True(t, ok)
	assert.Equal(t, uint64(0), info.StartSlot)
	assert.Equal(t, uint64(5), info.EndSlot)
	assert.Equal(t, 3, info.AuthoritySetLen)

	// Schedule: identity B owns slots 1 and 4 in epoch 0.
	assert.Equal(t, 1, store.scheduleWrites)
	require.Contains(t, store.rows, uint64(1))
	require.Contains(t, store.rows, uint64(4))

	// Head slot 4 belongs to B, so it minted.
	assert.Equal(t, []uint64{4}, store.mintCalls)
	assert.Equal(t, db.StatusMint, store.rows[4].status)
	assert.Equal(t, uint64(7), store.rows[4].update.BlockNumber)
	assert.Equal(t, db.StatusSchedule, store.rows[1].status)
}

// TestTick_RepeatIsQuiet re-runs an identical tick with the carried state:
// no new schedule write, no re-mint, identical stored state.
func TestTick_RepeatIsQuiet(t *testing.T) {
	chain := threeAuthChain(7, 4)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)
	mintedAt := store.rows[4].update

	st, err = m.Tick(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, 1, store.scheduleWrites, "unchanged schedule is not rewritten")
	assert.Equal(t, []uint64{4}, store.mintCalls, "an already observed head does not re-mint")
	assert.Equal(t, mintedAt, store.rows[4].update)
}

// TestTick_NewHeadSameSlotIsIdempotent verifies that a different head
// carrying an already minted slot leaves the stored record untouched.
func TestTick_NewHeadSameSlotIsIdempotent(t *testing.T) {
	chain := threeAuthChain(7, 4)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)
	first := store.rows[4].update

	// A reorged head at the same slot.
	chain.bestHash = rpc.Hash("0xreorg")
	chain.headers[chain.bestHash] = headerWithSlot(8, 4)

	_, err = m.Tick(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, []uint64{4, 4}, store.mintCalls, "the transition is attempted again")
	assert.Equal(t, first, store.rows[4].update, "but the stored state does not drift")
}

// TestTick_AuthorityChangeMidEpoch verifies a reordered authority set
// within the same epoch re-records epoch info and rewrites the schedule.
func TestTick_AuthorityChangeMidEpoch(t *testing.T) {
	chain := threeAuthChain(7, 4)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)
	require.Equal(t, 1, store.scheduleWrites)

	// Same members, different order: fingerprint must flip and B's slots
	// move (B now leads, owning slots 0 and 3).
	chain.auths = []schedule.Authority{auth('B'), auth('A'), auth('C')}
	st, err = m.Tick(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, 2, store.scheduleWrites)
	assert.Contains(t, store.rows, uint64(0))
	assert.Contains(t, store.rows, uint64(3))
	assert.True(t, st.HasScheduleFingerprint)
}

// TestTick_NotInAuthorities verifies no schedule is computed when the local
// key holds no authority seat.
func TestTick_NotInAuthorities(t *testing.T) {
	chain := threeAuthChain(7, 4)
	chain.auths = []schedule.Authority{auth('A'), auth('C')}
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)

	assert.Zero(t, store.scheduleWrites)
	assert.True(t, st.HasEpoch, "the epoch transition is still tracked")
	assert.False(t, st.AuthorPresent)
	assert.Contains(t, store.epochs, uint64(0), "epoch metadata is still recorded")
}

// TestTick_EmptyAuthoritySet must not panic or schedule anything.
func TestTick_EmptyAuthoritySet(t *testing.T) {
	chain := threeAuthChain(7, 4)
	chain.auths = nil
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	_, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)
	assert.Zero(t, store.scheduleWrites)
	assert.Empty(t, store.mintCalls)
}

// TestTick_DigestlessHeadFallsBackToTimestamp verifies the latest slot is
// derived from Timestamp::Now / slot duration when the head carries no
// aura digest, and that no mint is attempted for such a head.
func TestTick_DigestlessHeadFallsBackToTimestamp(t *testing.T) {
	chain := threeAuthChain(7, 4)
	hdr := &rpc.Header{Number: rpc.HexUint64(7)}
	chain.headers[chain.bestHash] = hdr
	chain.tsMs = 10 * 6000 // quotient puts us at slot 10, epoch 1

	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st, err := m.Tick(context.Background(), PollState{})
	require.NoError(t, err)

	assert.Equal(t, uint64(10), st.LatestSlot)
	assert.Equal(t, uint64(1), st.Epoch)
	assert.Empty(t, store.mintCalls)
}

// TestTick_FinalityRangeWithSkip is the worked finality example: marker at
// 10, finalized head at 13, block 12 unresolvable. Blocks 11 and 13 still
// finalize, in ascending order, and the marker lands on 13.
func TestTick_FinalityRangeWithSkip(t *testing.T) {
	chain := threeAuthChain(14, 4)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	chain.finalizedHash = rpc.Hash("0xfinal13")
	chain.headers[chain.finalizedHash] = headerWithSlot(13, 40)
	for _, n := range []uint64{11, 13} {
		h := rpc.Hash(fmt.Sprintf("0xblk%d", n))
		chain.blockHashes[n] = h
		chain.headers[h] = headerWithSlot(n, 30+n-10) // slots 31, 33
	}
	chain.failHashFor[12] = true

	st := PollState{LastFinalized: 10}
	st, err := m.Tick(context.Background(), st)
	require.NoError(t, err)

	assert.Equal(t, []uint64{11, 12, 13}, chain.hashCalls, "the whole range is attempted in order")
	assert.Equal(t, []uint64{31, 33}, store.finalizeCalls, "the failed block is skipped, not fatal")
	assert.Equal(t, uint64(13), st.LastFinalized, "the marker advances past the skipped block")
}

// TestTick_FinalityIdempotent verifies a re-observed finalized head does
// not rescan.
func TestTick_FinalityIdempotent(t *testing.T) {
	chain := threeAuthChain(14, 4)
	chain.finalizedHash = rpc.Hash("0xfinal13")
	chain.headers[chain.finalizedHash] = headerWithSlot(13, 40)
	store := newMemStore()
	m := newTestMonitor(t, chain, store, Config{EpochSize: 6, PollInterval: 30 * time.Second})

	st := PollState{LastFinalized: 13}
	st, err := m.Tick(context.Background(), st)
	require.NoError(t, err)

	assert.Empty(t, chain.hashCalls)
	assert.Empty(t, store.finalizeCalls)
	assert.Equal(t, uint64(13), st.LastFinalized)
}

// TestTick_TransportErrorIsFatal verifies an RPC failure aborts the tick.
func TestTick_TransportErrorIsFatal(t *testing.T) {
	chain := threeAuthChain(7, 4)
	chain.authsErr = fmt.Errorf("scripted transport failure")
	m := newTestMonitor(t, chain, newMemStore(), Config{EpochSize: 6, PollInterval: 30 * time.Second})

	_, err := m.Tick(context.Background(), PollState{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "scripted transport failure")
}

// TestSleepFor covers the adaptive interval: pinned epoch, boundary within
// the cap, and boundary beyond the cap.
func TestSleepFor(t *testing.T) {
	pinned := uint64(3)
	for _, tc := range []struct {
		name string
		cfg  Config
		st   PollState
		want time.Duration
	}{
		{
			name: "pinned epoch sleeps the fixed interval",
			cfg:  Config{EpochSize: 6, EpochOverride: &pinned, PollInterval: 30 * time.Second},
			st:   PollState{LatestSlot: 4, SlotDurationMs: 6000},
			want: 30 * time.Second,
		},
		{
			name: "near boundary wakes just past it",
			cfg:  Config{EpochSize: 6, PollInterval: 30 * time.Second},
			// slot 4 of epoch 0: two slots (12s) to the boundary.
			st:   PollState{LatestSlot: 4, SlotDurationMs: 6000},
			want: 13 * time.Second,
		},
		{
			name: "distant boundary is capped",
			cfg:  Config{EpochSize: 1200, PollInterval: 30 * time.Second},
			st:   PollState{LatestSlot: 0, SlotDurationMs: 6000},
			want: 30 * time.Second,
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			m := newTestMonitor(t, threeAuthChain(1, 1), newMemStore(), tc.cfg)
			assert.Equal(t, tc.want, m.SleepFor(tc.st))
		})
	}
}

// TestConfigValidate rejects unusable configurations before any RPC use.
func TestConfigValidate(t *testing.T) {
	zero := uint64(0)
	assert.Error(t, Config{EpochSize: 0, PollInterval: time.Second}.Validate())
	assert.Error(t, Config{EpochSize: 6, PollInterval: 0}.Validate())
	assert.Error(t, Config{EpochSize: 6, PollInterval: time.Second, SlotsOverride: &zero}.Validate())
	assert.NoError(t, Config{EpochSize: 6, PollInterval: time.Second}.Validate())
}
