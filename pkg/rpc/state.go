package rpc

import (
	"context"
	"encoding/binary"
	"encoding/hex"
	"fmt"

	"github.com/OneOfOne/xxhash"
	"github.com/substrate-tools/auramon/pkg/schedule"
)

// twox128 is substrate's storage-key hasher: two seeded xxhash64 runs over
// the same input, concatenated little-endian.
func twox128(data []byte) []byte {
	out := make([]byte, 16)
	binary.LittleEndian.PutUint64(out[:8], xxhash.Checksum64S(data, 0))
	binary.LittleEndian.PutUint64(out[8:], xxhash.Checksum64S(data, 1))
	return out
}

// storageKey builds the 0x-hex key for a plain (unhashed-map-free) storage
// item: twox128(pallet) ++ twox128(item).
func storageKey(pallet, item string) string {
	key := append(twox128([]byte(pallet)), twox128([]byte(item))...)
	return "0x" + hex.EncodeToString(key)
}

var (
	auraAuthoritiesKey = storageKey("Aura", "Authorities")
	timestampNowKey    = storageKey("Timestamp", "Now")
)

// getStorage fetches a raw storage value, optionally at a specific block.
// The second return is false when the key holds no value at that block.
func (c *Client) getStorage(ctx context.Context, key string, at *Hash) ([]byte, bool, error) {
	params := []any{key}
	if at != nil {
		params = append(params, string(*at))
	}
	var value string
	if err := c.call(ctx, "state_getStorage", params, &value); err != nil {
		return nil, false, err
	}
	if value == "" {
		return nil, false, nil
	}
	raw, err := decodeHexBytes(value)
	if err != nil {
		return nil, false, fmt.Errorf("state_getStorage %s: %w", key, err)
	}
	return raw, true, nil
}

// Authorities fetches Aura::Authorities at the best block and decodes the
// SCALE Vec of 32-byte public keys. A missing value decodes as an empty set.
func (c *Client) Authorities(ctx context.Context) ([]schedule.Authority, error) {
	raw, ok, err := c.getStorage(ctx, auraAuthoritiesKey, nil)
	if err != nil {
		return nil, fmt.Errorf("fetch authorities: %w", err)
	}
	if !ok {
		return []schedule.Authority{}, nil
	}
	n, off, err := decodeCompactLen(raw)
	if err != nil {
		return nil, fmt.Errorf("decode authorities: %w", err)
	}
	if uint64(len(raw)-off) != n*32 {
		return nil, fmt.Errorf("decode authorities: want %d keys, have %d payload bytes", n, len(raw)-off)
	}
	auths := make([]schedule.Authority, n)
	for i := uint64(0); i < n; i++ {
		copy(auths[i][:], raw[off+int(i)*32:])
	}
	return auths, nil
}

// TimestampNow reads the Timestamp::Now storage value (milliseconds since
// the unix epoch), optionally at a specific block hash. false when unset.
func (c *Client) TimestampNow(ctx context.Context, at *Hash) (uint64, bool, error) {
	raw, ok, err := c.getStorage(ctx, timestampNowKey, at)
	if err != nil {
		return 0, false, fmt.Errorf("fetch timestamp: %w", err)
	}
	if !ok {
		return 0, false, nil
	}
	if len(raw) < 8 {
		return 0, false, fmt.Errorf("decode timestamp: short value (%d bytes)", len(raw))
	}
	return binary.LittleEndian.Uint64(raw[:8]), true, nil
}

// SlotDuration returns the Aura slot duration in milliseconds via the
// AuraApi_slot_duration runtime call.
func (c *Client) SlotDuration(ctx context.Context) (uint64, error) {
	var value string
	if err := c.call(ctx, "state_call", []any{"AuraApi_slot_duration", "0x"}, &value); err != nil {
		return 0, fmt.Errorf("slot duration: %w", err)
	}
	raw, err := decodeHexBytes(value)
	if err != nil {
		return 0, fmt.Errorf("slot duration: %w", err)
	}
	if len(raw) < 8 {
		return 0, fmt.Errorf("slot duration: short runtime response (%d bytes)", len(raw))
	}
	dur := binary.LittleEndian.Uint64(raw[:8])
	if dur == 0 {
		return 0, fmt.Errorf("slot duration: runtime reports zero")
	}
	return dur, nil
}
