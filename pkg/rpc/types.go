package rpc

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Hash is a 0x-prefixed block hash as the node reports it.
type Hash string

// HexUint64 decodes the hex-quantity JSON encoding substrate uses for block
// numbers ("0x1a2b").
type HexUint64 uint64

// UnmarshalJSON implements json.Unmarshaler.
func (h *HexUint64) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		// Some nodes emit plain numbers for small heights.
		var n uint64
		if err2 := json.Unmarshal(data, &n); err2 == nil {
			*h = HexUint64(n)
			return nil
		}
		return err
	}
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return fmt.Errorf("invalid hex number %q: %w", s, err)
	}
	*h = HexUint64(n)
	return nil
}

// Header is the subset of a substrate block header the monitor reads: the
// block number and the digest logs carrying the Aura pre-runtime slot.
type Header struct {
	ParentHash     Hash      `json:"parentHash"`
	Number         HexUint64 `json:"number"`
	StateRoot      Hash      `json:"stateRoot"`
	ExtrinsicsRoot Hash      `json:"extrinsicsRoot"`
	Digest         struct {
		Logs []string `json:"logs"`
	} `json:"digest"`
}
