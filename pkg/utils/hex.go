package utils

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex32 renders 32 raw bytes as a 0x-prefixed lowercase hex string.
func Hex32(b [32]byte) string {
	return "0x" + hex.EncodeToString(b[:])
}

// ParseKey32 decodes a 0x-prefixed (or bare) hex string into a 32-byte key.
func ParseKey32(s string) ([32]byte, error) {
	var out [32]byte
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return out, fmt.Errorf("invalid hex key %q: %w", s, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("expected 32-byte hex key, got %d bytes", len(raw))
	}
	copy(out[:], raw)
	return out, nil
}
