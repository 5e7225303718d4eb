package rpc

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strings"
)

// decodeHexBytes strips the 0x prefix the node puts on storage values and
// decodes the remainder.
func decodeHexBytes(s string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid hex payload: %w", err)
	}
	return raw, nil
}

// decodeCompactLen reads a SCALE compact-encoded unsigned integer prefix and
// returns its value plus the number of bytes consumed. Only the forms that
// can realistically prefix an authority vector or digest payload are needed;
// the big-integer form is rejected.
func decodeCompactLen(b []byte) (uint64, int, error) {
	if len(b) == 0 {
		return 0, 0, fmt.Errorf("compact: empty input")
	}
	switch b[0] & 0b11 {
	case 0:
		return uint64(b[0] >> 2), 1, nil
	case 1:
		if len(b) < 2 {
			return 0, 0, fmt.Errorf("compact: truncated two-byte form")
		}
		return uint64(binary.LittleEndian.Uint16(b[:2]) >> 2), 2, nil
	case 2:
		if len(b) < 4 {
			return 0, 0, fmt.Errorf("compact: truncated four-byte form")
		}
		return uint64(binary.LittleEndian.Uint32(b[:4]) >> 2), 4, nil
	default:
		return 0, 0, fmt.Errorf("compact: big-integer form not supported here")
	}
}
