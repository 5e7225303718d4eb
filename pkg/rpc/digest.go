package rpc

import (
	"encoding/binary"
)

// SCALE DigestItem variant tag for PreRuntime entries.
const preRuntimeTag = 0x06

// auraEngineID is the 4-byte consensus engine id Aura stamps on its digests.
var auraEngineID = [4]byte{'a', 'u', 'r', 'a'}

// AuraSlotFromHeader extracts the slot number embedded in a header's Aura
// pre-runtime digest. false when the header carries no such digest (e.g. a
// genesis or non-Aura block); the caller decides the fallback.
func AuraSlotFromHeader(h *Header) (uint64, bool) {
	if h == nil {
		return 0, false
	}
	for _, log := range h.Digest.Logs {
		raw, err := decodeHexBytes(log)
		if err != nil || len(raw) < 5 || raw[0] != preRuntimeTag {
			continue
		}
		var engine [4]byte
		copy(engine[:], raw[1:5])
		if engine != auraEngineID {
			continue
		}
		n, off, err := decodeCompactLen(raw[5:])
		if err != nil || n < 8 || len(raw) < 5+off+8 {
			continue
		}
		return binary.LittleEndian.Uint64(raw[5+off : 5+off+8]), true
	}
	return 0, false
}
