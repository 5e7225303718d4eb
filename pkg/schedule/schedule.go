package schedule

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// OwnSlots computes which slots in [startSlot, startSlot+windowLen) are
// assigned to identity by round-robin over auths. Deterministic in its
// inputs; an empty authority set yields an empty schedule.
func OwnSlots(auths []Authority, identity Authority, startSlot, windowLen uint64) []uint64 {
	out := []uint64{}
	if len(auths) == 0 {
		return out
	}
	n := uint64(len(auths))
	for i := uint64(0); i < windowLen; i++ {
		slot := startSlot + i
		if auths[slot%n] == identity {
			out = append(out, slot)
		}
	}
	return out
}

// ScheduleFingerprint digests an ascending slot list so a changed own-slot
// assignment is detectable even when the epoch index stayed the same (an
// authority set can change mid-epoch). Slots are encoded as little-endian
// u64 in list order.
func ScheduleFingerprint(slots []uint64) [32]byte {
	h, _ := blake2b.New256(nil)
	var buf [8]byte
	for _, s := range slots {
		binary.LittleEndian.PutUint64(buf[:], s)
		h.Write(buf[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// ProjectTime extrapolates the wall-clock time of slot from a reference
// observation. Slots before the reference are legal and produce times in
// the past; the scan window can cover already-elapsed slots.
func ProjectTime(slot, referenceSlot uint64, referenceTimeMs int64, slotDurationMs uint64) int64 {
	return referenceTimeMs + (int64(slot)-int64(referenceSlot))*int64(slotDurationMs)
}

// EpochStart returns the first slot of epoch given a fixed epoch size.
func EpochStart(epoch, epochSize uint64) uint64 {
	return epoch * epochSize
}

// EpochEnd returns the last slot of epoch given a fixed epoch size.
func EpochEnd(epoch, epochSize uint64) uint64 {
	if epochSize == 0 {
		return EpochStart(epoch, epochSize)
	}
	return EpochStart(epoch, epochSize) + epochSize - 1
}

// EpochOf returns the epoch index that contains slot.
func EpochOf(slot, epochSize uint64) uint64 {
	if epochSize == 0 {
		return 0
	}
	return slot / epochSize
}
