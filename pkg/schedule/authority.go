package schedule

import (
	"golang.org/x/crypto/blake2b"
)

// Authority is a 32-byte sr25519 public key as stored in Aura::Authorities.
// Slice order inside an authority set is load-bearing: it defines the
// round-robin slot assignment.
type Authority [32]byte

// Fingerprint digests an ordered authority set for change detection. The
// digest covers the raw key bytes in list order, so both membership and
// ordering changes flip it. Equality testing only, not a security boundary.
func Fingerprint(auths []Authority) [32]byte {
	h, _ := blake2b.New256(nil)
	for _, a := range auths {
		h.Write(a[:])
	}
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Changed reports whether the authority set differs from the previously
// observed one. The length is compared alongside the fingerprint so a
// never-observed previous state (len 0, zero digest) registers as a change.
func Changed(prevFingerprint [32]byte, prevLen int, fingerprint [32]byte, length int) bool {
	return prevFingerprint != fingerprint || prevLen != length
}

// Contains reports whether key is a member of the authority set.
func Contains(auths []Authority, key Authority) bool {
	for _, a := range auths {
		if a == key {
			return true
		}
	}
	return false
}

// AssignedAt returns the authority that owns slot under round-robin
// assignment, and false when the set is empty.
func AssignedAt(auths []Authority, slot uint64) (Authority, bool) {
	if len(auths) == 0 {
		return Authority{}, false
	}
	return auths[slot%uint64(len(auths))], true
}
