package keystore

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/substrate-tools/auramon/pkg/schedule"
	"github.com/substrate-tools/auramon/pkg/utils"
)

// KeyTypeAura is the Substrate key-type tag for the Aura consensus role,
// "aura" as hex. Keystore filenames are <key type><public key> in hex.
const KeyTypeAura = "61757261"

var (
	// ErrNoKey means the keystore holds no Aura key at all.
	ErrNoKey = errors.New("no aura key found in keystore")
	// ErrAmbiguous means the keystore holds two or more distinct Aura keys
	// and the resolver refuses to guess.
	ErrAmbiguous = errors.New("multiple aura keys found in keystore")
)

// Identity is the resolved validator identity. Immutable once resolved;
// the node must still confirm it holds the key before monitoring starts.
type Identity struct {
	Key schedule.Authority
	Hex string // 0x-prefixed public key hex
}

// Detect scans a node keystore directory for the operator's Aura public
// key. A file counts when its normalized name (lowercased, 0x stripped) is
// the aura key-type tag followed by exactly 64 hex characters. Matches are
// deduplicated; exactly one distinct key must remain.
func Detect(dir string) (Identity, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return Identity{}, fmt.Errorf("read keystore %q: %w", dir, err)
	}

	var found []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := strings.ToLower(strings.TrimSpace(e.Name()))
		name = strings.TrimPrefix(name, "0x")
		if len(name) != len(KeyTypeAura)+64 || !strings.HasPrefix(name, KeyTypeAura) {
			continue
		}
		pubHex := name[len(KeyTypeAura):]
		if !isHex(pubHex) {
			continue
		}
		found = append(found, "0x"+pubHex)
	}

	sort.Strings(found)
	found = dedup(found)

	switch len(found) {
	case 0:
		return Identity{}, fmt.Errorf("%w: %q (expected a file named %s<64 hex chars>)", ErrNoKey, dir, KeyTypeAura)
	case 1:
	default:
		return Identity{}, fmt.Errorf("%w: %q holds %v; keep one aura key or point at a dedicated keystore", ErrAmbiguous, dir, found)
	}

	key, err := utils.ParseKey32(found[0])
	if err != nil {
		return Identity{}, fmt.Errorf("keystore entry is not a 32-byte key: %w", err)
	}
	return Identity{Key: key, Hex: found[0]}, nil
}

func isHex(s string) bool {
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9':
		case c >= 'a' && c <= 'f':
		default:
			return false
		}
	}
	return len(s) > 0
}

func dedup(in []string) []string {
	out := in[:0]
	var prev string
	for i, s := range in {
		if i == 0 || s != prev {
			out = append(out, s)
		}
		prev = s
	}
	return out
}
