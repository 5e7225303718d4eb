package keystore

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	pubA = "11ab45c0bd43bdcf80e6b7f431b2a36c4f9aab0c7e8b2fce6e7c1a9d1f0e2b33"
	pubB = "22cd56d1ce54cedf91f7c8a542c3b47d5faabc1d8f9c3adf7f8d2baf2a1f3c44"
)

func writeKeys(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("{}"), 0o600))
	}
	return dir
}

// TestDetect_SingleKey resolves the one well-formed aura entry.
func TestDetect_SingleKey(t *testing.T) {
	dir := writeKeys(t, KeyTypeAura+pubA)

	id, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "0x"+pubA, id.Hex)
	assert.Equal(t, byte(0x11), id.Key[0])
	assert.Equal(t, byte(0x33), id.Key[31])
}

// TestDetect_NormalizesNames accepts 0x prefixes and uppercase hex, and
// deduplicates entries that normalize to the same key.
func TestDetect_NormalizesNames(t *testing.T) {
	dir := writeKeys(t,
		"0x"+KeyTypeAura+pubA,
		strings.ToUpper(KeyTypeAura+pubA),
	)

	id, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "0x"+pubA, id.Hex)
}

// TestDetect_IgnoresNonMatching skips files that are not aura keystore
// entries instead of failing on them.
func TestDetect_IgnoresNonMatching(t *testing.T) {
	dir := writeKeys(t,
		KeyTypeAura+pubA,
		"6772616e"+pubB,            // grandpa key, wrong role tag
		KeyTypeAura+pubB[:60],      // truncated
		KeyTypeAura+pubB[:62]+"zz", // non-hex tail
		"README.md",
	)

	id, err := Detect(dir)
	require.NoError(t, err)
	assert.Equal(t, "0x"+pubA, id.Hex)
}

// TestDetect_NoKey fails closed when nothing matches.
func TestDetect_NoKey(t *testing.T) {
	dir := writeKeys(t, "README.md")

	_, err := Detect(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoKey)
}

// TestDetect_Ambiguous refuses to pick between two distinct keys.
func TestDetect_Ambiguous(t *testing.T) {
	dir := writeKeys(t, KeyTypeAura+pubA, KeyTypeAura+pubB)

	_, err := Detect(dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAmbiguous)
}

// TestDetect_MissingDir surfaces the filesystem error.
func TestDetect_MissingDir(t *testing.T) {
	_, err := Detect(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
