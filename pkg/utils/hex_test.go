package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHex32RoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}

	s := Hex32(key)
	assert.True(t, strings.HasPrefix(s, "0x"))
	assert.Len(t, s, 66)

	back, err := ParseKey32(s)
	require.NoError(t, err)
	assert.Equal(t, key, back)

	// The 0x prefix is optional on input.
	back, err = ParseKey32(strings.TrimPrefix(s, "0x"))
	require.NoError(t, err)
	assert.Equal(t, key, back)
}

func TestParseKey32_Invalid(t *testing.T) {
	_, err := ParseKey32("0x1234")
	assert.Error(t, err, "wrong length")

	_, err = ParseKey32("0x" + strings.Repeat("zz", 32))
	assert.Error(t, err, "not hex")
}
