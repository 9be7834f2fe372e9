package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	for _, n := range []int{0, 1, 16, 32} {
		s, err := MakeRandHexString(n)
		require.NoError(t, err)
		assert.Len(t, s, 2*n)
		_, err = hex.DecodeString(s)
		assert.NoError(t, err)
	}
}

func TestMakeRandHexString_SlotSlugsDiffer(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		s, err := MakeRandHexString(32)
		require.NoError(t, err)
		require.False(t, seen[s], "duplicate slug %s", s)
		seen[s] = true
	}
}

func TestWipeByteArray(t *testing.T) {
	pw := []byte("correct-password")
	WipeByteArray(pw)
	assert.Equal(t, make([]byte, len("correct-password")), pw)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}
