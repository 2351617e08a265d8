package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestCipher_RoundTrip(t *testing.T) {
	cipher, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("hunter2")
	require.NoError(t, err)
	assert.NotContains(t, encrypted, "hunter2")

	decrypted, err := cipher.Decrypt(encrypted)
	require.NoError(t, err)
	assert.Equal(t, "hunter2", decrypted)
}

func TestCipher_NonDeterministicCiphertext(t *testing.T) {
	cipher, err := NewCipher(testKey)
	require.NoError(t, err)

	first, err := cipher.Encrypt("same input")
	require.NoError(t, err)
	second, err := cipher.Encrypt("same input")
	require.NoError(t, err)

	assert.NotEqual(t, first, second, "GCM nonces must differ per encryption")
}

func TestCipher_InvalidKey(t *testing.T) {
	_, err := NewCipher("not-hex")
	assert.Error(t, err)

	_, err = NewCipher("abcd")
	assert.Error(t, err)
}

func TestCipher_TamperedCiphertext(t *testing.T) {
	cipher, err := NewCipher(testKey)
	require.NoError(t, err)

	encrypted, err := cipher.Encrypt("secret")
	require.NoError(t, err)

	tampered := strings.Replace(encrypted, encrypted[len(encrypted)-2:], "00", 1)
	_, err = cipher.Decrypt(tampered)
	assert.Error(t, err)
}

func TestHashPassword_Stable(t *testing.T) {
	assert.Equal(t, HashPassword("pw"), HashPassword("pw"))
	assert.NotEqual(t, HashPassword("pw"), HashPassword("pw2"))
}

func TestNextID_MonotonicAndUnique(t *testing.T) {
	seen := make(map[uint64]struct{})
	var last uint64
	for i := 0; i < 1000; i++ {
		id := NextID()
		_, dup := seen[id]
		require.False(t, dup, "duplicate id generated")
		seen[id] = struct{}{}
		require.GreaterOrEqual(t, id, last)
		last = id
	}
}
