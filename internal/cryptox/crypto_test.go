package cryptox

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveKey_DeterministicPerInfo(t *testing.T) {
	secret := []byte("device-secret-device-secret-0000")

	a, err := DeriveKey(secret, nil, "session token")
	require.NoError(t, err)
	b, err := DeriveKey(secret, nil, "session token")
	require.NoError(t, err)
	c, err := DeriveKey(secret, nil, "something else")
	require.NoError(t, err)

	assert.Len(t, a, 32)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}

func TestSealer_RoundTripAndTamper(t *testing.T) {
	key, err := DeriveKey([]byte("k"), []byte("salt"), "test")
	require.NoError(t, err)
	s, err := NewSealer(key)
	require.NoError(t, err)

	sealed := s.Seal([]byte("eyJhbGciOi.token"))
	assert.False(t, bytes.Contains(sealed, []byte("token")), "plaintext must not leak")

	plain, err := s.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "eyJhbGciOi.token", string(plain))

	sealed[len(sealed)-1] ^= 0xff
	_, err = s.Open(sealed)
	assert.Error(t, err)

	_, err = s.Open([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCiphertextTooShort)
}

func TestNewSealer_RejectsBadKey(t *testing.T) {
	_, err := NewSealer([]byte("short"))
	assert.Error(t, err)
}

func TestLoadOrCreateDeviceKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "device.key")

	first, err := LoadOrCreateDeviceKey(path)
	require.NoError(t, err)
	assert.Len(t, first, 32)

	second, err := LoadOrCreateDeviceKey(path)
	require.NoError(t, err)
	assert.Equal(t, first, second, "key must be stable across runs")

	require.NoError(t, os.WriteFile(path, []byte("bad"), 0o600))
	_, err = LoadOrCreateDeviceKey(path)
	assert.Error(t, err)
}
