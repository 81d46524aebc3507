package sessioncrypt

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestAEADSealer_RoundTrip(t *testing.T) {
	s, err := NewAEADSealer(testKey())
	require.NoError(t, err)

	plaintext := []byte(`{"refresh_token":"R1"}`)
	sealed, err := s.Seal("sess-1", plaintext)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(sealed, []byte("s1:")))
	assert.NotContains(t, string(sealed), "R1")

	opened, err := s.Open("sess-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestAEADSealer_NonceIsRandom(t *testing.T) {
	s, err := NewAEADSealer(testKey())
	require.NoError(t, err)

	a, err := s.Seal("sess-1", []byte("x"))
	require.NoError(t, err)
	b, err := s.Seal("sess-1", []byte("x"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestAEADSealer_Rejects(t *testing.T) {
	s, err := NewAEADSealer(testKey())
	require.NoError(t, err)
	sealed, err := s.Seal("sess-1", []byte("payload"))
	require.NoError(t, err)

	t.Run("other session id", func(t *testing.T) {
		_, err := s.Open("sess-2", sealed)
		require.ErrorIs(t, err, ErrUnsealable)
	})

	t.Run("other key", func(t *testing.T) {
		otherKey := testKey()
		otherKey[0] = 0xff
		other, err := NewAEADSealer(otherKey)
		require.NoError(t, err)
		_, err = other.Open("sess-1", sealed)
		require.ErrorIs(t, err, ErrUnsealable)
	})

	t.Run("plain payload", func(t *testing.T) {
		_, err := s.Open("sess-1", []byte(`{"id":"sess-1"}`))
		require.ErrorIs(t, err, ErrUnsealable)
	})

	t.Run("truncated", func(t *testing.T) {
		_, err := s.Open("sess-1", []byte("s1:abc"))
		require.ErrorIs(t, err, ErrUnsealable)
	})
}

func TestNewAEADSealer_InvalidKey(t *testing.T) {
	_, err := NewAEADSealer([]byte("short"))
	require.ErrorContains(t, err, "must be 32 bytes")

	_, err = NewAEADSealer(make([]byte, 64))
	require.Error(t, err)
}

func TestPlainSealer(t *testing.T) {
	var s PlainSealer
	sealed, err := s.Seal("sess-1", []byte("payload"))
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), sealed)

	opened, err := s.Open("sess-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("payload"), opened)

	_, err = s.Open("sess-1", []byte("s1:ciphertext"))
	require.ErrorIs(t, err, ErrUnsealable)
}

func TestKeyFromString(t *testing.T) {
	_, err := KeyFromString("")
	require.Error(t, err)

	hexKey := strings.Repeat("ab", 32)
	key, err := KeyFromString(hexKey)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0xab}, 32), key)

	key, err = KeyFromString("passphrase")
	require.NoError(t, err)
	assert.Len(t, key, 32)
}
