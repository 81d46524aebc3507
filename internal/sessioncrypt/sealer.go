// Package sessioncrypt seals persisted session payloads. Sessions carry refresh and access
// tokens, so anything written to a shared store goes through a Sealer first.
package sessioncrypt

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

// ErrUnsealable is returned by Open when a payload was sealed with another key or format.
var ErrUnsealable = errors.New("session payload cannot be opened")

// Sealer protects a session payload. The session ID is bound to the ciphertext so a payload
// copied under a different key fails to open.
type Sealer interface {
	Seal(sessionID string, plaintext []byte) ([]byte, error)
	Open(sessionID string, sealed []byte) ([]byte, error)
}

// Prefix marks sealed payloads. The version byte allows a future algorithm change.
var sealedPrefixV1 = []byte("s1:")

// AEADSealer implements Sealer with AES-256-GCM.
type AEADSealer struct {
	aead cipher.AEAD
}

// NewAEADSealer constructs an AEADSealer. Key must be 32 bytes (AES-256).
func NewAEADSealer(key []byte) (*AEADSealer, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("create gcm: %w", err)
	}
	return &AEADSealer{aead: aead}, nil
}

// Seal returns prefix||nonce||ciphertext.
func (s *AEADSealer) Seal(sessionID string, plaintext []byte) ([]byte, error) {
	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("read nonce: %w", err)
	}
	out := make([]byte, 0, len(sealedPrefixV1)+len(nonce)+len(plaintext)+s.aead.Overhead())
	out = append(out, sealedPrefixV1...)
	out = append(out, nonce...)
	return s.aead.Seal(out, nonce, plaintext, []byte(sessionID)), nil
}

// Open reverses Seal. Payloads without the prefix, or that fail authentication, yield
// ErrUnsealable.
func (s *AEADSealer) Open(sessionID string, sealed []byte) ([]byte, error) {
	if !bytes.HasPrefix(sealed, sealedPrefixV1) {
		return nil, ErrUnsealable
	}
	data := sealed[len(sealedPrefixV1):]
	nonceSize := s.aead.NonceSize()
	if len(data) < nonceSize {
		return nil, fmt.Errorf("%w: payload too short", ErrUnsealable)
	}
	pt, err := s.aead.Open(nil, data[:nonceSize], data[nonceSize:], []byte(sessionID))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsealable, err)
	}
	return pt, nil
}

// PlainSealer stores payloads as is. Sealed payloads are rejected so a store that lost its key
// does not hand ciphertext to the JSON decoder.
type PlainSealer struct{}

func (PlainSealer) Seal(_ string, plaintext []byte) ([]byte, error) {
	return plaintext, nil
}

func (PlainSealer) Open(_ string, sealed []byte) ([]byte, error) {
	if bytes.HasPrefix(sealed, sealedPrefixV1) {
		return nil, ErrUnsealable
	}
	return sealed, nil
}

// KeyFromString derives a 32-byte key. A 64-character hex string is used directly; any other
// value is hashed with SHA-256.
func KeyFromString(key string) ([]byte, error) {
	if key == "" {
		return nil, errors.New("encryption key is required")
	}
	if decoded, err := hex.DecodeString(key); err == nil && len(decoded) == 32 {
		return decoded, nil
	}
	sum := sha256.Sum256([]byte(key))
	return sum[:], nil
}
