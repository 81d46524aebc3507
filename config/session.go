package config

import (
	"fmt"
	"strings"
	"time"
)

// SessionStoreKind selects the session store implementation.
type SessionStoreKind string

const (
	// SessionStoreMemory keeps sessions in process (single replica).
	SessionStoreMemory SessionStoreKind = "memory"
	// SessionStoreRedis shares sessions across replicas.
	SessionStoreRedis SessionStoreKind = "redis"
)

// UnmarshalText implements encoding.TextUnmarshaler for SessionStoreKind.
func (k *SessionStoreKind) UnmarshalText(text []byte) error {
	v := strings.ToLower(strings.TrimSpace(string(text)))
	switch v {
	case "memory", "redis":
		*k = SessionStoreKind(v)
		return nil
	default:
		return fmt.Errorf("invalid SessionStoreKind: %q (valid options: memory, redis)", v)
	}
}

// SessionConfig controls session persistence.
type SessionConfig struct {
	Store SessionStoreKind `env:"STORE" envDefault:"memory"`

	// TTL is the sliding session lifetime.
	TTL time.Duration `env:"TTL" envDefault:"8h"`

	// MaxEntries bounds the in-memory store.
	MaxEntries int `env:"MAX_ENTRIES" envDefault:"10000"`

	// KeyPrefix namespaces session keys in Redis.
	KeyPrefix string `env:"KEY_PREFIX" envDefault:"rolegate:session:"`

	// EncryptionKey seals session payloads written to Redis. A 64-character hex value is used
	// as is; anything else is hashed to 32 bytes.
	EncryptionKey string `env:"ENCRYPTION_KEY"`
}

// Sanitize clamps values to safe ranges.
func (c *SessionConfig) Sanitize() {
	if c.Store == "" {
		c.Store = SessionStoreMemory
	}
	if c.TTL < time.Minute {
		c.TTL = 8 * time.Hour
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = 10000
	}
	if strings.TrimSpace(c.KeyPrefix) == "" {
		c.KeyPrefix = "rolegate:session:"
	}
	c.EncryptionKey = strings.TrimSpace(c.EncryptionKey)
}

// Validate checks the session settings.
func (c *SessionConfig) Validate() error {
	if c.Store != SessionStoreMemory && c.Store != SessionStoreRedis {
		return fmt.Errorf("invalid SESSION_STORE %q", c.Store)
	}
	return nil
}
