// internal/pkg/jwt/loader.go
package jwt

import (
	"fmt"
	"time"
)

// MinSecretLength is the shortest HMAC secret accepted.
const MinSecretLength = 32

const DefaultTTL = 24 * time.Hour

type Config struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type Manager struct {
	Generator *Generator
	Verifier  *Verifier
}

// NewManager builds the generator/verifier pair. There is no fallback
// secret: an empty or short one is a startup error.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < MinSecretLength {
		return nil, fmt.Errorf("jwt secret must be at least %d bytes, got %d", MinSecretLength, len(cfg.Secret))
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	secret := []byte(cfg.Secret)
	return &Manager{
		Generator: NewGenerator(secret, cfg.Issuer, ttl),
		Verifier:  NewVerifier(secret, cfg.Issuer),
	}, nil
}
