// internal/pkg/password/password.go
package password

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Result is the outcome of a verification.
type Result struct {
	OK bool
	// NeedsRehash is set when the stored value is not a bcrypt hash of the
	// current cost and the caller should persist a fresh hash.
	NeedsRehash bool
}

// Hasher hashes and verifies account passwords.
type Hasher struct {
	cost              int
	plaintextFallback bool
	logger            *zap.Logger
}

// NewHasher builds a Hasher. plaintextFallback enables the legacy
// plaintext comparison and must only be passed outside production.
func NewHasher(cost int, plaintextFallback bool, logger *zap.Logger) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hasher{cost: cost, plaintextFallback: plaintextFallback, logger: logger}
}

func (h *Hasher) Hash(plain string) (string, error) {
	if plain == "" {
		return "", errors.New("password is empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify compares a candidate against the stored value.
func (h *Hasher) Verify(candidate, stored string) Result {
	if candidate == "" || stored == "" {
		return Result{}
	}

	err := bcrypt.CompareHashAndPassword([]byte(stored), []byte(candidate))
	if err == nil {
		cost, cErr := bcrypt.Cost([]byte(stored))
		return Result{OK: true, NeedsRehash: cErr == nil && cost < h.cost}
	}

	if !h.plaintextFallback || isBcryptHash(stored) {
		return Result{}
	}

	if subtle.ConstantTimeCompare([]byte(candidate), []byte(stored)) == 1 {
		h.logger.Warn("legacy plaintext password accepted, password will be rehashed")
		return Result{OK: true, NeedsRehash: true}
	}
	return Result{}
}

func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}
