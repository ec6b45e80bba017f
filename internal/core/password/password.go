// Package password hashes and verifies account passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/maalej-ala/stage2-auth/internal/core/domain"
)

// MaxBytes is the longest password bcrypt accepts, counted in bytes.
const MaxBytes = 72

var (
	// ErrEmpty is returned when hashing an empty password.
	ErrEmpty = errors.New("password must not be empty")
	// ErrTooLong is returned when the UTF-8 encoding of a password exceeds
	// MaxBytes. It wraps domain.ErrInvalidInput.
	ErrTooLong = fmt.Errorf("%w: password exceeds %d bytes", domain.ErrInvalidInput, MaxBytes)
)

// Hasher is a bcrypt-backed credential verifier.
type Hasher struct {
	cost int
}

// NewHasher returns a Hasher using cost, or bcrypt.DefaultCost when cost is
// outside bcrypt's accepted range.
func NewHasher(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns a salted bcrypt hash of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrEmpty
	}
	if len(plaintext) > MaxBytes {
		return "", ErrTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches storedHash. A malformed hash is
// treated as a mismatch.
func (h *Hasher) Verify(plaintext, storedHash string) bool {
	if plaintext == "" || storedHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext)) == nil
}
