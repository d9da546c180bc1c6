// Package passwd hashes and verifies account passwords with bcrypt.
package passwd

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

const (
	DefaultCost    = 10
	MaxPasswordLen = 72 // bcrypt input limit
)

var ErrPasswordTooLong = errors.New("password exceeds 72 bytes and will be truncated by bcrypt")

type Hasher struct {
	cost int
}

// New returns a Hasher using cost, falling back to DefaultCost when cost is out of bcrypt's range.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}

	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(password string) (string, error) {
	if len(password) > MaxPasswordLen {
		return "", ErrPasswordTooLong
	}

	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		return "", err
	}

	return string(hashedBytes), nil
}

// Check reports whether password matches the stored bcrypt hash.
func (h *Hasher) Check(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
