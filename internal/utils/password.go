package utils

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLen applies to registered and bootstrapped accounts alike.
const MinPasswordLen = 6

// maxPasswordBytes is the most bcrypt will hash.
const maxPasswordBytes = 72

var ErrPasswordTooShort = errors.New("password must be at least 6 characters")

// CheckPassword reports whether plain is acceptable as a new password.
func CheckPassword(plain string) error {
	if len(plain) < MinPasswordLen {
		return ErrPasswordTooShort
	}
	if len(plain) > maxPasswordBytes {
		return bcrypt.ErrPasswordTooLong
	}
	return nil
}

// HashPassword returns a bcrypt hash of plain. A cost outside bcrypt's
// range falls back to bcrypt.DefaultCost.
func HashPassword(plain string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// VerifyPassword compares a stored hash with a login attempt.
func VerifyPassword(hash, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
