package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordMismatch indicates the supplied password does not match the
// stored hash.
var ErrPasswordMismatch = errors.New("auth: password mismatch")

// ErrPasswordRequired indicates an empty password was supplied for hashing.
var ErrPasswordRequired = errors.New("auth: password required")

// HashPassword derives a bcrypt hash suitable for storing with a private
// room record. The plaintext is never retained.
func HashPassword(plaintext string) (string, error) {
	if plaintext == "" {
		return "", ErrPasswordRequired
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// VerifyPassword compares a stored bcrypt hash against a candidate password.
func VerifyPassword(storedHash, candidate string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(candidate)); err != nil {
		return ErrPasswordMismatch
	}
	return nil
}
