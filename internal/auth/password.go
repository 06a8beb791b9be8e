package auth

import (
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const DefaultBcryptRounds = 12

// VerifyPassword compares a plaintext password against a stored bcrypt hash.
// A mismatch is (false, nil); any other bcrypt failure (corrupt hash, bad
// cost) is returned as an error so callers can log it, but callers must map
// both outcomes to the same external response.
func VerifyPassword(password, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("compare password hash: %w", err)
}

// HashPassword hashes a plaintext password with the given bcrypt cost.
// Used by the admin seeding path; regular logins only verify.
func HashPassword(password string, rounds int) (string, error) {
	if rounds <= 0 {
		rounds = DefaultBcryptRounds
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), rounds)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// ValidatePasswordStrength checks a candidate password against the account
// policy and returns every violated rule, not just the first.
func ValidatePasswordStrength(password string) []string {
	var violations []string

	if len(password) < 8 {
		violations = append(violations, "password must be at least 8 characters")
	}

	hasLetter := false
	hasDigit := false
	for _, r := range password {
		switch {
		case unicode.IsLetter(r):
			hasLetter = true
		case unicode.IsDigit(r):
			hasDigit = true
		}
	}
	if !hasLetter {
		violations = append(violations, "password must contain at least one letter")
	}
	if !hasDigit {
		violations = append(violations, "password must contain at least one digit")
	}

	return violations
}
