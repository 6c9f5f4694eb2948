package utils

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/harentsoaR/wellness-api/internal/apperrors"
)

// bcrypt only reads the first 72 bytes.
const maxPasswordBytes = 72

var ErrPasswordTooLong = apperrors.Validation("PASSWORD_TOO_LONG", "password must be at most 72 bytes")

// HashPassword hashes password with bcrypt at the given cost.
func HashPassword(password string, cost int) (string, error) {
	if len(password) > maxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func CheckPasswordHash(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
