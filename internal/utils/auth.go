package utils

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"

	"github.com/digidoc-org/digidoc-backend/internal/logger"
)

// bcrypt silently ignores input beyond 72 bytes, so anything longer is
// truncated up front rather than letting the tail go unchecked at login.
const maxPasswordBytes = 72

// TruncatePasswordForHash caps the password at bcrypt's 72-byte input limit.
// The cut never lands inside a multi-byte UTF-8 character; partial runes at
// the boundary are dropped entirely.
func TruncatePasswordForHash(password string) string {
	if len(password) <= maxPasswordBytes {
		return password
	}
	truncated := password[:maxPasswordBytes]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated
}

func HashPassword(log *logger.Logger, password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(TruncatePasswordForHash(password)), bcrypt.DefaultCost)
	if err != nil {
		if log != nil {
			log.Warn("Failure to hash password for user. Returning error", "error", err)
		}
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

func CheckPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(TruncatePasswordForHash(password)))
}

func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
