package security

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// tempPasswordBytes yields a 12 character hex credential
const tempPasswordBytes = 6

// GenerateTempPassword returns a random one-time password for a new account
func GenerateTempPassword() (string, error) {
	b := make([]byte, tempPasswordBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error generating temporary password: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errors.New("password is empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash
func CheckPassword(hash, password string) bool {
	if hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
