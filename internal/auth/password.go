package auth

import (
	"golang.org/x/crypto/bcrypt"
)

// bcryptCost of 12 keeps a single hash around 250ms on current hardware,
// slow enough for an admin console that never hashes in bulk.
const bcryptCost = 12

// HashPassword returns the bcrypt hash of a plaintext password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// VerifyPassword reports whether password matches the stored hash.
// A nil error means the password is correct.
func VerifyPassword(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
