package mockapi

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

var errEmptyPassword = errors.New("password must not be empty")

// HashPassword will generate a password hash
func HashPassword(password string) (string, error) {
	if password == "" {
		return "", errEmptyPassword
	}

	// cost 10 keeps the seeded dev accounts fast to verify
	h, err := bcrypt.GenerateFromPassword([]byte(password), 10)
	return string(h), err
}

// ComparePasswordAndHash will validate the given cleartext
// password matches the hashed password
func ComparePasswordAndHash(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}
