package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// ErrPasswordTooLong mirrors bcrypt's 72 byte input limit.
var ErrPasswordTooLong = errors.New("password must be at most 72 bytes")

// ValidatePassword checks the constraints bcrypt imposes.
func ValidatePassword(password string) error {
	if len(password) > 72 {
		return ErrPasswordTooLong
	}
	return nil
}
