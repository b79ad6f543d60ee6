// Package password hashes API keys with bcrypt.
package password

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/crypto/bcrypt"
)

const keyBytes = 24

func Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}

// NewAPIKey returns a random key prefixed with "ak_" and its bcrypt hash.
func NewAPIKey() (string, string, error) {
	buf := make([]byte, keyBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", "", err
	}
	plain := "ak_" + hex.EncodeToString(buf)
	hash, err := Hash(plain)
	if err != nil {
		return "", "", err
	}
	return plain, hash, nil
}
