package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "origo/pkg/domain-errors"
)

// Generate creates a cryptographically secure random key for an OCR
// pipeline account. Returns a base64-encoded string handed out once at
// provisioning time.
func Generate() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("could not generate key: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// Hash creates a bcrypt hash of the provided key for storage.
func Hash(key string) (string, error) {
	if key == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "key cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "key is too long")
		}
		return "", fmt.Errorf("could not hash key: %w", err)
	}
	return string(hashed), nil
}

// Verify checks a presented key against its stored bcrypt hash.
func Verify(key, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
		}
		return fmt.Errorf("could not verify key: %w", err)
	}
	return nil
}

// Keyring holds the provisioned pipeline accounts, name to key hash.
// Loaded once at startup from configuration.
type Keyring struct {
	hashes map[string]string
}

func NewKeyring(hashes map[string]string) *Keyring {
	return &Keyring{hashes: hashes}
}

// Authenticate returns the account name matching the presented key.
func (k *Keyring) Authenticate(key string) (string, error) {
	for name, hash := range k.hashes {
		if err := Verify(key, hash); err == nil {
			return name, nil
		}
	}
	return "", dErrors.New(dErrors.CodeUnauthorized, "invalid api key")
}
