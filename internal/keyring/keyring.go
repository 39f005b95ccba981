// Package keyring stores anchor's secrets in the OS keyring.
package keyring

import (
	"errors"
	"fmt"
	"strings"

	"github.com/zalando/go-keyring"

	"github.com/julianstephens/anchor/internal/constants"
)

var (
	// ErrNotFound is returned when no secret is stored under the requested entry
	ErrNotFound = errors.New("credentials not found in keyring")
	// ErrUnavailable is returned when the OS keyring cannot be reached
	ErrUnavailable = errors.New("OS keyring is not available")
)

// Secret names a keyring entry.
type Secret string

const (
	ConnectionString Secret = constants.DefaultKeyringUser
	LLMAPIKey        Secret = constants.DefaultLLMKeyUser
)

// ParseSecret maps a CLI name ("db", "llm") to its keyring entry.
func ParseSecret(name string) (Secret, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "db", "database", "postgres":
		return ConnectionString, nil
	case "llm", "api-key", "apikey":
		return LLMAPIKey, nil
	}
	return "", fmt.Errorf("unknown secret %q (expected db or llm)", name)
}

// Get retrieves a secret. Returns ErrNotFound if nothing is stored.
func Get(secret Secret) (string, error) {
	value, err := keyring.Get(constants.AppName, string(secret))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return value, nil
}

func Set(secret Secret, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", secret)
	}
	if err := keyring.Set(constants.AppName, string(secret), value); err != nil {
		return fmt.Errorf("failed to store %s in keyring: %w", secret, err)
	}
	return nil
}

func Delete(secret Secret) error {
	if err := keyring.Delete(constants.AppName, string(secret)); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete %s from keyring: %w", secret, err)
	}
	return nil
}

// Lookup returns the environment value when set, else the keyring secret.
func Lookup(secret Secret, envValue string) (string, error) {
	if v := strings.TrimSpace(envValue); v != "" {
		return v, nil
	}
	return Get(secret)
}

// IsAvailable checks if the OS keyring is available on the current system.
// This is a best-effort check and may not catch all failure scenarios.
func IsAvailable() bool {
	// ErrNotFound means the keyring answered and is merely empty
	_, err := keyring.Get(constants.AppName, "test-availability")
	return err == nil || errors.Is(err, keyring.ErrNotFound)
}
