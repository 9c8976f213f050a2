package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

// KeyringService is the OS keyring service under which secrets are stored.
const KeyringService = "catpoint"

// Secret names a credential and where to look for it.
type Secret struct {
	// EnvVar is the environment variable holding the secret.
	EnvVar string
	// Account is the keyring account under KeyringService.
	Account string
}

// Well-known secrets.
//
//nolint:gochecknoglobals // Immutable descriptors.
var (
	VisionAPIKey       = Secret{EnvVar: "CATPOINT_VISION_API_KEY", Account: "vision-api-key"}
	VisionClientSecret = Secret{EnvVar: "CATPOINT_VISION_CLIENT_SECRET", Account: "vision-client-secret"}
	MQTTPassword       = Secret{EnvVar: "CATPOINT_MQTT_PASSWORD", Account: "mqtt-password"}
)

// ErrSecretNotFound is returned when a secret is neither in the environment nor the keyring.
var ErrSecretNotFound = errors.New("secret not found")

// LoadDotEnv loads environment variables from path. Missing files are ignored.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}

	if err != nil {
		return fmt.Errorf("load env file: %w", err)
	}

	return nil
}

// Resolve returns the secret value from the environment, falling back to the OS keyring.
func (s Secret) Resolve() (string, error) {
	if value := os.Getenv(s.EnvVar); value != "" {
		return value, nil
	}

	value, err := keyring.Get(KeyringService, s.Account)

	switch {
	case err == nil && value != "":
		return value, nil
	case err == nil, errors.Is(err, keyring.ErrNotFound):
		return "", fmt.Errorf("%w: set %s or keyring %s/%s", ErrSecretNotFound, s.EnvVar, KeyringService, s.Account)
	default:
		return "", fmt.Errorf("read keyring %s/%s: %w", KeyringService, s.Account, err)
	}
}

// Store saves the secret value in the OS keyring.
func (s Secret) Store(value string) error {
	if err := keyring.Set(KeyringService, s.Account, value); err != nil {
		return fmt.Errorf("write keyring %s/%s: %w", KeyringService, s.Account, err)
	}

	return nil
}
