package credential

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/99designs/keyring"
)

const serviceName = "tasktracker"

// Keys of the secrets kept in the system keyring.
const (
	KeySigningKey    = "auth-signing-key"
	KeyAdminPassword = "admin-password"
	KeyIMAPPassword  = "imap-password"
)

// Keys lists every secret the application reads.
var Keys = []string{KeySigningKey, KeyAdminPassword, KeyIMAPPassword}

// envVars maps each key to the environment variable that overrides it.
var envVars = map[string]string{
	KeySigningKey:    "TASKTRACKER_AUTH_SIGNING_KEY",
	KeyAdminPassword: "TASKTRACKER_SEED_ADMIN_PASSWORD",
	KeyIMAPPassword:  "TASKTRACKER_NOTIFY_PASSWORD",
}

// opener is swapped in tests.
var opener = openKeyring

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	dir := "~/.config/tasktracker/credentials"
	if home, err := os.UserHomeDir(); err == nil {
		dir = filepath.Join(home, ".config", "tasktracker", "credentials")
	}

	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  dir,
		FilePasswordFunc:         keyring.FixedStringPrompt("tasktracker-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}

// Get retrieves a credential value by key from the system keyring.
func Get(key string) (string, error) {
	ring, err := opener()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(key)
	if err != nil {
		return "", fmt.Errorf("getting credential %q: %w", key, err)
	}

	return string(item.Data), nil
}

// Set stores a credential value by key in the system keyring.
func Set(key string, value string) error {
	ring, err := opener()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:   key,
		Data:  []byte(value),
		Label: serviceName + " " + key,
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", key, err)
	}

	return nil
}

// Delete removes a credential by key from the system keyring.
func Delete(key string) error {
	ring, err := opener()
	if err != nil {
		return err
	}

	err = ring.Remove(key)
	if err != nil {
		return fmt.Errorf("deleting credential %q: %w", key, err)
	}

	return nil
}

// Resolve returns the secret for key from, in order, its environment
// variable, the keyring, and fallback. A missing keyring entry or an
// unavailable keyring falls through to fallback.
func Resolve(key, fallback string) string {
	if env, ok := envVars[key]; ok {
		if v := os.Getenv(env); v != "" {
			return v
		}
	}

	if v, err := Get(key); err == nil && v != "" {
		return v
	}
	return fallback
}

// Known reports whether key is one of Keys.
func Known(key string) bool {
	_, ok := envVars[key]
	return ok
}
