package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"runtime"

	"github.com/zalando/go-keyring"
)

const keyringService = "peoplescraper"

// KeyringStore keeps each account as one JSON secret in the OS keychain,
// under service "peoplescraper" and user "account_<identifier>".
type KeyringStore struct{}

// NewKeyringStore probes the keychain with a throwaway secret and fails
// with ErrStoreUnavailable when it cannot be written.
func NewKeyringStore() (*KeyringStore, error) {
	if !IsKeyringAvailable() {
		return nil, fmt.Errorf("%w: no keychain on this system", ErrStoreUnavailable)
	}
	const probe = "probe"
	if err := keyring.Set(keyringService, probe, probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	_ = keyring.Delete(keyringService, probe)
	return &KeyringStore{}, nil
}

func keyringUser(identifier string) string {
	return "account_" + identifier
}

// keyringErr maps go-keyring's not-found onto the package sentinel.
func keyringErr(op string, err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialsNotFound
	}
	return fmt.Errorf("keyring %s: %w", op, err)
}

func (KeyringStore) Store(account *Account) error {
	if account == nil || account.Identifier == "" {
		return ErrInvalidCredentials
	}
	secret, err := json.Marshal(account)
	if err != nil {
		return fmt.Errorf("failed to encode account: %w", err)
	}
	if err := keyring.Set(keyringService, keyringUser(account.Identifier), string(secret)); err != nil {
		return keyringErr("set", err)
	}
	return nil
}

func (KeyringStore) Retrieve(identifier string) (*Account, error) {
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}
	secret, err := keyring.Get(keyringService, keyringUser(identifier))
	if err != nil {
		return nil, keyringErr("get", err)
	}
	account := &Account{}
	if err := json.Unmarshal([]byte(secret), account); err != nil {
		return nil, fmt.Errorf("failed to decode account: %w", err)
	}
	return account, nil
}

// List is always empty: go-keyring cannot enumerate secrets.
func (KeyringStore) List() ([]*Account, error) {
	return nil, nil
}

func (KeyringStore) Delete(identifier string) error {
	if identifier == "" {
		return ErrInvalidCredentials
	}
	if err := keyring.Delete(keyringService, keyringUser(identifier)); err != nil {
		return keyringErr("delete", err)
	}
	return nil
}

func (k KeyringStore) Exists(identifier string) bool {
	_, err := k.Retrieve(identifier)
	return err == nil
}

// IsKeyringAvailable reports whether a keychain backend can be expected.
// Unix desktops need a D-Bus session for the Secret Service.
func IsKeyringAvailable() bool {
	switch runtime.GOOS {
	case "darwin", "windows":
		return true
	case "linux", "freebsd", "openbsd":
		return os.Getenv("DBUS_SESSION_BUS_ADDRESS") != ""
	}
	return false
}
