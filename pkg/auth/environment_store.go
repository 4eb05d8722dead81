package auth

import (
	"fmt"
	"os"
	"time"
)

// Environment variables holding the sign-in account.
const (
	EnvIdentifier = "USERNAME_LINKEDIN"
	EnvPassphrase = "PASSWORD_LINKEDIN"
)

// EnvironmentStore is a read-only store over EnvIdentifier and
// EnvPassphrase. Both must be set for the account to exist.
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (*EnvironmentStore) account() (*Account, bool) {
	id, pass := os.Getenv(EnvIdentifier), os.Getenv(EnvPassphrase)
	if id == "" || pass == "" {
		return nil, false
	}
	return &Account{Identifier: id, Passphrase: pass, LastModified: time.Now()}, true
}

func (*EnvironmentStore) Store(*Account) error {
	return fmt.Errorf("%w: environment variables are read-only", ErrStoreUnavailable)
}

// Retrieve returns the environment account. A non-empty identifier must
// equal EnvIdentifier's value.
func (e *EnvironmentStore) Retrieve(identifier string) (*Account, error) {
	a, ok := e.account()
	if !ok || (identifier != "" && identifier != a.Identifier) {
		return nil, ErrCredentialsNotFound
	}
	return a, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	if a, ok := e.account(); ok {
		return []*Account{a}, nil
	}
	return nil, nil
}

func (*EnvironmentStore) Delete(string) error {
	return fmt.Errorf("%w: environment variables are read-only", ErrStoreUnavailable)
}

func (e *EnvironmentStore) Exists(identifier string) bool {
	_, err := e.Retrieve(identifier)
	return err == nil
}
