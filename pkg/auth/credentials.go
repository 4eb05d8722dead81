// Package auth resolves the account the crawler signs in with.
//
// Credentials are an identifier (the login e-mail) and a passphrase. They
// can live in the system keychain, in an encrypted file under the user
// config directory, or in the USERNAME_LINKEDIN / PASSWORD_LINKEDIN
// environment variables.
package auth

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
)

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)

// Account is the sign-in identity of the crawler.
type Account struct {
	Identifier   string    `json:"identifier"`
	Passphrase   string    `json:"passphrase"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is one place accounts can be kept. Retrieve and Delete
// return ErrCredentialsNotFound for unknown identifiers.
type CredentialStore interface {
	Store(account *Account) error
	Retrieve(identifier string) (*Account, error)
	List() ([]*Account, error)
	Delete(identifier string) error
	Exists(identifier string) bool
}

// Manager layers several stores. Writes go to the first store that accepts
// them, reads search every store in order.
type Manager struct {
	stores []CredentialStore
}

// NewManager builds the stores for kind. "auto" layers keychain (when
// usable), encrypted file and environment; "keyring", "file" and "env"
// select a single store.
func NewManager(kind string) (*Manager, error) {
	var stores []CredentialStore
	switch strings.ToLower(kind) {
	case "env":
		stores = append(stores, NewEnvironmentStore())
	case "keyring":
		k, err := NewKeyringStore()
		if err != nil {
			return nil, err
		}
		stores = append(stores, k)
	case "file":
		f, err := defaultFileStore()
		if err != nil {
			return nil, err
		}
		stores = append(stores, f)
	case "", "auto":
		if k, err := NewKeyringStore(); err == nil {
			stores = append(stores, k)
		}
		f, err := defaultFileStore()
		if err != nil {
			return nil, err
		}
		stores = append(stores, f, NewEnvironmentStore())
	default:
		return nil, fmt.Errorf("unknown credential store %q", kind)
	}
	return NewManagerWithStores(stores...), nil
}

// NewManagerWithStores layers stores in the given order.
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// defaultFileStore opens credentials.enc in the user config directory.
func defaultFileStore() (*EncryptedFileStore, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to locate config directory: %w", err)
	}
	return NewEncryptedFileStore(filepath.Join(base, "peoplescraper", "credentials.enc"))
}

// Store stamps LastModified and writes account to the first store that
// accepts it.
func (m *Manager) Store(account *Account) error {
	switch {
	case account == nil || account.Identifier == "":
		return errors.New("identifier is required")
	case account.Passphrase == "":
		return errors.New("passphrase is required")
	}
	account.LastModified = time.Now()

	var errs []error
	for _, store := range m.stores {
		err := store.Store(account)
		if err == nil {
			return nil
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return ErrStoreUnavailable
	}
	return fmt.Errorf("failed to store credentials: %w", errors.Join(errs...))
}

func (m *Manager) Retrieve(identifier string) (*Account, error) {
	for _, store := range m.stores {
		if account, err := store.Retrieve(identifier); err == nil {
			return account, nil
		}
	}
	return nil, fmt.Errorf("%w for %s", ErrCredentialsNotFound, identifier)
}

// Resolve returns the account for identifier. An empty identifier means
// environment credentials first, then the most recently stored account.
func (m *Manager) Resolve(identifier string) (*Account, error) {
	if identifier != "" {
		return m.Retrieve(identifier)
	}
	return m.RetrieveDefault()
}

func (m *Manager) RetrieveDefault() (*Account, error) {
	for _, store := range m.stores {
		if env, ok := store.(*EnvironmentStore); ok {
			if account, err := env.Retrieve(""); err == nil {
				return account, nil
			}
		}
	}
	if accounts, _ := m.List(); len(accounts) > 0 {
		return accounts[0], nil
	}
	return nil, ErrCredentialsNotFound
}

// List merges every store's accounts, newest first. An identifier held by
// several stores appears once with its newest copy. Failing stores are
// skipped.
func (m *Manager) List() ([]*Account, error) {
	newest := map[string]*Account{}
	for _, store := range m.stores {
		accounts, err := store.List()
		if err != nil {
			continue
		}
		for _, a := range accounts {
			if seen, ok := newest[a.Identifier]; !ok || a.LastModified.After(seen.LastModified) {
				newest[a.Identifier] = a
			}
		}
	}

	out := make([]*Account, 0, len(newest))
	for _, a := range newest {
		out = append(out, a)
	}
	slices.SortFunc(out, func(a, b *Account) int {
		if c := b.LastModified.Compare(a.LastModified); c != 0 {
			return c
		}
		return cmp.Compare(a.Identifier, b.Identifier)
	})
	return out, nil
}

// Delete removes identifier from every store that holds it.
func (m *Manager) Delete(identifier string) error {
	deleted := false
	var failures []error
	for _, store := range m.stores {
		err := store.Delete(identifier)
		switch {
		case err == nil:
			deleted = true
		case errors.Is(err, ErrCredentialsNotFound), errors.Is(err, ErrStoreUnavailable):
		default:
			failures = append(failures, err)
		}
	}
	if deleted {
		return nil
	}
	if len(failures) > 0 {
		return fmt.Errorf("failed to delete credentials: %w", errors.Join(failures...))
	}
	return fmt.Errorf("%w for %s", ErrCredentialsNotFound, identifier)
}

// SanitizeAccount copies account with its passphrase masked.
func SanitizeAccount(account *Account) *Account {
	if account == nil {
		return nil
	}
	masked := *account
	masked.Passphrase = maskString(account.Passphrase)
	return &masked
}

// maskString keeps two characters at each end of strings longer than six.
func maskString(s string) string {
	if len(s) <= 6 {
		return "********"
	}
	return s[:2] + "..." + s[len(s)-2:]
}
