package auth

import (
	"maps"
	"slices"
	"sync"
)

// MockStore is an in-memory CredentialStore. A non-nil *Error field makes
// the matching method fail before touching the map.
type MockStore struct {
	mu       sync.RWMutex
	accounts map[string]Account

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func NewMockStore() *MockStore {
	return &MockStore{accounts: map[string]Account{}}
}

// NewMockManager returns a Manager over one fresh MockStore.
func NewMockManager() (*Manager, *MockStore) {
	store := NewMockStore()
	return NewManagerWithStores(store), store
}

func (m *MockStore) Store(account *Account) error {
	switch {
	case m.StoreError != nil:
		return m.StoreError
	case account == nil || account.Identifier == "":
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	m.accounts[account.Identifier] = *account
	m.mu.Unlock()
	return nil
}

func (m *MockStore) Retrieve(identifier string) (*Account, error) {
	switch {
	case m.RetrieveError != nil:
		return nil, m.RetrieveError
	case identifier == "":
		return nil, ErrInvalidCredentials
	}
	m.mu.RLock()
	account, ok := m.accounts[identifier]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns copies ordered by identifier.
func (m *MockStore) List() ([]*Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Account, 0, len(m.accounts))
	for _, id := range slices.Sorted(maps.Keys(m.accounts)) {
		account := m.accounts[id]
		out = append(out, &account)
	}
	return out, nil
}

func (m *MockStore) Delete(identifier string) error {
	switch {
	case m.DeleteError != nil:
		return m.DeleteError
	case identifier == "":
		return ErrInvalidCredentials
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[identifier]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.accounts, identifier)
	return nil
}

func (m *MockStore) Exists(identifier string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[identifier]
	return ok
}

// Count reports how many accounts are held.
func (m *MockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts)
}
