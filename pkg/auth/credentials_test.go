package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialManager(t *testing.T) {
	manager, mockStore := NewMockManager()

	account := &Account{
		Identifier: "crawler@example.com",
		Passphrase: "correct horse battery",
	}
	require.NoError(t, manager.Store(account))
	assert.False(t, account.LastModified.IsZero(), "Store stamps LastModified")

	retrieved, err := manager.Retrieve("crawler@example.com")
	require.NoError(t, err)
	assert.Equal(t, account.Passphrase, retrieved.Passphrase)

	accounts, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, accounts, 1)

	sanitized := SanitizeAccount(account)
	assert.Equal(t, account.Identifier, sanitized.Identifier)
	assert.Equal(t, "co...ry", sanitized.Passphrase)
	assert.Equal(t, "********", maskString("short"))

	require.NoError(t, manager.Delete("crawler@example.com"))
	_, err = manager.Retrieve("crawler@example.com")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.Equal(t, 0, mockStore.Count())

	assert.ErrorIs(t, manager.Delete("crawler@example.com"), ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager, _ := NewMockManager()

	assert.Error(t, manager.Store(&Account{Passphrase: "x"}))
	assert.Error(t, manager.Store(&Account{Identifier: "a@example.com"}))
	assert.Error(t, manager.Store(nil))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()
	manager := NewManagerWithStores(broken, working)

	require.NoError(t, manager.Store(&Account{Identifier: "a@example.com", Passphrase: "pw"}))
	assert.Equal(t, 0, broken.Count())
	assert.True(t, working.Exists("a@example.com"))
}

func TestResolvePrefersEnvironment(t *testing.T) {
	t.Setenv(EnvIdentifier, "env@example.com")
	t.Setenv(EnvPassphrase, "env-secret")

	stored := NewMockStore()
	require.NoError(t, stored.Store(&Account{Identifier: "stored@example.com", Passphrase: "pw", LastModified: time.Now()}))
	manager := NewManagerWithStores(stored, NewEnvironmentStore())

	account, err := manager.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", account.Identifier)

	account, err = manager.Resolve("stored@example.com")
	require.NoError(t, err)
	assert.Equal(t, "pw", account.Passphrase)
}

func TestResolveNewestStoredAccount(t *testing.T) {
	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvPassphrase, "")

	store := NewMockStore()
	now := time.Now()
	require.NoError(t, store.Store(&Account{Identifier: "old@example.com", Passphrase: "a", LastModified: now.Add(-time.Hour)}))
	require.NoError(t, store.Store(&Account{Identifier: "new@example.com", Passphrase: "b", LastModified: now}))
	manager := NewManagerWithStores(store, NewEnvironmentStore())

	account, err := manager.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", account.Identifier)

	_, err = NewManagerWithStores(NewMockStore()).Resolve("")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	t.Setenv(PassphraseEnv, "test_passphrase_123")
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	account := &Account{Identifier: "crawler@example.com", Passphrase: "plaintext-secret"}
	require.NoError(t, store.Store(account))

	retrieved, err := store.Retrieve("crawler@example.com")
	require.NoError(t, err)
	assert.Equal(t, "plaintext-secret", retrieved.Passphrase)
	assert.True(t, store.Exists("crawler@example.com"))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(content, []byte("plaintext-secret")), "file holds the passphrase in clear text")
	assert.False(t, bytes.Contains(content, []byte("crawler@example.com")), "file holds the identifier in clear text")

	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	accounts, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, accounts, 1)

	require.NoError(t, store.Delete("crawler@example.com"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "last delete removes the file")
	assert.ErrorIs(t, store.Delete("crawler@example.com"), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(PassphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Account{Identifier: "a@example.com", Passphrase: "pw"}))

	t.Setenv(PassphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("a@example.com")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesKeyFile(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()

	_, err := NewEncryptedFileStore(filepath.Join(dir, "credentials.enc"))
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvPassphrase, "")
	assert.False(t, store.Exists(""))
	accounts, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, accounts)

	t.Setenv(EnvIdentifier, "env@example.com")
	t.Setenv(EnvPassphrase, "env-secret")

	account, err := store.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, "env@example.com", account.Identifier)
	assert.Equal(t, "env-secret", account.Passphrase)

	_, err = store.Retrieve("someone@example.com")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	assert.ErrorIs(t, store.Store(account), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("env@example.com"), ErrStoreUnavailable)
}

func TestNewManagerRejectsUnknownStore(t *testing.T) {
	_, err := NewManager("vault")
	assert.Error(t, err)

	manager, err := NewManager("env")
	require.NoError(t, err)
	assert.Len(t, manager.stores, 1)
}
