package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/pbkdf2"

	"peoplescraper/pkg/storage"
)

// PassphraseEnv overrides the generated key file of the encrypted store.
const PassphraseEnv = "PEOPLESCRAPER_PASSPHRASE"

const (
	vaultVersion    = 1
	vaultSaltLen    = 32
	vaultKeyLen     = 32
	vaultIterations = 100000
	keyFileName     = ".passphrase"
)

// vault is the on-disk layout. Sealed holds the nonce followed by the
// AES-GCM ciphertext of the JSON account map.
type vault struct {
	Version  int       `json:"version"`
	Salt     []byte    `json:"salt"`
	Sealed   []byte    `json:"sealed"`
	Modified time.Time `json:"modified"`
}

// EncryptedFileStore keeps accounts in a single encrypted vault file next to
// its key file. Every call reads the vault from disk, so several processes
// may share it.
type EncryptedFileStore struct {
	path       string
	passphrase []byte
	mu         sync.RWMutex
}

// NewEncryptedFileStore opens the vault at path. The passphrase comes from
// PassphraseEnv, or from a key file that is generated on first use.
func NewEncryptedFileStore(path string) (*EncryptedFileStore, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create credentials directory: %w", err)
	}

	passphrase, err := vaultPassphrase(filepath.Join(dir, keyFileName))
	if err != nil {
		return nil, err
	}
	return &EncryptedFileStore{path: path, passphrase: passphrase}, nil
}

func vaultPassphrase(keyFile string) ([]byte, error) {
	if env := os.Getenv(PassphraseEnv); env != "" {
		return []byte(env), nil
	}

	content, err := os.ReadFile(keyFile)
	if err == nil && len(strings.TrimSpace(string(content))) > 0 {
		return []byte(strings.TrimSpace(string(content))), nil
	}
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	random := make([]byte, 32)
	if _, err := rand.Read(random); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	generated := base64.RawURLEncoding.EncodeToString(random)
	if err := storage.WriteFileAtomic(keyFile, []byte(generated), 0600); err != nil {
		return nil, fmt.Errorf("failed to write key file: %w", err)
	}
	return []byte(generated), nil
}

func (e *EncryptedFileStore) Store(account *Account) error {
	if account == nil || account.Identifier == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		accounts[account.Identifier] = *account
		return nil
	})
}

func (e *EncryptedFileStore) Retrieve(identifier string) (*Account, error) {
	if identifier == "" {
		return nil, ErrInvalidCredentials
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}
	account, ok := accounts[identifier]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &account, nil
}

// List returns the stored accounts ordered by identifier.
func (e *EncryptedFileStore) List() ([]*Account, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	accounts, err := e.open()
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	out := make([]*Account, 0, len(ids))
	for _, id := range ids {
		account := accounts[id]
		out = append(out, &account)
	}
	return out, nil
}

// Delete removes one account. The vault file goes away with its last account.
func (e *EncryptedFileStore) Delete(identifier string) error {
	if identifier == "" {
		return ErrInvalidCredentials
	}
	return e.update(func(accounts map[string]Account) error {
		if _, ok := accounts[identifier]; !ok {
			return ErrCredentialsNotFound
		}
		delete(accounts, identifier)
		return nil
	})
}

func (e *EncryptedFileStore) Exists(identifier string) bool {
	_, err := e.Retrieve(identifier)
	return err == nil
}

// update runs fn against the decrypted accounts and seals the result.
func (e *EncryptedFileStore) update(fn func(map[string]Account) error) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	accounts, err := e.open()
	if err != nil {
		return err
	}
	if err := fn(accounts); err != nil {
		return err
	}

	if len(accounts) == 0 {
		if err := os.Remove(e.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove credentials file: %w", err)
		}
		return nil
	}
	return e.seal(accounts)
}

// open returns an empty map when no vault exists yet.
func (e *EncryptedFileStore) open() (map[string]Account, error) {
	content, err := os.ReadFile(e.path)
	if os.IsNotExist(err) {
		return map[string]Account{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}

	var v vault
	if err := json.Unmarshal(content, &v); err != nil {
		return nil, fmt.Errorf("failed to parse credentials file: %w", err)
	}
	if v.Version > vaultVersion {
		return nil, fmt.Errorf("credentials file version %d is newer than supported %d", v.Version, vaultVersion)
	}

	aead, err := e.aeadFor(v.Salt)
	if err != nil {
		return nil, err
	}
	if len(v.Sealed) < aead.NonceSize() {
		return nil, errors.New("credentials file is truncated")
	}
	nonce, ciphertext := v.Sealed[:aead.NonceSize()], v.Sealed[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt credentials (wrong passphrase?): %w", err)
	}

	accounts := map[string]Account{}
	if err := json.Unmarshal(plain, &accounts); err != nil {
		return nil, fmt.Errorf("failed to decode accounts: %w", err)
	}
	return accounts, nil
}

// seal writes accounts under a fresh salt and nonce.
func (e *EncryptedFileStore) seal(accounts map[string]Account) error {
	plain, err := json.Marshal(accounts)
	if err != nil {
		return fmt.Errorf("failed to encode accounts: %w", err)
	}

	salt := make([]byte, vaultSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("failed to generate salt: %w", err)
	}
	aead, err := e.aeadFor(salt)
	if err != nil {
		return err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}

	content, err := json.MarshalIndent(vault{
		Version:  vaultVersion,
		Salt:     salt,
		Sealed:   aead.Seal(nonce, nonce, plain, nil),
		Modified: time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials file: %w", err)
	}
	if err := storage.WriteFileAtomic(e.path, content, 0600); err != nil {
		return fmt.Errorf("failed to write credentials file: %w", err)
	}
	return nil
}

func (e *EncryptedFileStore) aeadFor(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.passphrase, salt, vaultIterations, vaultKeyLen, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	return aead, nil
}
