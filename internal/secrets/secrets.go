// Package secrets keeps the assistant API token in the OS keychain.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"

	"github.com/99designs/keyring"
)

const (
	keychainService = "avagen"

	// TokenRef is the keychain entry holding the assistant bearer token.
	TokenRef = keychainService + ".assistant-token"

	// EnvToken overrides the stored token when set.
	EnvToken = "AVAGEN_API_TOKEN"
)

// ErrNotFound is returned when no secret is stored under a reference.
var ErrNotFound = errors.New("secret not found")

// Store reads and writes secrets by reference.
type Store interface {
	Set(ref, value string) error
	Get(ref string) (string, error)
	Delete(ref string) error
}

// Keystore wraps OS keychain access.
type Keystore struct {
	ring keyring.Keyring
}

// DefaultKeystore returns a keystore backed by the OS keychain, falling
// back to an encrypted file under dir.
func DefaultKeystore(dir string) *Keystore {
	cfg := keyring.Config{
		ServiceName:              keychainService,
		KeychainTrustApplication: true,
		FileDir:                  filepath.Join(dir, "keyring"),
		FilePasswordFunc:         keyring.TerminalPrompt,
	}

	// On Linux without a GUI, fall back to file-based storage.
	if runtime.GOOS == "linux" {
		cfg.AllowedBackends = []keyring.BackendType{
			keyring.SecretServiceBackend,
			keyring.KWalletBackend,
			keyring.FileBackend,
		}
	}

	ring, err := keyring.Open(cfg)
	if err != nil {
		cfg.AllowedBackends = []keyring.BackendType{keyring.FileBackend}
		ring, _ = keyring.Open(cfg)
	}
	return &Keystore{ring: ring}
}

// Set stores value under ref.
func (k *Keystore) Set(ref, value string) error {
	if k.ring == nil {
		return fmt.Errorf("keychain not available")
	}
	if err := k.ring.Set(keyring.Item{Key: ref, Data: []byte(value), Label: "avagen assistant token"}); err != nil {
		return fmt.Errorf("keychain store: %w", err)
	}
	return nil
}

// Get fetches the value stored under ref.
func (k *Keystore) Get(ref string) (string, error) {
	if k.ring == nil {
		return "", ErrNotFound
	}
	item, err := k.ring.Get(ref)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("keychain retrieve: %w", err)
	}
	return string(item.Data), nil
}

// Delete removes ref. It returns ErrNotFound when nothing was stored.
func (k *Keystore) Delete(ref string) error {
	if k.ring == nil {
		return ErrNotFound
	}
	err := k.ring.Remove(ref)
	switch {
	case errors.Is(err, keyring.ErrKeyNotFound), errors.Is(err, os.ErrNotExist):
		return ErrNotFound
	case err != nil:
		return fmt.Errorf("keychain delete: %w", err)
	}
	return nil
}

// Token returns the assistant token: the environment override if set,
// otherwise the stored value. An empty result with a nil error means no
// token is configured.
func Token(s Store) (string, error) {
	if v := strings.TrimSpace(os.Getenv(EnvToken)); v != "" {
		return v, nil
	}
	v, err := s.Get(TokenRef)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	return v, err
}

// InMemoryKeystore stores secrets in memory (for tests).
type InMemoryKeystore struct {
	mu   sync.Mutex
	data map[string]string
}

// NewInMemoryKeystore creates an in-memory keystore.
func NewInMemoryKeystore() *InMemoryKeystore {
	return &InMemoryKeystore{data: make(map[string]string)}
}

func (k *InMemoryKeystore) Set(ref, value string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[ref] = value
	return nil
}

func (k *InMemoryKeystore) Get(ref string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[ref]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (k *InMemoryKeystore) Delete(ref string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.data[ref]; !ok {
		return ErrNotFound
	}
	delete(k.data, ref)
	return nil
}
