package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"runtime"
	"sync"

	"github.com/zalando/go-keyring"
	"golang.org/x/crypto/argon2"
)

const (
	keyringService = "meetscribe-cli"
	keyringAccount = "encryption-key"

	// AES-256 key size.
	keySize = 32
)

// encryptionKeyEnv overrides the keyring entirely, for CI and headless hosts.
const encryptionKeyEnv = "MEETSCRIBE_ENCRYPTION_KEY"

// ErrKeyringUnavailable indicates the system keyring cannot be reached.
var ErrKeyringUnavailable = errors.New("system keyring unavailable")

// KeyProvider yields the 32-byte key that encrypts the credentials file.
type KeyProvider interface {
	// GetKey returns the key, creating and persisting one if none exists yet.
	GetKey() ([]byte, error)
	// ResetKey replaces the key with a fresh one where the backend allows it.
	ResetKey() ([]byte, error)
	// Description names the backing store for status output.
	Description() string
}

// GetDefaultKeyProvider picks the provider for this environment: the
// MEETSCRIBE_ENCRYPTION_KEY variable when set, otherwise the system keyring.
func GetDefaultKeyProvider() (KeyProvider, error) {
	if os.Getenv(encryptionKeyEnv) != "" {
		return NewEnvKeyProvider(encryptionKeyEnv), nil
	}

	p := NewKeyringKeyProvider()
	if _, err := p.GetKey(); err != nil {
		if errors.Is(err, ErrKeyringUnavailable) {
			return nil, fmt.Errorf("no keyring; set %s to a 64-char hex key: %w", encryptionKeyEnv, err)
		}
		return nil, err
	}
	return p, nil
}

// KeyringKeyProvider keeps the key in the OS keyring (Keychain, Credential
// Manager, Secret Service), hex-encoded.
type KeyringKeyProvider struct {
	mu sync.Mutex
}

func NewKeyringKeyProvider() *KeyringKeyProvider {
	return &KeyringKeyProvider{}
}

func (p *KeyringKeyProvider) GetKey() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stored, err := keyring.Get(keyringService, keyringAccount)
	switch {
	case err == nil:
		if key, decErr := hex.DecodeString(stored); decErr == nil && len(key) == keySize {
			return key, nil
		}
		// Corrupt entry; fall through and replace it.
	case errors.Is(err, keyring.ErrNotFound):
		// First use.
	default:
		return nil, fmt.Errorf("%w: %v", ErrKeyringUnavailable, err)
	}

	return p.newKeyLocked()
}

func (p *KeyringKeyProvider) ResetKey() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.newKeyLocked()
}

func (p *KeyringKeyProvider) newKeyLocked() ([]byte, error) {
	key := make([]byte, keySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating key: %w", err)
	}
	if err := keyring.Set(keyringService, keyringAccount, hex.EncodeToString(key)); err != nil {
		return nil, fmt.Errorf("%w: storing key: %v", ErrKeyringUnavailable, err)
	}
	return key, nil
}

func (p *KeyringKeyProvider) Description() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS Keychain"
	case "windows":
		return "Windows Credential Manager"
	default:
		return "System Keyring (Secret Service)"
	}
}

// EnvKeyProvider reads a hex-encoded key from an environment variable.
type EnvKeyProvider struct {
	name string
}

func NewEnvKeyProvider(name string) *EnvKeyProvider {
	return &EnvKeyProvider{name: name}
}

func (p *EnvKeyProvider) GetKey() ([]byte, error) {
	raw := os.Getenv(p.name)
	if raw == "" {
		return nil, fmt.Errorf("environment variable %s not set", p.name)
	}
	key, err := hex.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid key in %s: %w", p.name, err)
	}
	if len(key) != keySize {
		return nil, fmt.Errorf("key in %s must be %d bytes, got %d", p.name, keySize, len(key))
	}
	return key, nil
}

func (p *EnvKeyProvider) ResetKey() ([]byte, error) {
	return nil, errors.New("cannot reset environment-based key")
}

func (p *EnvKeyProvider) Description() string {
	return fmt.Sprintf("Environment variable (%s)", p.name)
}

// PassphraseKeyProvider derives the key from a passphrase with Argon2id.
// The salt must be kept next to the encrypted credentials so the same key
// can be derived again.
type PassphraseKeyProvider struct {
	passphrase string
	salt       []byte
}

// Argon2id cost parameters.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
)

func NewPassphraseKeyProvider(passphrase string, salt []byte) *PassphraseKeyProvider {
	return &PassphraseKeyProvider{passphrase: passphrase, salt: salt}
}

func (p *PassphraseKeyProvider) GetKey() ([]byte, error) {
	if p.passphrase == "" {
		return nil, errors.New("passphrase is required")
	}
	if len(p.salt) == 0 {
		return nil, errors.New("salt is required")
	}
	return argon2.IDKey([]byte(p.passphrase), p.salt, argonTime, argonMemory, argonThreads, keySize), nil
}

// ResetKey re-derives the same key; a passphrase key has nothing to rotate.
func (p *PassphraseKeyProvider) ResetKey() ([]byte, error) {
	return p.GetKey()
}

func (p *PassphraseKeyProvider) Description() string {
	return "Passphrase-derived key (Argon2id)"
}

// GenerateSalt returns a fresh 16-byte salt for passphrase derivation.
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generating salt: %w", err)
	}
	return salt, nil
}
