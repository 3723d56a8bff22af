// Package credentials stores API keys and bearer tokens for the meetscribe
// CLI in ~/.meetscribe/credentials.yaml, with the sensitive fields sealed
// using AES-GCM. The sealing key lives in the system keyring; headless
// environments set MEETSCRIBE_ENCRYPTION_KEY (64 hex chars) instead.
package credentials

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultCredentialsDir  = ".meetscribe"
	DefaultCredentialsFile = "credentials.yaml"

	AuthTypeAPIKey = "api_key"
	AuthTypeToken  = "token"
)

var (
	// ErrNoCredentials means nothing has been stored yet.
	ErrNoCredentials = errors.New("no credentials stored")
	// ErrExpiredToken means the stored token is past its expiry.
	ErrExpiredToken = errors.New("stored token has expired")
	// ErrInvalidCredentials means the stored file is malformed.
	ErrInvalidCredentials = errors.New("invalid credentials format")
	// ErrEncryptionFailed wraps any sealing or unsealing failure.
	ErrEncryptionFailed = errors.New("encryption failed")
)

// Credentials is the on-disk credential record. APIKey and Token are sealed
// before writing and unsealed on load.
type Credentials struct {
	AuthType    string    `yaml:"auth_type"`
	APIKey      string    `yaml:"api_key,omitempty"`
	Token       string    `yaml:"token,omitempty"`
	ExpiresAt   time.Time `yaml:"expires_at,omitempty"`
	ServerURL   string    `yaml:"server_url,omitempty"`
	Subject     string    `yaml:"subject,omitempty"`
	LastUpdated time.Time `yaml:"last_updated"`
}

// Store reads and writes the credentials file.
type Store struct {
	dir         string
	key         []byte
	keyProvider KeyProvider
}

// NewStore opens the store with the default key provider for this host.
func NewStore() (*Store, error) {
	provider, err := GetDefaultKeyProvider()
	if err != nil {
		return nil, fmt.Errorf("initializing key provider: %w", err)
	}
	return NewStoreWithKeyProvider(provider)
}

// NewStoreWithKeyProvider opens the store with an explicit key provider.
func NewStoreWithKeyProvider(provider KeyProvider) (*Store, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return nil, fmt.Errorf("getting credentials directory: %w", err)
	}
	key, err := provider.GetKey()
	if err != nil {
		return nil, fmt.Errorf("getting encryption key: %w", err)
	}
	return &Store{dir: dir, key: key, keyProvider: provider}, nil
}

// CredentialsDir returns $MEETSCRIBE_CONFIG_DIR when set, else ~/.meetscribe.
func CredentialsDir() (string, error) {
	if dir := os.Getenv("MEETSCRIBE_CONFIG_DIR"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, DefaultCredentialsDir), nil
}

// CredentialsPath returns the full path to the credentials file.
func CredentialsPath() (string, error) {
	dir, err := CredentialsDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultCredentialsFile), nil
}

func (s *Store) path() string {
	return filepath.Join(s.dir, DefaultCredentialsFile)
}

// Save seals the secret fields and writes the file with 0600 permissions.
func (s *Store) Save(creds *Credentials) error {
	if err := os.MkdirAll(s.dir, 0700); err != nil {
		return fmt.Errorf("creating credentials directory: %w", err)
	}

	onDisk := *creds
	onDisk.LastUpdated = time.Now()

	var err error
	if onDisk.APIKey != "" {
		if onDisk.APIKey, err = s.seal(onDisk.APIKey); err != nil {
			return fmt.Errorf("encrypting API key: %w", err)
		}
	}
	if onDisk.Token != "" {
		if onDisk.Token, err = s.seal(onDisk.Token); err != nil {
			return fmt.Errorf("encrypting token: %w", err)
		}
	}

	data, err := yaml.Marshal(&onDisk)
	if err != nil {
		return fmt.Errorf("marshaling credentials: %w", err)
	}
	if err := os.WriteFile(s.path(), data, 0600); err != nil {
		return fmt.Errorf("writing credentials file: %w", err)
	}
	return nil
}

// Load reads the file and unseals the secret fields.
func (s *Store) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoCredentials
		}
		return nil, fmt.Errorf("reading credentials file: %w", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
	}

	if creds.APIKey != "" {
		if creds.APIKey, err = s.open(creds.APIKey); err != nil {
			return nil, fmt.Errorf("decrypting API key: %w", err)
		}
	}
	if creds.Token != "" {
		if creds.Token, err = s.open(creds.Token); err != nil {
			return nil, fmt.Errorf("decrypting token: %w", err)
		}
	}
	return &creds, nil
}

// Delete removes the credentials file; a missing file is not an error.
func (s *Store) Delete() error {
	if err := os.Remove(s.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing credentials file: %w", err)
	}
	return nil
}

// Exists reports whether a credentials file is present.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path())
	return err == nil
}

// GetActiveCredential resolves the credential the client should send:
// environment variables win, then the stored credential, with expired stored
// tokens rejected.
func (s *Store) GetActiveCredential() (*Credentials, error) {
	if apiKey := os.Getenv("MEETSCRIBE_API_KEY"); apiKey != "" {
		return &Credentials{AuthType: AuthTypeAPIKey, APIKey: apiKey}, nil
	}
	if token := os.Getenv("MEETSCRIBE_TOKEN"); token != "" {
		return &Credentials{AuthType: AuthTypeToken, Token: token}, nil
	}

	creds, err := s.Load()
	if err != nil {
		return nil, err
	}
	if creds.AuthType == AuthTypeToken && !creds.ExpiresAt.IsZero() &&
		time.Now().After(creds.ExpiresAt) {
		return nil, ErrExpiredToken
	}
	return creds, nil
}

// seal encrypts a value with AES-GCM, prepending the nonce, base64-encoded.
func (s *Store) seal(plaintext string) (string, error) {
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("%w: generating nonce: %v", ErrEncryptionFailed, err)
	}
	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// open reverses seal.
func (s *Store) open(encoded string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: decoding base64: %v", ErrEncryptionFailed, err)
	}
	gcm, err := s.gcm()
	if err != nil {
		return "", err
	}
	if len(data) < gcm.NonceSize() {
		return "", fmt.Errorf("%w: ciphertext too short", ErrEncryptionFailed)
	}
	nonce, sealed := data[:gcm.NonceSize()], data[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrEncryptionFailed, err)
	}
	return string(plaintext), nil
}

func (s *Store) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, fmt.Errorf("%w: creating cipher: %v", ErrEncryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: creating GCM: %v", ErrEncryptionFailed, err)
	}
	return gcm, nil
}

// MaskCredential hides the middle of an API key, keeping four characters at
// each end.
func MaskCredential(cred string) string {
	if len(cred) <= 8 {
		return strings.Repeat("*", len(cred))
	}
	return cred[:4] + strings.Repeat("*", len(cred)-8) + cred[len(cred)-4:]
}

// MaskToken keeps eight characters at each end of a token.
func MaskToken(token string) string {
	if len(token) <= 20 {
		return strings.Repeat("*", len(token))
	}
	return token[:8] + "..." + token[len(token)-8:]
}

// FormatExpiry renders a token expiry as a rough human duration.
func FormatExpiry(expiresAt time.Time) string {
	if expiresAt.IsZero() {
		return "never"
	}
	remaining := time.Until(expiresAt)
	switch {
	case remaining < 0:
		return "expired"
	case remaining < time.Hour:
		return fmt.Sprintf("%d minutes", int(remaining.Minutes()))
	case remaining < 24*time.Hour:
		return fmt.Sprintf("%d hours", int(remaining.Hours()))
	default:
		return fmt.Sprintf("%d days", int(remaining.Hours()/24))
	}
}

// GenerateAPIKeyID derives a short display identifier from an API key.
func GenerateAPIKeyID(apiKey string) string {
	hash := sha256.Sum256([]byte(apiKey))
	return hex.EncodeToString(hash[:4])
}
