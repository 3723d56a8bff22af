package credentials

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"
)

// testKey is a fixed 32-byte key for tests.
const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func newTestStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("MEETSCRIBE_CONFIG_DIR", t.TempDir())
	t.Setenv("MEETSCRIBE_ENCRYPTION_KEY", testKey)

	store, err := NewStoreWithKeyProvider(NewEnvKeyProvider("MEETSCRIBE_ENCRYPTION_KEY"))
	if err != nil {
		t.Fatalf("NewStoreWithKeyProvider() error = %v", err)
	}
	return store
}

func TestStore_SaveAndLoad(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		AuthType:  AuthTypeAPIKey,
		APIKey:    "ms-secret-key-12345",
		ServerURL: "http://localhost:8000",
		Subject:   "tester",
	}

	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if loaded.APIKey != creds.APIKey {
		t.Errorf("APIKey = %q, want %q", loaded.APIKey, creds.APIKey)
	}
	if loaded.AuthType != AuthTypeAPIKey {
		t.Errorf("AuthType = %q, want %q", loaded.AuthType, AuthTypeAPIKey)
	}
	if loaded.ServerURL != creds.ServerURL {
		t.Errorf("ServerURL = %q, want %q", loaded.ServerURL, creds.ServerURL)
	}
	if loaded.LastUpdated.IsZero() {
		t.Error("LastUpdated should be set on save")
	}
}

func TestStore_SecretsEncryptedAtRest(t *testing.T) {
	store := newTestStore(t)

	creds := &Credentials{
		AuthType: AuthTypeToken,
		Token:    "plaintext-bearer-token",
	}
	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(store.dir, DefaultCredentialsFile))
	if err != nil {
		t.Fatalf("reading credentials file: %v", err)
	}

	if strings.Contains(string(raw), "plaintext-bearer-token") {
		t.Error("token stored in plaintext")
	}

	var onDisk Credentials
	if err := yaml.Unmarshal(raw, &onDisk); err != nil {
		t.Fatalf("parsing credentials file: %v", err)
	}
	if onDisk.Token == "" || onDisk.Token == creds.Token {
		t.Error("token field should contain ciphertext")
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load()
	if err != ErrNoCredentials {
		t.Errorf("Load() error = %v, want ErrNoCredentials", err)
	}
}

func TestStore_Delete(t *testing.T) {
	store := newTestStore(t)

	if err := store.Save(&Credentials{AuthType: AuthTypeAPIKey, APIKey: "k"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if !store.Exists() {
		t.Fatal("Exists() = false after Save")
	}

	if err := store.Delete(); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if store.Exists() {
		t.Error("Exists() = true after Delete")
	}

	// Deleting again is not an error.
	if err := store.Delete(); err != nil {
		t.Errorf("second Delete() error = %v", err)
	}
}

func TestStore_WrongKeyFailsDecryption(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("MEETSCRIBE_CONFIG_DIR", dir)
	t.Setenv("MEETSCRIBE_ENCRYPTION_KEY", testKey)

	store, err := NewStoreWithKeyProvider(NewEnvKeyProvider("MEETSCRIBE_ENCRYPTION_KEY"))
	if err != nil {
		t.Fatalf("NewStoreWithKeyProvider() error = %v", err)
	}
	if err := store.Save(&Credentials{AuthType: AuthTypeAPIKey, APIKey: "secret"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	otherKey := strings.Repeat("ff", 32)
	t.Setenv("MEETSCRIBE_ENCRYPTION_KEY", otherKey)
	store2, err := NewStoreWithKeyProvider(NewEnvKeyProvider("MEETSCRIBE_ENCRYPTION_KEY"))
	if err != nil {
		t.Fatalf("NewStoreWithKeyProvider() error = %v", err)
	}

	if _, err := store2.Load(); err == nil {
		t.Error("Load() with wrong key should fail")
	}
}

func TestGetActiveCredential_EnvOverride(t *testing.T) {
	store := newTestStore(t)
	t.Setenv("MEETSCRIBE_API_KEY", "from-env")

	creds, err := store.GetActiveCredential()
	if err != nil {
		t.Fatalf("GetActiveCredential() error = %v", err)
	}
	if creds.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", creds.APIKey)
	}
	if creds.AuthType != AuthTypeAPIKey {
		t.Errorf("AuthType = %q, want %q", creds.AuthType, AuthTypeAPIKey)
	}
}

func TestGetActiveCredential_ExpiredToken(t *testing.T) {
	store := newTestStore(t)
	t.Setenv("MEETSCRIBE_API_KEY", "")
	t.Setenv("MEETSCRIBE_TOKEN", "")

	creds := &Credentials{
		AuthType:  AuthTypeToken,
		Token:     "tok",
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	if err := store.Save(creds); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	_, err := store.GetActiveCredential()
	if err != ErrExpiredToken {
		t.Errorf("GetActiveCredential() error = %v, want ErrExpiredToken", err)
	}
}

func TestMaskCredential(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"short", "*****"},
		{"ms-abcdefgh1234", "ms-a*******1234"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := MaskCredential(tt.input); got != tt.want {
			t.Errorf("MaskCredential(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestMaskToken(t *testing.T) {
	short := MaskToken("abc")
	if short != "***" {
		t.Errorf("MaskToken(short) = %q", short)
	}

	long := MaskToken("eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9")
	if !strings.HasPrefix(long, "eyJhbGci") || !strings.HasSuffix(long, "IkpXVCJ9") {
		t.Errorf("MaskToken(long) = %q", long)
	}
	if !strings.Contains(long, "...") {
		t.Errorf("MaskToken(long) = %q, want ellipsis", long)
	}
}

func TestFormatExpiry(t *testing.T) {
	if got := FormatExpiry(time.Time{}); got != "never" {
		t.Errorf("FormatExpiry(zero) = %q, want never", got)
	}
	if got := FormatExpiry(time.Now().Add(-time.Minute)); got != "expired" {
		t.Errorf("FormatExpiry(past) = %q, want expired", got)
	}
	if got := FormatExpiry(time.Now().Add(30 * time.Minute)); !strings.Contains(got, "minutes") {
		t.Errorf("FormatExpiry(30m) = %q, want minutes", got)
	}
	if got := FormatExpiry(time.Now().Add(5 * time.Hour)); !strings.Contains(got, "hours") {
		t.Errorf("FormatExpiry(5h) = %q, want hours", got)
	}
	if got := FormatExpiry(time.Now().Add(72 * time.Hour)); !strings.Contains(got, "days") {
		t.Errorf("FormatExpiry(72h) = %q, want days", got)
	}
}

func TestGenerateAPIKeyID(t *testing.T) {
	id1 := GenerateAPIKeyID("key-one")
	id2 := GenerateAPIKeyID("key-two")

	if id1 == id2 {
		t.Error("different keys should produce different IDs")
	}
	if len(id1) != 8 {
		t.Errorf("ID length = %d, want 8", len(id1))
	}
	if _, err := hex.DecodeString(id1); err != nil {
		t.Errorf("ID is not hex: %v", err)
	}
}
