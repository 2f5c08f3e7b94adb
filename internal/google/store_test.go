package google

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i * 7)
	}
	return key
}

func sampleCredential() *Credential {
	return &Credential{
		AccessToken:  "ya29.access",
		RefreshToken: "1//refresh",
		TokenType:    "Bearer",
		Expiry:       time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC),
		Scopes:       []string{"https://www.googleapis.com/auth/calendar"},
	}
}

func TestFileTokenStore_RoundTrip(t *testing.T) {
	ctx := context.Background()

	for name, key := range map[string][]byte{"plain": nil, "encrypted": testKey()} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "nested", "google.token")
			store, err := NewFileTokenStore(path, key)
			require.NoError(t, err)
			assert.Equal(t, key != nil, store.Encrypted())

			_, err = store.Load(ctx)
			assert.ErrorIs(t, err, ErrCredentialNotFound)
			assert.False(t, store.Exists())

			want := sampleCredential()
			require.NoError(t, store.Save(ctx, want))
			assert.True(t, store.Exists())

			got, err := store.Load(ctx)
			require.NoError(t, err)
			assert.Equal(t, want.AccessToken, got.AccessToken)
			assert.Equal(t, want.RefreshToken, got.RefreshToken)
			assert.True(t, want.Expiry.Equal(got.Expiry))
			assert.Equal(t, want.Scopes, got.Scopes)

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			raw, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, key == nil, strings.Contains(string(raw), "ya29.access"))
		})
	}
}

func TestFileTokenStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	store, err := NewFileTokenStore(filepath.Join(dir, "google.token"), nil)
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, sampleCredential()))
	second := sampleCredential()
	second.AccessToken = "ya29.second"
	require.NoError(t, store.Save(ctx, second))

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.second", got.AccessToken)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files are cleaned up")
}

func TestFileTokenStore_PlaintextReadWithKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "google.token")
	data, err := json.Marshal(sampleCredential())
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	store, err := NewFileTokenStore(path, testKey())
	require.NoError(t, err)

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ya29.access", got.AccessToken)

	require.NoError(t, store.Save(ctx, got))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "ya29.access")
}

func TestFileTokenStore_WrongKey(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "google.token")

	store, err := NewFileTokenStore(path, testKey())
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, sampleCredential()))

	other := make([]byte, 32)
	otherStore, err := NewFileTokenStore(path, other)
	require.NoError(t, err)
	_, err = otherStore.Load(ctx)
	assert.ErrorContains(t, err, "decrypt")
}

func TestFileTokenStore_Errors(t *testing.T) {
	_, err := NewFileTokenStore("", nil)
	assert.Error(t, err)

	_, err = NewFileTokenStore("google.token", []byte("short"))
	assert.ErrorContains(t, err, "32 bytes")

	path := filepath.Join(t.TempDir(), "google.token")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	store, err := NewFileTokenStore(path, nil)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.ErrorContains(t, err, "parse")

	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))
	_, err = store.Load(context.Background())
	assert.ErrorIs(t, err, ErrCredentialNotFound)

	assert.Error(t, store.Save(context.Background(), nil))
}

func TestGenerateEncryptionKey(t *testing.T) {
	encoded, err := GenerateEncryptionKey()
	require.NoError(t, err)

	key, err := base64.StdEncoding.DecodeString(encoded)
	require.NoError(t, err)
	assert.Len(t, key, 32)

	again, err := GenerateEncryptionKey()
	require.NoError(t, err)
	assert.NotEqual(t, encoded, again)
}

func TestTokenCipher_DistinctNonces(t *testing.T) {
	c, err := newTokenCipher(testKey())
	require.NoError(t, err)

	a, err := c.seal([]byte("same"))
	require.NoError(t, err)
	b, err := c.seal([]byte("same"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)

	plain, err := c.open(a)
	require.NoError(t, err)
	assert.Equal(t, "same", string(plain))

	_, err = c.open([]byte("c2hvcnQ="))
	assert.Error(t, err)
}
