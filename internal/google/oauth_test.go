package google

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2/google"

	"github.com/teemow/appointments/internal/config"
)

func TestNewOAuthConfig_FromSettings(t *testing.T) {
	conf, err := NewOAuthConfig(config.GoogleConfig{
		ClientID:     "id",
		ClientSecret: "secret",
	})
	require.NoError(t, err)

	assert.Equal(t, "id", conf.ClientID)
	assert.Equal(t, "secret", conf.ClientSecret)
	assert.Equal(t, google.Endpoint.AuthURL, conf.Endpoint.AuthURL)
	assert.Equal(t, google.Endpoint.TokenURL, conf.Endpoint.TokenURL)
	assert.Equal(t, []string{config.CalendarScope}, conf.Scopes)
}

func TestNewOAuthConfig_EndpointOverrides(t *testing.T) {
	conf, err := NewOAuthConfig(config.GoogleConfig{
		ClientID: "id",
		AuthURL:  "http://127.0.0.1:1/auth",
		TokenURL: "http://127.0.0.1:1/token",
		Scopes:   []string{"scope-a"},
	})
	require.NoError(t, err)

	assert.Equal(t, "http://127.0.0.1:1/auth", conf.Endpoint.AuthURL)
	assert.Equal(t, "http://127.0.0.1:1/token", conf.Endpoint.TokenURL)
	assert.Equal(t, []string{"scope-a"}, conf.Scopes)
}

func TestNewOAuthConfig_ClientSecretFile(t *testing.T) {
	for _, section := range []string{"web", "installed"} {
		t.Run(section, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "credentials.json")
			require.NoError(t, os.WriteFile(path, []byte(`{"`+section+`": {
				"client_id": "file-id",
				"client_secret": "file-secret",
				"redirect_uris": ["http://localhost"],
				"auth_uri": "https://accounts.google.com/o/oauth2/auth",
				"token_uri": "https://oauth2.googleapis.com/token"
			}}`), 0o600))

			conf, err := NewOAuthConfig(config.GoogleConfig{CredentialsFile: path})
			require.NoError(t, err)
			assert.Equal(t, "file-id", conf.ClientID)
			assert.Equal(t, "file-secret", conf.ClientSecret)
			assert.Equal(t, "https://oauth2.googleapis.com/token", conf.Endpoint.TokenURL)

			conf, err = NewOAuthConfig(config.GoogleConfig{CredentialsFile: path, ClientSecret: "override"})
			require.NoError(t, err)
			assert.Equal(t, "file-id", conf.ClientID)
			assert.Equal(t, "override", conf.ClientSecret)
		})
	}
}

func TestNewOAuthConfig_Errors(t *testing.T) {
	_, err := NewOAuthConfig(config.GoogleConfig{})
	assert.ErrorContains(t, err, "client id")

	_, err = NewOAuthConfig(config.GoogleConfig{CredentialsFile: filepath.Join(t.TempDir(), "missing.json")})
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"other": {}}`), 0o600))
	_, err = NewOAuthConfig(config.GoogleConfig{CredentialsFile: bad})
	assert.Error(t, err)
}
