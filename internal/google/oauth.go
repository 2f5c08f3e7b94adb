package google

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/appointments/internal/config"
)

// NewOAuthConfig builds the OAuth2 client configuration.
//
// When a client secret file is configured it is parsed first (either the
// "web" or the "installed" section). Client ID, secret and endpoint URLs
// set explicitly in cfg take precedence over the file. Endpoints default
// to Google's.
func NewOAuthConfig(cfg config.GoogleConfig) (*oauth2.Config, error) {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{config.CalendarScope}
	}

	conf := &oauth2.Config{
		Endpoint: google.Endpoint,
		Scopes:   scopes,
	}

	if cfg.CredentialsFile != "" {
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client secret file: %w", err)
		}
		fromFile, err := google.ConfigFromJSON(data, scopes...)
		if err != nil {
			return nil, fmt.Errorf("failed to parse client secret file %s: %w", cfg.CredentialsFile, err)
		}
		conf = fromFile
	}

	if cfg.ClientID != "" {
		conf.ClientID = cfg.ClientID
	}
	if cfg.ClientSecret != "" {
		conf.ClientSecret = cfg.ClientSecret
	}
	if cfg.AuthURL != "" {
		conf.Endpoint.AuthURL = cfg.AuthURL
	}
	if cfg.TokenURL != "" {
		conf.Endpoint.TokenURL = cfg.TokenURL
	}

	if conf.ClientID == "" {
		return nil, errors.New("google client id is not configured")
	}

	return conf, nil
}
