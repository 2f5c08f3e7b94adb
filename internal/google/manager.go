package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/oauth2"

	"github.com/teemow/appointments/internal/instrumentation"
	"github.com/teemow/appointments/internal/logging"
)

// ErrAuthorizationRequired is returned when no usable credential exists
// and the configured Authorizer cannot obtain one without a user.
var ErrAuthorizationRequired = errors.New("authorization required: run `appointments auth` or set GOOGLE_REFRESH_TOKEN")

// Authorizer obtains a brand new token, typically by asking the user to
// grant access.
type Authorizer interface {
	Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)
}

// AuthorizerFunc adapts a function to the Authorizer interface.
type AuthorizerFunc func(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error)

// Authorize calls f.
func (f AuthorizerFunc) Authorize(ctx context.Context, conf *oauth2.Config) (*oauth2.Token, error) {
	return f(ctx, conf)
}

// NonInteractiveAuthorizer never prompts. Services use it so a missing
// credential fails the request instead of blocking on a browser.
type NonInteractiveAuthorizer struct{}

// Authorize always returns ErrAuthorizationRequired.
func (NonInteractiveAuthorizer) Authorize(context.Context, *oauth2.Config) (*oauth2.Token, error) {
	return nil, ErrAuthorizationRequired
}

// ManagerConfig configures a Manager.
type ManagerConfig struct {
	OAuth *oauth2.Config
	Store TokenStore

	// Authorizer runs when there is neither a stored nor a seed credential.
	// Defaults to NonInteractiveAuthorizer.
	Authorizer Authorizer

	// RefreshToken is a pre-provisioned refresh token used to mint the
	// first credential without user interaction.
	RefreshToken string

	// HTTPClient is used for token endpoint requests. Optional.
	HTTPClient *http.Client

	Logger  *slog.Logger
	Metrics *instrumentation.Metrics
}

// Manager hands out valid credentials and keeps the store in sync.
// Acquire and Reauthorize are serialized; Status never waits for them.
type Manager struct {
	oauth        *oauth2.Config
	store        TokenStore
	authorizer   Authorizer
	refreshToken string
	httpClient   *http.Client
	logger       *slog.Logger
	metrics      *instrumentation.Metrics

	// mu guards credential writes. Stores replace the file atomically, so
	// reads do not take it.
	mu sync.Mutex
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.OAuth == nil {
		return nil, errors.New("oauth config is required")
	}
	if cfg.Store == nil {
		return nil, errors.New("token store is required")
	}

	m := &Manager{
		oauth:        cfg.OAuth,
		store:        cfg.Store,
		authorizer:   cfg.Authorizer,
		refreshToken: cfg.RefreshToken,
		httpClient:   cfg.HTTPClient,
		logger:       cfg.Logger,
		metrics:      cfg.Metrics,
	}
	if m.authorizer == nil {
		m.authorizer = NonInteractiveAuthorizer{}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	m.logger = m.logger.With("component", "credentials")
	return m, nil
}

// Acquire returns a valid credential.
//
//   - A valid stored credential is returned as is.
//   - An expired stored credential with a refresh token is refreshed.
//     A failed refresh is returned to the caller without falling back to
//     authorization.
//   - Otherwise the pre-provisioned refresh token is exchanged, or, when
//     there is none, the Authorizer runs.
//
// Any newly obtained credential is saved before it is returned.
func (m *Manager) Acquire(ctx context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := instrumentation.StartSpan(ctx, "credentials.acquire")
	defer span.End()

	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	stored, err := m.store.Load(ctx)
	if err != nil && !errors.Is(err, ErrCredentialNotFound) {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to load credential: %w", err)
	}

	var (
		cred   *Credential
		source string
	)
	switch {
	case stored.Valid():
		cred, source = stored, instrumentation.CredentialSourceCache

	case stored.Refreshable():
		cred, err = m.refresh(ctx, stored.Token())
		source = instrumentation.CredentialSourceRefresh

	case m.refreshToken != "":
		cred, err = m.refresh(ctx, &oauth2.Token{RefreshToken: m.refreshToken})
		source = instrumentation.CredentialSourceSeed

	default:
		cred, err = m.authorize(ctx)
		source = instrumentation.CredentialSourceAuthorize
	}
	span.SetAttributes(attribute.String(instrumentation.SpanAttrCredentialSource, source))
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}

	if source != instrumentation.CredentialSourceCache {
		if err := m.store.Save(ctx, cred); err != nil {
			instrumentation.SetSpanError(span, err)
			return nil, fmt.Errorf("failed to persist credential: %w", err)
		}
		m.logger.Info("credential stored",
			slog.String("source", source),
			slog.String("access_token", logging.SanitizeToken(cred.AccessToken)),
			slog.Time("expiry", cred.Expiry))
	}

	m.metrics.RecordCredentialAcquired(ctx, source)
	instrumentation.SetSpanSuccess(span)
	return cred, nil
}

// Reauthorize runs the Authorizer even when a usable credential is
// stored. The stored credential is replaced only once a new one has been
// obtained, so a denied or timed out consent leaves it in place.
func (m *Manager) Reauthorize(ctx context.Context) (*Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ctx, span := instrumentation.StartSpan(ctx, "credentials.reauthorize")
	defer span.End()
	if m.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
	}

	cred, err := m.authorize(ctx)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	if err := m.store.Save(ctx, cred); err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to persist credential: %w", err)
	}
	m.logger.Info("credential replaced",
		slog.String("access_token", logging.SanitizeToken(cred.AccessToken)),
		slog.Time("expiry", cred.Expiry))

	m.metrics.RecordCredentialAcquired(ctx, instrumentation.CredentialSourceAuthorize)
	instrumentation.SetSpanSuccess(span)
	return cred, nil
}

func (m *Manager) refresh(ctx context.Context, token *oauth2.Token) (*Credential, error) {
	refreshed, err := m.oauth.TokenSource(ctx, token).Token()
	if err != nil {
		result := instrumentation.OAuthResultFailure
		var re *oauth2.RetrieveError
		if errors.As(err, &re) && re.ErrorCode == "invalid_grant" {
			result = instrumentation.OAuthResultExpired
		}
		m.metrics.RecordOAuthTokenRefresh(ctx, result)
		m.logger.Warn("token refresh failed", logging.Err(err))
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}

	m.metrics.RecordOAuthTokenRefresh(ctx, instrumentation.OAuthResultSuccess)
	return FromToken(refreshed, m.oauth.Scopes), nil
}

func (m *Manager) authorize(ctx context.Context) (*Credential, error) {
	token, err := m.authorizer.Authorize(ctx, m.oauth)
	if err != nil {
		if !errors.Is(err, ErrAuthorizationRequired) {
			m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		}
		return nil, fmt.Errorf("failed to authorize: %w", err)
	}
	if token == nil || token.AccessToken == "" {
		m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultFailure)
		return nil, errors.New("failed to authorize: empty token")
	}

	m.metrics.RecordOAuthAuth(ctx, instrumentation.OAuthResultSuccess)
	if token.RefreshToken == "" {
		m.logger.Warn("authorization returned no refresh token; the credential cannot be renewed once it expires")
	}
	return FromToken(token, m.oauth.Scopes), nil
}

// Status describes whether Acquire can succeed without user interaction.
type Status struct {
	Stored         bool
	Valid          bool
	Refreshable    bool
	SeedConfigured bool
	StoreError     error
}

// Ready reports whether a credential can be produced without a user.
func (s Status) Ready() bool {
	return s.Valid || s.Refreshable || s.SeedConfigured
}

// Status inspects the store without refreshing anything. It does not
// block while an authorization is pending.
func (m *Manager) Status(ctx context.Context) Status {
	st := Status{SeedConfigured: m.refreshToken != ""}
	cred, err := m.store.Load(ctx)
	switch {
	case errors.Is(err, ErrCredentialNotFound):
	case err != nil:
		st.StoreError = err
	default:
		st.Stored = true
		st.Valid = cred.Valid()
		st.Refreshable = cred.Refreshable()
	}
	return st
}
