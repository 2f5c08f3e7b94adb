package google

import (
	"context"

	"golang.org/x/oauth2"
)

// CredentialSource is implemented by Manager. Request handlers depend on
// this interface so tests can supply a fixed credential.
type CredentialSource interface {
	Acquire(ctx context.Context) (*Credential, error)
}

// StaticSource always returns the same credential. It is meant for tests
// and for tools that already hold a token.
type StaticSource struct {
	Credential *Credential
	Err        error
}

// Acquire returns s.Credential or s.Err.
func (s StaticSource) Acquire(context.Context) (*Credential, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	return s.Credential, nil
}

// TokenSource acquires a credential once and wraps its access token.
// The result does not refresh on its own; acquire again per request.
func TokenSource(ctx context.Context, src CredentialSource) (oauth2.TokenSource, error) {
	cred, err := src.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return oauth2.StaticTokenSource(cred.Token()), nil
}
