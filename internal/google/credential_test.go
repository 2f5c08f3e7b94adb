package google

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"golang.org/x/oauth2"
)

func TestFromToken(t *testing.T) {
	requested := []string{"https://www.googleapis.com/auth/calendar"}

	t.Run("scopes from response", func(t *testing.T) {
		tok := (&oauth2.Token{AccessToken: "a", RefreshToken: "r"}).WithExtra(map[string]any{
			"scope": "https://www.googleapis.com/auth/calendar openid",
		})
		c := FromToken(tok, requested)
		assert.Equal(t, []string{"https://www.googleapis.com/auth/calendar", "openid"}, c.Scopes)
		assert.Equal(t, "r", c.RefreshToken)
	})

	t.Run("scopes fall back to requested", func(t *testing.T) {
		c := FromToken(&oauth2.Token{AccessToken: "a"}, requested)
		assert.Equal(t, requested, c.Scopes)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FromToken(nil, requested))
	})
}

func TestCredential_Valid(t *testing.T) {
	tests := []struct {
		name  string
		cred  *Credential
		valid bool
	}{
		{name: "nil", cred: nil, valid: false},
		{name: "no access token", cred: &Credential{RefreshToken: "r"}, valid: false},
		{name: "no expiry", cred: &Credential{AccessToken: "a"}, valid: true},
		{name: "future expiry", cred: &Credential{AccessToken: "a", Expiry: time.Now().Add(time.Hour)}, valid: true},
		{name: "expired", cred: &Credential{AccessToken: "a", Expiry: time.Now().Add(-time.Minute)}, valid: false},
		{name: "within early expiry margin", cred: &Credential{AccessToken: "a", Expiry: time.Now().Add(5 * time.Second)}, valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.cred.Valid())
		})
	}
}

func TestCredential_Refreshable(t *testing.T) {
	var nilCred *Credential
	assert.False(t, nilCred.Refreshable())
	assert.False(t, (&Credential{AccessToken: "a"}).Refreshable())
	assert.True(t, (&Credential{RefreshToken: "r"}).Refreshable())
}
