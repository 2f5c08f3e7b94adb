package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"golang.org/x/oauth2"
)

// fakeTokenServer is a minimal OAuth2 token endpoint.
type fakeTokenServer struct {
	*httptest.Server

	calls atomic.Int32

	mu       sync.Mutex
	lastForm map[string]string

	// status and body override the default success response when set.
	status int
	body   map[string]any
}

func newFakeTokenServer(t *testing.T) *fakeTokenServer {
	t.Helper()

	f := &fakeTokenServer{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.calls.Add(1)
		_ = r.ParseForm()

		f.mu.Lock()
		f.lastForm = map[string]string{}
		for k := range r.PostForm {
			f.lastForm[k] = r.PostForm.Get(k)
		}
		status, body := f.status, f.body
		f.mu.Unlock()

		if status == 0 {
			status = http.StatusOK
		}
		if body == nil {
			body = map[string]any{
				"access_token": "fresh-access-token",
				"token_type":   "Bearer",
				"expires_in":   3600,
				"scope":        "https://www.googleapis.com/auth/calendar",
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeTokenServer) form() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastForm
}

func (f *fakeTokenServer) respond(status int, body map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status, f.body = status, body
}

func (f *fakeTokenServer) oauthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		Endpoint: oauth2.Endpoint{
			AuthURL:   f.URL + "/auth",
			TokenURL:  f.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		},
		Scopes: []string{"https://www.googleapis.com/auth/calendar"},
	}
}

// memoryStore is an in-memory TokenStore that counts writes.
type memoryStore struct {
	mu      sync.Mutex
	cred    *Credential
	saves   int
	loadErr error
	saveErr error
}

func (s *memoryStore) Load(context.Context) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	if s.cred == nil {
		return nil, ErrCredentialNotFound
	}
	c := *s.cred
	return &c, nil
}

func (s *memoryStore) Save(_ context.Context, cred *Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	c := *cred
	s.cred = &c
	s.saves++
	return nil
}

func (s *memoryStore) saved() (*Credential, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cred, s.saves
}
