package google

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// ErrCredentialNotFound is returned by TokenStore.Load when nothing has
// been stored yet.
var ErrCredentialNotFound = errors.New("no stored credential")

// TokenStore persists the service's single OAuth credential.
type TokenStore interface {
	// Load returns the stored credential or ErrCredentialNotFound.
	Load(ctx context.Context) (*Credential, error)

	// Save replaces the stored credential.
	Save(ctx context.Context, cred *Credential) error
}

// FileTokenStore keeps the credential as JSON in a single file with mode
// 0600, optionally sealed with AES-256-GCM.
type FileTokenStore struct {
	path   string
	cipher *tokenCipher
}

// NewFileTokenStore returns a store backed by path. A nil key stores the
// credential in plain JSON.
func NewFileTokenStore(path string, key []byte) (*FileTokenStore, error) {
	if path == "" {
		return nil, errors.New("token file path must not be empty")
	}

	s := &FileTokenStore{path: path}
	if len(key) > 0 {
		c, err := newTokenCipher(key)
		if err != nil {
			return nil, err
		}
		s.cipher = c
	}
	return s, nil
}

// Path returns the credential file location.
func (s *FileTokenStore) Path() string {
	return s.path
}

// Encrypted reports whether credentials are sealed at rest.
func (s *FileTokenStore) Encrypted() bool {
	return s.cipher != nil
}

// Exists reports whether a credential file is present.
func (s *FileTokenStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// Load reads and decodes the credential file.
//
// A plaintext file is still accepted when encryption is configured so an
// existing credential keeps working; it is sealed on the next Save.
func (s *FileTokenStore) Load(_ context.Context) (*Credential, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrCredentialNotFound
		}
		return nil, fmt.Errorf("failed to read token file: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, ErrCredentialNotFound
	}

	if s.cipher != nil && data[0] != '{' {
		data, err = s.cipher.open(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt token file %s: %w", s.path, err)
		}
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return nil, fmt.Errorf("failed to parse token file %s: %w", s.path, err)
	}
	return &cred, nil
}

// Save writes the credential atomically: the data goes to a temporary
// file in the same directory which is then renamed over the old one.
func (s *FileTokenStore) Save(_ context.Context, cred *Credential) error {
	if cred == nil {
		return errors.New("cannot save nil credential")
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}
	if s.cipher != nil {
		data, err = s.cipher.seal(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt credential: %w", err)
		}
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temporary token file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op once the rename succeeded
		_ = os.Remove(tmpName)
	}()

	if err := tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to set token file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to write token file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to sync token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close token file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace token file: %w", err)
	}
	return nil
}
