package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const schemaVersion = 1

// Tokens is the access/refresh token pair
type Tokens struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// TokenStore persists tokens across wizard sessions
type TokenStore interface {
	Load() (Tokens, error)
	Save(tokens Tokens) error
}

type storedTokens struct {
	SchemaVersion int       `json:"schema_version"`
	Tokens        Tokens    `json:"tokens"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FileStore keeps tokens in a JSON file readable only by the owner
type FileStore struct {
	path string
	mu   sync.Mutex
}

// NewFileStore creates a file-backed token store
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the credentials file location
func (s *FileStore) Path() string {
	return s.path
}

// Load returns the stored tokens. A missing file yields empty tokens.
func (s *FileStore) Load() (Tokens, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Tokens{}, nil
		}
		return Tokens{}, fmt.Errorf("failed to read credentials %s: %w", s.path, err)
	}

	var stored storedTokens
	if err := json.Unmarshal(data, &stored); err != nil {
		return Tokens{}, fmt.Errorf("failed to decode credentials %s: %w", s.path, err)
	}
	if stored.SchemaVersion != schemaVersion {
		return Tokens{}, fmt.Errorf("unsupported credentials schema version %d", stored.SchemaVersion)
	}
	return stored.Tokens, nil
}

// Save replaces the stored tokens atomically
func (s *FileStore) Save(tokens Tokens) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(storedTokens{
		SchemaVersion: schemaVersion,
		Tokens:        tokens,
		UpdatedAt:     time.Now().UTC(),
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to chmod temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("failed to replace credentials %s: %w", s.path, err)
	}
	return nil
}
