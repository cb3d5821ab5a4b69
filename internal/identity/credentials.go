package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dukerupert/listkeep/internal/model"
)

// Credentials are what the client keeps between runs after signing in.
type Credentials struct {
	ServerURL string     `json:"server_url"`
	Token     string     `json:"token"`
	User      model.User `json:"user"`
	CreatedAt time.Time  `json:"created_at"`
}

// CredentialStore persists Credentials as an owner-only JSON file.
type CredentialStore struct {
	path string
}

func NewCredentialStore(path string) *CredentialStore {
	return &CredentialStore{path: path}
}

func (s *CredentialStore) Path() string {
	return s.path
}

// Load returns the saved credentials, or nil when not signed in.
func (s *CredentialStore) Load() (*Credentials, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	c.Token = stripBearer(c.Token)
	if c.Token == "" {
		return nil, nil
	}
	return &c, nil
}

func (s *CredentialStore) Save(c Credentials) error {
	c.Token = stripBearer(strings.TrimSpace(c.Token))
	if c.Token == "" {
		return errors.New("empty token")
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	if err := os.WriteFile(s.path, b, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

func (s *CredentialStore) Delete() error {
	if err := os.Remove(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("remove: %w", err)
	}
	return nil
}

func stripBearer(s string) string {
	if strings.HasPrefix(strings.ToLower(s), "bearer ") {
		return strings.TrimSpace(s[7:])
	}
	return s
}
