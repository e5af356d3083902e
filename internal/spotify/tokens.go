// Package spotify manages the Spotify session: OAuth token lifecycle,
// authenticated Web API calls, and playback device discovery.
//
// The session refreshes tokens before use, retries a call exactly once
// after a forced refresh on 401, and classifies entitlement failures so
// a free-tier account degrades to a friendly message instead of an
// error. Token values never appear in logs.
package spotify

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Credentials is the persisted OAuth token record.
type Credentials struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	// ExpiresAt is the unix-seconds instant after which AccessToken
	// must not be used for a new call.
	ExpiresAt int64 `json:"expires_at"`
}

// Stale reports whether the access token needs a refresh before use.
// The skew keeps a token from expiring mid-flight.
func (c *Credentials) Stale(now time.Time, skew time.Duration) bool {
	return now.Add(skew).Unix() >= c.ExpiresAt
}

// TokenStore persists the credential record between processes.
type TokenStore interface {
	// Load returns the stored record, or (nil, nil) when none exists.
	// A record that exists but cannot be read yields a *StorageError.
	Load() (*Credentials, error)
	// Save atomically replaces the stored record. A concurrent Load
	// never observes a partially written record.
	Save(*Credentials) error
}

// FileTokenStore keeps the credential record in a JSON file. The file
// may be shared with a concurrently running CLI invocation, so Save
// writes a temp file and renames it over the old one.
type FileTokenStore struct {
	path string
}

// NewFileTokenStore creates a store backed by the given path.
func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the credential record. Absence is not an error: it is the
// "not yet authorized" state.
func (s *FileTokenStore) Load() (*Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, &StorageError{Path: s.path, Err: err}
	}

	var creds Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, &StorageError{Path: s.path, Err: err}
	}
	if creds.AccessToken == "" || creds.RefreshToken == "" {
		return nil, &StorageError{Path: s.path, Err: fmt.Errorf("record is missing token fields")}
	}
	return &creds, nil
}

// Save writes the record with a temp-file-and-rename so a reader never
// sees a half-written file.
func (s *FileTokenStore) Save(creds *Credentials) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &StorageError{Path: s.path, Err: err}
	}

	data, err := json.MarshalIndent(creds, "", "  ")
	if err != nil {
		return &StorageError{Path: s.path, Err: err}
	}

	tmp, err := os.CreateTemp(dir, ".spotify_token-*")
	if err != nil {
		return &StorageError{Path: s.path, Err: err}
	}
	tmpName := tmp.Name()

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Path: s.path, Err: err}
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &StorageError{Path: s.path, Err: err}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &StorageError{Path: s.path, Err: err}
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return &StorageError{Path: s.path, Err: err}
	}
	return nil
}
