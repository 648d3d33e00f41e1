// Package store persists the session on disk: access token, refresh token,
// cached profile and role-class tag.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	pebble "github.com/cockroachdb/pebble"

	"github.com/naveenspark/folio/pkg/domain"
)

const (
	keyAccessToken  = "auth:access_token"
	keyRefreshToken = "auth:refresh_token"
	keyProfile      = "auth:profile"
	keyUserType     = "auth:user_type"
)

var sessionKeys = []string{keyAccessToken, keyRefreshToken, keyProfile, keyUserType}

// ErrNoCredentials is returned by Load when nobody is logged in.
var ErrNoCredentials = errors.New("store: no stored credentials")

// Store is a pebble-backed credential store. It also serves as the REST
// client's token source.
type Store struct {
	db *pebble.DB

	mu    sync.RWMutex
	token string
}

// Open opens (or creates) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("store.Open: %w", err)
	}
	s := &Store{db: db}
	if tok, err := s.get(keyAccessToken); err == nil {
		s.token = string(tok)
	}
	return s, nil
}

// Close releases the database. Calling it twice is harmless.
func (s *Store) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// AccessToken returns the cached bearer token, or "".
func (s *Store) AccessToken() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// Save writes every credential field in one batch.
func (s *Store) Save(c domain.Credentials) error {
	if c.AccessToken == "" {
		return fmt.Errorf("store.Save: empty access token")
	}
	profile, err := json.Marshal(c.Profile)
	if err != nil {
		return fmt.Errorf("store.Save: marshal profile: %w", err)
	}

	b := s.db.NewBatch()
	defer b.Close() //nolint:errcheck
	for k, v := range map[string][]byte{
		keyAccessToken:  []byte(c.AccessToken),
		keyRefreshToken: []byte(c.RefreshToken),
		keyProfile:      profile,
		keyUserType:     []byte(c.UserType),
	} {
		if err := b.Set([]byte(k), v, nil); err != nil {
			return fmt.Errorf("store.Save: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store.Save: %w", err)
	}

	s.mu.Lock()
	s.token = c.AccessToken
	s.mu.Unlock()
	return nil
}

// Load returns the stored credentials or ErrNoCredentials.
func (s *Store) Load() (*domain.Credentials, error) {
	tok, err := s.get(keyAccessToken)
	if errors.Is(err, pebble.ErrNotFound) || (err == nil && len(tok) == 0) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("store.Load: %w", err)
	}

	c := &domain.Credentials{AccessToken: string(tok)}
	if v, err := s.get(keyRefreshToken); err == nil {
		c.RefreshToken = string(v)
	}
	if v, err := s.get(keyUserType); err == nil {
		c.UserType = string(v)
	}
	if v, err := s.get(keyProfile); err == nil && len(v) > 0 {
		if err := json.Unmarshal(v, &c.Profile); err != nil {
			return nil, fmt.Errorf("store.Load: decode profile: %w", err)
		}
	}
	return c, nil
}

// UpdateProfile replaces the cached profile, keeping the tokens.
func (s *Store) UpdateProfile(p domain.Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("store.UpdateProfile: %w", err)
	}
	if err := s.db.Set([]byte(keyProfile), data, pebble.Sync); err != nil {
		return fmt.Errorf("store.UpdateProfile: %w", err)
	}
	return nil
}

// Clear deletes every credential field in one batch.
func (s *Store) Clear() error {
	b := s.db.NewBatch()
	defer b.Close() //nolint:errcheck
	for _, k := range sessionKeys {
		if err := b.Delete([]byte(k), nil); err != nil {
			return fmt.Errorf("store.Clear: %w", err)
		}
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("store.Clear: %w", err)
	}

	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
	return nil
}

func (s *Store) get(key string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, err
	}
	defer closer.Close() //nolint:errcheck
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}
