// Package session persists the console session of a client: the access and
// refresh tokens and the privilege matrix fetched at login.
package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/phdlabs/admind/internal/authz"
	"github.com/phdlabs/admind/internal/model"
)

// FileName is the name of the session file inside the data directory.
const FileName = "session.json"

// Data is the persisted session.
type Data struct {
	BaseURL      string            `json:"baseUrl,omitempty"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"refreshToken"`
	Admin        *model.Admin      `json:"admin,omitempty"`
	Privileges   []model.Privilege `json:"privileges"`
}

// Store is a file-backed session. Writes replace the whole file, the last
// writer wins.
type Store struct {
	path string

	mu   sync.Mutex
	data Data
}

// Open loads the session stored in dir. A missing file yields an empty
// session.
func Open(dir string) (*Store, error) {
	s := &Store{path: filepath.Join(dir, FileName)}
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	if err := json.Unmarshal(raw, &s.data); err != nil {
		// A corrupt file is treated as signed out.
		s.data = Data{}
	}
	return s, nil
}

// Save replaces the session and writes it to disk.
func (s *Store) Save(d Data) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = d
	return s.flush()
}

// SetTokens updates the token pair after a refresh, keeping the rest.
func (s *Store) SetTokens(access, refresh string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.AccessToken = access
	s.data.RefreshToken = refresh
	return s.flush()
}

// SetPrivileges replaces the cached privilege matrix.
func (s *Store) SetPrivileges(p []model.Privilege) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Privileges = p
	return s.flush()
}

// Clear forgets the session and removes the file.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = Data{}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session: %w", err)
	}
	return nil
}

// Load returns a copy of the session.
func (s *Store) Load() Data {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data
}

func (s *Store) AccessToken() string  { return s.Load().AccessToken }
func (s *Store) RefreshToken() string { return s.Load().RefreshToken }
func (s *Store) CurrentAdmin() *model.Admin {
	return s.Load().Admin
}

// Privileges returns the cached privilege matrix.
func (s *Store) Privileges() authz.Privileges {
	return authz.Privileges(s.Load().Privileges)
}

// HasPrivilege evaluates the cached matrix.
func (s *Store) HasPrivilege(functionKey string, access authz.Access) bool {
	return s.Privileges().Has(functionKey, access)
}

// IsLoggedIn reports whether the session holds an access token that has not
// expired at now. An expired or unreadable token clears the session.
func (s *Store) IsLoggedIn(now time.Time) bool {
	token := s.AccessToken()
	if token == "" {
		return false
	}
	exp, err := Expiry(token)
	if err != nil || !now.Before(exp) {
		_ = s.Clear()
		return false
	}
	return true
}

// GuardState snapshots the session for the route guards.
func (s *Store) GuardState(now time.Time) authz.State {
	return authz.State{LoggedIn: s.IsLoggedIn(now), Privileges: s.Privileges()}
}

// Expiry decodes the exp claim of a JWT without verifying its signature. The
// result is advisory; the server remains the authority.
func Expiry(token string) (time.Time, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, fmt.Errorf("decode token: %w", err)
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, fmt.Errorf("decode exp: %w", err)
	}
	if exp == nil {
		return time.Time{}, errors.New("token has no exp claim")
	}
	return exp.Time, nil
}

func (s *Store) flush() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	raw, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}
