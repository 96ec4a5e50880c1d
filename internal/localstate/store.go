package localstate

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionFile = "session.json"
	introFile   = "intro_played"
)

// Record is the minimal persisted session identity, read at startup to
// restore the logged-in state. The client keeps no other durable state.
type Record struct {
	UserId int64  `json:"user_id"`
	Name   string `json:"name"`
	Token  string `json:"token,omitempty"`
}

// TokenExpired inspects the stored token's exp claim without verifying the
// signature; verification is the server's job, the client only needs to know
// whether presenting it is pointless.
func (r *Record) TokenExpired() bool {
	if r.Token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	_, _, err := jwt.NewParser().ParseUnverified(r.Token, claims)
	if err != nil {
		return true
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	return exp.Before(time.Now())
}

// Store reads and writes the on-device session state
type Store struct {
	dir string
}

// NewStore creates a store rooted at dir; empty dir resolves to the user
// config directory
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		base, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("resolve state dir: %w", err)
		}
		dir = filepath.Join(base, "studyhub")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Load reads the session record; (nil, nil) when none is stored
func (s *Store) Load() (*Record, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, sessionFile))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read session: %w", err)
	}

	var r Record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	if r.UserId == 0 {
		return nil, nil
	}
	return &r, nil
}

// Save writes the session record
func (s *Store) Save(r *Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, sessionFile), data, 0o600); err != nil {
		return fmt.Errorf("write session: %w", err)
	}
	return nil
}

// Clear removes the session record (logout)
func (s *Store) Clear() error {
	err := os.Remove(filepath.Join(s.dir, sessionFile))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// IntroPlayed reports whether the first-run introduction was already shown
func (s *Store) IntroPlayed() bool {
	_, err := os.Stat(filepath.Join(s.dir, introFile))
	return err == nil
}

// MarkIntroPlayed sets the one-shot first-run flag
func (s *Store) MarkIntroPlayed() error {
	return os.WriteFile(filepath.Join(s.dir, introFile), []byte("1"), 0o600)
}
