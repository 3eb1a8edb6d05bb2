package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scanner-approval/internal/interfaces"
	"scanner-approval/internal/logger"
	"scanner-approval/internal/metrics"
	"scanner-approval/internal/types"
)

var (
	ErrNotLoggedIn        = errors.New("not logged in")
	ErrMissingCredentials = errors.New("api key, api secret and request token are required")
)

// Store owns the single operator session and its on-disk cache.
// No other package reads or writes the cache file.
type Store struct {
	path    string
	auth    interfaces.Authenticator
	current *types.Session
}

func New(path string, auth interfaces.Authenticator) *Store {
	return &Store{path: path, auth: auth}
}

// Current returns the live session, if any.
func (s *Store) Current() (*types.Session, bool) {
	return s.current, s.current != nil
}

func (s *Store) LoginURL(apiKey string) string {
	return s.auth.LoginURL(apiKey)
}

// Restore loads the cached record and validates its token with a profile
// request. Any failure removes the record and reports not logged in.
func (s *Store) Restore(ctx context.Context) (*types.Session, bool) {
	sess, err := s.load()
	if err == nil {
		_, err = s.auth.Profile(ctx, sess.APIKey, sess.AccessToken)
		if err != nil {
			err = fmt.Errorf("cached token rejected: %w", err)
		}
	}

	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.Warn(ctx, "Discarding cached session", "path", s.path, "error", err)
		}
		s.discard(ctx)
		metrics.IncRestore("cleared")
		return nil, false
	}

	s.current = &sess
	metrics.IncRestore("restored")
	logger.Info(ctx, "Session restored", "user", sess.UserName(), "cached_at", sess.Timestamp)
	return s.current, true
}

// CreateFromExchange trades a one-time request token for an access token,
// persists the session and makes it current. Nothing is persisted on failure.
func (s *Store) CreateFromExchange(ctx context.Context, requestToken, apiKey, apiSecret string) (*types.Session, error) {
	requestToken = strings.TrimSpace(requestToken)
	apiKey = strings.TrimSpace(apiKey)
	apiSecret = strings.TrimSpace(apiSecret)
	if requestToken == "" || apiKey == "" || apiSecret == "" {
		return nil, ErrMissingCredentials
	}

	sess, err := s.auth.GenerateSession(ctx, apiKey, requestToken, apiSecret)
	if err != nil {
		return nil, err
	}

	if err := s.Persist(&sess); err != nil {
		// The in-memory session stays authoritative for this process.
		logger.Warn(ctx, "Could not save session cache", "path", s.path, "error", err)
	}
	s.current = &sess
	logger.Info(ctx, "Session created", "user", sess.UserName())
	return s.current, nil
}

// Persist writes the full record, stamping it with the current time.
// The file is replaced via rename so a crash never leaves a partial record.
func (s *Store) Persist(sess *types.Session) error {
	sess.Timestamp = time.Now().Format(time.RFC3339)
	b, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".session-*.json")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}

// Clear drops the in-memory session and deletes the record.
func (s *Store) Clear() error {
	s.current = nil
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Logout invalidates the token remotely, best effort, then clears.
func (s *Store) Logout(ctx context.Context) error {
	sess := s.current
	if sess == nil {
		if err := s.Clear(); err != nil {
			return err
		}
		return ErrNotLoggedIn
	}

	if err := s.auth.Invalidate(ctx, sess.APIKey, sess.AccessToken); err != nil {
		logger.Warn(ctx, "Remote token invalidation failed", "error", err)
	}
	if err := s.Clear(); err != nil {
		return fmt.Errorf("remove session cache: %w", err)
	}
	logger.Info(ctx, "Logged out", "user", sess.UserName())
	return nil
}

func (s *Store) load() (types.Session, error) {
	var sess types.Session
	b, err := os.ReadFile(s.path)
	if err != nil {
		return sess, err
	}
	if err := json.Unmarshal(b, &sess); err != nil {
		return sess, fmt.Errorf("malformed session cache: %w", err)
	}
	if sess.APIKey == "" || sess.AccessToken == "" {
		return sess, errors.New("session cache missing api_key or access_token")
	}
	if sess.Profile == nil {
		sess.Profile = map[string]any{}
	}
	return sess, nil
}

func (s *Store) discard(ctx context.Context) {
	if err := s.Clear(); err != nil {
		logger.Warn(ctx, "Could not remove session cache", "path", s.path, "error", err)
	}
}
