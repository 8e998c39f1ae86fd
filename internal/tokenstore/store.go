// Package tokenstore persists the bearer token and the cached identity
// (user_email, user_role) of each browser session.
package tokenstore

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jobmatch/jobmatch-portal/internal/model"
)

// Keys written under each scope.
const (
	KeyToken = "token"
	KeyEmail = "user_email"
	KeyRole  = "user_role"
)

var (
	ErrEmptyToken = errors.New("token must not be empty")
)

// Backend is scoped string key/value storage. Implementations must make
// Delete of absent keys a no-op.
type Backend interface {
	Get(ctx context.Context, scope, key string) (value string, ok bool, err error)
	Set(ctx context.Context, scope string, values map[string]string) error
	Delete(ctx context.Context, scope string, keys ...string) error
}

// Pruner is implemented by backends that need expired scopes removed
// periodically.
type Pruner interface {
	Prune(ctx context.Context) (int64, error)
}

// Store is the token store of a single browser session.
type Store struct {
	backend Backend
	scope   string
	logger  *slog.Logger
}

// New returns a Store writing under scope.
func New(backend Backend, scope string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, scope: scope, logger: logger}
}

// Save persists token, replacing any previous one.
func (s *Store) Save(ctx context.Context, token string) error {
	if token == "" {
		return ErrEmptyToken
	}
	return s.backend.Set(ctx, s.scope, map[string]string{KeyToken: token})
}

// Read returns the stored token. It never fails: a backend error is
// logged and reported as an absent token.
func (s *Store) Read(ctx context.Context) (string, bool) {
	v, ok, err := s.backend.Get(ctx, s.scope, KeyToken)
	if err != nil {
		s.logger.Warn("token store read failed", "scope", s.scope, "error", err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Clear removes the token and the cached identity.
func (s *Store) Clear(ctx context.Context) error {
	return s.backend.Delete(ctx, s.scope, KeyToken, KeyEmail, KeyRole)
}

// SaveProfile caches the identity of the logged-in user.
func (s *Store) SaveProfile(ctx context.Context, email string, role model.Role) error {
	return s.backend.Set(ctx, s.scope, map[string]string{
		KeyEmail: email,
		KeyRole:  string(role),
	})
}
