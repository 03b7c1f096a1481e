package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// Storage keys of the two session halves, per browser.
const (
	TokenKey = "dashboard_token"
	UserKey  = "dashboard_user"
)

// ErrNoBrowser is returned by Save when the store is not bound to a
// browser session.
var ErrNoBrowser = errors.New("session: no browser session")

// Store is one browser's session: a bearer token and the user record it
// belongs to. A Store without an ID behaves like code running outside a
// browser: reads report absent and writes fail.
type Store struct {
	storage Storage
	id      string
}

// NewStore binds storage to the browser session id.
func NewStore(storage Storage, id string) *Store {
	return &Store{storage: storage, id: id}
}

// ID returns the browser session identifier.
func (s *Store) ID() string { return s.id }

func (s *Store) key(name string) string { return s.id + ":" + name }

func (s *Store) bound() bool { return s != nil && s.storage != nil && s.id != "" }

// Save writes the token, then the serialized user. The writes are not
// transactional: if the second one fails the token stays behind and the
// gate treats the session as broken on the next check.
func (s *Store) Save(ctx context.Context, token string, user model.User) error {
	if !s.bound() {
		return ErrNoBrowser
	}
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}
	if err := s.storage.Set(ctx, s.key(TokenKey), token); err != nil {
		return fmt.Errorf("save token: %w", err)
	}
	if err := s.storage.Set(ctx, s.key(UserKey), string(raw)); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// Token returns the stored bearer token.
func (s *Store) Token(ctx context.Context) (string, bool) {
	if !s.bound() {
		return "", false
	}
	v, err := s.storage.Get(ctx, s.key(TokenKey))
	if err != nil || v == "" {
		return "", false
	}
	return v, true
}

// User returns the stored user record. A record that no longer decodes is
// reported as absent.
func (s *Store) User(ctx context.Context) (*model.User, bool) {
	if !s.bound() {
		return nil, false
	}
	v, err := s.storage.Get(ctx, s.key(UserKey))
	if err != nil || v == "" {
		return nil, false
	}
	var u model.User
	if err := json.Unmarshal([]byte(v), &u); err != nil {
		return nil, false
	}
	return &u, true
}

// Clear removes both halves of the session.
func (s *Store) Clear(ctx context.Context) error {
	if !s.bound() {
		return nil
	}
	return s.storage.Delete(ctx, s.key(TokenKey), s.key(UserKey))
}
