// Package auth implements the dashboard side of authentication against the
// sales backend: exchanging credentials for a token, dropping the session,
// judging token expiry locally and asking the backend whether the token is
// still alive.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/leikapui/sales-dashboard/internal/events"
	"github.com/leikapui/sales-dashboard/internal/model"
	"github.com/leikapui/sales-dashboard/internal/session"
)

// Backend endpoints.
const (
	LoginPath  = "/api/dashboard/auth/login"
	VerifyPath = "/api/dashboard/auth/verify"
)

// DefaultExpiryLeeway is how close to exp a token may get before the
// dashboard stops trusting it.
const DefaultExpiryLeeway = 5 * time.Minute

// Config holds what a Service needs besides the browser session.
type Config struct {
	BaseURL      string
	HTTPClient   *http.Client
	ExpiryLeeway time.Duration
	Logger       *zap.SugaredLogger
	Notifier     events.Notifier
	Now          func() time.Time
}

// Service performs auth operations for one browser session.
type Service struct {
	baseURL  string
	client   *http.Client
	leeway   time.Duration
	logger   *zap.SugaredLogger
	notifier events.Notifier
	now      func() time.Time
	store    *session.Store
}

// New binds cfg to the browser session store. Zero values in cfg fall back
// to http.DefaultClient, DefaultExpiryLeeway, a no-op logger and notifier,
// and time.Now.
func New(cfg Config, store *session.Store) *Service {
	s := &Service{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		client:   cfg.HTTPClient,
		leeway:   cfg.ExpiryLeeway,
		logger:   cfg.Logger,
		notifier: cfg.Notifier,
		now:      cfg.Now,
		store:    store,
	}
	if s.client == nil {
		s.client = http.DefaultClient
	}
	if s.leeway <= 0 {
		s.leeway = DefaultExpiryLeeway
	}
	if s.logger == nil {
		s.logger = zap.NewNop().Sugar()
	}
	if s.notifier == nil {
		s.notifier = events.Nop
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Store returns the session store the service works on.
func (s *Service) Store() *session.Store { return s.store }

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type errorBody struct {
	Message string `json:"message"`
}

// Login exchanges credentials for a token and persists token and user.
// A non-2xx answer yields *AuthError carrying the backend message, or
// "Login failed" when there is none.
func (s *Service) Login(ctx context.Context, email, password string) (model.Session, error) {
	body, err := json.Marshal(loginRequest{Email: email, Password: password})
	if err != nil {
		return model.Session{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+LoginPath, bytes.NewReader(body))
	if err != nil {
		return model.Session{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return model.Session{}, &NetworkError{Op: "login", Err: err}
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.Session{}, &NetworkError{Op: "login", Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := "Login failed"
		var eb errorBody
		if json.Unmarshal(raw, &eb) == nil && eb.Message != "" {
			msg = eb.Message
		}
		return model.Session{}, &AuthError{Status: resp.StatusCode, Message: msg}
	}

	var sess model.Session
	if err := json.Unmarshal(raw, &sess); err != nil {
		return model.Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if sess.Token == "" {
		return model.Session{}, &AuthError{Status: resp.StatusCode, Message: "Login failed"}
	}
	if err := s.store.Save(ctx, sess.Token, sess.User); err != nil {
		return model.Session{}, fmt.Errorf("persist session: %w", err)
	}
	s.logger.Infow("login succeeded", "session", s.store.ID(), "user", sess.User.ID, "role", sess.User.Role)
	s.notify(ctx, events.TypeLogin, &sess.User)
	return sess, nil
}

// Logout drops the local session. The backend is not told: the token simply
// stops being presented.
func (s *Service) Logout(ctx context.Context) error {
	u, _ := s.store.User(ctx)
	if err := s.store.Clear(ctx); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	s.notify(ctx, events.TypeLogout, u)
	return nil
}

// TokenExpiry decodes the exp claim of the stored token without checking
// its signature.
func (s *Service) TokenExpiry(ctx context.Context) (time.Time, error) {
	tok, ok := s.store.Token(ctx)
	if !ok {
		return time.Time{}, fmt.Errorf("no token")
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tok, claims); err != nil {
		return time.Time{}, err
	}
	exp, err := claims.GetExpirationTime()
	if err != nil {
		return time.Time{}, err
	}
	if exp == nil {
		return time.Time{}, fmt.Errorf("token has no exp claim")
	}
	return exp.Time, nil
}

// IsTokenExpiringSoon reports whether less than the leeway remains before
// the token expires. Any token that cannot be decoded counts as expiring.
func (s *Service) IsTokenExpiringSoon(ctx context.Context) bool {
	exp, err := s.TokenExpiry(ctx)
	if err != nil {
		s.logger.Debugw("token expiry unreadable", "session", s.store.ID(), "error", err)
		return true
	}
	return exp.Sub(s.now()) < s.leeway
}

// VerifyToken asks the backend whether the stored token is still valid.
// A 401 clears the session before false is returned; transport faults are
// logged and reported as false, never as errors.
func (s *Service) VerifyToken(ctx context.Context) bool {
	tok, ok := s.store.Token(ctx)
	if !ok {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+VerifyPath, nil)
	if err != nil {
		s.logger.Errorw("build verify request", "error", err)
		return false
	}
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warnw("token verification failed", "session", s.store.ID(), "error", err)
		return false
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return true
	case resp.StatusCode == http.StatusUnauthorized:
		s.Invalidate(ctx)
		return false
	default:
		s.logger.Warnw("token verification rejected", "session", s.store.ID(), "status", resp.StatusCode)
		return false
	}
}

// Invalidate clears the session after the backend refused the token.
func (s *Service) Invalidate(ctx context.Context) {
	u, _ := s.store.User(ctx)
	if err := s.store.Clear(ctx); err != nil {
		s.logger.Errorw("clear rejected session", "session", s.store.ID(), "error", err)
		return
	}
	s.notify(ctx, events.TypeInvalidated, u)
}

func (s *Service) notify(ctx context.Context, typ string, u *model.User) {
	ev := events.SessionEvent{Type: typ, SessionID: s.store.ID(), At: s.now().UTC()}
	if u != nil {
		ev.UserID, ev.Email, ev.Role = u.ID, u.Email, u.Role
	}
	s.notifier.Notify(ctx, ev)
}
