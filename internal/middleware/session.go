package middleware

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/session"
)

// Context keys set by the dashboard middleware.
const (
	SessionKey = "session"
	UserKey    = "user"
)

// SessionConfig configures the browser session cookie.
type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Session binds every request to a browser session. The session id lives
// in a cookie; a missing or malformed id is replaced by a fresh UUID and the
// cookie is (re)issued.
func Session(cfg SessionConfig, storage session.Storage) echo.MiddlewareFunc {
	if cfg.CookieName == "" {
		cfg.CookieName = "dashboard_sid"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sid := ""
			if ck, err := c.Cookie(cfg.CookieName); err == nil {
				if id, err := uuid.Parse(ck.Value); err == nil {
					sid = id.String()
				}
			}
			if sid == "" {
				sid = uuid.NewString()
				ck := &http.Cookie{
					Name:     cfg.CookieName,
					Value:    sid,
					Path:     "/",
					HttpOnly: true,
					Secure:   cfg.Secure,
					SameSite: http.SameSiteLaxMode,
				}
				if cfg.TTL > 0 {
					ck.MaxAge = int(cfg.TTL / time.Second)
				}
				c.SetCookie(ck)
			}
			c.Set(SessionKey, session.NewStore(storage, sid))
			return next(c)
		}
	}
}

// SessionFrom returns the request's session store. Without the Session
// middleware it returns an unbound store that reports an empty session.
func SessionFrom(c echo.Context) *session.Store {
	if st, ok := c.Get(SessionKey).(*session.Store); ok && st != nil {
		return st
	}
	return session.NewStore(nil, "")
}
