package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/gate"
	"github.com/leikapui/sales-dashboard/internal/session"
)

// AuthFor builds the auth operations for one browser session.
type AuthFor func(*session.Store) gate.Authenticator

// Protect runs the gate before every protected route. Authenticated
// requests continue with the user on the context. Otherwise JSON clients get
// 401 {"error": "unauthenticated"} and page requests are answered by
// unauthenticated, which renders the login form.
func Protect(g *gate.Gate, authFor AuthFor, unauthenticated echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			store := SessionFrom(c)
			res := g.Check(c.Request().Context(), store, authFor(store))
			if res.State == gate.Authenticated && res.User != nil {
				setUser(c, res.User)
				return next(c)
			}
			if WantsJSON(c) || unauthenticated == nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthenticated"})
			}
			return unauthenticated(c)
		}
	}
}

// WantsJSON reports whether the request came from a script rather than a
// page navigation.
func WantsJSON(c echo.Context) bool {
	r := c.Request()
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/events" {
		return true
	}
	accept := r.Header.Get(echo.HeaderAccept)
	return strings.Contains(accept, echo.MIMEApplicationJSON) && !strings.Contains(accept, echo.MIMETextHTML)
}
