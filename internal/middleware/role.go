package middleware // middleware provides shared request processing for handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// RequireRole admits only users whose role is one of roles. It must run
// after Protect. Page requests from other roles are redirected to the
// dashboard home; JSON requests get 403.
func RequireRole(roles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u != nil && allowed[u.Role] {
				return next(c)
			}
			if WantsJSON(c) {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
			}
			return c.Redirect(http.StatusSeeOther, "/")
		}
	}
}
