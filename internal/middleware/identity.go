package middleware

// identity.go holds helpers shared across middleware files for reading the
// signed-in user that Protect stored on the context.

import (
	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/model"
)

// CurrentUser returns the user admitted by Protect, or nil.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(UserKey).(*model.User)
	return u
}

func setUser(c echo.Context, u *model.User) {
	c.Set(UserKey, u)
}

// userID returns the signed-in user's id, or "anon".
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil && u.ID != "" {
		return u.ID
	}
	return "anon"
}
