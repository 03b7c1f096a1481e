package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/middleware"
)

// AuthHandler serves the login form, login and logout.
type AuthHandler struct {
	Deps *Deps
}

func NewAuthHandler(d *Deps) *AuthHandler { return &AuthHandler{Deps: d} }

type loginReq struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
	Next     string `json:"next" form:"next"`
}

type loginView struct {
	Email string
	Next  string
}

// LoginPage shows the login form. A browser that still holds a token is
// sent to the dashboard; the gate there decides whether the token is good.
func (h *AuthHandler) LoginPage(c echo.Context) error {
	next := safeNext(c.QueryParam("next"))
	if _, ok := middleware.SessionFrom(c).Token(c.Request().Context()); ok {
		return c.Redirect(http.StatusSeeOther, next)
	}
	return h.renderLogin(c, http.StatusOK, "", loginView{Next: next})
}

// Unauthenticated answers a protected page request without a valid
// session: the login form exclusively, with a way back to the page.
func (h *AuthHandler) Unauthenticated(c echo.Context) error {
	next := safeNext(c.Request().URL.RequestURI())
	return h.renderLogin(c, http.StatusUnauthorized, "", loginView{Next: next})
}

// Login exchanges the submitted credentials for a session and redirects to
// the requested page. Other tabs of the browser learn about it through the
// session event stream.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return h.loginFailed(c, http.StatusBadRequest, "invalid body", req)
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := h.Deps.validate(req); err != nil {
		return h.loginFailed(c, http.StatusBadRequest, "Please enter a valid email and password", req)
	}

	svc := h.Deps.AuthFor(middleware.SessionFrom(c))
	sess, err := svc.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		var ae *auth.AuthError
		var ne *auth.NetworkError
		switch {
		case errors.As(err, &ae):
			status := ae.Status
			if status < 400 {
				status = http.StatusUnauthorized
			}
			return h.loginFailed(c, status, ae.Message, req)
		case errors.As(err, &ne):
			h.Deps.logger().Warnw("login backend unreachable", "error", err)
			return h.loginFailed(c, http.StatusBadGateway, "Unable to reach the server. Please try again.", req)
		default:
			h.Deps.logger().Errorw("login failed", "error", err)
			return h.loginFailed(c, http.StatusInternalServerError, "Login failed", req)
		}
	}

	if middleware.WantsJSON(c) {
		return c.JSON(http.StatusOK, echo.Map{"user": sess.User})
	}
	return c.Redirect(http.StatusSeeOther, safeNext(req.Next))
}

// Logout drops the session and returns to the login form, or to next when
// given (the error page's "clear session and retry").
func (h *AuthHandler) Logout(c echo.Context) error {
	svc := h.Deps.AuthFor(middleware.SessionFrom(c))
	if err := svc.Logout(c.Request().Context()); err != nil {
		h.Deps.logger().Errorw("logout failed", "error", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "logout failed"})
	}
	if middleware.WantsJSON(c) {
		return c.NoContent(http.StatusNoContent)
	}
	if next := c.FormValue("next"); next != "" {
		return c.Redirect(http.StatusSeeOther, safeNext(next))
	}
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *AuthHandler) loginFailed(c echo.Context, status int, msg string, req loginReq) error {
	if middleware.WantsJSON(c) {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return h.renderLogin(c, status, msg, loginView{Email: req.Email, Next: safeNext(req.Next)})
}

func (h *AuthHandler) renderLogin(c echo.Context, status int, msg string, v loginView) error {
	return c.Render(status, "login", Page{Title: "Sign in", Error: msg, Data: v})
}

// safeNext keeps redirects on this site.
func safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	if strings.HasPrefix(next, "/login") || strings.HasPrefix(next, "/logout") {
		return "/"
	}
	return next
}
