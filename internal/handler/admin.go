package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/leikapui/sales-dashboard/internal/apiclient"
	"github.com/leikapui/sales-dashboard/internal/auth"
	"github.com/leikapui/sales-dashboard/internal/middleware"
	"github.com/leikapui/sales-dashboard/internal/model"
)

// Admin page messages.
const (
	MsgSelectMovie      = "Please select a movie to assign"
	MsgFilmmakerCreated = "Filmmaker created"
)

// AdminHandler lets admins create filmmaker accounts.
type AdminHandler struct {
	Deps *Deps
}

func NewAdminHandler(d *Deps) *AdminHandler { return &AdminHandler{Deps: d} }

type adminView struct {
	Movies  []model.Movie
	Form    apiclient.FilmmakerInput
	Relogin bool
}

// Users shows the filmmaker form with the movie list.
func (h *AdminHandler) Users(c echo.Context) error {
	return h.render(c, http.StatusOK, adminView{}, "", "")
}

// CreateUser creates a filmmaker bound to the chosen movie.
func (h *AdminHandler) CreateUser(c echo.Context) error {
	var in apiclient.FilmmakerInput
	if err := c.Bind(&in); err != nil {
		return h.fail(c, http.StatusBadRequest, adminView{}, "invalid body")
	}
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	view := adminView{Form: apiclient.FilmmakerInput{Name: in.Name, Email: in.Email, AssignedMovieID: in.AssignedMovieID}}

	if in.AssignedMovieID == "" {
		return h.fail(c, http.StatusBadRequest, view, MsgSelectMovie)
	}
	if err := h.Deps.validate(in); err != nil {
		return h.fail(c, http.StatusBadRequest, view, "Please fill in name, a valid email and a password")
	}

	api := h.Deps.APIFor(middleware.SessionFrom(c))
	res, err := api.CreateFilmmakerUser(c.Request().Context(), in)
	if err != nil {
		var ae *auth.AuthError
		var ne *auth.NetworkError
		switch {
		case errors.As(err, &ae):
			status := ae.Status
			if status == 0 || status == http.StatusUnauthorized {
				status = http.StatusUnauthorized
				view.Relogin = true
			}
			return h.fail(c, status, view, ae.Message)
		case errors.As(err, &ne):
			return h.fail(c, http.StatusBadGateway, view, apiclient.MsgCreateFilmmaker)
		default:
			h.Deps.logger().Errorw("create filmmaker", "error", err)
			return h.fail(c, http.StatusInternalServerError, view, apiclient.MsgCreateFilmmaker)
		}
	}

	msg := res.Message
	if msg == "" {
		msg = MsgFilmmakerCreated
	}
	h.Deps.logger().Infow("filmmaker created", "admin", middleware.CurrentUser(c).ID, "email", in.Email, "movie", in.AssignedMovieID)
	if middleware.WantsJSON(c) {
		return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": msg})
	}
	return h.render(c, http.StatusCreated, adminView{}, msg, "")
}

func (h *AdminHandler) fail(c echo.Context, status int, view adminView, msg string) error {
	if middleware.WantsJSON(c) {
		return c.JSON(status, echo.Map{"error": msg})
	}
	return h.render(c, status, view, "", msg)
}

// render loads the movie list for the form. A failing list leaves the
// dropdown empty rather than failing the page.
func (h *AdminHandler) render(c echo.Context, status int, view adminView, flash, msg string) error {
	if !view.Relogin {
		movies, err := h.Deps.APIFor(middleware.SessionFrom(c)).Movies(c.Request().Context())
		if err != nil {
			h.Deps.logger().Warnw("movies unavailable", "error", err)
		}
		view.Movies = movies
	}
	return c.Render(status, "admin", Page{
		Title: "Manage Users",
		User:  middleware.CurrentUser(c),
		Flash: flash,
		Error: msg,
		Data:  view,
	})
}
